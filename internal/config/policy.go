// Package config loads the policy file named by `chainaudit`'s --policy
// flag: which checks to run against a repository. It is config only; no
// check engine lives here (spec's Non-goals exclude that).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chainaudit/chainaudit/internal/errs"
)

// Check is one named policy check, with its own free-form options passed
// through to whatever engine eventually consumes this config.
type Check struct {
	Name    string         `yaml:"name"`
	Enabled bool           `yaml:"enabled"`
	Options map[string]any `yaml:"options,omitempty"`
}

// Policy is the top-level shape of a policy YAML file.
type Policy struct {
	Version string  `yaml:"version"`
	Checks  []Check `yaml:"checks"`
}

// Load reads and parses the policy file at path.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, fmt.Sprintf("reading policy file %q", path), err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, fmt.Sprintf("parsing policy file %q", path), err)
	}
	for _, c := range p.Checks {
		if c.Name == "" {
			return nil, errs.ConfigurationError(fmt.Sprintf("policy file %q has a check with no name", path))
		}
	}
	return &p, nil
}

// Enabled returns the names of every check the policy enables, in file
// order.
func (p *Policy) Enabled() []string {
	var names []string
	for _, c := range p.Checks {
		if c.Enabled {
			names = append(names, c.Name)
		}
	}
	return names
}
