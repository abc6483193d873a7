// Package astx holds the typed AST shapes consumed by the IR builder: a
// GitHub Actions workflow document (§4.1, unmarshaled from YAML) and a Bash
// script (§4.1, produced by an external parser subprocess; see
// internal/parsesvc). The IR builder (internal/ir) never sees YAML or bash
// source text directly, only these types.
package astx

import "gopkg.in/yaml.v3"

// Workflow is the root of a parsed GitHub Actions workflow document. Jobs
// is required; On/Env/Name are optional per spec §4.1.
type Workflow struct {
	Name string            `yaml:"name"`
	On   map[string]any    `yaml:"on"`
	Env  map[string]string `yaml:"env"`
	Jobs map[string]Job    `yaml:"jobs"`
}

// UnmarshalYAML decodes the workflow as normal, then stamps each job's ID
// from its map key: the YAML shape carries the job name as a key, not a
// field, but the builder needs it on the value too (step-output-location
// prefixing, job sequencing diagnostics).
func (w *Workflow) UnmarshalYAML(value *yaml.Node) error {
	type plain Workflow
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	for name, j := range p.Jobs {
		j.ID = name
		p.Jobs[name] = j
	}
	*w = Workflow(p)
	return nil
}

// Job is either a NormalJob or a ReusableWorkflowCallJob, distinguished by
// which fields are populated. The parser sets exactly one of Normal/Reusable.
type Job struct {
	ID       string
	Needs    []string
	Normal   *NormalJob
	Reusable *ReusableWorkflowCallJob
}

// UnmarshalYAML picks NormalJob or ReusableWorkflowCallJob by the presence
// of `uses:` at the job level, since GitHub Actions encodes a job as a
// single flat mapping rather than a tagged union.
func (j *Job) UnmarshalYAML(value *yaml.Node) error {
	var shape struct {
		Needs needsList `yaml:"needs"`
		Uses  string    `yaml:"uses"`
	}
	if err := value.Decode(&shape); err != nil {
		return err
	}
	j.Needs = []string(shape.Needs)

	if shape.Uses != "" {
		var r ReusableWorkflowCallJob
		if err := value.Decode(&r); err != nil {
			return err
		}
		j.Reusable = &r
		return nil
	}
	var n NormalJob
	if err := value.Decode(&n); err != nil {
		return err
	}
	j.Normal = &n
	return nil
}

// needsList accepts GitHub Actions' `needs:` in either scalar or sequence
// form.
type needsList []string

func (l *needsList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s != "" {
			*l = []string{s}
		}
		return nil
	}
	var s []string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*l = s
	return nil
}

// NormalJob runs steps on a runner, optionally expanded over a matrix.
// Outputs are published for downstream jobs to read via
// `needs.<job>.outputs.<name>` (spec §4.2's NormalJobNode output block).
type NormalJob struct {
	RunsOn   any               `yaml:"runs-on"`
	Env      map[string]string `yaml:"env"`
	Strategy *Strategy         `yaml:"strategy"`
	Steps    []Step            `yaml:"steps"`
	Outputs  map[string]string `yaml:"outputs"`
}

// Strategy carries the matrix block; spec §4.2 requires each matrix key to
// expand into a SimpleAlternatives of VarAssign nodes.
type Strategy struct {
	Matrix map[string][]any `yaml:"matrix"`
}

// ReusableWorkflowCallJob invokes another workflow via `uses:`.
type ReusableWorkflowCallJob struct {
	Uses string         `yaml:"uses"`
	With map[string]any `yaml:"with"`
}

// Step is either an ActionStep or a RunStep, distinguished by which of
// Uses/Run is set.
type Step struct {
	ID   string            `yaml:"id"`
	Uses string            `yaml:"uses"`
	With map[string]any    `yaml:"with"`
	Run  string            `yaml:"run"`
	Shell string           `yaml:"shell"`
	Env  map[string]string `yaml:"env"`
}

// IsAction reports whether this step is an ActionStep (`uses:`).
func (s Step) IsAction() bool { return s.Uses != "" }

// IsRun reports whether this step is a RunStep (`run:`).
func (s Step) IsRun() bool { return s.Uses == "" }
