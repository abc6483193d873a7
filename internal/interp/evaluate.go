// Package interp implements the abstract interpreter of spec §4.3: the
// expression evaluator (Interpreter, implementing ir.Evaluator) and the
// fixed-point traversal over an ir.Graph (Run).
package interp

import (
	"encoding/base64"
	"path"
	"strings"

	"github.com/gobwas/glob"

	"github.com/chainaudit/chainaudit/internal/ir"
	"github.com/chainaudit/chainaudit/internal/model"
	"github.com/chainaudit/chainaudit/internal/scope"
)

// Interpreter implements ir.Evaluator against one analysis run's arena.
type Interpreter struct {
	Arena *scope.Arena
}

// New returns an Interpreter bound to arena, the same one the IR builder
// used to allocate scopes/contexts.
func New(arena *scope.Arena) *Interpreter {
	return &Interpreter{Arena: arena}
}

// maxConcatLength mirrors the truncation guard in internal/model (kept
// package-local since model's constant is unexported).
const maxConcatLength = 10000

// Evaluate resolves v against before, per spec §4.3.1.
func (it *Interpreter) Evaluate(before *model.State, v model.Value) []ir.EvalResult {
	switch vv := v.(type) {
	case model.StringLiteral, model.ArbitraryNewData, model.Symbolic, model.ParameterPlaceholderValue:
		return []ir.EvalResult{{Value: v, Binds: model.EmptyBindings}}

	case model.Read:
		return it.evaluateRead(before, vv)

	case model.UnaryStringOp:
		return it.evaluateUnary(before, vv)

	case model.BinaryStringOp:
		return it.evaluateBinary(before, vv)

	case model.SingleBashTokenConstraint:
		return it.evaluateConstraint(before, vv)

	case model.InstalledPackage:
		return it.evaluateInstalledPackage(before, vv)

	default:
		return []ir.EvalResult{{Value: v, Binds: model.EmptyBindings}}
	}
}

func (it *Interpreter) evaluateRead(before *model.State, r model.Read) []ir.EvalResult {
	var out []ir.EvalResult
	for _, lr := range it.EvaluateLocation(before, r.Loc) {
		seen := map[string]bool{}
		for _, stateLoc := range before.Locations() {
			if !it.Arena.Matches(lr.Loc.Scope, stateLoc.Scope) {
				continue
			}
			if !subsumes(lr.Loc.Specifier, stateLoc.Specifier) {
				continue
			}
			for _, val := range before.Lookup(stateLoc) {
				if seen[val.String()] {
					continue
				}
				if binds, ok := lr.Binds.WithBinding(r, val); ok {
					seen[val.String()] = true
					out = append(out, ir.EvalResult{Value: val, Binds: binds})
				}
			}
		}
		fallback := model.Symbolic{Inner: model.Read{Loc: lr.Loc}}
		if binds, ok := lr.Binds.WithBinding(r, fallback); ok {
			out = append(out, ir.EvalResult{Value: fallback, Binds: binds})
		}
	}
	return out
}

func (it *Interpreter) evaluateUnary(before *model.State, op model.UnaryStringOp) []ir.EvalResult {
	var out []ir.EvalResult
	for _, r := range it.Evaluate(before, op.V) {
		lit, ok := r.Value.(model.StringLiteral)
		if !ok {
			continue
		}
		switch op.Op {
		case model.UnaryBasename:
			out = append(out, ir.EvalResult{Value: model.StringLiteral{S: path.Base(lit.S)}, Binds: r.Binds})
		case model.UnaryBase64Decode:
			dec, err := base64.StdEncoding.DecodeString(lit.S)
			if err != nil {
				continue
			}
			out = append(out, ir.EvalResult{Value: model.StringLiteral{S: string(dec)}, Binds: r.Binds})
		case model.UnaryBase64Encode:
			enc := base64.StdEncoding.EncodeToString([]byte(lit.S))
			out = append(out, ir.EvalResult{Value: model.StringLiteral{S: enc}, Binds: r.Binds})
		}
	}
	return out
}

func (it *Interpreter) evaluateBinary(before *model.State, op model.BinaryStringOp) []ir.EvalResult {
	if op.Op != model.StringConcat {
		return nil
	}
	var out []ir.EvalResult
	lefts := it.Evaluate(before, op.V1)
	rights := it.Evaluate(before, op.V2)
	for _, l := range lefts {
		ll, ok := l.Value.(model.StringLiteral)
		if !ok {
			continue
		}
		for _, r := range rights {
			rl, ok := r.Value.(model.StringLiteral)
			if !ok {
				continue
			}
			combined := ll.S + rl.S
			if len(combined) > maxConcatLength {
				continue
			}
			binds, ok := model.CombineBindings(l.Binds, r.Binds)
			if !ok {
				continue
			}
			out = append(out, ir.EvalResult{Value: model.StringLiteral{S: combined}, Binds: binds})
		}
	}
	return out
}

func (it *Interpreter) evaluateConstraint(before *model.State, c model.SingleBashTokenConstraint) []ir.EvalResult {
	var out []ir.EvalResult
	for _, r := range it.Evaluate(before, c.V) {
		lit, ok := r.Value.(model.StringLiteral)
		if !ok {
			continue
		}
		if len(strings.Fields(lit.S)) == 1 {
			out = append(out, ir.EvalResult{Value: lit, Binds: r.Binds})
		}
	}
	return out
}

func (it *Interpreter) evaluateInstalledPackage(before *model.State, pkg model.InstalledPackage) []ir.EvalResult {
	var out []ir.EvalResult
	for _, name := range it.Evaluate(before, pkg.Name) {
		for _, version := range it.Evaluate(before, pkg.Version) {
			nb, ok := model.CombineBindings(name.Binds, version.Binds)
			if !ok {
				continue
			}
			for _, dist := range it.Evaluate(before, pkg.Distribution) {
				db, ok := model.CombineBindings(nb, dist.Binds)
				if !ok {
					continue
				}
				for _, url := range it.Evaluate(before, pkg.URL) {
					ub, ok := model.CombineBindings(db, url.Binds)
					if !ok {
						continue
					}
					out = append(out, ir.EvalResult{
						Value: model.InstalledPackage{Name: name.Value, Version: version.Value, Distribution: dist.Value, URL: url.Value},
						Binds: ub,
					})
				}
			}
		}
	}
	return out
}

// EvaluateLocation resolves the dynamic Values embedded in loc.Specifier
// against before, returning one concrete Location per alternative.
func (it *Interpreter) EvaluateLocation(before *model.State, loc model.Location) []ir.LocResult {
	var out []ir.LocResult
	switch s := loc.Specifier.(type) {
	case model.Filesystem:
		for _, r := range it.Evaluate(before, s.Path) {
			out = append(out, ir.LocResult{Loc: model.Location{Scope: loc.Scope, Specifier: model.Filesystem{Path: r.Value}}, Binds: r.Binds})
		}
	case model.FilesystemAnyUnderDir:
		for _, r := range it.Evaluate(before, s.Dir) {
			out = append(out, ir.LocResult{Loc: model.Location{Scope: loc.Scope, Specifier: model.FilesystemAnyUnderDir{Dir: r.Value}}, Binds: r.Binds})
		}
	case model.Variable:
		for _, r := range it.Evaluate(before, s.Name) {
			out = append(out, ir.LocResult{Loc: model.Location{Scope: loc.Scope, Specifier: model.Variable{Name: r.Value}}, Binds: r.Binds})
		}
	case model.Artifact:
		for _, n := range it.Evaluate(before, s.Name) {
			for _, f := range it.Evaluate(before, s.File) {
				binds, ok := model.CombineBindings(n.Binds, f.Binds)
				if !ok {
					continue
				}
				out = append(out, ir.LocResult{Loc: model.Location{Scope: loc.Scope, Specifier: model.Artifact{Name: n.Value, File: f.Value}}, Binds: binds})
			}
		}
	case model.ArtifactAnyFilename:
		for _, r := range it.Evaluate(before, s.Name) {
			out = append(out, ir.LocResult{Loc: model.Location{Scope: loc.Scope, Specifier: model.ArtifactAnyFilename{Name: r.Value}}, Binds: r.Binds})
		}
	case model.Installed:
		for _, r := range it.Evaluate(before, s.Name) {
			out = append(out, ir.LocResult{Loc: model.Location{Scope: loc.Scope, Specifier: model.Installed{Name: r.Value}}, Binds: r.Binds})
		}
	default:
		out = append(out, ir.LocResult{Loc: loc, Binds: model.EmptyBindings})
	}
	return out
}

// normalizeFSPath strips a leading "./" so that "./foo" and "foo" compare
// equal (spec §4.3.1's "ignoring a leading ./ is idempotent").
func normalizeFSPath(s string) string {
	return strings.TrimPrefix(s, "./")
}

// dirGlobMatches reports whether p falls under dir, treating dir as a glob
// pattern so a `path:`/`files:` input like "dist/**/*.jar" widens the same
// way a literal "dist" directory does. A dir with no glob metacharacters is
// matched as a plain path prefix.
func dirGlobMatches(dir, p string) bool {
	p = normalizeFSPath(p)
	pattern := strings.TrimRight(normalizeFSPath(dir), "/") + "/**"
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		prefix := strings.TrimRight(normalizeFSPath(dir), "/") + "/"
		return strings.HasPrefix(p, prefix)
	}
	return g.Match(p)
}

func literalString(v model.Value) (string, bool) {
	lit, ok := v.(model.StringLiteral)
	if !ok {
		return "", false
	}
	return lit.S, true
}

// subsumes implements the location subsumption rules of spec §4.3.1: a
// read specifier subsumes a stored specifier if they denote the same
// location (after normalization), or via the two structural widenings
// (FilesystemAnyUnderDir over a path under it, ArtifactAnyFilename over
// any file within the named artifact).
func subsumes(read, stored model.LocationSpecifier) bool {
	if read.String() == stored.String() {
		return true
	}
	switch r := read.(type) {
	case model.Filesystem:
		if s, ok := stored.(model.Filesystem); ok {
			rs, rok := literalString(r.Path)
			ss, sok := literalString(s.Path)
			if rok && sok {
				return normalizeFSPath(rs) == normalizeFSPath(ss)
			}
		}
	case model.FilesystemAnyUnderDir:
		if s, ok := stored.(model.Filesystem); ok {
			dir, dok := literalString(r.Dir)
			p, pok := literalString(s.Path)
			if dok && pok {
				return dirGlobMatches(dir, normalizeFSPath(p))
			}
		}
	case model.ArtifactAnyFilename:
		if s, ok := stored.(model.Artifact); ok {
			rn, rok := literalString(r.Name)
			sn, sok := literalString(s.Name)
			if rok && sok {
				return rn == sn
			}
			return r.Name.String() == s.Name.String()
		}
	}
	return false
}
