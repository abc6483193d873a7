package ir

import (
	"fmt"
	"sort"

	"github.com/chainaudit/chainaudit/internal/scope"
)

// BashScriptNode wraps one parsed bash script's top-level statement sequence
// under its own owned BashScriptContext. It is the early-exit boundary named
// by spec §4.2: a bare `exit`/`return` reaching the end of the script's own
// subtree (Body's Successors returning nil) is absorbed here — translated to
// DEFAULT_EXIT — before bubbling further, because BASH_EXIT/BASH_RETURN are
// bash-internal concepts that stop meaning anything one level up (a step, or
// a calling script's BashFuncCallNode).
type BashScriptNode struct {
	base
	ownedFilter
	Body Node
}

func NewBashScriptNode(arena *scope.Arena, ctx *scope.BashScriptContext, body Node) *BashScriptNode {
	return &BashScriptNode{base: newBase(), ownedFilter: ownedFilter{arena: arena, ctx: ctx}, Body: body}
}

func (n *BashScriptNode) Children() []Node { return []Node{n.Body} }
func (n *BashScriptNode) Entry() Node      { return n.Body }

func (n *BashScriptNode) Successors(Node, ExitKind) []Successor { return nil }

func (n *BashScriptNode) Translate(ExitKind) ExitKind { return DefaultExit }

// StepNode wraps one workflow step's action (a BashScriptNode for a `run:`
// step, or one of InstallPackageNode/ArtifactActionNode/NoOp for a
// recognized `uses:` action) under its own owned GitHubActionsStepContext.
// It is the swallow boundary of spec §4.2: whatever exit its body produces,
// the step itself always completes with DEFAULT_EXIT as far as its
// enclosing job's step sequence is concerned.
type StepNode struct {
	base
	ownedFilter
	ID_   string
	Body  Node
}

func NewStepNode(arena *scope.Arena, ctx *scope.GitHubActionsStepContext, id string, body Node) *StepNode {
	return &StepNode{base: newBase(), ownedFilter: ownedFilter{arena: arena, ctx: ctx}, ID_: id, Body: body}
}

func (n *StepNode) Children() []Node { return []Node{n.Body} }
func (n *StepNode) Entry() Node      { return n.Body }

func (n *StepNode) Successors(Node, ExitKind) []Successor { return nil }

func (n *StepNode) Translate(ExitKind) ExitKind { return DefaultExit }

// NormalJobNode wraps one job's body (matrix/env assignments, then its step
// sequence, then output assignments, all sequenced by the builder) under
// its own owned GitHubActionsJobContext.
type NormalJobNode struct {
	base
	ownedFilter
	Name string
	Body Node
}

func NewNormalJobNode(arena *scope.Arena, ctx *scope.GitHubActionsJobContext, name string, body Node) *NormalJobNode {
	return &NormalJobNode{base: newBase(), ownedFilter: ownedFilter{arena: arena, ctx: ctx}, Name: name, Body: body}
}

func (n *NormalJobNode) Children() []Node { return []Node{n.Body} }
func (n *NormalJobNode) Entry() Node      { return n.Body }

func (n *NormalJobNode) Successors(Node, ExitKind) []Successor { return nil }
func (n *NormalJobNode) Translate(exit ExitKind) ExitKind       { return DefaultExit }

// ReusableWorkflowCallJobNode is a `uses: ./.github/workflows/x.yml` job: it
// defers entirely to the called workflow's own WorkflowNode, under the
// calling job's id/context for diagnostics.
type ReusableWorkflowCallJobNode struct {
	base
	identityExit
	noFilter
	Name   string
	Called *WorkflowNode
}

func NewReusableWorkflowCallJobNode(name string, called *WorkflowNode) *ReusableWorkflowCallJobNode {
	return &ReusableWorkflowCallJobNode{base: newBase(), Name: name, Called: called}
}

func (n *ReusableWorkflowCallJobNode) Children() []Node { return []Node{n.Called} }
func (n *ReusableWorkflowCallJobNode) Entry() Node      { return n.Called }

func (n *ReusableWorkflowCallJobNode) Successors(Node, ExitKind) []Successor { return nil }

// WorkflowNode wraps an entire workflow's topologically-ordered job
// sequence under its own owned GitHubActionsWorkflowContext.
type WorkflowNode struct {
	base
	ownedFilter
	Jobs Node
}

func NewWorkflowNode(arena *scope.Arena, ctx *scope.GitHubActionsWorkflowContext, jobs Node) *WorkflowNode {
	return &WorkflowNode{base: newBase(), ownedFilter: ownedFilter{arena: arena, ctx: ctx}, Jobs: jobs}
}

func (n *WorkflowNode) Children() []Node { return []Node{n.Jobs} }
func (n *WorkflowNode) Entry() Node      { return n.Jobs }

func (n *WorkflowNode) Successors(Node, ExitKind) []Successor { return nil }
func (n *WorkflowNode) Translate(ExitKind) ExitKind           { return DefaultExit }

// TopoSortJobs orders job names by their `needs:` dependency graph
// (spec §4.2's "topological needs-graph job ordering"), breaking ties
// alphabetically for determinism, and reports a CYCLE error if the needs
// graph is not a DAG.
func TopoSortJobs(needs map[string][]string) ([]string, error) {
	names := make([]string, 0, len(needs))
	for name := range needs {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(names))
	var order []string

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("cycle in job dependency graph: %v", append(path, name))
		}
		state[name] = visiting
		deps := append([]string(nil), needs[name]...)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := needs[dep]; !ok {
				continue // dangling `needs:` reference; builder validates separately
			}
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}
