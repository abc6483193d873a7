package ir

import "github.com/chainaudit/chainaudit/internal/scope"

// Sequence is a linear run of nodes with DEFAULT_EXIT-only propagation
// between them: the body of a script/block, a job's
// matrix/env/steps/outputs spine, a workflow's topologically-ordered jobs.
// Any other exit kind bubbles straight through (Sequence's Translate is the
// identity), which is how a bare `exit`/`return` deep inside a sequence
// reaches whatever boundary node (BashScriptNode, BashFuncCallNode, ...) is
// supposed to intercept it.
type Sequence struct {
	base
	identityExit
	noFilter
	items []Node
}

func NewSequence(items ...Node) *Sequence {
	return &Sequence{base: newBase(), items: items}
}

func (s *Sequence) Children() []Node { return s.items }

func (s *Sequence) Entry() Node {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[0]
}

func (s *Sequence) Successors(child Node, exit ExitKind) []Successor {
	if exit != DefaultExit {
		return nil
	}
	for i, it := range s.items {
		if it.ID() == child.ID() {
			if i+1 < len(s.items) {
				return []Successor{{To: s.items[i+1], Exit: DefaultExit}}
			}
			return nil
		}
	}
	return nil
}

// IfClauseNode is BashIfClauseNode (spec §4.2): condition always runs, then
// BOTH branches are explored regardless of the condition's value — the core
// is explicitly not path-sensitive (spec §1).
type IfClauseNode struct {
	base
	identityExit
	noFilter
	Cond Node
	Then Node
	Else Node // nil if there is no else branch
}

func NewIfClause(cond, then, els Node) *IfClauseNode {
	return &IfClauseNode{base: newBase(), Cond: cond, Then: then, Else: els}
}

func (n *IfClauseNode) Children() []Node {
	out := []Node{n.Cond, n.Then}
	if n.Else != nil {
		out = append(out, n.Else)
	}
	return out
}

func (n *IfClauseNode) Entry() Node { return n.Cond }

func (n *IfClauseNode) Successors(child Node, exit ExitKind) []Successor {
	if exit != DefaultExit {
		return nil
	}
	if child.ID() == n.Cond.ID() {
		succs := []Successor{{To: n.Then, Exit: DefaultExit}}
		if n.Else != nil {
			succs = append(succs, Successor{To: n.Else, Exit: DefaultExit})
		}
		return succs
	}
	// Both Then and Else fall through to whatever follows the if-statement,
	// which this node does not itself know about: bubble to our parent.
	return nil
}

// ForClauseNode is BashForClauseNode: init → cond → body → post, whichever
// exist, in order. No back edge is modeled (spec §4.2/§9): the design
// accepts this imprecision — sound for "what was written at least once",
// unsound for "the final value after the loop" — to guarantee fixed-point
// termination without a separate widening operator.
type ForClauseNode struct {
	base
	identityExit
	noFilter
	steps []Node // the existing subset of [init, cond, body, post], in order
}

func NewForClause(init, cond, body, post Node) *ForClauseNode {
	var steps []Node
	for _, n := range []Node{init, cond, body, post} {
		if n != nil {
			steps = append(steps, n)
		}
	}
	return &ForClauseNode{base: newBase(), steps: steps}
}

func (n *ForClauseNode) Children() []Node { return n.steps }

func (n *ForClauseNode) Entry() Node {
	if len(n.steps) == 0 {
		return nil
	}
	return n.steps[0]
}

func (n *ForClauseNode) Successors(child Node, exit ExitKind) []Successor {
	if exit != DefaultExit {
		return nil
	}
	for i, s := range n.steps {
		if s.ID() == child.ID() {
			if i+1 < len(n.steps) {
				return []Successor{{To: n.steps[i+1], Exit: DefaultExit}}
			}
			return nil // no back edge to init/cond: loop "runs once" in the graph
		}
	}
	return nil
}

// PipeNode is BashPipeNode: lhs → rhs → exit. The pipe context supplies a
// fresh scope+location that acts as the lhs's stdout and the rhs's stdin;
// PipeNode owns that context and clears its scope on exit so the connecting
// location never leaks past the pipe (it's only meaningful while lhs/rhs
// are being evaluated relative to each other).
type PipeNode struct {
	base
	identityExit
	ownedFilter
	Lhs Node
	Rhs Node
}

func NewPipeNode(lhs, rhs Node, filter ownedFilter) *PipeNode {
	return &PipeNode{base: newBase(), ownedFilter: filter, Lhs: lhs, Rhs: rhs}
}

func (n *PipeNode) Children() []Node { return []Node{n.Lhs, n.Rhs} }
func (n *PipeNode) Entry() Node      { return n.Lhs }

func (n *PipeNode) Successors(child Node, exit ExitKind) []Successor {
	if exit != DefaultExit {
		return nil
	}
	if child.ID() == n.Lhs.ID() {
		return []Successor{{To: n.Rhs, Exit: DefaultExit}}
	}
	return nil
}

// ShortCircuitKind distinguishes && from || for BinaryShortCircuitNode.
type ShortCircuitKind int

const (
	AndKind ShortCircuitKind = iota
	OrKind
)

// BinaryShortCircuitNode is BashAndNode/BashOrNode: lhs → rhs → exit.
// Short-circuiting is intentionally ignored (spec §9's open question): both
// sides are always sequenced, matching the "both branches of every
// conditional are always explored" non-path-sensitivity of the whole core.
type BinaryShortCircuitNode struct {
	base
	identityExit
	noFilter
	Kind ShortCircuitKind
	Lhs  Node
	Rhs  Node
}

func NewBinaryShortCircuit(kind ShortCircuitKind, lhs, rhs Node) *BinaryShortCircuitNode {
	return &BinaryShortCircuitNode{base: newBase(), Kind: kind, Lhs: lhs, Rhs: rhs}
}

func (n *BinaryShortCircuitNode) Children() []Node { return []Node{n.Lhs, n.Rhs} }
func (n *BinaryShortCircuitNode) Entry() Node      { return n.Lhs }

func (n *BinaryShortCircuitNode) Successors(child Node, exit ExitKind) []Successor {
	if exit != DefaultExit {
		return nil
	}
	if child.ID() == n.Lhs.ID() {
		return []Successor{{To: n.Rhs, Exit: DefaultExit}}
	}
	return nil
}

// FuncCallNode is BashFuncCallNode: body → exit. BASH_RETURN of the body
// becomes DEFAULT_EXIT of the call (the function returned, execution
// resumes after the call site); BASH_EXIT propagates unchanged (the whole
// script is terminating, not just this function). It owns the call's
// BashFunctionContext (its `local`/plain in-function assignments' scope),
// cleared from the after-state on exit like BashScriptNode/StepNode.
type FuncCallNode struct {
	base
	ownedFilter
	Body Node
}

func NewFuncCallNode(arena *scope.Arena, ctx *scope.BashFunctionContext, body Node) *FuncCallNode {
	return &FuncCallNode{base: newBase(), ownedFilter: ownedFilter{arena: arena, ctx: ctx}, Body: body}
}

func (n *FuncCallNode) Children() []Node { return []Node{n.Body} }
func (n *FuncCallNode) Entry() Node      { return n.Body }

func (n *FuncCallNode) Successors(child Node, exit ExitKind) []Successor {
	if exit != DefaultExit {
		return nil
	}
	return nil // falls through to whatever follows the call site (parent resolves it)
}

func (n *FuncCallNode) Translate(exit ExitKind) ExitKind {
	if exit == BashReturn {
		return DefaultExit
	}
	return exit
}
