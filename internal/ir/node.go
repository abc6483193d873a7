// Package ir implements the analysis graph of spec §3/§4.2: the IR builder
// lowers a parsed workflow or bash AST into a tree of Nodes, and the
// abstract interpreter (internal/interp) performs a fixed-point traversal
// over it. Node kinds are modeled as a closed set of Go types implementing
// Node (control-flow nodes: sequences, branches, loops, pipes) or
// Interpretation (nodes whose children depend on their before-state).
package ir

import (
	"github.com/google/uuid"

	"github.com/chainaudit/chainaudit/internal/model"
	"github.com/chainaudit/chainaudit/internal/scope"
)

// ExitKind is a closed set extensible by node kinds (spec §3). The core
// defines DefaultExit and the two bash-specific kinds; node kinds that need
// their own exit (none currently do) would add further string constants.
type ExitKind string

const (
	DefaultExit ExitKind = "DEFAULT_EXIT"
	BashExit    ExitKind = "BASH_EXIT"
	BashReturn  ExitKind = "BASH_RETURN"
)

// NodeID uniquely identifies a node within one analysis graph, used as the
// work-list dedup key's node component and as DebugLabel.Node.
type NodeID uuid.UUID

func newNodeID() NodeID { return NodeID(uuid.New()) }

func (id NodeID) String() string { return uuid.UUID(id).String() }

// Successor is one control-flow edge out of a node: traversal continues at
// To when the node-being-exited produced exit kind Exit.
type Successor struct {
	To   Node
	Exit ExitKind
}

// Node is the unit of the analysis graph (spec §3).
type Node interface {
	ID() NodeID
	// Children lists this node's structural children, in traversal order.
	Children() []Node
	// Entry returns the child that receives control first, or nil if this
	// node has no children (a leaf).
	Entry() Node
	// Successors returns the control-flow edges out of child's given exit.
	// child must be one of Children(); for a leaf node (no children) this
	// is never called.
	Successors(child Node, exit ExitKind) []Successor
	// ExitStateTransferFilter declares which scopes must be cleared from
	// this node's after-state before it becomes a successor's before-state
	// (spec §3: "used so that a context's owned scopes do not leak out").
	ExitStateTransferFilter() map[model.ScopeID]bool
	// Translate maps an exit kind arising from within this node's subtree
	// to the exit kind this node presents to ITS OWN parent, implementing
	// the per-node-kind BASH_EXIT/BASH_RETURN propagation rules of §4.2:
	// most nodes pass exits through unchanged (BashBlockNode, the
	// if/for/pipe/and/or nodes); BashScriptNode and StepNode translate
	// BASH_EXIT/BASH_RETURN to DEFAULT_EXIT (an early-exit boundary and a
	// swallow boundary respectively); BashFuncCallNode translates
	// BASH_RETURN to DEFAULT_EXIT but passes BASH_EXIT through.
	Translate(exit ExitKind) ExitKind
}

// EvalResult is one (value, bindings) alternative returned by Evaluator, per
// spec §4.3.1's evaluate(node, value) → Set<(Value, ReadBindings)>.
type EvalResult struct {
	Value  model.Value
	Binds  model.ReadBindings
}

// Evaluator is the expression-evaluation contract a Leaf's ApplyEffects
// calls into to resolve dynamic Locations and Values against its
// before-state. It is implemented by internal/interp; the ir package only
// depends on this interface so that the Node/Leaf types defined here never
// import the interpreter (which in turn imports ir to walk Graph).
type Evaluator interface {
	// Evaluate resolves v against before, per spec §4.3.1.
	Evaluate(before *model.State, v model.Value) []EvalResult
	// EvaluateLocation resolves a (possibly dynamic) LocationSpecifier's
	// inner Values against before, returning concrete model.Location
	// candidates paired with the bindings that produced them.
	EvaluateLocation(before *model.State, loc model.Location) []LocResult
}

// LocResult is one concrete Location alternative, paired with the bindings
// that produced it.
type LocResult struct {
	Loc   model.Location
	Binds model.ReadBindings
}

// Leaf is a Node with no children whose behavior is an effects function
// rather than routing to sub-nodes.
type Leaf interface {
	Node
	// ApplyEffects computes this leaf's after-states from its before-state,
	// one entry per exit kind it may produce.
	ApplyEffects(before *model.State, eval Evaluator) map[ExitKind]*model.State
}

// InterpretationKey is a digest identifying one alternative expansion of an
// Interpretation node for a given before-state. It combines a shape
// descriptor (what was different about this alternative: which argument
// tuple was chosen, which action matched, ...) with the combined
// ReadBindings digest required by spec §4.3.2, so that re-evaluation with a
// more refined before-state either returns the same key or extends the set
// monotonically (spec §3 invariant).
type InterpretationKey string

// MakeKey builds an InterpretationKey from a human-readable shape and the
// ReadBindings that produced it.
func MakeKey(shape string, binds model.ReadBindings) InterpretationKey {
	return InterpretationKey(shape + "|" + binds.Digest())
}

// Interpretation is an analysis-graph node whose children depend on its
// before-state (spec §3's "interpretation nodes"). IdentifyInterpretations
// is re-invoked whenever the node's before-state grows; existing keys must
// never disappear from one call to the next (only new keys may appear),
// which is what lets the fixed-point loop treat the node's live child set
// as monotonically growing.
type Interpretation interface {
	Node
	IdentifyInterpretations(before *model.State) map[InterpretationKey]func() Node
}

// Materializer is implemented by every Interpretation node kind (via
// embedding interpBase): it admits newly identified alternatives into the
// node's live child set and reports which ones were actually new, so the
// traversal driver (internal/interp) knows which to Graph.Attach and
// descend into.
type Materializer interface {
	Materialize(fresh map[InterpretationKey]func() Node) []Node
}

// base provides the plumbing every node kind needs (an id, and sane
// zero-value ExitStateTransferFilter) so concrete node kinds only need to
// embed it and implement Children/Entry/Successors (and ApplyEffects or
// IdentifyInterpretations as appropriate).
type base struct {
	id NodeID
}

func newBase() base { return base{id: newNodeID()} }

func (b base) ID() NodeID { return b.id }

// identityExit is embedded by node kinds that do not intercept exit kinds:
// BASH_EXIT/BASH_RETURN pass through unchanged to the parent.
type identityExit struct{}

func (identityExit) Translate(exit ExitKind) ExitKind { return exit }

// noFilter is embedded by node kinds that do not own any scope directly
// (most control-flow nodes: the owning context lives on the leaf/context
// node that created the scope, e.g. BashScriptNode or StepNode).
type noFilter struct{}

func (noFilter) ExitStateTransferFilter() map[model.ScopeID]bool { return nil }

// ownedFilter is embedded by node kinds that own a scope::Context directly
// (BashScriptNode, StepNode's implicit bash invocation) and must clear its
// owned scopes from the after-state on exit.
type ownedFilter struct {
	arena *scope.Arena
	ctx   scope.Context
}

func (f ownedFilter) ExitStateTransferFilter() map[model.ScopeID]bool {
	if f.ctx == nil {
		return nil
	}
	return f.arena.OwnedScopes(f.ctx)
}
