package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/scope"
)

func TestGraph_ResolveBubblesThroughSequenceParent(t *testing.T) {
	a, b := newFakeLeaf(), newFakeLeaf()
	seq := NewSequence(a, b)
	g := NewGraph(seq)
	g.Attach(seq, a, b)

	succs, cleared, ok := g.Resolve(a, DefaultExit)
	require.True(t, ok)
	require.Len(t, succs, 1)
	require.Equal(t, b.ID(), succs[0].To.ID())
	require.Empty(t, cleared)
}

func TestGraph_ResolveTerminalAtRoot(t *testing.T) {
	a, b := newFakeLeaf(), newFakeLeaf()
	seq := NewSequence(a, b)
	g := NewGraph(seq)
	g.Attach(seq, a, b)

	// b has no successor within seq, and seq is the root: terminal.
	_, _, ok := g.Resolve(b, DefaultExit)
	require.False(t, ok)
}

func TestGraph_ResolveBubblesThroughNestedIf(t *testing.T) {
	cond, then, els, after := newFakeLeaf(), newFakeLeaf(), newFakeLeaf(), newFakeLeaf()
	ifNode := NewIfClause(cond, then, els)
	seq := NewSequence(ifNode, after)
	g := NewGraph(seq)
	g.Attach(seq, ifNode, after)
	g.Attach(ifNode, cond, then, els)

	// then falls through the if (no successor there) and bubbles to seq,
	// which routes to after.
	succs, _, ok := g.Resolve(then, DefaultExit)
	require.True(t, ok)
	require.Len(t, succs, 1)
	require.Equal(t, after.ID(), succs[0].To.ID())
}

func TestGraph_ResolveTranslatesExitThroughFuncCall(t *testing.T) {
	arena := scope.NewArena()
	callerEnv := arena.NewScope("caller.env", 0)
	funcCtx := scope.NewBashFunctionContext(arena, callerEnv)

	body := newFakeLeaf()
	call := NewFuncCallNode(arena, funcCtx, body)
	after := newFakeLeaf()
	seq := NewSequence(call, after)
	g := NewGraph(seq)
	g.Attach(seq, call, after)
	g.Attach(call, body)

	// body returns via BASH_RETURN; FuncCallNode translates it to
	// DEFAULT_EXIT before asking call's parent (seq) for successors.
	succs, _, ok := g.Resolve(body, BashReturn)
	require.True(t, ok)
	require.Len(t, succs, 1)
	require.Equal(t, after.ID(), succs[0].To.ID())
}

func TestGraph_ResolveAccumulatesClearedScopesFromOwnedFilter(t *testing.T) {
	arena := scope.NewArena()
	sc := arena.NewScope("pipe", 0)
	ctx := arena.NewContext(func(id scope.ContextID) scope.Context {
		return &fakeContext{id: id, owned: []scope.Ref{scope.ScopeRef(scope.Owning, sc)}}
	})

	lhs, rhs, after := newFakeLeaf(), newFakeLeaf(), newFakeLeaf()
	pipe := NewPipeNode(lhs, rhs, ownedFilter{arena: arena, ctx: ctx})
	seq := NewSequence(pipe, after)
	g := NewGraph(seq)
	g.Attach(seq, pipe, after)
	g.Attach(pipe, lhs, rhs)

	succs, cleared, ok := g.Resolve(rhs, DefaultExit)
	require.True(t, ok)
	require.Len(t, succs, 1)
	require.Equal(t, after.ID(), succs[0].To.ID())
	require.True(t, cleared[sc])
}

type fakeContext struct {
	id    scope.ContextID
	owned []scope.Ref
}

func (c *fakeContext) ID() scope.ContextID    { return c.id }
func (c *fakeContext) DirectRefs() []scope.Ref { return c.owned }
