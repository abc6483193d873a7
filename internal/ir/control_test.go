package ir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/model"
)

// fakeLeaf is a minimal Leaf for exercising Graph.Resolve without pulling in
// a concrete node kind's ApplyEffects semantics.
type fakeLeaf struct {
	base
	identityExit
	noFilter
}

func newFakeLeaf() *fakeLeaf { return &fakeLeaf{base: newBase()} }

func (l *fakeLeaf) Children() []Node                              { return nil }
func (l *fakeLeaf) Entry() Node                                    { return nil }
func (l *fakeLeaf) Successors(child Node, exit ExitKind) []Successor { return nil }
func (l *fakeLeaf) ApplyEffects(before *model.State, eval Evaluator) map[ExitKind]*model.State {
	return nil
}

func TestSequence_SuccessorsChainsItems(t *testing.T) {
	a, b, c := newFakeLeaf(), newFakeLeaf(), newFakeLeaf()
	seq := NewSequence(a, b, c)

	succs := seq.Successors(a, DefaultExit)
	require.Len(t, succs, 1)
	require.Equal(t, b.ID(), succs[0].To.ID())

	succs = seq.Successors(b, DefaultExit)
	require.Len(t, succs, 1)
	require.Equal(t, c.ID(), succs[0].To.ID())

	// last item has no successor within the sequence: falls through to parent.
	require.Empty(t, seq.Successors(c, DefaultExit))
}

func TestSequence_EmptyHasNoEntry(t *testing.T) {
	seq := NewSequence()
	require.Nil(t, seq.Entry())
}

func TestSequence_NonDefaultExitNeverResolves(t *testing.T) {
	a, b := newFakeLeaf(), newFakeLeaf()
	seq := NewSequence(a, b)
	require.Empty(t, seq.Successors(a, BashExit))
}

// Spec §4.2/§9 edge case: both branches of an if run unconditionally (the
// else-less case is TestIfClauseNode_NoElse).
func TestIfClauseNode_BothBranchesExploredFromCond(t *testing.T) {
	cond, then, els := newFakeLeaf(), newFakeLeaf(), newFakeLeaf()
	n := NewIfClause(cond, then, els)

	succs := n.Successors(cond, DefaultExit)
	require.Len(t, succs, 2)
	require.Equal(t, then.ID(), succs[0].To.ID())
	require.Equal(t, els.ID(), succs[1].To.ID())

	// Then/Else themselves fall through to the parent (if has no knowledge
	// of what follows it).
	require.Empty(t, n.Successors(then, DefaultExit))
	require.Empty(t, n.Successors(els, DefaultExit))
}

func TestIfClauseNode_NoElse(t *testing.T) {
	cond, then := newFakeLeaf(), newFakeLeaf()
	n := NewIfClause(cond, then, nil)

	succs := n.Successors(cond, DefaultExit)
	require.Len(t, succs, 1)
	require.Equal(t, then.ID(), succs[0].To.ID())
	require.Len(t, n.Children(), 2)
}

// Boundary behavior named in the pending test list: an empty for loop (no
// init/cond/body/post) has no entry and no steps.
func TestForClauseNode_AllNilIsEmpty(t *testing.T) {
	n := NewForClause(nil, nil, nil, nil)
	require.Nil(t, n.Entry())
	require.Empty(t, n.Children())
}

// No back edge: the loop "runs once" in the graph (spec §4.2/§9's accepted
// imprecision for guaranteeing fixed-point termination).
func TestForClauseNode_NoBackEdgeAfterPost(t *testing.T) {
	init, cond, body, post := newFakeLeaf(), newFakeLeaf(), newFakeLeaf(), newFakeLeaf()
	n := NewForClause(init, cond, body, post)

	require.Equal(t, init.ID(), n.Entry().ID())

	succs := n.Successors(init, DefaultExit)
	require.Len(t, succs, 1)
	require.Equal(t, cond.ID(), succs[0].To.ID())

	succs = n.Successors(cond, DefaultExit)
	require.Len(t, succs, 1)
	require.Equal(t, body.ID(), succs[0].To.ID())

	succs = n.Successors(body, DefaultExit)
	require.Len(t, succs, 1)
	require.Equal(t, post.ID(), succs[0].To.ID())

	require.Empty(t, n.Successors(post, DefaultExit))
}

func TestForClauseNode_PartialSteps(t *testing.T) {
	cond, body := newFakeLeaf(), newFakeLeaf()
	n := NewForClause(nil, cond, body, nil)
	require.Equal(t, cond.ID(), n.Entry().ID())
	require.Len(t, n.Children(), 2)
}

func TestFuncCallNode_TranslatesReturnNotExit(t *testing.T) {
	body := newFakeLeaf()
	n := NewFuncCallNode(nil, nil, body)

	require.Equal(t, DefaultExit, n.Translate(BashReturn))
	require.Equal(t, BashExit, n.Translate(BashExit))
	require.Equal(t, DefaultExit, n.Translate(DefaultExit))
}

func TestPipeNode_LhsFeedsRhs(t *testing.T) {
	lhs, rhs := newFakeLeaf(), newFakeLeaf()
	n := NewPipeNode(lhs, rhs, ownedFilter{})

	succs := n.Successors(lhs, DefaultExit)
	require.Len(t, succs, 1)
	require.Equal(t, rhs.ID(), succs[0].To.ID())
	require.Empty(t, n.Successors(rhs, DefaultExit))
}

func TestBinaryShortCircuitNode_AlwaysSequencesBoth(t *testing.T) {
	lhs, rhs := newFakeLeaf(), newFakeLeaf()
	n := NewBinaryShortCircuit(OrKind, lhs, rhs)

	succs := n.Successors(lhs, DefaultExit)
	require.Len(t, succs, 1)
	require.Equal(t, rhs.ID(), succs[0].To.ID())
}
