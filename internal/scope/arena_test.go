package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/model"
)

func TestArena_OutwardChainAndMatches(t *testing.T) {
	a := NewArena()
	root := a.NewScope("root", 0)
	child := a.NewScope("child", root)
	grandchild := a.NewScope("grandchild", child)

	require.Equal(t, []model.ScopeID{grandchild, child, root}, a.OutwardChain(grandchild))

	// reflexive
	require.True(t, a.Matches(grandchild, grandchild))
	// transitive
	require.True(t, a.Matches(grandchild, root))
	// a read against root never resolves against a descendant scope.
	require.False(t, a.Matches(root, grandchild))
}

func TestArena_OwnedScopesWalksOwningRefsOnly(t *testing.T) {
	a := NewArena()
	owned := a.NewScope("owned", 0)
	referenced := a.NewScope("referenced", 0)

	ctx := a.NewContext(func(id ContextID) Context {
		return &stubContext{id: id, refs: []Ref{
			ScopeRef(Owning, owned),
			ScopeRef(NonOwning, referenced),
		}}
	})

	owned1 := a.OwnedScopes(ctx)
	require.True(t, owned1[owned])
	require.False(t, owned1[referenced])
}

func TestArena_OwnedScopesWalksNestedOwningContexts(t *testing.T) {
	a := NewArena()
	innerScope := a.NewScope("inner", 0)
	inner := a.NewContext(func(id ContextID) Context {
		return &stubContext{id: id, refs: []Ref{ScopeRef(Owning, innerScope)}}
	})
	outer := a.NewContext(func(id ContextID) Context {
		return &stubContext{id: id, refs: []Ref{ContextRef(Owning, inner.ID())}}
	})

	require.True(t, a.OwnedScopes(outer)[innerScope])
}

func TestArena_TeardownMarksOwnedScopesDead(t *testing.T) {
	a := NewArena()
	sc := a.NewScope("s", 0)
	ctx := a.NewContext(func(id ContextID) Context {
		return &stubContext{id: id, refs: []Ref{ScopeRef(Owning, sc)}}
	})

	require.True(t, a.Alive(sc))
	a.Teardown(ctx)
	require.False(t, a.Alive(sc))
}

func TestArena_InvalidScopeIDIsSafe(t *testing.T) {
	a := NewArena()
	require.False(t, a.Alive(model.ScopeID(999)))
	require.Equal(t, model.ScopeID(0), a.Outer(model.ScopeID(999)))
	require.Equal(t, "<invalid-scope>", a.Name(model.ScopeID(999)))
}

type stubContext struct {
	id   ContextID
	refs []Ref
}

func (c *stubContext) ID() ContextID    { return c.id }
func (c *stubContext) DirectRefs() []Ref { return c.refs }
