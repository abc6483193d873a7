package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/ir"
	"github.com/chainaudit/chainaudit/internal/model"
	"github.com/chainaudit/chainaudit/internal/scope"
)

// Scenario 1 of spec §8: evaluate(node, UnaryStringOp(BASENAME,
// StringLiteral("a/b/c.sh"))) => {(StringLiteral("c.sh"), {})}.
func TestEvaluate_Basename(t *testing.T) {
	it := New(scope.NewArena())
	before := model.NewState()

	results := it.Evaluate(before, model.UnaryStringOp{Op: model.UnaryBasename, V: model.StringLiteral{S: "a/b/c.sh"}})

	require.Len(t, results, 1)
	require.Equal(t, model.StringLiteral{S: "c.sh"}, results[0].Value)
	require.Equal(t, model.EmptyBindings, results[0].Binds)
}

// Universal property of spec §8: a StringLiteral evaluates to exactly
// itself with no bindings.
func TestEvaluate_StringLiteralIsExact(t *testing.T) {
	it := New(scope.NewArena())
	before := model.NewState()

	results := it.Evaluate(before, model.StringLiteral{S: "hello"})
	require.Len(t, results, 1)
	require.Equal(t, model.StringLiteral{S: "hello"}, results[0].Value)
	require.Equal(t, model.EmptyBindings, results[0].Binds)
}

// Universal property of spec §8: reading a location containing (loc, v)
// yields (v, {Read(loc) -> v}) among the results.
func TestEvaluate_ReadProducesBinding(t *testing.T) {
	arena := scope.NewArena()
	it := New(arena)
	before := model.NewState()
	sc := arena.NewScope("test", 0)
	loc := model.Location{Scope: sc, Specifier: model.Variable{Name: model.StringLiteral{S: "x"}}}
	before.Write(loc, model.StringLiteral{S: "val"}, model.DebugLabel{})

	results := it.Evaluate(before, model.Read{Loc: loc})
	require.NotEmpty(t, results)
	require.Contains(t, results, ir.EvalResult{Value: model.StringLiteral{S: "val"}, Binds: mustBind(t, model.Read{Loc: loc}, model.StringLiteral{S: "val"})})
}

func mustBind(t *testing.T, r model.Read, v model.Value) model.ReadBindings {
	t.Helper()
	binds, ok := model.EmptyBindings.WithBinding(r, v)
	require.True(t, ok)
	return binds
}
