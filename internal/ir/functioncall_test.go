package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/astx"
	"github.com/chainaudit/chainaudit/internal/interp"
	"github.com/chainaudit/chainaudit/internal/ir"
	"github.com/chainaudit/chainaudit/internal/model"
)

func word(lit string) astx.Word {
	return astx.Word{Parts: []astx.WordPart{{Literal: lit}}}
}

// Spec supplement (original_source/bash.py's `local` handling, DESIGN.md):
// an assignment made inside a function body is scoped to that call, not the
// calling script's top-level env, so it is invisible once the call returns.
func TestBuildBashFile_FunctionAssignmentDoesNotLeakToCaller(t *testing.T) {
	decl := &astx.FuncDecl{
		Name: "setmsg",
		Body: []astx.Stmt{
			{Cmd: &astx.CallExpr{Assigns: []astx.Assign{{Name: "MSG", Value: ptrWord(word("hello"))}}}},
		},
	}
	file := &astx.File{
		Stmts: []astx.Stmt{
			{Cmd: decl},
			{Cmd: &astx.CallExpr{Args: []astx.Word{word("setmsg")}}},
		},
	}

	builder := ir.NewBuilder("/repo", nil)
	root := builder.BuildBashFile(file, "test.sh", 0)

	it := interp.New(builder.Arena)
	after := it.Run(builder.Graph)
	require.NotNil(t, root)

	foundInLocalScope := false
	foundInScriptScope := false
	for _, state := range after {
		for _, loc := range state.Locations() {
			v, ok := loc.Specifier.(model.Variable)
			if !ok {
				continue
			}
			name, ok := v.Name.(model.StringLiteral)
			if !ok || name.S != "MSG" {
				continue
			}
			scopeName := builder.Arena.Name(loc.Scope)
			if scopeName == "bash.function.local" {
				foundInLocalScope = true
			}
			if scopeName == "bash.env" {
				foundInScriptScope = true
			}
		}
	}
	require.True(t, foundInLocalScope, "MSG should be written into the function's local scope")
	require.False(t, foundInScriptScope, "MSG assigned inside the function must not reach the script's top-level env")
}

func ptrWord(w astx.Word) *astx.Word { return &w }
