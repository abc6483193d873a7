package ir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/chainaudit/chainaudit/internal/astx"
	"github.com/chainaudit/chainaudit/internal/interp"
	"github.com/chainaudit/chainaudit/internal/ir"
	"github.com/chainaudit/chainaudit/internal/model"
)

// Scenario 3 of spec §8: a job with a two-value matrix key expands into two
// VarAssign alternatives, both reachable, both present in the fixed point.
func TestBuildWorkflow_MatrixExpansionReachesBothAlternatives(t *testing.T) {
	wf := &astx.Workflow{
		Jobs: map[string]astx.Job{
			"build": {
				ID: "build",
				Normal: &astx.NormalJob{
					Strategy: &astx.Strategy{Matrix: map[string][]any{"go": {"1.21", "1.22"}}},
				},
			},
		},
	}

	builder := ir.NewBuilder("/repo", nil)
	root, err := builder.BuildWorkflow(wf)
	require.NoError(t, err)

	it := interp.New(builder.Arena)
	after := it.Run(builder.Graph)
	require.NotNil(t, root)

	var gotValues []model.Value
	for _, state := range after {
		for _, loc := range state.Locations() {
			if _, ok := loc.Specifier.(model.Variable); !ok {
				continue
			}
			for _, v := range state.Lookup(loc) {
				if sl, ok := v.(model.StringLiteral); ok && (sl.S == "1.21" || sl.S == "1.22") {
					gotValues = append(gotValues, v)
				}
			}
		}
	}

	want := []model.Value{model.StringLiteral{S: "1.21"}, model.StringLiteral{S: "1.22"}}
	diff := cmp.Diff(want, dedupeValues(gotValues), cmpopts.SortSlices(func(a, b model.Value) bool {
		return a.String() < b.String()
	}))
	require.Empty(t, diff)
}

func dedupeValues(vs []model.Value) []model.Value {
	seen := map[string]bool{}
	var out []model.Value
	for _, v := range vs {
		k := v.String()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}

func TestBuildWorkflow_ReusableJobBuildsNoOpCallSite(t *testing.T) {
	wf := &astx.Workflow{
		Jobs: map[string]astx.Job{
			"call": {
				ID:       "call",
				Reusable: &astx.ReusableWorkflowCallJob{Uses: "org/repo/.github/workflows/shared.yml@main"},
			},
		},
	}
	builder := ir.NewBuilder("/repo", nil)
	_, err := builder.BuildWorkflow(wf)
	require.NoError(t, err)
}

// Spec §4.2's NormalJobNode output block: a job's `outputs:` entry
// referencing a step output must surface as a VarAssign reachable under a
// `needs.<job>.outputs.<name>` key, so a downstream job could read it.
func TestBuildWorkflow_JobOutputsLowerToVarAssign(t *testing.T) {
	wf := &astx.Workflow{
		Jobs: map[string]astx.Job{
			"build": {
				ID: "build",
				Normal: &astx.NormalJob{
					Steps: []astx.Step{
						{ID: "compile", Run: "echo sha=abc123 >> $GITHUB_OUTPUT"},
					},
					Outputs: map[string]string{
						"sha": "${{ steps.compile.outputs.sha }}",
					},
				},
			},
		},
	}

	builder := ir.NewBuilder("/repo", nil)
	_, err := builder.BuildWorkflow(wf)
	require.NoError(t, err)

	it := interp.New(builder.Arena)
	after := it.Run(builder.Graph)

	found := false
	for _, state := range after {
		for _, loc := range state.Locations() {
			v, ok := loc.Specifier.(model.Variable)
			if !ok {
				continue
			}
			if sl, ok := v.Name.(model.StringLiteral); ok && sl.S == "needs.build.outputs.sha" {
				found = true
			}
		}
	}
	require.True(t, found)
}

func TestBuildWorkflow_JobOutputsLiteralValue(t *testing.T) {
	wf := &astx.Workflow{
		Jobs: map[string]astx.Job{
			"build": {
				ID: "build",
				Normal: &astx.NormalJob{
					Outputs: map[string]string{"channel": "stable"},
				},
			},
		},
	}

	builder := ir.NewBuilder("/repo", nil)
	_, err := builder.BuildWorkflow(wf)
	require.NoError(t, err)

	it := interp.New(builder.Arena)
	after := it.Run(builder.Graph)

	found := false
	for _, state := range after {
		for _, loc := range state.Locations() {
			v, ok := loc.Specifier.(model.Variable)
			if !ok {
				continue
			}
			if sl, ok := v.Name.(model.StringLiteral); ok && sl.S == "needs.build.outputs.channel" {
				for _, val := range state.Lookup(loc) {
					if sl2, ok := val.(model.StringLiteral); ok && sl2.S == "stable" {
						found = true
					}
				}
			}
		}
	}
	require.True(t, found)
}

func TestBuildWorkflow_EnvWritesReachRoot(t *testing.T) {
	wf := &astx.Workflow{
		Env: map[string]string{"GOFLAGS": "-mod=readonly"},
		Jobs: map[string]astx.Job{
			"build": {ID: "build", Normal: &astx.NormalJob{}},
		},
	}
	builder := ir.NewBuilder("/repo", nil)
	_, err := builder.BuildWorkflow(wf)
	require.NoError(t, err)

	it := interp.New(builder.Arena)
	after := it.Run(builder.Graph)

	found := false
	for _, state := range after {
		for _, loc := range state.Locations() {
			for _, v := range state.Lookup(loc) {
				if sl, ok := v.(model.StringLiteral); ok && sl.S == "-mod=readonly" {
					found = true
				}
			}
		}
	}
	require.True(t, found)
}
