package astx

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWorkflow_UnmarshalNormalJob(t *testing.T) {
	doc := `
name: ci
on:
  push: {}
env:
  GOFLAGS: -mod=readonly
jobs:
  build:
    runs-on: ubuntu-latest
    strategy:
      matrix:
        go: ["1.21", "1.22"]
    steps:
      - id: checkout
        uses: actions/checkout@v4
      - id: run-tests
        run: go test ./...
`
	var wf Workflow
	require.NoError(t, yaml.Unmarshal([]byte(doc), &wf))
	require.Equal(t, "ci", wf.Name)
	require.Equal(t, "-mod=readonly", wf.Env["GOFLAGS"])

	job, ok := wf.Jobs["build"]
	require.True(t, ok)
	require.Equal(t, "build", job.ID)
	require.Nil(t, job.Reusable)
	require.NotNil(t, job.Normal)
	require.Len(t, job.Normal.Steps, 2)
	require.True(t, job.Normal.Steps[0].IsAction())
	require.True(t, job.Normal.Steps[1].IsRun())
	require.Equal(t, []any{"1.21", "1.22"}, job.Normal.Strategy.Matrix["go"])
}

func TestWorkflow_UnmarshalReusableJob(t *testing.T) {
	doc := `
jobs:
  call-shared:
    needs: build
    uses: org/repo/.github/workflows/shared.yml@main
    with:
      artifact: widget
`
	var wf Workflow
	require.NoError(t, yaml.Unmarshal([]byte(doc), &wf))

	job := wf.Jobs["call-shared"]
	require.Equal(t, []string{"build"}, job.Needs)
	require.Nil(t, job.Normal)
	require.NotNil(t, job.Reusable)
	require.Equal(t, "org/repo/.github/workflows/shared.yml@main", job.Reusable.Uses)
}

func TestWorkflow_NeedsAcceptsSequenceForm(t *testing.T) {
	doc := `
jobs:
  deploy:
    needs: [build, test]
    runs-on: ubuntu-latest
`
	var wf Workflow
	require.NoError(t, yaml.Unmarshal([]byte(doc), &wf))
	require.Equal(t, []string{"build", "test"}, wf.Jobs["deploy"].Needs)
}

func TestWorkflow_NeedsOmittedIsEmpty(t *testing.T) {
	doc := `
jobs:
  build:
    runs-on: ubuntu-latest
`
	var wf Workflow
	require.NoError(t, yaml.Unmarshal([]byte(doc), &wf))
	require.Empty(t, wf.Jobs["build"].Needs)
}

func TestStep_IsActionIsRunAreMutuallyExclusive(t *testing.T) {
	run := Step{Run: "echo hi"}
	require.False(t, run.IsAction())
	require.True(t, run.IsRun())

	action := Step{Uses: "actions/checkout@v4"}
	require.True(t, action.IsAction())
	require.False(t, action.IsRun())
}
