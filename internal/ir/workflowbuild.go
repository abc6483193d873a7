package ir

import (
	"sort"
	"strings"

	"github.com/chainaudit/chainaudit/internal/astx"
	"github.com/chainaudit/chainaudit/internal/model"
	"github.com/chainaudit/chainaudit/internal/scope"
)

// BuildWorkflow lowers a parsed workflow document into a WorkflowNode, its
// jobs topologically ordered by `needs:` (spec §4.2).
func (b *Builder) BuildWorkflow(wf *astx.Workflow) (*WorkflowNode, error) {
	if b.Graph == nil {
		b.Graph = NewGraph(nil) // Root fixed up below, once known
	}
	wfCtx := scope.NewGitHubActionsWorkflowContext(b.Arena)
	var envNodes []Node
	for name, v := range wf.Env {
		loc := model.Location{Scope: wfCtx.Env, Specifier: model.Variable{Name: model.StringLiteral{S: name}}}
		envNodes = append(envNodes, NewVarAssign(loc, model.StringLiteral{S: v}))
	}

	needs := make(map[string][]string, len(wf.Jobs))
	for name, j := range wf.Jobs {
		needs[name] = j.Needs
	}
	order, err := TopoSortJobs(needs)
	if err != nil {
		return nil, err
	}

	jobNodes := make([]Node, 0, len(order))
	for _, name := range order {
		j := wf.Jobs[name]
		var jn Node
		if j.Reusable != nil {
			// The called workflow is out of scope for this invocation
			// (no document to parse it from); model as NoOp so the call
			// site still appears in the job sequence.
			jn = NewNoOp()
		} else if j.Normal != nil {
			jn = b.buildNormalJob(wfCtx, name, j.Normal)
		} else {
			jn = NewNoOp()
		}
		jobNodes = append(jobNodes, jn)
	}
	allParts := append(append([]Node(nil), envNodes...), jobNodes...)
	jobsSeq := NewSequence(allParts...)

	root := NewWorkflowNode(b.Arena, wfCtx, jobsSeq)
	b.Graph.Root = root
	b.Graph.Attach(root, jobsSeq)
	b.Graph.Attach(jobsSeq, allParts...)
	return root, nil
}

func (b *Builder) buildNormalJob(wfCtx *scope.GitHubActionsWorkflowContext, name string, job *astx.NormalJob) Node {
	jobCtx := scope.NewGitHubActionsJobContext(b.Arena, wfCtx)

	var parts []Node

	if job.Strategy != nil {
		for _, key := range matrixKeysSorted(job.Strategy.Matrix) {
			values := make([]model.Value, 0, len(job.Strategy.Matrix[key]))
			for _, raw := range job.Strategy.Matrix[key] {
				values = append(values, MatrixValueToModel(raw))
			}
			target := model.Location{Scope: jobCtx.JobVariables, Specifier: model.Variable{Name: model.StringLiteral{S: key}}}
			parts = append(parts, NewMatrixAlternatives(target, values))
		}
	}

	for envName, v := range job.Env {
		loc := model.Location{Scope: jobCtx.Env, Specifier: model.Variable{Name: model.StringLiteral{S: envName}}}
		parts = append(parts, NewVarAssign(loc, model.StringLiteral{S: v}))
	}

	for _, st := range job.Steps {
		parts = append(parts, b.buildStep(jobCtx, st))
	}

	outputKeys := make([]string, 0, len(job.Outputs))
	for k := range job.Outputs {
		outputKeys = append(outputKeys, k)
	}
	sort.Strings(outputKeys)
	for _, key := range outputKeys {
		target := model.Location{
			Scope:     wfCtx.WorkflowVariables,
			Specifier: model.Variable{Name: model.StringLiteral{S: "needs." + name + ".outputs." + key}},
		}
		parts = append(parts, NewVarAssign(target, jobOutputExprValue(jobCtx.JobVariables, job.Outputs[key])))
	}

	body := NewSequence(parts...)
	if b.Graph != nil {
		b.Graph.Attach(body, parts...)
	}
	node := NewNormalJobNode(b.Arena, jobCtx, name, body)
	if b.Graph != nil {
		b.Graph.Attach(node, body)
	}
	return node
}

func (b *Builder) buildStep(jobCtx *scope.GitHubActionsJobContext, st astx.Step) Node {
	prefix := ""
	if st.ID != "" {
		prefix = "steps." + st.ID + ".outputs."
	}
	stepCtx := scope.NewGitHubActionsStepContext(b.Arena, jobCtx, prefix)

	var parts []Node
	for envName, v := range st.Env {
		loc := model.Location{Scope: stepCtx.Env, Specifier: model.Variable{Name: model.StringLiteral{S: envName}}}
		parts = append(parts, NewVarAssign(loc, model.StringLiteral{S: v}))
	}

	switch {
	case st.IsRun():
		file, err := parseInlineBash(st.Run)
		if err != nil {
			parts = append(parts, NewNoOp())
		} else {
			runCtx := scope.NewBashScriptContext(b.Arena, "<step:"+st.ID+">", stepCtx.Env)
			inner := b.buildScriptBody(file, runCtx)
			scriptNode := NewBashScriptNode(b.Arena, runCtx, inner)
			if b.Graph != nil {
				b.Graph.Attach(scriptNode, inner)
			}
			parts = append(parts, scriptNode)
		}
	case st.IsAction():
		parts = append(parts, b.buildActionStep(jobCtx, stepCtx, st))
	default:
		parts = append(parts, NewNoOp())
	}

	body := NewSequence(parts...)
	if b.Graph != nil {
		b.Graph.Attach(body, parts...)
	}
	node := NewStepNode(b.Arena, stepCtx, st.ID, body)
	if b.Graph != nil {
		b.Graph.Attach(node, body)
	}
	return node
}

// parseInlineBash turns a `run:` step's source into a bash AST. It returns
// an empty file for every source and nothing in the repository reassigns
// it, so a `run:` step lowers to a BashScriptNode with an empty body; an
// error from it lowers the step to NoOp rather than failing the whole build.
var parseInlineBash = func(src string) (*astx.File, error) {
	return &astx.File{}, nil
}

func withString(with map[string]any, key string) (string, bool) {
	v, ok := with[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// matrixExprValue resolves a `with:` input that may reference
// `${{ matrix.KEY }}` into a Read against the job's matrix/variables scope;
// otherwise it's a literal.
func matrixExprValue(jobVars model.ScopeID, raw any) model.Value {
	s, ok := raw.(string)
	if !ok {
		return MatrixValueToModel(raw)
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "${{") && strings.HasSuffix(s, "}}") {
		inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "${{"), "}}"))
		if key, found := strings.CutPrefix(inner, "matrix."); found {
			return model.Read{Loc: model.Location{Scope: jobVars, Specifier: model.Variable{Name: model.StringLiteral{S: strings.TrimSpace(key)}}}}
		}
	}
	return model.StringLiteral{S: s}
}

// jobOutputExprValue resolves a job-level `outputs:` entry, e.g.
// `${{ steps.build.outputs.sha }}`, into a Read against the job's variables
// scope, since both matrix values and step outputs (spec §4.2's
// `steps.<id>.outputs.<key>` projection) are keyed there by their dotted
// expression name; anything not shaped like a `${{ ... }}` reference is a
// literal.
func jobOutputExprValue(jobVars model.ScopeID, raw string) model.Value {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "${{") && strings.HasSuffix(s, "}}") {
		inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "${{"), "}}"))
		if inner != "" {
			return model.Read{Loc: model.Location{Scope: jobVars, Specifier: model.Variable{Name: model.StringLiteral{S: inner}}}}
		}
	}
	return model.StringLiteral{S: s}
}

type actionKind int

const (
	actionUnrecognized actionKind = iota
	actionSetupJava
	actionSetupGraalvm
	actionSetupPython
	actionUploadArtifact
	actionDownloadArtifact
	actionRelease
	actionDockerPublish
	actionNoEffect
)

func classifyAction(uses string) actionKind {
	name, _, _ := strings.Cut(uses, "@")
	switch {
	case name == "actions/setup-java" || name == "oracle-actions/setup-java":
		return actionSetupJava
	case name == "graalvm/setup-graalvm":
		return actionSetupGraalvm
	case name == "actions/setup-python":
		return actionSetupPython
	case name == "actions/upload-artifact":
		return actionUploadArtifact
	case name == "actions/download-artifact":
		return actionDownloadArtifact
	case name == "softprops/action-gh-release" || name == "ncipollo/release-action":
		return actionRelease
	case name == "docker/build-push-action":
		return actionDockerPublish
	case name == "docker/login-action":
		return actionNoEffect
	default:
		return actionUnrecognized
	}
}

func (b *Builder) buildActionStep(jobCtx *scope.GitHubActionsJobContext, stepCtx *scope.GitHubActionsStepContext, st astx.Step) Node {
	jobVars := jobCtx.JobVariables
	switch classifyAction(st.Uses) {
	case actionSetupJava, actionSetupGraalvm, actionSetupPython:
		name := model.StringLiteral{S: actionLanguageName(st.Uses)}
		version, _ := withString(st.With, "java-version")
		if version == "" {
			version, _ = withString(st.With, "python-version")
		}
		if version == "" {
			version, _ = withString(st.With, "version")
		}
		dist, _ := withString(st.With, "distribution")
		url, _ := withString(st.With, "server-url")
		pkg := model.InstalledPackage{
			Name:         name,
			Version:      matrixExprValue(jobVars, version),
			Distribution: model.StringLiteral{S: dist},
			URL:          model.StringLiteral{S: url},
		}
		target := model.Location{Scope: jobCtx.Filesystem, Specifier: model.Installed{Name: name}}
		return NewInstallPackage(target, pkg)

	case actionUploadArtifact, actionDownloadArtifact:
		kind := UploadArtifactKind
		pathsKey := "path"
		if classifyAction(st.Uses) == actionDownloadArtifact {
			kind = DownloadArtifactKind
		}
		artifactName, _ := withString(st.With, "name")
		raw, _ := withString(st.With, pathsKey)
		return b.buildArtifactPaths(jobVars, jobCtx, kind, artifactName, raw)

	case actionRelease:
		raw, _ := withString(st.With, "files")
		if raw == "" {
			raw, _ = withString(st.With, "artifacts")
		}
		return b.buildArtifactPaths(jobVars, jobCtx, ReleaseKind, "release", raw)

	case actionDockerPublish:
		tag, _ := withString(st.With, "tags")
		target := model.Location{Scope: jobCtx.Filesystem, Specifier: model.Artifact{
			Name: model.StringLiteral{S: "docker-image"},
			File: matrixExprValue(jobVars, tag),
		}}
		return NewArtifactAction(UploadArtifactKind, target, model.ArbitraryNewData{ID: "docker-build-push"})

	default:
		return NewNoOp()
	}
}

func actionLanguageName(uses string) string {
	name, _, _ := strings.Cut(uses, "@")
	switch name {
	case "actions/setup-java", "oracle-actions/setup-java":
		return "java"
	case "graalvm/setup-graalvm":
		return "graalvm"
	case "actions/setup-python":
		return "python"
	default:
		return "unknown"
	}
}

func (b *Builder) buildArtifactPaths(jobVars model.ScopeID, jobCtx *scope.GitHubActionsJobContext, kind ArtifactActionKind, artifactName, raw string) Node {
	lines := strings.Split(raw, "\n")
	var items []Node
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		target := model.Location{Scope: jobCtx.Filesystem, Specifier: model.Artifact{
			Name: model.StringLiteral{S: artifactName},
			File: model.StringLiteral{S: line},
		}}
		items = append(items, NewArtifactAction(kind, target, matrixExprValue(jobVars, line)))
	}
	if len(items) == 0 {
		target := model.Location{Scope: jobCtx.Filesystem, Specifier: model.ArtifactAnyFilename{Name: model.StringLiteral{S: artifactName}}}
		items = append(items, NewArtifactAction(kind, target, model.Symbolic{Inner: model.StringLiteral{S: artifactName}}))
	}
	seq := NewSequence(items...)
	if b.Graph != nil {
		b.Graph.Attach(seq, items...)
	}
	return seq
}
