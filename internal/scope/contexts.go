package scope

import "github.com/chainaudit/chainaudit/internal/model"

// AnalysisContext is the root context, one per run. It owns nothing itself
// beyond bookkeeping; GitHubActionsWorkflowContext is its usual only child.
type AnalysisContext struct {
	id ContextID
}

func NewAnalysisContext(a *Arena) *AnalysisContext {
	ctx := a.NewContext(func(id ContextID) Context { return &AnalysisContext{id: id} })
	return ctx.(*AnalysisContext)
}

func (c *AnalysisContext) ID() ContextID   { return c.id }
func (c *AnalysisContext) DirectRefs() []Ref { return nil }

// GitHubActionsWorkflowContext owns the scopes shared by an entire workflow
// run: published artifacts, releases, top-level env, workflow-level
// "variables" (e.g. outputs referenced across jobs), and the console stream.
type GitHubActionsWorkflowContext struct {
	id ContextID

	Artifacts         model.ScopeID
	Releases          model.ScopeID
	Env               model.ScopeID
	WorkflowVariables model.ScopeID
	Console           model.ScopeID
}

func NewGitHubActionsWorkflowContext(a *Arena) *GitHubActionsWorkflowContext {
	ctx := a.NewContext(func(id ContextID) Context {
		return &GitHubActionsWorkflowContext{
			id:                id,
			Artifacts:         a.NewScope("workflow.artifacts", 0),
			Releases:          a.NewScope("workflow.releases", 0),
			Env:               a.NewScope("workflow.env", 0),
			WorkflowVariables: a.NewScope("workflow.variables", 0),
			Console:           a.NewScope("workflow.console", 0),
		}
	})
	return ctx.(*GitHubActionsWorkflowContext)
}

func (c *GitHubActionsWorkflowContext) ID() ContextID { return c.id }

func (c *GitHubActionsWorkflowContext) DirectRefs() []Ref {
	return []Ref{
		ScopeRef(Owning, c.Artifacts),
		ScopeRef(Owning, c.Releases),
		ScopeRef(Owning, c.Env),
		ScopeRef(Owning, c.WorkflowVariables),
		ScopeRef(Owning, c.Console),
	}
}

// GitHubActionsJobContext owns a job's filesystem scope and its env/
// job_variables scopes, which inherit reads from (⊑) the owning workflow's
// env/workflow_variables scopes via the outer-scope link.
type GitHubActionsJobContext struct {
	id       ContextID
	workflow *GitHubActionsWorkflowContext

	Filesystem    model.ScopeID
	Env           model.ScopeID
	JobVariables  model.ScopeID
}

func NewGitHubActionsJobContext(a *Arena, workflow *GitHubActionsWorkflowContext) *GitHubActionsJobContext {
	ctx := a.NewContext(func(id ContextID) Context {
		return &GitHubActionsJobContext{
			id:           id,
			workflow:     workflow,
			Filesystem:   a.NewScope("job.filesystem", 0),
			Env:          a.NewScope("job.env", workflow.Env),
			JobVariables: a.NewScope("job.variables", workflow.WorkflowVariables),
		}
	})
	return ctx.(*GitHubActionsJobContext)
}

func (c *GitHubActionsJobContext) ID() ContextID { return c.id }

// Workflow returns the owning workflow context, used by nodes that need to
// reach workflow-scoped state (artifacts, releases) from within a job.
func (c *GitHubActionsJobContext) Workflow() *GitHubActionsWorkflowContext { return c.workflow }

func (c *GitHubActionsJobContext) DirectRefs() []Ref {
	return []Ref{
		ScopeRef(Owning, c.Filesystem),
		ScopeRef(Owning, c.Env),
		ScopeRef(Owning, c.JobVariables),
		ContextRef(NonOwning, c.workflow.ID()),
	}
}

// GitHubActionsStepContext owns a step's env scope (inheriting from the
// owning job's env) and carries the output_var_prefix used to project
// `echo key=value >> $GITHUB_OUTPUT` into `steps.<id>.outputs.<key>`.
type GitHubActionsStepContext struct {
	id  ContextID
	job *GitHubActionsJobContext

	Env             model.ScopeID
	OutputVarPrefix string
}

func NewGitHubActionsStepContext(a *Arena, job *GitHubActionsJobContext, outputVarPrefix string) *GitHubActionsStepContext {
	ctx := a.NewContext(func(id ContextID) Context {
		return &GitHubActionsStepContext{
			id:              id,
			job:             job,
			Env:             a.NewScope("step.env", job.Env),
			OutputVarPrefix: outputVarPrefix,
		}
	})
	return ctx.(*GitHubActionsStepContext)
}

func (c *GitHubActionsStepContext) ID() ContextID { return c.id }

// Job returns the owning job context, used by nodes that need to reach the
// job's variable scope from within a step (e.g. the GITHUB_JOB_VAR
// projection of `echo key=value >> $GITHUB_OUTPUT`).
func (c *GitHubActionsStepContext) Job() *GitHubActionsJobContext { return c.job }

func (c *GitHubActionsStepContext) DirectRefs() []Ref {
	return []Ref{
		ScopeRef(Owning, c.Env),
		ContextRef(NonOwning, c.job.ID()),
	}
}

// BashScriptContext owns the scopes of one parsed bash script invocation:
// its filesystem, env, function-declaration table, and the location
// specifiers standing in for its stdin/stdout streams. SourceFilepath is
// carried for diagnostics only; `*.sh` invocations are resolved relative to
// the repository checkout, not to this path.
type BashScriptContext struct {
	id ContextID

	Filesystem model.ScopeID
	Env        model.ScopeID
	FuncDecls  model.ScopeID
	StdinScope model.ScopeID
	StdoutScope model.ScopeID

	StdinLoc       model.LocationSpecifier
	StdoutLoc      model.LocationSpecifier
	SourceFilepath string

	parentEnv model.ScopeID // 0 if this script does not inherit a caller's env
}

// NewBashScriptContext creates a script context. parentEnv, if non-zero, is
// the env scope of the caller (used when a RawBashScript is spawned by a
// `*.sh` invocation so the child inherits the parent's environment).
func NewBashScriptContext(a *Arena, sourceFilepath string, parentEnv model.ScopeID) *BashScriptContext {
	ctx := a.NewContext(func(id ContextID) Context {
		stdin := a.NewScope("bash.stdin", 0)
		stdout := a.NewScope("bash.stdout", 0)
		return &BashScriptContext{
			id:             id,
			Filesystem:     a.NewScope("bash.filesystem", 0),
			Env:            a.NewScope("bash.env", parentEnv),
			FuncDecls:      a.NewScope("bash.funcdecls", 0),
			StdinScope:     stdin,
			StdoutScope:    stdout,
			StdinLoc:       model.Console{},
			StdoutLoc:      model.Console{},
			SourceFilepath: sourceFilepath,
			parentEnv:      parentEnv,
		}
	})
	return ctx.(*BashScriptContext)
}

func (c *BashScriptContext) ID() ContextID { return c.id }

func (c *BashScriptContext) DirectRefs() []Ref {
	return []Ref{
		ScopeRef(Owning, c.Filesystem),
		ScopeRef(Owning, c.Env),
		ScopeRef(Owning, c.FuncDecls),
		ScopeRef(Owning, c.StdinScope),
		ScopeRef(Owning, c.StdoutScope),
	}
}

// BashFunctionContext owns one function call's local-variable scope
// (`local NAME=value`, and any plain assignment made inside the function
// body, supplemented from original_source/bash.py's treatment of `local`
// declarations): Local is chained under the caller's env so a read of a
// name the function never assigns falls through to the caller, while the
// scope itself is torn down when the call's FuncCallNode exits, so nothing
// assigned inside the function leaks past the call site.
type BashFunctionContext struct {
	id ContextID

	Local model.ScopeID
}

func NewBashFunctionContext(a *Arena, callerEnv model.ScopeID) *BashFunctionContext {
	ctx := a.NewContext(func(id ContextID) Context {
		return &BashFunctionContext{
			id:    id,
			Local: a.NewScope("bash.function.local", callerEnv),
		}
	})
	return ctx.(*BashFunctionContext)
}

func (c *BashFunctionContext) ID() ContextID { return c.id }

func (c *BashFunctionContext) DirectRefs() []Ref {
	return []Ref{ScopeRef(Owning, c.Local)}
}

// BashPipeContext adds a fresh scope+location connecting the lhs of a pipe
// to the rhs: the lhs's stdout writes become reads against this location
// for the rhs, per the BashPipeNode successor rule in §4.2.
type BashPipeContext struct {
	id ContextID

	PipeScope model.ScopeID
	PipeLoc   model.Location
}

func NewBashPipeContext(a *Arena) *BashPipeContext {
	ctx := a.NewContext(func(id ContextID) Context {
		s := a.NewScope("bash.pipe", 0)
		return &BashPipeContext{
			id:        id,
			PipeScope: s,
			PipeLoc:   model.Location{Scope: s, Specifier: model.Console{}},
		}
	})
	return ctx.(*BashPipeContext)
}

func (c *BashPipeContext) ID() ContextID { return c.id }

func (c *BashPipeContext) DirectRefs() []Ref {
	return []Ref{ScopeRef(Owning, c.PipeScope)}
}
