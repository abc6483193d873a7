package ir

import (
	"github.com/chainaudit/chainaudit/internal/astx"
	"github.com/chainaudit/chainaudit/internal/model"
	"github.com/chainaudit/chainaudit/internal/scope"
)

// Builder lowers parsed workflow/bash ASTs (internal/astx) into an analysis
// Graph (spec §4.1/§4.2), wiring scope.Arena contexts and Graph.Attach
// parent links as it goes. RepoPath and LoadScript let a `*.sh` dispatch
// alternative (internal/ir.BashSingleCommandNode) load a referenced script
// relative to the checked-out repository.
type Builder struct {
	Arena      *scope.Arena
	Graph      *Graph
	RepoPath   string
	LoadScript func(relPath string) (*astx.File, error)
}

// NewBuilder returns a Builder over a fresh arena; Graph is set once the
// root node is known (BuildWorkflow/BuildBashFile assign it).
func NewBuilder(repoPath string, loadScript func(string) (*astx.File, error)) *Builder {
	return &Builder{Arena: scope.NewArena(), LoadScript: loadScript, RepoPath: repoPath}
}

// funcRegistry collects a script's function declarations in a first pass so
// forward dispatch (a call appearing before its textual declaration is
// still resolved, matching bash's runtime — not parse-order — binding)
// works regardless of where in the Sequence the call site sits.
type funcRegistry map[string]*astx.FuncDecl

func collectFuncDecls(stmts []astx.Stmt, reg funcRegistry) {
	for _, st := range stmts {
		if fd, ok := st.Cmd.(*astx.FuncDecl); ok {
			reg[fd.Name] = fd
		}
	}
}

// BuildBashFile lowers a parsed bash file into a BashScriptNode and makes it
// the graph's root. parentEnv is the outer scope of the script's env scope
// (0 for none).
func (b *Builder) BuildBashFile(file *astx.File, sourcePath string, parentEnv model.ScopeID) *BashScriptNode {
	if b.Graph == nil {
		b.Graph = NewGraph(nil) // Root fixed up below, once known; Attach calls during the build need a non-nil Graph to record into
	}
	ctx := scope.NewBashScriptContext(b.Arena, sourcePath, parentEnv)
	body := b.buildScriptBody(file, ctx)
	node := NewBashScriptNode(b.Arena, ctx, body)
	b.Graph.Root = node
	b.Graph.Attach(node, body)
	return node
}

// buildScriptBody is the BuildScript hook wired into BashSingleCommandNode
// for `*.sh` dispatch and function-call bodies: it builds a statement
// sequence under an already-constructed BashScriptContext — a fresh one for
// a `*.sh` script, or, for a function call, a copy of the caller's context
// whose env is the call's function-local scope (see buildFuncCall).
func (b *Builder) buildScriptBody(file *astx.File, ctx *scope.BashScriptContext) Node {
	reg := funcRegistry{}
	collectFuncDecls(file.Stmts, reg)
	return b.buildStmts(file.Stmts, ctx, reg, nil)
}

func (b *Builder) buildStmts(stmts []astx.Stmt, ctx *scope.BashScriptContext, reg funcRegistry, stepCtx *scope.GitHubActionsStepContext) Node {
	items := make([]Node, 0, len(stmts))
	for _, st := range stmts {
		n := b.buildStmt(st, ctx, reg, stepCtx, nil, nil)
		items = append(items, n)
	}
	seq := NewSequence(items...)
	if b.Graph != nil {
		b.Graph.Attach(seq, items...)
	}
	return seq
}

// buildStmt lowers one statement. stdinOverride/stdoutOverride, when set,
// pin a CallExpr's stdin/stdout to a pipe connector location rather than the
// script's default console streams (spec §4.2's BashPipeNode wiring).
func (b *Builder) buildStmt(st astx.Stmt, ctx *scope.BashScriptContext, reg funcRegistry, stepCtx *scope.GitHubActionsStepContext, stdinOverride, stdoutOverride *model.Location) Node {
	switch cmd := st.Cmd.(type) {
	case *astx.CallExpr:
		return b.buildCallExpr(cmd, st.Redirs, ctx, reg, stepCtx, stdinOverride, stdoutOverride)
	case *astx.IfClause:
		cond := b.buildStmts(cmd.Cond, ctx, reg, stepCtx)
		then := b.buildStmts(cmd.Then, ctx, reg, stepCtx)
		var els Node
		if len(cmd.Else) > 0 {
			els = b.buildStmts(cmd.Else, ctx, reg, stepCtx)
		}
		n := NewIfClause(cond, then, els)
		if b.Graph != nil {
			b.Graph.Attach(n, n.Children()...)
		}
		return n
	case *astx.ForClause:
		body := b.buildStmts(cmd.Body, ctx, reg, stepCtx)
		var init, cond, post Node
		if cmd.Loop.Kind == astx.LoopForEach {
			target := model.Location{Scope: ctx.Env, Specifier: model.Variable{Name: model.StringLiteral{S: cmd.Loop.VarName}}}
			values := make([]model.Value, 0, len(cmd.Loop.Items))
			for _, it := range cmd.Loop.Items {
				values = append(values, WordToValue(ctx.Env, it))
			}
			init = NewMatrixAlternatives(target, values)
		} else {
			init, cond, post = NewNoOp(), NewNoOp(), NewNoOp()
		}
		n := NewForClause(init, cond, body, post)
		if b.Graph != nil {
			b.Graph.Attach(n, n.Children()...)
		}
		return n
	case *astx.BinaryCmd:
		return b.buildBinaryCmd(cmd, ctx, reg, stepCtx)
	case *astx.FuncDecl:
		loc := model.Location{Scope: ctx.FuncDecls, Specifier: model.Variable{Name: model.StringLiteral{S: cmd.Name}}}
		return NewVarAssign(loc, model.StringLiteral{S: cmd.Name})
	case *astx.Block:
		return b.buildStmts(cmd.Stmts, ctx, reg, stepCtx)
	case *astx.ArithmCmd:
		return NewNoOp()
	case *astx.ExitStmt:
		return NewExitNode(cmd.IsReturn)
	default:
		return NewNoOp()
	}
}

func (b *Builder) buildBinaryCmd(cmd *astx.BinaryCmd, ctx *scope.BashScriptContext, reg funcRegistry, stepCtx *scope.GitHubActionsStepContext) Node {
	switch cmd.Op {
	case astx.OpPipe, astx.OpPipeAll:
		pipeCtx := scope.NewBashPipeContext(b.Arena)
		loc := pipeCtx.PipeLoc
		lhs := b.buildStmt(cmd.X, ctx, reg, stepCtx, nil, &loc)
		rhs := b.buildStmt(cmd.Y, ctx, reg, stepCtx, &loc, nil)
		n := NewPipeNode(lhs, rhs, ownedFilter{arena: b.Arena, ctx: pipeCtx})
		if b.Graph != nil {
			b.Graph.Attach(n, lhs, rhs)
		}
		return n
	case astx.OpAnd, astx.OpOr:
		kind := AndKind
		if cmd.Op == astx.OpOr {
			kind = OrKind
		}
		lhs := b.buildStmt(cmd.X, ctx, reg, stepCtx, nil, nil)
		rhs := b.buildStmt(cmd.Y, ctx, reg, stepCtx, nil, nil)
		n := NewBinaryShortCircuit(kind, lhs, rhs)
		if b.Graph != nil {
			b.Graph.Attach(n, lhs, rhs)
		}
		return n
	default:
		return NewNoOp()
	}
}

func (b *Builder) buildCallExpr(cmd *astx.CallExpr, redirs []astx.Redirect, ctx *scope.BashScriptContext, reg funcRegistry, stepCtx *scope.GitHubActionsStepContext, stdinOverride, stdoutOverride *model.Location) Node {
	var items []Node
	for _, a := range cmd.Assigns {
		var val model.Value = model.StringLiteral{S: ""}
		if a.Value != nil {
			val = WordToValue(ctx.Env, *a.Value)
		}
		loc := model.Location{Scope: ctx.Env, Specifier: model.Variable{Name: model.StringLiteral{S: a.Name}}}
		items = append(items, NewVarAssign(loc, val))
	}
	if len(cmd.Args) > 0 {
		node := &BashSingleCommandNode{
			base:        newBase(),
			interpBase:  newInterpBase(),
			Arena:       b.Arena,
			ScriptCtx:   ctx,
			StepCtx:     stepCtx,
			Call:        *cmd,
			Redirs:      redirs,
			RepoPath:    b.RepoPath,
			FuncDecls:   reg,
			LoadScript:  b.LoadScript,
			BuildScript: b.buildScriptBody,
		}
		if stdoutOverride != nil {
			node.overrideStdout(*stdoutOverride)
		}
		if stdinOverride != nil {
			node.overrideStdin(*stdinOverride)
		}
		items = append(items, node)
	}
	if len(items) == 1 {
		return items[0]
	}
	seq := NewSequence(items...)
	if b.Graph != nil {
		b.Graph.Attach(seq, items...)
	}
	return seq
}
