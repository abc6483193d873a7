package ir

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/chainaudit/chainaudit/internal/astx"
	"github.com/chainaudit/chainaudit/internal/model"
	"github.com/chainaudit/chainaudit/internal/scope"
)

// WordToValue concatenates a parsed Word's literal/expansion parts into a
// single Value tree, using the smart STRING_CONCAT constructor so adjacent
// literal parts fold together. VarName parts become Read(Variable(name))
// against env.
func WordToValue(env model.ScopeID, w astx.Word) model.Value {
	var acc model.Value
	for _, p := range w.Parts {
		var part model.Value
		if p.VarName != "" {
			part = model.Read{Loc: model.Location{
				Scope:     env,
				Specifier: model.Variable{Name: model.StringLiteral{S: p.VarName}},
			}}
		} else {
			part = model.StringLiteral{S: p.Literal}
		}
		if acc == nil {
			acc = part
		} else {
			acc = model.NewBinaryStringOp(model.StringConcat, acc, part)
		}
	}
	if acc == nil {
		return model.StringLiteral{S: ""}
	}
	return acc
}

// argAlt is one candidate resolution of an argument position: the
// chosen Value plus the bindings that produced it.
type argAlt struct {
	val   model.Value
	binds model.ReadBindings
}

// expandArg resolves one argument word against before, applying the
// cross-product-over-whitespace-tokenization rule of spec §4.2: a literal
// alternative that tokenizes as more than one bash word contributes one
// alternative per token, plus the unresolved value wrapped in
// SingleBashTokenConstraint stands in for "treat this as one opaque word".
func expandArg(eval Evaluator, before *model.State, env model.ScopeID, w astx.Word) []argAlt {
	v := WordToValue(env, w)
	var out []argAlt
	for _, r := range eval.Evaluate(before, v) {
		if lit, ok := r.Value.(model.StringLiteral); ok {
			if toks := strings.Fields(lit.S); len(toks) > 1 {
				for _, t := range toks {
					out = append(out, argAlt{val: model.StringLiteral{S: t}, binds: r.Binds})
				}
				out = append(out, argAlt{val: model.SingleBashTokenConstraint{V: v}, binds: r.Binds})
				continue
			}
		}
		out = append(out, argAlt{val: r.Value, binds: r.Binds})
	}
	return out
}

// BashSingleCommandNode is the command-with-arguments interpretation node
// of spec §4.2: it resolves its argument words against the before-state and
// dispatches on the resolved command name to one of the recognized leaf/
// composite shapes, falling back to NoOp.
type BashSingleCommandNode struct {
	base
	identityExit
	noFilter
	interpBase

	Eval Evaluator

	Arena     *scope.Arena
	ScriptCtx *scope.BashScriptContext
	StepCtx   *scope.GitHubActionsStepContext // nil outside a step's direct script

	Call   astx.CallExpr
	Redirs []astx.Redirect

	RepoPath   string
	FuncDecls  map[string]*astx.FuncDecl
	LoadScript func(relPath string) (*astx.File, error)
	// BuildScript lowers a parsed file into a graph node under the given
	// BashScriptContext; the Builder sets it to its buildScriptBody method.
	BuildScript func(file *astx.File, ctx *scope.BashScriptContext) Node

	stdoutOverride *model.Location
	stdinOverride  *model.Location
}

// overrideStdout pins this command's stdout to loc (a pipe connector
// location) instead of the script's console/redirect-derived target,
// wired by the builder when this statement is the lhs of a BashPipeNode.
func (n *BashSingleCommandNode) overrideStdout(loc model.Location) { n.stdoutOverride = &loc }

// overrideStdin pins this command's stdin to loc, wired by the builder when
// this statement is the rhs of a BashPipeNode.
func (n *BashSingleCommandNode) overrideStdin(loc model.Location) { n.stdinOverride = &loc }

func (n *BashSingleCommandNode) stdinLocation() model.Location {
	if n.stdinOverride != nil {
		return *n.stdinOverride
	}
	return model.Location{Scope: n.ScriptCtx.StdinScope, Specifier: n.ScriptCtx.StdinLoc}
}

// SetEvaluator wires the interpreter's Evaluator into this node before the
// fixed-point driver first calls IdentifyInterpretations. Required because
// the Interpretation contract (spec §3) doesn't thread an Evaluator through
// identify_interpretations, yet dispatch must resolve argument values.
func (n *BashSingleCommandNode) SetEvaluator(e Evaluator) { n.Eval = e }

func (n *BashSingleCommandNode) Successors(Node, ExitKind) []Successor { return nil }

func (n *BashSingleCommandNode) redirectTarget() (op astx.RedirOp, target *astx.Word) {
	for _, r := range n.Redirs {
		switch r.Op {
		case astx.RedirWrite, astx.RedirAppend:
			return r.Op, r.Target
		}
	}
	return astx.RedirNone, nil
}

func (n *BashSingleCommandNode) stdoutLocation() model.Location {
	if n.stdoutOverride != nil {
		return *n.stdoutOverride
	}
	op, target := n.redirectTarget()
	if target == nil || op == astx.RedirNone {
		return model.Location{Scope: n.ScriptCtx.StdoutScope, Specifier: n.ScriptCtx.StdoutLoc}
	}
	return model.Location{Scope: n.ScriptCtx.Env, Specifier: model.Filesystem{Path: WordToValue(n.ScriptCtx.Env, *target)}}
}

// isGithubOutputRedirect reports whether the statement's redirect target is
// the literal `$GITHUB_OUTPUT` expansion.
func (n *BashSingleCommandNode) isGithubOutputRedirect() bool {
	_, target := n.redirectTarget()
	if target == nil || len(target.Parts) != 1 {
		return false
	}
	return target.Parts[0].VarName == "GITHUB_OUTPUT"
}

func (n *BashSingleCommandNode) IdentifyInterpretations(before *model.State) map[InterpretationKey]func() Node {
	if n.Eval == nil || len(n.Call.Args) == 0 {
		return nil
	}
	positions := make([][]argAlt, len(n.Call.Args))
	for i, w := range n.Call.Args {
		positions[i] = expandArg(n.Eval, before, n.ScriptCtx.Env, w)
	}
	for _, p := range positions {
		if len(p) == 0 {
			return nil
		}
	}

	fresh := map[InterpretationKey]func() Node{}
	var walk func(i int, chosen []argAlt)
	walk = func(i int, chosen []argAlt) {
		if i == len(positions) {
			n.emitDispatch(chosen, fresh)
			return
		}
		for _, alt := range positions[i] {
			walk(i+1, append(chosen, alt))
		}
	}
	walk(0, nil)
	return fresh
}

func stringOf(v model.Value) (string, bool) {
	switch vv := v.(type) {
	case model.StringLiteral:
		return vv.S, true
	case model.SingleBashTokenConstraint:
		return stringOf(vv.V)
	default:
		return "", false
	}
}

func (n *BashSingleCommandNode) emitDispatch(chosen []argAlt, fresh map[InterpretationKey]func() Node) {
	binds := make([]model.ReadBindings, len(chosen))
	for i, a := range chosen {
		binds[i] = a.binds
	}
	combined, ok := model.CombineBindings(binds...)
	if !ok {
		return
	}
	cmdName, isLit := stringOf(chosen[0].val)
	shapeParts := make([]string, len(chosen))
	for i, a := range chosen {
		shapeParts[i] = a.val.String()
	}
	shape := strings.Join(shapeParts, " ")
	key := MakeKey(shape, combined)

	if !isLit {
		fresh[key] = func() Node { return NewNoOp() }
		return
	}

	args := chosen[1:]
	switch {
	case cmdName == "echo":
		fresh[key] = func() Node { return n.buildEcho(args) }
	case cmdName == "mvn" && len(args) > 0:
		if sub, ok := stringOf(args[0].val); ok {
			switch sub {
			case "package", "install", "deploy", "verify":
				fresh[key] = func() Node { return NewMavenBuild(n.ScriptCtx.Filesystem) }
			}
		}
	case cmdName == "exit":
		fresh[key] = func() Node { return NewExitNode(false) }
	case cmdName == "return":
		fresh[key] = func() Node { return NewExitNode(true) }
	case cmdName == "base64":
		decode := false
		if len(args) > 0 {
			if flag, ok := stringOf(args[0].val); ok && flag == "-d" {
				decode = true
			}
		}
		kind := Base64Encode
		if decode {
			kind = Base64DecodeKind
		}
		stdin := n.stdinLocation()
		stdout := n.stdoutLocation()
		fresh[key] = func() Node { return NewBase64Node(kind, stdin, stdout) }
	case strings.HasSuffix(cmdName, ".sh"):
		fresh[key] = func() Node { return n.buildRawScript(cmdName) }
	default:
		if decl, ok := n.FuncDecls[cmdName]; ok {
			fresh[key] = func() Node { return n.buildFuncCall(decl) }
		}
	}

	if _, ok := fresh[key]; !ok {
		fresh[key] = func() Node { return NewNoOp() }
	}
}

func (n *BashSingleCommandNode) buildEcho(args []argAlt) Node {
	var value model.Value = model.StringLiteral{S: ""}
	for i, a := range args {
		if i == 0 {
			value = a.val
			continue
		}
		value = model.NewBinaryStringOp(model.StringConcat, value, model.NewBinaryStringOp(model.StringConcat, model.StringLiteral{S: " "}, a.val))
	}
	target := n.stdoutLocation()
	echo := NewBashEcho(target, value)

	if n.isGithubOutputRedirect() && n.StepCtx != nil && n.StepCtx.OutputVarPrefix != "" {
		if lit, ok := value.(model.StringLiteral); ok {
			if k, v, found := strings.Cut(lit.S, "="); found {
				jobVars := n.StepCtx.Job().JobVariables
				loc := model.Location{Scope: jobVars, Specifier: model.Variable{Name: model.StringLiteral{S: n.StepCtx.OutputVarPrefix + k}}}
				assign := NewVarAssign(loc, model.StringLiteral{S: v})
				return NewSequence(echo, assign)
			}
		}
	}
	return echo
}

func (n *BashSingleCommandNode) buildRawScript(rel string) Node {
	clean := path.Clean(rel)
	if strings.HasPrefix(clean, "..") || path.IsAbs(clean) {
		return NewNoOp() // path-traversal rejection (spec §4.2)
	}
	if n.LoadScript == nil || n.BuildScript == nil {
		return NewNoOp()
	}
	file, err := n.LoadScript(clean)
	if err != nil {
		return NewNoOp()
	}
	childCtx := scope.NewBashScriptContext(n.Arena, clean, n.ScriptCtx.Env)
	return n.BuildScript(file, childCtx)
}

// buildFuncCall lowers a call to a declared function under its own
// BashFunctionContext: the body runs against a fresh local-env scope
// chained from the caller's env, so `local` declarations (and any plain
// assignment made inside the function) are visible to reads within the
// body but cleared once the call returns, while the function shares the
// caller's filesystem/func-decl table/stdio streams unchanged.
func (n *BashSingleCommandNode) buildFuncCall(decl *astx.FuncDecl) Node {
	if n.BuildScript == nil {
		return NewNoOp()
	}
	funcCtx := scope.NewBashFunctionContext(n.Arena, n.ScriptCtx.Env)
	localCtx := &scope.BashScriptContext{
		Filesystem:     n.ScriptCtx.Filesystem,
		Env:            funcCtx.Local,
		FuncDecls:      n.ScriptCtx.FuncDecls,
		StdinScope:     n.ScriptCtx.StdinScope,
		StdoutScope:    n.ScriptCtx.StdoutScope,
		StdinLoc:       n.ScriptCtx.StdinLoc,
		StdoutLoc:      n.ScriptCtx.StdoutLoc,
		SourceFilepath: n.ScriptCtx.SourceFilepath,
	}
	body := n.BuildScript(&astx.File{Stmts: decl.Body}, localCtx)
	return NewFuncCallNode(n.Arena, funcCtx, body)
}

// matrixKeysSorted returns a matrix's keys in deterministic order, used by
// the IR builder when expanding a job's `strategy.matrix` block.
func matrixKeysSorted(m map[string][]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MatrixValueToModel converts one raw YAML matrix scalar into a Value.
func MatrixValueToModel(v any) model.Value {
	switch vv := v.(type) {
	case string:
		return model.StringLiteral{S: vv}
	case int:
		return model.StringLiteral{S: strconv.Itoa(vv)}
	case bool:
		return model.StringLiteral{S: strconv.FormatBool(vv)}
	case float64:
		return model.StringLiteral{S: strconv.FormatFloat(vv, 'g', -1, 64)}
	default:
		return model.StringLiteral{S: ""}
	}
}
