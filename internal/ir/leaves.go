package ir

import (
	"github.com/google/uuid"

	"github.com/chainaudit/chainaudit/internal/model"
)

func nodeUUID(n NodeID) uuid.UUID { return uuid.UUID(n) }

// writeEffects is the shared helper behind every write-shaped leaf
// (VarAssign, BashEchoNode, InstallPackageNode, ArtifactActionNode): it
// implements spec §4.3.3's WriteStatement semantics — the after-state
// contains the Cartesian product of the location's and value's evaluations,
// filtered to combinations whose bindings are mutually consistent, added on
// top of (never erasing) the before-state.
func writeEffects(before *model.State, eval Evaluator, loc model.Location, value model.Value, node NodeID) *model.State {
	after := before.Clone()
	locs := eval.EvaluateLocation(before, loc)
	vals := eval.Evaluate(before, value)
	seq := uint64(0)
	for _, lr := range locs {
		for _, vr := range vals {
			if _, ok := model.CombineBindings(lr.Binds, vr.Binds); !ok {
				continue
			}
			seq++
			after.Write(lr.Loc, vr.Value, model.DebugLabel{Seq: seq, Node: nodeUUID(node)})
		}
	}
	return after
}

// NoOp is the fallback interpretation for any bash statement shape the
// builder's dispatch table doesn't recognize (spec §4.2's "If no branch
// matched, return a single NoOp interpretation"), and for ArithmCmd, which
// the core deliberately never evaluates (spec §1 non-goals).
type NoOp struct {
	base
	identityExit
	noFilter
}

func NewNoOp() *NoOp { return &NoOp{base: newBase()} }

func (n *NoOp) Children() []Node { return nil }
func (n *NoOp) Entry() Node      { return nil }
func (n *NoOp) Successors(Node, ExitKind) []Successor { return nil }

func (n *NoOp) ApplyEffects(before *model.State, _ Evaluator) map[ExitKind]*model.State {
	return map[ExitKind]*model.State{DefaultExit: before}
}

// ExitNode is BashExitNode: the leaf behind a bare `exit` (IsReturn=false)
// or `return` (IsReturn=true) builtin. apply_effects always hands the
// unchanged before-state back under the corresponding exit kind — spec §4.2
// literally: "apply_effects returns {BASH_EXIT: before}" for `exit`; this
// type generalizes that one sentence to also cover `return`, which the
// spec's node table requires (BASH_RETURN "exits the current function").
type ExitNode struct {
	base
	identityExit
	noFilter
	IsReturn bool
}

func NewExitNode(isReturn bool) *ExitNode {
	return &ExitNode{base: newBase(), IsReturn: isReturn}
}

func (n *ExitNode) Children() []Node { return nil }
func (n *ExitNode) Entry() Node      { return nil }
func (n *ExitNode) Successors(Node, ExitKind) []Successor { return nil }

func (n *ExitNode) ApplyEffects(before *model.State, _ Evaluator) map[ExitKind]*model.State {
	if n.IsReturn {
		return map[ExitKind]*model.State{BashReturn: before}
	}
	return map[ExitKind]*model.State{BashExit: before}
}

// VarAssign is the leaf behind every write-shaped bash interpretation:
// X=RHS into the enclosing env scope, a function declaration's name into
// func_decls (the body itself is not stored there), a matrix entry into a job's variable scope, and the
// GITHUB_JOB_VAR projection of an echoed `key=value >> $GITHUB_OUTPUT`.
type VarAssign struct {
	base
	identityExit
	noFilter
	Loc   model.Location
	Value model.Value
}

func NewVarAssign(loc model.Location, value model.Value) *VarAssign {
	return &VarAssign{base: newBase(), Loc: loc, Value: value}
}

func (n *VarAssign) Children() []Node { return nil }
func (n *VarAssign) Entry() Node      { return nil }
func (n *VarAssign) Successors(Node, ExitKind) []Successor { return nil }

func (n *VarAssign) ApplyEffects(before *model.State, eval Evaluator) map[ExitKind]*model.State {
	return map[ExitKind]*model.State{DefaultExit: writeEffects(before, eval, n.Loc, n.Value, n.ID())}
}

// BashEchoNode is the interpretation chosen for `echo <arg>` with an
// optional stdout redirect (spec §4.2). Target is the redirect destination
// (Console{} if none was given); Value is the evaluated echoed expression.
type BashEchoNode struct {
	base
	identityExit
	noFilter
	Target model.Location
	Value  model.Value
}

func NewBashEcho(target model.Location, value model.Value) *BashEchoNode {
	return &BashEchoNode{base: newBase(), Target: target, Value: value}
}

func (n *BashEchoNode) Children() []Node { return nil }
func (n *BashEchoNode) Entry() Node      { return nil }
func (n *BashEchoNode) Successors(Node, ExitKind) []Successor { return nil }

func (n *BashEchoNode) ApplyEffects(before *model.State, eval Evaluator) map[ExitKind]*model.State {
	return map[ExitKind]*model.State{DefaultExit: writeEffects(before, eval, n.Target, n.Value, n.ID())}
}

// InstallPackageNode is produced by a language-setup action
// (actions/setup-java, oracle-actions/setup-java, graalvm/setup-graalvm,
// actions/setup-python) and writes an InstalledPackage value into the
// job's Installed(name) location — the toolchain inventory consumed by
// checks (spec §6).
type InstallPackageNode struct {
	base
	identityExit
	noFilter
	Target model.Location
	Value  model.InstalledPackage
}

func NewInstallPackage(target model.Location, value model.InstalledPackage) *InstallPackageNode {
	return &InstallPackageNode{base: newBase(), Target: target, Value: value}
}

func (n *InstallPackageNode) Children() []Node { return nil }
func (n *InstallPackageNode) Entry() Node      { return nil }
func (n *InstallPackageNode) Successors(Node, ExitKind) []Successor { return nil }

func (n *InstallPackageNode) ApplyEffects(before *model.State, eval Evaluator) map[ExitKind]*model.State {
	return map[ExitKind]*model.State{DefaultExit: writeEffects(before, eval, n.Target, n.Value, n.ID())}
}

// ArtifactActionKind distinguishes the publish-shaped action steps.
type ArtifactActionKind int

const (
	UploadArtifactKind ArtifactActionKind = iota
	DownloadArtifactKind
	ReleaseKind
)

// ArtifactActionNode is UploadArtifact/DownloadArtifact/Release (spec
// §4.2). Multi-line path/files inputs are expanded by the builder into a
// SimpleSequence of one ArtifactActionNode per path before this type is
// ever constructed, so each instance here always carries exactly one path
// value.
type ArtifactActionNode struct {
	base
	identityExit
	noFilter
	Kind   ArtifactActionKind
	Target model.Location
	Value  model.Value
}

func NewArtifactAction(kind ArtifactActionKind, target model.Location, value model.Value) *ArtifactActionNode {
	return &ArtifactActionNode{base: newBase(), Kind: kind, Target: target, Value: value}
}

func (n *ArtifactActionNode) Children() []Node { return nil }
func (n *ArtifactActionNode) Entry() Node      { return nil }
func (n *ArtifactActionNode) Successors(Node, ExitKind) []Successor { return nil }

func (n *ArtifactActionNode) ApplyEffects(before *model.State, eval Evaluator) map[ExitKind]*model.State {
	return map[ExitKind]*model.State{DefaultExit: writeEffects(before, eval, n.Target, n.Value, n.ID())}
}

// MavenBuildNode is produced by `mvn (package|install|deploy|verify)` (spec
// §4.2): a marker write into the bash script's filesystem scope recording
// that a Maven build ran, consumed by build-tool checks.
type MavenBuildNode struct {
	base
	identityExit
	noFilter
	Filesystem model.ScopeID
}

func NewMavenBuild(fs model.ScopeID) *MavenBuildNode {
	return &MavenBuildNode{base: newBase(), Filesystem: fs}
}

func (n *MavenBuildNode) Children() []Node { return nil }
func (n *MavenBuildNode) Entry() Node      { return nil }
func (n *MavenBuildNode) Successors(Node, ExitKind) []Successor { return nil }

func (n *MavenBuildNode) ApplyEffects(before *model.State, _ Evaluator) map[ExitKind]*model.State {
	loc := model.Location{Scope: n.Filesystem, Specifier: model.Filesystem{Path: model.StringLiteral{S: "pom.xml"}}}
	after := before.Clone()
	after.Write(loc, model.ArbitraryNewData{ID: "maven-build"}, model.DebugLabel{Node: nodeUUID(n.ID())})
	return map[ExitKind]*model.State{DefaultExit: after}
}

// Base64Kind distinguishes encode from decode for Base64Node.
type Base64Kind int

const (
	Base64Encode Base64Kind = iota
	Base64DecodeKind
)

// Base64Node wires stdin to stdout through a base64 encode/decode,
// produced when a BashSingleCommandNode resolves to `base64` or
// `base64 -d` (spec §4.2).
type Base64Node struct {
	base
	identityExit
	noFilter
	Kind   Base64Kind
	Stdin  model.Location
	Stdout model.Location
}

func NewBase64Node(kind Base64Kind, stdin, stdout model.Location) *Base64Node {
	return &Base64Node{base: newBase(), Kind: kind, Stdin: stdin, Stdout: stdout}
}

func (n *Base64Node) Children() []Node { return nil }
func (n *Base64Node) Entry() Node      { return nil }
func (n *Base64Node) Successors(Node, ExitKind) []Successor { return nil }

func (n *Base64Node) ApplyEffects(before *model.State, eval Evaluator) map[ExitKind]*model.State {
	op := model.UnaryBase64Encode
	if n.Kind == Base64DecodeKind {
		op = model.UnaryBase64Decode
	}
	out := model.UnaryStringOp{Op: op, V: model.Read{Loc: n.Stdin}}
	return map[ExitKind]*model.State{DefaultExit: writeEffects(before, eval, n.Stdout, out, n.ID())}
}
