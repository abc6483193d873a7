package ir

import "github.com/chainaudit/chainaudit/internal/model"

// interpBase is embedded by every concrete Interpretation node kind
// (BashSingleCommandNode, MatrixAlternativesNode). It tracks the set of
// child nodes materialized so far, keyed by InterpretationKey, giving the
// Node methods (Children/Entry/Successors) a stable view independent of
// when the fixed-point loop last called IdentifyInterpretations — new keys
// only ever get appended (spec §4.3.3: "existing children never disappear").
type interpBase struct {
	order    []InterpretationKey
	children map[InterpretationKey]Node
}

func newInterpBase() interpBase {
	return interpBase{children: map[InterpretationKey]Node{}}
}

// Materialize adds any key in fresh not already known, constructing its
// node via the supplied thunk. It returns the newly added nodes in the
// order added, so the caller (the fixed-point driver in internal/interp)
// can Graph.Attach them under this node before descending into them.
func (b *interpBase) Materialize(fresh map[InterpretationKey]func() Node) []Node {
	var added []Node
	// Deterministic order: callers build `fresh` maps from already-sorted
	// alternative lists, but map iteration itself is unordered, so sort here.
	keys := make([]InterpretationKey, 0, len(fresh))
	for k := range fresh {
		keys = append(keys, k)
	}
	sortKeys(keys)
	for _, k := range keys {
		if _, ok := b.children[k]; ok {
			continue
		}
		node := fresh[k]()
		b.children[k] = node
		b.order = append(b.order, k)
		added = append(added, node)
	}
	return added
}

func (b *interpBase) Children() []Node {
	out := make([]Node, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, b.children[k])
	}
	return out
}

func (b *interpBase) Entry() Node {
	if len(b.order) == 0 {
		return nil
	}
	return b.children[b.order[0]]
}

func sortKeys(keys []InterpretationKey) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
}

// MatrixAlternativesNode is the SimpleAlternatives expansion of one matrix
// key (spec §4.2): every configured value becomes a VarAssign alternative,
// all present from the first call (matrix values are static, never grow
// with before-state), mirroring how BashSingleCommandNode's dynamic
// dispatch fits the same Interpretation shape.
type MatrixAlternativesNode struct {
	base
	identityExit
	noFilter
	interpBase
	Target model.Location
	Values []model.Value
}

func NewMatrixAlternatives(target model.Location, values []model.Value) *MatrixAlternativesNode {
	n := &MatrixAlternativesNode{base: newBase(), interpBase: newInterpBase(), Target: target, Values: values}
	fresh := map[InterpretationKey]func() Node{}
	for i, v := range values {
		v := v
		key := MakeKey(target.String()+"#"+v.String(), model.EmptyBindings)
		_ = i
		fresh[key] = func() Node { return NewVarAssign(target, v) }
	}
	n.Materialize(fresh)
	return n
}

func (n *MatrixAlternativesNode) IdentifyInterpretations(*model.State) map[InterpretationKey]func() Node {
	return nil // fully materialized at construction time; nothing new ever appears
}

func (n *MatrixAlternativesNode) Successors(Node, ExitKind) []Successor { return nil }
