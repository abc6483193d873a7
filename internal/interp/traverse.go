package interp

import (
	"github.com/chainaudit/chainaudit/internal/ir"
	"github.com/chainaudit/chainaudit/internal/model"
)

// Run performs the fixed-point traversal of spec §4.3.3 over g, starting
// from an empty before-state at the root, and returns the before-state
// converged on at every node reached. Interpretation nodes are re-queried
// whenever their before-state grows; newly identified alternatives are
// materialized and attached to g, then seeded with the same before-state
// (they are parallel expansions of one program point, not a sequence).
// Plain composite nodes record themselves in g as their children's parent
// (so subtrees built lazily, such as a function call's body, resolve back
// out through them) and seed only their Entry(); every other child receives
// its before-state exclusively via Graph.Resolve bubbling up from a
// completed leaf, which is what realizes "both branches of a conditional
// are explored" (IfClauseNode.Successors returns both Then and Else for one
// Cond exit) without this driver needing to know node-kind specifics.
func (it *Interpreter) Run(g *ir.Graph) map[ir.NodeID]*model.State {
	run := &traversal{
		it:     it,
		graph:  g,
		before: map[ir.NodeID]*model.State{},
		queued: map[ir.NodeID]bool{},
	}
	run.seed(g.Root, model.NewState())
	run.drain()
	return run.before
}

type traversal struct {
	it     *Interpreter
	graph  *ir.Graph
	before map[ir.NodeID]*model.State
	queue  []ir.Node
	queued map[ir.NodeID]bool
}

func (t *traversal) seed(n ir.Node, contribution *model.State) {
	if n == nil {
		return
	}
	existing := t.before[n.ID()]
	if existing != nil && existing.Subsumes(contribution) {
		return
	}
	merged := model.Join(existing, contribution)
	t.before[n.ID()] = merged
	if !t.queued[n.ID()] {
		t.queued[n.ID()] = true
		t.queue = append(t.queue, n)
	}
}

func (t *traversal) drain() {
	const maxSteps = 200000 // termination backstop; the state lattice is bounded per spec §4.3.3 well under this
	steps := 0
	for len(t.queue) > 0 && steps < maxSteps {
		steps++
		n := t.queue[0]
		t.queue = t.queue[1:]
		t.queued[n.ID()] = false
		t.visit(n)
	}
}

func (t *traversal) visit(n ir.Node) {
	before := t.before[n.ID()]
	if before == nil {
		before = model.NewState()
	}

	if leaf, ok := n.(ir.Leaf); ok {
		afters := leaf.ApplyEffects(before, t.it)
		for exit, after := range afters {
			t.propagate(n, exit, after)
		}
		return
	}

	if interp, ok := n.(ir.Interpretation); ok {
		if bscn, ok := n.(*ir.BashSingleCommandNode); ok {
			bscn.SetEvaluator(t.it)
		}
		fresh := interp.IdentifyInterpretations(before)
		if materializer, ok := n.(ir.Materializer); ok && len(fresh) > 0 {
			added := materializer.Materialize(fresh)
			for _, child := range added {
				t.graph.Attach(n, child)
			}
		}
		for _, child := range n.Children() {
			t.seed(child, before)
		}
		return
	}

	if entry := n.Entry(); entry != nil {
		t.graph.Attach(n, n.Children()...)
		t.seed(entry, before)
	}
}

func (t *traversal) propagate(from ir.Node, exit ir.ExitKind, after *model.State) {
	succs, cleared, ok := t.graph.Resolve(from, exit)
	if !ok {
		return // terminal: this exit never reaches another node
	}
	filtered := after.ClearScopes(cleared)
	for _, s := range succs {
		t.seed(s.To, filtered)
	}
}
