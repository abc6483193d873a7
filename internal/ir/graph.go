package ir

import "github.com/chainaudit/chainaudit/internal/model"

// Graph is a fully-built analysis graph: a root node plus the parent link
// for every node beneath it, recorded by the builder as it constructs
// composite nodes. The interpreter (internal/interp) uses Graph to bubble a
// leaf's exit up through its ancestors until some ancestor's Successors
// resolves a next node, or the root is reached (meaning that exit is
// terminal for the whole graph).
type Graph struct {
	Root   Node
	parent map[NodeID]Node
}

// NewGraph starts a Graph rooted at root. Builders call Attach for every
// parent/child edge they wire up (typically once per call to a node
// constructor that takes children).
func NewGraph(root Node) *Graph {
	return &Graph{Root: root, parent: map[NodeID]Node{}}
}

// Attach records that child's direct parent is parent. The builder calls
// this for every node returned by a composite node constructor's children.
func (g *Graph) Attach(parent Node, children ...Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		g.parent[c.ID()] = parent
	}
}

// ParentOf returns n's direct parent, or nil if n is the graph root.
func (g *Graph) ParentOf(n Node) Node {
	return g.parent[n.ID()]
}

// DescendToEntry walks Entry() from n until it reaches a node with no
// entry (a Leaf), returning that leaf. Every node on the path is recorded
// as the parent of the next, so interpretation nodes that expand lazily
// (during the fixed-point loop, not at initial build time) must call
// Attach themselves when they materialize a new alternative — see
// internal/interp's handling of Interpretation nodes.
func (g *Graph) DescendToEntry(n Node) Leaf {
	cur := n
	for {
		entry := cur.Entry()
		if entry == nil {
			if leaf, ok := cur.(Leaf); ok {
				return leaf
			}
			// A non-leaf node with no entry and no children is a
			// configuration error: every composite must have an entry.
			return nil
		}
		g.Attach(cur, entry)
		cur = entry
	}
}

// Resolve bubbles (from, exit) up through ancestors, applying each
// ancestor's Translate and asking for Successors, until it finds a
// non-empty successor set or runs off the root (in which case the
// returned bool is false: this exit is terminal for the whole graph).
// It also accumulates the ExitStateTransferFilter of every node on the
// bubble path (from's own filter included), since any of them may own
// scopes that must not leak into the successor's before-state (spec §3).
func (g *Graph) Resolve(from Node, exit ExitKind) ([]Successor, map[model.ScopeID]bool, bool) {
	cleared := map[model.ScopeID]bool{}
	addFilter := func(n Node) {
		for id := range n.ExitStateTransferFilter() {
			cleared[id] = true
		}
	}
	addFilter(from)
	cur := from
	for {
		parent := g.ParentOf(cur)
		if parent == nil {
			return nil, cleared, false
		}
		routed := parent.Translate(exit)
		if succs := parent.Successors(cur, routed); len(succs) > 0 {
			for _, s := range succs {
				g.Attach(parent, s.To)
			}
			return succs, cleared, true
		}
		addFilter(parent)
		cur, exit = parent, routed
	}
}
