// Package scope implements the owned scope/context tree of spec §3 using
// the arena-and-handle discipline recommended by the Design Notes: a single
// Arena owns every Scope and Context ever created during a run, and every
// edge between them — outer-scope links, context parent links, "direct
// refs" — is a handle (an index into the arena) tagged owning or
// non-owning, rather than a language-level pointer. This sidesteps the
// cyclic-reference problem spec §9 calls out (scopes reference contexts,
// contexts reference scopes, a context's owner can outlive or be outlived
// by its references) without reference counting or a garbage collector:
// tearing down a context just marks its owned handles dead in the arena.
package scope

import "github.com/chainaudit/chainaudit/internal/model"

// ContextID identifies a Context owned by an Arena.
type ContextID int

// RefKind distinguishes a lifetime-controlling edge from a plain
// back-reference, per spec §3's "owningly vs non-owningly".
type RefKind int

const (
	Owning RefKind = iota
	NonOwning
)

// Ref is one edge out of a Context, as returned by DirectRefs. A Ref points
// at either a Scope or another Context, never both.
type Ref struct {
	Kind    RefKind
	Scope   model.ScopeID
	Context ContextID
	IsScope bool
}

func ScopeRef(kind RefKind, id model.ScopeID) Ref {
	return Ref{Kind: kind, Scope: id, IsScope: true}
}

func ContextRef(kind RefKind, id ContextID) Ref {
	return Ref{Kind: kind, Context: id, IsScope: false}
}

// Context is an ownership frame grouping related scopes (spec §3). Concrete
// contexts (AnalysisContext, GitHubActionsWorkflowContext, ...) are defined
// in contexts.go.
type Context interface {
	ID() ContextID
	// DirectRefs lists every scope/context this context owns or merely
	// references, used by the state-transfer filter to determine which
	// locations must be cleared when this context's node exits.
	DirectRefs() []Ref
}

type scopeRecord struct {
	name  string
	outer model.ScopeID // 0 means "no outer"; scope IDs are 1-based
	alive bool
}

type contextRecord struct {
	ctx   Context
	alive bool
}

// Arena owns every Scope and Context created during one analysis run.
type Arena struct {
	scopes   []scopeRecord // index 0 unused so ScopeID zero-value means "none"
	contexts []contextRecord
}

// NewArena returns an empty arena. Scope ID 0 and ContextID 0 are reserved
// as the zero value meaning "no scope"/"no context".
func NewArena() *Arena {
	return &Arena{
		scopes:   make([]scopeRecord, 1),
		contexts: make([]contextRecord, 1),
	}
}

// NewScope allocates a scope with the given debug name and optional outer
// scope (pass 0 for none), returning its handle.
func (a *Arena) NewScope(name string, outer model.ScopeID) model.ScopeID {
	a.scopes = append(a.scopes, scopeRecord{name: name, outer: outer, alive: true})
	return model.ScopeID(len(a.scopes) - 1)
}

// Outer returns the outer scope of id, or 0 if it has none.
func (a *Arena) Outer(id model.ScopeID) model.ScopeID {
	if int(id) <= 0 || int(id) >= len(a.scopes) {
		return 0
	}
	return a.scopes[id].outer
}

// Name returns the debug name of a scope.
func (a *Arena) Name(id model.ScopeID) string {
	if int(id) <= 0 || int(id) >= len(a.scopes) {
		return "<invalid-scope>"
	}
	return a.scopes[id].name
}

// Alive reports whether a scope has not been torn down.
func (a *Arena) Alive(id model.ScopeID) bool {
	if int(id) <= 0 || int(id) >= len(a.scopes) {
		return false
	}
	return a.scopes[id].alive
}

// OutwardChain returns id followed by every transitive outer scope, root
// last. Used by the scope-matching rule of §4.3.1 ("ascend via outer_scope,
// match on equality").
func (a *Arena) OutwardChain(id model.ScopeID) []model.ScopeID {
	var chain []model.ScopeID
	seen := map[model.ScopeID]bool{}
	for id != 0 && !seen[id] {
		chain = append(chain, id)
		seen[id] = true
		id = a.Outer(id)
	}
	return chain
}

// Matches reports whether a read against readScope may resolve against
// storedScope, i.e. storedScope is readScope or one of its transitive
// outers. This is reflexive and transitive by construction (spec §8).
func (a *Arena) Matches(readScope, storedScope model.ScopeID) bool {
	for _, s := range a.OutwardChain(readScope) {
		if s == storedScope {
			return true
		}
	}
	return false
}

// NewContext registers a context with the arena, assigning it the next
// ContextID. Concrete context constructors call this after building their
// own scopes.
func (a *Arena) NewContext(build func(id ContextID) Context) Context {
	id := ContextID(len(a.contexts))
	a.contexts = append(a.contexts, contextRecord{alive: true})
	ctx := build(id)
	a.contexts[id].ctx = ctx
	return ctx
}

// Context looks up a previously registered context by id.
func (a *Arena) Context(id ContextID) Context {
	if int(id) <= 0 || int(id) >= len(a.contexts) {
		return nil
	}
	return a.contexts[id].ctx
}

// OwnedScopes walks ctx's DirectRefs (and, transitively, any owned child
// contexts' refs) and returns every scope it owns. This is exactly the set
// an exit-state transfer filter clears from a departing node's after-state
// so a context's owned scopes never leak past its node boundary.
func (a *Arena) OwnedScopes(ctx Context) map[model.ScopeID]bool {
	out := map[model.ScopeID]bool{}
	var walk func(Context)
	visited := map[ContextID]bool{}
	walk = func(c Context) {
		if c == nil || visited[c.ID()] {
			return
		}
		visited[c.ID()] = true
		for _, ref := range c.DirectRefs() {
			if ref.Kind != Owning {
				continue
			}
			if ref.IsScope {
				out[ref.Scope] = true
			} else {
				walk(a.Context(ref.Context))
			}
		}
	}
	walk(ctx)
	return out
}

// Teardown marks every scope and context owned (transitively) by ctx as
// dead, per the invariant that a state never contains entries for locations
// whose owning context has been torn down. Checking Alive is a diagnostic
// aid for tests; the interpreter itself enforces the invariant via the
// exit-state transfer filter, not by consulting Teardown at evaluation time.
func (a *Arena) Teardown(ctx Context) {
	for id := range a.OwnedScopes(ctx) {
		if int(id) > 0 && int(id) < len(a.scopes) {
			a.scopes[id].alive = false
		}
	}
	if int(ctx.ID()) > 0 && int(ctx.ID()) < len(a.contexts) {
		a.contexts[ctx.ID()].alive = false
	}
}
