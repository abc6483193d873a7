package model

import "github.com/google/uuid"

// DebugLabel carries diagnostic metadata about why a value ended up at a
// location: a monotone sequence number for ordering joins, a copy flag that
// marks values that arrived via a state-transfer (as opposed to being
// written directly by the node's own transfer function), and the id of the
// IR node that produced it so reports can cite a precise source without
// re-walking the analysis graph.
type DebugLabel struct {
	Seq    uint64
	Copied bool
	Node   uuid.UUID
}

// valueSet is an insertion-ordered set of (Value, DebugLabel) pairs keyed by
// the value's String() form. Spec §5 requires deterministic iteration for
// anything that influences the traversal; value *sets* themselves may be
// unordered because joins are commutative, but we keep insertion order
// anyway so debug output and tests are stable.
type valueSet struct {
	order []Value
	keys  []string
	label map[string]DebugLabel
}

func newValueSet() *valueSet {
	return &valueSet{label: make(map[string]DebugLabel)}
}

func (s *valueSet) add(v Value, l DebugLabel) (grew bool) {
	k := v.String()
	if _, ok := s.label[k]; ok {
		return false
	}
	s.order = append(s.order, v)
	s.keys = append(s.keys, k)
	s.label[k] = l
	return true
}

func (s *valueSet) each(fn func(Value, DebugLabel)) {
	for i, v := range s.order {
		fn(v, s.label[s.keys[i]])
	}
}

func (s *valueSet) len() int { return len(s.order) }

// State is a Map<Location, Map<Value, DebugLabel>>: the abstract storage
// state at the entry or exit of an analysis-graph node. Absence of a key
// means "no known value"; multiple values at the same location represent
// join points or matrix expansions.
//
// State is a value-ish type: callers get a fresh State back from Clone/Join
// rather than mutating a shared one, which keeps the "predecessor
// after-states are copied into successor before-states" invariant of §5
// honest without needing external synchronization.
type State struct {
	locs  map[Location]*valueSet
	order []Location
}

// NewState returns an empty state.
func NewState() *State {
	return &State{locs: make(map[Location]*valueSet)}
}

// Lookup returns the values recorded at loc, or nil if none.
func (s *State) Lookup(loc Location) []Value {
	vs, ok := s.locs[loc]
	if !ok {
		return nil
	}
	out := make([]Value, 0, vs.len())
	vs.each(func(v Value, _ DebugLabel) { out = append(out, v) })
	return out
}

// Entries returns the (Value, DebugLabel) pairs recorded at loc.
func (s *State) Entries(loc Location) map[Value]DebugLabel {
	vs, ok := s.locs[loc]
	if !ok {
		return nil
	}
	out := make(map[Value]DebugLabel, vs.len())
	vs.each(func(v Value, l DebugLabel) { out[v] = l })
	return out
}

// Locations returns every location with at least one recorded value, in the
// order they were first written.
func (s *State) Locations() []Location {
	return append([]Location(nil), s.order...)
}

// Write records that loc may hold value v with debug label l. Writes never
// erase previous values; spec §4.3.3 requires joins to accumulate. Write
// returns true if this grew the state (a new Location or a new Value at an
// existing Location was added), which callers use to detect fixed points.
func (s *State) Write(loc Location, v Value, l DebugLabel) bool {
	vs, ok := s.locs[loc]
	if !ok {
		vs = newValueSet()
		s.locs[loc] = vs
		s.order = append(s.order, loc)
	}
	return vs.add(v, l)
}

// Clone returns a deep-enough copy of s: safe to mutate independently, but
// Value and DebugLabel themselves are treated as immutable and shared.
func (s *State) Clone() *State {
	out := NewState()
	for _, loc := range s.order {
		vs := s.locs[loc]
		vs.each(func(v Value, l DebugLabel) {
			out.Write(loc, v, l)
		})
	}
	return out
}

// Join merges other into a copy of s (set union per location) and returns
// the result; neither input is mutated. Join is the operation predecessor
// after-states are combined with to compute a successor's before-state.
func Join(states ...*State) *State {
	out := NewState()
	for _, s := range states {
		if s == nil {
			continue
		}
		for _, loc := range s.order {
			vs := s.locs[loc]
			vs.each(func(v Value, l DebugLabel) {
				out.Write(loc, v, l)
			})
		}
	}
	return out
}

// ClearScopes returns a copy of s with every entry whose Location.Scope is
// in scopes removed. This implements the exit-state transfer filter (§3):
// a context's owned scopes do not leak into its successor's before-state.
func (s *State) ClearScopes(scopes map[ScopeID]bool) *State {
	if len(scopes) == 0 {
		return s.Clone()
	}
	out := NewState()
	for _, loc := range s.order {
		if scopes[loc.Scope] {
			continue
		}
		vs := s.locs[loc]
		vs.each(func(v Value, l DebugLabel) {
			out.Write(loc, v, l)
		})
	}
	return out
}

// Size returns the total number of (location, value) pairs, used for
// termination diagnostics and logging.
func (s *State) Size() int {
	n := 0
	for _, vs := range s.locs {
		n += vs.len()
	}
	return n
}

// Subsumes reports whether s already contains every entry of other — i.e.
// joining other into s would not grow s. The fixed-point loop (§4.3.3) uses
// this to detect when a node's before-state has stabilized.
func (s *State) Subsumes(other *State) bool {
	if other == nil {
		return true
	}
	for _, loc := range other.order {
		vs, ok := s.locs[loc]
		if !ok {
			return false
		}
		contained := true
		other.locs[loc].each(func(v Value, _ DebugLabel) {
			if _, ok := vs.label[v.String()]; !ok {
				contained = false
			}
		})
		if !contained {
			return false
		}
	}
	return true
}
