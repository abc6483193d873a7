package model

import (
	"sort"
	"strings"
)

// ReadBindings is an immutable map Read → Value recording, for one
// candidate evaluation, which concrete value was chosen for each Read
// encountered along the way (spec §4.3.2). It is implemented as a
// persistent structure: every mutator returns a new ReadBindings, the
// receiver is never modified, so the same ReadBindings can be shared safely
// across the many alternatives the interpreter explores concurrently.
type ReadBindings struct {
	entries map[string]boundRead
}

type boundRead struct {
	read  Read
	value Value
}

// EmptyBindings is the empty ReadBindings, the starting point of any
// evaluation.
var EmptyBindings = ReadBindings{}

// WithBinding returns a ReadBindings extending bs with read↦value. If read
// is already bound to a different value, it returns (ReadBindings{}, false)
// — a conflict — per spec §3 ("combined bindings must be consistent").
// Re-binding read to the same value it already holds is a no-op and
// succeeds, which is what makes WithBinding idempotent (spec §8).
func (bs ReadBindings) WithBinding(read Read, value Value) (ReadBindings, bool) {
	key := read.Loc.String()
	if existing, ok := bs.entries[key]; ok {
		if existing.value.String() == value.String() {
			return bs, true
		}
		return ReadBindings{}, false
	}
	out := make(map[string]boundRead, len(bs.entries)+1)
	for k, v := range bs.entries {
		out[k] = v
	}
	out[key] = boundRead{read: read, value: value}
	return ReadBindings{entries: out}, true
}

// Lookup returns the value bound to read, if any.
func (bs ReadBindings) Lookup(read Read) (Value, bool) {
	e, ok := bs.entries[read.Loc.String()]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Len reports how many reads are bound.
func (bs ReadBindings) Len() int { return len(bs.entries) }

// CombineBindings folds WithBinding over every entry of each input in turn,
// returning (combined, true) if every merge was consistent, or
// (ReadBindings{}, false) on the first conflict.
func CombineBindings(all ...ReadBindings) (ReadBindings, bool) {
	out := EmptyBindings
	for _, bs := range all {
		keys := make([]string, 0, len(bs.entries))
		for k := range bs.entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e := bs.entries[k]
			var ok bool
			out, ok = out.WithBinding(e.read, e.value)
			if !ok {
				return ReadBindings{}, false
			}
		}
	}
	return out, true
}

// Digest returns a deterministic string encoding of the bindings, suitable
// as (part of) an InterpretationKey or a work-list dedup key. Entries are
// sorted by location string so that two ReadBindings with the same content
// always digest identically regardless of construction order.
func (bs ReadBindings) Digest() string {
	if len(bs.entries) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(bs.entries))
	for k := range bs.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteString("=>")
		b.WriteString(bs.entries[k].value.String())
	}
	b.WriteByte('}')
	return b.String()
}
