package mir

import (
	"sort"
	"sync"

	"biscuit/internal/scope"
)

// RTTI is the runtime type information record of one type.
type RTTI struct {
	Type    *Type
	Kind    TypeKind
	Size    int64
	Align   int64
	Name    string
	Elem    *RTTI
	Members []RTTIMember
	// Placeholder entries stand in for pointees until Patch resolves them.
	Placeholder bool
	// Value is the TypeInfo aggregate visible to programs.
	Value Value
}

// RTTIMember describes one struct member.
type RTTIMember struct {
	Name   string
	Offset int64
	Type   *RTTI
}

// RTTITable deduplicates RTTI records by type identity.
type RTTITable struct {
	mu      sync.Mutex
	entries map[scope.ID]*RTTI
	// owners whose Elem is still a placeholder
	pending []*RTTI
}

// NewRTTITable creates an empty table.
func NewRTTITable() *RTTITable {
	return &RTTITable{entries: make(map[scope.ID]*RTTI, 32)}
}

// Get returns the record for t, creating it and the records of its
// components. Pointees become placeholders.
func (r *RTTITable) Get(t *Type) *RTTI {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(t)
}

func (r *RTTITable) get(t *Type) *RTTI {
	if e, ok := r.entries[t.ID]; ok {
		return e
	}
	e := &RTTI{Type: t, Kind: t.Kind, Size: t.Size, Align: t.Align, Name: t.String()}
	e.Value = Value{Kind: VKAgg, Elems: []Value{
		IntValue(int64(t.Kind)),
		IntValue(t.Size),
		IntValue(t.Align),
		{Kind: VKString, Str: e.Name},
	}}
	r.entries[t.ID] = e
	switch t.Kind {
	case KindPtr:
		e.Elem = &RTTI{Type: t.Elem, Kind: KindPlaceholder, Placeholder: true}
		r.pending = append(r.pending, e)
	case KindArray, KindSlice, KindDynArr, KindVargs:
		e.Elem = r.get(t.Elem)
	case KindEnum:
		e.Elem = r.get(t.Base)
	case KindStruct:
		e.Members = make([]RTTIMember, len(t.Members))
		for i, m := range t.Members {
			e.Members[i] = RTTIMember{Name: m.ID.Str, Offset: m.Offset, Type: r.get(m.Type)}
		}
	}
	return e
}

// Patch replaces pointee placeholders with real records. Pointees that
// never completed keep their placeholder.
func (r *RTTITable) Patch() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	patched := 0
	var keep []*RTTI
	for len(r.pending) > 0 {
		owner := r.pending[len(r.pending)-1]
		r.pending = r.pending[:len(r.pending)-1]
		pt := owner.Elem.Type
		if pt.Kind == KindStruct && pt.Incomplete {
			keep = append(keep, owner)
			continue
		}
		owner.Elem = r.get(pt)
		patched++
	}
	r.pending = keep
	return patched
}

// Pending returns how many placeholders are unresolved.
func (r *RTTITable) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Len returns the number of records.
func (r *RTTITable) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Entries returns every record sorted by type identity.
func (r *RTTITable) Entries() []*RTTI {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*RTTI, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type.ID.Str < out[j].Type.ID.Str })
	return out
}
