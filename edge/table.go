package edge

import "sync"

// ID uniquely identifies an interned endpoint pair within a Table.
// Ids are reused once an edge is released (all three flags false), so a
// stale ID captured before a release must not be dereferenced afterwards.
type ID uint64

// pairKey canonicalizes an unordered label pair for the intern map.
type pairKey struct{ lo, hi string }

func canon(a, b string) pairKey {
	if a <= b {
		return pairKey{lo: a, hi: b}
	}

	return pairKey{lo: b, hi: a}
}

// record is the table's internal per-edge state. a and b preserve the
// order the endpoints were first passed to Create — the "canonical
// direction" that cycle vectors orient their ±1 components by.
type record struct {
	id       ID
	a, b     string
	inForest bool
	normal   bool
	watched  bool
}

func (r *record) exists() bool { return r.inForest || r.normal || r.watched }

// Table interns undirected label pairs into a shared, reusable integer id
// space. It is the unique allocator of the ids that cycles uses as
// vectorset component keys; construct one Table per solver instance and pass it to
// cycles.New so every component agrees on edge identity.
type Table struct {
	mu sync.RWMutex

	byPair    map[pairKey]ID
	records   map[ID]*record
	adjacency map[string]map[ID]struct{}

	free []ID
	next ID
}

// NewTable constructs an empty edge Table.
func NewTable() *Table {
	return &Table{
		byPair:    make(map[pairKey]ID),
		records:   make(map[ID]*record),
		adjacency: make(map[string]map[ID]struct{}),
	}
}

// Create interns the pair (a, b), returning its id. If the pair was
// already interned the existing id is returned with created == false and
// the canonical direction is left untouched; otherwise a fresh id is
// reserved with all flags false and created == true.
//
// Self-loops (a == b) are rejected: a label never pairs with itself,
// and this module treats a == a as a programmer error rather than a
// degenerate one-node cycle.
func (t *Table) Create(a, b string) (ID, bool, error) {
	if a == "" || b == "" {
		return 0, false, ErrEmptyLabel
	}
	if a == b {
		return 0, false, ErrSelfLoop
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := canon(a, b)
	if id, ok := t.byPair[key]; ok {
		return id, false, nil
	}

	var id ID
	if n := len(t.free); n > 0 {
		id = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		id = t.next
		t.next++
	}

	t.byPair[key] = id
	t.records[id] = &record{id: id, a: a, b: b}
	t.addAdjacency(a, id)
	t.addAdjacency(b, id)

	return id, true, nil
}

func (t *Table) addAdjacency(label string, id ID) {
	m, ok := t.adjacency[label]
	if !ok {
		m = make(map[ID]struct{})
		t.adjacency[label] = m
	}
	m[id] = struct{}{}
}

func (t *Table) removeAdjacency(label string, id ID) {
	if m, ok := t.adjacency[label]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(t.adjacency, label)
		}
	}
}

// release drops a fully-flagless edge and returns its id to the free list.
// Caller must hold t.mu.
func (t *Table) release(r *record) {
	delete(t.byPair, canon(r.a, r.b))
	delete(t.records, r.id)
	t.removeAdjacency(r.a, r.id)
	t.removeAdjacency(r.b, r.id)
	t.free = append(t.free, r.id)
}

// ID looks up the id of an already-interned pair without creating one.
func (t *Table) ID(a, b string) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	id, ok := t.byPair[canon(a, b)]

	return id, ok
}

// Endpoints returns the canonical (a, b) direction of id.
func (t *Table) Endpoints(id ID) (a, b string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.records[id]
	if !ok {
		return "", "", false
	}

	return r.a, r.b, true
}

// Opposite returns the endpoint of id that is not label.
func (t *Table) Opposite(label string, id ID) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.records[id]
	if !ok {
		return "", false
	}
	switch label {
	case r.a:
		return r.b, true
	case r.b:
		return r.a, true
	default:
		return "", false
	}
}

// Neighbors lists the edge ids incident to label. When canonicalOnly is
// true, only edges whose canonical first endpoint (a) equals label are
// returned — useful for traversals that must visit each undirected edge
// exactly once without a separate "seen" set.
func (t *Table) Neighbors(label string, canonicalOnly bool) []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	incident := t.adjacency[label]
	out := make([]ID, 0, len(incident))
	for id := range incident {
		if canonicalOnly && t.records[id].a != label {
			continue
		}
		out = append(out, id)
	}

	return out
}

// Exists reports whether id currently has any flag set.
func (t *Table) Exists(id ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.records[id]

	return ok && r.exists()
}

func (t *Table) InForest(id ID) bool { return t.flag(id, func(r *record) bool { return r.inForest }) }
func (t *Table) IsNormal(id ID) bool { return t.flag(id, func(r *record) bool { return r.normal }) }
func (t *Table) IsWatched(id ID) bool {
	return t.flag(id, func(r *record) bool { return r.watched })
}

func (t *Table) flag(id ID, get func(*record) bool) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.records[id]

	return ok && get(r)
}

// SetInForest, SetNormal and SetWatched update one flag of id. Each call
// releases the id automatically once all three flags are false.
func (t *Table) SetInForest(id ID, v bool) { t.setFlag(id, v, func(r *record) *bool { return &r.inForest }) }
func (t *Table) SetNormal(id ID, v bool)   { t.setFlag(id, v, func(r *record) *bool { return &r.normal }) }
func (t *Table) SetWatched(id ID, v bool)  { t.setFlag(id, v, func(r *record) *bool { return &r.watched }) }

func (t *Table) setFlag(id ID, v bool, field func(*record) *bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[id]
	if !ok {
		return
	}
	*field(r) = v
	if !r.exists() {
		t.release(r)
	}
}

// Stats reports the number of currently live and freed ids.
type Stats struct {
	Live int
	Free int
}

// Stats returns an O(1) snapshot of table occupancy.
func (t *Table) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return Stats{Live: len(t.records), Free: len(t.free)}
}
