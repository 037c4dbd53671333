package vectorset

import (
	"math"
	"sync"
)

// VecID identifies a vector within one VectorSet. Ids are reused after
// RemoveVector, same discipline as edge.Table.
type VecID uint64

// Component is an integer component key (an edge id, in every caller of
// this package). Kept untyped here so vectorset has no dependency on edge.
type Component = uint64

// ChangeKind tags a component_changes entry.
type ChangeKind int

const (
	// ComponentAdded marks a component that became referenced by some
	// vector since the last ClearComponentChanges.
	ComponentAdded ChangeKind = iota
	// ComponentRemoved marks a component that became referenced by no
	// vector since the last ClearComponentChanges.
	ComponentRemoved
)

// Listener observes component-level deltas on a VectorSet. combination
// and innerproduct register themselves to stay incrementally consistent.
type Listener interface {
	// VectorCreated fires once, right after NewVector allocates vecID
	// (before any initial values are applied as deltas).
	VectorCreated(vecID VecID)
	// ComponentDelta fires for every net, already-rounded nonzero change
	// to a single component of vecID (new value minus old value).
	ComponentDelta(vecID VecID, key Component, delta float64)
	// VectorRemoved fires after every component of vecID has been
	// reported as a ComponentDelta going to zero, once the vector has been
	// deleted and its id returned to the free list.
	VectorRemoved(vecID VecID)
}

// Snap applies a relative rounding rule: if a reference value exists and
// the new value's magnitude is below zeroRounding times the reference,
// the new value snaps to exactly 0. zeroRounding <= 0 disables snapping
// entirely.
func Snap(reference, value, zeroRounding float64) float64 {
	if zeroRounding <= 0 || value == 0 {
		return value
	}
	ref := reference
	if ref == 0 {
		ref = value
	}
	if math.Abs(value/ref) < zeroRounding {
		return 0
	}

	return value
}

// VectorSet holds sparse vectors keyed by Component plus their inverse
// index, and the component-level change diff.
type VectorSet struct {
	mu sync.RWMutex

	zeroRounding float64

	vectors map[VecID]map[Component]float64
	inverse map[Component]map[VecID]float64

	free []VecID
	next VecID

	componentChanges map[Component]ChangeKind

	listeners []Listener
}

// New constructs an empty VectorSet. zeroRounding configures the snap
// threshold used by SetValue, AddValue, AddToVector and MultiplyVector.
func New(zeroRounding float64) *VectorSet {
	return &VectorSet{
		zeroRounding:     zeroRounding,
		vectors:          make(map[VecID]map[Component]float64),
		inverse:          make(map[Component]map[VecID]float64),
		componentChanges: make(map[Component]ChangeKind),
	}
}

// AddListener registers l to receive future component deltas.
func (vs *VectorSet) AddListener(l Listener) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.listeners = append(vs.listeners, l)
}

// NewVector allocates a fresh vector, optionally seeded with initial
// values, and returns its id.
func (vs *VectorSet) NewVector(initial map[Component]float64) VecID {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	id := vs.allocID()
	vs.vectors[id] = make(map[Component]float64)
	vs.notifyCreated(id)

	for k, v := range initial {
		vs.setComponentLocked(id, k, v)
	}

	return id
}

func (vs *VectorSet) allocID() VecID {
	if n := len(vs.free); n > 0 {
		id := vs.free[n-1]
		vs.free = vs.free[:n-1]

		return id
	}
	id := vs.next
	vs.next++

	return id
}

// SetValue sets component key of vecID to value, applying the zero
// rounding snap relative to the previous value.
func (vs *VectorSet) SetValue(vecID VecID, key Component, value float64) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, ok := vs.vectors[vecID]; !ok {
		return
	}
	vs.setComponentLocked(vecID, key, value)
}

// AddValue adds delta to component key of vecID.
func (vs *VectorSet) AddValue(vecID VecID, key Component, delta float64) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vec, ok := vs.vectors[vecID]
	if !ok {
		return
	}
	vs.setComponentLocked(vecID, key, vec[key]+delta)
}

// AddToVector adds scalar*toAdd into addTo, component by component.
func (vs *VectorSet) AddToVector(addTo, toAdd VecID, scalar float64) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, ok := vs.vectors[addTo]; !ok {
		return
	}
	src, ok := vs.vectors[toAdd]
	if !ok {
		return
	}
	// Snapshot source components first: addTo == toAdd is legal (used to
	// zero a vector via scalar == -1) and must not see its own edits.
	keys := make([]Component, 0, len(src))
	vals := make([]float64, 0, len(src))
	for k, v := range src {
		keys = append(keys, k)
		vals = append(vals, v)
	}
	for i, k := range keys {
		vec := vs.vectors[addTo]
		vs.setComponentLocked(addTo, k, vec[k]+scalar*vals[i])
	}
}

// AddRawToVector adds scalar*values (a snapshot taken from elsewhere,
// possibly another VectorSet) into addTo. Used by combination to fold a
// base vector's contribution into a combination vector living in a
// different VectorSet.
func (vs *VectorSet) AddRawToVector(addTo VecID, values map[Component]float64, scalar float64) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if _, ok := vs.vectors[addTo]; !ok {
		return
	}
	for k, v := range values {
		vec := vs.vectors[addTo]
		vs.setComponentLocked(addTo, k, vec[k]+scalar*v)
	}
}

// MultiplyVector scales every component of vecID by scalar. scalar == 0
// empties the vector's nonzero entries without freeing its id.
func (vs *VectorSet) MultiplyVector(vecID VecID, scalar float64) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vec, ok := vs.vectors[vecID]
	if !ok {
		return
	}
	keys := make([]Component, 0, len(vec))
	for k := range vec {
		keys = append(keys, k)
	}
	for _, k := range keys {
		v := vs.vectors[vecID][k]
		vs.setComponentLocked(vecID, k, v*scalar)
	}
}

// RemoveVector deletes vecID after reporting every remaining component
// as a delta-to-zero, then frees its id for reuse.
func (vs *VectorSet) RemoveVector(vecID VecID) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vec, ok := vs.vectors[vecID]
	if !ok {
		return
	}
	keys := make([]Component, 0, len(vec))
	for k := range vec {
		keys = append(keys, k)
	}
	for _, k := range keys {
		vs.setComponentLocked(vecID, k, 0)
	}
	delete(vs.vectors, vecID)
	vs.free = append(vs.free, vecID)

	for _, l := range vs.listeners {
		l.VectorRemoved(vecID)
	}
}

// setComponentLocked is the single choke point for every component
// mutation: it snaps, updates forward+inverse storage, tracks the
// component_changes diff and notifies listeners. Caller must hold vs.mu.
func (vs *VectorSet) setComponentLocked(vecID VecID, key Component, newValue float64) {
	vec := vs.vectors[vecID]
	oldValue := vec[key]
	snapped := Snap(oldValue, newValue, vs.zeroRounding)
	delta := snapped - oldValue
	if delta == 0 {
		return
	}

	wasReferenced := len(vs.inverse[key]) > 0

	if snapped == 0 {
		delete(vec, key)
		if row := vs.inverse[key]; row != nil {
			delete(row, vecID)
			if len(row) == 0 {
				delete(vs.inverse, key)
			}
		}
	} else {
		vec[key] = snapped
		row, ok := vs.inverse[key]
		if !ok {
			row = make(map[VecID]float64)
			vs.inverse[key] = row
		}
		row[vecID] = snapped
	}

	isReferenced := len(vs.inverse[key]) > 0
	if wasReferenced != isReferenced {
		if isReferenced {
			vs.recordComponentChange(key, ComponentAdded)
		} else {
			vs.recordComponentChange(key, ComponentRemoved)
		}
	}

	for _, l := range vs.listeners {
		l.ComponentDelta(vecID, key, delta)
	}
}

// recordComponentChange applies the diff-collapsing rule at the
// component_changes granularity too: an add immediately undone by a
// remove (or vice versa) within the same epoch cancels out.
func (vs *VectorSet) recordComponentChange(key Component, kind ChangeKind) {
	if prev, ok := vs.componentChanges[key]; ok && prev != kind {
		delete(vs.componentChanges, key)

		return
	}
	vs.componentChanges[key] = kind
}

func (vs *VectorSet) notifyCreated(id VecID) {
	for _, l := range vs.listeners {
		l.VectorCreated(id)
	}
}

// ComponentIndex returns a copy of the (vec_id -> value) map for key.
func (vs *VectorSet) ComponentIndex(key Component) map[VecID]float64 {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	out := make(map[VecID]float64, len(vs.inverse[key]))
	for id, v := range vs.inverse[key] {
		out[id] = v
	}

	return out
}

// Snapshot returns a copy of vecID's sparse contents.
func (vs *VectorSet) Snapshot(vecID VecID) (map[Component]float64, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	vec, ok := vs.vectors[vecID]
	if !ok {
		return nil, false
	}
	out := make(map[Component]float64, len(vec))
	for k, v := range vec {
		out[k] = v
	}

	return out, true
}

// Value returns the value of component key in vecID (0 if absent/unknown).
func (vs *VectorSet) Value(vecID VecID, key Component) float64 {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	return vs.vectors[vecID][key]
}

// Exists reports whether vecID is currently allocated.
func (vs *VectorSet) Exists(vecID VecID) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	_, ok := vs.vectors[vecID]

	return ok
}

// Size returns the number of live vector ids.
func (vs *VectorSet) Size() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	return len(vs.vectors)
}

// NonzeroSize returns the total number of nonzero (vector, component)
// entries across the whole set.
func (vs *VectorSet) NonzeroSize() int {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	n := 0
	for _, vec := range vs.vectors {
		n += len(vec)
	}

	return n
}

// ComponentChanges returns a copy of the diff accumulated since the last
// ClearComponentChanges.
func (vs *VectorSet) ComponentChanges() map[Component]ChangeKind {
	vs.mu.RLock()
	defer vs.mu.RUnlock()

	out := make(map[Component]ChangeKind, len(vs.componentChanges))
	for k, v := range vs.componentChanges {
		out[k] = v
	}

	return out
}

// ClearComponentChanges drains the component_changes diff.
func (vs *VectorSet) ClearComponentChanges() {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	vs.componentChanges = make(map[Component]ChangeKind)
}
