package cycles

import (
	"sort"
	"sync"

	"github.com/areaflow/posconstraint/edge"
	"github.com/areaflow/posconstraint/forest"
	"github.com/areaflow/posconstraint/vectorset"
)

// ChangeKind tags one entry of a Diff.
type ChangeKind int

const (
	// Added marks a vector created since the last Clear.
	Added ChangeKind = iota
	// Changed marks a vector whose components were edited in place since
	// the last Clear (but which already existed before it).
	Changed
	// Removed marks a vector deleted since the last Clear. EdgeID carries
	// the edge that used to be reverse-mapped to it, since the vector
	// itself is gone by the time a caller drains the diff.
	Removed
)

// Change is one Diff entry.
type Change struct {
	Kind   ChangeKind
	EdgeID edge.ID
}

// Diff accumulates per-epoch cycle/watched-path vector events with the
// collapsing rule: added wins over a later changed; a later removed of an
// added entry cancels the record outright (the vector never existed as
// far as an observer that only polls the diff is concerned); removed of
// a vector unseen this epoch is recorded with its originating edge id so
// a caller can still update its own reverse mapping.
type Diff map[vectorset.VecID]Change

func (d Diff) record(id vectorset.VecID, kind ChangeKind, edgeID edge.ID) {
	switch kind {
	case Added:
		d[id] = Change{Kind: Added}
	case Changed:
		if _, ok := d[id]; !ok {
			d[id] = Change{Kind: Changed}
		}
	case Removed:
		if prev, ok := d[id]; ok && prev.Kind == Added {
			delete(d, id)

			return
		}
		d[id] = Change{Kind: Removed, EdgeID: edgeID}
	}
}

// Cycles maintains a cycle basis plus a set of watched-path vectors over
// a single edge.Table and forest.Forest. Every non-forest normal edge
// closes exactly one entry of cycles; every non-forest watched edge is
// represented instead by an entry of watchedCycles describing the forest
// path between its endpoints (excluding the watched edge itself).
type Cycles struct {
	mu sync.Mutex

	edges  *edge.Table
	forest *forest.Forest

	cycles        *vectorset.VectorSet
	watchedCycles *vectorset.VectorSet

	cycleNonForestEdge map[vectorset.VecID]edge.ID
	edgeToCycle        map[edge.ID]vectorset.VecID

	watchedCycleToEdge map[vectorset.VecID]edge.ID
	edgeToWatched      map[edge.ID]vectorset.VecID

	changes        Diff
	watchedChanges Diff
}

// New constructs a Cycles over a caller-supplied edge.Table (so forest,
// cycles and any solver driver agree on edge identity) with the given
// zero-rounding threshold applied to both internal VectorSets.
func New(edges *edge.Table, zeroRounding float64) *Cycles {
	return &Cycles{
		edges:              edges,
		forest:             forest.New(),
		cycles:             vectorset.New(zeroRounding),
		watchedCycles:      vectorset.New(zeroRounding),
		cycleNonForestEdge: make(map[vectorset.VecID]edge.ID),
		edgeToCycle:        make(map[edge.ID]vectorset.VecID),
		watchedCycleToEdge: make(map[vectorset.VecID]edge.ID),
		edgeToWatched:      make(map[edge.ID]vectorset.VecID),
		changes:            make(Diff),
		watchedChanges:     make(Diff),
	}
}

// Forest exposes the underlying forest (callers may register Hooks).
func (c *Cycles) Forest() *forest.Forest { return c.forest }

// CycleVectors exposes the cycle-basis VectorSet for read-only inspection
// (e.g. wiring a combination.CombinationVectors or innerproduct.InnerProducts
// on top of it).
func (c *Cycles) CycleVectors() *vectorset.VectorSet { return c.cycles }

// WatchedVectors exposes the watched-path VectorSet.
func (c *Cycles) WatchedVectors() *vectorset.VectorSet { return c.watchedCycles }

// Changes returns a copy of the cycle-vector diff accumulated since the
// last ClearChanges.
func (c *Cycles) Changes() Diff {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(Diff, len(c.changes))
	for k, v := range c.changes {
		out[k] = v
	}

	return out
}

// ClearChanges drains the cycle-vector diff.
func (c *Cycles) ClearChanges() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.changes = make(Diff)
}

// WatchedChanges returns a copy of the watched-path diff accumulated
// since the last ClearWatchedChanges.
func (c *Cycles) WatchedChanges() Diff {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(Diff, len(c.watchedChanges))
	for k, v := range c.watchedChanges {
		out[k] = v
	}

	return out
}

// ClearWatchedChanges drains the watched-path diff.
func (c *Cycles) ClearWatchedChanges() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.watchedChanges = make(Diff)
}

// canonicalSign returns +1 if traversing id from "from" to "to" matches
// its canonical (a, b) direction in the edge.Table, -1 if reversed.
func (c *Cycles) canonicalSign(id edge.ID, from, to string) float64 {
	a, b, ok := c.edges.Endpoints(id)
	if !ok {
		return 1
	}
	if a == from && b == to {
		return 1
	}

	return -1
}

// pathVector builds the ±1-signed component map for walking path in
// order, keyed by the tree edge id between each consecutive pair.
func (c *Cycles) pathVector(path []string) map[vectorset.Component]float64 {
	values := make(map[vectorset.Component]float64, len(path))
	for i := 0; i+1 < len(path); i++ {
		u, v := path[i], path[i+1]
		id, ok := c.edges.ID(u, v)
		if !ok {
			continue
		}
		values[uint64(id)] += c.canonicalSign(id, u, v)
	}

	return values
}

func sortedVecIDs(idx map[vectorset.VecID]float64) []vectorset.VecID {
	ids := make([]vectorset.VecID, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// AddEdge interns (a, b) and applies whichever of isNormal/isWatched
// flags were requested that the edge does not already carry, in that
// order. It returns the edge's id.
func (c *Cycles) AddEdge(a, b string, isNormal, isWatched bool) (edge.ID, error) {
	id, _, err := c.edges.Create(a, b)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if isNormal && !c.edges.IsNormal(id) {
		c.addNormalEdge(id, a, b)
	}
	if isWatched && !c.edges.IsWatched(id) {
		c.addWatchedEdge(id, a, b)
	}

	return id, nil
}

func (c *Cycles) addNormalEdge(id edge.ID, a, b string) {
	if c.edges.InForest(id) && c.edges.IsWatched(id) {
		// Already anchoring this cut as a watched forest edge: upgrading
		// to normal does not change forest shape, just the flag.
		c.edges.SetNormal(id, true)

		return
	}

	if c.forest.AddEdge(a, b) {
		c.edges.SetInForest(id, true)
		c.edges.SetNormal(id, true)

		return
	}

	c.edges.SetNormal(id, true)

	path, _ := c.forest.Path(b, a)
	values := c.pathVector(path)
	values[uint64(id)] = 1

	var nonNormalOnPath edge.ID
	foundNonNormal := false
	for i := 0; i+1 < len(path); i++ {
		u, v := path[i], path[i+1]
		eid, ok := c.edges.ID(u, v)
		if ok && !c.edges.IsNormal(eid) {
			nonNormalOnPath = eid
			foundNonNormal = true

			break
		}
	}

	if !foundNonNormal {
		cycleID := c.cycles.NewVector(values)
		c.cycleNonForestEdge[cycleID] = id
		c.edgeToCycle[id] = cycleID
		c.changes.record(cycleID, Added, 0)

		return
	}

	oldA, oldB, _ := c.edges.Endpoints(nonNormalOnPath)
	c.forest.ReplaceEdge(oldA, oldB, a, b)
	c.edges.SetInForest(nonNormalOnPath, false)
	c.edges.SetInForest(id, true)

	oldSign := values[uint64(nonNormalOnPath)]
	watchedValues := make(map[vectorset.Component]float64, len(values))
	for k, v := range values {
		watchedValues[k] = v
	}
	delete(watchedValues, uint64(nonNormalOnPath))

	watchedID := c.watchedCycles.NewVector(watchedValues)
	c.watchedCycleToEdge[watchedID] = nonNormalOnPath
	c.edgeToWatched[nonNormalOnPath] = watchedID
	c.watchedChanges.record(watchedID, Added, 0)

	for _, otherID := range sortedVecIDs(c.watchedCycles.ComponentIndex(uint64(nonNormalOnPath))) {
		if otherID == watchedID {
			continue
		}
		coeff := c.watchedCycles.Value(otherID, uint64(nonNormalOnPath))
		scalar := -coeff / oldSign
		c.watchedCycles.AddRawToVector(otherID, values, scalar)
		c.watchedChanges.record(otherID, Changed, 0)
	}
}

func (c *Cycles) addWatchedEdge(id edge.ID, a, b string) {
	if c.edges.IsNormal(id) {
		c.edges.SetWatched(id, true)

		return
	}

	if c.forest.AddEdge(a, b) {
		c.edges.SetInForest(id, true)
		c.edges.SetWatched(id, true)

		return
	}

	c.edges.SetWatched(id, true)

	path, _ := c.forest.Path(a, b)
	values := c.pathVector(path)

	watchedID := c.watchedCycles.NewVector(values)
	c.watchedCycleToEdge[watchedID] = id
	c.edgeToWatched[id] = watchedID
	c.watchedChanges.record(watchedID, Added, 0)
}

// RemoveEdge clears whichever of removeNormal/removeWatched flags are
// requested (watched first, the cheaper of the two), repairing the
// forest and cycle/watched-path basis as needed. It is a no-op if (a, b)
// is not currently interned.
func (c *Cycles) RemoveEdge(a, b string, removeNormal, removeWatched bool) {
	id, ok := c.edges.ID(a, b)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if removeWatched {
		c.dropWatched(id, a, b)
	}
	if removeNormal {
		c.dropNormal(id, a, b)
	}
}

func (c *Cycles) dropWatched(id edge.ID, a, b string) {
	if !c.edges.IsWatched(id) {
		return
	}
	c.edges.SetWatched(id, false)

	if c.edges.IsNormal(id) {
		return
	}

	if !c.edges.InForest(id) {
		if wid, ok := c.edgeToWatched[id]; ok {
			c.discardWatchedVector(wid, id)
		}

		return
	}

	c.vacateForestEdge(id, a, b)
}

func (c *Cycles) dropNormal(id edge.ID, a, b string) {
	if !c.edges.IsNormal(id) {
		return
	}

	if !c.edges.InForest(id) {
		if cid, ok := c.edgeToCycle[id]; ok {
			if c.edges.IsWatched(id) {
				c.convertCycleToWatchedPath(cid, id)
			} else {
				c.discardCycle(cid, id)
			}
		}
		c.edges.SetNormal(id, false)

		return
	}

	c.edges.SetNormal(id, false)
	if c.edges.IsWatched(id) {
		return
	}

	c.vacateForestEdge(id, a, b)
}

func (c *Cycles) discardWatchedVector(wid vectorset.VecID, id edge.ID) {
	delete(c.watchedCycleToEdge, wid)
	delete(c.edgeToWatched, id)
	c.watchedCycles.RemoveVector(wid)
	c.watchedChanges.record(wid, Removed, id)
}

func (c *Cycles) discardCycle(cid vectorset.VecID, id edge.ID) {
	delete(c.cycleNonForestEdge, cid)
	delete(c.edgeToCycle, id)
	c.cycles.RemoveVector(cid)
	c.changes.record(cid, Removed, id)
}

func (c *Cycles) convertCycleToWatchedPath(cid vectorset.VecID, id edge.ID) {
	snap, _ := c.cycles.Snapshot(cid)
	delete(snap, uint64(id))

	wid := c.watchedCycles.NewVector(snap)
	c.watchedCycleToEdge[wid] = id
	c.edgeToWatched[id] = wid
	c.watchedChanges.record(wid, Added, 0)

	delete(c.cycleNonForestEdge, cid)
	delete(c.edgeToCycle, id)
	c.cycles.RemoveVector(cid)
	c.changes.record(cid, Removed, id)
}

// vacateForestEdge handles an edge that, having just lost both its normal
// and watched flags, can no longer justify its place in the forest: a
// cycle is preferred to replace it, then a watched-path's associated
// edge, and only as a last resort is the tree actually split.
func (c *Cycles) vacateForestEdge(id edge.ID, a, b string) {
	cyclesThrough := sortedVecIDs(c.cycles.ComponentIndex(uint64(id)))
	if len(cyclesThrough) > 0 {
		c.replaceForestEdgeUsingCycle(cyclesThrough[0], id, a, b)

		return
	}

	watchedThrough := sortedVecIDs(c.watchedCycles.ComponentIndex(uint64(id)))
	if len(watchedThrough) > 0 {
		c.replaceForestEdgeUsingWatchedPath(watchedThrough[0], id, a, b)

		return
	}

	c.forest.RemoveEdge(a, b)
	c.edges.SetInForest(id, false)
}

func (c *Cycles) replaceForestEdgeUsingCycle(pick vectorset.VecID, id edge.ID, a, b string) {
	newForestEdge := c.cycleNonForestEdge[pick]
	newA, newB, _ := c.edges.Endpoints(newForestEdge)

	c.forest.ReplaceEdge(a, b, newA, newB)
	c.edges.SetInForest(newForestEdge, true)

	snap, _ := c.cycles.Snapshot(pick)
	pivotVal := snap[uint64(id)]

	for _, otherID := range sortedVecIDs(c.cycles.ComponentIndex(uint64(id))) {
		if otherID == pick {
			continue
		}
		coeff := c.cycles.Value(otherID, uint64(id))
		scalar := -coeff / pivotVal
		c.cycles.AddRawToVector(otherID, snap, scalar)
		c.changes.record(otherID, Changed, 0)
	}
	for _, otherID := range sortedVecIDs(c.watchedCycles.ComponentIndex(uint64(id))) {
		coeff := c.watchedCycles.Value(otherID, uint64(id))
		scalar := -coeff / pivotVal
		c.watchedCycles.AddRawToVector(otherID, snap, scalar)
		c.watchedChanges.record(otherID, Changed, 0)
	}

	delete(c.cycleNonForestEdge, pick)
	delete(c.edgeToCycle, newForestEdge)

	if c.edges.IsWatched(id) {
		watchedSnap := make(map[vectorset.Component]float64, len(snap))
		for k, v := range snap {
			watchedSnap[k] = v
		}
		delete(watchedSnap, uint64(id))

		wid := c.watchedCycles.NewVector(watchedSnap)
		c.watchedCycleToEdge[wid] = id
		c.edgeToWatched[id] = wid
		c.watchedChanges.record(wid, Added, 0)
	}

	c.cycles.RemoveVector(pick)
	c.changes.record(pick, Removed, newForestEdge)
	c.edges.SetInForest(id, false)
}

func (c *Cycles) replaceForestEdgeUsingWatchedPath(pick vectorset.VecID, id edge.ID, a, b string) {
	promotedEdge := c.watchedCycleToEdge[pick]
	promotedA, promotedB, _ := c.edges.Endpoints(promotedEdge)

	c.forest.ReplaceEdge(a, b, promotedA, promotedB)
	c.edges.SetInForest(promotedEdge, true)

	snap, _ := c.watchedCycles.Snapshot(pick)
	combined := make(map[vectorset.Component]float64, len(snap)+1)
	for k, v := range snap {
		combined[k] = v
	}
	combined[uint64(promotedEdge)] = c.canonicalSign(promotedEdge, promotedB, promotedA)
	pivotVal := combined[uint64(id)]

	for _, otherID := range sortedVecIDs(c.watchedCycles.ComponentIndex(uint64(id))) {
		if otherID == pick {
			continue
		}
		coeff := c.watchedCycles.Value(otherID, uint64(id))
		scalar := -coeff / pivotVal
		c.watchedCycles.AddRawToVector(otherID, combined, scalar)
		c.watchedChanges.record(otherID, Changed, 0)
	}

	delete(c.watchedCycleToEdge, pick)
	delete(c.edgeToWatched, promotedEdge)
	c.watchedCycles.RemoveVector(pick)
	c.watchedChanges.record(pick, Removed, promotedEdge)

	c.edges.SetInForest(id, false)
}

// AddExternalCycle writes the forest path between a and b (excluding
// neither endpoint edge, since there is none: this is a plain path, not
// a cycle closure) into a caller-owned VectorSet instead of tracking it
// internally. It supports collaborators that need a one-off path vector
// without participating in this Cycles' own basis bookkeeping.
func (c *Cycles) AddExternalCycle(a, b string, target *vectorset.VectorSet) (vectorset.VecID, bool) {
	c.mu.Lock()
	path, ok := c.forest.Path(a, b)
	if !ok {
		c.mu.Unlock()

		return 0, false
	}
	values := c.pathVector(path)
	c.mu.Unlock()

	return target.NewVector(values), true
}

// IsNormal, IsWatched and InForest expose an edge's current flags.
func (c *Cycles) IsNormal(id edge.ID) bool  { return c.edges.IsNormal(id) }
func (c *Cycles) IsWatched(id edge.ID) bool { return c.edges.IsWatched(id) }
func (c *Cycles) InForest(id edge.ID) bool  { return c.edges.InForest(id) }

// EdgeExists reports whether id currently carries any flag.
func (c *Cycles) EdgeExists(id edge.ID) bool { return c.edges.Exists(id) }

// EdgeInCycle reports whether id is the designated non-forest component
// of some cycle vector, and that vector's id.
func (c *Cycles) EdgeInCycle(id edge.ID) (vectorset.VecID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cid, ok := c.edgeToCycle[id]

	return cid, ok
}

// GetEdgePoints returns the canonical (a, b) endpoints of id.
func (c *Cycles) GetEdgePoints(id edge.ID) (a, b string, ok bool) {
	return c.edges.Endpoints(id)
}

// EdgeOtherEnd returns the endpoint of id that is not label.
func (c *Cycles) EdgeOtherEnd(label string, id edge.ID) (string, bool) {
	return c.edges.Opposite(label, id)
}

// CycleEdge returns the non-forest edge a cycle vector was created for.
func (c *Cycles) CycleEdge(cid vectorset.VecID) (edge.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.cycleNonForestEdge[cid]

	return id, ok
}

// WatchedEdge returns the watched edge a watched-path vector was created for.
func (c *Cycles) WatchedEdge(wid vectorset.VecID) (edge.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.watchedCycleToEdge[wid]

	return id, ok
}

// GetEdgeTreeID returns the root label of label's forest tree, a stable
// handle comparable across calls for "are these two nodes in the same
// tree" checks.
func (c *Cycles) GetEdgeTreeID(label string) (string, bool) {
	return c.forest.Root(label)
}
