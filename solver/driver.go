package solver

import (
	"sync"

	"github.com/areaflow/posconstraint/combination"
	"github.com/areaflow/posconstraint/cycles"
	"github.com/areaflow/posconstraint/edge"
	"github.com/areaflow/posconstraint/innerproduct"
	"github.com/areaflow/posconstraint/vectorset"
)

// track remembers how one cycles vector (a cycle or a watched path) maps
// onto the base/combination vector pair Driver mirrors it into.
type track struct {
	baseID     combination.BaseID
	combID     combination.CombID
	originEdge edge.ID
}

// Driver wires edge.Table, cycles.Cycles, combination.CombinationVectors
// and innerproduct.InnerProducts into one engine: every cycle or
// watched-path vector Cycles produces gets mirrored as exactly one base
// vector plus an initial 1:1 combination vector, kept in lockstep by
// replaying Cycles' diff maps after every edge mutation.
type Driver struct {
	mu sync.Mutex

	edges  *edge.Table
	cycles *cycles.Cycles
	combos *combination.CombinationVectors

	// products compares every raw equation (combos.Base()) against the
	// current reduced form of every equation (combos.Combinations()),
	// giving Eliminate a numerically-motivated pivot ranking: prefer the
	// candidate whose reduced form still correlates most strongly with
	// its own original equation.
	products *innerproduct.InnerProducts

	cycleTrack   map[vectorset.VecID]*track
	watchedTrack map[vectorset.VecID]*track
	combBase     map[combination.CombID]combination.BaseID
}

// New constructs a Driver with its own private edge.Table and Cycles.
func New(zeroRounding, normalizationThreshold float64) *Driver {
	edges := edge.NewTable()
	cyc := cycles.New(edges, zeroRounding)
	combos := combination.New(zeroRounding, normalizationThreshold)
	products := innerproduct.New(combos.Base(), combos.Combinations(), zeroRounding)

	return &Driver{
		edges:        edges,
		cycles:       cyc,
		combos:       combos,
		products:     products,
		cycleTrack:   make(map[vectorset.VecID]*track),
		watchedTrack: make(map[vectorset.VecID]*track),
		combBase:     make(map[combination.CombID]combination.BaseID),
	}
}

// Cycles, Combinations and InnerProducts expose the underlying engines
// for callers that need lower-level access (e.g. registering forest
// Hooks, or inspecting normalization_candidates directly).
func (d *Driver) Cycles() *cycles.Cycles                      { return d.cycles }
func (d *Driver) Combinations() *combination.CombinationVectors { return d.combos }
func (d *Driver) InnerProducts() *innerproduct.InnerProducts   { return d.products }

// AddEdge ingests one edge event and absorbs whatever cycle/watched-path
// vectors it produced into the combination-vector basis.
func (d *Driver) AddEdge(a, b string, isNormal, isWatched bool) (edge.ID, error) {
	id, err := d.cycles.AddEdge(a, b, isNormal, isWatched)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.absorb()

	return id, nil
}

// RemoveEdge ingests one edge-removal event.
func (d *Driver) RemoveEdge(a, b string, removeNormal, removeWatched bool) {
	d.cycles.RemoveEdge(a, b, removeNormal, removeWatched)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.absorb()
}

func (d *Driver) absorb() {
	d.absorbDiff(d.cycles.Changes(), d.cycles.CycleVectors(), d.cycleTrack, d.cycles.CycleEdge)
	d.cycles.ClearChanges()

	d.absorbDiff(d.cycles.WatchedChanges(), d.cycles.WatchedVectors(), d.watchedTrack, d.cycles.WatchedEdge)
	d.cycles.ClearWatchedChanges()
}

func (d *Driver) absorbDiff(
	diff cycles.Diff,
	set *vectorset.VectorSet,
	tracked map[vectorset.VecID]*track,
	originEdge func(vectorset.VecID) (edge.ID, bool),
) {
	for vecID, change := range diff {
		switch change.Kind {
		case cycles.Added:
			snap, ok := set.Snapshot(vecID)
			if !ok {
				continue
			}
			oe, _ := originEdge(vecID)
			baseID := d.combos.NewBaseVector(snap)
			combID := d.combos.NewCombVector(baseID, 1)
			t := &track{baseID: baseID, combID: combID, originEdge: oe}
			tracked[vecID] = t
			d.combBase[combID] = baseID

		case cycles.Changed:
			if t, ok := tracked[vecID]; ok {
				d.resyncBase(t.baseID, set, vecID)
			}

		case cycles.Removed:
			if t, ok := tracked[vecID]; ok {
				d.combos.RemoveBaseVector(t.baseID)
				delete(d.combBase, t.combID)
				delete(tracked, vecID)
			}
		}
	}
}

// resyncBase rewrites baseID's components to match set[vecID] exactly,
// since Cycles' diff only names *which* vector changed, not how.
func (d *Driver) resyncBase(baseID combination.BaseID, set *vectorset.VectorSet, vecID vectorset.VecID) {
	snap, ok := set.Snapshot(vecID)
	if !ok {
		return
	}
	cur, _ := d.combos.Base().Snapshot(baseID)

	for k, v := range snap {
		if cur[k] != v {
			d.combos.SetBaseValue(baseID, k, v)
		}
	}
	for k := range cur {
		if _, stillThere := snap[k]; !stillThere {
			d.combos.SetBaseValue(baseID, k, 0)
		}
	}
}

// Eliminate drives one Gaussian elimination pivot on componentEdgeID: it
// picks the combination vector most strongly correlated with its own
// originating equation (via the inner-product cache) among those that
// still carry a nonzero coefficient there, then eliminates the
// component from every other combination vector using it as pivot.
func (d *Driver) Eliminate(componentEdgeID edge.ID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := uint64(componentEdgeID)
	candidates := d.combos.Combinations().ComponentIndex(key)
	if len(candidates) == 0 {
		return false
	}

	var pivot combination.CombID
	bestScore := 0.0
	found := false
	for combID, coeff := range candidates {
		score := absf(coeff)
		if baseID, ok := d.combBase[combID]; ok {
			if ip := absf(d.products.Value(combID, baseID)); ip > 0 {
				score = ip
			}
		}
		if !found || score > bestScore {
			pivot, bestScore, found = combID, score, true
		}
	}

	return d.combos.Eliminate(key, pivot)
}

// Assignment publishes, for every tracked cycle/watched-path vector, the
// current coefficient its combination vector carries at the edge the
// vector was created for — the engine's raw solved-variable surface.
// Turning this into actual geometric positions is an external
// collaborator's job.
func (d *Driver) Assignment() map[edge.ID]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[edge.ID]float64, len(d.cycleTrack)+len(d.watchedTrack))
	collect := func(tracked map[vectorset.VecID]*track) {
		for _, t := range tracked {
			out[t.originEdge] = d.combos.Combinations().Value(t.combID, uint64(t.originEdge))
		}
	}
	collect(d.cycleTrack)
	collect(d.watchedTrack)

	return out
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
