package innerproduct

import (
	"sync"

	"github.com/areaflow/posconstraint/vectorset"
)

// Side identifies which of the two registered VectorSets a callback or
// query refers to.
type Side int

const (
	// VectorSide refers to the primary VectorSet ("V").
	VectorSide Side = iota
	// DualSide refers to the dual VectorSet ("D").
	DualSide
)

// InnerProducts caches nonzero dot products between vectorSet and
// dualSet as products[dualID][vecID].
type InnerProducts struct {
	mu sync.Mutex

	zeroRounding float64
	vectorSet    *vectorset.VectorSet
	dualSet      *vectorset.VectorSet

	products map[vectorset.VecID]map[vectorset.VecID]float64
}

// New registers an InnerProducts cache on vectorSet and dualSet.
func New(vectorSet, dualSet *vectorset.VectorSet, zeroRounding float64) *InnerProducts {
	ip := &InnerProducts{
		zeroRounding: zeroRounding,
		vectorSet:    vectorSet,
		dualSet:      dualSet,
		products:     make(map[vectorset.VecID]map[vectorset.VecID]float64),
	}
	vectorSet.AddListener(sideListener{ip: ip, side: VectorSide})
	dualSet.AddListener(sideListener{ip: ip, side: DualSide})

	return ip
}

// sideListener adapts the untagged vectorset.Listener callbacks into
// InnerProducts' which_set-aware handlers.
type sideListener struct {
	ip   *InnerProducts
	side Side
}

func (l sideListener) VectorCreated(id vectorset.VecID) { l.ip.initRow(l.side, id) }
func (l sideListener) ComponentDelta(id vectorset.VecID, key vectorset.Component, delta float64) {
	l.ip.addToProducts(l.side, id, key, delta)
}
func (l sideListener) VectorRemoved(id vectorset.VecID) { l.ip.removeVector(l.side, id) }

func (ip *InnerProducts) other(side Side) *vectorset.VectorSet {
	if side == VectorSide {
		return ip.dualSet
	}

	return ip.vectorSet
}

// initRow is a no-op placeholder (init_inner_products): a freshly created
// vector has no nonzero components yet, so there is nothing to record.
func (ip *InnerProducts) initRow(Side, vectorset.VecID) {}

// addToProducts folds one component delta of a vector in `side` into
// every nonzero inner product it participates in,
// add_to_products: iterate the *other* set's inverse index on key.
func (ip *InnerProducts) addToProducts(side Side, changedID vectorset.VecID, key vectorset.Component, delta float64) {
	for otherID, otherVal := range ip.other(side).ComponentIndex(key) {
		var dualID, vecID vectorset.VecID
		if side == VectorSide {
			dualID, vecID = otherID, changedID
		} else {
			dualID, vecID = changedID, otherID
		}
		ip.update(dualID, vecID, otherVal*delta)
	}
}

func (ip *InnerProducts) update(dualID, vecID vectorset.VecID, delta float64) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	row := ip.products[dualID]
	prev := row[vecID]
	newVal := prev + delta
	snapped := vectorset.Snap(prev, newVal, ip.zeroRounding)

	if snapped == 0 {
		if row != nil {
			delete(row, vecID)
			if len(row) == 0 {
				delete(ip.products, dualID)
			}
		}

		return
	}

	if row == nil {
		row = make(map[vectorset.VecID]float64)
		ip.products[dualID] = row
	}
	row[vecID] = snapped
}

// removeVector drops every cached product touching id on side.
func (ip *InnerProducts) removeVector(side Side, id vectorset.VecID) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	if side == DualSide {
		delete(ip.products, id)

		return
	}
	for dualID, row := range ip.products {
		delete(row, id)
		if len(row) == 0 {
			delete(ip.products, dualID)
		}
	}
}

// Value returns the cached inner product of dualSet[dualID] and
// vectorSet[vecID] (0 if not stored, i.e. a true zero dot product).
func (ip *InnerProducts) Value(dualID, vecID vectorset.VecID) float64 {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	return ip.products[dualID][vecID]
}

// Row returns a copy of the nonzero vec_id -> product map for dualID.
func (ip *InnerProducts) Row(dualID vectorset.VecID) map[vectorset.VecID]float64 {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	out := make(map[vectorset.VecID]float64, len(ip.products[dualID]))
	for k, v := range ip.products[dualID] {
		out[k] = v
	}

	return out
}

// ForceZero deletes a single cached entry outright (set_to_zero).
func (ip *InnerProducts) ForceZero(dualID, vecID vectorset.VecID) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	if row, ok := ip.products[dualID]; ok {
		delete(row, vecID)
		if len(row) == 0 {
			delete(ip.products, dualID)
		}
	}
}

// Recompute rebuilds every cached product touching id on side from
// scratch (calc_inner_products): clears id's row/column, then
// re-accumulates by iterating id's own components against the other
// set's inverse index.
func (ip *InnerProducts) Recompute(side Side, id vectorset.VecID) {
	ip.mu.Lock()
	if side == DualSide {
		delete(ip.products, id)
	} else {
		for dualID, row := range ip.products {
			delete(row, id)
			if len(row) == 0 {
				delete(ip.products, dualID)
			}
		}
	}
	ip.mu.Unlock()

	snap, ok := ip.selfSet(side).Snapshot(id)
	if !ok {
		return
	}
	for key, val := range snap {
		for otherID, otherVal := range ip.other(side).ComponentIndex(key) {
			var dualID, vecID vectorset.VecID
			if side == VectorSide {
				dualID, vecID = otherID, id
			} else {
				dualID, vecID = id, otherID
			}
			ip.update(dualID, vecID, otherVal*val)
		}
	}
}

func (ip *InnerProducts) selfSet(side Side) *vectorset.VectorSet {
	if side == VectorSide {
		return ip.vectorSet
	}

	return ip.dualSet
}
