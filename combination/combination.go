package combination

import (
	"math"
	"sync"

	"github.com/areaflow/posconstraint/vectorset"
)

// BaseID identifies a vector in the base VectorSet.
type BaseID = vectorset.VecID

// CombID identifies a vector in the combination VectorSet.
type CombID = vectorset.VecID

// Component is an integer component key (an edge id, for every caller in
// this module).
type Component = vectorset.Component

// CombinationVectors holds a base VectorSet and a combination VectorSet,
// plus the sparse forward/inverse coefficient maps relating them:
// combinations[b][c] == inverse[c][b] == k whenever combination vector c
// includes k * base vector b.
type CombinationVectors struct {
	mu sync.Mutex

	zeroRounding           float64
	normalizationThreshold float64

	base *vectorset.VectorSet
	comb *vectorset.VectorSet

	combinations map[BaseID]map[CombID]float64
	inverse      map[CombID]map[BaseID]float64

	normalizationCandidates map[CombID]struct{}
}

// New constructs an empty CombinationVectors with its own base and
// combination VectorSets, both using zeroRounding for component snapping.
func New(zeroRounding, normalizationThreshold float64) *CombinationVectors {
	cv := &CombinationVectors{
		zeroRounding:            zeroRounding,
		normalizationThreshold:  normalizationThreshold,
		base:                    vectorset.New(zeroRounding),
		comb:                    vectorset.New(zeroRounding),
		combinations:            make(map[BaseID]map[CombID]float64),
		inverse:                 make(map[CombID]map[BaseID]float64),
		normalizationCandidates: make(map[CombID]struct{}),
	}
	cv.base.AddListener(cv)

	return cv
}

// Base exposes the underlying base VectorSet for read-only inspection.
func (cv *CombinationVectors) Base() *vectorset.VectorSet { return cv.base }

// Combinations exposes the underlying combination VectorSet for
// read-only inspection (e.g. to assert combination_set[c] values in tests).
func (cv *CombinationVectors) Combinations() *vectorset.VectorSet { return cv.comb }

// --- base mutations ---

// NewBaseVector allocates a new base vector.
func (cv *CombinationVectors) NewBaseVector(initial map[Component]float64) BaseID {
	return cv.base.NewVector(initial)
}

// SetBaseValue sets a single component of a base vector.
func (cv *CombinationVectors) SetBaseValue(id BaseID, key Component, value float64) {
	cv.base.SetValue(id, key, value)
}

// AddBaseValue adds delta to a single component of a base vector.
func (cv *CombinationVectors) AddBaseValue(id BaseID, key Component, delta float64) {
	cv.base.AddValue(id, key, delta)
}

// AddToBaseVector adds scalar*toAdd into addTo, both base vectors.
func (cv *CombinationVectors) AddToBaseVector(addTo, toAdd BaseID, scalar float64) {
	cv.base.AddToVector(addTo, toAdd, scalar)
}

// RemoveBaseVector deletes a base vector and, by way of the listener
// callback, every combination coefficient that referenced it.
func (cv *CombinationVectors) RemoveBaseVector(id BaseID) {
	cv.base.RemoveVector(id)
}

// TransferValue is a fused remove-then-add on a single base vector: it
// removes prevValue from prevName and adds newValue to newName. When
// prevName == newName and the delta is negligible relative to
// prevValue, it is a no-op rather than two redundant edits.
func (cv *CombinationVectors) TransferValue(id BaseID, prevName Component, prevValue float64, newName Component, newValue float64) {
	if prevName == newName {
		delta := newValue - prevValue
		if cv.zeroRounding > 0 && prevValue != 0 && math.Abs(delta/prevValue) < cv.zeroRounding {
			return
		}
		cv.base.AddValue(id, prevName, delta)

		return
	}
	cv.base.AddValue(id, prevName, -prevValue)
	cv.base.AddValue(id, newName, newValue)
}

// --- vectorset.Listener: propagate every base delta to dependent combos ---

// VectorCreated is a no-op: a fresh base vector has no combinations yet.
func (cv *CombinationVectors) VectorCreated(vectorset.VecID) {}

// ComponentDelta folds a base component change into every combination
// vector that includes this base vector, scaled by that combo's
// coefficient for it.
func (cv *CombinationVectors) ComponentDelta(baseID vectorset.VecID, key Component, delta float64) {
	cv.mu.Lock()
	combos := make(map[CombID]float64, len(cv.combinations[baseID]))
	for c, k := range cv.combinations[baseID] {
		combos[c] = k
	}
	cv.mu.Unlock()

	for combID, k := range combos {
		cv.comb.AddValue(combID, key, k*delta)
	}
}

// VectorRemoved drops every coefficient that referenced the now-gone base
// vector; the combination vectors themselves were already driven to not
// include this base vector's contribution by the ComponentDelta calls
// RemoveVector triggered before this fires.
func (cv *CombinationVectors) VectorRemoved(baseID vectorset.VecID) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	for combID := range cv.combinations[baseID] {
		if row := cv.inverse[combID]; row != nil {
			delete(row, baseID)
			if len(row) == 0 {
				delete(cv.inverse, combID)
			}
		}
	}
	delete(cv.combinations, baseID)
}

// --- combination mutations ---

// NewCombVector creates combination_set[new] == scalar * base_set[baseID].
func (cv *CombinationVectors) NewCombVector(baseID BaseID, scalar float64) CombID {
	snap, _ := cv.base.Snapshot(baseID)
	scaled := make(map[Component]float64, len(snap))
	for k, v := range snap {
		scaled[k] = v * scalar
	}
	combID := cv.comb.NewVector(scaled)
	cv.setCoefficient(combID, baseID, scalar)

	return combID
}

// AddBaseToComb folds scalar*base_set[baseID] into combination_set[combID].
func (cv *CombinationVectors) AddBaseToComb(combID CombID, baseID BaseID, scalar float64) {
	snap, ok := cv.base.Snapshot(baseID)
	if ok {
		cv.comb.AddRawToVector(combID, snap, scalar)
	}
	cv.setCoefficient(combID, baseID, cv.coefficient(combID, baseID)+scalar)
}

// AddCombToComb folds scalar*combination_set[toAdd] into
// combination_set[addTo], updating both the vector values and every
// inverse coefficient addTo inherits from toAdd.
func (cv *CombinationVectors) AddCombToComb(addTo, toAdd CombID, scalar float64) {
	cv.mu.Lock()
	toAddCoeffs := make(map[BaseID]float64, len(cv.inverse[toAdd]))
	for b, k := range cv.inverse[toAdd] {
		toAddCoeffs[b] = k
	}
	cv.mu.Unlock()

	cv.comb.AddToVector(addTo, toAdd, scalar)

	for b, k := range toAddCoeffs {
		cv.setCoefficient(addTo, b, cv.coefficient(addTo, b)+scalar*k)
	}
}

// RemoveCombVector deletes a combination vector and its coefficients.
func (cv *CombinationVectors) RemoveCombVector(combID CombID) {
	cv.comb.RemoveVector(combID)

	cv.mu.Lock()
	defer cv.mu.Unlock()

	for b := range cv.inverse[combID] {
		if row := cv.combinations[b]; row != nil {
			delete(row, combID)
			if len(row) == 0 {
				delete(cv.combinations, b)
			}
		}
	}
	delete(cv.inverse, combID)
	delete(cv.normalizationCandidates, combID)
}

// Eliminate performs one single-pivot Gaussian elimination step: every
// other combination vector with a nonzero componentName is combined with
// pivotCombID to zero that component out. Returns false (no-op, state
// unchanged) if the pivot itself is zero there.
func (cv *CombinationVectors) Eliminate(componentName Component, pivotCombID CombID) bool {
	pivotVal := cv.comb.Value(pivotCombID, componentName)
	if pivotVal == 0 {
		return false
	}

	for otherID, otherVal := range cv.comb.ComponentIndex(componentName) {
		if otherID == pivotCombID {
			continue
		}
		scalar := -otherVal / pivotVal
		cv.AddCombToComb(otherID, pivotCombID, scalar)
		// Force exact zero to defeat residual floating-point rounding.
		cv.comb.SetValue(otherID, componentName, 0)
	}

	return true
}

// RepairCombinations scans the base VectorSet's component_changes for
// components that dropped out of every base vector, and forces those
// components to zero in every combination vector that still carries a
// stale nonzero there, then drains the base's diff.
func (cv *CombinationVectors) RepairCombinations() {
	for key, kind := range cv.base.ComponentChanges() {
		if kind != vectorset.ComponentRemoved {
			continue
		}
		for combID := range cv.comb.ComponentIndex(key) {
			cv.comb.SetValue(combID, key, 0)
		}
	}
	cv.base.ClearComponentChanges()
}

// CalcNormalizationConstant inspects inverse[combID] and proposes a
// scalar k such that normalizing by k brings coefficients toward unit
// magnitude: 1/m_min when the smallest nonzero magnitude exceeds 1,
// 1/m_max when the largest is below 1, otherwise 1 (no need).
func (cv *CombinationVectors) CalcNormalizationConstant(combID CombID) float64 {
	cv.mu.Lock()
	coeffs := cv.inverse[combID]
	mags := make([]float64, 0, len(coeffs))
	maxMag := 0.0
	for _, k := range coeffs {
		m := math.Abs(k)
		if m > maxMag {
			maxMag = m
		}
		mags = append(mags, m)
	}
	cv.mu.Unlock()

	if maxMag == 0 {
		return 1
	}

	minMag := math.Inf(1)
	for _, m := range mags {
		if cv.zeroRounding > 0 && m/maxMag < cv.zeroRounding {
			continue // dead entry relative to the largest magnitude, ignore
		}
		if m < minMag {
			minMag = m
		}
	}
	if math.IsInf(minMag, 1) {
		return 1
	}

	switch {
	case minMag > 1:
		return 1 / minMag
	case maxMag < 1:
		return 1 / maxMag
	default:
		return 1
	}
}

// Normalize multiplies every inverse[combID] coefficient by k. When
// recalculate is false, combination_set[combID] is scaled in place
// (MultiplyVector); when true it is fully rebuilt from the (now scaled)
// coefficients, accumulating positive and negative contributions to each
// component separately and snapping the sum to 0 when it is negligible
// relative to the positive accumulation.
func (cv *CombinationVectors) Normalize(combID CombID, k float64, recalculate bool) {
	cv.mu.Lock()
	coeffs := make(map[BaseID]float64, len(cv.inverse[combID]))
	for b, v := range cv.inverse[combID] {
		coeffs[b] = v
	}
	cv.mu.Unlock()

	for b, v := range coeffs {
		cv.setCoefficient(combID, b, v*k)
	}

	if !recalculate {
		cv.comb.MultiplyVector(combID, k)

		return
	}

	cv.recompute(combID)
}

// recompute rebuilds combination_set[combID] from scratch as
// Σ inverse[combID][b] * base_set[b], accumulating positive and negative
// contributions separately per component.
func (cv *CombinationVectors) recompute(combID CombID) {
	cv.mu.Lock()
	coeffs := make(map[BaseID]float64, len(cv.inverse[combID]))
	for b, v := range cv.inverse[combID] {
		coeffs[b] = v
	}
	cv.mu.Unlock()

	positive := make(map[Component]float64)
	negative := make(map[Component]float64)
	for b, k := range coeffs {
		snap, ok := cv.base.Snapshot(b)
		if !ok {
			continue
		}
		for key, v := range snap {
			contrib := k * v
			if contrib >= 0 {
				positive[key] += contrib
			} else {
				negative[key] += contrib
			}
		}
	}

	touched := make(map[Component]struct{}, len(positive)+len(negative))
	for key := range positive {
		touched[key] = struct{}{}
	}
	for key := range negative {
		touched[key] = struct{}{}
	}

	for key := range touched {
		pos := positive[key]
		sum := pos + negative[key]
		if cv.zeroRounding > 0 && pos != 0 && math.Abs(sum/pos) < cv.zeroRounding {
			sum = 0
		}
		cv.comb.SetValue(combID, key, sum)
	}
}

// NormalizationCandidates returns a copy of the combo ids flagged for
// renormalization since the last ClearNormalizationCandidates.
func (cv *CombinationVectors) NormalizationCandidates() map[CombID]struct{} {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	out := make(map[CombID]struct{}, len(cv.normalizationCandidates))
	for id := range cv.normalizationCandidates {
		out[id] = struct{}{}
	}

	return out
}

// ClearNormalizationCandidates drains the normalization_candidates set.
func (cv *CombinationVectors) ClearNormalizationCandidates() {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	cv.normalizationCandidates = make(map[CombID]struct{})
}

// coefficient returns the current inverse[combID][baseID] (0 if absent).
func (cv *CombinationVectors) coefficient(combID CombID, baseID BaseID) float64 {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	return cv.inverse[combID][baseID]
}

// setCoefficient updates combinations[baseID][combID] and
// inverse[combID][baseID] in lockstep, snapping to zero (and dropping the
// entry), and flagging combID for normalization when
// its magnitude or reciprocal crosses normalizationThreshold.
func (cv *CombinationVectors) setCoefficient(combID CombID, baseID BaseID, newValue float64) {
	cv.mu.Lock()
	defer cv.mu.Unlock()

	prev := cv.inverse[combID][baseID]
	snapped := vectorset.Snap(prev, newValue, cv.zeroRounding)

	if snapped == 0 {
		if row := cv.inverse[combID]; row != nil {
			delete(row, baseID)
			if len(row) == 0 {
				delete(cv.inverse, combID)
			}
		}
		if row := cv.combinations[baseID]; row != nil {
			delete(row, combID)
			if len(row) == 0 {
				delete(cv.combinations, baseID)
			}
		}

		return
	}

	if cv.inverse[combID] == nil {
		cv.inverse[combID] = make(map[BaseID]float64)
	}
	cv.inverse[combID][baseID] = snapped
	if cv.combinations[baseID] == nil {
		cv.combinations[baseID] = make(map[CombID]float64)
	}
	cv.combinations[baseID][combID] = snapped

	if cv.normalizationThreshold > 0 {
		mag := math.Abs(snapped)
		if mag > cv.normalizationThreshold || 1/mag > cv.normalizationThreshold {
			cv.normalizationCandidates[combID] = struct{}{}
		}
	}
}
