package cycles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areaflow/posconstraint/cycles"
	"github.com/areaflow/posconstraint/edge"
	"github.com/areaflow/posconstraint/vectorset"
)

func TestSquareCycle(t *testing.T) {
	// Square cycle: A-B-C-D-A.
	tbl := edge.NewTable()
	c := cycles.New(tbl, 0)

	_, err := c.AddEdge("A", "B", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("B", "C", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("C", "D", true, false)
	require.NoError(t, err)
	require.Equal(t, 0, c.CycleVectors().Size())

	id, err := c.AddEdge("D", "A", true, false)
	require.NoError(t, err)

	require.Equal(t, 1, c.CycleVectors().Size())
	changes := c.Changes()
	require.Len(t, changes, 1)

	var cycleID vectorset.VecID
	for k, v := range changes {
		require.Equal(t, cycles.Added, v.Kind)
		cycleID = k
	}

	abID, _ := tbl.ID("A", "B")
	bcID, _ := tbl.ID("B", "C")
	cdID, _ := tbl.ID("C", "D")
	daID, _ := tbl.ID("D", "A")
	require.Equal(t, id, daID)

	snap, ok := c.CycleVectors().Snapshot(cycleID)
	require.True(t, ok)
	assert.Equal(t, float64(1), snap[uint64(abID)])
	assert.Equal(t, float64(1), snap[uint64(bcID)])
	assert.Equal(t, float64(1), snap[uint64(cdID)])
	assert.Equal(t, float64(1), snap[uint64(daID)])
}

func TestWatchedPivotReplacement(t *testing.T) {
	// Watched-edge pivot replacement along a chain.
	tbl := edge.NewTable()
	c := cycles.New(tbl, 0)

	_, err := c.AddEdge("A", "B", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("B", "C", false, true)
	require.NoError(t, err)
	_, err = c.AddEdge("C", "D", true, false)
	require.NoError(t, err)

	bcID, _ := tbl.ID("B", "C")
	require.True(t, c.InForest(bcID))
	require.True(t, c.IsWatched(bcID))
	require.False(t, c.IsNormal(bcID))

	adID, err := c.AddEdge("A", "D", true, false)
	require.NoError(t, err)

	assert.True(t, c.InForest(adID))
	assert.False(t, c.InForest(bcID))
	assert.Equal(t, 0, c.CycleVectors().Size())

	wChanges := c.WatchedChanges()
	require.Len(t, wChanges, 1)
	var watchedID vectorset.VecID
	for k, v := range wChanges {
		require.Equal(t, cycles.Added, v.Kind)
		watchedID = k
	}

	abID, _ := tbl.ID("A", "B")
	cdID, _ := tbl.ID("C", "D")

	snap, ok := c.WatchedVectors().Snapshot(watchedID)
	require.True(t, ok)
	// Signs follow canonical edge direction, not spelled out by name here;
	// only magnitude and membership are part of the contract.
	assert.Equal(t, 1.0, abs(snap[uint64(abID)]))
	assert.Equal(t, 1.0, abs(snap[uint64(adID)]))
	assert.Equal(t, 1.0, abs(snap[uint64(cdID)]))
	_, hasBC := snap[uint64(bcID)]
	assert.False(t, hasBC, "the watched edge itself is never a component of its own path vector")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

func TestSplitNotification(t *testing.T) {
	// Tree-split notification, re-verified through Cycles' own forest accessor.
	tbl := edge.NewTable()
	c := cycles.New(tbl, 0)

	type splitEvent struct{ root, up, down string }
	var got *splitEvent
	c.Forest().Hooks.TreeSplit = func(root, up, down string) {
		got = &splitEvent{root: root, up: up, down: down}
	}

	_, err := c.AddEdge("A", "B", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("B", "C", true, false)
	require.NoError(t, err)

	c.RemoveEdge("A", "B", true, false)

	require.NotNil(t, got)
	assert.Equal(t, "B", got.down)
	assert.Contains(t, []string{"A", "C"}, got.up)
}

func TestEdgeReleasedWhenAllFlagsDrop(t *testing.T) {
	tbl := edge.NewTable()
	c := cycles.New(tbl, 0)

	id, err := c.AddEdge("A", "B", true, false)
	require.NoError(t, err)
	require.True(t, c.EdgeExists(id))

	c.RemoveEdge("A", "B", true, false)
	assert.False(t, c.EdgeExists(id))
}

func TestRemoveForestEdgeFallsBackToCycleReplacement(t *testing.T) {
	// Two cycles share a forest edge (A-B); removing that edge must repair
	// the forest using one cycle's own non-forest edge as the replacement,
	// then fold the vacated edge's component out of the surviving cycle.
	tbl := edge.NewTable()
	c := cycles.New(tbl, 0)

	_, err := c.AddEdge("A", "B", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("B", "C", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("B", "D", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("C", "A", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("D", "A", true, false)
	require.NoError(t, err)

	require.Equal(t, 2, c.CycleVectors().Size())
	c.ClearChanges()

	abID, _ := tbl.ID("A", "B")
	bcID, _ := tbl.ID("B", "C")
	bdID, _ := tbl.ID("B", "D")
	caID, _ := tbl.ID("C", "A")
	daID, _ := tbl.ID("D", "A")

	c.RemoveEdge("A", "B", true, false)

	assert.Equal(t, 1, c.CycleVectors().Size())
	assert.False(t, c.InForest(abID))
	assert.True(t, c.InForest(caID))

	changes := c.Changes()
	require.Len(t, changes, 2)
	var sawRemoved, sawChanged bool
	for _, ch := range changes {
		switch ch.Kind {
		case cycles.Removed:
			sawRemoved = true
			// The removed cycle's own edge (C-A) is what replaced A-B in
			// the forest -- not the vacated A-B edge itself.
			assert.Equal(t, caID, ch.EdgeID)
		case cycles.Changed:
			sawChanged = true
		}
	}
	assert.True(t, sawRemoved, "expected a Removed entry for the discarded cycle")
	assert.True(t, sawChanged, "expected a Changed entry for the surviving cycle")

	_, stillClosesCycle := c.EdgeInCycle(caID)
	assert.False(t, stillClosesCycle, "C-A is now a forest edge, not a cycle's non-forest edge")

	survivorID, ok := c.EdgeInCycle(daID)
	require.True(t, ok)
	snap, ok := c.CycleVectors().Snapshot(survivorID)
	require.True(t, ok)

	_, hasAB := snap[uint64(abID)]
	assert.False(t, hasAB, "A-B must be folded out of the surviving cycle")
	assert.Equal(t, 1.0, snap[uint64(bdID)])
	assert.Equal(t, 1.0, snap[uint64(daID)])
	assert.Equal(t, -1.0, snap[uint64(bcID)])
	assert.Equal(t, -1.0, snap[uint64(caID)])
}

func TestRemoveForestEdgeFallsBackToWatchedPathPromotion(t *testing.T) {
	// Two watched paths share a forest edge (A-B); removing that edge,
	// with no cycle available to repair it, must fall back to promoting
	// one watched path's own edge into the forest.
	tbl := edge.NewTable()
	c := cycles.New(tbl, 0)

	_, err := c.AddEdge("A", "B", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("B", "C", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("A", "C", false, true)
	require.NoError(t, err)
	_, err = c.AddEdge("A", "D", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("D", "C", false, true)
	require.NoError(t, err)

	require.Equal(t, 2, c.WatchedVectors().Size())
	c.ClearWatchedChanges()

	abID, _ := tbl.ID("A", "B")
	bcID, _ := tbl.ID("B", "C")
	adID, _ := tbl.ID("A", "D")
	acID, _ := tbl.ID("A", "C")

	c.RemoveEdge("A", "B", true, false)

	assert.Equal(t, 1, c.WatchedVectors().Size())
	assert.False(t, c.InForest(abID))
	assert.True(t, c.InForest(acID))

	wChanges := c.WatchedChanges()
	require.Len(t, wChanges, 2)
	var sawRemoved, sawChanged bool
	for _, ch := range wChanges {
		switch ch.Kind {
		case cycles.Removed:
			sawRemoved = true
			// The watched path that gave up its edge (A-C) to the forest,
			// not the vacated A-B edge, is what the Removed entry names.
			assert.Equal(t, acID, ch.EdgeID)
		case cycles.Changed:
			sawChanged = true
		}
	}
	assert.True(t, sawRemoved, "expected a Removed entry for the discarded watched path")
	assert.True(t, sawChanged, "expected a Changed entry for the surviving watched path")

	idx := c.WatchedVectors().ComponentIndex(uint64(adID))
	require.Len(t, idx, 1)
	var survivorID vectorset.VecID
	for k := range idx {
		survivorID = k
	}

	snap, ok := c.WatchedVectors().Snapshot(survivorID)
	require.True(t, ok)
	assert.Len(t, snap, 2)
	assert.Equal(t, -1.0, snap[uint64(adID)])
	assert.Equal(t, 1.0, snap[uint64(acID)])
	_, hasAB := snap[uint64(abID)]
	assert.False(t, hasAB, "A-B must be folded out of the surviving watched path")
	_, hasBC := snap[uint64(bcID)]
	assert.False(t, hasBC, "B-C cancels out exactly once A-C is folded in")
}

func TestAddExternalCycleWritesToCallerSet(t *testing.T) {
	tbl := edge.NewTable()
	c := cycles.New(tbl, 0)

	_, err := c.AddEdge("A", "B", true, false)
	require.NoError(t, err)
	_, err = c.AddEdge("B", "C", true, false)
	require.NoError(t, err)

	target := c.WatchedVectors()
	vid, ok := c.AddExternalCycle("A", "C", target)
	require.True(t, ok)

	snap, ok := target.Snapshot(vid)
	require.True(t, ok)
	abID, _ := tbl.ID("A", "B")
	bcID, _ := tbl.ID("B", "C")
	assert.Equal(t, float64(1), snap[uint64(abID)])
	assert.Equal(t, float64(1), snap[uint64(bcID)])
}
