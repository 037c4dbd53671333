package vectorset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areaflow/posconstraint/vectorset"
)

func TestNewVectorAndSnapshot(t *testing.T) {
	vs := vectorset.New(0)
	id := vs.NewVector(map[vectorset.Component]float64{1: 2, 2: -3})

	snap, ok := vs.Snapshot(id)
	require.True(t, ok)
	assert.Equal(t, map[vectorset.Component]float64{1: 2, 2: -3}, snap)
	assert.Equal(t, 1, vs.Size())
	assert.Equal(t, 2, vs.NonzeroSize())
}

func TestSetValueDropsZero(t *testing.T) {
	vs := vectorset.New(0)
	id := vs.NewVector(nil)
	vs.SetValue(id, 5, 3)
	assert.Equal(t, float64(3), vs.Value(id, 5))

	vs.SetValue(id, 5, 0)
	assert.Equal(t, float64(0), vs.Value(id, 5))
	assert.Equal(t, 0, vs.NonzeroSize())
}

func TestAddToVectorSelfZeroesIt(t *testing.T) {
	vs := vectorset.New(0)
	id := vs.NewVector(map[vectorset.Component]float64{1: 4, 2: -9})

	vs.AddToVector(id, id, -1)

	snap, _ := vs.Snapshot(id)
	assert.Empty(t, snap, "add_to_vector(v, v, -1) must zero v")
}

func TestMultiplyByZeroEmptiesWithoutFreeingID(t *testing.T) {
	vs := vectorset.New(0)
	id := vs.NewVector(map[vectorset.Component]float64{1: 4})

	vs.MultiplyVector(id, 0)
	snap, ok := vs.Snapshot(id)
	require.True(t, ok, "vector id stays allocated")
	assert.Empty(t, snap)
}

func TestRemoveVectorFreesID(t *testing.T) {
	vs := vectorset.New(0)
	id := vs.NewVector(map[vectorset.Component]float64{1: 4})
	vs.RemoveVector(id)

	_, ok := vs.Snapshot(id)
	assert.False(t, ok)

	id2 := vs.NewVector(nil)
	assert.Equal(t, id, id2, "freed ids are reused")
}

func TestZeroRoundingSnapsResidue(t *testing.T) {
	vs := vectorset.New(1e-9)
	id := vs.NewVector(map[vectorset.Component]float64{1: 1.0})

	// A drift-sized residual relative to the previous value of 1.0 snaps to 0.
	vs.SetValue(id, 1, 1e-15)
	assert.Equal(t, float64(0), vs.Value(id, 1))
}

func TestZeroRoundingDisabledLeavesResidue(t *testing.T) {
	vs := vectorset.New(0)
	id := vs.NewVector(map[vectorset.Component]float64{1: 1.0})

	vs.SetValue(id, 1, 1e-15)
	assert.Equal(t, 1e-15, vs.Value(id, 1))
}

func TestComponentChangesDiffCollapses(t *testing.T) {
	vs := vectorset.New(0)
	id := vs.NewVector(nil)

	vs.SetValue(id, 9, 1) // component 9 becomes referenced: added
	vs.SetValue(id, 9, 0) // and immediately unreferenced: cancels out

	assert.Empty(t, vs.ComponentChanges())
}

type recordingListener struct {
	created int
	deltas  []float64
	removed int
}

func (l *recordingListener) VectorCreated(vectorset.VecID)                          { l.created++ }
func (l *recordingListener) ComponentDelta(_ vectorset.VecID, _ vectorset.Component, d float64) { l.deltas = append(l.deltas, d) }
func (l *recordingListener) VectorRemoved(vectorset.VecID)                           { l.removed++ }

func TestListenerReceivesDeltas(t *testing.T) {
	vs := vectorset.New(0)
	l := &recordingListener{}
	vs.AddListener(l)

	id := vs.NewVector(map[vectorset.Component]float64{1: 2})
	vs.AddValue(id, 1, 3)
	vs.RemoveVector(id)

	assert.Equal(t, 1, l.created)
	assert.Equal(t, []float64{2, 3, -5}, l.deltas)
	assert.Equal(t, 1, l.removed)
}
