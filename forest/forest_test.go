package forest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areaflow/posconstraint/forest"
)

func TestAddEdgeGrowsThenMerges(t *testing.T) {
	f := forest.New()

	var edgeAdded, merged int
	f.Hooks.EdgeAdded = func(a, b string) { edgeAdded++ }
	f.Hooks.TreesMerged = func(root, up, down string) { merged++ }

	assert.True(t, f.AddEdge("A", "B"))
	assert.True(t, f.AddEdge("B", "C"))
	assert.Equal(t, 2, edgeAdded, "both additions only grew a tree of new labels")

	assert.True(t, f.AddEdge("X", "Y"))
	assert.Equal(t, 3, edgeAdded)

	// Joining the two established trees is a merge, not a grow.
	assert.True(t, f.AddEdge("C", "X"))
	assert.Equal(t, 1, merged)

	assert.False(t, f.AddEdge("A", "Y"), "A and Y are already in the same tree")
}

func TestPathOrdering(t *testing.T) {
	f := forest.New()
	require.True(t, f.AddEdge("A", "B"))
	require.True(t, f.AddEdge("B", "C"))
	require.True(t, f.AddEdge("B", "D"))

	p, ok := f.Path("C", "D")
	require.True(t, ok)
	assert.Equal(t, []string{"C", "B", "D"}, p)

	p, ok = f.Path("A", "A")
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, p)

	_, ok = f.Path("A", "Z")
	assert.False(t, ok, "Z is untracked")
}

func TestRemoveEdgeSplits(t *testing.T) {
	f := forest.New()
	require.True(t, f.AddEdge("A", "B"))
	require.True(t, f.AddEdge("B", "C"))

	var splitRoot, splitUp, splitDown string
	f.Hooks.TreeSplit = func(root, up, down string) { splitRoot, splitUp, splitDown = root, up, down }

	off, ok := f.RemoveEdge("A", "B")
	require.True(t, ok)
	assert.Equal(t, "B", off)
	assert.Equal(t, "A", splitUp)
	assert.Equal(t, "B", splitDown)
	assert.Equal(t, "A", splitRoot)

	_, ok = f.Path("A", "B")
	assert.False(t, ok, "A and B are no longer connected")

	_, ok = f.Path("B", "C")
	assert.True(t, ok, "B-C survives the split")
}

func TestRemoveEdgeNotATreeEdgeIsNoOp(t *testing.T) {
	f := forest.New()
	require.True(t, f.AddEdge("A", "B"))

	_, ok := f.RemoveEdge("A", "Z")
	assert.False(t, ok)
}

func TestReplaceEdgePreservesConnectivity(t *testing.T) {
	f := forest.New()
	require.True(t, f.AddEdge("A", "B"))
	require.True(t, f.AddEdge("B", "C"))

	var splits, merges int
	f.Hooks.TreeSplit = func(string, string, string) { splits++ }
	f.Hooks.TreesMerged = func(string, string, string) { merges++ }

	ok := f.ReplaceEdge("A", "B", "A", "C")
	require.True(t, ok)
	assert.Zero(t, splits, "ReplaceEdge must not fire listener hooks")
	assert.Zero(t, merges)

	rootA, _ := f.Root("A")
	rootC, _ := f.Root("C")
	assert.Equal(t, rootA, rootC, "A, B, C remain one tree")
}

func TestNodeForgottenWhenIsolated(t *testing.T) {
	f := forest.New()
	require.True(t, f.AddEdge("A", "B"))

	var removed []string
	f.Hooks.NodeRemoved = func(label string) { removed = append(removed, label) }

	_, ok := f.RemoveEdge("A", "B")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"A", "B"}, removed)
	assert.Empty(t, f.Nodes())
}
