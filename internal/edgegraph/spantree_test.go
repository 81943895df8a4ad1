package edgegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func undirected(n int, edges [][2]int) [][]int {
	adj := make([][]int, n)
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	return adj
}

func ring(offset, n int) [][2]int {
	out := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, [2]int{offset + i, offset + (i+1)%n})
	}
	return out
}

func TestSpanningTreeCyclesJoinedByChord(t *testing.T) {
	// Two 4-cycles 0..3 and 4..7 joined by the chord 2-5.
	edges := append(ring(0, 4), ring(4, 4)...)
	edges = append(edges, [2]int{2, 5})
	for root := 0; root < 8; root++ {
		tree := NewSpanningTree(undirected(8, edges), root)
		assert.Equal(t, []int{2, 5}, tree.ArticulationPoints(), "root %d", root)
	}
}

func TestSpanningTreeCycleWithInternalChordHasNoCutVertex(t *testing.T) {
	edges := append(ring(0, 6), [2]int{0, 3})
	tree := NewSpanningTree(undirected(6, edges), 0)
	assert.Empty(t, tree.ArticulationPoints())
}

func TestSpanningTreePathAndRoot(t *testing.T) {
	adj := undirected(4, [][2]int{{0, 1}, {1, 2}, {2, 3}})
	tree := NewSpanningTree(adj, 1)
	assert.Equal(t, []int{1, 2}, tree.ArticulationPoints())
	assert.Equal(t, 2, tree.Children[1])
	assert.Equal(t, 0, tree.Order[1])
	assert.Equal(t, -1, tree.Parent[1])

	leafRoot := NewSpanningTree(adj, 0)
	assert.False(t, leafRoot.Articulation[0])
}

func TestSpanningTreeParallelEdges(t *testing.T) {
	adj := undirected(3, [][2]int{{0, 1}, {0, 1}, {1, 2}})
	tree := NewSpanningTree(adj, 0)
	assert.Equal(t, []int{1}, tree.ArticulationPoints())
}

func TestSpanningTreeDeepChainIsIterative(t *testing.T) {
	const n = 200000
	edges := make([][2]int, 0, n-1)
	for i := 0; i+1 < n; i++ {
		edges = append(edges, [2]int{i, i + 1})
	}
	tree := NewSpanningTree(undirected(n, edges), 0)
	require.Len(t, tree.ArticulationPoints(), n-2)
}

func TestSpanningTreeDisconnectedPanics(t *testing.T) {
	adj := undirected(4, [][2]int{{0, 1}, {2, 3}})
	assert.Panics(t, func() { NewSpanningTree(adj, 0) })
}
