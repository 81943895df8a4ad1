package edgegraph

import "fmt"

// SpanningTree is a depth-first spanning tree over an undirected graph whose
// vertices are addressed by index. Adjacency lists may contain parallel
// entries; they do not change articulation results.
type SpanningTree struct {
	Root int
	// Order is the discovery position of each vertex.
	Order []int
	// Low is the smallest discovery position reachable from the vertex's
	// subtree through at most one back edge.
	Low          []int
	Parent       []int
	Children     []int
	Articulation []bool
}

// dfsFrame is one pending vertex of the explicit DFS stack; next indexes the
// adjacency entry to examine when the frame is resumed.
type dfsFrame struct {
	vertex int
	next   int
}

// NewSpanningTree walks adj from root without recursion. A vertex left
// undiscovered means the input was disconnected, which panics.
func NewSpanningTree(adj [][]int, root int) *SpanningTree {
	n := len(adj)
	t := &SpanningTree{
		Root:         root,
		Order:        make([]int, n),
		Low:          make([]int, n),
		Parent:       make([]int, n),
		Children:     make([]int, n),
		Articulation: make([]bool, n),
	}
	for i := range t.Order {
		t.Order[i] = -1
		t.Parent[i] = -1
	}
	if n == 0 {
		return t
	}
	counter := 0
	t.Order[root] = counter
	t.Low[root] = counter
	counter++
	stack := []dfsFrame{{vertex: root}}
	for len(stack) > 0 {
		top := len(stack) - 1
		v := stack[top].vertex
		if stack[top].next < len(adj[v]) {
			w := adj[v][stack[top].next]
			stack[top].next++
			switch {
			case t.Order[w] == -1:
				t.Parent[w] = v
				t.Children[v]++
				t.Order[w] = counter
				t.Low[w] = counter
				counter++
				stack = append(stack, dfsFrame{vertex: w})
			case w != t.Parent[v]:
				t.Low[v] = min(t.Low[v], t.Order[w])
			}
			continue
		}
		stack = stack[:top]
		p := t.Parent[v]
		if p < 0 {
			continue
		}
		t.Low[p] = min(t.Low[p], t.Low[v])
		if p != root && t.Low[v] >= t.Order[p] {
			t.Articulation[p] = true
		}
	}
	if counter != n {
		panic(fmt.Sprintf("spanning tree reached %d of %d vertices: graph is disconnected", counter, n))
	}
	t.Articulation[root] = t.Children[root] >= 2
	return t
}

// ArticulationPoints returns the cut vertices in index order.
func (t *SpanningTree) ArticulationPoints() []int {
	var out []int
	for v, cut := range t.Articulation {
		if cut {
			out = append(out, v)
		}
	}
	return out
}
