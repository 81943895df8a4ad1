// Package schemagraph builds the selectivity-typed schema graph: a directed
// multigraph over (type, selectivity class) pairs whose edges are predicates.
package schemagraph

import (
	"fmt"
	"sort"
	"strings"

	"gmark/internal/schema"
)

// Node is a selectivity type in the graph. Index is stable for the lifetime of
// the graph and never reused, even after removal.
type Node struct {
	Index int
	Type  schema.SelectivityType
}

func (n *Node) String() string {
	return n.Type.String()
}

// Edge is a predicate transition between two nodes.
type Edge struct {
	From      *Node
	To        *Node
	Predicate schema.Predicate
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -%s-> %s", e.From, e.Predicate, e.To)
}

type edgeKey struct {
	from, to  int
	predicate int
	inverse   bool
}

// Graph is mutated only while building and pruning; path drawing treats it as
// read-only and it may then be shared.
type Graph struct {
	nodes   []*Node
	byType  map[schema.SelectivityType]*Node
	out     map[int][]*Edge
	in      map[int][]*Edge
	edgeSet map[edgeKey]*Edge
	removed map[int]bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		byType:  make(map[schema.SelectivityType]*Node),
		out:     make(map[int][]*Edge),
		in:      make(map[int][]*Edge),
		edgeSet: make(map[edgeKey]*Edge),
		removed: make(map[int]bool),
	}
}

// Build derives the schema graph and prunes unreachable starting points.
func Build(s *schema.Schema) *Graph {
	g := Derive(s)
	g.RemoveUnreachable()
	return g
}

// Derive combines every schema edge with every incoming selectivity class
// without pruning.
func Derive(s *schema.Schema) *Graph {
	g := NewGraph()
	for _, e := range s.Edges {
		sel2 := e.Selectivity()
		for _, sel1 := range schema.AllSelectivityClasses() {
			g.AddEdge(
				schema.SelectivityType{Type: e.Source, Class: sel1},
				schema.SelectivityType{Type: e.Target, Class: sel1.Conjunction(sel2)},
				e.Predicate,
			)
			g.AddEdge(
				schema.SelectivityType{Type: e.Target, Class: sel1},
				schema.SelectivityType{Type: e.Source, Class: sel1.Conjunction(sel2.Negate())},
				e.Predicate.Invert(),
			)
		}
	}
	return g
}

// Resolve returns the node for st, creating it when absent.
func (g *Graph) Resolve(st schema.SelectivityType) *Node {
	if n, ok := g.byType[st]; ok {
		return n
	}
	n := &Node{Index: len(g.nodes), Type: st}
	g.nodes = append(g.nodes, n)
	g.byType[st] = n
	return n
}

// AddEdge inserts the transition from -p-> to. Duplicate triples are ignored
// and the existing edge is returned.
func (g *Graph) AddEdge(from, to schema.SelectivityType, p schema.Predicate) *Edge {
	src := g.Resolve(from)
	dst := g.Resolve(to)
	key := edgeKey{from: src.Index, to: dst.Index, predicate: p.ID, inverse: p.Inverse}
	if e, ok := g.edgeSet[key]; ok {
		return e
	}
	e := &Edge{From: src, To: dst, Predicate: p}
	g.edgeSet[key] = e
	g.out[src.Index] = append(g.out[src.Index], e)
	g.in[dst.Index] = append(g.in[dst.Index], e)
	return e
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(n *Node) {
	if n == nil || g.removed[n.Index] {
		return
	}
	for _, e := range g.out[n.Index] {
		g.in[e.To.Index] = dropEdge(g.in[e.To.Index], e)
		delete(g.edgeSet, keyOf(e))
	}
	for _, e := range g.in[n.Index] {
		g.out[e.From.Index] = dropEdge(g.out[e.From.Index], e)
		delete(g.edgeSet, keyOf(e))
	}
	delete(g.out, n.Index)
	delete(g.in, n.Index)
	delete(g.byType, n.Type)
	g.removed[n.Index] = true
}

// RemoveUnreachable repeatedly deletes nodes that are not valid starting
// points (class other than ONE_ONE or EQUALS) and have no incoming edge from
// another node. Cycles made only of such nodes survive that rule, so a final
// sweep drops whatever cannot be reached from a starting-class node. It
// returns the number of removed nodes.
func (g *Graph) RemoveUnreachable() int {
	removed := 0
	for {
		var doomed []*Node
		for _, n := range g.Nodes() {
			if isStartClass(n.Type.Class) {
				continue
			}
			if !g.hasForeignIncoming(n) {
				doomed = append(doomed, n)
			}
		}
		if len(doomed) == 0 {
			break
		}
		for _, n := range doomed {
			g.RemoveNode(n)
		}
		removed += len(doomed)
	}
	reached := g.reachableFromStartClasses()
	for _, n := range g.Nodes() {
		if !reached[n.Index] {
			g.RemoveNode(n)
			removed++
		}
	}
	return removed
}

func (g *Graph) reachableFromStartClasses() map[int]bool {
	seen := make(map[int]bool)
	var queue []*Node
	for _, n := range g.Nodes() {
		if isStartClass(n.Type.Class) {
			seen[n.Index] = true
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range g.out[n.Index] {
			if !seen[e.To.Index] {
				seen[e.To.Index] = true
				queue = append(queue, e.To)
			}
		}
	}
	return seen
}

func isStartClass(c schema.SelectivityClass) bool {
	return c == schema.OneOne || c == schema.Equals
}

func (g *Graph) hasForeignIncoming(n *Node) bool {
	for _, e := range g.in[n.Index] {
		if e.From != n {
			return true
		}
	}
	return false
}

// Nodes returns live nodes ordered by index.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes)-len(g.removed))
	for _, n := range g.nodes {
		if !g.removed[n.Index] {
			out = append(out, n)
		}
	}
	return out
}

// NumNodes returns the number of live nodes.
func (g *Graph) NumNodes() int {
	return len(g.nodes) - len(g.removed)
}

// Capacity is one more than the largest node index ever allocated.
func (g *Graph) Capacity() int {
	return len(g.nodes)
}

// Node looks up a live node by selectivity type.
func (g *Graph) Node(st schema.SelectivityType) (*Node, bool) {
	n, ok := g.byType[st]
	return n, ok
}

// Out returns the outgoing edges of n.
func (g *Graph) Out(n *Node) []*Edge {
	return g.out[n.Index]
}

// In returns the incoming edges of n.
func (g *Graph) In(n *Node) []*Edge {
	return g.in[n.Index]
}

// Edges returns every live edge ordered by source index then insertion.
func (g *Graph) Edges() []*Edge {
	var out []*Edge
	for _, n := range g.Nodes() {
		out = append(out, g.out[n.Index]...)
	}
	return out
}

// StartNodes returns the nodes queries may start from: ONE_ONE for fixed-count
// types and EQUALS for scalable types.
func (g *Graph) StartNodes() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		t := n.Type
		if (t.Type.Scalable && t.Class == schema.Equals) || (!t.Type.Scalable && t.Class == schema.OneOne) {
			out = append(out, n)
		}
	}
	return out
}

// NodesWithClass returns live nodes of a given selectivity class.
func (g *Graph) NodesWithClass(c schema.SelectivityClass) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Type.Class == c {
			out = append(out, n)
		}
	}
	return out
}

// Parallel returns the predicates labelling edges from -> to.
func (g *Graph) Parallel(from, to *Node) []schema.Predicate {
	var out []schema.Predicate
	for _, e := range g.out[from.Index] {
		if e.To == to {
			out = append(out, e.Predicate)
		}
	}
	return out
}

// String renders the graph one node per line with its outgoing edges.
func (g *Graph) String() string {
	var b strings.Builder
	for _, n := range g.Nodes() {
		edges := append([]*Edge(nil), g.out[n.Index]...)
		sort.SliceStable(edges, func(i, j int) bool {
			return edges[i].To.Index < edges[j].To.Index
		})
		fmt.Fprintf(&b, "%s:", n)
		for _, e := range edges {
			fmt.Fprintf(&b, " %s->%s", e.Predicate, e.To)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func keyOf(e *Edge) edgeKey {
	return edgeKey{from: e.From.Index, to: e.To.Index, predicate: e.Predicate.ID, inverse: e.Predicate.Inverse}
}

func dropEdge(list []*Edge, e *Edge) []*Edge {
	out := list[:0]
	for _, x := range list {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}
