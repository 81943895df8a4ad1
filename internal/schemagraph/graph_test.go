package schemagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmark/internal/schema"
	"gmark/internal/testutil"
)

func TestDeriveProducesForwardAndBackwardEdgePerClass(t *testing.T) {
	person := schema.Type{ID: 0, Alias: "person", Scalable: true}
	city := schema.Type{ID: 1, Alias: "city", Count: 10}
	livesIn := schema.Predicate{ID: 0, Alias: "livesIn"}
	s, err := schema.New([]schema.Type{person, city}, []schema.Predicate{livesIn}, []schema.Edge{
		{Source: person, Target: city, Predicate: livesIn},
	})
	require.NoError(t, err)

	g := Derive(s)
	edge := s.Edges[0]
	sel2 := edge.Selectivity()
	require.Equal(t, schema.NOne, sel2)
	require.Len(t, g.Edges(), 2*schema.NumSelectivityClasses)

	for _, sel1 := range schema.AllSelectivityClasses() {
		from, ok := g.Node(schema.SelectivityType{Type: person, Class: sel1})
		require.True(t, ok)
		to, ok := g.Node(schema.SelectivityType{Type: city, Class: sel1.Conjunction(sel2)})
		require.True(t, ok)
		assert.Equal(t, []schema.Predicate{livesIn}, g.Parallel(from, to), "forward edge for %s", sel1)

		back, ok := g.Node(schema.SelectivityType{Type: city, Class: sel1})
		require.True(t, ok)
		dst, ok := g.Node(schema.SelectivityType{Type: person, Class: sel1.Conjunction(sel2.Negate())})
		require.True(t, ok)
		assert.Equal(t, []schema.Predicate{livesIn.Invert()}, g.Parallel(back, dst), "backward edge for %s", sel1)
	}
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := NewGraph()
	a := schema.SelectivityType{Type: schema.Type{ID: 0, Alias: "a"}, Class: schema.Equals}
	b := schema.SelectivityType{Type: schema.Type{ID: 1, Alias: "b"}, Class: schema.Less}
	p := schema.Predicate{ID: 0, Alias: "p"}
	first := g.AddEdge(a, b, p)
	second := g.AddEdge(a, b, p)
	assert.Same(t, first, second)
	g.AddEdge(a, b, p.Invert())
	assert.Len(t, g.Edges(), 2)
	assert.Equal(t, 2, g.NumNodes())
}

func TestRemoveUnreachableKeepsOnlyReachableNodes(t *testing.T) {
	g := Build(testutil.SocialSchema())
	require.NotZero(t, g.NumNodes())

	reached := map[int]bool{}
	var queue []*Node
	for _, n := range g.Nodes() {
		c := n.Type.Class
		if c == schema.OneOne || c == schema.Equals {
			reached[n.Index] = true
			queue = append(queue, n)
			continue
		}
		foreign := false
		for _, e := range g.In(n) {
			if e.From != n {
				foreign = true
			}
		}
		assert.True(t, foreign, "node %s has no incoming edge from another node", n)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range g.Out(n) {
			if !reached[e.To.Index] {
				reached[e.To.Index] = true
				queue = append(queue, e.To)
			}
		}
	}
	for _, n := range g.Nodes() {
		assert.True(t, reached[n.Index], "node %s is only reachable through disallowed classes", n)
	}
}

func TestRemoveUnreachableDropsIsolatedCycle(t *testing.T) {
	g := NewGraph()
	start := schema.SelectivityType{Type: schema.Type{ID: 0, Alias: "s"}, Class: schema.Equals}
	x := schema.SelectivityType{Type: schema.Type{ID: 1, Alias: "x"}, Class: schema.Less}
	y := schema.SelectivityType{Type: schema.Type{ID: 2, Alias: "y"}, Class: schema.Greater}
	z := schema.SelectivityType{Type: schema.Type{ID: 3, Alias: "z"}, Class: schema.Cross}
	p := schema.Predicate{ID: 0, Alias: "p"}
	g.AddEdge(start, z, p)
	g.AddEdge(x, y, p)
	g.AddEdge(y, x, p)

	removed := g.RemoveUnreachable()
	assert.Equal(t, 2, removed)
	_, ok := g.Node(x)
	assert.False(t, ok)
	_, ok = g.Node(z)
	assert.True(t, ok)
	assert.Len(t, g.Edges(), 1)
}

func TestRemoveUnreachableCascades(t *testing.T) {
	g := NewGraph()
	x := schema.SelectivityType{Type: schema.Type{ID: 0, Alias: "x"}, Class: schema.Less}
	y := schema.SelectivityType{Type: schema.Type{ID: 1, Alias: "y"}, Class: schema.Greater}
	p := schema.Predicate{ID: 0, Alias: "p"}
	g.AddEdge(x, x, p)
	g.AddEdge(x, y, p)
	assert.Equal(t, 2, g.RemoveUnreachable())
	assert.Zero(t, g.NumNodes())
}

func TestStartNodes(t *testing.T) {
	g := Build(testutil.SocialSchema())
	starts := g.StartNodes()
	require.NotEmpty(t, starts)
	for _, n := range starts {
		if n.Type.Type.Scalable {
			assert.Equal(t, schema.Equals, n.Type.Class)
		} else {
			assert.Equal(t, schema.OneOne, n.Type.Class)
		}
	}
	assert.NotEmpty(t, g.String())
}
