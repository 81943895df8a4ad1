package edgegraph

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmark/internal/schema"
	"gmark/internal/schemagraph"
	"gmark/internal/testutil"
)

func socialGraph(t *testing.T) (*schemagraph.Graph, *schema.Schema) {
	t.Helper()
	s := testutil.SocialSchema()
	return schemagraph.Build(s), s
}

func node(t *testing.T, g *schemagraph.Graph, s *schema.Schema, alias string, c schema.SelectivityClass) *schemagraph.Node {
	t.Helper()
	typ, ok := s.TypeByAlias(alias)
	require.True(t, ok, alias)
	n, ok := g.Node(schema.SelectivityType{Type: typ, Class: c})
	require.True(t, ok, "%s %s", alias, c)
	return n
}

func TestDrawPathEndpointsAndContinuity(t *testing.T) {
	g, s := socialGraph(t)
	src := node(t, g, s, "person", schema.Equals)
	trg := node(t, g, s, "post", schema.Equals)
	eg, err := New(g, src, trg, 4)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		p, err := eg.DrawPath(r)
		require.NoError(t, err)
		require.NotZero(t, p.Len())
		require.LessOrEqual(t, p.Len(), 4)
		assert.Same(t, src, p.Source())
		assert.Same(t, trg, p.Target())
		states := p.States()
		for j, step := range p.Steps {
			assert.Same(t, states[j], step.From)
			assert.Contains(t, g.Parallel(step.From, step.To), step.Predicate)
		}
	}
}

func TestDrawPathMinRespectsFloor(t *testing.T) {
	g, s := socialGraph(t)
	src := node(t, g, s, "person", schema.Equals)
	trg := node(t, g, s, "person", schema.Equals)
	eg, err := New(g, src, trg, 6)
	require.NoError(t, err)

	r := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		p, err := eg.DrawPathMin(r, 3)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p.Len(), 3)
	}
	_, err = eg.DrawPathMin(r, 7)
	assert.True(t, errors.Is(err, ErrNoPath))
}

func TestNewReportsNoPath(t *testing.T) {
	g, s := socialGraph(t)
	// A fixed-count type never leads back to the uniform class of a growing one.
	src := node(t, g, s, "city", schema.OneOne)
	trg := node(t, g, s, "person", schema.Equals)
	_, err := New(g, src, trg, 5)
	assert.True(t, errors.Is(err, ErrNoPath))

	_, err = New(g, src, trg, 0)
	assert.Error(t, err)
}

func TestCountPathsMatchesEnumeration(t *testing.T) {
	g, s := socialGraph(t)
	src := node(t, g, s, "person", schema.Equals)
	trg := node(t, g, s, "tag", schema.NOne)
	eg, err := New(g, src, trg, 3)
	require.NoError(t, err)

	var enumerate func(n *schemagraph.Node, left int) float64
	enumerate = func(n *schemagraph.Node, left int) float64 {
		if left == 0 {
			if n == trg {
				return 1
			}
			return 0
		}
		total := 0.0
		for _, e := range g.Out(n) {
			total += enumerate(e.To, left-1)
		}
		return total
	}
	for k := 1; k <= 3; k++ {
		assert.Equal(t, enumerate(src, k), eg.CountPaths(k), "length %d", k)
	}
}

func TestSegmentsGroupDirections(t *testing.T) {
	g := schemagraph.NewGraph()
	a := schema.SelectivityType{Type: schema.Type{ID: 0, Alias: "a", Scalable: true}, Class: schema.Equals}
	b := schema.SelectivityType{Type: schema.Type{ID: 1, Alias: "b", Scalable: true}, Class: schema.Equals}
	p := schema.Predicate{ID: 0, Alias: "p"}
	q := schema.Predicate{ID: 1, Alias: "q"}
	g.AddEdge(a, b, p)
	g.AddEdge(b, a, q)
	g.AddEdge(a, b, q.Invert())
	na, _ := g.Node(a)
	nb, _ := g.Node(b)
	path := Path{Steps: []Step{
		{Layer: 0, From: na, To: nb, Predicate: p},
		{Layer: 1, From: nb, To: na, Predicate: q},
		{Layer: 2, From: na, To: nb, Predicate: q.Invert()},
	}}
	segs := path.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, []schema.Predicate{p, q}, segs[0].Labels)
	assert.True(t, segs[0].Loop())
	assert.Same(t, na, segs[0].To)
	assert.True(t, segs[1].Inverse)
	assert.Equal(t, "p◦q◦q⁻", path.String())
	assert.Equal(t, 2, path.Slice(1, 3).Len())
}

func TestCutVerticesOfLinearUnrolling(t *testing.T) {
	g := schemagraph.NewGraph()
	a := schema.SelectivityType{Type: schema.Type{ID: 0, Alias: "a", Scalable: true}, Class: schema.Equals}
	b := schema.SelectivityType{Type: schema.Type{ID: 1, Alias: "b", Scalable: true}, Class: schema.Equals}
	c := schema.SelectivityType{Type: schema.Type{ID: 2, Alias: "c", Scalable: true}, Class: schema.Equals}
	p := schema.Predicate{ID: 0, Alias: "p"}
	g.AddEdge(a, b, p)
	g.AddEdge(b, c, p)
	na, _ := g.Node(a)
	nb, _ := g.Node(b)
	nc, _ := g.Node(c)
	eg, err := New(g, na, nc, 2)
	require.NoError(t, err)
	assert.True(t, eg.IsCut(1, nb))
	assert.True(t, eg.IsCut(2, nc))
	assert.False(t, eg.IsCut(0, na))
	assert.Len(t, eg.CutVertices(), 2)
	assert.Len(t, eg.States(), 3)
}
