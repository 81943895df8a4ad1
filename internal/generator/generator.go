// Package generator draws random path queries whose shape, arity and
// selectivity follow a workload description.
package generator

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"gmark/internal/edgegraph"
	"gmark/internal/query"
	"gmark/internal/schema"
	"gmark/internal/schemagraph"
	"gmark/internal/util"
)

var (
	// ErrNoPath marks a transient miss: the drawn configuration had no path.
	ErrNoPath = edgegraph.ErrNoPath
	// ErrUnsatisfiable reports a workload that cannot produce a query.
	ErrUnsatisfiable = errors.New("workload is unsatisfiable")
	// ErrInvalidWorkload reports inconsistent workload bounds.
	ErrInvalidWorkload = errors.New("invalid workload")
)

// miss is a transient generation failure tagged with a reason for stats.
type miss struct {
	reason string
}

func (m *miss) Error() string { return m.reason + ": " + ErrNoPath.Error() }

func (m *miss) Unwrap() error { return ErrNoPath }

func missf(reason string) error {
	return &miss{reason: reason}
}

type pairKey struct {
	from, to int
	length   int
}

type cachedGraph struct {
	eg  *edgegraph.EdgeGraph
	err error
}

// Generator creates queries for one workload. It is not safe for concurrent use.
type Generator struct {
	Rand     *rand.Rand
	Schema   *schema.Schema
	Graph    *schemagraph.Graph
	Workload Workload
	Seed     int64

	builder conjunctBuilder
	graphs  map[pairKey]cachedGraph
	// targets[c][s] lists nodes of class c reachable from start s by a
	// path that fits a whole query; starts[c] holds those s in index order.
	targets map[schema.SelectivityClass]map[*schemagraph.Node][]*schemagraph.Node
	starts  map[schema.SelectivityClass][]*schemagraph.Node
	checked bool

	builderBuilds           int64
	builderAttemptsTotal    int64
	builderAttemptHistogram map[int]int64
	builderFailureReasons   map[string]int64
}

// BuilderStats captures query builder attempt metrics.
type BuilderStats struct {
	Builds            int64            `json:"builds"`
	Attempts          int64            `json:"attempts"`
	AttemptsHistogram map[int]int64    `json:"attempts_histogram,omitempty"`
	FailureReasons    map[string]int64 `json:"failure_reasons,omitempty"`
}

// New constructs a Generator with a seed. A zero seed is replaced by the clock.
func New(w Workload, s *schema.Schema, g *schemagraph.Graph, seed int64) (*Generator, error) {
	w.Normalize()
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := &Generator{
		Rand:                    rand.New(rand.NewSource(seed)),
		Schema:                  s,
		Graph:                   g,
		Workload:                w,
		Seed:                    seed,
		graphs:                  make(map[pairKey]cachedGraph),
		builderAttemptHistogram: make(map[int]int64),
		builderFailureReasons:   make(map[string]int64),
	}
	switch w.Language {
	case query.LangCPQ:
		gen.builder = &cpqBuilder{gen: gen}
	case query.LangRPQ:
		gen.builder = &rpqBuilder{gen: gen}
	default:
		return nil, errors.Wrapf(ErrInvalidWorkload, "unsupported language %s", w.Language)
	}
	return gen, nil
}

// edgeGraph memoizes edge graphs per endpoint pair and length bound.
func (g *Generator) edgeGraph(from, to *schemagraph.Node, maxLength int) (*edgegraph.EdgeGraph, error) {
	key := pairKey{from: from.Index, to: to.Index, length: maxLength}
	if c, ok := g.graphs[key]; ok {
		return c.eg, c.err
	}
	eg, err := edgegraph.New(g.Graph, from, to, maxLength)
	g.graphs[key] = cachedGraph{eg: eg, err: err}
	return eg, err
}

// Check indexes the (start, target) pairs each allowed class can use and
// fails with ErrUnsatisfiable when no allowed class has any.
func (g *Generator) Check() error {
	if g.checked {
		return nil
	}
	w := g.Workload
	longest := w.Conjuncts.Max * w.Length.Max
	spine, star := g.shapeFloors()
	g.targets = make(map[schema.SelectivityClass]map[*schemagraph.Node][]*schemagraph.Node)
	g.starts = make(map[schema.SelectivityClass][]*schemagraph.Node)
	satisfiable := 0
	for _, c := range w.Selectivities {
		if _, done := g.targets[c]; done {
			continue
		}
		byStart := make(map[*schemagraph.Node][]*schemagraph.Node)
		for _, s := range g.Graph.StartNodes() {
			for _, t := range g.Graph.NodesWithClass(c) {
				eg, err := g.edgeGraph(s, t, longest)
				if err != nil || !g.fits(eg, spine, star) {
					continue
				}
				if len(byStart[s]) == 0 {
					g.starts[c] = append(g.starts[c], s)
				}
				byStart[s] = append(byStart[s], t)
			}
		}
		if len(byStart) > 0 {
			satisfiable++
		}
		g.targets[c] = byStart
		util.Detailf("selectivity %s: %d start nodes with targets", c, len(byStart))
	}
	if satisfiable == 0 {
		return errors.Wrapf(ErrUnsatisfiable, "no allowed selectivity is reachable within %d labels", longest)
	}
	g.checked = true
	return nil
}

// shapeFloors returns the fewest conjuncts any allowed spine shape lays
// along one path (0 when only stars are allowed) and whether stars are
// allowed.
func (g *Generator) shapeFloors() (spine int, star bool) {
	w := g.Workload
	for _, s := range w.Shapes {
		var n int
		switch s {
		case query.ShapeStar:
			star = true
			continue
		case query.ShapeChain:
			n = max(w.Conjuncts.Min, 1)
		case query.ShapeCycle:
			n = max(w.Conjuncts.Min, 2) - 1
		case query.ShapeStarChain:
			n = 1
		}
		if spine == 0 || n < spine {
			spine = n
		}
	}
	return spine, star
}

// fits reports whether eg holds a path some allowed shape can use: a spine
// of at least spine conjuncts of minimum length, or a star leaf no longer
// than Length.Max.
func (g *Generator) fits(eg *edgegraph.EdgeGraph, spine int, star bool) bool {
	if spine > 0 && len(eg.Lengths(spine*g.minLength())) > 0 {
		return true
	}
	if star {
		lengths := eg.Lengths(g.minLength())
		return len(lengths) > 0 && lengths[0] <= g.Workload.Length.Max
	}
	return false
}

// GenerateQuery draws one query, retrying transient misses up to
// Workload.MaxRetries times.
func (g *Generator) GenerateQuery() (*query.Query, error) {
	if err := g.Check(); err != nil {
		return nil, err
	}
	for attempt := 1; attempt <= g.Workload.MaxRetries; attempt++ {
		q, err := g.attempt()
		if err == nil {
			g.recordBuild(attempt)
			return q, nil
		}
		var m *miss
		switch {
		case errors.As(err, &m):
			g.builderFailureReasons[m.reason]++
		case errors.Is(err, ErrNoPath):
			g.builderFailureReasons["no_path"]++
		default:
			return nil, err
		}
	}
	g.builderFailureReasons["exhausted"]++
	return nil, errors.Wrapf(ErrUnsatisfiable, "no query after %d attempts", g.Workload.MaxRetries)
}

// GenerateWorkload draws Workload.Size queries. progress, when set, is called
// synchronously every tenth of the way and at the end.
func (g *Generator) GenerateWorkload(progress func(done, total int)) (*query.QuerySet, error) {
	w := g.Workload
	set := &query.QuerySet{Name: w.Name}
	step := max(1, w.Size/ProgressSteps)
	for set.Len() < w.Size {
		q, err := g.GenerateQuery()
		if err != nil {
			return set, errors.Wrapf(err, "workload %q query %d", w.Name, set.Len())
		}
		set.Add(q)
		if progress != nil && (set.Len()%step == 0 || set.Len() == w.Size) {
			progress(set.Len(), w.Size)
		}
	}
	return set, nil
}

func (g *Generator) attempt() (*query.Query, error) {
	w := g.Workload
	shape := util.Pick(g.Rand, w.Shapes)
	class := util.Pick(g.Rand, w.Selectivities)
	lo, hi := w.Conjuncts.Min, w.Conjuncts.Max
	if shape == query.ShapeCycle {
		lo = max(lo, 2)
		if hi < lo {
			return nil, missf("cycle_too_small")
		}
	}
	n := util.UniformInt(g.Rand, max(lo, 1), hi)
	var (
		d   *draft
		err error
	)
	switch shape {
	case query.ShapeChain:
		d, err = g.chain(n, class)
	case query.ShapeStar:
		d, err = g.star(n, class)
	case query.ShapeCycle:
		d, err = g.cycle(n, class)
	case query.ShapeStarChain:
		d, err = g.starChain(n, class)
	default:
		return nil, errors.Wrapf(ErrInvalidWorkload, "unsupported shape %s", shape)
	}
	if err != nil {
		return nil, err
	}
	q := &query.Query{
		Language:    w.Language,
		Shape:       shape,
		Selectivity: class,
	}
	for _, c := range d.conjuncts {
		expr := g.builder.build(c.paths)
		star := c.paths[0].Source().Type.Type == c.paths[0].Target().Type.Type &&
			util.Chance(g.Rand, w.StarProbability)
		q.Conjuncts = append(q.Conjuncts, query.Conjunct{
			Source: c.source,
			Target: c.target,
			Star:   star,
			Expr:   expr,
		})
	}
	q.Projected = g.project(d)
	if err := q.Validate(); err != nil {
		return nil, errors.Wrap(err, "generated query")
	}
	return q, nil
}

func (g *Generator) recordBuild(attempts int) {
	g.builderBuilds++
	g.builderAttemptsTotal += int64(attempts)
	g.builderAttemptHistogram[attempts]++
}

// ResetBuilderStats clears the per-run builder metrics.
func (g *Generator) ResetBuilderStats() {
	if g == nil {
		return
	}
	g.builderBuilds = 0
	g.builderAttemptsTotal = 0
	clear(g.builderAttemptHistogram)
	clear(g.builderFailureReasons)
}

// BuilderStats returns a snapshot of builder metrics.
func (g *Generator) BuilderStats() BuilderStats {
	if g == nil {
		return BuilderStats{}
	}
	out := BuilderStats{
		Builds:   g.builderBuilds,
		Attempts: g.builderAttemptsTotal,
	}
	if len(g.builderAttemptHistogram) > 0 {
		out.AttemptsHistogram = make(map[int]int64, len(g.builderAttemptHistogram))
		for k, v := range g.builderAttemptHistogram {
			out.AttemptsHistogram[k] = v
		}
	}
	if len(g.builderFailureReasons) > 0 {
		out.FailureReasons = make(map[string]int64, len(g.builderFailureReasons))
		for k, v := range g.builderFailureReasons {
			out.FailureReasons[k] = v
		}
	}
	return out
}
