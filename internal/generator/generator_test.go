package generator

import (
	"testing"

	"github.com/pingcap/tidb/pkg/parser"
	_ "github.com/pingcap/tidb/pkg/types/parser_driver"
	"github.com/pkg/errors"

	"gmark/internal/query"
	"gmark/internal/query/cpq"
	"gmark/internal/query/rpq"
	"gmark/internal/query/syntax"
	"gmark/internal/schema"
	"gmark/internal/schemagraph"
	"gmark/internal/sqlgen"
	"gmark/internal/testutil"
)

func newGenerator(t *testing.T, w Workload) *Generator {
	t.Helper()
	s := testutil.SocialSchema()
	gen, err := New(w, s, schemagraph.Build(s), 42)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return gen
}

// TestChainArityTwo checks head size and conjunct bounds over many chain queries.
func TestChainArityTwo(t *testing.T) {
	gen := newGenerator(t, Workload{
		Name:      "chains",
		Language:  query.LangCPQ,
		Size:      1000,
		Shapes:    []query.Shape{query.ShapeChain},
		Conjuncts: Range{Min: 1, Max: 3},
		Arity:     Range{Min: 2, Max: 2},
		Length:    Range{Min: 1, Max: 3},
	})
	set, err := gen.GenerateWorkload(nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if set.Len() != 1000 {
		t.Fatalf("expected 1000 queries, got %d", set.Len())
	}
	for _, q := range set.Queries {
		if q.Arity() != 2 {
			t.Fatalf("query %d has arity %d: %s", q.ID, q.Arity(), q)
		}
		if n := len(q.Conjuncts); n < 1 || n > 3 {
			t.Fatalf("query %d has %d conjuncts", q.ID, n)
		}
		if q.Projected[0] != 0 || int(q.Projected[1]) != len(q.Conjuncts) {
			t.Fatalf("query %d projects %v instead of the chain ends", q.ID, q.Projected)
		}
		for i, c := range q.Conjuncts {
			if int(c.Source) != i || int(c.Target) != i+1 {
				t.Fatalf("query %d conjunct %d joins %s and %s", q.ID, i, c.Source, c.Target)
			}
			d := query.Diameter(c.Expr)
			if d < 1 || d > 3 {
				t.Fatalf("query %d conjunct %d has diameter %d", q.ID, i, d)
			}
		}
	}
	stats := gen.BuilderStats()
	if stats.Builds != 1000 || stats.Attempts < 1000 {
		t.Fatalf("unexpected builder stats %+v", stats)
	}
}

func TestShapesAndLanguages(t *testing.T) {
	labels := syntax.FromSchema(testutil.SocialSchema())
	p := parser.New()
	for _, lang := range []query.Language{query.LangCPQ, query.LangRPQ} {
		for _, shape := range query.AllShapes() {
			gen := newGenerator(t, Workload{
				Name:            shape.String(),
				Language:        lang,
				Size:            50,
				Shapes:          []query.Shape{shape},
				Conjuncts:       Range{Min: 2, Max: 4},
				Arity:           Range{Min: 0, Max: 4},
				Length:          Range{Min: 1, Max: 3},
				Disjuncts:       Range{Min: 1, Max: 2},
				StarProbability: 0.5,
			})
			set, err := gen.GenerateWorkload(nil)
			if err != nil {
				t.Fatalf("%s %s: %v", lang, shape, err)
			}
			for _, q := range set.Queries {
				if err := q.Validate(); err != nil {
					t.Fatalf("%s: %v", q, err)
				}
				if q.Shape != shape || q.Language != lang {
					t.Fatalf("unexpected query kind %s %s", q.Language, q.Shape)
				}
				if n := len(q.Conjuncts); n < 2 || n > 4 {
					t.Fatalf("%s has %d conjuncts", q, n)
				}
				for _, c := range q.Conjuncts {
					switch c.Expr.(type) {
					case cpq.Expr:
						if lang != query.LangCPQ {
							t.Fatalf("cpq expression in %s workload", lang)
						}
					case rpq.Expr:
						if lang != query.LangRPQ {
							t.Fatalf("rpq expression in %s workload", lang)
						}
					}
					parsed, err := query.ParseExpr(lang, c.Expr.String(), labels)
					if err != nil {
						t.Fatalf("reparse %s: %v", c.Expr, err)
					}
					if parsed.String() != c.Expr.String() {
						t.Fatalf("round trip %s became %s", c.Expr, parsed)
					}
				}
				stmt := sqlgen.CompileQuery(q)
				if _, err := p.ParseOneStmt(stmt, "", ""); err != nil {
					t.Fatalf("sql for %s does not parse: %v\n%s", q, err, stmt)
				}
			}
		}
	}
}

func TestShapeTopology(t *testing.T) {
	cases := []struct {
		shape query.Shape
		check func(q *query.Query) bool
	}{
		{query.ShapeStar, func(q *query.Query) bool {
			for _, c := range q.Conjuncts {
				if c.Source != 0 {
					return false
				}
			}
			return true
		}},
		{query.ShapeCycle, func(q *query.Query) bool {
			n := len(q.Conjuncts)
			last := q.Conjuncts[n-1]
			return int(last.Target) == n-1 && int(last.Source) < n-1 && len(q.Variables()) == n
		}},
		{query.ShapeStarChain, func(q *query.Query) bool {
			return len(q.Variables()) == len(q.Conjuncts)+1
		}},
	}
	for _, c := range cases {
		gen := newGenerator(t, Workload{
			Language:  query.LangRPQ,
			Size:      100,
			Shapes:    []query.Shape{c.shape},
			Conjuncts: Range{Min: 2, Max: 4},
			Arity:     Range{Min: 2, Max: 2},
			Length:    Range{Min: 1, Max: 2},
		})
		set, err := gen.GenerateWorkload(nil)
		if err != nil {
			t.Fatalf("%s: %v", c.shape, err)
		}
		for _, q := range set.Queries {
			if !c.check(q) {
				t.Fatalf("%s query has the wrong topology: %s", c.shape, q)
			}
		}
	}
}

func TestProgressEveryTenth(t *testing.T) {
	gen := newGenerator(t, Workload{
		Language: query.LangCPQ,
		Size:     40,
		Arity:    Range{Min: 0, Max: 2},
	})
	var calls []int
	_, err := gen.GenerateWorkload(func(done, total int) {
		if total != 40 {
			t.Fatalf("unexpected total %d", total)
		}
		calls = append(calls, done)
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(calls) != 10 || calls[0] != 4 || calls[9] != 40 {
		t.Fatalf("unexpected progress calls %v", calls)
	}
}

func TestDeterministicSeed(t *testing.T) {
	w := Workload{Language: query.LangRPQ, Size: 30, Conjuncts: Range{Min: 1, Max: 3}, Arity: Range{Min: 1, Max: 3}}
	a, err := newGenerator(t, w).GenerateWorkload(nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := newGenerator(t, w).GenerateWorkload(nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i := range a.Queries {
		if a.Queries[i].String() != b.Queries[i].String() {
			t.Fatalf("query %d differs: %s vs %s", i, a.Queries[i], b.Queries[i])
		}
	}
}

func TestUnsatisfiableWorkload(t *testing.T) {
	// From a fixed-count start only ONE_ONE and ONE_N are reachable, and the
	// schema below has no growing type to start from.
	city := schema.Type{ID: 0, Alias: "city", Count: 10}
	country := schema.Type{ID: 1, Alias: "country", Count: 3}
	in := schema.Predicate{ID: 0, Alias: "in"}
	s, err := schema.New([]schema.Type{city, country}, []schema.Predicate{in}, []schema.Edge{
		{Source: city, Target: country, Predicate: in},
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	gen, err := New(Workload{
		Language:      query.LangCPQ,
		Size:          5,
		Selectivities: []schema.SelectivityClass{schema.Cross},
	}, s, schemagraph.Build(s), 1)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := gen.Check(); !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable, got %v", err)
	}
	if _, err := gen.GenerateWorkload(nil); !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable from driver, got %v", err)
	}
}

func TestRetriesAreBounded(t *testing.T) {
	// ONE_ONE targets sit two labels away from any start, so a star whose
	// leaves are a single label long can never be built. Check rejects it;
	// forcing the loop anyway must stop after MaxRetries attempts.
	gen := newGenerator(t, Workload{
		Language:      query.LangCPQ,
		Size:          1,
		Shapes:        []query.Shape{query.ShapeStar},
		Selectivities: []schema.SelectivityClass{schema.OneOne},
		Conjuncts:     Range{Min: 2, Max: 2},
		Length:        Range{Min: 1, Max: 1},
		MaxRetries:    5,
	})
	if err := gen.Check(); !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable from check, got %v", err)
	}
	gen.checked = true
	_, err := gen.GenerateQuery()
	if !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("expected ErrUnsatisfiable, got %v", err)
	}
	stats := gen.BuilderStats()
	if stats.FailureReasons["selectivity_unreachable"] != 5 || stats.FailureReasons["exhausted"] != 1 || stats.Builds != 0 {
		t.Fatalf("unexpected builder stats %+v", stats)
	}
}

func TestCheckHonorsChainFloor(t *testing.T) {
	// person -livesIn-> city reaches N_ONE only after an odd number of
	// labels, so two single-label conjuncts in a chain never end there.
	person := schema.Type{ID: 0, Alias: "person", Scalable: true}
	city := schema.Type{ID: 1, Alias: "city", Count: 10}
	livesIn := schema.Predicate{ID: 0, Alias: "livesIn"}
	s, err := schema.New([]schema.Type{person, city}, []schema.Predicate{livesIn}, []schema.Edge{
		{Source: person, Target: city, Predicate: livesIn},
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	g := schemagraph.Build(s)
	check := func(shape query.Shape, conjuncts int) error {
		gen, err := New(Workload{
			Language:      query.LangCPQ,
			Size:          1,
			Shapes:        []query.Shape{shape},
			Selectivities: []schema.SelectivityClass{schema.NOne},
			Conjuncts:     Range{Min: conjuncts, Max: conjuncts},
			Length:        Range{Min: 1, Max: 1},
		}, s, g, 3)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		return gen.Check()
	}
	if err := check(query.ShapeChain, 2); !errors.Is(err, ErrUnsatisfiable) {
		t.Fatalf("two-conjunct chain: expected ErrUnsatisfiable, got %v", err)
	}
	if err := check(query.ShapeChain, 1); err != nil {
		t.Fatalf("one-conjunct chain: %v", err)
	}
	if err := check(query.ShapeChain, 3); err != nil {
		t.Fatalf("three-conjunct chain: %v", err)
	}
	if err := check(query.ShapeStar, 2); err != nil {
		t.Fatalf("star leaves of one label: %v", err)
	}
}

func TestWorkloadValidate(t *testing.T) {
	cases := []Workload{
		{Conjuncts: Range{Min: 3, Max: 2}},
		{Arity: Range{Min: 4, Max: 1}},
		{Length: Range{Min: 0, Max: -1}},
		{Disjuncts: Range{Min: 2, Max: 1}},
		{StarProbability: 1.5},
		{Size: -1},
		{Shapes: []query.Shape{query.ShapeCycle}, Conjuncts: Range{Min: 1, Max: 1}},
		{Selectivities: []schema.SelectivityClass{schema.SelectivityClass(42)}},
	}
	for i, w := range cases {
		w.Normalize()
		if err := w.Validate(); !errors.Is(err, ErrInvalidWorkload) {
			t.Fatalf("case %d: expected ErrInvalidWorkload, got %v", i, err)
		}
	}
	var ok Workload
	ok.Normalize()
	if err := ok.Validate(); err != nil {
		t.Fatalf("default workload: %v", err)
	}
	s := testutil.SocialSchema()
	if _, err := New(Workload{Language: query.Language(9)}, s, schemagraph.Build(s), 1); !errors.Is(err, ErrInvalidWorkload) {
		t.Fatalf("expected ErrInvalidWorkload for unknown language, got %v", err)
	}
}
