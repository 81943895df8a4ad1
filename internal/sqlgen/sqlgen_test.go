package sqlgen

import (
	"database/sql"
	"sort"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmark/internal/query"
	"gmark/internal/query/cpq"
	"gmark/internal/query/rpq"
	"gmark/internal/query/tree"
	"gmark/internal/schema"
)

var (
	p0 = schema.Predicate{ID: 0, Alias: "a"}
	p1 = schema.Predicate{ID: 1, Alias: "b"}
	p2 = schema.Predicate{ID: 2, Alias: "c"}
)

func chainQuery() *query.Query {
	return &query.Query{
		Language: query.LangRPQ,
		Conjuncts: []query.Conjunct{
			{Source: 0, Target: 1, Expr: rpq.Label{Predicate: p0}},
			{Source: 1, Target: 2, Star: true, Expr: rpq.Label{Predicate: p1}},
		},
		Projected: []query.Variable{0, 2},
	}
}

func booleanQuery(second schema.Predicate) *query.Query {
	return &query.Query{
		Language: query.LangCPQ,
		Conjuncts: []query.Conjunct{
			{Source: 0, Target: 1, Expr: cpq.Label{Predicate: p0}},
			{Source: 1, Target: 0, Expr: cpq.Label{Predicate: second}},
		},
	}
}

func TestCompileGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	cases := map[string]string{
		"label":         Compile(cpq.Label{Predicate: p0}),
		"concat_single": Compile(cpq.Concat{Elems: []cpq.Expr{cpq.Label{Predicate: p0}}}),
		"inverse_label": Compile(rpq.Label{Predicate: p1.Invert()}),
		"identity":      Compile(cpq.Identity{}),
		"kleene_label":  Compile(rpq.Kleene{Inner: rpq.Label{Predicate: p0}}),
		"intersect_two": Compile(cpq.Intersect{Elems: []cpq.Expr{cpq.Label{Predicate: p0}, cpq.Label{Predicate: p1}}}),
		"concat_three":  Compile(cpq.Labels(p0, p1.Invert(), p2)),
		"query_chain":   CompileQuery(chainQuery()),
		"query_boolean": CompileQuery(booleanQuery(p0.Invert())),
	}
	for name, got := range cases {
		t.Run(name, func(t *testing.T) {
			g.Assert(t, name, []byte(got))
		})
	}
}

func TestCompileTreeMatchesBinaryExpressions(t *testing.T) {
	concat := rpq.Labels(p0, p1)
	assert.Equal(t, Compile(concat), CompileTree(rpq.ToTree(concat)))
	inter := cpq.Intersect{Elems: []cpq.Expr{cpq.Label{Predicate: p0}, cpq.Identity{}}}
	assert.Equal(t, Compile(inter), CompileTree(cpq.ToTree(inter)))
	kleene := rpq.Kleene{Inner: rpq.Disjunct{Elems: []rpq.Expr{rpq.Label{Predicate: p0}, rpq.Label{Predicate: p2}}}}
	assert.Equal(t, Compile(kleene), CompileTree(rpq.ToTree(kleene)))
	assert.Equal(t, Compile(cpq.Label{Predicate: p0}), CompileTree(tree.Edge(p0)))
}

func TestCustomLayout(t *testing.T) {
	c := New(Options{Table: "triples", SourceColumn: "s", TargetColumn: "o", LabelColumn: "p"})
	assert.Equal(t, "SELECT s AS src, o AS trg FROM triples WHERE p = 0", c.Expr(cpq.Label{Predicate: p0}))
	assert.Equal(t, "SELECT o AS src, s AS trg FROM triples WHERE p = 0", c.Expr(cpq.Label{Predicate: p0.Invert()}))
	partial := New(Options{Table: "graph"})
	assert.Equal(t, "SELECT src, trg FROM graph WHERE label = 1", partial.Expr(rpq.Label{Predicate: p1}))
}

func openEdges(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec("CREATE TABLE edge (src INTEGER, trg INTEGER, label INTEGER)")
	require.NoError(t, err)
	// label 0: 1->2->3->4, label 1: 1->2, 2->5
	for _, e := range [][3]int{{1, 2, 0}, {2, 3, 0}, {3, 4, 0}, {1, 2, 1}, {2, 5, 1}} {
		_, err = db.Exec("INSERT INTO edge (src, trg, label) VALUES (?, ?, ?)", e[0], e[1], e[2])
		require.NoError(t, err)
	}
	return db
}

func pairs(t *testing.T, db *sql.DB, stmt string) [][2]int {
	t.Helper()
	rows, err := db.Query(stmt)
	require.NoError(t, err, stmt)
	defer rows.Close()
	out := [][2]int{}
	seen := map[[2]int]bool{}
	for rows.Next() {
		var p [2]int
		require.NoError(t, rows.Scan(&p[0], &p[1]))
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	require.NoError(t, rows.Err())
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func TestExecuteOnSQLite(t *testing.T) {
	db := openEdges(t)
	a, b := rpq.Label{Predicate: p0}, rpq.Label{Predicate: p1}
	cases := []struct {
		name string
		expr query.Expression
		want [][2]int
	}{
		{"label", a, [][2]int{{1, 2}, {2, 3}, {3, 4}}},
		{"closure", rpq.Kleene{Inner: a}, [][2]int{{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4}}},
		{"nested closure", rpq.Kleene{Inner: rpq.Kleene{Inner: a}}, [][2]int{{1, 2}, {1, 3}, {1, 4}, {2, 3}, {2, 4}, {3, 4}}},
		{"intersect", cpq.Intersect{Elems: []cpq.Expr{cpq.Label{Predicate: p0}, cpq.Label{Predicate: p1}}}, [][2]int{{1, 2}}},
		{"concat inverse", cpq.Labels(p0, p1.Invert()), [][2]int{{1, 1}}},
		{"identity", cpq.Identity{}, [][2]int{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}}},
		{"closure of union", rpq.Kleene{Inner: rpq.Disjunct{Elems: []rpq.Expr{a, b}}},
			[][2]int{{1, 2}, {1, 3}, {1, 4}, {1, 5}, {2, 3}, {2, 4}, {2, 5}, {3, 4}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, pairs(t, db, Compile(c.expr)))
		})
	}
}

func TestExecuteQueriesOnSQLite(t *testing.T) {
	db := openEdges(t)
	assert.Equal(t, [][2]int{{1, 5}}, pairs(t, db, CompileQuery(chainQuery())))

	count := func(stmt string) int {
		rows, err := db.Query(stmt)
		require.NoError(t, err, stmt)
		defer rows.Close()
		n := 0
		for rows.Next() {
			var v string
			require.NoError(t, rows.Scan(&v))
			assert.Equal(t, "true", v)
			n++
		}
		require.NoError(t, rows.Err())
		return n
	}
	assert.Equal(t, 1, count(CompileQuery(booleanQuery(p0.Invert()))))
	assert.Equal(t, 0, count(CompileQuery(booleanQuery(p1))))
}

func TestQueryWithSelfLoopVariable(t *testing.T) {
	q := &query.Query{
		Conjuncts: []query.Conjunct{{Source: 0, Target: 0, Expr: cpq.Labels(p0, p0.Invert())}},
		Projected: []query.Variable{0},
	}
	stmt := CompileQuery(q)
	assert.Contains(t, stmt, "WHERE r0.src = r0.trg")
	assert.Contains(t, stmt, "SELECT DISTINCT r0.src AS x0 FROM")
	assert.Panics(t, func() {
		CompileQuery(&query.Query{Conjuncts: q.Conjuncts, Projected: []query.Variable{9}})
	})
}
