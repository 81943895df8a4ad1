// Package sqlgen lowers path expressions and generated queries to SQL over a
// single edge table. Every fragment is a two-column (src, trg) relation so
// fragments nest freely.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"gmark/internal/query"
	"gmark/internal/query/cpq"
	"gmark/internal/query/rpq"
	"gmark/internal/query/tree"
	"gmark/internal/schema"
)

// Options names the edge table and its columns.
type Options struct {
	Table        string
	SourceColumn string
	TargetColumn string
	LabelColumn  string
}

// DefaultOptions targets edge(src, trg, label).
func DefaultOptions() Options {
	return Options{Table: "edge", SourceColumn: "src", TargetColumn: "trg", LabelColumn: "label"}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.Table == "" {
		o.Table = def.Table
	}
	if o.SourceColumn == "" {
		o.SourceColumn = def.SourceColumn
	}
	if o.TargetColumn == "" {
		o.TargetColumn = def.TargetColumn
	}
	if o.LabelColumn == "" {
		o.LabelColumn = def.LabelColumn
	}
	return o
}

// Compiler emits SQL for one table layout. It holds no other state.
type Compiler struct {
	opts Options
}

// New returns a compiler; empty option fields take their defaults.
func New(opts Options) *Compiler {
	return &Compiler{opts: opts.normalize()}
}

var defaultCompiler = New(DefaultOptions())

// Compile lowers a CPQ or RPQ expression with the default layout.
func Compile(e query.Expression) string {
	return defaultCompiler.Expr(e)
}

// CompileTree lowers a syntax tree with the default layout.
func CompileTree(n *tree.Node) string {
	return defaultCompiler.Tree(n)
}

// CompileQuery lowers a whole query with the default layout.
func CompileQuery(q *query.Query) string {
	return defaultCompiler.Query(q)
}

func as(column, alias string) string {
	if column == alias {
		return column
	}
	return column + " AS " + alias
}

func (c *Compiler) label(p schema.Predicate) string {
	src, trg := c.opts.SourceColumn, c.opts.TargetColumn
	if p.Inverse {
		return fmt.Sprintf("SELECT %s AS src, %s AS trg FROM %s WHERE %s = %d",
			trg, src, c.opts.Table, c.opts.LabelColumn, p.ID)
	}
	return fmt.Sprintf("SELECT %s, %s FROM %s WHERE %s = %d",
		as(src, "src"), as(trg, "trg"), c.opts.Table, c.opts.LabelColumn, p.ID)
}

func (c *Compiler) identity() string {
	src, trg, table := c.opts.SourceColumn, c.opts.TargetColumn, c.opts.Table
	return fmt.Sprintf("SELECT %s AS src, %s AS trg FROM %s UNION SELECT %s AS src, %s AS trg FROM %s",
		src, src, table, trg, trg, table)
}

func concat(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT s0.src AS src, s%d.trg AS trg FROM ", len(parts)-1)
	for i, p := range parts {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%s) AS s%d", p, i)
	}
	b.WriteString(" WHERE ")
	for i := 0; i+1 < len(parts); i++ {
		if i > 0 {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "s%d.trg = s%d.src", i, i+1)
	}
	return b.String()
}

func setOp(parts []string, op, alias string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	blocks := make([]string, len(parts))
	for i, p := range parts {
		blocks[i] = fmt.Sprintf("SELECT src, trg FROM (%s) AS %s%d", p, alias, i)
	}
	return strings.Join(blocks, " "+op+" ")
}

func closure(inner string) string {
	return "WITH RECURSIVE base(src, trg) AS (" + inner + "), " + closureCTE("tc", "base") + " SELECT src, trg FROM tc"
}

// closureCTE defines name as the transitive closure of the relation base.
func closureCTE(name, base string) string {
	return fmt.Sprintf("%s(src, trg) AS (SELECT src, trg FROM %s UNION SELECT head.src, tail.trg FROM %s AS head JOIN %s AS tail ON head.trg = tail.src)",
		name, base, base, name)
}

// Expr lowers a CPQ or RPQ expression.
func (c *Compiler) Expr(e query.Expression) string {
	switch v := e.(type) {
	case cpq.Expr:
		return c.cpq(v)
	case rpq.Expr:
		return c.rpq(v)
	}
	panic(errors.Errorf("unexpected expression %T", e))
}

func (c *Compiler) cpq(e cpq.Expr) string {
	switch v := e.(type) {
	case cpq.Label:
		return c.label(v.Predicate)
	case cpq.Identity:
		return c.identity()
	case cpq.Concat:
		return concat(c.cpqAll(v.Elems))
	case cpq.Intersect:
		return setOp(c.cpqAll(v.Elems), "INTERSECT", "i")
	}
	panic(errors.Errorf("unexpected cpq expression %T", e))
}

func (c *Compiler) cpqAll(elems []cpq.Expr) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = c.cpq(e)
	}
	return out
}

func (c *Compiler) rpq(e rpq.Expr) string {
	switch v := e.(type) {
	case rpq.Label:
		return c.label(v.Predicate)
	case rpq.Concat:
		return concat(c.rpqAll(v.Elems))
	case rpq.Disjunct:
		return setOp(c.rpqAll(v.Elems), "UNION", "u")
	case rpq.Kleene:
		return closure(c.rpq(v.Inner))
	}
	panic(errors.Errorf("unexpected rpq expression %T", e))
}

func (c *Compiler) rpqAll(elems []rpq.Expr) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = c.rpq(e)
	}
	return out
}

// Tree lowers a binary syntax tree.
func (c *Compiler) Tree(n *tree.Node) string {
	switch n.Op {
	case tree.OpEdge:
		return c.label(n.Label)
	case tree.OpIdentity:
		return c.identity()
	case tree.OpConcatenation:
		return concat([]string{c.Tree(n.Left), c.Tree(n.Right)})
	case tree.OpIntersection:
		return setOp([]string{c.Tree(n.Left), c.Tree(n.Right)}, "INTERSECT", "i")
	case tree.OpDisjunction:
		return setOp([]string{c.Tree(n.Left), c.Tree(n.Right)}, "UNION", "u")
	case tree.OpKleene:
		return closure(c.Tree(n.Left))
	}
	panic(errors.Errorf("unexpected operation %s", n.Op))
}

type occurrence struct {
	conjunct int
	column   string
}

func (o occurrence) String() string {
	return fmt.Sprintf("r%d.%s", o.conjunct, o.column)
}

// Query lowers a generated query. Each conjunct becomes the CTE c<i>, starred
// conjuncts read from their closure c<i>tc, and shared variables become join
// conditions. Arity zero yields a single 'true' row when the body matches.
func (c *Compiler) Query(q *query.Query) string {
	var (
		ctes      []string
		recursive bool
		from      []string
	)
	for i, conj := range q.Conjuncts {
		name := fmt.Sprintf("c%d", i)
		ctes = append(ctes, fmt.Sprintf("%s(src, trg) AS (%s)", name, c.Expr(conj.Expr)))
		rel := name
		if conj.Star {
			recursive = true
			rel = name + "tc"
			ctes = append(ctes, closureCTE(rel, name))
		}
		from = append(from, fmt.Sprintf("%s AS r%d", rel, i))
	}

	seen := make(map[query.Variable][]occurrence)
	var order []query.Variable
	for i, conj := range q.Conjuncts {
		for _, slot := range []struct {
			v   query.Variable
			col string
		}{{conj.Source, "src"}, {conj.Target, "trg"}} {
			if _, ok := seen[slot.v]; !ok {
				order = append(order, slot.v)
			}
			seen[slot.v] = append(seen[slot.v], occurrence{conjunct: i, column: slot.col})
		}
	}
	var conds []string
	for _, v := range order {
		occ := seen[v]
		for _, o := range occ[1:] {
			conds = append(conds, fmt.Sprintf("%s = %s", occ[0], o))
		}
	}
	body := "FROM " + strings.Join(from, ", ")
	if len(conds) > 0 {
		body += " WHERE " + strings.Join(conds, " AND ")
	}

	var b strings.Builder
	b.WriteString("WITH ")
	if recursive {
		b.WriteString("RECURSIVE ")
	}
	b.WriteString(strings.Join(ctes, ", "))
	b.WriteString(" ")
	if len(q.Projected) == 0 {
		fmt.Fprintf(&b, "SELECT 'true' FROM (SELECT 1 AS one) AS unit WHERE EXISTS (SELECT * %s)", body)
		return b.String()
	}
	cols := make([]string, len(q.Projected))
	for i, v := range q.Projected {
		occ, ok := seen[v]
		if !ok {
			panic(errors.Errorf("projected variable %s is not bound by the body", v))
		}
		cols[i] = fmt.Sprintf("%s AS x%d", occ[0], int(v))
	}
	fmt.Fprintf(&b, "SELECT DISTINCT %s %s", strings.Join(cols, ", "), body)
	return b.String()
}
