// Package query holds generated queries: conjuncts over variables, projected
// heads, and the sets a workload collects.
package query

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"gmark/internal/query/cpq"
	"gmark/internal/query/rpq"
	"gmark/internal/query/syntax"
	"gmark/internal/query/tree"
	"gmark/internal/schema"
)

// Language selects the path algebra of a query.
type Language int

// Supported query languages.
const (
	LangCPQ Language = iota
	LangRPQ
)

func (l Language) String() string {
	switch l {
	case LangCPQ:
		return "cpq"
	case LangRPQ:
		return "rpq"
	}
	return fmt.Sprintf("language(%d)", int(l))
}

// MarshalText implements encoding.TextMarshaler.
func (l Language) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Language) UnmarshalText(text []byte) error {
	parsed, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLanguage maps a configuration name onto a Language.
func ParseLanguage(name string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cpq":
		return LangCPQ, nil
	case "rpq":
		return LangRPQ, nil
	}
	return 0, errors.Errorf("unknown query language %q", name)
}

// Shape is the topology of a query's conjuncts.
type Shape int

// Query shapes.
const (
	ShapeChain Shape = iota
	ShapeStar
	ShapeCycle
	ShapeStarChain
)

var shapeNames = map[Shape]string{
	ShapeChain:     "chain",
	ShapeStar:      "star",
	ShapeCycle:     "cycle",
	ShapeStarChain: "starchain",
}

func (s Shape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(text []byte) error {
	parsed, err := ParseShape(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AllShapes lists every shape in declaration order.
func AllShapes() []Shape {
	return []Shape{ShapeChain, ShapeStar, ShapeCycle, ShapeStarChain}
}

// ParseShape maps a configuration name onto a Shape.
func ParseShape(name string) (Shape, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "", "_", "").Replace(key)
	for s, n := range shapeNames {
		if n == key {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown query shape %q", name)
}

// Expression is a cpq.Expr or an rpq.Expr.
type Expression interface {
	String() string
}

// ParseExpr reads the textual form of an expression in the given language.
func ParseExpr(lang Language, s string, labels *syntax.LabelSet) (Expression, error) {
	switch lang {
	case LangCPQ:
		return cpq.Parse(s, labels)
	case LangRPQ:
		return rpq.Parse(s, labels)
	}
	return nil, errors.Errorf("unsupported language %s", lang)
}

// ToTree lowers either language to the shared syntax tree.
func ToTree(e Expression) *tree.Node {
	switch v := e.(type) {
	case cpq.Expr:
		return cpq.ToTree(v)
	case rpq.Expr:
		return rpq.ToTree(v)
	}
	panic(errors.Errorf("unexpected expression %T", e))
}

// Diameter returns the label length of e.
func Diameter(e Expression) int {
	switch v := e.(type) {
	case cpq.Expr:
		return cpq.Diameter(v)
	case rpq.Expr:
		return rpq.Diameter(v)
	}
	panic(errors.Errorf("unexpected expression %T", e))
}

// Variable is a query variable, rendered ?x<n>.
type Variable int

func (v Variable) String() string {
	return fmt.Sprintf("?x%d", int(v))
}

// Conjunct constrains Source and Target to be joined by Expr. Starred
// conjuncts match the transitive closure of Expr.
type Conjunct struct {
	Source Variable
	Target Variable
	Star   bool
	Expr   Expression
}

// Body renders the path expression including the closure marker.
func (c Conjunct) Body() string {
	body := c.Expr.String()
	if c.Star {
		body += string(syntax.Star)
	}
	return body
}

func (c Conjunct) String() string {
	return fmt.Sprintf("(%s, %s, %s)", c.Source, c.Body(), c.Target)
}

// Tree lowers the conjunct's expression.
func (c Conjunct) Tree() *tree.Node {
	return ToTree(c.Expr)
}

// Query is one generated query.
type Query struct {
	ID          int
	Language    Language
	Shape       Shape
	Selectivity schema.SelectivityClass
	Conjuncts   []Conjunct
	Projected   []Variable
}

// Arity is the number of projected variables.
func (q *Query) Arity() int {
	return len(q.Projected)
}

// Variables lists the distinct variables of the body in first-use order.
func (q *Query) Variables() []Variable {
	seen := make(map[Variable]bool)
	var out []Variable
	for _, c := range q.Conjuncts {
		for _, v := range []Variable{c.Source, c.Target} {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Validate checks that the head only projects body variables.
func (q *Query) Validate() error {
	if len(q.Conjuncts) == 0 {
		return errors.New("query has no conjuncts")
	}
	vars := q.Variables()
	if len(q.Projected) > len(vars) {
		return errors.Errorf("arity %d exceeds %d body variables", len(q.Projected), len(vars))
	}
	known := make(map[Variable]bool, len(vars))
	for _, v := range vars {
		known[v] = true
	}
	seen := make(map[Variable]bool, len(q.Projected))
	for _, v := range q.Projected {
		if !known[v] {
			return errors.Errorf("projected variable %s is not used in the body", v)
		}
		if seen[v] {
			return errors.Errorf("variable %s projected twice", v)
		}
		seen[v] = true
	}
	return nil
}

// Diameter sums the label lengths of the conjuncts.
func (q *Query) Diameter() int {
	total := 0
	for _, c := range q.Conjuncts {
		total += Diameter(c.Expr)
	}
	return total
}

// Predicates lists every label used by the body.
func (q *Query) Predicates() []schema.Predicate {
	var out []schema.Predicate
	for _, c := range q.Conjuncts {
		out = append(out, c.Tree().Labels()...)
	}
	return out
}

func (q *Query) String() string {
	head := make([]string, len(q.Projected))
	for i, v := range q.Projected {
		head[i] = v.String()
	}
	body := make([]string, len(q.Conjuncts))
	for i, c := range q.Conjuncts {
		body[i] = c.String()
	}
	return fmt.Sprintf("(%s) <- %s", strings.Join(head, ", "), strings.Join(body, ", "))
}
