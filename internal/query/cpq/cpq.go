// Package cpq models conjunctive path queries: labels, identity,
// concatenation and intersection.
package cpq

import (
	"strings"

	"github.com/pkg/errors"

	"gmark/internal/query/syntax"
	"gmark/internal/query/tree"
	"gmark/internal/schema"
)

// Expr is a CPQ expression: Label, Identity, Concat or Intersect.
type Expr interface {
	String() string
	cpq()
}

// Label matches one edge label, possibly inverse.
type Label struct {
	Predicate schema.Predicate
}

// Identity relates every node to itself.
type Identity struct{}

// Concat joins its elements end to start.
type Concat struct {
	Elems []Expr
}

// Intersect keeps the pairs matched by every element.
type Intersect struct {
	Elems []Expr
}

func (Label) cpq()     {}
func (Identity) cpq()  {}
func (Concat) cpq()    {}
func (Intersect) cpq() {}

// NewConcat builds a concatenation of at least one element.
func NewConcat(elems ...Expr) (Concat, error) {
	if len(elems) == 0 {
		return Concat{}, errors.Wrap(syntax.ErrMalformed, "empty concatenation")
	}
	return Concat{Elems: elems}, nil
}

// NewIntersect builds an intersection of at least one element.
func NewIntersect(elems ...Expr) (Intersect, error) {
	if len(elems) == 0 {
		return Intersect{}, errors.Wrap(syntax.ErrMalformed, "empty intersection")
	}
	return Intersect{Elems: elems}, nil
}

// Labels wraps each predicate and concatenates them.
func Labels(preds ...schema.Predicate) Concat {
	elems := make([]Expr, len(preds))
	for i, p := range preds {
		elems[i] = Label{Predicate: p}
	}
	return Concat{Elems: elems}
}

func (l Label) String() string { return l.Predicate.String() }

func (Identity) String() string { return syntax.Identity }

func (c Concat) String() string { return join(c.Elems, syntax.Join) }

func (i Intersect) String() string { return join(i.Elems, syntax.Intersect) }

func join(elems []Expr, op rune) string {
	if len(elems) == 1 {
		return elems[0].String()
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, string(op)) + ")"
}

// ToTree lowers e to the binary syntax tree.
func ToTree(e Expr) *tree.Node {
	switch v := e.(type) {
	case Label:
		return tree.Edge(v.Predicate)
	case Identity:
		return tree.Identity()
	case Concat:
		return tree.Fold(tree.OpConcatenation, toTrees(v.Elems))
	case Intersect:
		return tree.Fold(tree.OpIntersection, toTrees(v.Elems))
	}
	panic(errors.Errorf("unexpected cpq expression %T", e))
}

func toTrees(elems []Expr) []*tree.Node {
	out := make([]*tree.Node, len(elems))
	for i, e := range elems {
		out[i] = ToTree(e)
	}
	return out
}

// Diameter is the length of the longest label chain a match must follow.
func Diameter(e Expr) int {
	switch v := e.(type) {
	case Label:
		return 1
	case Identity:
		return 0
	case Concat:
		total := 0
		for _, x := range v.Elems {
			total += Diameter(x)
		}
		return total
	case Intersect:
		longest := 0
		for _, x := range v.Elems {
			longest = max(longest, Diameter(x))
		}
		return longest
	}
	panic(errors.Errorf("unexpected cpq expression %T", e))
}

// Predicates lists the labels of e in textual order.
func Predicates(e Expr) []schema.Predicate {
	return ToTree(e).Labels()
}

// Parse reads the textual form. Intersection binds loosest, then
// concatenation; parentheses group.
func Parse(s string, labels *syntax.LabelSet) (Expr, error) {
	s, err := syntax.Clean(s)
	if err != nil {
		return nil, err
	}
	if parts, err := syntax.Split(s, syntax.Intersect); err != nil {
		return nil, err
	} else if len(parts) > 1 {
		elems, err := parseAll(parts, labels)
		if err != nil {
			return nil, err
		}
		return NewIntersect(elems...)
	}
	if parts, err := syntax.Split(s, syntax.Join); err != nil {
		return nil, err
	} else if len(parts) > 1 {
		elems, err := parseAll(parts, labels)
		if err != nil {
			return nil, err
		}
		return NewConcat(elems...)
	}
	if inner, ok := syntax.StripParens(s); ok {
		return Parse(inner, labels)
	}
	if s == syntax.Identity {
		return Identity{}, nil
	}
	p, err := syntax.ParseLabel(s, labels)
	if err != nil {
		return nil, err
	}
	return Label{Predicate: p}, nil
}

func parseAll(parts []string, labels *syntax.LabelSet) ([]Expr, error) {
	out := make([]Expr, len(parts))
	for i, part := range parts {
		e, err := Parse(part, labels)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}
