// Package rpq models regular path queries: labels, concatenation,
// disjunction and Kleene closure.
package rpq

import (
	"strings"

	"github.com/pkg/errors"

	"gmark/internal/query/syntax"
	"gmark/internal/query/tree"
	"gmark/internal/schema"
)

// Expr is an RPQ expression: Label, Concat, Disjunct or Kleene.
type Expr interface {
	String() string
	rpq()
}

// Label matches one edge label, possibly inverse.
type Label struct {
	Predicate schema.Predicate
}

// Concat joins its elements end to start.
type Concat struct {
	Elems []Expr
}

// Disjunct matches the pairs of any element.
type Disjunct struct {
	Elems []Expr
}

// Kleene matches one or more repetitions of Inner.
type Kleene struct {
	Inner Expr
}

func (Label) rpq()    {}
func (Concat) rpq()   {}
func (Disjunct) rpq() {}
func (Kleene) rpq()   {}

// NewConcat builds a concatenation of at least one element.
func NewConcat(elems ...Expr) (Concat, error) {
	if len(elems) == 0 {
		return Concat{}, errors.Wrap(syntax.ErrMalformed, "empty concatenation")
	}
	return Concat{Elems: elems}, nil
}

// NewDisjunct builds a disjunction of at least one element.
func NewDisjunct(elems ...Expr) (Disjunct, error) {
	if len(elems) == 0 {
		return Disjunct{}, errors.Wrap(syntax.ErrMalformed, "empty disjunction")
	}
	return Disjunct{Elems: elems}, nil
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

func (c Concat) String() string { return join(c.Elems, syntax.Join) }

func (d Disjunct) String() string { return join(d.Elems, syntax.Union) }

func (k Kleene) String() string { return k.Inner.String() + string(syntax.Star) }

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
	case Concat:
		return tree.Fold(tree.OpConcatenation, toTrees(v.Elems))
	case Disjunct:
		return tree.Fold(tree.OpDisjunction, toTrees(v.Elems))
	case Kleene:
		return tree.Kleene(ToTree(v.Inner))
	}
	panic(errors.Errorf("unexpected rpq expression %T", e))
}

func toTrees(elems []Expr) []*tree.Node {
	out := make([]*tree.Node, len(elems))
	for i, e := range elems {
		out[i] = ToTree(e)
	}
	return out
}

// Diameter is the label length of the shortest unfolding: closures count
// one iteration and disjunctions their longest branch.
func Diameter(e Expr) int {
	switch v := e.(type) {
	case Label:
		return 1
	case Concat:
		total := 0
		for _, x := range v.Elems {
			total += Diameter(x)
		}
		return total
	case Disjunct:
		longest := 0
		for _, x := range v.Elems {
			longest = max(longest, Diameter(x))
		}
		return longest
	case Kleene:
		return Diameter(v.Inner)
	}
	panic(errors.Errorf("unexpected rpq expression %T", e))
}

// Predicates lists the labels of e in textual order.
func Predicates(e Expr) []schema.Predicate {
	return ToTree(e).Labels()
}

// HasClosure reports whether e contains a Kleene closure.
func HasClosure(e Expr) bool {
	switch v := e.(type) {
	case Kleene:
		return true
	case Concat:
		return anyClosure(v.Elems)
	case Disjunct:
		return anyClosure(v.Elems)
	}
	return false
}

func anyClosure(elems []Expr) bool {
	for _, x := range elems {
		if HasClosure(x) {
			return true
		}
	}
	return false
}

// Parse reads the textual form. Disjunction binds loosest, then
// concatenation, then the postfix closure; parentheses group.
func Parse(s string, labels *syntax.LabelSet) (Expr, error) {
	s, err := syntax.Clean(s)
	if err != nil {
		return nil, err
	}
	if parts, err := syntax.Split(s, syntax.Union); err != nil {
		return nil, err
	} else if len(parts) > 1 {
		elems, err := parseAll(parts, labels)
		if err != nil {
			return nil, err
		}
		return NewDisjunct(elems...)
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
	if inner, ok := syntax.StripStar(s); ok {
		e, err := Parse(inner, labels)
		if err != nil {
			return nil, err
		}
		return Kleene{Inner: e}, nil
	}
	if inner, ok := syntax.StripParens(s); ok {
		return Parse(inner, labels)
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
