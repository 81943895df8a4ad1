// Package schema describes a graph domain: node types, edge predicates and the
// schema edges connecting them, together with the selectivity algebra used to
// reason about how query results scale with graph size.
package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Type is a node type of the graph domain.
type Type struct {
	ID    int
	Alias string
	// Scalable types grow with the graph size; the others have a fixed count.
	Scalable bool
	Count    int
}

func (t Type) String() string {
	return t.Alias
}

// Predicate is an edge label. Every predicate has exactly one inverse sharing
// its id, so p.Invert().Invert() == p.
type Predicate struct {
	ID    int
	Alias string
	// Proportion is the fraction of graph edges carrying this label, zero when unspecified.
	Proportion float64
	Inverse    bool
}

// Invert returns the inverse of the predicate.
func (p Predicate) Invert() Predicate {
	p.Inverse = !p.Inverse
	return p
}

// Same reports whether two predicates denote the same label and direction.
func (p Predicate) Same(o Predicate) bool {
	return p.ID == o.ID && p.Inverse == o.Inverse
}

func (p Predicate) String() string {
	if p.Inverse {
		return p.Alias + "⁻"
	}
	return p.Alias
}

// DistributionType enumerates degree distribution shapes.
type DistributionType int

// Distribution types supported by schema edges.
const (
	DistUndefined DistributionType = iota
	DistUniform
	DistGaussian
	DistZipfian
)

var distributionNames = map[DistributionType]string{
	DistUndefined: "undefined",
	DistUniform:   "uniform",
	DistGaussian:  "gaussian",
	DistZipfian:   "zipfian",
}

func (d DistributionType) String() string {
	if name, ok := distributionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("distribution(%d)", int(d))
}

// ParseDistributionType maps a configuration name onto a DistributionType.
func ParseDistributionType(name string) (DistributionType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "undefined", "non_specified":
		return DistUndefined, nil
	case "uniform":
		return DistUniform, nil
	case "gaussian", "normal":
		return DistGaussian, nil
	case "zipfian", "zipf":
		return DistZipfian, nil
	}
	return DistUndefined, errors.Errorf("unknown distribution %q", name)
}

// Distribution is an in- or out-degree distribution of a schema edge.
type Distribution struct {
	Type   DistributionType
	Min    int
	Max    int
	Mean   float64
	StdDev float64
	Alpha  float64
}

// IsZipfian reports whether the distribution is heavy tailed.
func (d Distribution) IsZipfian() bool {
	return d.Type == DistZipfian
}

// Edge connects two node types through a predicate.
type Edge struct {
	ID        int
	Source    Type
	Target    Type
	Predicate Predicate
	In        Distribution
	Out       Distribution
}

// Selectivity derives the intrinsic selectivity class of the edge from type
// scalability and degree distributions. CROSS never arises here.
func (e Edge) Selectivity() SelectivityClass {
	switch {
	case !e.Source.Scalable && !e.Target.Scalable:
		return OneOne
	case e.Source.Scalable && !e.Target.Scalable:
		return NOne
	case !e.Source.Scalable && e.Target.Scalable:
		return OneN
	}
	in, out := e.In.IsZipfian(), e.Out.IsZipfian()
	switch {
	case in && out:
		return LessGreater
	case out:
		return Less
	case in:
		return Greater
	default:
		return Equals
	}
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -%s-> %s", e.Source.Alias, e.Predicate.Alias, e.Target.Alias)
}

// Schema is the resolved description of a graph domain. It is read-only after New.
type Schema struct {
	Types      []Type
	Predicates []Predicate
	Edges      []Edge
}

// New validates and assembles a schema. Type and predicate ids must equal their
// position, aliases must be unique, and every edge must reference known entries.
func New(types []Type, preds []Predicate, edges []Edge) (*Schema, error) {
	typeAlias := make(map[string]struct{}, len(types))
	for i, t := range types {
		if t.ID != i {
			return nil, errors.Errorf("type %q has id %d, expected %d", t.Alias, t.ID, i)
		}
		if t.Alias == "" {
			return nil, errors.Errorf("type %d has an empty alias", i)
		}
		if _, dup := typeAlias[t.Alias]; dup {
			return nil, errors.Errorf("duplicate type alias %q", t.Alias)
		}
		typeAlias[t.Alias] = struct{}{}
	}
	predAlias := make(map[string]struct{}, len(preds))
	for i, p := range preds {
		if p.ID != i {
			return nil, errors.Errorf("predicate %q has id %d, expected %d", p.Alias, p.ID, i)
		}
		if p.Inverse {
			return nil, errors.Errorf("predicate %q must be registered in forward direction", p.Alias)
		}
		if p.Alias == "" {
			return nil, errors.Errorf("predicate %d has an empty alias", i)
		}
		if _, dup := predAlias[p.Alias]; dup {
			return nil, errors.Errorf("duplicate predicate alias %q", p.Alias)
		}
		predAlias[p.Alias] = struct{}{}
	}
	for i, e := range edges {
		if e.Source.ID < 0 || e.Source.ID >= len(types) || types[e.Source.ID] != e.Source {
			return nil, errors.Errorf("edge %d references unknown source type %q", i, e.Source.Alias)
		}
		if e.Target.ID < 0 || e.Target.ID >= len(types) || types[e.Target.ID] != e.Target {
			return nil, errors.Errorf("edge %d references unknown target type %q", i, e.Target.Alias)
		}
		if e.Predicate.ID < 0 || e.Predicate.ID >= len(preds) || preds[e.Predicate.ID] != e.Predicate {
			return nil, errors.Errorf("edge %d references unknown predicate %q", i, e.Predicate.Alias)
		}
	}
	out := &Schema{
		Types:      append([]Type(nil), types...),
		Predicates: append([]Predicate(nil), preds...),
		Edges:      append([]Edge(nil), edges...),
	}
	for i := range out.Edges {
		out.Edges[i].ID = i
	}
	return out, nil
}

// TypeByAlias returns a type by alias if present.
func (s *Schema) TypeByAlias(alias string) (Type, bool) {
	for _, t := range s.Types {
		if t.Alias == alias {
			return t, true
		}
	}
	return Type{}, false
}

// PredicateByAlias returns a forward predicate by alias if present.
func (s *Schema) PredicateByAlias(alias string) (Predicate, bool) {
	for _, p := range s.Predicates {
		if p.Alias == alias {
			return p, true
		}
	}
	return Predicate{}, false
}

// EdgesWith returns the schema edges labelled with the given predicate id.
func (s *Schema) EdgesWith(predicateID int) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.Predicate.ID == predicateID {
			out = append(out, e)
		}
	}
	return out
}
