package query

import (
	"sort"

	"gmark/internal/schema"
)

// QuerySet is the ordered output of one workload.
type QuerySet struct {
	Name    string
	Queries []*Query
}

// Add appends q, numbering it by position.
func (s *QuerySet) Add(q *Query) {
	q.ID = len(s.Queries)
	s.Queries = append(s.Queries, q)
}

// Len returns the number of queries.
func (s *QuerySet) Len() int {
	return len(s.Queries)
}

// Stats summarizes the shape of a query set.
type Stats struct {
	Queries       int            `json:"queries"`
	Conjuncts     int            `json:"conjuncts"`
	Starred       int            `json:"starred_conjuncts"`
	ByShape       map[string]int `json:"by_shape"`
	BySelectivity map[string]int `json:"by_selectivity"`
	ByArity       map[int]int    `json:"by_arity"`
	ByConjuncts   map[int]int    `json:"by_conjunct_count"`
	AvgDiameter   float64        `json:"avg_conjunct_diameter"`
	MaxDiameter   int            `json:"max_conjunct_diameter"`
}

// Stats walks every query once.
func (s *QuerySet) Stats() Stats {
	st := Stats{
		Queries:       len(s.Queries),
		ByShape:       make(map[string]int),
		BySelectivity: make(map[string]int),
		ByArity:       make(map[int]int),
		ByConjuncts:   make(map[int]int),
	}
	diameters := 0
	for _, q := range s.Queries {
		st.ByShape[q.Shape.String()]++
		st.BySelectivity[q.Selectivity.String()]++
		st.ByArity[q.Arity()]++
		st.ByConjuncts[len(q.Conjuncts)]++
		for _, c := range q.Conjuncts {
			st.Conjuncts++
			if c.Star {
				st.Starred++
			}
			d := Diameter(c.Expr)
			diameters += d
			st.MaxDiameter = max(st.MaxDiameter, d)
		}
	}
	if st.Conjuncts > 0 {
		st.AvgDiameter = float64(diameters) / float64(st.Conjuncts)
	}
	return st
}

// LabelUse counts how often one predicate appears across a query set.
type LabelUse struct {
	Alias   string `json:"alias"`
	Forward int    `json:"forward"`
	Inverse int    `json:"inverse"`
}

// Coverage reports label usage for every schema predicate, including unused
// ones, ordered by predicate id.
func (s *QuerySet) Coverage(sc *schema.Schema) []LabelUse {
	out := make([]LabelUse, len(sc.Predicates))
	for i, p := range sc.Predicates {
		out[i].Alias = p.Alias
	}
	for _, q := range s.Queries {
		for _, p := range q.Predicates() {
			if p.ID < 0 || p.ID >= len(out) {
				continue
			}
			if p.Inverse {
				out[p.ID].Inverse++
			} else {
				out[p.ID].Forward++
			}
		}
	}
	return out
}

// SortedKeys returns the keys of a count map in ascending order.
func SortedKeys[K int | string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
