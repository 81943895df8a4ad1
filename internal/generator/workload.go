package generator

import (
	"github.com/pkg/errors"

	"gmark/internal/query"
	"gmark/internal/schema"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Workload describes one batch of generated queries.
type Workload struct {
	ID            int                       `json:"id"`
	Name          string                    `json:"name"`
	Language      query.Language            `json:"language"`
	Size          int                       `json:"size"`
	Shapes        []query.Shape             `json:"shapes"`
	Selectivities []schema.SelectivityClass `json:"selectivities"`
	Conjuncts     Range                     `json:"conjuncts"`
	Arity         Range                     `json:"arity"`
	// Length bounds the labels of each conjunct path.
	Length Range `json:"length"`
	// Disjuncts bounds the alternative paths combined in one conjunct: a
	// union for RPQ and an intersection for CPQ.
	Disjuncts       Range   `json:"disjuncts"`
	StarProbability float64 `json:"star_probability"`
	MaxRetries      int     `json:"max_retries"`
}

// Normalize fills unset fields with defaults.
func (w *Workload) Normalize() {
	if len(w.Shapes) == 0 {
		w.Shapes = query.AllShapes()
	}
	if len(w.Selectivities) == 0 {
		w.Selectivities = schema.AllSelectivityClasses()
	}
	if w.Conjuncts == (Range{}) {
		w.Conjuncts = Range{Min: 1, Max: 1}
	}
	if w.Length == (Range{}) {
		w.Length = Range{Min: 1, Max: DefaultLengthMax}
	}
	if w.Disjuncts == (Range{}) {
		w.Disjuncts = Range{Min: 1, Max: 1}
	}
	if w.MaxRetries == 0 {
		w.MaxRetries = DefaultMaxRetries
	}
}

// Validate rejects workloads no generation attempt could honor.
func (w Workload) Validate() error {
	if w.Size < 0 {
		return errors.Wrapf(ErrInvalidWorkload, "negative size %d", w.Size)
	}
	for name, r := range map[string]Range{
		"conjuncts": w.Conjuncts,
		"arity":     w.Arity,
		"length":    w.Length,
		"disjuncts": w.Disjuncts,
	} {
		if r.Min < 0 || r.Max < 0 {
			return errors.Wrapf(ErrInvalidWorkload, "%s bounds must not be negative: [%d,%d]", name, r.Min, r.Max)
		}
		if r.Min > r.Max {
			return errors.Wrapf(ErrInvalidWorkload, "%s min %d exceeds max %d", name, r.Min, r.Max)
		}
	}
	if w.Conjuncts.Max < 1 {
		return errors.Wrap(ErrInvalidWorkload, "queries need at least one conjunct")
	}
	if w.Length.Max < 1 {
		return errors.Wrap(ErrInvalidWorkload, "path length bound must be positive")
	}
	if w.Disjuncts.Max < 1 {
		return errors.Wrap(ErrInvalidWorkload, "conjuncts need at least one path")
	}
	if w.StarProbability < 0 || w.StarProbability > 1 {
		return errors.Wrapf(ErrInvalidWorkload, "star probability %g outside [0,1]", w.StarProbability)
	}
	if w.MaxRetries < 0 {
		return errors.Wrapf(ErrInvalidWorkload, "negative retry bound %d", w.MaxRetries)
	}
	if len(w.Shapes) == 0 || len(w.Selectivities) == 0 {
		return errors.Wrap(ErrInvalidWorkload, "no shapes or selectivities allowed")
	}
	onlyCycles := true
	for _, s := range w.Shapes {
		if s != query.ShapeCycle {
			onlyCycles = false
		}
	}
	if onlyCycles && w.Conjuncts.Max < 2 {
		return errors.Wrap(ErrInvalidWorkload, "cycles need at least two conjuncts")
	}
	for _, c := range w.Selectivities {
		if !c.Valid() {
			return errors.Wrapf(ErrInvalidWorkload, "invalid selectivity %d", int(c))
		}
	}
	return nil
}
