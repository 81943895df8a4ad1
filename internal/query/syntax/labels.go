package syntax

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"gmark/internal/schema"
)

// LabelSet maps predicate aliases to ids. Mutable sets register unseen
// aliases while parsing; frozen sets reject them.
type LabelSet struct {
	byAlias map[string]schema.Predicate
	byID    []schema.Predicate
	frozen  bool
}

// NewLabelSet returns an empty mutable label set.
func NewLabelSet() *LabelSet {
	return &LabelSet{byAlias: make(map[string]schema.Predicate)}
}

// FromSchema returns a frozen label set holding the schema predicates.
func FromSchema(s *schema.Schema) *LabelSet {
	ls := NewLabelSet()
	for _, p := range s.Predicates {
		ls.byAlias[p.Alias] = p
		ls.byID = append(ls.byID, p)
	}
	ls.frozen = true
	return ls
}

// Freeze makes the set read-only.
func (ls *LabelSet) Freeze() *LabelSet {
	ls.frozen = true
	return ls
}

// Frozen reports whether registration is rejected.
func (ls *LabelSet) Frozen() bool {
	return ls.frozen
}

// Len returns the number of registered predicates.
func (ls *LabelSet) Len() int {
	return len(ls.byID)
}

// Lookup returns the forward predicate for alias.
func (ls *LabelSet) Lookup(alias string) (schema.Predicate, bool) {
	p, ok := ls.byAlias[alias]
	return p, ok
}

// ByID returns the forward predicate with the given id.
func (ls *LabelSet) ByID(id int) (schema.Predicate, bool) {
	if id < 0 || id >= len(ls.byID) {
		return schema.Predicate{}, false
	}
	return ls.byID[id], true
}

// Register returns the predicate for alias, assigning the next id when the
// alias is new.
func (ls *LabelSet) Register(alias string) (schema.Predicate, error) {
	if p, ok := ls.byAlias[alias]; ok {
		return p, nil
	}
	if ls.frozen {
		return schema.Predicate{}, errors.Wrapf(ErrFrozen, "cannot register %q", alias)
	}
	if !ValidAlias(alias) {
		return schema.Predicate{}, errors.Wrapf(ErrMalformed, "invalid label %q", alias)
	}
	p := schema.Predicate{ID: len(ls.byID), Alias: alias}
	ls.byAlias[alias] = p
	ls.byID = append(ls.byID, p)
	return p, nil
}

// Aliases returns every registered alias in sorted order.
func (ls *LabelSet) Aliases() []string {
	out := make([]string, 0, len(ls.byAlias))
	for alias := range ls.byAlias {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

// ParseLabel resolves a predicate token. A single trailing inverse glyph
// selects the inverse predicate, which shares the forward id.
func ParseLabel(token string, labels *LabelSet) (schema.Predicate, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return schema.Predicate{}, errors.Wrap(ErrMalformed, "empty label")
	}
	alias, inverse := strings.CutSuffix(token, string(Inverse))
	if alias == "" || strings.ContainsRune(alias, Inverse) {
		return schema.Predicate{}, errors.Wrapf(ErrMalformed, "misplaced inverse marker in %q", token)
	}
	if strings.ContainsAny(alias, reserved) || alias == Identity {
		return schema.Predicate{}, errors.Wrapf(ErrMalformed, "invalid label %q", token)
	}
	p, ok := labels.Lookup(alias)
	if !ok {
		if labels.Frozen() {
			return schema.Predicate{}, errors.Wrapf(ErrUnknownLabel, "%q", alias)
		}
		var err error
		if p, err = labels.Register(alias); err != nil {
			return schema.Predicate{}, err
		}
	}
	if inverse {
		p = p.Invert()
	}
	return p, nil
}
