// Package syntax holds the glyphs and low-level parsing helpers shared by the
// CPQ and RPQ textual forms.
package syntax

import (
	"strings"

	"github.com/pkg/errors"
)

// Operator glyphs of the textual query syntax.
const (
	Join      = '◦'
	Intersect = '∩'
	Union     = '∪'
	Star      = '*'
	Inverse   = '⁻'
	Open      = '('
	Close     = ')'

	Identity = "id"
)

var (
	// ErrMalformed reports text that does not follow the query grammar.
	ErrMalformed = errors.New("malformed query")
	// ErrUnknownLabel reports an alias missing from a frozen label set.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrFrozen reports an attempt to register into a frozen label set.
	ErrFrozen = errors.New("label set is frozen")
)

// Split divides s on every top-level occurrence of op, skipping parenthesized
// regions. Unbalanced parentheses yield ErrMalformed.
func Split(s string, op rune) ([]string, error) {
	var (
		parts []string
		depth int
		start int
	)
	for i, ch := range s {
		switch ch {
		case Open:
			depth++
		case Close:
			depth--
			if depth < 0 {
				return nil, errors.Wrapf(ErrMalformed, "unexpected ')' at byte %d in %q", i, s)
			}
		case op:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + len(string(op))
			}
		}
	}
	if depth != 0 {
		return nil, errors.Wrapf(ErrMalformed, "unbalanced parentheses in %q", s)
	}
	return append(parts, s[start:]), nil
}

// StripParens removes one pair of parentheses enclosing all of s. It reports
// false when s is not wrapped as a whole, as in "(a)◦(b)".
func StripParens(s string) (string, bool) {
	if len(s) < 2 || s[0] != Open || s[len(s)-1] != Close {
		return s, false
	}
	depth := 0
	for i, ch := range s {
		switch ch {
		case Open:
			depth++
		case Close:
			depth--
			if depth == 0 && i != len(s)-1 {
				return s, false
			}
		}
	}
	return s[1 : len(s)-1], true
}

// StripStar removes one trailing Kleene glyph.
func StripStar(s string) (string, bool) {
	if strings.HasSuffix(s, string(Star)) {
		return strings.TrimSuffix(s, string(Star)), true
	}
	return s, false
}

// Clean trims surrounding whitespace and rejects empty operands.
func Clean(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.Wrap(ErrMalformed, "empty operand")
	}
	return s, nil
}

const reserved = "◦∩∪*()"

// ValidAlias reports whether alias can be used as a predicate token.
func ValidAlias(alias string) bool {
	if alias == "" || alias == Identity {
		return false
	}
	return !strings.ContainsAny(alias, reserved+string(Inverse)) && !strings.ContainsAny(alias, " \t\n")
}
