package schema

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// SelectivityClass describes how the number of node pairs connected by a
// relation scales with the size of the graph.
type SelectivityClass int

// The eight selectivity classes. The order is the index order of the
// conjunction table below.
const (
	// OneOne relates fixed-count nodes to fixed-count nodes.
	OneOne SelectivityClass = iota
	// NOne relates growing nodes to fixed-count nodes.
	NOne
	// OneN relates fixed-count nodes to growing nodes.
	OneN
	// Equals relates growing nodes linearly.
	Equals
	// Less relates growing nodes where the out-degree is heavy tailed.
	Less
	// Greater relates growing nodes where the in-degree is heavy tailed.
	Greater
	// LessGreater relates growing nodes where both degrees are heavy tailed.
	LessGreater
	// Cross is a quadratic (cartesian-like) relation.
	Cross
)

// NumSelectivityClasses is the size of the selectivity domain.
const NumSelectivityClasses = 8

// conjunctionTable[a][b] is a.Conjunction(b). EQUALS is a left identity for
// every class and a right identity for the growing classes; composing through
// a fixed-count middle type yields CROSS.
var conjunctionTable = [NumSelectivityClasses][NumSelectivityClasses]SelectivityClass{
	//            1:1     N:1     1:N    =            <            >            <>           x
	OneOne:      {OneOne, OneOne, OneN, OneN, OneN, OneN, OneN, OneN},
	NOne:        {NOne, NOne, Cross, Cross, Cross, Cross, Cross, Cross},
	OneN:        {OneOne, OneOne, OneN, OneN, OneN, OneN, OneN, OneN},
	Equals:      {OneOne, NOne, OneN, Equals, Less, Greater, LessGreater, Cross},
	Less:        {NOne, NOne, Cross, Less, Less, LessGreater, LessGreater, Cross},
	Greater:     {NOne, NOne, Cross, Greater, Cross, Greater, Cross, Cross},
	LessGreater: {NOne, NOne, Cross, LessGreater, Cross, LessGreater, Cross, Cross},
	Cross:       {NOne, NOne, Cross, Cross, Cross, Cross, Cross, Cross},
}

var negationTable = [NumSelectivityClasses]SelectivityClass{
	OneOne:      OneOne,
	NOne:        OneN,
	OneN:        NOne,
	Equals:      Equals,
	Less:        Greater,
	Greater:     Less,
	LessGreater: LessGreater,
	Cross:       Cross,
}

var selectivityNames = [NumSelectivityClasses]string{
	"ONE_ONE", "N_ONE", "ONE_N", "EQUALS", "LESS", "GREATER", "LESS_GREATER", "CROSS",
}

var selectivitySymbols = [NumSelectivityClasses]string{
	"1:1", "N:1", "1:N", "=", "<", ">", "<>", "x",
}

// AllSelectivityClasses returns the full selectivity domain in table order.
func AllSelectivityClasses() []SelectivityClass {
	return []SelectivityClass{OneOne, NOne, OneN, Equals, Less, Greater, LessGreater, Cross}
}

// Valid reports whether c is one of the eight classes.
func (c SelectivityClass) Valid() bool {
	return c >= OneOne && c <= Cross
}

// Conjunction composes c with a relation of class other that follows it.
func (c SelectivityClass) Conjunction(other SelectivityClass) SelectivityClass {
	return conjunctionTable[c][other]
}

// Negate returns the class of the inverse relation.
func (c SelectivityClass) Negate() SelectivityClass {
	return negationTable[c]
}

// Symbol returns the compact notation of the class, e.g. "<>" for LESS_GREATER.
func (c SelectivityClass) Symbol() string {
	if !c.Valid() {
		return "?"
	}
	return selectivitySymbols[c]
}

func (c SelectivityClass) String() string {
	if !c.Valid() {
		return fmt.Sprintf("SelectivityClass(%d)", int(c))
	}
	return selectivityNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c SelectivityClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *SelectivityClass) UnmarshalText(text []byte) error {
	parsed, err := ParseSelectivityClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseSelectivityClass accepts either the class name or its symbol.
func ParseSelectivityClass(s string) (SelectivityClass, error) {
	s = strings.TrimSpace(s)
	for i := 0; i < NumSelectivityClasses; i++ {
		if strings.EqualFold(s, selectivityNames[i]) || s == selectivitySymbols[i] {
			return SelectivityClass(i), nil
		}
	}
	return 0, errors.Errorf("unknown selectivity class %q", s)
}

// SelectivityType pairs a node type with a selectivity class. It is comparable
// and used as the node key of the schema graph.
type SelectivityType struct {
	Type  Type
	Class SelectivityClass
}

func (st SelectivityType) String() string {
	return fmt.Sprintf("(%s,%s)", st.Type.Alias, st.Class.Symbol())
}
