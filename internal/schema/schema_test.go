package schema

import "testing"

func TestEdgeSelectivity(t *testing.T) {
	fixed := Type{ID: 0, Alias: "city", Count: 10}
	growing := Type{ID: 1, Alias: "person", Scalable: true}
	zipf := Distribution{Type: DistZipfian, Alpha: 2.5}
	uniform := Distribution{Type: DistUniform, Min: 1, Max: 3}

	cases := []struct {
		name    string
		src     Type
		trg     Type
		in, out Distribution
		want    SelectivityClass
	}{
		{"fixed-fixed", fixed, fixed, zipf, zipf, OneOne},
		{"growing-fixed", growing, fixed, uniform, uniform, NOne},
		{"fixed-growing", fixed, growing, uniform, zipf, OneN},
		{"uniform", growing, growing, uniform, uniform, Equals},
		{"zipf-out", growing, growing, uniform, zipf, Less},
		{"zipf-in", growing, growing, zipf, uniform, Greater},
		{"zipf-both", growing, growing, zipf, zipf, LessGreater},
		{"undefined", growing, growing, Distribution{}, Distribution{}, Equals},
	}
	for _, c := range cases {
		e := Edge{Source: c.src, Target: c.trg, In: c.in, Out: c.out}
		if got := e.Selectivity(); got != c.want {
			t.Fatalf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestPredicateInverse(t *testing.T) {
	p := Predicate{ID: 3, Alias: "knows", Proportion: 0.5}
	inv := p.Invert()
	if !inv.Inverse || inv.ID != p.ID {
		t.Fatalf("unexpected inverse %+v", inv)
	}
	if inv.Invert() != p {
		t.Fatalf("double inverse differs: %+v vs %+v", inv.Invert(), p)
	}
	if inv.Same(p) {
		t.Fatalf("inverse must not equal the forward predicate")
	}
	if inv.String() != "knows⁻" {
		t.Fatalf("unexpected inverse string %q", inv.String())
	}
}

func TestNewValidatesReferences(t *testing.T) {
	types := []Type{{ID: 0, Alias: "a", Scalable: true}, {ID: 1, Alias: "b"}}
	preds := []Predicate{{ID: 0, Alias: "p"}}
	edges := []Edge{{Source: types[0], Target: types[1], Predicate: preds[0]}}
	s, err := New(types, preds, edges)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	if s.Edges[0].ID != 0 {
		t.Fatalf("expected edge ids to be assigned")
	}
	if _, ok := s.PredicateByAlias("p"); !ok {
		t.Fatalf("expected predicate lookup to succeed")
	}

	bad := []Edge{{Source: types[0], Target: Type{ID: 5, Alias: "z"}, Predicate: preds[0]}}
	if _, err := New(types, preds, bad); err == nil {
		t.Fatalf("expected unknown target type to be rejected")
	}
	if _, err := New(types, []Predicate{{ID: 0, Alias: "p", Inverse: true}}, nil); err == nil {
		t.Fatalf("expected inverse registration to be rejected")
	}
	if _, err := New([]Type{{ID: 0, Alias: "a"}, {ID: 1, Alias: "a"}}, nil, nil); err == nil {
		t.Fatalf("expected duplicate alias to be rejected")
	}
}

func TestParseDistributionType(t *testing.T) {
	got, err := ParseDistributionType("Zipfian")
	if err != nil || got != DistZipfian {
		t.Fatalf("unexpected parse result %v %v", got, err)
	}
	if _, err := ParseDistributionType("pareto"); err == nil {
		t.Fatalf("expected error for unknown distribution")
	}
}
