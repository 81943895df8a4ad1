// Package testutil holds schema fixtures shared by package tests.
package testutil

import (
	"gmark/internal/schema"
)

// SocialSchema returns a small social-network schema: people who know each
// other, live in cities, create and like posts that carry tags.
func SocialSchema() *schema.Schema {
	person := schema.Type{ID: 0, Alias: "person", Scalable: true}
	city := schema.Type{ID: 1, Alias: "city", Count: 100}
	post := schema.Type{ID: 2, Alias: "post", Scalable: true}
	tag := schema.Type{ID: 3, Alias: "tag", Count: 40}

	knows := schema.Predicate{ID: 0, Alias: "knows", Proportion: 0.3}
	livesIn := schema.Predicate{ID: 1, Alias: "livesIn", Proportion: 0.1}
	created := schema.Predicate{ID: 2, Alias: "created", Proportion: 0.2}
	hasTag := schema.Predicate{ID: 3, Alias: "hasTag", Proportion: 0.2}
	likes := schema.Predicate{ID: 4, Alias: "likes", Proportion: 0.2}

	uniform := schema.Distribution{Type: schema.DistUniform, Min: 1, Max: 4}
	zipf := schema.Distribution{Type: schema.DistZipfian, Alpha: 2.5}
	one := schema.Distribution{Type: schema.DistUniform, Min: 1, Max: 1}

	s, err := schema.New(
		[]schema.Type{person, city, post, tag},
		[]schema.Predicate{knows, livesIn, created, hasTag, likes},
		[]schema.Edge{
			{Source: person, Target: person, Predicate: knows, In: uniform, Out: zipf},
			{Source: person, Target: city, Predicate: livesIn, In: uniform, Out: one},
			{Source: person, Target: post, Predicate: created, In: one, Out: uniform},
			{Source: post, Target: tag, Predicate: hasTag, In: zipf, Out: uniform},
			{Source: person, Target: post, Predicate: likes, In: zipf, Out: uniform},
		},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// PairSchema returns two growing types linked by p (a to b) and q (b to a),
// both with uniform degrees.
func PairSchema() *schema.Schema {
	a := schema.Type{ID: 0, Alias: "a", Scalable: true}
	b := schema.Type{ID: 1, Alias: "b", Scalable: true}
	p := schema.Predicate{ID: 0, Alias: "p"}
	q := schema.Predicate{ID: 1, Alias: "q"}
	uniform := schema.Distribution{Type: schema.DistUniform, Min: 1, Max: 2}
	s, err := schema.New(
		[]schema.Type{a, b},
		[]schema.Predicate{p, q},
		[]schema.Edge{
			{Source: a, Target: b, Predicate: p, In: uniform, Out: uniform},
			{Source: b, Target: a, Predicate: q, In: uniform, Out: uniform},
		},
	)
	if err != nil {
		panic(err)
	}
	return s
}
