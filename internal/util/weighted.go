// Package util provides shared helper utilities.
//
//revive:disable:var-naming // Package name follows project convention.
package util

import "math/rand"

// PickWeighted selects an index based on float weights. Non-positive weights are
// never picked unless every weight is non-positive.
func PickWeighted(r *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return r.Intn(len(weights))
	}
	roll := r.Float64() * total
	sum := 0.0
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		sum += w
		last = i
		if roll < sum {
			return i
		}
	}
	return last
}

// Chance returns true with the given probability in [0,1].
func Chance(r *rand.Rand, prob float64) bool {
	if prob <= 0 {
		return false
	}
	if prob >= 1 {
		return true
	}
	return r.Float64() < prob
}

// UniformInt draws an integer uniformly from [lo, hi]. It returns lo when hi < lo.
func UniformInt(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](r *rand.Rand, items []T) T {
	return items[r.Intn(len(items))]
}
