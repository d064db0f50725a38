// Package sample draws random start/goal pairs with a minimum separation and
// tracks when that constraint should be relaxed.
package sample

import (
	"math"
	"math/rand/v2"

	"roadloop/pkg/geo"
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// NewSeededSource returns a deterministic PCG-backed source.
func NewSeededSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))
}

// KeyGenerator draws a random key.
type KeyGenerator[K any] interface {
	Key(src RandomSource) K
}

// KeyFunc adapts a function to KeyGenerator.
type KeyFunc[K any] func(src RandomSource) K

func (f KeyFunc[K]) Key(src RandomSource) K { return f(src) }

// NodeKeys draws node ids uniformly from [0, n). n must be positive.
func NodeKeys(n int) KeyGenerator[int] {
	return KeyFunc[int](func(src RandomSource) int {
		k := int(math.Floor(src.Float64() * float64(n)))
		return min(max(k, 0), n-1)
	})
}

// PositionFunc resolves a key to a lon/lat point.
type PositionFunc[K any] func(k K) geo.Point

// DistanceFunc measures the separation of two points.
type DistanceFunc func(a, b geo.Point) float64

// Outcome is the result of one Draw.
type Outcome[K any] struct {
	Start, Goal    K
	Distance       float64
	MinDistanceMet bool
	Tries          int // draws used
}

type candidate[K any] struct {
	start, goal K
	dist        float64
}

// Draw samples start/goal pairs until one is at least minDistance apart, or
// maxTries draws have been made. In the latter case the farthest pair seen is
// returned with MinDistanceMet false. maxTries < 1 is treated as 1.
func Draw[K any](src RandomSource, keys KeyGenerator[K], pos PositionFunc[K], dist DistanceFunc, minDistance float64, maxTries int) Outcome[K] {
	maxTries = max(maxTries, 1)

	var best candidate[K]
	haveBest := false

	for try := 1; try <= maxTries; try++ {
		start := keys.Key(src)
		goal := keys.Key(src)
		d := dist(pos(start), pos(goal))

		if d >= minDistance {
			return Outcome[K]{Start: start, Goal: goal, Distance: d, MinDistanceMet: true, Tries: try}
		}
		if !haveBest || d > best.dist {
			best = candidate[K]{start: start, goal: goal, dist: d}
			haveBest = true
		}
	}

	return Outcome[K]{Start: best.start, Goal: best.goal, Distance: best.dist, Tries: maxTries}
}
