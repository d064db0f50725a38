package sample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadloop/pkg/geo"
)

// scripted replays fixed values, wrapping around.
type scripted struct {
	vals []float64
	i    int
}

func (s *scripted) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

// lineKeys maps a draw straight to an integer position on a line.
var lineKeys = KeyFunc[int](func(src RandomSource) int { return int(src.Float64() * 10) })

func linePos(k int) geo.Point { return geo.Point{float64(k), 0} }

func lineDist(a, b geo.Point) float64 { return math.Abs(a.Lon() - b.Lon()) }

func TestDrawReturnsFirstSatisfyingPair(t *testing.T) {
	// Pairs: (1,2) d=1, (0,3) d=3, (0,9) d=9.
	src := &scripted{vals: []float64{0.1, 0.2, 0.0, 0.3, 0.0, 0.9}}

	out := Draw(src, lineKeys, linePos, lineDist, 3, 10)
	assert.True(t, out.MinDistanceMet)
	assert.Equal(t, 2, out.Tries)
	assert.Equal(t, 0, out.Start)
	assert.Equal(t, 3, out.Goal)
	assert.Equal(t, 3.0, out.Distance)
}

func TestDrawBestEffort(t *testing.T) {
	// Pairs: (1,2) d=1, (0,4) d=4, (5,6) d=1.
	src := &scripted{vals: []float64{0.1, 0.2, 0.0, 0.4, 0.5, 0.6}}

	out := Draw(src, lineKeys, linePos, lineDist, 100, 3)
	assert.False(t, out.MinDistanceMet)
	assert.Equal(t, 3, out.Tries)
	assert.Equal(t, 0, out.Start)
	assert.Equal(t, 4, out.Goal)
	assert.Equal(t, 4.0, out.Distance)
}

func TestDrawKeepsFirstOfEqualBest(t *testing.T) {
	src := &scripted{vals: []float64{0.1, 0.3, 0.5, 0.7}}

	out := Draw(src, lineKeys, linePos, lineDist, 100, 2)
	assert.False(t, out.MinDistanceMet)
	assert.Equal(t, 1, out.Start)
	assert.Equal(t, 3, out.Goal)
}

func TestDrawAtLeastOneTry(t *testing.T) {
	for _, tries := range []int{0, -5} {
		src := &scripted{vals: []float64{0.2, 0.7}}
		out := Draw(src, lineKeys, linePos, lineDist, 100, tries)
		assert.Equal(t, 1, out.Tries)
		assert.Equal(t, 2, out.Start)
		assert.Equal(t, 7, out.Goal)
		assert.Equal(t, 2, src.i, "exactly one pair drawn")
	}
}

func TestDrawZeroMinimumAlwaysMet(t *testing.T) {
	src := &scripted{vals: []float64{0.5}}
	out := Draw(src, lineKeys, linePos, lineDist, 0, 10)
	assert.True(t, out.MinDistanceMet)
	assert.Equal(t, 1, out.Tries)
	assert.Equal(t, 0.0, out.Distance)
}

func TestDrawDeterministic(t *testing.T) {
	keys := NodeKeys(1000)
	pos := func(k int) geo.Point { return geo.Point{103.6 + float64(k%40)*0.01, 1.2 + float64(k/40)*0.01} }

	a := Draw(NewSeededSource(42), keys, pos, geo.PointDistance, 3000, 50)
	b := Draw(NewSeededSource(42), keys, pos, geo.PointDistance, 3000, 50)
	assert.Equal(t, a, b)
}

func TestNodeKeysRange(t *testing.T) {
	keys := NodeKeys(7)
	src := &scripted{vals: []float64{0, 0.14, 0.5, 0.999999, 1, -0.1}}

	want := []int{0, 0, 3, 6, 6, 0}
	for i, w := range want {
		require.Equal(t, w, keys.Key(src), "draw %d", i)
	}

	seeded := NewSeededSource(1)
	for range 1000 {
		k := keys.Key(seeded)
		require.GreaterOrEqual(t, k, 0)
		require.Less(t, k, 7)
	}
}
