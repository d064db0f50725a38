package lines

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadloop/pkg/geo"
	"roadloop/pkg/graph"
)

const roads = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"highway": "residential"},
     "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 0]]}},
    {"type": "Feature", "properties": {"class": "primary", "oneway": "yes"},
     "geometry": {"type": "LineString", "coordinates": [[1, 0], [2, 0]]}},
    {"type": "Feature", "properties": {"oneway": -1},
     "geometry": {"type": "MultiLineString", "coordinates": [[[2, 0], [2, 1]], [[3, 3], [4, 4]]]}},
    {"type": "Feature", "properties": {},
     "geometry": {"type": "Point", "coordinates": [5, 5]}}
  ]
}`

func TestRead(t *testing.T) {
	got, stats, err := Read(strings.NewReader(roads))
	require.NoError(t, err)

	assert.Equal(t, Stats{Features: 4, Lines: 4, Skipped: 1}, stats)
	require.Len(t, got, 4)

	assert.Equal(t, "residential", got[0].Class)
	assert.Equal(t, graph.Bidirectional, got[0].Oneway)
	assert.Equal(t, []geo.Point{{0, 0}, {1, 0}}, got[0].Coords)

	assert.Equal(t, "primary", got[1].Class)
	assert.Equal(t, graph.Forward, got[1].Oneway)

	assert.Equal(t, graph.Reverse, got[2].Oneway)
	assert.Equal(t, graph.Reverse, got[3].Oneway)
	assert.Equal(t, []geo.Point{{3, 3}, {4, 4}}, got[3].Coords)
}

func TestReadBuildsRightAngle(t *testing.T) {
	const fc = `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 0]]}},
	  {"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[1, 0], [2, 0]]}},
	  {"type": "Feature", "properties": {}, "geometry": {"type": "LineString", "coordinates": [[2, 0], [2, 1]]}}
	]}`
	ls, _, err := Read(strings.NewReader(fc))
	require.NoError(t, err)

	g := graph.Build(ls, graph.BuildOptions{ToleranceMeters: 0.1})
	assert.Equal(t, 4, g.NumNodes())
	assert.Equal(t, 6, g.NumEdges)
}

func TestReadInvalid(t *testing.T) {
	_, _, err := Read(strings.NewReader(`{"type": "FeatureCollection", "features": [`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.geojson")
	require.NoError(t, os.WriteFile(path, []byte(roads), 0o644))

	got, _, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, got, 4)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}

func TestOneway(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  graph.Direction
	}{
		{"absent", nil, graph.Bidirectional},
		{"yes", "yes", graph.Forward},
		{"TRUE", "TRUE", graph.Forward},
		{"one", "1", graph.Forward},
		{"minus one", "-1", graph.Reverse},
		{"reverse", "reverse", graph.Reverse},
		{"no", "no", graph.Bidirectional},
		{"bool true", true, graph.Forward},
		{"bool false", false, graph.Bidirectional},
		{"number", 1.0, graph.Forward},
		{"negative number", -1.0, graph.Reverse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := geojson.Properties{}
			if tt.value != nil {
				props["oneway"] = tt.value
			}
			assert.Equal(t, tt.want, Oneway(props))
		})
	}
}
