// Package lines loads road polylines from GeoJSON.
package lines

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"roadloop/pkg/graph"
)

// Stats summarizes one load.
type Stats struct {
	Features int // features in the collection
	Lines    int // lines emitted
	Skipped  int // features with non-line geometry
}

// Load reads a GeoJSON FeatureCollection from path.
func Load(path string) ([]graph.Line, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a GeoJSON FeatureCollection. LineString features become one
// line and MultiLineString features one line per part. Other geometry is
// skipped. The "oneway" property sets the direction and "highway" or "class"
// the road class.
func Read(r io.Reader) ([]graph.Line, Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("reading geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("decoding geojson: %w", err)
	}

	stats := Stats{Features: len(fc.Features)}
	var out []graph.Line
	for _, f := range fc.Features {
		dir := Oneway(f.Properties)
		class := roadClass(f.Properties)

		switch geom := f.Geometry.(type) {
		case orb.LineString:
			out = append(out, graph.Line{Coords: points(geom), Oneway: dir, Class: class})
		case orb.MultiLineString:
			for _, ls := range geom {
				out = append(out, graph.Line{Coords: points(ls), Oneway: dir, Class: class})
			}
		default:
			stats.Skipped++
		}
	}
	stats.Lines = len(out)
	return out, stats, nil
}

// Oneway maps a feature's "oneway" property to a direction. Strings
// yes/true/1 and -1/reverse, booleans and numbers are understood; anything
// else is two-way.
func Oneway(props geojson.Properties) graph.Direction {
	switch v := props["oneway"].(type) {
	case bool:
		if v {
			return graph.Forward
		}
	case float64:
		switch v {
		case 1:
			return graph.Forward
		case -1:
			return graph.Reverse
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true", "1":
			return graph.Forward
		case "-1", "reverse":
			return graph.Reverse
		}
	}
	return graph.Bidirectional
}

func roadClass(props geojson.Properties) string {
	if s := props.MustString("highway", ""); s != "" {
		return s
	}
	return props.MustString("class", "")
}

func points(ls orb.LineString) []orb.Point {
	pts := make([]orb.Point, len(ls))
	copy(pts, ls)
	return pts
}
