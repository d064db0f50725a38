package graph

import (
	"math"

	"roadloop/pkg/geo"
)

// Direction is the one-way tag of a line.
type Direction int

const (
	Bidirectional Direction = iota // default
	Forward                        // edges follow coordinate order only
	Reverse                        // edges run against coordinate order only
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "bidirectional"
	}
}

// Line is one road polyline as delivered by a loader.
type Line struct {
	Coords []geo.Point // lon, lat
	Oneway Direction
	Class  string     // road class; rendering metadata, ignored by the builder
	Bounds *geo.Bound // optional per-line acceptance region
}

// BuildOptions configures graph construction.
type BuildOptions struct {
	ToleranceMeters float64    // merge radius for the quantizer
	MaxNodes        int        // soft node cap; <= 0 means unlimited
	Bounds          *geo.Bound // optional global acceptance region
}

// BuildStats summarizes one construction pass.
type BuildStats struct {
	Lines    int // lines consumed
	Coords   int // coordinates accepted onto a node
	Rejected int // coordinates dropped as non-finite or out of bounds
	Capped   int // coordinates dropped because the node cap was reached
	Merged   int // coordinates merged into an existing node
}

// Build creates a graph from polylines. See BuildWithStats.
func Build(lines []Line, opts BuildOptions) *Graph {
	g, _ := BuildWithStats(lines, opts)
	return g
}

// BuildWithStats walks every line, resolves coordinates to quantized nodes and
// links consecutive valid coordinates with great-circle weighted edges.
//
// A rejected coordinate breaks the line's edge chain at that point; the chain
// resumes at the next accepted coordinate. Reaching MaxNodes stops admitting
// new nodes but coordinates that land on existing nodes are still used.
func BuildWithStats(lines []Line, opts BuildOptions) (*Graph, BuildStats) {
	q := geo.NewQuantizer(opts.ToleranceMeters)
	g := New(0)
	cells := make(map[geo.CellKey]int)
	var stats BuildStats

	resolve := func(lat, lon float64) (int, bool) {
		key := q.Key(lat, lon)
		if id, ok := cells[key]; ok {
			n := &g.Nodes[id]
			n.Count++
			n.Lat += (lat - n.Lat) / float64(n.Count)
			n.Lon += (lon - n.Lon) / float64(n.Count)
			stats.Merged++
			return id, true
		}
		if opts.MaxNodes > 0 && len(g.Nodes) >= opts.MaxNodes {
			stats.Capped++
			return 0, false
		}
		id := g.AddNode(Node{Lat: lat, Lon: lon, Count: 1})
		cells[key] = id
		return id, true
	}

	for _, line := range lines {
		stats.Lines++
		prev := -1
		var prevPt geo.Point

		for _, pt := range line.Coords {
			lon, lat := pt.Lon(), pt.Lat()
			if !accept(pt, opts.Bounds, line.Bounds) {
				stats.Rejected++
				prev = -1
				continue
			}
			id, ok := resolve(lat, lon)
			if !ok {
				prev = -1
				continue
			}
			stats.Coords++

			if prev >= 0 && prev != id {
				w := geo.Haversine(prevPt.Lat(), prevPt.Lon(), lat, lon)
				switch line.Oneway {
				case Forward:
					g.SetEdge(prev, id, w, nil)
				case Reverse:
					g.SetEdge(id, prev, w, nil)
				default:
					g.SetEdge(prev, id, w, nil)
					g.SetEdge(id, prev, w, nil)
				}
			}
			prev = id
			prevPt = pt
		}
	}

	return g, stats
}

func accept(pt geo.Point, bounds ...*geo.Bound) bool {
	lon, lat := pt.Lon(), pt.Lat()
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	for _, b := range bounds {
		if b != nil && !b.Contains(pt) {
			return false
		}
	}
	return true
}
