// Package osm turns OpenStreetMap extracts into road lines for the graph
// builder.
package osm

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"roadloop/pkg/geo"
	"roadloop/pkg/graph"
)

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	oneway := tags.Find("oneway")
	switch oneway {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent, skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// direction maps direction flags to a line tag. ok is false when the way is
// not traversable at all.
func direction(tags osm.Tags) (dir graph.Direction, ok bool) {
	fwd, bwd := directionFlags(tags)
	switch {
	case fwd && bwd:
		return graph.Bidirectional, true
	case fwd:
		return graph.Forward, true
	case bwd:
		return graph.Reverse, true
	default:
		return graph.Bidirectional, false
	}
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs []osm.NodeID
	Dir     graph.Direction
	Class   string
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	Bounds *geo.Bound  // if set, ways with no node inside are dropped
	Logger *log.Logger // defaults to log.Default()
}

// Stats summarizes one parse.
type Stats struct {
	Ways          int // car-accessible ways kept after pass 1
	Lines         int // lines emitted
	MissingCoords int // way node references without coordinates
	OutsideBounds int // ways dropped by the bounds filter
}

// scannerFunc opens a scanner over r for either the node or the way pass.
type scannerFunc func(ctx context.Context, r io.Reader, nodes bool) osm.Scanner

func pbfScanner(ctx context.Context, r io.Reader, nodes bool) osm.Scanner {
	s := osmpbf.New(ctx, r, 1)
	s.SkipNodes = !nodes
	s.SkipWays = nodes
	s.SkipRelations = true
	return s
}

func xmlScanner(ctx context.Context, r io.Reader, _ bool) osm.Scanner {
	return osmxml.New(ctx, r)
}

// Parse reads an OSM PBF file and returns one line per car-accessible way.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ParseOptions) ([]graph.Line, Stats, error) {
	return parse(ctx, rs, opts, pbfScanner)
}

// ParseXML is Parse for OSM XML files.
func ParseXML(ctx context.Context, rs io.ReadSeeker, opts ParseOptions) ([]graph.Line, Stats, error) {
	return parse(ctx, rs, opts, xmlScanner)
}

func parse(ctx context.Context, rs io.ReadSeeker, opts ParseOptions, open scannerFunc) ([]graph.Line, Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := open(ctx, rs, false)
	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !isCarAccessible(w.Tags) || len(w.Nodes) < 2 {
			continue
		}
		dir, ok := direction(w.Tags)
		if !ok {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}
		ways = append(ways, wayInfo{NodeIDs: nodeIDs, Dir: dir, Class: w.Tags.Find("highway")})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, Stats{}, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	logger.Debug("pass 1 complete", "ways", len(ways), "nodes", len(referencedNodes))

	// Pass 2: Scan nodes to collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, Stats{}, fmt.Errorf("seek for pass 2: %w", err)
	}

	coords := make(map[osm.NodeID]geo.Point, len(referencedNodes))
	scanner = open(ctx, rs, true)
	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		coords[n.ID] = geo.Point{n.Lon, n.Lat}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, Stats{}, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	logger.Debug("pass 2 complete", "coords", len(coords))

	lines, stats := assemble(ways, coords, opts.Bounds)
	if stats.MissingCoords > 0 {
		logger.Warn("way nodes without coordinates", "count", stats.MissingCoords)
	}
	if stats.OutsideBounds > 0 {
		logger.Info("ways outside bounding box", "count", stats.OutsideBounds)
	}
	logger.Info("parsed OSM ways", "lines", stats.Lines)
	return lines, stats, nil
}

// assemble resolves way node ids to coordinates. A missing coordinate becomes
// a NaN point so the builder breaks the line there instead of bridging it.
func assemble(ways []wayInfo, coords map[osm.NodeID]geo.Point, bounds *geo.Bound) ([]graph.Line, Stats) {
	stats := Stats{Ways: len(ways)}
	nan := geo.Point{math.NaN(), math.NaN()}
	lines := make([]graph.Line, 0, len(ways))

	for _, w := range ways {
		pts := make([]geo.Point, len(w.NodeIDs))
		inside := bounds == nil
		for i, id := range w.NodeIDs {
			p, ok := coords[id]
			if !ok {
				stats.MissingCoords++
				pts[i] = nan
				continue
			}
			pts[i] = p
			if !inside && bounds.Contains(p) {
				inside = true
			}
		}
		if !inside {
			stats.OutsideBounds++
			continue
		}
		lines = append(lines, graph.Line{Coords: pts, Oneway: w.Dir, Class: w.Class})
	}
	stats.Lines = len(lines)
	return lines, stats
}
