package routing

import (
	"context"
	"errors"

	"roadloop/pkg/graph"
)

// DefaultMaxSnapMeters is the farthest a query point may be from its nearest node.
const DefaultMaxSnapMeters = 500.0

var (
	// ErrNoRoute is returned when no route exists between the two points.
	ErrNoRoute = errors.New("no route found")
	// ErrPointTooFar is returned when the query point is too far from any road.
	ErrPointTooFar = errors.New("point too far from road")
	// ErrStepLimit is returned when the search budget runs out first.
	ErrStepLimit = errors.New("search step limit reached")
)

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Segment represents a road segment in the route result.
type Segment struct {
	DistanceMeters float64
	Geometry       []LatLng
}

// RouteResult is the output of a route query.
type RouteResult struct {
	TotalDistanceMeters float64
	Steps               int // search expansions
	Nodes               []int
	Segments            []Segment
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

// EngineConfig tunes an Engine. Zero values select defaults.
type EngineConfig struct {
	MaxSnapMeters float64
	MaxSteps      int
}

// Engine implements Router by snapping both points to their nearest nodes
// and running A* to completion.
type Engine struct {
	g       *graph.Graph
	space   *RoadSpace
	index   *NodeIndex
	maxSnap float64
	steps   int
}

// NewEngine creates a routing engine over g. g must not change afterwards.
func NewEngine(g *graph.Graph, cfg EngineConfig) *Engine {
	maxSnap := cfg.MaxSnapMeters
	if maxSnap <= 0 {
		maxSnap = DefaultMaxSnapMeters
	}
	return &Engine{
		g:       g,
		space:   NewRoadSpace(g),
		index:   NewNodeIndex(g),
		maxSnap: maxSnap,
		steps:   cfg.MaxSteps,
	}
}

// Space returns the engine's search adapter.
func (e *Engine) Space() *RoadSpace { return e.space }

// Index returns the engine's nearest-node index.
func (e *Engine) Index() *NodeIndex { return e.index }

// Snap returns the node nearest to p.
func (e *Engine) Snap(p LatLng) (int, error) {
	id, d, ok := e.index.Nearest(p.Lat, p.Lng)
	if !ok || d > e.maxSnap {
		return -1, ErrPointTooFar
	}
	return id, nil
}

// Route computes the shortest path between two points.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	src, err := e.Snap(start)
	if err != nil {
		return nil, err
	}
	dst, err := e.Snap(end)
	if err != nil {
		return nil, err
	}

	search := NewSearch(src, dst, Space[int](e.space), WithMaxSteps[int](e.steps))
	snap, err := search.Run(ctx)
	if err != nil {
		return nil, err
	}

	switch snap.Status {
	case Found:
	case MaxSteps:
		return nil, ErrStepLimit
	default:
		return nil, ErrNoRoute
	}

	return &RouteResult{
		TotalDistanceMeters: snap.Cost,
		Steps:               snap.Steps,
		Nodes:               snap.Path,
		Segments: []Segment{{
			DistanceMeters: snap.Cost,
			Geometry:       e.buildGeometry(snap.Path),
		}},
	}, nil
}

// buildGeometry converts a node path into coordinates, expanding the via
// points of contracted shortcut edges.
func (e *Engine) buildGeometry(nodes []int) []LatLng {
	if len(nodes) == 0 {
		return nil
	}
	g := e.g
	at := func(u int) LatLng {
		n := g.Nodes[u]
		return LatLng{Lat: n.Lat, Lng: n.Lon}
	}

	geom := []LatLng{at(nodes[0])}
	for i := 0; i+1 < len(nodes); i++ {
		if edge, ok := g.Edge(nodes[i], nodes[i+1]); ok {
			for _, p := range edge.Via {
				geom = append(geom, LatLng{Lat: p.Lat(), Lng: p.Lon()})
			}
		}
		geom = append(geom, at(nodes[i+1]))
	}
	return geom
}
