package routing

import (
	"math"

	"roadloop/pkg/geo"
	"roadloop/pkg/graph"
)

// RoadSpace adapts a road graph to Space. Keys are node ids and the
// heuristic is great-circle distance between node positions, scaled so it
// never exceeds an edge weight.
//
// Edge weights are measured between raw coordinates while node positions are
// merge averages, so an edge can be shorter than the distance between its
// endpoints. Scaling by the smallest weight/distance ratio keeps the
// heuristic admissible and consistent on every path.
type RoadSpace struct {
	g     *graph.Graph
	nbrs  [][]int
	scale float64
}

// NewRoadSpace precomputes per-node neighbor id lists and the heuristic
// scale for g.
func NewRoadSpace(g *graph.Graph) *RoadSpace {
	nbrs := make([][]int, g.NumNodes())
	scale := 1.0
	for u, edges := range g.Adj {
		ids := make([]int, len(edges))
		for i, e := range edges {
			ids[i] = e.To
			if d := geo.PointDistance(g.Position(u), g.Position(e.To)); d > 0 && e.Weight < d*scale {
				scale = max(e.Weight/d, 0)
			}
		}
		nbrs[u] = ids
	}
	return &RoadSpace{g: g, nbrs: nbrs, scale: scale}
}

// Scale returns the factor applied to great-circle distance; 1 unless some
// edge is shorter than the distance between its endpoint positions.
func (s *RoadSpace) Scale() float64 { return s.scale }

// Graph returns the underlying graph.
func (s *RoadSpace) Graph() *graph.Graph { return s.g }

func (s *RoadSpace) Neighbors(u int) []int {
	if !s.Valid(u) {
		return nil
	}
	return s.nbrs[u]
}

func (s *RoadSpace) Cost(u, v int) float64 {
	w, ok := s.g.EdgeWeight(u, v)
	if !ok {
		return math.Inf(1)
	}
	return w
}

func (s *RoadSpace) Heuristic(u, goal int) float64 {
	return s.scale * geo.PointDistance(s.g.Position(u), s.g.Position(goal))
}

// Valid reports whether u is a node id of the graph.
func (s *RoadSpace) Valid(u int) bool {
	return u >= 0 && u < s.g.NumNodes()
}
