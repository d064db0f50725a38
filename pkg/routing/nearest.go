package routing

import (
	"math"

	"github.com/tidwall/rtree"

	"roadloop/pkg/geo"
	"roadloop/pkg/graph"
)

// initialWindow is the starting half-width of the search box in degrees
// (roughly 220 m of latitude).
const initialWindow = 0.002

// NodeIndex answers nearest-node queries over a graph's node positions.
type NodeIndex struct {
	tree rtree.RTreeG[int]
	n    int
}

// NewNodeIndex indexes every node of g.
func NewNodeIndex(g *graph.Graph) *NodeIndex {
	ix := &NodeIndex{n: g.NumNodes()}
	for id := range g.NumNodes() {
		p := g.Position(id)
		ix.tree.Insert(p, p, id)
	}
	return ix
}

// Len returns the number of indexed nodes.
func (ix *NodeIndex) Len() int { return ix.n }

// Nearest returns the node closest to (lat, lon) by great-circle distance and
// that distance in meters. Ties go to the lower id. ok is false for an empty
// index.
//
// The box is doubled until the best candidate lies within the circle the box
// inscribes, so a closer node outside the box is impossible.
func (ix *NodeIndex) Nearest(lat, lon float64) (id int, meters float64, ok bool) {
	if ix.n == 0 {
		return -1, 0, false
	}
	cosLat := math.Cos(lat * math.Pi / 180)
	for half := initialWindow; ; half *= 2 {
		best, bestDist := -1, math.Inf(1)
		lo := [2]float64{lon - half, lat - half}
		hi := [2]float64{lon + half, lat + half}
		ix.tree.Search(lo, hi, func(min, _ [2]float64, id int) bool {
			d := geo.Haversine(lat, lon, min[1], min[0])
			if d < bestDist || (d == bestDist && id < best) {
				best, bestDist = id, d
			}
			return true
		})
		// Lower bound on the distance to anything outside the box.
		reach := 0.9 * half * geo.MetersPerDegree * cosLat
		if best >= 0 && bestDist <= reach {
			return best, bestDist, true
		}
		if half >= 360 {
			if best >= 0 {
				return best, bestDist, true
			}
			return -1, 0, false
		}
	}
}
