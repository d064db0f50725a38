package graph

import (
	"fmt"
	"math"

	"roadloop/pkg/geo"
)

// Node is a deduplicated road junction or shape point. Its position is the
// running average of every coordinate that quantized onto it.
type Node struct {
	Lat   float64
	Lon   float64
	Count int // number of coordinates merged into this node
}

// Edge is a directed, weighted edge. Via holds intermediate geometry of a
// contracted shortcut and is used for rendering only.
type Edge struct {
	To     int
	Weight float64 // meters
	Via    []geo.Point
}

// Graph is a directed graph with dense node ids [0, NumNodes).
//
// Adj[u] lists u's outgoing edges; Cost[u] maps target -> weight for the same
// edges. Both are owned per node and only mutated while the graph is being
// built or contracted. Consumers treat a handed-out Graph as read-only.
type Graph struct {
	Nodes    []Node
	Adj      [][]Edge
	Cost     []map[int]float64
	NumEdges int // directed edge count
}

// New returns an empty graph with capacity for n nodes.
func New(n int) *Graph {
	return &Graph{
		Nodes: make([]Node, 0, n),
		Adj:   make([][]Edge, 0, n),
		Cost:  make([]map[int]float64, 0, n),
	}
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.Nodes) }

// AddNode appends a node and returns its id.
func (g *Graph) AddNode(n Node) int {
	g.Nodes = append(g.Nodes, n)
	g.Adj = append(g.Adj, nil)
	g.Cost = append(g.Cost, nil)
	return len(g.Nodes) - 1
}

// SetEdge installs u->v unless an existing u->v edge is strictly cheaper.
// Ties replace the existing edge. Self-edges and out-of-range ids are dropped.
// Returns true if the edge was installed.
func (g *Graph) SetEdge(u, v int, w float64, via []geo.Point) bool {
	n := len(g.Nodes)
	if u == v || u < 0 || v < 0 || u >= n || v >= n {
		return false
	}
	if math.IsNaN(w) || w < 0 {
		return false
	}
	if old, ok := g.Cost[u][v]; ok {
		if w > old {
			return false
		}
		for i := range g.Adj[u] {
			if g.Adj[u][i].To == v {
				g.Adj[u][i] = Edge{To: v, Weight: w, Via: via}
				break
			}
		}
		g.Cost[u][v] = w
		return true
	}
	if g.Cost[u] == nil {
		g.Cost[u] = make(map[int]float64, 2)
	}
	g.Cost[u][v] = w
	g.Adj[u] = append(g.Adj[u], Edge{To: v, Weight: w, Via: via})
	g.NumEdges++
	return true
}

// Neighbors returns the outgoing edges of u.
func (g *Graph) Neighbors(u int) []Edge {
	return g.Adj[u]
}

// EdgeWeight returns the weight of u->v.
func (g *Graph) EdgeWeight(u, v int) (float64, bool) {
	if u < 0 || u >= len(g.Cost) {
		return 0, false
	}
	w, ok := g.Cost[u][v]
	return w, ok
}

// Edge returns the u->v edge including its via geometry.
func (g *Graph) Edge(u, v int) (Edge, bool) {
	if u < 0 || u >= len(g.Adj) {
		return Edge{}, false
	}
	for _, e := range g.Adj[u] {
		if e.To == v {
			return e, true
		}
	}
	return Edge{}, false
}

// Position returns node u as a lon/lat point.
func (g *Graph) Position(u int) geo.Point {
	n := g.Nodes[u]
	return geo.Point{n.Lon, n.Lat}
}

// Validate checks the dense-id and adjacency invariants.
func (g *Graph) Validate() error {
	n := len(g.Nodes)
	if len(g.Adj) != n || len(g.Cost) != n {
		return fmt.Errorf("adjacency length %d / cost length %d != nodes %d", len(g.Adj), len(g.Cost), n)
	}
	count := 0
	for u, edges := range g.Adj {
		if len(edges) != len(g.Cost[u]) {
			return fmt.Errorf("node %d: %d edges but %d cost entries", u, len(edges), len(g.Cost[u]))
		}
		for _, e := range edges {
			if e.To < 0 || e.To >= n {
				return fmt.Errorf("edge %d->%d: target out of range [0, %d)", u, e.To, n)
			}
			if e.To == u {
				return fmt.Errorf("self-edge on node %d", u)
			}
			if w, ok := g.Cost[u][e.To]; !ok || w != e.Weight {
				return fmt.Errorf("edge %d->%d: cost lookup mismatch", u, e.To)
			}
		}
		count += len(edges)
	}
	if count != g.NumEdges {
		return fmt.Errorf("NumEdges = %d, counted %d", g.NumEdges, count)
	}
	return nil
}
