package graph

// UnionFind implements a disjoint-set data structure with path halving
// and union by rank.
type UnionFind struct {
	parent []int
	rank   []byte // byte is sufficient, max rank ~30 for realistic graphs
	size   []int
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int, n)
	size := make([]int, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{
		parent: parent,
		rank:   make([]byte, n),
		size:   size,
	}
}

// Find returns the representative of the set containing x.
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y int) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the size of the set containing x.
func (uf *UnionFind) Size(x int) int {
	return uf.size[uf.Find(x)]
}

// LargestComponent returns the ids of the largest weakly connected component
// (edges treated as undirected), in ascending order.
func LargestComponent(g *Graph) []int {
	n := g.NumNodes()
	if n == 0 {
		return nil
	}

	uf := NewUnionFind(n)
	for u := range n {
		for _, e := range g.Adj[u] {
			uf.Union(u, e.To)
		}
	}

	bestRoot, bestSize := 0, 0
	for i := range n {
		root := uf.Find(i)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	nodes := make([]int, 0, bestSize)
	for i := range n {
		if uf.Find(i) == bestRoot {
			nodes = append(nodes, i)
		}
	}
	return nodes
}

// Subgraph returns a new graph containing only the given nodes, reindexed
// densely in the order given, together with the old -> new id mapping
// (-1 for dropped nodes). Edges touching a dropped node, or pointing outside
// the source graph, are discarded.
func Subgraph(g *Graph, nodes []int) (*Graph, []int) {
	oldToNew := make([]int, g.NumNodes())
	for i := range oldToNew {
		oldToNew[i] = -1
	}

	out := New(len(nodes))
	for _, old := range nodes {
		if old < 0 || old >= g.NumNodes() || oldToNew[old] >= 0 {
			continue
		}
		oldToNew[old] = out.AddNode(g.Nodes[old])
	}

	for _, oldU := range nodes {
		if oldU < 0 || oldU >= g.NumNodes() {
			continue
		}
		u := oldToNew[oldU]
		for _, e := range g.Adj[oldU] {
			if e.To < 0 || e.To >= len(oldToNew) {
				continue
			}
			if v := oldToNew[e.To]; v >= 0 {
				out.SetEdge(u, v, e.Weight, e.Via)
			}
		}
	}
	return out, oldToNew
}
