// Package ch compresses a road graph by contracting chains of degree-two
// shape nodes into single shortcut edges.
package ch

import (
	"slices"

	"roadloop/pkg/geo"
	"roadloop/pkg/graph"
)

// Stats summarizes one contraction pass.
type Stats struct {
	Chains        int // chains with at least one interior node
	Contracted    int // interior nodes removed
	Shortcuts     int // shortcut edges installed
	CyclesSkipped int // all-degree-two cycles left intact
}

// Contract returns a new graph with every maximal chain of degree-two nodes
// replaced by shortcut edges between the chain endpoints. See ContractWithStats.
func Contract(g *graph.Graph) *graph.Graph {
	out, _ := ContractWithStats(g)
	return out
}

// ContractWithStats contracts g and reports what it did.
//
// A node is contractible iff it has exactly two distinct undirected
// neighbors. Nodes with three or more neighbors (true intersections) and dead
// ends are never removed. A cycle made only of contractible nodes has no
// endpoint to anchor a shortcut and is left untouched.
//
// Shortest-path weights and reachability between surviving nodes are
// preserved. Node ids are reissued densely in their original relative order.
func ContractWithStats(g *graph.Graph) (*graph.Graph, Stats) {
	var stats Stats
	n := g.NumNodes()
	if n == 0 {
		return graph.New(0), stats
	}

	nbrs := undirectedNeighbors(g)
	contractible := func(u int) bool { return len(nbrs[u]) == 2 }

	visited := make([]bool, n)
	contracted := make([]bool, n)
	var chains [][]int

	for seed := range n {
		if visited[seed] || !contractible(seed) {
			continue
		}
		visited[seed] = true

		left, leftCycle := walk(seed, nbrs[seed][0], nbrs, visited)
		if leftCycle {
			stats.CyclesSkipped++
			continue
		}
		right, _ := walk(seed, nbrs[seed][1], nbrs, visited)

		// left runs seed-outward, so reverse it to start at endpoint A.
		slices.Reverse(left)
		chain := make([]int, 0, len(left)+len(right)+1)
		chain = append(chain, left...)
		chain = append(chain, seed)
		chain = append(chain, right...)
		if len(chain) < 3 {
			continue
		}

		for _, u := range chain[1 : len(chain)-1] {
			contracted[u] = true
		}
		stats.Chains++
		stats.Contracted += len(chain) - 2
		chains = append(chains, chain)
	}

	survivors := make([]int, 0, n-stats.Contracted)
	for u := range n {
		if !contracted[u] {
			survivors = append(survivors, u)
		}
	}

	out, oldToNew := graph.Subgraph(g, survivors)

	for _, chain := range chains {
		a, b := chain[0], chain[len(chain)-1]
		if a == b {
			// Loop hanging off a single junction; never on a shortest path.
			continue
		}
		if w, via, ok := traverse(g, chain); ok {
			if out.SetEdge(oldToNew[a], oldToNew[b], w, via) {
				stats.Shortcuts++
			}
		}
		reversed := slices.Clone(chain)
		slices.Reverse(reversed)
		if w, via, ok := traverse(g, reversed); ok {
			if out.SetEdge(oldToNew[b], oldToNew[a], w, via) {
				stats.Shortcuts++
			}
		}
	}

	return out, stats
}

// undirectedNeighbors returns the sorted distinct neighbors of every node,
// combining both edge directions.
func undirectedNeighbors(g *graph.Graph) [][]int {
	n := g.NumNodes()
	sets := make([]map[int]struct{}, n)
	add := func(u, v int) {
		if sets[u] == nil {
			sets[u] = make(map[int]struct{}, 2)
		}
		sets[u][v] = struct{}{}
	}
	for u := range n {
		for _, e := range g.Adj[u] {
			if e.To < 0 || e.To >= n || e.To == u {
				continue
			}
			add(u, e.To)
			add(e.To, u)
		}
	}

	nbrs := make([][]int, n)
	for u, set := range sets {
		if len(set) == 0 {
			continue
		}
		list := make([]int, 0, len(set))
		for v := range set {
			list = append(list, v)
		}
		slices.Sort(list)
		nbrs[u] = list
	}
	return nbrs
}

// walk follows contractible nodes outward from seed through first and
// returns the visited nodes in walk order, ending with the first
// non-contractible endpoint. cycle is true if the walk came back to seed.
func walk(seed, first int, nbrs [][]int, visited []bool) (path []int, cycle bool) {
	prev, cur := seed, first
	for len(nbrs[cur]) == 2 {
		if cur == seed {
			return path, true
		}
		visited[cur] = true
		path = append(path, cur)

		next := nbrs[cur][0]
		if next == prev {
			next = nbrs[cur][1]
		}
		prev, cur = cur, next
	}
	return append(path, cur), false
}

// traverse sums the directed edge weights along chain and collects the
// rendering geometry between its endpoints. ok is false if any hop is missing.
func traverse(g *graph.Graph, chain []int) (weight float64, via []geo.Point, ok bool) {
	for i := 0; i+1 < len(chain); i++ {
		e, found := g.Edge(chain[i], chain[i+1])
		if !found {
			return 0, nil, false
		}
		weight += e.Weight
		via = append(via, e.Via...)
		if i+2 < len(chain) {
			via = append(via, g.Position(chain[i+1]))
		}
	}
	return weight, via, true
}
