package graph

import (
	"encoding/json"
	"fmt"
	"math"

	"roadloop/pkg/geo"
)

const (
	// CacheFormat identifies serialized graph records.
	CacheFormat = "roadloop-graph"
	// CacheVersion is the schema version written by Encode.
	// Version 1 records carry no via geometry; both parse.
	CacheVersion = 2
)

type cacheRecord struct {
	Format  string        `json:"format"`
	Version int           `json:"version"`
	Nodes   []cacheNode   `json:"nodes"`
	Edges   [][]cacheEdge `json:"edges"`
}

type cacheNode struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type cacheEdge struct {
	To  int         `json:"to"`
	W   float64     `json:"w"`
	Via []geo.Point `json:"via,omitempty"`
}

// Encode serializes g as a current-version cache record.
func Encode(g *Graph) ([]byte, error) {
	rec := cacheRecord{
		Format:  CacheFormat,
		Version: CacheVersion,
		Nodes:   make([]cacheNode, g.NumNodes()),
		Edges:   make([][]cacheEdge, g.NumNodes()),
	}
	for i, n := range g.Nodes {
		rec.Nodes[i] = cacheNode{Lat: n.Lat, Lon: n.Lon}
		edges := make([]cacheEdge, len(g.Adj[i]))
		for j, e := range g.Adj[i] {
			edges[j] = cacheEdge{To: e.To, W: e.Weight, Via: e.Via}
		}
		rec.Edges[i] = edges
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal graph cache: %w", err)
	}
	return data, nil
}

// Decode parses a cache record. It returns nil when the data is not a
// recognized record (malformed JSON, unknown format or version, missing
// node or edge arrays); the caller then rebuilds from raw lines.
// Edges with out-of-range targets or invalid weights are dropped.
func Decode(data []byte) *Graph {
	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	if rec.Format != CacheFormat {
		return nil
	}
	if rec.Version != CacheVersion && rec.Version != CacheVersion-1 {
		return nil
	}
	if rec.Nodes == nil || rec.Edges == nil || len(rec.Edges) > len(rec.Nodes) {
		return nil
	}

	g := New(len(rec.Nodes))
	for _, n := range rec.Nodes {
		g.AddNode(Node{Lat: n.Lat, Lon: n.Lon, Count: 1})
	}
	for u, edges := range rec.Edges {
		for _, e := range edges {
			if math.IsInf(e.W, 0) {
				continue
			}
			var via []geo.Point
			if rec.Version >= 2 {
				via = e.Via
			}
			g.SetEdge(u, e.To, e.W, via)
		}
	}
	return g
}
