package graph

import (
	"encoding/json"
	"testing"

	"roadloop/pkg/geo"
)

func viaGraph() *Graph {
	g := Build(rightAngleLines(), BuildOptions{ToleranceMeters: 0.1})
	g.SetEdge(0, 2, 1, []geo.Point{{1, 0}})
	return g
}

func TestCacheRoundTrip(t *testing.T) {
	g := viaGraph()

	data, err := Encode(g)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	loaded := Decode(data)
	if loaded == nil {
		t.Fatal("Decode returned nil")
	}
	if err := loaded.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if loaded.NumNodes() != g.NumNodes() || loaded.NumEdges != g.NumEdges {
		t.Fatalf("got %d nodes / %d edges, want %d / %d", loaded.NumNodes(), loaded.NumEdges, g.NumNodes(), g.NumEdges)
	}
	for i := range g.Nodes {
		if loaded.Nodes[i].Lat != g.Nodes[i].Lat || loaded.Nodes[i].Lon != g.Nodes[i].Lon {
			t.Errorf("node %d = %+v, want %+v", i, loaded.Nodes[i], g.Nodes[i])
		}
	}
	e, ok := loaded.Edge(0, 2)
	if !ok {
		t.Fatal("missing shortcut 0->2")
	}
	if len(e.Via) != 1 || e.Via[0] != (geo.Point{1, 0}) {
		t.Errorf("Via = %v, want [[1 0]]", e.Via)
	}
}

func TestDecodeVersionOne(t *testing.T) {
	data := []byte(`{
		"format": "roadloop-graph",
		"version": 1,
		"nodes": [{"lat": 0, "lon": 0}, {"lat": 0, "lon": 1}],
		"edges": [[{"to": 1, "w": 111195}], [{"to": 0, "w": 111195}]]
	}`)
	g := Decode(data)
	if g == nil {
		t.Fatal("Decode(v1) returned nil")
	}
	if g.NumEdges != 2 {
		t.Errorf("NumEdges = %d, want 2", g.NumEdges)
	}
	if w, _ := g.EdgeWeight(0, 1); w != 111195 {
		t.Errorf("weight = %f, want 111195", w)
	}
}

func TestDecodeRejects(t *testing.T) {
	valid := map[string]any{
		"format":  CacheFormat,
		"version": CacheVersion,
		"nodes":   []map[string]float64{{"lat": 0, "lon": 0}},
		"edges":   [][]any{{}},
	}
	mutate := func(key string, val any) []byte {
		rec := make(map[string]any, len(valid))
		for k, v := range valid {
			rec[k] = v
		}
		if val == nil {
			delete(rec, key)
		} else {
			rec[key] = val
		}
		data, _ := json.Marshal(rec)
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("not json")},
		{"unknown format", mutate("format", "something-else")},
		{"future version", mutate("version", CacheVersion+1)},
		{"ancient version", mutate("version", 0)},
		{"missing nodes", mutate("nodes", nil)},
		{"missing edges", mutate("edges", nil)},
		{"more edge lists than nodes", mutate("edges", [][]any{{}, {}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if g := Decode(tt.data); g != nil {
				t.Errorf("Decode = %+v, want nil", g)
			}
		})
	}

	if Decode(mutate("format", CacheFormat)) == nil {
		t.Error("baseline record should decode")
	}
}

func TestDecodeDropsBadEdges(t *testing.T) {
	data := []byte(`{
		"format": "roadloop-graph",
		"version": 2,
		"nodes": [{"lat": 0, "lon": 0}, {"lat": 0, "lon": 1}],
		"edges": [[{"to": 1, "w": 5}, {"to": 7, "w": 5}, {"to": 1, "w": -1}], []]
	}`)
	g := Decode(data)
	if g == nil {
		t.Fatal("Decode returned nil")
	}
	if g.NumEdges != 1 {
		t.Errorf("NumEdges = %d, want 1", g.NumEdges)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
