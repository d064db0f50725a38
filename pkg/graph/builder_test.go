package graph

import (
	"math"
	"testing"

	"roadloop/pkg/geo"
)

func line(dir Direction, coords ...geo.Point) Line {
	return Line{Coords: coords, Oneway: dir}
}

// rightAngleLines is a three-line network forming an "L":
//
//	(0,0) --- (1,0) --- (2,0)
//	                      |
//	                    (2,1)
func rightAngleLines() []Line {
	return []Line{
		line(Bidirectional, geo.Point{0, 0}, geo.Point{1, 0}),
		line(Bidirectional, geo.Point{1, 0}, geo.Point{2, 0}),
		line(Bidirectional, geo.Point{2, 0}, geo.Point{2, 1}),
	}
}

func TestBuildRightAngle(t *testing.T) {
	g := Build(rightAngleLines(), BuildOptions{ToleranceMeters: 0.1})

	if g.NumNodes() != 4 {
		t.Fatalf("NumNodes = %d, want 4", g.NumNodes())
	}
	if g.NumEdges != 6 {
		t.Fatalf("NumEdges = %d, want 6", g.NumEdges)
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	// The shared endpoint (1,0) was seen twice.
	if g.Nodes[1].Count != 2 {
		t.Errorf("Nodes[1].Count = %d, want 2", g.Nodes[1].Count)
	}
	w, ok := g.EdgeWeight(0, 1)
	if !ok {
		t.Fatal("missing edge 0->1")
	}
	want := geo.Haversine(0, 0, 0, 1)
	if math.Abs(w-want) > 1e-6 {
		t.Errorf("weight 0->1 = %f, want %f", w, want)
	}
}

func TestBuildEmpty(t *testing.T) {
	g := Build(nil, BuildOptions{ToleranceMeters: 1})
	if g.NumNodes() != 0 {
		t.Errorf("NumNodes = %d, want 0", g.NumNodes())
	}
	if g.NumEdges != 0 {
		t.Errorf("NumEdges = %d, want 0", g.NumEdges)
	}
}

func TestBuildOneway(t *testing.T) {
	tests := []struct {
		name    string
		dir     Direction
		fwd     bool
		reverse bool
	}{
		{"bidirectional", Bidirectional, true, true},
		{"forward", Forward, true, false},
		{"reverse", Reverse, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build([]Line{line(tt.dir, geo.Point{103.8, 1.3}, geo.Point{103.801, 1.3})}, BuildOptions{ToleranceMeters: 1})
			if _, ok := g.EdgeWeight(0, 1); ok != tt.fwd {
				t.Errorf("edge 0->1 present = %v, want %v", ok, tt.fwd)
			}
			if _, ok := g.EdgeWeight(1, 0); ok != tt.reverse {
				t.Errorf("edge 1->0 present = %v, want %v", ok, tt.reverse)
			}
		})
	}
}

func TestBuildMergesNearbyCoordinates(t *testing.T) {
	// Two lines whose shared junction differs by ~1 cm.
	lines := []Line{
		line(Bidirectional, geo.Point{103.8000, 1.3}, geo.Point{103.8010, 1.3}),
		line(Bidirectional, geo.Point{103.80100005, 1.3}, geo.Point{103.8020, 1.3}),
	}
	g := Build(lines, BuildOptions{ToleranceMeters: 5})
	if g.NumNodes() != 3 {
		t.Fatalf("NumNodes = %d, want 3", g.NumNodes())
	}

	// Running average of the two junction coordinates.
	junction := g.Nodes[1]
	wantLon := (103.8010 + 103.80100005) / 2
	if math.Abs(junction.Lon-wantLon) > 1e-12 {
		t.Errorf("junction lon = %.10f, want %.10f", junction.Lon, wantLon)
	}
	if junction.Count != 2 {
		t.Errorf("junction count = %d, want 2", junction.Count)
	}
}

func TestBuildDuplicateKeepsMinimum(t *testing.T) {
	a, b, c := geo.Point{103.8, 1.3}, geo.Point{103.81, 1.3}, geo.Point{103.805, 1.31}
	lines := []Line{
		// Long way round via c, then the direct road.
		line(Forward, a, c),
		line(Forward, a, b),
		line(Forward, a, b),
	}
	g := Build(lines, BuildOptions{ToleranceMeters: 1})
	if g.NumEdges != 2 {
		t.Errorf("NumEdges = %d, want 2", g.NumEdges)
	}
	if len(g.Adj[0]) != 2 {
		t.Errorf("node 0 has %d edges, want 2", len(g.Adj[0]))
	}
}

func TestBuildSelfEdgeDropped(t *testing.T) {
	// Both coordinates fall into the same cell.
	g := Build([]Line{line(Bidirectional, geo.Point{103.8, 1.3}, geo.Point{103.8000001, 1.3})}, BuildOptions{ToleranceMeters: 10})
	if g.NumNodes() != 1 {
		t.Fatalf("NumNodes = %d, want 1", g.NumNodes())
	}
	if g.NumEdges != 0 {
		t.Errorf("NumEdges = %d, want 0", g.NumEdges)
	}
}

func TestBuildRejectedCoordinateBreaksChain(t *testing.T) {
	lines := []Line{line(Bidirectional,
		geo.Point{103.80, 1.3},
		geo.Point{103.81, 1.3},
		geo.Point{math.NaN(), 1.3},
		geo.Point{103.82, 1.3},
		geo.Point{103.83, 1.3},
	)}
	g, stats := BuildWithStats(lines, BuildOptions{ToleranceMeters: 1})

	if g.NumNodes() != 4 {
		t.Fatalf("NumNodes = %d, want 4", g.NumNodes())
	}
	if stats.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", stats.Rejected)
	}
	if _, ok := g.EdgeWeight(1, 2); ok {
		t.Error("chain should break at the NaN coordinate, but 1->2 exists")
	}
	if g.NumEdges != 4 {
		t.Errorf("NumEdges = %d, want 4", g.NumEdges)
	}
}

func TestBuildBounds(t *testing.T) {
	bounds := geo.Bound{Min: geo.Point{103.0, 1.0}, Max: geo.Point{104.0, 2.0}}
	lines := []Line{line(Bidirectional,
		geo.Point{103.5, 1.5},
		geo.Point{105.0, 1.5}, // outside
		geo.Point{103.6, 1.5},
	)}

	g, stats := BuildWithStats(lines, BuildOptions{ToleranceMeters: 1, Bounds: &bounds})
	if g.NumNodes() != 2 {
		t.Fatalf("NumNodes = %d, want 2", g.NumNodes())
	}
	if g.NumEdges != 0 {
		t.Errorf("NumEdges = %d, want 0 (chain broken by out-of-bounds point)", g.NumEdges)
	}
	if stats.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", stats.Rejected)
	}

	// Per-line bounds apply as well.
	inner := geo.Bound{Min: geo.Point{103.55, 1.0}, Max: geo.Point{104.0, 2.0}}
	lines[0].Bounds = &inner
	g = Build(lines, BuildOptions{ToleranceMeters: 1, Bounds: &bounds})
	if g.NumNodes() != 1 {
		t.Errorf("NumNodes with line bounds = %d, want 1", g.NumNodes())
	}
}

func TestBuildNodeCap(t *testing.T) {
	lines := []Line{line(Bidirectional,
		geo.Point{103.80, 1.3},
		geo.Point{103.81, 1.3},
		geo.Point{103.82, 1.3}, // would be node 2: capped
		geo.Point{103.83, 1.3}, // capped
		geo.Point{103.81, 1.3}, // existing node: accepted
		geo.Point{103.80, 1.3}, // existing node: accepted
	)}
	g, stats := BuildWithStats(lines, BuildOptions{ToleranceMeters: 1, MaxNodes: 2})

	if g.NumNodes() != 2 {
		t.Fatalf("NumNodes = %d, want 2", g.NumNodes())
	}
	if stats.Capped != 2 {
		t.Errorf("Capped = %d, want 2", stats.Capped)
	}
	if g.NumEdges != 2 {
		t.Errorf("NumEdges = %d, want 2", g.NumEdges)
	}
}

func TestBuildShortLineContributesNothing(t *testing.T) {
	g := Build([]Line{line(Bidirectional, geo.Point{103.8, 1.3})}, BuildOptions{ToleranceMeters: 1})
	if g.NumEdges != 0 {
		t.Errorf("NumEdges = %d, want 0", g.NumEdges)
	}
}

func TestSetEdgeTieReplaces(t *testing.T) {
	g := New(2)
	g.AddNode(Node{})
	g.AddNode(Node{})

	if !g.SetEdge(0, 1, 10, nil) {
		t.Fatal("first SetEdge rejected")
	}
	if g.SetEdge(0, 1, 11, nil) {
		t.Error("heavier duplicate should be rejected")
	}
	via := []geo.Point{{1, 1}}
	if !g.SetEdge(0, 1, 10, via) {
		t.Error("equal-weight duplicate should replace")
	}
	e, _ := g.Edge(0, 1)
	if len(e.Via) != 1 {
		t.Errorf("Via length = %d, want 1", len(e.Via))
	}
	if g.NumEdges != 1 {
		t.Errorf("NumEdges = %d, want 1", g.NumEdges)
	}
	if g.SetEdge(0, 5, 1, nil) || g.SetEdge(1, 1, 1, nil) {
		t.Error("out-of-range and self edges must be dropped")
	}
}
