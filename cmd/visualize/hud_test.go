package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"roadloop/pkg/config"
	"roadloop/pkg/geo"
	"roadloop/pkg/graph"
	"roadloop/pkg/logging"
	"roadloop/pkg/loop"
	"roadloop/pkg/routing"
)

// corner is a two-way L: west to east along the south edge, then north.
func corner() *graph.Graph {
	g := graph.New(5)
	for _, p := range [][2]float64{{103.800, 1.300}, {103.801, 1.300}, {103.802, 1.300}, {103.802, 1.301}, {103.802, 1.302}} {
		g.AddNode(graph.Node{Lon: p[0], Lat: p[1], Count: 1})
	}
	for u := 0; u+1 < 5; u++ {
		w := geo.PointDistance(g.Position(u), g.Position(u+1))
		g.SetEdge(u, u+1, w, nil)
		g.SetEdge(u+1, u, w, nil)
	}
	return g
}

func testRunner(t *testing.T, g *graph.Graph) *loop.Runner {
	t.Helper()
	cfg := config.Default()
	cfg.Sample.Seed = 42
	cfg.Sample.MinDistanceMeters = 0
	r, err := newRunner(g, cfg, logging.Discard())
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	return r
}

func TestProjectionCorners(t *testing.T) {
	g := corner()
	p := newProjection(g)

	tests := []struct {
		node  int
		wantX int
		wantY int
	}{
		{0, 0, 9},  // south-west
		{2, 19, 9}, // south-east
		{4, 19, 0}, // north-east
	}
	for _, tt := range tests {
		x, y := p.cell(g.Position(tt.node), 20, 10)
		if x != tt.wantX || y != tt.wantY {
			t.Errorf("cell(node %d) = (%d, %d), want (%d, %d)", tt.node, x, y, tt.wantX, tt.wantY)
		}
	}
}

func TestProjectionSingleNode(t *testing.T) {
	g := graph.New(1)
	g.AddNode(graph.Node{Lon: 103.8, Lat: 1.3, Count: 1})
	x, y := newProjection(g).cell(g.Position(0), 10, 5)
	if x < 0 || x >= 10 || y < 0 || y >= 5 {
		t.Errorf("cell = (%d, %d), want inside 10x5", x, y)
	}
}

func TestDrawFinishedSearch(t *testing.T) {
	g := corner()
	p := newProjection(g)
	base := roadLayer(g, p, 20, 10)
	if got := count(base, cellRoad); got != 5 {
		t.Fatalf("road cells = %d, want 5", got)
	}

	r := testRunner(t, g)
	var f loop.Frame
	for range 100 {
		if f = r.Tick(100); f.Finished {
			break
		}
	}
	if f.Snapshot.Status != routing.Found {
		t.Fatalf("status = %v, want found", f.Snapshot.Status)
	}

	c := draw(base, g, p, f)
	if count(c, cellStart) != 1 && f.Outcome.Start != f.Outcome.Goal {
		t.Errorf("start marker missing")
	}
	if count(c, cellGoal) != 1 {
		t.Errorf("goal markers = %d, want 1", count(c, cellGoal))
	}
	marked := count(c, cellPath) + count(c, cellStart) + count(c, cellGoal)
	if marked != len(f.Snapshot.Path) {
		t.Errorf("path cells = %d, want %d", marked, len(f.Snapshot.Path))
	}
	if count(base, cellPath) != 0 {
		t.Error("draw modified the base layer")
	}
}

func count(c canvas, m byte) int {
	n := 0
	for _, row := range c.cells {
		n += strings.Count(string(row), string(m))
	}
	return n
}

func TestModelKeys(t *testing.T) {
	m := newModel(testRunner(t, corner()), 4)

	key := func(m model, s string) model {
		var msg tea.KeyMsg
		if s == " " {
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
		}
		next, _ := m.Update(msg)
		return next.(model)
	}

	m = key(m, "+")
	if m.steps != 8 {
		t.Errorf("steps after + = %d, want 8", m.steps)
	}
	m = key(key(key(key(m, "-"), "-"), "-"), "-")
	if m.steps != 1 {
		t.Errorf("steps after 4x - = %d, want 1", m.steps)
	}

	m = key(m, "p")
	if !m.paused {
		t.Fatal("p did not pause")
	}
	next, _ := m.Update(tickMsg(time.Now()))
	if next.(model).frame.Cycle != 0 {
		t.Error("paused model advanced on tick")
	}
	m = key(m, "s")
	if m.frame.Cycle != 1 {
		t.Errorf("cycle after single step = %d, want 1", m.frame.Cycle)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q returned no command")
	}
}

func TestModelRunsAndRenders(t *testing.T) {
	m := newModel(testRunner(t, corner()), 50)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(model)

	for range 5 {
		next, cmd := m.Update(tickMsg(time.Now()))
		if cmd == nil {
			t.Fatal("tick did not schedule the next tick")
		}
		m = next.(model)
	}
	if m.frame.Counters.Found == 0 {
		t.Errorf("no search finished after 5 frames: %+v", m.frame.Counters)
	}
	if len(m.history) == 0 {
		t.Error("history is empty")
	}

	view := m.View()
	for _, want := range []string{"roadloop", "cycle", "triggers", "q quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestHeadless(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "roads.geojson")
	roads := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
"geometry":{"type":"LineString","coordinates":[[103.800,1.300],[103.801,1.300],[103.801,1.301],[103.800,1.301],[103.800,1.302]]}},
{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[103.801,1.301],[103.802,1.301]]}}]}`
	if err := os.WriteFile(input, []byte(roads), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "roadloop.toml")
	if err := os.WriteFile(cfgPath, []byte("[cache]\ndir = \"\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--input", input, "--headless", "--cycles", "3", "--seed", "7", "--min-distance", "0"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("headless run: %v", err)
	}
}

func TestSummary(t *testing.T) {
	f := loop.Frame{Cycle: 4, Counters: loop.Counters{Found: 3, Failed: 1, Discarded: 1, Resampled: 2}}
	f.Guardrail.Triggers = 1
	want := "4 cycles: 3 found, 1 failed (1 outside region), 2 resampled, 1 guardrail triggers"
	if got := summary(f); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}
