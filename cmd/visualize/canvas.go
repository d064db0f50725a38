package main

import (
	"math"

	"roadloop/pkg/geo"
	"roadloop/pkg/graph"
	"roadloop/pkg/loop"
)

// Cell markers, in increasing draw priority.
const (
	cellEmpty    = ' '
	cellRoad     = '.'
	cellVisited  = ':'
	cellFrontier = '+'
	cellPath     = '#'
	cellStart    = 'S'
	cellGoal     = 'G'
)

// projection maps lon/lat onto a character grid covering the graph's extent.
type projection struct {
	minLon, maxLat   float64
	spanLon, spanLat float64
}

func newProjection(g *graph.Graph) projection {
	if g.NumNodes() == 0 {
		return projection{spanLon: 1, spanLat: 1}
	}
	b := geo.Bound{Min: g.Position(0), Max: g.Position(0)}
	for u := 1; u < g.NumNodes(); u++ {
		b = b.Extend(g.Position(u))
	}
	p := projection{
		minLon:  b.Min.Lon(),
		maxLat:  b.Max.Lat(),
		spanLon: b.Max.Lon() - b.Min.Lon(),
		spanLat: b.Max.Lat() - b.Min.Lat(),
	}
	if p.spanLon <= 0 {
		p.spanLon = 1e-9
	}
	if p.spanLat <= 0 {
		p.spanLat = 1e-9
	}
	return p
}

// cell returns the column and row of pt in a w x h grid; north is row 0.
func (p projection) cell(pt geo.Point, w, h int) (int, int) {
	x := int(math.Round((pt.Lon() - p.minLon) / p.spanLon * float64(w-1)))
	y := int(math.Round((p.maxLat - pt.Lat()) / p.spanLat * float64(h-1)))
	return min(max(x, 0), w-1), min(max(y, 0), h-1)
}

// canvas is a w x h grid of cell markers.
type canvas struct {
	w, h  int
	cells [][]byte
}

func newCanvas(w, h int) canvas {
	c := canvas{w: w, h: h, cells: make([][]byte, h)}
	for y := range c.cells {
		c.cells[y] = make([]byte, w)
		for x := range c.cells[y] {
			c.cells[y][x] = cellEmpty
		}
	}
	return c
}

func (c canvas) clone() canvas {
	out := canvas{w: c.w, h: c.h, cells: make([][]byte, c.h)}
	for y := range c.cells {
		out.cells[y] = append([]byte(nil), c.cells[y]...)
	}
	return out
}

// plot marks a cell unless it already holds a higher-priority marker.
func (c canvas) plot(x, y int, m byte) {
	if priority(m) >= priority(c.cells[y][x]) {
		c.cells[y][x] = m
	}
}

func priority(m byte) int {
	switch m {
	case cellRoad:
		return 1
	case cellVisited:
		return 2
	case cellFrontier:
		return 3
	case cellPath:
		return 4
	case cellStart, cellGoal:
		return 5
	default:
		return 0
	}
}

// roadLayer draws every node of g.
func roadLayer(g *graph.Graph, p projection, w, h int) canvas {
	c := newCanvas(w, h)
	for u := range g.NumNodes() {
		x, y := p.cell(g.Position(u), w, h)
		c.plot(x, y, cellRoad)
	}
	return c
}

// draw overlays the frame's search state onto a copy of base.
func draw(base canvas, g *graph.Graph, p projection, f loop.Frame) canvas {
	c := base.clone()
	if f.Cycle == 0 {
		return c
	}
	mark := func(u int, m byte) {
		if u < 0 || u >= g.NumNodes() {
			return
		}
		x, y := p.cell(g.Position(u), c.w, c.h)
		c.plot(x, y, m)
	}

	snap := f.Snapshot
	for u := range snap.Visited {
		mark(u, cellVisited)
	}
	for _, u := range snap.Frontier {
		mark(u, cellFrontier)
	}
	for _, u := range snap.Path {
		mark(u, cellPath)
	}
	mark(f.Outcome.Start, cellStart)
	mark(f.Outcome.Goal, cellGoal)
	return c
}
