// Package pipeline turns a line source into a routable graph: load, build,
// keep the largest component, contract, with a cache in front.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"roadloop/pkg/cache"
	"roadloop/pkg/ch"
	"roadloop/pkg/graph"
	"roadloop/pkg/lines"
	"roadloop/pkg/metrics"
	"roadloop/pkg/osm"
)

// Options configures LoadOrBuild.
type Options struct {
	Build            graph.BuildOptions
	LargestComponent bool
	Contract         bool
	Store            cache.Store // optional
	Logger           *log.Logger // defaults to log.Default()
}

// Result is a ready graph and how it was obtained.
type Result struct {
	Graph     *graph.Graph
	Key       string
	FromCache bool
	Build     graph.BuildStats
	Contract  ch.Stats
}

// LoadLines reads road lines from path, picking the loader by extension:
// .pbf for OSM PBF, .osm or .xml for OSM XML, anything else as GeoJSON.
func LoadLines(ctx context.Context, path string, logger *log.Logger) ([]graph.Line, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pbf"), strings.HasSuffix(lower, ".osm"), strings.HasSuffix(lower, ".xml"):
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()

		opts := osm.ParseOptions{Logger: logger}
		parse := osm.Parse
		if !strings.HasSuffix(lower, ".pbf") {
			parse = osm.ParseXML
		}
		ls, _, err := parse(ctx, f, opts)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
		return ls, nil
	default:
		ls, stats, err := lines.Load(path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded geojson", "features", stats.Features, "lines", stats.Lines, "skipped", stats.Skipped)
		return ls, nil
	}
}

// Process builds a graph from lines and applies the optional passes.
func Process(ls []graph.Line, opts Options) (*graph.Graph, graph.BuildStats, ch.Stats) {
	logger := loggerOf(opts)

	g, bs := graph.BuildWithStats(ls, opts.Build)
	logger.Info("built graph", "nodes", g.NumNodes(), "edges", g.NumEdges,
		"merged", bs.Merged, "rejected", bs.Rejected, "capped", bs.Capped)
	metrics.ObserveGraph("built", g.NumNodes(), g.NumEdges)

	if opts.LargestComponent && g.NumNodes() > 0 {
		before := g.NumNodes()
		g, _ = graph.Subgraph(g, graph.LargestComponent(g))
		logger.Info("largest component", "nodes", g.NumNodes(),
			"share", fmt.Sprintf("%.1f%%", float64(g.NumNodes())/float64(before)*100))
		metrics.ObserveGraph("component", g.NumNodes(), g.NumEdges)
	}

	var cs ch.Stats
	if opts.Contract {
		g, cs = ch.ContractWithStats(g)
		logger.Info("contracted chains", "nodes", g.NumNodes(), "edges", g.NumEdges,
			"chains", cs.Chains, "removed", cs.Contracted, "shortcuts", cs.Shortcuts, "cycles", cs.CyclesSkipped)
		metrics.ObserveGraph("contracted", g.NumNodes(), g.NumEdges)
	}
	return g, bs, cs
}

// LoadOrBuild returns the graph for path, from opts.Store when a matching
// entry exists, otherwise by building it and storing the result. A failed
// store write is logged, not returned.
func LoadOrBuild(ctx context.Context, path string, opts Options) (*Result, error) {
	logger := loggerOf(opts)
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	digest, err := cache.Digest(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	key := cache.Key(digest, opts.Build, opts.LargestComponent, opts.Contract)

	if opts.Store != nil {
		g, err := cache.LoadGraph(ctx, opts.Store, key)
		switch {
		case err == nil:
			logger.Info("graph cache hit", "key", key, "nodes", g.NumNodes(), "edges", g.NumEdges)
			metrics.ObserveGraph("cached", g.NumNodes(), g.NumEdges)
			return &Result{Graph: g, Key: key, FromCache: true}, nil
		case errors.Is(err, cache.ErrMiss):
			logger.Debug("graph cache miss", "key", key)
		default:
			logger.Warn("graph cache unavailable", "err", err)
		}
	}

	ls, err := LoadLines(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	g, bs, cs := Process(ls, opts)

	if opts.Store != nil {
		if err := cache.SaveGraph(ctx, opts.Store, key, g); err != nil {
			logger.Warn("graph cache write failed", "err", err)
		}
	}
	logger.Info("graph ready", "elapsed", time.Since(start).Round(time.Millisecond))
	return &Result{Graph: g, Key: key, Build: bs, Contract: cs}, nil
}

func loggerOf(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return log.Default()
}
