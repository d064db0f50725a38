package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"roadloop/internal/cli"
	"roadloop/pkg/config"
	"roadloop/pkg/graph"
	"roadloop/pkg/pipeline"
)

func main() {
	cli.Main(newRootCmd())
}

func newRootCmd() *cobra.Command {
	var (
		env       cli.Env
		input     string
		output    string
		bbox      string
		singapore bool
		kl        bool
		tolerance float64
		noCache   bool
	)

	root := cli.NewRoot("preprocess", "Build a routable road graph from GeoJSON or OSM", &env)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := env.Config
		logger := env.Logger
		flags := cmd.Flags()

		switch {
		case kl:
			cfg.Build.Preset = "kl"
		case singapore:
			cfg.Build.Preset = "singapore"
		case bbox != "":
			box, err := parseBBoxFlag(bbox)
			if err != nil {
				return err
			}
			cfg.Build.Preset = ""
			cfg.Build.BBox = box
		}
		if flags.Changed("tolerance") {
			cfg.Build.ToleranceMeters = tolerance
		}
		if flags.Changed("output") {
			cfg.Cache.Snapshot = output
		}
		if noCache {
			cfg.Cache.Dir, cfg.Cache.RedisAddr = "", ""
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if b, _ := cfg.Build.Bounds(); b != nil {
			logger.Info("bounding box filter", "lat", [2]float64{b.Min.Lat(), b.Max.Lat()}, "lng", [2]float64{b.Min.Lon(), b.Max.Lon()})
		}

		start := time.Now()
		ctx := cmd.Context()
		store, release := cli.OpenStore(ctx, cfg.Cache, logger)
		defer release()

		opts, err := cli.PipelineOptions(cfg.Build, store, logger)
		if err != nil {
			return err
		}
		res, err := pipeline.LoadOrBuild(ctx, input, opts)
		if err != nil {
			return err
		}
		report(res, env)

		if cfg.Cache.Snapshot != "" {
			if err := graph.WriteBinary(cfg.Cache.Snapshot, res.Graph); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
			info, err := os.Stat(cfg.Cache.Snapshot)
			if err != nil {
				return err
			}
			logger.Info("snapshot written", "path", cfg.Cache.Snapshot, "mb", fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)))
		}

		logger.Info("done", "key", res.Key, "elapsed", time.Since(start).Round(time.Millisecond))
		return nil
	}

	f := root.Flags()
	f.StringVarP(&input, "input", "i", "", "road lines: .geojson, .osm.pbf or .osm")
	f.StringVarP(&output, "output", "o", "", "binary snapshot path (overrides cache.snapshot)")
	f.StringVar(&bbox, "bbox", "", "bounding box filter: minLat,minLng,maxLat,maxLng")
	f.BoolVar(&singapore, "singapore", false, "shortcut for the Singapore bounding box")
	f.BoolVar(&kl, "kl", false, "shortcut for the Selangor + Kuala Lumpur bounding box")
	f.Float64Var(&tolerance, "tolerance", config.Default().Build.ToleranceMeters, "node merge tolerance in meters")
	f.BoolVar(&noCache, "no-cache", false, "skip the graph cache")
	root.MarkFlagRequired("input")
	root.MarkFlagsMutuallyExclusive("singapore", "kl", "bbox")
	return root
}

func report(res *pipeline.Result, env cli.Env) {
	logger := env.Logger
	g := res.Graph
	if res.FromCache {
		logger.Info("graph from cache", "nodes", g.NumNodes(), "edges", g.NumEdges)
		return
	}
	b, c := res.Build, res.Contract
	logger.Info("built", "lines", b.Lines, "coords", b.Coords, "merged", b.Merged, "rejected", b.Rejected, "capped", b.Capped)
	if env.Config.Build.Contract {
		logger.Info("contracted", "removed", c.Contracted, "shortcuts", c.Shortcuts, "cycles_kept", c.CyclesSkipped)
	}
	logger.Info("graph", "nodes", g.NumNodes(), "edges", g.NumEdges)
}

// parseBBoxFlag reads "minLat,minLng,maxLat,maxLng".
func parseBBoxFlag(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: want minLat,minLng,maxLat,maxLng", s)
	}
	box := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		box[i] = v
	}
	return box, nil
}
