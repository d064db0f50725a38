package main

import (
	"time"

	"github.com/spf13/cobra"

	"roadloop/internal/cli"
	"roadloop/pkg/api"
	"roadloop/pkg/routing"
)

func main() {
	cli.Main(newRootCmd())
}

func newRootCmd() *cobra.Command {
	var (
		env        cli.Env
		input      string
		graphPath  string
		addr       string
		corsOrigin string
	)

	root := cli.NewRoot("server", "Serve shortest-path queries over a road graph", &env)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := env.Config
		logger := env.Logger
		flags := cmd.Flags()
		if flags.Changed("graph") {
			cfg.Cache.Snapshot = graphPath
		}
		if flags.Changed("addr") {
			cfg.Server.Addr = addr
		}
		if flags.Changed("cors-origin") {
			cfg.Server.CORSOrigin = corsOrigin
		}

		start := time.Now()
		res, err := cli.LoadGraph(cmd.Context(), cfg, input, logger)
		if err != nil {
			return err
		}
		g := res.Graph

		logger.Info("building spatial index", "nodes", g.NumNodes())
		engine := routing.NewEngine(g, routing.EngineConfig{
			MaxSnapMeters: cfg.Server.MaxSnapMeters,
			MaxSteps:      cfg.Search.MaxSteps,
		})
		logger.Info("ready", "elapsed", time.Since(start).Round(time.Millisecond))

		stats := api.StatsFor(g)
		stats.CacheKey = res.Key
		stats.FromCache = res.FromCache

		srvCfg := api.DefaultConfig(cfg.Server.Addr)
		srvCfg.CORSOrigin = cfg.Server.CORSOrigin
		srvCfg.MaxConcurrent = cfg.Server.MaxConcurrent

		handlers := api.NewHandlers(engine, stats, logger)
		return api.ListenAndServe(cmd.Context(), api.NewServer(srvCfg, handlers, logger), logger)
	}

	f := root.Flags()
	f.StringVarP(&input, "input", "i", "", "road lines to build from (uses the graph cache)")
	f.StringVarP(&graphPath, "graph", "g", "", "binary snapshot to load when --input is not set")
	f.StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	f.StringVar(&corsOrigin, "cors-origin", "", "CORS allowed origin (empty = same-origin)")
	return root
}
