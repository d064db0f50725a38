package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"roadloop/internal/cli"
	"roadloop/pkg/config"
	"roadloop/pkg/graph"
	"roadloop/pkg/loop"
	"roadloop/pkg/sample"
)

func main() {
	cli.Main(newRootCmd())
}

func newRootCmd() *cobra.Command {
	var (
		env       cli.Env
		input     string
		graphPath string
		headless  bool
		cycles    int
		seed      uint64
		steps     int
		minDist   float64
	)

	root := cli.NewRoot("visualize", "Watch A* searches between random road endpoints", &env)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		cfg := env.Config
		logger := env.Logger
		flags := cmd.Flags()
		if flags.Changed("graph") {
			cfg.Cache.Snapshot = graphPath
		}
		if flags.Changed("seed") {
			cfg.Sample.Seed = seed
		}
		if flags.Changed("steps") {
			cfg.Search.StepsPerFrame = steps
		}
		if flags.Changed("min-distance") {
			cfg.Sample.MinDistanceMeters = minDist
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		res, err := cli.LoadGraph(cmd.Context(), cfg, input, logger)
		if err != nil {
			return err
		}
		if res.Graph.NumNodes() == 0 {
			return fmt.Errorf("graph is empty")
		}

		if headless {
			r, err := newRunner(res.Graph, cfg, logger)
			if err != nil {
				return err
			}
			var last loop.Frame
			err = r.Run(cmd.Context(), cycles, cfg.Search.StepsPerFrame, func(f loop.Frame) { last = f })
			logger.Info(summary(last))
			return err
		}

		// The HUD owns the terminal; keep log output off it.
		quiet := log.New(cmd.ErrOrStderr())
		quiet.SetLevel(log.ErrorLevel)
		r, err := newRunner(res.Graph, cfg, quiet)
		if err != nil {
			return err
		}
		p := tea.NewProgram(newModel(r, cfg.Search.StepsPerFrame), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		_, err = p.Run()
		return err
	}

	f := root.Flags()
	f.StringVarP(&input, "input", "i", "", "road lines to build from (uses the graph cache)")
	f.StringVarP(&graphPath, "graph", "g", "", "binary snapshot to load when --input is not set")
	f.BoolVar(&headless, "headless", false, "run without the HUD and log each cycle")
	f.IntVar(&cycles, "cycles", 10, "searches to finish in --headless mode")
	f.Uint64Var(&seed, "seed", 0, "sampler seed (0 = time based)")
	f.IntVar(&steps, "steps", config.Default().Search.StepsPerFrame, "search steps per frame")
	f.Float64Var(&minDist, "min-distance", config.Default().Sample.MinDistanceMeters, "minimum endpoint separation in meters")
	return root
}

func newRunner(g *graph.Graph, cfg config.Config, logger *log.Logger) (*loop.Runner, error) {
	region, err := cfg.Search.RegionBounds()
	if err != nil {
		return nil, err
	}
	seed := cfg.Sample.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger.Debug("sampler seeded", "seed", seed)

	return loop.NewRunner(g, sample.NewSeededSource(seed), loop.Config{
		MinDistance: cfg.Sample.MinDistanceMeters,
		MaxTries:    cfg.Sample.MaxTries,
		MaxSteps:    cfg.Search.MaxSteps,
		Region:      region,
		Guardrail:   cfg.Guardrail.Guardrail(),
	}, logger), nil
}

// summary reports the totals of a headless run.
func summary(f loop.Frame) string {
	c := f.Counters
	return fmt.Sprintf("%d cycles: %d found, %d failed (%d outside region), %d resampled, %d guardrail triggers",
		f.Cycle, c.Found, c.Failed, c.Discarded, c.Resampled, f.Guardrail.Triggers)
}
