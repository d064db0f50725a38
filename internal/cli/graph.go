package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"roadloop/pkg/cache"
	"roadloop/pkg/config"
	"roadloop/pkg/graph"
	"roadloop/pkg/metrics"
	"roadloop/pkg/pipeline"
)

// ErrNoInput is returned when neither an input file nor a snapshot is set.
var ErrNoInput = errors.New("no input: pass --input or set cache.snapshot")

// OpenStore assembles the configured cache stores: a directory store when
// cache.dir is set, then Redis when cache.redis_addr is set. An unreachable
// Redis is logged and left out of the chain. It returns a nil store when no
// store is usable. release closes the Redis client.
func OpenStore(ctx context.Context, cfg config.CacheConfig, logger *log.Logger) (store cache.Store, release func()) {
	var chain cache.Chain
	release = func() {}

	if cfg.Dir != "" {
		chain = append(chain, cache.FileStore{Dir: cfg.Dir})
	}
	if cfg.RedisAddr != "" {
		client, err := cache.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis cache unavailable", "addr", cfg.RedisAddr, "err", err)
		} else {
			logger.Debug("redis cache connected", "addr", cfg.RedisAddr)
			chain = append(chain, cache.NewRedisStore(client, cfg.RedisPrefix, cfg.TTL()))
			release = func() { client.Close() }
		}
	}

	if len(chain) == 0 {
		return nil, release
	}
	return chain, release
}

// PipelineOptions maps the build section onto pipeline options.
func PipelineOptions(cfg config.BuildConfig, store cache.Store, logger *log.Logger) (pipeline.Options, error) {
	bounds, err := cfg.Bounds()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Build: graph.BuildOptions{
			ToleranceMeters: cfg.ToleranceMeters,
			MaxNodes:        cfg.MaxNodes,
			Bounds:          bounds,
		},
		LargestComponent: cfg.LargestComponent,
		Contract:         cfg.Contract,
		Store:            store,
		Logger:           logger,
	}, nil
}

// LoadGraph returns the graph for input through the pipeline and cache. With
// no input it reads the binary snapshot named by cache.snapshot.
func LoadGraph(ctx context.Context, cfg config.Config, input string, logger *log.Logger) (*pipeline.Result, error) {
	if input == "" {
		if cfg.Cache.Snapshot == "" {
			return nil, ErrNoInput
		}
		start := time.Now()
		g, err := graph.ReadBinary(cfg.Cache.Snapshot)
		if err != nil {
			return nil, fmt.Errorf("loading snapshot: %w", err)
		}
		logger.Info("snapshot loaded", "path", cfg.Cache.Snapshot, "nodes", g.NumNodes(), "edges", g.NumEdges,
			"elapsed", time.Since(start).Round(time.Millisecond))
		metrics.ObserveGraph("snapshot", g.NumNodes(), g.NumEdges)
		return &pipeline.Result{Graph: g, FromCache: true}, nil
	}

	if _, err := os.Stat(input); err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}

	store, release := OpenStore(ctx, cfg.Cache, logger)
	defer release()

	opts, err := PipelineOptions(cfg.Build, store, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.LoadOrBuild(ctx, input, opts)
}
