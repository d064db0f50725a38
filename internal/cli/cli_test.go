package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadloop/pkg/cache"
	"roadloop/pkg/config"
	"roadloop/pkg/graph"
	"roadloop/pkg/logging"
)

const roads = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"highway":"residential"},"geometry":{"type":"LineString",
"coordinates":[[103.800,1.300],[103.801,1.300],[103.802,1.300],[103.803,1.300]]}}]}`

func writeRoads(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roads.geojson")
	require.NoError(t, os.WriteFile(path, []byte(roads), 0o644))
	return path
}

func TestNewRootLoadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadloop.toml")
	require.NoError(t, os.WriteFile(path, []byte("[sample]\nmax_tries = 9\n"), 0o644))

	var env Env
	ran := false
	root := NewRoot("roadloop", "test", &env)
	root.AddCommand(&cobra.Command{
		Use: "run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ran = true
			assert.Same(t, env.Logger, logging.FromContext(cmd.Context()))
			return nil
		},
	})
	root.SetArgs([]string{"--config", path, "-v", "run"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.True(t, ran)
	assert.Equal(t, 9, env.Config.Sample.MaxTries)
	require.NotNil(t, env.Logger)
}

func TestNewRootRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadloop.toml")
	require.NoError(t, os.WriteFile(path, []byte("[sample]\nbogus = 1\n"), 0o644))

	var env Env
	root := NewRoot("roadloop", "test", &env)
	root.AddCommand(&cobra.Command{Use: "run", RunE: func(*cobra.Command, []string) error { return nil }})
	root.SetArgs([]string{"--config", path, "run"})
	root.SetErr(io.Discard)

	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := logging.Discard()

	t.Run("none", func(t *testing.T) {
		store, release := OpenStore(ctx, config.CacheConfig{}, logger)
		defer release()
		assert.Nil(t, store)
	})

	t.Run("dir and redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		store, release := OpenStore(ctx, config.CacheConfig{
			Dir:         t.TempDir(),
			RedisAddr:   mr.Addr(),
			RedisPrefix: "test:",
		}, logger)
		defer release()

		chain, ok := store.(cache.Chain)
		require.True(t, ok)
		assert.Len(t, chain, 2)

		require.NoError(t, store.Put(ctx, "k", []byte("v")))
		got, err := mr.Get("test:k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("redis down", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()
		store, release := OpenStore(ctx, config.CacheConfig{RedisAddr: addr}, logger)
		defer release()
		assert.Nil(t, store)
	})

	t.Run("redis down keeps dir", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		dir := t.TempDir()
		store, release := OpenStore(ctx, config.CacheConfig{Dir: dir, RedisAddr: addr}, logger)
		defer release()

		chain, ok := store.(cache.Chain)
		require.True(t, ok)
		require.Len(t, chain, 1)
		assert.Equal(t, cache.FileStore{Dir: dir}, chain[0])

		require.NoError(t, store.Put(ctx, "k", []byte("v")))
		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)
	})
}

func TestLoadGraphBuildsThenHitsCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	input := writeRoads(t)

	res, err := LoadGraph(ctx, cfg, input, logging.Discard())
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 2, res.Graph.NumNodes())

	res, err = LoadGraph(ctx, cfg, input, logging.Discard())
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, 2, res.Graph.NumNodes())
}

func TestLoadGraphKeepsDirWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.RedisAddr = addr
	input := writeRoads(t)

	res, err := LoadGraph(ctx, cfg, input, logging.Discard())
	require.NoError(t, err)
	assert.False(t, res.FromCache)

	res, err = LoadGraph(ctx, cfg, input, logging.Discard())
	require.NoError(t, err)
	assert.True(t, res.FromCache)
}

func TestLoadGraphFromSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Cache.Dir = ""

	res, err := LoadGraph(ctx, cfg, writeRoads(t), logging.Discard())
	require.NoError(t, err)

	cfg.Cache.Snapshot = filepath.Join(t.TempDir(), "graph.bin")
	require.NoError(t, graph.WriteBinary(cfg.Cache.Snapshot, res.Graph))

	snap, err := LoadGraph(ctx, cfg, "", logging.Discard())
	require.NoError(t, err)
	assert.True(t, snap.FromCache)
	assert.Equal(t, res.Graph.NumNodes(), snap.Graph.NumNodes())
	assert.Equal(t, res.Graph.NumEdges, snap.Graph.NumEdges)
}

func TestLoadGraphErrors(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	_, err := LoadGraph(ctx, cfg, "", logging.Discard())
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = LoadGraph(ctx, cfg, filepath.Join(t.TempDir(), "missing.geojson"), logging.Discard())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
