// Package cache persists encoded graphs so binaries can skip rebuilding from
// raw lines.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"roadloop/pkg/graph"
)

// ErrMiss is returned when a key has no usable entry.
var ErrMiss = errors.New("cache miss")

// Store is a byte-level key/value store for encoded graphs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Digest returns the hex SHA-256 of r's contents.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing source: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Key derives a cache key from a source digest and everything that changes
// the built graph.
func Key(sourceDigest string, opts graph.BuildOptions, largestComponent, contract bool) string {
	h := sha256.New()
	io.WriteString(h, sourceDigest)
	fmt.Fprintf(h, "|tol=%s|max=%d|lc=%t|ct=%t|v=%d",
		strconv.FormatFloat(opts.ToleranceMeters, 'g', -1, 64), opts.MaxNodes, largestComponent, contract, graph.CacheVersion)
	if b := opts.Bounds; b != nil {
		fmt.Fprintf(h, "|bbox=%v,%v", b.Min, b.Max)
	}
	return graph.CacheFormat + "-" + hex.EncodeToString(h.Sum(nil))[:16]
}

// LoadGraph fetches and decodes key. Undecodable entries are reported as
// ErrMiss so callers rebuild.
func LoadGraph(ctx context.Context, s Store, key string) (*graph.Graph, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	g := graph.Decode(data)
	if g == nil {
		return nil, ErrMiss
	}
	return g, nil
}

// SaveGraph encodes g and stores it under key.
func SaveGraph(ctx context.Context, s Store, key string, g *graph.Graph) error {
	data, err := graph.Encode(g)
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return s.Put(ctx, key, data)
}

// FileStore keeps one JSON file per key in Dir.
type FileStore struct {
	Dir string
}

func (f FileStore) path(key string) string {
	return filepath.Join(f.Dir, key+".json")
}

func (f FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	return data, nil
}

// Put writes atomically via a temp file and rename.
func (f FileStore) Put(_ context.Context, key string, data []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	dst := f.path(key)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache: %w", err)
	}
	return nil
}

// Chain reads from the first store that has the key and writes to all.
type Chain []Store

func (c Chain) Get(ctx context.Context, key string) ([]byte, error) {
	for _, s := range c {
		data, err := s.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrMiss) {
			return nil, err
		}
	}
	return nil, ErrMiss
}

func (c Chain) Put(ctx context.Context, key string, data []byte) error {
	var errs []error
	for _, s := range c {
		if err := s.Put(ctx, key, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
