// Package config loads roadloop settings from TOML. Missing keys keep the
// values from Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"roadloop/pkg/geo"
	"roadloop/pkg/sample"
)

// Config is the full roadloop configuration.
type Config struct {
	Build     BuildConfig     `toml:"build"`
	Sample    SampleConfig    `toml:"sample"`
	Guardrail GuardrailConfig `toml:"guardrail"`
	Search    SearchConfig    `toml:"search"`
	Server    ServerConfig    `toml:"server"`
	Cache     CacheConfig     `toml:"cache"`
}

// BuildConfig controls graph construction.
type BuildConfig struct {
	ToleranceMeters  float64   `toml:"tolerance_meters"`
	MaxNodes         int       `toml:"max_nodes"`
	BBox             []float64 `toml:"bbox"`   // minLat, minLng, maxLat, maxLng
	Preset           string    `toml:"preset"` // named bbox; overrides BBox
	Contract         bool      `toml:"contract"`
	LargestComponent bool      `toml:"largest_component"`
}

// SampleConfig controls endpoint sampling.
type SampleConfig struct {
	MinDistanceMeters float64 `toml:"min_distance_meters"`
	MaxTries          int     `toml:"max_tries"`
	Seed              uint64  `toml:"seed"` // 0 picks a random seed
}

// GuardrailConfig mirrors sample.GuardrailConfig.
type GuardrailConfig struct {
	MaxConsecutiveFailures   int     `toml:"max_consecutive_failures"`
	MaxConsecutiveResamples  int     `toml:"max_consecutive_resamples"`
	RelaxCycles              int     `toml:"relax_cycles"`
	RelaxedMinDistanceFactor float64 `toml:"relaxed_min_distance_factor"`
}

// SearchConfig controls the search budget and the loop's region rule.
type SearchConfig struct {
	MaxSteps      int       `toml:"max_steps"`
	StepsPerFrame int       `toml:"steps_per_frame"`
	Region        []float64 `toml:"region"` // minLat, minLng, maxLat, maxLng; empty disables the rule
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr          string  `toml:"addr"`
	CORSOrigin    string  `toml:"cors_origin"`
	MaxConcurrent int     `toml:"max_concurrent"`
	MaxSnapMeters float64 `toml:"max_snap_meters"`
}

// CacheConfig controls graph persistence.
type CacheConfig struct {
	Dir         string `toml:"dir"`      // JSON graph cache directory; empty disables
	Snapshot    string `toml:"snapshot"` // binary snapshot file
	RedisAddr   string `toml:"redis_addr"`
	RedisPrefix string `toml:"redis_prefix"`
	TTLSeconds  int    `toml:"ttl_seconds"` // 0 keeps entries forever
}

// Presets are named bounding boxes as minLat, minLng, maxLat, maxLng.
var Presets = map[string][]float64{
	"singapore": {1.15, 103.6, 1.48, 104.1},
	"kl":        {2.75, 101.2, 3.5, 102.0},
}

// Default returns the built-in configuration.
func Default() Config {
	g := sample.DefaultGuardrailConfig()
	return Config{
		Build: BuildConfig{
			ToleranceMeters:  1.0,
			Contract:         true,
			LargestComponent: true,
		},
		Sample: SampleConfig{
			MinDistanceMeters: 2000,
			MaxTries:          50,
		},
		Guardrail: GuardrailConfig{
			MaxConsecutiveFailures:   g.MaxConsecutiveFailures,
			MaxConsecutiveResamples:  g.MaxConsecutiveResamples,
			RelaxCycles:              g.RelaxCycles,
			RelaxedMinDistanceFactor: g.RelaxedMinDistanceFactor,
		},
		Search: SearchConfig{
			MaxSteps:      200_000,
			StepsPerFrame: 40,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			MaxConcurrent: runtime.NumCPU() * 2,
			MaxSnapMeters: 500,
		},
		Cache: CacheConfig{
			Dir:         ".roadloop-cache",
			RedisPrefix: "roadloop:",
		},
	}
}

// Load reads path over Default. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Build.ToleranceMeters < 0 {
		errs = append(errs, errors.New("build.tolerance_meters must be >= 0"))
	}
	if _, err := c.Build.Bounds(); err != nil {
		errs = append(errs, fmt.Errorf("build: %w", err))
	}
	if _, err := c.Search.RegionBounds(); err != nil {
		errs = append(errs, fmt.Errorf("search.region: %w", err))
	}
	if c.Sample.MinDistanceMeters < 0 {
		errs = append(errs, errors.New("sample.min_distance_meters must be >= 0"))
	}
	if f := c.Guardrail.RelaxedMinDistanceFactor; f <= 0 || f > 1 {
		errs = append(errs, errors.New("guardrail.relaxed_min_distance_factor must be in (0, 1]"))
	}
	if c.Search.StepsPerFrame < 1 {
		errs = append(errs, errors.New("search.steps_per_frame must be >= 1"))
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, errors.New("cache.ttl_seconds must be >= 0"))
	}
	if c.Server.MaxConcurrent < 1 {
		errs = append(errs, errors.New("server.max_concurrent must be >= 1"))
	}
	return errors.Join(errs...)
}

// Bounds returns the acceptance region for the builder, or nil for none.
func (b BuildConfig) Bounds() (*geo.Bound, error) {
	if b.Preset != "" {
		box, ok := Presets[b.Preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", b.Preset)
		}
		return ParseBBox(box)
	}
	return ParseBBox(b.BBox)
}

// TTL returns the cache entry lifetime; zero means no expiry.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RegionBounds returns the loop's region, or nil when the rule is disabled.
func (s SearchConfig) RegionBounds() (*geo.Bound, error) {
	return ParseBBox(s.Region)
}

// Guardrail converts to the sampler's type.
func (g GuardrailConfig) Guardrail() sample.GuardrailConfig {
	return sample.GuardrailConfig{
		MaxConsecutiveFailures:   g.MaxConsecutiveFailures,
		MaxConsecutiveResamples:  g.MaxConsecutiveResamples,
		RelaxCycles:              g.RelaxCycles,
		RelaxedMinDistanceFactor: g.RelaxedMinDistanceFactor,
	}
}

// ParseBBox converts minLat, minLng, maxLat, maxLng into a bound. An empty
// slice yields nil.
func ParseBBox(box []float64) (*geo.Bound, error) {
	if len(box) == 0 {
		return nil, nil
	}
	if len(box) != 4 {
		return nil, fmt.Errorf("bbox needs 4 values, got %d", len(box))
	}
	minLat, minLng, maxLat, maxLng := box[0], box[1], box[2], box[3]
	if !geo.ValidLatLon(minLat, minLng) || !geo.ValidLatLon(maxLat, maxLng) {
		return nil, errors.New("bbox corner out of range")
	}
	if minLat > maxLat || minLng > maxLng {
		return nil, errors.New("bbox min exceeds max")
	}
	return &geo.Bound{Min: geo.Point{minLng, minLat}, Max: geo.Point{maxLng, maxLat}}, nil
}
