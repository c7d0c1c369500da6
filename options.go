package normalizer

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Option configures the engine.
type Option func(*Options)

// Options holds all configuration for the engine. Construct with
// NewOptions rather than relying on zero values.
type Options struct {
	// Localization
	TargetLanguage string
	TargetCountry  string

	// Resolution cache
	CacheTTLPositive time.Duration
	CacheTTLNegative time.Duration
	CacheShards      int

	// Catalogue lookups
	LookupTimeout time.Duration

	// Extraction
	ParallelSections bool
	WorkerCount      int

	// Logger receives structured diagnostics. Defaults to a no-op logger
	// so the engine is silent unless a caller wires one in.
	Logger *zap.Logger
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		TargetLanguage: "en",
		TargetCountry:  "",

		// Negative results expire sooner so catalogue updates surface.
		CacheTTLPositive: 15 * time.Minute,
		CacheTTLNegative: 1 * time.Minute,
		CacheShards:      64,

		LookupTimeout: 2 * time.Second,

		ParallelSections: true,
		WorkerCount:      runtime.NumCPU(),

		Logger: zap.NewNop(),
	}
}

// NewOptions builds an Options from defaults plus the given overrides.
func NewOptions(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// --- Localization Options ---

// WithTargetLanguage sets the language translations are resolved into,
// e.g. "en", "pt".
func WithTargetLanguage(lang string) Option {
	return func(o *Options) {
		o.TargetLanguage = lang
	}
}

// WithTargetCountry sets an optional country refinement for translations,
// e.g. "IE" to prefer Irish English rows where the catalogue has them.
func WithTargetCountry(country string) Option {
	return func(o *Options) {
		o.TargetCountry = country
	}
}

// --- Cache Options ---

// WithCacheTTLs sets the time-to-live for positive and negative cached
// resolutions. Negative results should expire sooner than positive ones
// so later catalogue updates can surface.
func WithCacheTTLs(positive, negative time.Duration) Option {
	return func(o *Options) {
		if positive > 0 {
			o.CacheTTLPositive = positive
		}
		if negative > 0 {
			o.CacheTTLNegative = negative
		}
	}
}

// WithCacheShards sets the shard count of the in-process resolution
// cache. Rounded up to a power of 2.
func WithCacheShards(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.CacheShards = n
		}
	}
}

// --- Lookup Options ---

// WithLookupTimeout bounds each catalogue lookup. On timeout resolution
// degrades to the fallback path instead of blocking the pipeline.
func WithLookupTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.LookupTimeout = d
		}
	}
}

// --- Extraction Options ---

// WithParallelSections enables running section extractors concurrently.
func WithParallelSections(enable bool) Option {
	return func(o *Options) {
		o.ParallelSections = enable
	}
}

// WithWorkerCount sets the number of extraction workers.
// If n <= 0, it defaults to runtime.NumCPU().
func WithWorkerCount(n int) Option {
	return func(o *Options) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		o.WorkerCount = n
	}
}

// --- Diagnostics ---

// WithLogger sets the structured logger used for warnings about skipped
// entries, failed extractors and degraded cache backends.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}
