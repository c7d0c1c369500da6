package terminology

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/codesystem"
	"github.com/clindoc/normalizer/service"
)

// Resolver resolves (code, code-system OID) pairs into localized display
// text against a read-only terminology catalogue. It is stateless apart
// from its cache and safe for unsynchronized concurrent use.
type Resolver struct {
	store   service.CatalogueStore
	cache   service.TermCache
	opts    *cn.Options
	metrics *cn.Metrics
	group   singleflight.Group
	log     *zap.Logger
}

// NewResolver creates a resolver over the given catalogue store with an
// in-process sharded cache.
func NewResolver(store service.CatalogueStore, opts ...cn.Option) *Resolver {
	o := cn.NewOptions(opts...)
	return &Resolver{
		store:   store,
		cache:   NewShardedCache(o.CacheShards),
		opts:    o,
		metrics: cn.NewMetrics(),
		log:     o.Logger,
	}
}

// NewResolverWithCache creates a resolver using an externally provided
// cache backend, e.g. a RedisCache shared between processes.
func NewResolverWithCache(store service.CatalogueStore, cache service.TermCache, opts ...cn.Option) *Resolver {
	r := NewResolver(store, opts...)
	if cache != nil {
		r.cache = cache
	}
	return r
}

// Metrics returns the resolver's metrics collector.
func (r *Resolver) Metrics() *cn.Metrics {
	return r.metrics
}

// Options returns the resolver's configuration.
func (r *Resolver) Options() *cn.Options {
	return r.opts
}

// ResolveCoded resolves a coded element from a source document, applying
// the canonical priority rule: non-blank source display text wins
// verbatim and the catalogue is not consulted; the resolver proper runs
// only when the source display is empty or whitespace.
func (r *Resolver) ResolveCoded(ctx context.Context, code cn.ClinicalCode) cn.ResolvedTerm {
	if code.HasSourceDisplay() {
		term := cn.NewResolvedTerm(code.Code, code.SystemOID, code.SourceDisplay, cn.ProvenanceSourceDisplay)
		r.metrics.RecordResolution(term.Provenance)
		return term
	}
	return r.Resolve(ctx, code.Code, code.SystemOID)
}

// Resolve resolves a dual key into a ResolvedTerm. It never fails and
// never returns an empty display; codes the catalogue cannot resolve
// degrade to a fallback string carrying the original code verbatim.
func (r *Resolver) Resolve(ctx context.Context, code, systemOID string) cn.ResolvedTerm {
	key := MakeKey(systemOID, code, r.opts.TargetLanguage, r.opts.TargetCountry)

	if cached, ok := r.cache.Get(ctx, key); ok {
		r.metrics.RecordCacheHit()
		term := cn.NewResolvedTerm(code, systemOID, cached.Display, cn.Provenance(cached.Provenance))
		r.metrics.RecordResolution(term.Provenance)
		return term
	}
	r.metrics.RecordCacheMiss()

	// Collapse concurrent lookups for the identical key into one store
	// round trip. The shared result is cached exactly once.
	v, _, _ := r.group.Do(key, func() (any, error) {
		term := r.lookup(ctx, code, systemOID)
		ttl := r.opts.CacheTTLPositive
		if term.Provenance == cn.ProvenanceFallback {
			ttl = r.opts.CacheTTLNegative
		}
		r.cache.Set(ctx, key, service.CachedTerm{
			Display:    term.Display,
			Provenance: string(term.Provenance),
		}, ttl)
		return term, nil
	})

	term := v.(cn.ResolvedTerm)
	r.metrics.RecordResolution(term.Provenance)
	return term
}

// lookup runs the uncached resolution chain: registry check, concept
// lookup, translation lookup, value-set cross-reference, fallback.
func (r *Resolver) lookup(ctx context.Context, code, systemOID string) cn.ResolvedTerm {
	if !codesystem.IsRegistered(systemOID) {
		r.log.Debug("terminology: unregistered code system",
			zap.String("code", code), zap.String("system", systemOID))
		return r.fallback(code, systemOID)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.LookupTimeout)
	defer cancel()

	start := time.Now()
	concept, err := r.store.FindConcept(ctx, code, systemOID)
	if err != nil && errors.Is(err, service.ErrNotFound) {
		// Secondary lookup: the OID may identify the value set that
		// defines the code rather than its code system.
		concept, err = r.store.FindInValueSet(ctx, code, systemOID)
	}
	r.metrics.RecordLookup(time.Since(start))

	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			r.log.Debug("terminology: concept not found",
				zap.String("code", code), zap.String("system", systemOID))
		case errors.Is(err, context.DeadlineExceeded):
			r.metrics.RecordStoreTimeout()
			r.log.Warn("terminology: catalogue lookup timed out",
				zap.String("code", code), zap.String("system", systemOID),
				zap.Duration("timeout", r.opts.LookupTimeout))
		default:
			r.metrics.RecordStoreError()
			r.log.Warn("terminology: catalogue lookup failed",
				zap.String("code", code), zap.String("system", systemOID),
				zap.Error(err))
		}
		return r.fallback(code, systemOID)
	}

	display, err := r.store.FindTranslation(ctx, concept, r.opts.TargetLanguage, r.opts.TargetCountry)
	if err == nil {
		return cn.NewResolvedTerm(code, systemOID, display, cn.ProvenanceTranslation)
	}
	if !errors.Is(err, service.ErrNotFound) {
		r.metrics.RecordStoreError()
		r.log.Warn("terminology: translation lookup failed",
			zap.String("code", code), zap.String("system", systemOID),
			zap.String("language", r.opts.TargetLanguage), zap.Error(err))
	}
	return cn.NewResolvedTerm(code, systemOID, concept.DefaultDisplay, cn.ProvenanceDefaultDisplay)
}

func (r *Resolver) fallback(code, systemOID string) cn.ResolvedTerm {
	return cn.NewResolvedTerm(code, systemOID, cn.FallbackDisplay(code, systemOID), cn.ProvenanceFallback)
}
