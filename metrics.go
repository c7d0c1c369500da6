package normalizer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks engine performance using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Resolution counts by provenance
	resolutionsTotal atomic.Uint64
	sourceDisplays   atomic.Uint64
	translations     atomic.Uint64
	defaultDisplays  atomic.Uint64
	fallbacks        atomic.Uint64

	// Cache metrics
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// Catalogue store health
	storeErrors   atomic.Uint64
	storeTimeouts atomic.Uint64

	// Lookup timing (stored as nanoseconds)
	lookupTimeTotal atomic.Uint64
	lookupTimeMax   atomic.Uint64

	// Document counts
	documentsTotal   atomic.Uint64
	sectionsFailed   atomic.Uint64
	entriesSkipped   atomic.Uint64

	// Per-section timing
	sectionTiming sync.Map // map[string]*sectionMetrics
}

// sectionMetrics tracks metrics for a single section extractor.
type sectionMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
	entries     atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// --- Recording Methods ---

// RecordResolution records one completed resolution and its provenance.
func (m *Metrics) RecordResolution(p Provenance) {
	m.resolutionsTotal.Add(1)
	switch p {
	case ProvenanceSourceDisplay:
		m.sourceDisplays.Add(1)
	case ProvenanceTranslation:
		m.translations.Add(1)
	case ProvenanceDefaultDisplay:
		m.defaultDisplays.Add(1)
	case ProvenanceFallback:
		m.fallbacks.Add(1)
	}
}

// RecordCacheHit records a resolution served from cache.
func (m *Metrics) RecordCacheHit() { m.cacheHits.Add(1) }

// RecordCacheMiss records a resolution that had to consult the store.
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Add(1) }

// RecordStoreError records a failed catalogue lookup.
func (m *Metrics) RecordStoreError() { m.storeErrors.Add(1) }

// RecordStoreTimeout records a catalogue lookup that hit its deadline.
func (m *Metrics) RecordStoreTimeout() { m.storeTimeouts.Add(1) }

// RecordLookup records the duration of one catalogue round trip.
func (m *Metrics) RecordLookup(d time.Duration) {
	ns := uint64(d.Nanoseconds())
	m.lookupTimeTotal.Add(ns)
	for {
		max := m.lookupTimeMax.Load()
		if ns <= max || m.lookupTimeMax.CompareAndSwap(max, ns) {
			break
		}
	}
}

// RecordDocument records one pipeline run.
func (m *Metrics) RecordDocument() { m.documentsTotal.Add(1) }

// RecordSectionFailure records an extractor that errored or panicked.
func (m *Metrics) RecordSectionFailure() { m.sectionsFailed.Add(1) }

// RecordEntrySkipped records a malformed source entry that was dropped.
func (m *Metrics) RecordEntrySkipped() { m.entriesSkipped.Add(1) }

// RecordSection records the timing and yield of one extractor run.
func (m *Metrics) RecordSection(id SectionID, d time.Duration, entries int) {
	v, _ := m.sectionTiming.LoadOrStore(id.String(), &sectionMetrics{})
	sm := v.(*sectionMetrics)
	sm.invocations.Add(1)
	sm.totalTime.Add(uint64(d.Nanoseconds()))
	sm.entries.Add(uint64(entries))
}

// --- Snapshot ---

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	ResolutionsTotal uint64
	SourceDisplays   uint64
	Translations     uint64
	DefaultDisplays  uint64
	Fallbacks        uint64

	CacheHits    uint64
	CacheMisses  uint64
	CacheHitRate float64

	StoreErrors   uint64
	StoreTimeouts uint64

	AvgLookupTime time.Duration
	MaxLookupTime time.Duration

	DocumentsTotal uint64
	SectionsFailed uint64
	EntriesSkipped uint64

	Sections map[string]SectionSnapshot
}

// SectionSnapshot summarizes one extractor's activity.
type SectionSnapshot struct {
	Invocations uint64
	AvgTime     time.Duration
	Entries     uint64
}

// Snapshot returns a consistent-enough copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	var avgLookup time.Duration
	if misses > 0 {
		avgLookup = time.Duration(m.lookupTimeTotal.Load() / misses)
	}

	snap := MetricsSnapshot{
		ResolutionsTotal: m.resolutionsTotal.Load(),
		SourceDisplays:   m.sourceDisplays.Load(),
		Translations:     m.translations.Load(),
		DefaultDisplays:  m.defaultDisplays.Load(),
		Fallbacks:        m.fallbacks.Load(),
		CacheHits:        hits,
		CacheMisses:      misses,
		CacheHitRate:     hitRate,
		StoreErrors:      m.storeErrors.Load(),
		StoreTimeouts:    m.storeTimeouts.Load(),
		AvgLookupTime:    avgLookup,
		MaxLookupTime:    time.Duration(m.lookupTimeMax.Load()),
		DocumentsTotal:   m.documentsTotal.Load(),
		SectionsFailed:   m.sectionsFailed.Load(),
		EntriesSkipped:   m.entriesSkipped.Load(),
		Sections:         make(map[string]SectionSnapshot),
	}

	m.sectionTiming.Range(func(k, v any) bool {
		sm := v.(*sectionMetrics)
		inv := sm.invocations.Load()
		var avg time.Duration
		if inv > 0 {
			avg = time.Duration(sm.totalTime.Load() / inv)
		}
		snap.Sections[k.(string)] = SectionSnapshot{
			Invocations: inv,
			AvgTime:     avg,
			Entries:     sm.entries.Load(),
		}
		return true
	})

	return snap
}

// Reset zeroes every counter. Intended for test isolation.
func (m *Metrics) Reset() {
	m.resolutionsTotal.Store(0)
	m.sourceDisplays.Store(0)
	m.translations.Store(0)
	m.defaultDisplays.Store(0)
	m.fallbacks.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.storeErrors.Store(0)
	m.storeTimeouts.Store(0)
	m.lookupTimeTotal.Store(0)
	m.lookupTimeMax.Store(0)
	m.documentsTotal.Store(0)
	m.sectionsFailed.Store(0)
	m.entriesSkipped.Store(0)
	m.sectionTiming.Range(func(k, _ any) bool {
		m.sectionTiming.Delete(k)
		return true
	})
}
