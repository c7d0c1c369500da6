package normalizer

import (
	"sync"
	"testing"
	"time"
)

func TestMetrics_Resolutions(t *testing.T) {
	m := NewMetrics()

	m.RecordResolution(ProvenanceSourceDisplay)
	m.RecordResolution(ProvenanceTranslation)
	m.RecordResolution(ProvenanceTranslation)
	m.RecordResolution(ProvenanceDefaultDisplay)
	m.RecordResolution(ProvenanceFallback)

	snap := m.Snapshot()
	if snap.ResolutionsTotal != 5 {
		t.Errorf("ResolutionsTotal = %d; want 5", snap.ResolutionsTotal)
	}
	if snap.SourceDisplays != 1 || snap.Translations != 2 || snap.DefaultDisplays != 1 || snap.Fallbacks != 1 {
		t.Errorf("provenance counts = %d/%d/%d/%d; want 1/2/1/1",
			snap.SourceDisplays, snap.Translations, snap.DefaultDisplays, snap.Fallbacks)
	}
}

func TestMetrics_CacheHitRate(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 3; i++ {
		m.RecordCacheHit()
	}
	m.RecordCacheMiss()

	snap := m.Snapshot()
	if snap.CacheHitRate != 0.75 {
		t.Errorf("CacheHitRate = %f; want 0.75", snap.CacheHitRate)
	}
}

func TestMetrics_LookupTiming(t *testing.T) {
	m := NewMetrics()

	m.RecordCacheMiss()
	m.RecordCacheMiss()
	m.RecordLookup(10 * time.Millisecond)
	m.RecordLookup(30 * time.Millisecond)

	snap := m.Snapshot()
	if snap.AvgLookupTime != 20*time.Millisecond {
		t.Errorf("AvgLookupTime = %v; want 20ms", snap.AvgLookupTime)
	}
	if snap.MaxLookupTime != 30*time.Millisecond {
		t.Errorf("MaxLookupTime = %v; want 30ms", snap.MaxLookupTime)
	}
}

func TestMetrics_Sections(t *testing.T) {
	m := NewMetrics()

	m.RecordSection(SectionAllergies, 2*time.Millisecond, 3)
	m.RecordSection(SectionAllergies, 4*time.Millisecond, 1)
	m.RecordSection(SectionMedications, time.Millisecond, 0)

	snap := m.Snapshot()
	s := snap.Sections["allergies"]
	if s.Invocations != 2 || s.Entries != 4 {
		t.Errorf("allergies section = %+v; want 2 invocations, 4 entries", s)
	}
	if s.AvgTime != 3*time.Millisecond {
		t.Errorf("AvgTime = %v; want 3ms", s.AvgTime)
	}
	if _, ok := snap.Sections["medications"]; !ok {
		t.Error("medications section missing from snapshot")
	}
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordResolution(ProvenanceTranslation)
				m.RecordCacheHit()
				m.RecordSection(SectionConditions, time.Microsecond, 1)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.ResolutionsTotal != 800 {
		t.Errorf("ResolutionsTotal = %d; want 800", snap.ResolutionsTotal)
	}
	if snap.Sections["conditions"].Entries != 800 {
		t.Errorf("conditions entries = %d; want 800", snap.Sections["conditions"].Entries)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.RecordResolution(ProvenanceFallback)
	m.RecordDocument()
	m.RecordSection(SectionAllergies, time.Millisecond, 1)

	m.Reset()

	snap := m.Snapshot()
	if snap.ResolutionsTotal != 0 || snap.DocumentsTotal != 0 || len(snap.Sections) != 0 {
		t.Errorf("Reset left counters: %+v", snap)
	}
}
