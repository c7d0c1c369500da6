package normalizer

import (
	"sync"
	"testing"
)

func makeSection(id SectionID, terms ...ResolvedTerm) NormalizedSection {
	s := NormalizedSection{
		SectionID:   id,
		Title:       id.String(),
		SectionCode: id.SectionCode(),
		DataSource:  SourceCDA,
	}
	if len(terms) > 0 {
		s.Entries = append(s.Entries, ClinicalSectionEntry{
			EntryID:       "e1",
			DisplayText:   terms[0].Display,
			CodedConcepts: terms,
		})
	}
	s.Finish()
	return s
}

func TestPipelineResult_DeterministicOrder(t *testing.T) {
	r := AcquireResult()
	defer r.Release()

	// Add out of order: assembly order must not matter.
	r.AddSection(makeSection(SectionProcedures))
	r.AddSection(makeSection(SectionAllergies))
	r.AddSection(makeSection(SectionMedications))
	r.Finalize()

	want := []SectionID{SectionAllergies, SectionMedications, SectionProcedures}
	if r.SectionsCount != len(want) {
		t.Fatalf("SectionsCount = %d; want %d", r.SectionsCount, len(want))
	}
	for i, id := range want {
		if r.Sections[i].SectionID != id {
			t.Errorf("Sections[%d] = %s; want %s", i, r.Sections[i].SectionID, id)
		}
	}
	if r.Section(SectionAllergies) == nil {
		t.Error("Section(allergies) should be indexed")
	}
	if r.Section(SectionConditions) != nil {
		t.Error("Section(conditions) was never added")
	}
}

func TestPipelineResult_ConceptCounts(t *testing.T) {
	r := AcquireResult()
	defer r.Release()

	r.AddSection(makeSection(SectionAllergies,
		NewResolvedTerm("420134006", "2.16.840.1.113883.6.96", "Propensity to adverse reactions", ProvenanceTranslation),
		NewResolvedTerm("999999", "9.9.9.9", FallbackDisplay("999999", "9.9.9.9"), ProvenanceFallback),
	))
	r.AddSection(makeSection(SectionConditions,
		NewResolvedTerm("195967001", "2.16.840.1.113883.6.96", "Asthma", ProvenanceSourceDisplay),
	))
	r.Finalize()

	resolved, total := r.ConceptCounts()
	if resolved != 2 || total != 3 {
		t.Errorf("ConceptCounts = (%d, %d); want (2, 3)", resolved, total)
	}
	if r.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d; want 2", r.TotalEntries)
	}
}

func TestPipelineResult_ConcurrentAdd(t *testing.T) {
	r := AcquireResult()
	defer r.Release()

	ids := []SectionID{
		SectionAllergies, SectionConditions, SectionImmunizations,
		SectionMedications, SectionObservations, SectionProcedures,
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id SectionID) {
			defer wg.Done()
			r.AddSection(makeSection(id))
		}(id)
	}
	wg.Wait()
	r.Finalize()

	if r.SectionsCount != len(ids) {
		t.Errorf("SectionsCount = %d; want %d", r.SectionsCount, len(ids))
	}
	for i := 1; i < len(r.Sections); i++ {
		if r.Sections[i-1].SectionID > r.Sections[i].SectionID {
			t.Fatalf("sections not sorted at %d", i)
		}
	}
}

func TestPipelineResult_Reset(t *testing.T) {
	r := AcquireResult()
	r.AddSection(makeSection(SectionAllergies))
	r.Finalize()
	r.Release()

	r2 := AcquireResult()
	defer r2.Release()
	if r2.SectionsCount != 0 || len(r2.Sections) != 0 {
		t.Error("pooled result not reset")
	}
	resolved, total := r2.ConceptCounts()
	if resolved != 0 || total != 0 {
		t.Error("pooled result retains tallies")
	}
}

func TestNormalizedSection_Finish(t *testing.T) {
	s := NormalizedSection{SectionID: SectionAllergies}
	s.Finish()
	if s.HasEntries || s.IsCodedSection {
		t.Error("empty section should be neither populated nor coded")
	}

	s.Entries = append(s.Entries, ClinicalSectionEntry{
		EntryID:     "e1",
		DisplayText: "Kiwi fruit",
		CodedConcepts: []ResolvedTerm{
			NewResolvedTerm("260176001", "2.16.840.1.113883.6.96", "Kiwi fruit", ProvenanceSourceDisplay),
		},
	})
	s.Finish()
	if !s.HasEntries || !s.IsCodedSection {
		t.Error("populated coded section misclassified")
	}
	if len(s.CodedConcepts) != 1 {
		t.Errorf("aggregate CodedConcepts = %d; want 1", len(s.CodedConcepts))
	}
}
