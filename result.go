package normalizer

import (
	"sort"
	"sync"
)

// PipelineResult contains the outcome of normalizing one clinical document.
// Use Release() to return it to the pool when done for better performance.
type PipelineResult struct {
	// Sections holds the normalized sections in deterministic SectionID
	// order, regardless of extraction completion order.
	Sections []NormalizedSection `json:"sections"`

	// SectionsByID indexes Sections by their identifier.
	SectionsByID map[SectionID]*NormalizedSection `json:"-"`

	// SectionsCount is the number of sections extracted.
	SectionsCount int `json:"sectionsCount"`

	// TotalEntries is the number of entries across all sections.
	TotalEntries int `json:"totalEntries"`

	// Source records which wire format the document arrived in.
	Source SourceType `json:"source"`

	// Resolution tally for the quality assessor, maintained as sections
	// are added so scoring never re-walks the tree.
	resolvedConcepts int
	totalConcepts    int

	// mu protects concurrent section additions during parallel extraction.
	mu sync.Mutex
}

// resultPool holds reusable PipelineResult instances.
var resultPool = sync.Pool{
	New: func() any {
		return &PipelineResult{
			Sections: make([]NormalizedSection, 0, 8),
		}
	},
}

// AcquireResult gets a PipelineResult from the pool.
func AcquireResult() *PipelineResult {
	r := resultPool.Get().(*PipelineResult)
	r.Reset()
	return r
}

// Release returns the PipelineResult to the pool.
// After calling Release, the result should not be used.
func (r *PipelineResult) Release() {
	if r == nil {
		return
	}
	resultPool.Put(r)
}

// Reset clears the result for reuse.
func (r *PipelineResult) Reset() {
	r.Sections = r.Sections[:0]
	r.SectionsByID = nil
	r.SectionsCount = 0
	r.TotalEntries = 0
	r.Source = ""
	r.resolvedConcepts = 0
	r.totalConcepts = 0
}

// AddSection appends a normalized section and updates the running tallies.
// This method is thread-safe.
func (r *PipelineResult) AddSection(s NormalizedSection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Sections = append(r.Sections, s)
	r.TotalEntries += len(s.Entries)
	for _, term := range s.CodedConcepts {
		r.totalConcepts++
		if term.Provenance.Resolved() {
			r.resolvedConcepts++
		}
	}
}

// Finalize sorts the sections by SectionID and builds the index. The
// pipeline calls it exactly once, after every extractor has completed.
func (r *PipelineResult) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	sort.Slice(r.Sections, func(i, j int) bool {
		return r.Sections[i].SectionID < r.Sections[j].SectionID
	})
	r.SectionsCount = len(r.Sections)
	r.SectionsByID = make(map[SectionID]*NormalizedSection, len(r.Sections))
	for i := range r.Sections {
		r.SectionsByID[r.Sections[i].SectionID] = &r.Sections[i]
	}
}

// Section returns the section with the given identifier, or nil.
func (r *PipelineResult) Section(id SectionID) *NormalizedSection {
	return r.SectionsByID[id]
}

// ConceptCounts returns the resolved and total coded-concept tallies used
// by the quality assessor.
func (r *PipelineResult) ConceptCounts() (resolved, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolvedConcepts, r.totalConcepts
}
