package normalizer

// SectionID identifies a clinical domain section within a document.
// The values double as registry keys for the pipeline's extractor map and
// as the deterministic sort key for assembled results.
type SectionID string

// Clinical domain sections handled by the engine.
const (
	SectionAllergies     SectionID = "allergies"
	SectionConditions    SectionID = "conditions"
	SectionImmunizations SectionID = "immunizations"
	SectionMedications   SectionID = "medications"
	SectionObservations  SectionID = "observations"
	SectionProcedures    SectionID = "procedures"
)

// String returns the section identifier string.
func (id SectionID) String() string {
	return string(id)
}

// LOINC document section codes, one per clinical domain.
const (
	LoincAllergies     = "48765-2" // Allergies and adverse reactions
	LoincConditions    = "11450-4" // Problem list
	LoincImmunizations = "11369-6" // History of immunization
	LoincMedications   = "10160-0" // History of medication use
	LoincObservations  = "30954-2" // Relevant diagnostic tests/laboratory data
	LoincProcedures    = "47519-4" // History of procedures
)

// SectionCode returns the LOINC code for a section identifier, or the
// empty string for an unknown section.
func (id SectionID) SectionCode() string {
	switch id {
	case SectionAllergies:
		return LoincAllergies
	case SectionConditions:
		return LoincConditions
	case SectionImmunizations:
		return LoincImmunizations
	case SectionMedications:
		return LoincMedications
	case SectionObservations:
		return LoincObservations
	case SectionProcedures:
		return LoincProcedures
	default:
		return ""
	}
}

// ClinicalSectionEntry is one normalized clinical fact within a section:
// one allergy, one medication, one condition and so on. All optional
// source fields are plain strings left empty when the source omitted them.
type ClinicalSectionEntry struct {
	// EntryID is the source entry identifier, or a generated UUID when
	// the source carried none.
	EntryID string `json:"entryId"`

	// DisplayText is the human-readable summary line for the entry.
	DisplayText string `json:"displayText"`

	// CodedConcepts holds every resolved code attached to this entry.
	CodedConcepts []ResolvedTerm `json:"codedConcepts,omitempty"`

	// ClinicalStatus is the normalized status, e.g. "active", "resolved".
	ClinicalStatus string `json:"clinicalStatus,omitempty"`

	// OnsetDate and RecordedDate are source-format date strings
	// normalized to ISO-8601 where the source allows it.
	OnsetDate    string `json:"onsetDate,omitempty"`
	RecordedDate string `json:"recordedDate,omitempty"`

	// Severity holds a normalized severity or criticality label.
	Severity string `json:"severity,omitempty"`

	// Category holds a normalized category label, e.g. "medication" for
	// a drug allergy.
	Category string `json:"category,omitempty"`

	// SourceRef points back at the source element (XML entry id or FHIR
	// fullUrl/resource id) for audit trails.
	SourceRef string `json:"sourceRef,omitempty"`
}

// DisplayConfig carries rendering hints for one section. It is part of
// the normalized contract so presentation layers never need to know the
// source format.
type DisplayConfig struct {
	// Icon is a symbolic icon name for the section header.
	Icon string `json:"icon,omitempty"`

	// EmptyText is shown when the section is present but has no entries,
	// e.g. "No known allergies".
	EmptyText string `json:"emptyText,omitempty"`
}

// NormalizedSection is the canonical, source-agnostic representation of
// one clinical domain section. Extractors for both wire formats must emit
// structurally identical sections for semantically equivalent facts; this
// is the contract that decouples rendering from input format.
type NormalizedSection struct {
	SectionID SectionID `json:"sectionId"`

	// Title is the localized or source-derived section heading.
	Title string `json:"title"`

	// SectionCode is the LOINC code identifying the section.
	SectionCode string `json:"sectionCode"`

	// HasEntries distinguishes an empty-but-present section from one
	// with content; an absent section is simply not emitted.
	HasEntries bool `json:"hasEntries"`

	Entries []ClinicalSectionEntry `json:"entries"`

	// Columns names the tabular columns a renderer should show, in order.
	Columns []string `json:"columns"`

	DisplayConfig DisplayConfig `json:"displayConfig"`

	// CodedConcepts aggregates every resolved code across all entries.
	CodedConcepts []ResolvedTerm `json:"codedConcepts,omitempty"`

	// IsCodedSection is true when at least one entry carries coded
	// concepts, false for narrative-only sections.
	IsCodedSection bool `json:"isCodedSection"`

	// DataSource records which wire format produced this section.
	DataSource SourceType `json:"dataSource"`
}

// TotalEntries returns the number of entries in the section.
func (s *NormalizedSection) TotalEntries() int {
	return len(s.Entries)
}

// Finish derives the aggregate fields from the entries: HasEntries,
// IsCodedSection and the CodedConcepts roll-up. Extractors call it once
// after populating Entries.
func (s *NormalizedSection) Finish() {
	s.HasEntries = len(s.Entries) > 0
	s.IsCodedSection = false
	s.CodedConcepts = s.CodedConcepts[:0]
	for _, e := range s.Entries {
		if len(e.CodedConcepts) > 0 {
			s.IsCodedSection = true
			s.CodedConcepts = append(s.CodedConcepts, e.CodedConcepts...)
		}
	}
}
