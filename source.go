package normalizer

// SourceType identifies the wire format of a raw clinical document.
// It is always supplied explicitly by the caller; documents are never
// auto-detected.
type SourceType string

// Supported source formats.
const (
	// SourceCDA is an HL7 CDA R2 XML document.
	SourceCDA SourceType = "CDA"
	// SourceFHIR is a FHIR R4 JSON Bundle.
	SourceFHIR SourceType = "FHIR"
)

// String returns the source type string.
func (s SourceType) String() string {
	return string(s)
}

// IsValid returns true if this is a supported source format.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceCDA, SourceFHIR:
		return true
	default:
		return false
	}
}
