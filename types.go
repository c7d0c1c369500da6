package normalizer

import (
	"fmt"
	"strings"
)

// ClinicalCode is a coded element exactly as found in a source document.
// Instances are created at parse time and never mutated afterwards.
type ClinicalCode struct {
	// Code is the raw code value, e.g. "420134006".
	Code string `json:"code"`

	// SystemOID identifies the governing code system, e.g.
	// "2.16.840.1.113883.6.96" for SNOMED CT. For FHIR sources the
	// canonical system URI is translated to its OID at parse time.
	SystemOID string `json:"systemOid"`

	// SourceDisplay is the display text carried by the source document.
	// Empty when the source omitted it, which is common.
	SourceDisplay string `json:"sourceDisplay,omitempty"`
}

// HasSourceDisplay reports whether the source carried usable display text.
// Whitespace-only text counts as absent.
func (c ClinicalCode) HasSourceDisplay() bool {
	return strings.TrimSpace(c.SourceDisplay) != ""
}

// Provenance records how a ResolvedTerm obtained its display text.
type Provenance string

const (
	// ProvenanceSourceDisplay means the source document's own display text
	// was used verbatim and the catalogue was not consulted.
	ProvenanceSourceDisplay Provenance = "source-display"
	// ProvenanceTranslation means a catalogue translation for the target
	// language was used.
	ProvenanceTranslation Provenance = "translation"
	// ProvenanceDefaultDisplay means the catalogue concept's default
	// display was used because no translation existed for the target
	// language.
	ProvenanceDefaultDisplay Provenance = "default-display"
	// ProvenanceFallback means resolution failed and a synthesized
	// "Code: ... (System: ...)" string was used.
	ProvenanceFallback Provenance = "fallback"
)

// Resolved reports whether the provenance represents a successful
// resolution, i.e. anything other than the synthesized fallback.
func (p Provenance) Resolved() bool {
	return p != ProvenanceFallback && p != ""
}

// ResolvedTerm is the outcome of resolving one ClinicalCode.
// Display is never empty and never contains raw angle-bracket markup.
type ResolvedTerm struct {
	Code       string     `json:"code"`
	SystemOID  string     `json:"systemOid"`
	Display    string     `json:"display"`
	Provenance Provenance `json:"provenance"`
}

// NewResolvedTerm builds a ResolvedTerm, sanitizing the display text.
// An empty display degrades to the fallback string so the totality
// guarantee holds even for misbehaving callers.
func NewResolvedTerm(code, systemOID, display string, provenance Provenance) ResolvedTerm {
	display = SanitizeDisplay(display)
	if display == "" {
		display = FallbackDisplay(code, systemOID)
		provenance = ProvenanceFallback
	}
	return ResolvedTerm{
		Code:       code,
		SystemOID:  systemOID,
		Display:    display,
		Provenance: provenance,
	}
}

// FallbackDisplay synthesizes the display string used when a code cannot
// be resolved. It always contains the original code value verbatim.
func FallbackDisplay(code, systemOID string) string {
	return fmt.Sprintf("Code: %s (System: %s)", code, systemOID)
}

// SanitizeDisplay strips raw markup from display text so that nothing
// resembling HTML or XML ever reaches a rendering layer. Tag contents are
// dropped, surrounding text is kept, and whitespace is collapsed.
func SanitizeDisplay(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
				// Tags act as word boundaries in narrative text.
				b.WriteRune(' ')
			} else {
				// A bare > outside any tag is ordinary text.
				b.WriteRune(r)
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
