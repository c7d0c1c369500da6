package normalizer

import (
	"strings"
	"testing"
)

func TestSanitizeDisplay(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Penicillin allergy", "Penicillin allergy"},
		{"leading whitespace", "  Penicillin allergy \n", "Penicillin allergy"},
		{"simple tag", "<b>Kiwi fruit</b>", "Kiwi fruit"},
		{"nested markup", "<td><content ID=\"a1\">Asthma</content></td>", "Asthma"},
		{"tag as separator", "line one<br/>line two", "line one line two"},
		{"empty", "", ""},
		{"only markup", "<br/>", ""},
		{"bare greater-than is text", "pH > 7", "pH > 7"},
		{"bare greater-than after tag", "<b>pH</b> > 7", "pH > 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeDisplay(tt.input); got != tt.want {
				t.Errorf("SanitizeDisplay(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewResolvedTerm_NeverEmpty(t *testing.T) {
	tests := []struct {
		name       string
		display    string
		provenance Provenance
		wantProv   Provenance
	}{
		{"normal", "Propensity to adverse reactions", ProvenanceTranslation, ProvenanceTranslation},
		{"empty degrades to fallback", "", ProvenanceDefaultDisplay, ProvenanceFallback},
		{"whitespace degrades to fallback", "   ", ProvenanceDefaultDisplay, ProvenanceFallback},
		{"markup-only degrades to fallback", "<p></p>", ProvenanceSourceDisplay, ProvenanceFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := NewResolvedTerm("420134006", "2.16.840.1.113883.6.96", tt.display, tt.provenance)
			if term.Display == "" {
				t.Fatal("Display must never be empty")
			}
			if term.Provenance != tt.wantProv {
				t.Errorf("Provenance = %q; want %q", term.Provenance, tt.wantProv)
			}
			if strings.ContainsAny(term.Display, "<>") {
				t.Errorf("Display %q leaks markup", term.Display)
			}
		})
	}
}

func TestFallbackDisplay_ContainsCodeVerbatim(t *testing.T) {
	got := FallbackDisplay("999999", "9.9.9.9")
	want := "Code: 999999 (System: 9.9.9.9)"
	if got != want {
		t.Errorf("FallbackDisplay = %q; want %q", got, want)
	}
}

func TestProvenance_Resolved(t *testing.T) {
	if ProvenanceFallback.Resolved() {
		t.Error("fallback must not count as resolved")
	}
	if Provenance("").Resolved() {
		t.Error("zero provenance must not count as resolved")
	}
	for _, p := range []Provenance{ProvenanceSourceDisplay, ProvenanceTranslation, ProvenanceDefaultDisplay} {
		if !p.Resolved() {
			t.Errorf("%q should count as resolved", p)
		}
	}
}

func TestClinicalCode_HasSourceDisplay(t *testing.T) {
	if (ClinicalCode{SourceDisplay: " \t"}).HasSourceDisplay() {
		t.Error("whitespace-only display should count as absent")
	}
	if !(ClinicalCode{SourceDisplay: "Kiwi fruit"}).HasSourceDisplay() {
		t.Error("populated display should count as present")
	}
}

func TestSourceType_IsValid(t *testing.T) {
	if !SourceCDA.IsValid() || !SourceFHIR.IsValid() {
		t.Error("known source types should be valid")
	}
	if SourceType("HL7v2").IsValid() {
		t.Error("unknown source type should be invalid")
	}
}
