// Package fhir provides a minimal wire model for FHIR R4 JSON Bundles:
// just the resource shapes the extractors walk. Nothing in this package
// leaks past the extractors; presentation layers only ever see normalized
// sections.
package fhir

import (
	"encoding/json"
	"fmt"
)

// Bundle is a FHIR R4 Bundle. Entry resources stay raw until an
// extractor asks for a concrete type, so one malformed resource never
// poisons the rest of the bundle.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Entry        []BundleEntry `json:"entry"`
}

// BundleEntry is one entry of a Bundle.
type BundleEntry struct {
	FullURL  string          `json:"fullUrl"`
	Resource json.RawMessage `json:"resource"`
}

// resourceHeader peeks at the type and id of a raw resource.
type resourceHeader struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
}

// ParseBundle decodes a raw FHIR Bundle.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse FHIR bundle: %w", err)
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("parse FHIR bundle: resourceType is %q, not Bundle", b.ResourceType)
	}
	return &b, nil
}

// RawResource pairs a raw resource with its enclosing entry's fullUrl.
type RawResource struct {
	FullURL  string
	ID       string
	Resource json.RawMessage
}

// ResourcesOfType returns the raw resources of the given type, in bundle
// order. Entries whose resource cannot even be peeked at are skipped.
func (b *Bundle) ResourcesOfType(resourceType string) []RawResource {
	var out []RawResource
	for _, e := range b.Entry {
		if len(e.Resource) == 0 {
			continue
		}
		var hdr resourceHeader
		if err := json.Unmarshal(e.Resource, &hdr); err != nil {
			continue
		}
		if hdr.ResourceType != resourceType {
			continue
		}
		out = append(out, RawResource{
			FullURL:  e.FullURL,
			ID:       hdr.ID,
			Resource: e.Resource,
		})
	}
	return out
}

// --- Shared datatypes ---

// Coding is a FHIR Coding.
type Coding struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display"`
}

// CodeableConcept is a FHIR CodeableConcept.
type CodeableConcept struct {
	Coding []Coding `json:"coding"`
	Text   string   `json:"text"`
}

// FirstCode returns the first coding's code, or "".
func (c CodeableConcept) FirstCode() string {
	if len(c.Coding) > 0 {
		return c.Coding[0].Code
	}
	return ""
}

// Quantity is a FHIR Quantity.
type Quantity struct {
	Value  json.Number `json:"value"`
	Unit   string      `json:"unit"`
	System string      `json:"system"`
	Code   string      `json:"code"`
}

// Reference is a FHIR Reference.
type Reference struct {
	Reference string `json:"reference"`
	Display   string `json:"display"`
}

// --- Clinical resources ---

// AllergyIntolerance is a FHIR R4 AllergyIntolerance resource.
type AllergyIntolerance struct {
	ID                 string          `json:"id"`
	ClinicalStatus     CodeableConcept `json:"clinicalStatus"`
	VerificationStatus CodeableConcept `json:"verificationStatus"`
	Category           []string        `json:"category"`
	Criticality        string          `json:"criticality"`
	Code               CodeableConcept `json:"code"`
	OnsetDateTime      string          `json:"onsetDateTime"`
	RecordedDate       string          `json:"recordedDate"`
	Reaction           []struct {
		Manifestation []CodeableConcept `json:"manifestation"`
		Severity      string            `json:"severity"`
	} `json:"reaction"`
}

// Condition is a FHIR R4 Condition resource.
type Condition struct {
	ID                 string            `json:"id"`
	ClinicalStatus     CodeableConcept   `json:"clinicalStatus"`
	VerificationStatus CodeableConcept   `json:"verificationStatus"`
	Category           []CodeableConcept `json:"category"`
	Severity           CodeableConcept   `json:"severity"`
	Code               CodeableConcept   `json:"code"`
	OnsetDateTime      string            `json:"onsetDateTime"`
	RecordedDate       string            `json:"recordedDate"`
}

// MedicationStatement is a FHIR R4 MedicationStatement resource.
type MedicationStatement struct {
	ID                        string          `json:"id"`
	Status                    string          `json:"status"`
	MedicationCodeableConcept CodeableConcept `json:"medicationCodeableConcept"`
	EffectiveDateTime         string          `json:"effectiveDateTime"`
	EffectivePeriod           struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"effectivePeriod"`
	DateAsserted string `json:"dateAsserted"`
	Dosage       []struct {
		Text        string          `json:"text"`
		Route       CodeableConcept `json:"route"`
		DoseAndRate []struct {
			DoseQuantity Quantity `json:"doseQuantity"`
		} `json:"doseAndRate"`
	} `json:"dosage"`
}

// Procedure is a FHIR R4 Procedure resource.
type Procedure struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Code              CodeableConcept `json:"code"`
	PerformedDateTime string          `json:"performedDateTime"`
	PerformedPeriod   struct {
		Start string `json:"start"`
	} `json:"performedPeriod"`
	BodySite []CodeableConcept `json:"bodySite"`
}

// Observation is a FHIR R4 Observation resource.
type Observation struct {
	ID                   string            `json:"id"`
	Status               string            `json:"status"`
	Category             []CodeableConcept `json:"category"`
	Code                 CodeableConcept   `json:"code"`
	EffectiveDateTime    string            `json:"effectiveDateTime"`
	Issued               string            `json:"issued"`
	ValueQuantity        *Quantity         `json:"valueQuantity"`
	ValueCodeableConcept *CodeableConcept  `json:"valueCodeableConcept"`
	ValueString          string            `json:"valueString"`
	Interpretation       []CodeableConcept `json:"interpretation"`
}

// Immunization is a FHIR R4 Immunization resource.
type Immunization struct {
	ID                 string          `json:"id"`
	Status             string          `json:"status"`
	VaccineCode        CodeableConcept `json:"vaccineCode"`
	OccurrenceDateTime string          `json:"occurrenceDateTime"`
	Recorded           string          `json:"recorded"`
	Route              CodeableConcept `json:"route"`
	DoseQuantity       *Quantity       `json:"doseQuantity"`
}

// FormatDateTime normalizes a FHIR instant/dateTime to its date part.
// Partial dates ("2010", "2010-05") pass through unchanged.
func FormatDateTime(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
