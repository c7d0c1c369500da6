package section

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/cda"
	"github.com/clindoc/normalizer/fhir"
)

var medicationColumns = []string{"Medication", "Status", "Dose", "Route", "Start"}

var medicationDisplay = cn.DisplayConfig{
	Icon:      "medication",
	EmptyText: "No medication information",
}

// Medications extracts medication use entries.
type Medications struct {
	base
}

// NewMedications returns the medications extractor.
func NewMedications(cfg Config) *Medications {
	return &Medications{base: newBase(cn.SectionMedications, cfg)}
}

// ExtractCDA walks the substance administrations of the CDA medication
// section.
func (e *Medications) ExtractCDA(ctx context.Context, doc *cda.ClinicalDocument) (*cn.NormalizedSection, error) {
	sec := doc.FindSection(cn.LoincMedications)
	if sec == nil {
		return nil, nil
	}
	out := e.newSection(sec.Title, cn.SourceCDA, medicationColumns, medicationDisplay)

	for i, entry := range sec.Entries {
		sa := entry.SubstanceAdministration
		if sa == nil {
			e.skipEntry("no substance administration", zap.Int("entry", i))
			continue
		}

		id := cdaEntryID(sa.IDs)
		norm := cn.ClinicalSectionEntry{
			EntryID:        id,
			ClinicalStatus: normalizeStatus(sa.StatusCode.Code),
			SourceRef:      id,
		}
		if sa.NegationInd == "true" {
			norm.ClinicalStatus = "not-taken"
		}
		if len(sa.EffectiveTimes) > 0 {
			norm.OnsetDate = cda.FormatTime(sa.EffectiveTimes[0].Best())
		}

		material := sa.Consumable.ManufacturedProduct.ManufacturedMaterial
		if term, ok := e.resolveCDA(ctx, material.Code); ok {
			norm.CodedConcepts = append(norm.CodedConcepts, term)
			norm.DisplayText = term.Display
		} else if name := cn.SanitizeDisplay(material.Name); name != "" {
			norm.DisplayText = name
		}
		if term, ok := e.resolveCDA(ctx, sa.RouteCode); ok {
			norm.CodedConcepts = append(norm.CodedConcepts, term)
		}
		if dose := formatQuantity(sa.DoseQuantity.Value, e.unitDisplay(ctx, "", sa.DoseQuantity.Unit)); dose != "" && norm.DisplayText != "" {
			norm.DisplayText += ", " + dose
		}

		if len(norm.CodedConcepts) == 0 && norm.DisplayText == "" {
			e.skipEntry("entry carries no codes or text", zap.Int("entry", i))
			continue
		}
		out.Entries = append(out.Entries, norm)
	}

	if len(out.Entries) == 0 {
		if entry, ok := narrativeEntry(sec.Text.Raw); ok {
			out.Entries = append(out.Entries, entry)
		}
	}
	out.Finish()
	return out, nil
}

// ExtractFHIR walks the MedicationStatement resources of a bundle.
func (e *Medications) ExtractFHIR(ctx context.Context, bundle *fhir.Bundle) (*cn.NormalizedSection, error) {
	resources := bundle.ResourcesOfType("MedicationStatement")
	if len(resources) == 0 {
		return nil, nil
	}
	out := e.newSection("", cn.SourceFHIR, medicationColumns, medicationDisplay)

	for _, raw := range resources {
		var ms fhir.MedicationStatement
		if err := json.Unmarshal(raw.Resource, &ms); err != nil {
			e.skipEntry("undecodable MedicationStatement", zap.String("fullUrl", raw.FullURL), zap.Error(err))
			continue
		}

		terms := e.resolveFHIR(ctx, ms.MedicationCodeableConcept)
		norm := cn.ClinicalSectionEntry{
			EntryID:        entryID(ms.ID),
			DisplayText:    displayTextOf(terms),
			CodedConcepts:  terms,
			ClinicalStatus: normalizeStatus(ms.Status),
			RecordedDate:   fhir.FormatDateTime(ms.DateAsserted),
			SourceRef:      raw.FullURL,
		}
		switch {
		case ms.EffectiveDateTime != "":
			norm.OnsetDate = fhir.FormatDateTime(ms.EffectiveDateTime)
		case ms.EffectivePeriod.Start != "":
			norm.OnsetDate = fhir.FormatDateTime(ms.EffectivePeriod.Start)
		}
		for _, d := range ms.Dosage {
			norm.CodedConcepts = append(norm.CodedConcepts, e.resolveFHIR(ctx, d.Route)...)
			for _, dr := range d.DoseAndRate {
				if dose := formatQuantity(dr.DoseQuantity.Value.String(), e.unitDisplay(ctx, dr.DoseQuantity.Unit, dr.DoseQuantity.Code)); dose != "" && norm.DisplayText != "" {
					norm.DisplayText += ", " + dose
				}
			}
		}

		if len(norm.CodedConcepts) == 0 && norm.DisplayText == "" {
			e.skipEntry("resource carries no codes or text", zap.String("fullUrl", raw.FullURL))
			continue
		}
		out.Entries = append(out.Entries, norm)
	}
	out.Finish()
	return out, nil
}
