package section

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/cda"
	"github.com/clindoc/normalizer/fhir"
)

var immunizationColumns = []string{"Vaccine", "Status", "Date"}

var immunizationDisplay = cn.DisplayConfig{
	Icon:      "vaccine",
	EmptyText: "No immunizations recorded",
}

// Immunizations extracts immunization history entries.
type Immunizations struct {
	base
}

// NewImmunizations returns the immunizations extractor.
func NewImmunizations(cfg Config) *Immunizations {
	return &Immunizations{base: newBase(cn.SectionImmunizations, cfg)}
}

// ExtractCDA walks the substance administrations of the CDA immunization
// section.
func (e *Immunizations) ExtractCDA(ctx context.Context, doc *cda.ClinicalDocument) (*cn.NormalizedSection, error) {
	sec := doc.FindSection(cn.LoincImmunizations)
	if sec == nil {
		return nil, nil
	}
	out := e.newSection(sec.Title, cn.SourceCDA, immunizationColumns, immunizationDisplay)

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
		// negationInd marks an immunization that was refused or not
		// given; the record is kept, flagged by status.
		if sa.NegationInd == "true" {
			norm.ClinicalStatus = "not-done"
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

// ExtractFHIR walks the Immunization resources of a bundle.
func (e *Immunizations) ExtractFHIR(ctx context.Context, bundle *fhir.Bundle) (*cn.NormalizedSection, error) {
	resources := bundle.ResourcesOfType("Immunization")
	if len(resources) == 0 {
		return nil, nil
	}
	out := e.newSection("", cn.SourceFHIR, immunizationColumns, immunizationDisplay)

	for _, raw := range resources {
		var im fhir.Immunization
		if err := json.Unmarshal(raw.Resource, &im); err != nil {
			e.skipEntry("undecodable Immunization", zap.String("fullUrl", raw.FullURL), zap.Error(err))
			continue
		}

		terms := e.resolveFHIR(ctx, im.VaccineCode)
		norm := cn.ClinicalSectionEntry{
			EntryID:        entryID(im.ID),
			DisplayText:    displayTextOf(terms),
			CodedConcepts:  terms,
			ClinicalStatus: normalizeStatus(im.Status),
			OnsetDate:      fhir.FormatDateTime(im.OccurrenceDateTime),
			RecordedDate:   fhir.FormatDateTime(im.Recorded),
			SourceRef:      raw.FullURL,
		}
		norm.CodedConcepts = append(norm.CodedConcepts, e.resolveFHIR(ctx, im.Route)...)

		if len(norm.CodedConcepts) == 0 && norm.DisplayText == "" {
			e.skipEntry("resource carries no codes or text", zap.String("fullUrl", raw.FullURL))
			continue
		}
		out.Entries = append(out.Entries, norm)
	}
	out.Finish()
	return out, nil
}
