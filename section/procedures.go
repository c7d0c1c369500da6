package section

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/cda"
	"github.com/clindoc/normalizer/fhir"
)

var procedureColumns = []string{"Procedure", "Status", "Date"}

var procedureDisplay = cn.DisplayConfig{
	Icon:      "procedure",
	EmptyText: "No procedures recorded",
}

// Procedures extracts procedure history entries.
type Procedures struct {
	base
}

// NewProcedures returns the procedures extractor.
func NewProcedures(cfg Config) *Procedures {
	return &Procedures{base: newBase(cn.SectionProcedures, cfg)}
}

// ExtractCDA walks the procedure statements of the CDA procedures
// section.
func (e *Procedures) ExtractCDA(ctx context.Context, doc *cda.ClinicalDocument) (*cn.NormalizedSection, error) {
	sec := doc.FindSection(cn.LoincProcedures)
	if sec == nil {
		return nil, nil
	}
	out := e.newSection(sec.Title, cn.SourceCDA, procedureColumns, procedureDisplay)

	for i, entry := range sec.Entries {
		proc := entry.Procedure
		if proc == nil {
			e.skipEntry("no procedure statement", zap.Int("entry", i))
			continue
		}

		id := cdaEntryID(proc.IDs)
		norm := cn.ClinicalSectionEntry{
			EntryID:        id,
			ClinicalStatus: normalizeStatus(proc.StatusCode.Code),
			OnsetDate:      cda.FormatTime(proc.EffectiveTime.Best()),
			SourceRef:      id,
		}
		if term, ok := e.resolveCDA(ctx, proc.Code); ok {
			norm.CodedConcepts = append(norm.CodedConcepts, term)
			norm.DisplayText = term.Display
		}
		for _, site := range proc.TargetSites {
			if term, ok := e.resolveCDA(ctx, site); ok {
				norm.CodedConcepts = append(norm.CodedConcepts, term)
			}
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

// ExtractFHIR walks the Procedure resources of a bundle.
func (e *Procedures) ExtractFHIR(ctx context.Context, bundle *fhir.Bundle) (*cn.NormalizedSection, error) {
	resources := bundle.ResourcesOfType("Procedure")
	if len(resources) == 0 {
		return nil, nil
	}
	out := e.newSection("", cn.SourceFHIR, procedureColumns, procedureDisplay)

	for _, raw := range resources {
		var p fhir.Procedure
		if err := json.Unmarshal(raw.Resource, &p); err != nil {
			e.skipEntry("undecodable Procedure", zap.String("fullUrl", raw.FullURL), zap.Error(err))
			continue
		}

		terms := e.resolveFHIR(ctx, p.Code)
		norm := cn.ClinicalSectionEntry{
			EntryID:        entryID(p.ID),
			DisplayText:    displayTextOf(terms),
			CodedConcepts:  terms,
			ClinicalStatus: normalizeStatus(p.Status),
			SourceRef:      raw.FullURL,
		}
		switch {
		case p.PerformedDateTime != "":
			norm.OnsetDate = fhir.FormatDateTime(p.PerformedDateTime)
		case p.PerformedPeriod.Start != "":
			norm.OnsetDate = fhir.FormatDateTime(p.PerformedPeriod.Start)
		}
		for _, site := range p.BodySite {
			norm.CodedConcepts = append(norm.CodedConcepts, e.resolveFHIR(ctx, site)...)
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
