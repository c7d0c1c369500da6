package section

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/cda"
	"github.com/clindoc/normalizer/fhir"
)

var conditionColumns = []string{"Condition", "Status", "Severity", "Onset"}

var conditionDisplay = cn.DisplayConfig{
	Icon:      "condition",
	EmptyText: "No known conditions",
}

// Conditions extracts problem list entries.
type Conditions struct {
	base
}

// NewConditions returns the conditions extractor.
func NewConditions(cfg Config) *Conditions {
	return &Conditions{base: newBase(cn.SectionConditions, cfg)}
}

// ExtractCDA walks the problem concern acts of the CDA problem section.
func (e *Conditions) ExtractCDA(ctx context.Context, doc *cda.ClinicalDocument) (*cn.NormalizedSection, error) {
	sec := doc.FindSection(cn.LoincConditions)
	if sec == nil {
		return nil, nil
	}
	out := e.newSection(sec.Title, cn.SourceCDA, conditionColumns, conditionDisplay)

	for i, entry := range sec.Entries {
		obs := concernObservation(entry)
		if obs == nil {
			e.skipEntry("no problem observation", zap.Int("entry", i))
			continue
		}

		id := cdaEntryID(obs.IDs)
		norm := cn.ClinicalSectionEntry{
			EntryID:   id,
			OnsetDate: cda.FormatTime(obs.EffectiveTime.Best()),
			SourceRef: id,
		}
		if entry.Act != nil {
			norm.ClinicalStatus = normalizeStatus(entry.Act.StatusCode.Code)
		}

		// The problem itself is the observation value; the observation
		// code only says what kind of problem record this is.
		for _, v := range obs.Values {
			if term, ok := e.resolveCDA(ctx, v.Code); ok {
				norm.CodedConcepts = append(norm.CodedConcepts, term)
				if norm.DisplayText == "" {
					norm.DisplayText = term.Display
				}
			}
		}
		for _, rel := range obs.Relationships {
			if rel.Observation != nil && rel.Observation.Code.Code == "SEV" && len(rel.Observation.Values) > 0 {
				norm.Severity = normalizeSeverity(rel.Observation.Values[0].Code.Code)
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

// ExtractFHIR walks the Condition resources of a bundle.
func (e *Conditions) ExtractFHIR(ctx context.Context, bundle *fhir.Bundle) (*cn.NormalizedSection, error) {
	resources := bundle.ResourcesOfType("Condition")
	if len(resources) == 0 {
		return nil, nil
	}
	out := e.newSection("", cn.SourceFHIR, conditionColumns, conditionDisplay)

	for _, raw := range resources {
		var c fhir.Condition
		if err := json.Unmarshal(raw.Resource, &c); err != nil {
			e.skipEntry("undecodable Condition", zap.String("fullUrl", raw.FullURL), zap.Error(err))
			continue
		}

		terms := e.resolveFHIR(ctx, c.Code)
		norm := cn.ClinicalSectionEntry{
			EntryID:        entryID(c.ID),
			DisplayText:    displayTextOf(terms),
			CodedConcepts:  terms,
			ClinicalStatus: normalizeStatus(c.ClinicalStatus.FirstCode()),
			Severity:       normalizeSeverity(c.Severity.FirstCode()),
			OnsetDate:      fhir.FormatDateTime(c.OnsetDateTime),
			RecordedDate:   fhir.FormatDateTime(c.RecordedDate),
			SourceRef:      raw.FullURL,
		}
		if len(c.Category) > 0 {
			norm.Category = c.Category[0].FirstCode()
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
