package section

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/cda"
	"github.com/clindoc/normalizer/fhir"
)

var observationColumns = []string{"Test", "Result", "Date"}

var observationDisplay = cn.DisplayConfig{
	Icon:      "lab",
	EmptyText: "No diagnostic results",
}

// Observations extracts diagnostic and laboratory result entries.
type Observations struct {
	base
}

// NewObservations returns the observations extractor.
func NewObservations(cfg Config) *Observations {
	return &Observations{base: newBase(cn.SectionObservations, cfg)}
}

// ExtractCDA walks the results section, unwrapping organizer batteries
// into their component observations.
func (e *Observations) ExtractCDA(ctx context.Context, doc *cda.ClinicalDocument) (*cn.NormalizedSection, error) {
	sec := doc.FindSection(cn.LoincObservations)
	if sec == nil {
		return nil, nil
	}
	out := e.newSection(sec.Title, cn.SourceCDA, observationColumns, observationDisplay)

	for i, entry := range sec.Entries {
		var observations []*cda.Observation
		switch {
		case entry.Organizer != nil:
			for _, comp := range entry.Organizer.Components {
				if comp.Observation != nil {
					observations = append(observations, comp.Observation)
				}
			}
		case entry.Observation != nil:
			observations = append(observations, entry.Observation)
		}
		if len(observations) == 0 {
			e.skipEntry("no result observation", zap.Int("entry", i))
			continue
		}

		for _, obs := range observations {
			norm := e.cdaResult(ctx, obs)
			if len(norm.CodedConcepts) == 0 && norm.DisplayText == "" {
				e.skipEntry("entry carries no codes or text", zap.Int("entry", i))
				continue
			}
			out.Entries = append(out.Entries, norm)
		}
	}

	if len(out.Entries) == 0 {
		if entry, ok := narrativeEntry(sec.Text.Raw); ok {
			out.Entries = append(out.Entries, entry)
		}
	}
	out.Finish()
	return out, nil
}

// cdaResult normalizes one result observation. The test code names the
// row; the value contributes either a quantity or a further coded term.
func (e *Observations) cdaResult(ctx context.Context, obs *cda.Observation) cn.ClinicalSectionEntry {
	id := cdaEntryID(obs.IDs)
	norm := cn.ClinicalSectionEntry{
		EntryID:        id,
		ClinicalStatus: normalizeStatus(obs.StatusCode.Code),
		OnsetDate:      cda.FormatTime(obs.EffectiveTime.Best()),
		SourceRef:      id,
	}
	if term, ok := e.resolveCDA(ctx, obs.Code); ok {
		norm.CodedConcepts = append(norm.CodedConcepts, term)
		norm.DisplayText = term.Display
	}
	for _, v := range obs.Values {
		switch {
		case v.Value != "":
			if q := formatQuantity(v.Value, e.unitDisplay(ctx, "", v.Unit)); q != "" {
				if norm.DisplayText != "" {
					norm.DisplayText += ": " + q
				} else {
					norm.DisplayText = q
				}
			}
		default:
			if term, ok := e.resolveCDA(ctx, v.Code); ok {
				norm.CodedConcepts = append(norm.CodedConcepts, term)
				if norm.DisplayText == "" {
					norm.DisplayText = term.Display
				}
			}
		}
	}
	return norm
}

// ExtractFHIR walks the Observation resources of a bundle.
func (e *Observations) ExtractFHIR(ctx context.Context, bundle *fhir.Bundle) (*cn.NormalizedSection, error) {
	resources := bundle.ResourcesOfType("Observation")
	if len(resources) == 0 {
		return nil, nil
	}
	out := e.newSection("", cn.SourceFHIR, observationColumns, observationDisplay)

	for _, raw := range resources {
		var obs fhir.Observation
		if err := json.Unmarshal(raw.Resource, &obs); err != nil {
			e.skipEntry("undecodable Observation", zap.String("fullUrl", raw.FullURL), zap.Error(err))
			continue
		}

		terms := e.resolveFHIR(ctx, obs.Code)
		norm := cn.ClinicalSectionEntry{
			EntryID:        entryID(obs.ID),
			DisplayText:    displayTextOf(terms),
			CodedConcepts:  terms,
			ClinicalStatus: normalizeStatus(obs.Status),
			OnsetDate:      fhir.FormatDateTime(obs.EffectiveDateTime),
			RecordedDate:   fhir.FormatDateTime(obs.Issued),
			SourceRef:      raw.FullURL,
		}
		if len(obs.Category) > 0 {
			norm.Category = obs.Category[0].FirstCode()
		}
		switch {
		case obs.ValueQuantity != nil:
			if q := formatQuantity(obs.ValueQuantity.Value.String(), e.unitDisplay(ctx, obs.ValueQuantity.Unit, obs.ValueQuantity.Code)); q != "" {
				if norm.DisplayText != "" {
					norm.DisplayText += ": " + q
				} else {
					norm.DisplayText = q
				}
			}
		case obs.ValueCodeableConcept != nil:
			vterms := e.resolveFHIR(ctx, *obs.ValueCodeableConcept)
			norm.CodedConcepts = append(norm.CodedConcepts, vterms...)
			if norm.DisplayText == "" {
				norm.DisplayText = displayTextOf(vterms)
			}
		case obs.ValueString != "":
			if norm.DisplayText != "" {
				norm.DisplayText += ": " + cn.SanitizeDisplay(obs.ValueString)
			} else {
				norm.DisplayText = cn.SanitizeDisplay(obs.ValueString)
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
