package section

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/cda"
	"github.com/clindoc/normalizer/fhir"
)

var allergyColumns = []string{"Allergen", "Status", "Severity", "Reaction", "Onset"}

var allergyDisplay = cn.DisplayConfig{
	Icon:      "allergy",
	EmptyText: "No known allergies",
}

// Allergies extracts allergy and intolerance entries.
type Allergies struct {
	base
}

// NewAllergies returns the allergies extractor.
func NewAllergies(cfg Config) *Allergies {
	return &Allergies{base: newBase(cn.SectionAllergies, cfg)}
}

// ExtractCDA walks the allergy concern acts of the CDA allergies section.
func (e *Allergies) ExtractCDA(ctx context.Context, doc *cda.ClinicalDocument) (*cn.NormalizedSection, error) {
	sec := doc.FindSection(cn.LoincAllergies)
	if sec == nil {
		return nil, nil
	}
	out := e.newSection(sec.Title, cn.SourceCDA, allergyColumns, allergyDisplay)

	for i, entry := range sec.Entries {
		obs := concernObservation(entry)
		if obs == nil {
			e.skipEntry("no allergy observation", zap.Int("entry", i))
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

		// The allergen substance lives on the CSM participant; the
		// observation value only classifies the allergy kind.
		for _, p := range obs.Participants {
			if term, ok := e.resolveCDA(ctx, p.ParticipantRole.PlayingEntity.Code); ok {
				norm.CodedConcepts = append(norm.CodedConcepts, term)
				if norm.DisplayText == "" {
					norm.DisplayText = term.Display
				}
			}
		}
		for _, v := range obs.Values {
			if term, ok := e.resolveCDA(ctx, v.Code); ok {
				norm.CodedConcepts = append(norm.CodedConcepts, term)
				norm.Category = allergyCategory(v.Code.Code)
				if norm.DisplayText == "" {
					norm.DisplayText = term.Display
				}
			}
		}
		for _, rel := range obs.Relationships {
			if rel.Observation == nil {
				continue
			}
			switch {
			case rel.Observation.Code.Code == "SEV":
				if len(rel.Observation.Values) > 0 {
					norm.Severity = normalizeSeverity(rel.Observation.Values[0].Code.Code)
				}
			case rel.TypeCode == "MFST":
				if term, ok := e.resolveCDA(ctx, valueCode(rel.Observation)); ok {
					norm.CodedConcepts = append(norm.CodedConcepts, term)
				}
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

// ExtractFHIR walks the AllergyIntolerance resources of a bundle.
func (e *Allergies) ExtractFHIR(ctx context.Context, bundle *fhir.Bundle) (*cn.NormalizedSection, error) {
	resources := bundle.ResourcesOfType("AllergyIntolerance")
	if len(resources) == 0 {
		return nil, nil
	}
	out := e.newSection("", cn.SourceFHIR, allergyColumns, allergyDisplay)

	for _, raw := range resources {
		var ai fhir.AllergyIntolerance
		if err := json.Unmarshal(raw.Resource, &ai); err != nil {
			e.skipEntry("undecodable AllergyIntolerance", zap.String("fullUrl", raw.FullURL), zap.Error(err))
			continue
		}

		terms := e.resolveFHIR(ctx, ai.Code)
		norm := cn.ClinicalSectionEntry{
			EntryID:        entryID(ai.ID),
			DisplayText:    displayTextOf(terms),
			CodedConcepts:  terms,
			ClinicalStatus: normalizeStatus(ai.ClinicalStatus.FirstCode()),
			OnsetDate:      fhir.FormatDateTime(ai.OnsetDateTime),
			RecordedDate:   fhir.FormatDateTime(ai.RecordedDate),
			SourceRef:      raw.FullURL,
		}
		if len(ai.Category) > 0 {
			norm.Category = ai.Category[0]
		}
		for _, reaction := range ai.Reaction {
			if norm.Severity == "" {
				norm.Severity = normalizeSeverity(reaction.Severity)
			}
			for _, m := range reaction.Manifestation {
				norm.CodedConcepts = append(norm.CodedConcepts, e.resolveFHIR(ctx, m)...)
			}
		}
		if norm.Severity == "" && ai.Criticality == "high" {
			norm.Severity = "severe"
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

// concernObservation unwraps the allergy observation from its concern
// act, accepting a bare observation entry as well.
func concernObservation(entry cda.Entry) *cda.Observation {
	if entry.Observation != nil {
		return entry.Observation
	}
	if entry.Act == nil {
		return nil
	}
	for _, rel := range entry.Act.Relationships {
		if rel.Observation != nil {
			return rel.Observation
		}
	}
	return nil
}

// valueCode returns the coded part of an observation's first value.
func valueCode(obs *cda.Observation) cda.Code {
	if len(obs.Values) > 0 {
		return obs.Values[0].Code
	}
	return obs.Code
}

// SNOMED CT allergy kind codes carried in CDA allergy observation values.
func allergyCategory(code string) string {
	switch code {
	case "416098002", "59037007", "419511003":
		return "medication"
	case "414285001", "235719002":
		return "food"
	case "426232007":
		return "environment"
	case "419199007", "420134006":
		return "substance"
	default:
		return ""
	}
}
