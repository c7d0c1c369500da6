// Package section turns parsed source documents into canonical
// NormalizedSection values, one extractor per clinical domain. Every
// extractor handles both wire formats and must emit structurally
// identical sections for semantically equivalent inputs; the pipeline
// treats the two entry points interchangeably.
package section

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/cda"
	"github.com/clindoc/normalizer/codesystem"
	"github.com/clindoc/normalizer/fhir"
	"github.com/clindoc/normalizer/terminology"
)

// Extractor extracts one clinical domain section from a source document.
// ExtractCDA and ExtractFHIR return (nil, nil) when the document simply
// has no such section; an error means the extractor itself failed.
type Extractor interface {
	SectionID() cn.SectionID
	ExtractCDA(ctx context.Context, doc *cda.ClinicalDocument) (*cn.NormalizedSection, error)
	ExtractFHIR(ctx context.Context, bundle *fhir.Bundle) (*cn.NormalizedSection, error)
}

// Config carries the shared dependencies every extractor needs.
type Config struct {
	Resolver *terminology.Resolver
	Logger   *zap.Logger
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// All returns one extractor per clinical domain, in SectionID order.
func All(cfg Config) []Extractor {
	return []Extractor{
		NewAllergies(cfg),
		NewConditions(cfg),
		NewImmunizations(cfg),
		NewMedications(cfg),
		NewObservations(cfg),
		NewProcedures(cfg),
	}
}

// base holds what every concrete extractor shares: the terminology
// resolver and a logger scoped to the section.
type base struct {
	id       cn.SectionID
	resolver *terminology.Resolver
	log      *zap.Logger
}

func newBase(id cn.SectionID, cfg Config) base {
	return base{
		id:       id,
		resolver: cfg.Resolver,
		log:      cfg.logger().With(zap.String("section", id.String())),
	}
}

func (b base) SectionID() cn.SectionID { return b.id }

// newSection builds the section skeleton; callers append entries and
// call Finish.
func (b base) newSection(title string, source cn.SourceType, columns []string, display cn.DisplayConfig) *cn.NormalizedSection {
	if strings.TrimSpace(title) == "" {
		title = defaultTitle(b.id)
	}
	return &cn.NormalizedSection{
		SectionID:     b.id,
		Title:         title,
		SectionCode:   b.id.SectionCode(),
		Columns:       columns,
		DisplayConfig: display,
		DataSource:    source,
	}
}

// resolveCDA resolves one CDA coded element. The second return is false
// when the element is null-flavored or empty and nothing can be resolved.
func (b base) resolveCDA(ctx context.Context, c cda.Code) (cn.ResolvedTerm, bool) {
	if c.IsNull() {
		return cn.ResolvedTerm{}, false
	}
	display := c.DisplayName
	if display == "" {
		display = strings.TrimSpace(c.OriginalText.Text)
	}
	return b.resolver.ResolveCoded(ctx, cn.ClinicalCode{
		Code:          c.Code,
		SystemOID:     c.CodeSystem,
		SourceDisplay: display,
	}), true
}

// resolveFHIR resolves every coding of a CodeableConcept. When the
// concept carries no codings at all but has display text, a single
// uncoded term is synthesized from the text so the fact is not lost.
func (b base) resolveFHIR(ctx context.Context, cc fhir.CodeableConcept) []cn.ResolvedTerm {
	var terms []cn.ResolvedTerm
	for _, coding := range cc.Coding {
		if coding.Code == "" {
			continue
		}
		terms = append(terms, b.resolver.ResolveCoded(ctx, cn.ClinicalCode{
			Code:          coding.Code,
			SystemOID:     codesystem.OIDForURI(coding.System),
			SourceDisplay: coding.Display,
		}))
	}
	if len(terms) == 0 && strings.TrimSpace(cc.Text) != "" {
		terms = append(terms, cn.NewResolvedTerm("", "", cc.Text, cn.ProvenanceSourceDisplay))
	}
	return terms
}

// skipEntry logs a malformed source entry and records it; the pipeline
// keeps going with the remaining entries.
func (b base) skipEntry(reason string, fields ...zap.Field) {
	b.log.Warn("skipping malformed entry", append([]zap.Field{zap.String("reason", reason)}, fields...)...)
	if b.resolver != nil {
		b.resolver.Metrics().RecordEntrySkipped()
	}
}

// entryID returns the source identifier, or a generated UUID when the
// source carried none. Entries always have an identity.
func entryID(sourceID string) string {
	if sourceID != "" {
		return sourceID
	}
	return uuid.NewString()
}

// cdaEntryID picks the first usable identifier from a CDA id list.
func cdaEntryID(ids []cda.II) string {
	for _, id := range ids {
		if s := id.String(); s != "" {
			return entryID(s)
		}
	}
	return entryID("")
}

// narrativeEntry turns a section's free-text narrative into a single
// uncoded entry. Used when a CDA section carries text but no structured
// entries an extractor understands.
func narrativeEntry(raw string) (cn.ClinicalSectionEntry, bool) {
	text := cn.SanitizeDisplay(raw)
	if text == "" {
		return cn.ClinicalSectionEntry{}, false
	}
	return cn.ClinicalSectionEntry{
		EntryID:     entryID(""),
		DisplayText: text,
	}, true
}

// displayTextOf returns the first resolved display, or "".
func displayTextOf(terms []cn.ResolvedTerm) string {
	if len(terms) > 0 {
		return terms[0].Display
	}
	return ""
}

func defaultTitle(id cn.SectionID) string {
	switch id {
	case cn.SectionAllergies:
		return "Allergies and Adverse Reactions"
	case cn.SectionConditions:
		return "Problem List"
	case cn.SectionImmunizations:
		return "Immunizations"
	case cn.SectionMedications:
		return "Medications"
	case cn.SectionObservations:
		return "Diagnostic Results"
	case cn.SectionProcedures:
		return "Procedures"
	default:
		return string(id)
	}
}

// normalizeStatus collapses the status vocabularies of both formats onto
// a small shared set. Unknown values pass through lowercased so nothing
// is silently dropped.
func normalizeStatus(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ""
	case "active":
		return "active"
	case "completed", "resolved", "inactive":
		return strings.ToLower(strings.TrimSpace(s))
	case "aborted", "cancelled", "stopped", "not-done", "entered-in-error":
		return "stopped"
	case "suspended", "on-hold":
		return "suspended"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

// SNOMED CT severity qualifier codes used by CDA severity observations.
const (
	snomedSeverityMild     = "255604002"
	snomedSeverityModerate = "6736007"
	snomedSeveritySevere   = "24484000"
)

// normalizeSeverity maps both SNOMED severity codes and FHIR severity
// strings onto mild/moderate/severe.
func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case snomedSeverityMild, "mild":
		return "mild"
	case snomedSeverityModerate, "moderate":
		return "moderate"
	case snomedSeveritySevere, "severe":
		return "severe"
	default:
		return strings.ToLower(strings.TrimSpace(s))
	}
}

// unitDisplay returns the display form of a quantity unit. A
// human-readable unit from the source wins; otherwise the UCUM code is
// resolved through the catalogue, degrading to the code itself.
func (b base) unitDisplay(ctx context.Context, unit, ucumCode string) string {
	unit = strings.TrimSpace(unit)
	if unit != "" {
		return unit
	}
	ucumCode = strings.TrimSpace(ucumCode)
	if ucumCode == "" || ucumCode == "1" {
		return ""
	}
	term := b.resolver.Resolve(ctx, ucumCode, codesystem.OIDUCUM)
	if term.Provenance == cn.ProvenanceFallback {
		return ucumCode
	}
	return term.Display
}

// formatQuantity renders a value/unit pair as display text.
func formatQuantity(value, unit string) string {
	value = strings.TrimSpace(value)
	unit = strings.TrimSpace(unit)
	switch {
	case value == "":
		return ""
	case unit == "" || unit == "1":
		return value
	default:
		return value + " " + unit
	}
}
