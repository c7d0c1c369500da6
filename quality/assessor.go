// Package quality scores how well a normalization run resolved its
// coded concepts. The score is the share of coded concepts whose
// display came from the catalogue or the source document rather than
// the synthesized fallback, so a degraded terminology backend is
// visible in the output instead of silently producing raw codes.
package quality

import (
	"math"

	cn "github.com/clindoc/normalizer"
)

// Rating buckets an assessment score for human consumption.
type Rating string

// Ratings, from best to worst. RatingNoCodes applies to documents that
// carried no coded concepts at all; there is nothing to judge.
const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingFair      Rating = "Fair"
	RatingPoor      Rating = "Poor"
	RatingNoCodes   Rating = "No codes"
)

// Rating thresholds, in percent.
const (
	thresholdExcellent = 90
	thresholdGood      = 70
	thresholdFair      = 50
)

// Assessment is the quality verdict for one pipeline run.
type Assessment struct {
	// Score is the resolution rate in percent, 0-100. Zero when the
	// document carried no coded concepts.
	Score float64 `json:"score"`

	Rating Rating `json:"rating"`

	ResolvedConcepts int `json:"resolvedConcepts"`
	TotalConcepts    int `json:"totalConcepts"`

	// Sections breaks the tally down per section, in result order.
	Sections []SectionAssessment `json:"sections,omitempty"`
}

// SectionAssessment is the per-section share of the tally.
type SectionAssessment struct {
	SectionID        cn.SectionID `json:"sectionId"`
	ResolvedConcepts int          `json:"resolvedConcepts"`
	TotalConcepts    int          `json:"totalConcepts"`
}

// Assess scores a finalized pipeline result.
func Assess(result *cn.PipelineResult) Assessment {
	resolved, total := result.ConceptCounts()
	a := Assessment{
		ResolvedConcepts: resolved,
		TotalConcepts:    total,
	}

	for _, sec := range result.Sections {
		sa := SectionAssessment{SectionID: sec.SectionID}
		for _, term := range sec.CodedConcepts {
			sa.TotalConcepts++
			if term.Provenance.Resolved() {
				sa.ResolvedConcepts++
			}
		}
		if sa.TotalConcepts > 0 {
			a.Sections = append(a.Sections, sa)
		}
	}

	if total == 0 {
		a.Rating = RatingNoCodes
		return a
	}

	a.Score = math.Round(float64(resolved)/float64(total)*10000) / 100
	a.Rating = RateScore(a.Score)
	return a
}

// RateScore buckets a percentage score. Callers with no codes at all
// should use RatingNoCodes instead of rating a zero score.
func RateScore(score float64) Rating {
	switch {
	case score >= thresholdExcellent:
		return RatingExcellent
	case score >= thresholdGood:
		return RatingGood
	case score >= thresholdFair:
		return RatingFair
	default:
		return RatingPoor
	}
}
