// Package scoring turns parse, coverage, rule and questionnaire results into
// the four component scores and a weighted overall readiness score.
package scoring

import (
	"math"

	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/schema"
)

// CloseWeight is the credit a close match earns relative to an exact match.
const CloseWeight = 0.8

// Readiness labels.
const (
	LabelHigh   = "High"
	LabelMedium = "Medium"
	LabelLow    = "Low"
)

// Label thresholds on the overall score.
const (
	HighThreshold   = 80
	MediumThreshold = 50

	// PresentationMediumThreshold is the Medium cut-off the web report page
	// applies when it re-derives a label from the overall score. Reports
	// carry the label computed with MediumThreshold.
	PresentationMediumThreshold = 60
)

// Overall-score weights per component. They sum to 1.
const (
	DataWeight     = 0.25
	CoverageWeight = 0.35
	RulesWeight    = 0.30
	PostureWeight  = 0.10
)

// Engine computes scores against a fixed schema. It is stateless after
// construction and safe for concurrent use.
type Engine struct {
	requiredCount int
}

// New creates an Engine for the given schema.
func New(s *schema.Schema) *Engine {
	return &Engine{requiredCount: s.RequiredCount()}
}

// Score computes all component scores and the weighted overall score.
func (e *Engine) Score(rowsParsed, totalRows int, cov model.Coverage, findings []model.RuleFinding, q model.Questionnaire) model.Scores {
	data := DataScore(rowsParsed, totalRows)
	coverage := CoverageScore(len(cov.Matched), len(cov.Close), e.requiredCount)
	rules := RulesScore(findings)
	posture := PostureScore(q)

	overall := round(DataWeight*float64(data) +
		CoverageWeight*float64(coverage) +
		RulesWeight*float64(rules) +
		PostureWeight*float64(posture))

	return model.Scores{
		Data:     data,
		Coverage: coverage,
		Rules:    rules,
		Posture:  posture,
		Overall:  overall,
	}
}

// DataScore is the parsed share of rows. No rows scores 0.
func DataScore(rowsParsed, totalRows int) int {
	if totalRows == 0 {
		return 0
	}
	return round(100 * float64(rowsParsed) / float64(totalRows))
}

// CoverageScore credits exact matches fully and close matches at
// CloseWeight, capped at 100. A schema with no required fields is fully
// covered.
func CoverageScore(matched, closeMatches, requiredCount int) int {
	if requiredCount == 0 {
		return 100
	}
	score := 100 * (float64(matched) + CloseWeight*float64(closeMatches)) / float64(requiredCount)
	return round(math.Min(score, 100))
}

// RulesScore is the passed share of findings. No findings scores 0.
func RulesScore(findings []model.RuleFinding) int {
	if len(findings) == 0 {
		return 0
	}
	passed := 0
	for _, f := range findings {
		if f.OK {
			passed++
		}
	}
	return round(100 * float64(passed) / float64(len(findings)))
}

// PostureScore is the share of the three questionnaire answers that are yes.
func PostureScore(q model.Questionnaire) int {
	yes := 0
	for _, answer := range []bool{q.Webhooks, q.SandboxEnv, q.Retries} {
		if answer {
			yes++
		}
	}
	return round(100 * float64(yes) / 3)
}

// ReadinessLabel maps an overall score to High, Medium or Low.
func ReadinessLabel(overall int) string {
	switch {
	case overall >= HighThreshold:
		return LabelHigh
	case overall >= MediumThreshold:
		return LabelMedium
	default:
		return LabelLow
	}
}

// round rounds half up, matching how scores have always been presented.
func round(f float64) int {
	return int(math.Floor(f + 0.5))
}
