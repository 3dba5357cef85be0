package service

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
)

// ScoreSet is the deterministic output of scoring one complete submission.
type ScoreSet struct {
	DomainScores map[domain.QuestionDomain]float64
	Overall      float64
}

// ScoringEngine converts a validated submission into domain sub-scores and an
// overall 0-100 score, reproducing the published instrument's method: each
// domain score is the mean of its item ordinals normalized linearly onto
// 0-100, and the overall score is the unweighted mean of the domain scores.
// Same responses always yield the same scores.
type ScoringEngine struct {
	bank *questionbank.Bank
	log  *logrus.Logger
}

// NewScoringEngine creates a scoring engine over the fixed instrument bank.
func NewScoringEngine(bank *questionbank.Bank, logger *logrus.Logger) *ScoringEngine {
	return &ScoringEngine{bank: bank, log: logger}
}

// Score computes domain and overall scores for a complete, validated
// submission. Scoring is pure and cannot fail: out-of-range values caused by
// a malformed scale configuration are clamped to [0,100] and logged as a
// data-integrity warning.
func (e *ScoringEngine) Score(responses []domain.Response) ScoreSet {
	byQuestion := make(map[int]int, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r.SelectedOrdinal
	}

	domainScores := make(map[domain.QuestionDomain]float64, len(domain.QuestionDomains))
	var sum float64
	for _, d := range domain.QuestionDomains {
		items := e.bank.ByDomain(d)
		var total float64
		for _, q := range items {
			total += e.normalize(q, byQuestion[q.ID])
		}
		// A single-item domain scores as that item's normalized ordinal.
		mean := total / float64(len(items))
		domainScores[d] = round1(mean)
		// The overall mean is taken over the unrounded domain means; rounding
		// the sub-scores first can shift the final one-decimal value.
		sum += mean
	}

	overall := round1(sum / float64(len(domain.QuestionDomains)))
	return ScoreSet{DomainScores: domainScores, Overall: overall}
}

// normalize maps an ordinal onto 0-100 using the question's declared range.
func (e *ScoringEngine) normalize(q domain.Question, ordinal int) float64 {
	min, max := q.ScaleMin(), q.ScaleMax()
	if max <= min {
		e.log.WithFields(logrus.Fields{
			"question_id": q.ID,
			"scale_min":   min,
			"scale_max":   max,
		}).Warn("Data integrity: degenerate response scale, clamping to 0")
		return 0
	}

	v := float64(ordinal-min) / float64(max-min) * 100
	if v < 0 || v > 100 {
		e.log.WithFields(logrus.Fields{
			"question_id": q.ID,
			"ordinal":     ordinal,
			"raw_score":   v,
		}).Warn("Data integrity: normalized score outside [0,100], clamping")
		v = math.Min(100, math.Max(0, v))
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
