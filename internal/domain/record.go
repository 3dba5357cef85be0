package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScaleOption is one labeled ordinal value on a question's response scale.
type ScaleOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Question is a single item of the fixed 12-item instrument. Questions are
// immutable after bank definition and identified by a stable integer id.
type Question struct {
	ID            int            `json:"id"`
	Domain        QuestionDomain `json:"domain"`
	CanonicalText string         `json:"canonical_text"`
	Scale         []ScaleOption  `json:"response_scale"`
}

// ScaleMin returns the lowest ordinal value on the question's scale.
func (q Question) ScaleMin() int {
	if len(q.Scale) == 0 {
		return 0
	}
	return q.Scale[0].Value
}

// ScaleMax returns the highest ordinal value on the question's scale.
func (q Question) ScaleMax() int {
	if len(q.Scale) == 0 {
		return 0
	}
	return q.Scale[len(q.Scale)-1].Value
}

// InScale reports whether the ordinal is a declared value of the scale.
func (q Question) InScale(ordinal int) bool {
	for _, opt := range q.Scale {
		if opt.Value == ordinal {
			return true
		}
	}
	return false
}

// Response is a patient's answer to a single question.
type Response struct {
	QuestionID      int `json:"question_id"`
	SelectedOrdinal int `json:"selected_ordinal"`
}

// Enrichment carries the outcome of the summary generation step. Exactly one
// of SummaryText or FailureReason is set, matching the terminal status.
type Enrichment struct {
	Status        RecordStatus
	SummaryText   string
	FailureReason string
	EnrichedAt    time.Time
}

// Validate ensures the enrichment is a coherent terminal outcome before it is
// written to a record.
func (e Enrichment) Validate() error {
	switch e.Status {
	case StatusEnriched:
		if e.SummaryText == "" {
			return fmt.Errorf("enrichment validation: enriched status requires summary text")
		}
	case StatusDegraded:
		if e.FailureReason == "" {
			return fmt.Errorf("enrichment validation: degraded status requires a failure reason")
		}
	default:
		return fmt.Errorf("enrichment validation: %q is not a terminal status", e.Status)
	}
	return nil
}

// DiagnosticRecord is the central entity of the triage pipeline. The core
// fields (responses, scores, tier) are write-once at creation; only the
// enrichment fields are settable afterwards, exactly once.
type DiagnosticRecord struct {
	ID         uuid.UUID  `json:"id"`
	PatientRef string     `json:"patient_ref"`
	Responses  []Response `json:"responses"`

	DomainScores map[QuestionDomain]float64 `json:"domain_scores"`
	OverallScore float64                    `json:"overall_score"`
	RiskTier     RiskTier                   `json:"risk_tier"`

	SummaryText   string `json:"summary_text,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	Status     RecordStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	EnrichedAt *time.Time   `json:"enriched_at,omitempty"`
}

// Validate ensures the record meets the core invariants before persistence.
func (r *DiagnosticRecord) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("record validation: ID is required")
	}
	if r.PatientRef == "" {
		return fmt.Errorf("record validation: patient_ref is required")
	}
	if len(r.Responses) == 0 {
		return fmt.Errorf("record validation: responses are required")
	}
	if r.OverallScore < 0 || r.OverallScore > 100 {
		return fmt.Errorf("record validation: overall score %.1f outside [0,100]", r.OverallScore)
	}
	for d, s := range r.DomainScores {
		if !d.IsValid() {
			return fmt.Errorf("record validation: unknown domain %q", d)
		}
		if s < 0 || s > 100 {
			return fmt.Errorf("record validation: %s score %.1f outside [0,100]", d, s)
		}
	}
	if !r.RiskTier.IsValid() {
		return fmt.Errorf("record validation: %w", ErrInvalidRiskTier)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("record validation: %w", ErrInvalidStatus)
	}
	return nil
}

// LogFields returns structured logging fields for audit trails.
func (r *DiagnosticRecord) LogFields() map[string]any {
	return map[string]any{
		"record_id":     r.ID.String(),
		"patient_ref":   r.PatientRef,
		"overall_score": r.OverallScore,
		"risk_tier":     r.RiskTier.String(),
		"status":        r.Status.String(),
	}
}
