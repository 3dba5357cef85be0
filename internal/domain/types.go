// Package domain contains core business entities and types for cardiology
// symptom triage based on a fixed 12-item KCCQ-style questionnaire.
//
// Reference: Spertus & Jones (2015) Development and validation of a short
// version of the Kansas City Cardiomyopathy Questionnaire.
// Circ Cardiovasc Qual Outcomes. 8(5):469-76. doi: 10.1161/CIRCOUTCOMES.115.001958
package domain

// QuestionDomain groups questionnaire items measuring one clinical dimension.
type QuestionDomain string

const (
	PhysicalLimitation QuestionDomain = "physical-limitation"
	SymptomFrequency   QuestionDomain = "symptom-frequency"
	QualityOfLife      QuestionDomain = "quality-of-life"
	SocialLimitation   QuestionDomain = "social-limitation"
)

// QuestionDomains lists the four instrument domains in canonical order.
var QuestionDomains = []QuestionDomain{
	PhysicalLimitation,
	SymptomFrequency,
	QualityOfLife,
	SocialLimitation,
}

// RiskTier is the discrete clinical urgency classification derived from the
// overall 0-100 score. Lower scores indicate worse symptom burden.
type RiskTier string

const (
	RiskHigh      RiskTier = "high"
	RiskMedium    RiskTier = "medium"
	RiskLowMedium RiskTier = "low-medium"
	RiskLow       RiskTier = "low"
)

// RecordStatus is the lifecycle state of a DiagnosticRecord. A record moves
// forward only: submitted -> scored -> enriched | degraded. The terminal
// states are the only ones visible to callers of the pipeline.
type RecordStatus string

const (
	StatusSubmitted RecordStatus = "submitted"
	StatusScored    RecordStatus = "scored"
	StatusEnriched  RecordStatus = "enriched"
	StatusDegraded  RecordStatus = "degraded"
)

// IsValid validates the question domain against the instrument's fixed set.
func (d QuestionDomain) IsValid() bool {
	switch d {
	case PhysicalLimitation, SymptomFrequency, QualityOfLife, SocialLimitation:
		return true
	default:
		return false
	}
}

// String returns the string representation of the domain.
func (d QuestionDomain) String() string {
	return string(d)
}

// IsValid validates that the tier is one of the four defined classifications.
// Only valid tiers may be attached to clinical records.
func (rt RiskTier) IsValid() bool {
	switch rt {
	case RiskHigh, RiskMedium, RiskLowMedium, RiskLow:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk tier.
func (rt RiskTier) String() string {
	return string(rt)
}

// RequiresClinicalAction reports whether the tier warrants prompt physician
// follow-up. Used by the dashboard to sort the clinician work queue.
func (rt RiskTier) RequiresClinicalAction() bool {
	switch rt {
	case RiskHigh, RiskMedium:
		return true
	case RiskLowMedium, RiskLow:
		return false
	default:
		return true // conservative for unknown tiers
	}
}

// LogFields returns structured logging fields for audit trails.
func (rt RiskTier) LogFields() map[string]any {
	return map[string]any{
		"risk_tier":       string(rt),
		"is_valid":        rt.IsValid(),
		"requires_action": rt.RequiresClinicalAction(),
	}
}

// IsValid validates the record status.
func (s RecordStatus) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusScored, StatusEnriched, StatusDegraded:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s RecordStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is one of the two caller-visible end
// states of a pipeline execution.
func (s RecordStatus) Terminal() bool {
	return s == StatusEnriched || s == StatusDegraded
}

// CanTransitionTo enforces the forward-only record lifecycle. A record never
// reverts to a less-enriched status.
func (s RecordStatus) CanTransitionTo(next RecordStatus) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusScored
	case StatusScored:
		return next == StatusEnriched || next == StatusDegraded
	default:
		return false
	}
}
