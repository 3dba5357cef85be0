package service

import (
	"github.com/kccq-triage-server/internal/domain"
)

// Risk tier thresholds. Each boundary value belongs to the lower tier, so
// every score in [0,100] maps to exactly one tier.
const (
	highTierUpper      = 25.0
	mediumTierUpper    = 50.0
	lowMediumTierUpper = 75.0
)

// ClassifyRisk maps an overall 0-100 score to a discrete risk tier:
// [0,25] high, (25,50] medium, (50,75] low-medium, (75,100] low.
// Lower scores indicate worse symptom burden and higher clinical urgency.
func ClassifyRisk(overallScore float64) domain.RiskTier {
	switch {
	case overallScore <= highTierUpper:
		return domain.RiskHigh
	case overallScore <= mediumTierUpper:
		return domain.RiskMedium
	case overallScore <= lowMediumTierUpper:
		return domain.RiskLowMedium
	default:
		return domain.RiskLow
	}
}
