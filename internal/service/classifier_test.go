package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kccq-triage-server/internal/domain"
)

func TestClassifyRiskBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		tier  domain.RiskTier
	}{
		{"floor", 0.0, domain.RiskHigh},
		{"inside high", 12.5, domain.RiskHigh},
		{"high boundary belongs to high", 25.0, domain.RiskHigh},
		{"just above high", 25.1, domain.RiskMedium},
		{"inside medium", 40.0, domain.RiskMedium},
		{"medium boundary belongs to medium", 50.0, domain.RiskMedium},
		{"just above medium", 50.1, domain.RiskLowMedium},
		{"inside low-medium", 62.5, domain.RiskLowMedium},
		{"low-medium boundary belongs to low-medium", 75.0, domain.RiskLowMedium},
		{"just above low-medium", 75.1, domain.RiskLow},
		{"inside low", 90.0, domain.RiskLow},
		{"ceiling", 100.0, domain.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.tier, ClassifyRisk(tt.score))
		})
	}
}

func TestClassifyRiskPartitionsWholeRange(t *testing.T) {
	// Every representable tenth in [0,100] must map to exactly one valid
	// tier: no gaps, no overlaps.
	for i := 0; i <= 1000; i++ {
		score := float64(i) / 10
		tier := ClassifyRisk(score)
		assert.True(t, tier.IsValid(), "score %.1f", score)
	}
}
