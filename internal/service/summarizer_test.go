package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
)

func scoredRecord(t *testing.T, ordinal int) *domain.DiagnosticRecord {
	t.Helper()
	bank := questionbank.New()
	engine := NewScoringEngine(bank, testLogger())

	responses := completeResponses(bank, ordinal)
	scores := engine.Score(responses)

	return &domain.DiagnosticRecord{
		ID:           uuid.New(),
		PatientRef:   "patient-7",
		Responses:    responses,
		DomainScores: scores.DomainScores,
		OverallScore: scores.Overall,
		RiskTier:     ClassifyRisk(scores.Overall),
		Status:       domain.StatusScored,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	bank := questionbank.New()
	gen := &scriptedGenerator{results: []scriptedResult{{text: "unused"}}}
	summarizer := NewSummaryGenerator(bank, gen, 40, testLogger())

	record := scoredRecord(t, 2)

	first := summarizer.BuildPrompt(record)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, summarizer.BuildPrompt(record))
	}
}

func TestBuildPromptContainsStructuredInputs(t *testing.T) {
	bank := questionbank.New()
	gen := &scriptedGenerator{results: []scriptedResult{{text: "unused"}}}
	summarizer := NewSummaryGenerator(bank, gen, 40, testLogger())

	record := scoredRecord(t, 2)
	prompt := summarizer.BuildPrompt(record)

	assert.Contains(t, prompt, questionbank.Citation)
	assert.Contains(t, prompt, "Overall score: 25.0")
	assert.Contains(t, prompt, "Risk tier: high")
	for _, d := range domain.QuestionDomains {
		assert.Contains(t, prompt, d.String())
	}
	for _, q := range bank.List() {
		assert.Contains(t, prompt, q.CanonicalText)
	}
}

func TestSummaryGeneratorPassesThroughText(t *testing.T) {
	bank := questionbank.New()
	narrative := strings.Repeat("The patient reports moderate limitation. ", 3)
	gen := &scriptedGenerator{results: []scriptedResult{{text: narrative}}}
	summarizer := NewSummaryGenerator(bank, gen, 40, testLogger())

	text, err := summarizer.Generate(context.Background(), scoredRecord(t, 3))

	require.NoError(t, err)
	assert.Equal(t, narrative, text)
	assert.Equal(t, 1, gen.callCount())
}

func TestSummaryGeneratorPropagatesGatewayFailure(t *testing.T) {
	bank := questionbank.New()
	gen := &scriptedGenerator{results: []scriptedResult{{err: domain.ErrServiceUnavailable}}}
	summarizer := NewSummaryGenerator(bank, gen, 40, testLogger())

	_, err := summarizer.Generate(context.Background(), scoredRecord(t, 3))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
