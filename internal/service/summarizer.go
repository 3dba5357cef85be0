package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
	"github.com/kccq-triage-server/pkg/llm"
)

// SummaryGenerator builds a deterministic prompt from a scored submission and
// requests a narrative clinical summary from the language-model gateway. It
// holds no state between calls; identical structured input produces an
// identical prompt (the model's text may still vary between calls).
type SummaryGenerator struct {
	bank      *questionbank.Bank
	generator llm.Generator
	minLength int
	log       *logrus.Logger
}

// NewSummaryGenerator creates a summary generator. minLength is the shortest
// acceptable narrative; shorter gateway output degrades the record.
func NewSummaryGenerator(bank *questionbank.Bank, generator llm.Generator, minLength int, logger *logrus.Logger) *SummaryGenerator {
	if minLength <= 0 {
		minLength = 40
	}
	return &SummaryGenerator{
		bank:      bank,
		generator: generator,
		minLength: minLength,
		log:       logger,
	}
}

// Generate produces the narrative summary for a scored record. Errors carry
// the gateway failure taxonomy and are absorbed by the pipeline into the
// degraded state.
func (g *SummaryGenerator) Generate(ctx context.Context, record *domain.DiagnosticRecord) (string, error) {
	prompt := g.BuildPrompt(record)

	text, err := g.generator.Generate(ctx, llm.Request{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   prompt,
		MinLength:    g.minLength,
	})
	if err != nil {
		return "", fmt.Errorf("generating summary: %w", err)
	}
	return text, nil
}

// BuildPrompt renders the structured inputs into the user prompt. The order
// of sections and items is fixed by the bank's canonical order.
func (g *SummaryGenerator) BuildPrompt(record *domain.DiagnosticRecord) string {
	byQuestion := make(map[int]int, len(record.Responses))
	for _, r := range record.Responses {
		byQuestion[r.QuestionID] = r.SelectedOrdinal
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Instrument: %s\n\n", questionbank.Citation)

	b.WriteString("Responses:\n")
	for _, q := range g.bank.List() {
		ordinal := byQuestion[q.ID]
		label := ""
		for _, opt := range q.Scale {
			if opt.Value == ordinal {
				label = opt.Label
				break
			}
		}
		fmt.Fprintf(&b, "- [%s] %s -> %d (%s)\n", q.Domain, q.CanonicalText, ordinal, label)
	}

	b.WriteString("\nDomain scores (0-100, higher is better):\n")
	for _, d := range domain.QuestionDomains {
		fmt.Fprintf(&b, "- %s: %.1f\n", d, record.DomainScores[d])
	}

	fmt.Fprintf(&b, "\nOverall score: %.1f\n", record.OverallScore)
	fmt.Fprintf(&b, "Risk tier: %s\n", record.RiskTier)

	return b.String()
}
