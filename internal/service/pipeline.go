package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
)

// Pipeline coordinates one submission end to end: validate, score, classify,
// persist, then enrich. Each submission is an independent unit of work;
// submissions for distinct patients share no mutable state and proceed fully
// in parallel. The only suspension point is the gateway call inside
// enrichment, which happens after the scored record is committed.
type Pipeline struct {
	bank          *questionbank.Bank
	scorer        *ScoringEngine
	summarizer    *SummaryGenerator
	store         domain.RecordStore
	enrichTimeout time.Duration
	log           *logrus.Logger
}

// NewPipeline creates the diagnostic pipeline orchestrator. enrichTimeout
// bounds the whole enrichment step including retries; zero means 2 minutes.
func NewPipeline(
	bank *questionbank.Bank,
	scorer *ScoringEngine,
	summarizer *SummaryGenerator,
	store domain.RecordStore,
	enrichTimeout time.Duration,
	logger *logrus.Logger,
) *Pipeline {
	if enrichTimeout <= 0 {
		enrichTimeout = 2 * time.Minute
	}
	return &Pipeline{
		bank:          bank,
		scorer:        scorer,
		summarizer:    summarizer,
		store:         store,
		enrichTimeout: enrichTimeout,
		log:           logger,
	}
}

// Submit runs the full pipeline for one questionnaire completion. It fails
// only on invalid input, before any record or side effect exists. Once the
// scored record is committed the submission always succeeds: enrichment
// failure yields a degraded record, never an error, because the score and
// risk tier are clinically useful without narrative text.
func (p *Pipeline) Submit(ctx context.Context, patientRef string, responses []domain.Response) (*domain.DiagnosticRecord, error) {
	if patientRef == "" {
		return nil, domain.NewValidationError("patient_ref", "patient reference is required")
	}
	if err := p.bank.Validate(responses); err != nil {
		return nil, err
	}

	start := time.Now()
	scores := p.scorer.Score(responses)
	tier := ClassifyRisk(scores.Overall)

	record := &domain.DiagnosticRecord{
		ID:           uuid.New(),
		PatientRef:   patientRef,
		Responses:    responses,
		DomainScores: scores.DomainScores,
		OverallScore: scores.Overall,
		RiskTier:     tier,
		Status:       domain.StatusScored,
		CreatedAt:    time.Now().UTC(),
	}

	p.log.WithFields(logrus.Fields{
		"record_id":     record.ID.String(),
		"patient_ref":   patientRef,
		"overall_score": scores.Overall,
		"risk_tier":     tier.String(),
	}).Info("Submission scored")

	// The score commits before the gateway call begins; a caller disconnect
	// during enrichment never rolls it back.
	if err := p.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("creating diagnostic record: %w", err)
	}

	p.enrich(ctx, record)

	p.log.WithFields(logrus.Fields{
		"record_id":       record.ID.String(),
		"status":          record.Status.String(),
		"processing_time": time.Since(start),
	}).Info("Submission completed")

	return record, nil
}

// Fetch returns a persisted record by id.
func (p *Pipeline) Fetch(ctx context.Context, id uuid.UUID) (*domain.DiagnosticRecord, error) {
	return p.store.Get(ctx, id)
}

// History returns a patient's prior records, most recent first.
func (p *Pipeline) History(ctx context.Context, patientRef string, limit int) ([]*domain.DiagnosticRecord, error) {
	if patientRef == "" {
		return nil, domain.NewValidationError("patient_ref", "patient reference is required")
	}
	return p.store.ListByPatient(ctx, patientRef, limit)
}

// enrich moves the record from scored to its terminal state. It runs on a
// context detached from the caller so a disconnect cannot interrupt the
// write; only the enrichment deadline bounds it. The store's guarded update
// makes the enrichment write-once even if two executions ever held the same
// record id.
func (p *Pipeline) enrich(ctx context.Context, record *domain.DiagnosticRecord) {
	enrichCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.enrichTimeout)
	defer cancel()

	summary, genErr := p.summarizer.Generate(enrichCtx, record)

	now := time.Now().UTC()
	var enrichment domain.Enrichment
	if genErr != nil {
		enrichment = domain.Enrichment{
			Status:        domain.StatusDegraded,
			FailureReason: genErr.Error(),
			EnrichedAt:    now,
		}
		p.log.WithError(genErr).WithField("record_id", record.ID.String()).
			Warn("Summary generation failed, degrading record")
	} else {
		enrichment = domain.Enrichment{
			Status:      domain.StatusEnriched,
			SummaryText: summary,
			EnrichedAt:  now,
		}
	}

	if err := p.store.UpdateEnrichment(enrichCtx, record.ID, enrichment); err != nil {
		p.log.WithError(err).WithField("record_id", record.ID.String()).
			Error("Failed to persist enrichment outcome")
		record.Status = domain.StatusDegraded
		record.FailureReason = fmt.Sprintf("enrichment persistence failed: %v", err)
		return
	}

	record.Status = enrichment.Status
	if enrichment.Status == domain.StatusEnriched {
		record.SummaryText = enrichment.SummaryText
		enrichedAt := enrichment.EnrichedAt
		record.EnrichedAt = &enrichedAt
	} else {
		record.FailureReason = enrichment.FailureReason
	}
}
