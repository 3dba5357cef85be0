// Package repository provides persistence for diagnostic records. Two
// backends are available: a pgx-backed Postgres store for production and an
// embedded SQLite store for single-node deployments and tests. Both enforce
// the write-once enrichment discipline with a status-guarded update.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/domain"
)

// PostgresStore persists diagnostic records in Postgres.
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a Postgres-backed record store.
func NewPostgresStore(db *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: logger}
}

// Create inserts a new scored record. Responses and domain scores are stored
// as JSONB; they are immutable after this insert.
func (s *PostgresStore) Create(ctx context.Context, record *domain.DiagnosticRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	responses, err := json.Marshal(record.Responses)
	if err != nil {
		return fmt.Errorf("encoding responses: %w", err)
	}
	domainScores, err := json.Marshal(record.DomainScores)
	if err != nil {
		return fmt.Errorf("encoding domain scores: %w", err)
	}

	query := `
		INSERT INTO diagnostic_records (
			id, patient_ref, responses, domain_scores, overall_score,
			risk_tier, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.Exec(ctx, query,
		record.ID,
		record.PatientRef,
		responses,
		domainScores,
		record.OverallScore,
		record.RiskTier.String(),
		record.Status.String(),
		record.CreatedAt,
	)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"record_id": record.ID.String(),
			"error":     err,
		}).Error("Failed to create diagnostic record")
		return fmt.Errorf("creating diagnostic record: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"record_id":   record.ID.String(),
		"patient_ref": record.PatientRef,
		"risk_tier":   record.RiskTier.String(),
	}).Info("Diagnostic record created")

	return nil
}

// UpdateEnrichment writes the terminal enrichment outcome exactly once. The
// status guard rejects a second write with ErrAlreadyEnriched.
func (s *PostgresStore) UpdateEnrichment(ctx context.Context, id uuid.UUID, enrichment domain.Enrichment) error {
	if err := enrichment.Validate(); err != nil {
		return err
	}

	var enrichedAt any
	if enrichment.Status == domain.StatusEnriched {
		enrichedAt = enrichment.EnrichedAt
	}

	query := `
		UPDATE diagnostic_records
		SET status = $2, summary_text = $3, failure_reason = $4, enriched_at = $5
		WHERE id = $1 AND status = $6`

	tag, err := s.db.Exec(ctx, query,
		id,
		enrichment.Status.String(),
		enrichment.SummaryText,
		enrichment.FailureReason,
		enrichedAt,
		domain.StatusScored.String(),
	)
	if err != nil {
		return fmt.Errorf("updating enrichment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var status string
		err := s.db.QueryRow(ctx,
			`SELECT status FROM diagnostic_records WHERE id = $1`, id).Scan(&status)
		if err == pgx.ErrNoRows {
			return fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("checking record status: %w", err)
		}
		return fmt.Errorf("record %s in status %s: %w", id, status, domain.ErrAlreadyEnriched)
	}

	return nil
}

// Get retrieves a record by id.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*domain.DiagnosticRecord, error) {
	query := `
		SELECT id, patient_ref, responses, domain_scores, overall_score,
			   risk_tier, summary_text, failure_reason, status, created_at, enriched_at
		FROM diagnostic_records
		WHERE id = $1`

	record, err := scanPgxRecord(s.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting diagnostic record: %w", err)
	}
	return record, nil
}

// ListByPatient returns a patient's records, most recent first.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientRef string, limit int) ([]*domain.DiagnosticRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, patient_ref, responses, domain_scores, overall_score,
			   risk_tier, summary_text, failure_reason, status, created_at, enriched_at
		FROM diagnostic_records
		WHERE patient_ref = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, patientRef, limit)
	if err != nil {
		return nil, fmt.Errorf("listing diagnostic records: %w", err)
	}
	defer rows.Close()

	var records []*domain.DiagnosticRecord
	for rows.Next() {
		record, err := scanPgxRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning diagnostic record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Health checks store connectivity.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

type pgxScanner interface {
	Scan(dest ...any) error
}

func scanPgxRecord(row pgxScanner) (*domain.DiagnosticRecord, error) {
	var (
		record        domain.DiagnosticRecord
		responses     []byte
		domainScores  []byte
		riskTier      string
		summaryText   *string
		failureReason *string
		status        string
		enrichedAt    *time.Time
	)

	err := row.Scan(
		&record.ID,
		&record.PatientRef,
		&responses,
		&domainScores,
		&record.OverallScore,
		&riskTier,
		&summaryText,
		&failureReason,
		&status,
		&record.CreatedAt,
		&enrichedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(responses, &record.Responses); err != nil {
		return nil, fmt.Errorf("decoding responses: %w", err)
	}
	if err := json.Unmarshal(domainScores, &record.DomainScores); err != nil {
		return nil, fmt.Errorf("decoding domain scores: %w", err)
	}

	record.RiskTier = domain.RiskTier(riskTier)
	record.Status = domain.RecordStatus(status)
	if summaryText != nil {
		record.SummaryText = *summaryText
	}
	if failureReason != nil {
		record.FailureReason = *failureReason
	}
	record.EnrichedAt = enrichedAt

	return &record, nil
}
