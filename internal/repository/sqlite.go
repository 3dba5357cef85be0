package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/kccq-triage-server/internal/domain"
)

// SQLiteStore persists diagnostic records in an embedded SQLite database.
// It is the default backend for single-node deployments and tests.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLiteStore opens (and if needed creates) the database file and schema.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode so concurrent submissions do not serialize behind readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, log: logger}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS diagnostic_records (
		id TEXT PRIMARY KEY,
		patient_ref TEXT NOT NULL,
		responses TEXT NOT NULL,
		domain_scores TEXT NOT NULL,
		overall_score REAL NOT NULL,
		risk_tier TEXT NOT NULL,
		summary_text TEXT DEFAULT '',
		failure_reason TEXT DEFAULT '',
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		enriched_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_records_patient_ref ON diagnostic_records(patient_ref);
	CREATE INDEX IF NOT EXISTS idx_records_created_at ON diagnostic_records(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Create inserts a new scored record.
func (s *SQLiteStore) Create(ctx context.Context, record *domain.DiagnosticRecord) error {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diagnostic_records (
			id, patient_ref, responses, domain_scores, overall_score,
			risk_tier, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID.String(),
		record.PatientRef,
		string(responses),
		string(domainScores),
		record.OverallScore,
		record.RiskTier.String(),
		record.Status.String(),
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("creating diagnostic record: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"record_id":   record.ID.String(),
		"patient_ref": record.PatientRef,
		"risk_tier":   record.RiskTier.String(),
	}).Info("Diagnostic record created")

	return nil
}

// UpdateEnrichment writes the terminal enrichment outcome exactly once.
func (s *SQLiteStore) UpdateEnrichment(ctx context.Context, id uuid.UUID, enrichment domain.Enrichment) error {
	if err := enrichment.Validate(); err != nil {
		return err
	}

	var enrichedAt any
	if enrichment.Status == domain.StatusEnriched {
		enrichedAt = enrichment.EnrichedAt.UTC().Format(time.RFC3339Nano)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE diagnostic_records
		SET status = ?, summary_text = ?, failure_reason = ?, enriched_at = ?
		WHERE id = ? AND status = ?
	`,
		enrichment.Status.String(),
		enrichment.SummaryText,
		enrichment.FailureReason,
		enrichedAt,
		id.String(),
		domain.StatusScored.String(),
	)
	if err != nil {
		return fmt.Errorf("updating enrichment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		var status string
		err := s.db.QueryRowContext(ctx,
			`SELECT status FROM diagnostic_records WHERE id = ?`, id.String()).Scan(&status)
		if err == sql.ErrNoRows {
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
func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*domain.DiagnosticRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_ref, responses, domain_scores, overall_score,
			   risk_tier, summary_text, failure_reason, status, created_at, enriched_at
		FROM diagnostic_records
		WHERE id = ?
	`, id.String())

	record, err := scanSQLiteRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting diagnostic record: %w", err)
	}
	return record, nil
}

// ListByPatient returns a patient's records, most recent first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientRef string, limit int) ([]*domain.DiagnosticRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, patient_ref, responses, domain_scores, overall_score,
			   risk_tier, summary_text, failure_reason, status, created_at, enriched_at
		FROM diagnostic_records
		WHERE patient_ref = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, patientRef, limit)
	if err != nil {
		return nil, fmt.Errorf("listing diagnostic records: %w", err)
	}
	defer rows.Close()

	var records []*domain.DiagnosticRecord
	for rows.Next() {
		record, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning diagnostic record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Health checks store connectivity.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row sqlScanner) (*domain.DiagnosticRecord, error) {
	var (
		record       domain.DiagnosticRecord
		idStr        string
		responses    string
		domainScores string
		riskTier     string
		status       string
		createdAt    string
		enrichedAt   sql.NullString
	)

	err := row.Scan(
		&idStr,
		&record.PatientRef,
		&responses,
		&domainScores,
		&record.OverallScore,
		&riskTier,
		&record.SummaryText,
		&record.FailureReason,
		&status,
		&createdAt,
		&enrichedAt,
	)
	if err != nil {
		return nil, err
	}

	record.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing record id: %w", err)
	}
	if err := json.Unmarshal([]byte(responses), &record.Responses); err != nil {
		return nil, fmt.Errorf("decoding responses: %w", err)
	}
	if err := json.Unmarshal([]byte(domainScores), &record.DomainScores); err != nil {
		return nil, fmt.Errorf("decoding domain scores: %w", err)
	}

	record.RiskTier = domain.RiskTier(riskTier)
	record.Status = domain.RecordStatus(status)

	record.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if enrichedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, enrichedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing enriched_at: %w", err)
		}
		record.EnrichedAt = &t
	}

	return &record, nil
}
