package domain

import (
	"context"

	"github.com/google/uuid"
)

// RecordStore is the persistence contract for diagnostic records. The core
// assumes read-your-writes consistency for a single record. Records are
// write-once at creation; only the enrichment slot is settable afterwards,
// and implementations must reject a second enrichment write with
// ErrAlreadyEnriched.
type RecordStore interface {
	Create(ctx context.Context, record *DiagnosticRecord) error
	UpdateEnrichment(ctx context.Context, id uuid.UUID, enrichment Enrichment) error
	Get(ctx context.Context, id uuid.UUID) (*DiagnosticRecord, error)
	ListByPatient(ctx context.Context, patientRef string, limit int) ([]*DiagnosticRecord, error)
	Health(ctx context.Context) error
	Close() error
}

// ConfigManager provides access to the application configuration.
type ConfigManager interface {
	GetConfig() *Config
	Validate() error
}
