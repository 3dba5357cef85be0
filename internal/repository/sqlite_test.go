package repository

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "triage.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func scoredRecord(patientRef string) *domain.DiagnosticRecord {
	bank := questionbank.New()
	responses := make([]domain.Response, 0, questionbank.Size)
	for _, q := range bank.List() {
		responses = append(responses, domain.Response{QuestionID: q.ID, SelectedOrdinal: 3})
	}
	return &domain.DiagnosticRecord{
		ID:         uuid.New(),
		PatientRef: patientRef,
		Responses:  responses,
		DomainScores: map[domain.QuestionDomain]float64{
			domain.PhysicalLimitation: 50.0,
			domain.SymptomFrequency:   50.0,
			domain.QualityOfLife:      50.0,
			domain.SocialLimitation:   50.0,
		},
		OverallScore: 50.0,
		RiskTier:     domain.RiskMedium,
		Status:       domain.StatusScored,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestSQLiteCreateAndGetRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := scoredRecord("patient-1")
	require.NoError(t, store.Create(ctx, record))

	got, err := store.Get(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.PatientRef, got.PatientRef)
	assert.Equal(t, record.Responses, got.Responses)
	assert.Equal(t, record.DomainScores, got.DomainScores)
	assert.Equal(t, record.OverallScore, got.OverallScore)
	assert.Equal(t, record.RiskTier, got.RiskTier)
	assert.Equal(t, domain.StatusScored, got.Status)
	assert.Empty(t, got.SummaryText)
	assert.Nil(t, got.EnrichedAt)
	assert.WithinDuration(t, record.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestSQLiteGetUnknownRecord(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteEnrichmentIsWriteOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := scoredRecord("patient-2")
	require.NoError(t, store.Create(ctx, record))

	first := domain.Enrichment{
		Status:      domain.StatusEnriched,
		SummaryText: "The patient reports moderate limitation across all domains.",
		EnrichedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.UpdateEnrichment(ctx, record.ID, first))

	got, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnriched, got.Status)
	assert.Equal(t, first.SummaryText, got.SummaryText)
	require.NotNil(t, got.EnrichedAt)

	// A second write against the same record must be rejected, whatever its
	// outcome would have been.
	second := domain.Enrichment{
		Status:        domain.StatusDegraded,
		FailureReason: "should never land",
		EnrichedAt:    time.Now().UTC(),
	}
	err = store.UpdateEnrichment(ctx, record.ID, second)
	assert.ErrorIs(t, err, domain.ErrAlreadyEnriched)

	unchanged, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnriched, unchanged.Status)
	assert.Equal(t, first.SummaryText, unchanged.SummaryText)
	assert.Empty(t, unchanged.FailureReason)
}

func TestSQLiteEnrichmentUnknownRecord(t *testing.T) {
	store := newTestStore(t)

	err := store.UpdateEnrichment(context.Background(), uuid.New(), domain.Enrichment{
		Status:        domain.StatusDegraded,
		FailureReason: "gateway unavailable",
		EnrichedAt:    time.Now().UTC(),
	})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteDegradedEnrichment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := scoredRecord("patient-3")
	require.NoError(t, store.Create(ctx, record))

	err := store.UpdateEnrichment(ctx, record.ID, domain.Enrichment{
		Status:        domain.StatusDegraded,
		FailureReason: "service unavailable after retries",
		EnrichedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDegraded, got.Status)
	assert.Equal(t, "service unavailable after retries", got.FailureReason)
	assert.Empty(t, got.SummaryText)
	assert.Nil(t, got.EnrichedAt, "degraded records carry no enrichment time")
}

func TestSQLiteListByPatientOrdersNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		record := scoredRecord("patient-4")
		record.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Create(ctx, record))
		ids = append(ids, record.ID)
	}
	other := scoredRecord("patient-5")
	require.NoError(t, store.Create(ctx, other))

	records, err := store.ListByPatient(ctx, "patient-4", 10)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, ids[2], records[0].ID)
	assert.Equal(t, ids[1], records[1].ID)
	assert.Equal(t, ids[0], records[2].ID)
	for _, r := range records {
		assert.Equal(t, "patient-4", r.PatientRef)
	}
}

func TestSQLiteListByPatientHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record := scoredRecord("patient-6")
		record.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, store.Create(ctx, record))
	}

	records, err := store.ListByPatient(ctx, "patient-6", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSQLiteHealth(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Health(context.Background()))
}
