package service

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
	"github.com/kccq-triage-server/pkg/llm"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// completeResponses answers every bank item with the given ordinal.
func completeResponses(bank *questionbank.Bank, ordinal int) []domain.Response {
	items := bank.List()
	responses := make([]domain.Response, len(items))
	for i, q := range items {
		responses[i] = domain.Response{QuestionID: q.ID, SelectedOrdinal: ordinal}
	}
	return responses
}

// scriptedGenerator returns canned results in order, repeating the last one.
type scriptedGenerator struct {
	mu      sync.Mutex
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	text string
	err  error
}

func (g *scriptedGenerator) Generate(_ context.Context, _ llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	idx := g.calls - 1
	if idx >= len(g.results) {
		idx = len(g.results) - 1
	}
	r := g.results[idx]
	return r.text, r.err
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// recordingStore is an in-memory RecordStore that counts writes, used to
// assert the pipeline's side-effect discipline.
type recordingStore struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*domain.DiagnosticRecord
	creates     int
	enrichments int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{records: make(map[uuid.UUID]*domain.DiagnosticRecord)}
}

func (s *recordingStore) Create(_ context.Context, record *domain.DiagnosticRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	stored := *record
	s.records[record.ID] = &stored
	return nil
}

func (s *recordingStore) UpdateEnrichment(_ context.Context, id uuid.UUID, enrichment domain.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	if record.Status != domain.StatusScored {
		return domain.ErrAlreadyEnriched
	}
	s.enrichments++
	record.Status = enrichment.Status
	if enrichment.Status == domain.StatusEnriched {
		record.SummaryText = enrichment.SummaryText
		at := enrichment.EnrichedAt
		record.EnrichedAt = &at
	} else {
		record.FailureReason = enrichment.FailureReason
	}
	return nil
}

func (s *recordingStore) Get(_ context.Context, id uuid.UUID) (*domain.DiagnosticRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *recordingStore) ListByPatient(_ context.Context, patientRef string, _ int) ([]*domain.DiagnosticRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.DiagnosticRecord
	for _, r := range s.records {
		if r.PatientRef == patientRef {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *recordingStore) Health(context.Context) error { return nil }
func (s *recordingStore) Close() error                 { return nil }

func (s *recordingStore) counts() (creates, enrichments int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates, s.enrichments
}
