package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
	"github.com/kccq-triage-server/pkg/llm"
)

func TestAdaptRewritesQuestion(t *testing.T) {
	bank := questionbank.New()
	gen := &scriptedGenerator{results: []scriptedResult{{text: "How hard is it for you to shower or bathe?"}}}
	adapter := NewQuestionAdapter(gen, nil, testLogger())

	q, _ := bank.Question(1)
	text, err := adapter.Adapt(context.Background(), q)

	require.NoError(t, err)
	assert.Equal(t, "How hard is it for you to shower or bathe?", text)
}

func TestAdaptUsesCache(t *testing.T) {
	bank := questionbank.New()
	gen := &scriptedGenerator{results: []scriptedResult{{text: "Plain phrasing."}}}
	cache, err := llm.NewCache(domain.CacheConfig{LRUSize: 16}, testLogger())
	require.NoError(t, err)

	adapter := NewQuestionAdapter(gen, cache, testLogger())
	q, _ := bank.Question(2)

	first, err := adapter.Adapt(context.Background(), q)
	require.NoError(t, err)

	second, err := adapter.Adapt(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.callCount(), "second call must be served from cache")
}

func TestAdaptSurfacesGatewayFailure(t *testing.T) {
	bank := questionbank.New()
	gen := &scriptedGenerator{results: []scriptedResult{{err: domain.ErrGatewayTimeout}}}
	adapter := NewQuestionAdapter(gen, nil, testLogger())

	q, _ := bank.Question(3)
	_, err := adapter.Adapt(context.Background(), q)

	assert.ErrorIs(t, err, domain.ErrGatewayTimeout)
}
