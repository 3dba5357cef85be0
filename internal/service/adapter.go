package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
	"github.com/kccq-triage-server/pkg/llm"
)

// QuestionAdapter rewrites canonical questionnaire items into
// patient-friendly phrasing via the language-model gateway. The adaptation
// prompt is deterministic per question, so results are cached under the bank
// version; a gateway failure falls back to the canonical text at the caller.
type QuestionAdapter struct {
	generator llm.Generator
	cache     llm.Cache
	log       *logrus.Logger
}

// NewQuestionAdapter creates a question adapter. cache may be nil, in which
// case every call reaches the gateway.
func NewQuestionAdapter(generator llm.Generator, cache llm.Cache, logger *logrus.Logger) *QuestionAdapter {
	return &QuestionAdapter{generator: generator, cache: cache, log: logger}
}

// Adapt returns a patient-friendly phrasing of the question. The error, if
// any, carries the gateway failure taxonomy; callers render the canonical
// text instead.
func (a *QuestionAdapter) Adapt(ctx context.Context, q domain.Question) (string, error) {
	key := cacheKey(q)
	if a.cache != nil {
		if text, ok := a.cache.Get(ctx, key); ok {
			return text, nil
		}
	}

	text, err := a.generator.Generate(ctx, llm.Request{
		SystemPrompt: adapterSystemPrompt,
		UserPrompt:   fmt.Sprintf("Question: %s", q.CanonicalText),
		MinLength:    1,
	})
	if err != nil {
		return "", fmt.Errorf("adapting question %d: %w", q.ID, err)
	}

	if a.cache != nil {
		a.cache.Set(ctx, key, text)
	}
	return text, nil
}

func cacheKey(q domain.Question) string {
	return fmt.Sprintf("adapted:%s:q%d", questionbank.Version, q.ID)
}
