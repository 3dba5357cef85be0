package questionbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kccq-triage-server/internal/domain"
)

// completeResponses answers every item with the given ordinal.
func completeResponses(ordinal int) []domain.Response {
	bank := New()
	items := bank.List()
	responses := make([]domain.Response, len(items))
	for i, q := range items {
		responses[i] = domain.Response{QuestionID: q.ID, SelectedOrdinal: ordinal}
	}
	return responses
}

func TestBankListIsStableAndComplete(t *testing.T) {
	bank := New()

	first := bank.List()
	second := bank.List()

	require.Len(t, first, Size)
	assert.Equal(t, first, second, "order must be stable across calls")

	for i, q := range first {
		assert.Equal(t, i+1, q.ID, "ids are sequential in canonical order")
		assert.True(t, q.Domain.IsValid())
		assert.NotEmpty(t, q.CanonicalText)
		assert.NotEmpty(t, q.Scale)
	}
}

func TestBankListReturnsCopy(t *testing.T) {
	bank := New()

	mutated := bank.List()
	mutated[0].CanonicalText = "tampered"

	fresh := bank.List()
	assert.NotEqual(t, "tampered", fresh[0].CanonicalText)
}

func TestBankDomainCoverage(t *testing.T) {
	bank := New()

	counts := map[domain.QuestionDomain]int{}
	for _, q := range bank.List() {
		counts[q.Domain]++
	}

	// Published short-form distribution.
	assert.Equal(t, 3, counts[domain.PhysicalLimitation])
	assert.Equal(t, 4, counts[domain.SymptomFrequency])
	assert.Equal(t, 2, counts[domain.QualityOfLife])
	assert.Equal(t, 3, counts[domain.SocialLimitation])
}

func TestValidateAcceptsCompleteSubmission(t *testing.T) {
	bank := New()
	assert.NoError(t, bank.Validate(completeResponses(3)))
}

func TestValidateRejectsBadSubmissions(t *testing.T) {
	bank := New()

	t.Run("missing response", func(t *testing.T) {
		responses := completeResponses(3)[:Size-1]
		err := bank.Validate(responses)
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("duplicate response", func(t *testing.T) {
		responses := completeResponses(3)
		responses[1].QuestionID = responses[0].QuestionID
		err := bank.Validate(responses)
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "question_id", vErr.Field)
	})

	t.Run("unknown question id", func(t *testing.T) {
		responses := completeResponses(3)
		responses[0].QuestionID = 99
		err := bank.Validate(responses)
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("ordinal off the scale", func(t *testing.T) {
		responses := completeResponses(3)
		responses[4].SelectedOrdinal = 6
		err := bank.Validate(responses)
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "selected_ordinal", vErr.Field)
	})

	t.Run("empty submission", func(t *testing.T) {
		err := bank.Validate(nil)
		var vErr *domain.ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestQuestionLookup(t *testing.T) {
	bank := New()

	q, ok := bank.Question(1)
	require.True(t, ok)
	assert.Equal(t, domain.PhysicalLimitation, q.Domain)
	assert.Equal(t, 1, q.ScaleMin())
	assert.Equal(t, 5, q.ScaleMax())

	_, ok = bank.Question(13)
	assert.False(t, ok)
}
