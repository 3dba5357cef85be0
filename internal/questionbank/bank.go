// Package questionbank defines the fixed 12-item KCCQ-style symptom
// questionnaire. The bank is immutable and versioned; scoring depends only on
// the response-scale definitions declared here.
package questionbank

import (
	"fmt"

	"github.com/kccq-triage-server/internal/domain"
)

// Version identifies the instrument revision. Adapted question phrasings are
// cached under this version so a bank change invalidates stale phrasings.
const Version = "kccq12-v1"

// Size is the number of items in the instrument. A complete submission
// carries exactly one response per item.
const Size = 12

// Citation is the published instrument reference included in summary prompts.
const Citation = "Kansas City Cardiomyopathy Questionnaire, 12-item short form (KCCQ-12)"

var limitScale = []domain.ScaleOption{
	{Value: 1, Label: "Extremely limited"},
	{Value: 2, Label: "Quite a bit limited"},
	{Value: 3, Label: "Moderately limited"},
	{Value: 4, Label: "Slightly limited"},
	{Value: 5, Label: "Not at all limited"},
}

var frequencyScale = []domain.ScaleOption{
	{Value: 1, Label: "Every morning / several times per day"},
	{Value: 2, Label: "3 or more times per week"},
	{Value: 3, Label: "1-2 times per week"},
	{Value: 4, Label: "Less than once a week"},
	{Value: 5, Label: "Never over the past 2 weeks"},
}

var enjoymentScale = []domain.ScaleOption{
	{Value: 1, Label: "It has extremely limited my enjoyment of life"},
	{Value: 2, Label: "It has limited my enjoyment of life quite a bit"},
	{Value: 3, Label: "It has moderately limited my enjoyment of life"},
	{Value: 4, Label: "It has slightly limited my enjoyment of life"},
	{Value: 5, Label: "It has not limited my enjoyment of life at all"},
}

var dissatisfactionScale = []domain.ScaleOption{
	{Value: 1, Label: "Not at all satisfied"},
	{Value: 2, Label: "Mostly dissatisfied"},
	{Value: 3, Label: "Somewhat satisfied"},
	{Value: 4, Label: "Mostly satisfied"},
	{Value: 5, Label: "Completely satisfied"},
}

// questions is the canonical ordered item set. Item counts per domain follow
// the published short form: 3 physical, 4 symptom, 2 quality-of-life,
// 3 social.
var questions = []domain.Question{
	{ID: 1, Domain: domain.PhysicalLimitation, CanonicalText: "How limited are you by heart failure symptoms when showering or bathing?", Scale: limitScale},
	{ID: 2, Domain: domain.PhysicalLimitation, CanonicalText: "How limited are you when walking one block on level ground?", Scale: limitScale},
	{ID: 3, Domain: domain.PhysicalLimitation, CanonicalText: "How limited are you when hurrying or jogging, as if to catch a bus?", Scale: limitScale},
	{ID: 4, Domain: domain.SymptomFrequency, CanonicalText: "Over the past 2 weeks, how many times did you have swelling in your feet, ankles or legs when you woke up in the morning?", Scale: frequencyScale},
	{ID: 5, Domain: domain.SymptomFrequency, CanonicalText: "Over the past 2 weeks, how often has fatigue limited your ability to do what you wanted?", Scale: frequencyScale},
	{ID: 6, Domain: domain.SymptomFrequency, CanonicalText: "Over the past 2 weeks, how often has shortness of breath limited your ability to do what you wanted?", Scale: frequencyScale},
	{ID: 7, Domain: domain.SymptomFrequency, CanonicalText: "Over the past 2 weeks, how often have you been forced to sleep sitting up in a chair or with extra pillows because of shortness of breath?", Scale: frequencyScale},
	{ID: 8, Domain: domain.QualityOfLife, CanonicalText: "Over the past 2 weeks, how much has your heart failure limited your enjoyment of life?", Scale: enjoymentScale},
	{ID: 9, Domain: domain.QualityOfLife, CanonicalText: "If you had to spend the rest of your life with your heart failure the way it is right now, how would you feel about this?", Scale: dissatisfactionScale},
	{ID: 10, Domain: domain.SocialLimitation, CanonicalText: "How much has your heart failure limited your hobbies and recreational activities?", Scale: limitScale},
	{ID: 11, Domain: domain.SocialLimitation, CanonicalText: "How much has your heart failure limited your ability to work or do household chores?", Scale: limitScale},
	{ID: 12, Domain: domain.SocialLimitation, CanonicalText: "How much has your heart failure limited your ability to visit family or friends out of your home?", Scale: limitScale},
}

// Bank provides read access to the instrument items and validates complete
// submissions against the declared scales.
type Bank struct {
	byID map[int]domain.Question
}

// New returns the fixed instrument bank.
func New() *Bank {
	byID := make(map[int]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	return &Bank{byID: byID}
}

// List returns the questions in stable canonical order. The returned slice is
// a copy; the bank itself is never mutated.
func (b *Bank) List() []domain.Question {
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out
}

// Question returns the item with the given id.
func (b *Bank) Question(id int) (domain.Question, bool) {
	q, ok := b.byID[id]
	return q, ok
}

// ByDomain returns the items belonging to a domain, in canonical order.
func (b *Bank) ByDomain(d domain.QuestionDomain) []domain.Question {
	var out []domain.Question
	for _, q := range questions {
		if q.Domain == d {
			out = append(out, q)
		}
	}
	return out
}

// Validate checks a submission for completeness: exactly one response per
// item, every response referencing a known question, every ordinal on the
// declared scale. It returns a ValidationError describing the first problem
// found, before any record or side effect exists.
func (b *Bank) Validate(responses []domain.Response) error {
	if len(responses) != Size {
		return domain.NewValidationError("responses",
			fmt.Sprintf("expected %d responses, got %d", Size, len(responses)))
	}

	seen := make(map[int]bool, Size)
	for _, r := range responses {
		q, ok := b.byID[r.QuestionID]
		if !ok {
			return domain.NewValidationError("question_id",
				fmt.Sprintf("unknown question id %d", r.QuestionID))
		}
		if seen[r.QuestionID] {
			return domain.NewValidationError("question_id",
				fmt.Sprintf("duplicate response for question %d", r.QuestionID))
		}
		seen[r.QuestionID] = true

		if !q.InScale(r.SelectedOrdinal) {
			return domain.NewValidationError("selected_ordinal",
				fmt.Sprintf("ordinal %d is not on the scale of question %d (valid %d-%d)",
					r.SelectedOrdinal, q.ID, q.ScaleMin(), q.ScaleMax()))
		}
	}

	for id := range b.byID {
		if !seen[id] {
			return domain.NewValidationError("responses",
				fmt.Sprintf("missing response for question %d", id))
		}
	}
	return nil
}
