package flow

import (
	"testing"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id int64) *int64 { return &id }

func TestResolveNext_SingleChoiceBranches(t *testing.T) {
	q := &model.Question{
		ID:      1,
		Type:    model.QuestionTypeSingleChoice,
		Options: []string{"Yes", "No"},
		Flow: model.FlowConfig{
			OptionNext: map[int]*int64{0: ptr(5), 1: ptr(3)},
		},
	}

	step := ResolveNext(q, "Yes")
	assert.Equal(t, NextStep{Kind: StepContinue, TargetID: 5}, step)

	step = ResolveNext(q, "No")
	assert.Equal(t, NextStep{Kind: StepContinue, TargetID: 3}, step)
}

func TestResolveNext_SingleChoiceUnmatchedAnswerDegrades(t *testing.T) {
	q := &model.Question{
		ID:      1,
		Type:    model.QuestionTypeSingleChoice,
		Options: []string{"Yes", "No"},
		Flow: model.FlowConfig{
			OptionNext:  map[int]*int64{0: ptr(5), 1: ptr(3)},
			DefaultNext: model.NextTo(9),
		},
	}

	// "Maybe" is not an option: stale after an edit, perhaps. Must not
	// error; falls through to the default.
	step := ResolveNext(q, "Maybe")
	assert.Equal(t, NextStep{Kind: StepContinue, TargetID: 9}, step)

	// Without a default, degrade all the way to sequential.
	q.Flow.DefaultNext = model.NextRef{}
	step = ResolveNext(q, "Maybe")
	assert.Equal(t, StepSequential, step.Kind)
}

func TestResolveNext_MatchingIsExactAndCaseSensitive(t *testing.T) {
	q := &model.Question{
		ID:      1,
		Type:    model.QuestionTypeSingleChoice,
		Options: []string{"Yes"},
		Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: ptr(2)}},
	}

	assert.Equal(t, StepContinue, ResolveNext(q, "Yes").Kind)
	assert.Equal(t, StepSequential, ResolveNext(q, "yes").Kind)
	assert.Equal(t, StepSequential, ResolveNext(q, " Yes ").Kind)
}

func TestResolveNext_OptionNullEndsSurvey(t *testing.T) {
	q := &model.Question{
		ID:      1,
		Type:    model.QuestionTypeSingleChoice,
		Options: []string{"Done", "More"},
		Flow: model.FlowConfig{
			OptionNext:  map[int]*int64{0: nil},
			DefaultNext: model.NextTo(7),
		},
	}

	// A configured null branch is end-of-survey, never sequential and never
	// the default.
	step := ResolveNext(q, "Done")
	assert.Equal(t, StepEndSurvey, step.Kind)
}

func TestResolveNext_RatingKeyMapping(t *testing.T) {
	q := &model.Question{
		ID:   2,
		Type: model.QuestionTypeRating,
		Flow: model.FlowConfig{
			// Low ratings go to Q7, high ratings end the survey, 3 stars
			// is unconfigured.
			OptionNext: map[int]*int64{0: ptr(7), 1: ptr(7), 3: nil, 4: nil},
		},
	}

	step := ResolveNext(q, 2)
	assert.Equal(t, NextStep{Kind: StepContinue, TargetID: 7}, step)

	step = ResolveNext(q, 3)
	assert.Equal(t, StepSequential, step.Kind)

	step = ResolveNext(q, 4)
	assert.Equal(t, StepEndSurvey, step.Kind)

	// Ratings arrive as float64 when decoded from JSON.
	step = ResolveNext(q, float64(1))
	assert.Equal(t, NextStep{Kind: StepContinue, TargetID: 7}, step)
}

func TestResolveNext_RatingOutOfDomainDegrades(t *testing.T) {
	q := &model.Question{
		ID:   2,
		Type: model.QuestionTypeRating,
		Flow: model.FlowConfig{
			OptionNext:  map[int]*int64{0: ptr(7)},
			DefaultNext: model.NextEnd(),
		},
	}

	// 0 and 6 are outside the star scale; the input boundary rejects them,
	// but the resolver itself must still degrade gracefully.
	assert.Equal(t, StepEndSurvey, ResolveNext(q, 0).Kind)
	assert.Equal(t, StepEndSurvey, ResolveNext(q, 6).Kind)
	assert.Equal(t, StepEndSurvey, ResolveNext(q, 2.5).Kind)
}

func TestResolveNext_TextDefaultNull(t *testing.T) {
	q := &model.Question{
		ID:   3,
		Type: model.QuestionTypeText,
		Flow: model.FlowConfig{DefaultNext: model.NextEnd()},
	}

	assert.Equal(t, StepEndSurvey, ResolveNext(q, "anything").Kind)
}

func TestResolveNext_MultipleChoiceIgnoresPerValueBranching(t *testing.T) {
	q := &model.Question{
		ID:      4,
		Type:    model.QuestionTypeMultipleChoice,
		Options: []string{"A", "B"},
		Flow: model.FlowConfig{
			// Per-value branching is not supported for multiple-choice;
			// any configured map entries are inert.
			OptionNext:  map[int]*int64{0: ptr(9)},
			DefaultNext: model.NextTo(6),
		},
	}

	step := ResolveNext(q, []any{"A", "B"})
	assert.Equal(t, NextStep{Kind: StepContinue, TargetID: 6}, step)
}

func TestResolveNext_ConditionalsRunFirst(t *testing.T) {
	q := &model.Question{
		ID:      5,
		Type:    model.QuestionTypeSingleChoice,
		Options: []string{"Yes", "No"},
		Flow: model.FlowConfig{
			Conditionals: []model.Conditional{
				{Expr: `answer == "Yes"`, Next: ptr(11)},
			},
			OptionNext: map[int]*int64{0: ptr(5)},
		},
	}

	// The conditional claims the answer before the option map does.
	step := ResolveNext(q, "Yes")
	assert.Equal(t, NextStep{Kind: StepContinue, TargetID: 11}, step)

	// Non-matching conditional defers to the option map.
	step = ResolveNext(q, "No")
	assert.Equal(t, StepSequential, step.Kind)
}

func TestResolveNext_BrokenConditionalDegrades(t *testing.T) {
	q := &model.Question{
		ID:      5,
		Type:    model.QuestionTypeSingleChoice,
		Options: []string{"Yes"},
		Flow: model.FlowConfig{
			Conditionals: []model.Conditional{
				{Expr: `answer ==`, Next: ptr(11)},   // does not compile
				{Expr: `answer + 1`, Next: ptr(12)},  // not boolean
				{Expr: `answer == "Yes"`, Next: nil}, // valid: end survey
			},
		},
	}

	assert.Equal(t, StepEndSurvey, ResolveNext(q, "Yes").Kind)
}

func TestResolveNext_NeverPanicsOnOddAnswers(t *testing.T) {
	questions := []*model.Question{
		{Type: model.QuestionTypeSingleChoice, Options: []string{"A"}, Flow: model.FlowConfig{OptionNext: map[int]*int64{0: ptr(1)}}},
		{Type: model.QuestionTypeRating, Flow: model.FlowConfig{OptionNext: map[int]*int64{0: ptr(1)}}},
		{Type: model.QuestionTypeText},
		{Type: model.QuestionTypeMultipleChoice, Options: []string{"A"}},
	}
	answers := []any{nil, 42, "nope", []any{1, 2}, map[string]any{"k": "v"}, true, 3.14}

	for _, q := range questions {
		for _, a := range answers {
			assert.NotPanics(t, func() { ResolveNext(q, a) })
		}
	}
}

func TestResolveNext_Idempotent(t *testing.T) {
	q := &model.Question{
		ID:      1,
		Type:    model.QuestionTypeSingleChoice,
		Options: []string{"Yes", "No"},
		Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: ptr(5)}},
	}

	first := ResolveNext(q, "Yes")
	second := ResolveNext(q, "Yes")
	assert.Equal(t, first, second)
}

func TestResolveInSurvey_SequentialFallthrough(t *testing.T) {
	questions := []model.Question{
		{ID: 10, OrderIndex: 0, Type: model.QuestionTypeText},
		{ID: 11, OrderIndex: 1, Type: model.QuestionTypeText},
		{ID: 12, OrderIndex: 2, Type: model.QuestionTypeText},
		{ID: 13, OrderIndex: 3, Type: model.QuestionTypeText},
	}

	// No default configured at order 2: sequential advances to order 3.
	nextID, complete := ResolveInSurvey(questions, &questions[2], "hi")
	require.NotNil(t, nextID)
	assert.Equal(t, int64(13), *nextID)
	assert.False(t, complete)

	// The last question has no successor: survey complete.
	nextID, complete = ResolveInSurvey(questions, &questions[3], "hi")
	assert.Nil(t, nextID)
	assert.True(t, complete)
}

func TestResolveInSurvey_ExplicitBranchWins(t *testing.T) {
	questions := []model.Question{
		{ID: 10, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Options: []string{"Skip ahead", "Continue"},
			Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: ptr(12)}}},
		{ID: 11, OrderIndex: 1, Type: model.QuestionTypeText},
		{ID: 12, OrderIndex: 2, Type: model.QuestionTypeText},
	}

	nextID, complete := ResolveInSurvey(questions, &questions[0], "Skip ahead")
	require.NotNil(t, nextID)
	assert.Equal(t, int64(12), *nextID)
	assert.False(t, complete)

	nextID, _ = ResolveInSurvey(questions, &questions[0], "Continue")
	require.NotNil(t, nextID)
	assert.Equal(t, int64(11), *nextID)
}
