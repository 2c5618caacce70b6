package flow

import (
	"testing"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOverview_LabelsAndTargets(t *testing.T) {
	questions := []model.Question{
		{ID: 4, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Prompt:  "<p>Satisfied?</p>",
			Options: []string{"Yes", "No"},
			Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: ptr(6), 1: nil}}},
		{ID: 5, OrderIndex: 1, Type: model.QuestionTypeText},
		{ID: 6, OrderIndex: 2, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextEnd()}},
	}

	overview := BuildOverview(questions)
	require.Len(t, overview, 3)

	q1 := overview[0]
	assert.Equal(t, "Q1", q1.Label)
	assert.Equal(t, []Branch{
		{Condition: "Yes", Target: "Q3"},
		{Condition: "No", Target: endLabel},
	}, q1.Branches)

	// Q2 has no explicit flow: one uniform sequential row.
	q2 := overview[1]
	assert.Equal(t, []Branch{{Condition: "All answers", Target: "Q3"}}, q2.Branches)

	// Q3 ends the survey for every answer.
	q3 := overview[2]
	assert.Equal(t, []Branch{{Condition: "All answers", Target: endLabel}}, q3.Branches)
}

func TestBuildOverview_RatingLabels(t *testing.T) {
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeRating,
			Flow: model.FlowConfig{OptionNext: map[int]*int64{0: ptr(2), 4: nil}}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
	}

	overview := BuildOverview(questions)
	require.Len(t, overview, 2)

	assert.Equal(t, []Branch{
		{Condition: "1 star", Target: "Q2"},
		{Condition: "5 stars", Target: endLabel},
		{Condition: "All answers", Target: "Q2"},
	}, overview[0].Branches)
}

func TestBuildOverview_FullyCoveredChoiceHasNoFallbackRow(t *testing.T) {
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Options: []string{"A", "B"},
			Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: nil, 1: nil}}},
	}

	overview := BuildOverview(questions)
	require.Len(t, overview, 1)
	for _, b := range overview[0].Branches {
		assert.NotEqual(t, "All answers", b.Condition)
	}
}

func TestBuildOverview_ConditionalRowsComeFirst(t *testing.T) {
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Options: []string{"Other"},
			Flow: model.FlowConfig{
				Conditionals: []model.Conditional{{Expr: `answer == "Other"`, Next: ptr(2)}},
			}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
	}

	overview := BuildOverview(questions)
	require.NotEmpty(t, overview[0].Branches)
	assert.Equal(t, `answer == "Other"`, overview[0].Branches[0].Condition)
	assert.Equal(t, "Q2", overview[0].Branches[0].Target)
}
