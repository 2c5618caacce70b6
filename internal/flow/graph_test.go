package flow

import (
	"testing"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGraph_EmptySurvey(t *testing.T) {
	report := ValidateGraph(nil)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Cycles)
	assert.Empty(t, report.OrphanQuestionIDs)
}

func TestValidateGraph_LinearSurveyIsValid(t *testing.T) {
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeText},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
		{ID: 3, OrderIndex: 2, Type: model.QuestionTypeText},
	}

	report := ValidateGraph(questions)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Cycles)
	assert.Empty(t, report.OrphanQuestionIDs)
}

func TestValidateGraph_DefaultNextCycleIsFatal(t *testing.T) {
	// A → B → C → A wired via default next, no exit anywhere.
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextTo(2)}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextTo(3)}},
		{ID: 3, OrderIndex: 2, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextTo(1)}},
	}

	report := ValidateGraph(questions)
	assert.False(t, report.Valid)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []int64{1, 2, 3}, report.Cycles[0])
}

func TestValidateGraph_CycleWithExitIsAcceptable(t *testing.T) {
	// Q1 loops back to itself on "Retry" but offers "Done" → end.
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Options: []string{"Retry", "Done"},
			Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: ptr(1), 1: nil}}},
	}

	report := ValidateGraph(questions)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Cycles)
}

func TestValidateGraph_BranchCycleWithoutExitIsFatal(t *testing.T) {
	// Q2 and Q3 bounce between each other on every answer.
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Options: []string{"Go"},
			Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: ptr(2)}, DefaultNext: model.NextTo(2)}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextTo(3)}},
		{ID: 3, OrderIndex: 2, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextTo(2)}},
	}

	report := ValidateGraph(questions)
	assert.False(t, report.Valid)
	require.Len(t, report.Cycles, 1)
	assert.ElementsMatch(t, []int64{2, 3}, report.Cycles[0])
}

func TestValidateGraph_OrphanIsWarningNotFailure(t *testing.T) {
	// Q2 is skipped over by Q1's default; nothing points at it.
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextTo(3)}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
		{ID: 3, OrderIndex: 2, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextEnd()}},
	}

	report := ValidateGraph(questions)
	assert.True(t, report.Valid)
	assert.Equal(t, []int64{2}, report.OrphanQuestionIDs)
}

func TestValidateGraph_PartialOptionCoverageUsesFallbackEdge(t *testing.T) {
	// Only option 0 is configured; options 1..n fall to the sequential
	// successor, which terminates. No cycle, no orphan.
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Options: []string{"A", "B", "C"},
			Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: nil}}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
	}

	report := ValidateGraph(questions)
	assert.True(t, report.Valid)
	assert.Empty(t, report.OrphanQuestionIDs)
}

func TestValidateGraph_FullyConfiguredChoiceHasNoFallbackEdge(t *testing.T) {
	// Every option of Q1 branches to Q3; Q2 is sequentially adjacent but
	// symbolically unreachable.
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Options: []string{"A", "B"},
			Flow:    model.FlowConfig{OptionNext: map[int]*int64{0: ptr(3), 1: ptr(3)}}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
		{ID: 3, OrderIndex: 2, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextEnd()}},
	}

	report := ValidateGraph(questions)
	assert.True(t, report.Valid)
	assert.Equal(t, []int64{2}, report.OrphanQuestionIDs)
}

func TestValidateGraph_ConditionalEdgesCount(t *testing.T) {
	// A conditional is the only route into Q2.
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Options: []string{"Yes", "No"},
			Flow: model.FlowConfig{
				Conditionals: []model.Conditional{{Expr: `answer == "Yes"`, Next: ptr(2)}},
				DefaultNext:  model.NextEnd(),
			}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
	}

	report := ValidateGraph(questions)
	assert.True(t, report.Valid)
	assert.Empty(t, report.OrphanQuestionIDs)
}

func TestValidateGraph_SelfLoopViaDefaultIsFatal(t *testing.T) {
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeText, Flow: model.FlowConfig{DefaultNext: model.NextTo(1)}},
	}

	report := ValidateGraph(questions)
	assert.False(t, report.Valid)
	require.Len(t, report.Cycles, 1)
	assert.Equal(t, []int64{1}, report.Cycles[0])
}
