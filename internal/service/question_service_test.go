package service

import (
	"testing"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(id int64) *int64 { return &id }

func TestRepairAfterDelete(t *testing.T) {
	questions := []model.Question{
		{ID: 10, OrderIndex: 0, Type: model.QuestionTypeSingleChoice, Options: []string{"A", "B"},
			Flow: model.FlowConfig{OptionNext: map[int]*int64{0: ref(20), 1: ref(30)}}},
		{ID: 20, OrderIndex: 1, Type: model.QuestionTypeText,
			Flow: model.FlowConfig{DefaultNext: model.NextTo(30)}},
		{ID: 30, OrderIndex: 2, Type: model.QuestionTypeText},
	}

	repaired := repairAfterDelete(questions, 20)
	require.Len(t, repaired, 2)

	// Order indexes are contiguous again.
	assert.Equal(t, int64(10), repaired[0].ID)
	assert.Equal(t, 0, repaired[0].OrderIndex)
	assert.Equal(t, int64(30), repaired[1].ID)
	assert.Equal(t, 1, repaired[1].OrderIndex)

	// The option branch at the deleted question became an explicit end,
	// not a silent fall-through; the untouched branch survived.
	require.Contains(t, repaired[0].Flow.OptionNext, 0)
	assert.Nil(t, repaired[0].Flow.OptionNext[0])
	require.NotNil(t, repaired[0].Flow.OptionNext[1])
	assert.Equal(t, int64(30), *repaired[0].Flow.OptionNext[1])
}

func TestRepairAfterDelete_DefaultAndConditionals(t *testing.T) {
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeText,
			Flow: model.FlowConfig{
				DefaultNext:  model.NextTo(2),
				Conditionals: []model.Conditional{{Expr: `answer == "skip"`, Next: ref(2)}},
			}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
		{ID: 3, OrderIndex: 2, Type: model.QuestionTypeText},
	}

	repaired := repairAfterDelete(questions, 2)
	require.Len(t, repaired, 2)

	q := repaired[0]
	assert.True(t, q.Flow.DefaultNext.Defined)
	assert.Nil(t, q.Flow.DefaultNext.Target)
	require.Len(t, q.Flow.Conditionals, 1)
	assert.Nil(t, q.Flow.Conditionals[0].Next)
}

func TestRepairAfterDelete_DoesNotMutateInput(t *testing.T) {
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeText,
			Flow: model.FlowConfig{DefaultNext: model.NextTo(2)}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
	}

	_ = repairAfterDelete(questions, 2)
	require.NotNil(t, questions[0].Flow.DefaultNext.Target)
	assert.Equal(t, int64(2), *questions[0].Flow.DefaultNext.Target)
}

func TestValidateFlowRefs(t *testing.T) {
	questions := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeText},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
	}

	assert.NoError(t, validateFlowRefs(model.FlowConfig{DefaultNext: model.NextTo(2)}, questions, 1))
	assert.ErrorIs(t, validateFlowRefs(model.FlowConfig{DefaultNext: model.NextTo(1)}, questions, 1), ErrSelfReference)
	assert.ErrorIs(t, validateFlowRefs(model.FlowConfig{DefaultNext: model.NextTo(9)}, questions, 1), ErrFlowTargetMissing)

	// End-survey markers reference nothing and always pass.
	assert.NoError(t, validateFlowRefs(model.FlowConfig{DefaultNext: model.NextEnd()}, questions, 1))
}

func TestValidateOptions(t *testing.T) {
	assert.NoError(t, validateOptions(model.QuestionTypeSingleChoice, []string{"A", "B"}))
	assert.ErrorIs(t, validateOptions(model.QuestionTypeSingleChoice, []string{"A"}), ErrOptionsRequired)
	assert.ErrorIs(t, validateOptions(model.QuestionTypeText, []string{"A"}), ErrOptionsForbidden)
	assert.NoError(t, validateOptions(model.QuestionTypeRating, nil))
}
