package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type fakeSurveyStore struct {
	survey model.Survey
}

func (f *fakeSurveyStore) GetByID(_ context.Context, _ uuid.UUID) (*model.Survey, error) {
	s := f.survey
	return &s, nil
}

type fakeQuestionStore struct {
	questions []model.Question
}

func (f *fakeQuestionStore) ListBySurvey(_ context.Context, _ uuid.UUID) ([]model.Question, error) {
	out := make([]model.Question, len(f.questions))
	copy(out, f.questions)
	return out, nil
}

func (f *fakeQuestionStore) UpdateFlow(_ context.Context, _ uuid.UUID, questionID int64, flow model.FlowConfig) error {
	for i := range f.questions {
		if f.questions[i].ID == questionID {
			f.questions[i].Flow = flow
			return nil
		}
	}
	return ErrQuestionNotFound
}

func (f *fakeQuestionStore) get(id int64) *model.Question {
	for i := range f.questions {
		if f.questions[i].ID == id {
			return &f.questions[i]
		}
	}
	return nil
}

type fakeSnapshotStore struct {
	questions []model.Question
	err       error
}

func (f *fakeSnapshotStore) GetFlowSnapshot(_ context.Context, _ uuid.UUID) ([]model.Question, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

// ─── Fixtures ───────────────────────────────────────────────────────────────

var testSurveyID = uuid.MustParse("7f3c2a10-9d4e-4b6f-8a21-5c0e9d8b7a61")

func newRuleFixture(t *testing.T) (*RuleService, *fakeQuestionStore) {
	t.Helper()
	questions := &fakeQuestionStore{questions: []model.Question{
		{ID: 1, SurveyID: testSurveyID, OrderIndex: 0, Type: model.QuestionTypeSingleChoice,
			Prompt: "<p>Do you use our product?</p>", Options: []string{"Yes", "No"}},
		{ID: 2, SurveyID: testSurveyID, OrderIndex: 1, Type: model.QuestionTypeRating,
			Prompt: "<p>How satisfied are you?</p>"},
		{ID: 3, SurveyID: testSurveyID, OrderIndex: 2, Type: model.QuestionTypeText,
			Prompt: "<p>Anything else?</p>"},
	}}
	surveys := &fakeSurveyStore{survey: model.Survey{
		ID: testSurveyID, Status: model.SurveyStatusDraft, AuthorID: 1,
	}}
	snapshots := &fakeSnapshotStore{err: ErrSurveyNotPublished}
	return NewRuleService(surveys, questions, snapshots, zerolog.Nop()), questions
}

// ─── Mutation ───────────────────────────────────────────────────────────────

func TestRuleService_CreateEqualsRoundTrips(t *testing.T) {
	svc, store := newRuleFixture(t)
	ctx := context.Background()

	rule, err := svc.Create(ctx, testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 3,
		Operator:         "Equals",
		Values:           []string{"No"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rule.SourceQuestionID)
	assert.Equal(t, int64(3), rule.TargetQuestionID)

	// The rule landed in the source question's flow config under option key 1.
	q := store.get(1)
	require.NotNil(t, q.Flow.OptionNext[1])
	assert.Equal(t, int64(3), *q.Flow.OptionNext[1])

	// Listing derives the same rule back out.
	rules, err := svc.List(ctx, testSurveyID, 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, *rule, rules[0])
}

func TestRuleService_CreateInGroupsRatingValues(t *testing.T) {
	svc, store := newRuleFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testSurveyID, 2, 1, &model.CreateRuleRequest{
		TargetQuestionID: 3,
		Operator:         "In",
		Values:           []string{"1", "2"},
	})
	require.NoError(t, err)

	// Stars 1 and 2 map to branch keys 0 and 1.
	q := store.get(2)
	require.NotNil(t, q.Flow.OptionNext[0])
	require.NotNil(t, q.Flow.OptionNext[1])
	assert.Equal(t, int64(3), *q.Flow.OptionNext[0])
	assert.Equal(t, int64(3), *q.Flow.OptionNext[1])

	rules, err := svc.List(ctx, testSurveyID, 2)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, model.OperatorIn, rules[0].Condition.Operator)
	assert.Equal(t, []string{"1", "2"}, rules[0].Condition.Values)
}

func TestRuleService_SelfReferenceRejected(t *testing.T) {
	svc, store := newRuleFixture(t)
	ctx := context.Background()

	before := store.get(1).Flow

	_, err := svc.Create(ctx, testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 1,
		Operator:         "Equals",
		Values:           []string{"Yes"},
	})
	assert.ErrorIs(t, err, ErrSelfReference)

	// Rejected mutation leaves the rule set unchanged.
	assert.Equal(t, before, store.get(1).Flow)
	rules, err := svc.List(ctx, testSurveyID, 1)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRuleService_TargetMustExist(t *testing.T) {
	svc, _ := newRuleFixture(t)

	_, err := svc.Create(context.Background(), testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 99,
		Operator:         "Equals",
		Values:           []string{"Yes"},
	})
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestRuleService_TextSourceCannotBranch(t *testing.T) {
	svc, _ := newRuleFixture(t)

	_, err := svc.Create(context.Background(), testSurveyID, 3, 1, &model.CreateRuleRequest{
		TargetQuestionID: 1,
		Operator:         "Equals",
		Values:           []string{"anything"},
	})
	assert.ErrorIs(t, err, ErrSourceNotBranching)
}

func TestRuleService_ValueMustBeAnOption(t *testing.T) {
	svc, _ := newRuleFixture(t)

	_, err := svc.Create(context.Background(), testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 3,
		Operator:         "Equals",
		Values:           []string{"Perhaps"},
	})
	assert.ErrorIs(t, err, ErrValueNotOption)
}

func TestRuleService_ExprRuleCompilesOrFails(t *testing.T) {
	svc, store := newRuleFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testSurveyID, 3, 1, &model.CreateRuleRequest{
		TargetQuestionID: 1,
		Operator:         "Expr",
		Values:           []string{`answer contains "refund"`},
	})
	require.NoError(t, err)
	require.Len(t, store.get(3).Flow.Conditionals, 1)

	_, err = svc.Create(ctx, testSurveyID, 3, 1, &model.CreateRuleRequest{
		TargetQuestionID: 1,
		Operator:         "Expr",
		Values:           []string{`answer +`},
	})
	assert.ErrorIs(t, err, ErrBadExpression)
}

func TestRuleService_LaterRuleWinsSameValue(t *testing.T) {
	svc, store := newRuleFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 2, Operator: "Equals", Values: []string{"No"},
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 3, Operator: "Equals", Values: []string{"No"},
	})
	require.NoError(t, err)

	q := store.get(1)
	require.NotNil(t, q.Flow.OptionNext[1])
	assert.Equal(t, int64(3), *q.Flow.OptionNext[1])
}

func TestRuleService_UpdatePatchesTarget(t *testing.T) {
	svc, store := newRuleFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 2, Operator: "Equals", Values: []string{"No"},
	})
	require.NoError(t, err)

	newTarget := int64(3)
	rule, err := svc.Update(ctx, testSurveyID, 1, 2, 1, &model.UpdateRuleRequest{
		TargetQuestionID: &newTarget,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rule.TargetQuestionID)
	assert.Equal(t, model.OperatorEquals, rule.Condition.Operator)
	assert.Equal(t, []string{"No"}, rule.Condition.Values)

	q := store.get(1)
	require.NotNil(t, q.Flow.OptionNext[1])
	assert.Equal(t, int64(3), *q.Flow.OptionNext[1])
}

func TestRuleService_UpdateMissingRule(t *testing.T) {
	svc, _ := newRuleFixture(t)

	op := "Equals"
	_, err := svc.Update(context.Background(), testSurveyID, 1, 3, 1, &model.UpdateRuleRequest{
		Operator: &op,
	})
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestRuleService_DeleteRevertsToUnconfigured(t *testing.T) {
	svc, store := newRuleFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 3, Operator: "Equals", Values: []string{"No"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, testSurveyID, 1, 3, 1))
	assert.Empty(t, store.get(1).Flow.OptionNext)

	// Deleting again finds nothing.
	assert.ErrorIs(t, svc.Delete(ctx, testSurveyID, 1, 3, 1), ErrRuleNotFound)

	// With no branches configured, "No" falls through to sequential order.
	res, err := svc.PreviewNextForAnswer(ctx, testSurveyID, 1, json.RawMessage(`"No"`))
	require.NoError(t, err)
	require.NotNil(t, res.NextQuestionID)
	assert.Equal(t, int64(2), *res.NextQuestionID)
	assert.False(t, res.IsComplete)
}

func TestRuleService_MutationsBlockedOutsideDraft(t *testing.T) {
	questions := &fakeQuestionStore{questions: []model.Question{
		{ID: 1, SurveyID: testSurveyID, OrderIndex: 0, Type: model.QuestionTypeSingleChoice, Options: []string{"A", "B"}},
		{ID: 2, SurveyID: testSurveyID, OrderIndex: 1, Type: model.QuestionTypeText},
	}}
	surveys := &fakeSurveyStore{survey: model.Survey{
		ID: testSurveyID, Status: model.SurveyStatusPublished, AuthorID: 1,
	}}
	svc := NewRuleService(surveys, questions, &fakeSnapshotStore{err: ErrSurveyNotPublished}, zerolog.Nop())

	_, err := svc.Create(context.Background(), testSurveyID, 1, 1, &model.CreateRuleRequest{
		TargetQuestionID: 2, Operator: "Equals", Values: []string{"A"},
	})
	assert.ErrorIs(t, err, ErrSurveyNotDraft)
}

// ─── Resolution ─────────────────────────────────────────────────────────────

func TestRuleService_ResolveServesSnapshotOnly(t *testing.T) {
	// The snapshot carries a branch the question store does not; hitting it
	// proves the public resolve path reads the cached set.
	target := int64(3)
	snapshot := []model.Question{
		{ID: 1, OrderIndex: 0, Type: model.QuestionTypeSingleChoice, Options: []string{"Yes", "No"},
			Flow: model.FlowConfig{OptionNext: map[int]*int64{1: &target}}},
		{ID: 2, OrderIndex: 1, Type: model.QuestionTypeText},
		{ID: 3, OrderIndex: 2, Type: model.QuestionTypeText},
	}
	surveys := &fakeSurveyStore{survey: model.Survey{ID: testSurveyID, Status: model.SurveyStatusPublished}}
	svc := NewRuleService(surveys, &fakeQuestionStore{}, &fakeSnapshotStore{questions: snapshot}, zerolog.Nop())

	res, err := svc.ResolveNextForAnswer(context.Background(), testSurveyID, 1, json.RawMessage(`"No"`))
	require.NoError(t, err)
	require.NotNil(t, res.NextQuestionID)
	assert.Equal(t, int64(3), *res.NextQuestionID)
}

func TestRuleService_ResolveRejectsWithoutSnapshot(t *testing.T) {
	// A dropped snapshot (closed or never-published survey) ends responding
	// outright. The questions still exist in PostgreSQL; the public path must
	// not reach for them.
	svc, _ := newRuleFixture(t)
	ctx := context.Background()

	_, err := svc.ResolveNextForAnswer(ctx, testSurveyID, 1, json.RawMessage(`"Yes"`))
	assert.ErrorIs(t, err, ErrSurveyNotPublished)

	// The same answer still resolves through the admin preview path.
	res, err := svc.PreviewNextForAnswer(ctx, testSurveyID, 1, json.RawMessage(`"Yes"`))
	require.NoError(t, err)
	require.NotNil(t, res.NextQuestionID)
	assert.Equal(t, int64(2), *res.NextQuestionID)
}

func TestRuleService_ResolveRatingBoundary(t *testing.T) {
	svc, _ := newRuleFixture(t)
	ctx := context.Background()

	for _, raw := range []string{`0`, `6`, `3.5`, `"3"`} {
		_, err := svc.PreviewNextForAnswer(ctx, testSurveyID, 2, json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrAnswerOutOfRange, "answer %s", raw)
	}

	res, err := svc.PreviewNextForAnswer(ctx, testSurveyID, 2, json.RawMessage(`5`))
	require.NoError(t, err)
	require.NotNil(t, res.NextQuestionID)
	assert.Equal(t, int64(3), *res.NextQuestionID)
}

func TestRuleService_ResolveLastQuestionCompletes(t *testing.T) {
	svc, _ := newRuleFixture(t)

	res, err := svc.PreviewNextForAnswer(context.Background(), testSurveyID, 3, json.RawMessage(`"done"`))
	require.NoError(t, err)
	assert.Nil(t, res.NextQuestionID)
	assert.True(t, res.IsComplete)
}

func TestRuleService_ResolveUnknownQuestion(t *testing.T) {
	svc, _ := newRuleFixture(t)

	_, err := svc.PreviewNextForAnswer(context.Background(), testSurveyID, 42, json.RawMessage(`"x"`))
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}
