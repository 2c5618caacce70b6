package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/formlio/surveybot-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrQuestionNotFound  = errors.New("question not found in this survey")
	ErrFlowTargetMissing = errors.New("flow config references a question outside this survey")
	ErrBadReorderSet     = errors.New("reorder ids are not a permutation of the survey's questions")
	ErrOptionsRequired   = errors.New("choice questions require at least two options")
	ErrOptionsForbidden  = errors.New("this question type does not take options")
)

// QuestionService handles question CRUD and flow-reference integrity.
// All mutations are draft-only; published surveys are immutable.
type QuestionService struct {
	surveyRepo   *repository.SurveyRepository
	questionRepo *repository.QuestionRepository
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(
	surveyRepo *repository.SurveyRepository,
	questionRepo *repository.QuestionRepository,
	log zerolog.Logger,
) *QuestionService {
	return &QuestionService{
		surveyRepo:   surveyRepo,
		questionRepo: questionRepo,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// ListBySurvey retrieves a survey's questions in flow order.
func (s *QuestionService) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]model.Question, error) {
	questions, err := s.questionRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, nil
}

// GetByID retrieves one question, scoped to its survey.
func (s *QuestionService) GetByID(ctx context.Context, surveyID uuid.UUID, questionID int64) (*model.Question, error) {
	return s.questionRepo.GetByID(ctx, surveyID, questionID)
}

// Create appends a question to a draft survey at the next order index.
func (s *QuestionService) Create(ctx context.Context, surveyID uuid.UUID, authorID int, req *model.CreateQuestionRequest) (*model.Question, error) {
	if err := s.requireDraft(ctx, surveyID, authorID); err != nil {
		return nil, err
	}

	qType := model.QuestionType(req.Type)
	if err := validateOptions(qType, req.Options); err != nil {
		return nil, err
	}

	existing, err := s.questionRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	if err := validateFlowRefs(req.Flow, existing, 0); err != nil {
		return nil, err
	}

	q := &model.Question{
		SurveyID:   surveyID,
		OrderIndex: len(existing),
		Type:       qType,
		Prompt:     req.Prompt,
		Options:    req.Options,
		Flow:       req.Flow,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	s.log.Debug().
		Str("survey_id", surveyID.String()).
		Int64("question_id", q.ID).
		Str("type", string(q.Type)).
		Msg("Question created")
	return q, nil
}

// Update modifies a question's prompt, options, and flow config.
func (s *QuestionService) Update(ctx context.Context, surveyID uuid.UUID, questionID int64, authorID int, req *model.UpdateQuestionRequest) (*model.Question, error) {
	if err := s.requireDraft(ctx, surveyID, authorID); err != nil {
		return nil, err
	}

	q, err := s.questionRepo.GetByID(ctx, surveyID, questionID)
	if err != nil {
		return nil, err
	}

	if err := validateOptions(q.Type, req.Options); err != nil {
		return nil, err
	}

	existing, err := s.questionRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if err := validateFlowRefs(req.Flow, existing, questionID); err != nil {
		return nil, err
	}

	q.Prompt = req.Prompt
	q.Options = req.Options
	q.Flow = req.Flow
	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Delete removes a question and repairs the survivors: back-references to the
// deleted question become explicit end-survey markers, and order indexes are
// renumbered to stay contiguous.
func (s *QuestionService) Delete(ctx context.Context, surveyID uuid.UUID, questionID int64, authorID int) error {
	if err := s.requireDraft(ctx, surveyID, authorID); err != nil {
		return err
	}

	questions, err := s.questionRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}

	found := false
	for i := range questions {
		if questions[i].ID == questionID {
			found = true
			break
		}
	}
	if !found {
		return ErrQuestionNotFound
	}

	repaired := repairAfterDelete(questions, questionID)
	if err := s.questionRepo.DeleteWithRepair(ctx, surveyID, questionID, repaired); err != nil {
		return err
	}

	s.log.Debug().
		Str("survey_id", surveyID.String()).
		Int64("question_id", questionID).
		Int("repaired", len(repaired)).
		Msg("Question deleted")
	return nil
}

// Reorder rewrites the survey's question order. ids must be a permutation of
// the survey's question ids.
func (s *QuestionService) Reorder(ctx context.Context, surveyID uuid.UUID, authorID int, ids []int64) error {
	if err := s.requireDraft(ctx, surveyID, authorID); err != nil {
		return err
	}

	questions, err := s.questionRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}

	if len(ids) != len(questions) {
		return ErrBadReorderSet
	}
	known := make(map[int64]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !known[id] || seen[id] {
			return ErrBadReorderSet
		}
		seen[id] = true
	}

	return s.questionRepo.Reorder(ctx, surveyID, ids)
}

// ─── Internals ──────────────────────────────────────────────────────────────

func (s *QuestionService) requireDraft(ctx context.Context, surveyID uuid.UUID, authorID int) error {
	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		return err
	}
	if authorID != 0 && survey.AuthorID != authorID {
		return ErrNotSurveyAuthor
	}
	if survey.Status != model.SurveyStatusDraft {
		return ErrSurveyNotDraft
	}
	return nil
}

// validateOptions checks the option list against the question type.
func validateOptions(t model.QuestionType, options []string) error {
	switch t {
	case model.QuestionTypeSingleChoice, model.QuestionTypeMultipleChoice:
		if len(options) < 2 {
			return ErrOptionsRequired
		}
	default:
		if len(options) > 0 {
			return ErrOptionsForbidden
		}
	}
	return nil
}

// validateFlowRefs ensures every referenced question id exists in the survey
// and that nothing points back at the question being edited (selfID 0 = new
// question, which has no id to point at yet).
func validateFlowRefs(f model.FlowConfig, questions []model.Question, selfID int64) error {
	ids := make(map[int64]bool, len(questions))
	for _, q := range questions {
		ids[q.ID] = true
	}
	for _, ref := range f.References() {
		if selfID != 0 && ref == selfID {
			return ErrSelfReference
		}
		if !ids[ref] {
			return ErrFlowTargetMissing
		}
	}
	return nil
}

// repairAfterDelete computes the surviving question set after removing
// deletedID: dangling references become explicit end-survey markers and order
// indexes are renumbered contiguously from zero.
func repairAfterDelete(questions []model.Question, deletedID int64) []model.Question {
	var repaired []model.Question
	next := 0
	for _, q := range questions {
		if q.ID == deletedID {
			continue
		}
		q.OrderIndex = next
		next++
		q.Flow = scrubReference(q.Flow, deletedID)
		repaired = append(repaired, q)
	}
	return repaired
}

// scrubReference rewrites any branch pointing at deletedID into an explicit
// end-survey branch. Deleting the entry instead would silently change the
// answer's routing to the fallback chain.
func scrubReference(f model.FlowConfig, deletedID int64) model.FlowConfig {
	if f.DefaultNext.Defined && f.DefaultNext.Target != nil && *f.DefaultNext.Target == deletedID {
		f.DefaultNext = model.NextEnd()
	}

	if len(f.OptionNext) > 0 {
		scrubbed := make(map[int]*int64, len(f.OptionNext))
		for key, target := range f.OptionNext {
			if target != nil && *target == deletedID {
				scrubbed[key] = nil
				continue
			}
			scrubbed[key] = target
		}
		f.OptionNext = scrubbed
	}

	if len(f.Conditionals) > 0 {
		scrubbed := make([]model.Conditional, len(f.Conditionals))
		copy(scrubbed, f.Conditionals)
		for i := range scrubbed {
			if scrubbed[i].Next != nil && *scrubbed[i].Next == deletedID {
				scrubbed[i].Next = nil
			}
		}
		f.Conditionals = scrubbed
	}

	return f
}
