package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/formlio/surveybot-backend/internal/config"
	"github.com/formlio/surveybot-backend/internal/flow"
	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/formlio/surveybot-backend/internal/repository"
	"github.com/formlio/surveybot-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrNotSurveyAuthor    = errors.New("not the author of this survey")
	ErrNoQuestions        = errors.New("survey has no questions, cannot publish")
	ErrSurveyNotDraft     = errors.New("survey status is not DRAFT")
	ErrSurveyNotPublished = errors.New("survey status is not PUBLISHED")
	ErrFlowInvalid        = errors.New("survey flow graph is invalid")
)

// SurveyService handles survey lifecycle, flow validation, and Redis caching.
type SurveyService struct {
	surveyRepo   *repository.SurveyRepository
	questionRepo *repository.QuestionRepository
	responseRepo *repository.ResponseRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewSurveyService creates a new SurveyService.
func NewSurveyService(
	surveyRepo *repository.SurveyRepository,
	questionRepo *repository.QuestionRepository,
	responseRepo *repository.ResponseRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *SurveyService {
	return &SurveyService{
		surveyRepo:   surveyRepo,
		questionRepo: questionRepo,
		responseRepo: responseRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "survey_service").Logger(),
	}
}

// GetByID retrieves a survey by its UUID.
func (s *SurveyService) GetByID(ctx context.Context, id uuid.UUID) (*model.Survey, error) {
	return s.surveyRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves surveys, filtered by author if authorID is non-zero.
func (s *SurveyService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Survey, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	surveys, total, err := s.surveyRepo.ListByAuthorPaginated(ctx, authorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if surveys == nil {
		surveys = []model.Survey{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return surveys, pagination, nil
}

// Create inserts a new survey as DRAFT.
func (s *SurveyService) Create(ctx context.Context, survey *model.Survey) error {
	survey.Status = model.SurveyStatusDraft
	return s.surveyRepo.Create(ctx, survey)
}

// Update modifies an existing draft survey.
func (s *SurveyService) Update(ctx context.Context, authorID int, survey *model.Survey) error {
	existing, err := s.surveyRepo.GetByID(ctx, survey.ID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotSurveyAuthor
	}
	if existing.Status != model.SurveyStatusDraft {
		return ErrSurveyNotDraft
	}
	return s.surveyRepo.Update(ctx, survey)
}

// Delete removes a draft survey.
func (s *SurveyService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotSurveyAuthor
	}
	if existing.Status != model.SurveyStatusDraft {
		return ErrSurveyNotDraft
	}
	return s.surveyRepo.Delete(ctx, id)
}

// ValidateFlow runs structural validation on a survey's flow graph without
// changing its status. The report is data, not an error: orphans are warnings,
// inescapable cycles make Valid false.
func (s *SurveyService) ValidateFlow(ctx context.Context, surveyID uuid.UUID) (*flow.Report, error) {
	questions, err := s.questionRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return flow.ValidateGraph(questions), nil
}

// FlowOverview builds the admin-facing branch projection for a survey.
func (s *SurveyService) FlowOverview(ctx context.Context, surveyID uuid.UUID) ([]flow.QuestionFlow, error) {
	questions, err := s.questionRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return flow.BuildOverview(questions), nil
}

// Publish validates the flow graph, warms the Redis snapshot, and changes the
// survey status to PUBLISHED. On structural failure the report is returned
// alongside ErrFlowInvalid so the caller can surface cycle details. On success
// the report is still returned so orphan warnings reach the author.
func (s *SurveyService) Publish(ctx context.Context, surveyID uuid.UUID, authorID int) (*flow.Report, error) {
	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}

	if authorID != 0 && survey.AuthorID != authorID {
		return nil, ErrNotSurveyAuthor
	}
	if survey.Status != model.SurveyStatusDraft {
		return nil, ErrSurveyNotDraft
	}

	questions, err := s.questionRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	report := flow.ValidateGraph(questions)
	if !report.Valid {
		return report, ErrFlowInvalid
	}

	// Prewarm the flow snapshot so respondent traffic never touches PostgreSQL.
	if err := s.warmFlowCache(ctx, survey, questions); err != nil {
		return nil, err
	}

	if err := s.surveyRepo.UpdateStatus(ctx, surveyID, model.SurveyStatusPublished); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.log.Info().
		Str("survey_id", surveyID.String()).
		Int("questions", len(questions)).
		Int("orphans", len(report.OrphanQuestionIDs)).
		Msg("Survey published")
	return report, nil
}

// Close changes a published survey to CLOSED and drops its Redis snapshot.
func (s *SurveyService) Close(ctx context.Context, surveyID uuid.UUID, authorID int) error {
	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		return err
	}
	if authorID != 0 && survey.AuthorID != authorID {
		return ErrNotSurveyAuthor
	}
	if survey.Status != model.SurveyStatusPublished {
		return ErrSurveyNotPublished
	}

	if err := s.surveyRepo.UpdateStatus(ctx, surveyID, model.SurveyStatusClosed); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.SurveyFlowKey(surveyID.String()))
	pipe.Del(ctx, config.CacheKey.SurveyMetaKey(surveyID.String()))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("survey_id", surveyID.String()).Msg("Failed to drop flow snapshot")
	}

	s.log.Info().Str("survey_id", surveyID.String()).Msg("Survey closed")
	return nil
}

// PrewarmAllCaches loads all published surveys into Redis on application startup.
func (s *SurveyService) PrewarmAllCaches(ctx context.Context) error {
	surveys, err := s.surveyRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published surveys: %w", err)
	}

	if len(surveys) == 0 {
		s.log.Info().Msg("No published surveys to prewarm")
		return nil
	}

	warmed := 0
	for i := range surveys {
		questions, err := s.questionRepo.ListBySurvey(ctx, surveys[i].ID)
		if err != nil || len(questions) == 0 {
			s.log.Warn().
				Err(err).
				Str("survey_id", surveys[i].ID.String()).
				Msg("Failed to warm survey, skipping")
			continue
		}
		if err := s.warmFlowCache(ctx, &surveys[i], questions); err != nil {
			s.log.Warn().
				Err(err).
				Str("survey_id", surveys[i].ID.String()).
				Msg("Failed to warm survey, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(surveys)).
		Msg("Prewarming complete")
	return nil
}

// GetFlowSnapshot retrieves the cached question list for a published survey.
// Returns redis.Nil wrapped errors when no snapshot exists.
func (s *SurveyService) GetFlowSnapshot(ctx context.Context, surveyID uuid.UUID) ([]model.Question, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.SurveyFlowKey(surveyID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSurveyNotPublished
		}
		return nil, fmt.Errorf("get flow snapshot: %w", err)
	}

	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal flow snapshot: %w", err)
	}
	return questions, nil
}

// ListAnswers retrieves stored respondent answers for a survey.
func (s *SurveyService) ListAnswers(ctx context.Context, surveyID uuid.UUID, page, perPage int) ([]model.ResponseAnswer, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 200 {
		perPage = 200
	}

	answers, total, err := s.responseRepo.ListBySurveyPaginated(ctx, surveyID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if answers == nil {
		answers = []model.ResponseAnswer{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return answers, pagination, nil
}

// warmFlowCache writes the ordered question list and survey metadata into Redis.
func (s *SurveyService) warmFlowCache(ctx context.Context, survey *model.Survey, questions []model.Question) error {
	flowJSON, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("marshal flow snapshot: %w", err)
	}

	meta := map[string]interface{}{
		"title":     survey.Title,
		"questions": len(questions),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal survey meta: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.SurveyFlowKey(survey.ID.String()), flowJSON, 0)
	pipe.Set(ctx, config.CacheKey.SurveyMetaKey(survey.ID.String()), metaJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("survey_id", survey.ID.String()).
		Int("questions", len(questions)).
		Msg("Flow snapshot warmed")
	return nil
}
