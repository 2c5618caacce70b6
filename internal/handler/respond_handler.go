package handler

import (
	"errors"
	"net/http"

	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/formlio/surveybot-backend/internal/response"
	"github.com/formlio/surveybot-backend/internal/service"
	"github.com/formlio/surveybot-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// RespondHandler handles the public survey-taking endpoints used by the bot
// runtime. Reads are served from the Redis flow snapshot; answer writes go
// through the persist queue, never straight to PostgreSQL.
type RespondHandler struct {
	surveyService *service.SurveyService
	ruleService   *service.RuleService
	answerService *service.AnswerService
}

// NewRespondHandler creates a new RespondHandler.
func NewRespondHandler(
	surveyService *service.SurveyService,
	ruleService *service.RuleService,
	answerService *service.AnswerService,
) *RespondHandler {
	return &RespondHandler{
		surveyService: surveyService,
		ruleService:   ruleService,
		answerService: answerService,
	}
}

// StartSurvey godoc
// GET /api/v1/respond/:survey_id/start
// Returns the entry question of a published survey.
func (h *RespondHandler) StartSurvey(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	questions, err := h.surveyService.GetFlowSnapshot(c.Request.Context(), surveyID)
	if err != nil {
		if errors.Is(err, service.ErrSurveyNotPublished) {
			response.Fail(c, http.StatusNotFound, response.ErrSurveyNotPublished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	var first *model.Question
	for i := range questions {
		if questions[i].OrderIndex == 0 {
			first = &questions[i]
			break
		}
	}
	if first == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question":        first,
		"total_questions": len(questions),
	})
}

// GetQuestion godoc
// GET /api/v1/respond/:survey_id/questions/:question_id
// Returns one question from the published snapshot, for rendering after a
// resolution step.
func (h *RespondHandler) GetQuestion(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}
	questionID, ok := parseQuestionID(c)
	if !ok {
		return
	}

	questions, err := h.surveyService.GetFlowSnapshot(c.Request.Context(), surveyID)
	if err != nil {
		if errors.Is(err, service.ErrSurveyNotPublished) {
			response.Fail(c, http.StatusNotFound, response.ErrSurveyNotPublished)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	for i := range questions {
		if questions[i].ID == questionID {
			response.Success(c, http.StatusOK, gin.H{"question": &questions[i]})
			return
		}
	}
	response.Fail(c, http.StatusNotFound, response.ErrNotFound)
}

// ResolveNext godoc
// POST /api/v1/respond/:survey_id/next
// Resolves the follow-up question for an answer without recording it.
func (h *RespondHandler) ResolveNext(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	var req model.ResolveNextRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resolution, err := h.ruleService.ResolveNextForAnswer(c.Request.Context(), surveyID, req.QuestionID, req.Answer)
	if err != nil {
		failRuleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"resolution": resolution})
}

// SubmitAnswer godoc
// POST /api/v1/respond/:survey_id/answers
// Records an answer and resolves the follow-up question in one round trip.
// The answer is queued for background persistence; the resolution is computed
// from the snapshot so the hot path stays in Redis.
func (h *RespondHandler) SubmitAnswer(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// Resolve first: an out-of-range answer must be rejected, not stored.
	resolution, err := h.ruleService.ResolveNextForAnswer(c.Request.Context(), surveyID, req.QuestionID, req.Answer)
	if err != nil {
		failRuleError(c, err)
		return
	}

	answer := &model.ResponseAnswer{
		SurveyID:     surveyID,
		QuestionID:   req.QuestionID,
		RespondentID: req.RespondentID,
		Answer:       req.Answer,
	}
	if err := h.answerService.Enqueue(c.Request.Context(), answer); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"resolution": resolution})
}
