package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/formlio/surveybot-backend/internal/middleware"
	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/formlio/surveybot-backend/internal/response"
	"github.com/formlio/surveybot-backend/internal/service"
	"github.com/formlio/surveybot-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// QuestionHandler handles question management endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListQuestions godoc
// GET /api/v1/admin/surveys/:survey_id/questions
// Lists a survey's questions in flow order.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	questions, err := h.questionService.ListBySurvey(c.Request.Context(), surveyID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetQuestion godoc
// GET /api/v1/admin/surveys/:survey_id/questions/:question_id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}
	questionID, ok := parseQuestionID(c)
	if !ok {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), surveyID, questionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// CreateQuestion godoc
// POST /api/v1/admin/surveys/:survey_id/questions
// Appends a question to a draft survey at the next order index.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), surveyID, claims.UserID, &req)
	if err != nil {
		failQuestionError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// UpdateQuestion godoc
// PUT /api/v1/admin/surveys/:survey_id/questions/:question_id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}
	questionID, ok := parseQuestionID(c)
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), surveyID, questionID, claims.UserID, &req)
	if err != nil {
		failQuestionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/surveys/:survey_id/questions/:question_id
// Deletes a question; surviving back-references become end-survey markers and
// order indexes are renumbered.
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}
	questionID, ok := parseQuestionID(c)
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), surveyID, questionID, claims.UserID); err != nil {
		failQuestionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "question deleted successfully"})
}

// ReorderQuestions godoc
// PUT /api/v1/admin/surveys/:survey_id/questions/order
// Rewrites the survey's question order from a full permutation of ids.
func (h *QuestionHandler) ReorderQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	var req model.ReorderQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.questionService.Reorder(c.Request.Context(), surveyID, claims.UserID, req.QuestionIDs); err != nil {
		failQuestionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "questions reordered successfully"})
}

// ─── Shared helpers ─────────────────────────────────────────────────────────

func parseQuestionID(c *gin.Context) (int64, bool) {
	questionID, err := strconv.ParseInt(c.Param("question_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return questionID, true
}

// failQuestionError maps question editing errors onto HTTP statuses.
func failQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSurveyAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotSurveyAuthor)
	case errors.Is(err, service.ErrSurveyNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrSurveyNotDraft)
	case errors.Is(err, service.ErrFlowTargetMissing):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrTargetNotFound)
	case errors.Is(err, service.ErrSelfReference):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrSelfReference)
	case errors.Is(err, service.ErrBadReorderSet),
		errors.Is(err, service.ErrOptionsRequired),
		errors.Is(err, service.ErrOptionsForbidden):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrValidation)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
