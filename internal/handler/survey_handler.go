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
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SurveyHandler handles survey management endpoints.
type SurveyHandler struct {
	surveyService *service.SurveyService
}

// NewSurveyHandler creates a new SurveyHandler.
func NewSurveyHandler(surveyService *service.SurveyService) *SurveyHandler {
	return &SurveyHandler{surveyService: surveyService}
}

// ListSurveys godoc
// GET /api/v1/admin/surveys
// Lists the authenticated admin's surveys with pagination.
func (h *SurveyHandler) ListSurveys(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	surveys, pagination, err := h.surveyService.ListByAuthor(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"surveys": surveys}, pagination)
}

// CreateSurvey godoc
// POST /api/v1/admin/surveys
// Creates a new draft survey.
func (h *SurveyHandler) CreateSurvey(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateSurveyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	survey := &model.Survey{
		Title:    req.Title,
		AuthorID: claims.UserID,
	}

	if err := h.surveyService.Create(c.Request.Context(), survey); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"survey": survey})
}

// GetSurvey godoc
// GET /api/v1/admin/surveys/:survey_id
func (h *SurveyHandler) GetSurvey(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	survey, err := h.surveyService.GetByID(c.Request.Context(), surveyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"survey": survey})
}

// UpdateSurvey godoc
// PUT /api/v1/admin/surveys/:survey_id
// Updates a draft survey's title.
func (h *SurveyHandler) UpdateSurvey(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	var req model.UpdateSurveyRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	survey := &model.Survey{ID: surveyID, Title: req.Title}
	if err := h.surveyService.Update(c.Request.Context(), claims.UserID, survey); err != nil {
		failSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"survey": survey})
}

// DeleteSurvey godoc
// DELETE /api/v1/admin/surveys/:survey_id
func (h *SurveyHandler) DeleteSurvey(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	if err := h.surveyService.Delete(c.Request.Context(), surveyID, claims.UserID); err != nil {
		failSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "survey deleted successfully"})
}

// PublishSurvey godoc
// POST /api/v1/admin/surveys/:survey_id/publish
// Validates the flow graph, warms the Redis snapshot, and opens the survey to
// respondents. A structurally invalid graph returns 422 with the validation
// report as data; on success the report still carries orphan warnings.
func (h *SurveyHandler) PublishSurvey(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	report, err := h.surveyService.Publish(c.Request.Context(), surveyID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrFlowInvalid) {
			response.FailWithData(c, http.StatusUnprocessableEntity, response.ErrFlowInvalid, gin.H{"report": report})
			return
		}
		if errors.Is(err, service.ErrNoQuestions) {
			response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
			return
		}
		failSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}

// CloseSurvey godoc
// POST /api/v1/admin/surveys/:survey_id/close
func (h *SurveyHandler) CloseSurvey(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	if err := h.surveyService.Close(c.Request.Context(), surveyID, claims.UserID); err != nil {
		failSurveyError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "survey closed successfully"})
}

// ValidateFlow godoc
// GET /api/v1/admin/surveys/:survey_id/flow/validate
// Runs structural validation without changing survey status. Always 200: the
// report is the result, Valid false included.
func (h *SurveyHandler) ValidateFlow(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	report, err := h.surveyService.ValidateFlow(c.Request.Context(), surveyID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}

// FlowOverview godoc
// GET /api/v1/admin/surveys/:survey_id/flow/overview
// Returns the per-question branch projection for the flow editor.
func (h *SurveyHandler) FlowOverview(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	overview, err := h.surveyService.FlowOverview(c.Request.Context(), surveyID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": overview})
}

// ListAnswers godoc
// GET /api/v1/admin/surveys/:survey_id/answers
// Returns stored respondent answers with pagination.
func (h *SurveyHandler) ListAnswers(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	answers, pagination, err := h.surveyService.ListAnswers(c.Request.Context(), surveyID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"answers": answers}, pagination)
}

// ─── Shared helpers ─────────────────────────────────────────────────────────

func parseSurveyID(c *gin.Context) (uuid.UUID, bool) {
	surveyID, err := uuid.Parse(c.Param("survey_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return surveyID, true
}

// failSurveyError maps survey lifecycle errors onto HTTP statuses.
func failSurveyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSurveyAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotSurveyAuthor)
	case errors.Is(err, service.ErrSurveyNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrSurveyNotDraft)
	case errors.Is(err, service.ErrSurveyNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrSurveyNotPublished)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
