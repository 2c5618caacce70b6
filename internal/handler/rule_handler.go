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

// RuleHandler handles branching rule endpoints.
type RuleHandler struct {
	ruleService *service.RuleService
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleService *service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// ListRules godoc
// GET /api/v1/admin/surveys/:survey_id/questions/:question_id/rules
// Lists the branching rules derived from a question's flow config.
func (h *RuleHandler) ListRules(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}
	questionID, ok := parseQuestionID(c)
	if !ok {
		return
	}

	rules, err := h.ruleService.List(c.Request.Context(), surveyID, questionID)
	if err != nil {
		failRuleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rules": rules})
}

// CreateRule godoc
// POST /api/v1/admin/surveys/:survey_id/questions/:question_id/rules
// Validates and attaches a branching rule to a draft survey's question.
func (h *RuleHandler) CreateRule(c *gin.Context) {
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

	var req model.CreateRuleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rule, err := h.ruleService.Create(c.Request.Context(), surveyID, questionID, claims.UserID, &req)
	if err != nil {
		failRuleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"rule": rule})
}

// UpdateRule godoc
// PATCH /api/v1/admin/surveys/:survey_id/questions/:question_id/rules/:target_id
// Patches the rule identified by source and target question.
func (h *RuleHandler) UpdateRule(c *gin.Context) {
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
	targetID, ok := parseTargetID(c)
	if !ok {
		return
	}

	var req model.UpdateRuleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rule, err := h.ruleService.Update(c.Request.Context(), surveyID, questionID, targetID, claims.UserID, &req)
	if err != nil {
		failRuleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rule": rule})
}

// DeleteRule godoc
// DELETE /api/v1/admin/surveys/:survey_id/questions/:question_id/rules/:target_id
// Removes every branch on the source question pointing at the target.
func (h *RuleHandler) DeleteRule(c *gin.Context) {
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
	targetID, ok := parseTargetID(c)
	if !ok {
		return
	}

	if err := h.ruleService.Delete(c.Request.Context(), surveyID, questionID, targetID, claims.UserID); err != nil {
		failRuleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "rule deleted successfully"})
}

// PreviewResolve godoc
// POST /api/v1/admin/surveys/:survey_id/resolve-next
// Resolves the next question for a hypothetical answer without recording it.
// Works on drafts, so authors can walk the flow before publishing.
func (h *RuleHandler) PreviewResolve(c *gin.Context) {
	surveyID, ok := parseSurveyID(c)
	if !ok {
		return
	}

	var req model.ResolveNextRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resolution, err := h.ruleService.PreviewNextForAnswer(c.Request.Context(), surveyID, req.QuestionID, req.Answer)
	if err != nil {
		failRuleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"resolution": resolution})
}

// ─── Shared helpers ─────────────────────────────────────────────────────────

func parseTargetID(c *gin.Context) (int64, bool) {
	targetID, err := strconv.ParseInt(c.Param("target_id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return targetID, true
}

// failRuleError maps branching rule errors onto HTTP statuses.
func failRuleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrRuleNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrRuleNotFound)
	case errors.Is(err, service.ErrSurveyNotPublished):
		response.Fail(c, http.StatusNotFound, response.ErrSurveyNotPublished)
	case errors.Is(err, service.ErrNotSurveyAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotSurveyAuthor)
	case errors.Is(err, service.ErrSurveyNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrSurveyNotDraft)
	case errors.Is(err, service.ErrSelfReference):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrSelfReference)
	case errors.Is(err, service.ErrTargetNotFound):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrTargetNotFound)
	case errors.Is(err, service.ErrSourceNotBranching):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrSourceNotBranching)
	case errors.Is(err, service.ErrConditionMismatch):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrConditionMismatch)
	case errors.Is(err, service.ErrValueNotOption):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrValueNotOption)
	case errors.Is(err, service.ErrBadExpression):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrBadExpression)
	case errors.Is(err, service.ErrAnswerOutOfRange):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrAnswerOutOfRange)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
