package model

import (
	"time"

	"github.com/google/uuid"
)

// SurveyStatus enumerates the possible states of a survey.
type SurveyStatus string

const (
	SurveyStatusDraft     SurveyStatus = "DRAFT"
	SurveyStatusPublished SurveyStatus = "PUBLISHED"
	SurveyStatusClosed    SurveyStatus = "CLOSED"
)

// Survey represents a survey entity. It owns its questions: deleting a
// survey cascades to them.
type Survey struct {
	ID        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	AuthorID  int          `json:"author_id"`
	Status    SurveyStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CreateSurveyRequest is the payload for creating a new survey.
type CreateSurveyRequest struct {
	Title string `json:"title" binding:"required,min=3,max=255"`
}

// UpdateSurveyRequest is the payload for updating a draft survey.
type UpdateSurveyRequest struct {
	Title string `json:"title" binding:"required,min=3,max=255"`
}
