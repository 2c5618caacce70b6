package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ResponseAnswer is a single respondent answer to a question, persisted by
// the answer ingest worker.
type ResponseAnswer struct {
	ID           int64           `json:"id"`
	SurveyID     uuid.UUID       `json:"survey_id"`
	QuestionID   int64           `json:"question_id"`
	RespondentID string          `json:"respondent_id"`
	Answer       json.RawMessage `json:"answer"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SubmitAnswerRequest is the payload the bot runtime posts per answered
// question. Answer is the raw answer value: a string for text and
// single-choice, an integer for rating, an array of strings for
// multiple-choice.
type SubmitAnswerRequest struct {
	RespondentID string          `json:"respondent_id" binding:"required,min=1,max=128"`
	QuestionID   int64           `json:"question_id" binding:"required"`
	Answer       json.RawMessage `json:"answer" binding:"required"`
}

// ResolveNextRequest is the payload for a preview/next-step resolution
// without recording the answer.
type ResolveNextRequest struct {
	QuestionID int64           `json:"question_id" binding:"required"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
}
