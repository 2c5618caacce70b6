package model

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// QuestionType determines which flow-control shape applies to a question.
type QuestionType string

const (
	QuestionTypeText           QuestionType = "TEXT"
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeRating         QuestionType = "RATING"
)

// RatingMax is the highest star value on the rating scale. Rating answers are
// 1..RatingMax; branch keys are (stars - 1), i.e. 0..RatingMax-1.
const RatingMax = 5

// SupportsOptionBranching reports whether the type allows explicit per-value
// branching. Only single-choice and rating questions do; text and
// multiple-choice questions branch uniformly through their default next.
func (t QuestionType) SupportsOptionBranching() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeRating
}

// Question represents a single survey question.
type Question struct {
	ID         int64        `json:"id"`
	SurveyID   uuid.UUID    `json:"survey_id"`
	OrderIndex int          `json:"order_index"`
	Type       QuestionType `json:"type"`
	// Prompt is the rich-text (HTML) body of the question. Opaque to flow
	// resolution; carried as-is.
	Prompt  string     `json:"prompt"`
	Options []string   `json:"options,omitempty"`
	Flow    FlowConfig `json:"flow"`
}

// NextRef is a tri-state reference to a next question:
//   - not defined (absent in JSON): fall through to sequential order
//   - defined with nil target (JSON null): end the survey
//   - defined with a target: continue to that question
//
// The distinction between "absent" and "explicit null" is load-bearing, which
// is why this is not a plain *int64.
type NextRef struct {
	Defined bool
	Target  *int64
}

// NextTo builds a defined reference to a question id.
func NextTo(id int64) NextRef {
	return NextRef{Defined: true, Target: &id}
}

// NextEnd builds a defined end-survey reference.
func NextEnd() NextRef {
	return NextRef{Defined: true}
}

// IsZero reports whether the reference is undefined. Lets `omitzero` drop the
// field from JSON so absence round-trips.
func (r NextRef) IsZero() bool {
	return !r.Defined
}

func (r NextRef) MarshalJSON() ([]byte, error) {
	if r.Target == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*r.Target)
}

func (r *NextRef) UnmarshalJSON(data []byte) error {
	r.Defined = true
	if string(data) == "null" {
		r.Target = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("next reference: %w", err)
	}
	r.Target = &id
	return nil
}

// Conditional is an expression-guarded branch. The expression is an
// expr-lang boolean over the environment {"answer": <answer value>}.
// A nil Next ends the survey when the expression matches.
type Conditional struct {
	Expr string `json:"expr"`
	Next *int64 `json:"next"`
}

// FlowConfig is the canonical flow-control configuration embedded in a
// question. Branching rules are a validation/translation façade over this
// structure, never a second source of truth.
type FlowConfig struct {
	// DefaultNext applies when no explicit branch matches the answer.
	DefaultNext NextRef `json:"default_next,omitzero"`
	// OptionNext maps a branch key to a next question (nil = end survey).
	// Key is the option index for SINGLE_CHOICE, stars-1 for RATING.
	// Absent keys fall back to DefaultNext, then sequential order.
	OptionNext map[int]*int64 `json:"option_next,omitempty"`
	// Conditionals are checked before OptionNext, in order.
	Conditionals []Conditional `json:"conditionals,omitempty"`
}

// References returns every question id the config points at.
// Used for edit-time integrity checks and reference repair: these are
// back-references, so a deleted target must be nulled here, never left
// dangling.
func (f FlowConfig) References() []int64 {
	var refs []int64
	if f.DefaultNext.Defined && f.DefaultNext.Target != nil {
		refs = append(refs, *f.DefaultNext.Target)
	}
	for _, target := range f.OptionNext {
		if target != nil {
			refs = append(refs, *target)
		}
	}
	for _, c := range f.Conditionals {
		if c.Next != nil {
			refs = append(refs, *c.Next)
		}
	}
	return refs
}

// CreateQuestionRequest is the payload for adding a question to a survey.
type CreateQuestionRequest struct {
	Type    string     `json:"type" binding:"required,oneof=TEXT SINGLE_CHOICE MULTIPLE_CHOICE RATING"`
	Prompt  string     `json:"prompt" binding:"required,min=1,max=10000"`
	Options []string   `json:"options" binding:"omitempty,max=50,dive,min=1,max=500"`
	Flow    FlowConfig `json:"flow"`
}

// UpdateQuestionRequest is the payload for updating a question.
type UpdateQuestionRequest struct {
	Prompt  string     `json:"prompt" binding:"required,min=1,max=10000"`
	Options []string   `json:"options" binding:"omitempty,max=50,dive,min=1,max=500"`
	Flow    FlowConfig `json:"flow"`
}

// ReorderQuestionsRequest is the payload for reordering a survey's questions.
// IDs must be a permutation of the survey's question ids.
type ReorderQuestionsRequest struct {
	QuestionIDs []int64 `json:"question_ids" binding:"required,min=1"`
}
