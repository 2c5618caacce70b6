// Package flow implements the question-flow engine: per-answer next-step
// resolution, publish-time graph validation, and the read-only flow overview.
// Everything here is a pure computation over an in-memory question set; the
// services own loading and persistence.
package flow

import (
	"github.com/expr-lang/expr"
	"github.com/formlio/surveybot-backend/internal/model"
)

// StepKind discriminates the outcome of resolving one answer.
type StepKind int

const (
	// StepContinue advances to NextStep.TargetID.
	StepContinue StepKind = iota
	// StepEndSurvey terminates the survey.
	StepEndSurvey
	// StepSequential defers to order: the question at orderIndex+1, or the
	// end of the survey if none exists.
	StepSequential
)

// NextStep is the resolved transition for one question and one answer.
type NextStep struct {
	Kind     StepKind
	TargetID int64 // set only for StepContinue
}

// A strategy inspects a question and an answer and either claims the
// transition or defers to the next strategy in the chain.
type strategy func(q *model.Question, answer any) (NextStep, bool)

// The fallback chain is an explicit, ordered contract:
// expression conditionals → per-option branch → default next → sequential.
var chain = []strategy{
	matchConditionals,
	matchOptionBranch,
	matchDefault,
}

// ResolveNext computes the next step for an answer to a question. It never
// fails: an answer that matches no configured branch (a stale option after an
// edit, a non-boolean expression result) degrades down the chain rather than
// erroring, so survey-taking cannot dead-end on a configuration mismatch.
//
// The answer is the decoded JSON value: string for text/single-choice,
// a number for rating, []any of strings for multiple-choice.
func ResolveNext(q *model.Question, answer any) NextStep {
	for _, s := range chain {
		if step, ok := s(q, answer); ok {
			return step
		}
	}
	return NextStep{Kind: StepSequential}
}

// ResolveInSurvey resolves an answer fully, translating StepSequential
// against the survey's question order. Returns the next question id, or
// (nil, true) when the survey is complete.
func ResolveInSurvey(questions []model.Question, q *model.Question, answer any) (*int64, bool) {
	step := ResolveNext(q, answer)
	switch step.Kind {
	case StepContinue:
		id := step.TargetID
		return &id, false
	case StepEndSurvey:
		return nil, true
	default:
		if next := successorOf(questions, q.OrderIndex); next != nil {
			return &next.ID, false
		}
		return nil, true
	}
}

func matchConditionals(q *model.Question, answer any) (NextStep, bool) {
	for _, cond := range q.Flow.Conditionals {
		if !evalConditional(cond.Expr, answer) {
			continue
		}
		if cond.Next == nil {
			return NextStep{Kind: StepEndSurvey}, true
		}
		return NextStep{Kind: StepContinue, TargetID: *cond.Next}, true
	}
	return NextStep{}, false
}

func matchOptionBranch(q *model.Question, answer any) (NextStep, bool) {
	key, ok := branchKey(q, answer)
	if !ok {
		return NextStep{}, false
	}
	target, ok := q.Flow.OptionNext[key]
	if !ok {
		return NextStep{}, false
	}
	if target == nil {
		return NextStep{Kind: StepEndSurvey}, true
	}
	return NextStep{Kind: StepContinue, TargetID: *target}, true
}

func matchDefault(q *model.Question, answer any) (NextStep, bool) {
	if !q.Flow.DefaultNext.Defined {
		return NextStep{}, false
	}
	if q.Flow.DefaultNext.Target == nil {
		return NextStep{Kind: StepEndSurvey}, true
	}
	return NextStep{Kind: StepContinue, TargetID: *q.Flow.DefaultNext.Target}, true
}

// branchKey maps an answer to its option-branch key: the option index for
// single-choice (exact, case-sensitive match against option text) or
// stars-1 for rating. Text and multiple-choice questions never match.
func branchKey(q *model.Question, answer any) (int, bool) {
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		value, ok := answer.(string)
		if !ok {
			return 0, false
		}
		for i, opt := range q.Options {
			if opt == value {
				return i, true
			}
		}
		return 0, false
	case model.QuestionTypeRating:
		stars, ok := ratingValue(answer)
		if !ok || stars < 1 || stars > model.RatingMax {
			return 0, false
		}
		return stars - 1, true
	default:
		return 0, false
	}
}

// ratingValue coerces a decoded JSON answer into a star count.
func ratingValue(answer any) (int, bool) {
	switch v := answer.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// evalConditional runs a boolean expr-lang expression against the answer.
// Any compile or runtime failure counts as "no match" — the resolver must
// degrade, never propagate.
func evalConditional(source string, answer any) bool {
	env := map[string]any{"answer": answer}
	program, err := expr.Compile(source, expr.Env(env), expr.AsBool())
	if err != nil {
		return false
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	matched, ok := out.(bool)
	return ok && matched
}

func successorOf(questions []model.Question, orderIndex int) *model.Question {
	for i := range questions {
		if questions[i].OrderIndex == orderIndex+1 {
			return &questions[i]
		}
	}
	return nil
}
