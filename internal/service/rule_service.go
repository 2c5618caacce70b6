package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/formlio/surveybot-backend/internal/flow"
	"github.com/formlio/surveybot-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Domain Errors
var (
	ErrSelfReference      = errors.New("rule targets its own source question")
	ErrTargetNotFound     = errors.New("rule target question not found in this survey")
	ErrRuleNotFound       = errors.New("no rule for that source and target")
	ErrSourceNotBranching = errors.New("question type does not support per-value branching")
	ErrConditionMismatch  = errors.New("condition operator and values do not fit the question type")
	ErrValueNotOption     = errors.New("condition value is not an option of the source question")
	ErrBadExpression      = errors.New("condition expression does not compile to a boolean")
	ErrAnswerOutOfRange   = errors.New("answer value is outside the question's accepted range")
)

// ruleSurveyStore is the slice of SurveyRepository the rule service needs.
type ruleSurveyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Survey, error)
}

// ruleQuestionStore is the slice of QuestionRepository the rule service needs.
type ruleQuestionStore interface {
	ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]model.Question, error)
	UpdateFlow(ctx context.Context, surveyID uuid.UUID, questionID int64, flow model.FlowConfig) error
}

// flowSnapshotStore serves the published question set from cache.
type flowSnapshotStore interface {
	GetFlowSnapshot(ctx context.Context, surveyID uuid.UUID) ([]model.Question, error)
}

// RuleService exposes branching rules as a normalized CRUD surface. Rules are
// a façade: every mutation validates against the survey's question set and is
// applied to the source question's embedded flow config, which stays the only
// source of truth. Listing derives rules back out of the same config, so the
// two views cannot drift.
type RuleService struct {
	surveys   ruleSurveyStore
	questions ruleQuestionStore
	snapshots flowSnapshotStore
	log       zerolog.Logger
}

// NewRuleService creates a new RuleService.
func NewRuleService(
	surveys ruleSurveyStore,
	questions ruleQuestionStore,
	snapshots flowSnapshotStore,
	log zerolog.Logger,
) *RuleService {
	return &RuleService{
		surveys:   surveys,
		questions: questions,
		snapshots: snapshots,
		log:       log.With().Str("component", "rule_service").Logger(),
	}
}

// List derives the branching rules configured on a question. Per-option
// branches pointing at the same target collapse into one Equals or In rule;
// expression conditionals surface as Expr rules. End-survey branches have no
// target question and therefore no rule representation.
func (s *RuleService) List(ctx context.Context, surveyID uuid.UUID, questionID int64) ([]model.BranchingRule, error) {
	questions, err := s.questions.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	q := findQuestion(questions, questionID)
	if q == nil {
		return nil, ErrQuestionNotFound
	}
	return deriveRules(q), nil
}

// Create validates and attaches a branching rule, rewriting the source
// question's flow config in one atomic update. Later rules win conflicts on
// the same answer value.
func (s *RuleService) Create(ctx context.Context, surveyID uuid.UUID, questionID int64, authorID int, req *model.CreateRuleRequest) (*model.BranchingRule, error) {
	questions, err := s.requireDraftQuestions(ctx, surveyID, authorID)
	if err != nil {
		return nil, err
	}
	q := findQuestion(questions, questionID)
	if q == nil {
		return nil, ErrQuestionNotFound
	}

	rule := model.BranchingRule{
		SourceQuestionID: questionID,
		TargetQuestionID: req.TargetQuestionID,
		Condition: model.RuleCondition{
			Operator: model.ConditionOperator(req.Operator),
			Values:   []string(req.Values),
		},
	}

	updated, err := applyRule(q, questions, rule)
	if err != nil {
		return nil, err
	}

	if err := s.questions.UpdateFlow(ctx, surveyID, questionID, updated); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("survey_id", surveyID.String()).
		Int64("source", questionID).
		Int64("target", rule.TargetQuestionID).
		Str("operator", string(rule.Condition.Operator)).
		Msg("Rule created")
	return &rule, nil
}

// Update patches the rule identified by (source, target). Nil request fields
// keep the existing rule's value. The old rule's branches are removed and the
// patched rule is re-validated and re-applied in the same flow rewrite.
func (s *RuleService) Update(ctx context.Context, surveyID uuid.UUID, questionID, targetID int64, authorID int, req *model.UpdateRuleRequest) (*model.BranchingRule, error) {
	questions, err := s.requireDraftQuestions(ctx, surveyID, authorID)
	if err != nil {
		return nil, err
	}
	q := findQuestion(questions, questionID)
	if q == nil {
		return nil, ErrQuestionNotFound
	}

	existing := findRule(deriveRules(q), targetID)
	if existing == nil {
		return nil, ErrRuleNotFound
	}

	rule := *existing
	if req.TargetQuestionID != nil {
		rule.TargetQuestionID = *req.TargetQuestionID
	}
	if req.Operator != nil {
		rule.Condition.Operator = model.ConditionOperator(*req.Operator)
	}
	if req.Values != nil {
		rule.Condition.Values = []string(*req.Values)
	}

	stripped := *q
	flowCfg, removed := removeTarget(q.Flow, targetID)
	if !removed {
		return nil, ErrRuleNotFound
	}
	stripped.Flow = flowCfg

	updated, err := applyRule(&stripped, questions, rule)
	if err != nil {
		return nil, err
	}

	if err := s.questions.UpdateFlow(ctx, surveyID, questionID, updated); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Delete removes every branch on the source question that points at targetID.
func (s *RuleService) Delete(ctx context.Context, surveyID uuid.UUID, questionID, targetID int64, authorID int) error {
	questions, err := s.requireDraftQuestions(ctx, surveyID, authorID)
	if err != nil {
		return err
	}
	q := findQuestion(questions, questionID)
	if q == nil {
		return ErrQuestionNotFound
	}

	flowCfg, removed := removeTarget(q.Flow, targetID)
	if !removed {
		return ErrRuleNotFound
	}

	if err := s.questions.UpdateFlow(ctx, surveyID, questionID, flowCfg); err != nil {
		return err
	}

	s.log.Debug().
		Str("survey_id", surveyID.String()).
		Int64("source", questionID).
		Int64("target", targetID).
		Msg("Rule deleted")
	return nil
}

// ResolveNextForAnswer resolves the follow-up question for one answer on a
// published survey. Only the Redis snapshot is consulted: a missing snapshot
// means the survey is not (or no longer) accepting responses, and that error
// propagates. Falling back to PostgreSQL here would let closed and draft
// surveys keep answering on the public respond surface.
func (s *RuleService) ResolveNextForAnswer(ctx context.Context, surveyID uuid.UUID, questionID int64, rawAnswer json.RawMessage) (*model.NextResolution, error) {
	questions, err := s.snapshots.GetFlowSnapshot(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return resolveAnswer(questions, questionID, rawAnswer)
}

// PreviewNextForAnswer resolves against the live question set when no
// snapshot exists, so authors can walk a draft's flow before publishing.
// Served only behind the admin JWT guard.
func (s *RuleService) PreviewNextForAnswer(ctx context.Context, surveyID uuid.UUID, questionID int64, rawAnswer json.RawMessage) (*model.NextResolution, error) {
	questions, err := s.snapshots.GetFlowSnapshot(ctx, surveyID)
	if err != nil {
		questions, err = s.questions.ListBySurvey(ctx, surveyID)
		if err != nil {
			return nil, fmt.Errorf("list questions: %w", err)
		}
	}
	return resolveAnswer(questions, questionID, rawAnswer)
}

// resolveAnswer runs the shared resolution step. The only boundary check is
// the rating domain; anything else degrades through the resolver's fallback
// chain.
func resolveAnswer(questions []model.Question, questionID int64, rawAnswer json.RawMessage) (*model.NextResolution, error) {
	q := findQuestion(questions, questionID)
	if q == nil {
		return nil, ErrQuestionNotFound
	}

	var answer any
	if err := json.Unmarshal(rawAnswer, &answer); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}

	if q.Type == model.QuestionTypeRating {
		stars, ok := answer.(float64)
		if !ok || stars != float64(int(stars)) || stars < 1 || stars > model.RatingMax {
			return nil, ErrAnswerOutOfRange
		}
	}

	next, complete := flow.ResolveInSurvey(questions, q, answer)
	return &model.NextResolution{NextQuestionID: next, IsComplete: complete}, nil
}

// ─── Internals ──────────────────────────────────────────────────────────────

func (s *RuleService) requireDraftQuestions(ctx context.Context, surveyID uuid.UUID, authorID int) ([]model.Question, error) {
	survey, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if authorID != 0 && survey.AuthorID != authorID {
		return nil, ErrNotSurveyAuthor
	}
	if survey.Status != model.SurveyStatusDraft {
		return nil, ErrSurveyNotDraft
	}
	return s.questions.ListBySurvey(ctx, surveyID)
}

func findQuestion(questions []model.Question, id int64) *model.Question {
	for i := range questions {
		if questions[i].ID == id {
			return &questions[i]
		}
	}
	return nil
}

func findRule(rules []model.BranchingRule, targetID int64) *model.BranchingRule {
	for i := range rules {
		if rules[i].TargetQuestionID == targetID {
			return &rules[i]
		}
	}
	return nil
}

// deriveRules reads the normalized rule view back out of a question's flow
// config. Option branches are grouped by target in ascending key order.
func deriveRules(q *model.Question) []model.BranchingRule {
	rules := []model.BranchingRule{}

	keys := make([]int, 0, len(q.Flow.OptionNext))
	for key := range q.Flow.OptionNext {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	byTarget := make(map[int64][]string)
	var targetOrder []int64
	for _, key := range keys {
		target := q.Flow.OptionNext[key]
		if target == nil {
			continue
		}
		value, ok := keyValue(q, key)
		if !ok {
			continue
		}
		if _, seen := byTarget[*target]; !seen {
			targetOrder = append(targetOrder, *target)
		}
		byTarget[*target] = append(byTarget[*target], value)
	}

	for _, target := range targetOrder {
		values := byTarget[target]
		op := model.OperatorEquals
		if len(values) > 1 {
			op = model.OperatorIn
		}
		rules = append(rules, model.BranchingRule{
			SourceQuestionID: q.ID,
			TargetQuestionID: target,
			Condition:        model.RuleCondition{Operator: op, Values: values},
		})
	}

	for _, cond := range q.Flow.Conditionals {
		if cond.Next == nil {
			continue
		}
		rules = append(rules, model.BranchingRule{
			SourceQuestionID: q.ID,
			TargetQuestionID: *cond.Next,
			Condition: model.RuleCondition{
				Operator: model.OperatorExpr,
				Values:   []string{cond.Expr},
			},
		})
	}

	return rules
}

// keyValue maps an option-branch key back to its rule value.
func keyValue(q *model.Question, key int) (string, bool) {
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		if key < 0 || key >= len(q.Options) {
			return "", false
		}
		return q.Options[key], true
	case model.QuestionTypeRating:
		if key < 0 || key >= model.RatingMax {
			return "", false
		}
		return strconv.Itoa(key + 1), true
	default:
		return "", false
	}
}

// applyRule validates a rule against the question set and returns the source
// question's flow config with the rule's branches written in. The input
// question is not modified.
func applyRule(q *model.Question, questions []model.Question, rule model.BranchingRule) (model.FlowConfig, error) {
	var zero model.FlowConfig

	if rule.TargetQuestionID == q.ID {
		return zero, ErrSelfReference
	}
	if findQuestion(questions, rule.TargetQuestionID) == nil {
		return zero, ErrTargetNotFound
	}

	cfg := cloneFlow(q.Flow)
	target := rule.TargetQuestionID

	switch rule.Condition.Operator {
	case model.OperatorEquals, model.OperatorIn:
		if !q.Type.SupportsOptionBranching() {
			return zero, ErrSourceNotBranching
		}
		if rule.Condition.Operator == model.OperatorEquals && len(rule.Condition.Values) != 1 {
			return zero, ErrConditionMismatch
		}
		if cfg.OptionNext == nil {
			cfg.OptionNext = make(map[int]*int64)
		}
		for _, value := range rule.Condition.Values {
			key, err := valueKey(q, value)
			if err != nil {
				return zero, err
			}
			t := target
			cfg.OptionNext[key] = &t
		}
	case model.OperatorExpr:
		if len(rule.Condition.Values) != 1 {
			return zero, ErrConditionMismatch
		}
		src := rule.Condition.Values[0]
		env := map[string]any{"answer": any(nil)}
		if _, err := expr.Compile(src, expr.Env(env), expr.AsBool(), expr.AllowUndefinedVariables()); err != nil {
			return zero, ErrBadExpression
		}
		t := target
		cfg.Conditionals = append(cfg.Conditionals, model.Conditional{Expr: src, Next: &t})
	default:
		return zero, ErrConditionMismatch
	}

	return cfg, nil
}

// valueKey maps a rule value to the option-branch key it configures.
func valueKey(q *model.Question, value string) (int, error) {
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		for i, opt := range q.Options {
			if opt == value {
				return i, nil
			}
		}
		return 0, ErrValueNotOption
	case model.QuestionTypeRating:
		stars, err := strconv.Atoi(value)
		if err != nil || stars < 1 || stars > model.RatingMax {
			return 0, ErrAnswerOutOfRange
		}
		return stars - 1, nil
	default:
		return 0, ErrSourceNotBranching
	}
}

// removeTarget strips every branch pointing at targetID from the config.
// Reports whether anything was removed.
func removeTarget(f model.FlowConfig, targetID int64) (model.FlowConfig, bool) {
	cfg := cloneFlow(f)
	removed := false

	for key, target := range cfg.OptionNext {
		if target != nil && *target == targetID {
			delete(cfg.OptionNext, key)
			removed = true
		}
	}
	if len(cfg.OptionNext) == 0 {
		cfg.OptionNext = nil
	}

	kept := cfg.Conditionals[:0]
	for _, cond := range cfg.Conditionals {
		if cond.Next != nil && *cond.Next == targetID {
			removed = true
			continue
		}
		kept = append(kept, cond)
	}
	if len(kept) == 0 {
		cfg.Conditionals = nil
	} else {
		cfg.Conditionals = kept
	}

	return cfg, removed
}

func cloneFlow(f model.FlowConfig) model.FlowConfig {
	cfg := f
	if f.OptionNext != nil {
		cfg.OptionNext = make(map[int]*int64, len(f.OptionNext))
		for k, v := range f.OptionNext {
			cfg.OptionNext[k] = v
		}
	}
	if f.Conditionals != nil {
		cfg.Conditionals = make([]model.Conditional, len(f.Conditionals))
		copy(cfg.Conditionals, f.Conditionals)
	}
	return cfg
}
