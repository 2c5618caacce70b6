package model

import "encoding/json"

// ConditionOperator enumerates how a branching rule matches an answer.
type ConditionOperator string

const (
	// OperatorEquals matches one literal answer value.
	OperatorEquals ConditionOperator = "Equals"
	// OperatorIn matches any of a set of literal answer values.
	OperatorIn ConditionOperator = "In"
	// OperatorExpr matches when a boolean expression over {"answer": ...}
	// evaluates to true.
	OperatorExpr ConditionOperator = "Expr"
)

// RuleCondition describes when a branching rule fires.
// Values holds a single element for Equals and Expr, one or more for In.
// On the wire, Equals and Expr carry a bare string; In carries an array.
type RuleCondition struct {
	Operator ConditionOperator
	Values   []string
}

// wireCondition is the JSON shape of a RuleCondition.
type wireCondition struct {
	Operator ConditionOperator `json:"operator"`
	Value    json.RawMessage   `json:"value"`
}

func (c RuleCondition) MarshalJSON() ([]byte, error) {
	var value any = c.Values
	if c.Operator != OperatorIn && len(c.Values) == 1 {
		value = c.Values[0]
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireCondition{Operator: c.Operator, Value: raw})
}

func (c *RuleCondition) UnmarshalJSON(data []byte) error {
	var raw wireCondition
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Operator = raw.Operator
	c.Values = nil
	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw.Value, &single); err == nil {
		c.Values = []string{single}
		return nil
	}
	return json.Unmarshal(raw.Value, &c.Values)
}

// BranchingRule is the normalized view of one explicit branch: answers on the
// source question matching the condition lead to the target question. Rules
// are derived from and applied to the source question's FlowConfig; they are
// never persisted on their own. Source and target reference questions in the
// same survey without owning them.
type BranchingRule struct {
	SourceQuestionID int64         `json:"source_question_id"`
	TargetQuestionID int64         `json:"target_question_id"`
	Condition        RuleCondition `json:"condition"`
}

// ConditionValues decodes the condition value from either wire form: a bare
// string or an array of strings.
type ConditionValues []string

func (v *ConditionValues) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = ConditionValues{single}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(v))
}

// CreateRuleRequest is the payload for attaching a branching rule.
type CreateRuleRequest struct {
	TargetQuestionID int64           `json:"target_question_id" binding:"required"`
	Operator         string          `json:"operator" binding:"required,oneof=Equals In Expr"`
	Values           ConditionValues `json:"value" binding:"required,min=1,dive,min=1,max=1000"`
}

// UpdateRuleRequest is the payload for patching a branching rule identified
// by (source, target). Nil fields keep the existing value.
type UpdateRuleRequest struct {
	TargetQuestionID *int64           `json:"target_question_id" binding:"omitempty"`
	Operator         *string          `json:"operator" binding:"omitempty,oneof=Equals In Expr"`
	Values           *ConditionValues `json:"value" binding:"omitempty,min=1,dive,min=1,max=1000"`
}

// NextResolution is the wire result of resolving the next question for an
// answer. IsComplete is true iff NextQuestionID is nil.
type NextResolution struct {
	NextQuestionID *int64 `json:"next_question_id"`
	IsComplete     bool   `json:"is_complete"`
}
