package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Equals and Expr conditions carry a single literal on the wire; only In
// carries an array. Both forms must decode back to the same Values slice.
func TestRuleCondition_WireShape(t *testing.T) {
	equals := RuleCondition{Operator: OperatorEquals, Values: []string{"Yes"}}
	out, err := json.Marshal(equals)
	require.NoError(t, err)
	assert.JSONEq(t, `{"operator":"Equals","value":"Yes"}`, string(out))

	in := RuleCondition{Operator: OperatorIn, Values: []string{"1", "2"}}
	out, err = json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"operator":"In","value":["1","2"]}`, string(out))

	expr := RuleCondition{Operator: OperatorExpr, Values: []string{`answer contains "refund"`}}
	out, err = json.Marshal(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"operator":"Expr","value":"answer contains \"refund\""}`, string(out))
}

func TestRuleCondition_UnmarshalAcceptsBothForms(t *testing.T) {
	var bare RuleCondition
	require.NoError(t, json.Unmarshal([]byte(`{"operator":"Equals","value":"No"}`), &bare))
	assert.Equal(t, OperatorEquals, bare.Operator)
	assert.Equal(t, []string{"No"}, bare.Values)

	var array RuleCondition
	require.NoError(t, json.Unmarshal([]byte(`{"operator":"In","value":["1","2"]}`), &array))
	assert.Equal(t, []string{"1", "2"}, array.Values)

	// Round trip through the owning rule.
	rule := BranchingRule{
		SourceQuestionID: 1,
		TargetQuestionID: 3,
		Condition:        RuleCondition{Operator: OperatorEquals, Values: []string{"No"}},
	}
	out, err := json.Marshal(rule)
	require.NoError(t, err)
	var back BranchingRule
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, rule, back)
}

func TestConditionValues_UnmarshalBothForms(t *testing.T) {
	var single ConditionValues
	require.NoError(t, json.Unmarshal([]byte(`"Yes"`), &single))
	assert.Equal(t, ConditionValues{"Yes"}, single)

	var many ConditionValues
	require.NoError(t, json.Unmarshal([]byte(`["1","2"]`), &many))
	assert.Equal(t, ConditionValues{"1", "2"}, many)
}
