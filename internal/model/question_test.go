package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The default-next field is tri-state: absent means sequential fall-through,
// null means end survey, a number means an explicit target. All three must
// survive a round trip through JSON, since the flow config lives in a jsonb
// column.
func TestFlowConfig_DefaultNextTriState(t *testing.T) {
	var absent FlowConfig
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.False(t, absent.DefaultNext.Defined)

	var ended FlowConfig
	require.NoError(t, json.Unmarshal([]byte(`{"default_next": null}`), &ended))
	assert.True(t, ended.DefaultNext.Defined)
	assert.Nil(t, ended.DefaultNext.Target)

	var targeted FlowConfig
	require.NoError(t, json.Unmarshal([]byte(`{"default_next": 42}`), &targeted))
	require.NotNil(t, targeted.DefaultNext.Target)
	assert.Equal(t, int64(42), *targeted.DefaultNext.Target)

	// Absent stays absent on the way out.
	out, err := json.Marshal(absent)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "default_next")

	// Explicit null stays null.
	out, err = json.Marshal(ended)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"default_next":null`)
}

func TestFlowConfig_OptionNextNullValues(t *testing.T) {
	raw := `{"option_next": {"0": 5, "1": null}}`
	var cfg FlowConfig
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))

	require.NotNil(t, cfg.OptionNext[0])
	assert.Equal(t, int64(5), *cfg.OptionNext[0])

	target, present := cfg.OptionNext[1]
	assert.True(t, present)
	assert.Nil(t, target)
}

func TestFlowConfig_References(t *testing.T) {
	cfg := FlowConfig{
		DefaultNext: NextTo(3),
		OptionNext:  map[int]*int64{0: ptrID(4), 1: nil},
		Conditionals: []Conditional{
			{Expr: `answer == "x"`, Next: ptrID(5)},
			{Expr: `answer == "y"`, Next: nil},
		},
	}

	assert.ElementsMatch(t, []int64{3, 4, 5}, cfg.References())
	assert.Empty(t, FlowConfig{}.References())
}

func ptrID(id int64) *int64 { return &id }
