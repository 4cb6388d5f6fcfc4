package trigger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

func TestSmartConditionList(t *testing.T) {
	t.Run("empty payload means no conditions", func(t *testing.T) {
		trg := &Trigger{}

		conds, err := trg.SmartConditionList()

		require.NoError(t, err)
		assert.Empty(t, conds)
	})

	t.Run("valid payload parses in order", func(t *testing.T) {
		trg := &Trigger{
			SmartConditionsRaw: []byte(`[
				{"metric":"RSI","operator":"LT","value":"30"},
				{"metric":"VOLUME","operator":"GT","value":"1000000"}
			]`),
		}

		conds, err := trg.SmartConditionList()

		require.NoError(t, err)
		require.Len(t, conds, 2)
		assert.Equal(t, MetricRSI, conds[0].Metric)
		assert.Equal(t, OperatorLT, conds[0].Operator)
		assert.True(t, conds[0].Value.Equal(decimal.NewFromInt(30)))
		assert.Equal(t, MetricVolume, conds[1].Metric)
	})

	t.Run("unknown metric invalidates the whole payload", func(t *testing.T) {
		trg := &Trigger{
			SmartConditionsRaw: []byte(`[
				{"metric":"RSI","operator":"LT","value":"30"},
				{"metric":"MOON_PHASE","operator":"GT","value":"1"}
			]`),
		}

		conds, err := trg.SmartConditionList()

		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidCondition))
		assert.Nil(t, conds)
	})

	t.Run("unknown operator invalidates the whole payload", func(t *testing.T) {
		trg := &Trigger{
			SmartConditionsRaw: []byte(`[{"metric":"RSI","operator":"GTE","value":"30"}]`),
		}

		_, err := trg.SmartConditionList()

		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidCondition))
	})

	t.Run("malformed JSON invalidates the payload", func(t *testing.T) {
		trg := &Trigger{SmartConditionsRaw: []byte(`{not json`)}

		_, err := trg.SmartConditionList()

		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidCondition))
	})
}

func TestSetSmartConditions(t *testing.T) {
	trg := &Trigger{}

	err := trg.SetSmartConditions([]SmartCondition{
		{Metric: MetricGas, Operator: OperatorLT, Value: decimal.NewFromInt(50)},
	})
	require.NoError(t, err)

	conds, err := trg.SmartConditionList()
	require.NoError(t, err)
	require.Len(t, conds, 1)
	assert.Equal(t, MetricGas, conds[0].Metric)

	require.NoError(t, trg.SetSmartConditions(nil))
	assert.Nil(t, trg.SmartConditionsRaw)
}

func TestOperatorCompare(t *testing.T) {
	tests := []struct {
		name      string
		op        Operator
		value     string
		threshold string
		want      bool
	}{
		{"GT above threshold", OperatorGT, "31", "30", true},
		{"GT at threshold is strict", OperatorGT, "30", "30", false},
		{"LT below threshold", OperatorLT, "29", "30", true},
		{"LT at threshold is strict", OperatorLT, "30", "30", false},
		{"unknown operator never matches", Operator("EQ"), "30", "30", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := decimal.RequireFromString(tt.value)
			threshold := decimal.RequireFromString(tt.threshold)
			assert.Equal(t, tt.want, tt.op.Compare(value, threshold))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusExecuted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, SideBuy.Valid())
	assert.True(t, SideSell.Valid())
	assert.False(t, Side("HOLD").Valid())

	assert.True(t, ConditionAbove.Valid())
	assert.True(t, ConditionBelow.Valid())
	assert.False(t, Condition("CROSSES").Valid())

	assert.True(t, MetricSentiment.Valid())
	assert.False(t, Metric("FUNDING").Valid())

	assert.True(t, Status("ACTIVE").Valid())
	assert.False(t, Status("PAUSED").Valid())
}
