package evaluator

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

type mockMetricSource struct {
	mock.Mock
}

func (m *mockMetricSource) GetMetric(ctx context.Context, symbol string, metric trigger.Metric) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol, metric)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func newTrigger(condition trigger.Condition, target string) *trigger.Trigger {
	return &trigger.Trigger{
		Symbol:      "MNT",
		Side:        trigger.SideSell,
		Condition:   condition,
		TargetPrice: decimal.RequireFromString(target),
		Amount:      decimal.NewFromInt(10),
		Status:      trigger.StatusActive,
	}
}

func TestEvaluatePrimaryCondition(t *testing.T) {
	tests := []struct {
		name      string
		condition trigger.Condition
		target    string
		price     string
		want      bool
	}{
		{"ABOVE met when price exceeds target", trigger.ConditionAbove, "100", "101", true},
		{"ABOVE met exactly at target", trigger.ConditionAbove, "100", "100", true},
		{"ABOVE not met just under target", trigger.ConditionAbove, "100", "99.999", false},
		{"BELOW met when price under target", trigger.ConditionBelow, "0.50", "0.49", true},
		{"BELOW met exactly at target", trigger.ConditionBelow, "0.50", "0.50", true},
		{"BELOW not met above target", trigger.ConditionBelow, "0.50", "0.51", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &mockMetricSource{}
			svc := NewService(source)

			trg := newTrigger(tt.condition, tt.target)
			res, err := svc.Evaluate(context.Background(), trg, decimal.RequireFromString(tt.price))

			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Execute)
			// No secondary conditions, so the metric source is never consulted
			source.AssertNotCalled(t, "GetMetric")
		})
	}
}

func TestEvaluateRecordsPriceInSnapshot(t *testing.T) {
	svc := NewService(&mockMetricSource{})

	trg := newTrigger(trigger.ConditionBelow, "0.50")
	res, err := svc.Evaluate(context.Background(), trg, decimal.RequireFromString("0.49"))

	require.NoError(t, err)
	require.Contains(t, res.Metrics, "PRICE")
	assert.True(t, res.Metrics["PRICE"].Equal(decimal.RequireFromString("0.49")))
}

func TestEvaluatePrimaryMissSkipsSecondary(t *testing.T) {
	source := &mockMetricSource{}
	svc := NewService(source)

	trg := newTrigger(trigger.ConditionAbove, "100")
	require.NoError(t, trg.SetSmartConditions([]trigger.SmartCondition{
		{Metric: trigger.MetricRSI, Operator: trigger.OperatorLT, Value: decimal.NewFromInt(30)},
	}))

	res, err := svc.Evaluate(context.Background(), trg, decimal.NewFromInt(90))

	require.NoError(t, err)
	assert.False(t, res.Execute)
	source.AssertNotCalled(t, "GetMetric")
}

func TestEvaluateSecondaryShortCircuit(t *testing.T) {
	source := &mockMetricSource{}
	svc := NewService(source)

	trg := newTrigger(trigger.ConditionAbove, "100")
	require.NoError(t, trg.SetSmartConditions([]trigger.SmartCondition{
		{Metric: trigger.MetricRSI, Operator: trigger.OperatorLT, Value: decimal.NewFromInt(30)},
		{Metric: trigger.MetricVolume, Operator: trigger.OperatorGT, Value: decimal.NewFromInt(1_000_000)},
	}))

	// RSI 50 fails RSI < 30, so VOLUME must never be queried
	source.On("GetMetric", mock.Anything, "MNT", trigger.MetricRSI).
		Return(decimal.NewFromInt(50), nil).Once()

	res, err := svc.Evaluate(context.Background(), trg, decimal.NewFromInt(101))

	require.NoError(t, err)
	assert.False(t, res.Execute)
	source.AssertExpectations(t)
	source.AssertNotCalled(t, "GetMetric", mock.Anything, "MNT", trigger.MetricVolume)
}

func TestEvaluateAllConditionsMet(t *testing.T) {
	source := &mockMetricSource{}
	svc := NewService(source)

	trg := newTrigger(trigger.ConditionAbove, "100")
	require.NoError(t, trg.SetSmartConditions([]trigger.SmartCondition{
		{Metric: trigger.MetricRSI, Operator: trigger.OperatorLT, Value: decimal.NewFromInt(30)},
		{Metric: trigger.MetricVolume, Operator: trigger.OperatorGT, Value: decimal.NewFromInt(1_000_000)},
	}))

	source.On("GetMetric", mock.Anything, "MNT", trigger.MetricRSI).
		Return(decimal.NewFromInt(25), nil).Once()
	source.On("GetMetric", mock.Anything, "MNT", trigger.MetricVolume).
		Return(decimal.NewFromInt(2_000_000), nil).Once()

	res, err := svc.Evaluate(context.Background(), trg, decimal.NewFromInt(105))

	require.NoError(t, err)
	assert.True(t, res.Execute)
	source.AssertExpectations(t)

	// The snapshot records every value actually read
	assert.Len(t, res.Metrics, 3)
	assert.True(t, res.Metrics["RSI"].Equal(decimal.NewFromInt(25)))
	assert.True(t, res.Metrics["VOLUME"].Equal(decimal.NewFromInt(2_000_000)))
}

func TestEvaluateMetricUnavailableIsNotMet(t *testing.T) {
	source := &mockMetricSource{}
	svc := NewService(source)

	trg := newTrigger(trigger.ConditionAbove, "100")
	require.NoError(t, trg.SetSmartConditions([]trigger.SmartCondition{
		{Metric: trigger.MetricSentiment, Operator: trigger.OperatorGT, Value: decimal.NewFromInt(60)},
	}))

	source.On("GetMetric", mock.Anything, "MNT", trigger.MetricSentiment).
		Return(decimal.Zero, errors.ErrPriceUnavailable).Once()

	res, err := svc.Evaluate(context.Background(), trg, decimal.NewFromInt(105))

	require.NoError(t, err)
	assert.False(t, res.Execute)
}

func TestEvaluateMalformedConditionsError(t *testing.T) {
	source := &mockMetricSource{}
	svc := NewService(source)

	trg := newTrigger(trigger.ConditionAbove, "100")
	trg.SmartConditionsRaw = []byte(`[{"metric":"ASTROLOGY","operator":"GT","value":"1"}]`)

	_, err := svc.Evaluate(context.Background(), trg, decimal.NewFromInt(105))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCondition))
	source.AssertNotCalled(t, "GetMetric")
}
