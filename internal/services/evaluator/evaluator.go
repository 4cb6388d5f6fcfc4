package evaluator

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

// MetricSource serves secondary metric lookups. The evaluator calls it
// lazily, one condition at a time, so a short-circuited condition never
// costs an oracle round trip.
type MetricSource interface {
	GetMetric(ctx context.Context, symbol string, metric trigger.Metric) (decimal.Decimal, error)
}

// Result is the evaluation outcome plus the metric values actually read,
// kept for the execution audit record
type Result struct {
	Execute bool
	Metrics map[string]decimal.Decimal
}

// Service decides whether a trigger should execute at the current price
type Service struct {
	metrics MetricSource
	log     *logger.Logger
}

// NewService creates a new evaluator
func NewService(metrics MetricSource) *Service {
	return &Service{
		metrics: metrics,
		log:     logger.Get().With("component", "evaluator"),
	}
}

// Evaluate applies the primary price condition and then each secondary
// condition in list order, short-circuiting on the first miss. The primary
// comparison is boundary-inclusive. A malformed secondary payload returns
// ErrInvalidCondition: the trigger is non-executable this cycle, never
// executed on intent the engine cannot parse.
func (s *Service) Evaluate(ctx context.Context, trg *trigger.Trigger, price decimal.Decimal) (Result, error) {
	res := Result{
		Metrics: map[string]decimal.Decimal{
			trigger.MetricPrice.String(): price,
		},
	}

	if !s.primaryMatch(trg, price) {
		return res, nil
	}

	conds, err := trg.SmartConditionList()
	if err != nil {
		return Result{}, errors.Wrapf(err, "trigger %s", trg.ID)
	}

	for _, cond := range conds {
		value, err := s.metrics.GetMetric(ctx, trg.Symbol, cond.Metric)
		if err != nil {
			// A metric the source cannot serve makes the condition
			// not-met; the trigger keeps waiting
			s.log.Debugw("Secondary metric unavailable",
				"trigger_id", trg.ID,
				"metric", cond.Metric,
				"error", err,
			)
			return res, nil
		}

		res.Metrics[cond.Metric.String()] = value

		if !cond.Operator.Compare(value, cond.Value) {
			return res, nil
		}
	}

	res.Execute = true
	return res, nil
}

// primaryMatch applies the boundary-inclusive price comparison
func (s *Service) primaryMatch(trg *trigger.Trigger, price decimal.Decimal) bool {
	switch trg.Condition {
	case trigger.ConditionAbove:
		return price.GreaterThanOrEqual(trg.TargetPrice)
	case trigger.ConditionBelow:
		return price.LessThanOrEqual(trg.TargetPrice)
	}
	return false
}
