package trading

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/settlement"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/trigger"
	"github.com/minhleeee123/MantleFlow-sub001/internal/domain/user"
	"github.com/minhleeee123/MantleFlow-sub001/internal/metrics"
	"github.com/minhleeee123/MantleFlow-sub001/internal/services/evaluator"
	"github.com/minhleeee123/MantleFlow-sub001/internal/workers"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

// PriceSource serves the batched price read for one scan cycle
type PriceSource interface {
	GetPrices(ctx context.Context, symbols []string) map[string]decimal.Decimal
}

// Evaluator decides whether a trigger qualifies at the given price
type Evaluator interface {
	Evaluate(ctx context.Context, trg *trigger.Trigger, price decimal.Decimal) (evaluator.Result, error)
}

// Executor settles one qualifying trigger
type Executor interface {
	Execute(ctx context.Context, trg *trigger.Trigger, owner *user.User, price decimal.Decimal, snapshot map[string]decimal.Decimal) (*settlement.Execution, error)
}

// TriggerScanner is the engine's heartbeat: each iteration loads the ACTIVE
// triggers with their owners, fetches prices for the distinct symbol set in
// one batch, then evaluates and settles strictly sequentially in list order.
// One trigger's failure never stops the sweep.
type TriggerScanner struct {
	*workers.BaseWorker
	triggers  trigger.Repository
	prices    PriceSource
	evaluator Evaluator
	executor  Executor
	limiter   *rate.Limiter
	stats     *metrics.Engine
	log       *logger.Logger
}

// NewTriggerScanner creates a new trigger scanner worker. executionDelay
// paces consecutive settlement attempts so the chain sees one delegated
// swap at a time.
func NewTriggerScanner(
	triggers trigger.Repository,
	prices PriceSource,
	eval Evaluator,
	exec Executor,
	stats *metrics.Engine,
	interval time.Duration,
	executionDelay time.Duration,
	enabled bool,
) *TriggerScanner {
	if executionDelay <= 0 {
		executionDelay = 2 * time.Second
	}

	return &TriggerScanner{
		BaseWorker: workers.NewBaseWorker("trigger_scanner", interval, enabled),
		triggers:   triggers,
		prices:     prices,
		evaluator:  eval,
		executor:   exec,
		limiter:    rate.NewLimiter(rate.Every(executionDelay), 1),
		stats:      stats,
		log:        logger.Get().With("worker", "trigger_scanner"),
	}
}

// Run executes one scan cycle
func (ts *TriggerScanner) Run(ctx context.Context) error {
	start := time.Now()
	ts.log.Debug("TriggerScanner: starting iteration")

	active, err := ts.triggers.GetActiveWithOwner(ctx)
	if err != nil {
		ts.RecordError(err, time.Since(start))
		return errors.Wrap(err, "failed to load active triggers")
	}

	if len(active) == 0 {
		ts.log.Debug("TriggerScanner: no active triggers")
		ts.finishCycle(start)
		return nil
	}

	prices := ts.fetchPrices(ctx, active)

	executed := 0
	skipped := 0

	for i := range active {
		trg := &active[i].Trigger
		owner := &active[i].Owner

		price, ok := prices[trg.Symbol]
		if !ok {
			// No price this cycle, fresh or stale; the trigger waits
			ts.log.Warnw("Price unavailable, skipping trigger",
				"trigger_id", trg.ID,
				"symbol", trg.Symbol,
			)
			ts.stats.TriggersSkipped.Inc()
			skipped++
			continue
		}

		if ts.processTrigger(ctx, trg, owner, price) {
			executed++
		}
	}

	ts.log.Infow("TriggerScanner: iteration complete",
		"active", len(active),
		"executed", executed,
		"skipped", skipped,
		"duration", time.Since(start),
	)

	ts.finishCycle(start)
	return nil
}

// fetchPrices resolves the distinct symbol set and issues the single batched
// price read for this cycle
func (ts *TriggerScanner) fetchPrices(ctx context.Context, active []*trigger.WithOwner) map[string]decimal.Decimal {
	seen := make(map[string]bool, len(active))
	symbols := make([]string, 0, len(active))
	for i := range active {
		symbol := active[i].Trigger.Symbol
		if !seen[symbol] {
			seen[symbol] = true
			symbols = append(symbols, symbol)
		}
	}

	prices := ts.prices.GetPrices(ctx, symbols)

	status := "complete"
	if len(prices) < len(symbols) {
		status = "partial"
	}
	ts.stats.OracleBatches.WithLabelValues(status).Inc()

	return prices
}

// processTrigger evaluates one trigger and settles it if it qualifies.
// Returns true when the trigger executed.
func (ts *TriggerScanner) processTrigger(ctx context.Context, trg *trigger.Trigger, owner *user.User, price decimal.Decimal) bool {
	ts.stats.TriggersEvaluated.Inc()

	res, err := ts.evaluator.Evaluate(ctx, trg, price)
	if err != nil {
		// Malformed condition payload: non-executable this cycle, and
		// never executed on intent we cannot parse
		ts.log.Errorw("Trigger evaluation failed",
			"trigger_id", trg.ID,
			"symbol", trg.Symbol,
			"error", err,
		)
		return false
	}

	if !res.Execute {
		return false
	}

	ts.log.Infow("Trigger conditions met, executing",
		"trigger_id", trg.ID,
		"symbol", trg.Symbol,
		"side", trg.Side,
		"price", price,
	)

	_, err = ts.executor.Execute(ctx, trg, owner, price, res.Metrics)

	// Pace the chain between settlement attempts regardless of outcome
	if waitErr := ts.limiter.Wait(ctx); waitErr != nil {
		ts.log.Debugw("Execution pacing interrupted", "error", waitErr)
	}

	switch {
	case err == nil:
		ts.stats.Executions.WithLabelValues(metrics.OutcomeExecuted).Inc()
		return true

	case errors.Is(err, errors.ErrTriggerNotActive):
		ts.log.Debugw("Trigger settled elsewhere, skipping", "trigger_id", trg.ID)
		ts.stats.Executions.WithLabelValues(metrics.OutcomeRaceLost).Inc()

	case errors.IsTerminal(err):
		ts.log.Errorw("Trigger execution failed terminally",
			"trigger_id", trg.ID,
			"error", err,
		)
		ts.stats.Executions.WithLabelValues(metrics.OutcomeFailed).Inc()

	default:
		ts.log.Warnw("Trigger execution failed, will retry next cycle",
			"trigger_id", trg.ID,
			"error", err,
		)
		ts.stats.Executions.WithLabelValues(metrics.OutcomeRetryable).Inc()
	}

	return false
}

func (ts *TriggerScanner) finishCycle(start time.Time) {
	ts.stats.CyclesTotal.Inc()
	ts.stats.CycleDuration.Observe(time.Since(start).Seconds())
	ts.RecordRun(time.Since(start))
}
