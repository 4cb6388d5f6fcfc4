package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minhleeee123/MantleFlow-sub001/pkg/logger"
)

// Engine holds the trigger engine's operational metrics
type Engine struct {
	CyclesTotal       prometheus.Counter
	CycleDuration     prometheus.Histogram
	TriggersEvaluated prometheus.Counter
	TriggersSkipped   prometheus.Counter
	Executions        *prometheus.CounterVec
	OracleBatches     *prometheus.CounterVec
}

// Execution outcome labels
const (
	OutcomeExecuted  = "executed"
	OutcomeRetryable = "retryable"
	OutcomeFailed    = "failed"
	OutcomeRaceLost  = "race_lost"
)

// NewEngine registers the engine metrics on the given registerer
func NewEngine(reg prometheus.Registerer) *Engine {
	factory := promauto.With(reg)

	return &Engine{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mantleflow_scan_cycles_total",
			Help: "Total completed trigger scan cycles",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mantleflow_scan_cycle_duration_seconds",
			Help:    "Duration of one trigger scan cycle",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		TriggersEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "mantleflow_triggers_evaluated_total",
			Help: "Total triggers evaluated across all cycles",
		}),
		TriggersSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "mantleflow_triggers_skipped_total",
			Help: "Triggers skipped because no price was available",
		}),
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mantleflow_executions_total",
			Help: "Execution attempts by outcome",
		}, []string{"outcome"}),
		OracleBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mantleflow_oracle_batches_total",
			Help: "Batched oracle price fetches by status",
		}, []string{"status"}),
	}
}

// Serve exposes /metrics on the given port; blocks until the server stops
func Serve(port int, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Get().Infow("Metrics endpoint listening", "port", port)
	return srv.ListenAndServe()
}
