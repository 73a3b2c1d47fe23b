package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
)

// Metrics holds the Prometheus collectors for the frontier service.
// It observes engine events and estimator outcomes.
type Metrics struct {
	PlansIngested    *prometheus.CounterVec
	FrontierChanges  prometheus.Counter
	Rewards          *prometheus.HistogramVec
	ActionCredits    *prometheus.CounterVec
	Comparisons      *prometheus.CounterVec
	EstimateDuration *prometheus.HistogramVec
	IngestDuration   prometheus.Histogram
	ActiveRuns       prometheus.Gauge
	FrontierSize     *prometheus.GaugeVec
}

// New registers all collectors with registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		PlansIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_plans_ingested_total",
				Help: "Plans ingested, by outcome",
			},
			[]string{"outcome"},
		),
		FrontierChanges: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "frontier_membership_changes_total",
				Help: "Ingests that changed frontier membership",
			},
		),
		Rewards: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "frontier_plan_rewards",
				Help:    "Rewards assigned to plans, by transition",
				Buckets: []float64{-0.5, -0.2, -0.1, -0.05, -0.01, 0, 0.01, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"transition"},
		),
		ActionCredits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_action_credits_total",
				Help: "Credits applied to rewrite actions",
			},
			[]string{"action", "sign"},
		),
		Comparisons: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "frontier_comparisons_total",
				Help: "Pairwise comparator calls, by result",
			},
			[]string{"result"},
		),
		EstimateDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "frontier_estimate_duration_seconds",
				Help:    "Accuracy estimation latency",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"fallback"},
		),
		IngestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "frontier_ingest_duration_seconds",
				Help:    "End-to-end plan ingest latency",
				Buckets: prometheus.DefBuckets,
			},
		),
		ActiveRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "frontier_active_runs",
				Help: "Optimization runs currently open",
			},
		),
		FrontierSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "frontier_size",
				Help: "Current frontier size per run",
			},
			[]string{"run_id"},
		),
	}
}

// Observe records engine events.
func (m *Metrics) Observe(_ context.Context, ev frontier.Event) {
	switch ev.Kind {
	case frontier.EventPlanRejected:
		m.PlansIngested.WithLabelValues("failed").Inc()
	case frontier.EventPlanIngested:
		m.PlansIngested.WithLabelValues("valid").Inc()
	case frontier.EventRewardComputed:
		m.Rewards.WithLabelValues(string(ev.Transition)).Observe(ev.Reward)
	case frontier.EventActionCredited:
		sign := "positive"
		if ev.Reward < 0 {
			sign = "negative"
		}
		m.ActionCredits.WithLabelValues(ev.Action, sign).Inc()
	case frontier.EventFrontierChanged:
		m.FrontierChanges.Inc()
	}
}

func (m *Metrics) ObserveComparison(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.Comparisons.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEstimate(d time.Duration, fallback bool) {
	m.EstimateDuration.WithLabelValues(strconv.FormatBool(fallback)).Observe(d.Seconds())
}

func (m *Metrics) ObserveIngest(d time.Duration) {
	m.IngestDuration.Observe(d.Seconds())
}

func (m *Metrics) SetFrontierSize(runID string, n int) {
	m.FrontierSize.WithLabelValues(runID).Set(float64(n))
}

func (m *Metrics) ForgetRun(runID string) {
	m.FrontierSize.DeleteLabelValues(runID)
}
