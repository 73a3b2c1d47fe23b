package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Frontier/internal/estimator"
	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
)

var (
	_ frontier.Observer  = (*Metrics)(nil)
	_ estimator.Recorder = (*Metrics)(nil)
)

func TestObserveEngineEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())

	acc := 0.6
	eng := frontier.NewEngine(frontier.NewActionRewards("decompose"), frontier.WithObserver(m))
	_, err := eng.Ingest(context.Background(), &frontier.Plan{ID: 1, Cost: 10, Accuracy: &acc, Action: "decompose"})
	require.NoError(t, err)
	_, err = eng.Ingest(context.Background(), &frontier.Plan{ID: 2, Cost: frontier.FailedCost})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlansIngested.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlansIngested.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FrontierChanges))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActionCredits.WithLabelValues("decompose", "positive")))
}

func TestRecorderAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveComparison(true)
	m.ObserveComparison(false)
	m.ObserveComparison(false)
	m.ObserveEstimate(20*time.Millisecond, true)
	m.ObserveIngest(5 * time.Millisecond)
	m.SetFrontierSize("run-1", 3)
	m.ActiveRuns.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Comparisons.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Comparisons.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FrontierSize.WithLabelValues("run-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveRuns))

	m.ForgetRun("run-1")
	assert.Equal(t, 0, testutil.CollectAndCount(m.FrontierSize))

	n, err := testutil.GatherAndCount(reg, "frontier_estimate_duration_seconds", "frontier_ingest_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
