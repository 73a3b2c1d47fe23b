package estimator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
)

const (
	MinAccuracy = 0.10
	MaxAccuracy = 0.95

	defaultConcurrency = 4
)

// Score is the comparator's relative-quality verdict for a candidate against a reference.
type Score int

const (
	MuchWorse      Score = -3
	SlightlyWorse  Score = -1
	AboutSame      Score = 0
	SlightlyBetter Score = 1
	MuchBetter     Score = 3
)

// Adjustment maps a score to the accuracy offset applied to the reference's accuracy.
// Scores outside the known set adjust by 0.
func (s Score) Adjustment() float64 {
	switch s {
	case MuchWorse:
		return -0.15
	case SlightlyWorse:
		return -0.05
	case SlightlyBetter:
		return 0.05
	case MuchBetter:
		return 0.15
	default:
		return 0
	}
}

// Valid reports whether s is one of the five known verdicts.
func (s Score) Valid() bool {
	switch s {
	case MuchWorse, SlightlyWorse, AboutSame, SlightlyBetter, MuchBetter:
		return true
	}
	return false
}

// Comparator is the pairwise quality oracle.
type Comparator interface {
	Compare(ctx context.Context, candidate, reference *frontier.Plan) (Score, error)
}

// ComparatorFunc adapts a function to Comparator.
type ComparatorFunc func(ctx context.Context, candidate, reference *frontier.Plan) (Score, error)

func (f ComparatorFunc) Compare(ctx context.Context, candidate, reference *frontier.Plan) (Score, error) {
	return f(ctx, candidate, reference)
}

// Recorder receives per-comparison outcomes. metrics.Metrics satisfies it.
type Recorder interface {
	ObserveComparison(ok bool)
	ObserveEstimate(d time.Duration, fallback bool)
}

// Estimator estimates a plan's accuracy from pairwise comparisons against frontier members.
type Estimator struct {
	cmp         Comparator
	concurrency int
	recorder    Recorder
	logger      *slog.Logger
}

// New creates an Estimator. concurrency <= 0 uses the default of 4 in-flight comparisons.
func New(cmp Comparator, concurrency int, recorder Recorder, logger *slog.Logger) *Estimator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{cmp: cmp, concurrency: concurrency, recorder: recorder, logger: logger}
}

// Estimate compares plan against each member and averages member accuracy plus the score
// adjustment. Failed comparisons are logged and skipped; with no usable comparison the
// neutral baseline is returned. The result is clamped to [0.10, 0.95].
func (e *Estimator) Estimate(ctx context.Context, plan *frontier.Plan, members []*frontier.Plan, known map[frontier.PlanID]float64) float64 {
	start := time.Now()
	ctx, span := otel.Tracer("frontier/estimator").Start(ctx, "estimator.Estimate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("plan.id", int64(plan.ID)),
		attribute.Int("members", len(members)),
	)

	if len(members) == 0 {
		e.observe(start, true)
		return frontier.BaselineAccuracy
	}

	// One slot per member keeps aggregation in member order regardless of completion order.
	estimates := make([]float64, len(members))
	ok := make([]bool, len(members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, m := range members {
		g.Go(func() error {
			score, err := e.cmp.Compare(gctx, plan, m)
			if e.recorder != nil {
				e.recorder.ObserveComparison(err == nil)
			}
			if err != nil {
				e.logger.Warn("comparison failed",
					"plan_id", plan.ID, "reference_id", m.ID,
					"plan_config", plan.ConfigPath, "reference_config", m.ConfigPath,
					"error", err)
				return nil
			}
			if !score.Valid() {
				e.logger.Warn("comparator returned unknown score", "plan_id", plan.ID, "reference_id", m.ID, "score", int(score))
			}
			acc, found := known[m.ID]
			if !found {
				e.logger.Warn("reference accuracy unknown", "reference_id", m.ID)
				return nil
			}
			estimates[i] = acc + score.Adjustment()
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var sum float64
	var n int
	for i := range estimates {
		if ok[i] {
			sum += estimates[i]
			n++
		}
	}
	if n == 0 {
		e.logger.Warn("all comparisons failed, using baseline", "plan_id", plan.ID, "members", len(members))
		span.SetAttributes(attribute.Bool("fallback", true))
		e.observe(start, true)
		return frontier.BaselineAccuracy
	}

	est := clamp(sum/float64(n), MinAccuracy, MaxAccuracy)
	span.SetAttributes(attribute.Float64("accuracy", est), attribute.Int("comparisons", n))
	e.observe(start, false)
	return est
}

func (e *Estimator) observe(start time.Time, fallback bool) {
	if e.recorder != nil {
		e.recorder.ObserveEstimate(time.Since(start), fallback)
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
