package frontier

import (
	"math"
	"slices"
)

// StepValue returns the frontier step function evaluated at cost: the accuracy of the
// highest-cost point whose cost is <= cost, or 0 when cost is below every point.
func StepValue(points []Point, cost float64) float64 {
	sorted := points
	if !slices.IsSortedFunc(points, byCost) {
		sorted = slices.Clone(points)
		slices.SortStableFunc(sorted, byCost)
	}

	step := 0.0
	for _, p := range sorted {
		if cost < p.Cost {
			break
		}
		step = p.Accuracy
	}
	return step
}

// VerticalDistance is the accuracy-axis distance from (cost, accuracy) to the step function.
// An empty frontier degenerates to the raw accuracy.
func VerticalDistance(points []Point, cost, accuracy float64) float64 {
	return math.Abs(accuracy - StepValue(points, cost))
}

func byCost(a, b Point) int {
	switch {
	case a.Cost < b.Cost:
		return -1
	case a.Cost > b.Cost:
		return 1
	default:
		return 0
	}
}

// scanFrontier returns the non-dominated subset of points, which must already be sorted by
// ascending cost. A point is admitted only if its accuracy strictly exceeds every cheaper
// admitted point, so ties go to the cheaper plan. The returned slice holds indexes into points.
func scanFrontier(points []Point) []int {
	var idx []int
	best := math.Inf(-1)
	for i, p := range points {
		if p.Accuracy > best {
			idx = append(idx, i)
			best = p.Accuracy
		}
	}
	return idx
}

// dominates returns true if a is at least as cheap as b and strictly more accurate.
func dominates(a, b Point) bool {
	return a.Cost <= b.Cost && a.Accuracy > b.Accuracy
}
