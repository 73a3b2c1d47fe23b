package search

import (
	"math"
	"time"
)

// DefaultChildrenMultiplier scales how many children a node needs per sqrt(visit).
const DefaultChildrenMultiplier = 1.0

// IsFullyExplored reports whether a node with the given child and visit counts should stop
// expanding. The threshold grows with the square root of visits and is never below 2.
func IsFullyExplored(children, visits int, multiplier float64) bool {
	if visits < 0 {
		visits = 0
	}
	limit := 1 + int(math.Floor(math.Sqrt(float64(visits))*multiplier))
	if limit < 2 {
		limit = 2
	}
	return children >= limit
}

// Budget bounds a search by iteration count and wall-clock time. Zero MaxTime means no time limit.
type Budget struct {
	MaxIterations int
	MaxTime       time.Duration
}

// Continue reports whether another iteration may run.
func (b Budget) Continue(iteration int, elapsed time.Duration) bool {
	if iteration >= b.MaxIterations {
		return false
	}
	if b.MaxTime > 0 && elapsed >= b.MaxTime {
		return false
	}
	return true
}
