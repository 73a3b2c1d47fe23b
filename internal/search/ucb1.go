package search

import "math"

// DefaultExplorationConstant is the UCB1 exploration weight, sqrt(2).
var DefaultExplorationConstant = math.Sqrt2

// NodeStats is the visit bookkeeping UCB1 needs from a tree node.
type NodeStats struct {
	Value  float64
	Visits int
}

// UCB1 scores a child for selection. Unvisited children score +Inf so they are tried first.
func UCB1(stats NodeStats, parentVisits int, c float64) float64 {
	if stats.Visits == 0 {
		return math.Inf(1)
	}
	exploitation := stats.Value / float64(stats.Visits)
	if parentVisits <= 0 {
		return exploitation
	}
	exploration := c * math.Sqrt(math.Log(float64(parentVisits))/float64(stats.Visits))
	return exploitation + exploration
}

// SelectChild returns the child with the highest UCB1 score, or nil if there are none.
// Ties keep the earliest child.
func SelectChild(parent *Node, c float64) *Node {
	var best *Node
	bestScore := math.Inf(-1)
	for _, child := range parent.Children {
		score := UCB1(child.Stats(), parent.Visits, c)
		if best == nil || score > bestScore {
			best, bestScore = child, score
		}
	}
	return best
}
