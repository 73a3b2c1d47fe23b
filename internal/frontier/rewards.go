package frontier

import (
	"sort"
	"sync"
)

// ActionRewards is the shared action -> cumulative reward sink. Only registered actions
// accumulate reward; increments from unknown actions are dropped.
//
// Thread Safety: every method takes the internal lock, so one sink may be shared by
// several search workers.
type ActionRewards struct {
	mu      sync.Mutex
	rewards map[string]float64
	counts  map[string]int
}

// ActionReward is a snapshot of one action's accumulated credit.
type ActionReward struct {
	Action string  `json:"action"`
	Reward float64 `json:"reward"`
	Uses   int     `json:"uses"`
}

// NewActionRewards creates a sink with the given actions registered at zero reward.
func NewActionRewards(actions ...string) *ActionRewards {
	r := &ActionRewards{
		rewards: make(map[string]float64, len(actions)),
		counts:  make(map[string]int, len(actions)),
	}
	for _, a := range actions {
		r.rewards[a] = 0
	}
	return r
}

// Register adds an action at zero reward if it is not already known.
func (r *ActionRewards) Register(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rewards[action]; !ok {
		r.rewards[action] = 0
	}
}

// Add increments the action's cumulative reward. It returns false when the action is
// empty or not registered.
func (r *ActionRewards) Add(action string, delta float64) bool {
	if action == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rewards[action]; !ok {
		return false
	}
	r.rewards[action] += delta
	return true
}

// RecordUse counts one application of the action by the driver.
func (r *ActionRewards) RecordUse(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rewards[action]; !ok {
		return
	}
	r.counts[action]++
}

// Get returns the cumulative reward and whether the action is registered.
func (r *ActionRewards) Get(action string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.rewards[action]
	return v, ok
}

// Average returns reward/uses, and false when the action has never been used.
func (r *ActionRewards) Average(action string) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.counts[action]
	if n == 0 {
		return 0, false
	}
	return r.rewards[action] / float64(n), true
}

// Len returns the number of registered actions.
func (r *ActionRewards) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rewards)
}

// Snapshot returns all actions sorted by name.
func (r *ActionRewards) Snapshot() []ActionReward {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ActionReward, 0, len(r.rewards))
	for a, v := range r.rewards {
		out = append(out, ActionReward{Action: a, Reward: v, Uses: r.counts[a]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}
