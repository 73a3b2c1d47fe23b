package frontier

import (
	"math"
	"testing"
)

func TestStepValue(t *testing.T) {
	points := []Point{{Cost: 10, Accuracy: 0.6}, {Cost: 50, Accuracy: 0.8}}

	tests := []struct {
		name string
		cost float64
		want float64
	}{
		{"below cheapest", 5, 0},
		{"at first step", 10, 0.6},
		{"between steps", 30, 0.6},
		{"at second step", 50, 0.8},
		{"beyond last step", 100, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StepValue(points, tt.cost); got != tt.want {
				t.Errorf("StepValue(%v) = %v, want %v", tt.cost, got, tt.want)
			}
		})
	}
}

func TestStepValueUnsortedInput(t *testing.T) {
	points := []Point{{Cost: 50, Accuracy: 0.8}, {Cost: 10, Accuracy: 0.6}}
	if got := StepValue(points, 30); got != 0.6 {
		t.Errorf("expected 0.6, got %v", got)
	}
	if points[0].Cost != 50 {
		t.Error("StepValue must not reorder its input")
	}
}

func TestVerticalDistanceEmptyFrontier(t *testing.T) {
	if got := VerticalDistance(nil, 42, 0.7); got != 0.7 {
		t.Errorf("expected raw accuracy 0.7, got %v", got)
	}
}

func TestVerticalDistanceAboveAndBelow(t *testing.T) {
	points := []Point{{Cost: 10, Accuracy: 0.6}}
	if got := VerticalDistance(points, 20, 0.9); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("expected 0.3 above step, got %v", got)
	}
	if got := VerticalDistance(points, 20, 0.4); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("expected 0.2 below step, got %v", got)
	}
}

func TestScanFrontier(t *testing.T) {
	points := []Point{
		{Cost: 1, Accuracy: 0.3},
		{Cost: 2, Accuracy: 0.3}, // tie at higher cost is dominated
		{Cost: 3, Accuracy: 0.2},
		{Cost: 4, Accuracy: 0.8},
		{Cost: 4, Accuracy: 0.7},
		{Cost: 9, Accuracy: 0.75},
	}
	got := scanFrontier(points)
	want := []int{0, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestDominates(t *testing.T) {
	a := Point{Cost: 5, Accuracy: 0.8}
	if !dominates(a, Point{Cost: 5, Accuracy: 0.7}) {
		t.Error("equal cost, higher accuracy should dominate")
	}
	if dominates(a, Point{Cost: 5, Accuracy: 0.8}) {
		t.Error("identical points must not dominate each other")
	}
	if dominates(a, Point{Cost: 4, Accuracy: 0.1}) {
		t.Error("more expensive point must not dominate")
	}
}
