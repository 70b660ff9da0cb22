package rules

import (
	"testing"
	"time"
)

func TestHaversine(t *testing.T) {
	// Lagos to Abuja, roughly 520 km.
	dist := haversineKm(6.5244, 3.3792, 9.0765, 7.3986)
	if dist < 480 || dist > 560 {
		t.Errorf("Lagos-Abuja distance = %.0f km, expected ~520", dist)
	}

	if d := haversineKm(6.5244, 3.3792, 6.5244, 3.3792); d != 0 {
		t.Errorf("same point distance = %f, want 0", d)
	}
}

func TestTravelFeasibility(t *testing.T) {
	limits := DefaultTravelLimits()

	tests := []struct {
		name     string
		km       float64
		elapsed  time.Duration
		feasible bool
	}{
		{"short drive", 80, time.Hour, true},
		{"long drive", 500, 6 * time.Hour, true},
		{"teleport", 500, time.Hour, false},
		{"domestic flight with overhead", 500, 4 * time.Hour, true},
		{"flight without enough overhead", 800, 2 * time.Hour, false},
		{"intercontinental overnight", 6000, 10 * time.Hour, true},
		{"zero elapsed same place", 0, 0, true},
		{"zero elapsed far away", 100, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := limits.Feasible(tt.km, tt.elapsed); got != tt.feasible {
				t.Errorf("Feasible(%v km, %v) = %v, want %v", tt.km, tt.elapsed, got, tt.feasible)
			}
		})
	}
}
