package indicators

import (
	"math"
	"testing"
)

func TestBollingerSeries(t *testing.T) {
	closes := []float64{100.0, 102.0, 104.0}

	width, position, err := BollingerSeries(closes, 3, 2.0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !math.IsNaN(width[0]) || !math.IsNaN(position[1]) {
		t.Error("Expected NaN entries during warm-up")
	}

	// mean 102, population stddev sqrt(8/3)
	if got, want := width[2], 6.403894; got-want > 0.0001 || got-want < -0.0001 {
		t.Errorf("Expected width %f, got %f", want, got)
	}
	if got, want := position[2], 0.806186; got-want > 0.0001 || got-want < -0.0001 {
		t.Errorf("Expected position %f, got %f", want, got)
	}
}

func TestBollingerSeries_ZeroVariance(t *testing.T) {
	closes := []float64{100.0, 100.0, 100.0, 100.0}

	width, position, err := BollingerSeries(closes, 3, 2.0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := width[3]; got != 0.0 {
		t.Errorf("Expected zero width for a flat window, got %f", got)
	}
	if got := position[3]; got != 0.5 {
		t.Errorf("Expected neutral 0.5 position when bands collapse, got %f", got)
	}
}

func TestBollingerSeries_Errors(t *testing.T) {
	if _, _, err := BollingerSeries(nil, 3, 2.0); err == nil {
		t.Error("Expected error for empty series")
	}
	if _, _, err := BollingerSeries([]float64{1, 2, 3}, -1, 2.0); err == nil {
		t.Error("Expected error for non-positive period")
	}
}
