package indicators

import (
	"math"
	"testing"
)

func TestSMASeries(t *testing.T) {
	values := []float64{100.0, 102.0, 101.0, 103.0, 104.0}

	series, err := SMASeries(values, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(series) != len(values) {
		t.Fatalf("Expected series of length %d, got %d", len(values), len(series))
	}

	// Warm-up entries are NaN.
	for i := 0; i < 2; i++ {
		if !math.IsNaN(series[i]) {
			t.Errorf("Expected NaN at warm-up index %d, got %f", i, series[i])
		}
	}

	expected := []float64{101.0, 102.0, 102.666667} // indexes 2..4
	for i, want := range expected {
		got := series[i+2]
		if got-want > 0.0001 || got-want < -0.0001 {
			t.Errorf("Expected value %f at index %d, got %f", want, i+2, got)
		}
	}
}

func TestEMASeries(t *testing.T) {
	values := []float64{100.0, 102.0, 101.0, 103.0, 104.0}

	series, err := EMASeries(values, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Seeded with the SMA of the first 3 values.
	if got, want := series[2], 101.0; got-want > 0.0001 || got-want < -0.0001 {
		t.Errorf("Expected seed %f, got %f", want, got)
	}
	// multiplier = 2/(3+1) = 0.5
	if got, want := series[3], 102.0; got-want > 0.0001 || got-want < -0.0001 {
		t.Errorf("Expected value %f at index 3, got %f", want, got)
	}
	if got, want := series[4], 103.0; got-want > 0.0001 || got-want < -0.0001 {
		t.Errorf("Expected value %f at index 4, got %f", want, got)
	}
	if !math.IsNaN(series[0]) || !math.IsNaN(series[1]) {
		t.Error("Expected NaN warm-up entries before index 2")
	}
}

func TestMovingAverage_Latest(t *testing.T) {
	values := []float64{100.0, 102.0, 101.0, 103.0, 104.0}

	tests := []struct {
		name          string
		fn            func([]float64, int) (float64, error)
		values        []float64
		period        int
		expectedValue float64
		expectError   bool
	}{
		{
			name:          "SMA with sufficient data",
			fn:            SMA,
			values:        values,
			period:        3,
			expectedValue: 102.666667, // (101 + 103 + 104) / 3
		},
		{
			name:          "EMA with sufficient data",
			fn:            EMA,
			values:        values,
			period:        3,
			expectedValue: 103.0,
		},
		{
			name:        "SMA insufficient data",
			fn:          SMA,
			values:      values,
			period:      6,
			expectError: true,
		},
		{
			name:        "EMA insufficient data",
			fn:          EMA,
			values:      values,
			period:      6,
			expectError: true,
		},
		{
			name:        "non-positive period",
			fn:          SMA,
			values:      values,
			period:      0,
			expectError: true,
		},
		{
			name:        "empty series",
			fn:          EMA,
			values:      nil,
			period:      3,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := tt.fn(tt.values, tt.period)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			// Allow for small floating point differences
			if value-tt.expectedValue > 0.0001 || value-tt.expectedValue < -0.0001 {
				t.Errorf("Expected value %f, got %f", tt.expectedValue, value)
			}
		})
	}
}
