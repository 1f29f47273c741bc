package ribbon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ribbonBot/internal/domain"
)

// alignedSnap builds a snapshot whose ribbon has the given green/red split,
// all lines at the same value so compression stays constant at 100.
func alignedSnap(greens, reds int) *domain.Snapshot {
	lines := make([]domain.RibbonLine, 0, greens+reds)
	for i := 0; i < greens; i++ {
		lines = append(lines, domain.RibbonLine{Period: 5 * (i + 1), Value: 100, Color: domain.RibbonGreen})
	}
	for i := 0; i < reds; i++ {
		lines = append(lines, domain.RibbonLine{Period: 5 * (greens + i + 1), Value: 100, Color: domain.RibbonRed})
	}
	return &domain.Snapshot{Close: 100, Ribbon: lines}
}

func valuedSnap(values []float64) *domain.Snapshot {
	lines := make([]domain.RibbonLine, len(values))
	for i, v := range values {
		lines[i] = domain.RibbonLine{Period: 5 * (i + 1), Value: v, Color: domain.RibbonGreen}
	}
	return &domain.Snapshot{Close: values[0], Ribbon: lines}
}

func TestNewTracker_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"long threshold not above short", func(c *Config) { c.FlipThresholdLong = 0.40 }},
		{"threshold outside unit range", func(c *Config) { c.FlipThresholdLong = 1.2 }},
		{"strong long below flip long", func(c *Config) { c.StrongAlignLong = 0.55 }},
		{"strong short above flip short", func(c *Config) { c.StrongAlignShort = 0.45 }},
		{"non-positive lookback", func(c *Config) { c.ExpansionLookback = 0 }},
		{"smoothing out of range", func(c *Config) { c.ExpansionSmoothing = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewTracker(cfg)
			assert.Error(t, err)
		})
	}

	_, err := NewTracker(DefaultConfig())
	assert.NoError(t, err)
}

func TestTracker_FirstEvaluateNeverFlips(t *testing.T) {
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)

	st := tracker.Evaluate(alignedSnap(18, 2)) // alignment 0.90
	assert.Equal(t, domain.FlipNone, st.Flip)
	assert.False(t, st.StrongBullish)
	assert.False(t, st.StrongBearish)
	assert.InDelta(t, 0.5, st.PrevAlignment, 0.0001)
	assert.InDelta(t, 0.9, st.AlignmentFraction, 0.0001)
}

func TestTracker_FlipOnCrossingOnly(t *testing.T) {
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)

	// 0.55 sits below the 0.60 long threshold.
	st := tracker.Evaluate(alignedSnap(11, 9))
	assert.Equal(t, domain.FlipNone, st.Flip)

	// Crossing 0.55 -> 0.65 fires the bullish flip.
	st = tracker.Evaluate(alignedSnap(13, 7))
	assert.Equal(t, domain.FlipBullish, st.Flip)
	assert.InDelta(t, 0.55, st.PrevAlignment, 0.0001)

	// Staying above the threshold is continuation, not a new flip.
	st = tracker.Evaluate(alignedSnap(13, 7))
	assert.Equal(t, domain.FlipNone, st.Flip)
}

func TestTracker_BearishFlip(t *testing.T) {
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)

	tracker.Evaluate(alignedSnap(10, 10)) // 0.50
	st := tracker.Evaluate(alignedSnap(7, 13))
	assert.Equal(t, domain.FlipBearish, st.Flip) // crossed 0.40 going down
}

func TestTracker_StrongFlagsRequireStrengthening(t *testing.T) {
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)

	tracker.Evaluate(alignedSnap(13, 7)) // 0.65
	st := tracker.Evaluate(alignedSnap(15, 5))
	assert.True(t, st.StrongBullish) // 0.75 and rising

	st = tracker.Evaluate(alignedSnap(15, 5))
	assert.False(t, st.StrongBullish) // 0.75 but flat

	tracker.Reset()
	tracker.Evaluate(alignedSnap(7, 13)) // 0.35
	st = tracker.Evaluate(alignedSnap(5, 15))
	assert.True(t, st.StrongBearish) // 0.25 and falling
}

func TestTracker_MissingRibbonIsNeutral(t *testing.T) {
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)

	tracker.Evaluate(alignedSnap(13, 7))
	st := tracker.Evaluate(&domain.Snapshot{Close: 100})
	assert.InDelta(t, 0.5, st.AlignmentFraction, 0.0001)
	assert.Equal(t, domain.FlipNone, st.Flip)
	assert.Equal(t, 0.0, st.CompressionScore)
	assert.False(t, st.StrongBullish)
}

func TestTracker_CompressionScore(t *testing.T) {
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)

	// All lines at one value: fully converged.
	st := tracker.Evaluate(valuedSnap([]float64{100, 100, 100}))
	assert.InDelta(t, 100.0, st.CompressionScore, 0.0001)

	tracker.Reset()
	// Spread equal to the median value: fully dispersed.
	st = tracker.Evaluate(valuedSnap([]float64{50, 100, 150}))
	assert.InDelta(t, 0.0, st.CompressionScore, 0.0001)

	tracker.Reset()
	// Spread 10 against median 100.
	st = tracker.Evaluate(valuedSnap([]float64{95, 100, 105}))
	assert.InDelta(t, 90.0, st.CompressionScore, 0.0001)
}

func TestTracker_ExpansionRate(t *testing.T) {
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)

	st := tracker.Evaluate(valuedSnap([]float64{100, 100, 100})) // compression 100
	assert.Equal(t, 0.0, st.ExpansionRate)

	// Compression drops to 90 over one step: raw rate +10, smoothed by 0.5.
	st = tracker.Evaluate(valuedSnap([]float64{95, 100, 105}))
	assert.InDelta(t, 5.0, st.ExpansionRate, 0.0001)
}

func TestTracker_Reset(t *testing.T) {
	tracker, err := NewTracker(DefaultConfig())
	require.NoError(t, err)

	tracker.Evaluate(alignedSnap(11, 9))
	tracker.Reset()

	// After a reset the next step is a first step again: no flip possible.
	st := tracker.Evaluate(alignedSnap(13, 7))
	assert.Equal(t, domain.FlipNone, st.Flip)
	assert.InDelta(t, 0.5, st.PrevAlignment, 0.0001)
}
