package confluence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ribbonBot/internal/domain"
)

func snapWithOsc(osc map[string]float64) *domain.Snapshot {
	return &domain.Snapshot{
		Open:         100,
		Close:        100,
		VolumeStatus: domain.VolumeNormal,
		Oscillators:  osc,
	}
}

func TestScorer_RSITrendCapped(t *testing.T) {
	s := NewScorer(DefaultWeights())

	tests := []struct {
		name          string
		rsi           float64
		expectedLong  float64
		expectedShort float64
	}{
		{"above midline", 65, 1.5, 0},
		{"below midline", 40, 0, 1.0},
		{"capped long", 95, 3.0, 0},
		{"capped short", 5, 0, 3.0},
		{"exactly midline", 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := s.Score(snapWithOsc(map[string]float64{domain.OscRSI: tt.rsi}))
			assert.InDelta(t, tt.expectedLong, sc.LongScore, 0.0001)
			assert.InDelta(t, tt.expectedShort, sc.ShortScore, 0.0001)
		})
	}
}

func TestScorer_FastRSIAgreement(t *testing.T) {
	s := NewScorer(DefaultWeights())

	// Both above the midline: agreement adds on top of the trend term.
	sc := s.Score(snapWithOsc(map[string]float64{
		domain.OscRSI:     60,
		domain.OscRSIFast: 70,
	}))
	assert.InDelta(t, 2.0, sc.LongScore, 0.0001) // 1.0 trend + 1.0 agreement

	// Fast RSI on the opposite side contributes nothing.
	sc = s.Score(snapWithOsc(map[string]float64{
		domain.OscRSI:     60,
		domain.OscRSIFast: 45,
	}))
	assert.InDelta(t, 1.0, sc.LongScore, 0.0001)

	// Fast RSI alone never scores; it only corroborates the slow one.
	sc = s.Score(snapWithOsc(map[string]float64{domain.OscRSIFast: 70}))
	assert.Equal(t, 0.0, sc.LongScore)
}

func TestScorer_Stochastic(t *testing.T) {
	s := NewScorer(DefaultWeights())

	// K above D backs longs.
	sc := s.Score(snapWithOsc(map[string]float64{
		domain.OscStochK: 60,
		domain.OscStochD: 50,
	}))
	assert.InDelta(t, 1.0, sc.LongScore, 0.0001)
	assert.Equal(t, 0.0, sc.ShortScore)

	// Oversold zone adds the extreme term to the long side even when K < D.
	sc = s.Score(snapWithOsc(map[string]float64{
		domain.OscStochK: 15,
		domain.OscStochD: 18,
	}))
	assert.InDelta(t, 1.0, sc.LongScore, 0.0001)  // extreme
	assert.InDelta(t, 1.0, sc.ShortScore, 0.0001) // cross

	// Overbought zone backs shorts.
	sc = s.Score(snapWithOsc(map[string]float64{
		domain.OscStochK: 85,
		domain.OscStochD: 80,
	}))
	assert.InDelta(t, 1.0, sc.LongScore, 0.0001)
	assert.InDelta(t, 1.0, sc.ShortScore, 0.0001)

	// A lone %K without %D is ignored.
	sc = s.Score(snapWithOsc(map[string]float64{domain.OscStochK: 85}))
	assert.Equal(t, 0.0, sc.LongScore+sc.ShortScore)
}

func TestScorer_BandPosition(t *testing.T) {
	s := NewScorer(DefaultWeights())

	sc := s.Score(snapWithOsc(map[string]float64{domain.OscBandPosition: 0.75}))
	assert.InDelta(t, 1.0, sc.LongScore, 0.0001)

	sc = s.Score(snapWithOsc(map[string]float64{domain.OscBandPosition: 0.25}))
	assert.InDelta(t, 1.0, sc.ShortScore, 0.0001)

	// The middle band is no-man's land.
	sc = s.Score(snapWithOsc(map[string]float64{domain.OscBandPosition: 0.5}))
	assert.Equal(t, 0.0, sc.LongScore+sc.ShortScore)
}

func TestScorer_VolumeBacking(t *testing.T) {
	s := NewScorer(DefaultWeights())

	bullish := &domain.Snapshot{Open: 100, Close: 102, VolumeStatus: domain.VolumeSpike}
	sc := s.Score(bullish)
	assert.InDelta(t, 0.5, sc.LongScore, 0.0001)

	bearish := &domain.Snapshot{Open: 102, Close: 100, VolumeStatus: domain.VolumeElevated}
	sc = s.Score(bearish)
	assert.InDelta(t, 0.5, sc.ShortScore, 0.0001)

	// Normal volume contributes nothing, nor does a doji on a spike.
	normal := &domain.Snapshot{Open: 100, Close: 102, VolumeStatus: domain.VolumeNormal}
	assert.Equal(t, 0.0, s.Score(normal).LongScore)
	doji := &domain.Snapshot{Open: 100, Close: 100, VolumeStatus: domain.VolumeSpike}
	assert.Equal(t, 0.0, s.Score(doji).LongScore+s.Score(doji).ShortScore)
}

func TestScore_GapAndDominant(t *testing.T) {
	sc := Score{LongScore: 4.5, ShortScore: 1.5}
	assert.InDelta(t, 3.0, sc.Gap(), 0.0001)
	dir, val := sc.Dominant()
	assert.Equal(t, domain.Long, dir)
	assert.Equal(t, 4.5, val)

	sc = Score{LongScore: 1.0, ShortScore: 2.0}
	assert.InDelta(t, 1.0, sc.Gap(), 0.0001)
	dir, val = sc.Dominant()
	assert.Equal(t, domain.Short, dir)
	assert.Equal(t, 2.0, val)

	// Ties resolve to short.
	dir, _ = Score{LongScore: 2.0, ShortScore: 2.0}.Dominant()
	assert.Equal(t, domain.Short, dir)
}

func TestScorer_EmptySnapshotScoresNothing(t *testing.T) {
	s := NewScorer(DefaultWeights())
	sc := s.Score(&domain.Snapshot{Open: 100, Close: 100})
	assert.Equal(t, 0.0, sc.LongScore)
	assert.Equal(t, 0.0, sc.ShortScore)
}
