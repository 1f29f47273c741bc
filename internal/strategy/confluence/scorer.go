// Package confluence combines a snapshot's oscillator, band and volume
// features into two independent directional scores. The scorer is a pure
// per-snapshot function; missing features simply contribute nothing, so a
// degraded snapshot drifts toward a scoreless (no-entry) outcome instead of
// erroring.
package confluence

import (
	"ribbonBot/internal/domain"
)

// Score is the per-direction confluence pair. Both values are >= 0; the gap
// between them measures directional conviction.
type Score struct {
	LongScore  float64
	ShortScore float64
}

// Gap is the absolute difference between the two sides.
func (s Score) Gap() float64 {
	g := s.LongScore - s.ShortScore
	if g < 0 {
		return -g
	}
	return g
}

// Dominant returns the winning direction and its score. A tie resolves to
// short; callers rely on this when both sides score zero.
func (s Score) Dominant() (domain.Direction, float64) {
	if s.LongScore > s.ShortScore {
		return domain.Long, s.LongScore
	}
	return domain.Short, s.ShortScore
}

// Weights tune the contribution of each feature family.
type Weights struct {
	RSITrend      float64 // distance of RSI-14 from the 50 midline, per 10 points
	RSIAgreement  float64 // fast RSI agreeing with slow RSI
	StochCross    float64 // %K vs %D ordering
	StochExtreme  float64 // oversold/overbought reversal zones
	BandPosition  float64 // close sitting in the directional band half
	VolumeBacking float64 // elevated/spike volume behind a directional candle
}

// DefaultWeights returns the scoring weights used by the runners.
func DefaultWeights() Weights {
	return Weights{
		RSITrend:      1.0,
		RSIAgreement:  1.0,
		StochCross:    1.0,
		StochExtreme:  1.0,
		BandPosition:  1.0,
		VolumeBacking: 0.5,
	}
}

// Scorer computes confluence scores from snapshots.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer with the given weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the per-direction confluence for one snapshot.
func (s *Scorer) Score(snap *domain.Snapshot) Score {
	var sc Score

	// RSI-14 distance from the midline, capped at 3 weight units per side.
	if rsi, ok := snap.Oscillator(domain.OscRSI); ok {
		dist := (rsi - 50) / 10
		if dist > 3 {
			dist = 3
		} else if dist < -3 {
			dist = -3
		}
		if dist > 0 {
			sc.LongScore += dist * s.weights.RSITrend
		} else {
			sc.ShortScore += -dist * s.weights.RSITrend
		}

		// Fast RSI agreeing on the same side of the midline.
		if fast, ok := snap.Oscillator(domain.OscRSIFast); ok {
			if fast > 50 && rsi > 50 {
				sc.LongScore += s.weights.RSIAgreement
			} else if fast < 50 && rsi < 50 {
				sc.ShortScore += s.weights.RSIAgreement
			}
		}
	}

	// Stochastic ordering and reversal zones.
	k, okK := snap.Oscillator(domain.OscStochK)
	d, okD := snap.Oscillator(domain.OscStochD)
	if okK && okD {
		if k > d {
			sc.LongScore += s.weights.StochCross
		} else if k < d {
			sc.ShortScore += s.weights.StochCross
		}
		if k < 20 {
			sc.LongScore += s.weights.StochExtreme
		} else if k > 80 {
			sc.ShortScore += s.weights.StochExtreme
		}
	}

	// Band position: upper half backs longs, lower half backs shorts.
	if pos, ok := snap.Oscillator(domain.OscBandPosition); ok {
		if pos >= 0.6 {
			sc.LongScore += s.weights.BandPosition
		} else if pos <= 0.4 {
			sc.ShortScore += s.weights.BandPosition
		}
	}

	// Elevated volume behind a directional candle reinforces that side.
	if snap.VolumeStatus == domain.VolumeElevated || snap.VolumeStatus == domain.VolumeSpike {
		if snap.Close > snap.Open {
			sc.LongScore += s.weights.VolumeBacking
		} else if snap.Close < snap.Open {
			sc.ShortScore += s.weights.VolumeBacking
		}
	}

	return sc
}
