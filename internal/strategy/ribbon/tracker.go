// Package ribbon derives the ribbon regime (alignment, compression,
// expansion, flips) from the raw ribbon lines of consecutive snapshots.
package ribbon

import (
	"fmt"
	"sort"

	"ribbonBot/internal/domain"
)

// Config holds the tracker thresholds.
type Config struct {
	FlipThresholdLong  float64 // alignment at/above this flips bullish, e.g. 0.60
	FlipThresholdShort float64 // alignment at/below this flips bearish, e.g. 0.40
	StrongAlignLong    float64 // strong-alignment continuation floor, e.g. 0.70
	StrongAlignShort   float64 // strong-alignment continuation ceiling, e.g. 0.30
	ExpansionLookback  int     // compression delta lookback in steps, e.g. 3
	ExpansionSmoothing float64 // EMA factor applied to the expansion rate, (0,1]
}

// DefaultConfig returns the tracker defaults.
func DefaultConfig() Config {
	return Config{
		FlipThresholdLong:  0.60,
		FlipThresholdShort: 0.40,
		StrongAlignLong:    0.70,
		StrongAlignShort:   0.30,
		ExpansionLookback:  3,
		ExpansionSmoothing: 0.5,
	}
}

// State is the derived ribbon regime for one step.
type State struct {
	AlignmentFraction float64         // share of non-neutral lines that are green, [0,1]
	CompressionScore  float64         // 100 = fully converged, [0,100]
	ExpansionRate     float64         // signed; positive means lines are spreading
	Flip              domain.FlipType // set only on the crossing step
	StrongBullish     bool            // alignment >= StrongAlignLong and strengthening
	StrongBearish     bool            // alignment <= StrongAlignShort and strengthening
	PrevAlignment     float64         // previous step's alignment, 0.5 on the first step
}

// Tracker holds the one-step memory between evaluations: the previous
// alignment fraction plus a short compression history for the expansion
// rate. It is the only stateful component outside the simulator.
type Tracker struct {
	cfg Config

	hasPrev       bool
	prevAlignment float64
	compressions  []float64
	smoothedRate  float64
}

// NewTracker validates the configuration and returns a fresh tracker.
func NewTracker(cfg Config) (*Tracker, error) {
	if cfg.FlipThresholdLong <= cfg.FlipThresholdShort {
		return nil, fmt.Errorf("flip threshold long (%.2f) must be above flip threshold short (%.2f)", cfg.FlipThresholdLong, cfg.FlipThresholdShort)
	}
	if cfg.FlipThresholdLong > 1 || cfg.FlipThresholdShort < 0 {
		return nil, fmt.Errorf("flip thresholds must lie within [0,1]")
	}
	if cfg.StrongAlignLong < cfg.FlipThresholdLong || cfg.StrongAlignShort > cfg.FlipThresholdShort {
		return nil, fmt.Errorf("strong-alignment thresholds must sit beyond the flip thresholds")
	}
	if cfg.ExpansionLookback <= 0 {
		return nil, fmt.Errorf("expansion lookback must be positive")
	}
	if cfg.ExpansionSmoothing <= 0 || cfg.ExpansionSmoothing > 1 {
		return nil, fmt.Errorf("expansion smoothing must be in (0,1]")
	}
	return &Tracker{cfg: cfg}, nil
}

// Reset clears the tracker's memory so it can drive a new sequence.
func (t *Tracker) Reset() {
	t.hasPrev = false
	t.prevAlignment = 0
	t.compressions = t.compressions[:0]
	t.smoothedRate = 0
}

// Evaluate derives the ribbon state for the current snapshot and advances
// the tracker's one-step memory. Missing ribbon data yields the neutral
// default (alignment 0.5, compression 0, no flip); it is never an error.
func (t *Tracker) Evaluate(snap *domain.Snapshot) State {
	alignment, hasRibbon := alignmentFraction(snap)
	compression := compressionScore(snap)

	st := State{
		AlignmentFraction: alignment,
		CompressionScore:  compression,
		Flip:              domain.FlipNone,
		PrevAlignment:     0.5,
	}

	if t.hasPrev {
		st.PrevAlignment = t.prevAlignment
		if hasRibbon {
			st.Flip = t.detectFlip(alignment)
			st.StrongBullish = alignment >= t.cfg.StrongAlignLong && alignment > t.prevAlignment
			st.StrongBearish = alignment <= t.cfg.StrongAlignShort && alignment < t.prevAlignment
		}
	}

	st.ExpansionRate = t.updateExpansion(compression)

	t.prevAlignment = alignment
	t.hasPrev = true
	return st
}

func (t *Tracker) detectFlip(alignment float64) domain.FlipType {
	if t.prevAlignment < t.cfg.FlipThresholdLong && alignment >= t.cfg.FlipThresholdLong {
		return domain.FlipBullish
	}
	if t.prevAlignment > t.cfg.FlipThresholdShort && alignment <= t.cfg.FlipThresholdShort {
		return domain.FlipBearish
	}
	return domain.FlipNone
}

// updateExpansion maintains the compression history and returns the smoothed
// expansion rate: the negated delta of compression over the lookback,
// exponentially damped. Rising compression (converging lines) yields a
// negative rate.
func (t *Tracker) updateExpansion(compression float64) float64 {
	t.compressions = append(t.compressions, compression)
	maxHist := t.cfg.ExpansionLookback + 1
	if len(t.compressions) > maxHist {
		t.compressions = t.compressions[len(t.compressions)-maxHist:]
	}
	if len(t.compressions) < 2 {
		return 0
	}
	oldest := t.compressions[0]
	steps := float64(len(t.compressions) - 1)
	raw := -(compression - oldest) / steps
	t.smoothedRate = t.cfg.ExpansionSmoothing*raw + (1-t.cfg.ExpansionSmoothing)*t.smoothedRate
	return t.smoothedRate
}

// alignmentFraction is the share of green lines among the green and red
// lines; neutral reference lines are excluded. The second return reports
// whether any countable lines exist.
func alignmentFraction(snap *domain.Snapshot) (float64, bool) {
	greens, reds := 0, 0
	for _, line := range snap.Ribbon {
		switch line.Color {
		case domain.RibbonGreen:
			greens++
		case domain.RibbonRed:
			reds++
		}
	}
	if greens+reds == 0 {
		return 0.5, false
	}
	return float64(greens) / float64(greens+reds), true
}

// compressionScore is 100*(1 - min(spread/median, 1)): 100 when all lines
// have converged to a point, 0 when the spread reaches the median value.
func compressionScore(snap *domain.Snapshot) float64 {
	if len(snap.Ribbon) == 0 {
		return 0
	}
	values := make([]float64, len(snap.Ribbon))
	for i, line := range snap.Ribbon {
		values[i] = line.Value
	}
	sort.Float64s(values)

	spread := values[len(values)-1] - values[0]
	median := values[len(values)/2]
	if len(values)%2 == 0 {
		median = (values[len(values)/2-1] + values[len(values)/2]) / 2
	}
	if median <= 0 {
		return 0
	}
	ratio := spread / median
	if ratio > 1 {
		ratio = 1
	}
	return 100 * (1 - ratio)
}
