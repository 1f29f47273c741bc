// Package entry fuses the confluence scores, the ribbon state and the
// optional multi-timeframe confirmation into a single entry decision. The
// detector is a pure function: the only externally visible effect of an
// evaluation is the returned Signal.
package entry

import (
	"context"
	"fmt"

	"ribbonBot/internal/domain"
	"ribbonBot/internal/ports"
	"ribbonBot/internal/strategy/confluence"
	"ribbonBot/internal/strategy/mtf"
	"ribbonBot/internal/strategy/ribbon"
)

// Range is an inclusive accepted interval for an oscillator gate.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Config enumerates the entry gates and their thresholds.
type Config struct {
	RequireRibbonFlip bool

	ConfluenceGapMin   float64 // minimum |long-short| gap
	ConfluenceScoreMin float64 // minimum winning-side score

	EnableRSIGate     bool
	RSILong           Range
	RSIShort          Range
	EnableRSIFastGate bool
	RSIFastLong       Range
	RSIFastShort      Range
	EnableStochGate   bool
	StochLong         Range
	StochShort        Range

	VolumeAllowList []domain.VolumeStatus
	MinVolumeRatio  float64

	RequireMTFConfirmation bool

	MinQualityScore float64
}

// DefaultConfig returns the entry gate defaults. The confluence gates are
// intentionally loose so weak-edge signals still reach the quality gate.
func DefaultConfig() Config {
	return Config{
		RequireRibbonFlip:      true,
		ConfluenceGapMin:       0.1,
		ConfluenceScoreMin:     1.0,
		EnableRSIGate:          true,
		RSILong:                Range{Min: 35, Max: 75},
		RSIShort:               Range{Min: 25, Max: 65},
		EnableRSIFastGate:      false,
		RSIFastLong:            Range{Min: 30, Max: 85},
		RSIFastShort:           Range{Min: 15, Max: 70},
		EnableStochGate:        false,
		StochLong:              Range{Min: 10, Max: 85},
		StochShort:             Range{Min: 15, Max: 90},
		VolumeAllowList:        []domain.VolumeStatus{domain.VolumeNormal, domain.VolumeElevated, domain.VolumeSpike},
		MinVolumeRatio:         0.5,
		RequireMTFConfirmation: false,
		MinQualityScore:        50,
	}
}

// Signal is the entry decision for one snapshot. It is created fresh per
// evaluation and never observable half-built: a rejection carries only the
// reason, an acceptance carries the full direction/quality payload.
type Signal struct {
	Signal        bool
	Direction     domain.Direction
	QualityScore  float64 // [0,100]
	Confidence    float64 // [0,1]
	Reason        string
	FiltersPassed []string
}

// Detector evaluates entry gates in a fixed, short-circuiting order.
type Detector struct {
	cfg    Config
	logger ports.Logger
}

// NewDetector validates the gate configuration and returns a detector.
// Nonsensical thresholds are rejected here, never silently clamped.
func NewDetector(cfg Config, logger ports.Logger) (*Detector, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for entry detector")
	}
	if cfg.ConfluenceGapMin < 0 || cfg.ConfluenceScoreMin < 0 {
		return nil, fmt.Errorf("confluence thresholds cannot be negative")
	}
	if cfg.MinQualityScore < 0 || cfg.MinQualityScore > 100 {
		return nil, fmt.Errorf("min quality score must be within [0,100], got %.1f", cfg.MinQualityScore)
	}
	if cfg.MinVolumeRatio < 0 {
		return nil, fmt.Errorf("min volume ratio cannot be negative")
	}
	for _, r := range []Range{cfg.RSILong, cfg.RSIShort, cfg.RSIFastLong, cfg.RSIFastShort, cfg.StochLong, cfg.StochShort} {
		if r.Min > r.Max {
			return nil, fmt.Errorf("oscillator range min (%.1f) above max (%.1f)", r.Min, r.Max)
		}
	}
	if len(cfg.VolumeAllowList) == 0 {
		return nil, fmt.Errorf("volume allow-list cannot be empty")
	}
	return &Detector{cfg: cfg, logger: logger}, nil
}

// Evaluate runs the gate chain for one snapshot. mtfResult may be nil when
// multi-timeframe confirmation is disabled or no auxiliary data exists.
func (d *Detector) Evaluate(ctx context.Context, snap *domain.Snapshot, score confluence.Score, rs ribbon.State, mtfResult *mtf.Result) Signal {
	dir, winning := score.Dominant()
	passed := make([]string, 0, 8)
	flipBonus := 0.0

	// 1. Ribbon-flip gate: a fresh flip or a strengthening continuation in
	// the candidate direction.
	if d.cfg.RequireRibbonFlip {
		ok, bonus := flipSupports(rs, dir)
		if !ok {
			return d.reject(ctx, fmt.Sprintf("no ribbon flip or continuation toward %s (alignment %.2f)", dir, rs.AlignmentFraction))
		}
		flipBonus = bonus
		passed = append(passed, "ribbon_flip")
	}

	// 2. Ranging gate: only extreme compression combined with active
	// contraction blocks an entry; flips often precede visible expansion.
	if rs.CompressionScore > 95 && rs.ExpansionRate < -1.0 {
		return d.reject(ctx, fmt.Sprintf("ranging market: compression %.1f with contraction %.2f", rs.CompressionScore, rs.ExpansionRate))
	}
	passed = append(passed, "ranging")

	// 3. Confluence gap gate.
	if score.Gap() < d.cfg.ConfluenceGapMin {
		return d.reject(ctx, fmt.Sprintf("confluence gap %.2f below minimum %.2f", score.Gap(), d.cfg.ConfluenceGapMin))
	}
	passed = append(passed, "confluence_gap")

	// 4. Confluence floor gate.
	if winning < d.cfg.ConfluenceScoreMin {
		return d.reject(ctx, fmt.Sprintf("%s confluence %.2f below minimum %.2f", dir, winning, d.cfg.ConfluenceScoreMin))
	}
	passed = append(passed, "confluence_floor")

	// 5. Oscillator range gates, each independently togglable. A missing
	// oscillator passes its gate: degraded input drifts toward the other
	// gates, not toward a hard error.
	if d.cfg.EnableRSIGate {
		if v, ok := snap.Oscillator(domain.OscRSI); ok && !d.rangeFor(dir, d.cfg.RSILong, d.cfg.RSIShort).Contains(v) {
			return d.reject(ctx, fmt.Sprintf("rsi %.1f outside accepted %s range", v, dir))
		}
		passed = append(passed, "rsi_range")
	}
	if d.cfg.EnableRSIFastGate {
		if v, ok := snap.Oscillator(domain.OscRSIFast); ok && !d.rangeFor(dir, d.cfg.RSIFastLong, d.cfg.RSIFastShort).Contains(v) {
			return d.reject(ctx, fmt.Sprintf("fast rsi %.1f outside accepted %s range", v, dir))
		}
		passed = append(passed, "rsi_fast_range")
	}
	if d.cfg.EnableStochGate {
		if v, ok := snap.Oscillator(domain.OscStochK); ok && !d.rangeFor(dir, d.cfg.StochLong, d.cfg.StochShort).Contains(v) {
			return d.reject(ctx, fmt.Sprintf("stochastic %.1f outside accepted %s range", v, dir))
		}
		passed = append(passed, "stoch_range")
	}

	// 6. Volume gates: classification allow-list plus normalized ratio floor.
	if !volumeAllowed(snap.VolumeStatus, d.cfg.VolumeAllowList) {
		return d.reject(ctx, fmt.Sprintf("volume status %q not in allow-list", snap.VolumeStatus))
	}
	if ratio, ok := snap.Oscillator(domain.OscVolumeRatio); ok && ratio < d.cfg.MinVolumeRatio {
		return d.reject(ctx, fmt.Sprintf("volume ratio %.2f below minimum %.2f", ratio, d.cfg.MinVolumeRatio))
	}
	passed = append(passed, "volume")

	// 7. Multi-timeframe confirmation gate.
	if d.cfg.RequireMTFConfirmation {
		if mtfResult == nil {
			return d.reject(ctx, "multi-timeframe confirmation required but no auxiliary data")
		}
		if !mtfResult.Confirmed {
			return d.reject(ctx, fmt.Sprintf("multi-timeframe confirmation failed: %s", mtfResult.Reason))
		}
		passed = append(passed, "mtf")
	}

	// 8. Quality-score floor.
	quality := d.qualityScore(snap, score, dir)
	if quality < d.cfg.MinQualityScore {
		return d.reject(ctx, fmt.Sprintf("quality score %.1f below minimum %.1f", quality, d.cfg.MinQualityScore))
	}
	passed = append(passed, "quality")

	confidence := 0.5 + flipBonus + quality/400
	if confidence > 1 {
		confidence = 1
	}

	return Signal{
		Signal:        true,
		Direction:     dir,
		QualityScore:  quality,
		Confidence:    confidence,
		Reason:        fmt.Sprintf("%s entry: confluence %.2f/%.2f, quality %.1f", dir, score.LongScore, score.ShortScore, quality),
		FiltersPassed: passed,
	}
}

func (d *Detector) reject(ctx context.Context, reason string) Signal {
	d.logger.Debug(ctx, "entry rejected", map[string]interface{}{"reason": reason})
	return Signal{Signal: false, Direction: domain.None, Reason: reason}
}

func (d *Detector) rangeFor(dir domain.Direction, long, short Range) Range {
	if dir == domain.Short {
		return short
	}
	return long
}

// flipSupports reports whether the ribbon state backs the candidate
// direction, plus a confidence bonus proportional to alignment strength.
func flipSupports(rs ribbon.State, dir domain.Direction) (bool, float64) {
	switch dir {
	case domain.Long:
		if rs.Flip == domain.FlipBullish || rs.StrongBullish {
			return true, 0.25 * rs.AlignmentFraction
		}
	case domain.Short:
		if rs.Flip == domain.FlipBearish || rs.StrongBearish {
			return true, 0.25 * (1 - rs.AlignmentFraction)
		}
	}
	return false, 0
}

func volumeAllowed(status domain.VolumeStatus, allow []domain.VolumeStatus) bool {
	for _, s := range allow {
		if s == status {
			return true
		}
	}
	return false
}

// qualityScore is the bounded composite: confluence magnitude contributes up
// to 40 points, volume classification up to 20, oscillator-alignment flags
// up to 20, and a fixed baseline of 20.
func (d *Detector) qualityScore(snap *domain.Snapshot, score confluence.Score, dir domain.Direction) float64 {
	_, winning := score.Dominant()

	confluencePts := winning * 5
	if confluencePts > 40 {
		confluencePts = 40
	}

	var volumePts float64
	switch snap.VolumeStatus {
	case domain.VolumeSpike:
		volumePts = 20
	case domain.VolumeElevated:
		volumePts = 15
	case domain.VolumeNormal:
		volumePts = 10
	}

	var oscPts float64
	if v, ok := snap.Oscillator(domain.OscRSI); ok && d.rangeFor(dir, d.cfg.RSILong, d.cfg.RSIShort).Contains(v) {
		oscPts += 7
	}
	if v, ok := snap.Oscillator(domain.OscRSIFast); ok && d.rangeFor(dir, d.cfg.RSIFastLong, d.cfg.RSIFastShort).Contains(v) {
		oscPts += 7
	}
	if v, ok := snap.Oscillator(domain.OscStochK); ok && d.rangeFor(dir, d.cfg.StochLong, d.cfg.StochShort).Contains(v) {
		oscPts += 6
	}

	const baselinePts = 20.0

	total := confluencePts + volumePts + oscPts + baselinePts
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}
