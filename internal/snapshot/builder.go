// Package snapshot turns raw kline series into the per-candle Snapshot
// records the decision engine consumes. The builder is the batch
// "precompute all derived fields" pass: every indicator is computed as a
// whole-sequence vector operation here, so the simulator downstream stays a
// strictly sequential fold with no indicator math of its own.
package snapshot

import (
	"fmt"
	"math"

	"ribbonBot/internal/domain"
	"ribbonBot/internal/strategy/indicators"
)

// Config holds the periods and thresholds for snapshot construction.
type Config struct {
	RibbonPeriods []int // EMA periods of the ribbon lines, ascending

	RSIPeriod     int // e.g., 14
	RSIFastPeriod int // e.g., 7

	StochPeriod  int // e.g., 14
	StochSmoothK int // e.g., 3
	StochSmoothD int // e.g., 3

	BandPeriod  int     // e.g., 20
	BandStdDevs float64 // e.g., 2.0

	VolumePeriod       int     // lookback for the volume baseline, e.g., 20
	VolumeLowRatio     float64 // below this multiple of baseline -> low
	VolumeElevatedRate float64 // at/above this multiple -> elevated
	VolumeSpikeRatio   float64 // at/above this multiple -> spike

	// RibbonNeutralBand is the fractional distance from the close within
	// which a ribbon line is tagged neutral instead of green/red.
	RibbonNeutralBand float64
}

// DefaultRibbonPeriods returns the standard 35-line ribbon: EMA periods
// 5, 10, ..., 175.
func DefaultRibbonPeriods() []int {
	periods := make([]int, 0, 35)
	for p := 5; p <= 175; p += 5 {
		periods = append(periods, p)
	}
	return periods
}

// DefaultConfig returns the builder configuration used by the runners.
func DefaultConfig() Config {
	return Config{
		RibbonPeriods:      DefaultRibbonPeriods(),
		RSIPeriod:          14,
		RSIFastPeriod:      7,
		StochPeriod:        14,
		StochSmoothK:       3,
		StochSmoothD:       3,
		BandPeriod:         20,
		BandStdDevs:        2.0,
		VolumePeriod:       20,
		VolumeLowRatio:     0.5,
		VolumeElevatedRate: 1.5,
		VolumeSpikeRatio:   2.5,
		RibbonNeutralBand:  0.0005,
	}
}

// Builder precomputes snapshots from klines.
type Builder struct {
	cfg Config
}

// NewBuilder validates the configuration and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if len(cfg.RibbonPeriods) == 0 {
		return nil, fmt.Errorf("at least one ribbon period is required")
	}
	for _, p := range cfg.RibbonPeriods {
		if p <= 0 {
			return nil, fmt.Errorf("ribbon periods must be positive, got %d", p)
		}
	}
	if cfg.RSIPeriod <= 0 || cfg.RSIFastPeriod <= 0 || cfg.StochPeriod <= 0 || cfg.BandPeriod <= 0 || cfg.VolumePeriod <= 0 {
		return nil, fmt.Errorf("indicator periods must be positive")
	}
	if cfg.VolumeLowRatio >= cfg.VolumeElevatedRate || cfg.VolumeElevatedRate >= cfg.VolumeSpikeRatio {
		return nil, fmt.Errorf("volume ratio thresholds must be ordered low < elevated < spike")
	}
	return &Builder{cfg: cfg}, nil
}

// Build converts a kline series into a snapshot series of the same length.
// Snapshots covering warm-up indexes simply omit the not-yet-computable
// oscillator keys and carry an empty ribbon; consumers degrade to their
// neutral defaults.
func (b *Builder) Build(klines []*domain.Kline) ([]*domain.Snapshot, error) {
	if len(klines) == 0 {
		return nil, nil
	}

	n := len(klines)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, k := range klines {
		closes[i] = k.Close
		highs[i] = k.High
		lows[i] = k.Low
		volumes[i] = k.Volume
	}

	rsi, err := indicators.RSISeries(closes, b.cfg.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("rsi series: %w", err)
	}
	rsiFast, err := indicators.RSISeries(closes, b.cfg.RSIFastPeriod)
	if err != nil {
		return nil, fmt.Errorf("fast rsi series: %w", err)
	}
	stochK, stochD, err := indicators.StochasticSeries(highs, lows, closes, b.cfg.StochPeriod, b.cfg.StochSmoothK, b.cfg.StochSmoothD)
	if err != nil {
		return nil, fmt.Errorf("stochastic series: %w", err)
	}
	bandWidth, bandPos, err := indicators.BollingerSeries(closes, b.cfg.BandPeriod, b.cfg.BandStdDevs)
	if err != nil {
		return nil, fmt.Errorf("bollinger series: %w", err)
	}
	volBase, err := indicators.SMASeries(volumes, b.cfg.VolumePeriod)
	if err != nil {
		return nil, fmt.Errorf("volume baseline: %w", err)
	}

	ribbonSeries := make([][]float64, len(b.cfg.RibbonPeriods))
	for i, p := range b.cfg.RibbonPeriods {
		series, err := indicators.EMASeries(closes, p)
		if err != nil {
			return nil, fmt.Errorf("ribbon ema %d: %w", p, err)
		}
		ribbonSeries[i] = series
	}

	snaps := make([]*domain.Snapshot, n)
	for i, k := range klines {
		osc := make(map[string]float64, 8)
		setIfValid(osc, domain.OscRSI, rsi[i])
		setIfValid(osc, domain.OscRSIFast, rsiFast[i])
		setIfValid(osc, domain.OscStochK, stochK[i])
		setIfValid(osc, domain.OscStochD, stochD[i])
		setIfValid(osc, domain.OscBandWidth, bandWidth[i])
		setIfValid(osc, domain.OscBandPosition, bandPos[i])

		status := domain.VolumeNormal
		if indicators.Valid(volBase[i]) && volBase[i] > 0 {
			ratio := k.Volume / volBase[i]
			osc[domain.OscVolumeRatio] = ratio
			status = b.classifyVolume(ratio)
		}

		snaps[i] = &domain.Snapshot{
			Timestamp:    k.OpenTime,
			Open:         k.Open,
			High:         k.High,
			Low:          k.Low,
			Close:        k.Close,
			Volume:       k.Volume,
			Oscillators:  osc,
			VolumeStatus: status,
			Ribbon:       b.buildRibbon(ribbonSeries, i, k.Close),
		}
	}
	return snaps, nil
}

func (b *Builder) buildRibbon(series [][]float64, idx int, close float64) []domain.RibbonLine {
	lines := make([]domain.RibbonLine, 0, len(series))
	for i, p := range b.cfg.RibbonPeriods {
		v := series[i][idx]
		if !indicators.Valid(v) {
			continue
		}
		lines = append(lines, domain.RibbonLine{
			Period: p,
			Value:  v,
			Color:  b.colorLine(v, close),
		})
	}
	return lines
}

func (b *Builder) colorLine(value, close float64) domain.RibbonColor {
	if close == 0 {
		return domain.RibbonNeutral
	}
	if math.Abs(close-value)/close <= b.cfg.RibbonNeutralBand {
		return domain.RibbonNeutral
	}
	if close > value {
		return domain.RibbonGreen
	}
	return domain.RibbonRed
}

func (b *Builder) classifyVolume(ratio float64) domain.VolumeStatus {
	switch {
	case ratio >= b.cfg.VolumeSpikeRatio:
		return domain.VolumeSpike
	case ratio >= b.cfg.VolumeElevatedRate:
		return domain.VolumeElevated
	case ratio < b.cfg.VolumeLowRatio:
		return domain.VolumeLow
	default:
		return domain.VolumeNormal
	}
}

func setIfValid(osc map[string]float64, key string, v float64) {
	if indicators.Valid(v) {
		osc[key] = v
	}
}
