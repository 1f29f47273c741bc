// Package mtf checks whether auxiliary, coarser or finer timeframe series
// agree with a candidate entry direction before the primary-timeframe signal
// is accepted.
package mtf

import (
	"fmt"
	"time"

	"ribbonBot/internal/domain"
	"ribbonBot/internal/strategy/indicators"
)

// Label classifies a timeframe's relationship to the candidate direction.
type Label string

const (
	Aligned  Label = "aligned"
	Neutral  Label = "neutral"
	Opposing Label = "opposing"
)

// Series is one auxiliary timeframe's snapshot sequence, time-ascending.
type Series struct {
	Timeframe string
	Snapshots []*domain.Snapshot
}

// Assessment is the per-timeframe verdict.
type Assessment struct {
	Timeframe string
	Trend     Label
	Momentum  Label
}

// Result is the confirmation outcome. Confirmation requires no timeframe
// labeled opposing and at least one labeled aligned on trend.
type Result struct {
	Confirmed   bool
	Score       float64 // [0,1]
	Assessments []Assessment
	Reason      string
}

// Config holds the confirmer parameters.
type Config struct {
	FastPeriod int // fast MA over aux closes, e.g. 9
	SlowPeriod int // slow MA over aux closes, e.g. 21
	Window     int // max records inspected per timeframe, e.g. 50
}

// DefaultConfig returns the confirmer defaults.
func DefaultConfig() Config {
	return Config{FastPeriod: 9, SlowPeriod: 21, Window: 50}
}

// Confirmer classifies auxiliary-timeframe agreement.
type Confirmer struct {
	cfg Config
}

// NewConfirmer validates the configuration and returns a Confirmer.
func NewConfirmer(cfg Config) (*Confirmer, error) {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		return nil, fmt.Errorf("MA periods must be positive")
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("fast period (%d) must be below slow period (%d)", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}
	return &Confirmer{cfg: cfg}, nil
}

// Confirm assesses each auxiliary series against the candidate direction as
// of the decision timestamp. Missing or empty series degrade to "not
// confirmed" rather than erroring.
func (c *Confirmer) Confirm(ts time.Time, dir domain.Direction, series ...Series) Result {
	if dir != domain.Long && dir != domain.Short {
		return Result{Reason: "no candidate direction"}
	}

	res := Result{Assessments: make([]Assessment, 0, len(series))}
	anyAligned := false
	anyOpposing := false
	labelSum := 0.0
	labelCount := 0

	for _, s := range series {
		window := c.window(s.Snapshots, ts)
		if len(window) == 0 {
			continue
		}
		a := Assessment{
			Timeframe: s.Timeframe,
			Trend:     c.classifyTrend(window, dir),
			Momentum:  c.classifyMomentum(window, dir),
		}
		res.Assessments = append(res.Assessments, a)

		if a.Trend == Aligned {
			anyAligned = true
		}
		if a.Trend == Opposing || a.Momentum == Opposing {
			anyOpposing = true
		}
		labelSum += labelValue(a.Trend) + labelValue(a.Momentum)
		labelCount += 2
	}

	if labelCount == 0 {
		res.Reason = "no auxiliary timeframe data"
		return res
	}
	res.Score = labelSum / float64(labelCount)

	switch {
	case anyOpposing:
		res.Reason = "opposing auxiliary timeframe"
	case !anyAligned:
		res.Reason = "no auxiliary timeframe strictly aligned"
	default:
		res.Confirmed = true
		res.Reason = "auxiliary timeframes agree"
	}
	return res
}

// window selects the recent records ending at or just after the decision
// timestamp, never looking further ahead than a single record.
func (c *Confirmer) window(snaps []*domain.Snapshot, ts time.Time) []*domain.Snapshot {
	cut := 0
	for cut < len(snaps) && !snaps[cut].Timestamp.After(ts) {
		cut++
	}
	if cut == 0 {
		if len(snaps) == 0 {
			return nil
		}
		cut = 1 // the first record closes just after the decision time
	}
	start := cut - c.cfg.Window
	if start < 0 {
		start = 0
	}
	return snaps[start:cut]
}

// classifyTrend uses fast/slow MA ordering relative to price; when the
// window is too short for the slow MA it falls back to the recent price
// direction.
func (c *Confirmer) classifyTrend(window []*domain.Snapshot, dir domain.Direction) Label {
	closes := make([]float64, len(window))
	for i, s := range window {
		closes[i] = s.Close
	}
	price := closes[len(closes)-1]

	var bullish, bearish bool
	if len(closes) >= c.cfg.SlowPeriod {
		fast, errF := indicators.SMA(closes, c.cfg.FastPeriod)
		slow, errS := indicators.SMA(closes, c.cfg.SlowPeriod)
		if errF == nil && errS == nil {
			bullish = price > fast && fast > slow
			bearish = price < fast && fast < slow
		}
	} else {
		// Fallback: direction of the last few closes.
		lookback := len(closes) - 1
		if lookback > 5 {
			lookback = 5
		}
		if lookback > 0 {
			ref := closes[len(closes)-1-lookback]
			bullish = price > ref
			bearish = price < ref
		}
	}
	return toLabel(bullish, bearish, dir)
}

// classifyMomentum uses the RSI position when available, otherwise a
// higher-highs/higher-lows pattern over the last three records.
func (c *Confirmer) classifyMomentum(window []*domain.Snapshot, dir domain.Direction) Label {
	last := window[len(window)-1]
	if rsi, ok := last.Oscillator(domain.OscRSI); ok {
		rising := true
		if len(window) >= 2 {
			if prev, ok := window[len(window)-2].Oscillator(domain.OscRSI); ok {
				rising = rsi >= prev
			}
		}
		bullish := rsi > 55 && rising
		bearish := rsi < 45 && !rising
		return toLabel(bullish, bearish, dir)
	}

	if len(window) < 3 {
		return Neutral
	}
	a, b, cSnap := window[len(window)-3], window[len(window)-2], window[len(window)-1]
	higherHighs := cSnap.High > b.High && b.High > a.High
	higherLows := cSnap.Low > b.Low && b.Low > a.Low
	lowerHighs := cSnap.High < b.High && b.High < a.High
	lowerLows := cSnap.Low < b.Low && b.Low < a.Low
	return toLabel(higherHighs && higherLows, lowerHighs && lowerLows, dir)
}

func toLabel(bullish, bearish bool, dir domain.Direction) Label {
	var favored, against bool
	if dir == domain.Long {
		favored, against = bullish, bearish
	} else {
		favored, against = bearish, bullish
	}
	switch {
	case favored:
		return Aligned
	case against:
		return Opposing
	default:
		return Neutral
	}
}

func labelValue(l Label) float64 {
	switch l {
	case Aligned:
		return 1
	case Opposing:
		return 0
	default:
		return 0.5
	}
}
