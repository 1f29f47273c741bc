// Package exit decides when an open position should be closed. The policy
// is an ordered list of (predicate, reason) rules evaluated in a fixed,
// test-visible priority order: priority is data, not buried control flow.
package exit

import (
	"fmt"
	"time"

	"ribbonBot/internal/domain"
)

// TrailingTier widens the allowed trail for larger runs: the widest tier
// whose MinPeakPct the peak has reached supplies the width.
type TrailingTier struct {
	MinPeakPct float64
	WidthPct   float64
}

// Config holds the exit thresholds. All percent values are expressed in
// percent units (1.5 means 1.5%).
type Config struct {
	TakeProfitPct         float64
	StopLossPct           float64 // positive; the rule fires at -StopLossPct
	ProfitLockPct         float64 // peak threshold arming the profit-lock rule
	TrailingActivationPct float64 // peak floor that activates the trailing stop
	TrailingWidthPct      float64 // base trail width
	TrailingTiers         []TrailingTier // optional, ordered by MinPeakPct ascending
	MaxHoldDuration       time.Duration
}

// DefaultConfig returns the exit defaults used by the runners.
func DefaultConfig() Config {
	return Config{
		TakeProfitPct:         3.0,
		StopLossPct:           1.5,
		ProfitLockPct:         1.0,
		TrailingActivationPct: 0.5,
		TrailingWidthPct:      0.6,
		TrailingTiers: []TrailingTier{
			{MinPeakPct: 2.0, WidthPct: 1.0},
			{MinPeakPct: 4.0, WidthPct: 1.6},
		},
		MaxHoldDuration: 8 * time.Hour,
	}
}

// Decision is the outcome of one exit evaluation. Not persisted; the
// simulator converts an exiting position into a Trade.
type Decision struct {
	ShouldExit  bool
	Reason      domain.ExitReason
	ExitPrice   float64
	RealizedPct float64
}

// ruleInput is the per-step context the rules see.
type ruleInput struct {
	currentPct float64
	peakPct    float64
	holding    time.Duration
}

// rule pairs an exit reason with its predicate.
type rule struct {
	reason domain.ExitReason
	match  func(in ruleInput) bool
}

// Policy evaluates the exit rules for an open position.
type Policy struct {
	cfg   Config
	rules []rule
}

// NewPolicy validates the thresholds and builds the ordered rule list:
// take-profit, stop-loss, profit-lock, trailing stop, time exit.
func NewPolicy(cfg Config) (*Policy, error) {
	if cfg.TakeProfitPct <= 0 {
		return nil, fmt.Errorf("take-profit percent must be positive, got %.2f", cfg.TakeProfitPct)
	}
	if cfg.StopLossPct <= 0 {
		return nil, fmt.Errorf("stop-loss percent must be positive, got %.2f", cfg.StopLossPct)
	}
	if cfg.ProfitLockPct <= 0 {
		return nil, fmt.Errorf("profit-lock percent must be positive, got %.2f", cfg.ProfitLockPct)
	}
	if cfg.TrailingActivationPct < 0 || cfg.TrailingWidthPct <= 0 {
		return nil, fmt.Errorf("trailing parameters must be positive")
	}
	for i, tier := range cfg.TrailingTiers {
		if tier.MinPeakPct <= 0 || tier.WidthPct <= 0 {
			return nil, fmt.Errorf("trailing tier %d must have positive thresholds", i)
		}
		if i > 0 && tier.MinPeakPct <= cfg.TrailingTiers[i-1].MinPeakPct {
			return nil, fmt.Errorf("trailing tiers must be ordered by ascending peak threshold")
		}
	}
	if cfg.MaxHoldDuration <= 0 {
		return nil, fmt.Errorf("max hold duration must be positive")
	}

	p := &Policy{cfg: cfg}
	p.rules = []rule{
		{domain.ExitTakeProfit, func(in ruleInput) bool {
			return in.currentPct >= cfg.TakeProfitPct
		}},
		{domain.ExitStopLoss, func(in ruleInput) bool {
			return in.currentPct <= -cfg.StopLossPct
		}},
		{domain.ExitProfitLock, func(in ruleInput) bool {
			return in.peakPct >= cfg.ProfitLockPct && in.currentPct <= 0
		}},
		{domain.ExitTrailingStop, func(in ruleInput) bool {
			return in.peakPct >= cfg.TrailingActivationPct && in.currentPct < in.peakPct-p.trailingWidth(in.peakPct)
		}},
		{domain.ExitTimeLimit, func(in ruleInput) bool {
			return in.holding >= cfg.MaxHoldDuration
		}},
	}
	return p, nil
}

// Rules exposes the priority order for inspection and tests.
func (p *Policy) Rules() []domain.ExitReason {
	reasons := make([]domain.ExitReason, len(p.rules))
	for i, r := range p.rules {
		reasons[i] = r.reason
	}
	return reasons
}

// Evaluate advances the position's peak favorable excursion and applies the
// rules in priority order, first match wins. Pure function of (position,
// snapshot, config); exit is always at the snapshot's closing price, with
// no intrabar modeling.
func (p *Policy) Evaluate(pos *domain.Position, snap *domain.Snapshot) Decision {
	currentPct := pos.FavorablePct(snap.Close)
	pos.UpdatePeak(currentPct)

	in := ruleInput{
		currentPct: currentPct,
		peakPct:    pos.PeakFavorablePct,
		holding:    snap.Timestamp.Sub(pos.EntryTime),
	}
	for _, r := range p.rules {
		if r.match(in) {
			return Decision{
				ShouldExit:  true,
				Reason:      r.reason,
				ExitPrice:   snap.Close,
				RealizedPct: currentPct,
			}
		}
	}
	return Decision{ExitPrice: snap.Close, RealizedPct: currentPct}
}

// trailingWidth returns the widest tier the peak has reached, falling back
// to the base width.
func (p *Policy) trailingWidth(peakPct float64) float64 {
	width := p.cfg.TrailingWidthPct
	for _, tier := range p.cfg.TrailingTiers {
		if peakPct >= tier.MinPeakPct {
			width = tier.WidthPct
		}
	}
	return width
}
