// Package risk gates what the live service may open. The backtest simulator
// never consults it; its single-position invariant is structural.
package risk

import (
	"fmt"
	"time"
)

// Config holds the live-trading risk limits.
type Config struct {
	MaxPositionSizeFraction float64 // hard cap on the stake fraction per trade
	MaxDailyLossFraction    float64 // daily realized loss limit as fraction of balance
	MaxDailyTrades          int
	MinAvailableBalance     float64 // trading halts below this balance
}

// Manager tracks daily realized results and validates new entries against
// the configured limits.
type Manager struct {
	cfg Config

	dailyPnL    float64
	dailyTrades int
	currentDay  time.Time
}

// NewManager validates the limits and returns a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.MaxPositionSizeFraction <= 0 || cfg.MaxPositionSizeFraction > 1 {
		return nil, fmt.Errorf("max position size fraction must be in (0,1], got %.4f", cfg.MaxPositionSizeFraction)
	}
	if cfg.MaxDailyLossFraction <= 0 || cfg.MaxDailyLossFraction >= 1 {
		return nil, fmt.Errorf("max daily loss fraction must be in (0,1), got %.4f", cfg.MaxDailyLossFraction)
	}
	if cfg.MaxDailyTrades <= 0 {
		return nil, fmt.Errorf("max daily trades must be positive, got %d", cfg.MaxDailyTrades)
	}
	if cfg.MinAvailableBalance < 0 {
		return nil, fmt.Errorf("min available balance cannot be negative")
	}
	return &Manager{cfg: cfg}, nil
}

// CanOpen reports whether a new position of the given stake may be opened
// now against the given available balance.
func (m *Manager) CanOpen(now time.Time, balance, stake float64) error {
	m.rollDay(now)

	if balance < m.cfg.MinAvailableBalance {
		return fmt.Errorf("available balance %.2f below minimum %.2f", balance, m.cfg.MinAvailableBalance)
	}
	if balance > 0 && stake/balance > m.cfg.MaxPositionSizeFraction {
		return fmt.Errorf("stake %.2f exceeds %.1f%% of balance %.2f", stake, m.cfg.MaxPositionSizeFraction*100, balance)
	}
	if m.dailyTrades >= m.cfg.MaxDailyTrades {
		return fmt.Errorf("daily trade count %d reached limit %d", m.dailyTrades, m.cfg.MaxDailyTrades)
	}
	if m.dailyPnL < -m.cfg.MaxDailyLossFraction*balance {
		return fmt.Errorf("daily loss %.2f exceeds limit %.2f", -m.dailyPnL, m.cfg.MaxDailyLossFraction*balance)
	}
	return nil
}

// RecordTrade feeds a realized result into the daily counters.
func (m *Manager) RecordTrade(closedAt time.Time, pnl float64) {
	m.rollDay(closedAt)
	m.dailyPnL += pnl
	m.dailyTrades++
}

// DailyPnL returns the realized P&L accumulated today.
func (m *Manager) DailyPnL() float64 {
	return m.dailyPnL
}

func (m *Manager) rollDay(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if !day.Equal(m.currentDay) {
		m.currentDay = day
		m.dailyPnL = 0
		m.dailyTrades = 0
	}
}
