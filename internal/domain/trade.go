package domain

import "time"

// Trade is the immutable record of a closed position. Appended to the trade
// log in entry-time order and never mutated after creation; this is the
// stable contract consumed by reporting and persistence.
type Trade struct {
	ID               int64 // assigned by the repository when persisted
	PositionID       int64 // identifier of the position this trade closed (optional)
	Symbol           string
	Direction        Direction
	EntryPrice       float64
	ExitPrice        float64
	Quantity         float64
	QualityScore     float64 // entry signal quality, [0,100]
	PNL              float64 // realized currency P&L
	PNLPct           float64 // realized percent P&L, signed favorable excursion at exit
	PeakFavorablePct float64 // best unrealized profit percent reached while open
	EntryTime        time.Time
	ExitTime         time.Time
	ExitReason       ExitReason
}

// HoldingTime is the duration the position was held.
func (t *Trade) HoldingTime() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}
