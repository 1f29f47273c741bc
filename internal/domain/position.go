package domain

import "time"

// Position represents the single live position held by the engine. It is
// mutable only while open; on close it is converted into an immutable Trade.
// PeakFavorablePct is the one piece of state carried between steps: the
// running maximum of favorable excursion, never decreasing while open.
type Position struct {
	ID           int64 // assigned by the repository when persisted
	Symbol       string
	Direction    Direction
	EntryPrice   float64
	Quantity     float64
	EntryTime    time.Time
	ExitPrice    float64
	ExitTime     time.Time
	Status       PositionStatus
	QualityScore float64 // entry signal quality at open, [0,100]

	PeakFavorablePct float64
	ExitReason       ExitReason
	PNL              float64 // realized P&L, set on close
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// FavorablePct returns the signed favorable-excursion percent of the
// position at the given price: positive when the price has moved in the
// held direction.
func (p *Position) FavorablePct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice * 100 * p.Direction.Sign()
}

// UpdatePeak advances the running peak favorable excursion. The peak is
// monotone: a lower current excursion never lowers it.
func (p *Position) UpdatePeak(currentPct float64) {
	if currentPct > p.PeakFavorablePct {
		p.PeakFavorablePct = currentPct
	}
}

// HoldingTime is the elapsed time since entry as of now.
func (p *Position) HoldingTime(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}
