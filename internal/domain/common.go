package domain

// Direction is the side of a trade. Keeping it a closed two-variant enum
// (plus the explicit "none") avoids the open-string comparisons that plagued
// earlier revisions of the entry logic.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
	None  Direction = "none"
)

// Sign returns +1 for long, -1 for short, 0 otherwise.
func (d Direction) Sign() float64 {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	default:
		return 0
	}
}

// OrderSide represents the side of an order on the venue (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// EntrySide maps a trade direction to the venue order side that opens it.
func (d Direction) EntrySide() OrderSide {
	if d == Short {
		return Sell
	}
	return Buy
}

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// VolumeStatus classifies a candle's volume relative to its recent average.
type VolumeStatus string

const (
	VolumeLow      VolumeStatus = "low"
	VolumeNormal   VolumeStatus = "normal"
	VolumeElevated VolumeStatus = "elevated"
	VolumeSpike    VolumeStatus = "spike"
)

// RibbonColor tags a single ribbon line relative to price.
type RibbonColor string

const (
	RibbonGreen   RibbonColor = "green"
	RibbonRed     RibbonColor = "red"
	RibbonNeutral RibbonColor = "neutral"
)

// FlipType marks the step where ribbon alignment crosses a directional
// threshold. It is only ever set on the crossing step itself; continuation
// steps report FlipNone.
type FlipType string

const (
	FlipNone    FlipType = "none"
	FlipBullish FlipType = "bullish_flip"
	FlipBearish FlipType = "bearish_flip"
)

// ExitReason indicates why a position was closed.
type ExitReason string

const (
	ExitTakeProfit   ExitReason = "take-profit"
	ExitStopLoss     ExitReason = "stop-loss"
	ExitProfitLock   ExitReason = "profit-lock"
	ExitTrailingStop ExitReason = "trailing-stop"
	ExitTimeLimit    ExitReason = "time-limit"
	ExitEndOfData    ExitReason = "end-of-data"
	ExitManual       ExitReason = "manual"
)
