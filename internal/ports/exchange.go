package ports

import (
	"context"
	"time"

	"ribbonBot/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID      int64     // Exchange's order ID
	Symbol       string    // Symbol for the order
	Price        float64   // Price of the order (might be 0 for market orders initially)
	AvgPrice     float64   // Average filled price
	OrigQuantity float64   // Original quantity requested
	ExecutedQty  float64   // Quantity filled
	Status       string    // Order status (e.g., NEW, FILLED, CANCELED)
	Type         string    // Order type (e.g., MARKET, LIMIT)
	Side         string    // Order side (BUY, SELL)
	Timestamp    time.Time // Time the order response was generated
}

// MarketDataProvider supplies historical and streaming candles from a venue.
// Snapshot construction happens on our side (see internal/snapshot), so the
// provider only deals in raw klines.
type MarketDataProvider interface {
	// GetKlines retrieves up to limit most recent klines for a symbol/interval.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)

	// GetKlinesRange retrieves klines between start and end (paginated internally).
	GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error)

	// StreamKlines subscribes to live klines for a symbol/interval.
	// The returned doneCh closes when the stream ends; send on stopCh to stop.
	StreamKlines(ctx context.Context, symbol, interval string, handler func(kline *domain.Kline), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}

// OrderExecutor places orders and reads account state on a venue. Only the
// live service uses it; the backtest simulator never touches a venue.
type OrderExecutor interface {
	// GetAccountBalance retrieves the available balance for a specific asset (e.g., "USDT").
	GetAccountBalance(ctx context.Context, asset string) (float64, error)

	// GetTickerPrice retrieves the last ticker price for a given symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// PlaceMarketOrder places a market order and returns the fill details.
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*OrderResponse, error)

	// Ping checks connectivity to the venue.
	Ping(ctx context.Context) error
}

// ExchangeClient is the combined venue interface the live service consumes.
type ExchangeClient interface {
	MarketDataProvider
	OrderExecutor
}
