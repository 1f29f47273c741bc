package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ribbonBot/config"
	"ribbonBot/internal/domain"
	"ribbonBot/internal/ports"
	"ribbonBot/internal/risk"
	"ribbonBot/internal/snapshot"
	"ribbonBot/internal/strategy/confluence"
	"ribbonBot/internal/strategy/entry"
	"ribbonBot/internal/strategy/exit"
	"ribbonBot/internal/strategy/mtf"
	"ribbonBot/internal/strategy/ribbon"
)

// Mock implementations
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockExchange struct {
	pingErr      error
	balance      float64
	balanceErr   error
	tickerPrice  float64
	klines       []*domain.Kline
	klinesErr    error
	orderResp    *ports.OrderResponse
	orderErr     error
	placedOrders []domain.OrderSide
}

func (m *mockExchange) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockExchange) GetAccountBalance(ctx context.Context, asset string) (float64, error) {
	return m.balance, m.balanceErr
}

func (m *mockExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return m.tickerPrice, nil
}

func (m *mockExchange) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity string) (*ports.OrderResponse, error) {
	m.placedOrders = append(m.placedOrders, side)
	return m.orderResp, m.orderErr
}

func (m *mockExchange) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	return m.klines, m.klinesErr
}

func (m *mockExchange) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	return m.klines, m.klinesErr
}

func (m *mockExchange) StreamKlines(ctx context.Context, symbol, interval string, handler func(kline *domain.Kline), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	return make(chan struct{}), make(chan struct{}, 1), nil
}

type mockPosRepo struct {
	created []*domain.Position
	updated []*domain.Position
	open    *domain.Position
	findErr error
}

func (m *mockPosRepo) Create(ctx context.Context, pos *domain.Position) (int64, error) {
	m.created = append(m.created, pos)
	pos.ID = int64(len(m.created))
	return pos.ID, nil
}

func (m *mockPosRepo) Update(ctx context.Context, pos *domain.Position) error {
	m.updated = append(m.updated, pos)
	return nil
}

func (m *mockPosRepo) FindOpenBySymbol(ctx context.Context, symbol string) (*domain.Position, error) {
	return m.open, m.findErr
}

func (m *mockPosRepo) FindByID(ctx context.Context, id int64) (*domain.Position, error) {
	return nil, nil
}

type mockTradeRepo struct {
	trades []*domain.Trade
}

func (m *mockTradeRepo) CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.trades = append(m.trades, trade)
	return int64(len(m.trades)), nil
}

func (m *mockTradeRepo) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	return m.trades, nil
}

func (m *mockTradeRepo) TotalProfit(ctx context.Context) (float64, error) {
	var total float64
	for _, t := range m.trades {
		total += t.PNL
	}
	return total, nil
}

func testServiceConfig() *config.Config {
	return &config.Config{
		Symbol:               "ETHUSDT",
		Interval:             "5m",
		StartingCapital:      10000,
		PositionSizeFraction: 0.1,
		Snapshot:             snapshot.DefaultConfig(),
		Ribbon:               ribbon.DefaultConfig(),
		Weights:              confluence.DefaultWeights(),
		Entry:                entry.DefaultConfig(),
		Exit:                 exit.DefaultConfig(),
		MTF:                  mtf.DefaultConfig(),
		Risk: risk.Config{
			MaxPositionSizeFraction: 0.25,
			MaxDailyLossFraction:    0.05,
			MaxDailyTrades:          10,
			MinAvailableBalance:     100,
		},
	}
}

func newTestService(t *testing.T, exchange *mockExchange, posRepo *mockPosRepo, tradeRepo *mockTradeRepo) (*TradingService, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	svc, err := NewTradingService(testServiceConfig(), logger, exchange, posRepo, tradeRepo)
	require.NoError(t, err)
	return svc, logger
}

func testKline(step int, close float64, final bool) *domain.Kline {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Kline{
		OpenTime:  start.Add(time.Duration(step) * 5 * time.Minute),
		CloseTime: start.Add(time.Duration(step+1) * 5 * time.Minute),
		Symbol:    "ETHUSDT",
		Interval:  "5m",
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    100,
		IsFinal:   final,
	}
}

func TestNewTradingService_Validation(t *testing.T) {
	cfg := testServiceConfig()
	logger := &mockLogger{}
	exchange := &mockExchange{}
	posRepo := &mockPosRepo{}
	tradeRepo := &mockTradeRepo{}

	_, err := NewTradingService(nil, logger, exchange, posRepo, tradeRepo)
	assert.Error(t, err)
	_, err = NewTradingService(cfg, nil, exchange, posRepo, tradeRepo)
	assert.Error(t, err)
	_, err = NewTradingService(cfg, logger, nil, posRepo, tradeRepo)
	assert.Error(t, err)

	// A broken component config fails construction, not the first candle.
	bad := testServiceConfig()
	bad.Exit.TakeProfitPct = -1
	_, err = NewTradingService(bad, logger, exchange, posRepo, tradeRepo)
	assert.Error(t, err)

	_, err = NewTradingService(cfg, logger, exchange, posRepo, tradeRepo)
	assert.NoError(t, err)
}

func TestService_IgnoresUnfinishedCandles(t *testing.T) {
	exchange := &mockExchange{}
	svc, _ := newTestService(t, exchange, &mockPosRepo{}, &mockTradeRepo{})

	svc.handleKlineEvent(testKline(0, 100, false))

	assert.Empty(t, svc.klineCache)
	assert.Empty(t, exchange.placedOrders)
}

func TestService_TakeProfitClosesPosition(t *testing.T) {
	exchange := &mockExchange{
		orderResp: &ports.OrderResponse{OrderID: 1, AvgPrice: 104, Status: "FILLED"},
	}
	posRepo := &mockPosRepo{}
	tradeRepo := &mockTradeRepo{}
	svc, _ := newTestService(t, exchange, posRepo, tradeRepo)

	svc.currentPosition = &domain.Position{
		ID:         7,
		Symbol:     "ETHUSDT",
		Direction:  domain.Long,
		EntryPrice: 100,
		Quantity:   1.0,
		EntryTime:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     domain.StatusOpen,
	}
	svc.klineCache = []*domain.Kline{testKline(0, 100, true)}

	// +4% clears the 3% take-profit.
	svc.handleKlineEvent(testKline(1, 104, true))

	require.Len(t, exchange.placedOrders, 1)
	assert.Equal(t, domain.Sell, exchange.placedOrders[0])

	require.Len(t, posRepo.updated, 1)
	closed := posRepo.updated[0]
	assert.Equal(t, domain.StatusClosed, closed.Status)
	assert.Equal(t, domain.ExitTakeProfit, closed.ExitReason)
	assert.InDelta(t, 4.0, closed.PNL, 0.0001) // 1.0 qty * (104-100)

	require.Len(t, tradeRepo.trades, 1)
	assert.Equal(t, domain.ExitTakeProfit, tradeRepo.trades[0].ExitReason)
	assert.InDelta(t, 4.0, tradeRepo.trades[0].PNLPct, 0.0001)

	assert.Nil(t, svc.currentPosition)
}

func TestService_PersistsPeakAdvances(t *testing.T) {
	exchange := &mockExchange{}
	posRepo := &mockPosRepo{}
	svc, _ := newTestService(t, exchange, posRepo, &mockTradeRepo{})

	svc.currentPosition = &domain.Position{
		ID:         3,
		Symbol:     "ETHUSDT",
		Direction:  domain.Long,
		EntryPrice: 100,
		Quantity:   1.0,
		EntryTime:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     domain.StatusOpen,
	}
	svc.klineCache = []*domain.Kline{testKline(0, 100, true)}

	// +2% advances the peak without tripping any exit rule.
	svc.handleKlineEvent(testKline(1, 102, true))

	assert.Empty(t, exchange.placedOrders)
	require.Len(t, posRepo.updated, 1)
	assert.InDelta(t, 2.0, posRepo.updated[0].PeakFavorablePct, 0.0001)
	assert.NotNil(t, svc.currentPosition)

	// A pullback below the peak persists nothing new.
	svc.handleKlineEvent(testKline(2, 101.8, true))
	assert.Len(t, posRepo.updated, 1)
}

func TestService_NoEntryWithoutSignal(t *testing.T) {
	exchange := &mockExchange{balance: 10000}
	posRepo := &mockPosRepo{}
	svc, _ := newTestService(t, exchange, posRepo, &mockTradeRepo{})

	// A lone warm-up candle carries no ribbon, so no flip can support an
	// entry and no order may reach the venue.
	svc.handleKlineEvent(testKline(0, 100, true))

	assert.Empty(t, exchange.placedOrders)
	assert.Empty(t, posRepo.created)
	assert.Nil(t, svc.currentPosition)
}

func TestService_CacheBounded(t *testing.T) {
	svc, _ := newTestService(t, &mockExchange{}, &mockPosRepo{}, &mockTradeRepo{})

	for i := 0; i < maxKlineCacheSize+50; i++ {
		svc.handleKlineEvent(testKline(i, 100, true))
	}
	assert.Len(t, svc.klineCache, maxKlineCacheSize)
}
