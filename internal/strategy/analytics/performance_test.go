package analytics

import (
	"testing"
	"time"

	"ribbonBot/internal/domain"
)

func TestAnalyzePerformance(t *testing.T) {
	initialBalance := 10000.0
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	trades := []*domain.Trade{
		{
			Symbol:           "ETHUSDT",
			Direction:        domain.Long,
			EntryPrice:       2000,
			ExitPrice:        2060,
			Quantity:         0.5,
			PNL:              1000,
			PNLPct:           3.0,
			PeakFavorablePct: 3.2,
			EntryTime:        now.Add(-24 * time.Hour),
			ExitTime:         now.Add(-20 * time.Hour),
			ExitReason:       domain.ExitTakeProfit,
		},
		{
			Symbol:           "ETHUSDT",
			Direction:        domain.Short,
			EntryPrice:       2060,
			ExitPrice:        2090,
			Quantity:         0.5,
			PNL:              -1000,
			PNLPct:           -1.5,
			PeakFavorablePct: 0.8,
			EntryTime:        now.Add(-12 * time.Hour),
			ExitTime:         now.Add(-10 * time.Hour),
			ExitReason:       domain.ExitStopLoss,
		},
	}

	metrics := AnalyzePerformance(trades, initialBalance)

	// Verify basic metrics
	if metrics.TotalTrades != 2 {
		t.Errorf("Expected 2 total trades, got %d", metrics.TotalTrades)
	}
	if metrics.WinningTrades != 1 {
		t.Errorf("Expected 1 winning trade, got %d", metrics.WinningTrades)
	}
	if metrics.LosingTrades != 1 {
		t.Errorf("Expected 1 losing trade, got %d", metrics.LosingTrades)
	}
	if metrics.WinRate != 0.5 {
		t.Errorf("Expected 0.5 win rate, got %f", metrics.WinRate)
	}
	if metrics.TotalProfit != 0 {
		t.Errorf("Expected 0 total profit, got %f", metrics.TotalProfit)
	}
	if metrics.FinalBalance != initialBalance {
		t.Errorf("Expected final balance of %f, got %f", initialBalance, metrics.FinalBalance)
	}

	// Verify advanced metrics
	if metrics.MaxConsecutiveWins != 1 {
		t.Errorf("Expected 1 max consecutive wins, got %d", metrics.MaxConsecutiveWins)
	}
	if metrics.MaxConsecutiveLosses != 1 {
		t.Errorf("Expected 1 max consecutive losses, got %d", metrics.MaxConsecutiveLosses)
	}
	if metrics.AverageWin != 1000 {
		t.Errorf("Expected 1000 average win, got %f", metrics.AverageWin)
	}
	if metrics.AverageLoss != -1000 {
		t.Errorf("Expected -1000 average loss, got %f", metrics.AverageLoss)
	}
	if metrics.ProfitFactor != 1.0 {
		t.Errorf("Expected 1.0 profit factor, got %f", metrics.ProfitFactor)
	}
	if metrics.Expectancy != 0 {
		t.Errorf("Expected 0 expectancy, got %f", metrics.Expectancy)
	}
	if metrics.AveragePeakFavorable != 2.0 {
		t.Errorf("Expected 2.0 average peak favorable, got %f", metrics.AveragePeakFavorable)
	}
	if metrics.AverageTradeDuration != 3*time.Hour {
		t.Errorf("Expected 3h average trade duration, got %s", metrics.AverageTradeDuration)
	}

	// Verify exit reason counts
	if metrics.ExitReasonCounts[domain.ExitTakeProfit] != 1 {
		t.Errorf("Expected 1 take-profit exit, got %d", metrics.ExitReasonCounts[domain.ExitTakeProfit])
	}
	if metrics.ExitReasonCounts[domain.ExitStopLoss] != 1 {
		t.Errorf("Expected 1 stop-loss exit, got %d", metrics.ExitReasonCounts[domain.ExitStopLoss])
	}

	// Verify equity curve
	if len(metrics.EquityCurve) != 2 {
		t.Errorf("Expected 2 equity curve points, got %d", len(metrics.EquityCurve))
	}

	// Verify monthly returns
	monthlyReturns := metrics.GetMonthlyReturns()
	if len(monthlyReturns) != 1 {
		t.Errorf("Expected 1 monthly return, got %d", len(monthlyReturns))
	}
}

func TestAnalyzePerformanceEmptyTrades(t *testing.T) {
	metrics := AnalyzePerformance([]*domain.Trade{}, 10000.0)
	if metrics.TotalTrades != 0 {
		t.Errorf("Expected 0 total trades, got %d", metrics.TotalTrades)
	}
	if metrics.FinalBalance != 10000.0 {
		t.Errorf("Expected final balance of 10000.0, got %f", metrics.FinalBalance)
	}
}

func TestAnalyzePerformanceDrawdown(t *testing.T) {
	initialBalance := 10000.0
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	trades := []*domain.Trade{
		{
			Symbol:     "ETHUSDT",
			Direction:  domain.Long,
			PNL:        1000,
			EntryTime:  now.Add(-24 * time.Hour),
			ExitTime:   now.Add(-18 * time.Hour),
			ExitReason: domain.ExitTakeProfit,
		},
		{
			Symbol:     "ETHUSDT",
			Direction:  domain.Long,
			PNL:        -2200,
			EntryTime:  now.Add(-12 * time.Hour),
			ExitTime:   now.Add(-6 * time.Hour),
			ExitReason: domain.ExitStopLoss,
		},
	}

	metrics := AnalyzePerformance(trades, initialBalance)

	// Peak 11000 down to 8800.
	if metrics.MaxDrawdown != 0.2 {
		t.Errorf("Expected 0.2 max drawdown, got %f", metrics.MaxDrawdown)
	}
	if len(metrics.Drawdowns) != 1 {
		t.Errorf("Expected 1 drawdown period, got %d", len(metrics.Drawdowns))
	}
	if metrics.Drawdowns[0].Depth != 0.2 {
		t.Errorf("Expected 0.2 drawdown depth, got %f", metrics.Drawdowns[0].Depth)
	}
	if metrics.RecoveryFactor != -0.6 {
		t.Errorf("Expected -0.6 recovery factor, got %f", metrics.RecoveryFactor)
	}
}

func TestAnalyzePerformanceConsecutiveTrades(t *testing.T) {
	initialBalance := 10000.0
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	trades := []*domain.Trade{
		{
			Symbol:     "ETHUSDT",
			Direction:  domain.Long,
			PNL:        1000,
			EntryTime:  now.Add(-24 * time.Hour),
			ExitTime:   now.Add(-18 * time.Hour),
			ExitReason: domain.ExitTakeProfit,
		},
		{
			Symbol:     "ETHUSDT",
			Direction:  domain.Long,
			PNL:        1000,
			EntryTime:  now.Add(-12 * time.Hour),
			ExitTime:   now.Add(-6 * time.Hour),
			ExitReason: domain.ExitTakeProfit,
		},
	}

	metrics := AnalyzePerformance(trades, initialBalance)

	if metrics.MaxConsecutiveWins != 2 {
		t.Errorf("Expected 2 max consecutive wins, got %d", metrics.MaxConsecutiveWins)
	}
	if metrics.MaxConsecutiveLosses != 0 {
		t.Errorf("Expected 0 max consecutive losses, got %d", metrics.MaxConsecutiveLosses)
	}
	if metrics.WinRate != 1.0 {
		t.Errorf("Expected 1.0 win rate, got %f", metrics.WinRate)
	}
}

func TestGetMonthlyReturnsSorted(t *testing.T) {
	trades := []*domain.Trade{
		{
			PNL:        500,
			EntryTime:  time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			ExitTime:   time.Date(2024, 2, 10, 4, 0, 0, 0, time.UTC),
			ExitReason: domain.ExitTakeProfit,
		},
		{
			PNL:        -200,
			EntryTime:  time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			ExitTime:   time.Date(2024, 1, 5, 4, 0, 0, 0, time.UTC),
			ExitReason: domain.ExitStopLoss,
		},
		{
			PNL:        300,
			EntryTime:  time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
			ExitTime:   time.Date(2024, 2, 20, 4, 0, 0, 0, time.UTC),
			ExitReason: domain.ExitTakeProfit,
		},
	}

	metrics := AnalyzePerformance(trades, 10000.0)
	monthly := metrics.GetMonthlyReturns()

	if len(monthly) != 2 {
		t.Fatalf("Expected 2 monthly returns, got %d", len(monthly))
	}
	if !monthly[0].Month.Before(monthly[1].Month) {
		t.Error("Expected monthly returns sorted ascending by month")
	}
	if monthly[0].Return != -200 {
		t.Errorf("Expected January return -200, got %f", monthly[0].Return)
	}
	if monthly[1].Return != 800 {
		t.Errorf("Expected February return 800, got %f", monthly[1].Return)
	}
}
