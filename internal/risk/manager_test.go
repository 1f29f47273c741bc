package risk

import (
	"testing"
	"time"
)

func testRiskConfig() Config {
	return Config{
		MaxPositionSizeFraction: 0.25,
		MaxDailyLossFraction:    0.05,
		MaxDailyTrades:          3,
		MinAvailableBalance:     100,
	}
}

func TestNewManager_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"position size fraction zero", func(c *Config) { c.MaxPositionSizeFraction = 0 }},
		{"position size fraction above one", func(c *Config) { c.MaxPositionSizeFraction = 1.5 }},
		{"daily loss fraction zero", func(c *Config) { c.MaxDailyLossFraction = 0 }},
		{"daily loss fraction at one", func(c *Config) { c.MaxDailyLossFraction = 1 }},
		{"non-positive daily trades", func(c *Config) { c.MaxDailyTrades = 0 }},
		{"negative balance floor", func(c *Config) { c.MinAvailableBalance = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testRiskConfig()
			tt.mutate(&cfg)
			if _, err := NewManager(cfg); err == nil {
				t.Error("Expected error but got none")
			}
		})
	}

	if _, err := NewManager(testRiskConfig()); err != nil {
		t.Errorf("Unexpected error for valid config: %v", err)
	}
}

func TestManager_CanOpen(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	manager, err := NewManager(testRiskConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	// A modest stake against a healthy balance passes.
	if err := manager.CanOpen(now, 10000, 1000); err != nil {
		t.Errorf("Expected no error for valid entry, got %v", err)
	}

	// Balance below the floor halts trading.
	if err := manager.CanOpen(now, 50, 10); err == nil {
		t.Error("Expected error for balance below minimum")
	}

	// Stake above the per-trade cap is rejected.
	if err := manager.CanOpen(now, 10000, 3000); err == nil {
		t.Error("Expected error for oversized stake")
	}
}

func TestManager_DailyTradeLimit(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	manager, err := NewManager(testRiskConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := manager.CanOpen(now, 10000, 1000); err != nil {
			t.Fatalf("Trade %d unexpectedly rejected: %v", i+1, err)
		}
		manager.RecordTrade(now, 10)
	}

	if err := manager.CanOpen(now, 10000, 1000); err == nil {
		t.Error("Expected error after reaching the daily trade limit")
	}

	// The next day the counter resets.
	nextDay := now.Add(24 * time.Hour)
	if err := manager.CanOpen(nextDay, 10000, 1000); err != nil {
		t.Errorf("Expected trade limit to reset on day rollover, got %v", err)
	}
}

func TestManager_DailyLossLimit(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	manager, err := NewManager(testRiskConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	// 5% of a 10000 balance is 500; drop just past it.
	manager.RecordTrade(now, -501)

	if err := manager.CanOpen(now, 10000, 1000); err == nil {
		t.Error("Expected error after exceeding the daily loss limit")
	}
	if manager.DailyPnL() != -501 {
		t.Errorf("Expected daily PnL -501, got %f", manager.DailyPnL())
	}

	// Losses reset with the day.
	nextDay := now.Add(24 * time.Hour)
	if err := manager.CanOpen(nextDay, 10000, 1000); err != nil {
		t.Errorf("Expected loss limit to reset on day rollover, got %v", err)
	}
	if manager.DailyPnL() != 0 {
		t.Errorf("Expected daily PnL reset to 0, got %f", manager.DailyPnL())
	}
}

func TestManager_ProfitDoesNotBlock(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	manager, err := NewManager(testRiskConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	manager.RecordTrade(now, 800)
	if err := manager.CanOpen(now, 10000, 1000); err != nil {
		t.Errorf("Expected profitable day to keep trading, got %v", err)
	}
}
