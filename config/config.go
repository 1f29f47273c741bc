package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ribbonBot/internal/adapters/logger"
	"ribbonBot/internal/domain"
	"ribbonBot/internal/risk"
	"ribbonBot/internal/snapshot"
	"ribbonBot/internal/strategy/confluence"
	"ribbonBot/internal/strategy/entry"
	"ribbonBot/internal/strategy/exit"
	"ribbonBot/internal/strategy/mtf"
	"ribbonBot/internal/strategy/ribbon"
)

// Config holds all application configuration. Strategy thresholds are kept
// in the sub-configs of the packages that consume them, so that the runners
// pass them through without re-mapping fields.
type Config struct {
	// Binance API. Keys may be empty for backtest-only runs; the live
	// entrypoint rejects a keyless configuration.
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading scope
	Symbol       string
	Interval     string   // decision timeframe, e.g. "5m"
	AuxIntervals []string // higher timeframes for confirmation, e.g. "15m,1h"

	// Capital
	StartingCapital      float64
	PositionSizeFraction float64

	// Strategy
	Snapshot snapshot.Config
	Ribbon   ribbon.Config
	Weights  confluence.Weights
	Entry    entry.Config
	Exit     exit.Config
	MTF      mtf.Config
	Risk     risk.Config

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel

	// Connection settings for the Binance client
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = loadBool(&errs, "IS_TESTNET", true) // Default to testnet for safety

	// Trading scope
	cfg.Symbol = getEnv("SYMBOL", "ETHUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.Interval = getEnv("INTERVAL", "5m")
	if cfg.Interval == "" {
		errs = append(errs, "INTERVAL must be set")
	}
	for _, iv := range strings.Split(getEnv("AUX_INTERVALS", "15m,1h"), ",") {
		iv = strings.TrimSpace(iv)
		if iv != "" {
			cfg.AuxIntervals = append(cfg.AuxIntervals, iv)
		}
	}

	// Capital
	cfg.StartingCapital = loadFloat(&errs, "STARTING_CAPITAL", 10000.0)
	if cfg.StartingCapital <= 0 {
		errs = append(errs, "STARTING_CAPITAL must be positive")
	}
	cfg.PositionSizeFraction = loadFloat(&errs, "POSITION_SIZE_FRACTION", 0.1)
	if cfg.PositionSizeFraction <= 0 || cfg.PositionSizeFraction > 1 {
		errs = append(errs, "POSITION_SIZE_FRACTION must be within (0, 1]")
	}

	// Snapshot construction
	cfg.Snapshot = snapshot.DefaultConfig()
	cfg.Snapshot.RSIPeriod = loadInt(&errs, "RSI_PERIOD", cfg.Snapshot.RSIPeriod)
	cfg.Snapshot.RSIFastPeriod = loadInt(&errs, "RSI_FAST_PERIOD", cfg.Snapshot.RSIFastPeriod)
	cfg.Snapshot.StochPeriod = loadInt(&errs, "STOCH_PERIOD", cfg.Snapshot.StochPeriod)
	cfg.Snapshot.BandPeriod = loadInt(&errs, "BAND_PERIOD", cfg.Snapshot.BandPeriod)
	cfg.Snapshot.VolumePeriod = loadInt(&errs, "VOLUME_PERIOD", cfg.Snapshot.VolumePeriod)

	// Ribbon tracking
	cfg.Ribbon = ribbon.DefaultConfig()
	cfg.Ribbon.FlipThresholdLong = loadFloat(&errs, "RIBBON_FLIP_THRESHOLD_LONG", cfg.Ribbon.FlipThresholdLong)
	cfg.Ribbon.FlipThresholdShort = loadFloat(&errs, "RIBBON_FLIP_THRESHOLD_SHORT", cfg.Ribbon.FlipThresholdShort)
	cfg.Ribbon.StrongAlignLong = loadFloat(&errs, "RIBBON_STRONG_ALIGN_LONG", cfg.Ribbon.StrongAlignLong)
	cfg.Ribbon.StrongAlignShort = loadFloat(&errs, "RIBBON_STRONG_ALIGN_SHORT", cfg.Ribbon.StrongAlignShort)

	// Confluence weights
	cfg.Weights = confluence.DefaultWeights()
	cfg.Weights.RSITrend = loadFloat(&errs, "WEIGHT_RSI_TREND", cfg.Weights.RSITrend)
	cfg.Weights.RSIAgreement = loadFloat(&errs, "WEIGHT_RSI_AGREEMENT", cfg.Weights.RSIAgreement)
	cfg.Weights.StochCross = loadFloat(&errs, "WEIGHT_STOCH_CROSS", cfg.Weights.StochCross)
	cfg.Weights.StochExtreme = loadFloat(&errs, "WEIGHT_STOCH_EXTREME", cfg.Weights.StochExtreme)
	cfg.Weights.BandPosition = loadFloat(&errs, "WEIGHT_BAND_POSITION", cfg.Weights.BandPosition)
	cfg.Weights.VolumeBacking = loadFloat(&errs, "WEIGHT_VOLUME_BACKING", cfg.Weights.VolumeBacking)

	// Entry gates
	cfg.Entry = entry.DefaultConfig()
	cfg.Entry.RequireRibbonFlip = loadBool(&errs, "REQUIRE_RIBBON_FLIP", cfg.Entry.RequireRibbonFlip)
	cfg.Entry.ConfluenceGapMin = loadFloat(&errs, "CONFLUENCE_GAP_MIN", cfg.Entry.ConfluenceGapMin)
	cfg.Entry.ConfluenceScoreMin = loadFloat(&errs, "CONFLUENCE_SCORE_MIN", cfg.Entry.ConfluenceScoreMin)
	cfg.Entry.EnableRSIGate = loadBool(&errs, "RSI_GATE_ENABLED", cfg.Entry.EnableRSIGate)
	cfg.Entry.RSILong = loadRange(&errs, "RSI_LONG", cfg.Entry.RSILong)
	cfg.Entry.RSIShort = loadRange(&errs, "RSI_SHORT", cfg.Entry.RSIShort)
	cfg.Entry.EnableRSIFastGate = loadBool(&errs, "RSI_FAST_GATE_ENABLED", cfg.Entry.EnableRSIFastGate)
	cfg.Entry.RSIFastLong = loadRange(&errs, "RSI_FAST_LONG", cfg.Entry.RSIFastLong)
	cfg.Entry.RSIFastShort = loadRange(&errs, "RSI_FAST_SHORT", cfg.Entry.RSIFastShort)
	cfg.Entry.EnableStochGate = loadBool(&errs, "STOCH_GATE_ENABLED", cfg.Entry.EnableStochGate)
	cfg.Entry.StochLong = loadRange(&errs, "STOCH_LONG", cfg.Entry.StochLong)
	cfg.Entry.StochShort = loadRange(&errs, "STOCH_SHORT", cfg.Entry.StochShort)
	cfg.Entry.MinVolumeRatio = loadFloat(&errs, "MIN_VOLUME_RATIO", cfg.Entry.MinVolumeRatio)
	cfg.Entry.RequireMTFConfirmation = loadBool(&errs, "REQUIRE_MTF_CONFIRMATION", cfg.Entry.RequireMTFConfirmation)
	cfg.Entry.MinQualityScore = loadFloat(&errs, "MIN_QUALITY_SCORE", cfg.Entry.MinQualityScore)
	if allowList, err := parseVolumeList(getEnv("VOLUME_REQUIREMENT", "")); err != nil {
		errs = append(errs, fmt.Sprintf("invalid VOLUME_REQUIREMENT: %v", err))
	} else if allowList != nil {
		cfg.Entry.VolumeAllowList = allowList
	}

	// Exit rules
	cfg.Exit = exit.DefaultConfig()
	cfg.Exit.TakeProfitPct = loadFloat(&errs, "TAKE_PROFIT_PCT", cfg.Exit.TakeProfitPct)
	cfg.Exit.StopLossPct = loadFloat(&errs, "STOP_LOSS_PCT", cfg.Exit.StopLossPct)
	cfg.Exit.ProfitLockPct = loadFloat(&errs, "PROFIT_LOCK_PCT", cfg.Exit.ProfitLockPct)
	cfg.Exit.TrailingActivationPct = loadFloat(&errs, "TRAILING_ACTIVATION_PCT", cfg.Exit.TrailingActivationPct)
	cfg.Exit.TrailingWidthPct = loadFloat(&errs, "TRAILING_WIDTH_PCT", cfg.Exit.TrailingWidthPct)
	maxHoldMinutes := loadInt(&errs, "MAX_HOLD_MINUTES", int(cfg.Exit.MaxHoldDuration.Minutes()))
	if maxHoldMinutes <= 0 {
		errs = append(errs, "MAX_HOLD_MINUTES must be positive")
	}
	cfg.Exit.MaxHoldDuration = time.Duration(maxHoldMinutes) * time.Minute

	// Multi-timeframe confirmation
	cfg.MTF = mtf.DefaultConfig()
	cfg.MTF.FastPeriod = loadInt(&errs, "MTF_FAST_PERIOD", cfg.MTF.FastPeriod)
	cfg.MTF.SlowPeriod = loadInt(&errs, "MTF_SLOW_PERIOD", cfg.MTF.SlowPeriod)
	cfg.MTF.Window = loadInt(&errs, "MTF_WINDOW", cfg.MTF.Window)

	// Risk limits
	cfg.Risk = risk.Config{
		MaxPositionSizeFraction: loadFloat(&errs, "MAX_POSITION_SIZE_FRACTION", 0.25),
		MaxDailyLossFraction:    loadFloat(&errs, "MAX_DAILY_LOSS_FRACTION", 0.05),
		MaxDailyTrades:          loadInt(&errs, "MAX_DAILY_TRADES", 10),
		MinAvailableBalance:     loadFloat(&errs, "MIN_AVAILABLE_BALANCE", 100.0),
	}
	if cfg.Risk.MaxDailyTrades < 0 {
		errs = append(errs, "MAX_DAILY_TRADES cannot be negative")
	}
	if cfg.PositionSizeFraction > cfg.Risk.MaxPositionSizeFraction {
		errs = append(errs, "POSITION_SIZE_FRACTION must not exceed MAX_POSITION_SIZE_FRACTION")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/ribbonbot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	// Connection settings
	reconnectDelaySeconds := loadInt(&errs, "RECONNECT_DELAY_SECONDS", 5)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = loadInt(&errs, "MAX_RECONNECT_ATTEMPTS", 10)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// RequireAPIKeys validates that exchange credentials are present. The live
// entrypoint calls this; backtest-only runs never do.
func (c *Config) RequireAPIKeys() error {
	var errs []string
	if c.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if c.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// parseVolumeList parses a comma-separated volume allow-list, e.g.
// "normal,elevated,spike". An empty input returns nil so the caller keeps
// its default.
func parseVolumeList(raw string) ([]domain.VolumeStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var list []domain.VolumeStatus
	for _, part := range strings.Split(raw, ",") {
		switch s := domain.VolumeStatus(strings.TrimSpace(strings.ToLower(part))); s {
		case domain.VolumeLow, domain.VolumeNormal, domain.VolumeElevated, domain.VolumeSpike:
			list = append(list, s)
		default:
			return nil, fmt.Errorf("unknown volume status '%s'", part)
		}
	}
	return list, nil
}

// loadFloat reads a float env var, appending to errs when the value is set
// but unparseable.
func loadFloat(errs *[]string, key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid float value '%s' for key %s", valueStr, key))
		return defaultValue
	}
	return value
}

// loadRange reads a pair of env vars <key>_MIN and <key>_MAX into a Range.
func loadRange(errs *[]string, key string, defaultValue entry.Range) entry.Range {
	r := entry.Range{
		Min: loadFloat(errs, key+"_MIN", defaultValue.Min),
		Max: loadFloat(errs, key+"_MAX", defaultValue.Max),
	}
	if r.Min > r.Max {
		*errs = append(*errs, fmt.Sprintf("%s_MIN must not exceed %s_MAX", key, key))
	}
	return r
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// loadInt reads an int env var, appending to errs when the value is set but
// unparseable.
func loadInt(errs *[]string, key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid integer value '%s' for key %s", valueStr, key))
		return defaultValue
	}
	return value
}

// loadBool reads a bool env var, appending to errs when the value is set but
// unparseable.
func loadBool(errs *[]string, key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("invalid boolean value '%s' for key %s", valueStr, key))
		return defaultValue
	}
	return value
}
