package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"ribbonBot/config"
	"ribbonBot/internal/adapters/logger"
	"ribbonBot/internal/adapters/sqlite"
	"ribbonBot/internal/domain"
	"ribbonBot/internal/ports"
	"ribbonBot/internal/snapshot"
	"ribbonBot/internal/strategy/analytics"
	"ribbonBot/internal/strategy/backtesting"
	"ribbonBot/internal/strategy/confluence"
	"ribbonBot/internal/strategy/entry"
	"ribbonBot/internal/strategy/exit"
	"ribbonBot/internal/strategy/mtf"
	"ribbonBot/internal/strategy/ribbon"
	"ribbonBot/internal/utils"
)

func main() {
	klinesFile := flag.String("klines", "", "CSV of decision-interval klines (required)")
	auxFiles := flag.String("aux", "", "comma-separated interval=file pairs for confirmation timeframes, e.g. 15m=data/eth_15m.csv,1h=data/eth_1h.csv")
	dbPath := flag.String("db", "", "optional sqlite file to export the trade log to")
	flag.Parse()

	if *klinesFile == "" {
		log.Fatal("FATAL: -klines is required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 2. Load the kline series
	klines, err := utils.ReadKlinesFromCSV(*klinesFile)
	if err != nil {
		appLogger.Error(ctx, err, "Error loading klines", map[string]interface{}{"filename": *klinesFile})
		log.Fatalf("Error loading klines: %v", err)
	}
	appLogger.Info(ctx, "Loaded klines", map[string]interface{}{"filename": *klinesFile, "count": len(klines)})

	// 3. Build snapshots
	builder, err := snapshot.NewBuilder(cfg.Snapshot)
	if err != nil {
		log.Fatalf("FATAL: Failed to create snapshot builder: %v", err)
	}
	snaps, err := builder.Build(klines)
	if err != nil {
		log.Fatalf("FATAL: Failed to build snapshots: %v", err)
	}

	aux, err := loadAuxSeries(builder, *auxFiles)
	if err != nil {
		log.Fatalf("FATAL: Failed to load auxiliary series: %v", err)
	}

	// 4. Assemble the pipeline
	tracker, err := ribbon.NewTracker(cfg.Ribbon)
	if err != nil {
		log.Fatalf("FATAL: Failed to create ribbon tracker: %v", err)
	}
	detector, err := entry.NewDetector(cfg.Entry, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create entry detector: %v", err)
	}
	policy, err := exit.NewPolicy(cfg.Exit)
	if err != nil {
		log.Fatalf("FATAL: Failed to create exit policy: %v", err)
	}
	confirmer, err := mtf.NewConfirmer(cfg.MTF)
	if err != nil {
		log.Fatalf("FATAL: Failed to create mtf confirmer: %v", err)
	}

	sim, err := backtesting.NewSimulator(backtesting.Config{
		Symbol:               cfg.Symbol,
		StartingCapital:      cfg.StartingCapital,
		PositionSizeFraction: cfg.PositionSizeFraction,
	}, tracker, confluence.NewScorer(cfg.Weights), detector, policy, confirmer, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create simulator: %v", err)
	}

	// 5. Run
	result, err := sim.Run(ctx, snaps, aux)
	if err != nil {
		appLogger.Error(ctx, err, "Backtest failed")
		log.Fatalf("Backtest failed: %v", err)
	}

	printResult(result, cfg.StartingCapital)

	if *dbPath != "" {
		if err := exportTrades(ctx, *dbPath, result.Trades, appLogger); err != nil {
			log.Fatalf("FATAL: Failed to export trades: %v", err)
		}
		appLogger.Info(ctx, "Exported trade log", map[string]interface{}{"path": *dbPath, "trades": len(result.Trades)})
	}
}

// exportTrades persists the trade log to a sqlite file so analysis tooling
// can query it alongside live trades.
func exportTrades(ctx context.Context, dbPath string, trades []*domain.Trade, appLogger ports.Logger) error {
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: dbPath, Logger: appLogger})
	if err != nil {
		return fmt.Errorf("opening sqlite export: %w", err)
	}
	defer repo.Close()

	for i, trade := range trades {
		if _, err := repo.CreateTrade(ctx, trade); err != nil {
			return fmt.Errorf("writing trade %d: %w", i, err)
		}
	}
	return nil
}

// loadAuxSeries parses "interval=file" pairs and builds confirmation series.
func loadAuxSeries(builder *snapshot.Builder, arg string) ([]mtf.Series, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, nil
	}
	var series []mtf.Series
	for _, pair := range strings.Split(arg, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed aux argument '%s', expected interval=file", pair)
		}
		klines, err := utils.ReadKlinesFromCSV(parts[1])
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", parts[1], err)
		}
		snaps, err := builder.Build(klines)
		if err != nil {
			return nil, fmt.Errorf("building snapshots for %s: %w", parts[0], err)
		}
		series = append(series, mtf.Series{Timeframe: parts[0], Snapshots: snaps})
	}
	return series, nil
}

func printResult(result *backtesting.Result, startingCapital float64) {
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Trades:        %d (won %d / lost %d, win rate %.1f%%)\n",
		result.TotalTrades, result.WinningTrades, result.LosingTrades, result.WinRate*100)
	fmt.Printf("Total PNL:     %.2f (%.2f%% return)\n", result.TotalPNL, result.ReturnPct)
	fmt.Printf("Final capital: %.2f\n", result.FinalCapital)
	fmt.Printf("Average PNL:   %.2f (win %.2f / loss %.2f)\n", result.AveragePNL, result.AverageWin, result.AverageLoss)
	fmt.Printf("Largest win:   %.2f, largest loss: %.2f\n", result.LargestWin, result.LargestLoss)

	fmt.Println("Exit reasons:")
	for _, reason := range []domain.ExitReason{
		domain.ExitTakeProfit, domain.ExitStopLoss, domain.ExitProfitLock,
		domain.ExitTrailingStop, domain.ExitTimeLimit, domain.ExitEndOfData,
	} {
		if n := result.ExitReasons[reason]; n > 0 {
			fmt.Printf("  %-14s %d\n", reason, n)
		}
	}

	metrics := analytics.AnalyzePerformance(result.Trades, startingCapital)
	fmt.Println("=== Performance ===")
	fmt.Printf("Max drawdown:       %.2f%%\n", metrics.MaxDrawdown*100)
	fmt.Printf("Profit factor:      %.2f\n", metrics.ProfitFactor)
	fmt.Printf("Expectancy:         %.2f\n", metrics.Expectancy)
	fmt.Printf("Avg peak favorable: %.2f%%\n", metrics.AveragePeakFavorable)
	fmt.Printf("Avg trade duration: %s\n", metrics.AverageTradeDuration)
	for _, mr := range metrics.GetMonthlyReturns() {
		fmt.Printf("  %s  %+.2f\n", mr.Month.Format("2006-01"), mr.Return)
	}
}
