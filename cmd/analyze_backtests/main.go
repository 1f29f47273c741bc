package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"ribbonBot/config"
	"ribbonBot/internal/adapters/logger"
	"ribbonBot/internal/snapshot"
	"ribbonBot/internal/strategy/backtesting"
	"ribbonBot/internal/strategy/optimization"
	"ribbonBot/internal/utils"
)

func main() {
	klinesFile := flag.String("klines", "", "CSV of decision-interval klines (required)")
	top := flag.Int("top", 10, "how many ranked combinations to print")
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

	// 2. Load and snapshot the series once; every combination reuses it.
	klines, err := utils.ReadKlinesFromCSV(*klinesFile)
	if err != nil {
		log.Fatalf("FATAL: Failed to load klines: %v", err)
	}
	builder, err := snapshot.NewBuilder(cfg.Snapshot)
	if err != nil {
		log.Fatalf("FATAL: Failed to create snapshot builder: %v", err)
	}
	snaps, err := builder.Build(klines)
	if err != nil {
		log.Fatalf("FATAL: Failed to build snapshots: %v", err)
	}
	appLogger.Info(ctx, "Snapshots built", map[string]interface{}{"count": len(snaps)})

	// 3. Sweep the exit thresholds and the two loosest entry gates.
	optimizer, err := optimization.NewOptimizer(optimization.Config{
		ParameterRanges: []optimization.ParameterRange{
			{Name: optimization.ParamTakeProfitPct, Min: 1.5, Max: 4.0, Step: 0.5},
			{Name: optimization.ParamStopLossPct, Min: 0.75, Max: 2.0, Step: 0.25},
			{Name: optimization.ParamTrailingWidth, Min: 0.4, Max: 1.0, Step: 0.2},
			{Name: optimization.ParamMinQualityScore, Min: 40, Max: 70, Step: 10},
		},
		EntryConfig:  cfg.Entry,
		ExitConfig:   cfg.Exit,
		RibbonConfig: cfg.Ribbon,
		Weights:      cfg.Weights,
		Simulator: backtesting.Config{
			Symbol:               cfg.Symbol,
			StartingCapital:      cfg.StartingCapital,
			PositionSizeFraction: cfg.PositionSizeFraction,
		},
	}, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create optimizer: %v", err)
	}

	results, err := optimizer.Optimize(ctx, snaps, nil)
	if err != nil {
		log.Fatalf("FATAL: Optimization failed: %v", err)
	}

	// 4. Print the leaderboard
	if *top > len(results) {
		*top = len(results)
	}
	fmt.Printf("=== Top %d of %d combinations ===\n", *top, len(results))
	for i, r := range results[:*top] {
		fmt.Printf("#%d score=%.2f trades=%d winRate=%.1f%% profit=%.2f maxDD=%.2f%%\n",
			i+1, r.Score, r.Metrics.TotalTrades, r.Metrics.WinRate*100, r.Metrics.TotalProfit, r.Metrics.MaxDrawdown*100)
		for _, name := range []string{
			optimization.ParamTakeProfitPct, optimization.ParamStopLossPct,
			optimization.ParamTrailingWidth, optimization.ParamMinQualityScore,
		} {
			if v, ok := r.Parameters[name]; ok {
				fmt.Printf("    %-20s %.2f\n", name, v)
			}
		}
	}
}
