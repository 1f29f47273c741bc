package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"ribbonBot/config"
	"ribbonBot/internal/adapters/binanceclient"
	"ribbonBot/internal/adapters/logger"
	"ribbonBot/internal/utils"
)

func main() {
	months := flag.Int("months", 3, "how many months of history to fetch")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	end := time.Now()
	start := end.AddDate(0, -*months, 0)

	// Fetch the decision interval plus every auxiliary confirmation interval.
	intervals := append([]string{cfg.Interval}, cfg.AuxIntervals...)
	for _, interval := range intervals {
		appLogger.Info(context.Background(), "Fetching klines", map[string]interface{}{
			"symbol":   cfg.Symbol,
			"interval": interval,
			"from":     start.Format("2006-01-02"),
			"to":       end.Format("2006-01-02"),
		})
		klines, err := binanceClient.GetKlinesRange(context.Background(), cfg.Symbol, interval, start, end)
		if err != nil {
			appLogger.Error(context.Background(), err, "Error fetching klines", map[string]interface{}{"interval": interval})
			log.Fatalf("Error fetching klines: %v", err)
		}

		filename := fmt.Sprintf("data/%s_%s_%s_to_%s.csv", cfg.Symbol, interval, start.Format("20060102"), end.Format("20060102"))
		if err := utils.WriteKlinesToCSV(klines, filename); err != nil {
			appLogger.Error(context.Background(), err, "Error writing CSV", map[string]interface{}{"filename": filename})
			log.Fatalf("Error writing CSV: %v", err)
		}
		appLogger.Info(context.Background(), "Saved klines", map[string]interface{}{"filename": filename, "count": len(klines)})
	}
}
