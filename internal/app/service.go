package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

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

const (
	// maxKlineCacheSize bounds the decision-interval window. It must cover
	// the longest ribbon EMA (175) plus enough runway for the oscillators.
	maxKlineCacheSize = 500

	quoteAsset = "USDT"
)

// TradingService orchestrates the live engine: it maintains the kline
// window, rebuilds snapshots on each closed candle and runs the entry/exit
// pipeline against them.
type TradingService struct {
	cfg       *config.Config
	logger    ports.Logger
	exchange  ports.ExchangeClient
	posRepo   ports.PositionRepository
	tradeRepo ports.TradeRepository

	builder   *snapshot.Builder
	tracker   *ribbon.Tracker
	scorer    *confluence.Scorer
	confirmer *mtf.Confirmer
	detector  *entry.Detector
	policy    *exit.Policy
	riskMgr   *risk.Manager

	// State fields
	mu              sync.Mutex // Protects access to state fields below
	klineCache      []*domain.Kline
	currentPosition *domain.Position
}

// NewTradingService builds the strategy pipeline from the configuration and
// wires it to the given adapters.
func NewTradingService(
	cfg *config.Config,
	logger ports.Logger,
	exchange ports.ExchangeClient,
	posRepo ports.PositionRepository,
	tradeRepo ports.TradeRepository,
) (*TradingService, error) {
	if cfg == nil || logger == nil || exchange == nil || posRepo == nil || tradeRepo == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}

	builder, err := snapshot.NewBuilder(cfg.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("snapshot builder: %w", err)
	}
	tracker, err := ribbon.NewTracker(cfg.Ribbon)
	if err != nil {
		return nil, fmt.Errorf("ribbon tracker: %w", err)
	}
	confirmer, err := mtf.NewConfirmer(cfg.MTF)
	if err != nil {
		return nil, fmt.Errorf("mtf confirmer: %w", err)
	}
	detector, err := entry.NewDetector(cfg.Entry, logger)
	if err != nil {
		return nil, fmt.Errorf("entry detector: %w", err)
	}
	policy, err := exit.NewPolicy(cfg.Exit)
	if err != nil {
		return nil, fmt.Errorf("exit policy: %w", err)
	}
	riskMgr, err := risk.NewManager(cfg.Risk)
	if err != nil {
		return nil, fmt.Errorf("risk manager: %w", err)
	}

	return &TradingService{
		cfg:        cfg,
		logger:     logger,
		exchange:   exchange,
		posRepo:    posRepo,
		tradeRepo:  tradeRepo,
		builder:    builder,
		tracker:    tracker,
		scorer:     confluence.NewScorer(cfg.Weights),
		confirmer:  confirmer,
		detector:   detector,
		policy:     policy,
		riskMgr:    riskMgr,
		klineCache: make([]*domain.Kline, 0, maxKlineCacheSize),
	}, nil
}

// Start begins the engine's main loop and blocks until shutdown.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Trading Service...", map[string]interface{}{"symbol": s.cfg.Symbol, "interval": s.cfg.Interval})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	// 1. Verify connectivity before anything stateful
	if err := s.exchange.Ping(ctx); err != nil {
		return fmt.Errorf("exchange ping failed: %w", err)
	}

	// 2. Restore open position state (if any)
	openPos, err := s.posRepo.FindOpenBySymbol(ctx, s.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("failed to query open position: %w", err)
	}
	if openPos != nil {
		s.currentPosition = openPos
		s.logger.Info(ctx, "Found existing open position", map[string]interface{}{
			"positionID": openPos.ID,
			"direction":  openPos.Direction,
			"entryPrice": openPos.EntryPrice,
			"peakPct":    openPos.PeakFavorablePct,
		})
	} else {
		s.logger.Info(ctx, "No existing open position found")
	}

	// 3. Load the initial decision-interval window
	initialKlines, err := s.exchange.GetKlines(ctx, s.cfg.Symbol, s.cfg.Interval, maxKlineCacheSize)
	if err != nil {
		return fmt.Errorf("failed to load initial klines: %w", err)
	}
	s.klineCache = initialKlines
	s.logger.Info(ctx, "Loaded initial klines", map[string]interface{}{"count": len(s.klineCache)})

	// 4. Stream closed candles
	wsDoneCh, wsStopCh, err := s.exchange.StreamKlines(ctx, s.cfg.Symbol, s.cfg.Interval, s.handleKlineEvent, s.handleWsError)
	if err != nil {
		return fmt.Errorf("failed to start WebSocket stream: %w", err)
	}
	s.logger.Info(ctx, "WebSocket stream started", map[string]interface{}{"symbol": s.cfg.Symbol, "interval": s.cfg.Interval})

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Main context cancelled, initiating shutdown...")
		select {
		case wsStopCh <- struct{}{}:
		default:
		}
		select {
		case <-wsDoneCh:
			s.logger.Info(ctx, "WebSocket stream shut down gracefully")
		case <-time.After(5 * time.Second):
			s.logger.Warn(ctx, "Timeout waiting for WebSocket stream to shut down")
		}
	case <-wsDoneCh:
		return fmt.Errorf("websocket stream stopped unexpectedly")
	}

	s.logger.Info(ctx, "Trading Service stopped.")
	return nil
}

// handleKlineEvent processes one candle from the WebSocket. The whole
// decision pipeline (snapshot, ribbon, confluence, entry/exit) runs here,
// once per closed candle.
func (s *TradingService) handleKlineEvent(kline *domain.Kline) {
	ctx := context.Background()

	// Only closed candles feed the engine; every derived value would
	// otherwise fluctuate with the in-progress bar.
	if !kline.IsFinal {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.klineCache = append(s.klineCache, kline)
	if len(s.klineCache) > maxKlineCacheSize {
		s.klineCache = s.klineCache[len(s.klineCache)-maxKlineCacheSize:]
	}

	snaps, err := s.builder.Build(s.klineCache)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to build snapshots from kline cache")
		return
	}
	if len(snaps) == 0 {
		return
	}
	snap := snaps[len(snaps)-1]

	// The tracker carries cross-step ribbon state, so it must see every
	// closed candle even while a position is open.
	rs := s.tracker.Evaluate(snap)

	if s.currentPosition != nil {
		s.evaluateExit(ctx, snap)
		return
	}

	s.evaluateEntry(ctx, snap, rs)
}

// evaluateExit runs the exit rules for the open position.
// Assumes s.mu is held.
func (s *TradingService) evaluateExit(ctx context.Context, snap *domain.Snapshot) {
	pos := s.currentPosition
	prevPeak := pos.PeakFavorablePct

	decision := s.policy.Evaluate(pos, snap)
	if !decision.ShouldExit {
		// Persist peak advances so a restart cannot lower the trailing
		// reference point.
		if pos.PeakFavorablePct > prevPeak {
			if err := s.posRepo.Update(ctx, pos); err != nil {
				s.logger.Error(ctx, err, "Failed to persist peak update", map[string]interface{}{"positionID": pos.ID})
			}
		}
		return
	}

	s.logger.Info(ctx, "Exit rule fired", map[string]interface{}{
		"positionID":  pos.ID,
		"reason":      decision.Reason,
		"currentPct":  decision.RealizedPct,
		"peakPct":     pos.PeakFavorablePct,
		"markedPrice": decision.ExitPrice,
	})
	if err := s.closePosition(ctx, decision); err != nil {
		s.logger.Error(ctx, err, "Failed to close position", map[string]interface{}{"positionID": pos.ID})
	}
}

// evaluateEntry runs the gate chain and opens a position on an accepted
// signal. Assumes s.mu is held.
func (s *TradingService) evaluateEntry(ctx context.Context, snap *domain.Snapshot, rs ribbon.State) {
	score := s.scorer.Score(snap)

	var mtfResult *mtf.Result
	if s.cfg.Entry.RequireMTFConfirmation {
		dir, _ := score.Dominant()
		series, err := s.auxSeries(ctx)
		if err != nil {
			s.logger.Warn(ctx, "Failed to load auxiliary timeframes, skipping entry", map[string]interface{}{"error": err.Error()})
			return
		}
		res := s.confirmer.Confirm(snap.Timestamp, dir, series...)
		mtfResult = &res
	}

	sig := s.detector.Evaluate(ctx, snap, score, rs, mtfResult)
	if !sig.Signal {
		return
	}
	s.logger.Info(ctx, "Entry signal accepted", map[string]interface{}{
		"direction":    sig.Direction,
		"qualityScore": sig.QualityScore,
		"confidence":   sig.Confidence,
		"filters":      sig.FiltersPassed,
	})

	balance, err := s.exchange.GetAccountBalance(ctx, quoteAsset)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to fetch balance for entry")
		return
	}
	stake := balance * s.cfg.PositionSizeFraction
	if err := s.riskMgr.CanOpen(snap.Timestamp, balance, stake); err != nil {
		s.logger.Warn(ctx, "Risk limits block entry", map[string]interface{}{"reason": err.Error()})
		return
	}

	if err := s.enterPosition(ctx, snap, sig, stake); err != nil {
		s.logger.Error(ctx, err, "Failed to enter position")
	}
}

// auxSeries fetches and snapshots the auxiliary timeframes for confirmation.
func (s *TradingService) auxSeries(ctx context.Context) ([]mtf.Series, error) {
	limit := s.cfg.MTF.Window + s.cfg.MTF.SlowPeriod + maxRibbonWarmup(s.cfg.Snapshot)
	series := make([]mtf.Series, 0, len(s.cfg.AuxIntervals))
	for _, interval := range s.cfg.AuxIntervals {
		klines, err := s.exchange.GetKlines(ctx, s.cfg.Symbol, interval, limit)
		if err != nil {
			return nil, fmt.Errorf("loading %s klines: %w", interval, err)
		}
		snaps, err := s.builder.Build(klines)
		if err != nil {
			return nil, fmt.Errorf("building %s snapshots: %w", interval, err)
		}
		series = append(series, mtf.Series{Timeframe: interval, Snapshots: snaps})
	}
	return series, nil
}

func maxRibbonWarmup(cfg snapshot.Config) int {
	max := 0
	for _, p := range cfg.RibbonPeriods {
		if p > max {
			max = p
		}
	}
	return max
}

func (s *TradingService) enterPosition(ctx context.Context, snap *domain.Snapshot, sig entry.Signal, stake float64) error {
	op := "enterPosition"

	quantity := stake / snap.Close
	quantityStr := formatQuantity(quantity)

	order, err := s.exchange.PlaceMarketOrder(ctx, s.cfg.Symbol, sig.Direction.EntrySide(), quantityStr)
	if err != nil {
		return fmt.Errorf("entry market order failed: %w", err)
	}

	entryPrice := order.AvgPrice
	if entryPrice == 0 {
		s.logger.Warn(ctx, op+": order AvgPrice is 0, using candle close as fallback", map[string]interface{}{"orderID": order.OrderID, "fallbackPrice": snap.Close})
		entryPrice = snap.Close
	}

	newPosition := &domain.Position{
		Symbol:       s.cfg.Symbol,
		Direction:    sig.Direction,
		EntryPrice:   entryPrice,
		Quantity:     quantity,
		QualityScore: sig.QualityScore,
		EntryTime:    snap.Timestamp,
		Status:       domain.StatusOpen,
	}
	if _, err := s.posRepo.Create(ctx, newPosition); err != nil {
		// The venue holds exposure the store does not know about. Flatten
		// immediately rather than trade on unsynced state.
		s.logger.Error(ctx, err, op+": failed to persist position, attempting emergency close")
		if closeErr := s.emergencyClose(ctx, sig.Direction, quantityStr); closeErr != nil {
			s.logger.Error(ctx, closeErr, op+": EMERGENCY CLOSE FAILED")
		}
		return fmt.Errorf("failed to persist position: %w (emergency close attempted)", err)
	}

	s.currentPosition = newPosition
	s.logger.Info(ctx, op+": position opened", map[string]interface{}{
		"positionID": newPosition.ID,
		"direction":  newPosition.Direction,
		"entryPrice": newPosition.EntryPrice,
		"quantity":   newPosition.Quantity,
	})
	return nil
}

func (s *TradingService) closePosition(ctx context.Context, decision exit.Decision) error {
	op := "closePosition"
	pos := s.currentPosition
	if pos == nil {
		return fmt.Errorf("no open position to close")
	}

	quantityStr := formatQuantity(pos.Quantity)
	order, err := s.exchange.PlaceMarketOrder(ctx, s.cfg.Symbol, closeSide(pos.Direction), quantityStr)
	if err != nil {
		// The position stays open; the next candle retries via the same rule.
		return fmt.Errorf("closing market order failed for position %d: %w", pos.ID, err)
	}

	exitPrice := order.AvgPrice
	if exitPrice == 0 {
		exitPrice = decision.ExitPrice
	}

	pnl := (exitPrice - pos.EntryPrice) * pos.Quantity * pos.Direction.Sign()
	pnlPct := pos.FavorablePct(exitPrice)

	pos.ExitPrice = exitPrice
	pos.ExitTime = time.Now().UTC()
	pos.Status = domain.StatusClosed
	pos.ExitReason = decision.Reason
	pos.PNL = pnl
	if err := s.posRepo.Update(ctx, pos); err != nil {
		return fmt.Errorf("failed to update closed position: %w", err)
	}

	trade := &domain.Trade{
		PositionID:       pos.ID,
		Symbol:           pos.Symbol,
		Direction:        pos.Direction,
		EntryPrice:       pos.EntryPrice,
		ExitPrice:        exitPrice,
		Quantity:         pos.Quantity,
		QualityScore:     pos.QualityScore,
		PNL:              pnl,
		PNLPct:           pnlPct,
		PeakFavorablePct: pos.PeakFavorablePct,
		EntryTime:        pos.EntryTime,
		ExitTime:         pos.ExitTime,
		ExitReason:       decision.Reason,
	}
	if _, err := s.tradeRepo.CreateTrade(ctx, trade); err != nil {
		// The position row already records the close; losing the trade row
		// only degrades reporting.
		s.logger.Error(ctx, err, op+": failed to record trade", map[string]interface{}{"positionID": pos.ID})
	}

	s.riskMgr.RecordTrade(pos.ExitTime, pnl)
	s.currentPosition = nil
	s.logger.Info(ctx, op+": position closed", map[string]interface{}{
		"positionID": pos.ID,
		"exitPrice":  exitPrice,
		"pnl":        pnl,
		"pnlPct":     pnlPct,
		"reason":     decision.Reason,
	})
	return nil
}

// emergencyClose flattens exposure on the venue without touching the store.
func (s *TradingService) emergencyClose(ctx context.Context, dir domain.Direction, quantityStr string) error {
	s.logger.Warn(ctx, "Placing emergency closing order", map[string]interface{}{"side": closeSide(dir), "quantity": quantityStr})
	_, err := s.exchange.PlaceMarketOrder(ctx, s.cfg.Symbol, closeSide(dir), quantityStr)
	if err != nil {
		return fmt.Errorf("emergency close order placement failed: %w", err)
	}
	return nil
}

// handleWsError handles errors reported by the WebSocket stream. Reconnects
// happen inside the adapter; this is observability only.
func (s *TradingService) handleWsError(err error) {
	s.logger.Error(context.Background(), err, "WebSocket stream error reported")
}

func closeSide(dir domain.Direction) domain.OrderSide {
	if dir == domain.Long {
		return domain.Sell
	}
	return domain.Buy
}

// formatQuantity formats a quantity for the venue API.
// TODO: pull the per-symbol quantity precision from exchangeInfo.
func formatQuantity(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', 3, 64)
}
