// Package backtesting replays the decision engine over a historical
// snapshot sequence: a strict sequential fold maintaining at most one open
// position, producing an append-only trade log and aggregate statistics.
package backtesting

import (
	"context"
	"fmt"

	"ribbonBot/internal/domain"
	"ribbonBot/internal/ports"
	"ribbonBot/internal/strategy/confluence"
	"ribbonBot/internal/strategy/entry"
	"ribbonBot/internal/strategy/exit"
	"ribbonBot/internal/strategy/mtf"
	"ribbonBot/internal/strategy/ribbon"
)

// Config holds the simulator bookkeeping parameters.
type Config struct {
	Symbol               string
	StartingCapital      float64
	PositionSizeFraction float64 // fraction of running capital staked per trade, (0,1]
}

// Result aggregates the trade log. It carries no independent state: calling
// Summarize on the same trade log reproduces it exactly.
type Result struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	TotalPNL     float64
	AveragePNL   float64
	AverageWin   float64
	AverageLoss  float64
	LargestWin   float64
	LargestLoss  float64
	FinalCapital float64
	ReturnPct    float64

	ExitReasons map[domain.ExitReason]int
	Trades      []*domain.Trade

	// EquityCurve is the running capital after each closed trade, one entry
	// per trade in log order.
	EquityCurve []float64
}

// Simulator drives the entry detector and exit policy over a snapshot
// sequence. It exclusively owns the single live position and the trade log
// for a run; two simulators share nothing.
type Simulator struct {
	cfg       Config
	tracker   *ribbon.Tracker
	scorer    *confluence.Scorer
	detector  *entry.Detector
	policy    *exit.Policy
	confirmer *mtf.Confirmer // optional
	logger    ports.Logger
}

// NewSimulator wires the engine components. The confirmer may be nil when no
// auxiliary timeframes are supplied.
func NewSimulator(cfg Config, tracker *ribbon.Tracker, scorer *confluence.Scorer, detector *entry.Detector, policy *exit.Policy, confirmer *mtf.Confirmer, logger ports.Logger) (*Simulator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for simulator")
	}
	if tracker == nil || scorer == nil || detector == nil || policy == nil {
		return nil, fmt.Errorf("tracker, scorer, detector and policy are all required")
	}
	if cfg.StartingCapital <= 0 {
		return nil, fmt.Errorf("starting capital must be positive, got %.2f", cfg.StartingCapital)
	}
	if cfg.PositionSizeFraction <= 0 || cfg.PositionSizeFraction > 1 {
		return nil, fmt.Errorf("position size fraction must be in (0,1], got %.4f", cfg.PositionSizeFraction)
	}
	return &Simulator{
		cfg:       cfg,
		tracker:   tracker,
		scorer:    scorer,
		detector:  detector,
		policy:    policy,
		confirmer: confirmer,
		logger:    logger,
	}, nil
}

// Run replays the sequence. The input must be strictly time-ascending with
// no duplicate timestamps; anything else breaks the no-look-ahead guarantee
// and rejects the run before any snapshot is processed.
func (s *Simulator) Run(ctx context.Context, snaps []*domain.Snapshot, aux []mtf.Series) (*Result, error) {
	if len(snaps) == 0 {
		return nil, ports.ErrEmptySequence
	}
	for i := 1; i < len(snaps); i++ {
		if !snaps[i].Timestamp.After(snaps[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: index %d (%s) does not follow index %d (%s)",
				ports.ErrUnorderedSequence, i, snaps[i].Timestamp, i-1, snaps[i-1].Timestamp)
		}
	}

	s.tracker.Reset()
	capital := s.cfg.StartingCapital
	var position *domain.Position
	var trades []*domain.Trade

	for _, snap := range snaps {
		rs := s.tracker.Evaluate(snap)

		if position != nil {
			decision := s.policy.Evaluate(position, snap)
			if decision.ShouldExit {
				trade := s.closePosition(position, snap, decision.Reason, decision.RealizedPct)
				capital += trade.PNL
				trades = append(trades, trade)
				position = nil
			}
			continue
		}

		score := s.scorer.Score(snap)
		var mtfResult *mtf.Result
		if s.confirmer != nil && len(aux) > 0 {
			dir, _ := score.Dominant()
			r := s.confirmer.Confirm(snap.Timestamp, dir, aux...)
			mtfResult = &r
		}

		sig := s.detector.Evaluate(ctx, snap, score, rs, mtfResult)
		if !sig.Signal {
			continue
		}

		stake := capital * s.cfg.PositionSizeFraction
		position = &domain.Position{
			Symbol:       s.cfg.Symbol,
			Direction:    sig.Direction,
			EntryPrice:   snap.Close,
			Quantity:     stake / snap.Close,
			EntryTime:    snap.Timestamp,
			Status:       domain.StatusOpen,
			QualityScore: sig.QualityScore,
		}
		s.logger.Debug(ctx, "position opened", map[string]interface{}{
			"direction": sig.Direction,
			"price":     snap.Close,
			"quality":   sig.QualityScore,
			"reason":    sig.Reason,
		})
	}

	// Deliberate policy, not an error: real-world runs must eventually
	// reconcile open state, so a still-open position is marked to the final
	// close with no fee or slippage applied.
	if position != nil {
		last := snaps[len(snaps)-1]
		trade := s.closePosition(position, last, domain.ExitEndOfData, position.FavorablePct(last.Close))
		capital += trade.PNL
		trades = append(trades, trade)
	}

	result := Summarize(trades, s.cfg.StartingCapital)
	s.logger.Info(ctx, "backtest complete", map[string]interface{}{
		"trades":       result.TotalTrades,
		"winRate":      result.WinRate,
		"totalPNL":     result.TotalPNL,
		"finalCapital": result.FinalCapital,
	})
	return result, nil
}

// closePosition converts the open position into an immutable trade record.
// The currency P&L applies the realized percent to the staked fraction of
// capital at entry.
func (s *Simulator) closePosition(pos *domain.Position, snap *domain.Snapshot, reason domain.ExitReason, realizedPct float64) *domain.Trade {
	stake := pos.Quantity * pos.EntryPrice
	return &domain.Trade{
		Symbol:           pos.Symbol,
		Direction:        pos.Direction,
		EntryPrice:       pos.EntryPrice,
		ExitPrice:        snap.Close,
		Quantity:         pos.Quantity,
		QualityScore:     pos.QualityScore,
		PNL:              stake * realizedPct / 100,
		PNLPct:           realizedPct,
		PeakFavorablePct: pos.PeakFavorablePct,
		EntryTime:        pos.EntryTime,
		ExitTime:         snap.Timestamp,
		ExitReason:       reason,
	}
}

// Summarize recomputes the aggregate result from a trade log. Safe to call
// at any time; the trade log is the single source of truth.
func Summarize(trades []*domain.Trade, startingCapital float64) *Result {
	result := &Result{
		ExitReasons:  make(map[domain.ExitReason]int),
		Trades:       trades,
		FinalCapital: startingCapital,
		EquityCurve:  make([]float64, 0, len(trades)),
	}

	for _, t := range trades {
		result.TotalTrades++
		result.TotalPNL += t.PNL
		result.ExitReasons[t.ExitReason]++
		result.EquityCurve = append(result.EquityCurve, startingCapital+result.TotalPNL)

		if t.PNL > 0 {
			result.WinningTrades++
			result.AverageWin = (result.AverageWin*float64(result.WinningTrades-1) + t.PNL) / float64(result.WinningTrades)
			if t.PNL > result.LargestWin {
				result.LargestWin = t.PNL
			}
		} else {
			result.LosingTrades++
			result.AverageLoss = (result.AverageLoss*float64(result.LosingTrades-1) + t.PNL) / float64(result.LosingTrades)
			if t.PNL < result.LargestLoss {
				result.LargestLoss = t.PNL
			}
		}
	}

	result.FinalCapital = startingCapital + result.TotalPNL
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)
		result.AveragePNL = result.TotalPNL / float64(result.TotalTrades)
	}
	if startingCapital > 0 {
		result.ReturnPct = result.TotalPNL / startingCapital * 100
	}
	return result
}
