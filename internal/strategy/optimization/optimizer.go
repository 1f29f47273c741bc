// Package optimization sweeps entry/exit thresholds over a snapshot
// sequence. Each parameter combination runs its own simulator instance;
// runs share nothing, so the sweep is embarrassingly parallel.
package optimization

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ribbonBot/internal/domain"
	"ribbonBot/internal/ports"
	"ribbonBot/internal/strategy/analytics"
	"ribbonBot/internal/strategy/backtesting"
	"ribbonBot/internal/strategy/confluence"
	"ribbonBot/internal/strategy/entry"
	"ribbonBot/internal/strategy/exit"
	"ribbonBot/internal/strategy/mtf"
	"ribbonBot/internal/strategy/ribbon"
)

// Recognized sweep parameter names.
const (
	ParamTakeProfitPct   = "take_profit_pct"
	ParamStopLossPct     = "stop_loss_pct"
	ParamProfitLockPct   = "profit_lock_pct"
	ParamTrailingWidth   = "trailing_width_pct"
	ParamMinQualityScore = "min_quality_score"
	ParamConfluenceGap   = "confluence_gap_min"
)

// ParameterRange defines a range for a parameter to optimize.
type ParameterRange struct {
	Name string
	Min  float64
	Max  float64
	Step float64
}

// OptimizationResult holds the outcome for one parameter combination.
type OptimizationResult struct {
	Parameters map[string]float64
	Metrics    *analytics.PerformanceMetrics
	Score      float64
}

// Config holds the sweep setup. EntryConfig/ExitConfig are the base
// configurations each combination mutates.
type Config struct {
	ParameterRanges []ParameterRange
	EntryConfig     entry.Config
	ExitConfig      exit.Config
	RibbonConfig    ribbon.Config
	Weights         confluence.Weights
	Simulator       backtesting.Config
	ScoreFunction   func(*analytics.PerformanceMetrics) float64
}

// Optimizer runs the grid sweep.
type Optimizer struct {
	cfg    Config
	logger ports.Logger
}

// NewOptimizer validates the sweep configuration.
func NewOptimizer(cfg Config, logger ports.Logger) (*Optimizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for optimizer")
	}
	if len(cfg.ParameterRanges) == 0 {
		return nil, fmt.Errorf("at least one parameter range is required")
	}
	for _, r := range cfg.ParameterRanges {
		if r.Step <= 0 || r.Min > r.Max {
			return nil, fmt.Errorf("invalid range for %q: min %.2f max %.2f step %.2f", r.Name, r.Min, r.Max, r.Step)
		}
		if !recognizedParam(r.Name) {
			return nil, fmt.Errorf("unknown sweep parameter %q", r.Name)
		}
	}
	if cfg.ScoreFunction == nil {
		cfg.ScoreFunction = DefaultScore
	}
	return &Optimizer{cfg: cfg, logger: logger}, nil
}

// DefaultScore balances profit against drawdown.
func DefaultScore(m *analytics.PerformanceMetrics) float64 {
	if m.TotalTrades == 0 {
		return 0
	}
	return m.TotalProfit * (1 - m.MaxDrawdown)
}

// Optimize runs every parameter combination concurrently and returns the
// results sorted by score, best first.
func (o *Optimizer) Optimize(ctx context.Context, snaps []*domain.Snapshot, aux []mtf.Series) ([]OptimizationResult, error) {
	combinations := o.generateCombinations()
	o.logger.Info(ctx, "starting parameter sweep", map[string]interface{}{"combinations": len(combinations)})

	resultCh := make(chan OptimizationResult, len(combinations))
	var wg sync.WaitGroup

	for _, params := range combinations {
		wg.Add(1)
		go func(params map[string]float64) {
			defer wg.Done()
			metrics, err := o.runOne(ctx, snaps, aux, params)
			if err != nil {
				o.logger.Error(ctx, err, "sweep combination failed", map[string]interface{}{"params": params})
				return
			}
			resultCh <- OptimizationResult{
				Parameters: params,
				Metrics:    metrics,
				Score:      o.cfg.ScoreFunction(metrics),
			}
		}(params)
	}

	wg.Wait()
	close(resultCh)

	results := make([]OptimizationResult, 0, len(combinations))
	for r := range resultCh {
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// runOne builds a fully independent engine for one combination and replays
// the sequence.
func (o *Optimizer) runOne(ctx context.Context, snaps []*domain.Snapshot, aux []mtf.Series, params map[string]float64) (*analytics.PerformanceMetrics, error) {
	entryCfg := o.cfg.EntryConfig
	exitCfg := o.cfg.ExitConfig
	applyParams(&entryCfg, &exitCfg, params)

	tracker, err := ribbon.NewTracker(o.cfg.RibbonConfig)
	if err != nil {
		return nil, err
	}
	detector, err := entry.NewDetector(entryCfg, o.logger)
	if err != nil {
		return nil, err
	}
	policy, err := exit.NewPolicy(exitCfg)
	if err != nil {
		return nil, err
	}
	var confirmer *mtf.Confirmer
	if len(aux) > 0 {
		confirmer, err = mtf.NewConfirmer(mtf.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}

	sim, err := backtesting.NewSimulator(o.cfg.Simulator, tracker, confluence.NewScorer(o.cfg.Weights), detector, policy, confirmer, o.logger)
	if err != nil {
		return nil, err
	}
	result, err := sim.Run(ctx, snaps, aux)
	if err != nil {
		return nil, err
	}
	return analytics.AnalyzePerformance(result.Trades, o.cfg.Simulator.StartingCapital), nil
}

func applyParams(entryCfg *entry.Config, exitCfg *exit.Config, params map[string]float64) {
	for name, v := range params {
		switch name {
		case ParamTakeProfitPct:
			exitCfg.TakeProfitPct = v
		case ParamStopLossPct:
			exitCfg.StopLossPct = v
		case ParamProfitLockPct:
			exitCfg.ProfitLockPct = v
		case ParamTrailingWidth:
			exitCfg.TrailingWidthPct = v
		case ParamMinQualityScore:
			entryCfg.MinQualityScore = v
		case ParamConfluenceGap:
			entryCfg.ConfluenceGapMin = v
		}
	}
}

func recognizedParam(name string) bool {
	switch name {
	case ParamTakeProfitPct, ParamStopLossPct, ParamProfitLockPct, ParamTrailingWidth, ParamMinQualityScore, ParamConfluenceGap:
		return true
	}
	return false
}

// generateCombinations expands the parameter ranges into the full grid.
func (o *Optimizer) generateCombinations() []map[string]float64 {
	combinations := []map[string]float64{{}}
	for _, r := range o.cfg.ParameterRanges {
		var expanded []map[string]float64
		for v := r.Min; v <= r.Max+1e-9; v += r.Step {
			for _, base := range combinations {
				c := make(map[string]float64, len(base)+1)
				for k, bv := range base {
					c[k] = bv
				}
				c[r.Name] = v
				expanded = append(expanded, c)
			}
		}
		combinations = expanded
	}
	return combinations
}
