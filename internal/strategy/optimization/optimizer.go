// Package optimization sweeps simulator parameters over a grid and ranks the
// resulting runs.
package optimization

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/risk"
	"github.com/juanluis911/TradingLatino/internal/strategy/analytics"
	"github.com/juanluis911/TradingLatino/internal/strategy/backtesting"
)

const maxCombinations = 10000

// Parameter names accepted in a ParameterRange.
const (
	ParamStopLossPct         = "stop_loss_pct"
	ParamTarget1Pct          = "target_1_pct"
	ParamTarget2Pct          = "target_2_pct"
	ParamMinStrength         = "min_strength"
	ParamTierCapitalFraction = "tier_capital_fraction"
	ParamMaxHoldingHours     = "max_holding_hours"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name string
	Min  float64
	Max  float64
	Step float64
}

// ParseRange reads "name=min:max:step" or "name=value".
func ParseRange(expr string) (ParameterRange, error) {
	name, bounds, ok := strings.Cut(expr, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return ParameterRange{}, fmt.Errorf("parameter range %q: expected name=min:max:step", expr)
	}
	parts := strings.Split(bounds, ":")
	if len(parts) != 1 && len(parts) != 3 {
		return ParameterRange{}, fmt.Errorf("parameter range %q: expected name=min:max:step", expr)
	}
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return ParameterRange{}, fmt.Errorf("parameter range %q: %w", expr, err)
		}
		values[i] = v
	}
	r := ParameterRange{Name: strings.TrimSpace(name), Min: values[0], Max: values[0]}
	if len(values) == 3 {
		r.Max, r.Step = values[1], values[2]
	}
	return r, nil
}

// Result holds one evaluated parameter combination.
type Result struct {
	Parameters map[string]float64
	Summary    *domain.Summary
	Score      float64
}

// ScoreFunc ranks a summary; higher is better.
type ScoreFunc func(*domain.Summary) float64

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	Base            backtesting.SimulatorConfig
	BaseRisk        risk.RiskConfig
	ParameterRanges []ParameterRange
	// Workers bounds the concurrent simulations; zero means one per CPU.
	Workers       int
	ScoreFunction ScoreFunc
	Logger        ports.Logger
}

// Optimizer runs one simulation per parameter combination. The indicator
// engine and signal generator are shared and must be safe for concurrent use.
type Optimizer struct {
	config    OptimizerConfig
	engine    ports.IndicatorEngine
	generator ports.SignalGenerator
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig, engine ports.IndicatorEngine, generator ports.SignalGenerator) (*Optimizer, error) {
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required for optimizer")
	}
	if engine == nil || generator == nil {
		return nil, fmt.Errorf("indicator engine and signal generator are required for optimizer")
	}
	if len(config.ParameterRanges) == 0 {
		return nil, fmt.Errorf("%w: at least one parameter range is required", ports.ErrConfigurationError)
	}
	for _, r := range config.ParameterRanges {
		if _, _, err := Apply(config.Base, config.BaseRisk, map[string]float64{r.Name: r.Min}); err != nil {
			return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
		}
		if r.Max < r.Min || (r.Max > r.Min && r.Step <= 0) {
			return nil, fmt.Errorf("%w: invalid range for %s [%g, %g] step %g", ports.ErrConfigurationError, r.Name, r.Min, r.Max, r.Step)
		}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	return &Optimizer{config: config, engine: engine, generator: generator}, nil
}

// Optimize simulates every combination over the same data and returns the
// results sorted by score, best first. Combinations that do not form a valid
// simulator configuration are logged and left out.
func (o *Optimizer) Optimize(ctx context.Context, params domain.RunParams, data map[string][]*domain.Kline) ([]Result, error) {
	combinations := o.Combinations()
	if len(combinations) > maxCombinations {
		return nil, fmt.Errorf("%w: %d combinations exceed the limit of %d", ports.ErrInvalidRequest, len(combinations), maxCombinations)
	}

	o.config.Logger.Info(ctx, "Starting parameter sweep", map[string]interface{}{
		"combinations": len(combinations),
		"workers":      o.config.Workers,
	})

	// Indexed by combination so the order of equal scores is stable
	slots := make([]*Result, len(combinations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i := range combinations {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			slots[i] = o.evaluate(gctx, params, data, combinations[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
	}

	results := make([]Result, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

func (o *Optimizer) evaluate(ctx context.Context, params domain.RunParams, data map[string][]*domain.Kline, combination map[string]float64) *Result {
	sim, err := o.simulator(combination)
	if err != nil {
		o.config.Logger.Warn(ctx, "Skipping parameter combination", map[string]interface{}{
			"parameters": combination,
			"error":      err.Error(),
		})
		return nil
	}

	run, err := sim.Run(ctx, params, data)
	if err != nil {
		o.config.Logger.Warn(ctx, "Simulation failed for parameter combination", map[string]interface{}{
			"parameters": combination,
			"error":      err.Error(),
		})
		return nil
	}

	summary := analytics.Summarize(run)
	return &Result{
		Parameters: combination,
		Summary:    summary,
		Score:      o.config.ScoreFunction(summary),
	}
}

func (o *Optimizer) simulator(combination map[string]float64) (*backtesting.Simulator, error) {
	simConfig, riskConfig, err := Apply(o.config.Base, o.config.BaseRisk, combination)
	if err != nil {
		return nil, err
	}
	riskManager, err := risk.NewRiskManager(riskConfig)
	if err != nil {
		return nil, err
	}
	return backtesting.NewSimulator(simConfig, o.engine, o.generator, riskManager, o.config.Logger)
}

// Combinations generates all possible parameter combinations
func (o *Optimizer) Combinations() []map[string]float64 {
	var combinations []map[string]float64
	current := make(map[string]float64)

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(current))
			for k, v := range current {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		if param.Step <= 0 {
			current[param.Name] = param.Min
			generate(paramIndex + 1)
			return
		}
		steps := int(math.Floor((param.Max-param.Min)/param.Step + 1e-9))
		for i := 0; i <= steps; i++ {
			current[param.Name] = param.Min + float64(i)*param.Step
			generate(paramIndex + 1)
		}
	}

	generate(0)
	return combinations
}

// Apply returns the simulator and risk configurations with the named
// parameters overridden. Levels and sizing live in the risk configuration.
func Apply(base backtesting.SimulatorConfig, baseRisk risk.RiskConfig, params map[string]float64) (backtesting.SimulatorConfig, risk.RiskConfig, error) {
	cfg, rc := base, baseRisk
	for name, v := range params {
		switch name {
		case ParamStopLossPct:
			rc.StopLossPct = v
		case ParamTarget1Pct:
			rc.Target1Pct = v
		case ParamTarget2Pct:
			rc.Target2Pct = v
		case ParamTierCapitalFraction:
			rc.TierCapitalFraction = v
		case ParamMinStrength:
			cfg.MinStrength = int(math.Round(v))
		case ParamMaxHoldingHours:
			cfg.MaxHolding = time.Duration(v * float64(time.Hour))
		default:
			return base, baseRisk, fmt.Errorf("unknown optimization parameter %q", name)
		}
	}
	return cfg, rc, nil
}

// DefaultScoreFunction weights return against drawdown and win rate.
func DefaultScoreFunction(s *domain.Summary) float64 {
	if s == nil || s.TotalTrades == 0 {
		return math.Inf(-1)
	}
	score := 0.0
	score += s.TotalReturnPct * 0.4
	score -= s.MaxDrawdownPct * 0.3
	score += s.WinRate / 100 * 0.2
	score += s.SharpeRatio * 0.1
	return score
}
