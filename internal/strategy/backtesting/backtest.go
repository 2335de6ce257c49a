package backtesting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/risk"
)

// SimulatorConfig holds configuration for the position lifecycle simulator
type SimulatorConfig struct {
	WarmupBars  int `mapstructure:"warmup_bars" validate:"gte=1"`
	MinStrength int `mapstructure:"min_strength" validate:"gte=0,lte=100"`
	// Invalidation factors scale the fast EMA; a close beyond them exits the trade.
	InvalidationLongFactor  float64       `mapstructure:"invalidation_long_factor" validate:"gt=0,lte=1"`
	InvalidationShortFactor float64       `mapstructure:"invalidation_short_factor" validate:"gte=1"`
	MaxHolding              time.Duration `mapstructure:"max_holding" validate:"gt=0"`
	AllowSameBarReentry     bool          `mapstructure:"allow_same_bar_reentry"`
}

// DefaultSimulatorConfig returns the 100-bar warmup, strength 50, 48h holding configuration.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		WarmupBars:              100,
		MinStrength:             50,
		InvalidationLongFactor:  0.995,
		InvalidationShortFactor: 1.005,
		MaxHolding:              48 * time.Hour,
	}
}

// ProgressFunc is called after every simulated bar of a symbol.
type ProgressFunc func(symbol string, done, total int)

// Simulator walks historical bars and drives the FLAT -> OPEN -> CLOSED cycle
// of every symbol against one shared capital pool.
type Simulator struct {
	config    SimulatorConfig
	engine    ports.IndicatorEngine
	generator ports.SignalGenerator
	risk      *risk.RiskManager
	logger    ports.Logger
	progress  ProgressFunc
}

// NewSimulator creates a simulator over the given collaborators. The risk
// manager sizes every position and places its stop and targets.
func NewSimulator(config SimulatorConfig, engine ports.IndicatorEngine, generator ports.SignalGenerator, riskManager *risk.RiskManager, logger ports.Logger) (*Simulator, error) {
	if engine == nil {
		return nil, fmt.Errorf("indicator engine is required for simulator")
	}
	if generator == nil {
		return nil, fmt.Errorf("signal generator is required for simulator")
	}
	if riskManager == nil {
		return nil, fmt.Errorf("risk manager is required for simulator")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for simulator")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("%w: invalid simulator config: %w", ports.ErrConfigurationError, err)
	}
	if need := engine.RequiredDataPoints(); config.WarmupBars < need {
		return nil, fmt.Errorf("%w: warm-up of %d bars is below the %d the indicators need", ports.ErrConfigurationError, config.WarmupBars, need)
	}
	return &Simulator{config: config, engine: engine, generator: generator, risk: riskManager, logger: logger}, nil
}

// OnProgress registers a hook called after every simulated bar.
func (s *Simulator) OnProgress(fn ProgressFunc) {
	s.progress = fn
}

// Run simulates every symbol of params in sorted order. Symbols with too little
// history are skipped and recorded on the run. The partial run is returned
// together with the error when the context is cancelled or an invariant breaks.
func (s *Simulator) Run(ctx context.Context, params domain.RunParams, data map[string][]*domain.Kline) (*domain.Run, error) {
	run, err := domain.NewRun(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	symbols := uniqueSorted(params.Symbols)
	s.logger.Info(ctx, "Starting backtest", map[string]interface{}{
		"run_id":          run.ID,
		"symbols":         symbols,
		"interval":        params.Interval,
		"initial_capital": params.InitialCapital,
	})

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			s.finish(run, data)
			return run, fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
		}

		bars := data[symbol]
		if len(bars) < s.config.WarmupBars {
			err := fmt.Errorf("%w: %d bars, need %d", ports.ErrDataInsufficient, len(bars), s.config.WarmupBars)
			run.Skip(symbol, err.Error())
			s.logger.Warn(ctx, "Skipping symbol", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
			continue
		}

		if err := s.simulateSymbol(ctx, run, symbol, bars); err != nil {
			s.finish(run, data)
			return run, err
		}
	}

	s.finish(run, data)
	s.logger.Info(ctx, "Backtest completed", map[string]interface{}{
		"run_id":        run.ID,
		"trades":        len(run.Closed),
		"final_capital": run.Capital,
		"skipped":       len(run.Skipped),
	})
	return run, nil
}

// simulateSymbol walks one symbol. Only invariant violations are returned;
// any other per-bar failure is logged and the bar skipped.
func (s *Simulator) simulateSymbol(ctx context.Context, run *domain.Run, symbol string, bars []*domain.Kline) error {
	total := len(bars) - s.config.WarmupBars
	last := bars[len(bars)-1]
	for i := s.config.WarmupBars; i < len(bars); i++ {
		bar := bars[i]
		if s.inRange(run.Params, bar) {
			if bar.Validate() == nil {
				last = bar
			}
			if err := s.safeStep(ctx, run, symbol, bars[:i+1]); err != nil {
				if errors.Is(err, ports.ErrInvariantViolation) {
					s.logger.Error(ctx, err, "Invariant violated, aborting run", map[string]interface{}{
						"symbol": symbol,
						"bar":    i,
					})
					return err
				}
				s.logger.Warn(ctx, "Skipping bar", map[string]interface{}{
					"symbol": symbol,
					"bar":    i,
					"error":  err.Error(),
				})
			}
		}
		if s.progress != nil {
			s.progress(symbol, i-s.config.WarmupBars+1, total)
		}
	}

	if _, open := run.Open[symbol]; open {
		if _, err := s.closeTrade(ctx, run, symbol, last, last.Close, domain.ExitEndOfTest); err != nil {
			return fmt.Errorf("%w: closing %s at end of test: %w", ports.ErrInvariantViolation, symbol, err)
		}
	}
	return nil
}

// safeStep isolates a panicking collaborator to the current bar.
func (s *Simulator) safeStep(ctx context.Context, run *domain.Run, symbol string, history []*domain.Kline) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()
	return s.step(ctx, run, symbol, history)
}

// step evaluates the last bar of history, which is the only bar it may look at
// besides the ones before it.
func (s *Simulator) step(ctx context.Context, run *domain.Run, symbol string, history []*domain.Kline) error {
	bar := history[len(history)-1]
	if err := bar.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrComputationDegenerate, err)
	}

	exited := false
	if trade, open := run.Open[symbol]; open {
		if err := trade.UpdateExcursion(bar.Close); err != nil {
			return fmt.Errorf("%w: %w", ports.ErrInvariantViolation, err)
		}
		if reason, price, ok := s.exitFor(trade, bar, s.engine.FastEMA(history)); ok {
			if _, err := s.closeTrade(ctx, run, symbol, bar, price, reason); err != nil {
				return fmt.Errorf("%w: %w", ports.ErrInvariantViolation, err)
			}
			exited = true
		}
	}

	if _, open := run.Open[symbol]; open || (exited && !s.config.AllowSameBarReentry) {
		return nil
	}

	sig := s.generator.Generate(ctx, history, nil, bar.Close)
	if !sig.Action.IsTradeable() || sig.Strength < s.config.MinStrength {
		return nil
	}
	return s.openTrade(ctx, run, symbol, bar, sig)
}

// exitFor returns the first matching exit condition in precedence order.
func (s *Simulator) exitFor(trade *domain.Trade, bar *domain.Kline, emaFast float64) (domain.ExitReason, float64, bool) {
	if trade.IsLong() {
		switch {
		case bar.Low <= trade.StopLoss:
			return domain.ExitStopLoss, trade.StopLoss, true
		case bar.High >= trade.Target2:
			return domain.ExitTarget2, trade.Target2, true
		case bar.High >= trade.Target1:
			return domain.ExitTarget1, trade.Target1, true
		case emaFast > 0 && bar.Close < emaFast*s.config.InvalidationLongFactor:
			return domain.ExitInvalidation, bar.Close, true
		}
	} else {
		switch {
		case bar.High >= trade.StopLoss:
			return domain.ExitStopLoss, trade.StopLoss, true
		case bar.Low <= trade.Target2:
			return domain.ExitTarget2, trade.Target2, true
		case bar.Low <= trade.Target1:
			return domain.ExitTarget1, trade.Target1, true
		case emaFast > 0 && bar.Close > emaFast*s.config.InvalidationShortFactor:
			return domain.ExitInvalidation, bar.Close, true
		}
	}
	if bar.OpenTime.Sub(trade.EntryTime) > s.config.MaxHolding {
		return domain.ExitTimeLimit, bar.Close, true
	}
	return "", 0, false
}

func (s *Simulator) openTrade(ctx context.Context, run *domain.Run, symbol string, bar *domain.Kline, sig domain.Signal) error {
	if existing, open := run.Open[symbol]; open {
		return fmt.Errorf("%w: opening %s while trade %s is open", ports.ErrInvariantViolation, symbol, existing.ID)
	}

	size := s.risk.GetPositionSize(run.Capital, sig.Strength)
	if size <= 0 {
		s.logger.Debug(ctx, "No capital allocated for signal", map[string]interface{}{
			"symbol":   symbol,
			"strength": sig.Strength,
			"capital":  run.Capital,
		})
		return nil
	}

	price := bar.Close
	isLong := sig.Action == domain.ActionLong
	stop := s.risk.GetStopLoss(price, isLong)
	t1, t2 := s.risk.GetTakeProfits(price, isLong)

	trade, err := domain.NewTrade(domain.OpenTradeParams{
		Symbol:       symbol,
		Time:         bar.OpenTime,
		Price:        price,
		Action:       sig.Action,
		Strength:     sig.Strength,
		Confluence:   sig.Confluence,
		PositionSize: size,
		StopLoss:     stop,
		Target1:      t1,
		Target2:      t2,
	})
	if err != nil {
		return err
	}

	if err := run.OpenTrade(trade); err != nil {
		if errors.Is(err, domain.ErrPositionAlreadyOpen) {
			return fmt.Errorf("%w: %w", ports.ErrInvariantViolation, err)
		}
		return err
	}

	s.logger.Info(ctx, "Opened trade", map[string]interface{}{
		"symbol":     symbol,
		"trade_id":   trade.ID,
		"action":     string(trade.Action),
		"price":      price,
		"size":       size,
		"strength":   trade.Strength,
		"confluence": trade.Confluence,
		"time":       trade.EntryTime,
	})
	return nil
}

func (s *Simulator) closeTrade(ctx context.Context, run *domain.Run, symbol string, bar *domain.Kline, price float64, reason domain.ExitReason) (*domain.Trade, error) {
	trade, err := run.CloseTrade(symbol, bar.OpenTime, price, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Closed trade", map[string]interface{}{
		"symbol":   symbol,
		"trade_id": trade.ID,
		"reason":   string(reason),
		"price":    price,
		"pnl":      trade.PnL,
		"pnl_pct":  trade.PnLPct * 100,
		"capital":  run.Capital,
	})
	return trade, nil
}

func (s *Simulator) inRange(params domain.RunParams, bar *domain.Kline) bool {
	if !params.Start.IsZero() && bar.OpenTime.Before(params.Start) {
		return false
	}
	if !params.End.IsZero() && bar.OpenTime.After(params.End) {
		return false
	}
	return true
}

// finish rebuilds the daily equity curve once every symbol has been walked.
func (s *Simulator) finish(run *domain.Run, data map[string][]*domain.Kline) {
	run.Equity = nil
	for _, point := range DailyEquity(run, data, s.config.WarmupBars) {
		run.RecordEquity(point.Time, point.Value)
	}
}

func uniqueSorted(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if !seen[symbol] {
			seen[symbol] = true
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}
