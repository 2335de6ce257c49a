package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/juanluis911/TradingLatino/config"
	"github.com/juanluis911/TradingLatino/internal/adapters/binanceclient"
	"github.com/juanluis911/TradingLatino/internal/adapters/csvfeed"
	"github.com/juanluis911/TradingLatino/internal/adapters/sqlite"
	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/risk"
	"github.com/juanluis911/TradingLatino/internal/strategy/backtesting"
	"github.com/juanluis911/TradingLatino/internal/strategy/indicators"
	"github.com/juanluis911/TradingLatino/internal/strategy/signal"
)

// Components is the wired object graph of a backtest process.
type Components struct {
	Service   *BacktestService
	Simulator *backtesting.Simulator
	Supplier  ports.HistoricalDataSupplier
	Engine    ports.IndicatorEngine
	Generator ports.SignalGenerator
	Risk      *risk.RiskManager
	closers   []func() error
}

// Build wires supplier, indicator engine, signal generator, simulator and the
// optional result store from cfg.
func Build(cfg *config.Config, logger ports.Logger) (*Components, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("configuration and logger are required to build the backtester")
	}
	ctx := context.Background()
	c := &Components{}

	supplier, err := newSupplier(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Supplier = supplier

	var repo ports.ResultRepository
	if cfg.Database.Path != "" {
		store, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.Database.Path, Logger: logger})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, store.Close)
		repo = store
	}

	engine, err := indicators.NewEngine(cfg.Indicators)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	riskManager, err := risk.NewRiskManager(cfg.Risk)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	generator, err := signal.NewGenerator(cfg.Signal, engine, riskManager, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, err)
	}
	c.Engine, c.Generator, c.Risk = engine, generator, riskManager
	c.Simulator, err = backtesting.NewSimulator(cfg.Simulator, engine, generator, riskManager, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Service, err = NewBacktestService(ServiceConfig{
		BufferDays: cfg.Backtest.BufferDays,
		MaxBars:    cfg.Backtest.MaxBars,
		ExportDir:  cfg.Export.Dir,
		WriteYAML:  cfg.Export.WriteYAML,
	}, logger, supplier, c.Simulator, repo)
	if err != nil {
		c.Close()
		return nil, err
	}

	logger.Info(ctx, "Backtester initialized", map[string]interface{}{
		"data_source": cfg.Backtest.DataSource,
		"warmup_bars": cfg.Simulator.WarmupBars,
		"store":       cfg.Database.Path != "",
	})
	return c, nil
}

// RequestFromConfig builds the run request described by the backtest section.
func RequestFromConfig(cfg config.Backtest) Request {
	return Request{
		Symbols:        cfg.Symbols,
		Interval:       cfg.Interval,
		Start:          cfg.Start,
		End:            cfg.End,
		InitialCapital: cfg.InitialCapital,
	}
}

// Close releases resources held by the components.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func newSupplier(cfg *config.Config, logger ports.Logger) (ports.HistoricalDataSupplier, error) {
	if cfg.Backtest.DataSource == "csv" {
		return csvfeed.New(csvfeed.Config{
			Dir:           cfg.Backtest.CSVDir,
			PriceInterval: cfg.Backtest.Interval,
			Logger:        logger,
		})
	}
	return binanceclient.New(binanceclient.Config{
		APIKey:         cfg.Binance.APIKey,
		SecretKey:      cfg.Binance.SecretKey,
		UseTestnet:     cfg.Binance.UseTestnet,
		Logger:         logger,
		RateLimit:      cfg.Binance.RateLimit,
		RateLimitBurst: cfg.Binance.RateLimitBurst,
		MaxRetries:     cfg.Binance.MaxRetries,
		RetryDelay:     cfg.Binance.RetryDelay,
		MaxBarsPerCall: cfg.Binance.MaxBarsPerCall,
	})
}
