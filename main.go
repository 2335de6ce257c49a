package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"github.com/juanluis911/TradingLatino/config"
	"github.com/juanluis911/TradingLatino/internal/adapters/logger"
	"github.com/juanluis911/TradingLatino/internal/app"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	level := logger.ParseLevel(cfg.Logger.Level)
	appLogger, err := logger.New(level, cfg.Logger.Format)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": level.String()})

	// 3. Wire supplier, strategy, simulator and result store
	components, err := app.Build(cfg, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize backtester")
		log.Fatalf("FATAL: Failed to initialize backtester: %v", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing backtester resources")
		}
	}()

	// 4. Run until done or interrupted
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := components.Service.Run(ctx, app.RequestFromConfig(cfg.Backtest))
	if err != nil {
		appLogger.Error(ctx, err, "Backtest exited with error")
		return
	}

	s := report.Summary
	appLogger.Info(ctx, "Backtest finished", map[string]interface{}{
		"run_id":           report.Run.ID,
		"total_trades":     s.TotalTrades,
		"win_rate":         s.WinRate,
		"total_return_pct": s.TotalReturnPct,
		"max_drawdown_pct": s.MaxDrawdownPct,
		"sharpe_ratio":     s.SharpeRatio,
		"export":           report.ExportPath,
	})
}
