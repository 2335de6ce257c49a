package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/juanluis911/TradingLatino/config"
	"github.com/juanluis911/TradingLatino/internal/adapters/logger"
	"github.com/juanluis911/TradingLatino/internal/app"
	"github.com/juanluis911/TradingLatino/internal/domain"
)

func main() {
	cmd := &cli.Command{
		Name:  "backtest_runner",
		Usage: "Replay historical klines through the strategy and report performance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory containing config.yml",
				Value:   ".",
			},
			&cli.StringSliceFlag{
				Name:    "symbols",
				Aliases: []string{"s"},
				Usage:   "Symbols to test (overrides config)",
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Kline interval (overrides config)",
			},
			&cli.TimestampFlag{
				Name:  "start",
				Usage: "Start date YYYY-MM-DD",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date YYYY-MM-DD",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.FloatFlag{
				Name:  "capital",
				Usage: "Initial capital (overrides config)",
			},
			&cli.StringFlag{
				Name:  "csv-dir",
				Usage: "Read klines from CSV files in this directory instead of Binance",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for exported results",
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.ParseLevel(cfg.Logger.Level), cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	// 3. Wire components
	components, err := app.Build(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize backtester: %w", err)
	}
	defer components.Close()

	bars := make(map[string]*progressbar.ProgressBar)
	components.Simulator.OnProgress(func(symbol string, done, total int) {
		bar, ok := bars[symbol]
		if !ok {
			bar = progressbar.Default(int64(total), symbol)
			bars[symbol] = bar
		}
		_ = bar.Set(done)
	})

	// 4. Run
	fmt.Printf("Backtesting %s on %s from %s to %s\n",
		strings.Join(cfg.Backtest.Symbols, ","), cfg.Backtest.Interval,
		cfg.Backtest.Start.Format("2006-01-02"), cfg.Backtest.End.Format("2006-01-02"))

	report, err := components.Service.Run(ctx, app.RequestFromConfig(cfg.Backtest))
	if report != nil && report.Summary != nil {
		printSummary(report)
	}
	return err
}

// applyFlags overrides configuration values with the flags that were set.
func applyFlags(cmd *cli.Command, cfg *config.Config) error {
	if cmd.IsSet("symbols") {
		cfg.Backtest.Symbols = nil
		for _, s := range cmd.StringSlice("symbols") {
			cfg.Backtest.Symbols = append(cfg.Backtest.Symbols, strings.ToUpper(strings.TrimSpace(s)))
		}
	}
	if cmd.IsSet("interval") {
		cfg.Backtest.Interval = cmd.String("interval")
	}
	if cmd.IsSet("start") {
		cfg.Backtest.Start = utcDay(cmd.Timestamp("start"))
	}
	if cmd.IsSet("end") {
		cfg.Backtest.End = utcDay(cmd.Timestamp("end"))
	}
	if cmd.IsSet("capital") {
		cfg.Backtest.InitialCapital = cmd.Float("capital")
	}
	if cmd.IsSet("csv-dir") {
		cfg.Backtest.DataSource = "csv"
		cfg.Backtest.CSVDir = cmd.String("csv-dir")
	}
	if cmd.IsSet("output") {
		cfg.Export.Dir = cmd.String("output")
	}

	if len(cfg.Backtest.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if !cfg.Backtest.End.After(cfg.Backtest.Start) {
		return fmt.Errorf("end date %s must be after start date %s",
			cfg.Backtest.End.Format("2006-01-02"), cfg.Backtest.Start.Format("2006-01-02"))
	}
	if cfg.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %f", cfg.Backtest.InitialCapital)
	}
	return nil
}

func utcDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func printSummary(report *app.Report) {
	s := report.Summary
	fmt.Println()
	fmt.Println("=== Backtest Results ===")
	fmt.Printf("Run ID:          %s\n", report.Run.ID)
	fmt.Printf("Symbols:         %s\n", strings.Join(s.SymbolsTested, ", "))
	fmt.Printf("Total trades:    %d (won %d, lost %d)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	fmt.Printf("Win rate:        %.2f%%\n", s.WinRate)
	fmt.Printf("Final capital:   %.2f (%+.2f%%)\n", s.FinalCapital, s.TotalReturnPct)
	fmt.Printf("Max drawdown:    %.2f%%\n", s.MaxDrawdownPct)
	fmt.Printf("Sharpe / Calmar: %.2f / %.2f\n", s.SharpeRatio, s.CalmarRatio)
	fmt.Printf("Avg win / loss:  %.2f / %.2f\n", s.AvgWin, s.AvgLoss)

	if len(s.ExitReasons) > 0 {
		fmt.Println("Exit reasons:")
		for _, reason := range domain.ExitReasons {
			if n := s.ExitReasons[reason]; n > 0 {
				fmt.Printf("  %-14s %d\n", reason, n)
			}
		}
	}
	for _, skipped := range s.SkippedSymbols {
		fmt.Printf("Skipped %s: %s\n", skipped.Symbol, skipped.Reason)
	}
	if report.ExportPath != "" {
		fmt.Printf("Results exported to %s\n", report.ExportPath)
	}
}
