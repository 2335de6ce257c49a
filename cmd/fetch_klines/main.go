package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/juanluis911/TradingLatino/config"
	"github.com/juanluis911/TradingLatino/internal/adapters/binanceclient"
	"github.com/juanluis911/TradingLatino/internal/adapters/csvfeed"
	"github.com/juanluis911/TradingLatino/internal/adapters/logger"
	"github.com/juanluis911/TradingLatino/internal/utils"
)

func main() {
	cmd := &cli.Command{
		Name:  "fetch_klines",
		Usage: "Download historical klines from Binance into CSV files readable by the csv data source",
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
				Usage:   "Symbols to download (defaults to the configured symbols)",
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Kline interval (defaults to the configured interval)",
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
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   "./data/klines",
			},
		},
		Action: fetchAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.ParseLevel(cfg.Logger.Level), cfg.Logger.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	// 3. Initialize Exchange Client (Binance Adapter)
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:         cfg.Binance.APIKey,
		SecretKey:      cfg.Binance.SecretKey,
		UseTestnet:     cfg.Binance.UseTestnet,
		Logger:         appLogger,
		RateLimit:      cfg.Binance.RateLimit,
		RateLimitBurst: cfg.Binance.RateLimitBurst,
		MaxRetries:     cfg.Binance.MaxRetries,
		RetryDelay:     cfg.Binance.RetryDelay,
		MaxBarsPerCall: cfg.Binance.MaxBarsPerCall,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Binance client: %w", err)
	}

	symbols := cfg.Backtest.Symbols
	if cmd.IsSet("symbols") {
		symbols = cmd.StringSlice("symbols")
	}
	interval := cfg.Backtest.Interval
	if cmd.IsSet("interval") {
		interval = cmd.String("interval")
	}
	start, end := cfg.Backtest.Start, cfg.Backtest.End
	if cmd.IsSet("start") {
		start = cmd.Timestamp("start").UTC()
	}
	if cmd.IsSet("end") {
		end = cmd.Timestamp("end").UTC()
	}
	if !end.After(start) {
		return fmt.Errorf("end %s must be after start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	dir := cmd.String("out")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		fmt.Printf("Fetching klines for %s %s from %s to %s...\n", symbol, interval, start.Format(time.DateOnly), end.Format(time.DateOnly))

		klines, err := client.GetKlinesRange(ctx, symbol, interval, start, end)
		if err != nil {
			appLogger.Error(ctx, err, "Error fetching klines", map[string]interface{}{"symbol": symbol})
			return fmt.Errorf("fetching %s: %w", symbol, err)
		}

		filename := filepath.Join(dir, csvfeed.FileName(symbol, interval))
		if err := utils.WriteKlinesToCSV(klines, filename); err != nil {
			return fmt.Errorf("writing %s: %w", filename, err)
		}
		appLogger.Info(ctx, "Saved klines", map[string]interface{}{
			"symbol":   symbol,
			"count":    len(klines),
			"filename": filename,
		})
	}
	return nil
}
