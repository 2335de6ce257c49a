package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/config"
	"github.com/juanluis911/TradingLatino/internal/adapters/csvfeed"
	"github.com/juanluis911/TradingLatino/internal/risk"
	"github.com/juanluis911/TradingLatino/internal/strategy/backtesting"
	"github.com/juanluis911/TradingLatino/internal/strategy/indicators"
	"github.com/juanluis911/TradingLatino/internal/strategy/signal"
	"github.com/juanluis911/TradingLatino/internal/utils"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Backtest: config.Backtest{
			Symbols:        []string{"BTCUSDT"},
			Interval:       "1h",
			InitialCapital: 10000,
			BufferDays:     0,
			MaxBars:        1000,
			DataSource:     "csv",
			CSVDir:         dir,
			Start:          testStart,
			End:            testStart.Add(10 * 24 * time.Hour),
		},
		Indicators: indicators.DefaultEngineConfig(),
		Signal:     signal.DefaultConfig(),
		Risk:       risk.DefaultRiskConfig(),
		Simulator:  backtesting.DefaultSimulatorConfig(),
		Export:     config.Export{Dir: filepath.Join(dir, "results")},
		Database:   config.Database{Path: filepath.Join(dir, "db", "backtests.db")},
	}
}

func TestBuild_CSVEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, utils.WriteKlinesToCSV(flatBars("BTCUSDT", 240, 100), filepath.Join(cfg.Backtest.CSVDir, csvfeed.FileName("BTCUSDT", "1h"))))

	components, err := Build(cfg, &mockLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { components.Close() })

	report, err := components.Service.Run(context.Background(), RequestFromConfig(cfg.Backtest))
	require.NoError(t, err)
	assert.Empty(t, report.Summary.SkippedSymbols)
	assert.Equal(t, 0, report.Summary.TotalTrades)
	assert.FileExists(t, report.ExportPath)
	assert.NoError(t, components.Close())
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Indicators.FastEMAPeriod = 100 // not below the slow period

	_, err := Build(cfg, &mockLogger{})
	assert.Error(t, err)

	_, err = Build(nil, &mockLogger{})
	assert.Error(t, err)
}
