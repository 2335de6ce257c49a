package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/strategy/indicators"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Backtest.Symbols)
	assert.Equal(t, "4h", cfg.Backtest.Interval)
	assert.Equal(t, 5000, cfg.Backtest.MaxBars)
	assert.Equal(t, 10000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 30*24*time.Hour, cfg.Backtest.End.Sub(cfg.Backtest.Start))
	assert.Equal(t, indicators.DefaultEngineConfig(), cfg.Indicators)
	assert.Equal(t, 100, cfg.Simulator.WarmupBars)
	assert.Equal(t, 48*time.Hour, cfg.Simulator.MaxHolding)
	assert.Equal(t, 0.05, cfg.Risk.Target2Pct)
	assert.Equal(t, time.Second, cfg.Binance.RetryDelay)
	assert.Equal(t, "console", cfg.Logger.Format)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
backtest:
  symbols: [solusdt, " adausdt"]
  start_date: "2024-01-01"
  end_date: "2024-03-01"
  data_source: csv
  csv_dir: ./bars
indicators:
  fast_ema_period: 9
simulator:
  max_holding: 24h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644))
	t.Setenv("SIMULATOR_MIN_STRENGTH", "60")
	t.Setenv("LOGGER_FORMAT", "json")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"SOLUSDT", "ADAUSDT"}, cfg.Backtest.Symbols)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Backtest.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), cfg.Backtest.End)
	assert.Equal(t, "csv", cfg.Backtest.DataSource)
	assert.Equal(t, 9, cfg.Indicators.FastEMAPeriod)
	assert.Equal(t, 55, cfg.Indicators.SlowEMAPeriod)
	assert.Equal(t, 24*time.Hour, cfg.Simulator.MaxHolding)
	assert.Equal(t, 60, cfg.Simulator.MinStrength)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		file    string
		wantMsg string
	}{
		{
			name:    "unknown data source",
			env:     map[string]string{"BACKTEST_DATA_SOURCE": "ftp"},
			wantMsg: "Config.Backtest.DataSource failed on 'oneof'",
		},
		{
			name:    "first target beyond second",
			env:     map[string]string{"RISK_TARGET_1_PCT": "0.1"},
			wantMsg: "Config.Risk.Target1Pct failed on 'ltfield'",
		},
		{
			name:    "bad date",
			env:     map[string]string{"BACKTEST_START_DATE": "01/02/2024"},
			wantMsg: "invalid BACKTEST_START_DATE",
		},
		{
			name:    "end before start",
			env:     map[string]string{"BACKTEST_START_DATE": "2024-05-01", "BACKTEST_END_DATE": "2024-04-01"},
			wantMsg: "BACKTEST_END_DATE must be after BACKTEST_START_DATE",
		},
		{
			name:    "csv without dir",
			file:    "backtest:\n  data_source: csv\n  csv_dir: \"\"\n",
			wantMsg: "BACKTEST_CSV_DIR must be set",
		},
		{
			name:    "warmup shorter than signal history",
			env:     map[string]string{"SIMULATOR_WARMUP_BARS": "10"},
			wantMsg: "SIMULATOR_WARMUP_BARS must not be below SIGNAL_MIN_BARS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			dir := t.TempDir()
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(tt.file), 0o644))
			}
			_, err := LoadConfig(dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
			assert.Contains(t, err.Error(), "configuration validation failed")
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("backtest: [unclosed"), 0o644))

	_, err := LoadConfig(dir)
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
