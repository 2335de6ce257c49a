package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/internal/adapters/export"
	"github.com/juanluis911/TradingLatino/internal/domain"
)

func trade(t *testing.T, exit float64, reason domain.ExitReason) *domain.Trade {
	t.Helper()
	entry := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tr, err := domain.NewTrade(domain.OpenTradeParams{
		Symbol: "BTCUSDT", Time: entry, Price: 100, Action: domain.ActionLong,
		Strength: 70, Confluence: 3, PositionSize: 100, StopLoss: 98, Target1: 102, Target2: 105,
	})
	require.NoError(t, err)
	require.NoError(t, tr.Close(entry.Add(time.Hour), exit, reason))
	return tr
}

func TestReasonBreakdown(t *testing.T) {
	trades := []*domain.Trade{
		trade(t, 102, domain.ExitTarget1),
		trade(t, 98, domain.ExitStopLoss),
		trade(t, 102, domain.ExitTarget1),
		trade(t, 101, domain.ExitTimeLimit),
	}

	stats := reasonBreakdown(trades)
	require.Len(t, stats, 3)

	byReason := make(map[domain.ExitReason]ReasonStats)
	for _, s := range stats {
		byReason[s.Reason] = s
	}
	assert.Equal(t, 2, byReason[domain.ExitTarget1].Count)
	assert.Equal(t, "4.00", byReason[domain.ExitTarget1].PnL.StringFixed(2))
	assert.Equal(t, "2.00", byReason[domain.ExitTarget1].Avg().StringFixed(2))
	assert.Equal(t, "-2.00", byReason[domain.ExitStopLoss].PnL.StringFixed(2))
	assert.Equal(t, "1.00", byReason[domain.ExitTimeLimit].Avg().StringFixed(2))

	assert.Empty(t, reasonBreakdown(nil))
	assert.Equal(t, "0", ReasonStats{}.Avg().String())
}

func TestFindBacktestFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"backtest_b.json", "backtest_a.json", "backtest_a_summary.yml", "other.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}

	files, err := findBacktestFiles(dir, "backtest_")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "backtest_a.json"), filepath.Join(dir, "backtest_b.json")}, files)

	_, err = findBacktestFiles(filepath.Join(dir, "missing"), "backtest_")
	assert.Error(t, err)
}

func TestWriteSummaryTable(t *testing.T) {
	summary := &domain.Summary{TotalTrades: 4, WinRate: 62.5, FinalCapital: 10123.456, TotalReturnPct: 1.23456}
	var buf bytes.Buffer
	writeSummaryTable(&buf, []string{"backtest_a.json"}, []*export.Document{export.NewDocument(summary, nil)})

	out := buf.String()
	assert.Contains(t, out, "backtest_a.json")
	assert.Contains(t, out, "62.50")
	assert.Contains(t, out, "10123.46")
	assert.Contains(t, out, "1.23")
}
