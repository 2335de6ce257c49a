package utils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

func TestKlinesCSVRoundTrip(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	klines := []*domain.Kline{
		{OpenTime: start, CloseTime: start.Add(4 * time.Hour), Symbol: "BTCUSDT", Interval: "4h", Open: 60000.5, High: 61000, Low: 59500.25, Close: 60800, Volume: 1234.567},
		{OpenTime: start.Add(4 * time.Hour), CloseTime: start.Add(8 * time.Hour), Symbol: "BTCUSDT", Interval: "4h", Open: 60800, High: 60900, Low: 60100, Close: 60200, Volume: 987.1},
	}

	filename := filepath.Join(t.TempDir(), "klines.csv")
	require.NoError(t, WriteKlinesToCSV(klines, filename))

	got, err := ReadKlinesFromCSV(filename)
	require.NoError(t, err)
	assert.Equal(t, klines, got)
}

func TestReadKlinesFromCSV_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadKlinesFromCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(
		"open_time,close_time,symbol,interval,open,high,low,close,volume\n"+
			"2024-05-01T00:00:00Z,2024-05-01T04:00:00Z,BTCUSDT,4h,abc,1,1,1,1\n"), 0o644))
	_, err = ReadKlinesFromCSV(bad)
	assert.ErrorContains(t, err, "line 2")

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	got, err := ReadKlinesFromCSV(empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteTradesToCSV(t *testing.T) {
	entry := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	trade, err := domain.NewTrade(domain.OpenTradeParams{
		Symbol: "ETHUSDT", Time: entry, Price: 3000, Action: domain.ActionShort,
		Strength: 72, Confluence: 3, PositionSize: 300, StopLoss: 3060, Target1: 2940, Target2: 2850,
	})
	require.NoError(t, err)
	require.NoError(t, trade.Close(entry.Add(12*time.Hour), 2940, domain.ExitTarget1))

	filename := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, WriteTradesToCSV([]*domain.Trade{trade}, filename))

	file, err := os.Open(filename)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ETHUSDT", "SHORT", "2024-05-01T00:00:00Z", "2024-05-01T12:00:00Z", "3000", "2940",
		"72", "3", "300", "TARGET_1", "6", "2", "12"}, rows[1])
}
