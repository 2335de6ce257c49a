package csvfeed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/utils"
)

type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnings = append(m.warnings, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func writeBars(t *testing.T, dir, symbol, interval string, n int) {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*domain.Kline, n)
	for i := range klines {
		price := 100 + float64(i)
		klines[i] = &domain.Kline{
			OpenTime:  start.Add(time.Duration(i) * 4 * time.Hour),
			CloseTime: start.Add(time.Duration(i+1)*4*time.Hour - time.Millisecond),
			Symbol:    symbol,
			Interval:  interval,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    10,
		}
	}
	require.NoError(t, utils.WriteKlinesToCSV(klines, filepath.Join(dir, FileName(symbol, interval))))
}

func newFeed(t *testing.T) (*Feed, *mockLogger, string) {
	t.Helper()
	dir := t.TempDir()
	logger := &mockLogger{}
	feed, err := New(Config{Dir: dir, PriceInterval: "4h", Logger: logger})
	require.NoError(t, err)
	return feed, logger, dir
}

func TestNew(t *testing.T) {
	_, err := New(Config{Dir: t.TempDir()})
	assert.Error(t, err)

	_, err = New(Config{Dir: filepath.Join(t.TempDir(), "missing"), Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	file := filepath.Join(t.TempDir(), "file.csv")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(Config{Dir: file, Logger: &mockLogger{}})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestGetBars(t *testing.T) {
	feed, _, dir := newFeed(t)
	writeBars(t, dir, "BTCUSDT", "4h", 10)
	ctx := context.Background()

	tests := []struct {
		name      string
		limit     int
		wantCount int
		wantFirst float64
	}{
		{name: "limit below available", limit: 3, wantCount: 3, wantFirst: 107},
		{name: "limit above available", limit: 50, wantCount: 10, wantFirst: 100},
		{name: "exact", limit: 10, wantCount: 10, wantFirst: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, err := feed.GetBars(ctx, "btcusdt", "4h", tt.limit)
			require.NoError(t, err)
			require.Len(t, bars, tt.wantCount)
			assert.Equal(t, tt.wantFirst, bars[0].Close)
			assert.Equal(t, 109.0, bars[len(bars)-1].Close)
		})
	}
}

func TestGetBars_MissingFile(t *testing.T) {
	feed, logger, _ := newFeed(t)

	bars, err := feed.GetBars(context.Background(), "DOGEUSDT", "4h", 10)
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Len(t, logger.warnings, 1)

	// Cached: no second warning
	_, err = feed.GetBars(context.Background(), "DOGEUSDT", "4h", 10)
	require.NoError(t, err)
	assert.Len(t, logger.warnings, 1)
}

func TestGetBars_InvalidRequests(t *testing.T) {
	feed, _, dir := newFeed(t)

	_, err := feed.GetBars(context.Background(), "BTCUSDT", "4h", 0)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = feed.GetBars(ctx, "BTCUSDT", "4h", 10)
	assert.ErrorIs(t, err, ports.ErrContextCanceled)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName("BADUSDT", "4h")), []byte("open_time\nnot,enough\n"), 0o644))
	_, err = feed.GetBars(context.Background(), "BADUSDT", "4h", 10)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

func TestGetCurrentPrice(t *testing.T) {
	feed, _, dir := newFeed(t)
	writeBars(t, dir, "ETHUSDT", "4h", 5)

	price, err := feed.GetCurrentPrice(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 104.0, price)

	_, err = feed.GetCurrentPrice(context.Background(), "SOLUSDT")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
