// Package csvfeed serves historical bars from CSV files written by fetch_klines.
package csvfeed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
	"github.com/juanluis911/TradingLatino/internal/utils"
)

// Config holds the feed configuration.
type Config struct {
	Dir string
	// PriceInterval selects the file GetCurrentPrice reads the last close from.
	PriceInterval string
	Logger        ports.Logger
}

// Feed implements ports.HistoricalDataSupplier over a directory of
// <SYMBOL>_<interval>.csv files. Files are read once and cached.
type Feed struct {
	dir           string
	priceInterval string
	logger        ports.Logger

	mu    sync.Mutex
	cache map[string][]*domain.Kline
}

// New creates a feed over cfg.Dir.
func New(cfg Config) (*Feed, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required for csv feed")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: csv dir %q: %w", ports.ErrConfigurationError, cfg.Dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: csv dir %q is not a directory", ports.ErrConfigurationError, cfg.Dir)
	}
	if cfg.PriceInterval == "" {
		cfg.PriceInterval = "4h"
	}
	return &Feed{
		dir:           cfg.Dir,
		priceInterval: cfg.PriceInterval,
		logger:        cfg.Logger,
		cache:         make(map[string][]*domain.Kline),
	}, nil
}

// FileName returns the file name the feed expects for a symbol and interval.
func FileName(symbol, interval string) string {
	return fmt.Sprintf("%s_%s.csv", strings.ToUpper(symbol), interval)
}

// GetBars returns the most recent limit bars. A missing file yields no bars
// rather than an error.
func (f *Feed) GetBars(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ports.ErrInvalidRequest, limit)
	}

	klines, err := f.load(ctx, symbol, interval)
	if err != nil {
		return nil, err
	}
	if len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}
	out := make([]*domain.Kline, len(klines))
	copy(out, klines)
	return out, nil
}

// GetCurrentPrice returns the last close in the symbol's PriceInterval file.
func (f *Feed) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	klines, err := f.load(ctx, symbol, f.priceInterval)
	if err != nil {
		return 0, err
	}
	if len(klines) == 0 {
		return 0, fmt.Errorf("%w: no %s bars for %s", ports.ErrNotFound, f.priceInterval, symbol)
	}
	return klines[len(klines)-1].Close, nil
}

func (f *Feed) load(ctx context.Context, symbol, interval string) ([]*domain.Kline, error) {
	name := FileName(symbol, interval)

	f.mu.Lock()
	defer f.mu.Unlock()
	if klines, ok := f.cache[name]; ok {
		return klines, nil
	}

	path := filepath.Join(f.dir, name)
	klines, err := utils.ReadKlinesFromCSV(path)
	if errors.Is(err, os.ErrNotExist) {
		f.logger.Warn(ctx, "No CSV file for symbol", map[string]interface{}{
			"symbol":   symbol,
			"interval": interval,
			"path":     path,
		})
		klines, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrInvalidRequest, err)
	}

	f.logger.Debug(ctx, "Loaded CSV bars", map[string]interface{}{
		"symbol":   symbol,
		"interval": interval,
		"count":    len(klines),
	})
	f.cache[name] = klines
	return klines, nil
}
