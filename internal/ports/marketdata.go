package ports

import (
	"context"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// HistoricalDataSupplier provides pre-fetched OHLCV history to the backtester.
// Implementations may return fewer bars than requested and never more than limit.
// Retry and rate-limit handling belong to the implementation, never to its callers.
type HistoricalDataSupplier interface {
	// GetBars returns up to limit bars for symbol, oldest first.
	GetBars(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)
	// GetCurrentPrice returns the latest traded price for symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}
