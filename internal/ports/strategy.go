package ports

import (
	"context"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// IndicatorEngine derives technical values from a bar window.
type IndicatorEngine interface {
	// Snapshot computes every indicator for the window ending at the last bar.
	// Failed computations fall back to neutral values; the absorbed errors are
	// returned so the caller can log them.
	Snapshot(ctx context.Context, klines []*domain.Kline, currentPrice float64) (domain.IndicatorSnapshot, []error)

	// FastEMA returns the fast moving average at the last bar, or the last close on failure.
	FastEMA(klines []*domain.Kline) float64

	// RequiredDataPoints returns the bar count needed for stable values.
	RequiredDataPoints() int
}

// SignalGenerator turns indicator output into a trade decision.
type SignalGenerator interface {
	// Generate evaluates the primary and secondary timeframes at currentPrice.
	// Missing or short input yields domain.EmptySignal rather than an error.
	Generate(ctx context.Context, primary, secondary []*domain.Kline, currentPrice float64) domain.Signal
}
