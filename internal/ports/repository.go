package ports

import (
	"context"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// RunRecord is a stored backtest: its summary and its closed-trade ledger.
type RunRecord struct {
	ID      string
	Summary *domain.Summary
	Trades  []*domain.Trade
}

// ResultRepository persists completed backtest runs.
type ResultRepository interface {
	// SaveRun stores the summary and trades of a completed run under runID.
	SaveRun(ctx context.Context, runID string, summary *domain.Summary, trades []*domain.Trade) error
	// FindRun loads a stored run. Returns nil, nil if not found.
	FindRun(ctx context.Context, runID string) (*RunRecord, error)
	// FindTradesBySymbol retrieves the most recent trades for a symbol across runs, up to limit.
	FindTradesBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
}
