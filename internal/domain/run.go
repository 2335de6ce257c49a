package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPositionAlreadyOpen is returned when a second trade is opened for a symbol.
	ErrPositionAlreadyOpen = errors.New("position already open for symbol")
	// ErrNoOpenPosition is returned when closing a symbol that is flat.
	ErrNoOpenPosition = errors.New("no open position for symbol")
	// ErrInsufficientCapital is returned when a trade needs more capital than is available.
	ErrInsufficientCapital = errors.New("insufficient capital for position")
)

// RunParams are the inputs that identify a backtest run.
type RunParams struct {
	Start          time.Time `json:"start_date"`
	End            time.Time `json:"end_date"`
	Interval       string    `json:"interval" validate:"required"`
	InitialCapital float64   `json:"initial_capital" validate:"gt=0"`
	Symbols        []string  `json:"symbols_tested" validate:"required,min=1,dive,required"`
}

// Validate checks the run parameters.
func (p *RunParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid run params: %w", err)
	}
	if !p.Start.IsZero() && !p.End.IsZero() && p.End.Before(p.Start) {
		return fmt.Errorf("invalid run params: end %s before start %s", p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	return nil
}

// EquityPoint is one daily sample of total portfolio value.
type EquityPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// SymbolError records a symbol that stopped contributing to the run and why.
type SymbolError struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Run is the mutable state of one backtest. It is owned by a single simulator.
type Run struct {
	ID      string
	Params  RunParams
	Capital float64
	Closed  []*Trade
	Open    map[string]*Trade
	Equity  []EquityPoint
	Skipped []SymbolError
}

// NewRun validates the parameters and returns a run holding the initial capital.
func NewRun(params RunParams) (*Run, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Run{
		ID:      uuid.New().String(),
		Params:  params,
		Capital: params.InitialCapital,
		Open:    make(map[string]*Trade),
	}, nil
}

// OpenTrade debits the position size and registers the trade as the symbol's open slot.
func (r *Run) OpenTrade(t *Trade) error {
	if existing, ok := r.Open[t.Symbol]; ok {
		return fmt.Errorf("%w: %s has trade %s", ErrPositionAlreadyOpen, t.Symbol, existing.ID)
	}
	if t.PositionSize > r.Capital {
		return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCapital, t.PositionSize, r.Capital)
	}
	r.Capital -= t.PositionSize
	r.Open[t.Symbol] = t
	return nil
}

// CloseTrade finalizes the open trade for symbol, credits size plus P&L and
// moves it to the closed ledger.
func (r *Run) CloseTrade(symbol string, at time.Time, price float64, reason ExitReason) (*Trade, error) {
	t, ok := r.Open[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoOpenPosition, symbol)
	}
	if err := t.Close(at, price, reason); err != nil {
		return nil, err
	}
	r.Capital += t.PositionSize + t.PnL
	r.Closed = append(r.Closed, t)
	delete(r.Open, symbol)
	return t, nil
}

// RecordEquity appends a portfolio sample.
func (r *Run) RecordEquity(at time.Time, value float64) {
	r.Equity = append(r.Equity, EquityPoint{Time: at.UTC(), Value: value})
}

// Skip records that a symbol stopped contributing to the run.
func (r *Run) Skip(symbol, reason string) {
	r.Skipped = append(r.Skipped, SymbolError{Symbol: symbol, Reason: reason})
}

// OpenSymbols returns the symbols with an open trade, sorted.
func (r *Run) OpenSymbols() []string {
	symbols := make([]string, 0, len(r.Open))
	for s := range r.Open {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
