package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrTradeClosed is returned when a finalized trade is mutated.
var ErrTradeClosed = errors.New("trade already closed")

// Trade is one simulated position, from entry to exit.
// Exit fields are nil until Close is called; after that the trade is immutable.
type Trade struct {
	ID                 string     `json:"id"`
	Symbol             string     `json:"symbol" validate:"required"`
	EntryTime          time.Time  `json:"entry_time" validate:"required"`
	ExitTime           *time.Time `json:"exit_time"`
	EntryPrice         float64    `json:"entry_price" validate:"gt=0"`
	ExitPrice          *float64   `json:"exit_price"`
	Action             Action     `json:"signal_type" validate:"oneof=LONG SHORT"`
	Strength           int        `json:"signal_strength" validate:"gte=0,lte=100"`
	Confluence         int        `json:"confluence_score" validate:"gte=0,lte=4"`
	PositionSize       float64    `json:"position_size" validate:"gt=0"`
	StopLoss           float64    `json:"stop_loss" validate:"gt=0"`
	Target1            float64    `json:"target_1" validate:"gt=0"`
	Target2            float64    `json:"target_2" validate:"gt=0"`
	ExitReason         ExitReason `json:"exit_reason"`
	PnL                float64    `json:"pnl"`
	PnLPct             float64    `json:"pnl_percentage"` // Fraction of entry price, -0.02 is -2%
	MaxDrawdown        float64    `json:"max_drawdown"`   // Worst unrealized loss seen, currency units
	MaxProfit          float64    `json:"max_profit"`     // Best unrealized gain seen, currency units
	DurationHours      float64    `json:"duration_hours"`
	RiskRewardAchieved float64    `json:"risk_reward_achieved"`
}

// OpenTradeParams groups the values needed to open a trade.
type OpenTradeParams struct {
	Symbol       string
	Time         time.Time
	Price        float64
	Action       Action
	Strength     int
	Confluence   int
	PositionSize float64
	StopLoss     float64
	Target1      float64
	Target2      float64
}

// NewTrade validates the parameters and returns an open trade.
func NewTrade(p OpenTradeParams) (*Trade, error) {
	t := &Trade{
		ID:           uuid.New().String(),
		Symbol:       p.Symbol,
		EntryTime:    p.Time.UTC(),
		EntryPrice:   p.Price,
		Action:       p.Action,
		Strength:     p.Strength,
		Confluence:   p.Confluence,
		PositionSize: p.PositionSize,
		StopLoss:     p.StopLoss,
		Target1:      p.Target1,
		Target2:      p.Target2,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the field constraints of the trade.
func (t *Trade) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid trade: %w", err)
	}
	if t.ExitTime != nil && t.ExitTime.Before(t.EntryTime) {
		return fmt.Errorf("invalid trade: exit %s before entry %s", t.ExitTime.Format(time.RFC3339), t.EntryTime.Format(time.RFC3339))
	}
	if t.ExitTime != nil && !t.ExitReason.Valid() {
		return fmt.Errorf("invalid trade: unknown exit reason %q", t.ExitReason)
	}
	return nil
}

// IsOpen reports whether the trade has not been closed yet.
func (t *Trade) IsOpen() bool {
	return t.ExitTime == nil
}

// IsLong reports whether the trade profits from rising prices.
func (t *Trade) IsLong() bool {
	return t.Action == ActionLong
}

// ReturnAt is the directional return, as a fraction of entry, at the given price.
func (t *Trade) ReturnAt(price float64) float64 {
	if t.IsLong() {
		return (price - t.EntryPrice) / t.EntryPrice
	}
	return (t.EntryPrice - price) / t.EntryPrice
}

// MarkToMarket is the current notional value of the position at price.
func (t *Trade) MarkToMarket(price float64) float64 {
	return t.PositionSize * (1 + t.ReturnAt(price))
}

// UpdateExcursion tracks the best and worst unrealized P&L while open.
func (t *Trade) UpdateExcursion(price float64) error {
	if !t.IsOpen() {
		return ErrTradeClosed
	}
	pnl := t.ReturnAt(price) * t.PositionSize
	if pnl > t.MaxProfit {
		t.MaxProfit = pnl
	}
	if pnl < -t.MaxDrawdown {
		t.MaxDrawdown = math.Abs(pnl)
	}
	return nil
}

// Close finalizes the trade. It can only succeed once.
func (t *Trade) Close(at time.Time, price float64, reason ExitReason) error {
	if !t.IsOpen() {
		return ErrTradeClosed
	}
	if !reason.Valid() {
		return fmt.Errorf("close trade %s: unknown exit reason %q", t.ID, reason)
	}
	at = at.UTC()
	if at.Before(t.EntryTime) {
		return fmt.Errorf("close trade %s: exit %s before entry %s", t.ID, at.Format(time.RFC3339), t.EntryTime.Format(time.RFC3339))
	}

	t.PnLPct = t.ReturnAt(price)
	t.PnL = t.PnLPct * t.PositionSize
	t.DurationHours = at.Sub(t.EntryTime).Hours()

	// Signed: a full stop-out yields -1.
	risk := math.Abs(t.EntryPrice-t.StopLoss) / t.EntryPrice
	if risk > 0 {
		t.RiskRewardAchieved = t.PnLPct / risk
	}

	exitPrice := price
	t.ExitTime = &at
	t.ExitPrice = &exitPrice
	t.ExitReason = reason
	return nil
}
