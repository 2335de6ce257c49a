package risk

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// RiskConfig holds configuration for level placement and position sizing
type RiskConfig struct {
	EntryOffsetPct      float64 `mapstructure:"entry_offset_pct" validate:"gte=0,lt=0.1"`
	Target1Pct          float64 `mapstructure:"target_1_pct" validate:"gt=0,ltfield=Target2Pct"`
	Target2Pct          float64 `mapstructure:"target_2_pct" validate:"gt=0,lt=1"`
	StopLossPct         float64 `mapstructure:"stop_loss_pct" validate:"gt=0,lt=1"`
	EMAStopBufferPct    float64 `mapstructure:"ema_stop_buffer_pct" validate:"gte=0,lt=1"`
	InvalidationPct     float64 `mapstructure:"invalidation_pct" validate:"gte=0,lt=1"`
	MaxLeverage         float64 `mapstructure:"max_leverage" validate:"gte=1"`
	TierCapitalFraction float64 `mapstructure:"tier_capital_fraction" validate:"gt=0,lte=1"`
}

// DefaultRiskConfig returns the 2%/5% target, 2% stop, 3x leverage configuration.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		EntryOffsetPct:      0.001,
		Target1Pct:          0.02,
		Target2Pct:          0.05,
		StopLossPct:         0.02,
		EMAStopBufferPct:    0.005,
		InvalidationPct:     0.01,
		MaxLeverage:         3,
		TierCapitalFraction: 0.20,
	}
}

// sizeTier maps a minimum strength to a percentage of capital.
type sizeTier struct {
	minStrength int
	pct         float64
}

var sizeTiers = []sizeTier{
	{minStrength: 80, pct: 5},
	{minStrength: 70, pct: 3},
	{minStrength: 60, pct: 2},
	{minStrength: 50, pct: 1},
}

// RiskManager places trading levels and sizes positions. It is stateless.
type RiskManager struct {
	config RiskConfig
}

// NewRiskManager creates a new risk manager instance
func NewRiskManager(config RiskConfig) (*RiskManager, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid risk config: %w", err)
	}
	return &RiskManager{config: config}, nil
}

// Config returns the risk configuration.
func (r *RiskManager) Config() RiskConfig {
	return r.config
}

// PositionSizePct returns the percentage of capital for a signal strength.
// Strength below 50 gets no allocation.
func (r *RiskManager) PositionSizePct(strength int) float64 {
	for _, tier := range sizeTiers {
		if strength >= tier.minStrength {
			return tier.pct
		}
	}
	return 0
}

// GetPositionSize returns the currency amount to allocate, bounded by the
// capital fraction reserved for this trading tier.
func (r *RiskManager) GetPositionSize(accountBalance float64, strength int) float64 {
	if accountBalance <= 0 {
		return 0
	}
	size := accountBalance * r.PositionSizePct(strength) / 100
	return math.Min(size, accountBalance*r.config.TierCapitalFraction)
}

// SuggestedLeverage returns 2x for strong signals and 1.5x otherwise, never
// above the configured maximum.
func (r *RiskManager) SuggestedLeverage(strength int) float64 {
	leverage := 1.5
	if strength >= 70 {
		leverage = 2
	}
	return math.Min(leverage, r.config.MaxLeverage)
}

// GetStopLoss calculates the fixed percentage stop for a position
func (r *RiskManager) GetStopLoss(entryPrice float64, isLong bool) float64 {
	if isLong {
		return entryPrice * (1 - r.config.StopLossPct)
	}
	return entryPrice * (1 + r.config.StopLossPct)
}

// GetTakeProfits calculates both profit targets for a position
func (r *RiskManager) GetTakeProfits(entryPrice float64, isLong bool) (float64, float64) {
	if isLong {
		return entryPrice * (1 + r.config.Target1Pct), entryPrice * (1 + r.config.Target2Pct)
	}
	return entryPrice * (1 - r.config.Target1Pct), entryPrice * (1 - r.config.Target2Pct)
}

// Levels computes the full level set for a tradeable action.
func (r *RiskManager) Levels(action domain.Action, price, emaFast float64, strength int) (*domain.TradingLevels, error) {
	if !action.IsTradeable() {
		return nil, fmt.Errorf("no trading levels for action %s", action)
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("invalid price %f for trading levels", price)
	}
	isLong := action == domain.ActionLong

	entry := price * (1 - r.config.EntryOffsetPct)
	if isLong {
		entry = price * (1 + r.config.EntryOffsetPct)
	}

	t1, t2 := r.GetTakeProfits(entry, isLong)
	stop := r.GetStopLoss(entry, isLong)

	// The EMA stop only replaces the fixed one when it is tighter and still on the loss side
	var technical, invalidation float64
	reason := ""
	if emaFast > 0 {
		if isLong {
			technical = emaFast * (1 - r.config.EMAStopBufferPct)
			if technical < entry && technical > stop {
				stop = technical
			}
			invalidation = emaFast * (1 - r.config.InvalidationPct)
			reason = fmt.Sprintf("Close below EMA %.4f (invalidation %.4f)", emaFast, invalidation)
		} else {
			technical = emaFast * (1 + r.config.EMAStopBufferPct)
			if technical > entry && technical < stop {
				stop = technical
			}
			invalidation = emaFast * (1 + r.config.InvalidationPct)
			reason = fmt.Sprintf("Close above EMA %.4f (invalidation %.4f)", emaFast, invalidation)
		}
	} else {
		invalidation = stop
		reason = "Fast EMA unavailable, invalidation at stop"
	}

	rr := 0.0
	if risk := math.Abs(entry - stop); risk > 0 {
		rr = math.Abs(t2-entry) / risk
	}

	return &domain.TradingLevels{
		Entry:              entry,
		EntryLow:           price * (1 - r.config.EntryOffsetPct),
		EntryHigh:          price * (1 + r.config.EntryOffsetPct),
		Targets:            [2]float64{t1, t2},
		StopLoss:           stop,
		TechnicalStop:      technical,
		Invalidation:       invalidation,
		InvalidationReason: reason,
		RiskReward:         rr,
		PositionSizePct:    r.PositionSizePct(strength),
		SuggestedLeverage:  r.SuggestedLeverage(strength),
		MaxLeverage:        r.config.MaxLeverage,
	}, nil
}
