package domain

import "fmt"

// TradingLevels are the price levels attached to a tradeable signal.
type TradingLevels struct {
	Entry              float64    `json:"entry" validate:"gt=0"`
	EntryLow           float64    `json:"entry_range_low" validate:"gt=0,ltefield=EntryHigh"`
	EntryHigh          float64    `json:"entry_range_high" validate:"gt=0"`
	Targets            [2]float64 `json:"targets"`
	StopLoss           float64    `json:"stop_loss" validate:"gt=0"`
	TechnicalStop      float64    `json:"technical_stop" validate:"gte=0"`
	Invalidation       float64    `json:"invalidation_level" validate:"gt=0"`
	InvalidationReason string     `json:"invalidation_reason" validate:"required"`
	RiskReward         float64    `json:"risk_reward" validate:"gte=0"`
	PositionSizePct    float64    `json:"position_size_pct" validate:"gte=0,lte=100"`
	SuggestedLeverage  float64    `json:"recommended_leverage" validate:"gte=1,ltefield=MaxLeverage"`
	MaxLeverage        float64    `json:"max_leverage" validate:"gte=1"`
}

// Signal is the read-only decision produced for one bar evaluation.
type Signal struct {
	Action      Action            `json:"signal" validate:"required,oneof=LONG SHORT WAIT WAIT_COMPRESSED NO_SIGNAL"`
	Strength    int               `json:"signal_strength" validate:"gte=0,lte=100"`
	Bias        Bias              `json:"bias" validate:"required,oneof=BULLISH BEARISH NEUTRAL"`
	Confluence  int               `json:"confluence_score" validate:"gte=0,lte=4"`
	Confidence  Confidence        `json:"confidence"`
	EntryTiming EntryTiming       `json:"entry_timing"`
	Levels      *TradingLevels    `json:"trading_levels,omitempty"`
	Snapshot    IndicatorSnapshot `json:"indicators"`
}

// EmptySignal is returned whenever inputs are missing or too short.
func EmptySignal() Signal {
	return Signal{
		Action:     ActionNoSignal,
		Bias:       BiasNeutral,
		Confidence: ConfidenceLow,
	}
}

// Validate checks the field constraints of the signal and its levels.
func (s *Signal) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid signal: %w", err)
	}
	if s.Action.IsTradeable() && s.Levels == nil {
		return fmt.Errorf("invalid signal: %s without trading levels", s.Action)
	}
	if s.Levels != nil {
		if err := validate.Struct(s.Levels); err != nil {
			return fmt.Errorf("invalid trading levels: %w", err)
		}
	}
	return nil
}
