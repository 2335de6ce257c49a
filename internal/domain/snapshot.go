package domain

import "time"

// ADXReading is the directional-strength oscillator state at one bar.
type ADXReading struct {
	Value         float64    `json:"adx"`
	Rebased       float64    `json:"adx_modified"` // Value minus the zero point, display only
	PlusDI        float64    `json:"adx_pos"`
	MinusDI       float64    `json:"adx_neg"`
	Class         TrendClass `json:"strength"`
	Slope         float64    `json:"slope"`
	Trending      bool       `json:"trending"`
	Strengthening bool       `json:"strengthening"`
}

// SqueezeReading is the volatility-compression oscillator state at one bar.
type SqueezeReading struct {
	Momentum   float64 `json:"momentum"`
	Compressed bool    `json:"compressed"`
	// Released is true on the first bar after a compression ends.
	Released bool `json:"released"`
}

// VolumeLevel is one high-density price bucket of a volume profile.
type VolumeLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
	IsPOC  bool    `json:"is_poc"`
}

// VolumeProfile is the volume-weighted price histogram summary.
type VolumeProfile struct {
	POC            float64       `json:"vpoc"`
	POCDistancePct float64       `json:"vpoc_distance_pct"`
	Levels         []VolumeLevel `json:"high_volume_levels"`
}

// IndicatorSnapshot holds every derived value for the bar window ending at BarIndex.
// A snapshot is produced fresh for each evaluated bar and never mutated.
type IndicatorSnapshot struct {
	BarIndex      int            `json:"bar_index"`
	Time          time.Time      `json:"time"`
	Price         float64        `json:"price"`
	EMAFast       float64        `json:"ema_fast"`
	EMASlow       float64        `json:"ema_slow"`
	ADX           ADXReading     `json:"adx"`
	Squeeze       SqueezeReading `json:"squeeze"`
	VolumeProfile VolumeProfile  `json:"volume_profile"`
	RSI           float64        `json:"rsi"`
	ATR           float64        `json:"atr"`
}

// NeutralSnapshot returns the snapshot used when nothing can be computed.
func NeutralSnapshot(price float64, zeroPoint float64) IndicatorSnapshot {
	return IndicatorSnapshot{
		BarIndex: -1,
		Price:    price,
		EMAFast:  price,
		EMASlow:  price,
		ADX: ADXReading{
			Rebased: -zeroPoint,
			Class:   TrendWeak,
		},
		VolumeProfile: VolumeProfile{POC: price},
		RSI:           50,
	}
}
