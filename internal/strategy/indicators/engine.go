package indicators

import (
	"context"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// EngineConfig holds the periods of every indicator in a snapshot.
type EngineConfig struct {
	FastEMAPeriod     int     `mapstructure:"fast_ema_period" validate:"gte=1,ltfield=SlowEMAPeriod"`
	SlowEMAPeriod     int     `mapstructure:"slow_ema_period" validate:"gte=2"`
	ADXPeriod         int     `mapstructure:"adx_period" validate:"gte=1"`
	ADXZeroPoint      float64 `mapstructure:"adx_zero_point" validate:"gte=0,lte=100"`
	ADXTrendThreshold float64 `mapstructure:"adx_trend_threshold" validate:"gte=0,lte=100"`
	ADXSlopeThreshold float64 `mapstructure:"adx_slope_threshold"`
	SqueezeBBPeriod   int     `mapstructure:"squeeze_bb_period" validate:"gte=2"`
	SqueezeKCPeriod   int     `mapstructure:"squeeze_kc_period" validate:"gte=1"`
	SqueezeKCMult     float64 `mapstructure:"squeeze_kc_mult" validate:"gt=0"`
	VolumeLookback    int     `mapstructure:"volume_lookback" validate:"gte=4"`
	RSIPeriod         int     `mapstructure:"rsi_period" validate:"gte=1"`
	ATRPeriod         int     `mapstructure:"atr_period" validate:"gte=1"`
}

// DefaultEngineConfig returns EMA 11/55, ADX 14 (zero point 23), squeeze 20/20/1.5,
// volume lookback 100 and RSI/ATR 14.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		FastEMAPeriod:     11,
		SlowEMAPeriod:     55,
		ADXPeriod:         14,
		ADXZeroPoint:      23,
		ADXTrendThreshold: 25,
		ADXSlopeThreshold: 0.5,
		SqueezeBBPeriod:   20,
		SqueezeKCPeriod:   20,
		SqueezeKCMult:     1.5,
		VolumeLookback:    100,
		RSIPeriod:         14,
		ATRPeriod:         14,
	}
}

// Engine computes indicator snapshots. It holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	config  EngineConfig
	fastMA  *MovingAverage
	slowMA  *MovingAverage
	adx     *ADX
	squeeze *Squeeze
	profile *VolumeProfile
	rsi     *RSI
	atr     *ATR
}

// NewEngine validates the configuration and builds the indicator set.
func NewEngine(config EngineConfig) (*Engine, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid indicator engine config: %w", err)
	}
	return &Engine{
		config: config,
		fastMA: NewMovingAverage(MovingAverageConfig{
			IndicatorConfig: IndicatorConfig{Period: config.FastEMAPeriod},
			Type:            ExponentialMovingAverage,
		}),
		slowMA: NewMovingAverage(MovingAverageConfig{
			IndicatorConfig: IndicatorConfig{Period: config.SlowEMAPeriod},
			Type:            ExponentialMovingAverage,
		}),
		adx: NewADX(ADXConfig{
			IndicatorConfig: IndicatorConfig{Period: config.ADXPeriod},
			ZeroPoint:       config.ADXZeroPoint,
			TrendThreshold:  config.ADXTrendThreshold,
			SlopeThreshold:  config.ADXSlopeThreshold,
		}),
		squeeze: NewSqueeze(SqueezeConfig{
			BBPeriod: config.SqueezeBBPeriod,
			KCPeriod: config.SqueezeKCPeriod,
			KCMult:   config.SqueezeKCMult,
		}),
		profile: NewVolumeProfile(VolumeProfileConfig{Lookback: config.VolumeLookback}),
		rsi:     NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: config.RSIPeriod}}),
		atr:     NewATR(ATRConfig{IndicatorConfig: IndicatorConfig{Period: config.ATRPeriod}}),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

// RequiredDataPoints returns the bar count needed for every indicator to be stable.
func (e *Engine) RequiredDataPoints() int {
	return max(e.slowMA.RequiredDataPoints(), e.adx.RequiredDataPoints(), e.squeeze.RequiredDataPoints(), e.rsi.RequiredDataPoints())
}

// FastEMA returns the fast EMA at the last kline, or the last close when it
// cannot be computed. Zero is returned for an empty series.
func (e *Engine) FastEMA(klines []*domain.Kline) float64 {
	if len(klines) == 0 {
		return 0
	}
	v, err := e.fastMA.Of(domain.Closes(klines))
	if err != nil {
		return klines[len(klines)-1].Close
	}
	return v
}

// Snapshot computes every indicator for the window ending at the last kline.
// Each failed computation is replaced by its neutral value and reported in the
// returned error slice; Snapshot itself never fails.
func (e *Engine) Snapshot(ctx context.Context, klines []*domain.Kline, currentPrice float64) (domain.IndicatorSnapshot, []error) {
	if len(klines) == 0 {
		return domain.NeutralSnapshot(currentPrice, e.config.ADXZeroPoint), []error{fmt.Errorf("snapshot: no klines")}
	}
	if currentPrice <= 0 || math.IsNaN(currentPrice) || math.IsInf(currentPrice, 0) {
		currentPrice = klines[len(klines)-1].Close
	}

	var errs []error
	snap := domain.NeutralSnapshot(currentPrice, e.config.ADXZeroPoint)
	snap.BarIndex = len(klines) - 1
	snap.Time = klines[len(klines)-1].OpenTime

	closes := domain.Closes(klines)
	if v, err := e.fastMA.Of(closes); err == nil {
		snap.EMAFast = v
	} else {
		errs = append(errs, fmt.Errorf("fast %s: %w", e.fastMA.Name(), err))
	}
	if v, err := e.slowMA.Of(closes); err == nil {
		snap.EMASlow = v
	} else {
		errs = append(errs, fmt.Errorf("slow %s: %w", e.slowMA.Name(), err))
	}

	// Readings come back neutral on error
	adx, err := e.adx.Reading(klines)
	snap.ADX = adx
	if err != nil {
		errs = append(errs, fmt.Errorf("ADX: %w", err))
	}

	if sq, err := e.squeeze.Reading(klines); err == nil {
		snap.Squeeze = sq
	} else {
		errs = append(errs, fmt.Errorf("squeeze: %w", err))
	}

	vp, err := e.profile.Compute(klines, currentPrice)
	snap.VolumeProfile = vp
	if err != nil {
		snap.VolumeProfile = domain.VolumeProfile{POC: currentPrice}
		errs = append(errs, fmt.Errorf("volume profile: %w", err))
	}

	if v, err := e.rsi.Calculate(ctx, klines); err == nil {
		snap.RSI = v
	} else {
		errs = append(errs, fmt.Errorf("RSI: %w", err))
	}

	if v, err := e.atr.Calculate(ctx, klines); err == nil {
		snap.ATR = v
	} else {
		errs = append(errs, fmt.Errorf("ATR: %w", err))
	}

	return snap, errs
}
