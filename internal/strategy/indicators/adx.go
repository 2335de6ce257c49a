package indicators

import (
	"context"
	"fmt"
	"math"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// ADXConfig holds configuration for the directional-strength oscillator.
type ADXConfig struct {
	IndicatorConfig
	// ZeroPoint is subtracted from the ADX to produce the rebased display value.
	ZeroPoint float64
	// TrendThreshold is the ADX level above which the market counts as trending.
	TrendThreshold float64
	// SlopeThreshold is the 3-bar slope above which the trend counts as strengthening.
	SlopeThreshold float64
}

// DefaultADXConfig returns the 14-period configuration with zero point 23.
func DefaultADXConfig() ADXConfig {
	return ADXConfig{
		IndicatorConfig: IndicatorConfig{Period: 14},
		ZeroPoint:       23,
		TrendThreshold:  25,
		SlopeThreshold:  0.5,
	}
}

// ADX implements the Average Directional Index with Wilder smoothing.
type ADX struct {
	BaseIndicator
	config ADXConfig
}

// NewADX creates a new ADX indicator instance
func NewADX(config ADXConfig) *ADX {
	return &ADX{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (a *ADX) Name() string {
	return "ADX"
}

// RequiredDataPoints returns the bar count for a first ADX value plus a 3-bar slope.
func (a *ADX) RequiredDataPoints() int {
	return 2*a.Config.Period + 2
}

// Calculate returns the ADX value at the last kline.
func (a *ADX) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	reading, err := a.Reading(klines)
	if err != nil {
		return 0, err
	}
	return reading.Value, nil
}

// Reading computes the full directional-strength state at the last kline.
func (a *ADX) Reading(klines []*domain.Kline) (domain.ADXReading, error) {
	adx, plusDI, minusDI, err := adxSeries(klines, a.Config.Period)
	if err != nil {
		return domain.ADXReading{Rebased: -a.config.ZeroPoint, Class: domain.TrendWeak}, err
	}

	last := adx[len(adx)-1]
	slope := 0.0
	if len(adx) >= 3 {
		slope = (last - adx[len(adx)-3]) / 2
	}
	if _, err := finite("ADX", last+slope+plusDI+minusDI); err != nil {
		return domain.ADXReading{Rebased: -a.config.ZeroPoint, Class: domain.TrendWeak}, err
	}

	return domain.ADXReading{
		Value:         last,
		Rebased:       last - a.config.ZeroPoint,
		PlusDI:        plusDI,
		MinusDI:       minusDI,
		Class:         ClassifyTrend(last),
		Slope:         slope,
		Trending:      last > a.config.TrendThreshold,
		Strengthening: slope > a.config.SlopeThreshold,
	}, nil
}

// ClassifyTrend buckets an ADX value into a strength class.
func ClassifyTrend(adx float64) domain.TrendClass {
	switch {
	case adx > 50:
		return domain.TrendVeryStrong
	case adx > 35:
		return domain.TrendStrong
	case adx > 25:
		return domain.TrendModerate
	default:
		return domain.TrendWeak
	}
}

// adxSeries returns the ADX values from the first complete one to the last kline,
// plus the +DI and -DI at the last kline.
func adxSeries(klines []*domain.Kline, period int) ([]float64, float64, float64, error) {
	if period < 1 {
		return nil, 0, 0, fmt.Errorf("invalid ADX period %d", period)
	}
	if len(klines) < 2*period {
		return nil, 0, 0, fmt.Errorf("not enough data (%d) to calculate ADX for period %d", len(klines), period)
	}

	n := len(klines) - 1
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < len(klines); i++ {
		cur, prev := klines[i], klines[i-1]
		tr[i-1] = math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prev.Close), math.Abs(cur.Low-prev.Close)))
		up := cur.High - prev.High
		down := prev.Low - cur.Low
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
	}

	// Wilder running sums seeded with the first period values
	var sTR, sPlus, sMinus float64
	for i := 0; i < period; i++ {
		sTR += tr[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}

	p := float64(period)
	dx := make([]float64, 0, n-period+1)
	var plusDI, minusDI float64
	for i := period - 1; i < n; i++ {
		if i >= period {
			sTR = sTR - sTR/p + tr[i]
			sPlus = sPlus - sPlus/p + plusDM[i]
			sMinus = sMinus - sMinus/p + minusDM[i]
		}
		plusDI, minusDI = 0, 0
		if sTR > 0 {
			plusDI = 100 * sPlus / sTR
			minusDI = 100 * sMinus / sTR
		}
		v := 0.0
		if sum := plusDI + minusDI; sum > 0 {
			v = 100 * math.Abs(plusDI-minusDI) / sum
		}
		dx = append(dx, v)
	}

	if len(dx) < period {
		return nil, 0, 0, fmt.Errorf("not enough directional movement values (%d) for ADX period %d", len(dx), period)
	}

	adx := make([]float64, 0, len(dx)-period+1)
	first := 0.0
	for _, v := range dx[:period] {
		first += v
	}
	adx = append(adx, first/p)
	for _, v := range dx[period:] {
		prev := adx[len(adx)-1]
		adx = append(adx, (prev*(p-1)+v)/p)
	}
	return adx, plusDI, minusDI, nil
}
