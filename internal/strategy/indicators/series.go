package indicators

import (
	"fmt"
	"math"

	"github.com/juanluis911/TradingLatino/internal/domain"
	"github.com/juanluis911/TradingLatino/internal/ports"
)

// EMASeries returns the exponential moving average at every position of values.
// The first value seeds the average, so there is no warm-up gap.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 || period < 1 {
		return nil
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// EMA returns the exponential moving average at the last value.
func EMA(values []float64, period int) (float64, error) {
	if period < 1 {
		return 0, fmt.Errorf("invalid EMA period %d", period)
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("not enough data (0) to calculate EMA for period %d", period)
	}
	series := EMASeries(values, period)
	return finite("EMA", series[len(series)-1])
}

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period < 1 {
		return 0, fmt.Errorf("invalid SMA period %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(values), period)
	}
	total := 0.0
	for _, v := range values[len(values)-period:] {
		total += v
	}
	return finite("SMA", total/float64(period))
}

// StdDev returns the sample standard deviation (n-1) of the last period values.
func StdDev(values []float64, period int) (float64, error) {
	if period < 2 {
		return 0, fmt.Errorf("invalid standard deviation period %d", period)
	}
	mean, err := SMA(values, period)
	if err != nil {
		return 0, err
	}
	variance := 0.0
	for _, v := range values[len(values)-period:] {
		variance += (v - mean) * (v - mean)
	}
	return finite("StdDev", math.Sqrt(variance/float64(period-1)))
}

// TrueRanges returns the true range of every kline. The first kline has no
// previous close, so its range is high minus low.
func TrueRanges(klines []*domain.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		if i == 0 {
			out[i] = k.High - k.Low
			continue
		}
		prevClose := klines[i-1].Close
		out[i] = math.Max(k.High-k.Low, math.Max(math.Abs(k.High-prevClose), math.Abs(k.Low-prevClose)))
	}
	return out
}

// highestHigh and lowestLow scan the last period klines.
func highestHigh(klines []*domain.Kline, period int) float64 {
	h := math.Inf(-1)
	for _, k := range klines[len(klines)-period:] {
		h = math.Max(h, k.High)
	}
	return h
}

func lowestLow(klines []*domain.Kline, period int) float64 {
	l := math.Inf(1)
	for _, k := range klines[len(klines)-period:] {
		l = math.Min(l, k.Low)
	}
	return l
}

// finite wraps ports.ErrComputationDegenerate when v is NaN or infinite.
func finite(name string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: %w", name, ports.ErrComputationDegenerate)
	}
	return v, nil
}
