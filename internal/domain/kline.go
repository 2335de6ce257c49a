package domain

import (
	"fmt"
	"math"
	"time"
)

// Kline represents a single OHLCV candlestick.
type Kline struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Kline interval (e.g., "1h", "4h")
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// TypicalPrice returns (high + low + close) / 3.
func (k *Kline) TypicalPrice() float64 {
	return (k.High + k.Low + k.Close) / 3
}

// Validate checks that the kline prices are finite and consistent.
func (k *Kline) Validate() error {
	for _, v := range []float64{k.Open, k.High, k.Low, k.Close, k.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("kline %s at %s has non-finite values", k.Symbol, k.OpenTime.Format(time.RFC3339))
		}
	}
	if k.Close <= 0 {
		return fmt.Errorf("kline %s at %s has non-positive close %f", k.Symbol, k.OpenTime.Format(time.RFC3339), k.Close)
	}
	if k.High < k.Low {
		return fmt.Errorf("kline %s at %s has high %f below low %f", k.Symbol, k.OpenTime.Format(time.RFC3339), k.High, k.Low)
	}
	return nil
}

// Closes extracts the close prices of a kline series.
func Closes(klines []*Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}
