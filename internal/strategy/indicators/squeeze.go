package indicators

import (
	"context"
	"fmt"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// SqueezeConfig holds configuration for the squeeze momentum oscillator.
type SqueezeConfig struct {
	BBPeriod int
	KCPeriod int
	// KCMult scales both the Bollinger deviation and the Keltner range.
	KCMult float64
}

// DefaultSqueezeConfig returns the 20/20/1.5 configuration.
func DefaultSqueezeConfig() SqueezeConfig {
	return SqueezeConfig{BBPeriod: 20, KCPeriod: 20, KCMult: 1.5}
}

// Squeeze detects volatility compression (Bollinger band inside a Keltner
// channel) and measures momentum relative to the channel midpoint.
type Squeeze struct {
	config SqueezeConfig
}

// NewSqueeze creates a new squeeze momentum indicator instance
func NewSqueeze(config SqueezeConfig) *Squeeze {
	return &Squeeze{config: config}
}

// Name returns the name of the indicator
func (s *Squeeze) Name() string {
	return "SQUEEZE"
}

// RequiredDataPoints returns the longest rolling window plus one bar for the release flag.
func (s *Squeeze) RequiredDataPoints() int {
	return max(s.config.BBPeriod, s.config.KCPeriod) + 1
}

// Calculate returns the momentum value at the last kline.
func (s *Squeeze) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	reading, err := s.Reading(klines)
	if err != nil {
		return 0, err
	}
	return reading.Momentum, nil
}

// Reading computes momentum and the compression flags at the last kline.
func (s *Squeeze) Reading(klines []*domain.Kline) (domain.SqueezeReading, error) {
	window := max(s.config.BBPeriod, s.config.KCPeriod)
	if s.config.BBPeriod < 2 || s.config.KCPeriod < 1 {
		return domain.SqueezeReading{}, fmt.Errorf("invalid squeeze periods bb=%d kc=%d", s.config.BBPeriod, s.config.KCPeriod)
	}
	if len(klines) < window {
		return domain.SqueezeReading{}, fmt.Errorf("not enough data (%d) to calculate squeeze for window %d", len(klines), window)
	}

	momentum, compressed, err := s.at(klines)
	if err != nil {
		return domain.SqueezeReading{}, err
	}

	released := false
	if !compressed && len(klines) > window {
		if _, prevCompressed, err := s.at(klines[:len(klines)-1]); err == nil {
			released = prevCompressed
		}
	}

	return domain.SqueezeReading{
		Momentum:   momentum,
		Compressed: compressed,
		Released:   released,
	}, nil
}

// at evaluates the oscillator at the last kline of the window.
func (s *Squeeze) at(klines []*domain.Kline) (float64, bool, error) {
	closes := domain.Closes(klines)

	bbBasis, err := SMA(closes, s.config.BBPeriod)
	if err != nil {
		return 0, false, err
	}
	std, err := StdDev(closes, s.config.BBPeriod)
	if err != nil {
		return 0, false, err
	}
	bbDev := s.config.KCMult * std

	kcBasis, err := SMA(closes, s.config.KCPeriod)
	if err != nil {
		return 0, false, err
	}
	rangeAvg, err := SMA(TrueRanges(klines), s.config.KCPeriod)
	if err != nil {
		return 0, false, err
	}
	kcRange := rangeAvg * s.config.KCMult

	compressed := bbBasis-bbDev > kcBasis-kcRange && bbBasis+bbDev < kcBasis+kcRange

	mid := (highestHigh(klines, s.config.KCPeriod) + lowestLow(klines, s.config.KCPeriod)) / 2
	momentum, err := finite("squeeze momentum", closes[len(closes)-1]-(mid+kcBasis)/2)
	if err != nil {
		return 0, false, err
	}
	return momentum, compressed, nil
}
