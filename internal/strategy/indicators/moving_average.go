package indicators

import (
	"context"
	"fmt"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// MovingAverageType selects the smoothing of a trend line.
type MovingAverageType string

const (
	SimpleMovingAverage      MovingAverageType = "SMA"
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds the period and smoothing of a trend line.
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage is one trend line of the snapshot, such as the fast EMA the
// simulator uses for invalidation.
type MovingAverage struct {
	BaseIndicator
	kind MovingAverageType
}

// NewMovingAverage builds a trend line from config.
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		kind:          config.Type,
	}
}

// Name returns the smoothing and period, e.g. "EMA(11)".
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("%s(%d)", m.kind, m.Config.Period)
}

// Calculate returns the trend line value at the last kline.
func (m *MovingAverage) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	return m.Of(domain.Closes(klines))
}

// Of returns the trend line value at the last close. An EMA accepts any
// non-empty series; an SMA needs a full period.
func (m *MovingAverage) Of(closes []float64) (float64, error) {
	if m.Config.Period < 1 {
		return 0, fmt.Errorf("%s: period must be positive", m.Name())
	}
	switch m.kind {
	case SimpleMovingAverage:
		return SMA(closes, m.Config.Period)
	case ExponentialMovingAverage:
		return EMA(closes, m.Config.Period)
	default:
		return 0, fmt.Errorf("unsupported moving average type: %s", m.kind)
	}
}
