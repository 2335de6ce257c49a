package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

func TestADX_Reading(t *testing.T) {
	adx := NewADX(DefaultADXConfig())

	t.Run("steady uptrend is very strong", func(t *testing.T) {
		reading, err := adx.Reading(makeKlines(linear(60, 100, 1), 0.5, 1))
		require.NoError(t, err)
		assert.InDelta(t, 100.0, reading.Value, 0.0001)
		assert.InDelta(t, 77.0, reading.Rebased, 0.0001)
		assert.Equal(t, domain.TrendVeryStrong, reading.Class)
		assert.True(t, reading.Trending)
		assert.Greater(t, reading.PlusDI, reading.MinusDI)
		assert.InDelta(t, 0.0, reading.Slope, 0.0001)
		assert.False(t, reading.Strengthening)
	})

	t.Run("flat market is weak", func(t *testing.T) {
		reading, err := adx.Reading(makeKlines(linear(60, 100, 0), 1, 1))
		require.NoError(t, err)
		assert.InDelta(t, 0.0, reading.Value, 0.0001)
		assert.InDelta(t, -23.0, reading.Rebased, 0.0001)
		assert.Equal(t, domain.TrendWeak, reading.Class)
		assert.False(t, reading.Trending)
	})

	t.Run("insufficient data returns neutral reading", func(t *testing.T) {
		reading, err := adx.Reading(makeKlines(linear(20, 100, 1), 0.5, 1))
		require.Error(t, err)
		assert.InDelta(t, -23.0, reading.Rebased, 0.0001)
		assert.Equal(t, domain.TrendWeak, reading.Class)
	})

	t.Run("value stays within 0..100", func(t *testing.T) {
		closes := make([]float64, 120)
		for i := range closes {
			closes[i] = 100 + float64(i%7)*3 - float64(i%3)*2
		}
		reading, err := adx.Reading(makeKlines(closes, 2, 1))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, reading.Value, 0.0)
		assert.LessOrEqual(t, reading.Value, 100.0)
	})
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		adx      float64
		expected domain.TrendClass
	}{
		{adx: 10, expected: domain.TrendWeak},
		{adx: 25, expected: domain.TrendWeak},
		{adx: 25.1, expected: domain.TrendModerate},
		{adx: 35, expected: domain.TrendModerate},
		{adx: 35.1, expected: domain.TrendStrong},
		{adx: 50, expected: domain.TrendStrong},
		{adx: 50.1, expected: domain.TrendVeryStrong},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyTrend(tt.adx), "adx %.1f", tt.adx)
	}
}
