package indicators

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/internal/ports"
)

func TestEMA_StaysWithinInputRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, period := range []int{1, 3, 11, 55} {
		values := make([]float64, 200)
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range values {
			values[i] = 50 + rng.Float64()*100
			lo = math.Min(lo, values[i])
			hi = math.Max(hi, values[i])
		}

		for i, v := range EMASeries(values, period) {
			assert.GreaterOrEqual(t, v, lo, "period %d index %d", period, i)
			assert.LessOrEqual(t, v, hi, "period %d index %d", period, i)
		}
	}
}

func TestEMA_ConstantSeries(t *testing.T) {
	v, err := EMA(linear(30, 42, 0), 11)
	require.NoError(t, err)
	assert.InDelta(t, 42.0, v, 0.0001)
}

func TestEMA_DegenerateInput(t *testing.T) {
	_, err := EMA([]float64{1, math.NaN(), 3}, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrComputationDegenerate)

	_, err = EMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestStdDev_UsesSampleVariance(t *testing.T) {
	// mean 5, squared deviations sum to 32, n-1 = 7
	v, err := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(32.0/7.0), v, 0.0001)
}

func TestTrueRanges(t *testing.T) {
	klines := makeKlines([]float64{100, 110, 90}, 1, 1)
	tr := TrueRanges(klines)
	require.Len(t, tr, 3)
	assert.InDelta(t, 2.0, tr[0], 0.0001)
	assert.InDelta(t, 11.0, tr[1], 0.0001) // high 111 vs prev close 100
	assert.InDelta(t, 21.0, tr[2], 0.0001) // low 89 vs prev close 110
}

func TestATR_Calculate(t *testing.T) {
	atr := NewATR(ATRConfig{IndicatorConfig: IndicatorConfig{Period: 14}})
	assert.Equal(t, 15, atr.RequiredDataPoints())

	v, err := atr.Calculate(context.Background(), makeKlines(linear(30, 100, 0), 0.5, 1))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 0.0001)

	_, err = atr.Calculate(context.Background(), makeKlines(linear(10, 100, 0), 0.5, 1))
	assert.Error(t, err)
}
