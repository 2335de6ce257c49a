package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanluis911/TradingLatino/internal/domain"
)

// profileKlines spans 100..120 with one heavy bar at typical price 110.5.
func profileKlines() []*domain.Kline {
	klines := makeKlines(linear(20, 100.5, 1), 0.5, 1)
	klines[10].Volume = 100
	return klines
}

func TestVolumeProfile_Compute(t *testing.T) {
	vp := NewVolumeProfile(VolumeProfileConfig{})

	t.Run("heaviest bucket is the point of control", func(t *testing.T) {
		profile, err := vp.Compute(profileKlines(), 110)
		require.NoError(t, err)

		// 10 edges, 9 buckets of width 20/9; bars 9 and 10 share bucket 4
		assert.InDelta(t, 110.0, profile.POC, 0.0001)
		assert.InDelta(t, 0.0, profile.POCDistancePct, 0.0001)
		require.Len(t, profile.Levels, 5)
		assert.True(t, profile.Levels[0].IsPOC)
		assert.InDelta(t, 101.0, profile.Levels[0].Volume, 0.0001)
		for i := 1; i < len(profile.Levels); i++ {
			assert.False(t, profile.Levels[i].IsPOC)
			assert.LessOrEqual(t, profile.Levels[i].Volume, profile.Levels[i-1].Volume)
		}
	})

	t.Run("distance is measured against the current price", func(t *testing.T) {
		profile, err := vp.Compute(profileKlines(), 121)
		require.NoError(t, err)
		assert.InDelta(t, 10.0, profile.POCDistancePct, 0.0001)
	})

	t.Run("empty input falls back to the current price", func(t *testing.T) {
		profile, err := vp.Compute(nil, 250)
		require.NoError(t, err)
		assert.Equal(t, 250.0, profile.POC)
		assert.Empty(t, profile.Levels)
	})

	t.Run("too few bars for a grid", func(t *testing.T) {
		profile, err := vp.Compute(makeKlines([]float64{100, 101, 102}, 1, 1), 101)
		require.Error(t, err)
		assert.Equal(t, 101.0, profile.POC)
	})

	t.Run("single price level", func(t *testing.T) {
		profile, err := vp.Compute(makeKlines(linear(20, 100, 0), 0, 5), 100)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, profile.POC, 0.0001)
		assert.InDelta(t, 100.0, profile.Levels[0].Volume, 0.0001)
	})
}
