package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqueeze_Reading(t *testing.T) {
	sq := NewSqueeze(DefaultSqueezeConfig())

	t.Run("flat closes are compressed", func(t *testing.T) {
		reading, err := sq.Reading(makeKlines(linear(30, 100, 0), 1, 1))
		require.NoError(t, err)
		assert.True(t, reading.Compressed)
		assert.False(t, reading.Released)
		assert.InDelta(t, 0.0, reading.Momentum, 0.0001)
	})

	t.Run("breakout releases the squeeze", func(t *testing.T) {
		closes := append(linear(30, 100, 0), 150)
		reading, err := sq.Reading(makeKlines(closes, 1, 1))
		require.NoError(t, err)
		assert.False(t, reading.Compressed)
		assert.True(t, reading.Released)
		// 150 - ((151+99)/2 + 102.5)/2
		assert.InDelta(t, 36.25, reading.Momentum, 0.0001)
	})

	t.Run("insufficient data", func(t *testing.T) {
		_, err := sq.Reading(makeKlines(linear(10, 100, 0), 1, 1))
		assert.Error(t, err)
	})

	assert.Equal(t, 21, sq.RequiredDataPoints())
}
