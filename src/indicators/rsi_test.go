package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const equalityThreshold = 1e-2

func TestRsi(t *testing.T) {
	t.Run("example rsi", func(t *testing.T) {
		// example taken from https://blog.quantinsti.com/rsi-indicator/
		rsi := NewRsi(14)
		bars := closeBars([]float64{
			283.46, 280.69, 285.48, 294.08, 293.90, 299.92, 301.15, 284.45,
			294.09, 302.77, 301.97, 306.85, 305.02, 301.06, 291.97,
		})

		var val float64
		var ok bool
		for i, bar := range bars {
			val, ok = rsi.Update(bar)
			if i < len(bars)-1 {
				assert.False(t, ok)
				assert.Equal(t, 0.0, val)
			}
		}

		require.True(t, ok)
		assert.InDelta(t, 55.37, val, equalityThreshold)

		for _, tc := range []struct {
			close    float64
			expected float64
		}{
			{284.18, 50.07},
			{286.48, 51.55},
			{284.54, 50.20},
		} {
			val, ok = rsi.Update(closeBars([]float64{tc.close})[0])
			require.True(t, ok)
			assert.InDelta(t, tc.expected, val, equalityThreshold)
		}
	})

	t.Run("too few candles", func(t *testing.T) {
		rsi := NewRsi(14)
		val, ok := rsi.Update(closeBars([]float64{100.0})[0])
		assert.False(t, ok)
		assert.Equal(t, 0.0, val)
	})

	t.Run("all losers", func(t *testing.T) {
		rsi := NewRsi(2)
		var val float64
		for _, bar := range closeBars([]float64{10.0, 9.0, 5.0}) {
			val, _ = rsi.Update(bar)
		}

		assert.Equal(t, 0.0, val)
	})

	t.Run("all winners", func(t *testing.T) {
		rsi := NewRsi(2)
		var val float64
		for _, bar := range closeBars([]float64{10.0, 11.0, 15.0, 16.0}) {
			val, _ = rsi.Update(bar)
		}

		assert.Equal(t, 100.0, val)
	})

	t.Run("reset", func(t *testing.T) {
		rsi := NewRsi(2)
		for _, bar := range closeBars([]float64{10.0, 11.0, 15.0}) {
			rsi.Update(bar)
		}

		rsi.Reset()
		_, ok := rsi.Update(closeBars([]float64{12.0})[0])
		assert.False(t, ok)
		assert.Equal(t, 2, rsi.Period)
	})
}
