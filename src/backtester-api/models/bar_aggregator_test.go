package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeframe(t *testing.T) {
	cases := map[string]time.Duration{
		"30s": 30 * time.Second,
		"1m":  time.Minute,
		"5m":  5 * time.Minute,
		"15m": 15 * time.Minute,
		"1h":  time.Hour,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
	}

	for tf, expected := range cases {
		t.Run(tf, func(t *testing.T) {
			d, err := ParseTimeframe(tf)
			require.NoError(t, err)
			assert.Equal(t, expected, d)
		})
	}

	t.Run("rejects malformed timeframes", func(t *testing.T) {
		for _, tf := range []string{"", "m", "0m", "-5m", "5x", "abc"} {
			_, err := ParseTimeframe(tf)
			assert.ErrorIs(t, err, ErrInvalidTimeframe, tf)
		}
	})
}

func TestBarAggregator(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()

	t.Run("rolls over when the interval advances", func(t *testing.T) {
		agg, err := NewBarAggregator("5m")
		require.NoError(t, err)

		assert.Nil(t, agg.AddPrice(100, epoch, 1))
		assert.Nil(t, agg.AddPrice(105, epoch.Add(120*time.Second), 2))
		assert.Nil(t, agg.AddPrice(95, epoch.Add(250*time.Second), 3))

		completed := agg.AddPrice(101, epoch.Add(310*time.Second), 4)
		require.NotNil(t, completed)

		assert.Equal(t, epoch, completed.Timestamp)
		assert.Equal(t, 100.0, completed.Open)
		assert.Equal(t, 105.0, completed.High)
		assert.Equal(t, 95.0, completed.Low)
		assert.Equal(t, 95.0, completed.Close)
		assert.Equal(t, 6.0, completed.Volume)

		current := agg.CurrentBar()
		require.NotNil(t, current)
		assert.Equal(t, epoch.Add(300*time.Second), current.Timestamp)
		assert.Equal(t, 101.0, current.Open)
		assert.Equal(t, 101.0, current.Close)
	})

	t.Run("aligns bar starts to the interval", func(t *testing.T) {
		agg, err := NewBarAggregator("1m")
		require.NoError(t, err)

		ts := time.Date(2024, 3, 1, 9, 30, 42, 0, time.UTC)
		agg.AddPrice(10, ts, 0)

		assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), agg.CurrentBar().Timestamp)
		assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), *agg.LastBarTime())
	})

	t.Run("late ticks fold into the in-progress bar", func(t *testing.T) {
		agg, err := NewBarAggregator("1m")
		require.NoError(t, err)

		agg.AddPrice(10, epoch.Add(90*time.Second), 1)
		assert.Nil(t, agg.AddPrice(12, epoch.Add(30*time.Second), 1))

		current := agg.CurrentBar()
		assert.Equal(t, epoch.Add(time.Minute), current.Timestamp)
		assert.Equal(t, 12.0, current.High)
	})

	t.Run("does not flush a partial bar automatically", func(t *testing.T) {
		agg, err := NewBarAggregator("1m")
		require.NoError(t, err)

		agg.AddPrice(10, epoch, 1)

		flushed := agg.Flush()
		require.NotNil(t, flushed)
		assert.Equal(t, 10.0, flushed.Close)
		assert.Nil(t, agg.CurrentBar())
		assert.Nil(t, agg.Flush())
	})

	t.Run("current bar is a copy", func(t *testing.T) {
		agg, err := NewBarAggregator("1m")
		require.NoError(t, err)

		agg.AddPrice(10, epoch, 1)
		peek := agg.CurrentBar()
		peek.Close = 999

		assert.Equal(t, 10.0, agg.CurrentBar().Close)
	})

	t.Run("rejects an invalid timeframe", func(t *testing.T) {
		_, err := NewBarAggregator("bogus")
		assert.ErrorIs(t, err, ErrInvalidTimeframe)
	})
}
