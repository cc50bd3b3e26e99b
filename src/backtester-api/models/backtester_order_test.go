package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDirectionalOrder(t *testing.T) {
	t.Run("builds a long order", func(t *testing.T) {
		order, err := NewDirectionalOrder("AAPL", OrderSideLong, 0.5)
		require.NoError(t, err)

		assert.Equal(t, 0.5, order.TargetFraction())
		assert.False(t, order.IsAbnormalSize())
		assert.Nil(t, order.ForcedExitPrice)
	})

	t.Run("short orders have a negative target", func(t *testing.T) {
		order, err := NewDirectionalOrder("AAPL", OrderSideShort, 0.25)
		require.NoError(t, err)

		assert.Equal(t, -0.25, order.TargetFraction())
	})

	t.Run("sizes above one are allowed but abnormal", func(t *testing.T) {
		order, err := NewDirectionalOrder("AAPL", OrderSideLong, 2)
		require.NoError(t, err)

		assert.True(t, order.IsAbnormalSize())
	})

	t.Run("rejects flat and unknown sides", func(t *testing.T) {
		_, err := NewDirectionalOrder("AAPL", OrderSideFlat, 0)
		assert.ErrorIs(t, err, ErrInvalidOrderSide)

		_, err = NewDirectionalOrder("AAPL", OrderSide("sideways"), 0.5)
		assert.ErrorIs(t, err, ErrInvalidOrderSide)
	})

	t.Run("rejects invalid sizes", func(t *testing.T) {
		for _, size := range []float64{-0.1, math.NaN(), math.Inf(1)} {
			_, err := NewDirectionalOrder("AAPL", OrderSideLong, size)
			assert.ErrorIs(t, err, ErrInvalidOrderSize)
		}
	})
}

func TestNewFlatOrder(t *testing.T) {
	t.Run("flat order targets zero", func(t *testing.T) {
		order, err := NewFlatOrder("AAPL", nil)
		require.NoError(t, err)

		assert.Equal(t, 0.0, order.TargetFraction())
	})

	t.Run("copies the forced exit price", func(t *testing.T) {
		price := 101.5
		order, err := NewFlatOrder("AAPL", &price)
		require.NoError(t, err)

		price = 0
		require.NotNil(t, order.ForcedExitPrice)
		assert.Equal(t, 101.5, *order.ForcedExitPrice)
	})

	t.Run("rejects a non-positive exit price", func(t *testing.T) {
		price := 0.0
		_, err := NewFlatOrder("AAPL", &price)
		assert.ErrorIs(t, err, ErrInvalidExitPrice)
	})
}

func TestOrderValidate(t *testing.T) {
	t.Run("flat orders must have size zero", func(t *testing.T) {
		order := &Order{Symbol: "AAPL", Side: OrderSideFlat, Size: 0.5}
		assert.ErrorIs(t, order.Validate(), ErrFlatOrderSize)
	})

	t.Run("exit price only on flat orders", func(t *testing.T) {
		price := 100.0
		order := &Order{Symbol: "AAPL", Side: OrderSideLong, Size: 0.5, ForcedExitPrice: &price}
		assert.ErrorIs(t, order.Validate(), ErrExitPriceOnDirectional)
	})
}

func TestNewAccountState(t *testing.T) {
	t.Run("requires an entry price for an open position", func(t *testing.T) {
		_, err := NewAccountState("AAPL", 1000, 0.5, nil)
		assert.ErrorIs(t, err, ErrMissingEntryPrice)
	})

	t.Run("tolerates a stale entry price on a flat account", func(t *testing.T) {
		price := 100.0
		state, err := NewAccountState("AAPL", 1000, 0, &price)
		require.NoError(t, err)

		assert.True(t, state.IsFlat())
	})

	t.Run("rejects negative equity", func(t *testing.T) {
		_, err := NewAccountState("AAPL", -1, 0, nil)
		assert.ErrorIs(t, err, ErrInvalidEquity)
	})

	t.Run("copy does not share the entry price", func(t *testing.T) {
		price := 100.0
		state, err := NewAccountState("AAPL", 1000, 0.5, &price)
		require.NoError(t, err)

		cp := state.Copy()
		*cp.EntryPrice = 1

		assert.Equal(t, 100.0, *state.EntryPrice)
	})
}
