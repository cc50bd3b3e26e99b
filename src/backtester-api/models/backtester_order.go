package models

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// abnormalOrderSize is the largest size that does not trigger a leverage warning.
const abnormalOrderSize = 1.0

// Order is a target-exposure instruction issued by a strategy. Directional orders carry a
// side and a size (fraction of equity). Flat orders carry size 0 and may pin the exit fill
// to ForcedExitPrice, which stop/take-profit style exits use to fill at the trigger price.
//
// Build orders with NewDirectionalOrder or NewFlatOrder so they are validated up front.
type Order struct {
	Symbol          string    `json:"symbol"`
	Side            OrderSide `json:"side"`
	Size            float64   `json:"size"`
	ForcedExitPrice *float64  `json:"forced_exit_price,omitempty"`
}

func NewDirectionalOrder(symbol string, side OrderSide, size float64) (*Order, error) {
	if side != OrderSideLong && side != OrderSideShort {
		return nil, fmt.Errorf("NewDirectionalOrder: %w: %q", ErrInvalidOrderSide, string(side))
	}

	order := &Order{
		Symbol: symbol,
		Side:   side,
		Size:   size,
	}

	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("NewDirectionalOrder: %w", err)
	}

	if order.IsAbnormalSize() {
		log.Warnf("NewDirectionalOrder: abnormal order size %.4f for %s (> %.1f implies leverage)", size, symbol, abnormalOrderSize)
	}

	return order, nil
}

func NewFlatOrder(symbol string, forcedExitPrice *float64) (*Order, error) {
	order := &Order{
		Symbol: symbol,
		Side:   OrderSideFlat,
	}

	if forcedExitPrice != nil {
		price := *forcedExitPrice
		order.ForcedExitPrice = &price
	}

	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("NewFlatOrder: %w", err)
	}

	return order, nil
}

func (o *Order) Validate() error {
	if err := o.Side.Validate(); err != nil {
		return err
	}

	if math.IsNaN(o.Size) || math.IsInf(o.Size, 0) || o.Size < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidOrderSize, o.Size)
	}

	if o.Side == OrderSideFlat && o.Size != 0 {
		return fmt.Errorf("%w: got %v", ErrFlatOrderSize, o.Size)
	}

	if o.ForcedExitPrice != nil {
		if o.Side != OrderSideFlat {
			return ErrExitPriceOnDirectional
		}

		price := *o.ForcedExitPrice
		if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
			return fmt.Errorf("%w: got %v", ErrInvalidExitPrice, price)
		}
	}

	return nil
}

func (o *Order) IsAbnormalSize() bool {
	return o.Size > abnormalOrderSize
}

// TargetFraction returns the signed fraction of equity this order asks the account to hold.
func (o *Order) TargetFraction() float64 {
	return o.Side.Direction() * math.Abs(o.Size)
}

func (o *Order) String() string {
	if o.ForcedExitPrice != nil {
		return fmt.Sprintf("%s %s @ %.4f", o.Symbol, o.Side, *o.ForcedExitPrice)
	}

	return fmt.Sprintf("%s %s %.4f", o.Symbol, o.Side, o.Size)
}
