package models

import "fmt"

type OrderSide string

const (
	OrderSideLong  OrderSide = "long"
	OrderSideShort OrderSide = "short"
	OrderSideFlat  OrderSide = "flat"
)

func (s OrderSide) Validate() error {
	switch s {
	case OrderSideLong, OrderSideShort, OrderSideFlat:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrderSide, string(s))
	}
}

func (s OrderSide) Direction() float64 {
	switch s {
	case OrderSideLong:
		return 1
	case OrderSideShort:
		return -1
	default:
		return 0
	}
}

func sideFromDirection(direction float64) OrderSide {
	if direction > 0 {
		return OrderSideLong
	} else if direction < 0 {
		return OrderSideShort
	}

	return OrderSideFlat
}
