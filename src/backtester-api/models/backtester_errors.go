package models

import "fmt"

var (
	ErrInvalidOrderSide       = fmt.Errorf("invalid order side")
	ErrInvalidOrderSize       = fmt.Errorf("invalid order size: must be finite and non-negative")
	ErrFlatOrderSize          = fmt.Errorf("invalid order size: flat orders must have size 0")
	ErrInvalidExitPrice       = fmt.Errorf("invalid forced exit price: must be finite and positive")
	ErrExitPriceOnDirectional = fmt.Errorf("forced exit price is only allowed on flat orders")
	ErrSymbolMismatch         = fmt.Errorf("order symbol does not match account symbol")
	ErrMissingEntryPrice      = fmt.Errorf("entry price is required when position size is non-zero")
	ErrInvalidEquity          = fmt.Errorf("invalid equity: must be finite and non-negative")
	ErrInvalidPortfolioConfig = fmt.Errorf("invalid portfolio config")
	ErrInvalidRiskConfig      = fmt.Errorf("invalid risk config")
	ErrInvalidTimeframe       = fmt.Errorf("invalid timeframe")
	ErrNoPriceAvailable       = fmt.Errorf("no price available")
)
