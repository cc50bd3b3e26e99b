package models

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// AccountState is the strategy-facing view of the account. PositionSize is a signed fraction
// of equity (positive long, negative short) and EntryPrice is set iff PositionSize != 0.
type AccountState struct {
	Symbol       string   `json:"symbol"`
	Equity       float64  `json:"equity"`
	PositionSize float64  `json:"position_size"`
	EntryPrice   *float64 `json:"entry_price"`
}

func NewAccountState(symbol string, equity float64, positionSize float64, entryPrice *float64) (*AccountState, error) {
	if math.IsNaN(equity) || math.IsInf(equity, 0) || equity < 0 {
		return nil, fmt.Errorf("NewAccountState: %w: got %v", ErrInvalidEquity, equity)
	}

	if positionSize != 0 && entryPrice == nil {
		return nil, fmt.Errorf("NewAccountState: %w: position size %v", ErrMissingEntryPrice, positionSize)
	}

	if positionSize == 0 && entryPrice != nil {
		log.Warnf("NewAccountState: %s is flat but carries entry price %.4f: treating as stale", symbol, *entryPrice)
	}

	state := &AccountState{
		Symbol:       symbol,
		Equity:       equity,
		PositionSize: positionSize,
	}

	if entryPrice != nil {
		price := *entryPrice
		state.EntryPrice = &price
	}

	return state, nil
}

func (a AccountState) IsFlat() bool {
	return a.PositionSize == 0
}

// Copy returns a deep copy, so the entry price pointer is never shared with the caller.
func (a AccountState) Copy() AccountState {
	out := a
	if a.EntryPrice != nil {
		price := *a.EntryPrice
		out.EntryPrice = &price
	}

	return out
}
