package models

import "time"

// PositionSnapshot exposes the simulator's private position bookkeeping.
type PositionSnapshot struct {
	Size                 float64    `json:"size"`
	Units                float64    `json:"units"`
	EntryPrice           *float64   `json:"entry_price"`
	OpenTime             *time.Time `json:"open_time"`
	EntryEquity          float64    `json:"entry_equity"`
	TotalEntryFees       float64    `json:"total_entry_fees"`
	TotalExitFees        float64    `json:"total_exit_fees"`
	HighestEquity        float64    `json:"highest_equity"`
	EquityBeforePosition float64    `json:"equity_before_position"`
	IsBankrupt           bool       `json:"is_bankrupt"`
}
