package models

import "time"

type ExitReason string

const (
	ExitReasonSignal       ExitReason = "signal"
	ExitReasonFlip         ExitReason = "flip"
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonTakeProfit   ExitReason = "take_profit"
	ExitReasonTrailingStop ExitReason = "trailing_stop"
	ExitReasonTimeExit     ExitReason = "time_exit"
	ExitReasonBankruptcy   ExitReason = "bankruptcy"
)

// Trade is a closed round trip. PnL is the account equity after the close minus the equity
// captured when the position was opened, so it includes every partial adjustment's fees and
// realized PnL, not only the final exit leg.
type Trade struct {
	OpenTime   time.Time  `json:"open_time"`
	CloseTime  time.Time  `json:"close_time"`
	Side       OrderSide  `json:"side"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Size       float64    `json:"size"`
	PnL        float64    `json:"pnl"`
	Fees       float64    `json:"fees"`
	ExitReason ExitReason `json:"exit_reason"`
}

func (t Trade) IsWin() bool {
	return t.PnL > 0
}

func (t Trade) HoldDuration() time.Duration {
	return t.CloseTime.Sub(t.OpenTime)
}
