package models

import "time"

// PerformanceStats summarises a replay.
type PerformanceStats struct {
	InitialEquity float64 `json:"initial_equity"`
	FinalEquity   float64 `json:"final_equity"`
	TotalReturn   float64 `json:"total_return"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	NumTrades     int     `json:"num_trades"`
	WinRate       float64 `json:"win_rate"`
	AvgTradePnL   float64 `json:"avg_trade_pnl"`
	ProfitFactor  float64 `json:"profit_factor"`
	SharpeRatio   float64 `json:"sharpe_ratio"`
	Volatility    float64 `json:"volatility"`
	TotalFees     float64 `json:"total_fees"`
}

type BacktestResult struct {
	Symbol         string             `json:"symbol"`
	StartTime      time.Time          `json:"start_time"`
	EndTime        time.Time          `json:"end_time"`
	BarsCount      int                `json:"bars_count"`
	OrdersExecuted int                `json:"orders_executed"`
	Stats          PerformanceStats   `json:"stats"`
	Trades         []Trade            `json:"trades"`
	EquityCurve    []EquityPlotRecord `json:"equity_curve"`
}
