package eventmodels

import (
	"time"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

type CsvTradeDTO struct {
	OpenTime   string  `csv:"open_time"`
	CloseTime  string  `csv:"close_time"`
	Side       string  `csv:"side"`
	EntryPrice float64 `csv:"entry_price"`
	ExitPrice  float64 `csv:"exit_price"`
	Size       float64 `csv:"size"`
	PnL        float64 `csv:"pnl"`
	Fees       float64 `csv:"fees"`
	ExitReason string  `csv:"exit_reason"`
}

func NewCsvTradeDTO(trade models.Trade) *CsvTradeDTO {
	return &CsvTradeDTO{
		OpenTime:   trade.OpenTime.UTC().Format(time.RFC3339),
		CloseTime:  trade.CloseTime.UTC().Format(time.RFC3339),
		Side:       string(trade.Side),
		EntryPrice: trade.EntryPrice,
		ExitPrice:  trade.ExitPrice,
		Size:       trade.Size,
		PnL:        trade.PnL,
		Fees:       trade.Fees,
		ExitReason: string(trade.ExitReason),
	}
}

type CsvEquityDTO struct {
	Timestamp string  `csv:"time"`
	Equity    float64 `csv:"equity"`
}

func NewCsvEquityDTO(record models.EquityPlotRecord) *CsvEquityDTO {
	return &CsvEquityDTO{
		Timestamp: record.Timestamp.UTC().Format(time.RFC3339),
		Equity:    record.Equity,
	}
}
