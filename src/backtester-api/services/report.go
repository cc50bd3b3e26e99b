package services

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

// RenderBacktestReport writes the performance summary and the most recent trades as tables.
func RenderBacktestReport(w io.Writer, result *models.BacktestResult, maxTrades int) {
	stats := result.Stats

	summary := tablewriter.NewWriter(w)
	summary.SetHeader([]string{"Metric", "Value"})
	summary.SetAlignment(tablewriter.ALIGN_RIGHT)
	summary.Append([]string{"Symbol", result.Symbol})
	summary.Append([]string{"Bars", fmt.Sprintf("%d", result.BarsCount)})
	summary.Append([]string{"Orders", fmt.Sprintf("%d", result.OrdersExecuted)})
	summary.Append([]string{"Period", fmt.Sprintf("%s - %s", result.StartTime.Format("2006-01-02 15:04"), result.EndTime.Format("2006-01-02 15:04"))})
	summary.Append([]string{"Initial equity", fmt.Sprintf("%.2f", stats.InitialEquity)})
	summary.Append([]string{"Final equity", fmt.Sprintf("%.2f", stats.FinalEquity)})
	summary.Append([]string{"Total return", fmt.Sprintf("%.2f%%", stats.TotalReturn*100)})
	summary.Append([]string{"Max drawdown", fmt.Sprintf("%.2f%%", stats.MaxDrawdown*100)})
	summary.Append([]string{"Trades", fmt.Sprintf("%d", stats.NumTrades)})
	summary.Append([]string{"Win rate", fmt.Sprintf("%.2f%%", stats.WinRate*100)})
	summary.Append([]string{"Avg trade PnL", fmt.Sprintf("%.2f", stats.AvgTradePnL)})
	summary.Append([]string{"Profit factor", fmt.Sprintf("%.2f", stats.ProfitFactor)})
	summary.Append([]string{"Sharpe (per bar)", fmt.Sprintf("%.4f", stats.SharpeRatio)})
	summary.Append([]string{"Total fees", fmt.Sprintf("%.2f", stats.TotalFees)})
	summary.Render()

	trades := result.Trades
	if len(trades) == 0 {
		return
	}

	if maxTrades > 0 && len(trades) > maxTrades {
		trades = trades[len(trades)-maxTrades:]
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Opened", "Closed", "Side", "Size", "Entry", "Exit", "PnL", "Fees", "Reason"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	for _, trade := range trades {
		table.Append([]string{
			trade.OpenTime.Format("2006-01-02 15:04"),
			trade.CloseTime.Format("2006-01-02 15:04"),
			string(trade.Side),
			fmt.Sprintf("%.2f", trade.Size),
			fmt.Sprintf("%.4f", trade.EntryPrice),
			fmt.Sprintf("%.4f", trade.ExitPrice),
			fmt.Sprintf("%.2f", trade.PnL),
			fmt.Sprintf("%.2f", trade.Fees),
			string(trade.ExitReason),
		})
	}
	table.Render()
}
