package services

import (
	"math"

	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

// ComputeMaxDrawdown returns the largest peak-to-trough decline of the curve as a positive
// fraction of the running peak.
func ComputeMaxDrawdown(curve []models.EquityPlotRecord) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].Equity
	maxDrawdown := 0.0
	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak <= 0 {
			continue
		}

		drawdown := (peak - point.Equity) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown
}

// barReturns converts an equity curve into simple per-bar returns.
func barReturns(curve []models.EquityPlotRecord) []float64 {
	var returns []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}

		returns = append(returns, curve[i].Equity/prev-1)
	}

	return returns
}

// ComputePerformance summarises a replay. Sharpe is the un-annualised mean over standard
// deviation of per-bar returns. Profit factor is 0 when there are no losing trades.
func ComputePerformance(initialEquity float64, trades []models.Trade, curve []models.EquityPlotRecord) models.PerformanceStats {
	out := models.PerformanceStats{
		InitialEquity: initialEquity,
		FinalEquity:   initialEquity,
		NumTrades:     len(trades),
		MaxDrawdown:   ComputeMaxDrawdown(curve),
	}

	if len(curve) > 0 {
		out.FinalEquity = curve[len(curve)-1].Equity
	}

	if initialEquity > 0 {
		out.TotalReturn = out.FinalEquity/initialEquity - 1
	}

	if len(trades) > 0 {
		var wins int
		var grossProfit, grossLoss float64
		pnls := make([]float64, 0, len(trades))

		for _, trade := range trades {
			pnls = append(pnls, trade.PnL)
			out.TotalFees += trade.Fees

			if trade.IsWin() {
				wins++
				grossProfit += trade.PnL
			} else {
				grossLoss += -trade.PnL
			}
		}

		out.WinRate = float64(wins) / float64(len(trades))

		if avg, err := stats.Mean(pnls); err == nil {
			out.AvgTradePnL = avg
		}

		if grossLoss > 0 {
			out.ProfitFactor = grossProfit / grossLoss
		}
	}

	returns := barReturns(curve)
	if len(returns) > 1 {
		mean, err := stats.Mean(returns)
		if err != nil {
			log.Warnf("ComputePerformance: mean: %v", err)
			return out
		}

		stddev, err := stats.StandardDeviationSample(returns)
		if err != nil {
			log.Warnf("ComputePerformance: stddev: %v", err)
			return out
		}

		out.Volatility = stddev
		if stddev > 0 && !math.IsNaN(stddev) {
			out.SharpeRatio = mean / stddev
		}
	}

	return out
}
