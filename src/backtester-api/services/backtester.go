package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/telemetry"
)

// Backtester replays a finite bar feed through a strategy and a portfolio simulator. It is
// single threaded and deterministic.
type Backtester struct {
	feed      models.IBacktesterDataFeed
	strategy  models.IStrategy
	portfolio *models.PortfolioSimulator
	clock     *models.Clock
	metrics   *telemetry.EngineMetrics
}

func NewBacktester(feed models.IBacktesterDataFeed, strategy models.IStrategy, portfolio *models.PortfolioSimulator, clock *models.Clock, metrics *telemetry.EngineMetrics) *Backtester {
	return &Backtester{
		feed:      feed,
		strategy:  strategy,
		portfolio: portfolio,
		clock:     clock,
		metrics:   metrics,
	}
}

func (b *Backtester) GetPortfolio() *models.PortfolioSimulator {
	return b.portfolio
}

// Run replays every bar inside the clock window. Any strategy error aborts the run.
func (b *Backtester) Run(ctx context.Context) (result *models.BacktestResult, err error) {
	symbol := b.feed.GetSymbol()

	ctx, span := telemetry.Tracer().Start(ctx, "Backtester.Run")
	span.SetAttributes(attribute.String("symbol", symbol))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	bars, err := b.feed.FetchRange(b.clock.StartTime, b.clock.EndTime)
	if err != nil {
		return nil, fmt.Errorf("Backtester.Run: failed to fetch bars: %w", err)
	}

	repo := models.NewBacktesterCandleRepository(symbol, b.feed.GetPeriod(), bars)
	candles, err := repo.FetchRange(b.clock.StartTime, b.clock.EndTime)
	if err != nil {
		return nil, fmt.Errorf("Backtester.Run: %w", err)
	}

	log.Infof("Backtester.Run: replaying %d %s bars", len(candles), symbol)

	b.strategy.Reset()

	tradesSeen := 0
	ordersExecuted := 0
	for i, candle := range candles {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("Backtester.Run: cancelled at bar %d: %w", i, err)
			}
		}

		bar := *candle
		b.clock.AdvanceTo(bar.Timestamp)

		order, err := b.strategy.OnBar(bar, b.portfolio.GetAccountSnapshot())
		if err != nil {
			return nil, fmt.Errorf("Backtester.Run: strategy failed on bar %v: %w", bar.Timestamp, err)
		}

		if order != nil {
			before := b.portfolio.GetPositionSnapshot()
			if err := b.portfolio.ProcessOrder(order, bar); err != nil {
				return nil, fmt.Errorf("Backtester.Run: order rejected on bar %v: %w", bar.Timestamp, err)
			}

			if positionChanged(before, b.portfolio.GetPositionSnapshot()) {
				ordersExecuted++
				b.metrics.OrderExecuted(ctx, symbol)
			}
		}

		equity := b.portfolio.MarkToMarket(bar)
		b.metrics.BarProcessed(ctx, symbol, equity)

		if n := len(b.portfolio.GetTradesSnapshot(0)); n > tradesSeen {
			b.metrics.TradesClosed(ctx, symbol, n-tradesSeen)
			tradesSeen = n
		}
	}

	trades := b.portfolio.GetTradesSnapshot(0)
	curve := b.portfolio.GetEquityCurve()

	result = &models.BacktestResult{
		Symbol:         symbol,
		BarsCount:      len(candles),
		OrdersExecuted: ordersExecuted,
		Stats:          ComputePerformance(b.portfolio.GetInitialEquity(), trades, curve),
		Trades:         trades,
		EquityCurve:    curve,
	}

	if len(candles) > 0 {
		result.StartTime = candles[0].Timestamp
		result.EndTime = candles[len(candles)-1].Timestamp
	}

	span.SetAttributes(
		attribute.Int("bars", result.BarsCount),
		attribute.Int("trades", result.Stats.NumTrades),
		attribute.Float64("total_return", result.Stats.TotalReturn),
	)

	log.Infof("Backtester.Run: %s finished, return %.2f%%, max drawdown %.2f%%, %d trades", symbol, result.Stats.TotalReturn*100, result.Stats.MaxDrawdown*100, result.Stats.NumTrades)

	return result, nil
}

// positionChanged reports whether an order moved the account. Orders matching the current
// target and orders ignored by a bankrupt account leave the snapshot untouched.
func positionChanged(before, after models.PositionSnapshot) bool {
	return before.Size != after.Size || before.Units != after.Units || before.IsBankrupt != after.IsBankrupt
}
