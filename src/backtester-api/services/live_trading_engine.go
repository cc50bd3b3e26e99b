package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/telemetry"
)

type LiveTradingEngineCallbacks struct {
	OnNewBar        func(bar models.Bar)
	OnOrderExecuted func(order *models.Order, account models.AccountState)
	OnTradeClosed   func(trade models.Trade)
	// OnError receives bar processing errors. When set, errors are swallowed and the loop
	// keeps running; when nil the first error stops the loop.
	OnError func(err error)
}

// LiveTradingEngine polls an exchange for prices, aggregates them into bars and runs each
// completed bar through the strategy and portfolio simulator.
type LiveTradingEngine struct {
	symbol       string
	exchange     models.IExchange
	strategy     models.IStrategy
	portfolio    *models.PortfolioSimulator
	aggregator   *models.BarAggregator
	pollInterval time.Duration
	callbacks    LiveTradingEngineCallbacks
	metrics      *telemetry.EngineMetrics
	now          func() time.Time

	isRunning atomic.Bool
	stopCh    chan struct{}
	stopOnce  sync.Once

	mutex      sync.Mutex
	result     models.LiveResult
	tradesSeen int
}

func NewLiveTradingEngine(symbol string, exchange models.IExchange, strategy models.IStrategy, portfolio *models.PortfolioSimulator, aggregator *models.BarAggregator, pollInterval time.Duration, callbacks LiveTradingEngineCallbacks, metrics *telemetry.EngineMetrics) *LiveTradingEngine {
	return &LiveTradingEngine{
		symbol:       symbol,
		exchange:     exchange,
		strategy:     strategy,
		portfolio:    portfolio,
		aggregator:   aggregator,
		pollInterval: pollInterval,
		callbacks:    callbacks,
		metrics:      metrics,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

func (e *LiveTradingEngine) IsRunning() bool {
	return e.isRunning.Load()
}

func (e *LiveTradingEngine) GetResult() models.LiveResult {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.result.Copy()
}

// Stop signals the loop to exit after the current iteration. It does not wait.
func (e *LiveTradingEngine) Stop() {
	e.stopOnce.Do(func() {
		e.isRunning.Store(false)
		close(e.stopCh)

		e.mutex.Lock()
		if e.result.EndTime == nil {
			end := e.now()
			e.result.EndTime = &end
		}
		e.mutex.Unlock()
	})
}

// RunForever polls until Stop is called, ctx is cancelled, or an unhandled error occurs.
func (e *LiveTradingEngine) RunForever(ctx context.Context) error {
	select {
	case <-e.stopCh:
		return nil
	default:
	}

	e.mutex.Lock()
	e.result = models.LiveResult{StartTime: e.now()}
	e.mutex.Unlock()

	e.isRunning.Store(true)
	defer e.isRunning.Store(false)

	log.Infof("LiveTradingEngine: starting %s on %s bars, polling every %v", e.symbol, e.aggregator.GetTimeframe(), e.pollInterval)

	e.strategy.Reset()
	e.warmup(ctx)

	for e.isRunning.Load() {
		if err := e.poll(ctx); err != nil {
			e.markEnded()
			return err
		}

		select {
		case <-ctx.Done():
			log.Infof("LiveTradingEngine: %s context done: %v", e.symbol, ctx.Err())
			e.Stop()
			return nil
		case <-e.stopCh:
			log.Infof("LiveTradingEngine: %s stopped", e.symbol)
			return nil
		case <-time.After(e.pollInterval):
		}
	}

	return nil
}

func (e *LiveTradingEngine) markEnded() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.result.EndTime == nil {
		end := e.now()
		e.result.EndTime = &end
	}
}

func (e *LiveTradingEngine) warmup(ctx context.Context) {
	bar, err := e.exchange.GetLatestBar(ctx, e.symbol, e.aggregator.GetTimeframe())
	if err != nil {
		log.Warnf("LiveTradingEngine: warmup for %s failed: %v", e.symbol, err)
		return
	}

	if bar == nil {
		return
	}

	equity := e.portfolio.MarkToMarket(*bar)
	log.Debugf("LiveTradingEngine: warmed up %s at %.4f, equity %.2f", e.symbol, bar.Close, equity)
}

func (e *LiveTradingEngine) poll(ctx context.Context) error {
	price, err := e.exchange.GetLatestPrice(ctx, e.symbol)
	if err != nil {
		// a fetch cut short by Stop or cancellation is a graceful exit
		if ctx.Err() != nil || !e.isRunning.Load() {
			log.Debugf("LiveTradingEngine: %s price fetch interrupted by stop: %v", e.symbol, err)
			return nil
		}

		// no tick yet, try again next poll
		if errors.Is(err, models.ErrNoPriceAvailable) {
			log.Debugf("LiveTradingEngine: no price for %s yet: %v", e.symbol, err)
			return nil
		}

		return e.handleError(ctx, fmt.Errorf("failed to fetch price for %s: %w", e.symbol, err))
	}

	bar := e.aggregator.AddPrice(price, e.now(), 0)
	if bar == nil {
		return nil
	}

	return e.processBar(ctx, *bar)
}

// processBar runs one completed bar through the same sequence as the replay driver.
func (e *LiveTradingEngine) processBar(ctx context.Context, bar models.Bar) error {
	ctx, span := telemetry.Tracer().Start(ctx, "LiveTradingEngine.processBar")
	span.SetAttributes(attribute.String("symbol", e.symbol), attribute.Float64("close", bar.Close))
	defer span.End()

	e.mutex.Lock()
	e.result.BarsProcessed++
	e.mutex.Unlock()

	equity := e.portfolio.MarkToMarket(bar)
	e.metrics.BarProcessed(ctx, e.symbol, equity)

	if e.callbacks.OnNewBar != nil {
		e.callbacks.OnNewBar(bar)
	}

	order, err := e.strategy.OnBar(bar, e.portfolio.GetAccountSnapshot())
	if err != nil {
		span.RecordError(err)
		e.publishClosedTrades(ctx)
		return e.handleError(ctx, fmt.Errorf("strategy failed on bar %v: %w", bar.Timestamp, err))
	}

	if order != nil {
		before := e.portfolio.GetPositionSnapshot()
		if err := e.portfolio.ProcessOrder(order, bar); err != nil {
			span.RecordError(err)
			e.publishClosedTrades(ctx)
			return e.handleError(ctx, fmt.Errorf("order rejected on bar %v: %w", bar.Timestamp, err))
		}

		if !positionChanged(before, e.portfolio.GetPositionSnapshot()) {
			log.Debugf("LiveTradingEngine: %s order %s left the position unchanged", e.symbol, order)
			e.publishClosedTrades(ctx)
			return nil
		}

		e.mutex.Lock()
		e.result.OrdersExecuted++
		e.mutex.Unlock()

		e.metrics.OrderExecuted(ctx, e.symbol)

		if e.callbacks.OnOrderExecuted != nil {
			e.callbacks.OnOrderExecuted(order, e.portfolio.GetAccountSnapshot())
		}
	}

	e.publishClosedTrades(ctx)
	return nil
}

func (e *LiveTradingEngine) publishClosedTrades(ctx context.Context) {
	trades := e.portfolio.GetTradesSnapshot(0)

	e.mutex.Lock()
	seen := e.tradesSeen
	if len(trades) < seen {
		// the account was reset underneath us
		seen = 0
	}
	e.tradesSeen = len(trades)
	e.mutex.Unlock()

	if len(trades) <= seen {
		return
	}

	e.metrics.TradesClosed(ctx, e.symbol, len(trades)-seen)

	if e.callbacks.OnTradeClosed != nil {
		for _, trade := range trades[seen:] {
			e.callbacks.OnTradeClosed(trade)
		}
	}
}

func (e *LiveTradingEngine) handleError(ctx context.Context, err error) error {
	e.mutex.Lock()
	e.result.Errors = append(e.result.Errors, err.Error())
	e.mutex.Unlock()

	e.metrics.SessionError(ctx, e.symbol)
	log.Errorf("LiveTradingEngine: %v", err)

	if e.callbacks.OnError != nil {
		e.callbacks.OnError(err)
		return nil
	}

	return err
}
