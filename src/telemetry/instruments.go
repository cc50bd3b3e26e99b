package telemetry

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jiaming2012/strategy-engine"

func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// EngineMetrics holds the instruments shared by the replay and live drivers. Instruments are
// resolved against the global meter provider, which is a no-op until SetupOTelSDK runs.
type EngineMetrics struct {
	barsProcessed  metric.Int64Counter
	ordersExecuted metric.Int64Counter
	sessionErrors  metric.Int64Counter
	tradesClosed   metric.Int64Counter
	equity         metric.Float64Histogram
}

func NewEngineMetrics() *EngineMetrics {
	meter := otel.Meter(instrumentationName)
	m := &EngineMetrics{}

	var err error
	if m.barsProcessed, err = meter.Int64Counter("engine.bars_processed", metric.WithDescription("Bars fed through the portfolio engine")); err != nil {
		log.Warnf("NewEngineMetrics: bars_processed: %v", err)
	}

	if m.ordersExecuted, err = meter.Int64Counter("engine.orders_executed", metric.WithDescription("Orders accepted by the portfolio engine")); err != nil {
		log.Warnf("NewEngineMetrics: orders_executed: %v", err)
	}

	if m.sessionErrors, err = meter.Int64Counter("engine.session_errors", metric.WithDescription("Errors raised while processing live bars")); err != nil {
		log.Warnf("NewEngineMetrics: session_errors: %v", err)
	}

	if m.tradesClosed, err = meter.Int64Counter("engine.trades_closed", metric.WithDescription("Round trips closed")); err != nil {
		log.Warnf("NewEngineMetrics: trades_closed: %v", err)
	}

	if m.equity, err = meter.Float64Histogram("engine.equity", metric.WithDescription("Account equity after mark to market")); err != nil {
		log.Warnf("NewEngineMetrics: equity: %v", err)
	}

	return m
}

func symbolAttr(symbol string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("symbol", symbol))
}

func (m *EngineMetrics) BarProcessed(ctx context.Context, symbol string, equity float64) {
	if m == nil {
		return
	}

	if m.barsProcessed != nil {
		m.barsProcessed.Add(ctx, 1, symbolAttr(symbol))
	}

	if m.equity != nil {
		m.equity.Record(ctx, equity, symbolAttr(symbol))
	}
}

func (m *EngineMetrics) OrderExecuted(ctx context.Context, symbol string) {
	if m == nil || m.ordersExecuted == nil {
		return
	}

	m.ordersExecuted.Add(ctx, 1, symbolAttr(symbol))
}

func (m *EngineMetrics) SessionError(ctx context.Context, symbol string) {
	if m == nil || m.sessionErrors == nil {
		return
	}

	m.sessionErrors.Add(ctx, 1, symbolAttr(symbol))
}

func (m *EngineMetrics) TradesClosed(ctx context.Context, symbol string, n int) {
	if m == nil || m.tradesClosed == nil || n <= 0 {
		return
	}

	m.tradesClosed.Add(ctx, int64(n), symbolAttr(symbol))
}
