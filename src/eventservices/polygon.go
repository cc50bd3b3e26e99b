package eventservices

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	polygonmodels "github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/eventmodels"
)

func NewPolygonClient(apiKey string, hc *http.Client) *polygon.Client {
	if hc == nil {
		return polygon.New(apiKey)
	}

	return polygon.NewWithClient(apiKey, hc)
}

func listPolygonAggs(ctx context.Context, client *polygon.Client, symbol string, period time.Duration, from, to time.Time) ([]*models.Bar, error) {
	timespan, err := eventmodels.NewPolygonTimespan(period)
	if err != nil {
		return nil, fmt.Errorf("listPolygonAggs: %w", err)
	}

	params := polygonmodels.ListAggsParams{
		Ticker:     symbol,
		Multiplier: timespan.Multiplier,
		Timespan:   polygonmodels.Timespan(timespan.Unit),
		From:       polygonmodels.Millis(from),
		To:         polygonmodels.Millis(to),
	}.WithOrder(polygonmodels.Asc).WithAdjusted(true)

	log.Debugf("fetching %s aggs for %s from %v to %v", timespan, symbol, from, to)

	iter := client.ListAggs(ctx, params)

	var bars []*models.Bar
	for iter.Next() {
		item := iter.Item()
		bar := models.NewBar(time.Time(item.Timestamp).UTC(), item.Open, item.High, item.Low, item.Close, item.Volume)
		bars = append(bars, &bar)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listPolygonAggs: failed to fetch aggs for %s: %w", symbol, err)
	}

	return bars, nil
}

// PolygonDataFeed serves historical bars from the polygon aggregates endpoint.
type PolygonDataFeed struct {
	client *polygon.Client
	symbol string
	period time.Duration
	ctx    context.Context
	now    func() time.Time
}

func (f *PolygonDataFeed) GetSymbol() string {
	return f.symbol
}

func (f *PolygonDataFeed) GetPeriod() time.Duration {
	return f.period
}

// FetchRange returns bars in [start, end). A zero end means now.
func (f *PolygonDataFeed) FetchRange(start, end time.Time) ([]*models.Bar, error) {
	tracer := otel.Tracer("PolygonDataFeed")
	ctx, span := tracer.Start(f.ctx, "PolygonDataFeed.FetchRange", trace.WithAttributes(
		attribute.String("symbol", f.symbol),
		attribute.String("period", f.period.String()),
	))
	defer span.End()

	if end.IsZero() {
		end = f.now()
	}

	if end.Before(start) {
		return nil, fmt.Errorf("PolygonDataFeed.FetchRange: end %v is before start %v", end, start)
	}

	bars, err := listPolygonAggs(ctx, f.client, f.symbol, f.period, start, end)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("PolygonDataFeed.FetchRange: %w", err)
	}

	filtered := make([]*models.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp.Before(start) || !b.Timestamp.Before(end) {
			continue
		}

		filtered = append(filtered, b)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	span.SetAttributes(attribute.Int("bars", len(filtered)))

	return filtered, nil
}

func NewPolygonDataFeed(ctx context.Context, client *polygon.Client, symbol string, period time.Duration) *PolygonDataFeed {
	return &PolygonDataFeed{
		client: client,
		symbol: symbol,
		period: period,
		ctx:    ctx,
		now:    time.Now,
	}
}

// PolygonExchange is a polling exchange backed by the polygon REST api.
type PolygonExchange struct {
	client *polygon.Client
	now    func() time.Time
}

func (e *PolygonExchange) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	params := &polygonmodels.GetLastTradeParams{
		Ticker: symbol,
	}

	res, err := e.client.GetLastTrade(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("PolygonExchange.GetLatestPrice: failed to get last trade for %s: %w", symbol, err)
	}

	if res.Results.Price <= 0 {
		return 0, fmt.Errorf("PolygonExchange.GetLatestPrice: %w: %s", models.ErrNoPriceAvailable, symbol)
	}

	return res.Results.Price, nil
}

// GetLatestBar returns the most recent bar at the given timeframe, or nil if polygon has none
// in the lookback window.
func (e *PolygonExchange) GetLatestBar(ctx context.Context, symbol string, timeframe string) (*models.Bar, error) {
	period, err := models.ParseTimeframe(timeframe)
	if err != nil {
		return nil, fmt.Errorf("PolygonExchange.GetLatestBar: %w", err)
	}

	to := e.now()
	from := to.Add(-3 * period)
	if period < 24*time.Hour {
		// weekends and holidays
		from = to.Add(-4 * 24 * time.Hour)
	}

	bars, err := listPolygonAggs(ctx, e.client, symbol, period, from, to)
	if err != nil {
		return nil, fmt.Errorf("PolygonExchange.GetLatestBar: %w", err)
	}

	if len(bars) == 0 {
		return nil, nil
	}

	return bars[len(bars)-1], nil
}

func NewPolygonExchange(client *polygon.Client) *PolygonExchange {
	return &PolygonExchange{
		client: client,
		now:    time.Now,
	}
}
