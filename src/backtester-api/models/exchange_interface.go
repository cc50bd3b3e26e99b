package models

import "context"

// IExchange is the live market data source. Implementations that hold connections may also
// implement io.Closer; sessions close them on stop.
type IExchange interface {
	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
	GetLatestBar(ctx context.Context, symbol string, timeframe string) (*Bar, error)
}
