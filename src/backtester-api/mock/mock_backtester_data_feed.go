package mock

import (
	"time"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

type MockBacktesterDataFeed struct {
	symbol string
	period time.Duration
	bars   []*models.Bar
}

func (feed *MockBacktesterDataFeed) FetchRange(startTime, endTime time.Time) ([]*models.Bar, error) {
	return feed.bars, nil
}

func (feed *MockBacktesterDataFeed) GetSymbol() string {
	return feed.symbol
}

func (feed *MockBacktesterDataFeed) GetPeriod() time.Duration {
	return feed.period
}

func NewMockBacktesterDataFeed(symbol string, period time.Duration, timestamps []time.Time, closes []float64) *MockBacktesterDataFeed {
	if len(timestamps) != len(closes) {
		panic("timestamps and closes must have the same length")
	}

	bars := make([]*models.Bar, len(closes))
	for i := 0; i < len(closes); i++ {
		bars[i] = &models.Bar{
			Timestamp: timestamps[i],
			Open:      closes[i],
			High:      closes[i],
			Low:       closes[i],
			Close:     closes[i],
		}
	}

	return &MockBacktesterDataFeed{
		symbol: symbol,
		period: period,
		bars:   bars,
	}
}
