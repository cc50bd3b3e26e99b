package models

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// BacktesterCandleRepository is an in-memory, time-ordered bar feed with a replay cursor.
type BacktesterCandleRepository struct {
	symbol   string
	period   time.Duration
	candles  []*Bar
	position int
}

func (r *BacktesterCandleRepository) GetSymbol() string {
	return r.symbol
}

func (r *BacktesterCandleRepository) GetPeriod() time.Duration {
	return r.period
}

func (r *BacktesterCandleRepository) Len() int {
	return len(r.candles)
}

func (r *BacktesterCandleRepository) FetchRange(startTime, endTime time.Time) ([]*Bar, error) {
	if !endTime.IsZero() && endTime.Before(startTime) {
		return nil, fmt.Errorf("FetchRange: end time %v is before start time %v", endTime, startTime)
	}

	var candles []*Bar
	for _, candle := range r.candles {
		if candle.Timestamp.Before(startTime) {
			continue
		}

		if !endTime.IsZero() && !candle.Timestamp.Before(endTime) {
			continue
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

func (r *BacktesterCandleRepository) GetCurrentCandle() *Bar {
	if r.position >= len(r.candles) {
		return nil
	}

	return r.candles[r.position]
}

// Update advances the cursor to the latest candle whose timestamp is <= currentTime and
// returns it, or nil if the cursor did not move.
func (r *BacktesterCandleRepository) Update(currentTime time.Time) (*Bar, error) {
	if r.position >= len(r.candles) {
		return nil, fmt.Errorf("no more candles")
	}

	var newCandle *Bar
	for {
		if r.position >= len(r.candles)-1 {
			break
		}

		nextCandleTimestamp := r.candles[r.position+1].Timestamp
		if currentTime.Equal(nextCandleTimestamp) || currentTime.After(nextCandleTimestamp) {
			r.position++
			newCandle = r.GetCurrentCandle()
		} else {
			break
		}
	}

	return newCandle, nil
}

func (r *BacktesterCandleRepository) Reset() {
	r.position = 0
}

// NewBacktesterCandleRepository sorts candles by timestamp and drops duplicate timestamps,
// keeping the first occurrence.
func NewBacktesterCandleRepository(symbol string, period time.Duration, candles []*Bar) *BacktesterCandleRepository {
	sorted := make([]*Bar, 0, len(candles))
	for _, c := range candles {
		if c != nil {
			sorted = append(sorted, c)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	deduped := make([]*Bar, 0, len(sorted))
	for _, c := range sorted {
		if len(deduped) > 0 && deduped[len(deduped)-1].Timestamp.Equal(c.Timestamp) {
			log.Warnf("NewBacktesterCandleRepository: dropping duplicate %s candle at %v", symbol, c.Timestamp)
			continue
		}

		deduped = append(deduped, c)
	}

	return &BacktesterCandleRepository{
		symbol:   symbol,
		period:   period,
		candles:  deduped,
		position: 0,
	}
}
