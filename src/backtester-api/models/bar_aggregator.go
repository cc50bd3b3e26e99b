package models

import (
	"fmt"
	"sync"
	"time"
)

// BarAggregator folds price ticks into fixed-interval OHLCV bars. Bar boundaries are aligned
// to the Unix epoch. A completed bar is returned exactly once, by the first tick that lands in
// a later interval.
type BarAggregator struct {
	timeframe   string
	interval    time.Duration
	currentBar  *Bar
	lastBarTime *time.Time
	mutex       sync.Mutex
}

func NewBarAggregator(timeframe string) (*BarAggregator, error) {
	interval, err := ParseTimeframe(timeframe)
	if err != nil {
		return nil, fmt.Errorf("NewBarAggregator: %w", err)
	}

	if interval < time.Second {
		return nil, fmt.Errorf("NewBarAggregator: %w: interval must be at least 1s", ErrInvalidTimeframe)
	}

	return &BarAggregator{
		timeframe: timeframe,
		interval:  interval,
	}, nil
}

func (a *BarAggregator) GetTimeframe() string {
	return a.timeframe
}

func (a *BarAggregator) GetInterval() time.Duration {
	return a.interval
}

func (a *BarAggregator) barStart(timestamp time.Time) time.Time {
	seconds := int64(a.interval / time.Second)
	ts := timestamp.Unix()

	start := ts / seconds * seconds
	if ts < 0 && ts%seconds != 0 {
		start -= seconds
	}

	return time.Unix(start, 0).UTC()
}

// AddPrice folds one tick into the in-progress bar. Ticks that are older than the in-progress
// bar's start are folded into it rather than reopening a closed interval.
func (a *BarAggregator) AddPrice(price float64, timestamp time.Time, volume float64) *Bar {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	start := a.barStart(timestamp)

	if a.currentBar == nil || start.After(a.currentBar.Timestamp) {
		completed := a.currentBar

		a.currentBar = &Bar{
			Timestamp: start,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    volume,
		}
		a.lastBarTime = &start

		return completed
	}

	if price > a.currentBar.High {
		a.currentBar.High = price
	}

	if price < a.currentBar.Low {
		a.currentBar.Low = price
	}

	a.currentBar.Close = price
	a.currentBar.Volume += volume

	return nil
}

// CurrentBar returns a copy of the in-progress bar, or nil before the first tick.
func (a *BarAggregator) CurrentBar() *Bar {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.currentBar == nil {
		return nil
	}

	bar := *a.currentBar
	return &bar
}

// Flush returns the in-progress bar and clears it. Used at the end of a finite stream.
func (a *BarAggregator) Flush() *Bar {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	bar := a.currentBar
	a.currentBar = nil

	return bar
}

func (a *BarAggregator) LastBarTime() *time.Time {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.lastBarTime == nil {
		return nil
	}

	t := *a.lastBarTime
	return &t
}
