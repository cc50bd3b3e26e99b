package models

import "time"

type IBacktesterDataFeed interface {
	GetSymbol() string
	GetPeriod() time.Duration
	FetchRange(startTime, endTime time.Time) ([]*Bar, error)
}
