package eventmodels

import (
	"fmt"
	"time"
)

type PolygonTimespan struct {
	Multiplier int
	Unit       PolygonTimespanUnit
}

func (p PolygonTimespan) ToDuration() time.Duration {
	switch p.Unit {
	case PolygonTimespanUnitSecond:
		return time.Duration(p.Multiplier) * time.Second
	case PolygonTimespanUnitMinute:
		return time.Duration(p.Multiplier) * time.Minute
	case PolygonTimespanUnitHour:
		return time.Duration(p.Multiplier) * time.Hour
	case PolygonTimespanUnitDay:
		return time.Duration(p.Multiplier) * 24 * time.Hour
	case PolygonTimespanUnitWeek:
		return time.Duration(p.Multiplier) * 7 * 24 * time.Hour
	default:
		return 0
	}
}

func (p PolygonTimespan) String() string {
	return fmt.Sprintf("%d %s", p.Multiplier, p.Unit)
}

var polygonUnits = []struct {
	unit PolygonTimespanUnit
	size time.Duration
}{
	{PolygonTimespanUnitWeek, 7 * 24 * time.Hour},
	{PolygonTimespanUnitDay, 24 * time.Hour},
	{PolygonTimespanUnitHour, time.Hour},
	{PolygonTimespanUnitMinute, time.Minute},
	{PolygonTimespanUnitSecond, time.Second},
}

// NewPolygonTimespan picks the largest polygon unit that divides period evenly.
func NewPolygonTimespan(period time.Duration) (PolygonTimespan, error) {
	if period < time.Second {
		return PolygonTimespan{}, fmt.Errorf("unsupported polygon timespan: %v", period)
	}

	for _, u := range polygonUnits {
		if period%u.size == 0 {
			return PolygonTimespan{
				Multiplier: int(period / u.size),
				Unit:       u.unit,
			}, nil
		}
	}

	return PolygonTimespan{}, fmt.Errorf("unsupported polygon timespan: %v", period)
}
