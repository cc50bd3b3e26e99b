package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeframe converts strings such as "30s", "5m", "4h", "1d" or "1w" into a duration.
func ParseTimeframe(timeframe string) (time.Duration, error) {
	tf := strings.TrimSpace(strings.ToLower(timeframe))
	if len(tf) < 2 {
		return 0, fmt.Errorf("ParseTimeframe: %w: %q", ErrInvalidTimeframe, timeframe)
	}

	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("ParseTimeframe: %w: %q", ErrInvalidTimeframe, timeframe)
	}

	var unit time.Duration
	switch tf[len(tf)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("ParseTimeframe: %w: unknown unit in %q", ErrInvalidTimeframe, timeframe)
	}

	return time.Duration(n) * unit, nil
}
