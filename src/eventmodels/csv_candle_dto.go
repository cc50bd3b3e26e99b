package eventmodels

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

var csvTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type CsvCandleDTO struct {
	Timestamp string  `csv:"time"`
	Open      float64 `csv:"open"`
	High      float64 `csv:"high"`
	Low       float64 `csv:"low"`
	Close     float64 `csv:"close"`
	Volume    float64 `csv:"volume"`
}

// ParseCsvTimestamp accepts RFC3339, a few common date layouts, or unix seconds.
func ParseCsvTimestamp(value string) (time.Time, error) {
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("ParseCsvTimestamp: unrecognized time %q", value)
}

func (c *CsvCandleDTO) ToModel() (*models.Bar, error) {
	t, err := ParseCsvTimestamp(c.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("CsvCandleDTO.ToModel: %w", err)
	}

	bar := models.NewBar(t, c.Open, c.High, c.Low, c.Close, c.Volume)
	return &bar, nil
}

func NewCsvCandleDTO(bar models.Bar) *CsvCandleDTO {
	return &CsvCandleDTO{
		Timestamp: bar.Timestamp.UTC().Format(time.RFC3339),
		Open:      bar.Open,
		High:      bar.High,
		Low:       bar.Low,
		Close:     bar.Close,
		Volume:    bar.Volume,
	}
}
