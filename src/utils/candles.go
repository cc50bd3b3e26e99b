package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/eventmodels"
)

// SortCandles drops duplicate timestamps, keeping the last one seen, and sorts by time.
// Gaps wider than period are logged.
func SortCandles(candles []*models.Bar, period time.Duration) []*models.Bar {
	xValues := map[time.Time]*models.Bar{}
	for _, candle := range candles {
		xValues[candle.Timestamp] = candle
	}

	candlesNoDuplicates := make([]*models.Bar, 0, len(xValues))
	for _, candle := range xValues {
		candlesNoDuplicates = append(candlesNoDuplicates, candle)
	}

	sort.Slice(candlesNoDuplicates, func(i, j int) bool {
		return candlesNoDuplicates[i].Timestamp.Before(candlesNoDuplicates[j].Timestamp)
	})

	if period > 0 {
		for i := 0; i < len(candlesNoDuplicates)-1; i++ {
			if candlesNoDuplicates[i].Timestamp.Add(period).Before(candlesNoDuplicates[i+1].Timestamp) {
				log.Debugf("Gap in data between %v and %v", candlesNoDuplicates[i].Timestamp, candlesNoDuplicates[i+1].Timestamp)
			}
		}
	}

	return candlesNoDuplicates
}

func ImportCandlesFromCsv(path string) ([]*models.Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ImportCandlesFromCsv: failed to open %s: %w", path, err)
	}
	defer file.Close()

	var dtos []*eventmodels.CsvCandleDTO
	if err := gocsv.UnmarshalFile(file, &dtos); err != nil {
		return nil, fmt.Errorf("ImportCandlesFromCsv: failed to unmarshal %s: %w", path, err)
	}

	bars := make([]*models.Bar, 0, len(dtos))
	for i, dto := range dtos {
		bar, err := dto.ToModel()
		if err != nil {
			return nil, fmt.Errorf("ImportCandlesFromCsv: row %d: %w", i+1, err)
		}

		bars = append(bars, bar)
	}

	log.Infof("imported %d candles from %s", len(bars), path)

	return bars, nil
}

func createCsvFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.ModePerm)
}

func ExportTradesToCsv(trades []models.Trade, path string) error {
	file, err := createCsvFile(path)
	if err != nil {
		return fmt.Errorf("ExportTradesToCsv: %w", err)
	}
	defer file.Close()

	dtos := make([]*eventmodels.CsvTradeDTO, 0, len(trades))
	for _, trade := range trades {
		dtos = append(dtos, eventmodels.NewCsvTradeDTO(trade))
	}

	if err := gocsv.MarshalFile(&dtos, file); err != nil {
		return fmt.Errorf("ExportTradesToCsv: failed to marshal: %w", err)
	}

	return nil
}

func ExportEquityCurveToCsv(curve []models.EquityPlotRecord, path string) error {
	file, err := createCsvFile(path)
	if err != nil {
		return fmt.Errorf("ExportEquityCurveToCsv: %w", err)
	}
	defer file.Close()

	dtos := make([]*eventmodels.CsvEquityDTO, 0, len(curve))
	for _, record := range curve {
		dtos = append(dtos, eventmodels.NewCsvEquityDTO(record))
	}

	if err := gocsv.MarshalFile(&dtos, file); err != nil {
		return fmt.Errorf("ExportEquityCurveToCsv: failed to marshal: %w", err)
	}

	return nil
}
