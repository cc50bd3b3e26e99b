package indicators

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

// BollingerBands tracks a simple moving average of the typical price with bands placed
// StandardDeviation population deviations away.
type BollingerBands struct {
	SmaPeriod         int
	StandardDeviation float64
	typicalPrice      []float64
}

type BollingerBandsStats struct {
	Upper         float64
	Lower         float64
	MovingAverage float64
}

// PercentB is where price sits relative to the bands: 0 at the lower band, 1 at the upper.
func (s BollingerBandsStats) PercentB(price float64) float64 {
	width := s.Upper - s.Lower
	if width == 0 {
		return 0.5
	}

	return (price - s.Lower) / width
}

// Update returns false until SmaPeriod bars have been seen.
func (b *BollingerBands) Update(bar models.Bar) (bool, BollingerBandsStats, error) {
	typicalPrice := (bar.High + bar.Low + bar.Close) / 3.0

	b.typicalPrice = append(b.typicalPrice, typicalPrice)
	if len(b.typicalPrice) > b.SmaPeriod {
		b.typicalPrice = b.typicalPrice[1:]
	}

	if len(b.typicalPrice) < b.SmaPeriod {
		return false, BollingerBandsStats{}, nil
	}

	movingAverage, err := stats.Mean(b.typicalPrice)
	if err != nil {
		return false, BollingerBandsStats{}, fmt.Errorf("failed to caculate mean: %v", err)
	}

	sd, err := stats.StandardDeviation(b.typicalPrice)
	if err != nil {
		return false, BollingerBandsStats{}, fmt.Errorf("failed to caculate the standard deviation: %v", err)
	}

	return true, BollingerBandsStats{
		Upper:         movingAverage + (b.StandardDeviation * sd),
		Lower:         movingAverage - (b.StandardDeviation * sd),
		MovingAverage: movingAverage,
	}, nil
}

func (b *BollingerBands) Reset() {
	b.typicalPrice = nil
}

func NewBollingerBands(smaPeriod int, standardDeviation float64) *BollingerBands {
	return &BollingerBands{
		SmaPeriod:         smaPeriod,
		StandardDeviation: standardDeviation,
	}
}
