package indicators

import (
	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

// Rsi is Wilder's relative strength index. The first value is seeded from the simple average
// of the first Period price changes, later values use Wilder smoothing.
type Rsi struct {
	Period    int
	prevClose *float64
	gains     []float64
	losses    []float64
	avgGain   float64
	avgLoss   float64
	seeded    bool
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func (r *Rsi) value() float64 {
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := r.avgGain / r.avgLoss
	return 100 - (100 / (1 + rs))
}

// Update returns the RSI after bar and whether enough bars have been seen.
func (r *Rsi) Update(bar models.Bar) (float64, bool) {
	price := bar.Close
	if r.prevClose == nil {
		r.prevClose = &price
		return 0, false
	}

	delta := price - *r.prevClose
	r.prevClose = &price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.seeded {
		period := float64(r.Period)
		r.avgGain = (r.avgGain*(period-1) + gain) / period
		r.avgLoss = (r.avgLoss*(period-1) + loss) / period
		return r.value(), true
	}

	r.gains = append(r.gains, gain)
	r.losses = append(r.losses, loss)
	if len(r.gains) < r.Period {
		return 0, false
	}

	r.avgGain = average(r.gains)
	r.avgLoss = average(r.losses)
	r.gains, r.losses = nil, nil
	r.seeded = true

	return r.value(), true
}

func (r *Rsi) Reset() {
	*r = Rsi{Period: r.Period}
}

func NewRsi(period int) *Rsi {
	return &Rsi{
		Period: period,
	}
}
