package strategy

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/indicators"
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// BollingerReversion fades closes outside the bands and exits at the moving average. With an
// Rsi attached, entries also need the RSI to agree (oversold for longs, overbought for shorts).
type BollingerReversion struct {
	Symbol string
	Size   float64
	bands  *indicators.BollingerBands
	rsi    *indicators.Rsi
}

func (s *BollingerReversion) OnBar(bar models.Bar, account models.AccountState) (*models.Order, error) {
	ready, bands, err := s.bands.Update(bar)
	if err != nil {
		return nil, fmt.Errorf("BollingerReversion: %w", err)
	}

	rsiValue, rsiReady := 50.0, true
	if s.rsi != nil {
		rsiValue, rsiReady = s.rsi.Update(bar)
	}

	if !ready || !rsiReady {
		return nil, nil
	}

	switch {
	case account.PositionSize > 0:
		if bar.Close >= bands.MovingAverage {
			log.Debugf("BollingerReversion: long exit at %.4f (ma %.4f)", bar.Close, bands.MovingAverage)
			return models.NewFlatOrder(s.Symbol, nil)
		}
	case account.PositionSize < 0:
		if bar.Close <= bands.MovingAverage {
			log.Debugf("BollingerReversion: short exit at %.4f (ma %.4f)", bar.Close, bands.MovingAverage)
			return models.NewFlatOrder(s.Symbol, nil)
		}
	default:
		if bar.Close < bands.Lower && (s.rsi == nil || rsiValue < rsiOversold) {
			return models.NewDirectionalOrder(s.Symbol, models.OrderSideLong, s.Size)
		}

		if bar.Close > bands.Upper && (s.rsi == nil || rsiValue > rsiOverbought) {
			return models.NewDirectionalOrder(s.Symbol, models.OrderSideShort, s.Size)
		}
	}

	return nil, nil
}

func (s *BollingerReversion) Reset() {
	s.bands.Reset()
	if s.rsi != nil {
		s.rsi.Reset()
	}
}

// NewBollingerReversion builds the strategy. rsiPeriod <= 0 disables the RSI filter.
func NewBollingerReversion(symbol string, size float64, period int, stdDevs float64, rsiPeriod int) (*BollingerReversion, error) {
	if period < 2 {
		return nil, fmt.Errorf("NewBollingerReversion: period must be >= 2, got %d", period)
	}

	if stdDevs <= 0 {
		return nil, fmt.Errorf("NewBollingerReversion: std devs must be > 0, got %v", stdDevs)
	}

	if size <= 0 {
		size = 1
	}

	s := &BollingerReversion{
		Symbol: symbol,
		Size:   size,
		bands:  indicators.NewBollingerBands(period, stdDevs),
	}

	if rsiPeriod > 0 {
		s.rsi = indicators.NewRsi(rsiPeriod)
	}

	return s, nil
}
