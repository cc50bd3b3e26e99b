package strategy

import (
	"fmt"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/eventmodels"
)

const (
	BuyAndHoldName         = "buy_and_hold"
	BollingerReversionName = "bollinger_reversion"
)

func NewStrategy(symbol string, cfg eventmodels.StrategyYAML) (models.IStrategy, error) {
	switch cfg.Name {
	case BuyAndHoldName:
		return NewBuyAndHold(symbol, cfg.Size), nil
	case BollingerReversionName:
		period := cfg.Period
		if period == 0 {
			period = 20
		}

		stdDevs := cfg.StdDevs
		if stdDevs == 0 {
			stdDevs = 2
		}

		return NewBollingerReversion(symbol, cfg.Size, period, stdDevs, cfg.RsiPeriod)
	default:
		return nil, fmt.Errorf("NewStrategy: unknown strategy %q", cfg.Name)
	}
}
