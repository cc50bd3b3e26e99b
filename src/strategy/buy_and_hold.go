package strategy

import (
	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

// BuyAndHold goes long once on the first bar and never trades again, even after a risk
// exit flattens it.
type BuyAndHold struct {
	Symbol  string
	Size    float64
	entered bool
}

func (s *BuyAndHold) OnBar(bar models.Bar, account models.AccountState) (*models.Order, error) {
	if s.entered {
		return nil, nil
	}

	s.entered = true

	return models.NewDirectionalOrder(s.Symbol, models.OrderSideLong, s.Size)
}

func (s *BuyAndHold) Reset() {
	s.entered = false
}

func NewBuyAndHold(symbol string, size float64) *BuyAndHold {
	if size <= 0 {
		size = 1
	}

	return &BuyAndHold{
		Symbol: symbol,
		Size:   size,
	}
}
