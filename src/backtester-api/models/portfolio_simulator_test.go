package models

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-6

var t0 = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

func barAt(minutes int, close float64) Bar {
	return NewBar(t0.Add(time.Duration(minutes)*time.Minute), close, close, close, close, 0)
}

func newTestSimulator(t *testing.T, equity float64, cfg PortfolioConfig) *PortfolioSimulator {
	p, err := NewPortfolioSimulator("BTC-USD", equity, cfg)
	require.NoError(t, err)
	return p
}

func long(t *testing.T, size float64) *Order {
	o, err := NewDirectionalOrder("BTC-USD", OrderSideLong, size)
	require.NoError(t, err)
	return o
}

func short(t *testing.T, size float64) *Order {
	o, err := NewDirectionalOrder("BTC-USD", OrderSideShort, size)
	require.NoError(t, err)
	return o
}

func flat(t *testing.T) *Order {
	o, err := NewFlatOrder("BTC-USD", nil)
	require.NoError(t, err)
	return o
}

func requireConsistent(t *testing.T, account AccountState) {
	t.Helper()
	require.Equal(t, account.PositionSize == 0, account.EntryPrice == nil, "position size %v with entry price %v", account.PositionSize, account.EntryPrice)
	require.GreaterOrEqual(t, account.Equity, 0.0)
}

func TestPortfolioSimulatorScenarios(t *testing.T) {
	t.Run("open and close without fees", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))

		assert.InDelta(t, 50.0, p.GetPositionUnits(), tolerance)
		account := p.GetAccountSnapshot()
		require.NotNil(t, account.EntryPrice)
		assert.InDelta(t, 100.0, *account.EntryPrice, tolerance)
		assert.InDelta(t, 10000.0, account.Equity, tolerance)

		equity := p.MarkToMarket(barAt(1, 120))
		assert.InDelta(t, 11000.0, equity, tolerance)

		require.NoError(t, p.ProcessOrder(flat(t), barAt(1, 120)))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.InDelta(t, 1000.0, trades[0].PnL, tolerance)
		assert.Equal(t, OrderSideLong, trades[0].Side)
		assert.Equal(t, ExitReasonSignal, trades[0].ExitReason)
		assert.Equal(t, 0.5, trades[0].Size)
		assert.InDelta(t, 11000.0, p.GetAccountSnapshot().Equity, tolerance)
		requireConsistent(t, p.GetAccountSnapshot())
	})

	t.Run("open and close with fees", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.001})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))
		assert.InDelta(t, 9995.0, p.GetAccountSnapshot().Equity, tolerance)
		assert.InDelta(t, 50.0, p.GetPositionUnits(), tolerance)

		p.MarkToMarket(barAt(1, 120))
		require.NoError(t, p.ProcessOrder(flat(t), barAt(1, 120)))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.InDelta(t, 994.0, trades[0].PnL, tolerance)
		assert.InDelta(t, 11.0, trades[0].Fees, tolerance)
		assert.InDelta(t, 10989.0, p.GetAccountSnapshot().Equity, tolerance)
	})

	t.Run("entry fee larger than equity is bankruptcy", func(t *testing.T) {
		p := newTestSimulator(t, 100, PortfolioConfig{FeeRate: 2.0})

		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(0, 100)))

		account := p.GetAccountSnapshot()
		assert.True(t, p.IsBankrupt())
		assert.Equal(t, 0.0, account.Equity)
		assert.Equal(t, 0.0, account.PositionSize)
		assert.Nil(t, account.EntryPrice)
		assert.Empty(t, p.GetTradesSnapshot(0))
	})
}

func TestPortfolioSimulatorShort(t *testing.T) {
	t.Run("short gains when price falls", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{})

		require.NoError(t, p.ProcessOrder(short(t, 0.5), barAt(0, 100)))
		assert.InDelta(t, -50.0, p.GetPositionUnits(), tolerance)
		assert.Equal(t, -0.5, p.GetAccountSnapshot().PositionSize)

		assert.InDelta(t, 10500.0, p.MarkToMarket(barAt(1, 90)), tolerance)

		require.NoError(t, p.ProcessOrder(flat(t), barAt(1, 90)))
		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, OrderSideShort, trades[0].Side)
		assert.InDelta(t, 500.0, trades[0].PnL, tolerance)
	})
}

func TestPortfolioSimulatorSlippage(t *testing.T) {
	t.Run("slippage disadvantages the trader on both legs", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{Slippage: 0.01})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))

		account := p.GetAccountSnapshot()
		assert.InDelta(t, 101.0, *account.EntryPrice, tolerance)
		units := p.GetPositionUnits()
		assert.InDelta(t, 5000.0/101.0, units, tolerance)

		require.NoError(t, p.ProcessOrder(flat(t), barAt(1, 100)))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.InDelta(t, 99.0, trades[0].ExitPrice, tolerance)
		assert.InDelta(t, 10000.0-units*2, p.GetAccountSnapshot().Equity, tolerance)
	})

	t.Run("forced exit price bypasses slippage", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{Slippage: 0.01})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))

		exit := 105.0
		order, err := NewFlatOrder("BTC-USD", &exit)
		require.NoError(t, err)
		require.NoError(t, p.ProcessOrder(order, barAt(1, 100)))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, 105.0, trades[0].ExitPrice)
	})
}

func TestPortfolioSimulatorFlip(t *testing.T) {
	t.Run("flip closes then opens in one order", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.001})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))
		before := p.GetPositionSnapshot()

		require.NoError(t, p.ProcessOrder(short(t, 0.5), barAt(1, 110)))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, ExitReasonFlip, trades[0].ExitReason)
		assert.InDelta(t, 494.5, trades[0].PnL, tolerance)

		after := p.GetPositionSnapshot()
		assert.Equal(t, -0.5, after.Size)
		assert.Less(t, after.Units, 0.0)

		closedEquity := before.EquityBeforePosition + trades[0].PnL
		secondEntryFee := closedEquity * 0.5 * 0.001
		assert.InDelta(t, closedEquity-secondEntryFee, after.EquityBeforePosition, tolerance)
		assert.InDelta(t, after.EquityBeforePosition, p.GetAccountSnapshot().Equity, tolerance)
		assert.InDelta(t, secondEntryFee, after.TotalEntryFees, tolerance)
	})
}

func TestPortfolioSimulatorAdjust(t *testing.T) {
	t.Run("decrease at a flat price only costs fees", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.001})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))
		require.NoError(t, p.ProcessOrder(long(t, 0.25), barAt(1, 100)))

		assert.Equal(t, 0.25, p.GetAccountSnapshot().PositionSize)
		assert.InDelta(t, 24.9875, p.GetPositionUnits(), tolerance)

		require.NoError(t, p.ProcessOrder(flat(t), barAt(2, 100)))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.InDelta(t, 9990.0, p.GetAccountSnapshot().Equity, tolerance)
		assert.InDelta(t, -5.0, trades[0].PnL, tolerance)
		assert.InDelta(t, 10.0, trades[0].Fees, tolerance)
	})

	t.Run("increase at a flat price keeps the entry price", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.001})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))
		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(1, 100)))

		account := p.GetAccountSnapshot()
		assert.Equal(t, 1.0, account.PositionSize)
		assert.InDelta(t, 100.0, *account.EntryPrice, tolerance)
		assert.InDelta(t, 99.95, p.GetPositionUnits(), tolerance)

		require.NoError(t, p.ProcessOrder(flat(t), barAt(2, 100)))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.InDelta(t, 10000.0-19.99, p.GetAccountSnapshot().Equity, tolerance)
		assert.InDelta(t, 19.99, trades[0].Fees, tolerance)
	})

	t.Run("trade pnl spans every adjustment", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.001})

		// open 0.5 @ 100: 50 units, fee 5, equity 9995
		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))
		assert.InDelta(t, 9995.0, p.GetPositionSnapshot().EquityBeforePosition, tolerance)

		// rebase @ 110 to 10495, add 8396-5500 = 2896 notional, fee 2.896
		p.MarkToMarket(barAt(1, 110))
		require.NoError(t, p.ProcessOrder(long(t, 0.8), barAt(1, 110)))
		requireConsistent(t, p.GetAccountSnapshot())
		assert.InDelta(t, 10492.104, p.GetAccountSnapshot().Equity, tolerance)
		assert.InDelta(t, 8396.0/110.0, p.GetPositionUnits(), tolerance)

		// rebase @ 120 to 11255.3767, keep 0.3 of it, pay fee on the units sold
		p.MarkToMarket(barAt(2, 120))
		require.NoError(t, p.ProcessOrder(long(t, 0.3), barAt(2, 120)))
		requireConsistent(t, p.GetAccountSnapshot())
		assert.InDelta(t, 28.138441818, p.GetPositionUnits(), tolerance)
		assert.InDelta(t, 11249.594067564, p.GetAccountSnapshot().Equity, tolerance)

		// close @ 100: lose 20 per remaining unit plus the exit fee
		p.MarkToMarket(barAt(3, 100))
		require.NoError(t, p.ProcessOrder(flat(t), barAt(3, 100)))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)

		assert.InDelta(t, 10684.011387018, p.GetAccountSnapshot().Equity, tolerance)
		assert.InDelta(t, 689.011387018, trades[0].PnL, tolerance)
		assert.InDelta(t, 5+2.896+5.782659709+2.813844182, trades[0].Fees, tolerance)
		assert.Equal(t, 0.3, trades[0].Size)
		assert.Equal(t, ExitReasonSignal, trades[0].ExitReason)
	})

	t.Run("rebase marks unrealized pnl into equity", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))
		require.NoError(t, p.ProcessOrder(long(t, 0.6), barAt(1, 120)))

		position := p.GetPositionSnapshot()
		assert.InDelta(t, 11000.0, position.EntryEquity, tolerance)
		assert.InDelta(t, 120.0, *position.EntryPrice, tolerance)
		assert.InDelta(t, 11000.0*0.6/120.0, position.Units, tolerance)

		assert.InDelta(t, 11000.0, p.MarkToMarket(barAt(2, 120)), tolerance)
	})
}

func TestPortfolioSimulatorRiskLimits(t *testing.T) {
	t.Run("stop loss", func(t *testing.T) {
		risk := DefaultRiskConfig()
		risk.StopLossEnabled = true
		p := newTestSimulator(t, 10000, PortfolioConfig{Risk: risk})

		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(0, 100)))
		p.MarkToMarket(barAt(1, 94))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, ExitReasonStopLoss, trades[0].ExitReason)
		assert.Equal(t, 94.0, trades[0].ExitPrice)
		assert.InDelta(t, 9400.0, p.GetAccountSnapshot().Equity, tolerance)
		requireConsistent(t, p.GetAccountSnapshot())
	})

	t.Run("take profit on a short", func(t *testing.T) {
		risk := DefaultRiskConfig()
		risk.TakeProfitEnabled = true
		p := newTestSimulator(t, 10000, PortfolioConfig{Risk: risk})

		require.NoError(t, p.ProcessOrder(short(t, 1.0), barAt(0, 100)))
		p.MarkToMarket(barAt(1, 95))
		assert.Empty(t, p.GetTradesSnapshot(0))

		p.MarkToMarket(barAt(2, 89))
		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, ExitReasonTakeProfit, trades[0].ExitReason)
	})

	t.Run("trailing stop tracks the peak", func(t *testing.T) {
		risk := DefaultRiskConfig()
		risk.TrailingStopEnabled = true
		p := newTestSimulator(t, 10000, PortfolioConfig{Risk: risk})

		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(0, 100)))
		p.MarkToMarket(barAt(1, 110))
		assert.InDelta(t, 11000.0, p.GetPositionSnapshot().HighestEquity, tolerance)

		p.MarkToMarket(barAt(2, 108))
		assert.Empty(t, p.GetTradesSnapshot(0))

		p.MarkToMarket(barAt(3, 106))
		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, ExitReasonTrailingStop, trades[0].ExitReason)
	})

	t.Run("time exit", func(t *testing.T) {
		risk := DefaultRiskConfig()
		risk.TimeExitEnabled = true
		risk.MaxPositionHoldMinutes = 60
		p := newTestSimulator(t, 10000, PortfolioConfig{Risk: risk})

		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(0, 100)))
		p.MarkToMarket(barAt(59, 100))
		assert.Empty(t, p.GetTradesSnapshot(0))

		p.MarkToMarket(barAt(60, 100))
		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, ExitReasonTimeExit, trades[0].ExitReason)
		assert.Equal(t, time.Hour, trades[0].HoldDuration())
	})

	t.Run("stop loss wins over trailing stop", func(t *testing.T) {
		risk := DefaultRiskConfig()
		risk.StopLossEnabled = true
		risk.TrailingStopEnabled = true
		p := newTestSimulator(t, 10000, PortfolioConfig{Risk: risk})

		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(0, 100)))
		p.MarkToMarket(barAt(1, 90))

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, ExitReasonStopLoss, trades[0].ExitReason)
	})

	t.Run("disabled limits never trigger", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{Risk: DefaultRiskConfig()})

		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(0, 100)))
		p.MarkToMarket(barAt(1, 50))
		p.MarkToMarket(barAt(5000, 200))

		assert.Empty(t, p.GetTradesSnapshot(0))
	})
}

func TestPortfolioSimulatorBankruptcy(t *testing.T) {
	t.Run("mark to market below zero is bankruptcy", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{})

		require.NoError(t, p.ProcessOrder(short(t, 1.0), barAt(0, 100)))
		equity := p.MarkToMarket(barAt(1, 250))

		assert.Equal(t, 0.0, equity)
		assert.True(t, p.IsBankrupt())

		trades := p.GetTradesSnapshot(0)
		require.Len(t, trades, 1)
		assert.Equal(t, ExitReasonBankruptcy, trades[0].ExitReason)
		assert.InDelta(t, -10000.0, trades[0].PnL, tolerance)
	})

	t.Run("bankrupt account ignores new orders", func(t *testing.T) {
		p := newTestSimulator(t, 100, PortfolioConfig{FeeRate: 2.0})

		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(0, 100)))
		require.True(t, p.IsBankrupt())

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(1, 100)))
		require.NoError(t, p.ProcessOrder(short(t, 0.5), barAt(2, 100)))
		p.MarkToMarket(barAt(3, 100))

		account := p.GetAccountSnapshot()
		assert.Equal(t, 0.0, account.PositionSize)
		assert.Equal(t, 0.0, account.Equity)
	})

	t.Run("reset clears bankruptcy", func(t *testing.T) {
		p := newTestSimulator(t, 100, PortfolioConfig{FeeRate: 2.0})

		require.NoError(t, p.ProcessOrder(long(t, 1.0), barAt(0, 100)))
		require.NoError(t, p.ResetAccount(500))

		assert.False(t, p.IsBankrupt())
		assert.Equal(t, 500.0, p.GetAccountSnapshot().Equity)
		assert.Equal(t, 500.0, p.GetInitialEquity())
		assert.Empty(t, p.GetEquityCurve())
		assert.Empty(t, p.GetTradesSnapshot(0))

		assert.Error(t, p.ResetAccount(-1))
	})
}

func TestPortfolioSimulatorEdgeCases(t *testing.T) {
	t.Run("zero price is a no-op", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 0)))

		account := p.GetAccountSnapshot()
		assert.Equal(t, 0.0, account.PositionSize)
		assert.Equal(t, 10000.0, account.Equity)
	})

	t.Run("zero equity is a no-op", func(t *testing.T) {
		p := newTestSimulator(t, 0, PortfolioConfig{})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))

		assert.Equal(t, 0.0, p.GetAccountSnapshot().PositionSize)
	})

	t.Run("same target is a no-op", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.001})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))
		equity := p.GetAccountSnapshot().Equity

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(1, 120)))
		require.NoError(t, p.ProcessOrder(nil, barAt(1, 120)))

		assert.Equal(t, equity, p.GetAccountSnapshot().Equity)
	})

	t.Run("invalid orders are rejected", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{})

		err := p.ProcessOrder(&Order{Symbol: "BTC-USD", Side: OrderSideFlat, Size: 1}, barAt(0, 100))
		assert.ErrorIs(t, err, ErrFlatOrderSize)

		err = p.ProcessOrder(&Order{Symbol: "ETH-USD", Side: OrderSideLong, Size: 1}, barAt(0, 100))
		assert.ErrorIs(t, err, ErrSymbolMismatch)
	})

	t.Run("rejects an invalid config", func(t *testing.T) {
		_, err := NewPortfolioSimulator("BTC-USD", 100, PortfolioConfig{FeeRate: -1})
		assert.ErrorIs(t, err, ErrInvalidPortfolioConfig)

		_, err = NewPortfolioSimulator("BTC-USD", 100, PortfolioConfig{Risk: RiskConfig{StopLossEnabled: true}})
		assert.ErrorIs(t, err, ErrInvalidRiskConfig)

		_, err = NewPortfolioSimulator("BTC-USD", -5, PortfolioConfig{})
		assert.ErrorIs(t, err, ErrInvalidEquity)
	})
}

func TestPortfolioSimulatorSnapshots(t *testing.T) {
	t.Run("mark to market is idempotent", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.001, Slippage: 0.001})

		require.NoError(t, p.ProcessOrder(long(t, 0.7), barAt(0, 100)))

		first := p.MarkToMarket(barAt(1, 103))
		second := p.MarkToMarket(barAt(1, 103))

		assert.Equal(t, first, second)
		assert.Len(t, p.GetEquityCurve(), 2)
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{})

		require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(0, 100)))

		account := p.GetAccountSnapshot()
		*account.EntryPrice = 1

		position := p.GetPositionSnapshot()
		*position.EntryPrice = 2

		assert.Equal(t, 100.0, *p.GetAccountSnapshot().EntryPrice)
	})

	t.Run("trade snapshot honours the limit", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{})

		for i := 0; i < 5; i++ {
			require.NoError(t, p.ProcessOrder(long(t, 0.5), barAt(2*i, 100)))
			require.NoError(t, p.ProcessOrder(flat(t), barAt(2*i+1, float64(101+i))))
		}

		assert.Len(t, p.GetTradesSnapshot(0), 5)

		last := p.GetTradesSnapshot(2)
		require.Len(t, last, 2)
		assert.Equal(t, 105.0, last[1].ExitPrice)
	})

	t.Run("invariants hold over random order sequences", func(t *testing.T) {
		r := rand.New(rand.NewSource(42))
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.002, Slippage: 0.001, Risk: RiskConfig{
			StopLossEnabled:     true,
			StopLossPct:         0.08,
			TrailingStopEnabled: true,
			TrailingStopPct:     0.1,
		}})

		price := 100.0
		for i := 0; i < 2000; i++ {
			price *= 1 + (r.Float64()-0.5)*0.1
			bar := barAt(i, price)

			var order *Order
			switch r.Intn(4) {
			case 0:
				order = long(t, r.Float64()*1.5)
			case 1:
				order = short(t, r.Float64()*1.5)
			case 2:
				order = flat(t)
			}

			require.NoError(t, p.ProcessOrder(order, bar))
			requireConsistent(t, p.GetAccountSnapshot())

			p.MarkToMarket(bar)
			requireConsistent(t, p.GetAccountSnapshot())

			if p.IsBankrupt() {
				assert.Equal(t, 0.0, p.GetAccountSnapshot().PositionSize)
			}
		}
	})

	t.Run("concurrent readers never observe a torn snapshot", func(t *testing.T) {
		p := newTestSimulator(t, 10000, PortfolioConfig{FeeRate: 0.001})

		done := make(chan struct{})
		var wg sync.WaitGroup

		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-done:
						return
					default:
					}

					account := p.GetAccountSnapshot()
					if (account.PositionSize == 0) != (account.EntryPrice == nil) {
						t.Errorf("torn snapshot: size=%v entry=%v", account.PositionSize, account.EntryPrice)
						return
					}

					position := p.GetPositionSnapshot()
					if (position.Size == 0) != (position.EntryPrice == nil) {
						t.Errorf("torn position snapshot: size=%v entry=%v", position.Size, position.EntryPrice)
						return
					}
				}
			}()
		}

		for i := 0; i < 1000; i++ {
			bar := barAt(i, 100+float64(i%7))
			switch i % 3 {
			case 0:
				_ = p.ProcessOrder(long(t, 0.5), bar)
			case 1:
				_ = p.ProcessOrder(short(t, 0.3), bar)
			case 2:
				_ = p.ProcessOrder(flat(t), bar)
			}
			p.MarkToMarket(bar)
		}

		close(done)
		wg.Wait()
	})
}
