package models

import (
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// epsilon is the smallest change in target fraction that is treated as a new order.
const epsilon = 1e-9

type PortfolioConfig struct {
	FeeRate  float64    `yaml:"fee_rate" json:"fee_rate"`
	Slippage float64    `yaml:"slippage" json:"slippage"`
	Risk     RiskConfig `yaml:"risk" json:"risk"`
}

func (c PortfolioConfig) Validate() error {
	if math.IsNaN(c.FeeRate) || c.FeeRate < 0 {
		return fmt.Errorf("%w: fee_rate must be >= 0", ErrInvalidPortfolioConfig)
	}

	if math.IsNaN(c.Slippage) || c.Slippage < 0 || c.Slippage >= 1 {
		return fmt.Errorf("%w: slippage must be in [0, 1)", ErrInvalidPortfolioConfig)
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}

	return nil
}

// PortfolioSimulator owns a single-symbol account and turns target-exposure orders into
// simulated fills. Every method is safe for concurrent use and every read returns a copy.
type PortfolioSimulator struct {
	mutex         *sync.Mutex
	cfg           PortfolioConfig
	initialEquity float64
	account       AccountState

	positionUnits           float64
	positionOpenTime        *time.Time
	entryEquity             float64
	totalEntryFees          float64
	totalExitFees           float64
	isBankrupt              bool
	highestEquityInPosition float64
	equityBeforePosition    float64

	trades      []Trade
	equityCurve []EquityPlotRecord
}

func NewPortfolioSimulator(symbol string, initialEquity float64, cfg PortfolioConfig) (*PortfolioSimulator, error) {
	if math.IsNaN(initialEquity) || math.IsInf(initialEquity, 0) || initialEquity < 0 {
		return nil, fmt.Errorf("NewPortfolioSimulator: %w: got %v", ErrInvalidEquity, initialEquity)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("NewPortfolioSimulator: %w", err)
	}

	p := &PortfolioSimulator{
		mutex: &sync.Mutex{},
		cfg:   cfg,
	}

	p.account.Symbol = symbol
	p.reset(initialEquity)

	return p, nil
}

func (p *PortfolioSimulator) GetConfig() PortfolioConfig {
	return p.cfg
}

func (p *PortfolioSimulator) GetSymbol() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.account.Symbol
}

func (p *PortfolioSimulator) GetInitialEquity() float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.initialEquity
}

// ProcessOrder moves the account from its current position fraction to the order's target.
// A nil order is a hold. The only errors returned are for orders that fail validation; numeric
// edge cases are absorbed as no-ops.
func (p *PortfolioSimulator) ProcessOrder(order *Order, bar Bar) error {
	if order == nil {
		return nil
	}

	if err := order.Validate(); err != nil {
		return fmt.Errorf("ProcessOrder: %w", err)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if order.Symbol != "" && order.Symbol != p.account.Symbol {
		return fmt.Errorf("ProcessOrder: %w: %s != %s", ErrSymbolMismatch, order.Symbol, p.account.Symbol)
	}

	target := order.TargetFraction()
	current := p.account.PositionSize

	if math.Abs(target-current) < epsilon {
		return nil
	}

	if p.isBankrupt {
		if target == 0 && current != 0 {
			p.closePosition(bar, order.ForcedExitPrice, ExitReasonSignal)
		} else {
			log.Debugf("ProcessOrder: %s is bankrupt, ignoring %s", p.account.Symbol, order)
		}

		return nil
	}

	switch {
	case current == 0:
		p.openPosition(target, bar)
	case target == 0:
		p.closePosition(bar, order.ForcedExitPrice, ExitReasonSignal)
	case math.Signbit(target) != math.Signbit(current):
		p.closePosition(bar, nil, ExitReasonFlip)
		if !p.isBankrupt {
			p.openPosition(target, bar)
		}
	default:
		p.adjustPosition(target, bar)
	}

	return nil
}

// MarkToMarket revalues the open position at bar.Close, applies risk limits and appends one
// point to the equity curve.
func (p *PortfolioSimulator) MarkToMarket(bar Bar) float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.account.PositionSize != 0 && p.account.EntryPrice != nil && bar.Close > 0 {
		equity := p.entryEquity + p.positionUnits*(bar.Close-*p.account.EntryPrice)

		if equity <= 0 {
			log.Infof("MarkToMarket: %s equity wiped out at %.4f", p.account.Symbol, bar.Close)
			p.declareBankruptcy(bar, bar.Close, 0)
		} else {
			p.account.Equity = equity

			if equity > p.highestEquityInPosition {
				p.highestEquityInPosition = equity
			}

			if reason, triggered := p.checkRiskLimits(bar); triggered {
				log.Infof("MarkToMarket: %s %s triggered at %.4f", p.account.Symbol, reason, bar.Close)
				exitPrice := bar.Close
				p.closePosition(bar, &exitPrice, reason)
			}
		}
	}

	p.equityCurve = append(p.equityCurve, EquityPlotRecord{
		Timestamp: bar.Timestamp,
		Equity:    p.account.Equity,
	})

	return p.account.Equity
}

func (p *PortfolioSimulator) checkRiskLimits(bar Bar) (ExitReason, bool) {
	risk := p.cfg.Risk
	entry := *p.account.EntryPrice
	if entry <= 0 {
		return "", false
	}

	direction := 1.0
	if p.positionUnits < 0 {
		direction = -1.0
	}

	pnlPct := (bar.Close - entry) / entry * direction

	if risk.StopLossEnabled && pnlPct <= -risk.StopLossPct {
		return ExitReasonStopLoss, true
	}

	if risk.TakeProfitEnabled && pnlPct >= risk.TakeProfitPct {
		return ExitReasonTakeProfit, true
	}

	if risk.TrailingStopEnabled && p.highestEquityInPosition > 0 {
		drawdown := (p.highestEquityInPosition - p.account.Equity) / p.highestEquityInPosition
		if drawdown >= risk.TrailingStopPct {
			return ExitReasonTrailingStop, true
		}
	}

	if risk.TimeExitEnabled && p.positionOpenTime != nil {
		if bar.Timestamp.Sub(*p.positionOpenTime) >= risk.MaxHold() {
			return ExitReasonTimeExit, true
		}
	}

	return "", false
}

// fillPrice applies slippage against the trader: buys pay up, sells receive less.
func (p *PortfolioSimulator) fillPrice(price float64, isBuy bool) float64 {
	if isBuy {
		return price * (1 + p.cfg.Slippage)
	}

	return price * (1 - p.cfg.Slippage)
}

func (p *PortfolioSimulator) openPosition(target float64, bar Bar) {
	equity := p.account.Equity
	if bar.Close <= 0 || equity <= 0 {
		log.Warnf("openPosition: %s degenerate state (price=%.4f, equity=%.4f), skipping", p.account.Symbol, bar.Close, equity)
		return
	}

	direction := 1.0
	if target < 0 {
		direction = -1.0
	}

	fill := p.fillPrice(bar.Close, direction > 0)
	notional := equity * math.Abs(target)
	units := notional / fill * direction
	fee := notional * p.cfg.FeeRate

	equity -= fee
	if equity <= 0 {
		log.Infof("openPosition: %s entry fee %.4f exceeds equity, account is bankrupt", p.account.Symbol, fee)
		p.declareBankruptcy(bar, fill, fee)
		return
	}

	entry := fill
	openTime := bar.Timestamp

	p.account.Equity = equity
	p.account.PositionSize = target
	p.account.EntryPrice = &entry
	p.positionUnits = units
	p.positionOpenTime = &openTime
	p.entryEquity = equity
	p.totalEntryFees = fee
	p.totalExitFees = 0
	p.highestEquityInPosition = equity
	p.equityBeforePosition = equity

	log.Debugf("openPosition: %s %.4f units @ %.4f, fee %.4f", p.account.Symbol, units, fill, fee)
}

func (p *PortfolioSimulator) closePosition(bar Bar, forcedExitPrice *float64, reason ExitReason) {
	if p.account.PositionSize == 0 || p.account.EntryPrice == nil {
		return
	}

	var fill float64
	if forcedExitPrice != nil {
		fill = *forcedExitPrice
	} else {
		fill = p.fillPrice(bar.Close, p.positionUnits < 0)
	}

	if fill <= 0 {
		log.Warnf("closePosition: %s degenerate exit price %.4f, skipping", p.account.Symbol, fill)
		return
	}

	entry := *p.account.EntryPrice
	pnl := p.positionUnits * (fill - entry)
	fee := math.Abs(p.positionUnits) * fill * p.cfg.FeeRate

	equity := p.entryEquity + pnl - fee
	bankrupt := false
	if equity <= 0 {
		equity = 0
		bankrupt = true
	}

	p.recordTrade(bar, fill, equity, fee, reason)

	p.account.Equity = equity
	p.clearPosition()

	if bankrupt {
		log.Infof("closePosition: %s closed at %.4f with no equity left, account is bankrupt", p.account.Symbol, fill)
		p.isBankrupt = true
	}

	log.Debugf("closePosition: %s @ %.4f, pnl %.4f, fee %.4f, reason %s", p.account.Symbol, fill, pnl, fee, reason)
}

// adjustPosition resizes a position without changing its direction. The position is rebased
// to the current price first so realized and unrealized PnL are never double counted.
func (p *PortfolioSimulator) adjustPosition(target float64, bar Bar) {
	price := bar.Close
	if price <= 0 || p.account.EntryPrice == nil {
		return
	}

	p.rebase(price)

	if p.account.Equity <= 0 {
		p.declareBankruptcy(bar, price, 0)
		return
	}

	currentFraction := math.Abs(p.positionUnits) * price / p.account.Equity
	targetFraction := math.Abs(target)
	if currentFraction <= 0 {
		return
	}

	switch {
	case targetFraction-currentFraction > epsilon:
		if !p.increasePosition(targetFraction-currentFraction, bar) {
			return
		}
	case currentFraction-targetFraction > epsilon:
		if !p.decreasePosition(currentFraction-targetFraction, currentFraction, bar) {
			return
		}
	}

	p.account.PositionSize = target
}

func (p *PortfolioSimulator) rebase(price float64) {
	equity := p.entryEquity + p.positionUnits*(price-*p.account.EntryPrice)
	entry := price

	p.account.Equity = equity
	p.account.EntryPrice = &entry
	p.entryEquity = equity
}

func (p *PortfolioSimulator) increasePosition(addedFraction float64, bar Bar) bool {
	direction := 1.0
	if p.positionUnits < 0 {
		direction = -1.0
	}

	fill := p.fillPrice(bar.Close, direction > 0)
	notional := p.account.Equity * addedFraction
	addedUnits := notional / fill * direction
	fee := notional * p.cfg.FeeRate

	equity := p.account.Equity - fee
	if equity <= 0 {
		log.Infof("increasePosition: %s fee %.4f exceeds equity, account is bankrupt", p.account.Symbol, fee)
		p.declareBankruptcy(bar, fill, fee)
		return false
	}

	oldUnits := math.Abs(p.positionUnits)
	newUnits := math.Abs(addedUnits)
	entry := (oldUnits*(*p.account.EntryPrice) + newUnits*fill) / (oldUnits + newUnits)

	p.positionUnits += addedUnits
	p.account.EntryPrice = &entry
	p.account.Equity = equity
	p.entryEquity = equity
	p.totalEntryFees += fee

	log.Debugf("increasePosition: %s +%.4f units @ %.4f, fee %.4f", p.account.Symbol, addedUnits, fill, fee)
	return true
}

func (p *PortfolioSimulator) decreasePosition(removedFraction, currentFraction float64, bar Bar) bool {
	unitsDelta := p.positionUnits * removedFraction / currentFraction
	fill := p.fillPrice(bar.Close, p.positionUnits < 0)

	pnl := unitsDelta * (fill - *p.account.EntryPrice)
	fee := math.Abs(unitsDelta) * fill * p.cfg.FeeRate

	equity := p.entryEquity + pnl - fee
	if equity <= 0 {
		p.declareBankruptcy(bar, fill, fee)
		return false
	}

	p.positionUnits -= unitsDelta
	p.account.Equity = equity
	p.entryEquity = equity
	p.totalExitFees += fee

	log.Debugf("decreasePosition: %s -%.4f units @ %.4f, pnl %.4f, fee %.4f", p.account.Symbol, unitsDelta, fill, pnl, fee)
	return true
}

// declareBankruptcy zeroes the account. An open position is recorded as a bankruptcy trade.
func (p *PortfolioSimulator) declareBankruptcy(bar Bar, exitPrice float64, fee float64) {
	if p.account.PositionSize != 0 && p.account.EntryPrice != nil {
		p.recordTrade(bar, exitPrice, 0, fee, ExitReasonBankruptcy)
	}

	p.account.Equity = 0
	p.clearPosition()
	p.isBankrupt = true
}

func (p *PortfolioSimulator) recordTrade(bar Bar, exitPrice, equityAfter, exitFee float64, reason ExitReason) {
	var openTime time.Time
	if p.positionOpenTime != nil {
		openTime = *p.positionOpenTime
	}

	p.trades = append(p.trades, Trade{
		OpenTime:   openTime,
		CloseTime:  bar.Timestamp,
		Side:       sideFromDirection(p.account.PositionSize),
		EntryPrice: *p.account.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       math.Abs(p.account.PositionSize),
		PnL:        equityAfter - p.equityBeforePosition,
		Fees:       p.totalEntryFees + p.totalExitFees + exitFee,
		ExitReason: reason,
	})
}

func (p *PortfolioSimulator) clearPosition() {
	p.account.PositionSize = 0
	p.account.EntryPrice = nil
	p.positionUnits = 0
	p.positionOpenTime = nil
	p.entryEquity = p.account.Equity
	p.totalEntryFees = 0
	p.totalExitFees = 0
	p.highestEquityInPosition = 0
	p.equityBeforePosition = 0
}

func (p *PortfolioSimulator) reset(initialEquity float64) {
	p.initialEquity = initialEquity
	p.account.Equity = initialEquity
	p.isBankrupt = false
	p.trades = nil
	p.equityCurve = nil
	p.clearPosition()
}

// ResetAccount returns the account to flat with the given equity, keeping the instance so
// existing references stay valid.
func (p *PortfolioSimulator) ResetAccount(initialEquity float64) error {
	if math.IsNaN(initialEquity) || math.IsInf(initialEquity, 0) || initialEquity < 0 {
		return fmt.Errorf("ResetAccount: %w: got %v", ErrInvalidEquity, initialEquity)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.reset(initialEquity)
	log.Infof("ResetAccount: %s reset to %.2f", p.account.Symbol, initialEquity)

	return nil
}

func (p *PortfolioSimulator) GetAccountSnapshot() AccountState {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.account.Copy()
}

// GetTradesSnapshot returns the most recent limit trades, or all of them when limit <= 0.
func (p *PortfolioSimulator) GetTradesSnapshot(limit int) []Trade {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	trades := p.trades
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}

	out := make([]Trade, len(trades))
	copy(out, trades)
	return out
}

func (p *PortfolioSimulator) GetPositionUnits() float64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.positionUnits
}

func (p *PortfolioSimulator) GetPositionSnapshot() PositionSnapshot {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	snapshot := PositionSnapshot{
		Size:                 p.account.PositionSize,
		Units:                p.positionUnits,
		EntryEquity:          p.entryEquity,
		TotalEntryFees:       p.totalEntryFees,
		TotalExitFees:        p.totalExitFees,
		HighestEquity:        p.highestEquityInPosition,
		EquityBeforePosition: p.equityBeforePosition,
		IsBankrupt:           p.isBankrupt,
	}

	if p.account.EntryPrice != nil {
		entry := *p.account.EntryPrice
		snapshot.EntryPrice = &entry
	}

	if p.positionOpenTime != nil {
		openTime := *p.positionOpenTime
		snapshot.OpenTime = &openTime
	}

	return snapshot
}

func (p *PortfolioSimulator) GetEquityCurve() []EquityPlotRecord {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	out := make([]EquityPlotRecord, len(p.equityCurve))
	copy(out, p.equityCurve)
	return out
}

func (p *PortfolioSimulator) IsBankrupt() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.isBankrupt
}
