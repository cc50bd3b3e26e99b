package mock

import (
	"context"
	"sync"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

// MockExchange serves prices from a script. Once the script is exhausted the last price repeats.
type MockExchange struct {
	mutex      sync.Mutex
	prices     []float64
	position   int
	latestBar  *models.Bar
	priceErr   error
	barErr     error
	calls      int
	closed     bool
	blockUntil chan struct{}
	blockOnCtx bool
	entered    chan struct{}
}

func (e *MockExchange) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	e.mutex.Lock()
	block := e.blockUntil
	blockOnCtx := e.blockOnCtx
	entered := e.entered
	e.mutex.Unlock()

	if blockOnCtx {
		select {
		case entered <- struct{}{}:
		default:
		}

		<-ctx.Done()

		e.mutex.Lock()
		e.calls++
		e.mutex.Unlock()

		return 0, ctx.Err()
	}

	if block != nil {
		<-block
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.calls++

	if e.priceErr != nil {
		return 0, e.priceErr
	}

	if len(e.prices) == 0 {
		return 0, models.ErrNoPriceAvailable
	}

	price := e.prices[e.position]
	if e.position < len(e.prices)-1 {
		e.position++
	}

	return price, nil
}

func (e *MockExchange) GetLatestBar(ctx context.Context, symbol string, timeframe string) (*models.Bar, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.barErr != nil {
		return nil, e.barErr
	}

	if e.latestBar == nil {
		return nil, models.ErrNoPriceAvailable
	}

	bar := *e.latestBar
	return &bar, nil
}

func (e *MockExchange) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.closed = true
	return nil
}

func (e *MockExchange) IsClosed() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.closed
}

func (e *MockExchange) Calls() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	return e.calls
}

func (e *MockExchange) SetPriceError(err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.priceErr = err
}

// SetPrices replaces the price script and rewinds it.
func (e *MockExchange) SetPrices(prices ...float64) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.prices = prices
	e.position = 0
}

func (e *MockExchange) SetLatestBar(bar *models.Bar, err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.latestBar = bar
	e.barErr = err
}

// Block makes GetLatestPrice wait until the returned release func is called.
func (e *MockExchange) Block() (release func()) {
	ch := make(chan struct{})

	e.mutex.Lock()
	e.blockUntil = ch
	e.mutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// BlockUntilCancelled makes GetLatestPrice wait for its context to be cancelled and return
// ctx.Err(), the way a network client does. The returned channel fires when a call is in flight.
func (e *MockExchange) BlockUntilCancelled() <-chan struct{} {
	entered := make(chan struct{}, 1)

	e.mutex.Lock()
	e.blockOnCtx = true
	e.entered = entered
	e.mutex.Unlock()

	return entered
}

func NewMockExchange(prices ...float64) *MockExchange {
	return &MockExchange{
		prices: prices,
	}
}
