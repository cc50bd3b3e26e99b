package mock

import (
	"sync"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

// MockStrategy replays scripted orders keyed by the zero-based bar index it has seen.
type MockStrategy struct {
	mutex      sync.Mutex
	orders     map[int]*models.Order
	errs       map[int]error
	calls      int
	resets     int
	seenEquity []float64
}

func (s *MockStrategy) OnBar(bar models.Bar, account models.AccountState) (*models.Order, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	index := s.calls
	s.calls++
	s.seenEquity = append(s.seenEquity, account.Equity)

	if err, ok := s.errs[index]; ok {
		return nil, err
	}

	return s.orders[index], nil
}

func (s *MockStrategy) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.resets++
	s.calls = 0
	s.seenEquity = nil
}

func (s *MockStrategy) OnBarCalls() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.calls
}

func (s *MockStrategy) ResetCalls() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.resets
}

func (s *MockStrategy) SeenEquity() []float64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]float64(nil), s.seenEquity...)
}

func (s *MockStrategy) FailOn(index int, err error) *MockStrategy {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.errs[index] = err
	return s
}

func NewMockStrategy(orders map[int]*models.Order) *MockStrategy {
	if orders == nil {
		orders = map[int]*models.Order{}
	}

	return &MockStrategy{
		orders: orders,
		errs:   map[int]error{},
	}
}
