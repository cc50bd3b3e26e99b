package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/eventpubsub"
	"github.com/jiaming2012/strategy-engine/src/telemetry"
)

const recentBarsCapacity = 500

// LiveSession runs one LiveTradingEngine on its own goroutine.
type LiveSession struct {
	ID         uuid.UUID
	meta       models.LiveSessionMeta
	engine     *LiveTradingEngine
	portfolio  *models.PortfolioSimulator
	aggregator *models.BarAggregator
	exchange   models.IExchange
	recentBars *models.FIFOQueue[models.Bar]
	bus        *eventpubsub.Bus

	mutex        sync.Mutex
	status       models.LiveSessionStatus
	errorMessage string
	createdAt    time.Time
	startedAt    *time.Time
	stoppedAt    *time.Time
	cancel       context.CancelFunc
	done         chan struct{}
	releaseOnce  sync.Once
}

func NewLiveSession(meta models.LiveSessionMeta, exchange models.IExchange, strategy models.IStrategy, bus *eventpubsub.Bus, metrics *telemetry.EngineMetrics) (*LiveSession, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("NewLiveSession: %w", err)
	}

	portfolio, err := models.NewPortfolioSimulator(meta.Symbol, meta.InitialEquity, meta.Portfolio)
	if err != nil {
		return nil, fmt.Errorf("NewLiveSession: %w", err)
	}

	aggregator, err := models.NewBarAggregator(meta.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("NewLiveSession: %w", err)
	}

	s := &LiveSession{
		ID:         uuid.New(),
		meta:       meta,
		portfolio:  portfolio,
		aggregator: aggregator,
		exchange:   exchange,
		recentBars: models.NewFIFOQueue[models.Bar]("recentBars", recentBarsCapacity),
		bus:        bus,
		status:     models.LiveSessionStatusStarting,
		createdAt:  time.Now(),
	}

	callbacks := LiveTradingEngineCallbacks{
		OnNewBar: func(bar models.Bar) {
			s.recentBars.Enqueue(bar)
			s.publish(eventpubsub.LiveBarEvent, eventpubsub.SessionEvent{Timestamp: bar.Timestamp, Bar: &bar})
		},
		OnOrderExecuted: func(order *models.Order, account models.AccountState) {
			s.publish(eventpubsub.LiveOrderEvent, eventpubsub.SessionEvent{Timestamp: time.Now(), Order: order, Account: &account})
		},
		OnTradeClosed: func(trade models.Trade) {
			s.publish(eventpubsub.LiveTradeClosedEvent, eventpubsub.SessionEvent{Timestamp: trade.CloseTime, Trade: &trade})
		},
	}

	if meta.ContinueOnError {
		callbacks.OnError = func(err error) {
			s.publish(eventpubsub.LiveSessionErrorEvent, eventpubsub.SessionEvent{Timestamp: time.Now(), Error: err.Error()})
		}
	}

	s.engine = NewLiveTradingEngine(meta.Symbol, exchange, strategy, portfolio, aggregator, meta.PollInterval, callbacks, metrics)

	return s, nil
}

func (s *LiveSession) publish(topic string, ev eventpubsub.SessionEvent) {
	ev.SessionID = s.ID
	ev.Symbol = s.meta.Symbol
	s.bus.Publish(topic, ev)
}

func (s *LiveSession) setStatus(status models.LiveSessionStatus, errorMessage string) {
	s.mutex.Lock()
	s.status = status
	if errorMessage != "" {
		s.errorMessage = errorMessage
	}
	s.mutex.Unlock()

	s.publish(eventpubsub.LiveSessionStatus, eventpubsub.SessionEvent{Timestamp: time.Now(), Status: status, Error: errorMessage})
}

// Start launches the engine loop on a new goroutine.
func (s *LiveSession) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.done != nil || s.status != models.LiveSessionStatusStarting {
		s.mutex.Unlock()
		return fmt.Errorf("LiveSession.Start: %w: %s", ErrSessionAlreadyStarted, s.ID)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	now := time.Now()

	s.cancel = cancel
	s.done = done
	s.startedAt = &now
	s.mutex.Unlock()

	s.setStatus(models.LiveSessionStatusRunning, "")

	go func() {
		defer close(done)

		err := s.engine.RunForever(runCtx)

		s.mutex.Lock()
		stoppedAt := time.Now()
		if s.stoppedAt == nil {
			s.stoppedAt = &stoppedAt
		}
		s.mutex.Unlock()

		if err != nil {
			log.Errorf("LiveSession %s: engine exited with error: %v", s.ID, err)
			s.release()
			s.publish(eventpubsub.LiveSessionErrorEvent, eventpubsub.SessionEvent{Timestamp: stoppedAt, Error: err.Error()})
			s.setStatus(models.LiveSessionStatusError, err.Error())
			return
		}

		s.setStatus(models.LiveSessionStatusStopped, "")
	}()

	log.Infof("LiveSession %s: started %s %s", s.ID, s.meta.Symbol, s.meta.Timeframe)
	return nil
}

// Stop signals the engine, waits up to timeout for its goroutine, then releases the exchange
// connection and the bar buffer. It reports whether the goroutine exited in time; false means
// the goroutine leaked and is still blocked somewhere.
func (s *LiveSession) Stop(timeout time.Duration) bool {
	s.mutex.Lock()
	done := s.done
	cancel := s.cancel
	s.mutex.Unlock()

	s.engine.Stop()
	if cancel != nil {
		cancel()
	}

	terminated := true
	if done != nil {
		select {
		case <-done:
		case <-time.After(timeout):
			terminated = false
			log.Warnf("LiveSession %s: engine goroutine did not exit within %v, leaked", s.ID, timeout)
		}
	}

	s.release()

	s.mutex.Lock()
	if s.stoppedAt == nil {
		now := time.Now()
		s.stoppedAt = &now
	}
	status := s.status
	s.mutex.Unlock()

	if status != models.LiveSessionStatusError && status != models.LiveSessionStatusStopped {
		s.setStatus(models.LiveSessionStatusStopped, "")
	}

	log.Infof("LiveSession %s: stopped (terminated=%v)", s.ID, terminated)
	return terminated
}

func (s *LiveSession) release() {
	s.releaseOnce.Do(func() {
		if closer, ok := s.exchange.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Warnf("LiveSession %s: failed to close exchange: %v", s.ID, err)
			}
		}

		s.recentBars.Clear()
	})
}

func (s *LiveSession) Status() (models.LiveSessionStatus, string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.status, s.errorMessage
}

func (s *LiveSession) StoppedAt() *time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stoppedAt == nil {
		return nil
	}

	t := *s.stoppedAt
	return &t
}

func (s *LiveSession) Meta() models.LiveSessionMeta {
	return s.meta
}

func (s *LiveSession) Portfolio() *models.PortfolioSimulator {
	return s.portfolio
}

func (s *LiveSession) RecentBars() []models.Bar {
	return s.recentBars.Snapshot()
}

func (s *LiveSession) CurrentBar() *models.Bar {
	return s.aggregator.CurrentBar()
}

func (s *LiveSession) GetResult() models.LiveResult {
	return s.engine.GetResult()
}

func (s *LiveSession) Summary() models.LiveSessionSummary {
	account := s.portfolio.GetAccountSnapshot()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	summary := models.LiveSessionSummary{
		ID:           s.ID,
		Meta:         s.meta,
		Status:       s.status,
		ErrorMessage: s.errorMessage,
		CreatedAt:    s.createdAt,
		Equity:       account.Equity,
		PositionSize: account.PositionSize,
	}

	if s.startedAt != nil {
		t := *s.startedAt
		summary.StartedAt = &t
	}

	if s.stoppedAt != nil {
		t := *s.stoppedAt
		summary.StoppedAt = &t
	}

	return summary
}
