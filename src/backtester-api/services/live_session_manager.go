package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
	"github.com/jiaming2012/strategy-engine/src/eventpubsub"
	"github.com/jiaming2012/strategy-engine/src/telemetry"
)

type LiveSessionManagerConfig struct {
	MaxSessions int           `yaml:"max_sessions"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

func DefaultLiveSessionManagerConfig() LiveSessionManagerConfig {
	return LiveSessionManagerConfig{
		MaxSessions: 10,
		SessionTTL:  time.Hour,
		StopTimeout: 5 * time.Second,
	}
}

// LiveSessionManager owns every live session of the process. Sessions that have stopped, or
// ended in error, are evicted once they have been down for longer than the TTL.
type LiveSessionManager struct {
	ctx      context.Context
	cfg      LiveSessionManagerConfig
	bus      *eventpubsub.Bus
	metrics  *telemetry.EngineMetrics
	now      func() time.Time
	mutex    sync.Mutex
	sessions map[uuid.UUID]*LiveSession
}

// NewLiveSessionManager creates a manager whose sessions run until they are stopped or ctx is
// cancelled.
func NewLiveSessionManager(ctx context.Context, cfg LiveSessionManagerConfig, bus *eventpubsub.Bus, metrics *telemetry.EngineMetrics) *LiveSessionManager {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultLiveSessionManagerConfig().StopTimeout
	}

	return &LiveSessionManager{
		ctx:      ctx,
		cfg:      cfg,
		bus:      bus,
		metrics:  metrics,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*LiveSession),
	}
}

func (m *LiveSessionManager) activeCountLocked() int {
	count := 0
	for _, s := range m.sessions {
		status, _ := s.Status()
		if status.IsActive() {
			count++
		}
	}

	return count
}

// CreateSession evicts expired sessions, enforces the session limit, then starts a new session.
func (m *LiveSessionManager) CreateSession(meta models.LiveSessionMeta, exchange models.IExchange, strategy models.IStrategy) (*LiveSession, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cleanupExpiredLocked()

	if m.cfg.MaxSessions > 0 && m.activeCountLocked() >= m.cfg.MaxSessions {
		return nil, fmt.Errorf("CreateSession: %w (%d)", ErrMaxSessionsReached, m.cfg.MaxSessions)
	}

	session, err := NewLiveSession(meta, exchange, strategy, m.bus, m.metrics)
	if err != nil {
		return nil, fmt.Errorf("CreateSession: %w", err)
	}

	if err := session.Start(m.ctx); err != nil {
		return nil, fmt.Errorf("CreateSession: %w", err)
	}

	m.sessions[session.ID] = session
	log.Infof("LiveSessionManager: created session %s (%d total)", session.ID, len(m.sessions))

	return session, nil
}

func (m *LiveSessionManager) GetSession(id uuid.UUID) (*LiveSession, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("GetSession: %w: %s", ErrSessionNotFound, id)
	}

	return session, nil
}

func (m *LiveSessionManager) ListSessions() []models.LiveSessionSummary {
	m.mutex.Lock()
	sessions := make([]*LiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.Unlock()

	summaries := make([]models.LiveSessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, s.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})

	return summaries
}

// StopSession stops a session but keeps it registered until it expires or is removed.
// The returned bool reports whether the session goroutine exited within the stop timeout.
func (m *LiveSessionManager) StopSession(id uuid.UUID) (bool, error) {
	session, err := m.GetSession(id)
	if err != nil {
		return false, fmt.Errorf("StopSession: %w", err)
	}

	return session.Stop(m.cfg.StopTimeout), nil
}

func (m *LiveSessionManager) RemoveSession(id uuid.UUID) error {
	m.mutex.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mutex.Unlock()

	if !ok {
		return fmt.Errorf("RemoveSession: %w: %s", ErrSessionNotFound, id)
	}

	if status, _ := session.Status(); status.IsActive() {
		session.Stop(m.cfg.StopTimeout)
	}

	log.Infof("LiveSessionManager: removed session %s", id)
	return nil
}

// CleanupExpired evicts stopped and errored sessions older than the TTL and returns how many
// were removed.
func (m *LiveSessionManager) CleanupExpired() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.cleanupExpiredLocked()
}

func (m *LiveSessionManager) cleanupExpiredLocked() int {
	if m.cfg.SessionTTL <= 0 {
		return 0
	}

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		status, _ := s.Status()
		if status.IsActive() {
			continue
		}

		stoppedAt := s.StoppedAt()
		if stoppedAt == nil || now.Sub(*stoppedAt) <= m.cfg.SessionTTL {
			continue
		}

		// the goroutine is already done, this only releases the exchange and the bar buffer
		s.release()
		delete(m.sessions, id)
		removed++

		log.Infof("LiveSessionManager: evicted %s session %s", status, id)
	}

	return removed
}

// Shutdown stops every session concurrently and returns the number of sessions whose
// goroutine did not exit within timeout.
func (m *LiveSessionManager) Shutdown(timeout time.Duration) int {
	m.mutex.Lock()
	sessions := make([]*LiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.Unlock()

	var wg sync.WaitGroup
	var leakedMutex sync.Mutex
	leaked := 0

	for _, s := range sessions {
		wg.Add(1)
		go func(s *LiveSession) {
			defer wg.Done()
			if !s.Stop(timeout) {
				leakedMutex.Lock()
				leaked++
				leakedMutex.Unlock()
			}
		}(s)
	}

	wg.Wait()

	log.Infof("LiveSessionManager: shut down %d sessions (%d leaked)", len(sessions), leaked)
	return leaked
}
