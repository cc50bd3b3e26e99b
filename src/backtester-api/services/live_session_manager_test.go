package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/strategy-engine/src/backtester-api/mock"
	"github.com/jiaming2012/strategy-engine/src/backtester-api/models"
)

func newTestManager(maxSessions int, ttl time.Duration) *LiveSessionManager {
	return NewLiveSessionManager(context.Background(), LiveSessionManagerConfig{
		MaxSessions: maxSessions,
		SessionTTL:  ttl,
		StopTimeout: time.Second,
	}, nil, nil)
}

func TestLiveSessionManager(t *testing.T) {
	t.Run("enforces the session limit", func(t *testing.T) {
		manager := newTestManager(1, time.Hour)
		defer manager.Shutdown(time.Second)

		first, err := manager.CreateSession(testSessionMeta(), mock.NewMockExchange(100), mock.NewMockStrategy(nil))
		require.NoError(t, err)

		_, err = manager.CreateSession(testSessionMeta(), mock.NewMockExchange(100), mock.NewMockStrategy(nil))
		assert.ErrorIs(t, err, ErrMaxSessionsReached)

		terminated, err := manager.StopSession(first.ID)
		require.NoError(t, err)
		assert.True(t, terminated)

		_, err = manager.CreateSession(testSessionMeta(), mock.NewMockExchange(100), mock.NewMockStrategy(nil))
		require.NoError(t, err)

		assert.Len(t, manager.ListSessions(), 2)
	})

	t.Run("evicts sessions stopped longer than the ttl", func(t *testing.T) {
		manager := newTestManager(10, time.Minute)
		defer manager.Shutdown(time.Second)

		stopped, err := manager.CreateSession(testSessionMeta(), mock.NewMockExchange(100), mock.NewMockStrategy(nil))
		require.NoError(t, err)

		running, err := manager.CreateSession(testSessionMeta(), mock.NewMockExchange(100), mock.NewMockStrategy(nil))
		require.NoError(t, err)

		_, err = manager.StopSession(stopped.ID)
		require.NoError(t, err)

		assert.Equal(t, 0, manager.CleanupExpired())

		manager.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		assert.Equal(t, 1, manager.CleanupExpired())

		_, err = manager.GetSession(stopped.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)

		_, err = manager.GetSession(running.ID)
		assert.NoError(t, err)
	})

	t.Run("evicts errored sessions before admitting a new one", func(t *testing.T) {
		manager := newTestManager(10, time.Minute)
		defer manager.Shutdown(time.Second)

		exchange := mock.NewMockExchange(100)
		exchange.SetPriceError(fmt.Errorf("exchange down"))

		failed, err := manager.CreateSession(testSessionMeta(), exchange, mock.NewMockStrategy(nil))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			status, _ := failed.Status()
			return status == models.LiveSessionStatusError
		}, 2*time.Second, time.Millisecond)

		manager.now = func() time.Time { return time.Now().Add(time.Hour) }

		_, err = manager.CreateSession(testSessionMeta(), mock.NewMockExchange(100), mock.NewMockStrategy(nil))
		require.NoError(t, err)

		_, err = manager.GetSession(failed.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.True(t, exchange.IsClosed())
	})

	t.Run("remove stops and forgets a session", func(t *testing.T) {
		manager := newTestManager(10, time.Hour)

		exchange := mock.NewMockExchange(100)
		session, err := manager.CreateSession(testSessionMeta(), exchange, mock.NewMockStrategy(nil))
		require.NoError(t, err)

		require.NoError(t, manager.RemoveSession(session.ID))

		assert.True(t, exchange.IsClosed())
		assert.Empty(t, manager.ListSessions())
		assert.ErrorIs(t, manager.RemoveSession(session.ID), ErrSessionNotFound)
	})

	t.Run("unknown ids", func(t *testing.T) {
		manager := newTestManager(10, time.Hour)

		_, err := manager.StopSession(uuid.New())
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("shutdown stops every session", func(t *testing.T) {
		manager := newTestManager(10, time.Hour)

		var sessions []*LiveSession
		for i := 0; i < 3; i++ {
			s, err := manager.CreateSession(testSessionMeta(), mock.NewMockExchange(100), mock.NewMockStrategy(nil))
			require.NoError(t, err)
			sessions = append(sessions, s)
		}

		assert.Equal(t, 0, manager.Shutdown(time.Second))

		for _, s := range sessions {
			status, _ := s.Status()
			assert.Equal(t, models.LiveSessionStatusStopped, status)
		}
	})

	t.Run("list is ordered by creation time", func(t *testing.T) {
		manager := newTestManager(10, time.Hour)
		defer manager.Shutdown(time.Second)

		var ids []uuid.UUID
		for i := 0; i < 3; i++ {
			s, err := manager.CreateSession(testSessionMeta(), mock.NewMockExchange(100), mock.NewMockStrategy(nil))
			require.NoError(t, err)
			ids = append(ids, s.ID)
			time.Sleep(time.Millisecond)
		}

		summaries := manager.ListSessions()
		require.Len(t, summaries, 3)
		for i, summary := range summaries {
			assert.Equal(t, ids[i], summary.ID)
		}
	})
}
