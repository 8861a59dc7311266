package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/loader"
)

// DefaultID names the session created at startup.
const DefaultID = "default"

// Store is the single owner of all live sessions.
type Store struct {
	sessions *xsync.Map[string, *Session]
	fetcher  loader.Fetcher
	notifier Notifier
	logger   *zap.Logger
}

// NewStore returns a store holding only the default session.
func NewStore(fetcher loader.Fetcher, logger *zap.Logger, notifier Notifier) *Store {
	st := &Store{
		sessions: xsync.NewMap[string, *Session](),
		fetcher:  fetcher,
		notifier: notifier,
		logger:   logger,
	}
	st.GetOrCreate(context.Background(), DefaultID)
	return st
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// GetOrCreate returns the session for id, creating it when absent.
// New sessions start with the default session's dataset.
func (st *Store) GetOrCreate(ctx context.Context, id string) *Session {
	s, loaded := st.sessions.LoadOrCompute(id, func() (*Session, bool) {
		return New(id, st.fetcher, st.logger, st.notifier), false
	})
	if loaded {
		s.Touch()
		return s
	}
	st.logger.Debug("Session created", zap.String("session", id))
	if id != DefaultID {
		if def, ok := st.sessions.Load(DefaultID); ok {
			s.Seed(ctx, def)
		}
	}
	return s
}

// Get returns the session for id if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	s, ok := st.sessions.Load(id)
	if ok {
		s.Touch()
	}
	return s, ok
}

// Default returns the session created at startup.
func (st *Store) Default() *Session {
	s, _ := st.sessions.Load(DefaultID)
	return s
}

// Range calls f for every session until f returns false.
func (st *Store) Range(f func(s *Session) bool) {
	st.sessions.Range(func(_ string, s *Session) bool {
		return f(s)
	})
}

// Delete drops a session. The default session cannot be deleted.
func (st *Store) Delete(id string) bool {
	if id == DefaultID {
		return false
	}
	_, loaded := st.sessions.LoadAndDelete(id)
	return loaded
}

// Evict drops every session other than the default one that has not been
// accessed for longer than idle. It returns the number of sessions dropped.
func (st *Store) Evict(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	var stale []string
	st.sessions.Range(func(id string, s *Session) bool {
		if id != DefaultID && s.LastSeen().Before(cutoff) {
			stale = append(stale, id)
		}
		return true
	})

	evicted := 0
	for _, id := range stale {
		// Re-checked under the bucket lock: a session touched since the scan stays.
		st.sessions.Compute(id, func(s *Session, loaded bool) (*Session, xsync.ComputeOp) {
			if !loaded || !s.LastSeen().Before(cutoff) {
				return s, xsync.CancelOp
			}
			evicted++
			return s, xsync.DeleteOp
		})
	}
	if evicted > 0 {
		st.logger.Info("Evicted idle sessions", zap.Int("evicted", evicted), zap.Int("remaining", st.Len()))
	}
	return evicted
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.sessions.Size()
}
