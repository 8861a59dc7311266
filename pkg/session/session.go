// Package session holds the dashboard state of one viewer: the loaded record set,
// the active filter and the view derived from both.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/loader"
	"github.com/canopy-network/hydrodash/pkg/production"
	"github.com/canopy-network/hydrodash/pkg/utils"
)

// ErrSuperseded is returned by a load that finished after a newer load had started.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Messages shown to users when a load fails.
const (
	MsgURLLoadFailed  = "Error al cargar desde URL"
	MsgFileLoadFailed = "Error al cargar el CSV"
)

// Event types published after state changes.
const (
	EventDatasetLoaded = "dataset.loaded"
	EventViewUpdated   = "view.updated"
	EventDatasetError  = "dataset.error"
)

// Status is a point-in-time summary of a session.
type Status struct {
	ID         string            `json:"id"`
	Loading    bool              `json:"isLoading"`
	Error      string            `json:"error,omitempty"`
	Records    int               `json:"records"`
	Source     string            `json:"source,omitempty"`
	LoadedAt   *time.Time        `json:"loadedAt,omitempty"`
	Generation uint64            `json:"generation"`
	Filter     production.Filter `json:"filters"`
}

// Event is published through a Notifier after every commit or filter change.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"sessionId"`
	Status    Status    `json:"status"`
	At        time.Time `json:"at"`
}

// Notifier receives session events. Implementations must not block for long.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Session owns one record set and everything derived from it.
// Fetches run outside the lock; commits and recomputation run under it.
type Session struct {
	id       string
	fetcher  loader.Fetcher
	logger   *zap.Logger
	notifier Notifier
	lastSeen atomic.Int64

	mu         sync.RWMutex
	records    []production.Record
	filter     production.Filter
	view       production.View
	hasData    bool
	source     string
	loadedAt   time.Time
	generation uint64
	loading    bool
	lastErr    string
}

// New returns an empty session. notifier may be nil.
func New(id string, fetcher loader.Fetcher, logger *zap.Logger, notifier Notifier) *Session {
	s := &Session{
		id:       id,
		fetcher:  fetcher,
		logger:   logger.With(zap.String("session", id)),
		notifier: notifier,
		records:  []production.Record{},
		view:     production.Aggregate(nil, production.Filter{}),
	}
	s.Touch()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Touch records an access to the session.
func (s *Session) Touch() { s.lastSeen.Store(time.Now().UnixNano()) }

// LastSeen returns the time of the latest access.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Load fetches source, parses it and replaces the record set. Only the most recently
// started load commits; earlier ones return ErrSuperseded. On failure the previous
// record set stays in place and a generic message is recorded.
func (s *Session) Load(ctx context.Context, source string) error {
	return s.LoadFrom(ctx, source, s.fetcher)
}

// LoadFrom is Load with the text fetched through f instead of the session's fetcher.
func (s *Session) LoadFrom(ctx context.Context, source string, f loader.Fetcher) error {
	gen := s.begin()

	msg := MsgFileLoadFailed
	if utils.IsRemote(source) {
		msg = MsgURLLoadFailed
	}

	text, err := f.Fetch(ctx, source)
	if err != nil {
		return s.fail(ctx, gen, source, msg, err)
	}
	return s.commit(ctx, gen, source, production.Parse(text))
}

// LoadText parses already available text, e.g. an uploaded file, and replaces the record set.
func (s *Session) LoadText(ctx context.Context, text, source string) error {
	gen := s.begin()
	return s.commit(ctx, gen, source, production.Parse(text))
}

// Seed copies the committed dataset and the filter of from into s.
// It is a no-op when from has nothing committed.
func (s *Session) Seed(ctx context.Context, from *Session) {
	from.mu.RLock()
	records, source, filter, ok := from.records, from.source, from.filter, from.hasData
	from.mu.RUnlock()
	if !ok {
		return
	}

	gen := s.begin()
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	_ = s.commit(ctx, gen, source, records)
}

// SetFilter replaces the filter and recomputes the view.
func (s *Session) SetFilter(ctx context.Context, f production.Filter) {
	s.mu.Lock()
	s.filter = f
	s.view = production.Aggregate(s.records, f)
	status := s.statusLocked()
	s.mu.Unlock()

	s.notify(ctx, EventViewUpdated, status)
}

// ResetFilter clears every filter dimension.
func (s *Session) ResetFilter(ctx context.Context) {
	s.SetFilter(ctx, production.Filter{})
}

// View returns the current view and whether any dataset has been committed.
func (s *Session) View() (production.View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.hasData
}

// Filter returns the active filter.
func (s *Session) Filter() production.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Records returns the full, unfiltered record set. Callers must not modify it.
func (s *Session) Records() []production.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// Options returns the selectable filter values of the loaded record set.
func (s *Session) Options() production.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return production.AvailableOptions(s.records)
}

// Source returns the source of the committed dataset, "" if none.
func (s *Session) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Status returns a summary of the session.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusLocked()
}

func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.loading = true
	s.lastErr = ""
	return s.generation
}

func (s *Session) commit(ctx context.Context, gen uint64, source string, records []production.Record) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("Discarding superseded load",
			zap.String("source", source),
			zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	s.records = records
	s.view = production.Aggregate(records, s.filter)
	s.hasData = true
	s.source = source
	s.loadedAt = time.Now().UTC()
	s.loading = false
	status := s.statusLocked()
	s.mu.Unlock()

	s.logger.Info("Dataset loaded",
		zap.String("source", source),
		zap.Int("records", len(records)),
		zap.Uint64("generation", gen))
	s.notify(ctx, EventDatasetLoaded, status)
	return nil
}

func (s *Session) fail(ctx context.Context, gen uint64, source, msg string, cause error) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.loading = false
	s.lastErr = msg
	status := s.statusLocked()
	s.mu.Unlock()

	s.logger.Warn("Dataset load failed",
		zap.String("source", source),
		zap.Uint64("generation", gen),
		zap.Error(cause))
	s.notify(ctx, EventDatasetError, status)
	return fmt.Errorf("load %s: %w", source, cause)
}

func (s *Session) statusLocked() Status {
	st := Status{
		ID:         s.id,
		Loading:    s.loading,
		Error:      s.lastErr,
		Records:    len(s.records),
		Source:     s.source,
		Generation: s.generation,
		Filter:     s.filter,
	}
	if s.hasData {
		at := s.loadedAt
		st.LoadedAt = &at
	}
	return st
}

func (s *Session) notify(ctx context.Context, typ string, status Status) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, Event{Type: typ, SessionID: s.id, Status: status, At: time.Now().UTC()})
}
