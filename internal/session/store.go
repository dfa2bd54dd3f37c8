// Package session keeps per-user resume context in memory. Callers always
// get copies; nothing outside the store shares its state.
package session

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/types"

	"github.com/google/uuid"
)

type record struct {
	sess       types.SessionContext
	storedPath string
	lastSeen   time.Time
}

// Store is a mutex-guarded session map with idle expiry.
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*record
	historyTurns int
	ttl          time.Duration
	onExpire     func(sess types.SessionContext, storedPath string)
	now          func() time.Time
	done         chan struct{}
	closeOnce    sync.Once
	logger       *errors.Logger
}

// NewStore creates a store and, when cleanupInterval is positive, starts
// the goroutine that evicts idle sessions. onExpire may be nil.
func NewStore(cfg config.SessionConfig, logger *errors.Logger, onExpire func(types.SessionContext, string)) *Store {
	s := &Store{
		sessions:     make(map[string]*record),
		historyTurns: cfg.HistoryTurns,
		ttl:          cfg.TTL,
		onExpire:     onExpire,
		now:          time.Now,
		done:         make(chan struct{}),
		logger:       logger,
	}
	if cfg.CleanupInterval > 0 && cfg.TTL > 0 {
		go s.cleanupRoutine(cfg.CleanupInterval)
	}
	return s
}

// Create stores sess under a new id and returns the stored copy.
func (s *Store) Create(sess types.SessionContext, storedPath string) types.SessionContext {
	sess.ID = uuid.NewString()
	if sess.Domain == "" {
		sess.Domain = types.DefaultDomain
	}
	sess.History = s.capHistory(slices.Clone(sess.History))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &record{sess: sess, storedPath: storedPath, lastSeen: s.now()}
	return copySession(sess)
}

// Get returns a copy of the session and marks it active.
func (s *Store) Get(id string) (types.SessionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return types.SessionContext{}, notFound(id)
	}
	rec.lastSeen = s.now()
	return copySession(rec.sess), nil
}

// AppendTurn adds a chat turn, keeping only the most recent ones.
func (s *Store) AppendTurn(id string, turn types.ChatTurn) error {
	if turn.At.IsZero() {
		turn.At = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return notFound(id)
	}
	rec.sess.History = s.capHistory(append(rec.sess.History, turn))
	rec.lastSeen = s.now()
	return nil
}

// Delete removes the session and returns what was stored for it.
func (s *Store) Delete(id string) (types.SessionContext, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok {
		return types.SessionContext{}, "", notFound(id)
	}
	delete(s.sessions, id)
	return copySession(rec.sess), rec.storedPath, nil
}

// Len reports how many sessions are live.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Stats returns store statistics for the stats endpoint.
func (s *Store) Stats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"active_sessions": len(s.sessions),
		"history_turns":   s.historyTurns,
		"ttl_seconds":     s.ttl.Seconds(),
	}
}

func (s *Store) capHistory(history []types.ChatTurn) []types.ChatTurn {
	if s.historyTurns > 0 && len(history) > s.historyTurns {
		return slices.Clone(history[len(history)-s.historyTurns:])
	}
	return history
}

func (s *Store) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle()
		case <-s.done:
			return
		}
	}
}

// evictIdle drops sessions idle for longer than the ttl. The expiry
// callback runs outside the lock.
func (s *Store) evictIdle() int {
	type expired struct {
		sess types.SessionContext
		path string
	}
	var gone []expired

	s.mu.Lock()
	now := s.now()
	for id, rec := range s.sessions {
		if now.Sub(rec.lastSeen) > s.ttl {
			gone = append(gone, expired{rec.sess, rec.storedPath})
			delete(s.sessions, id)
		}
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	for _, e := range gone {
		if s.onExpire != nil {
			s.onExpire(e.sess, e.path)
		}
	}
	if s.logger != nil && len(gone) > 0 {
		s.logger.Debug("Session cleanup completed",
			"expired", len(gone),
			"remaining_sessions", remaining)
	}
	return len(gone)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func copySession(sess types.SessionContext) types.SessionContext {
	sess.History = slices.Clone(sess.History)
	return sess
}

func notFound(id string) error {
	return errors.NewNotFoundError(errors.ErrCodeSessionNotFound,
		fmt.Sprintf("No resume session %q; upload a resume first", id))
}
