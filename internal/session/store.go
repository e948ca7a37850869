package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"campaignpulse/pkg/contracts/domain"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// Session is the state one dashboard user accumulates across uploads.
// Table is the raw merged upload and Dataset its validated form; both are
// replaced wholesale and never mutated after being stored.
type Session struct {
	ID         string                  `json:"session_id"`
	CreatedAt  time.Time               `json:"created_at"`
	LastAccess time.Time               `json:"last_access"`
	Files      []string                `json:"files"`
	SchemaName string                  `json:"schema,omitempty"`
	Table      *domain.Table           `json:"-"`
	Dataset    *domain.CampaignDataset `json:"-"`
}

// HasDataset reports whether a validated dataset is loaded.
func (s *Session) HasDataset() bool {
	return s.Dataset != nil
}

// Store is an in-memory session store with idle expiry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

// NewStore creates a store whose sessions expire after ttl without access.
// A zero ttl disables expiry.
func NewStore(logger *slog.Logger, ttl time.Duration) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Create starts a new empty session.
func (s *Store) Create() *Session {
	now := s.now()
	sess := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		LastAccess: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("Session created", slog.String("session_id", sess.ID))

	sessionCopy := *sess
	return &sessionCopy
}

// Get returns a copy of the session and refreshes its last access time.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.LastAccess = s.now()

	sessionCopy := *sess
	return &sessionCopy, nil
}

// Update runs fn on a copy of the session with the store locked and stores
// the copy if fn succeeds. Concurrent updates to one session are serialized.
func (s *Store) Update(id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	next := *sess
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.LastAccess = s.now()
	s.sessions[id] = &next

	result := next
	return &result, nil
}

// Delete ends a session and drops its dataset.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return ErrNotFound
	}
	delete(s.sessions, id)

	s.logger.Debug("Session deleted", slog.String("session_id", id))
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.LastAccess.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Start runs the expiry janitor until ctx is done or Close is called.
func (s *Store) Start(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}

	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.janitor(ctx, interval)
	})
}

func (s *Store) janitor(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.InfoContext(ctx, "Expired idle sessions",
					slog.Int("removed", n),
					slog.Int("remaining", s.Len()))
			}
		}
	}
}

// Close stops the janitor started by Start and waits for it to exit.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if started {
		<-s.done
	}
}

// lookup must be called with mu held and treats expired sessions as missing.
func (s *Store) lookup(id string) (*Session, error) {
	sess, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(sess.LastAccess) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return sess, nil
}
