// Package session holds the credential store: the signed-in identity of
// one browser session and its persisted snapshot.
//
// The store never talks to the network. It reads and writes the snapshot
// through a Persistence chosen by a Provider for each request.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/pkg/logger"
)

// DefaultTTL is the fixed lifetime of a persisted snapshot.
const DefaultTTL = 4 * time.Hour

// Store holds the current identity. It is safe for concurrent use.
type Store struct {
	persistence Persistence
	ttl         time.Duration
	log         *zap.SugaredLogger

	mu       sync.RWMutex
	identity *model.Identity
	hydrated bool
}

// NewStore creates an empty store backed by p. A non-positive ttl uses DefaultTTL.
func NewStore(p Persistence, ttl time.Duration, l *zap.SugaredLogger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		persistence: p,
		ttl:         ttl,
		log:         logger.OrNop(l).Named("session"),
	}
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return nil
	}
	cp := *s.identity
	return &cp
}

// IsAuthenticated reports whether an identity is set.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// SetIdentity replaces the identity and overwrites the persisted snapshot.
// An identity that cannot be encoded leaves the store untouched. Otherwise
// the in-memory identity is replaced even if persisting fails.
func (s *Store) SetIdentity(ctx context.Context, identity model.Identity) error {
	value, err := Encode(identity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = &identity
	s.hydrated = true
	s.mu.Unlock()

	if err := s.persistence.Save(ctx, value, s.ttl); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// ClearIdentity drops the identity and invalidates the snapshot. The next
// gate check may hydrate again.
func (s *Store) ClearIdentity(ctx context.Context) error {
	s.mu.Lock()
	s.identity = nil
	s.hydrated = false
	s.mu.Unlock()

	if err := s.persistence.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// LoadFromPersistence reads the snapshot into memory. A missing snapshot
// leaves the store empty. An unreadable or corrupt one is invalidated and
// the store stays empty; no error escapes.
func (s *Store) LoadFromPersistence(ctx context.Context) {
	s.mu.Lock()
	s.hydrated = true
	s.mu.Unlock()

	value, ok, err := s.persistence.Load(ctx)
	if err != nil {
		s.log.Warnw("session load failed", "err", err)
		return
	}
	if !ok {
		return
	}

	identity, err := Decode(value)
	if err != nil {
		s.log.Warnw("discarding corrupt session snapshot", "err", err)
		s.mu.Lock()
		s.identity = nil
		s.mu.Unlock()
		if clearErr := s.persistence.Clear(ctx); clearErr != nil {
			s.log.Warnw("failed to invalidate corrupt session", "err", clearErr)
		}
		return
	}

	s.mu.Lock()
	s.identity = identity
	s.mu.Unlock()
}

// EnsureHydrated loads the snapshot once if no identity is in memory yet.
func (s *Store) EnsureHydrated(ctx context.Context) {
	s.mu.RLock()
	skip := s.identity != nil || s.hydrated
	s.mu.RUnlock()

	if !skip {
		s.LoadFromPersistence(ctx)
	}
}

type contextKey struct{}

// WithStore returns a context carrying s.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the store attached by WithStore, or nil.
func FromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(contextKey{}).(*Store)
	return s
}
