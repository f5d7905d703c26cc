package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/authclient/storage"
)

// DefaultKey is the storage key used when none is configured.
const DefaultKey = "authclient:session"

// ErrPersistFailed is returned when the in-memory session was updated but the
// snapshot could not be written to (or removed from) durable storage.
var ErrPersistFailed = errors.New("session: persist failed")

// Store is the credential store: it holds the current [Session] in memory and
// mirrors every mutation to a single storage key.
//
// Set and Clear are the only paths that touch the storage key. Mutations are
// serialized, and the durable write happens under the same lock so storage
// observes mutations in the same order as memory.
type Store struct {
	mu      sync.RWMutex
	current Session
	backend storage.Storage
	key     string
}

// NewStore returns an empty store persisting to backend under key. An empty
// key selects [DefaultKey]; a nil backend keeps the session in memory only.
func NewStore(backend storage.Storage, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		backend: backend,
		key:     key,
	}
}

// Key returns the storage key this store writes to.
func (s *Store) Key() string {
	return s.key
}

// Get returns a copy of the current session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// AccessToken returns the current access token without copying the session.
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

// RefreshToken returns the current refresh token.
func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RefreshToken
}

// IsAuthenticated reports whether the current session holds an access token.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsAuthenticated()
}

// Set merges p into the session and persists the full snapshot.
//
// The in-memory session is always updated. When the snapshot cannot be
// encoded or written, the previous durable snapshot is left in place and the
// returned error wraps [ErrPersistFailed].
func (s *Store) Set(ctx context.Context, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := p.apply(s.current.clone())
	s.current = next

	if s.backend == nil {
		return nil
	}
	if next.IsZero() {
		if err := s.backend.Delete(ctx, s.key); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistFailed, err)
		}
		return nil
	}

	data, err := Encode(next)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return nil
}

// Clear resets the session to the logged-out state and removes the snapshot.
// It reports whether a session was present before the call.
func (s *Store) Clear(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	had := !s.current.IsZero()
	s.current = Session{}

	if s.backend == nil {
		return had, nil
	}
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return had, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return had, nil
}

// Restore loads the persisted snapshot into memory. It is meant to be called
// once at startup.
//
// A missing, unreadable or unparsable snapshot leaves the store logged out
// and never blocks startup: restored is false and err, when non-nil, only
// explains why a snapshot was discarded. Corrupt snapshots are deleted.
func (s *Store) Restore(ctx context.Context) (restored bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{}
	if s.backend == nil {
		return false, nil
	}

	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	sess, err := Decode(data)
	if err != nil {
		if delErr := s.backend.Delete(ctx, s.key); delErr != nil {
			return false, errors.Join(err, delErr)
		}
		return false, err
	}

	s.current = sess
	return true, nil
}
