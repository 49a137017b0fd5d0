package kvstore

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
)

// LocalStore is an in-memory Store used when no Redis URL is configured.
// Entries live for the process lifetime at most; expiry is enforced lazily
// on Get. Safe for concurrent use.
type LocalStore struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	now     func() time.Time
}

type localEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e localEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

var _ Store = (*LocalStore)(nil)

type LocalStoreOption func(*LocalStore)

// WithNowFunc overrides the clock (for tests).
func WithNowFunc(now func() time.Time) LocalStoreOption {
	return func(s *LocalStore) {
		s.now = now
	}
}

func NewLocalStore(options ...LocalStoreOption) *LocalStore {
	s := &LocalStore{
		entries: make(map[string]localEntry),
		now:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if now := s.now(); e.expired(now) {
		s.mu.Lock()
		// Re-read under the write lock: a Set may have replaced the entry
		// since the read above, and a fresh record must not be dropped.
		cur, ok := s.entries[key]
		if ok && cur.expired(now) {
			delete(s.entries, key)
			ok = false
		}
		s.mu.Unlock()
		if !ok {
			return nil, apperrors.ErrNotFound
		}
		e = cur
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, nil
}

func (s *LocalStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := localEntry{value: make([]byte, len(value))}
	copy(e.value, value)
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
