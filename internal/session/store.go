// Package session keeps the last successful diagnosis of each UI session so
// a re-render does not trigger another model call.  Entries expire; nothing
// here is a patient record store.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"mdx-assistant/pkg"
)

const (
	// DefaultTTL bounds how long a session result stays available.
	DefaultTTL = time.Hour
	// DefaultMaxEntries bounds how many sessions a MemoryStore holds; the
	// least recently used result is evicted first.
	DefaultMaxEntries = 10000
)

// ErrNotFound is returned when a session has no cached result.
var ErrNotFound = errors.New("session result not found")

// Store caches one submission per session.
type Store interface {
	Get(ctx context.Context, sessionID string) (*pkg.Submission, error)
	Put(ctx context.Context, sub *pkg.Submission) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is a process-local Store bounded in size and age.  Expired
// results are evicted in the background whether or not they are read again.
type MemoryStore struct {
	cache *expirable.LRU[string, *pkg.Submission]
}

// NewMemoryStore returns an empty MemoryStore.  Zero values select
// DefaultMaxEntries and DefaultTTL.
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: expirable.NewLRU[string, *pkg.Submission](maxEntries, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*pkg.Submission, error) {
	sub, ok := s.cache.Get(sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	return sub, nil
}

func (s *MemoryStore) Put(_ context.Context, sub *pkg.Submission) error {
	if sub == nil || sub.SessionID == "" {
		return errors.New("submission without session id")
	}
	s.cache.Add(sub.SessionID, sub)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.cache.Remove(sessionID)
	return nil
}

// Len reports how many results are held, including expired ones not yet
// evicted.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
