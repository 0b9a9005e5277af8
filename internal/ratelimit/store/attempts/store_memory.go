// Package attempts stores per-identity attempt records in a bounded LRU
// cache, so memory stays bounded no matter how many distinct identities are
// observed. When the cache is full, the least-recently-touched identity is
// evicted to admit a new one.
package attempts

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return (nil, nil) when the requested identity has no record
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures

// InMemoryAttemptStore is a capacity-bounded, TTL-aware record store.
type InMemoryAttemptStore struct {
	mu        sync.Mutex
	cache     *lru.Cache[string, *models.AttemptRecord]
	ttl       time.Duration
	evictions atomic.Uint64
}

// New constructs a store holding at most capacity identities. Records also
// self-expire after ttl (the limiter's window length), enforced lazily on
// read and eagerly by the cleanup worker.
func New(capacity int, ttl time.Duration) (*InMemoryAttemptStore, error) {
	if capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attempt store capacity must be positive")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attempt store ttl must be positive")
	}

	cache, err := lru.New[string, *models.AttemptRecord](capacity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create attempt cache")
	}
	return &InMemoryAttemptStore{ttl: ttl, cache: cache}, nil
}

// Get returns the record for an identity, bumping its recency.
// Expired, non-blocked records are dropped as if never seen.
func (s *InMemoryAttemptStore) Get(_ context.Context, identity string, now time.Time) (*models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.cache.Get(identity)
	if !ok {
		return nil, nil
	}
	if s.expired(record, now) {
		s.cache.Remove(identity)
		return nil, nil
	}
	return record, nil
}

// Peek returns the record without bumping recency, for read-only decisions.
func (s *InMemoryAttemptStore) Peek(_ context.Context, identity string, now time.Time) (*models.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.cache.Peek(identity)
	if !ok || s.expired(record, now) {
		return nil, nil
	}
	return record, nil
}

// Put inserts or replaces a record, possibly evicting the least-recently
// touched identity when at capacity.
func (s *InMemoryAttemptStore) Put(_ context.Context, record *models.AttemptRecord) error {
	if record == nil || record.Identity == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "attempt record requires an identity")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Add(record.Identity, record) {
		s.evictions.Add(1)
	}
	return nil
}

// Clear removes one identity's record. Clearing a never-seen identity is a
// no-op.
func (s *InMemoryAttemptStore) Clear(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(identity)
	return nil
}

// ClearAll removes every record.
func (s *InMemoryAttemptStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	return nil
}

// Len returns the number of tracked identities.
func (s *InMemoryAttemptStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len(), nil
}

// Sweep removes expired records eagerly and returns how many were dropped.
// The cleanup worker calls this on a ticker; capacity pressure and lazy
// expiry on read keep the store correct even if it never runs.
func (s *InMemoryAttemptStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, identity := range s.cache.Keys() {
		record, ok := s.cache.Peek(identity)
		if !ok {
			continue
		}
		if s.expired(record, now) {
			s.cache.Remove(identity)
			removed++
		}
	}
	return removed, nil
}

// Evictions returns the number of capacity evictions since construction.
func (s *InMemoryAttemptStore) Evictions() uint64 {
	return s.evictions.Load()
}

// expired reports whether a record's TTL has lapsed. Blocked records are
// retained until the block deadline passes, whichever is later.
func (s *InMemoryAttemptStore) expired(record *models.AttemptRecord, now time.Time) bool {
	deadline := record.LastAttempt.Add(s.ttl)
	if record.BlockedUntil != nil && record.BlockedUntil.After(deadline) {
		deadline = *record.BlockedUntil
	}
	return now.After(deadline)
}
