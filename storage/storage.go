// Package storage caches decoded packfile objects across Fetch calls so a
// client that re-requests an object it already has does not pay for another
// round trip and decompression.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/anni-dev/anni-fetch/protocol"
	"github.com/anni-dev/anni-fetch/protocol/hash"
)

// PackfileStorage is the cache a Client consults before issuing a fetch and
// populates with whatever the fetch decodes. Add is variadic so a full
// packfile decode can be stored in one call.
type PackfileStorage interface {
	Get(key hash.Hash) (*protocol.PackfileObject, bool)
	GetAllKeys() []hash.Hash
	Add(objs ...*protocol.PackfileObject)
	Delete(key hash.Hash)
	Len() int
}

// Option configures an InMemoryStorage at construction time.
type Option func(*InMemoryStorage)

// WithTTL evicts an object after it has gone unread for d. A Get refreshes
// the object's expiry; an object that is never read again is reaped by the
// background sweep started in NewInMemoryStorage. Without this option
// objects never expire.
func WithTTL(d time.Duration) Option {
	return func(s *InMemoryStorage) {
		s.ttl = d
	}
}

type packfileEntry struct {
	object    *protocol.PackfileObject
	expiresAt time.Time
}

// InMemoryStorage is a process-local PackfileStorage backed by a map.
type InMemoryStorage struct {
	mu      sync.Mutex
	objects map[string]*packfileEntry
	ttl     time.Duration
}

// NewInMemoryStorage creates an empty InMemoryStorage. When WithTTL is given,
// a background goroutine sweeps expired entries until ctx is done.
func NewInMemoryStorage(ctx context.Context, opts ...Option) *InMemoryStorage {
	s := &InMemoryStorage{
		objects: make(map[string]*packfileEntry),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.ttl > 0 {
		go s.sweep(ctx)
	}

	return s
}

func (s *InMemoryStorage) sweep(ctx context.Context) {
	interval := s.ttl / 2
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *InMemoryStorage) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.objects {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.objects, key)
		}
	}
}

// Get returns the object for key, refreshing its TTL if one is configured.
func (s *InMemoryStorage) Get(key hash.Hash) (*protocol.PackfileObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.objects[key.String()]
	if !ok {
		return nil, false
	}

	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}

	return entry.object, true
}

// GetAllKeys returns the hash of every object currently stored.
func (s *InMemoryStorage) GetAllKeys() []hash.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]hash.Hash, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, hash.MustFromHex(key))
	}

	return keys
}

// Add stores objs, starting (or restarting) each one's TTL.
func (s *InMemoryStorage) Add(objs ...*protocol.PackfileObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = time.Now().Add(s.ttl)
	}

	for _, obj := range objs {
		s.objects[obj.Hash.String()] = &packfileEntry{object: obj, expiresAt: expiresAt}
	}
}

// Delete removes the object for key, if present.
func (s *InMemoryStorage) Delete(key hash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key.String())
}

// Len returns the number of objects currently stored.
func (s *InMemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.objects)
}
