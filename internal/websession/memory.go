package websession

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	wc        *Context
	expiresAt time.Time
}

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	nowF    func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Put(ctx context.Context, id string, wc *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *wc
	s.entries[id] = memEntry{wc: &cp, expiresAt: s.nowF().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !e.expiresAt.After(s.nowF()) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	cp := *e.wc
	return &cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}
