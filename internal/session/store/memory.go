package store

import (
	"context"
	"sync"
	"time"
)

type memRecord struct {
	userID     string
	version    int64
	lastSeenAt time.Time
	expiresAt  time.Time
}

// MemoryStore is an in-memory Store implementation. A single mutex serializes
// all record mutation, which satisfies the atomicity requirement trivially.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memRecord
	byUser  map[string]map[string]struct{}
	metaTTL time.Duration
	nowF    func() time.Time
}

// NewMemoryStore returns an in-memory store whose records expire metaTTL
// after their last touch.
func NewMemoryStore(metaTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*memRecord),
		byUser:  make(map[string]map[string]struct{}),
		metaTTL: metaTTL,
		nowF:    func() time.Time { return time.Now().UTC() },
	}
}

// live returns the record for sessionID if present and unexpired, deleting
// lapsed entries on the way. Caller must hold mu.
func (s *MemoryStore) live(sessionID string, now time.Time) *memRecord {
	rec, ok := s.records[sessionID]
	if !ok {
		return nil
	}
	if !rec.expiresAt.After(now) {
		delete(s.records, sessionID)
		if set, ok := s.byUser[rec.userID]; ok {
			delete(set, sessionID)
		}
		return nil
	}
	return rec
}

func (s *MemoryStore) Create(ctx context.Context, userID, sessionID string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	s.records[sessionID] = &memRecord{
		userID:     userID,
		version:    version,
		lastSeenAt: now,
		expiresAt:  now.Add(s.metaTTL),
	}
	set, ok := s.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		s.byUser[userID] = set
	}
	set[sessionID] = struct{}{}
	return nil
}

func (s *MemoryStore) Touch(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	rec := s.live(sessionID, now)
	if rec == nil {
		return ErrNotFound
	}
	rec.lastSeenAt = now
	rec.expiresAt = now.Add(s.metaTTL)
	return nil
}

func (s *MemoryStore) IncrementVersion(ctx context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	rec := s.live(sessionID, now)
	if rec == nil {
		// Missing record counts as version 0; the increment recreates it so the
		// revocation sticks even if the meta record already lapsed.
		rec = &memRecord{}
		s.records[sessionID] = rec
	}
	rec.version++
	rec.lastSeenAt = now
	rec.expiresAt = now.Add(s.metaTTL)
	return rec.version, nil
}

func (s *MemoryStore) GetVersion(ctx context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.live(sessionID, s.nowF())
	if rec == nil {
		return 0, ErrNotFound
	}
	return rec.version, nil
}

func (s *MemoryStore) ValidateAndTouch(ctx context.Context, sessionID string, presentedVersion int64, idleTimeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	rec := s.live(sessionID, now)
	if rec == nil {
		return false, nil
	}
	if rec.version != presentedVersion {
		return false, nil
	}
	if now.Sub(rec.lastSeenAt) > idleTimeout {
		return false, nil
	}
	rec.lastSeenAt = now
	rec.expiresAt = now.Add(s.metaTTL)
	return true, nil
}

func (s *MemoryStore) SessionsForUser(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	var out []string
	for sid := range s.byUser[userID] {
		if s.live(sid, now) != nil {
			out = append(out, sid)
		}
	}
	return out, nil
}
