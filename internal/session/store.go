package session

import (
	"context"
	"sync"
	"time"
)

// Store tracks which session ids are still active.
type Store interface {
	Save(ctx context.Context, sid string, userID int, ttl time.Duration) error
	Lookup(ctx context.Context, sid string) (int, bool, error)
	Delete(ctx context.Context, sid string) error
}

type memoryEntry struct {
	userID    int
	expiresAt time.Time
}

// MemoryStore is the in-process Store used when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sid string, userID int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[sid] = memoryEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, sid string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sid]
	if !ok {
		return 0, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, sid)
		return 0, false, nil
	}
	return e.userID, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sid)
	return nil
}

// sweep drops expired entries; caller holds mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for sid, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, sid)
		}
	}
}
