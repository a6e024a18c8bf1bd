package rate

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count   int64
	firstAt time.Time
}

// MemoryStore keeps counters in process memory. Counters vanish on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	window  time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. window <= 0 disables expiry.
func NewMemoryStore(window time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		window:  window,
		now:     now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key)
	if !ok {
		e = memoryEntry{firstAt: s.now()}
	}
	e.count++
	s.entries[key] = e
	return e.count, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}

// live must be called with s.mu held.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if s.window > 0 && s.now().Sub(e.firstAt) >= s.window {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}
