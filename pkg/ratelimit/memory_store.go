package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore Redis olmayan ortamlar için süreç-içi sayaç. Limitler instance
// başınadır, global değil. Eski kayıtlar periyodik olarak temizlenir.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	// testlerde saat enjekte edilebilir
	now func() time.Time
}

type memoryEntry struct {
	count   int
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
	go s.cleanup()
	return s
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, exists := s.entries[key]
	if !exists || now.After(entry.resetAt) {
		entry = &memoryEntry{count: 0, resetAt: now.Add(window)}
		s.entries[key] = entry
	}

	entry.count++
	return entry.count, entry.resetAt, nil
}

func (s *MemoryStore) cleanup() {
	for {
		time.Sleep(time.Minute)
		s.mu.Lock()
		now := s.now()
		for key, entry := range s.entries {
			if now.After(entry.resetAt) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}
