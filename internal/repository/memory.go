package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiterStore is the in-process fallback counter used when redis is
// unavailable. Windows reset lazily on access.
type MemoryLimiterStore struct {
	entries sync.Map
}

type limiterEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func NewMemoryLimiterStore() *MemoryLimiterStore {
	return &MemoryLimiterStore{}
}

func (r *MemoryLimiterStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	val, _ := r.entries.LoadOrStore(key, &limiterEntry{})
	entry := val.(*limiterEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}

	return entry.count <= limit, nil
}
