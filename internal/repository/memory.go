package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is the single-process fallback lock. Expiry mirrors the redis
// TTL semantics so a crashed run does not wedge its sync forever.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[int64]time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[int64]time.Time)}
}

func (m *MemoryLocker) Acquire(ctx context.Context, syncID int64, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, ok := m.locks[syncID]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	m.locks[syncID] = time.Now().Add(ttl)
	return true, nil
}

func (m *MemoryLocker) Release(ctx context.Context, syncID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, syncID)
	return nil
}
