package memorystore

import (
	"context"
	"sync"
	"time"
)

// ProvisionCache is an in-memory core.ProvisionCache with TTL.
type ProvisionCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	data   map[string]time.Time
	closed chan struct{}
	once   sync.Once
}

// NewProvisionCache creates a cache whose marks expire after ttl.
// If ttl <= 0, a default of 10 minutes is used.
// Starts a background goroutine to clean up expired entries every minute.
func NewProvisionCache(ttl time.Duration) *ProvisionCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &ProvisionCache{ttl: ttl, data: make(map[string]time.Time), closed: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (s *ProvisionCache) Mark(ctx context.Context, userID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[userID] = time.Now().Add(s.ttl)
	return nil
}

func (s *ProvisionCache) Seen(ctx context.Context, userID string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.data[userID]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(s.data, userID)
		return false, nil
	}
	return true, nil
}

func (s *ProvisionCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.closed:
			return
		}
	}
}

func (s *ProvisionCache) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, exp := range s.data {
		if now.After(exp) {
			delete(s.data, k)
		}
	}
}

// Close stops the background cleanup goroutine.
func (s *ProvisionCache) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
