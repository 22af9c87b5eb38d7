package token

import (
	"sync"
	"time"
)

// RevokedSessionCache remembers signed-out session IDs until the session
// would have expired anyway.
type RevokedSessionCache interface {
	Add(id string, exp time.Time) error
	IsRevoked(id string) bool
	Cleanup() // Remove expired entries
}

// InMemoryRevokedSessionCache is a simple in-memory implementation. Entries
// are local to the process.
type InMemoryRevokedSessionCache struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
	nowFunc func() time.Time
}

func NewInMemoryRevokedSessionCache() *InMemoryRevokedSessionCache {
	return NewInMemoryRevokedSessionCacheWithClock(time.Now)
}

func NewInMemoryRevokedSessionCacheWithClock(now func() time.Time) *InMemoryRevokedSessionCache {
	return &InMemoryRevokedSessionCache{
		revoked: make(map[string]time.Time),
		nowFunc: now,
	}
}

func (c *InMemoryRevokedSessionCache) Add(id string, exp time.Time) error {
	c.Cleanup()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[id] = exp
	return nil
}

func (c *InMemoryRevokedSessionCache) IsRevoked(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[id]
	return exists
}

func (c *InMemoryRevokedSessionCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	for id, exp := range c.revoked {
		if !now.Before(exp) {
			delete(c.revoked, id)
		}
	}
}

// Len returns the number of tracked entries.
func (c *InMemoryRevokedSessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.revoked)
}
