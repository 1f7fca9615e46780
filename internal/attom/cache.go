package attom

import (
	"sync"
	"time"

	"github.com/Veraticus/fieldwise/internal/model"
)

type cacheEntry struct {
	expiry   time.Time
	property *model.PropertyAttributes
}

// lookupCache remembers successful lookups by formatted address so repeated
// deliveries for the same property do not spend API quota.
type lookupCache struct {
	entries map[model.AddressLines]cacheEntry
	stopCh  chan struct{}
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

func newLookupCache(ttl time.Duration) *lookupCache {
	c := &lookupCache{
		entries: make(map[model.AddressLines]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go c.cleanup()

	return c
}

func (c *lookupCache) get(key model.AddressLines) (*model.PropertyAttributes, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiry) {
		return nil, false
	}
	return entry.property, true
}

func (c *lookupCache) set(key model.AddressLines, property *model.PropertyAttributes) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		property: property,
		expiry:   c.now().Add(c.ttl),
	}
}

func (c *lookupCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *lookupCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *lookupCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, key)
		}
	}
}

func (c *lookupCache) close() {
	c.once.Do(func() { close(c.stopCh) })
}
