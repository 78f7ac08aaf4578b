package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/n8dizzle/Christmas-automations/models"
)

// entry holds a cached record with its creation timestamp.
type entry struct {
	record    *models.WarrantyRecord
	createdAt time.Time
}

// Cache is a simple in-memory cache for warranty records.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	stop chan struct{}
	once sync.Once
}

// New creates a new Cache with the given maximum number of entries.
// A background goroutine evicts entries older than ttl until Close is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	go c.cleanupLoop()
	return c
}

// Key identifies a record by adapter and serial. Serials are compared
// case-insensitively since data plates are read by humans.
func Key(adapter, serial string) string {
	return adapter + "|" + strings.ToUpper(strings.TrimSpace(serial))
}

// Get retrieves a cached record if it exists and is younger than maxAge.
// maxAge is in milliseconds. If maxAge <= 0, no cache lookup is performed.
// The returned record is a copy.
func (c *Cache) Get(key string, maxAgeMs int) (*models.WarrantyRecord, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	age := c.now().Sub(e.createdAt)
	if age > maxAge || (c.ttl > 0 && age > c.ttl) {
		return nil, false
	}

	return e.record.Clone(), true
}

// Set stores a copy of rec. Only records describing the manufacturer's data
// are kept; transient failures are ignored. If the cache is at capacity,
// a random entry is evicted to make room.
func (c *Cache) Set(key string, rec *models.WarrantyRecord) {
	if rec == nil || !rec.LookupStatus.Cacheable() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict one random entry if at capacity (map iteration is random in Go).
	if _, exists := c.store[key]; !exists && c.maxEntries > 0 && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		record:    rec.Clone(),
		createdAt: c.now(),
	}
}

// Len returns the number of stored records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// cleanupLoop evicts expired entries every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache) evictExpired() {
	if c.ttl <= 0 {
		return
	}
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}
