package chat

import (
	"sync"
	"time"
)

const (
	// dedupTTL is how long a seen deliveryId suppresses reprocessing.
	// Server-side redelivery after a reconnect happens within seconds,
	// so ten minutes is a comfortable window.
	dedupTTL = 10 * time.Minute

	// dedupMaxEntries caps the cache; the oldest entries are evicted
	// first when exceeded.
	dedupMaxEntries = 512
)

// DedupCache detects already-processed inbound deliveries by id. The
// server re-pushes deliveries that were in flight when a session
// dropped, so the same logical delivery can arrive twice; without this
// check a reconnect produces duplicate messages in the UI.
type DedupCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
	// order holds ids in insertion order for oldest-first eviction.
	// Each id appears at most once: a repeated delivery is rejected
	// before insertion.
	order []string
}

// NewDedupCache creates a cache with the default TTL and size cap.
func NewDedupCache() *DedupCache {
	return newDedupCache(dedupTTL, dedupMaxEntries)
}

func newDedupCache(ttl time.Duration, maxEntries int) *DedupCache {
	return &DedupCache{
		ttl:  ttl,
		max:  maxEntries,
		seen: make(map[string]time.Time),
	}
}

// ShouldProcess reports whether a delivery with the given id should be
// processed. It returns true exactly once per id within the TTL window.
// An empty id always returns true: there is no key to dedup on.
func (c *DedupCache) ShouldProcess(deliveryID string) bool {
	if deliveryID == "" {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.purge(now)

	if _, ok := c.seen[deliveryID]; ok {
		return false
	}

	c.seen[deliveryID] = now
	c.order = append(c.order, deliveryID)

	for len(c.order) > c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}

	return true
}

// purge drops entries older than the TTL. Entries age in insertion
// order, so scanning from the front stops at the first fresh entry.
func (c *DedupCache) purge(now time.Time) {
	cutoff := now.Add(-c.ttl)

	i := 0
	for ; i < len(c.order); i++ {
		if c.seen[c.order[i]].After(cutoff) {
			break
		}

		delete(c.seen, c.order[i])
	}

	c.order = c.order[i:]
}

// Len returns the number of live entries, for tests and introspection.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.seen)
}
