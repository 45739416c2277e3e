package intake

import (
	"context"
	"sync"
	"time"

	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/ports"
)

const DefaultSnapshotTTL = 60 * time.Second

type snapshotEntry struct {
	snapshot domainintake.Snapshot
	loadedAt time.Time
}

// SnapshotCache holds the last good snapshot per store location for a
// bounded time window. A miss loads synchronously; a failed load leaves the
// previous entry untouched. Concurrent refreshes are last-write-wins, except
// that a load which started before an Invalidate is never stored.
type SnapshotCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   ports.Clock
	entries map[string]snapshotEntry

	// generations counts invalidations per key.
	generations map[string]uint64
	epoch       uint64
}

func NewSnapshotCache(ttl time.Duration, clock ports.Clock) *SnapshotCache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &SnapshotCache{
		ttl:     ttl,
		clock:   clock,
		entries:     make(map[string]snapshotEntry),
		generations: make(map[string]uint64),
	}
}

// Get returns the cached snapshot for key while it is fresh, otherwise it
// calls load and stores the result. hit reports whether the cache served it.
func (c *SnapshotCache) Get(
	ctx context.Context,
	key string,
	load func(ctx context.Context) (domainintake.Snapshot, error),
) (snapshot domainintake.Snapshot, hit bool, err error) {
	entry, generation, ok := c.fresh(key)
	if ok {
		return entry.snapshot, true, nil
	}

	loaded, err := load(ctx)
	if err != nil {
		return domainintake.Snapshot{}, false, err
	}

	c.mu.Lock()
	if c.generation(key) == generation {
		c.entries[key] = snapshotEntry{snapshot: loaded, loadedAt: c.clock.Now()}
	}
	c.mu.Unlock()
	return loaded, false, nil
}

// Peek returns the last good snapshot for key regardless of age.
func (c *SnapshotCache) Peek(key string) (domainintake.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	return entry.snapshot, ok
}

// Invalidate forces the next Get for key to reload. The stale entry stays
// visible to Peek.
func (c *SnapshotCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[key]++
	if entry, ok := c.entries[key]; ok {
		entry.loadedAt = time.Time{}
		c.entries[key] = entry
	}
}

func (c *SnapshotCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	for key, entry := range c.entries {
		entry.loadedAt = time.Time{}
		c.entries[key] = entry
	}
}

// generation must be called with mu held.
func (c *SnapshotCache) generation(key string) uint64 {
	return c.epoch + c.generations[key]
}

func (c *SnapshotCache) fresh(key string) (snapshotEntry, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	generation := c.generation(key)
	entry, ok := c.entries[key]
	if !ok || entry.loadedAt.IsZero() || c.ttl <= 0 {
		return snapshotEntry{}, generation, false
	}
	if c.clock.Now().Sub(entry.loadedAt) >= c.ttl {
		return snapshotEntry{}, generation, false
	}
	return entry, generation, true
}
