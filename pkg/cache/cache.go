// Package cache implements the bounded-lifetime duplicate-suppression
// cache the node runtime uses to decide whether an incoming message has
// already been processed.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gruberchris/gossnet/pkg/envelope"
)

const (
	// DefaultTTL is the default duration a message id is remembered for
	// duplicate suppression after admission.
	DefaultTTL = 600 * time.Second

	// sweepInterval is how often the opportunistic cleanup pass runs.
	// Correctness never depends on sweep timeliness — Contains/Lookup
	// apply lazy expiry on every call regardless.
	sweepInterval = time.Minute
)

type cachedEntry struct {
	env        envelope.Envelope
	insertedAt time.Time
	expiresAt  time.Time
}

// Cache is a thread-safe, bounded-lifetime set of recently admitted
// message ids, grounded on the same mutex-guarded-map-plus-background-
// sweep shape as the teacher's peer store, with "last seen" replaced by
// "expires at".
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uuid.UUID]cachedEntry

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Cache with the given TTL. A TTL of zero (or negative) is
// rejected.
func New(ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache: ttl must be > 0, got %v", ttl)
	}
	c := &Cache{
		ttl:     ttl,
		entries: make(map[uuid.UUID]cachedEntry),
		stop:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.sweepLoop()
	return c, nil
}

// NewDefault creates a Cache with DefaultTTL.
func NewDefault() *Cache {
	c, err := New(DefaultTTL)
	if err != nil {
		// DefaultTTL is a positive constant; this cannot happen.
		panic(err)
	}
	return c
}

// TryAdmit returns true iff no live entry exists for env.ID(). On true, it
// installs an entry expiring at now+TTL. An entry that has expired but
// not yet been swept counts as absent, so its id is admitted again. On
// false (a live duplicate), no state changes. This is effectively a
// compare-and-set on the message id.
func (c *Cache) TryAdmit(env envelope.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if existing, ok := c.entries[env.ID()]; ok && now.Before(existing.expiresAt) {
		return false
	}

	c.entries[env.ID()] = cachedEntry{
		env:        env,
		insertedAt: now,
		expiresAt:  now.Add(c.ttl),
	}
	return true
}

// Contains reports whether id has a live (non-expired) entry.
func (c *Cache) Contains(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		return false
	}
	return time.Now().Before(entry.expiresAt)
}

// Lookup returns the envelope stored for id, if it has a live entry.
func (c *Cache) Lookup(id uuid.UUID) (envelope.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok || !time.Now().Before(entry.expiresAt) {
		return envelope.Envelope{}, false
	}
	return entry.env, true
}

// Size returns the count of live (non-expired) entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Close stops the background sweep goroutine. Safe to call more than
// once; subsequent calls are no-ops.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	c.wg.Wait()
	return nil
}

func (c *Cache) sweepLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for id, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
}
