// Package cache is an in-process key/value map with per-entry time-to-live.
//
// Each Set schedules a removal timer so memory stays bounded without a sweeper,
// and Get re-checks the absolute expiry so a late timer never serves a stale
// entry. There is no capacity bound.
package cache

import (
	"sync"
	"time"

	"github.com/orderlens/order-analyzer/internal/clock"
)

type entry struct {
	record    Record
	expiresAt time.Time
	timer     clock.Timer
	gen       uint64
}

type Cache struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]*entry
	gen     uint64
}

func New(clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.System()
	}
	return &Cache{clock: clk, entries: make(map[string]*entry)}
}

// Set stores rec under key until ttl elapses. Setting an existing key replaces
// it and its timer.
func (c *Cache) Set(key string, rec Record, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && old.timer != nil {
		old.timer.Stop()
	}
	c.gen++
	e := &entry{
		record:    rec,
		expiresAt: c.clock.Now().Add(ttl),
		gen:       c.gen,
	}
	gen := e.gen
	e.timer = c.clock.AfterFunc(ttl, func() { c.expire(key, gen) })
	c.entries[key] = e
}

// Get returns the record for key if it has not expired. Expired entries are
// evicted on the way out.
func (c *Cache) Get(key string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.remove(key, e)
		return nil, false
	}
	return e.record, true
}

// GetChecklist is Get narrowed to checklist records.
func (c *Cache) GetChecklist(key string) (ChecklistRecord, bool) {
	rec, ok := c.Get(key)
	if !ok {
		return ChecklistRecord{}, false
	}
	cr, ok := rec.(ChecklistRecord)
	return cr, ok
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.remove(key, e)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// expire runs from the timer. A timer belonging to a replaced entry is a no-op.
func (c *Cache) expire(key string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.gen == gen {
		delete(c.entries, key)
	}
}

func (c *Cache) remove(key string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.entries, key)
}
