// Package feed holds the client's view of the poll feed: a per-category cache
// of the last server list, the decision whether a refetch replaces what is on
// screen or is staged behind a "new polls available" prompt, and the
// controller that applies local moderation filters before anything is shown.
package feed

import (
	"sync"
	"time"

	"github.com/bryan-buckman/sentio/internal/model"
)

// Entry is the cached state of one category.
type Entry struct {
	// Polls is the accepted server list, unfiltered.
	Polls []model.Poll
	// Pending is a fetched list held back until the user accepts it.
	Pending []model.Poll
	// Version increases on every write to any entry of the cache.
	Version   uint64
	FetchedAt time.Time
}

// HasPending reports whether a staged list is waiting for acceptance.
func (e Entry) HasPending() bool {
	return e.Pending != nil
}

// Decision is the outcome of merging a fetched list into the cache.
type Decision int

const (
	// Populate stores the first list fetched for a category.
	Populate Decision = iota
	// Replace swaps the cached list for the fetched one.
	Replace
	// Stage keeps the cached list and holds the fetched one as pending.
	Stage
)

func (d Decision) String() string {
	switch d {
	case Populate:
		return "populate"
	case Replace:
		return "replace"
	case Stage:
		return "stage"
	default:
		return "unknown"
	}
}

// Policy decides how a fetched list merges into an existing entry. It must
// return Replace or Stage.
type Policy func(cached Entry, fetched []model.Poll) Decision

// GrowthPolicy stages a fetched list only when it is longer than the cached
// one. Edits, closings and deletions that keep the length the same or
// shrink it replace the cached list directly.
func GrowthPolicy(cached Entry, fetched []model.Poll) Decision {
	if len(fetched) > len(cached.Polls) {
		return Stage
	}
	return Replace
}

// Cache maps category names to entries. Entries are never evicted; the
// number of categories is small and fixed.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	version uint64
	now     func() time.Time
}

// NewCache returns an empty cache stamping entries with now. A nil now
// means time.Now.
func NewCache(now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]*Entry),
		now:     now,
	}
}

// Get returns a copy of the entry for category.
func (c *Cache) Get(category string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[category]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of cached categories.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Merge folds fetched into the entry for category. A missing entry is
// populated; otherwise policy picks between replacing and staging. A
// replace drops any pending list, so the last response to arrive wins.
func (c *Cache) Merge(category string, fetched []model.Poll, policy Policy) (Decision, Entry) {
	if policy == nil {
		policy = GrowthPolicy
	}
	if fetched == nil {
		fetched = []model.Poll{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[category]
	if !ok {
		e = &Entry{Polls: fetched}
		c.stamp(e)
		c.entries[category] = e
		return Populate, *e
	}

	d := policy(*e, fetched)
	switch d {
	case Stage:
		e.Pending = fetched
	default:
		d = Replace
		e.Polls = fetched
		e.Pending = nil
	}
	c.stamp(e)
	return d, *e
}

// Accept promotes the pending list of category to its cached list. It
// reports false when nothing was pending.
func (c *Cache) Accept(category string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[category]
	if !ok || e.Pending == nil {
		return Entry{}, false
	}
	e.Polls = e.Pending
	e.Pending = nil
	c.version++
	e.Version = c.version
	return *e, true
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

func (c *Cache) stamp(e *Entry) {
	c.version++
	e.Version = c.version
	e.FetchedAt = c.now()
}
