package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/bryan-buckman/sentio/internal/model"
)

var (
	// ErrSelfBlock is returned when the user tries to block their own device.
	ErrSelfBlock = errors.New("cannot block yourself")
	// ErrOwnPoll is returned when the user tries to report their own poll.
	ErrOwnPoll = errors.New("cannot report your own poll")
	// ErrNoCreator is returned when a poll carries no creator to block.
	ErrNoCreator = errors.New("poll has no creator")
)

// Backend is the subset of the gateway the feed needs.
type Backend interface {
	ListPolls(ctx context.Context, category string, device model.DeviceID) ([]model.Poll, error)
	BlockUser(ctx context.Context, blocker, blocked model.DeviceID) error
	ReportPoll(ctx context.Context, id string, device model.DeviceID, reason string) error
}

// Preferences is the subset of the preference store the feed needs.
type Preferences interface {
	HiddenPolls() ([]string, error)
	HidePoll(pollID string) error
	BlockedUsers() ([]model.DeviceID, error)
	BlockUser(creator model.DeviceID) error
}

// View is what the feed screen renders.
type View struct {
	Category string
	// Polls is the visible list: cached list minus hidden polls and blocked
	// creators, narrowed by Query.
	Polls        []model.Poll
	Loading      bool
	HasPending   bool
	PendingCount int
	Query        string
	Version      uint64
}

// Controller owns the feed state of one device.
type Controller struct {
	backend Backend
	prefs   Preferences
	device  model.DeviceID
	cache   *Cache
	hub     *Hub

	// Policy decides between replacing and staging on refetch.
	Policy Policy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	category string
	shown    []model.Poll
	version  uint64
	loading  bool
	query    string
	filter   *Filter
}

// NewController loads the moderation lists from prefs and returns a
// controller showing the "All" category, not yet fetched.
func NewController(backend Backend, prefs Preferences, device model.DeviceID, cache *Cache, hub *Hub) (*Controller, error) {
	hidden, err := prefs.HiddenPolls()
	if err != nil {
		return nil, fmt.Errorf("load hidden polls: %w", err)
	}
	blocked, err := prefs.BlockedUsers()
	if err != nil {
		return nil, fmt.Errorf("load blocked users: %w", err)
	}
	if cache == nil {
		cache = NewCache(nil)
	}
	if hub == nil {
		hub = NewHub()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend:  backend,
		prefs:    prefs,
		device:   device,
		cache:    cache,
		hub:      hub,
		Policy:   GrowthPolicy,
		ctx:      ctx,
		cancel:   cancel,
		category: model.CategoryAll,
		filter:   NewFilter(hidden, blocked),
	}, nil
}

// Hub returns the event hub the controller publishes to.
func (c *Controller) Hub() *Hub {
	return c.hub
}

// Device returns the device the feed is fetched for.
func (c *Controller) Device() model.DeviceID {
	return c.device
}

// Category returns the active category.
func (c *Controller) Category() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.category
}

// Select makes category active. A cached category is shown at once and
// refreshed in the background; an uncached one is fetched before Select
// returns.
func (c *Controller) Select(ctx context.Context, category string) View {
	if category == "" {
		category = model.CategoryAll
	}

	c.mu.Lock()
	c.category = category
	entry, cached := c.cache.Get(category)
	if cached {
		c.show(entry)
		c.loading = false
		c.mu.Unlock()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.refresh(c.ctx, category)
		}()
		return c.View()
	}
	c.shown = nil
	c.loading = true
	c.mu.Unlock()

	c.refresh(ctx, category)

	c.mu.Lock()
	if c.category == category {
		c.loading = false
	}
	c.mu.Unlock()
	return c.View()
}

// Refresh refetches the active category and waits for the result. Fetch
// errors are logged and leave the feed as it was.
func (c *Controller) Refresh(ctx context.Context) View {
	c.refresh(ctx, c.Category())
	return c.View()
}

// RefreshInBackground refetches the active category without waiting.
func (c *Controller) RefreshInBackground() {
	category := c.Category()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.refresh(c.ctx, category)
	}()
}

// AcceptPending shows the staged list of the active category.
func (c *Controller) AcceptPending() View {
	c.mu.Lock()
	category := c.category
	entry, ok := c.cache.Accept(category)
	if ok {
		c.show(entry)
	}
	c.mu.Unlock()

	if ok {
		c.publish(EventUpdated, category, entry)
	}
	return c.View()
}

// Search sets the free-text query applied on top of the moderation filter.
func (c *Controller) Search(query string) View {
	c.mu.Lock()
	c.query = query
	c.mu.Unlock()
	return c.View()
}

// View returns the current render state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Category: c.category,
		Polls:    Search(c.filter.Apply(c.shown), c.query),
		Loading:  c.loading,
		Query:    c.query,
		Version:  c.version,
	}
	if entry, ok := c.cache.Get(c.category); ok && entry.HasPending() {
		v.HasPending = true
		v.PendingCount = len(entry.Pending)
	}
	return v
}

// Hide removes a poll from the feed for good.
func (c *Controller) Hide(pollID string) error {
	if err := c.prefs.HidePoll(pollID); err != nil {
		return fmt.Errorf("hide poll %s: %w", pollID, err)
	}
	c.mu.Lock()
	c.filter.Hide(pollID)
	category := c.category
	c.mu.Unlock()

	c.hub.Publish(Event{Type: EventUpdated, Category: category, Count: len(c.View().Polls)})
	return nil
}

// Block blocks creator on the backend, then drops the creator's polls from
// the visible list without refetching and remembers the block locally.
func (c *Controller) Block(ctx context.Context, creator model.DeviceID) error {
	if creator == "" {
		return ErrNoCreator
	}
	if creator == c.device {
		return ErrSelfBlock
	}
	if err := c.backend.BlockUser(ctx, c.device, creator); err != nil {
		return fmt.Errorf("block user: %w", err)
	}

	c.mu.Lock()
	c.filter.Block(creator)
	category := c.category
	c.mu.Unlock()
	c.hub.Publish(Event{Type: EventUpdated, Category: category, Count: len(c.View().Polls)})

	if err := c.prefs.BlockUser(creator); err != nil {
		return fmt.Errorf("save blocked user: %w", err)
	}
	return nil
}

// Report flags a poll as inappropriate on the backend.
func (c *Controller) Report(ctx context.Context, pollID string, creator model.DeviceID, reason string) error {
	if creator != "" && creator == c.device {
		return ErrOwnPoll
	}
	if reason == "" {
		reason = model.ReasonInappropriate
	}
	return c.backend.ReportPoll(ctx, pollID, c.device, reason)
}

// Wait blocks until all background refreshes have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels background refreshes and waits for them.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) refresh(ctx context.Context, category string) {
	polls, err := c.backend.ListPolls(ctx, category, c.device)
	if err != nil {
		log.Printf("Feed refresh for %q failed: %v", category, err)
		return
	}

	c.mu.Lock()
	decision, entry := c.cache.Merge(category, polls, c.Policy)
	if decision != Stage && c.category == category {
		c.show(entry)
	}
	c.mu.Unlock()

	if decision == Stage {
		c.hub.Publish(Event{Type: EventPending, Category: category, Count: len(entry.Pending), Version: entry.Version})
		return
	}
	c.publish(EventUpdated, category, entry)
}

// show makes entry's list the visible one. Callers hold c.mu.
func (c *Controller) show(entry Entry) {
	c.shown = entry.Polls
	c.version = entry.Version
}

func (c *Controller) publish(typ, category string, entry Entry) {
	c.mu.Lock()
	count := len(c.filter.Apply(entry.Polls))
	c.mu.Unlock()
	c.hub.Publish(Event{Type: typ, Category: category, Count: count, Version: entry.Version})
}
