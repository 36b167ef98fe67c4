package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"equiprent/internal/domain/availability"
)

const (
	DefaultTTL      = 5 * time.Minute
	DefaultCapacity = 1024
)

// Cache is a process-local availability cache bounded by capacity (least recently
// used entries go first) with staleness decided on read.
type Cache struct {
	TTL      time.Duration
	Capacity int
	Now      func() time.Time

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

type item struct {
	key   string
	entry availability.Entry
}

func NewCache(ttl time.Duration, capacity int) *Cache {
	return &Cache{
		TTL:      ttl,
		Capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *Cache) Get(ctx context.Context, key string) (availability.Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return availability.Entry{}, false, nil
	}
	it := el.Value.(*item)
	if c.expired(it.entry) {
		c.remove(el)
		return availability.Entry{}, false, nil
	}
	c.order.MoveToFront(el)
	entry := it.entry
	entry.Result = entry.Result.Copy()
	return entry, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, entry availability.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry.StoredAt.IsZero() {
		entry.StoredAt = c.now()
	}
	entry.Result = entry.Result.Copy()
	if el, ok := c.items[key]; ok {
		el.Value.(*item).entry = entry
		c.order.MoveToFront(el)
		return nil
	}
	c.items[key] = c.order.PushFront(&item{key: key, entry: entry})
	for c.order.Len() > c.capacity() {
		c.remove(c.order.Back())
	}
	return nil
}

func (c *Cache) InvalidateEquipment(ctx context.Context, equipmentID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, el := range c.items {
		if availability.MatchesEquipment(key, equipmentID) {
			c.remove(el)
			removed++
		}
	}
	return removed, nil
}

func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	return nil
}

func (c *Cache) Stats(ctx context.Context) (availability.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.items))
	for key := range c.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return availability.Stats{Size: len(keys), Keys: keys}, nil
}

// Sweep drops every stale entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*item).entry) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

// RunSweeper calls Sweep on every tick until ctx is done.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache) remove(el *list.Element) {
	it := el.Value.(*item)
	delete(c.items, it.key)
	c.order.Remove(el)
}

func (c *Cache) expired(entry availability.Entry) bool {
	return c.now().Sub(entry.StoredAt) >= c.ttl()
}

func (c *Cache) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Cache) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultTTL
	}
	return c.TTL
}

func (c *Cache) capacity() int {
	if c.Capacity <= 0 {
		return DefaultCapacity
	}
	return c.Capacity
}

var _ availability.Cache = (*Cache)(nil)
