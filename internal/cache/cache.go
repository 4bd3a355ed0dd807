package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key       string
	value     string
	expiresAt time.Time
}

// Cache is a concurrency-safe LRU with per-entry TTL. Expired entries read as
// misses and are removed on access rather than by a sweeper.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	now func() time.Time
}

// New returns a cache bounded to capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the value under key and whether it was present and fresh. A hit
// moves the entry to most-recently-used position.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false
	}
	ent := el.Value.(*entry)
	if !c.now().Before(ent.expiresAt) {
		c.removeElement(el)
		return "", false
	}
	c.ll.MoveToFront(el)
	return ent.value, true
}

// Set stores value under key for ttl. An existing key is removed first so the
// entry lands in most-recently-used position; at capacity the least-recently-
// used entry is evicted before insertion.
func (c *Cache) Set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	for c.ll.Len() >= c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}
	c.items[key] = c.ll.PushFront(&entry{key: key, value: value, expiresAt: c.now().Add(ttl)})
}

// Len reports the number of stored entries, expired ones included until they
// are touched.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache) removeElement(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
