package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/apicomponents/blob-collection/errors"
)

// hybridEntry is a single entry in the hybrid cache.
type hybridEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

func (e *hybridEntry[V]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// hybridCache combines LRU and TTL eviction. Entries are evicted when the
// cache exceeds its maximum size (LRU) or when they expire (TTL), whichever
// comes first. A background goroutine sweeps expired entries.
type hybridCache[V any] struct {
	mu              sync.RWMutex
	maxSize         int
	ttl             time.Duration
	cleanupInterval time.Duration
	items           map[string]*list.Element
	order           *list.List // front = most recently used
	stats           *Statistics
	metrics         *cacheMetrics
	evictFn         EvictCallback[V]

	shutdown chan struct{}
	done     chan struct{}
}

func newHybridCache[V any](
	ctx context.Context, maxSize int, ttl, cleanupInterval time.Duration, opts *cacheOptions[V],
) (*hybridCache[V], error) {
	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "cache", "newHybridCache", "metrics registration")
		}
	}

	c := &hybridCache[V]{
		maxSize:         maxSize,
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		items:           make(map[string]*list.Element),
		order:           list.New(),
		stats:           NewStatistics(),
		metrics:         metrics,
		evictFn:         opts.evictCallback,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
	}

	go c.cleanup(ctx)

	return c, nil
}

// Get retrieves a value by key, treating expired entries as misses.
func (c *hybridCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		var zero V
		c.stats.Miss()
		c.metrics.recordMiss()
		return zero, false
	}

	entry := element.Value.(*hybridEntry[V])
	if entry.isExpired() {
		c.removeElement(element)
		c.stats.Miss()
		c.stats.Eviction()
		c.metrics.recordMiss()
		c.metrics.recordEviction()
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	c.stats.Hit()
	c.metrics.recordHit()
	return entry.value, true
}

// Set stores a value with a fresh TTL and marks it as recently used.
func (c *hybridCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if element, exists := c.items[key]; exists {
		entry := element.Value.(*hybridEntry[V])
		entry.value = value
		entry.expiresAt = expiresAt
		c.order.MoveToFront(element)
		c.stats.Set()
		c.metrics.recordSet()
		return false, nil
	}

	element := c.order.PushFront(&hybridEntry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = element

	if len(c.items) > c.maxSize {
		c.evictOldest()
	}

	c.stats.Set()
	c.stats.UpdateSize(int64(len(c.items)))
	c.metrics.recordSet()
	c.metrics.updateSize(len(c.items))

	return true, nil
}

// Delete removes an entry by key.
func (c *hybridCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var evictKey string
	var evictValue V
	var notify bool

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}

	if c.evictFn != nil {
		entry := element.Value.(*hybridEntry[V])
		evictKey, evictValue = entry.key, entry.value
		notify = true
	}

	c.removeElement(element)
	c.stats.Delete()
	c.stats.UpdateSize(int64(len(c.items)))
	c.metrics.recordDelete()
	c.metrics.updateSize(len(c.items))
	c.mu.Unlock()

	if notify {
		c.evictFn(evictKey, evictValue)
	}

	return true, nil
}

// Clear removes all entries from the cache.
func (c *hybridCache[V]) Clear() error {
	var evicted []hybridEntry[V]

	c.mu.Lock()
	if c.evictFn != nil {
		evicted = make([]hybridEntry[V], 0, len(c.items))
		for element := c.order.Back(); element != nil; element = element.Prev() {
			evicted = append(evicted, *element.Value.(*hybridEntry[V]))
		}
	}

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.stats.UpdateSize(0)
	c.metrics.updateSize(0)
	c.mu.Unlock()

	for _, entry := range evicted {
		c.evictFn(entry.key, entry.value)
	}

	return nil
}

// Size returns the current number of entries, including not-yet-swept
// expired ones.
func (c *hybridCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns all keys in most-recently-used-first order.
func (c *hybridCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	for element := c.order.Front(); element != nil; element = element.Next() {
		keys = append(keys, element.Value.(*hybridEntry[V]).key)
	}
	return keys
}

// Stats returns the cache's statistics tracker.
func (c *hybridCache[V]) Stats() *Statistics {
	return c.stats
}

// Close stops the background cleanup goroutine.
func (c *hybridCache[V]) Close() error {
	close(c.shutdown)
	<-c.done
	return nil
}

// cleanup periodically sweeps expired entries until Close or ctx cancellation.
func (c *hybridCache[V]) cleanup(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.shutdown:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

// sweepExpired removes all expired entries.
func (c *hybridCache[V]) sweepExpired() {
	type victim struct {
		key   string
		value V
	}
	var victims []victim

	c.mu.Lock()
	for element := c.order.Back(); element != nil; {
		prev := element.Prev()
		entry := element.Value.(*hybridEntry[V])
		if entry.isExpired() {
			if c.evictFn != nil {
				victims = append(victims, victim{key: entry.key, value: entry.value})
			}
			c.removeElement(element)
			c.stats.Eviction()
			c.metrics.recordEviction()
		}
		element = prev
	}
	c.stats.UpdateSize(int64(len(c.items)))
	c.metrics.updateSize(len(c.items))
	c.mu.Unlock()

	for _, v := range victims {
		c.evictFn(v.key, v.value)
	}
}

// evictOldest removes the least recently used entry. Caller holds the lock.
func (c *hybridCache[V]) evictOldest() {
	element := c.order.Back()
	if element == nil {
		return
	}

	var evictKey string
	var evictValue V
	var notify bool

	if c.evictFn != nil {
		entry := element.Value.(*hybridEntry[V])
		evictKey, evictValue = entry.key, entry.value
		notify = true
	}

	c.removeElement(element)
	c.stats.Eviction()
	c.metrics.recordEviction()

	if notify {
		c.mu.Unlock()
		c.evictFn(evictKey, evictValue)
		c.mu.Lock()
	}
}

// removeElement removes an element from both list and map. Caller holds the lock.
func (c *hybridCache[V]) removeElement(element *list.Element) {
	delete(c.items, element.Value.(*hybridEntry[V]).key)
	c.order.Remove(element)
}
