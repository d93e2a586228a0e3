// Package plancache caches parsed Cypher queries so a statement text seen
// before skips the lexer/parser on its next execution (§4.3). It caches the
// AST, not the lowered operator tree: cypher.Plan.Build still runs fresh
// against the tenant's live Store on every call (index-scan substitution
// depends on current store state), but a repeated query text never re-tokenizes
// and re-parses the same grammar twice.
package plancache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samyama/samyama/pkg/cypher"
)

// Cache is a thread-safe LRU cache of parsed queries, with optional TTL
// expiration so a cached AST doesn't outlive a deploy's useful lifetime
// indefinitely under a cache sized larger than the working set.
type Cache struct {
	mu sync.RWMutex

	maxSize int
	ttl     time.Duration
	enabled bool

	list  *list.List
	items map[uint64]*list.Element

	hits   uint64
	misses uint64
}

type entry struct {
	key       uint64
	query     *cypher.Query
	expiresAt time.Time
}

// Stats reports this cache's hit/miss performance.
type Stats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// New returns a cache holding at most maxSize parsed queries, each expiring
// ttl after it was last inserted or refreshed; ttl of zero disables
// expiration and leaves eviction to LRU alone.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		enabled: true,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}
}

// Key hashes query text into a cache key. Unlike a result cache, parsing has
// no dependency on bound parameter values, so the key is the query text
// alone.
func (c *Cache) Key(query string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(query))
	return h.Sum64()
}

// Get returns the cached query for key, moving it to the front of the LRU
// list on a hit. A miss is reported both when the key was never inserted
// and when its TTL has elapsed.
func (c *Cache) Get(key uint64) (*cypher.Query, bool) {
	if !c.enabled {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.RLock()
	elem, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	e := elem.Value.(*entry)
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		c.removeElement(elem)
		c.mu.Unlock()
		atomic.AddUint64(&c.misses, 1)
		return nil, false
	}

	c.mu.Lock()
	c.list.MoveToFront(elem)
	c.mu.Unlock()

	atomic.AddUint64(&c.hits, 1)
	return e.query, true
}

// Put inserts or refreshes the cached query for key, evicting the least
// recently used entry first if the cache is at capacity.
func (c *Cache) Put(key uint64, q *cypher.Query) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.query = q
		if c.ttl > 0 {
			e.expiresAt = time.Now().Add(c.ttl)
		}
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	e := &entry{key: key, query: q}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	c.items[key] = c.list.PushFront(e)
}

// Clear discards every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list.Len()
}

// Stats reports this cache's cumulative hit/miss counts.
func (c *Cache) Stats() Stats {
	hits := atomic.LoadUint64(&c.hits)
	misses := atomic.LoadUint64(&c.misses)

	c.mu.RLock()
	size := c.list.Len()
	c.mu.RUnlock()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return Stats{Size: size, MaxSize: c.maxSize, Hits: hits, Misses: misses, HitRate: hitRate}
}

func (c *Cache) evictOldest() {
	if elem := c.list.Back(); elem != nil {
		c.removeElement(elem)
	}
}

func (c *Cache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}
