// Package framecache memoizes decoded frames with single-flight computation
// and a least-recently-used byte budget.
package framecache

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/user/moviereader/pkg/pipeline"
	"github.com/user/moviereader/pkg/ports"
)

// ComputeFunc produces the image for a missing key. The context is cancelled
// only when every caller waiting on the key has gone away.
type ComputeFunc func(ctx context.Context) (*pipeline.Image, error)

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int    `json:"entries"`
	Bytes     int64  `json:"bytes"`
	MaxBytes  int64  `json:"max_bytes"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Shared    uint64 `json:"shared"`
	Evictions uint64 `json:"evictions"`
	InFlight  int    `json:"in_flight"`
}

type entry struct {
	key  pipeline.CacheKey
	img  *pipeline.Image
	size int64
}

// call is one in-flight computation shared by every waiter on its key.
type call struct {
	done    chan struct{}
	img     *pipeline.Image
	err     error
	waiters int
	cancel  context.CancelFunc
	dropped bool // result must not be stored
}

// Cache is safe for concurrent use. Stored images are shared and immutable;
// eviction only unlinks them, so callers holding an image keep a valid value.
type Cache struct {
	mu       sync.Mutex
	maxBytes int64
	bytes    int64
	ll       *list.List
	entries  map[pipeline.CacheKey]*list.Element
	inflight map[pipeline.CacheKey]*call
	stats    Stats
	logger   ports.Logger
}

// New creates a cache bounded by maxBytes. A budget of zero stores nothing
// but still deduplicates concurrent computations.
func New(maxBytes int64, logger ports.Logger) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		ll:       list.New(),
		entries:  make(map[pipeline.CacheKey]*list.Element),
		inflight: make(map[pipeline.CacheKey]*call),
		logger:   logger.WithComponent("framecache"),
	}
}

// Get returns the image for key, calling compute at most once among
// concurrent callers of the same key. Errors are returned to the callers that
// shared the computation and are not cached.
func (c *Cache) Get(ctx context.Context, key pipeline.CacheKey, compute ComputeFunc) (*pipeline.Image, error) {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.ll.MoveToFront(el)
		c.stats.Hits++
		img := el.Value.(*entry).img
		c.mu.Unlock()
		return img, nil
	}

	cl, ok := c.inflight[key]
	if ok {
		c.stats.Shared++
	} else {
		c.stats.Misses++
		cctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		cl = &call{done: make(chan struct{}), cancel: cancel}
		c.inflight[key] = cl
		go c.run(cctx, key, cl, compute)
	}
	cl.waiters++
	c.mu.Unlock()

	select {
	case <-cl.done:
		return cl.img, cl.err
	case <-ctx.Done():
		c.leave(key, cl)
		return nil, ctx.Err()
	}
}

// leave drops one waiter. The last waiter to leave cancels the computation
// and detaches it so a later Get starts afresh.
func (c *Cache) leave(key pipeline.CacheKey, cl *call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl.waiters--
	if cl.waiters > 0 {
		return
	}
	select {
	case <-cl.done:
		return
	default:
	}
	cl.dropped = true
	cl.cancel()
	if c.inflight[key] == cl {
		delete(c.inflight, key)
	}
}

func (c *Cache) run(ctx context.Context, key pipeline.CacheKey, cl *call, compute ComputeFunc) {
	defer cl.cancel()

	img, err := safeCompute(ctx, compute)

	c.mu.Lock()
	cl.img, cl.err = img, err
	if c.inflight[key] == cl {
		delete(c.inflight, key)
	}
	if err == nil && !cl.dropped {
		c.insertLocked(key, img)
	}
	c.mu.Unlock()

	close(cl.done)
}

func safeCompute(ctx context.Context, compute ComputeFunc) (img *pipeline.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("framecache: compute panicked: %v", r)
		}
	}()
	return compute(ctx)
}

func (c *Cache) insertLocked(key pipeline.CacheKey, img *pipeline.Image) {
	size := img.SizeBytes()
	if size > c.maxBytes {
		c.logger.Debug("Frame %d of %s exceeds cache budget (%d bytes)", key.Frame, key.Resource.Path, size)
		return
	}
	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	el := c.ll.PushFront(&entry{key: key, img: img, size: size})
	c.entries[key] = el
	c.bytes += size
	c.evictLocked()
}

func (c *Cache) evictLocked() {
	for c.bytes > c.maxBytes {
		el := c.ll.Back()
		if el == nil {
			return
		}
		e := el.Value.(*entry)
		c.removeElement(el)
		c.stats.Evictions++
		c.logger.Debug("Evicted frame %d of %s", e.key.Frame, e.key.Resource.Path)
	}
}

func (c *Cache) removeElement(el *list.Element) {
	e := c.ll.Remove(el).(*entry)
	delete(c.entries, e.key)
	c.bytes -= e.size
}

// Invalidate drops every entry of one resource version. Computations in
// flight for it still answer their waiters but are not stored.
func (c *Cache) Invalidate(id pipeline.ResourceID) int {
	return c.invalidate(func(k pipeline.CacheKey) bool { return k.Resource == id })
}

// InvalidatePath drops every entry of every version of path.
func (c *Cache) InvalidatePath(path string) int {
	return c.invalidate(func(k pipeline.CacheKey) bool { return k.Resource.Path == path })
}

func (c *Cache) invalidate(match func(pipeline.CacheKey) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for el := c.ll.Front(); el != nil; {
		next := el.Next()
		if match(el.Value.(*entry).key) {
			c.removeElement(el)
			n++
		}
		el = next
	}
	for k, cl := range c.inflight {
		if match(k) {
			cl.dropped = true
			delete(c.inflight, k)
		}
	}
	return n
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.entries = make(map[pipeline.CacheKey]*list.Element)
	c.bytes = 0
	for k, cl := range c.inflight {
		cl.dropped = true
		delete(c.inflight, k)
	}
}

// SetMaxBytes changes the budget, evicting as needed.
func (c *Cache) SetMaxBytes(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxBytes = n
	c.evictLocked()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.ll.Len()
	s.Bytes = c.bytes
	s.MaxBytes = c.maxBytes
	s.InFlight = len(c.inflight)
	return s
}
