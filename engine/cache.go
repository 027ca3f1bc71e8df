package engine

import (
	"container/list"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/opcall"
)

// CacheStats is a snapshot of the operation cache.
type CacheStats struct {
	Entries   int
	Files     int
	Bytes     int64
	Max       int
	MaxMem    int64
	MaxFiles  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type cacheEntry struct {
	// inputs are kept so the image identities in key cannot be reused by
	// new images while the entry lives.
	inputs  map[string]any
	outputs map[string]any
	key     string
	bytes   int64
	file    bool
}

// opCache is a least-recently-used cache of built operations, keyed by
// operation signature and bounded by count, bytes and file results.
type opCache struct {
	lru       *list.List
	entries   map[string]*list.Element
	maxMem    int64
	bytes     int64
	max       int
	maxFiles  int
	files     int
	hits      uint64
	misses    uint64
	evictions uint64
	mu        sync.Mutex
	trace     bool
}

func newOpCache(max int, maxMem int64, maxFiles int, trace bool) *opCache {
	if max < 0 {
		max = 0
	}
	return &opCache{
		lru:      list.New(),
		entries:  make(map[string]*list.Element),
		max:      max,
		maxMem:   maxMem,
		maxFiles: maxFiles,
		trace:    trace,
	}
}

func (c *opCache) get(key string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		c.tracef("cache miss", key)
		return nil, false
	}
	c.hits++
	c.lru.MoveToFront(el)
	c.tracef("cache hit", key)
	return el.Value.(*cacheEntry).outputs, true
}

func (c *opCache) put(key string, inputs, outputs map[string]any, file bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.max == 0 {
		return
	}
	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		return
	}

	e := &cacheEntry{
		key:     key,
		inputs:  inputs,
		outputs: outputs,
		bytes:   outputBytes(outputs),
		file:    file,
	}
	c.entries[key] = c.lru.PushFront(e)
	c.bytes += e.bytes
	if file {
		c.files++
	}
	c.tracef("cache add", key)
	c.trim()
}

// trim evicts from the cold end until every limit holds. Only file entries
// are evicted to meet maxFiles. Called with mu held.
func (c *opCache) trim() {
	for c.lru.Len() > c.max || (c.maxMem > 0 && c.bytes > c.maxMem && c.lru.Len() > 0) {
		c.evict(c.lru.Back())
	}
	for el := c.lru.Back(); el != nil && c.maxFiles >= 0 && c.files > c.maxFiles; {
		prev := el.Prev()
		if el.Value.(*cacheEntry).file {
			c.evict(el)
		}
		el = prev
	}
}

func (c *opCache) evict(el *list.Element) {
	e := c.lru.Remove(el).(*cacheEntry)
	delete(c.entries, e.key)
	c.bytes -= e.bytes
	if e.file {
		c.files--
	}
	c.evictions++
	c.tracef("cache evict", e.key)
}

func (c *opCache) setMax(n int) {
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	c.max = n
	c.trim()
	c.mu.Unlock()
}

func (c *opCache) setMaxMem(n int64) {
	c.mu.Lock()
	c.maxMem = n
	c.trim()
	c.mu.Unlock()
}

func (c *opCache) setMaxFiles(n int) {
	c.mu.Lock()
	c.maxFiles = n
	c.trim()
	c.mu.Unlock()
}

func (c *opCache) setTrace(on bool) {
	c.mu.Lock()
	c.trace = on
	c.mu.Unlock()
}

func (c *opCache) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.lru.Len() > 0 {
		c.evict(c.lru.Back())
	}
}

func (c *opCache) stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:   c.lru.Len(),
		Files:     c.files,
		Bytes:     c.bytes,
		Max:       c.max,
		MaxMem:    c.maxMem,
		MaxFiles:  c.maxFiles,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *opCache) tracef(event, key string) {
	if !c.trace {
		return
	}
	name, _, _ := strings.Cut(key, " ")
	Logger().Debug(event, zap.String("operation", name), zap.String("signature", key))
}

func outputBytes(outputs map[string]any) int64 {
	var n int64
	for _, v := range outputs {
		switch t := v.(type) {
		case *Image:
			n += t.bytes()
		case []opcall.Image:
			for _, im := range t {
				if e, ok := im.(*Image); ok {
					n += e.bytes()
				}
			}
		case []byte:
			n += int64(len(t))
		}
	}
	return n
}

type constEntry struct {
	key string
	im  *Image
}

// constCache keeps the most recently used constant images. Constant images
// are never written to, so callers share them.
type constCache struct {
	lru      *list.List
	entries  map[string]*list.Element
	capacity int
	mu       sync.Mutex
}

func newConstCache(capacity int) *constCache {
	return &constCache{
		lru:      list.New(),
		entries:  make(map[string]*list.Element),
		capacity: capacity,
	}
}

func (c *constCache) getOrCreate(key string, create func() *Image) *Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		return el.Value.(*constEntry).im
	}
	im := create()
	c.entries[key] = c.lru.PushFront(&constEntry{key: key, im: im})
	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.entries, oldest.Value.(*constEntry).key)
	}
	return im
}

func (c *constCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
