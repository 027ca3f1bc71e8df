package introspect

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/errors"
)

// caches holds one Cache per engine until the engine is forgotten.
var caches sync.Map

// Cache memoizes descriptors and generated docs for one engine. Entries are
// never evicted individually.
type Cache struct {
	eng         opcall.Engine
	descriptors map[string]*Descriptor
	docs        map[string]string
	mu          sync.RWMutex
}

// For returns the process-wide cache for eng, creating it on first use.
// eng must be comparable; engines are normally pointers.
func For(eng opcall.Engine) *Cache {
	if c, ok := caches.Load(eng); ok {
		return c.(*Cache)
	}
	c, _ := caches.LoadOrStore(eng, NewCache(eng))
	return c.(*Cache)
}

// Forget drops the process-wide cache of eng. Owners call it when they
// close the engine; a later For starts an empty cache.
func Forget(eng opcall.Engine) {
	caches.Delete(eng)
}

// NewCache creates a private cache, detached from the process-wide set.
func NewCache(eng opcall.Engine) *Cache {
	return &Cache{
		eng:         eng,
		descriptors: make(map[string]*Descriptor),
		docs:        make(map[string]string),
	}
}

// Describe is For(eng).Describe(name).
func Describe(eng opcall.Engine, name string) (*Descriptor, error) {
	return For(eng).Describe(name)
}

// Describe returns the descriptor for name, building it on first use.
// Concurrent first uses may each build one; the first to publish wins and
// every caller gets that instance.
func (c *Cache) Describe(name string) (*Descriptor, error) {
	c.mu.RLock()
	d, ok := c.descriptors[name]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	built, err := build(c.eng, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.descriptors[name]; ok {
		return d, nil
	}
	c.descriptors[name] = built

	Logger().Debug("operation described",
		zap.String("operation", name),
		zap.Int("required_input", len(built.RequiredInput)),
		zap.Int("optional_input", len(built.OptionalInput)),
		zap.Int("required_output", len(built.RequiredOutput)),
		zap.Int("optional_output", len(built.OptionalOutput)),
		zap.Bool("deprecated", built.Deprecated()))

	return built, nil
}

// Len reports how many descriptors are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.descriptors)
}

// Names returns the engine's operations that are not deprecated, sorted.
// Operations that cannot be described are skipped.
func (c *Cache) Names() []string {
	all := c.eng.Operations()
	names := make([]string, 0, len(all))
	for _, name := range all {
		d, err := c.Describe(name)
		if err != nil {
			Logger().Debug("skipping operation", zap.String("operation", name), zap.Error(err))
			continue
		}
		if d.Deprecated() {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// documented returns the descriptor for name, refusing deprecated
// operations.
func (c *Cache) documented(name string) (*Descriptor, error) {
	d, err := c.Describe(name)
	if err != nil {
		return nil, err
	}
	if d.Deprecated() {
		return nil, errors.New(errors.PhaseDescribe, errors.KindNotFound).
			Operation(name).
			Detail("operation %q is deprecated", name).
			Build()
	}
	return d, nil
}
