package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wippyai/opcall"
)

// Config holds configuration for engine creation.
type Config struct {
	// CacheMax is the most operations the cache keeps. 0 means the
	// default of 100; negative disables caching.
	CacheMax int

	// CacheMaxMem limits the cache by the bytes of the images it keeps.
	// 0 means the default of 100MB.
	CacheMaxMem int64

	// CacheMaxFiles limits how many load and save results the cache keeps.
	// 0 means the default of 100.
	CacheMaxFiles int

	// CacheTrace logs every cache hit, miss and eviction at debug level.
	CacheTrace bool

	// MemoryLimitPages caps the linear memory of wasm kernels, in 64KB
	// pages. 0 means the wazero default.
	MemoryLimitPages uint32
}

const (
	defaultCacheMax      = 100
	defaultCacheMaxMem   = 100 * 1024 * 1024
	defaultCacheMaxFiles = 100

	// constant images are small and reused a lot across calls with the
	// same match image
	constantCacheCapacity = 256
)

// Engine is an in-process image engine with introspectable operations.
// It is safe for concurrent use.
type Engine struct {
	ops       map[string]*opDef
	cache     *opCache
	constants *constCache
	kernels   *kernelHost
	opsMu     sync.RWMutex
}

var _ opcall.Engine = (*Engine)(nil)

// New creates an engine with the built-in operations registered.
func New(cfg Config) *Engine {
	maxOps := cfg.CacheMax
	if maxOps == 0 {
		maxOps = defaultCacheMax
	}
	maxMem := cfg.CacheMaxMem
	if maxMem == 0 {
		maxMem = defaultCacheMaxMem
	}
	maxFiles := cfg.CacheMaxFiles
	if maxFiles == 0 {
		maxFiles = defaultCacheMaxFiles
	}

	e := &Engine{
		ops:       make(map[string]*opDef),
		cache:     newOpCache(maxOps, maxMem, maxFiles, cfg.CacheTrace),
		constants: newConstCache(constantCacheCapacity),
		kernels:   newKernelHost(cfg.MemoryLimitPages),
	}
	for _, group := range [][]*opDef{arithmeticOps(), statsOps(), bandOps(), drawOps(), codecOps()} {
		for _, def := range group {
			e.ops[def.name] = def
		}
	}
	return e
}

// Close releases the wasm runtime of registered kernels.
func (e *Engine) Close(ctx context.Context) error {
	e.cache.drop()
	return e.kernels.close(ctx)
}

func (e *Engine) lookup(name string) (*opDef, bool) {
	e.opsMu.RLock()
	defer e.opsMu.RUnlock()
	def, ok := e.ops[name]
	return def, ok
}

func (e *Engine) register(def *opDef) error {
	e.opsMu.Lock()
	defer e.opsMu.Unlock()
	if _, exists := e.ops[def.name]; exists {
		return fmt.Errorf("operation %q already registered", def.name)
	}
	e.ops[def.name] = def
	return nil
}

// NewOperation creates an unbuilt instance of name.
func (e *Engine) NewOperation(name string) (opcall.Operation, error) {
	def, ok := e.lookup(name)
	if !ok {
		return nil, fmt.Errorf("class %q not found", name)
	}
	return newOperation(def), nil
}

// Operations lists every operation name, sorted.
func (e *Engine) Operations() []string {
	e.opsMu.RLock()
	names := make([]string, 0, len(e.ops))
	for name := range e.ops {
		names = append(names, name)
	}
	e.opsMu.RUnlock()
	sort.Strings(names)
	return names
}

// Build runs op, or returns an equivalent cached result.
func (e *Engine) Build(ctx context.Context, op opcall.Operation) (opcall.Operation, error) {
	o, ok := op.(*Operation)
	if !ok {
		return nil, fmt.Errorf("foreign operation %T", op)
	}
	if o.built {
		return nil, fmt.Errorf("%s: operation already built", o.def.name)
	}
	if err := o.ready(); err != nil {
		return nil, err
	}

	cacheable := !o.def.flags.Has(opcall.OpNoCache)
	var key string
	if cacheable {
		key = o.signature()
		if outputs, hit := e.cache.get(key); hit {
			return o.finish(outputs), nil
		}
	}

	a := &args{op: o.def.name, in: o.inputs, out: make(map[string]any)}
	if err := o.def.run(ctx, e, a); err != nil {
		return nil, err
	}

	if cacheable {
		e.cache.put(key, o.inputs, a.out, o.def.file)
	}
	return o.finish(a.out), nil
}

// ImageFromConstant makes an image the size of match with one band per
// constant. It takes match's format when every constant fits it, double
// otherwise.
func (e *Engine) ImageFromConstant(match opcall.Image, c []float64) (opcall.Image, error) {
	if len(c) == 0 {
		return nil, fmt.Errorf("no constants")
	}
	format := FormatDouble
	if m, ok := match.(*Image); ok {
		format = m.format
		for _, v := range c {
			if !format.Holds(v) {
				format = FormatDouble
				break
			}
		}
	}

	if match.Width() <= 0 || match.Height() <= 0 {
		return nil, fmt.Errorf("bad match image size %dx%d", match.Width(), match.Height())
	}

	key := fmt.Sprintf("%dx%d/%d/%v", match.Width(), match.Height(), format, c)
	im := e.constants.getOrCreate(key, func() *Image {
		im := &Image{
			data:   make([]float64, match.Width()*match.Height()*len(c)),
			width:  match.Width(),
			height: match.Height(),
			bands:  len(c),
			format: format,
			stride: match.Width() * len(c),
		}
		for i := range im.data {
			im.data[i] = format.Clamp(c[i%len(c)])
		}
		return im
	})
	return im, nil
}

// ImageFromMemory wraps data as a double image without copying.
func (e *Engine) ImageFromMemory(data []float64, width, height, bands int) (opcall.Image, error) {
	return WrapMemory(data, width, height, bands)
}

// CopyMemory returns an unshared contiguous copy of img.
func (e *Engine) CopyMemory(img opcall.Image) (opcall.Image, error) {
	im, err := asImage(img)
	if err != nil {
		return nil, err
	}
	return im.copyMemory(), nil
}

// SetCacheMax sets the most operations the cache keeps. 0 disables it.
func (e *Engine) SetCacheMax(n int) { e.cache.setMax(n) }

// SetCacheMaxMem limits the cache by the bytes of the images it keeps.
func (e *Engine) SetCacheMaxMem(n int64) { e.cache.setMaxMem(n) }

// SetCacheMaxFiles limits how many load and save results the cache keeps.
func (e *Engine) SetCacheMaxFiles(n int) { e.cache.setMaxFiles(n) }

// SetCacheTrace turns cache tracing on or off.
func (e *Engine) SetCacheTrace(on bool) { e.cache.setTrace(on) }

// CacheStats reports the cache's size and counters.
func (e *Engine) CacheStats() CacheStats { return e.cache.stats() }

// constantImages reports how many constant images are held.
func (e *Engine) constantImages() int {
	return e.constants.len()
}
