package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/opcall"
)

// kernelHost owns the wazero runtime that wasm kernels run in. The runtime
// is created on first registration.
type kernelHost struct {
	runtime          wazero.Runtime
	memoryLimitPages uint32
	mu               sync.Mutex
}

func newKernelHost(memoryLimitPages uint32) *kernelHost {
	return &kernelHost{memoryLimitPages: memoryLimitPages}
}

func (h *kernelHost) ensure(ctx context.Context) wazero.Runtime {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runtime == nil {
		cfg := wazero.NewRuntimeConfig()
		if h.memoryLimitPages > 0 {
			cfg = cfg.WithMemoryLimitPages(h.memoryLimitPages)
		}
		h.runtime = wazero.NewRuntimeWithConfig(ctx, cfg)
	}
	return h.runtime
}

func (h *kernelHost) close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runtime == nil {
		return nil
	}
	err := h.runtime.Close(ctx)
	h.runtime = nil
	return err
}

// kernel is one instantiated wasm module. A module instance is not safe
// for concurrent calls.
type kernel struct {
	fn api.Function
	mu sync.Mutex
}

func (k *kernel) apply(ctx context.Context, v float64) (float64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	results, err := k.fn.Call(ctx, api.EncodeF64(v))
	if err != nil {
		return 0, err
	}
	return api.DecodeF64(results[0]), nil
}

// RegisterKernel compiles wasm and registers an operation name that maps
// every sample of its input through export, which must have type
// (f64) -> f64. export defaults to "kernel". The output is double.
func (e *Engine) RegisterKernel(ctx context.Context, name string, wasm []byte, export, description string) error {
	if !validOpName(name) {
		return fmt.Errorf("invalid operation name %q", name)
	}
	if _, exists := e.lookup(name); exists {
		return fmt.Errorf("operation %q already registered", name)
	}
	if export == "" {
		export = "kernel"
	}
	if description == "" {
		description = "apply wasm kernel " + export
	}

	rt := e.kernels.ensure(ctx)
	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return fmt.Errorf("compile kernel %s: %w", name, err)
	}
	def, ok := compiled.ExportedFunctions()[export]
	if !ok {
		_ = compiled.Close(ctx)
		return fmt.Errorf("kernel %s: no exported function %q", name, export)
	}
	f64 := []api.ValueType{api.ValueTypeF64}
	if !slices.Equal(def.ParamTypes(), f64) || !slices.Equal(def.ResultTypes(), f64) {
		_ = compiled.Close(ctx)
		return fmt.Errorf("kernel %s: %s must have type (f64) -> f64", name, export)
	}

	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return fmt.Errorf("instantiate kernel %s: %w", name, err)
	}
	k := &kernel{fn: mod.ExportedFunction(export)}

	err = e.register(&opDef{
		name:        name,
		description: description,
		args: []opcall.ArgSpec{
			input("in", "Input image", opcall.TypeImage),
			output("out", "Output image", opcall.TypeImage),
		},
		run: func(ctx context.Context, _ *Engine, a *args) error {
			in := a.image("in")
			out, err := NewImage(in.width, in.height, in.bands, FormatDouble)
			if err != nil {
				return a.errorf("%v", err)
			}
			for y := 0; y < in.height; y++ {
				for x := 0; x < in.width; x++ {
					for b := 0; b < in.bands; b++ {
						v, err := k.apply(ctx, in.At(x, y, b))
						if err != nil {
							return a.errorf("kernel trapped at %d,%d: %v", x, y, err)
						}
						out.Set(x, y, b, v)
					}
				}
			}
			a.set("out", out)
			return nil
		},
	})
	if err != nil {
		_ = mod.Close(ctx)
		return err
	}
	Logger().Debug("kernel registered", zap.String("operation", name), zap.String("export", export))
	return nil
}
