package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/engine"
	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/introspect"
	"github.com/wippyai/opcall/invoke"
	"github.com/wippyai/opcall/resource"
	"github.com/wippyai/opcall/unit"
	"github.com/wippyai/opcall/value"
)

// Runtime joins an engine, the arena caller memory is pinned in, and an
// invoker over both.
type Runtime struct {
	eng     opcall.Engine
	ref     *engine.Engine
	arena   *resource.Arena
	invoker *invoke.Invoker
	closed  atomic.Bool
}

// New creates a runtime over a fresh reference engine.
func New(cfg engine.Config) *Runtime {
	ref := engine.New(cfg)
	r := NewWithEngine(ref)
	r.ref = ref
	return r
}

// NewWithEngine creates a runtime over any engine. Close does not close
// eng.
func NewWithEngine(eng opcall.Engine) *Runtime {
	arena := resource.NewArena()
	return &Runtime{
		eng:     eng,
		arena:   arena,
		invoker: invoke.New(eng, arena),
	}
}

// Close releases the arena and, for runtimes made by New, the engine and
// its descriptor cache.
// Units still open read poisoned memory afterwards.
func (r *Runtime) Close(ctx context.Context) error {
	if r.closed.Swap(true) {
		return nil
	}
	err := r.arena.Close()
	if r.ref != nil {
		introspect.Forget(r.eng)
		err = stderrors.Join(err, r.ref.Close(ctx))
	}
	Logger().Debug("runtime closed", zap.Error(err))
	return err
}

func (r *Runtime) Engine() opcall.Engine       { return r.eng }
func (r *Runtime) Arena() *resource.Arena      { return r.arena }
func (r *Runtime) Invoker() *invoke.Invoker    { return r.invoker }
func (r *Runtime) Subscribe(o invoke.Observer) { r.invoker.Subscribe(o) }

// Operations lists the documented operations, sorted. Deprecated
// operations stay callable but are not listed.
func (r *Runtime) Operations() ([]string, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.invoker.Descriptors().Names(), nil
}

func (r *Runtime) Describe(name string) (*introspect.Descriptor, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.invoker.Descriptors().Describe(name)
}

func (r *Runtime) Docstring(name string) (string, error) {
	if err := r.check(); err != nil {
		return "", err
	}
	return r.invoker.Descriptors().Docstring(name)
}

func (r *Runtime) Sphinx(name string) (string, error) {
	if err := r.check(); err != nil {
		return "", err
	}
	return r.invoker.Descriptors().Sphinx(name)
}

func (r *Runtime) SphinxAll() (string, error) {
	if err := r.check(); err != nil {
		return "", err
	}
	return r.invoker.Descriptors().SphinxAll()
}

// Call invokes name with required inputs only and returns the result
// value: the single output, or a list for several.
func (r *Runtime) Call(ctx context.Context, name string, args ...any) (value.Value, error) {
	res, err := r.CallOpts(ctx, name, args, nil, "")
	if err != nil {
		return value.Unset, err
	}
	return res.Value(), nil
}

// CallOpts invokes name with optional inputs, requested optional outputs
// and an engine option string.
func (r *Runtime) CallOpts(ctx context.Context, name string, args []any, named map[string]any, options string) (*invoke.Result, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.invoker.CallAny(ctx, name, args, named, options)
}

// ImageFromMemory wraps data as a unit without copying. data is pinned in
// the runtime's arena until the unit and every result derived from it are
// closed.
func (r *Runtime) ImageFromMemory(data []float64, width, height, bands int) (*unit.Unit, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return unit.FromMemory(r.eng, r.arena, data, width, height, bands)
}

// Load decodes an encoded image with imageload_buffer.
func (r *Runtime) Load(ctx context.Context, buf []byte) (*unit.Unit, error) {
	v, err := r.Call(ctx, "imageload_buffer", buf)
	if err != nil {
		return nil, err
	}
	u, ok := v.AsUnit()
	if !ok {
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Operation("imageload_buffer").
			Detail("loader returned %s, not an image", v.Kind()).
			Build()
	}
	Logger().Debug("loaded", zap.Int("bytes", len(buf)), zap.Stringer("image", u))
	return u, nil
}

// Save encodes u with the <format>save_buffer operation, for example
// format "png" runs pngsave_buffer. options is that operation's option
// string.
func (r *Runtime) Save(ctx context.Context, u *unit.Unit, format, options string) ([]byte, error) {
	if format == "" {
		return nil, errors.InvalidInput(errors.PhaseInvoke, "no save format")
	}
	op := format + "save_buffer"
	res, err := r.CallOpts(ctx, op, []any{u}, nil, options)
	if err != nil {
		return nil, err
	}
	buf, ok := res.Value().AsBlob()
	if !ok {
		return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
			Operation(op).
			Detail("saver returned %s, not a blob", res.Value().Kind()).
			Build()
	}
	Logger().Debug("saved", zap.String("operation", op), zap.Int("bytes", len(buf)))
	return buf, nil
}

// CacheStats reports the reference engine's operation cache.
func (r *Runtime) CacheStats() (engine.CacheStats, error) {
	if r.ref == nil {
		return engine.CacheStats{}, errNotReference("cache stats")
	}
	return r.ref.CacheStats(), nil
}

func (r *Runtime) check() error {
	if r.closed.Load() {
		return errors.New(errors.PhaseInvoke, errors.KindClosed).Detail("runtime closed").Build()
	}
	return nil
}

func errNotReference(what string) error {
	return errors.InvalidInput(errors.PhaseEngine, fmt.Sprintf("%s needs the reference engine", what))
}
