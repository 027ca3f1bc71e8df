package runtime

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/opcall/errors"
)

// Kernel names a wasm module to register as an operation.
type Kernel struct {
	Name        string
	Path        string
	Export      string
	Description string
}

// RegisterKernel registers wasm as operation name on the reference engine.
// See engine.Engine.RegisterKernel.
func (r *Runtime) RegisterKernel(ctx context.Context, name string, wasm []byte, export, description string) error {
	if err := r.check(); err != nil {
		return err
	}
	if r.ref == nil {
		return errNotReference("kernels")
	}
	if err := r.ref.RegisterKernel(ctx, name, wasm, export, description); err != nil {
		return errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "register kernel "+name)
	}
	return nil
}

// LoadKernels reads and registers each kernel in order, stopping at the
// first failure.
func (r *Runtime) LoadKernels(ctx context.Context, kernels ...Kernel) error {
	for _, k := range kernels {
		wasm, err := os.ReadFile(k.Path)
		if err != nil {
			return errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read kernel "+k.Name)
		}
		if err := r.RegisterKernel(ctx, k.Name, wasm, k.Export, k.Description); err != nil {
			return err
		}
		Logger().Info("kernel loaded", zap.String("operation", k.Name), zap.String("path", k.Path))
	}
	return nil
}
