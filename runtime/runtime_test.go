package runtime

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opcall/engine"
	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/introspect"
	"github.com/wippyai/opcall/invoke"
	"github.com/wippyai/opcall/unit"
	"github.com/wippyai/opcall/value"
)

// doubleWasm exports kernel(f64) -> f64 returning x+x.
var doubleWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7c, 0x01, 0x7c,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x0a, 0x01, 0x06, 0x6b, 0x65, 0x72, 0x6e, 0x65, 0x6c, 0x00, 0x00,
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x00, 0xa0, 0x0b,
}

func newRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt := New(engine.Config{})
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func samples(t *testing.T, u *unit.Unit) []float64 {
	t.Helper()
	im, ok := u.Native().(*engine.Image)
	require.True(t, ok, "native is %T", u.Native())
	return im.Samples()
}

func asUnit(t *testing.T, v value.Value) *unit.Unit {
	t.Helper()
	u, ok := v.AsUnit()
	require.True(t, ok, "value is %s", v.Kind())
	return u
}

func TestRuntime_Call(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	img, err := rt.ImageFromMemory([]float64{0, 1.5}, 2, 1, 1)
	require.NoError(t, err)
	defer img.Close()

	v, err := rt.Call(ctx, "invert", img)
	require.NoError(t, err)
	out := asUnit(t, v)
	defer out.Close()

	assert.Equal(t, []float64{0, -1.5}, samples(t, out))
	assert.True(t, out.References().Equal(img.References()), "output carries the input's references")
}

func TestRuntime_CallOpts(t *testing.T) {
	rt := newRuntime(t)
	img, err := rt.ImageFromMemory([]float64{3, 1, 2}, 3, 1, 1)
	require.NoError(t, err)
	defer img.Close()

	res, err := rt.CallOpts(context.Background(), "min", []any{img}, map[string]any{"x": true, "y": true}, "")
	require.NoError(t, err)
	assert.Equal(t, invoke.ShapeListNamed, res.Shape())

	lo, ok := res.Outputs[0].AsFloat()
	require.True(t, ok)
	assert.Equal(t, 1.0, lo)
	x, _ := res.Get("x")
	xi, _ := x.AsInt()
	assert.Equal(t, 1, xi)
	assert.Equal(t, []string{"x", "y"}, res.OptionalNames())
}

func TestRuntime_Options(t *testing.T) {
	rt := newRuntime(t)
	img, err := rt.ImageFromMemory([]float64{5, 4, 3, 2}, 4, 1, 1)
	require.NoError(t, err)
	defer img.Close()

	res, err := rt.CallOpts(context.Background(), "max", []any{img}, map[string]any{"out_array": true}, "[size=2]")
	require.NoError(t, err)
	arr, ok := res.Get("out_array")
	require.True(t, ok)
	d, _ := arr.AsDoubles()
	assert.Equal(t, []float64{5, 4}, d)
}

func TestRuntime_ReferenceSurvival(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	data := []float64{1, 2, 3, 4}
	img, err := rt.ImageFromMemory(data, 2, 2, 1)
	require.NoError(t, err)

	v, err := rt.Call(ctx, "extract_area", img, 1, 0, 1, 2)
	require.NoError(t, err)
	view := asUnit(t, v)

	require.NoError(t, img.Close())
	assert.Equal(t, 1, rt.Arena().Len(), "the view keeps the buffer pinned")
	assert.Equal(t, []float64{2, 4}, samples(t, view))

	require.NoError(t, view.Close())
	assert.Equal(t, 0, rt.Arena().Len())
	assert.True(t, math.IsNaN(data[0]), "dropped buffer is poisoned")
}

func TestRuntime_ForeignUnit(t *testing.T) {
	ctx := context.Background()
	r1 := newRuntime(t)
	r2 := newRuntime(t)

	data := []float64{1, 2, 3, 4}
	a, err := r1.ImageFromMemory(data, 2, 2, 1)
	require.NoError(t, err)
	b, err := r2.ImageFromMemory([]float64{5, 6, 7, 8}, 2, 2, 1)
	require.NoError(t, err)
	defer b.Close()

	_, err = r2.Call(ctx, "extract_area", a, 1, 0, 1, 2)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Equal(t, 1, r2.Arena().Len(), "r2 took no reference for a")

	v, err := r1.Call(ctx, "extract_area", a, 1, 0, 1, 2)
	require.NoError(t, err)
	view := asUnit(t, v)
	defer view.Close()
	require.NoError(t, a.Close())
	assert.Equal(t, []float64{2, 4}, samples(t, view))
}

func TestRuntime_ClosedUnit(t *testing.T) {
	rt := newRuntime(t)
	img, err := rt.ImageFromMemory([]float64{1, 2}, 2, 1, 1)
	require.NoError(t, err)
	require.NoError(t, img.Close())

	_, err = rt.Call(context.Background(), "invert", img)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "closed")
}

func TestRuntime_LoadSave(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	img, err := rt.ImageFromMemory([]float64{0, 64, 128, 255, 10, 20}, 2, 1, 3)
	require.NoError(t, err)
	defer img.Close()

	for _, format := range []string{"png", "tiff"} {
		t.Run(format, func(t *testing.T) {
			buf, err := rt.Save(ctx, img, format, "")
			require.NoError(t, err)
			require.NotEmpty(t, buf)

			back, err := rt.Load(ctx, buf)
			require.NoError(t, err)
			defer back.Close()
			assert.Equal(t, 3, back.Bands())
			assert.Equal(t, []float64{0, 64, 128, 255, 10, 20}, samples(t, back))
		})
	}

	_, err = rt.Save(ctx, img, "gif", "")
	assert.ErrorIs(t, err, errors.ErrUnknownOperation)
	_, err = rt.Save(ctx, img, "", "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	_, err = rt.Load(ctx, []byte("junk"))
	assert.ErrorIs(t, err, errors.ErrBuildFailed)
}

func TestRuntime_Docs(t *testing.T) {
	rt := newRuntime(t)

	names, err := rt.Operations()
	require.NoError(t, err)
	assert.Contains(t, names, "invert")
	assert.NotContains(t, names, "im_fliphor")

	d, err := rt.Describe("im_fliphor")
	require.NoError(t, err)
	assert.True(t, d.Deprecated())

	doc, err := rt.Docstring("invert")
	require.NoError(t, err)
	assert.Contains(t, doc, "Invert an image.")

	_, err = rt.Docstring("im_fliphor")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	sphinx, err := rt.Sphinx("invert")
	require.NoError(t, err)
	assert.Contains(t, sphinx, ".. method:: invert(in)")

	all, err := rt.SphinxAll()
	require.NoError(t, err)
	assert.Contains(t, all, "~invert")
}

func TestRuntime_Kernel(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)
	require.NoError(t, rt.RegisterKernel(ctx, "double", doubleWasm, "kernel", "double every sample"))

	img, err := rt.ImageFromMemory([]float64{1, 2, 3}, 3, 1, 1)
	require.NoError(t, err)
	defer img.Close()

	v, err := rt.Call(ctx, "double", img)
	require.NoError(t, err)
	out := asUnit(t, v)
	defer out.Close()
	assert.Equal(t, []float64{2, 4, 6}, samples(t, out))

	err = rt.RegisterKernel(ctx, "double", doubleWasm, "", "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestRuntime_LoadKernels(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(t)

	path := filepath.Join(t.TempDir(), "double.wasm")
	require.NoError(t, os.WriteFile(path, doubleWasm, 0o600))
	require.NoError(t, rt.LoadKernels(ctx, Kernel{Name: "twice", Path: path}))
	d, err := rt.Describe("twice")
	require.NoError(t, err)
	assert.Equal(t, []string{"in"}, d.RequiredInput)

	err = rt.LoadKernels(ctx, Kernel{Name: "gone", Path: filepath.Join(t.TempDir(), "missing.wasm")})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestRuntime_ForeignEngine(t *testing.T) {
	eng := engine.New(engine.Config{})
	rt := NewWithEngine(eng)
	defer rt.Close(context.Background())

	err := rt.RegisterKernel(context.Background(), "double", doubleWasm, "", "")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	_, err = rt.CacheStats()
	assert.Error(t, err)
}

func TestRuntime_Subscribe(t *testing.T) {
	rt := newRuntime(t)
	var records []invoke.Record
	rt.Subscribe(invoke.ObserverFunc(func(r invoke.Record) { records = append(records, r) }))

	_, err := rt.Call(context.Background(), "black", 2, 2)
	require.NoError(t, err)
	_, err = rt.Call(context.Background(), "nope")
	require.Error(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "black", records[0].Operation)
	assert.False(t, records[0].Failed())
	assert.True(t, records[1].Failed())
}

func TestRuntime_Close(t *testing.T) {
	ctx := context.Background()
	rt := New(engine.Config{})
	require.NoError(t, rt.Close(ctx))
	require.NoError(t, rt.Close(ctx))

	_, err := rt.Call(ctx, "black", 1, 1)
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = rt.ImageFromMemory([]float64{1}, 1, 1, 1)
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestRuntime_CloseForgetsDescriptors(t *testing.T) {
	ctx := context.Background()
	rt := New(engine.Config{})
	_, err := rt.Describe("invert")
	require.NoError(t, err)
	eng := rt.Engine()
	held := introspect.For(eng)

	require.NoError(t, rt.Close(ctx))
	assert.NotSame(t, held, introspect.For(eng), "closed runtime left its engine in the descriptor cache")
	introspect.Forget(eng)
}
