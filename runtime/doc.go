// Package runtime is the high-level entry point for calling engine
// operations by name.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt := runtime.New(engine.Config{})
//	defer rt.Close(ctx)
//
//	img, err := rt.ImageFromMemory(pixels, 640, 480, 3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer img.Close()
//
//	// one required output comes back unwrapped
//	v, err := rt.Call(ctx, "invert", img)
//	inverted, _ := v.AsUnit()
//	defer inverted.Close()
//
// # Optional arguments
//
// CallOpts takes optional inputs and the optional outputs to read back in
// one map. Any value requests an optional output:
//
//	res, err := rt.CallOpts(ctx, "min", []any{img}, map[string]any{"x": true, "y": true}, "")
//	lo := res.Value()
//	x, _ := res.Get("x")
//
// # Memory
//
// ImageFromMemory does not copy. The slice stays pinned while the unit
// made from it, or any result derived from it, is open; close units when
// done with them. Close drops every pinned buffer.
//
// # Codecs and kernels
//
// Load and Save run the imageload_buffer and <format>save_buffer
// operations. RegisterKernel and LoadKernels add wasm-backed operations
// to the reference engine.
package runtime
