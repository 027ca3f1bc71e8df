// Package opcall calls operations of an introspectable processing engine by name.
//
// Callers pass loosely typed arguments and get typed results back without
// hand-written bindings per operation. The engine describes each operation's
// arguments; opcall caches that schema, marshals values to the declared engine
// types, and threads buffer lifetimes through every call so results stay valid
// after their inputs are discarded.
//
// # Architecture Overview
//
//	opcall/          Root package with the Engine, Operation and Image interfaces
//	├── runtime/     High-level API joining engine, arena and invoker
//	├── invoke/      Dynamic invoker: arity, promotion, modify copies, result shaping
//	├── introspect/  Per-operation argument schema, cached process-wide, docstrings
//	├── value/       Tagged Value union and marshaling to and from engine types
//	├── unit/        Processing units and their buffer reference sets
//	├── refs/        Reference collection and propagation across calls
//	├── resource/    Ref-counted buffer arena
//	├── engine/      Pure Go reference engine (images, wasm kernels, codecs)
//	├── errors/      Structured error types
//	├── config/      YAML configuration and logger setup
//	├── journal/     SQLite journal of invocations
//	├── internal/cli Cobra commands and the interactive runner
//	└── cmd/opcall/  Command line entry point
//
// # Quick Start
//
//	rt := runtime.New(engine.Config{})
//	defer rt.Close(ctx)
//
//	img, err := rt.ImageFromMemory(pixels, 64, 64, 3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := rt.Call(ctx, "invert", img)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, _ := v.AsUnit()
//
// Optional arguments and optional outputs are passed by name:
//
//	res, err := rt.CallOpts(ctx, "min", []any{img}, map[string]any{"x": true, "y": true}, "")
//	minimum := res.Outputs[0]
//	x := res.Optional["x"]
//
// # Buffer Lifetimes
//
// A unit made from caller memory pins that memory in the arena. Every unit
// produced by a call retains the buffers its inputs depended on, so closing
// the inputs never invalidates the outputs.
//
// # Thread Safety
//
// Runtime, Invoker and the descriptor caches are safe for concurrent use.
// A unit must not be mutated while it is the input of an in-flight call.
package opcall
