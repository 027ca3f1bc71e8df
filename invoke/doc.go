// Package invoke calls engine operations by name with loosely typed
// arguments.
//
// A call resolves the operation's descriptor, checks the positional
// arguments against its required inputs and the named ones against its
// optional inputs and outputs, then marshals and sets every argument before
// building the operation:
//
//	inv := invoke.New(eng, arena)
//	res, err := inv.Call(ctx, "min", []value.Value{value.Unit(in)},
//		map[string]value.Value{"x": value.Bool(true)}, "")
//	// res.Outputs[0] is the minimum, res.Optional["x"] its column
//
// Numbers and numeric arrays passed where an image is expected are turned
// into constant images shaped like the first image argument. Inputs the
// operation modifies are copied first, so the caller's units are never
// written to.
//
// Every output unit adopts the buffer references of every input unit, so
// results that alias their inputs keep the underlying memory alive after
// the inputs are closed.
package invoke
