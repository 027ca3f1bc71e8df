// Package value is the marshaling layer between host values and engine types.
//
// Value is a closed tagged union: unset, int, float, bool, string, enum,
// unit, doubles, ints, units, blob and list. Every argument passed into a
// call and every result read back is one of these.
//
// ToNative coerces a Value to an argument's declared engine type and
// FromNative reads an engine value back. Coercions are explicit per declared
// type; a value that cannot satisfy the type fails with a type_mismatch
// error naming the argument, the host kind and the engine type.
//
//	spec := opcall.ArgSpec{Name: "a", Type: opcall.TypeArrayDouble}
//	nat, err := value.ToNative(value.Int(2), spec) // []float64{2}
package value
