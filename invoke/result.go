package invoke

import (
	"sort"

	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/value"
)

// Shape says how a result should be presented to the caller.
type Shape uint8

const (
	// ShapeVoid: no outputs at all.
	ShapeVoid Shape = iota
	// ShapeSingle: one required output and no optional outputs.
	ShapeSingle
	// ShapeList: several required outputs.
	ShapeList
	// ShapeNamed: only optional outputs.
	ShapeNamed
	// ShapeListNamed: required outputs followed by optional outputs.
	ShapeListNamed
)

func (s Shape) String() string {
	switch s {
	case ShapeVoid:
		return "void"
	case ShapeSingle:
		return "single"
	case ShapeList:
		return "list"
	case ShapeNamed:
		return "named"
	case ShapeListNamed:
		return "list+named"
	default:
		return "unknown"
	}
}

// Result holds the outputs of one call.
type Result struct {
	// Optional holds the requested optional outputs by name.
	Optional map[string]value.Value
	// Outputs are the required outputs in declaration order. Modified
	// inputs appear here too.
	Outputs []value.Value
	// Advisories are non-fatal findings such as deprecated usage.
	Advisories []*errors.Error
}

func (r *Result) Shape() Shape {
	named := len(r.Optional) > 0
	switch {
	case len(r.Outputs) == 0 && !named:
		return ShapeVoid
	case len(r.Outputs) == 0:
		return ShapeNamed
	case named:
		return ShapeListNamed
	case len(r.Outputs) == 1:
		return ShapeSingle
	default:
		return ShapeList
	}
}

// Value returns the single output unwrapped, or the required outputs as a
// list. Void and named-only results give Unset; read Optional for those.
func (r *Result) Value() value.Value {
	switch r.Shape() {
	case ShapeSingle:
		return r.Outputs[0]
	case ShapeList, ShapeListNamed:
		return value.List(r.Outputs...)
	default:
		return value.Unset
	}
}

// Get returns an optional output by name.
func (r *Result) Get(name string) (value.Value, bool) {
	v, ok := r.Optional[name]
	return v, ok
}

// OptionalNames returns the names of the optional outputs, sorted.
func (r *Result) OptionalNames() []string {
	names := make([]string, 0, len(r.Optional))
	for name := range r.Optional {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every unit the result holds.
func (r *Result) Close() error {
	closeUnits(r.Outputs...)
	for _, v := range r.Optional {
		closeUnits(v)
	}
	return nil
}
