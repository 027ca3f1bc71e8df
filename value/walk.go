package value

import "github.com/wippyai/opcall/unit"

// Walk visits v depth-first, descending into lists and unit arrays. Each
// unit inside a unit array is visited as a Unit value. Walk stops early when
// fn returns false and reports whether it ran to completion.
func Walk(v Value, fn func(Value) bool) bool {
	if !fn(v) {
		return false
	}
	switch v.kind {
	case KindList:
		for _, item := range v.data.([]Value) {
			if !Walk(item, fn) {
				return false
			}
		}
	case KindUnits:
		for _, u := range v.data.([]*unit.Unit) {
			if u == nil {
				continue
			}
			if !fn(Unit(u)) {
				return false
			}
		}
	}
	return true
}

// Find returns the first value depth-first that satisfies pred.
func Find(v Value, pred func(Value) bool) (Value, bool) {
	var found Value
	var ok bool
	Walk(v, func(x Value) bool {
		if pred(x) {
			found, ok = x, true
			return false
		}
		return true
	})
	return found, ok
}

// EachUnit calls fn for every unit inside v.
func EachUnit(v Value, fn func(*unit.Unit)) {
	Walk(v, func(x Value) bool {
		if u, ok := x.AsUnit(); ok {
			fn(u)
		}
		return true
	})
}
