// Package refs tracks buffer references across calls.
//
// A result built from other units may alias their buffers. Collect gathers
// the references of every unit in a call's inputs, and Propagate makes every
// output unit hold them, so a buffer stays alive until the last unit that
// depends on it is closed.
package refs

import (
	"github.com/wippyai/opcall/unit"
	"github.com/wippyai/opcall/value"
)

// Collect returns the union of the references of every unit inside v.
func Collect(v value.Value) unit.Refs {
	r := unit.NewRefs()
	CollectInto(r, v)
	return r
}

// CollectInto adds the references of every unit inside v to acc.
func CollectInto(acc unit.Refs, v value.Value) {
	value.EachUnit(v, func(u *unit.Unit) {
		acc.Union(u.References())
	})
}

// Propagate makes every unit inside v adopt r. Existing references are kept.
func Propagate(v value.Value, r unit.Refs) {
	if r.Len() == 0 {
		return
	}
	value.EachUnit(v, func(u *unit.Unit) {
		u.Adopt(r)
	})
}

// MatchUnit returns the first unit found depth-first across args, or nil.
// Constants promoted in the same call take their shape and format from it.
func MatchUnit(args []value.Value) *unit.Unit {
	for _, arg := range args {
		found, ok := value.Find(arg, func(v value.Value) bool {
			return v.Kind() == value.KindUnit
		})
		if ok {
			u, _ := found.AsUnit()
			return u
		}
	}
	return nil
}
