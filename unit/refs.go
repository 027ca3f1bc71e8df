package unit

import (
	"sort"

	"github.com/wippyai/opcall/resource"
)

// Refs is a set of arena buffer handles.
type Refs map[resource.Handle]struct{}

// NewRefs returns a set holding hs.
func NewRefs(hs ...resource.Handle) Refs {
	r := make(Refs, len(hs))
	for _, h := range hs {
		r[h] = struct{}{}
	}
	return r
}

// Add inserts h and reports whether it was new.
func (r Refs) Add(h resource.Handle) bool {
	if _, ok := r[h]; ok {
		return false
	}
	r[h] = struct{}{}
	return true
}

func (r Refs) Has(h resource.Handle) bool {
	_, ok := r[h]
	return ok
}

func (r Refs) Len() int {
	return len(r)
}

// Union adds every handle of o to r.
func (r Refs) Union(o Refs) {
	for h := range o {
		r[h] = struct{}{}
	}
}

func (r Refs) Clone() Refs {
	c := make(Refs, len(r))
	c.Union(r)
	return c
}

// Contains reports whether r is a superset of o.
func (r Refs) Contains(o Refs) bool {
	for h := range o {
		if !r.Has(h) {
			return false
		}
	}
	return true
}

func (r Refs) Equal(o Refs) bool {
	return len(r) == len(o) && r.Contains(o)
}

// Sorted returns the handles in ascending order.
func (r Refs) Sorted() []resource.Handle {
	out := make([]resource.Handle, 0, len(r))
	for h := range r {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
