package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/unit"
)

// ToNative converts v to the engine representation of spec's declared type.
// Promotion of constants to units happens before this, in the invoker.
func ToNative(v Value, spec opcall.ArgSpec) (any, error) {
	switch spec.Type {
	case opcall.TypeInt:
		switch v.kind {
		case KindInt:
			return v.data.(int), nil
		case KindFloat:
			if f := v.data.(float64); isIntegral(f) {
				return int(f), nil
			}
		case KindBool:
			if v.data.(bool) {
				return 1, nil
			}
			return 0, nil
		}

	case opcall.TypeDouble:
		if f, ok := v.AsFloat(); ok {
			return f, nil
		}

	case opcall.TypeBool:
		switch v.kind {
		case KindBool:
			return v.data.(bool), nil
		case KindInt:
			return v.data.(int) != 0, nil
		}

	case opcall.TypeString:
		if s, ok := v.AsString(); ok {
			return s, nil
		}

	case opcall.TypeEnum:
		return enumToNative(v, spec)

	case opcall.TypeFlags:
		return flagsToNative(v, spec)

	case opcall.TypeImage:
		if u, ok := v.AsUnit(); ok {
			return u.Native(), nil
		}

	case opcall.TypeArrayDouble:
		if v.IsNumber() {
			f, _ := v.AsFloat()
			return []float64{f}, nil
		}
		if nums, ok := v.Numbers(); ok {
			out := make([]float64, len(nums))
			copy(out, nums)
			return out, nil
		}

	case opcall.TypeArrayInt:
		if i, ok := v.AsInt(); ok {
			return []int{i}, nil
		}
		if ints, ok := v.AsInts(); ok {
			out := make([]int, len(ints))
			copy(out, ints)
			return out, nil
		}
		if v.kind == KindDoubles || v.kind == KindList {
			if nums, ok := v.Numbers(); ok {
				out := make([]int, len(nums))
				for i, f := range nums {
					if !isIntegral(f) {
						return nil, mismatch(v, spec, fmt.Sprintf("element %d is not integral", i))
					}
					out[i] = int(f)
				}
				return out, nil
			}
		}

	case opcall.TypeArrayImage:
		return unitsToNative(v, spec)

	case opcall.TypeBlob:
		switch v.kind {
		case KindBlob:
			return v.data.([]byte), nil
		case KindString:
			return []byte(v.data.(string)), nil
		}
	}

	return nil, mismatch(v, spec, "")
}

func enumToNative(v Value, spec opcall.ArgSpec) (any, error) {
	if spec.Enum == nil {
		if i, ok := v.AsInt(); ok {
			return i, nil
		}
		return nil, mismatch(v, spec, "enum type has no members")
	}
	if s, ok := v.AsString(); ok {
		tag, found := spec.Enum.Value(s)
		if !found {
			return nil, mismatch(v, spec, fmt.Sprintf("%q is not a member of %s", s, spec.Enum.Name))
		}
		return tag, nil
	}
	if i, ok := v.AsInt(); ok {
		if _, found := spec.Enum.Nick(i); !found {
			return nil, mismatch(v, spec, fmt.Sprintf("%d is not a member of %s", i, spec.Enum.Name))
		}
		return i, nil
	}
	return nil, mismatch(v, spec, "")
}

func flagsToNative(v Value, spec opcall.ArgSpec) (any, error) {
	if i, ok := v.AsInt(); ok {
		return i, nil
	}
	s, ok := v.AsString()
	if !ok {
		return nil, mismatch(v, spec, "")
	}
	if spec.Enum == nil {
		return nil, mismatch(v, spec, "flags type has no members")
	}
	mask := 0
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bit, found := spec.Enum.Value(part)
		if !found {
			if n, err := strconv.Atoi(part); err == nil {
				bit, found = n, true
			}
		}
		if !found {
			return nil, mismatch(v, spec, fmt.Sprintf("%q is not a member of %s", part, spec.Enum.Name))
		}
		mask |= bit
	}
	return mask, nil
}

func unitsToNative(v Value, spec opcall.ArgSpec) (any, error) {
	switch v.kind {
	case KindUnit:
		return []opcall.Image{v.data.(*unit.Unit).Native()}, nil
	case KindUnits:
		units := v.data.([]*unit.Unit)
		out := make([]opcall.Image, len(units))
		for i, u := range units {
			if u == nil {
				return nil, mismatch(v, spec, fmt.Sprintf("element %d is nil", i))
			}
			out[i] = u.Native()
		}
		return out, nil
	case KindList:
		items := v.data.([]Value)
		out := make([]opcall.Image, len(items))
		for i, item := range items {
			u, ok := item.AsUnit()
			if !ok {
				return nil, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
					Argument(spec.Name).
					Path(strconv.Itoa(i)).
					HostType(item.kind.String()).
					EngType(opcall.TypeImage.String()).
					Build()
			}
			out[i] = u.Native()
		}
		return out, nil
	}
	return nil, mismatch(v, spec, "")
}

// FromNative converts an engine value of spec's declared type. Images are
// wrapped with wrap, which decides the arena the new unit belongs to.
func FromNative(nat any, spec opcall.ArgSpec, wrap func(opcall.Image) *unit.Unit) (Value, error) {
	if nat == nil {
		return Unset, nil
	}

	switch spec.Type {
	case opcall.TypeInt, opcall.TypeFlags:
		if i, ok := nat.(int); ok {
			return Int(i), nil
		}

	case opcall.TypeDouble:
		if f, ok := nat.(float64); ok {
			return Float(f), nil
		}

	case opcall.TypeBool:
		if b, ok := nat.(bool); ok {
			return Bool(b), nil
		}

	case opcall.TypeString:
		if s, ok := nat.(string); ok {
			return String(s), nil
		}

	case opcall.TypeEnum:
		if i, ok := nat.(int); ok {
			if spec.Enum == nil {
				return Int(i), nil
			}
			if nick, found := spec.Enum.Nick(i); found {
				return Enum(nick), nil
			}
			return Unset, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
				Argument(spec.Name).
				EngType(spec.Enum.Name).
				Detail("engine returned unknown tag %d", i).
				Value(i).
				Build()
		}

	case opcall.TypeImage:
		if img, ok := nat.(opcall.Image); ok {
			return Unit(wrap(img)), nil
		}

	case opcall.TypeArrayDouble:
		if d, ok := nat.([]float64); ok {
			out := make([]float64, len(d))
			copy(out, d)
			return Doubles(out), nil
		}

	case opcall.TypeArrayInt:
		if d, ok := nat.([]int); ok {
			out := make([]int, len(d))
			copy(out, d)
			return Ints(out), nil
		}

	case opcall.TypeArrayImage:
		if imgs, ok := nat.([]opcall.Image); ok {
			units := make([]*unit.Unit, len(imgs))
			for i, img := range imgs {
				units[i] = wrap(img)
			}
			return Units(units), nil
		}

	case opcall.TypeBlob:
		if b, ok := nat.([]byte); ok {
			return Blob(b), nil
		}
	}

	return Unset, errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
		Argument(spec.Name).
		HostType(fmt.Sprintf("%T", nat)).
		EngType(spec.Type.String()).
		Detail("engine returned an unexpected representation").
		Build()
}

func mismatch(v Value, spec opcall.ArgSpec, detail string) *errors.Error {
	b := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
		Argument(spec.Name).
		HostType(v.kind.String()).
		EngType(spec.Type.String())
	if detail != "" {
		b.Detail("%s", detail)
	}
	return b.Build()
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}
