package invoke

import (
	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/errors"
	"github.com/wippyai/opcall/unit"
	"github.com/wippyai/opcall/value"
)

// promote turns constants into units shaped like match when the argument
// wants an image or an array of images. Without a match unit v is returned
// unchanged.
func (inv *Invoker) promote(v value.Value, typ opcall.Type, match *unit.Unit) (value.Value, error) {
	if match == nil {
		return v, nil
	}

	switch typ {
	case opcall.TypeImage:
		return inv.imageize(v, match)

	case opcall.TypeArrayImage:
		switch v.Kind() {
		case value.KindUnit, value.KindUnits:
			return v, nil
		case value.KindList:
			items, _ := v.AsList()
			out := make([]value.Value, len(items))
			for i, item := range items {
				p, err := inv.imageize(item, match)
				if err != nil {
					return value.Unset, err
				}
				out[i] = p
			}
			return value.List(out...), nil
		case value.KindDoubles, value.KindInts:
			nums, _ := v.Numbers()
			out := make([]value.Value, len(nums))
			for i, n := range nums {
				p, err := inv.imageize(value.Float(n), match)
				if err != nil {
					return value.Unset, err
				}
				out[i] = p
			}
			return value.List(out...), nil
		case value.KindInt, value.KindFloat:
			p, err := inv.imageize(v, match)
			if err != nil {
				return value.Unset, err
			}
			return value.List(p), nil
		}
	}
	return v, nil
}

// imageize makes a constant image from a number or a numeric array, one
// band per element. Anything else passes through.
func (inv *Invoker) imageize(v value.Value, match *unit.Unit) (value.Value, error) {
	var consts []float64
	switch {
	case v.IsNumber():
		f, _ := v.AsFloat()
		consts = []float64{f}
	default:
		nums, ok := v.Numbers()
		if !ok || len(nums) == 0 {
			return v, nil
		}
		consts = nums
	}

	img, err := inv.eng.ImageFromConstant(match.Native(), consts)
	if err != nil {
		return value.Unset, errors.Wrap(errors.PhaseEngine, errors.KindInvalidInput, err, "image from constant")
	}
	return value.Unit(unit.New(img, nil)), nil
}
