package engine

import (
	"context"
	"fmt"

	"github.com/wippyai/opcall"
)

func arithmeticOps() []*opDef {
	return []*opDef{
		{
			name:        "black",
			description: "make a black image",
			args: []opcall.ArgSpec{
				output("out", "Output image", opcall.TypeImage),
				input("width", "Image width in pixels", opcall.TypeInt),
				input("height", "Image height in pixels", opcall.TypeInt),
				optional("bands", "Number of bands in image", opcall.TypeInt),
			},
			defaults: map[string]any{"bands": 1},
			run:      runBlack,
		},
		binaryOp("add", "add two images", func(l, r float64) float64 { return l + r }, arithmeticFormat),
		binaryOp("subtract", "subtract two images", func(l, r float64) float64 { return l - r }, signedFormat),
		binaryOp("multiply", "multiply two images", func(l, r float64) float64 { return l * r }, arithmeticFormat),
		binaryOp("divide", "divide two images", func(l, r float64) float64 {
			if r == 0 {
				return 0
			}
			return l / r
		}, floatFormat),
		{
			name:        "linear",
			description: "calculate (a * in + b)",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out", "Output image", opcall.TypeImage),
				input("a", "Multiply by this", opcall.TypeArrayDouble),
				input("b", "Add this", opcall.TypeArrayDouble),
				optional("uchar", "Output should be uchar", opcall.TypeBool),
			},
			run: runLinear,
		},
		{
			name:        "invert",
			description: "invert an image",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out", "Output image", opcall.TypeImage),
			},
			run: runInvert,
		},
	}
}

func runBlack(_ context.Context, _ *Engine, a *args) error {
	out, err := NewImage(a.int("width"), a.int("height"), a.int("bands"), FormatUchar)
	if err != nil {
		return a.errorf("%v", err)
	}
	a.set("out", out)
	return nil
}

// binaryOp makes a two-image operation. One-band images are replicated
// across the bands of the other.
func binaryOp(name, description string, fn func(l, r float64) float64, format func(...BandFormat) BandFormat) *opDef {
	return &opDef{
		name:        name,
		description: description,
		args: []opcall.ArgSpec{
			input("left", "Left-hand image argument", opcall.TypeImage),
			input("right", "Right-hand image argument", opcall.TypeImage),
			output("out", "Output image", opcall.TypeImage),
		},
		run: func(_ context.Context, _ *Engine, a *args) error {
			l, r := a.image("left"), a.image("right")
			if err := sameSize(l, r); err != nil {
				return a.errorf("%v", err)
			}
			bands, err := commonBands(l, r)
			if err != nil {
				return a.errorf("%v", err)
			}
			out, err := NewImage(l.width, l.height, bands, format(l.format, r.format))
			if err != nil {
				return a.errorf("%v", err)
			}
			for y := 0; y < out.height; y++ {
				for x := 0; x < out.width; x++ {
					for b := 0; b < bands; b++ {
						out.Set(x, y, b, fn(l.band(x, y, b), r.band(x, y, b)))
					}
				}
			}
			a.set("out", out)
			return nil
		},
	}
}

func runLinear(_ context.Context, _ *Engine, a *args) error {
	in, mul, add := a.image("in"), a.doubles("a"), a.doubles("b")
	if len(mul) == 0 || len(add) == 0 {
		return a.errorf("a and b need at least one element")
	}

	bands := max(in.bands, len(mul), len(add))
	for _, n := range []int{in.bands, len(mul), len(add)} {
		if n != 1 && n != bands {
			return a.errorf("vector of %d does not match image of %d bands", n, bands)
		}
	}

	format := floatFormat(in.format)
	if a.bool("uchar") {
		format = FormatUchar
	}
	out, err := NewImage(in.width, in.height, bands, format)
	if err != nil {
		return a.errorf("%v", err)
	}
	pick := func(v []float64, b int) float64 {
		if len(v) == 1 {
			return v[0]
		}
		return v[b]
	}
	for y := 0; y < in.height; y++ {
		for x := 0; x < in.width; x++ {
			for b := 0; b < bands; b++ {
				out.Set(x, y, b, pick(mul, b)*in.band(x, y, b)+pick(add, b))
			}
		}
	}
	a.set("out", out)
	return nil
}

func runInvert(_ context.Context, _ *Engine, a *args) error {
	in := a.image("in")
	var fn func(float64) float64
	switch in.format {
	case FormatUchar, FormatUshort, FormatUint:
		_, hi := in.format.Range()
		fn = func(v float64) float64 { return hi - v }
	default:
		fn = func(v float64) float64 { return -v }
	}
	out, err := mapImage(in, in.format, fn)
	if err != nil {
		return a.errorf("%v", err)
	}
	a.set("out", out)
	return nil
}

// mapImage applies fn to every sample of in.
func mapImage(in *Image, format BandFormat, fn func(float64) float64) (*Image, error) {
	out, err := NewImage(in.width, in.height, in.bands, format)
	if err != nil {
		return nil, fmt.Errorf("map image: %w", err)
	}
	for y := 0; y < in.height; y++ {
		for x := 0; x < in.width; x++ {
			for b := 0; b < in.bands; b++ {
				out.Set(x, y, b, fn(in.At(x, y, b)))
			}
		}
	}
	return out, nil
}
