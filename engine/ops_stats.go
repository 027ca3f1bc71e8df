package engine

import (
	"context"
	"sort"

	"github.com/wippyai/opcall"
)

func statsOps() []*opDef {
	return []*opDef{
		{
			name:        "avg",
			description: "find image average",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out", "Output value", opcall.TypeDouble),
			},
			run: runAvg,
		},
		extremeOp("min", "find image minimum", "minimum", func(a, b float64) bool { return a < b }),
		extremeOp("max", "find image maximum", "maximum", func(a, b float64) bool { return a > b }),
		{
			name:        "getpoint",
			description: "read a point from an image",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out-array", "Array of output values", opcall.TypeArrayDouble),
				input("x", "Point to read", opcall.TypeInt),
				input("y", "Point to read", opcall.TypeInt),
			},
			run: runGetpoint,
		},
	}
}

func runAvg(_ context.Context, _ *Engine, a *args) error {
	in := a.image("in")
	sum := 0.0
	for y := 0; y < in.height; y++ {
		for x := 0; x < in.width; x++ {
			for b := 0; b < in.bands; b++ {
				sum += in.At(x, y, b)
			}
		}
	}
	a.set("out", sum/float64(in.width*in.height*in.bands))
	return nil
}

type sample struct {
	v    float64
	x, y int
}

// extremeOp makes min or max. The first size samples by better are
// reported; ties keep scan order.
func extremeOp(name, description, what string, better func(a, b float64) bool) *opDef {
	return &opDef{
		name:        name,
		description: description,
		args: []opcall.ArgSpec{
			input("in", "Input image", opcall.TypeImage),
			output("out", "Output value", opcall.TypeDouble),
			optionalOutput("x", "Horizontal position of "+what, opcall.TypeInt),
			optionalOutput("y", "Vertical position of "+what, opcall.TypeInt),
			optional("size", "Number of "+what+" values to find", opcall.TypeInt),
			optionalOutput("out-array", "Array of output values", opcall.TypeArrayDouble),
			optionalOutput("x-array", "Array of horizontal positions", opcall.TypeArrayInt),
			optionalOutput("y-array", "Array of vertical positions", opcall.TypeArrayInt),
		},
		defaults: map[string]any{"size": 1},
		run: func(_ context.Context, _ *Engine, a *args) error {
			in := a.image("in")
			size := a.int("size")
			if size < 1 {
				return a.errorf("size must be at least 1, got %d", size)
			}

			samples := make([]sample, 0, in.width*in.height*in.bands)
			for y := 0; y < in.height; y++ {
				for x := 0; x < in.width; x++ {
					for b := 0; b < in.bands; b++ {
						samples = append(samples, sample{v: in.At(x, y, b), x: x, y: y})
					}
				}
			}
			sort.SliceStable(samples, func(i, j int) bool { return better(samples[i].v, samples[j].v) })
			if size > len(samples) {
				size = len(samples)
			}

			values := make([]float64, size)
			xs := make([]int, size)
			ys := make([]int, size)
			for i, s := range samples[:size] {
				values[i], xs[i], ys[i] = s.v, s.x, s.y
			}

			a.set("out", values[0])
			a.set("x", xs[0])
			a.set("y", ys[0])
			a.set("out-array", values)
			a.set("x-array", xs)
			a.set("y-array", ys)
			return nil
		},
	}
}

func runGetpoint(_ context.Context, _ *Engine, a *args) error {
	in := a.image("in")
	x, y := a.int("x"), a.int("y")
	if x < 0 || y < 0 || x >= in.width || y >= in.height {
		return a.errorf("point %d,%d out of range for %dx%d image", x, y, in.width, in.height)
	}
	a.set("out-array", in.Pixel(x, y))
	return nil
}
