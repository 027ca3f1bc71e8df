package engine

import (
	"context"

	"github.com/wippyai/opcall"
)

// Direction is the axis flip mirrors across.
type Direction int

const (
	DirectionHorizontal Direction = 0
	DirectionVertical   Direction = 1
)

var DirectionEnum = &opcall.EnumType{
	Name:   "Direction",
	Nicks:  []string{"horizontal", "vertical"},
	Values: []int{0, 1},
}

func bandOps() []*opDef {
	return []*opDef{
		{
			name:        "copy",
			description: "copy an image",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out", "Output image", opcall.TypeImage),
				{Name: "swap", Blurb: "Swap bytes in image between little and big-endian", Type: opcall.TypeBool, Flags: optIn | opcall.ArgDeprecated},
			},
			run: runCopy,
		},
		{
			name:        "extract_area",
			description: "extract an area from an image",
			args: []opcall.ArgSpec{
				input("input", "Input image", opcall.TypeImage),
				output("out", "Output image", opcall.TypeImage),
				input("left", "Left edge of extract area", opcall.TypeInt),
				input("top", "Top edge of extract area", opcall.TypeInt),
				input("width", "Width of extract area", opcall.TypeInt),
				input("height", "Height of extract area", opcall.TypeInt),
			},
			run: runExtractArea,
		},
		{
			name:        "bandjoin",
			description: "bandwise join a set of images",
			args: []opcall.ArgSpec{
				input("in", "Array of input images", opcall.TypeArrayImage),
				output("out", "Output image", opcall.TypeImage),
			},
			run: runBandjoin,
		},
		{
			name:        "bandjoin_const",
			description: "append a constant band to an image",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out", "Output image", opcall.TypeImage),
				input("c", "Array of constants to add", opcall.TypeArrayDouble),
			},
			run: runBandjoinConst,
		},
		{
			name:        "sum",
			description: "sum an array of images",
			args: []opcall.ArgSpec{
				input("in", "Array of input images", opcall.TypeArrayImage),
				output("out", "Output image", opcall.TypeImage),
			},
			run: runSum,
		},
		{
			name:        "cast",
			description: "cast an image",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out", "Output image", opcall.TypeImage),
				enumArg(input("format", "Format to cast to", opcall.TypeEnum), FormatEnum),
			},
			run: runCast,
		},
		{
			name:        "flip",
			description: "flip an image",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out", "Output image", opcall.TypeImage),
				enumArg(input("direction", "Direction to flip image", opcall.TypeEnum), DirectionEnum),
			},
			run: runFlip,
		},
		{
			name:        "im_fliphor",
			description: "flip image left-right",
			args: []opcall.ArgSpec{
				input("in", "Input image", opcall.TypeImage),
				output("out", "Output image", opcall.TypeImage),
			},
			flags: opcall.OpDeprecated,
			run: func(_ context.Context, _ *Engine, a *args) error {
				a.set("out", flip(a.image("in"), DirectionHorizontal))
				return nil
			},
		},
	}
}

// runCopy returns a view of the whole input. swap is accepted and ignored:
// samples are held natively.
func runCopy(_ context.Context, _ *Engine, a *args) error {
	in := a.image("in")
	out, err := in.view(0, 0, in.width, in.height)
	if err != nil {
		return a.errorf("%v", err)
	}
	a.set("out", out)
	return nil
}

func runExtractArea(_ context.Context, _ *Engine, a *args) error {
	out, err := a.image("input").view(a.int("left"), a.int("top"), a.int("width"), a.int("height"))
	if err != nil {
		return a.errorf("%v", err)
	}
	a.set("out", out)
	return nil
}

func runBandjoin(_ context.Context, _ *Engine, a *args) error {
	in := a.images("in")
	if len(in) == 0 {
		return a.errorf("no input images")
	}
	if err := sameSize(in...); err != nil {
		return a.errorf("%v", err)
	}

	bands := 0
	formats := make([]BandFormat, len(in))
	for i, im := range in {
		bands += im.bands
		formats[i] = im.format
	}
	out, err := NewImage(in[0].width, in[0].height, bands, widest(formats...))
	if err != nil {
		return a.errorf("%v", err)
	}
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			ob := 0
			for _, im := range in {
				for b := 0; b < im.bands; b++ {
					out.Set(x, y, ob, im.At(x, y, b))
					ob++
				}
			}
		}
	}
	a.set("out", out)
	return nil
}

func runBandjoinConst(_ context.Context, _ *Engine, a *args) error {
	in, c := a.image("in"), a.doubles("c")
	if len(c) == 0 {
		return a.errorf("no constants")
	}
	format := in.format
	for _, v := range c {
		if !format.Holds(v) {
			format = FormatDouble
			break
		}
	}
	out, err := NewImage(in.width, in.height, in.bands+len(c), format)
	if err != nil {
		return a.errorf("%v", err)
	}
	for y := 0; y < in.height; y++ {
		for x := 0; x < in.width; x++ {
			for b := 0; b < in.bands; b++ {
				out.Set(x, y, b, in.At(x, y, b))
			}
			for i, v := range c {
				out.Set(x, y, in.bands+i, v)
			}
		}
	}
	a.set("out", out)
	return nil
}

func runSum(_ context.Context, _ *Engine, a *args) error {
	in := a.images("in")
	if len(in) == 0 {
		return a.errorf("no input images")
	}
	if err := sameSize(in...); err != nil {
		return a.errorf("%v", err)
	}
	bands, err := commonBands(in...)
	if err != nil {
		return a.errorf("%v", err)
	}
	formats := make([]BandFormat, len(in))
	for i, im := range in {
		formats[i] = im.format
	}
	out, err := NewImage(in[0].width, in[0].height, bands, arithmeticFormat(formats...))
	if err != nil {
		return a.errorf("%v", err)
	}
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			for b := 0; b < bands; b++ {
				total := 0.0
				for _, im := range in {
					total += im.band(x, y, b)
				}
				out.Set(x, y, b, total)
			}
		}
	}
	a.set("out", out)
	return nil
}

func runCast(_ context.Context, _ *Engine, a *args) error {
	out, err := mapImage(a.image("in"), BandFormat(a.int("format")), func(v float64) float64 { return v })
	if err != nil {
		return a.errorf("%v", err)
	}
	a.set("out", out)
	return nil
}

func runFlip(_ context.Context, _ *Engine, a *args) error {
	a.set("out", flip(a.image("in"), Direction(a.int("direction"))))
	return nil
}

func flip(in *Image, dir Direction) *Image {
	out := &Image{
		data:   make([]float64, in.width*in.height*in.bands),
		width:  in.width,
		height: in.height,
		bands:  in.bands,
		format: in.format,
		stride: in.width * in.bands,
	}
	for y := 0; y < in.height; y++ {
		for x := 0; x < in.width; x++ {
			sx, sy := in.width-1-x, y
			if dir == DirectionVertical {
				sx, sy = x, in.height-1-y
			}
			for b := 0; b < in.bands; b++ {
				out.data[out.index(x, y, b)] = in.At(sx, sy, b)
			}
		}
	}
	return out
}
