package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/tiff"

	// registered with image.Decode for imageload_buffer
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/wippyai/opcall"
)

// ForeignKeepEnum is the set of metadata kinds a saver may keep.
var ForeignKeepEnum = &opcall.EnumType{
	Name:   "ForeignKeep",
	Nicks:  []string{"none", "exif", "xmp", "iptc", "icc", "other", "all"},
	Values: []int{0, 1, 2, 4, 8, 16, 31},
}

// TiffCompressionEnum lists the tiffsave compression schemes.
var TiffCompressionEnum = &opcall.EnumType{
	Name:   "TiffCompression",
	Nicks:  []string{"none", "deflate"},
	Values: []int{0, 1},
}

func codecOps() []*opDef {
	keep := optional("keep", "Which metadata to retain", opcall.TypeFlags)
	keep.Enum = ForeignKeepEnum

	return []*opDef{
		{
			name:        "imageload_buffer",
			description: "load an image from a buffer",
			args: []opcall.ArgSpec{
				input("buffer", "Buffer to load from", opcall.TypeBlob),
				output("out", "Output image", opcall.TypeImage),
				optionalOutput("format", "Name of the decoder used", opcall.TypeString),
			},
			run:  runImageload,
			file: true,
		},
		{
			name:        "pngsave_buffer",
			description: "save image to png buffer",
			args: []opcall.ArgSpec{
				input("in", "Image to save", opcall.TypeImage),
				output("buffer", "Buffer to save to", opcall.TypeBlob),
				optional("compression", "Compression factor", opcall.TypeInt),
				optional("bitdepth", "Write as a 8 or 16 bit image", opcall.TypeInt),
				keep,
			},
			defaults: map[string]any{"compression": 6, "bitdepth": 0, "keep": 31},
			run:      runPngsave,
			file:     true,
		},
		{
			name:        "tiffsave_buffer",
			description: "save image to tiff buffer",
			args: []opcall.ArgSpec{
				input("in", "Image to save", opcall.TypeImage),
				output("buffer", "Buffer to save to", opcall.TypeBlob),
				enumArg(optional("compression", "Compression for this file", opcall.TypeEnum), TiffCompressionEnum),
				optional("predictor", "Use horizontal differencing", opcall.TypeBool),
				keep,
			},
			defaults: map[string]any{"compression": 0, "keep": 31},
			run:      runTiffsave,
			file:     true,
		},
	}
}

func runImageload(_ context.Context, _ *Engine, a *args) error {
	src, loader, err := image.Decode(bytes.NewReader(a.blob("buffer")))
	if err != nil {
		return a.errorf("%v", err)
	}
	out, err := fromGoImage(src)
	if err != nil {
		return a.errorf("%v", err)
	}
	a.set("out", out)
	a.set("format", loader)
	return nil
}

func runPngsave(_ context.Context, _ *Engine, a *args) error {
	in := a.image("in")
	wide := in.format == FormatUshort
	switch depth := a.int("bitdepth"); depth {
	case 0:
	case 8:
		wide = false
	case 16:
		wide = true
	default:
		return a.errorf("bitdepth must be 8 or 16, got %d", depth)
	}
	img, err := toGoImage(in, wide)
	if err != nil {
		return a.errorf("%v", err)
	}

	level := png.DefaultCompression
	switch c := a.int("compression"); {
	case c < 0 || c > 9:
		return a.errorf("compression must be in 0-9, got %d", c)
	case c == 0:
		level = png.NoCompression
	case c <= 3:
		level = png.BestSpeed
	case c >= 7:
		level = png.BestCompression
	}

	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return a.errorf("%v", err)
	}
	a.set("buffer", buf.Bytes())
	return nil
}

func runTiffsave(_ context.Context, _ *Engine, a *args) error {
	in := a.image("in")
	img, err := toGoImage(in, in.format == FormatUshort)
	if err != nil {
		return a.errorf("%v", err)
	}
	opts := &tiff.Options{Compression: tiff.Uncompressed, Predictor: a.bool("predictor")}
	if a.int("compression") == 1 {
		opts.Compression = tiff.Deflate
	}

	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, opts); err != nil {
		return a.errorf("%v", err)
	}
	a.set("buffer", buf.Bytes())
	return nil
}

// toGoImage converts im for encoding. One band is grey, two grey plus
// alpha, three RGB, four RGBA.
func toGoImage(im *Image, wide bool) (image.Image, error) {
	if im.bands > 4 {
		return nil, fmt.Errorf("cannot save %d band image", im.bands)
	}
	rect := image.Rect(0, 0, im.width, im.height)
	format, shift := FormatUchar, 8
	if wide {
		format, shift = FormatUshort, 0
	}
	sample := func(x, y, b int) uint16 {
		return uint16(format.Clamp(math.Round(im.At(x, y, b)))) << shift
	}

	if im.bands == 1 {
		if wide {
			out := image.NewGray16(rect)
			for y := 0; y < im.height; y++ {
				for x := 0; x < im.width; x++ {
					out.SetGray16(x, y, color.Gray16{Y: sample(x, y, 0)})
				}
			}
			return out, nil
		}
		out := image.NewGray(rect)
		for y := 0; y < im.height; y++ {
			for x := 0; x < im.width; x++ {
				out.SetGray(x, y, color.Gray{Y: uint8(sample(x, y, 0) >> 8)})
			}
		}
		return out, nil
	}

	pixel := func(x, y int) color.NRGBA64 {
		var c color.NRGBA64
		switch im.bands {
		case 2:
			g := sample(x, y, 0)
			c = color.NRGBA64{R: g, G: g, B: g, A: sample(x, y, 1)}
		case 3:
			c = color.NRGBA64{R: sample(x, y, 0), G: sample(x, y, 1), B: sample(x, y, 2), A: 0xffff}
		default:
			c = color.NRGBA64{R: sample(x, y, 0), G: sample(x, y, 1), B: sample(x, y, 2), A: sample(x, y, 3)}
		}
		return c
	}

	if wide {
		out := image.NewNRGBA64(rect)
		for y := 0; y < im.height; y++ {
			for x := 0; x < im.width; x++ {
				out.SetNRGBA64(x, y, pixel(x, y))
			}
		}
		return out, nil
	}
	out := image.NewNRGBA(rect)
	for y := 0; y < im.height; y++ {
		for x := 0; x < im.width; x++ {
			c := pixel(x, y)
			out.SetNRGBA(x, y, color.NRGBA{R: uint8(c.R >> 8), G: uint8(c.G >> 8), B: uint8(c.B >> 8), A: uint8(c.A >> 8)})
		}
	}
	return out, nil
}

// fromGoImage converts a decoded image. Grey sources give one band, opaque
// colour sources three and the rest four. 16-bit sources load as ushort.
func fromGoImage(src image.Image) (*Image, error) {
	bounds := src.Bounds()
	wide := false
	switch src.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		wide = true
	}
	format, shift := FormatUchar, 8
	if wide {
		format, shift = FormatUshort, 0
	}

	grey := false
	switch src.(type) {
	case *image.Gray, *image.Gray16:
		grey = true
	}
	bands := 4
	switch {
	case grey:
		bands = 1
	case isOpaque(src):
		bands = 3
	}

	out, err := NewImage(bounds.Dx(), bounds.Dy(), bands, format)
	if err != nil {
		return nil, err
	}
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			if grey {
				g := color.Gray16Model.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
				out.Set(x, y, 0, float64(g.Y>>shift))
				continue
			}
			n := nrgba64(src, bounds.Min.X+x, bounds.Min.Y+y)
			for b, v := range []uint16{n.R, n.G, n.B, n.A}[:bands] {
				out.Set(x, y, b, float64(v>>shift))
			}
		}
	}
	return out, nil
}

// nrgba64 reads a non-premultiplied pixel, directly when the source holds
// non-premultiplied samples so alpha does not cost precision.
func nrgba64(src image.Image, x, y int) color.NRGBA64 {
	switch s := src.(type) {
	case *image.NRGBA:
		c := s.NRGBAAt(x, y)
		return color.NRGBA64{R: uint16(c.R) * 0x101, G: uint16(c.G) * 0x101, B: uint16(c.B) * 0x101, A: uint16(c.A) * 0x101}
	case *image.NRGBA64:
		return s.NRGBA64At(x, y)
	}
	return color.NRGBA64Model.Convert(src.At(x, y)).(color.NRGBA64)
}

func isOpaque(src image.Image) bool {
	o, ok := src.(interface{ Opaque() bool })
	return ok && o.Opaque()
}
