package engine

import (
	"context"
	"fmt"
	"image"

	"github.com/gogpu/gg"

	"github.com/wippyai/opcall"
)

func drawOps() []*opDef {
	return []*opDef{
		{
			name:        "draw_rect",
			description: "paint a rectangle on an image",
			args: []opcall.ArgSpec{
				{Name: "image", Blurb: "Image to draw on", Type: opcall.TypeImage, Flags: reqIn | opcall.ArgModify},
				input("ink", "Color for pixels", opcall.TypeArrayDouble),
				input("left", "Rect to fill", opcall.TypeInt),
				input("top", "Rect to fill", opcall.TypeInt),
				input("width", "Rect to fill", opcall.TypeInt),
				input("height", "Rect to fill", opcall.TypeInt),
				optional("fill", "Draw a solid object", opcall.TypeBool),
			},
			flags: opcall.OpNoCache,
			run: func(_ context.Context, _ *Engine, a *args) error {
				left, top := float64(a.int("left")), float64(a.int("top"))
				width, height := float64(a.int("width")), float64(a.int("height"))
				return paint(a, func(dc *gg.Context) {
					if a.bool("fill") {
						dc.DrawRectangle(left, top, width, height)
						return
					}
					// centre the one pixel outline on the edge pixels
					dc.DrawRectangle(left+0.5, top+0.5, width-1, height-1)
				})
			},
		},
		{
			name:        "draw_circle",
			description: "draw a circle on an image",
			args: []opcall.ArgSpec{
				{Name: "image", Blurb: "Image to draw on", Type: opcall.TypeImage, Flags: reqIn | opcall.ArgModify},
				input("ink", "Color for pixels", opcall.TypeArrayDouble),
				input("cx", "Centre of draw_circle", opcall.TypeInt),
				input("cy", "Centre of draw_circle", opcall.TypeInt),
				input("radius", "Radius in pixels", opcall.TypeInt),
				optional("fill", "Draw a solid object", opcall.TypeBool),
			},
			flags: opcall.OpNoCache,
			run: func(_ context.Context, _ *Engine, a *args) error {
				cx, cy := float64(a.int("cx"))+0.5, float64(a.int("cy"))+0.5
				r := float64(a.int("radius"))
				return paint(a, func(dc *gg.Context) {
					dc.DrawCircle(cx, cy, r)
				})
			},
		},
	}
}

// paint rasterizes a shape into a coverage mask and blends ink into the
// image by coverage. The image is written in place.
func paint(a *args, shape func(dc *gg.Context)) error {
	im, ink := a.image("image"), a.doubles("ink")
	if len(ink) != 1 && len(ink) != im.bands {
		return a.errorf("ink has %d elements, image has %d bands", len(ink), im.bands)
	}

	mask, err := coverage(im.width, im.height, a.bool("fill"), shape)
	if err != nil {
		return a.errorf("%v", err)
	}
	for y := 0; y < im.height; y++ {
		for x := 0; x < im.width; x++ {
			_, _, _, alpha := mask.At(x, y).RGBA()
			if alpha == 0 {
				continue
			}
			cover := float64(alpha) / 0xffff
			for b := 0; b < im.bands; b++ {
				v := ink[0]
				if len(ink) > 1 {
					v = ink[b]
				}
				im.Set(x, y, b, cover*v+(1-cover)*im.At(x, y, b))
			}
		}
	}
	return nil
}

func coverage(width, height int, fill bool, shape func(dc *gg.Context)) (image.Image, error) {
	dc := gg.NewContext(width, height)
	defer func() { _ = dc.Close() }()

	dc.SetRGBA(1, 1, 1, 1)
	shape(dc)
	if fill {
		if err := dc.Fill(); err != nil {
			return nil, fmt.Errorf("fill: %w", err)
		}
	} else {
		dc.SetLineWidth(1)
		if err := dc.Stroke(); err != nil {
			return nil, fmt.Errorf("stroke: %w", err)
		}
	}
	return dc.Image(), nil
}
