package engine

import (
	"context"
	"testing"
)

func TestDrawRect_Fill(t *testing.T) {
	e := New(Config{})
	im := newImage(t, 6, 6, 3, FormatUchar)
	op := run(t, e, "draw_rect", map[string]any{
		"image": im, "ink": []float64{200, 100, 50},
		"left": 1, "top": 1, "width": 4, "height": 4, "fill": true,
	})

	if got := get[*Image](t, op, "image"); got != im {
		t.Error("draw_rect should hand back the image it drew on")
	}
	if got := im.Pixel(2, 3); got[0] != 200 || got[1] != 100 || got[2] != 50 {
		t.Errorf("inside = %v", got)
	}
	for _, p := range [][2]int{{0, 0}, {5, 5}, {0, 3}} {
		if got := im.At(p[0], p[1], 0); got != 0 {
			t.Errorf("outside %v = %v", p, got)
		}
	}
}

func TestDrawRect_Outline(t *testing.T) {
	e := New(Config{})
	im := newImage(t, 7, 7, 1, FormatUchar)
	run(t, e, "draw_rect", map[string]any{
		"image": im, "ink": []float64{255},
		"left": 1, "top": 1, "width": 5, "height": 5,
	})
	if got := im.At(3, 1, 0); got == 0 {
		t.Error("top edge not drawn")
	}
	if got := im.At(3, 3, 0); got != 0 {
		t.Errorf("centre = %v, outline should leave it alone", got)
	}
}

func TestDrawCircle(t *testing.T) {
	e := New(Config{})
	im := newImage(t, 11, 11, 1, FormatDouble)
	run(t, e, "draw_circle", map[string]any{
		"image": im, "ink": []float64{1}, "cx": 5, "cy": 5, "radius": 3, "fill": true,
	})
	if got := im.At(5, 5, 0); got != 1 {
		t.Errorf("centre = %v", got)
	}
	if got := im.At(0, 0, 0); got != 0 {
		t.Errorf("corner = %v", got)
	}
}

func TestDraw_InkMismatch(t *testing.T) {
	e := New(Config{})
	op, _ := e.NewOperation("draw_rect")
	_ = op.Set("image", newImage(t, 2, 2, 1, FormatUchar))
	_ = op.Set("ink", []float64{1, 2})
	for _, k := range []string{"left", "top", "width", "height"} {
		_ = op.Set(k, 1)
	}
	if _, err := e.Build(context.Background(), op); err == nil {
		t.Fatal("two-element ink on a one-band image should fail")
	}
}
