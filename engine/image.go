package engine

import (
	"fmt"

	"github.com/wippyai/opcall"
)

// Image is a band-interleaved image over a float64 sample buffer. Views
// share the buffer of the image they were cut from.
type Image struct {
	data   []float64
	width  int
	height int
	bands  int
	format BandFormat
	// offset is the index of the first sample, stride the samples per
	// buffer row.
	offset int
	stride int
}

var _ opcall.Image = (*Image)(nil)

// NewImage allocates a zeroed image.
func NewImage(width, height, bands int, format BandFormat) (*Image, error) {
	if width <= 0 || height <= 0 || bands <= 0 {
		return nil, fmt.Errorf("bad image size %dx%dx%d", width, height, bands)
	}
	if !format.Valid() {
		return nil, fmt.Errorf("bad band format %d", format)
	}
	return &Image{
		data:   make([]float64, width*height*bands),
		width:  width,
		height: height,
		bands:  bands,
		format: format,
		stride: width * bands,
	}, nil
}

// WrapMemory makes a double image over data without copying it.
func WrapMemory(data []float64, width, height, bands int) (*Image, error) {
	if width <= 0 || height <= 0 || bands <= 0 {
		return nil, fmt.Errorf("bad image size %dx%dx%d", width, height, bands)
	}
	if len(data) != width*height*bands {
		return nil, fmt.Errorf("memory area holds %d samples, %dx%dx%d needs %d",
			len(data), width, height, bands, width*height*bands)
	}
	return &Image{
		data:   data,
		width:  width,
		height: height,
		bands:  bands,
		format: FormatDouble,
		stride: width * bands,
	}, nil
}

func (im *Image) Width() int         { return im.width }
func (im *Image) Height() int        { return im.height }
func (im *Image) Bands() int         { return im.bands }
func (im *Image) Format() BandFormat { return im.format }

func (im *Image) String() string {
	return fmt.Sprintf("Image %dx%dx%d %s", im.width, im.height, im.bands, im.format)
}

func (im *Image) index(x, y, b int) int {
	return im.offset + y*im.stride + x*im.bands + b
}

// At returns one sample.
func (im *Image) At(x, y, b int) float64 {
	return im.data[im.index(x, y, b)]
}

// Set writes one sample, clamped to the image's format.
func (im *Image) Set(x, y, b int, v float64) {
	im.data[im.index(x, y, b)] = im.format.Clamp(v)
}

// Pixel returns the bands of one pixel.
func (im *Image) Pixel(x, y int) []float64 {
	i := im.index(x, y, 0)
	return append([]float64(nil), im.data[i:i+im.bands]...)
}

// Samples returns the samples in row-major, band-interleaved order as a
// fresh slice.
func (im *Image) Samples() []float64 {
	out := make([]float64, 0, im.width*im.height*im.bands)
	for y := 0; y < im.height; y++ {
		start := im.index(0, y, 0)
		out = append(out, im.data[start:start+im.width*im.bands]...)
	}
	return out
}

// Shares reports whether im and o are backed by the same buffer.
func (im *Image) Shares(o *Image) bool {
	if len(im.data) == 0 || len(o.data) == 0 {
		return false
	}
	return &im.data[0] == &o.data[0]
}

// view returns a window onto im without copying.
func (im *Image) view(left, top, width, height int) (*Image, error) {
	if left < 0 || top < 0 || width <= 0 || height <= 0 ||
		left+width > im.width || top+height > im.height {
		return nil, fmt.Errorf("bad extract area %d,%d %dx%d of %dx%d",
			left, top, width, height, im.width, im.height)
	}
	return &Image{
		data:   im.data,
		width:  width,
		height: height,
		bands:  im.bands,
		format: im.format,
		offset: im.index(left, top, 0),
		stride: im.stride,
	}, nil
}

// copyMemory returns a contiguous, unshared copy.
func (im *Image) copyMemory() *Image {
	return &Image{
		data:   im.Samples(),
		width:  im.width,
		height: im.height,
		bands:  im.bands,
		format: im.format,
		stride: im.width * im.bands,
	}
}

// bytes is the size of the buffer this image owns or views.
func (im *Image) bytes() int64 {
	return int64(im.width) * int64(im.height) * int64(im.bands) * 8
}

// band returns sample b of pixel (x, y), replicating one-band images.
func (im *Image) band(x, y, b int) float64 {
	if im.bands == 1 {
		return im.data[im.index(x, y, 0)]
	}
	return im.data[im.index(x, y, b)]
}

func sameSize(images ...*Image) error {
	for _, im := range images[1:] {
		if im.width != images[0].width || im.height != images[0].height {
			return fmt.Errorf("images must match in size: %dx%d and %dx%d",
				images[0].width, images[0].height, im.width, im.height)
		}
	}
	return nil
}

// commonBands returns the band count images combine to, where one-band
// images are replicated.
func commonBands(images ...*Image) (int, error) {
	bands := 1
	for _, im := range images {
		if im.bands == 1 {
			continue
		}
		if bands != 1 && im.bands != bands {
			return 0, fmt.Errorf("images must have one band or the same number of bands: %d and %d", bands, im.bands)
		}
		bands = im.bands
	}
	return bands, nil
}

func asImage(v any) (*Image, error) {
	im, ok := v.(*Image)
	if !ok || im == nil {
		return nil, fmt.Errorf("not a reference engine image: %T", v)
	}
	return im, nil
}
