// Package scanimage holds the image and depth-map containers consumed by the
// reconstruction pipeline. Color is kept in linear RGB (sRGB is undone at the
// 8-bit decode boundary) and depth is kept in meters.
package scanimage

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// ChannelOrder is the packed channel layout of a raw 4-channel color buffer.
type ChannelOrder int

const (
	// OrderRGBA is packed R, G, B, A.
	OrderRGBA ChannelOrder = iota
	// OrderBGRA is packed B, G, R, A, the native order of the capture device.
	OrderBGRA
)

// Pixel is one linear-RGB sample with channels in [0, 1].
type Pixel struct {
	R, G, B float64
}

// Image is a dense linear-RGB image.
type Image struct {
	width  int
	height int
	data   []Pixel
}

// NewImage returns a black image of the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{width: width, height: height, data: make([]Pixel, width*height)}
}

// Width returns the horizontal dimension in pixels.
func (img *Image) Width() int {
	return img.width
}

// Height returns the vertical dimension in pixels.
func (img *Image) Height() int {
	return img.height
}

// GetXY returns the linear-RGB pixel at (x, y).
func (img *Image) GetXY(x, y int) Pixel {
	return img.data[y*img.width+x]
}

// SetXY sets the linear-RGB pixel at (x, y).
func (img *Image) SetXY(x, y int, p Pixel) {
	img.data[y*img.width+x] = p
}

// In reports whether (x, y) lies inside the image bounds.
func (img *Image) In(x, y int) bool {
	return x >= 0 && x < img.width && y >= 0 && y < img.height
}

// NRGBA255 converts the pixel at (x, y) back to 8-bit sRGB for export.
func (img *Image) NRGBA255(x, y int) color.NRGBA {
	p := img.GetXY(x, y)
	c := colorful.LinearRgb(p.R, p.G, p.B).Clamped()
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// DecodeRaw8 converts a packed 8-bit 4-channel buffer into a linear-RGB
// image. The alpha channel is dropped and each color channel is converted
// from sRGB to linear.
func DecodeRaw8(buf []byte, width, height int, order ChannelOrder) (*Image, error) {
	if len(buf) != width*height*4 {
		return nil, errors.Errorf("color buffer is %d bytes, want %d (%dx%dx4)",
			len(buf), width*height*4, width, height)
	}
	img := NewImage(width, height)
	for i := 0; i < width*height; i++ {
		var r, g, b uint8
		switch order {
		case OrderBGRA:
			b, g, r = buf[i*4], buf[i*4+1], buf[i*4+2]
		case OrderRGBA:
			r, g, b = buf[i*4], buf[i*4+1], buf[i*4+2]
		default:
			return nil, errors.Errorf("unknown channel order %d", order)
		}
		c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
		lr, lg, lb := c.LinearRgb()
		img.data[i] = Pixel{R: lr, G: lg, B: lb}
	}
	return img, nil
}
