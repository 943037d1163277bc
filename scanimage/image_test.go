package scanimage

import (
	"testing"

	"go.viam.com/test"
)

func TestDecodeRaw8Orders(t *testing.T) {
	// One red and one blue pixel, packed both ways.
	rgba := []byte{255, 0, 0, 255, 0, 0, 255, 255}
	bgra := []byte{0, 0, 255, 255, 255, 0, 0, 255}

	imgRGBA, err := DecodeRaw8(rgba, 2, 1, OrderRGBA)
	test.That(t, err, test.ShouldBeNil)
	imgBGRA, err := DecodeRaw8(bgra, 2, 1, OrderBGRA)
	test.That(t, err, test.ShouldBeNil)

	for _, img := range []*Image{imgRGBA, imgBGRA} {
		red := img.GetXY(0, 0)
		test.That(t, red.R, test.ShouldAlmostEqual, 1)
		test.That(t, red.G, test.ShouldAlmostEqual, 0)
		test.That(t, red.B, test.ShouldAlmostEqual, 0)
		blue := img.GetXY(1, 0)
		test.That(t, blue.R, test.ShouldAlmostEqual, 0)
		test.That(t, blue.B, test.ShouldAlmostEqual, 1)
	}
}

func TestDecodeRaw8Linearizes(t *testing.T) {
	// sRGB 128 is darker than half intensity once linearized.
	img, err := DecodeRaw8([]byte{128, 128, 128, 255}, 1, 1, OrderRGBA)
	test.That(t, err, test.ShouldBeNil)
	p := img.GetXY(0, 0)
	test.That(t, p.R, test.ShouldAlmostEqual, 0.2158, 1e-3)
	test.That(t, p.R, test.ShouldEqual, p.G)
	test.That(t, p.G, test.ShouldEqual, p.B)

	// NRGBA255 undoes the linearization exactly.
	c := img.NRGBA255(0, 0)
	test.That(t, c.R, test.ShouldEqual, uint8(128))
	test.That(t, c.A, test.ShouldEqual, uint8(255))
}

func TestDecodeRaw8BadSize(t *testing.T) {
	_, err := DecodeRaw8(make([]byte, 7), 2, 1, OrderRGBA)
	test.That(t, err, test.ShouldNotBeNil)
}
