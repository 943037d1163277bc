package scanimage

import (
	"testing"

	"go.viam.com/test"

	"github.com/meshforge/facescan/calib"
)

// identityMap builds an undistortion map whose inverse table is all zeros,
// so every target pixel samples itself.
func identityMap(width, height int) *calib.UndistortionMap {
	return calib.NewUndistortionMap(&calib.Data{
		Intrinsics: calib.Intrinsics{
			Width: width, Height: height,
			Fx: 100, Fy: 100,
			Ppx: float64(width) / 2, Ppy: float64(height) / 2,
		},
		Inverse: calib.LookupTable{0, 0, 0, 0},
	})
}

func TestImageRemapIdentity(t *testing.T) {
	img := NewImage(4, 4)
	img.SetXY(1, 2, Pixel{R: 0.5, G: 0.25, B: 0.75})

	out := img.Remap(identityMap(4, 4))
	test.That(t, out.Width(), test.ShouldEqual, 4)
	test.That(t, out.Height(), test.ShouldEqual, 4)
	p := out.GetXY(1, 2)
	test.That(t, p.R, test.ShouldAlmostEqual, 0.5, 1e-6)
	test.That(t, p.G, test.ShouldAlmostEqual, 0.25, 1e-6)
	test.That(t, p.B, test.ShouldAlmostEqual, 0.75, 1e-6)

	// Untouched pixels stay black.
	zero := out.GetXY(3, 3)
	test.That(t, zero.R, test.ShouldAlmostEqual, 0, 1e-6)
}

func TestDepthRemapNearestNeighbor(t *testing.T) {
	dm := NewEmptyDepthMap(4, 4)
	dm.Set(2, 1, 0.3)

	out := dm.Remap(identityMap(4, 4))
	test.That(t, out.GetDepth(2, 1), test.ShouldAlmostEqual, 0.3, 1e-6)
	// Invalid neighbors never bleed into valid readings or vice versa.
	test.That(t, out.GetDepth(1, 1), test.ShouldAlmostEqual, 0)
	test.That(t, out.GetDepth(3, 1), test.ShouldAlmostEqual, 0)
	test.That(t, out.ValidCount(0.1, 0.5), test.ShouldEqual, 1)
}
