package scan

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/meshforge/facescan/align"
	"github.com/meshforge/facescan/calib"
	"github.com/meshforge/facescan/scanimage"
)

func depthOnlyFrame(width, height int) *Frame {
	return &Frame{
		Depth: scanimage.NewEmptyDepthMap(width, height),
		Calibration: &calib.Data{
			Intrinsics: calib.Intrinsics{
				Width: width, Height: height,
				Fx: 80, Fy: 80,
				Ppx: float64(width) / 2, Ppy: float64(height) / 2,
			},
		},
	}
}

func allLandmarksAt(p r2.Point) align.ImageLandmarks {
	var lm align.ImageLandmarks
	for i := range lm {
		lm[i] = p
	}
	return lm
}

func TestExtractLandmarksDirect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 64, 64
	f := depthOnlyFrame(64, 64)
	f.Depth.Set(32, 32, 0.3)

	set, err := ExtractLandmarks(f, allLandmarksAt(r2.Point{X: 32, Y: 32}), cfg)
	test.That(t, err, test.ShouldBeNil)
	// Pixel (32, 32) is the principal point: the ray is straight ahead.
	test.That(t, set[align.NoseTip].X, test.ShouldAlmostEqual, 0)
	test.That(t, set[align.NoseTip].Y, test.ShouldAlmostEqual, 0)
	test.That(t, set[align.NoseTip].Z, test.ShouldAlmostEqual, 0.3, 1e-6)
}

func TestExtractLandmarksFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 64, 64
	f := depthOnlyFrame(64, 64)
	// The only valid reading sits 2 pixels left of the landmark.
	f.Depth.Set(30, 32, 0.25)

	set, err := ExtractLandmarks(f, allLandmarksAt(r2.Point{X: 32, Y: 32}), cfg)
	test.That(t, err, test.ShouldBeNil)
	// Back-projection uses the fallback pixel, not the original one.
	x, y, z := f.Calibration.Intrinsics.PixelToPoint(30, 32, 0.25)
	test.That(t, set[align.Chin].X, test.ShouldAlmostEqual, x, 1e-9)
	test.That(t, set[align.Chin].Y, test.ShouldAlmostEqual, y, 1e-9)
	test.That(t, set[align.Chin].Z, test.ShouldAlmostEqual, z, 1e-9)
}

func TestExtractLandmarksPrefersNearest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 64, 64
	f := depthOnlyFrame(64, 64)
	f.Depth.Set(33, 32, 0.2) // distance 1
	f.Depth.Set(29, 32, 0.4) // distance 3

	set, err := ExtractLandmarks(f, allLandmarksAt(r2.Point{X: 32, Y: 32}), cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, set[align.NoseTip].Z, test.ShouldAlmostEqual, 0.2, 1e-6)
}

func TestExtractLandmarksNoDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 64, 64
	f := depthOnlyFrame(64, 64)
	// Valid reading exists but is outside the 5-pixel search window.
	f.Depth.Set(40, 32, 0.3)

	_, err := ExtractLandmarks(f, allLandmarksAt(r2.Point{X: 32, Y: 32}), cfg)
	test.That(t, errors.Is(err, ErrLandmarkDepth), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "noseTip")
}

func TestExtractLandmarksRejectsOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 64, 64
	f := depthOnlyFrame(64, 64)
	// A reading outside (MinDepth, MaxDepth) is as good as none.
	f.Depth.Set(32, 32, 0.9)

	_, err := ExtractLandmarks(f, allLandmarksAt(r2.Point{X: 32, Y: 32}), cfg)
	test.That(t, errors.Is(err, ErrLandmarkDepth), test.ShouldBeTrue)
}
