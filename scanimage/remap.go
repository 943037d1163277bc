package scanimage

import (
	"math"

	"github.com/meshforge/facescan/calib"
)

// Remap resamples the image through an undistortion map using bilinear
// interpolation. Source positions outside the image produce black pixels.
func (img *Image) Remap(m *calib.UndistortionMap) *Image {
	out := NewImage(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			src := m.SourceAt(x, y)
			x0 := int(math.Floor(src.X))
			y0 := int(math.Floor(src.Y))
			fx := src.X - float64(x0)
			fy := src.Y - float64(y0)

			var acc Pixel
			var weight float64
			for _, s := range []struct {
				dx, dy int
				w      float64
			}{
				{0, 0, (1 - fx) * (1 - fy)},
				{1, 0, fx * (1 - fy)},
				{0, 1, (1 - fx) * fy},
				{1, 1, fx * fy},
			} {
				sx, sy := x0+s.dx, y0+s.dy
				if s.w == 0 || !img.In(sx, sy) {
					continue
				}
				p := img.GetXY(sx, sy)
				acc.R += p.R * s.w
				acc.G += p.G * s.w
				acc.B += p.B * s.w
				weight += s.w
			}
			if weight > 0 {
				acc.R /= weight
				acc.G /= weight
				acc.B /= weight
			}
			out.SetXY(x, y, acc)
		}
	}
	return out
}

// Remap resamples the depth map through an undistortion map using
// nearest-neighbor interpolation. Depth must never be blended: averaging a
// valid reading with an invalid neighbor fabricates geometry.
func (dm *DepthMap) Remap(m *calib.UndistortionMap) *DepthMap {
	out := NewEmptyDepthMap(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			src := m.SourceAt(x, y)
			sx := int(math.Round(src.X))
			sy := int(math.Round(src.Y))
			if !dm.In(sx, sy) {
				continue
			}
			out.Set(x, y, dm.GetDepth(sx, sy))
		}
	}
	return out
}
