package calib

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"github.com/meshforge/facescan/utils"
)

// UndistortionMap is a dense per-pixel remap table. For every pixel of the
// target (undistorted) image it holds the source position in the distorted
// image that should be sampled. Built once per calibration + resolution and
// reused for both the color and depth buffer of the same frame.
type UndistortionMap struct {
	Width  int
	Height int
	mapX   []float32
	mapY   []float32
}

// SourceAt returns the distorted-image position to sample for target pixel
// (x, y).
func (m *UndistortionMap) SourceAt(x, y int) r2.Point {
	i := y*m.Width + x
	return r2.Point{X: float64(m.mapX[i]), Y: float64(m.mapY[i])}
}

// maxRadius is the largest distance from the distortion center to any pixel
// of the grid, which is always attained at one of the four corners.
func maxRadius(width, height int, cx, cy float64) float64 {
	maxR := 0.0
	for _, corner := range []r2.Point{
		{X: 0, Y: 0},
		{X: float64(width - 1), Y: 0},
		{X: 0, Y: float64(height - 1)},
		{X: float64(width - 1), Y: float64(height - 1)},
	} {
		if r := math.Hypot(corner.X-cx, corner.Y-cy); r > maxR {
			maxR = r
		}
	}
	return maxR
}

// NewUndistortionMap computes the remap table for the calibration's capture
// resolution. For each target pixel the offset from the distortion center is
// scaled by 1 + inverseLookup(r / rMax), where rMax is the maximum radius
// over the full grid. A zero inverse table therefore yields the identity map.
func NewUndistortionMap(d *Data) *UndistortionMap {
	width, height := d.Intrinsics.Width, d.Intrinsics.Height
	cx, cy := d.Intrinsics.Ppx, d.Intrinsics.Ppy
	maxR := maxRadius(width, height, cx, cy)
	if maxR == 0 {
		maxR = 1 // single-pixel grid
	}

	m := &UndistortionMap{
		Width:  width,
		Height: height,
		mapX:   make([]float32, width*height),
		mapY:   make([]float32, width*height),
	}
	utils.ParallelForEachPixel(image.Point{width, height}, func(x, y int) {
		dx := float64(x) - cx
		dy := float64(y) - cy
		rNorm := math.Hypot(dx, dy) / maxR
		scale := d.Inverse.ScaleAt(rNorm)
		i := y*width + x
		m.mapX[i] = float32(dx*scale + cx)
		m.mapY[i] = float32(dy*scale + cy)
	})
	return m
}
