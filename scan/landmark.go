package scan

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/meshforge/facescan/align"
)

// ErrLandmarkDepth means a landmark pixel (and its fallback window) had no
// valid depth reading, so the scan cannot participate in alignment.
var ErrLandmarkDepth = errors.New("landmark pixel has no valid depth")

// ExtractLandmarks back-projects the detector's six 2D landmark pixels
// through the frame's own depth map and intrinsics into six 3D centroids,
// in label order. If a landmark pixel has invalid depth, the nearest valid
// pixel within the configured search window is used instead; if none
// exists, the scan fails alignment explicitly rather than back-projecting
// a bogus value.
func ExtractLandmarks(f *Frame, pixels align.ImageLandmarks, cfg Config) (align.LandmarkSet, error) {
	var set align.LandmarkSet
	intr := &f.Calibration.Intrinsics
	for i, px := range pixels {
		x := int(math.Round(px.X))
		y := int(math.Round(px.Y))
		vx, vy, ok := nearestValidDepth(f, x, y, cfg)
		if !ok {
			return set, errors.Wrapf(ErrLandmarkDepth, "landmark %s at (%d, %d)",
				align.LandmarkLabel(i), x, y)
		}
		z := f.Depth.GetDepth(vx, vy)
		ptX, ptY, ptZ := intr.PixelToPoint(float64(vx), float64(vy), z)
		set[i] = r3.Vector{X: ptX, Y: ptY, Z: ptZ}
	}
	return set, nil
}

// nearestValidDepth returns the closest pixel to (x, y) with a valid depth
// reading, searching outward ring by ring up to the configured window.
func nearestValidDepth(f *Frame, x, y int, cfg Config) (int, int, bool) {
	if IsValidDepthAt(f, x, y, cfg) {
		return x, y, true
	}
	for radius := 1; radius <= cfg.LandmarkSearchWindow; radius++ {
		bestDist := math.MaxFloat64
		bestX, bestY := 0, 0
		found := false
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				// Ring only: interior offsets were covered by smaller radii.
				if maxAbs(dx, dy) != radius {
					continue
				}
				cx, cy := x+dx, y+dy
				if !IsValidDepthAt(f, cx, cy, cfg) {
					continue
				}
				if d := float64(dx*dx + dy*dy); d < bestDist {
					bestDist = d
					bestX, bestY = cx, cy
					found = true
				}
			}
		}
		if found {
			return bestX, bestY, true
		}
	}
	return 0, 0, false
}

func maxAbs(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a > b {
		return a
	}
	return b
}
