package scan

import (
	"github.com/golang/geo/r3"

	"github.com/meshforge/facescan/pointcloud"
)

// BuildPointCloud back-projects every valid depth pixel of the frame into a
// camera-space point cloud with matching colors, then estimates normals
// oriented toward the camera origin. Pixels with invalid depth are skipped
// outright, never zero-filled; an all-invalid frame yields a valid empty
// cloud, which downstream stages short-circuit on.
func BuildPointCloud(f *Frame, cfg Config) (*pointcloud.PointCloud, error) {
	intr := &f.Calibration.Intrinsics
	cloud := pointcloud.NewWithPrealloc(f.Depth.ValidCount(cfg.MinDepth, cfg.MaxDepth))

	for y := 0; y < f.Depth.Height(); y++ {
		for x := 0; x < f.Depth.Width(); x++ {
			z := f.Depth.GetDepth(x, y)
			if !IsValidDepthAt(f, x, y, cfg) {
				continue
			}
			px, py, pz := intr.PixelToPoint(float64(x), float64(y), z)
			cloud.Add(r3.Vector{X: px, Y: py, Z: pz}, f.Color.NRGBA255(x, y))
		}
	}

	if cloud.Size() == 0 {
		return cloud, nil
	}
	if err := cloud.EstimateNormals(cfg.Normals); err != nil {
		return nil, err
	}
	// The camera sits at the origin of camera space.
	cloud.OrientNormalsTowards(r3.Vector{})
	return cloud, nil
}

// IsValidDepthAt reports whether the frame has a usable depth reading at
// the given pixel.
func IsValidDepthAt(f *Frame, x, y int, cfg Config) bool {
	if !f.Depth.In(x, y) {
		return false
	}
	z := f.Depth.GetDepth(x, y)
	return z > cfg.MinDepth && z < cfg.MaxDepth
}
