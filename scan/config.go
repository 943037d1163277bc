// Package scan runs the per-frame capture pipeline (calibration,
// undistortion, depth filtering, back-projection, landmark extraction) and
// fuses the per-scan results into a single surface mesh.
package scan

import (
	"github.com/pkg/errors"

	"github.com/meshforge/facescan/mesh"
	"github.com/meshforge/facescan/pointcloud"
	"github.com/meshforge/facescan/scanimage"
)

// ErrIO is wrapped by unreadable frame inputs. The frame is skipped and the
// pipeline continues with the remaining frames.
var ErrIO = errors.New("unreadable frame input")

// Config holds the pipeline parameters for one capture session.
type Config struct {
	// Width and Height are the capture resolution.
	Width  int
	Height int

	// MinDepth and MaxDepth bound valid depth readings, in meters. Values
	// outside the open interval are invalid and excluded from
	// reconstruction, never treated as zero.
	MinDepth float64
	MaxDepth float64

	// DepthUnitScale converts raw uint16 depth samples to meters (0.001
	// for millimeter sensors). Float32 depth buffers are assumed meters.
	DepthUnitScale float64

	// ColorOrder is the packed layout of the raw color buffer.
	ColorOrder scanimage.ChannelOrder

	// ForegroundPercentile, when in (0, 1), discards depth readings beyond
	// that percentile as background. Zero disables the pre-filter.
	ForegroundPercentile float64

	// Normals configures per-point normal estimation.
	Normals pointcloud.NormalEstimationConfig

	// LandmarkSearchWindow is the half-width in pixels of the fallback
	// search for a valid depth reading around a landmark pixel.
	LandmarkSearchWindow int

	// Poisson configures surface reconstruction.
	Poisson mesh.PoissonConfig

	// EdgeLengthThreshold is the maximum triangle edge length kept after
	// reconstruction, in the cloud's length units (meters).
	EdgeLengthThreshold float64
}

// DefaultConfig returns the reference capture pipeline settings: 640x480
// frames, a 0.1-0.5 m working range, millimeter raw depth, BGRA color.
func DefaultConfig() Config {
	return Config{
		Width:                640,
		Height:               480,
		MinDepth:             0.1,
		MaxDepth:             0.5,
		DepthUnitScale:       0.001,
		ColorOrder:           scanimage.OrderBGRA,
		ForegroundPercentile: 0,
		Normals:              pointcloud.DefaultNormalEstimationConfig(),
		LandmarkSearchWindow: 5,
		Poisson:              mesh.DefaultPoissonConfig(),
		EdgeLengthThreshold:  0.004893,
	}
}

// CheckValid validates the configuration.
func (c *Config) CheckValid() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid capture resolution %dx%d", c.Width, c.Height)
	}
	if c.MinDepth < 0 || c.MaxDepth <= c.MinDepth {
		return errors.Errorf("invalid depth range [%f, %f]", c.MinDepth, c.MaxDepth)
	}
	if c.DepthUnitScale <= 0 {
		return errors.Errorf("invalid depth unit scale %f", c.DepthUnitScale)
	}
	if c.EdgeLengthThreshold <= 0 {
		return errors.Errorf("invalid edge length threshold %f", c.EdgeLengthThreshold)
	}
	return nil
}
