package scan

import (
	"os"

	"github.com/pkg/errors"

	"github.com/meshforge/facescan/calib"
	"github.com/meshforge/facescan/scanimage"
)

// FrameFiles names the on-disk inputs of one scan.
type FrameFiles struct {
	// Calibration is the per-frame calibration JSON.
	Calibration string
	// Color is the raw packed 8-bit 4-channel color buffer.
	Color string
	// Depth is the raw depth buffer: uint16 little-endian (raw sensor
	// units) or float32 little-endian (meters), distinguished by size.
	Depth string
	// Landmarks is the detector's six 2D landmark coordinates (JSON).
	Landmarks string
}

// Frame is one scan's inputs after calibration and undistortion: a linear
// RGB image and a depth map in meters, both resampled through the frame's
// undistortion map.
type Frame struct {
	Color        *scanimage.Image
	Depth        *scanimage.DepthMap
	Calibration  *calib.Data
	Undistortion *calib.UndistortionMap
}

func readFile(path string) ([]byte, error) {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrIO, "reading %q: %s", path, err)
	}
	return raw, nil
}

// decodeDepth picks the raw depth encoding from the buffer size.
func decodeDepth(buf []byte, cfg Config) (*scanimage.DepthMap, error) {
	switch len(buf) {
	case cfg.Width * cfg.Height * 2:
		return scanimage.DecodeRawDepth16(buf, cfg.Width, cfg.Height, cfg.DepthUnitScale)
	case cfg.Width * cfg.Height * 4:
		return scanimage.DecodeRawDepthFloat32(buf, cfg.Width, cfg.Height)
	default:
		return nil, errors.Errorf("depth buffer is %d bytes, want %dx%d uint16 or float32",
			len(buf), cfg.Width, cfg.Height)
	}
}

// LoadFrame reads and prepares one scan: calibration, undistortion map,
// color (sRGB undone, bilinear remap), depth (converted to meters, nearest
// neighbor remap) and the optional foreground pre-filter. Any failure skips
// only this frame.
func LoadFrame(files FrameFiles, cfg Config) (*Frame, error) {
	calData, err := calib.FromJSONFile(files.Calibration, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	undistortion := calib.NewUndistortionMap(calData)

	colorRaw, err := readFile(files.Color)
	if err != nil {
		return nil, err
	}
	img, err := scanimage.DecodeRaw8(colorRaw, cfg.Width, cfg.Height, cfg.ColorOrder)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	depthRaw, err := readFile(files.Depth)
	if err != nil {
		return nil, err
	}
	depth, err := decodeDepth(depthRaw, cfg)
	if err != nil {
		return nil, errors.Wrap(ErrIO, err.Error())
	}

	undistortedDepth := depth.Remap(undistortion)
	if cfg.ForegroundPercentile > 0 && cfg.ForegroundPercentile < 1 {
		undistortedDepth.KeepForeground(cfg.ForegroundPercentile, cfg.MinDepth, cfg.MaxDepth)
	}

	return &Frame{
		Color:        img.Remap(undistortion),
		Depth:        undistortedDepth,
		Calibration:  calData,
		Undistortion: undistortion,
	}, nil
}
