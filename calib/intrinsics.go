// Package calib loads per-frame camera calibration records and builds the
// dense remap tables used to undo lens distortion before reconstruction.
package calib

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCalibration is wrapped by all calibration parsing and validation
// failures. Callers skip the offending frame and continue.
var ErrCalibration = errors.New("invalid camera calibration")

// newCalibrationError wraps ErrCalibration with context about the bad field.
func newCalibrationError(msg string) error {
	return errors.Wrap(ErrCalibration, msg)
}

// Intrinsics holds the parameters of a pinhole projection from 3D camera
// space to the 2D image plane, at the capture resolution.
type Intrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for Intrinsics have valid inputs.
func (params *Intrinsics) CheckValid() error {
	if params == nil {
		return newCalibrationError("intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return newCalibrationError(fmt.Sprintf("invalid size (%d, %d)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return newCalibrationError(fmt.Sprintf("invalid focal length Fx = %f", params.Fx))
	}
	if params.Fy <= 0 {
		return newCalibrationError(fmt.Sprintf("invalid focal length Fy = %f", params.Fy))
	}
	if params.Ppx < 0 || params.Ppx >= float64(params.Width) {
		return newCalibrationError(fmt.Sprintf("principal point Ppx = %f outside image", params.Ppx))
	}
	if params.Ppy < 0 || params.Ppy >= float64(params.Height) {
		return newCalibrationError(fmt.Sprintf("principal point Ppy = %f outside image", params.Ppy))
	}
	return nil
}

// PixelToPoint transforms a pixel with depth to a 3D camera-space point.
// Depth units carry through unchanged.
func (params *Intrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	xm := (x - params.Ppx) / params.Fx * z
	ym := (y - params.Ppy) / params.Fy * z
	return xm, ym, z
}

// PointToPixel projects a 3D camera-space point to a pixel in the image
// plane. A point at zero depth projects to (-1, -1) so bounds checks
// downstream will reject it.
func (params *Intrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z != 0. {
		return (x/z)*params.Fx + params.Ppx, (y/z)*params.Fy + params.Ppy
	}
	return -1.0, -1.0
}
