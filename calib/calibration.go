package calib

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// record mirrors the calibration JSON emitted by the capture device. The
// lookup tables are base64 of packed little-endian float32; the intrinsic
// matrix is 9 floats in column-major order.
type record struct {
	PixelSize                   float64   `json:"pixelSize"`
	ReferenceWidth              int       `json:"intrinsicReferenceDimensionWidth"`
	ReferenceHeight             int       `json:"intrinsicReferenceDimensionHeight"`
	LensDistortionLookup        string    `json:"lensDistortionLookup"`
	InverseLensDistortionLookup string    `json:"inverseLensDistortionLookup"`
	LensDistortionCenter        []float64 `json:"lensDistortionCenter"`
	Intrinsic                   []float64 `json:"intrinsic"`
}

// Data is the calibration for one frame: intrinsics already scaled to the
// capture resolution plus the forward and inverse lens-distortion tables.
// Immutable once loaded; safe to share across goroutines.
type Data struct {
	Intrinsics Intrinsics

	// Forward maps undistorted radius to its distortion; Inverse undoes it.
	Forward LookupTable
	Inverse LookupTable

	// Reference dimensions the intrinsic matrix was computed at, kept for
	// the calibration echo.
	ReferenceWidth  int
	ReferenceHeight int
	PixelSize       float64

	// DistortionCenterX/Y as reported by the device, scaled like Ppx/Ppy.
	DistortionCenterX float64
	DistortionCenterY float64
}

func decodeLookup(payload string) (LookupTable, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(ErrCalibration, err.Error())
	}
	if len(raw)%4 != 0 {
		return nil, newCalibrationError("lookup table byte length is not a multiple of 4")
	}
	table := make(LookupTable, len(raw)/4)
	for i := range table {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		table[i] = float64(math.Float32frombits(bits))
	}
	return table, nil
}

// FromJSON parses a calibration record and scales the intrinsics from the
// reference dimensions to the target capture resolution. The scale factor
// is targetWidth / referenceWidth and applies to fx, fy, cx and cy only.
func FromJSON(data []byte, targetWidth, targetHeight int) (*Data, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(ErrCalibration, err.Error())
	}
	if len(rec.Intrinsic) != 9 {
		return nil, newCalibrationError("intrinsic matrix must have 9 entries")
	}
	if rec.ReferenceWidth <= 0 {
		return nil, newCalibrationError("missing intrinsicReferenceDimensionWidth")
	}
	if rec.LensDistortionLookup == "" || rec.InverseLensDistortionLookup == "" {
		return nil, newCalibrationError("missing lens distortion lookup tables")
	}

	forward, err := decodeLookup(rec.LensDistortionLookup)
	if err != nil {
		return nil, err
	}
	inverse, err := decodeLookup(rec.InverseLensDistortionLookup)
	if err != nil {
		return nil, err
	}

	// The wire matrix is column-major:
	//   [fx 0 0, 0 fy 0, cx cy 1]
	scale := float64(targetWidth) / float64(rec.ReferenceWidth)
	intr := Intrinsics{
		Width:  targetWidth,
		Height: targetHeight,
		Fx:     rec.Intrinsic[0] * scale,
		Fy:     rec.Intrinsic[4] * scale,
		Ppx:    rec.Intrinsic[6] * scale,
		Ppy:    rec.Intrinsic[7] * scale,
	}
	if err := intr.CheckValid(); err != nil {
		return nil, err
	}

	d := &Data{
		Intrinsics:      intr,
		Forward:         forward,
		Inverse:         inverse,
		ReferenceWidth:  rec.ReferenceWidth,
		ReferenceHeight: rec.ReferenceHeight,
		PixelSize:       rec.PixelSize,
	}
	if len(rec.LensDistortionCenter) == 2 {
		d.DistortionCenterX = rec.LensDistortionCenter[0] * scale
		d.DistortionCenterY = rec.LensDistortionCenter[1] * scale
	} else {
		d.DistortionCenterX = intr.Ppx
		d.DistortionCenterY = intr.Ppy
	}
	return d, nil
}

// FromJSONFile reads a calibration JSON file from disk.
func FromJSONFile(path string, targetWidth, targetHeight int) (*Data, error) {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(ErrCalibration, err.Error())
	}
	return FromJSON(raw, targetWidth, targetHeight)
}

// echoRecord is the traceability echo written next to each scan's outputs.
type echoRecord struct {
	Intrinsics       Intrinsics `json:"intrinsics"`
	ReferenceWidth   int        `json:"intrinsicReferenceDimensionWidth"`
	ReferenceHeight  int        `json:"intrinsicReferenceDimensionHeight"`
	PixelSize        float64    `json:"pixelSize"`
	DistortionCenter []float64  `json:"lensDistortionCenter"`
	ForwardTableSize int        `json:"lensDistortionLookupSize"`
	InverseTableSize int        `json:"inverseLensDistortionLookupSize"`
}

// WriteEcho writes the scaled calibration back out as JSON so downstream
// consumers can trace which intrinsics produced a given point cloud.
func (d *Data) WriteEcho(path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(echoRecord{
		Intrinsics:       d.Intrinsics,
		ReferenceWidth:   d.ReferenceWidth,
		ReferenceHeight:  d.ReferenceHeight,
		PixelSize:        d.PixelSize,
		DistortionCenter: []float64{d.DistortionCenterX, d.DistortionCenterY},
		ForwardTableSize: len(d.Forward),
		InverseTableSize: len(d.Inverse),
	})
}
