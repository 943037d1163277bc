package scanimage

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// invalidDepth marks pixels with no usable reading. It is outside every
// sane [minDepth, maxDepth] range so validity checks reject it naturally.
const invalidDepth = 0

// DepthMap is a dense per-pixel depth map. Depth is always in meters; raw
// sensor buffers are converted at decode time.
type DepthMap struct {
	width  int
	height int
	data   []float32
}

// NewEmptyDepthMap returns an all-invalid depth map of the given dimensions.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{width: width, height: height, data: make([]float32, width*height)}
}

// Width returns the horizontal dimension in pixels.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical dimension in pixels.
func (dm *DepthMap) Height() int {
	return dm.height
}

// GetDepth returns the depth in meters at (x, y). Zero means no reading.
func (dm *DepthMap) GetDepth(x, y int) float64 {
	return float64(dm.data[y*dm.width+x])
}

// Set stores a depth in meters at (x, y).
func (dm *DepthMap) Set(x, y int, meters float64) {
	dm.data[y*dm.width+x] = float32(meters)
}

// In reports whether (x, y) lies inside the map bounds.
func (dm *DepthMap) In(x, y int) bool {
	return x >= 0 && x < dm.width && y >= 0 && y < dm.height
}

// Invalidate clears the reading at (x, y).
func (dm *DepthMap) Invalidate(x, y int) {
	dm.data[y*dm.width+x] = invalidDepth
}

// ValidCount returns how many pixels fall strictly inside (minDepth, maxDepth).
func (dm *DepthMap) ValidCount(minDepth, maxDepth float64) int {
	n := 0
	for _, z := range dm.data {
		if IsValidDepth(float64(z), minDepth, maxDepth) {
			n++
		}
	}
	return n
}

// IsValidDepth reports whether z is a usable reading for the given range.
// NaN and the zero no-reading marker are always invalid.
func IsValidDepth(z, minDepth, maxDepth float64) bool {
	return !math.IsNaN(z) && z > minDepth && z < maxDepth
}

// DecodeRawDepth16 converts a packed little-endian uint16 buffer into a
// depth map, multiplying by unitScale to convert raw units to meters
// (0.001 for millimeter buffers).
func DecodeRawDepth16(buf []byte, width, height int, unitScale float64) (*DepthMap, error) {
	if len(buf) != width*height*2 {
		return nil, errors.Errorf("depth buffer is %d bytes, want %d (%dx%dx2)",
			len(buf), width*height*2, width, height)
	}
	dm := NewEmptyDepthMap(width, height)
	for i := range dm.data {
		dm.data[i] = float32(float64(binary.LittleEndian.Uint16(buf[i*2:])) * unitScale)
	}
	return dm, nil
}

// DecodeRawDepthFloat32 converts a packed little-endian float32 buffer,
// already in meters, into a depth map.
func DecodeRawDepthFloat32(buf []byte, width, height int) (*DepthMap, error) {
	if len(buf) != width*height*4 {
		return nil, errors.Errorf("depth buffer is %d bytes, want %d (%dx%dx4)",
			len(buf), width*height*4, width, height)
	}
	dm := NewEmptyDepthMap(width, height)
	for i := range dm.data {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		z := math.Float32frombits(bits)
		if math.IsNaN(float64(z)) {
			z = invalidDepth
		}
		dm.data[i] = z
	}
	return dm, nil
}

// KeepForeground invalidates every reading deeper than the given percentile
// of the currently valid readings, a crude foreground/background split.
// percentile is in (0, 1]; 1 keeps everything.
func (dm *DepthMap) KeepForeground(percentile, minDepth, maxDepth float64) {
	if percentile <= 0 || percentile >= 1 {
		return
	}
	valid := make([]float64, 0, len(dm.data))
	for _, z := range dm.data {
		if IsValidDepth(float64(z), minDepth, maxDepth) {
			valid = append(valid, float64(z))
		}
	}
	if len(valid) == 0 {
		return
	}
	sort.Float64s(valid)
	cutoff := stat.Quantile(percentile, stat.Empirical, valid, nil)
	for i, z := range dm.data {
		if float64(z) > cutoff {
			dm.data[i] = invalidDepth
		}
	}
}
