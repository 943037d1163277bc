// Package align establishes correspondence between scans through labeled
// facial landmarks and computes the least-squares rigid transform mapping
// one scan onto another.
package align

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// LandmarkLabel identifies one of the six facial landmarks the external
// detector reports. Cross-scan correspondence is purely by label: index i
// in one scan's landmark set corresponds to index i in every other scan's.
type LandmarkLabel int

// The six landmark labels, in the fixed set order.
const (
	NoseTip LandmarkLabel = iota
	Chin
	LeftEyeLeftCorner
	RightEyeRightCorner
	LeftMouthCorner
	RightMouthCorner

	// NumLandmarks is the size of a complete landmark set.
	NumLandmarks = 6
)

var landmarkNames = [NumLandmarks]string{
	"noseTip",
	"chin",
	"leftEyeLeftCorner",
	"rightEyeRightCorner",
	"leftMouthCorner",
	"rightMouthCorner",
}

func (l LandmarkLabel) String() string {
	if l < 0 || l >= NumLandmarks {
		return "unknown"
	}
	return landmarkNames[l]
}

// ImageLandmarks are the detector's six 2D pixel coordinates for one frame,
// indexed by label.
type ImageLandmarks [NumLandmarks]r2.Point

// LandmarkSet is the six back-projected 3D landmark centroids of one scan,
// indexed by label. Order is stable across all scans of a session.
type LandmarkSet [NumLandmarks]r3.Vector

// Points returns the set as a slice in label order.
func (s LandmarkSet) Points() []r3.Vector {
	return s[:]
}

// ParseImageLandmarks reads detector output of the form
//
//	{"noseTip": [x, y], "chin": [x, y], ...}
//
// requiring all six labels.
func ParseImageLandmarks(data []byte) (ImageLandmarks, error) {
	var raw map[string][]float64
	var lm ImageLandmarks
	if err := json.Unmarshal(data, &raw); err != nil {
		return lm, errors.Wrap(err, "parsing landmark JSON")
	}
	for i := 0; i < NumLandmarks; i++ {
		name := LandmarkLabel(i).String()
		coords, ok := raw[name]
		if !ok {
			return lm, errors.Errorf("landmark JSON missing %q", name)
		}
		if len(coords) != 2 {
			return lm, errors.Errorf("landmark %q must have 2 coordinates, got %d", name, len(coords))
		}
		lm[i] = r2.Point{X: coords[0], Y: coords[1]}
	}
	return lm, nil
}

// ParseImageLandmarksFile reads detector output from a file.
func ParseImageLandmarksFile(path string) (ImageLandmarks, error) {
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return ImageLandmarks{}, errors.Wrapf(err, "reading landmark file %q", path)
	}
	return ParseImageLandmarks(raw)
}
