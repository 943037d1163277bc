package align

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

const landmarkJSON = `{
	"noseTip": [320.5, 240.25],
	"chin": [318, 330],
	"leftEyeLeftCorner": [250, 180],
	"rightEyeRightCorner": [390, 181],
	"leftMouthCorner": [280, 290],
	"rightMouthCorner": [360, 291]
}`

func TestParseImageLandmarks(t *testing.T) {
	lm, err := ParseImageLandmarks([]byte(landmarkJSON))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lm[NoseTip].X, test.ShouldAlmostEqual, 320.5)
	test.That(t, lm[NoseTip].Y, test.ShouldAlmostEqual, 240.25)
	test.That(t, lm[Chin].Y, test.ShouldAlmostEqual, 330)
	test.That(t, lm[RightMouthCorner].X, test.ShouldAlmostEqual, 360)
}

func TestParseImageLandmarksErrors(t *testing.T) {
	_, err := ParseImageLandmarks([]byte("{"))
	test.That(t, err, test.ShouldNotBeNil)

	// All six labels are required.
	_, err = ParseImageLandmarks([]byte(`{"noseTip": [1, 2]}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "chin")

	// Two coordinates per landmark.
	_, err = ParseImageLandmarks([]byte(`{
		"noseTip": [1, 2, 3],
		"chin": [1, 2],
		"leftEyeLeftCorner": [1, 2],
		"rightEyeRightCorner": [1, 2],
		"leftMouthCorner": [1, 2],
		"rightMouthCorner": [1, 2]
	}`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "noseTip")
}

func TestParseImageLandmarksFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "landmarks.json")
	test.That(t, os.WriteFile(fn, []byte(landmarkJSON), 0o600), test.ShouldBeNil)

	lm, err := ParseImageLandmarksFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lm[LeftEyeLeftCorner].X, test.ShouldAlmostEqual, 250)

	_, err = ParseImageLandmarksFile(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLandmarkLabelString(t *testing.T) {
	test.That(t, NoseTip.String(), test.ShouldEqual, "noseTip")
	test.That(t, RightMouthCorner.String(), test.ShouldEqual, "rightMouthCorner")
	test.That(t, LandmarkLabel(99).String(), test.ShouldEqual, "unknown")
}
