package align

import (
	"image/color"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/meshforge/facescan/pointcloud"
)

// yawTransform rotates about Y by the given angle and then translates.
func yawTransform(angle float64, translation r3.Vector) *RigidTransform {
	c, s := math.Cos(angle), math.Sin(angle)
	rot := mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
	return &RigidTransform{Rotation: rot, Translation: translation}
}

var facePoints = []r3.Vector{
	{X: 0, Y: 0, Z: 0.30},
	{X: 0, Y: 0.08, Z: 0.32},
	{X: -0.05, Y: -0.03, Z: 0.33},
	{X: 0.05, Y: -0.03, Z: 0.33},
	{X: -0.025, Y: 0.04, Z: 0.31},
	{X: 0.025, Y: 0.04, Z: 0.31},
}

func TestEstimateRigidTransformRecovers(t *testing.T) {
	truth := yawTransform(math.Pi/6, r3.Vector{X: 0.02, Y: -0.01, Z: 0.05})
	dst := make([]r3.Vector, len(facePoints))
	for i, p := range facePoints {
		dst[i] = truth.Apply(p)
	}

	tf, err := EstimateRigidTransform(facePoints, dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Det(tf.Rotation), test.ShouldAlmostEqual, 1, 1e-9)

	for i, p := range facePoints {
		got := tf.Apply(p)
		test.That(t, got.Sub(dst[i]).Norm(), test.ShouldAlmostEqual, 0, 1e-9)
	}
	test.That(t, tf.Translation.X, test.ShouldAlmostEqual, truth.Translation.X, 1e-9)
	test.That(t, tf.Translation.Y, test.ShouldAlmostEqual, truth.Translation.Y, 1e-9)
	test.That(t, tf.Translation.Z, test.ShouldAlmostEqual, truth.Translation.Z, 1e-9)
}

func TestEstimateRigidTransformIdentity(t *testing.T) {
	tf, err := EstimateRigidTransform(facePoints, facePoints)
	test.That(t, err, test.ShouldBeNil)
	for _, p := range facePoints {
		test.That(t, tf.Apply(p).Sub(p).Norm(), test.ShouldAlmostEqual, 0, 1e-9)
	}
}

func TestEstimateRigidTransformDegenerate(t *testing.T) {
	// Too few correspondences.
	_, err := EstimateRigidTransform(facePoints[:2], facePoints[:2])
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	// Count mismatch is a caller bug, not a geometry failure.
	_, err = EstimateRigidTransform(facePoints[:3], facePoints[:4])
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeFalse)

	// Collinear points leave the rotation about the line unconstrained.
	line := []r3.Vector{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 1},
		{X: 2, Y: 2, Z: 2},
		{X: 3, Y: 3, Z: 3},
	}
	_, err = EstimateRigidTransform(line, line)
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	// Coincident points are degenerate too.
	same := []r3.Vector{{X: 1}, {X: 1}, {X: 1}}
	_, err = EstimateRigidTransform(same, same)
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)
}

func TestTransformPointCloud(t *testing.T) {
	cloud := pointcloud.New()
	cloud.Add(r3.Vector{X: 1}, color.NRGBA{R: 9})
	cloud.Add(r3.Vector{Y: 1}, color.NRGBA{G: 9})

	tf := yawTransform(math.Pi/2, r3.Vector{Z: 1})
	out := TransformPointCloud(tf, cloud)
	test.That(t, out.Size(), test.ShouldEqual, 2)
	// (1,0,0) yawed 90 degrees lands on (0,0,-1), then +1 in Z.
	test.That(t, out.At(0).X, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, out.At(0).Z, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, out.At(1).Y, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, out.Color(0).R, test.ShouldEqual, uint8(9))
}

func TestIdentityTransform(t *testing.T) {
	tf := Identity()
	p := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, tf.Apply(p), test.ShouldResemble, p)
	test.That(t, mat.Det(tf.Rotation), test.ShouldAlmostEqual, 1)
}
