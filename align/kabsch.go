package align

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/meshforge/facescan/pointcloud"
)

// ErrInvalidGeometry is wrapped by alignment failures on degenerate input:
// fewer than three correspondences, collinear points, or a rotation whose
// determinant strays from +1. Callers must reject the scan, never fall back
// to identity.
var ErrInvalidGeometry = errors.New("degenerate correspondence geometry")

// detTolerance bounds |det(R) - 1| after reflection correction.
const detTolerance = 1e-6

// RigidTransform is a rotation plus translation (no scale) mapping points
// from a source frame into a destination frame.
type RigidTransform struct {
	// Rotation is a 3x3 orthonormal matrix with determinant +1.
	Rotation *mat.Dense
	// Translation is applied after rotation.
	Translation r3.Vector
}

// Identity returns the do-nothing transform.
func Identity() *RigidTransform {
	rot := mat.NewDense(3, 3, nil)
	rot.Set(0, 0, 1)
	rot.Set(1, 1, 1)
	rot.Set(2, 2, 1)
	return &RigidTransform{Rotation: rot}
}

// Apply maps a point: R*p + t.
func (tf *RigidTransform) Apply(p r3.Vector) r3.Vector {
	return tf.Rotate(p).Add(tf.Translation)
}

// Rotate maps a direction: R*v, no translation. Used for normals.
func (tf *RigidTransform) Rotate(v r3.Vector) r3.Vector {
	r := tf.Rotation
	return r3.Vector{
		X: r.At(0, 0)*v.X + r.At(0, 1)*v.Y + r.At(0, 2)*v.Z,
		Y: r.At(1, 0)*v.X + r.At(1, 1)*v.Y + r.At(1, 2)*v.Z,
		Z: r.At(2, 0)*v.X + r.At(2, 1)*v.Y + r.At(2, 2)*v.Z,
	}
}

func centroid(pts []r3.Vector) r3.Vector {
	var c r3.Vector
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Mul(1.0 / float64(len(pts)))
}

// EstimateRigidTransform computes the least-squares rotation and translation
// mapping src onto dst (Kabsch/Umeyama, no scaling):
//
//  1. center both sets on their centroids
//  2. H = sum of outer products src_i * dst_i^T
//  3. SVD H = U S V^T, R = V U^T
//  4. if det(R) < 0, negate the last column of V and recompute
//  5. t = -R*centroid(src) + centroid(dst)
//
// At least three non-collinear correspondences are required; anything less
// fails with ErrInvalidGeometry.
func EstimateRigidTransform(src, dst []r3.Vector) (*RigidTransform, error) {
	if len(src) != len(dst) {
		return nil, errors.Errorf("correspondence count mismatch: %d vs %d", len(src), len(dst))
	}
	if len(src) < 3 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "need at least 3 correspondences, got %d", len(src))
	}

	srcCentroid := centroid(src)
	dstCentroid := centroid(dst)

	h := mat.NewDense(3, 3, nil)
	for i := range src {
		a := src[i].Sub(srcCentroid)
		b := dst[i].Sub(dstCentroid)
		h.Set(0, 0, h.At(0, 0)+a.X*b.X)
		h.Set(0, 1, h.At(0, 1)+a.X*b.Y)
		h.Set(0, 2, h.At(0, 2)+a.X*b.Z)
		h.Set(1, 0, h.At(1, 0)+a.Y*b.X)
		h.Set(1, 1, h.At(1, 1)+a.Y*b.Y)
		h.Set(1, 2, h.At(1, 2)+a.Y*b.Z)
		h.Set(2, 0, h.At(2, 0)+a.Z*b.X)
		h.Set(2, 1, h.At(2, 1)+a.Z*b.Y)
		h.Set(2, 2, h.At(2, 2)+a.Z*b.Z)
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return nil, errors.Wrap(ErrInvalidGeometry, "SVD of cross-covariance failed")
	}

	// A collinear (or coincident) point set leaves the rotation about the
	// line unconstrained: the cross-covariance loses rank below 2.
	values := svd.Values(nil)
	scale := values[0]
	if scale == 0 || values[1]/scale < 1e-9 {
		return nil, errors.Wrap(ErrInvalidGeometry, "correspondence points are collinear or coincident")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	rot := mat.NewDense(3, 3, nil)
	rot.Mul(&v, u.T())
	if mat.Det(rot) < 0 {
		// Reflection case: flip the last column of V and recompute.
		for i := 0; i < 3; i++ {
			v.Set(i, 2, -v.At(i, 2))
		}
		rot.Mul(&v, u.T())
	}
	if math.Abs(mat.Det(rot)-1) > detTolerance {
		return nil, errors.Wrapf(ErrInvalidGeometry, "rotation determinant %f", mat.Det(rot))
	}

	tf := &RigidTransform{Rotation: rot}
	tf.Translation = dstCentroid.Sub(tf.Rotate(srcCentroid))
	return tf, nil
}

// TransformPointCloud applies the transform to every point of the cloud,
// rotating normals along.
func TransformPointCloud(tf *RigidTransform, cloud *pointcloud.PointCloud) *pointcloud.PointCloud {
	return cloud.Map(tf.Apply, tf.Rotate)
}

// TransformLandmarks applies the transform to a landmark set.
func TransformLandmarks(tf *RigidTransform, set LandmarkSet) LandmarkSet {
	var out LandmarkSet
	for i, p := range set {
		out[i] = tf.Apply(p)
	}
	return out
}
