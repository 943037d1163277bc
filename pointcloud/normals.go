package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NormalEstimationConfig controls the neighborhood used for per-point
// plane fitting.
type NormalEstimationConfig struct {
	// Radius is the neighbor search radius in the cloud's length units.
	Radius float64
	// MaxNeighbors caps the neighborhood size.
	MaxNeighbors int
}

// DefaultNormalEstimationConfig matches the capture pipeline's defaults
// (0.1 m hybrid search, 30 neighbors).
func DefaultNormalEstimationConfig() NormalEstimationConfig {
	return NormalEstimationConfig{Radius: 0.1, MaxNeighbors: 30}
}

// EstimateNormals fits a plane to each point's neighborhood and stores the
// plane normal per point. The normal of a neighborhood is the eigenvector
// of the 3x3 covariance matrix with the smallest eigenvalue. Points with
// fewer than three neighbors get a zero normal; OrientNormalsTowards leaves
// those untouched.
func (cloud *PointCloud) EstimateNormals(cfg NormalEstimationConfig) error {
	if cfg.MaxNeighbors < 3 {
		return errors.Errorf("need at least 3 neighbors for a plane fit, got %d", cfg.MaxNeighbors)
	}
	if cloud.Size() == 0 {
		return cloud.setNormals(nil)
	}
	tree := ToKDTree(cloud)
	normals := make([]r3.Vector, cloud.Size())
	for i := 0; i < cloud.Size(); i++ {
		nbrs := tree.NearestNeighbors(cloud.At(i), cfg.MaxNeighbors, cfg.Radius)
		if len(nbrs) < 3 {
			continue
		}
		normals[i] = planeNormal(cloud, nbrs)
	}
	return cloud.setNormals(normals)
}

// planeNormal returns the least-squares plane normal of the given points,
// unnormalized direction resolved to unit length.
func planeNormal(cloud *PointCloud, indices []int) r3.Vector {
	var centroid r3.Vector
	for _, idx := range indices {
		centroid = centroid.Add(cloud.At(idx))
	}
	centroid = centroid.Mul(1.0 / float64(len(indices)))

	var xx, xy, xz, yy, yz, zz float64
	for _, idx := range indices {
		d := cloud.At(idx).Sub(centroid)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}
	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return r3.Vector{}
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// EigenSym returns eigenvalues in ascending order; the first column is
	// the direction of least variance.
	n := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	if n.Norm() == 0 {
		return r3.Vector{}
	}
	return n.Normalize()
}

// OrientNormalsTowards flips any normal whose dot product with the vector
// from its point to the given origin is negative, so all normals face the
// capturing camera.
func (cloud *PointCloud) OrientNormalsTowards(origin r3.Vector) {
	for i, n := range cloud.normals {
		toOrigin := origin.Sub(cloud.points[i])
		if n.Dot(toOrigin) < 0 {
			cloud.normals[i] = n.Mul(-1)
		}
	}
}
