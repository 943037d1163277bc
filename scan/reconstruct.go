package scan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/meshforge/facescan/align"
	"github.com/meshforge/facescan/mesh"
	"github.com/meshforge/facescan/pointcloud"
)

// AlignClouds rigidly maps every scan's cloud onto the reference scan's
// camera frame using landmark label correspondence. The reference is the
// first scan with usable landmarks. Scans whose alignment is degenerate
// (or that carry no landmarks, when more than one scan is present) are
// logged and excluded. Returns the aligned clouds.
func (s *Session) AlignClouds() ([]*pointcloud.PointCloud, error) {
	results := s.Results()

	var usable []*Result
	for _, r := range results {
		if r.Cloud.Size() > 0 {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil, errors.New("no scans with valid geometry")
	}
	if len(usable) == 1 {
		return []*pointcloud.PointCloud{usable[0].Cloud}, nil
	}

	var ref *Result
	for _, r := range usable {
		if r.HasLandmarks {
			ref = r
			break
		}
	}
	if ref == nil {
		return nil, errors.Wrap(align.ErrInvalidGeometry, "no scan has usable landmarks")
	}

	aligned := []*pointcloud.PointCloud{ref.Cloud}
	for _, r := range usable {
		if r == ref {
			continue
		}
		if !r.HasLandmarks {
			s.logger.Warnw("excluding scan without landmarks from fusion", "scan", r.Index)
			continue
		}
		tf, err := align.EstimateRigidTransform(r.Landmarks.Points(), ref.Landmarks.Points())
		if err != nil {
			if errors.Is(err, align.ErrInvalidGeometry) {
				s.logger.Warnw("excluding scan with degenerate alignment", "scan", r.Index, "error", err)
				continue
			}
			return nil, err
		}
		aligned = append(aligned, align.TransformPointCloud(tf, r.Cloud))
	}
	return aligned, nil
}

// Reconstruct aligns all scans, merges their clouds and runs Poisson
// surface reconstruction followed by cleanup: triangles with any edge over
// the configured threshold are removed, then unreferenced vertices, then
// non-manifold edges.
func (s *Session) Reconstruct() (*mesh.Mesh, error) {
	clouds, err := s.AlignClouds()
	if err != nil {
		return nil, err
	}
	merged := pointcloud.MergeAll(clouds...)
	s.logger.Infow("running surface reconstruction",
		"points", merged.Size(), "depth", s.cfg.Poisson.Depth)

	m, err := mesh.Poisson(merged, s.cfg.Poisson)
	if err != nil {
		return nil, err
	}

	removed := m.RemoveLargeTriangles(s.cfg.EdgeLengthThreshold)
	m.RemoveUnreferencedVertices()
	m.RemoveNonManifoldEdges()
	s.logger.Infow("cleaned mesh",
		"removedTriangles", removed, "vertices", m.NumVertices(), "triangles", m.NumTriangles())

	if m.IsEmpty() {
		return nil, errors.Wrap(mesh.ErrReconstruction, "mesh is empty after cleanup")
	}
	return m, nil
}

// Export writes all session artifacts into dir: one PLY point cloud and one
// calibration echo per scan, plus the fused mesh as OBJ and PLY. The
// directory must already exist; a missing directory is terminal before any
// write is attempted.
func (s *Session) Export(dir string, fused *mesh.Mesh) error {
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrapf(mesh.ErrReconstruction, "output directory %q does not exist", dir)
	}
	for _, r := range s.Results() {
		if r.Cloud.Size() == 0 {
			continue
		}
		name := fmt.Sprintf("scan_%d", r.Index)
		if err := r.Cloud.WritePLYFile(filepath.Join(dir, name+".ply")); err != nil {
			return err
		}
		if err := r.Frame.Calibration.WriteEcho(filepath.Join(dir, name+"_calibration.json")); err != nil {
			return err
		}
	}
	if err := fused.WriteOBJFile(filepath.Join(dir, "face_mesh.obj"), ""); err != nil {
		return err
	}
	return fused.WritePLYFile(filepath.Join(dir, "face_mesh.ply"))
}
