// Package mesh provides the triangle-mesh container, Poisson surface
// reconstruction from oriented point clouds, post-reconstruction cleanup
// and OBJ/PLY export.
package mesh

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrReconstruction is wrapped by terminal reconstruction failures: an
// empty mesh out of the Poisson solve, or a missing output directory.
var ErrReconstruction = errors.New("surface reconstruction failed")

// Triangle is a triple of vertex indices.
type Triangle [3]int

// Mesh is a triangle mesh with optional per-vertex density values carried
// out of Poisson reconstruction. Densities exist only for filtering and are
// not exported.
type Mesh struct {
	vertices  []r3.Vector
	triangles []Triangle
	densities []float64
}

// NewMesh constructs a mesh from vertex and triangle arrays. densities may
// be nil or must parallel vertices.
func NewMesh(vertices []r3.Vector, triangles []Triangle, densities []float64) (*Mesh, error) {
	if densities != nil && len(densities) != len(vertices) {
		return nil, errors.Errorf("got %d densities for %d vertices", len(densities), len(vertices))
	}
	for _, tri := range triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= len(vertices) {
				return nil, errors.Errorf("triangle references vertex %d of %d", idx, len(vertices))
			}
		}
	}
	return &Mesh{vertices: vertices, triangles: triangles, densities: densities}, nil
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int {
	return len(m.vertices)
}

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int {
	return len(m.triangles)
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) r3.Vector {
	return m.vertices[i]
}

// Triangle returns the vertex indices of triangle i.
func (m *Mesh) Triangle(i int) Triangle {
	return m.triangles[i]
}

// Density returns the Poisson density of vertex i, or 0 when absent.
func (m *Mesh) Density(i int) float64 {
	if m.densities == nil {
		return 0
	}
	return m.densities[i]
}

// IsEmpty reports whether the mesh has no vertices or no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.vertices) == 0 || len(m.triangles) == 0
}

// EdgeLengths returns the three edge lengths of triangle i.
func (m *Mesh) EdgeLengths(i int) [3]float64 {
	tri := m.triangles[i]
	var out [3]float64
	for e := 0; e < 3; e++ {
		out[e] = m.vertices[tri[e]].Sub(m.vertices[tri[(e+1)%3]]).Norm()
	}
	return out
}

// BoundingBox returns the axis-aligned bounds of all vertices. The second
// return is false for an empty mesh.
func (m *Mesh) BoundingBox() (min, max r3.Vector, ok bool) {
	if len(m.vertices) == 0 {
		return r3.Vector{}, r3.Vector{}, false
	}
	min, max = m.vertices[0], m.vertices[0]
	for _, v := range m.vertices[1:] {
		min.X, max.X = minMax(min.X, max.X, v.X)
		min.Y, max.Y = minMax(min.Y, max.Y, v.Y)
		min.Z, max.Z = minMax(min.Z, max.Z, v.Z)
	}
	return min, max, true
}

func minMax(lo, hi, v float64) (float64, float64) {
	if v < lo {
		lo = v
	}
	if v > hi {
		hi = v
	}
	return lo, hi
}

// RemoveTrianglesByMask drops every triangle whose mask entry is true.
func (m *Mesh) RemoveTrianglesByMask(remove []bool) {
	kept := m.triangles[:0]
	for i, tri := range m.triangles {
		if !remove[i] {
			kept = append(kept, tri)
		}
	}
	m.triangles = kept
}

// RemoveLargeTriangles drops every triangle with any edge longer than
// threshold. Idempotent: a second pass with the same threshold removes
// nothing.
func (m *Mesh) RemoveLargeTriangles(threshold float64) int {
	remove := make([]bool, len(m.triangles))
	removed := 0
	for i := range m.triangles {
		for _, l := range m.EdgeLengths(i) {
			if l > threshold {
				remove[i] = true
				removed++
				break
			}
		}
	}
	m.RemoveTrianglesByMask(remove)
	return removed
}

// RemoveUnreferencedVertices drops vertices used by no triangle and
// reindexes the remaining triangles.
func (m *Mesh) RemoveUnreferencedVertices() int {
	used := make([]bool, len(m.vertices))
	for _, tri := range m.triangles {
		for _, idx := range tri {
			used[idx] = true
		}
	}

	remap := make([]int, len(m.vertices))
	kept := 0
	for i, u := range used {
		if u {
			remap[i] = kept
			m.vertices[kept] = m.vertices[i]
			if m.densities != nil {
				m.densities[kept] = m.densities[i]
			}
			kept++
		}
	}
	removed := len(m.vertices) - kept
	m.vertices = m.vertices[:kept]
	if m.densities != nil {
		m.densities = m.densities[:kept]
	}
	for i, tri := range m.triangles {
		m.triangles[i] = Triangle{remap[tri[0]], remap[tri[1]], remap[tri[2]]}
	}
	return removed
}

type edgeKey struct {
	a, b int
}

func newEdgeKey(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// RemoveNonManifoldEdges drops every triangle incident to an edge shared by
// more than two triangles, then prunes newly unreferenced vertices.
func (m *Mesh) RemoveNonManifoldEdges() int {
	counts := make(map[edgeKey]int, len(m.triangles)*3)
	for _, tri := range m.triangles {
		for e := 0; e < 3; e++ {
			counts[newEdgeKey(tri[e], tri[(e+1)%3])]++
		}
	}
	remove := make([]bool, len(m.triangles))
	removed := 0
	for i, tri := range m.triangles {
		for e := 0; e < 3; e++ {
			if counts[newEdgeKey(tri[e], tri[(e+1)%3])] > 2 {
				remove[i] = true
				removed++
				break
			}
		}
	}
	m.RemoveTrianglesByMask(remove)
	m.RemoveUnreferencedVertices()
	return removed
}
