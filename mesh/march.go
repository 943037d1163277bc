package mesh

import (
	"github.com/golang/geo/r3"
)

// scalarGrid is a cubic lattice of field samples. There are n cells and
// n+1 samples per side.
type scalarGrid struct {
	n      int
	origin r3.Vector
	cell   float64
	values []float64
}

func newScalarGrid(n int, origin r3.Vector, cell float64) *scalarGrid {
	s := n + 1
	return &scalarGrid{n: n, origin: origin, cell: cell, values: make([]float64, s*s*s)}
}

func (g *scalarGrid) sampleIndex(i, j, k int) int {
	s := g.n + 1
	return i + j*s + k*s*s
}

func (g *scalarGrid) at(i, j, k int) float64 {
	return g.values[g.sampleIndex(i, j, k)]
}

func (g *scalarGrid) pos(i, j, k int) r3.Vector {
	return r3.Vector{
		X: g.origin.X + float64(i)*g.cell,
		Y: g.origin.Y + float64(j)*g.cell,
		Z: g.origin.Z + float64(k)*g.cell,
	}
}

// trilinear samples the field at an arbitrary position, clamping to the
// grid bounds.
func (g *scalarGrid) trilinear(p r3.Vector) float64 {
	fx := clampf((p.X-g.origin.X)/g.cell, 0, float64(g.n))
	fy := clampf((p.Y-g.origin.Y)/g.cell, 0, float64(g.n))
	fz := clampf((p.Z-g.origin.Z)/g.cell, 0, float64(g.n))
	i, j, k := int(fx), int(fy), int(fz)
	if i >= g.n {
		i = g.n - 1
	}
	if j >= g.n {
		j = g.n - 1
	}
	if k >= g.n {
		k = g.n - 1
	}
	tx, ty, tz := fx-float64(i), fy-float64(j), fz-float64(k)

	var acc float64
	for di := 0; di <= 1; di++ {
		for dj := 0; dj <= 1; dj++ {
			for dk := 0; dk <= 1; dk++ {
				w := lerpWeight(tx, di) * lerpWeight(ty, dj) * lerpWeight(tz, dk)
				acc += w * g.at(i+di, j+dj, k+dk)
			}
		}
	}
	return acc
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerpWeight(t float64, side int) float64 {
	if side == 0 {
		return 1 - t
	}
	return t
}

// cubeCorners is the relative sample offsets of a cell's eight corners.
var cubeCorners = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// cellTetrahedra splits each cell into six tetrahedra sharing the main
// diagonal (corner 0 to corner 6), so adjacent cells tile without cracks.
var cellTetrahedra = [6][4]int{
	{0, 5, 1, 6},
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
}

// marcher accumulates the extracted surface, deduplicating isosurface
// vertices by the grid edge they lie on.
type marcher struct {
	grid      *scalarGrid
	iso       float64
	vertices  []r3.Vector
	triangles []Triangle
	edgeVerts map[edgeKey]int
}

// marchTetrahedra extracts the isosurface of the grid at the given level.
// A sample is inside the surface when its value exceeds iso.
func marchTetrahedra(grid *scalarGrid, iso float64) ([]r3.Vector, []Triangle) {
	m := &marcher{grid: grid, iso: iso, edgeVerts: make(map[edgeKey]int)}
	for k := 0; k < grid.n; k++ {
		for j := 0; j < grid.n; j++ {
			for i := 0; i < grid.n; i++ {
				m.cell(i, j, k)
			}
		}
	}
	return m.vertices, m.triangles
}

func (m *marcher) cell(ci, cj, ck int) {
	var corner [8]int
	var value [8]float64
	for c, off := range cubeCorners {
		i, j, k := ci+off[0], cj+off[1], ck+off[2]
		corner[c] = m.grid.sampleIndex(i, j, k)
		value[c] = m.grid.at(i, j, k)
	}
	for _, tet := range cellTetrahedra {
		m.tetrahedron(
			[4]int{corner[tet[0]], corner[tet[1]], corner[tet[2]], corner[tet[3]]},
			[4]float64{value[tet[0]], value[tet[1]], value[tet[2]], value[tet[3]]},
		)
	}
}

// edgeVertex returns the index of the isosurface vertex on the grid edge
// between samples a and b, creating it on first use.
func (m *marcher) edgeVertex(a, b int, va, vb float64) int {
	key := newEdgeKey(a, b)
	if idx, ok := m.edgeVerts[key]; ok {
		return idx
	}
	t := 0.5
	if vb != va {
		t = clampf((m.iso-va)/(vb-va), 0, 1)
	}
	pa := m.samplePos(a)
	pb := m.samplePos(b)
	v := pa.Add(pb.Sub(pa).Mul(t))
	idx := len(m.vertices)
	m.vertices = append(m.vertices, v)
	m.edgeVerts[key] = idx
	return idx
}

func (m *marcher) samplePos(sample int) r3.Vector {
	s := m.grid.n + 1
	i := sample % s
	j := (sample / s) % s
	k := sample / (s * s)
	return m.grid.pos(i, j, k)
}

func (m *marcher) emit(a, b, c int) {
	if a == b || b == c || a == c {
		return // degenerate: iso passes exactly through a sample
	}
	m.triangles = append(m.triangles, Triangle{a, b, c})
}

// tetrahedron polygonises a single tetrahedron against the iso level,
// producing zero, one or two triangles.
func (m *marcher) tetrahedron(p [4]int, v [4]float64) {
	var mask int
	for i := 0; i < 4; i++ {
		if v[i] > m.iso {
			mask |= 1 << i
		}
	}
	ev := func(a, b int) int { return m.edgeVertex(p[a], p[b], v[a], v[b]) }

	switch mask {
	case 0x00, 0x0F:
	case 0x01, 0x0E:
		m.emit(ev(0, 1), ev(0, 2), ev(0, 3))
	case 0x02, 0x0D:
		m.emit(ev(1, 0), ev(1, 3), ev(1, 2))
	case 0x03, 0x0C:
		a, b, c, d := ev(0, 3), ev(0, 2), ev(1, 3), ev(1, 2)
		m.emit(a, b, c)
		m.emit(c, d, b)
	case 0x04, 0x0B:
		m.emit(ev(2, 0), ev(2, 1), ev(2, 3))
	case 0x05, 0x0A:
		a, b, c, d := ev(0, 1), ev(2, 3), ev(0, 3), ev(1, 2)
		m.emit(a, b, c)
		m.emit(a, d, b)
	case 0x06, 0x09:
		a, b, c, d := ev(0, 1), ev(1, 3), ev(2, 3), ev(0, 2)
		m.emit(a, b, c)
		m.emit(a, d, c)
	case 0x07, 0x08:
		m.emit(ev(3, 0), ev(3, 2), ev(3, 1))
	}
}
