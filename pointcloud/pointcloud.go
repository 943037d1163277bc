// Package pointcloud provides a dense, ordered point cloud with parallel
// color and normal storage, nearest-neighbor search, normal estimation and
// PLY export.
//
// Points stay in the order they were appended; merging concatenates.
// Duplicate positions are allowed, since overlapping scans legitimately
// observe the same surface.
package pointcloud

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// MetaData tracks the axis-aligned bounds of a cloud as points are added.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns metadata representing an empty cloud.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64, MaxX: -math.MaxFloat64,
		MinY: math.MaxFloat64, MaxY: -math.MaxFloat64,
		MinZ: math.MaxFloat64, MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the bounds to include p.
func (meta *MetaData) Merge(p r3.Vector) {
	meta.MinX = math.Min(meta.MinX, p.X)
	meta.MaxX = math.Max(meta.MaxX, p.X)
	meta.MinY = math.Min(meta.MinY, p.Y)
	meta.MaxY = math.Max(meta.MaxY, p.Y)
	meta.MinZ = math.Min(meta.MinZ, p.Z)
	meta.MaxZ = math.Max(meta.MaxZ, p.Z)
}

// PointCloud is an ordered collection of camera-space points with parallel
// per-point colors and, once estimated, unit normals.
type PointCloud struct {
	points  []r3.Vector
	colors  []color.NRGBA
	normals []r3.Vector
	meta    MetaData
}

// New returns an empty PointCloud.
func New() *PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty PointCloud with capacity for size points.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{
		points: make([]r3.Vector, 0, size),
		colors: make([]color.NRGBA, 0, size),
		meta:   NewMetaData(),
	}
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	return len(cloud.points)
}

// MetaData returns the cloud's bounds metadata.
func (cloud *PointCloud) MetaData() MetaData {
	return cloud.meta
}

// Add appends a colored point. Any previously estimated normals are
// invalidated.
func (cloud *PointCloud) Add(p r3.Vector, c color.NRGBA) {
	cloud.points = append(cloud.points, p)
	cloud.colors = append(cloud.colors, c)
	cloud.normals = nil
	cloud.meta.Merge(p)
}

// At returns the point at index i.
func (cloud *PointCloud) At(i int) r3.Vector {
	return cloud.points[i]
}

// Color returns the color at index i.
func (cloud *PointCloud) Color(i int) color.NRGBA {
	return cloud.colors[i]
}

// Normal returns the unit normal at index i. Panics if normals have not
// been estimated.
func (cloud *PointCloud) Normal(i int) r3.Vector {
	return cloud.normals[i]
}

// HasNormals reports whether per-point normals are present.
func (cloud *PointCloud) HasNormals() bool {
	return cloud.Size() == 0 || len(cloud.normals) == len(cloud.points)
}

// setNormals installs a normal array; length must match the point count.
func (cloud *PointCloud) setNormals(normals []r3.Vector) error {
	if len(normals) != len(cloud.points) {
		return errors.Errorf("got %d normals for %d points", len(normals), len(cloud.points))
	}
	cloud.normals = normals
	return nil
}

// Map returns a new cloud with every point (and normal, if present) passed
// through the given functions. normFn may be nil when the cloud carries no
// normals.
func (cloud *PointCloud) Map(ptFn, normFn func(r3.Vector) r3.Vector) *PointCloud {
	out := NewWithPrealloc(cloud.Size())
	for i, p := range cloud.points {
		out.Add(ptFn(p), cloud.colors[i])
	}
	if len(cloud.normals) > 0 && normFn != nil {
		normals := make([]r3.Vector, len(cloud.normals))
		for i, n := range cloud.normals {
			normals[i] = normFn(n)
		}
		out.normals = normals
	}
	return out
}

// MergeAll concatenates the given clouds point-wise, preserving order. No
// deduplication is performed; downstream density weighting handles overlap.
// Normals are carried over only if every input cloud has them.
func MergeAll(clouds ...*PointCloud) *PointCloud {
	total := 0
	allNormals := true
	for _, c := range clouds {
		total += c.Size()
		if c.Size() > 0 && len(c.normals) == 0 {
			allNormals = false
		}
	}
	out := NewWithPrealloc(total)
	var normals []r3.Vector
	if allNormals {
		normals = make([]r3.Vector, 0, total)
	}
	for _, c := range clouds {
		for i, p := range c.points {
			out.Add(p, c.colors[i])
		}
		if allNormals {
			normals = append(normals, c.normals...)
		}
	}
	if allNormals {
		out.normals = normals
	}
	return out
}
