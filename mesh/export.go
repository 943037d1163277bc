package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// WriteOBJ writes the mesh as a Wavefront OBJ (vertices + faces). If
// materialLib is non-empty, an mtllib reference is emitted so a companion
// material/texture file can sit next to the mesh.
func (m *Mesh) WriteOBJ(out io.Writer, materialLib string) error {
	w := bufio.NewWriter(out)
	if materialLib != "" {
		if _, err := fmt.Fprintf(w, "mtllib %s\n", materialLib); err != nil {
			return err
		}
	}
	for _, v := range m.vertices {
		if _, err := fmt.Fprintf(w, "v %f %f %f\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
	}
	for _, tri := range m.triangles {
		// OBJ indices are 1-based.
		if _, err := fmt.Fprintf(w, "f %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WritePLY writes the mesh as ASCII PLY with vertex and face elements.
func (m *Mesh) WritePLY(out io.Writer) error {
	w := bufio.NewWriter(out)
	_, err := fmt.Fprintf(w, "ply\n"+
		"format ascii 1.0\n"+
		"element vertex %d\n"+
		"property float x\n"+
		"property float y\n"+
		"property float z\n"+
		"element face %d\n"+
		"property list uchar int vertex_indices\n"+
		"end_header\n", len(m.vertices), len(m.triangles))
	if err != nil {
		return err
	}
	for _, v := range m.vertices {
		if _, err := fmt.Fprintf(w, "%f %f %f\n", v.X, v.Y, v.Z); err != nil {
			return err
		}
	}
	for _, tri := range m.triangles {
		if _, err := fmt.Fprintf(w, "3 %d %d %d\n", tri[0], tri[1], tri[2]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeFile checks the mesh and target directory before writing anything;
// both failures are terminal for the export.
func (m *Mesh) writeFile(fn string, write func(io.Writer) error) (err error) {
	if m.IsEmpty() {
		return errors.Wrap(ErrReconstruction, "refusing to write an empty mesh")
	}
	dir := filepath.Dir(fn)
	if _, err := os.Stat(dir); err != nil {
		return errors.Wrapf(ErrReconstruction, "output directory %q does not exist", dir)
	}
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return write(f)
}

// WriteOBJFile writes the mesh out to the named OBJ file.
func (m *Mesh) WriteOBJFile(fn, materialLib string) error {
	return m.writeFile(fn, func(w io.Writer) error { return m.WriteOBJ(w, materialLib) })
}

// WritePLYFile writes the mesh out to the named PLY file.
func (m *Mesh) WritePLYFile(fn string) error {
	return m.writeFile(fn, m.WritePLY)
}
