package pointcloud

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
)

// WritePLY writes the cloud as an ASCII PLY file with per-vertex 8-bit
// color and alpha:
//
//	ply
//	format ascii 1.0
//	element vertex N
//	property float x ... property uchar alpha
//	end_header
//	x y z r g b a
func (cloud *PointCloud) WritePLY(out io.Writer) error {
	w := bufio.NewWriter(out)
	_, err := fmt.Fprintf(w, "ply\n"+
		"format ascii 1.0\n"+
		"element vertex %d\n"+
		"property float x\n"+
		"property float y\n"+
		"property float z\n"+
		"property uchar red\n"+
		"property uchar green\n"+
		"property uchar blue\n"+
		"property uchar alpha\n"+
		"end_header\n", cloud.Size())
	if err != nil {
		return err
	}
	for i := 0; i < cloud.Size(); i++ {
		p := cloud.At(i)
		c := cloud.Color(i)
		if _, err := fmt.Fprintf(w, "%f %f %f %d %d %d %d\n", p.X, p.Y, p.Z, c.R, c.G, c.B, c.A); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WritePLYFile writes the cloud out to the named file.
func (cloud *PointCloud) WritePLYFile(fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return cloud.WritePLY(f)
}
