// Package main is a command that fuses a directory of face scans into a mesh.
//
// Each scan is the file set calibration_N.json, color_N.bin, depth_N.bin and
// landmarks_N.json for some index N. All scans found in the input directory
// are processed, aligned onto the first usable one and fused; the output
// directory receives one point cloud and calibration echo per scan plus the
// fused mesh as OBJ and PLY.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/meshforge/facescan/scan"
	"github.com/meshforge/facescan/scanimage"
)

func main() {
	goutils.ContextualMain(mainWithArgs, golog.NewDevelopmentLogger("facescan"))
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	cfg := scan.DefaultConfig()

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	width := flags.Int("width", cfg.Width, "frame width in pixels")
	height := flags.Int("height", cfg.Height, "frame height in pixels")
	minDepth := flags.Float64("min-depth", cfg.MinDepth, "minimum usable depth in meters")
	maxDepth := flags.Float64("max-depth", cfg.MaxDepth, "maximum usable depth in meters")
	order := flags.String("color-order", "bgra", "raw color channel order (rgba or bgra)")
	foreground := flags.Float64("foreground", cfg.ForegroundPercentile,
		"foreground depth percentile pre-filter, 0 to disable")
	depth := flags.Int("depth", cfg.Poisson.Depth, "reconstruction grid depth (grid is 2^depth per axis)")
	outDir := flags.String("out", "", "output directory (must exist)")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return errors.Errorf("usage: %s [flags] <scan-dir>", args[0])
	}

	cfg.Width = *width
	cfg.Height = *height
	cfg.MinDepth = *minDepth
	cfg.MaxDepth = *maxDepth
	cfg.ForegroundPercentile = *foreground
	cfg.Poisson.Depth = *depth
	switch strings.ToLower(*order) {
	case "rgba":
		cfg.ColorOrder = scanimage.OrderRGBA
	case "bgra":
		cfg.ColorOrder = scanimage.OrderBGRA
	default:
		return errors.Errorf("unknown color order %q", *order)
	}

	inDir := flags.Arg(0)
	scans, err := discoverScans(inDir)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		return errors.Errorf("no scans found in %q", inDir)
	}
	logger.Infow("discovered scans", "dir", inDir, "count", len(scans))

	session, err := scan.NewSession(cfg, logger)
	if err != nil {
		return err
	}
	if err := session.ProcessAll(ctx, scans); err != nil {
		return err
	}

	fused, err := session.Reconstruct()
	if err != nil {
		return err
	}

	dir := *outDir
	if dir == "" {
		dir = inDir
	}
	if err := session.Export(dir, fused); err != nil {
		return err
	}
	logger.Infow("wrote outputs", "dir", dir,
		"vertices", fused.NumVertices(), "triangles", fused.NumTriangles())
	return nil
}

// discoverScans finds every complete scan file set in dir, ordered by index.
// Scans missing any of the four files are skipped.
func discoverScans(dir string) ([]scan.FrameFiles, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "calibration_*.json"))
	if err != nil {
		return nil, err
	}
	var indices []int
	for _, m := range matches {
		base := strings.TrimSuffix(filepath.Base(m), ".json")
		idx, err := strconv.Atoi(strings.TrimPrefix(base, "calibration_"))
		if err != nil {
			continue
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var scans []scan.FrameFiles
	for _, idx := range indices {
		files := scan.FrameFiles{
			Calibration: filepath.Join(dir, fmt.Sprintf("calibration_%d.json", idx)),
			Color:       filepath.Join(dir, fmt.Sprintf("color_%d.bin", idx)),
			Depth:       filepath.Join(dir, fmt.Sprintf("depth_%d.bin", idx)),
			Landmarks:   filepath.Join(dir, fmt.Sprintf("landmarks_%d.json", idx)),
		}
		complete := true
		for _, fn := range []string{files.Color, files.Depth, files.Landmarks} {
			if _, err := os.Stat(fn); err != nil {
				complete = false
				break
			}
		}
		if complete {
			scans = append(scans, files)
		}
	}
	return scans, nil
}
