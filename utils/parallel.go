// Package utils contains small parallelization helpers shared by the
// per-pixel remap loops and the per-scan pipeline fan-out.
package utils

import (
	"context"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ParallelForEachPixel loops over an image-sized grid and calls f for each
// (x, y) position. The grid is divided into N * N blocks, where N is the
// number of available processor threads, with one goroutine per block.
// f must not touch state shared between pixels.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	procs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(procs * procs)
	for i := 0; i < procs; i++ {
		startX := i * int(math.Floor(float64(size.X)/float64(procs)))
		endX := size.X
		if i < procs-1 {
			endX = (i + 1) * int(math.Floor(float64(size.X)/float64(procs)))
		}
		for j := 0; j < procs; j++ {
			startY := j * int(math.Floor(float64(size.Y)/float64(procs)))
			endY := size.Y
			if j < procs-1 {
				endY = (j + 1) * int(math.Floor(float64(size.Y)/float64(procs)))
			}
			sX, eX, sY, eY := startX, endX, startY, endY
			utils.PanicCapturingGo(func() {
				defer wg.Done()
				for x := sX; x < eX; x++ {
					for y := sY; y < eY; y++ {
						f(x, y)
					}
				}
			})
		}
	}
	wg.Wait()
}

// SimpleFunc is for RunInParallel.
type SimpleFunc func(ctx context.Context) error

// RunInParallel runs all functions in parallel and returns the combined
// error. Unlike an errgroup, a failing function does not cancel its
// siblings: each function owns an independent unit of work (one scan) and
// partial success is meaningful to the caller.
func RunInParallel(ctx context.Context, fs []SimpleFunc) error {
	var wg sync.WaitGroup

	errs := make([]error, len(fs))
	helper := func(i int, f SimpleFunc) {
		defer func() {
			if thePanic := recover(); thePanic != nil {
				errs[i] = fmt.Errorf("panic running parallel work: %v", thePanic)
			}
			wg.Done()
		}()
		errs[i] = f(ctx)
	}

	for i, f := range fs {
		wg.Add(1)
		go helper(i, f)
	}

	wg.Wait()
	return multierr.Combine(errs...)
}
