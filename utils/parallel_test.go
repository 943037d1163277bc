package utils

import (
	"context"
	"image"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestParallelForEachPixel(t *testing.T) {
	size := image.Point{X: 37, Y: 29}
	hits := make([]int32, size.X*size.Y)
	ParallelForEachPixel(size, func(x, y int) {
		atomic.AddInt32(&hits[y*size.X+x], 1)
	})
	// Every pixel visited exactly once.
	for _, h := range hits {
		test.That(t, h, test.ShouldEqual, int32(1))
	}
}

func TestRunInParallel(t *testing.T) {
	var counter int32
	fns := make([]SimpleFunc, 10)
	for i := range fns {
		fns[i] = func(ctx context.Context) error {
			atomic.AddInt32(&counter, 1)
			return nil
		}
	}
	test.That(t, RunInParallel(context.Background(), fns), test.ShouldBeNil)
	test.That(t, counter, test.ShouldEqual, int32(10))
}

func TestRunInParallelCollectsErrors(t *testing.T) {
	errBoom := errors.New("boom")
	fns := []SimpleFunc{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return errBoom },
		func(ctx context.Context) error { panic("bad") },
	}
	err := RunInParallel(context.Background(), fns)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, errBoom), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "panic")
}
