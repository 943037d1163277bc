package scan

import (
	"context"
	"sort"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/meshforge/facescan/align"
	"github.com/meshforge/facescan/pointcloud"
	"github.com/meshforge/facescan/utils"
)

// Result is the output of processing one scan: its camera-space point cloud
// with oriented normals, its landmark centroids, and the calibration it was
// built with.
type Result struct {
	Index        int
	Cloud        *pointcloud.PointCloud
	Landmarks    align.LandmarkSet
	HasLandmarks bool
	Frame        *Frame
}

// Session owns all per-scan state of one capture session. It replaces the
// global accumulators of earlier pipeline variants: the caller creates one
// per session and resets it (or makes a new one) between sessions. Methods
// are safe for concurrent use.
type Session struct {
	cfg    Config
	logger golog.Logger

	mu      sync.Mutex
	results []*Result
}

// NewSession validates the config and returns an empty session.
func NewSession(cfg Config, logger golog.Logger) (*Session, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	return &Session{cfg: cfg, logger: logger}, nil
}

// Config returns the session's configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Reset discards all accumulated scan results.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = nil
}

// Results returns the accumulated scan results ordered by scan index.
func (s *Session) Results() []*Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Result, len(s.results))
	copy(out, s.results)
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

func (s *Session) add(r *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// ProcessScan runs the per-frame pipeline for one scan and records the
// result: load + undistort, back-project to a cloud with normals, extract
// landmark centroids. A scan whose landmarks cannot be read or extracted is
// still recorded (its cloud can anchor the session as the reference) but is
// marked unusable for alignment.
func (s *Session) ProcessScan(index int, files FrameFiles) error {
	frame, err := LoadFrame(files, s.cfg)
	if err != nil {
		return err
	}

	cloud, err := BuildPointCloud(frame, s.cfg)
	if err != nil {
		return err
	}
	if cloud.Size() == 0 {
		s.logger.Warnw("scan has no valid depth; recording empty cloud", "scan", index)
		s.add(&Result{Index: index, Cloud: cloud, Frame: frame})
		return nil
	}

	result := &Result{Index: index, Cloud: cloud, Frame: frame}
	landmarkPixels, err := align.ParseImageLandmarksFile(files.Landmarks)
	if err != nil {
		// The cloud is already built; a bad landmarks file only costs the
		// scan its vote in alignment, same as unusable landmark depth.
		s.logger.Warnw("scan unusable for alignment", "scan", index, "error", err)
		s.add(result)
		return nil
	}
	set, err := ExtractLandmarks(frame, landmarkPixels, s.cfg)
	if err != nil {
		if !errors.Is(err, ErrLandmarkDepth) {
			return err
		}
		s.logger.Warnw("scan unusable for alignment", "scan", index, "error", err)
	} else {
		result.Landmarks = set
		result.HasLandmarks = true
	}
	s.add(result)
	return nil
}

// ProcessAll processes all scans in parallel, one task per frame, and
// waits for every task to finish before returning (the barrier alignment
// requires). A failing scan is logged and skipped; an error is returned
// only if no scan succeeds.
func (s *Session) ProcessAll(ctx context.Context, scans []FrameFiles) error {
	fns := make([]utils.SimpleFunc, len(scans))
	for i, files := range scans {
		index, f := i, files
		fns[i] = func(ctx context.Context) error {
			if err := s.ProcessScan(index, f); err != nil {
				s.logger.Warnw("skipping scan", "scan", index, "error", err)
				return err
			}
			return nil
		}
	}
	err := utils.RunInParallel(ctx, fns)
	if len(s.Results()) == 0 {
		if err != nil {
			return errors.Wrap(err, "all scans failed")
		}
		return errors.New("no scans to process")
	}
	return nil
}
