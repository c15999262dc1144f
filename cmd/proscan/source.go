package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // registers the GIF decoder.
	_ "image/jpeg" // registers the JPEG decoder.
	_ "image/png"  // registers the PNG decoder.
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Sumatoshi-tech/proscan/pkg/frame"
)

// ErrNoFrames is returned when the given paths contain no supported images.
var ErrNoFrames = errors.New("no image frames found")

// errSourceIdle is reported by the readiness check when no frames are flowing.
var errSourceIdle = errors.New("frame source not running")

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}

// expandPaths resolves files and directories into an ordered list of image
// files. Directory entries are taken in lexical order, which for numbered
// captures is capture order.
func expandPaths(args []string) ([]string, error) {
	var paths []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("frame source: %w", err)
		}

		if !info.IsDir() {
			paths = append(paths, arg)

			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("frame source: %w", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !isImage(entry.Name()) {
				continue
			}

			paths = append(paths, filepath.Join(arg, entry.Name()))
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, strings.Join(args, ", "))
	}

	return paths, nil
}

func isImage(name string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(name)))
}

// fileSource replays image files as a camera stream.
//
// Without realtime pacing, capture times are synthesized at one frame interval
// apart so duplicate suppression behaves as it would on the line. With
// realtime pacing the source sleeps between frames and stamps wall-clock time.
type fileSource struct {
	paths    []string
	interval time.Duration
	realtime bool
	start    time.Time
	logger   *slog.Logger

	running atomic.Bool
	skipped atomic.Int64
}

func newFileSource(paths []string, fps int, realtime bool, logger *slog.Logger) *fileSource {
	return &fileSource{
		paths:    paths,
		interval: time.Second / time.Duration(fps),
		realtime: realtime,
		start:    time.Now(),
		logger:   logger,
	}
}

// Stream sends one frame per path to out and closes it when done.
// Unreadable images are logged and skipped.
func (s *fileSource) Stream(ctx context.Context, out chan<- *frame.Frame) error {
	defer close(out)

	s.running.Store(true)
	defer s.running.Store(false)

	var tick <-chan time.Time

	if s.realtime {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		tick = ticker.C
	}

	for i, path := range s.paths {
		if tick != nil && i > 0 {
			select {
			case <-tick:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		captured := s.start.Add(time.Duration(i) * s.interval)
		if s.realtime {
			captured = time.Now()
		}

		f, err := loadFrame(path, captured)
		if err != nil {
			s.skipped.Add(1)
			s.logger.WarnContext(ctx, "skipping unreadable frame", "path", path, "error", err)

			continue
		}

		select {
		case out <- f.WithSequence(uint64(i)): //nolint:gosec // index is non-negative.
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Ready reports whether the source is still producing frames.
func (s *fileSource) Ready(context.Context) error {
	if !s.running.Load() {
		return errSourceIdle
	}

	return nil
}

func loadFrame(path string, captured time.Time) (*frame.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	f, err := frame.FromImage(img, captured)
	if err != nil {
		return nil, fmt.Errorf("frame from %s: %w", filepath.Base(path), err)
	}

	return f, nil
}
