// Package recorder implements the Recorder: it drains a capture.Arena
// at a fixed rate and writes each observation to disk as a JPEG image
// and a raw telemetry .bin file, paired by a monotonically increasing
// frame number.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tracklap/simharness/internal/capture"
	"github.com/tracklap/simharness/internal/fsutil"
)

// Arena is the subset of *capture.Arena the recorder depends on.
type Arena interface {
	Capture() (capture.Observation, bool)
}

// Recorder writes the merged image/state stream to files named by a
// monotonic frame counter, one JPEG+bin pair per observation.
type Recorder struct {
	arena Arena
	fs    fsutil.FileSystem
	dir   string

	imageWidth  int
	imageHeight int

	pollEvery time.Duration

	sessionID  string
	frameCount uint64
}

// Options configures a Recorder.
type Options struct {
	SavePath    string
	ImageWidth  int
	ImageHeight int
	PollEvery   time.Duration
	FileSystem  fsutil.FileSystem // defaults to fsutil.OSFileSystem{}
}

// New constructs a Recorder writing into opts.SavePath, creating the
// directory (and any parents) if it does not already exist.
func New(arena Arena, opts Options) (*Recorder, error) {
	fs := opts.FileSystem
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	pollEvery := opts.PollEvery
	if pollEvery <= 0 {
		pollEvery = time.Millisecond
	}

	if !fs.Exists(opts.SavePath) {
		if err := fs.MkdirAll(opts.SavePath, 0o755); err != nil {
			return nil, fmt.Errorf("recorder: create save path: %w", err)
		}
	}

	return &Recorder{
		arena:       arena,
		fs:          fs,
		dir:         opts.SavePath,
		imageWidth:  opts.ImageWidth,
		imageHeight: opts.ImageHeight,
		pollEvery:   pollEvery,
		sessionID:   uuid.NewString(),
	}, nil
}

// SessionID is the identifier stamped on this recording run, usable by
// a downstream DatabaseWriter to group rows from the same session.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// FrameCount returns the number of observations written so far.
func (r *Recorder) FrameCount() uint64 {
	return r.frameCount
}

// Run drains observations from the arena and writes them to disk until
// ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			obs, ok := r.arena.Capture()
			if !ok {
				continue
			}
			if err := r.writeObservation(obs); err != nil {
				opsf("recorder: write frame %d: %v", r.frameCount, err)
				continue
			}
			r.frameCount++
		}
	}
}

func (r *Recorder) writeObservation(obs capture.Observation) error {
	base := fmt.Sprintf("%s/%d", r.dir, r.frameCount)

	if len(obs.State) > 0 {
		if err := r.fs.WriteFile(base+".bin", obs.State, 0o644); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
	}

	if len(obs.Image) > 0 {
		jpegBytes, err := encodeBGRAAsJPEG(obs.Image, r.imageWidth, r.imageHeight)
		if err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
		if err := r.fs.WriteFile(base+".jpeg", jpegBytes, 0o644); err != nil {
			return fmt.Errorf("write jpeg: %w", err)
		}
	}

	tracef("recorder: wrote frame %d (%d state bytes, %d image bytes)",
		r.frameCount, len(obs.State), len(obs.Image))
	return nil
}
