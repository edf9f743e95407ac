package capture

import (
	"context"
	"time"

	"github.com/tracklap/simharness/internal/frame"
)

// StateSource is the subset of state.Client the aggregator depends on.
type StateSource interface {
	Latest() ([]byte, bool)
}

// FrameSource is the subset of frame.Stream the aggregator depends on.
type FrameSource interface {
	Capture() (frame.Frame, bool)
}

// CaptureAggregator merges the latest state.Client telemetry with the
// latest frame.Stream image into an Arena, at a fixed polling
// interval. It is the Go analogue of the teacher's GameCapture
// process: a run loop reading two independently-updated sources and
// writing a single merged slot a consumer polls without blocking
// either producer.
type CaptureAggregator struct {
	state StateSource
	frame FrameSource
	arena *Arena
	proc  postProcessor

	pollEvery time.Duration

	lastFrameSeq int64
	haveLastSeq  bool
	lastPollTime time.Time
}

// Options configures a CaptureAggregator.
type Options struct {
	// Mode selects the telemetry post-processing chain.
	Mode Mode
	// PollEvery is how often the aggregator checks both sources for
	// new data. The teacher's equivalent loop sleeps 1ms between
	// iterations; this system exposes the interval as a tunable.
	PollEvery time.Duration
	// INSSeed seeds the SimulatedINS random source when Mode is
	// ModeSimulatedINS.
	INSSeed int64
}

// NewCaptureAggregator constructs an aggregator over the given sources
// writing into arena.
func NewCaptureAggregator(stateSource StateSource, frameSource FrameSource, arena *Arena, opts Options) *CaptureAggregator {
	var proc postProcessor
	switch opts.Mode {
	case ModeDecoded:
		proc = decodeProcessor{}
	case ModeSimulatedINS:
		proc = newINSProcessor(opts.INSSeed)
	default:
		proc = rawProcessor{}
	}

	pollEvery := opts.PollEvery
	if pollEvery <= 0 {
		pollEvery = time.Millisecond
	}

	return &CaptureAggregator{
		state:     stateSource,
		frame:     frameSource,
		arena:     arena,
		proc:      proc,
		pollEvery: pollEvery,
	}
}

// Run drives the merge loop until ctx is cancelled.
func (c *CaptureAggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *CaptureAggregator) tick() {
	raw, ok := c.state.Latest()
	if !ok {
		return
	}

	now := time.Now()
	dt := c.pollEvery.Seconds()
	if !c.lastPollTime.IsZero() {
		dt = now.Sub(c.lastPollTime).Seconds()
	}
	c.lastPollTime = now

	snapshot, hasSnapshot, err := c.proc.process(raw, dt)
	if err != nil {
		opsf("capture: postprocess: %v", err)
		return
	}

	obs := Observation{
		State:       raw,
		Snapshot:    snapshot,
		HasSnapshot: hasSnapshot,
	}

	newImage := false
	if f, ok := c.frame.Capture(); ok {
		obs.Image = f.Data
		if !c.haveLastSeq || f.Seq != c.lastFrameSeq {
			newImage = true
			c.lastFrameSeq = f.Seq
			c.haveLastSeq = true
		}
	}

	c.arena.set(obs, newImage)
	tracef("capture: merged observation (new_image=%v)", newImage)
}
