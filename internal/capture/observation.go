// Package capture implements CaptureAggregator: it merges the latest
// telemetry snapshot from a state.Client with the latest frame from a
// frame.Stream into a single Observation, available to a consumer
// without blocking it on either source.
package capture

import (
	"sync"

	"github.com/tracklap/simharness/internal/telemetry"
)

// Observation is one merged capture: the image bytes captured nearest
// in time to the telemetry snapshot, plus flags telling the consumer
// whether either half was already seen.
type Observation struct {
	Image        []byte
	State        []byte
	Snapshot     telemetry.Snapshot
	HasSnapshot  bool
	IsImageStale bool
}

// Mode selects how State/Snapshot are populated on each Observation.
type Mode int

const (
	// ModeRaw leaves the telemetry snapshot undecoded: State carries
	// the raw bytes only, matching the teacher's identity() transform.
	ModeRaw Mode = iota
	// ModeDecoded decodes the raw bytes into a telemetry.Snapshot.
	ModeDecoded
	// ModeSimulatedINS decodes the raw bytes and additionally augments
	// the snapshot with a SimulatedINS reading.
	ModeSimulatedINS
)

// Arena is the shared destination CaptureAggregator writes merged
// observations into and a consumer reads from. It is the Go analogue
// of the teacher's shared mp.Array/SharedMemory pair: a single
// mutex-guarded slot plus a staleness flag, not actual OS shared
// memory, since this system merges within one process rather than
// across a multiprocessing boundary.
type Arena struct {
	mu           sync.Mutex
	latest       Observation
	isStale      bool
	isImageStale bool
}

// NewArena returns an Arena with no observation yet written.
func NewArena() *Arena {
	return &Arena{isStale: true, isImageStale: true}
}

// Capture blocks-free reads the latest observation. ok is false until
// CaptureAggregator has written at least one. Reading marks the
// observation stale, mirroring GameCapture.capture's read-once
// semantics: a second call with no intervening write returns ok=false.
// Reading also marks the image stale, so the next observation reports
// IsImageStale=true unless a new frame was merged before it.
func (a *Arena) Capture() (Observation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.isStale {
		return Observation{}, false
	}
	obs := a.latest
	obs.IsImageStale = a.isImageStale
	a.isStale = true
	a.isImageStale = true
	return obs, true
}

// set is called by CaptureAggregator to publish a new merged
// observation. newImage reports whether the image half actually
// advanced this round (a new frame.Stream.Capture was observed),
// clearing the image-stale flag only in that case.
func (a *Arena) set(obs Observation, newImage bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest = obs
	a.isStale = false
	if newImage {
		a.isImageStale = false
	}
}
