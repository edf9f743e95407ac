package state

import (
	"fmt"
	"sync"

	"github.com/tracklap/simharness/internal/telemetry"
)

// Names of the simulator's two shared-memory blocks, in wire order.
const (
	GraphicsRegionName = "acpmf_graphics"
	PhysicsRegionName  = "acpmf_physics"
)

func graphicsSize() int {
	size := 0
	for _, f := range telemetry.Schema[:graphicsFieldCount] {
		size += fieldSize(f)
	}
	return size
}

func physicsSize() int {
	return telemetry.Size() - graphicsSize()
}

func fieldSize(f telemetry.FieldSpec) int {
	if f.Kind == telemetry.KindText {
		return f.Width
	}
	return 4
}

// graphicsFieldCount is the number of leading schema fields belonging
// to the graphics block; it must track the split in telemetry.Schema.
const graphicsFieldCount = 29

// Reader polls the simulator's two shared-memory regions and hands back
// the concatenated raw bytes, in the exact order StateDecoder expects.
// It has no internal sleep: callers decide the poll cadence, matching
// the simulator's own no-sleep scraping loop.
type Reader struct {
	mu       sync.Mutex
	graphics Region
	physics  Region
}

// NewReader opens both regions via OpenRegion. Returns
// ErrRegionUnavailable (wrapped) if either region is missing,
// which callers treat as "simulator not running yet" rather than fatal.
func NewReader() (*Reader, error) {
	graphics, err := OpenRegion(GraphicsRegionName, graphicsSize())
	if err != nil {
		return nil, fmt.Errorf("state: open graphics region: %w", err)
	}
	physics, err := OpenRegion(PhysicsRegionName, physicsSize())
	if err != nil {
		graphics.Close()
		return nil, fmt.Errorf("state: open physics region: %w", err)
	}
	return &Reader{graphics: graphics, physics: physics}, nil
}

// NewReaderFromRegions builds a Reader over caller-supplied Regions,
// used in tests with FakeRegion in place of real shared memory.
func NewReaderFromRegions(graphics, physics Region) *Reader {
	return &Reader{graphics: graphics, physics: physics}
}

// Poll reads both regions once and returns their concatenation
// (graphics bytes, then physics bytes) ready for telemetry.Decode.
func (r *Reader) Poll() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf := make([]byte, r.graphics.Size()+r.physics.Size())
	if err := r.graphics.Read(buf[:r.graphics.Size()]); err != nil {
		return nil, fmt.Errorf("state: read graphics region: %w", err)
	}
	if err := r.physics.Read(buf[r.graphics.Size():]); err != nil {
		return nil, fmt.Errorf("state: read physics region: %w", err)
	}
	return buf, nil
}

// Close releases both underlying regions.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.graphics.Close()
	if perr := r.physics.Close(); err == nil {
		err = perr
	}
	return err
}
