package state

import "fmt"

// Region is a named block of shared memory the simulator (or a scripted
// stub, in tests) writes telemetry bytes into. StateReader opens one
// Region per shared-memory block (graphics, physics) and reads the
// latest contents on each poll.
type Region interface {
	// Read copies the region's current contents into buf, which must be
	// at least Size() bytes. It never blocks: a torn read is possible
	// and is the caller's responsibility to detect via a packet id.
	Read(buf []byte) error
	// Size returns the region's byte width.
	Size() int
	// Close releases the underlying mapping.
	Close() error
}

// ErrRegionUnavailable is returned by OpenRegion when the named shared
// memory block does not exist, StateReader's shared-memory-unavailable
// error: the simulator is either not
// running or has not initialized its shared-memory pages yet.
var ErrRegionUnavailable = fmt.Errorf("state: shared memory region unavailable")
