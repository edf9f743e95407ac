//go:build windows

package state

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// OpenRegion opens the simulator's named file-mapping object (e.g.
// Local\acpmf_physics) and maps a read-write view of it. This is the
// production path: Assetto Corsa only publishes telemetry through
// Windows named shared memory.
func OpenRegion(name string, size int) (Region, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("state: encode region name %q: %w", name, err)
	}

	handle, err := windows.OpenFileMapping(windows.FILE_MAP_ALL_ACCESS, false, namePtr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRegionUnavailable, name, err)
	}

	addr, err := windows.MapViewOfFile(handle, windows.FILE_MAP_ALL_ACCESS, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("state: map view of %q: %w", name, err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	return &windowsRegion{handle: handle, addr: addr, data: data}, nil
}

type windowsRegion struct {
	handle windows.Handle
	addr   uintptr
	data   []byte
}

func (r *windowsRegion) Read(buf []byte) error {
	copy(buf, r.data)
	return nil
}

func (r *windowsRegion) Size() int { return len(r.data) }

func (r *windowsRegion) Close() error {
	err := windows.UnmapViewOfFile(r.addr)
	if cerr := windows.CloseHandle(r.handle); err == nil {
		err = cerr
	}
	return err
}
