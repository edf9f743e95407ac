//go:build !windows

package state

import (
	"fmt"
	"os"
	"syscall"
)

// OpenRegion maps a named POSIX shared-memory object under /dev/shm. The
// simulator itself only exposes named shared memory on Windows; this
// path exists for local development and integration tests that run a
// scripted writer against the same named-region contract.
func OpenRegion(name string, size int) (Region, error) {
	f, err := os.OpenFile("/dev/shm/"+name, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRegionUnavailable, name)
		}
		return nil, fmt.Errorf("state: open %s: %w", name, err)
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("state: mmap %s: %w", name, err)
	}

	return &unixRegion{file: f, data: data}, nil
}

type unixRegion struct {
	file *os.File
	data []byte
}

func (r *unixRegion) Read(buf []byte) error {
	copy(buf, r.data)
	return nil
}

func (r *unixRegion) Size() int { return len(r.data) }

func (r *unixRegion) Close() error {
	err := syscall.Munmap(r.data)
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}
