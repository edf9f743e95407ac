package state

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize bounds a single frame to guard against a corrupt length
// prefix turning into an unbounded allocation.
const maxFrameSize = 1 << 20

// writeFrame writes a length-prefixed snapshot frame: a 4-byte
// big-endian length followed by that many bytes of payload.
func writeFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("state: write frame header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("state: write frame payload: %w", err)
	}
	return nil
}

// readFrame reads one length-prefixed frame written by writeFrame.
func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("state: frame of %d bytes exceeds max %d", n, maxFrameSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("state: read frame payload: %w", err)
	}
	return payload, nil
}
