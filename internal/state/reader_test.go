package state

import (
	"encoding/binary"
	"testing"

	"github.com/tracklap/simharness/internal/telemetry"
)

func TestReaderPollConcatenatesRegions(t *testing.T) {
	gSize := graphicsSize()
	pSize := physicsSize()

	graphics := NewFakeRegion(gSize)
	physics := NewFakeRegion(pSize)

	gBuf := make([]byte, gSize)
	binary.LittleEndian.PutUint32(gBuf[0:4], 42) // packet_id
	graphics.Write(gBuf)

	r := NewReaderFromRegions(graphics, physics)
	defer r.Close()

	raw, err := r.Poll()
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(raw) != telemetry.Size() {
		t.Fatalf("Poll returned %d bytes, want %d", len(raw), telemetry.Size())
	}

	snap, err := telemetry.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	id, ok := snap.Int("packet_id")
	if !ok || id != 42 {
		t.Errorf("packet_id = %v, %v; want 42, true", id, ok)
	}
}

func TestReaderPollPropagatesRegionError(t *testing.T) {
	graphics := NewFakeRegion(graphicsSize())
	physics := NewFakeRegion(physicsSize())
	physics.Close()

	r := NewReaderFromRegions(graphics, physics)
	if _, err := r.Poll(); err == nil {
		t.Error("expected error when physics region is closed")
	}
}
