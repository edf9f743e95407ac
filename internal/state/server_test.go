package state

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/tracklap/simharness/internal/telemetry"
)

func newTestServerReader(t *testing.T) (*Reader, *FakeRegion, *FakeRegion) {
	t.Helper()
	graphics := NewFakeRegion(graphicsSize())
	physics := NewFakeRegion(physicsSize())
	return NewReaderFromRegions(graphics, physics), graphics, physics
}

func setPacketID(buf []byte, id uint32) {
	binary.LittleEndian.PutUint32(buf[0:4], id)
}

func TestServerLatestSnapshotTracksPolledPacketID(t *testing.T) {
	reader, graphics, _ := newTestServerReader(t)
	srv := NewServer(reader)

	gBuf := make([]byte, graphicsSize())
	setPacketID(gBuf, 1)
	graphics.Write(gBuf)

	if err := srv.PollAndBroadcast(); err != nil {
		t.Fatalf("PollAndBroadcast: %v", err)
	}
	snap, ok := srv.LatestSnapshot()
	if !ok {
		t.Fatal("expected a snapshot after first broadcast")
	}
	id, _ := snap.Int("packet_id")
	if id != 1 {
		t.Fatalf("packet_id = %v, want 1", id)
	}

	// Re-broadcasting with the same packet id must not panic or corrupt
	// state; LatestSnapshot should still report packet id 1.
	if err := srv.PollAndBroadcast(); err != nil {
		t.Fatalf("PollAndBroadcast (no advance): %v", err)
	}
	snap, _ = srv.LatestSnapshot()
	id, _ = snap.Int("packet_id")
	if id != 1 {
		t.Fatalf("packet_id after stale poll = %v, want 1", id)
	}

	setPacketID(gBuf, 2)
	graphics.Write(gBuf)
	if err := srv.PollAndBroadcast(); err != nil {
		t.Fatalf("PollAndBroadcast (advance): %v", err)
	}
	snap, _ = srv.LatestSnapshot()
	id, _ = snap.Int("packet_id")
	if id != 2 {
		t.Fatalf("packet_id after advance = %v, want 2", id)
	}
}

func TestServerClientRoundTrip(t *testing.T) {
	reader, graphics, _ := newTestServerReader(t)
	srv := NewServer(reader)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			id := srv.addSubscriber(conn)
			go srv.watchForDisconnect(id, conn)
		}
	}()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	client, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	gBuf := make([]byte, graphicsSize())
	setPacketID(gBuf, 7)
	graphics.Write(gBuf)
	if err := srv.PollAndBroadcast(); err != nil {
		t.Fatalf("PollAndBroadcast: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if raw, ok := client.Latest(); ok {
			snap, err := telemetry.Decode(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			id, _ := snap.Int("packet_id")
			if id == 7 {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never observed broadcast snapshot")
}

// TestServerSendsCurrentSnapshotToLateJoiner verifies that a subscriber
// connecting after the server has already broadcast a packet id still
// receives that snapshot, rather than waiting for the packet id to
// advance again. Each subscriber's own last-sent packet id starts at
// -1, so the very next poll always looks like an advance to it even if
// other subscribers have already seen that packet id.
func TestServerSendsCurrentSnapshotToLateJoiner(t *testing.T) {
	reader, graphics, _ := newTestServerReader(t)
	srv := NewServer(reader)

	gBuf := make([]byte, graphicsSize())
	setPacketID(gBuf, 3)
	graphics.Write(gBuf)
	if err := srv.PollAndBroadcast(); err != nil {
		t.Fatalf("PollAndBroadcast: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			id := srv.addSubscriber(conn)
			go srv.watchForDisconnect(id, conn)
		}
	}()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	// Dial after the packet id has already settled at 3; nothing
	// further ever advances it.
	client, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	if err := srv.PollAndBroadcast(); err != nil {
		t.Fatalf("PollAndBroadcast (unchanged packet id): %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if raw, ok := client.Latest(); ok {
			snap, err := telemetry.Decode(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			id, _ := snap.Int("packet_id")
			if id == 3 {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("late-joining client never received the already-current snapshot")
}
