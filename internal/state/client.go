package state

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tracklap/simharness/internal/telemetry"
)

// Client connects to a Server and keeps the most recently received
// telemetry payload available to a consumer without blocking on network
// I/O. A background goroutine owns the connection; Latest and
// WaitUntilReady only ever touch a mutex-guarded slot and an atomic
// freshness flag. Latest returns the raw wire payload rather than a
// decoded Snapshot so that *Client satisfies capture.StateSource
// directly, the same raw-bytes contract a CaptureAggregator gets from
// a local StateReader.
type Client struct {
	conn net.Conn

	mu       sync.Mutex
	latest   []byte
	haveSeen bool

	fresh atomic.Bool
}

// Dial connects to a Server at addr and starts the background reader.
// ctx governs the connection's lifetime; cancelling it stops the reader
// and closes the connection.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrServerUnavailable, addr, err)
	}
	c := &Client{conn: conn}
	go c.run(ctx)
	return c, nil
}

func (c *Client) run(ctx context.Context) {
	defer c.conn.Close()
	go func() {
		<-ctx.Done()
		c.conn.Close()
	}()

	for {
		payload, err := readFrame(c.conn)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				opsf("state client: read frame: %v", err)
				return
			}
		}
		c.mu.Lock()
		c.latest = payload
		c.haveSeen = true
		c.mu.Unlock()
		c.fresh.Store(true)
	}
}

// Latest returns the most recently received raw telemetry payload and
// clears the freshness flag. ok is false until the first frame has
// arrived.
func (c *Client) Latest() (raw []byte, ok bool) {
	c.mu.Lock()
	raw, ok = c.latest, c.haveSeen
	c.mu.Unlock()
	c.fresh.Store(false)
	return raw, ok
}

// Fresh reports whether a snapshot has arrived since the last Latest call.
func (c *Client) Fresh() bool {
	return c.fresh.Load()
}

// WaitUntilReady polls Latest until the simulator reports a running
// session (a nonzero, advancing packet_id, which is the graphics block's
// counter; the physics block in telemetry.Schema has no packet counter)
// or ctx is done. A stalled or zero packet id is the simulator's own
// idle/not-running state.
func (c *Client) WaitUntilReady(ctx context.Context, pollEvery time.Duration) error {
	var lastPacketID int64 = -1
	seenAdvance := false

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			raw, ok := c.Latest()
			if !ok {
				continue
			}
			snap, err := telemetry.Decode(raw)
			if err != nil {
				opsf("state client: decode frame: %v", err)
				continue
			}
			id, _ := snap.Int("packet_id")
			if id == 0 {
				lastPacketID = 0
				continue
			}
			if lastPacketID >= 0 && id != lastPacketID {
				seenAdvance = true
			}
			if seenAdvance {
				return nil
			}
			lastPacketID = id
		}
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
