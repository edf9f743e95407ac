package state

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"tailscale.com/tsweb"

	"github.com/tracklap/simharness/internal/telemetry"
)

// ErrServerUnavailable is returned by Client operations when the
// StateServer cannot be reached.
var ErrServerUnavailable = fmt.Errorf("state: server unavailable")

// Server fans out the latest StateSnapshot to any number of connected
// StateClients. It only resends a snapshot once the graphics block's
// packet id has advanced: physics updates far more often than graphics
// inside the simulator, and graphics carries the session/lap state that
// actually marks a new logical frame.
type Server struct {
	reader *Reader

	subscriberMu sync.Mutex
	subscribers  map[string]*subscriber

	latestMu     sync.Mutex
	latest       []byte
	lastPacketID int64
	haveLatest   bool
}

// subscriber tracks one connected StateClient's own view of the last
// packet id sent to it, so a newly-joined client always receives the
// current snapshot on the next poll regardless of whether the graphics
// packet id has advanced since some other subscriber last saw it.
type subscriber struct {
	conn net.Conn

	mu           sync.Mutex
	lastPacketID int64
	haveSent     bool
}

// NewServer wraps a Reader; Listen and Broadcast drive it.
func NewServer(reader *Reader) *Server {
	return &Server{
		reader:      reader,
		subscribers: make(map[string]*subscriber),
	}
}

// Listen accepts StateClient connections on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("state: listen on %s: %w", addr, err)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				opsf("state: accept error: %v", err)
				continue
			}
		}
		id := s.addSubscriber(conn)
		go s.watchForDisconnect(id, conn)
	}
}

func (s *Server) addSubscriber(conn net.Conn) string {
	id := randomSubscriberID()
	s.subscriberMu.Lock()
	s.subscribers[id] = &subscriber{conn: conn, lastPacketID: -1}
	s.subscriberMu.Unlock()
	return id
}

func (s *Server) removeSubscriber(id string) {
	s.subscriberMu.Lock()
	sub, ok := s.subscribers[id]
	delete(s.subscribers, id)
	s.subscriberMu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// watchForDisconnect drops a subscriber as soon as its connection
// produces any read error, since StateClient never sends data itself.
func (s *Server) watchForDisconnect(id string, conn net.Conn) {
	buf := make([]byte, 1)
	conn.Read(buf)
	s.removeSubscriber(id)
}

// PollAndBroadcast reads one snapshot from the Reader and, if the
// graphics packet id advanced since the last broadcast, fans it out to
// every connected subscriber.
func (s *Server) PollAndBroadcast() error {
	raw, err := s.reader.Poll()
	if err != nil {
		return fmt.Errorf("state: poll: %w", err)
	}

	packetID := int64(int32(binary.LittleEndian.Uint32(raw[:4])))

	s.latestMu.Lock()
	s.latest = raw
	s.lastPacketID = packetID
	s.haveLatest = true
	s.latestMu.Unlock()

	s.broadcast(raw, packetID)
	return nil
}

// broadcast sends payload to every subscriber whose own last-sent
// packet id differs from packetID, so a subscriber that just joined
// gets the current snapshot immediately even if no other subscriber's
// view of the packet id has changed.
func (s *Server) broadcast(payload []byte, packetID int64) {
	s.subscriberMu.Lock()
	subs := make(map[string]*subscriber, len(s.subscribers))
	for id, sub := range s.subscribers {
		subs[id] = sub
	}
	s.subscriberMu.Unlock()

	sent := 0
	for id, sub := range subs {
		sub.mu.Lock()
		stale := !sub.haveSent || packetID != sub.lastPacketID
		if !stale {
			sub.mu.Unlock()
			continue
		}
		if err := writeFrame(sub.conn, payload); err != nil {
			sub.mu.Unlock()
			// A failed write is a normal client disconnect, not an
			// operational problem; drop it without retrying.
			s.removeSubscriber(id)
			continue
		}
		sub.lastPacketID = packetID
		sub.haveSent = true
		sub.mu.Unlock()
		sent++
	}
	if sent > 0 {
		tracef("state: broadcast packet %d to %d/%d subscribers", packetID, sent, len(subs))
	}
}

// LatestSnapshot returns the most recently broadcast snapshot, decoded,
// and whether one has been observed yet.
func (s *Server) LatestSnapshot() (telemetry.Snapshot, bool) {
	s.latestMu.Lock()
	raw := s.latest
	ok := s.haveLatest
	s.latestMu.Unlock()
	if !ok {
		return telemetry.Snapshot{}, false
	}
	snap, err := telemetry.Decode(raw)
	if err != nil {
		opsf("state: decode latest snapshot: %v", err)
		return telemetry.Snapshot{}, false
	}
	return snap, true
}

// AttachAdminRoutes mounts a live-tail debug endpoint on mux, in the
// same spirit as a serial multiplexer's admin routes: an SSE stream of
// whatever is currently being broadcast to subscribers.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleSilentFunc("state-tail", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		snap, ok := s.LatestSnapshot()
		if !ok {
			io.WriteString(w, "data: no snapshot yet\n\n")
			w.(http.Flusher).Flush()
			return
		}
		fmt.Fprintf(w, "data: packet_id=%v\n\n", snap.Values["packet_id"])
		w.(http.Flusher).Flush()
	})
}

func randomSubscriberID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}
