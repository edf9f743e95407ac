package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/tracklap/simharness/internal/capture"
	"github.com/tracklap/simharness/internal/fsutil"
)

type fakeArena struct {
	obs []capture.Observation
	i   int
}

func (f *fakeArena) Capture() (capture.Observation, bool) {
	if f.i >= len(f.obs) {
		return capture.Observation{}, false
	}
	obs := f.obs[f.i]
	f.i++
	return obs, true
}

func solidBGRA(width, height int, b, g, r, a byte) []byte {
	buf := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		buf[i*4+0] = b
		buf[i*4+1] = g
		buf[i*4+2] = r
		buf[i*4+3] = a
	}
	return buf
}

func TestRecorderWritesJPEGAndBinPairs(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	arena := &fakeArena{obs: []capture.Observation{
		{State: []byte("frame0"), Image: solidBGRA(4, 4, 10, 20, 30, 255)},
		{State: []byte("frame1"), Image: solidBGRA(4, 4, 11, 21, 31, 255)},
	}}

	rec, err := New(arena, Options{
		SavePath:    "/out",
		ImageWidth:  4,
		ImageHeight: 4,
		PollEvery:   time.Millisecond,
		FileSystem:  fs,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if rec.SessionID() == "" {
		t.Error("expected a non-empty session id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = rec.Run(ctx)

	if rec.FrameCount() != 2 {
		t.Fatalf("FrameCount() = %d, want 2", rec.FrameCount())
	}
	for _, name := range []string{"/out/0.bin", "/out/0.jpeg", "/out/1.bin", "/out/1.jpeg"} {
		if !fs.Exists(name) {
			t.Errorf("expected %s to exist", name)
		}
	}
	data, err := fs.ReadFile("/out/0.bin")
	if err != nil || string(data) != "frame0" {
		t.Errorf("ReadFile(/out/0.bin) = %q, %v", data, err)
	}
}

func TestRecorderSkipsWhenArenaEmpty(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	arena := &fakeArena{}

	rec, err := New(arena, Options{SavePath: "/out", PollEvery: time.Millisecond, FileSystem: fs})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = rec.Run(ctx)

	if rec.FrameCount() != 0 {
		t.Errorf("FrameCount() = %d, want 0", rec.FrameCount())
	}
}
