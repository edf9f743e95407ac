package capture

import "testing"

func TestArenaCaptureEmptyUntilFirstSet(t *testing.T) {
	a := NewArena()
	if _, ok := a.Capture(); ok {
		t.Fatal("expected no observation before first set")
	}
}

func TestArenaCaptureMarksStaleAfterRead(t *testing.T) {
	a := NewArena()
	a.set(Observation{State: []byte("x")}, true)

	obs, ok := a.Capture()
	if !ok {
		t.Fatal("expected an observation")
	}
	if obs.IsImageStale {
		t.Error("expected image not stale on first read after a new-image set")
	}
	if _, ok := a.Capture(); ok {
		t.Fatal("expected capture to be stale until next set")
	}
}

func TestArenaImageStaleWhenNoNewFrame(t *testing.T) {
	a := NewArena()
	a.set(Observation{State: []byte("x")}, false)

	obs, ok := a.Capture()
	if !ok {
		t.Fatal("expected an observation")
	}
	if !obs.IsImageStale {
		t.Error("expected image stale when no new frame was merged")
	}
}
