package evaluator

import (
	"context"
	"testing"
	"time"
)

func TestNewDefaultsTickEvery(t *testing.T) {
	e := New(nil, nil, 0)
	if e.tickEvery != 500*time.Millisecond {
		t.Errorf("tickEvery = %v, want 500ms", e.tickEvery)
	}
}

func TestSetCurrentLapUpdatesEveryTracker(t *testing.T) {
	trackers := []*Tracker{{Name: "a"}, {Name: "b"}}
	e := New(nil, trackers, time.Second)
	e.SetCurrentLap(7)
	for _, tr := range trackers {
		if tr.CurrentLap != 7 {
			t.Errorf("tracker %q CurrentLap = %d, want 7", tr.Name, tr.CurrentLap)
		}
	}
}

func TestResultsReturnsIndependentCopy(t *testing.T) {
	e := New(nil, nil, time.Second)
	e.results["top_speed-sector1"] = 123.5

	got := e.Results()
	if got["top_speed-sector1"] != 123.5 {
		t.Fatalf("Results() = %v, want top_speed-sector1=123.5", got)
	}

	got["top_speed-sector1"] = 999
	if e.results["top_speed-sector1"] != 123.5 {
		t.Error("mutating the returned map must not affect the Evaluator's internal state")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	e := New(nil, nil, 10*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
