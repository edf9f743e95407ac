package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tracklap/simharness/internal/capture"
	"github.com/tracklap/simharness/internal/collab"
	"github.com/tracklap/simharness/internal/config"
	"github.com/tracklap/simharness/internal/timeutil"
)

type stubSource struct {
	obs capture.Observation
}

func (s stubSource) Capture() (capture.Observation, bool) { return s.obs, true }

type stubAgent struct {
	behaviourCalls  atomic.Int64
	teardownCalled  atomic.Bool
	terminateAfter  int64
}

func (a *stubAgent) Behaviour(obs capture.Observation) [3]float64 {
	a.behaviourCalls.Add(1)
	return [3]float64{0, 1, 0}
}

func (a *stubAgent) TerminationCondition(obs capture.Observation) bool {
	return a.behaviourCalls.Load() >= a.terminateAfter
}

func (a *stubAgent) Teardown() { a.teardownCalled.Store(true) }

type stubGamepad struct {
	submitted atomic.Int64
}

func (g *stubGamepad) Submit(ctx context.Context, action [3]float64) error {
	g.submitted.Add(1)
	return nil
}

func TestRunEntersDrivingAndCallsTeardownOnContextCancel(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	agent := &stubAgent{terminateAfter: 1 << 30} // never terminates on its own
	gamepad := &stubGamepad{}
	source := stubSource{obs: capture.Observation{HasSnapshot: true}}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, &config.Config{}, agent, Collaborators{Gamepad: gamepad}, source, clock)
	}()

	// let the drive loop spin a bit, then cancel
	for gamepad.submitted.Load() < 3 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}

	if !agent.teardownCalled.Load() {
		t.Fatalf("Teardown was not called")
	}
}

func TestRunStopsWhenAgentTerminationConditionFires(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	agent := &stubAgent{terminateAfter: 5}
	source := stubSource{obs: capture.Observation{}}
	cfg := &config.Config{Termination: &config.TerminationConfig{CheckEveryN: intPtr(0), MaxConsecutiveFailures: intPtr(1)}}

	err := Run(context.Background(), cfg, agent, Collaborators{}, source, clock)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !agent.teardownCalled.Load() {
		t.Fatalf("Teardown was not called")
	}
}

type erroringLauncher struct {
	launchErr error
}

func (e erroringLauncher) Launch(ctx context.Context, geometry collab.WindowGeometry) error {
	return e.launchErr
}
func (e erroringLauncher) Shutdown(ctx context.Context) error { return nil }

func TestRunAbortsBeforeDrivingWhenLauncherFails(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	agent := &stubAgent{terminateAfter: 1}
	source := stubSource{obs: capture.Observation{}}
	wantErr := errors.New("launch failed")

	err := Run(context.Background(), &config.Config{}, agent, Collaborators{Launcher: erroringLauncher{launchErr: wantErr}}, source, clock)
	if err == nil {
		t.Fatalf("expected an error from a failing launcher")
	}
	if agent.behaviourCalls.Load() != 0 {
		t.Fatalf("agent should never be driven when launch fails")
	}
}

func TestRunSleepsForSessionSettleBeforeDriving(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	agent := &stubAgent{terminateAfter: 1}
	source := stubSource{obs: capture.Observation{}}
	cfg := &config.Config{Termination: &config.TerminationConfig{CheckEveryN: intPtr(0), MaxConsecutiveFailures: intPtr(1)}}

	if err := Run(context.Background(), cfg, agent, Collaborators{}, source, clock); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != sessionLoadedSettle {
		t.Fatalf("got sleeps %v, want one sleep of %v", sleeps, sessionLoadedSettle)
	}
}
