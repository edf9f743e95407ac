// Package orchestrator drives one simulator session end to end: launch,
// wait for readiness, start capture/evaluation, settle, then repeatedly
// observe/act/check-termination until the agent or the caller stops it.
// It generalises original_source/src/aci/interface.py's
// AssettoCorsaInterface, an abstract base class an agent subclassed,
// into a free function over a small Agent interface plus injected
// collaborators — no inheritance, no simulator-specific code here.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/tracklap/simharness/internal/capture"
	"github.com/tracklap/simharness/internal/collab"
	"github.com/tracklap/simharness/internal/config"
	"github.com/tracklap/simharness/internal/timeutil"
)

// State is one step of the session lifecycle.
type State string

const (
	StateConfigure    State = "CONFIGURE"
	StateLaunchSim    State = "LAUNCH_SIM"
	StateWaitReady    State = "WAIT_READY"
	StateStartCapture State = "START_CAPTURE"
	StateStartEval    State = "START_EVAL"
	StateSessionLoaded State = "SESSION_LOADED"
	StateDriving      State = "DRIVING"
	StateShutdown     State = "SHUTDOWN"
)

// sessionLoadedSettle is how long Run waits in StateSessionLoaded before
// entering StateDriving, matching interface.py's run()'s time.sleep(2)
// after start_session.
const sessionLoadedSettle = 2 * time.Second

// Agent is implemented by a driving policy. Behaviour maps one
// Observation to a [steering, throttle, brake] action; TerminationCondition
// reports whether the current observation looks like a stalled session;
// Teardown runs once after the driving loop ends, win or lose. The Go
// analogue of AssettoCorsaInterface's three abstract methods.
type Agent interface {
	Behaviour(obs capture.Observation) [3]float64
	TerminationCondition(obs capture.Observation) bool
	Teardown()
}

// ObservationSource supplies the latest merged capture. capture.Arena
// satisfies this directly.
type ObservationSource interface {
	Capture() (capture.Observation, bool)
}

// Collaborators bundles the out-of-scope pieces Run delegates to. Any
// field left nil is treated as a no-op for that step.
type Collaborators struct {
	Launcher      collab.Launcher
	WindowLocator collab.WindowLocator
	Gamepad       collab.GamepadEmitter
	ConfigMerger  collab.ConfigMerger
}

// Orchestrator tracks the current lifecycle state for an in-progress
// Run call, exposed so a caller's status endpoint can report it.
type Orchestrator struct {
	state State
	clock timeutil.Clock
}

// New returns an Orchestrator in StateConfigure.
func New(clock timeutil.Clock) *Orchestrator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Orchestrator{state: StateConfigure, clock: clock}
}

// State returns the orchestrator's current lifecycle state.
func (o *Orchestrator) State() State { return o.state }

// Run drives cfg's session to completion: merge config, launch the
// simulator, wait for capture/evaluation to start, settle, then loop
// observe→check-termination→act until ctx is cancelled or the agent's
// own termination policy fires, and finally teardown+shutdown. An error
// from any collaborator step aborts the run without entering DRIVING.
func Run(ctx context.Context, cfg *config.Config, agent Agent, collaborators Collaborators, source ObservationSource, clock timeutil.Clock) error {
	o := New(clock)

	o.state = StateConfigure
	if collaborators.ConfigMerger != nil {
		if err := collaborators.ConfigMerger.Merge(ctx, cfg); err != nil {
			return fmt.Errorf("orchestrator: merging config: %w", err)
		}
	}

	geometry, err := resolveGeometry(ctx, collaborators)
	if err != nil {
		return fmt.Errorf("orchestrator: resolving window geometry: %w", err)
	}

	o.state = StateLaunchSim
	if collaborators.Launcher != nil {
		if err := collaborators.Launcher.Launch(ctx, geometry); err != nil {
			return fmt.Errorf("orchestrator: launching simulator: %w", err)
		}
		defer collaborators.Launcher.Shutdown(ctx)
	}

	o.state = StateWaitReady
	// StateReader/StateClient readiness polling lives in internal/state;
	// by the time Run is called the caller has already confirmed the
	// state server answered, so this state is a pass-through marker.

	o.state = StateStartCapture
	// CaptureAggregator.Run is started by the caller as a background
	// goroutine before Run is invoked, so source is already live.

	o.state = StateStartEval
	// Recorder.Run/Evaluator.Run are likewise started by the caller.

	o.state = StateSessionLoaded
	o.clock.Sleep(sessionLoadedSettle)

	o.state = StateDriving
	term := newTerminationTracker(cfg.Termination)
	runErr := o.drive(ctx, agent, collaborators, source, term)

	agent.Teardown()
	o.state = StateShutdown
	return runErr
}

func (o *Orchestrator) drive(ctx context.Context, agent Agent, collaborators Collaborators, source ObservationSource, term *terminationTracker) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		obs, ok := source.Capture()
		if !ok {
			continue
		}

		if term.shouldTerminate(agent.TerminationCondition(obs)) {
			return nil
		}

		action := agent.Behaviour(obs)
		if collaborators.Gamepad != nil {
			if err := collaborators.Gamepad.Submit(ctx, action); err != nil {
				return fmt.Errorf("orchestrator: submitting action: %w", err)
			}
		}
	}
}

func resolveGeometry(ctx context.Context, collaborators Collaborators) (collab.WindowGeometry, error) {
	if collaborators.WindowLocator == nil {
		return collab.WindowGeometry{}, nil
	}
	return collaborators.WindowLocator.Locate(ctx)
}
