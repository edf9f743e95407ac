// Package collab declares the collaborator boundary this module stops
// at: launching the simulator under a compatibility layer, querying or
// moving the simulator's OS window, submitting virtual-gamepad input,
// and merging a session's config overrides onto the simulator's own
// config files. None of these have a Go-native implementation here —
// every concrete realisation is platform- or vendor-specific and is
// injected into internal/orchestrator by the calling binary.
package collab

import (
	"context"

	"github.com/tracklap/simharness/internal/config"
)

// WindowGeometry is the top-left position and size of the simulator's
// application window, the Go analogue of aci/utils/data.py's Point
// paired with a resolution.
type WindowGeometry struct {
	X, Y          int
	Width, Height int
}

// Launcher starts and stops the simulator process under whatever
// compatibility layer the host platform needs (Proton, CrossOver,
// native), the collaborator aci/utils/launch.py's
// launch_assetto_corsa/shutdown_assetto_corsa stand in for.
type Launcher interface {
	Launch(ctx context.Context, geometry WindowGeometry) error
	Shutdown(ctx context.Context) error
}

// WindowLocator resolves and repositions the simulator's OS window, the
// collaborator aci/utils/os.py's get_application_window_coordinates and
// move_application_window stand in for.
type WindowLocator interface {
	Locate(ctx context.Context) (WindowGeometry, error)
	Move(ctx context.Context, geometry WindowGeometry) error
}

// GamepadEmitter submits a driving action to a virtual gamepad device,
// the collaborator input/controller.py's VirtualGamepad stands in for.
// Action is [steering, throttle, brake], each normalised to [-1, 1] or
// [0, 1] per spec.md §6.
type GamepadEmitter interface {
	Submit(ctx context.Context, action [3]float64) error
}

// ConfigMerger layers a session's config.Config overrides onto the
// simulator's own on-disk config files, the collaborator
// aci/config/ac_config.py's configure_simulation stands in for.
type ConfigMerger interface {
	Merge(ctx context.Context, overrides *config.Config) error
}
