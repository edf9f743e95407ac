// Package raycast casts camera rays through a track's collision mesh
// to produce the per-pixel ray/triangle intersections that
// internal/generate turns into semantic, depth, and normal rasters.
package raycast

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tracklap/simharness/internal/telemetry"
)

// Pose is a camera's orientation and position for one frame, derived
// from a telemetry snapshot exactly as generate_data.py's
// _get_camera_rotation/_get_camera_location.
type Pose struct {
	// Angles are (pitch, yaw, roll) in radians. Yaw is the negated,
	// pi-rotated heading: -(heading + pi).
	Angles   r3.Vec
	Location r3.Vec
}

// PoseFromSnapshot builds a camera Pose from a decoded telemetry
// snapshot, adding centreOfGravityHeight to the car's Y coordinate the
// same way the original raises the camera from the car's origin to
// roughly driver eye height.
func PoseFromSnapshot(snap telemetry.Snapshot) Pose {
	heading, _ := snap.Float("heading")
	pitch, _ := snap.Float("pitch")
	roll, _ := snap.Float("roll")
	cogHeight, _ := snap.Float("centre_of_gravity_height")
	locX, _ := snap.Float("car_coordinates_x")
	locY, _ := snap.Float("car_coordinates_y")
	locZ, _ := snap.Float("car_coordinates_z")

	return Pose{
		Angles:   r3.Vec{X: pitch, Y: -(heading + math.Pi), Z: roll},
		Location: r3.Vec{X: locX, Y: locY + cogHeight, Z: locZ},
	}
}

// FOV is a camera's horizontal/vertical field of view in degrees.
type FOV struct {
	Horizontal, Vertical float64
}

// FOVFromVertical derives the horizontal FOV from a configured vertical
// FOV and the image dimensions via the pinhole-camera relation, exactly
// matching __setup_fov: focal_length = height / tan(fov_v/2), fov_h =
// 2*atan(width/focal_length).
func FOVFromVertical(verticalDegrees float64, width, height int) FOV {
	fovV := verticalDegrees * math.Pi / 180
	focalLength := float64(height) / math.Tan(fovV/2)
	fovH := 2 * math.Atan(float64(width)/focalLength)
	return FOV{Horizontal: fovH * 180 / math.Pi, Vertical: verticalDegrees}
}
