package raycast

import (
	"math"
	"testing"

	"github.com/tracklap/simharness/internal/telemetry"
)

func TestPoseFromSnapshotAppliesGeneratorFormulas(t *testing.T) {
	snap := telemetry.Snapshot{Values: map[string]any{
		"heading":                  0.5,
		"pitch":                    0.1,
		"roll":                     0.2,
		"centre_of_gravity_height": 0.6,
		"car_coordinates_x":        10.0,
		"car_coordinates_y":        2.0,
		"car_coordinates_z":        -5.0,
	}}

	pose := PoseFromSnapshot(snap)

	wantYaw := -(0.5 + math.Pi)
	if math.Abs(pose.Angles.Y-wantYaw) > 1e-9 {
		t.Errorf("Angles.Y = %v, want %v", pose.Angles.Y, wantYaw)
	}
	if pose.Angles.X != 0.1 || pose.Angles.Z != 0.2 {
		t.Errorf("Angles = %v, want pitch=0.1 roll=0.2", pose.Angles)
	}
	if pose.Location.Y != 2.6 {
		t.Errorf("Location.Y = %v, want 2.6 (car_coordinates_y + cog height)", pose.Location.Y)
	}
	if pose.Location.X != 10.0 || pose.Location.Z != -5.0 {
		t.Errorf("Location = %v, want X=10 Z=-5", pose.Location)
	}
}

func TestFOVFromVerticalMatchesPinholeRelation(t *testing.T) {
	fov := FOVFromVertical(90, 100, 100)
	if math.Abs(fov.Horizontal-90) > 1e-6 {
		t.Errorf("square image with 90deg vertical FOV should give ~90deg horizontal, got %v", fov.Horizontal)
	}
	if fov.Vertical != 90 {
		t.Errorf("Vertical = %v, want 90", fov.Vertical)
	}
}

func TestFOVFromVerticalWidensForWiderImages(t *testing.T) {
	square := FOVFromVertical(60, 100, 100)
	wide := FOVFromVertical(60, 200, 100)
	if wide.Horizontal <= square.Horizontal {
		t.Errorf("wider image should have larger horizontal FOV: wide=%v square=%v", wide.Horizontal, square.Horizontal)
	}
}
