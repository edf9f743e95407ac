package raycast

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tracklap/simharness/internal/mesh"
)

func groundPlaneIntersector() *mesh.Intersector {
	track := &mesh.Track{Triangles: []mesh.Triangle{
		{A: r3.Vec{X: -100, Y: 0, Z: -100}, B: r3.Vec{X: 100, Y: 0, Z: -100}, C: r3.Vec{X: 100, Y: 0, Z: 100}, ClassID: 0},
		{A: r3.Vec{X: -100, Y: 0, Z: -100}, B: r3.Vec{X: 100, Y: 0, Z: 100}, C: r3.Vec{X: -100, Y: 0, Z: 100}, ClassID: 0},
	}}
	return mesh.NewIntersector(track)
}

func TestCameraProducesOneRayPerPixel(t *testing.T) {
	pose := Pose{Location: r3.Vec{Y: 5}}
	rays := Camera(pose, FOV{Horizontal: 60, Vertical: 60}, 8, 6)
	if len(rays) != 8*6 {
		t.Fatalf("len(rays) = %d, want %d", len(rays), 8*6)
	}
}

func TestCameraStraightDownHitsDirectlyBelow(t *testing.T) {
	pose := Pose{Location: r3.Vec{Y: 5}, Angles: r3.Vec{X: -math.Pi / 2}}
	rays := Camera(pose, FOV{Horizontal: 1, Vertical: 1}, 1, 1)
	if len(rays) != 1 {
		t.Fatalf("expected a single ray")
	}
	dir := rays[0].Direction
	if dir.Y > -0.99 {
		t.Errorf("expected a near-straight-down ray direction, got %v", dir)
	}
}

func TestWorkerCastFirstHitResolvesEveryPixel(t *testing.T) {
	w := NewWorker(groundPlaneIntersector(), FOV{Horizontal: 60, Vertical: 60}, 4, 4, ModeFirstHit)
	pose := Pose{Location: r3.Vec{Y: 10}, Angles: r3.Vec{X: -math.Pi / 2}}

	payload := w.Cast("0", pose)
	if payload.Record != "0" {
		t.Errorf("Record = %q, want 0", payload.Record)
	}
	if len(payload.Intersections) != 16 {
		t.Fatalf("len(Intersections) = %d, want 16", len(payload.Intersections))
	}
	hitCount := 0
	for _, i := range payload.Intersections {
		if i.TriangleIdx != -1 {
			hitCount++
		}
	}
	if hitCount == 0 {
		t.Error("expected at least some ground-plane hits")
	}
}

func TestWorkerCastMissesProduceNegativeOneTriangleIdx(t *testing.T) {
	w := NewWorker(groundPlaneIntersector(), FOV{Horizontal: 10, Vertical: 10}, 1, 1, ModeFirstHit)
	// Camera pointing straight up, away from the ground plane below.
	pose := Pose{Location: r3.Vec{Y: 10}, Angles: r3.Vec{X: math.Pi / 2}}

	payload := w.Cast("0", pose)
	if payload.Intersections[0].TriangleIdx != -1 {
		t.Errorf("expected a miss, got hit on triangle %d", payload.Intersections[0].TriangleIdx)
	}
}
