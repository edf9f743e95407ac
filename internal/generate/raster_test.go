package generate

import (
	"image/color"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tracklap/simharness/internal/mesh"
	"github.com/tracklap/simharness/internal/raycast"
)

func testTrack() *mesh.Track {
	return &mesh.Track{Triangles: []mesh.Triangle{
		{
			A: r3.Vec{X: 0, Y: 0, Z: 0}, B: r3.Vec{X: 1, Y: 0, Z: 0}, C: r3.Vec{X: 0, Y: 0, Z: 1},
			Material: "aspgrp", ClassID: 0,
		},
	}}
}

func testClasses() *mesh.ClassTable {
	return mesh.NewClassTable(mesh.DefaultSemanticClasses, mesh.DefaultMaterialToSemanticClass)
}

func TestGenerateSemanticRastersPaintsHitAndMissPixels(t *testing.T) {
	payload := raycast.IntersectionPayload{
		Record: "000001", Width: 2, Height: 1,
		Intersections: []raycast.Intersection{
			{PixelX: 0, PixelY: 0, TriangleIdx: 0, Distance: 1, Location: r3.Vec{X: 0.2, Y: 0, Z: 0.2}},
			{PixelX: 1, PixelY: 0, TriangleIdx: -1},
		},
	}

	rasters := GenerateSemanticRasters(payload, testTrack(), testClasses())

	hitColour := rasters.Colour.At(0, 0).(color.NRGBA)
	wantRoad := mesh.DefaultSemanticClasses[0].Colour
	if hitColour.R != wantRoad[2] || hitColour.G != wantRoad[1] || hitColour.B != wantRoad[0] {
		t.Errorf("hit pixel colour = %v, want BGR swap of %v", hitColour, wantRoad)
	}

	missTrainID := rasters.TrainID.GrayAt(1, 0).Y
	if int8(missTrainID) != -1 {
		t.Errorf("miss pixel train id = %d, want -1 (as uint8 wraparound)", missTrainID)
	}

	hitTrainID := rasters.TrainID.GrayAt(0, 0).Y
	if hitTrainID != 0 {
		t.Errorf("hit pixel train id = %d, want 0", hitTrainID)
	}
}

func TestGenerateDepthRasterNormalisesAcrossHits(t *testing.T) {
	payload := raycast.IntersectionPayload{
		Record: "000001", Width: 2, Height: 1,
		Intersections: []raycast.Intersection{
			{PixelX: 0, PixelY: 0, TriangleIdx: 0, Origin: r3.Vec{}, Direction: r3.Vec{X: 0, Y: 0, Z: 1}, Location: r3.Vec{X: 0, Y: 0, Z: 1}},
			{PixelX: 1, PixelY: 0, TriangleIdx: 0, Origin: r3.Vec{}, Direction: r3.Vec{X: 0, Y: 0, Z: 1}, Location: r3.Vec{X: 0, Y: 0, Z: 5}},
		},
	}

	depth := GenerateDepthRaster(payload)

	near := depth.GrayAt(0, 0).Y
	far := depth.GrayAt(1, 0).Y
	if near <= far {
		t.Errorf("nearer hit should invert to a higher value: near=%d far=%d", near, far)
	}
}

func TestGenerateNormalRasterSkipsMisses(t *testing.T) {
	track := testTrack()
	payload := raycast.IntersectionPayload{
		Record: "000001", Width: 1, Height: 1,
		Intersections: []raycast.Intersection{
			{PixelX: 0, PixelY: 0, TriangleIdx: -1},
		},
	}

	normal := GenerateNormalRaster(payload, track)
	c := normal.NRGBAAt(0, 0)
	if c.A != 0 {
		t.Errorf("missed pixel should stay zero-valued, got %v", c)
	}
}
