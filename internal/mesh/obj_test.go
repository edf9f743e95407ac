package mesh

import (
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

const sampleOBJ = `
# simple two-triangle quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
usemtl aspgrp
f 1 2 3
f 1 3 4
`

func TestLoadOBJTriangulatesQuadFace(t *testing.T) {
	classes := NewClassTable(DefaultSemanticClasses, DefaultMaterialToSemanticClass)
	track, err := LoadOBJ(strings.NewReader(sampleOBJ), classes)
	if err != nil {
		t.Fatalf("LoadOBJ: %v", err)
	}
	if len(track.Triangles) != 2 {
		t.Fatalf("len(Triangles) = %d, want 2", len(track.Triangles))
	}
	for _, tri := range track.Triangles {
		if tri.Material != "aspgrp" {
			t.Errorf("Material = %q, want aspgrp", tri.Material)
		}
		if tri.ClassID != 0 {
			t.Errorf("ClassID = %d, want 0 (road)", tri.ClassID)
		}
	}
}

func TestLoadOBJUnknownMaterialIsVoid(t *testing.T) {
	const objText = "v 0 0 0\nv 1 0 0\nv 0 1 0\nusemtl nonexistent_material\nf 1 2 3\n"
	classes := NewClassTable(DefaultSemanticClasses, DefaultMaterialToSemanticClass)
	track, err := LoadOBJ(strings.NewReader(objText), classes)
	if err != nil {
		t.Fatalf("LoadOBJ: %v", err)
	}
	if track.Triangles[0].ClassID != -1 {
		t.Errorf("ClassID = %d, want -1 (void)", track.Triangles[0].ClassID)
	}
}

func TestTrackNormalIsUnitLength(t *testing.T) {
	track := &Track{Triangles: []Triangle{
		{A: r3.Vec{}, B: r3.Vec{X: 1}, C: r3.Vec{Y: 1}},
	}}
	n := track.Normal(0)
	length := n.X*n.X + n.Y*n.Y + n.Z*n.Z
	if length < 0.999 || length > 1.001 {
		t.Errorf("normal not unit length: %v (|n|^2=%v)", n, length)
	}
	if n.Z <= 0 {
		t.Errorf("expected normal to point toward +Z for CCW XY triangle, got %v", n)
	}
}
