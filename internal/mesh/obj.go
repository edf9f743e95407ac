package mesh

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is one collision-mesh face: its three vertices, the material
// name active when it was declared, and the semantic train id resolved
// from that material via a ClassTable.
type Triangle struct {
	A, B, C  r3.Vec
	Material string
	ClassID  int8
}

// Track is the concatenated collision mesh used for ray casting and
// raster generation, the Go analogue of trimesh.util.concatenate(...)
// feeding a RayMeshIntersector in __setup_collision_mesh.
type Track struct {
	Triangles []Triangle
}

// Normal returns the geometric normal of triangle i, computed the same
// way trimesh.triangles.normals does: the unit cross product of two
// edge vectors, oriented by vertex winding order.
func (t *Track) Normal(i int) r3.Vec {
	tri := t.Triangles[i]
	e1 := r3.Sub(tri.B, tri.A)
	e2 := r3.Sub(tri.C, tri.A)
	n := r3.Cross(e1, e2)
	length := r3.Norm(n)
	if length == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/length, n)
}

// LoadOBJ parses a preprocessed Wavefront OBJ stream into a Track,
// resolving each face's material to a semantic class via classes.
// Faces are triangulated by fanning from the first vertex, matching
// trimesh's default behaviour for polygonal faces.
func LoadOBJ(src io.Reader, classes *ClassTable) (*Track, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var vertices []r3.Vec
	var triangles []Triangle
	currentMaterial := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseVertex(fields[1:])
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, v)
		case "usemtl":
			if len(fields) > 1 {
				currentMaterial = fields[1]
			}
		case "f":
			faceTriangles, err := parseFace(fields[1:], vertices, currentMaterial, classes)
			if err != nil {
				return nil, err
			}
			triangles = append(triangles, faceTriangles...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Track{Triangles: triangles}, nil
}

func parseVertex(fields []string) (r3.Vec, error) {
	if len(fields) < 3 {
		return r3.Vec{}, fmt.Errorf("mesh: vertex line has %d fields, want at least 3", len(fields))
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("mesh: parsing vertex x: %w", err)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("mesh: parsing vertex y: %w", err)
	}
	z, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("mesh: parsing vertex z: %w", err)
	}
	return r3.Vec{X: x, Y: y, Z: z}, nil
}

// parseFace triangulates a (possibly n-gon) face by fanning from its
// first vertex index, resolving "v", "v/vt", and "v/vt/vn" reference
// forms and ignoring the texture/normal indices.
func parseFace(fields []string, vertices []r3.Vec, material string, classes *ClassTable) ([]Triangle, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("mesh: face line has %d vertex refs, want at least 3", len(fields))
	}
	indices := make([]int, len(fields))
	for i, f := range fields {
		idx, err := faceVertexIndex(f, len(vertices))
		if err != nil {
			return nil, err
		}
		indices[i] = idx
	}

	classID := int8(-1)
	if classes != nil {
		classID = classes.IDForMaterial(material)
	}

	triangles := make([]Triangle, 0, len(indices)-2)
	for i := 1; i < len(indices)-1; i++ {
		triangles = append(triangles, Triangle{
			A:        vertices[indices[0]],
			B:        vertices[indices[i]],
			C:        vertices[indices[i+1]],
			Material: material,
			ClassID:  classID,
		})
	}
	return triangles, nil
}

func faceVertexIndex(ref string, vertexCount int) (int, error) {
	vPart := strings.SplitN(ref, "/", 2)[0]
	n, err := strconv.Atoi(vPart)
	if err != nil {
		return 0, fmt.Errorf("mesh: parsing face vertex reference %q: %w", ref, err)
	}
	if n > 0 {
		return n - 1, nil
	}
	// Negative indices are relative to the end of the vertex list so far.
	idx := vertexCount + n
	if idx < 0 {
		return 0, fmt.Errorf("mesh: face vertex reference %q out of range", ref)
	}
	return idx, nil
}
