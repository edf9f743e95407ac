package mesh

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// No ray-casting or mesh-intersection library exists anywhere in the
// retrieval pack (the examples reach for trimesh's RayMeshIntersector,
// a C++/Embree binding with no Go equivalent), so this bounding-volume
// hierarchy and its Möller-Trumbore leaf test are hand-rolled.

type aabb struct {
	min, max r3.Vec
}

func (b aabb) extend(p r3.Vec) aabb {
	return aabb{
		min: r3.Vec{X: math.Min(b.min.X, p.X), Y: math.Min(b.min.Y, p.Y), Z: math.Min(b.min.Z, p.Z)},
		max: r3.Vec{X: math.Max(b.max.X, p.X), Y: math.Max(b.max.Y, p.Y), Z: math.Max(b.max.Z, p.Z)},
	}
}

func triangleBounds(tri Triangle) aabb {
	b := aabb{min: tri.A, max: tri.A}
	b = b.extend(tri.B)
	b = b.extend(tri.C)
	return b
}

func (b aabb) hit(origin, invDir r3.Vec) bool {
	t1 := (b.min.X - origin.X) * invDir.X
	t2 := (b.max.X - origin.X) * invDir.X
	tmin, tmax := math.Min(t1, t2), math.Max(t1, t2)

	t1 = (b.min.Y - origin.Y) * invDir.Y
	t2 = (b.max.Y - origin.Y) * invDir.Y
	tmin = math.Max(tmin, math.Min(t1, t2))
	tmax = math.Min(tmax, math.Max(t1, t2))

	t1 = (b.min.Z - origin.Z) * invDir.Z
	t2 = (b.max.Z - origin.Z) * invDir.Z
	tmin = math.Max(tmin, math.Min(t1, t2))
	tmax = math.Min(tmax, math.Max(t1, t2))

	return tmax >= math.Max(tmin, 0)
}

type bvhNode struct {
	bounds      aabb
	left, right *bvhNode
	// leaf-only: indices into Intersector.triangles
	triIndices []int
}

// Intersector is a BVH over a Track's triangles supporting first-hit
// and all-hits ray queries, the Go stand-in for
// trimesh.ray.ray_pyembree.RayMeshIntersector.
type Intersector struct {
	triangles []Triangle
	root      *bvhNode
}

// NewIntersector builds a BVH over track's triangles.
func NewIntersector(track *Track) *Intersector {
	indices := make([]int, len(track.Triangles))
	for i := range indices {
		indices[i] = i
	}
	in := &Intersector{triangles: track.Triangles}
	in.root = in.build(indices)
	return in
}

const leafSize = 4

func (in *Intersector) build(indices []int) *bvhNode {
	bounds := triangleBounds(in.triangles[indices[0]])
	for _, i := range indices[1:] {
		tb := triangleBounds(in.triangles[i])
		bounds = bounds.extend(tb.min)
		bounds = bounds.extend(tb.max)
	}

	if len(indices) <= leafSize {
		return &bvhNode{bounds: bounds, triIndices: indices}
	}

	extent := r3.Sub(bounds.max, bounds.min)
	axis := 0
	if extent.Y > extent.X {
		axis = 1
	}
	if extent.Z > pick(axis, extent) {
		axis = 2
	}

	sort.Slice(indices, func(i, j int) bool {
		return centroidAxis(in.triangles[indices[i]], axis) < centroidAxis(in.triangles[indices[j]], axis)
	})
	mid := len(indices) / 2
	return &bvhNode{
		bounds: bounds,
		left:   in.build(indices[:mid]),
		right:  in.build(indices[mid:]),
	}
}

func pick(axis int, v r3.Vec) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func centroidAxis(tri Triangle, axis int) float64 {
	c := r3.Scale(1.0/3.0, r3.Add(r3.Add(tri.A, tri.B), tri.C))
	return pick(axis, c)
}

// Hit is one ray-triangle intersection.
type Hit struct {
	Location    r3.Vec
	TriangleIdx int
	Distance    float64
}

// FirstHit returns the nearest triangle a ray hits, if any.
func (in *Intersector) FirstHit(origin, direction r3.Vec) (Hit, bool) {
	invDir := r3.Vec{X: safeInv(direction.X), Y: safeInv(direction.Y), Z: safeInv(direction.Z)}
	best := Hit{TriangleIdx: -1, Distance: math.Inf(1)}
	found := false
	in.walk(in.root, origin, direction, invDir, func(idx int, loc r3.Vec, dist float64) {
		if dist < best.Distance {
			best = Hit{Location: loc, TriangleIdx: idx, Distance: dist}
			found = true
		}
	})
	return best, found
}

// AllHits returns every triangle a ray hits, nearest first.
func (in *Intersector) AllHits(origin, direction r3.Vec) []Hit {
	invDir := r3.Vec{X: safeInv(direction.X), Y: safeInv(direction.Y), Z: safeInv(direction.Z)}
	var hits []Hit
	in.walk(in.root, origin, direction, invDir, func(idx int, loc r3.Vec, dist float64) {
		hits = append(hits, Hit{Location: loc, TriangleIdx: idx, Distance: dist})
	})
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

func (in *Intersector) walk(node *bvhNode, origin, direction, invDir r3.Vec, report func(idx int, loc r3.Vec, dist float64)) {
	if node == nil || !node.bounds.hit(origin, invDir) {
		return
	}
	if node.triIndices != nil {
		for _, idx := range node.triIndices {
			if loc, dist, ok := intersectTriangle(origin, direction, in.triangles[idx]); ok {
				report(idx, loc, dist)
			}
		}
		return
	}
	in.walk(node.left, origin, direction, invDir, report)
	in.walk(node.right, origin, direction, invDir, report)
}

func safeInv(v float64) float64 {
	if v == 0 {
		return math.Inf(1)
	}
	return 1 / v
}

const epsilon = 1e-8

// intersectTriangle is the Möller-Trumbore ray-triangle intersection
// test, returning the hit location and the ray parameter t.
func intersectTriangle(origin, direction r3.Vec, tri Triangle) (r3.Vec, float64, bool) {
	edge1 := r3.Sub(tri.B, tri.A)
	edge2 := r3.Sub(tri.C, tri.A)
	h := r3.Cross(direction, edge2)
	a := r3.Dot(edge1, h)
	if math.Abs(a) < epsilon {
		return r3.Vec{}, 0, false
	}

	f := 1.0 / a
	s := r3.Sub(origin, tri.A)
	u := f * r3.Dot(s, h)
	if u < 0 || u > 1 {
		return r3.Vec{}, 0, false
	}

	q := r3.Cross(s, edge1)
	v := f * r3.Dot(direction, q)
	if v < 0 || u+v > 1 {
		return r3.Vec{}, 0, false
	}

	t := f * r3.Dot(edge2, q)
	if t < epsilon {
		return r3.Vec{}, 0, false
	}

	hit := r3.Add(origin, r3.Scale(t, direction))
	return hit, t, true
}
