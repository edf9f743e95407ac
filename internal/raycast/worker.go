package raycast

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tracklap/simharness/internal/mesh"
)

// PixelRay is one camera ray: the image pixel it belongs to, and its
// origin/direction in world space, the Go analogue of trimesh's
// scene.camera_rays() triple (origin, direction, pixel).
type PixelRay struct {
	PixelX, PixelY int
	Origin         r3.Vec
	Direction      r3.Vec
}

// Camera builds the per-pixel ray fan for a given Pose/FOV/resolution,
// a simple pinhole model: rays fan out evenly across the horizontal and
// vertical field of view from a single origin at the camera position,
// rotated by the pose's (pitch, yaw, roll) angles.
func Camera(pose Pose, fov FOV, width, height int) []PixelRay {
	rot := rotationMatrix(pose.Angles)
	fovH := fov.Horizontal * math.Pi / 180
	fovV := fov.Vertical * math.Pi / 180

	rays := make([]PixelRay, 0, width*height)
	for py := 0; py < height; py++ {
		v := (float64(py)+0.5)/float64(height)*2 - 1 // [-1, 1], top to bottom
		angleV := v * fovV / 2
		for px := 0; px < width; px++ {
			u := (float64(px)+0.5)/float64(width)*2 - 1 // [-1, 1], left to right
			angleH := u * fovH / 2

			local := r3.Vec{
				X: math.Sin(angleH),
				Y: -math.Sin(angleV),
				Z: math.Cos(angleH) * math.Cos(angleV),
			}
			direction := rot.apply(local)
			rays = append(rays, PixelRay{
				PixelX:    px,
				PixelY:    py,
				Origin:    pose.Location,
				Direction: direction,
			})
		}
	}
	return rays
}

// rotMatrix is a row-major 3x3 rotation built from pitch/yaw/roll
// angles as the product Ry·Rx·Rz, so a vector is rotated by roll first,
// then pitch, then yaw.
type rotMatrix [3][3]float64

func rotationMatrix(angles r3.Vec) rotMatrix {
	pitch, yaw, roll := angles.X, angles.Y, angles.Z

	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	cr, sr := math.Cos(roll), math.Sin(roll)

	rx := rotMatrix{{1, 0, 0}, {0, cp, sp}, {0, -sp, cp}}
	ry := rotMatrix{{cy, 0, sy}, {0, 1, 0}, {-sy, 0, cy}}
	rz := rotMatrix{{cr, -sr, 0}, {sr, cr, 0}, {0, 0, 1}}

	return ry.mul(rx).mul(rz)
}

func (m rotMatrix) mul(other rotMatrix) rotMatrix {
	var out rotMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += m[i][k] * other[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func (m rotMatrix) apply(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Mode selects how a Worker resolves a ray against the collision mesh.
type Mode int

const (
	// ModeFirstHit keeps only the nearest triangle per pixel.
	ModeFirstHit Mode = iota
	// ModeAllHits keeps every triangle a ray passes through, nearest first.
	ModeAllHits
)

// Intersection is one pixel's resolved ray-mesh intersection.
type Intersection struct {
	PixelX, PixelY int
	Location       r3.Vec
	TriangleIdx    int // -1 for a miss
	Distance       float64
	Origin         r3.Vec
	Direction      r3.Vec
}

// IntersectionPayload is one frame's worth of resolved ray casts,
// handed off from a RayCaster worker to a DataGenerator worker.
type IntersectionPayload struct {
	Record        string
	Width, Height int
	Intersections []Intersection
}

// Worker casts camera rays against its own Intersector copy and
// resolves them according to Mode. Each worker owning its own
// Intersector (rather than sharing one across a pool) mirrors
// trimesh's RayMeshIntersector being passed whole into each
// multiprocessing worker in the original implementation.
type Worker struct {
	Intersector *mesh.Intersector
	FOV         FOV
	Width       int
	Height      int
	Mode        Mode
}

// NewWorker constructs a Worker over its own Intersector instance.
func NewWorker(intersector *mesh.Intersector, fov FOV, width, height int, mode Mode) *Worker {
	return &Worker{Intersector: intersector, FOV: fov, Width: width, Height: height, Mode: mode}
}

// Cast resolves every camera ray for the pose associated with record,
// returning one IntersectionPayload.
func (w *Worker) Cast(record string, pose Pose) IntersectionPayload {
	rays := Camera(pose, w.FOV, w.Width, w.Height)
	intersections := make([]Intersection, 0, len(rays))

	for _, ray := range rays {
		switch w.Mode {
		case ModeAllHits:
			hits := w.Intersector.AllHits(ray.Origin, ray.Direction)
			if len(hits) == 0 {
				intersections = append(intersections, missIntersection(ray))
				continue
			}
			for _, hit := range hits {
				intersections = append(intersections, Intersection{
					PixelX: ray.PixelX, PixelY: ray.PixelY,
					Location: hit.Location, TriangleIdx: hit.TriangleIdx, Distance: hit.Distance,
					Origin: ray.Origin, Direction: ray.Direction,
				})
			}
		default:
			hit, ok := w.Intersector.FirstHit(ray.Origin, ray.Direction)
			if !ok {
				intersections = append(intersections, missIntersection(ray))
				continue
			}
			intersections = append(intersections, Intersection{
				PixelX: ray.PixelX, PixelY: ray.PixelY,
				Location: hit.Location, TriangleIdx: hit.TriangleIdx, Distance: hit.Distance,
				Origin: ray.Origin, Direction: ray.Direction,
			})
		}
	}

	return IntersectionPayload{Record: record, Width: w.Width, Height: w.Height, Intersections: intersections}
}

func missIntersection(ray PixelRay) Intersection {
	return Intersection{
		PixelX: ray.PixelX, PixelY: ray.PixelY,
		TriangleIdx: -1,
		Origin:      ray.Origin, Direction: ray.Direction,
	}
}
