// Package generate turns a RayCaster worker's resolved intersections
// into the semantic, depth, and normal ground-truth rasters a training
// pipeline consumes, exactly porting generate_data.py's raster
// formulas.
package generate

import (
	"image"
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tracklap/simharness/internal/mesh"
	"github.com/tracklap/simharness/internal/raycast"
)

// backgroundClassID is the train id assigned to a pixel whose ray
// missed the mesh entirely, matching _generate_semantic_map's use of
// -1 ("void") for rays outside the track geometry.
const backgroundClassID = -1

// SemanticRasters holds the two segmentation outputs
// _generate_semantic_map produces together: a visualised RGB map for
// human review and a train-id map for model supervision.
type SemanticRasters struct {
	Colour  *image.NRGBA
	TrainID *image.Gray
}

// GenerateSemanticRasters builds both semantic outputs for one frame.
// The visualised map's channels are written B,G,R to the NRGBA's
// R,G,B slots, matching _rgb_to_bgr's channel swap before saving.
func GenerateSemanticRasters(payload raycast.IntersectionPayload, track *mesh.Track, classes *mesh.ClassTable) SemanticRasters {
	colour := image.NewNRGBA(image.Rect(0, 0, payload.Width, payload.Height))
	trainID := image.NewGray(image.Rect(0, 0, payload.Width, payload.Height))

	for _, inter := range firstHitsOnly(payload.Intersections) {
		classID := int8(backgroundClassID)
		if inter.TriangleIdx >= 0 {
			classID = track.Triangles[inter.TriangleIdx].ClassID
		}
		c := classes.ColourForID(classID)
		colour.Set(inter.PixelX, inter.PixelY, color.NRGBA{R: c[2], G: c[1], B: c[0], A: 255})
		trainID.SetGray(inter.PixelX, inter.PixelY, color.Gray{Y: uint8(classID)})
	}

	return SemanticRasters{Colour: colour, TrainID: trainID}
}

// GenerateDepthRaster computes per-pixel depth as the dot product of
// the camera-to-hit vector (hit - origin) with the ray direction, then min-max
// normalises, inverts sign, and scales to uint8 exactly as
// _calculate_depth/_noramlise_values/_reverse_sign_of_values/_convert_to_uint8.
// Pixels with no hit keep the raster's default zero value.
func GenerateDepthRaster(payload raycast.IntersectionPayload) *image.Gray {
	hits := firstHitsOnly(payload.Intersections)
	depths := make([]float64, len(hits))
	for i, inter := range hits {
		hitToCamera := r3.Sub(inter.Location, inter.Origin)
		depths[i] = r3.Dot(hitToCamera, inter.Direction)
	}
	normalized := normalizeInvertScale(depths, hits)

	out := image.NewGray(image.Rect(0, 0, payload.Width, payload.Height))
	for i, inter := range hits {
		if inter.TriangleIdx < 0 {
			continue
		}
		out.SetGray(inter.PixelX, inter.PixelY, color.Gray{Y: normalized[i]})
	}
	return out
}

// GenerateNormalRaster looks up each hit triangle's geometric normal,
// min-max normalises each channel independently, and scales to uint8,
// mirroring _generate_normal_map.
func GenerateNormalRaster(payload raycast.IntersectionPayload, track *mesh.Track) *image.NRGBA {
	hits := firstHitsOnly(payload.Intersections)

	xs := make([]float64, len(hits))
	ys := make([]float64, len(hits))
	zs := make([]float64, len(hits))
	for i, inter := range hits {
		if inter.TriangleIdx < 0 {
			continue
		}
		n := track.Normal(inter.TriangleIdx)
		xs[i], ys[i], zs[i] = n.X, n.Y, n.Z
	}
	rs := normalizeScale(xs, hits)
	gs := normalizeScale(ys, hits)
	bs := normalizeScale(zs, hits)

	out := image.NewNRGBA(image.Rect(0, 0, payload.Width, payload.Height))
	for i, inter := range hits {
		if inter.TriangleIdx < 0 {
			continue
		}
		out.Set(inter.PixelX, inter.PixelY, color.NRGBA{R: rs[i], G: gs[i], B: bs[i], A: 255})
	}
	return out
}

// normalizeInvertScale min-max normalises values restricted to actual
// hits, inverts sign (1-x), and scales to [0,255], matching
// _noramlise_values + _reverse_sign_of_values + _convert_to_uint8.
func normalizeInvertScale(values []float64, hits []raycast.Intersection) []uint8 {
	minV, maxV, any := minMax(values, hits)
	out := make([]uint8, len(values))
	if !any || maxV == minV {
		return out
	}
	for i, v := range values {
		if hits[i].TriangleIdx < 0 {
			continue
		}
		norm := (v - minV) / (maxV - minV)
		inverted := 1 - norm
		out[i] = uint8(inverted * 255)
	}
	return out
}

// normalizeScale min-max normalises values restricted to actual hits
// and scales to [0,255], without the depth raster's sign inversion.
func normalizeScale(values []float64, hits []raycast.Intersection) []uint8 {
	minV, maxV, any := minMax(values, hits)
	out := make([]uint8, len(values))
	if !any || maxV == minV {
		return out
	}
	for i, v := range values {
		if hits[i].TriangleIdx < 0 {
			continue
		}
		norm := (v - minV) / (maxV - minV)
		out[i] = uint8(norm * 255)
	}
	return out
}

func minMax(values []float64, hits []raycast.Intersection) (minV, maxV float64, any bool) {
	for i, v := range values {
		if hits[i].TriangleIdx < 0 {
			continue
		}
		if !any {
			minV, maxV, any = v, v, true
			continue
		}
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV, any
}

// firstHitsOnly collapses a (possibly all-hits) intersection list down
// to the nearest hit per pixel, since every raster in this package is
// single-hit-per-pixel like the original's intersects_location(...,
// multiple_hits=False).
func firstHitsOnly(intersections []raycast.Intersection) []raycast.Intersection {
	firstByPixel := make(map[[2]int]raycast.Intersection, len(intersections))
	order := make([][2]int, 0, len(intersections))
	for _, inter := range intersections {
		key := [2]int{inter.PixelX, inter.PixelY}
		existing, seen := firstByPixel[key]
		if !seen {
			order = append(order, key)
			firstByPixel[key] = inter
			continue
		}
		if inter.TriangleIdx >= 0 && (existing.TriangleIdx < 0 || inter.Distance < existing.Distance) {
			firstByPixel[key] = inter
		}
	}
	out := make([]raycast.Intersection, len(order))
	for i, key := range order {
		out[i] = firstByPixel[key]
	}
	return out
}
