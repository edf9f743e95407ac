package generate

import "image"

// rotate90 rotates img 90 degrees counter-clockwise, matching
// numpy.rot90's default behaviour used by _save_data before every
// raster is written to disk.
func rotate90(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, h, w))
	for yOut := 0; yOut < w; yOut++ {
		for xOut := 0; xOut < h; xOut++ {
			out.Set(xOut, yOut, img.At(b.Min.X+w-1-yOut, b.Min.Y+xOut))
		}
	}
	return out
}
