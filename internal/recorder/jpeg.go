package recorder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// encodeBGRAAsJPEG converts a raw BGRA (or BGR0) pixel buffer captured
// by frame.Stream into a JPEG, matching the save_bgr0_as_jpeg encode
// step of the pipeline this package replaces. No JPEG or image-codec
// library appears anywhere in the example pack, so this uses the
// standard library's image/jpeg encoder directly on an image.NRGBA
// built by swapping the B/R channels of the captured buffer.
func encodeBGRAAsJPEG(bgra []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("recorder: invalid image dimensions %dx%d", width, height)
	}
	want := width * height * 4
	if len(bgra) < want {
		return nil, fmt.Errorf("recorder: image buffer too small: got %d bytes, want %d", len(bgra), want)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		b := bgra[i*4+0]
		g := bgra[i*4+1]
		r := bgra[i*4+2]
		a := bgra[i*4+3]
		img.Pix[i*4+0] = r
		img.Pix[i*4+1] = g
		img.Pix[i*4+2] = b
		img.Pix[i*4+3] = a
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
