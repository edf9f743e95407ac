package frame

import "fmt"

// BuildArgs derives the ffmpeg argument list for a rawvideo screen
// capture at the given framerate/codec/input/pixel-format, writing raw
// frames to stdout so Stream.run can read them as fixed-size records.
func BuildArgs(input, codec, pixFmt string, framerate, width, height int) []string {
	return []string{
		"-f", codec,
		"-framerate", fmt.Sprintf("%d", framerate),
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-i", input,
		"-f", "rawvideo",
		"-pix_fmt", pixFmt,
		"pipe:1",
	}
}

// FrameSize returns the byte size of one raw frame for the given pixel
// format and dimensions. Only the pixel formats this system's config
// exposes (bgra/rgba = 4 bytes/px, bgr24/rgb24 = 3 bytes/px) are
// supported; an unrecognised format is treated as 4 bytes/px.
func FrameSize(pixFmt string, width, height int) int {
	bytesPerPixel := 4
	switch pixFmt {
	case "bgr24", "rgb24":
		bytesPerPixel = 3
	}
	return width * height * bytesPerPixel
}
