package generate

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tracklap/simharness/internal/fsutil"
	"github.com/tracklap/simharness/internal/raycast"
)

func TestWorkerProcessWritesFourRastersAndCopiesFrame(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	recordingDir := "/recordings"
	outputDir := "/output"

	if err := fs.WriteFile(filepath.Join(recordingDir, "000001.jpeg"), []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("seeding source frame: %v", err)
	}

	w := NewWorker(testTrack(), testClasses(), fs, recordingDir, outputDir)

	payload := raycast.IntersectionPayload{
		Record: "000001", Width: 2, Height: 2,
		Intersections: []raycast.Intersection{
			{PixelX: 0, PixelY: 0, TriangleIdx: 0, Location: r3.Vec{X: 0.1, Y: 0, Z: 0.1}, Origin: r3.Vec{}, Direction: r3.Vec{X: 0, Y: 0, Z: 1}},
			{PixelX: 1, PixelY: 0, TriangleIdx: -1},
			{PixelX: 0, PixelY: 1, TriangleIdx: -1},
			{PixelX: 1, PixelY: 1, TriangleIdx: -1},
		},
	}

	if err := w.Process(payload); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	for _, name := range []string{
		"000001-colour.png",
		"000001-trainids.png",
		"000001-depth.png",
		"000001-normals.png",
		"000001.jpeg",
	} {
		path := filepath.Join(outputDir, name)
		if !fs.Exists(path) {
			t.Errorf("expected output file %s to exist", path)
			continue
		}
		data, err := fs.ReadFile(path)
		if err != nil {
			t.Errorf("reading %s: %v", path, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestWorkerProcessFailsWhenSourceFrameMissing(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	w := NewWorker(testTrack(), testClasses(), fs, "/recordings", "/output")

	payload := raycast.IntersectionPayload{
		Record: "missing", Width: 1, Height: 1,
		Intersections: []raycast.Intersection{{PixelX: 0, PixelY: 0, TriangleIdx: -1}},
	}

	if err := w.Process(payload); err == nil {
		t.Fatalf("expected error when source frame is absent")
	}
}
