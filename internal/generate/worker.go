package generate

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"github.com/tracklap/simharness/internal/fsutil"
	"github.com/tracklap/simharness/internal/mesh"
	"github.com/tracklap/simharness/internal/raycast"
)

// Worker consumes resolved IntersectionPayloads and writes the four
// ground-truth rasters plus the original frame to OutputDir, the Go
// counterpart of _save_gorund_truth_data's save/copy sequence.
type Worker struct {
	Track        *mesh.Track
	Classes      *mesh.ClassTable
	FileSystem   fsutil.FileSystem
	RecordingDir string
	OutputDir    string
}

// NewWorker constructs a DataGenerator Worker.
func NewWorker(track *mesh.Track, classes *mesh.ClassTable, fs fsutil.FileSystem, recordingDir, outputDir string) *Worker {
	return &Worker{Track: track, Classes: classes, FileSystem: fs, RecordingDir: recordingDir, OutputDir: outputDir}
}

// Process generates and saves every raster for one payload, then
// copies the source frame alongside them.
func (w *Worker) Process(payload raycast.IntersectionPayload) error {
	semantic := GenerateSemanticRasters(payload, w.Track, w.Classes)
	depth := GenerateDepthRaster(payload)
	normal := GenerateNormalRaster(payload, w.Track)

	if err := w.savePNG(payload.Record+"-colour.png", semantic.Colour); err != nil {
		return err
	}
	if err := w.savePNG(payload.Record+"-trainids.png", semantic.TrainID); err != nil {
		return err
	}
	if err := w.savePNG(payload.Record+"-depth.png", depth); err != nil {
		return err
	}
	if err := w.savePNG(payload.Record+"-normals.png", normal); err != nil {
		return err
	}
	if err := w.copyFrame(payload.Record); err != nil {
		return err
	}
	tracef("generate: wrote rasters for record %s", payload.Record)
	return nil
}

// savePNG rotates img 90 degrees (matching _save_data's np.rot90) and
// encodes it as a PNG via the standard library: no PNG codec appears
// anywhere in the retrieval pack, the same justification recorder/jpeg.go
// gives for using image/jpeg rather than a third-party codec.
func (w *Worker) savePNG(filename string, img image.Image) error {
	rotated := rotate90(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rotated); err != nil {
		return fmt.Errorf("generate: encoding %s: %w", filename, err)
	}

	path := filepath.Join(w.OutputDir, filename)
	if err := w.FileSystem.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("generate: writing %s: %w", path, err)
	}
	return nil
}

func (w *Worker) copyFrame(record string) error {
	src := filepath.Join(w.RecordingDir, record+".jpeg")
	dst := filepath.Join(w.OutputDir, record+".jpeg")
	data, err := w.FileSystem.ReadFile(src)
	if err != nil {
		return fmt.Errorf("generate: reading source frame %s: %w", src, err)
	}
	if err := w.FileSystem.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("generate: writing copied frame %s: %w", dst, err)
	}
	return nil
}
