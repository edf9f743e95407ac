package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tracklap/simharness/internal/fsutil"
	"github.com/tracklap/simharness/internal/generate"
	"github.com/tracklap/simharness/internal/mesh"
	"github.com/tracklap/simharness/internal/raycast"
)

func generateTestWorker(t *testing.T, track *mesh.Track, classes *mesh.ClassTable, fs fsutil.FileSystem) *generate.Worker {
	t.Helper()
	return generate.NewWorker(track, classes, fs, "/recordings", "/output")
}

func TestSortRecordIDsOrdersNumerically(t *testing.T) {
	got := SortRecordIDs([]string{"10", "2", "1", "20"})
	want := []string{"1", "2", "10", "20"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSubsampleAppliesStartEndStep(t *testing.T) {
	sorted := []string{"0", "1", "2", "3", "4", "5", "6"}
	got := Subsample(sorted, 1, 6, 2)
	want := []string{"1", "3", "5"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSubsampleNegativeEndMeansToEnd(t *testing.T) {
	sorted := []string{"0", "1", "2"}
	got := Subsample(sorted, 0, -1, 1)
	if len(got) != 3 {
		t.Fatalf("got %v, want all 3 records", got)
	}
}

func groundPlaneTrackForOffline() *mesh.Track {
	return &mesh.Track{Triangles: []mesh.Triangle{
		{A: r3.Vec{X: -10, Y: 0, Z: -10}, B: r3.Vec{X: 10, Y: 0, Z: -10}, C: r3.Vec{X: -10, Y: 0, Z: 10}, ClassID: 0},
		{A: r3.Vec{X: 10, Y: 0, Z: -10}, B: r3.Vec{X: 10, Y: 0, Z: 10}, C: r3.Vec{X: -10, Y: 0, Z: 10}, ClassID: 0},
	}}
}

func TestOfflineRunProcessesEveryRecord(t *testing.T) {
	track := groundPlaneTrackForOffline()
	classes := mesh.NewClassTable(mesh.DefaultSemanticClasses, mesh.DefaultMaterialToSemanticClass)

	fs := fsutil.NewMemoryFileSystem()
	records := []string{"0", "1", "2"}
	for _, r := range records {
		if err := fs.WriteFile(filepath.Join("/recordings", r+".jpeg"), []byte("jpeg"), 0o644); err != nil {
			t.Fatalf("seeding frame %s: %v", r, err)
		}
	}

	genWorker := generateTestWorker(t, track, classes, fs)
	offline := NewOffline(2, 2)

	poses := map[string]raycast.Pose{
		"0": {Location: r3.Vec{X: 0, Y: 5, Z: 0}},
		"1": {Location: r3.Vec{X: 1, Y: 5, Z: 0}},
		"2": {Location: r3.Vec{X: 2, Y: 5, Z: 0}},
	}
	loadPose := func(record string) (raycast.Pose, error) {
		pose, ok := poses[record]
		if !ok {
			return raycast.Pose{}, fmt.Errorf("no pose for record %s", record)
		}
		return pose, nil
	}

	newRayWorker := func() *raycast.Worker {
		intersector := mesh.NewIntersector(track)
		return raycast.NewWorker(intersector, raycast.FOVFromVertical(90, 4, 4), 4, 4, raycast.ModeFirstHit)
	}

	if err := offline.Run(context.Background(), records, newRayWorker, loadPose, genWorker); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, r := range records {
		if !fs.Exists(filepath.Join("/output", r+"-colour.png")) {
			t.Errorf("missing colour raster for record %s", r)
		}
	}
}

func TestOfflineRunReportsPoseLoadErrors(t *testing.T) {
	track := groundPlaneTrackForOffline()
	classes := mesh.NewClassTable(mesh.DefaultSemanticClasses, mesh.DefaultMaterialToSemanticClass)
	fs := fsutil.NewMemoryFileSystem()
	genWorker := generateTestWorker(t, track, classes, fs)
	offline := NewOffline(1, 1)

	loadPose := func(record string) (raycast.Pose, error) {
		return raycast.Pose{}, fmt.Errorf("boom")
	}
	newRayWorker := func() *raycast.Worker {
		return raycast.NewWorker(mesh.NewIntersector(track), raycast.FOVFromVertical(90, 2, 2), 2, 2, raycast.ModeFirstHit)
	}

	if err := offline.Run(context.Background(), []string{"0"}, newRayWorker, loadPose, genWorker); err == nil {
		t.Fatalf("expected an error when pose loading fails for every record")
	}
}
