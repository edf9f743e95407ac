// Command generate produces offline semantic/depth/normal ground-truth
// rasters for a recorded session: it preprocesses the track mesh, casts
// rays for every selected record against it, and fans resolved
// intersections out to raster-writing workers, the standalone
// MultiprocessOrchestrator entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tracklap/simharness/internal/config"
	"github.com/tracklap/simharness/internal/fsutil"
	"github.com/tracklap/simharness/internal/generate"
	"github.com/tracklap/simharness/internal/mesh"
	"github.com/tracklap/simharness/internal/monitoring"
	"github.com/tracklap/simharness/internal/orchestrator"
	"github.com/tracklap/simharness/internal/raycast"
	"github.com/tracklap/simharness/internal/telemetry"
	"github.com/tracklap/simharness/internal/version"
)

var (
	configPath   = flag.String("config", "", "path to a simharness.json override; defaults to config.MustLoadDefault")
	trackMesh    = flag.String("track-mesh", "", "path to the track's .obj collision mesh")
	recordingDir = flag.String("recording-dir", "", "directory of recorded .jpeg/.bin pairs")
	outputDir    = flag.String("output-dir", "", "directory to write generated rasters into")
	showVersion  = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("generate v%s (git SHA: %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *trackMesh == "" || *recordingDir == "" || *outputDir == "" {
		log.Fatal("generate: -track-mesh, -recording-dir, and -output-dir are required")
	}

	cfg := loadConfig()
	classes := mesh.NewClassTable(mesh.DefaultSemanticClasses, mesh.DefaultMaterialToSemanticClass)

	track, err := loadTrack(*trackMesh, classes)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}

	fs := fsutil.OSFileSystem{}
	if err := fs.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("generate: create output dir: %v", err)
	}

	records, err := discoverRecords(*recordingDir)
	if err != nil {
		log.Fatalf("generate: discover records: %v", err)
	}
	sorted := orchestrator.SortRecordIDs(records)
	selected := orchestrator.Subsample(sorted, startAt(cfg), finishAt(cfg), cfg.GetSampleEvery())
	monitoring.Logf("generate: processing %d of %d recorded frames", len(selected), len(sorted))

	width, height := cfg.GetImageSize()
	fov := raycast.FOVFromVertical(cfg.GetVerticalFOV(), width, height)
	intersector := mesh.NewIntersector(track)

	newRayWorker := func() *raycast.Worker {
		return raycast.NewWorker(intersector, fov, width, height, raycast.ModeFirstHit)
	}
	genWorker := generate.NewWorker(track, classes, fs, *recordingDir, *outputDir)

	offline := orchestrator.NewOffline(cfg.GetNRayCastingWorkers(), cfg.GetNGenerationWorkers())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loadPose := func(record string) (raycast.Pose, error) {
		return loadPoseFromRecording(fs, *recordingDir, record)
	}

	if err := offline.Run(ctx, selected, newRayWorker, loadPose, genWorker); err != nil {
		log.Fatalf("generate: run: %v", err)
	}
	log.Print("generate: done")
}

func loadTrack(path string, classes *mesh.ClassTable) (*mesh.Track, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var preprocessed strings.Builder
	if err := mesh.PreprocessTrackMesh(src, &preprocessed, mesh.DefaultVertexGroupsToModify); err != nil {
		return nil, err
	}

	return mesh.LoadOBJ(strings.NewReader(preprocessed.String()), classes)
}

// discoverRecords lists the record stems a recording directory holds, one
// per ".bin" telemetry file written alongside its paired ".jpeg" frame.
func discoverRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var records []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".bin" {
			continue
		}
		records = append(records, strings.TrimSuffix(e.Name(), ".bin"))
	}
	return records, nil
}

func loadPoseFromRecording(fs fsutil.FileSystem, dir, record string) (raycast.Pose, error) {
	data, err := fs.ReadFile(filepath.Join(dir, record+".bin"))
	if err != nil {
		return raycast.Pose{}, err
	}
	snap, err := telemetry.Decode(data)
	if err != nil {
		return raycast.Pose{}, err
	}
	return raycast.PoseFromSnapshot(snap), nil
}

func startAt(cfg *config.Config) int {
	if cfg.StartAtSample == nil {
		return 0
	}
	return *cfg.StartAtSample
}

func finishAt(cfg *config.Config) int {
	if cfg.FinishAtSample == nil {
		return -1
	}
	return *cfg.FinishAtSample
}

func loadConfig() *config.Config {
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("generate: load config: %v", err)
		}
		return cfg
	}
	return config.MustLoadDefault()
}
