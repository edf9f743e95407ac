// Command agent dials a running stateserver and drives one end-to-end
// simulator session: it starts the capture pipeline and a Recorder,
// then hands control to orchestrator.Run with a driving policy supplied
// by the embedding project. This binary wires a trivial straight-ahead
// policy as a working example; a real deployment replaces noopAgent
// with its own Agent implementation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/tracklap/simharness/internal/capture"
	"github.com/tracklap/simharness/internal/config"
	"github.com/tracklap/simharness/internal/frame"
	"github.com/tracklap/simharness/internal/fsutil"
	"github.com/tracklap/simharness/internal/orchestrator"
	"github.com/tracklap/simharness/internal/recorder"
	"github.com/tracklap/simharness/internal/state"
	"github.com/tracklap/simharness/internal/timeutil"
	"github.com/tracklap/simharness/internal/version"
)

var (
	configPath  = flag.String("config", "", "path to a simharness.json override; defaults to config.MustLoadDefault")
	stateAddr   = flag.String("state-addr", ":9090", "stateserver TCP address to dial")
	showVersion = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("agent v%s (git SHA: %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := state.Dial(ctx, *stateAddr)
	if err != nil {
		log.Fatalf("agent: dial stateserver at %s: %v", *stateAddr, err)
	}
	defer client.Close()

	width, height := cfg.GetImageSize()
	pixFmt := "bgra"
	args := frame.BuildArgs(":0.0", "x11grab", pixFmt, cfg.GetFFmpegFramerate(), width, height)
	stream, err := frame.Start(ctx, frame.Options{
		Binary:    "ffmpeg",
		Args:      args,
		FrameSize: frame.FrameSize(pixFmt, width, height),
	})
	if err != nil {
		log.Fatalf("agent: start ffmpeg capture: %v", err)
	}

	arena := capture.NewArena()
	mode := capture.ModeDecoded
	if cfg.GetSimulateINS() {
		mode = capture.ModeSimulatedINS
	}
	aggregator := capture.NewCaptureAggregator(
		client,
		stream,
		arena,
		capture.Options{Mode: mode, PollEvery: time.Millisecond},
	)
	go aggregator.Run(ctx)

	rec, err := recorder.New(arena, recorder.Options{
		SavePath:    cfg.GetSavePath(),
		ImageWidth:  width,
		ImageHeight: height,
		FileSystem:  fsutil.OSFileSystem{},
	})
	if err != nil {
		log.Fatalf("agent: construct recorder: %v", err)
	}
	go rec.Run(ctx)

	agent := noopAgent{}
	collaborators := orchestrator.Collaborators{}

	if err := orchestrator.Run(ctx, cfg, agent, collaborators, arena, timeutil.RealClock{}); err != nil {
		log.Fatalf("agent: run: %v", err)
	}
	log.Printf("agent: session complete, recorded %d frames", rec.FrameCount())
}

// noopAgent drives straight ahead indefinitely and never signals a
// stalled session; it exists so this binary runs end to end without a
// project-specific driving policy.
type noopAgent struct{}

func (noopAgent) Behaviour(obs capture.Observation) [3]float64 { return [3]float64{0, 0.3, 0} }
func (noopAgent) TerminationCondition(obs capture.Observation) bool { return false }
func (noopAgent) Teardown()                                        {}

func loadConfig() *config.Config {
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("agent: load config: %v", err)
		}
		return cfg
	}
	return config.MustLoadDefault()
}
