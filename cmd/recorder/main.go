// Command recorder dials a running stateserver and drains a
// CaptureAggregator's Arena at a fixed rate, writing each observation
// to disk as a JPEG image paired with a raw telemetry .bin file, the
// standalone half of the Recorder.
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
	"github.com/tracklap/simharness/internal/recorder"
	"github.com/tracklap/simharness/internal/state"
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
		fmt.Printf("recorder v%s (git SHA: %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := state.Dial(ctx, *stateAddr)
	if err != nil {
		log.Fatalf("recorder: dial stateserver at %s: %v", *stateAddr, err)
	}
	defer client.Close()

	width, height := cfg.GetImageSize()
	pixFmt := "bgra"
	frameSize := frame.FrameSize(pixFmt, width, height)
	args := frame.BuildArgs(":0.0", "x11grab", pixFmt, cfg.GetFFmpegFramerate(), width, height)
	stream, err := frame.Start(ctx, frame.Options{Binary: "ffmpeg", Args: args, FrameSize: frameSize})
	if err != nil {
		log.Fatalf("recorder: start ffmpeg capture: %v", err)
	}

	arena := capture.NewArena()
	aggregatorOpts := capture.Options{Mode: capture.ModeRaw, PollEvery: time.Millisecond}
	aggregator := capture.NewCaptureAggregator(client, stream, arena, aggregatorOpts)
	go aggregator.Run(ctx)

	rec, err := recorder.New(arena, recorder.Options{
		SavePath:    cfg.GetSavePath(),
		ImageWidth:  width,
		ImageHeight: height,
		FileSystem:  fsutil.OSFileSystem{},
	})
	if err != nil {
		log.Fatalf("recorder: construct: %v", err)
	}

	log.Printf("recorder: session %s writing to %s", rec.SessionID(), cfg.GetSavePath())
	if err := rec.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("recorder: run: %v", err)
	}
	log.Printf("recorder: shutdown complete, wrote %d frames", rec.FrameCount())
}

func loadConfig() *config.Config {
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("recorder: load config: %v", err)
		}
		return cfg
	}
	return config.MustLoadDefault()
}
