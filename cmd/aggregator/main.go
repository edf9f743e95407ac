// Command aggregator dials a running stateserver and merges its
// telemetry with an ffmpeg screen capture into a capture.Arena, the
// standalone half of CaptureAggregator. It exposes the merged
// observation's freshness over an admin HTTP surface; downstream
// binaries (recorder, dbwriter, evaluator, agent) each dial the same
// stateserver and build their own aggregator instance over it rather
// than attaching to this process's Arena across an OS boundary (see
// DESIGN.md).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tracklap/simharness/internal/capture"
	"github.com/tracklap/simharness/internal/frame"
	"github.com/tracklap/simharness/internal/httputil"
	"github.com/tracklap/simharness/internal/state"
	"github.com/tracklap/simharness/internal/version"
)

var (
	stateAddr   = flag.String("state-addr", ":9090", "stateserver TCP address to dial")
	listen      = flag.String("listen", ":8091", "HTTP admin listen address")
	pollEvery   = flag.Duration("poll-every", time.Millisecond, "merge poll interval")
	ffmpegBin   = flag.String("ffmpeg-binary", "ffmpeg", "ffmpeg executable")
	input       = flag.String("input", ":0.0", "ffmpeg screen-capture input")
	codec       = flag.String("codec", "x11grab", "ffmpeg input format")
	pixFmt      = flag.String("pix-fmt", "bgra", "ffmpeg output pixel format")
	framerate   = flag.Int("framerate", 30, "ffmpeg capture framerate")
	imageWidth  = flag.Int("image-width", 1920, "capture width")
	imageHeight = flag.Int("image-height", 1080, "capture height")
	mode        = flag.String("mode", "decoded", "telemetry mode: raw, decoded, or simulated_ins")
	insSeed     = flag.Int64("ins-seed", 1, "SimulatedINS random seed")
	showVersion = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("aggregator v%s (git SHA: %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := state.Dial(ctx, *stateAddr)
	if err != nil {
		log.Fatalf("aggregator: dial stateserver at %s: %v", *stateAddr, err)
	}
	defer client.Close()

	frameSize := frame.FrameSize(*pixFmt, *imageWidth, *imageHeight)
	args := frame.BuildArgs(*input, *codec, *pixFmt, *framerate, *imageWidth, *imageHeight)
	stream, err := frame.Start(ctx, frame.Options{Binary: *ffmpegBin, Args: args, FrameSize: frameSize})
	if err != nil {
		log.Fatalf("aggregator: start ffmpeg capture: %v", err)
	}

	arena := capture.NewArena()
	opts := capture.Options{Mode: parseMode(*mode), PollEvery: *pollEvery, INSSeed: *insSeed}
	aggregator := capture.NewCaptureAggregator(client, stream, arena, opts)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		aggregator.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runAdminServer(ctx, arena, *listen)
	}()

	wg.Wait()
	log.Print("aggregator: shutdown complete")
}

func parseMode(s string) capture.Mode {
	switch s {
	case "raw":
		return capture.ModeRaw
	case "simulated_ins":
		return capture.ModeSimulatedINS
	default:
		return capture.ModeDecoded
	}
}

func runAdminServer(ctx context.Context, arena *capture.Arena, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := arena.Capture(); !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		httputil.WriteJSONOK(w, map[string]any{
			"mode":       *mode,
			"poll_every": pollEvery.String(),
			"input":      *input,
		})
	})

	httpServer := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("aggregator: admin HTTP on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("aggregator: admin HTTP: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		httpServer.Close()
	}
}
