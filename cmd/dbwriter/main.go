// Command dbwriter dials a running stateserver and drains decoded
// telemetry snapshots from a CaptureAggregator's Arena, inserting one
// row per snapshot into Postgres, the standalone half of the
// DatabaseWriter.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tracklap/simharness/internal/capture"
	"github.com/tracklap/simharness/internal/config"
	"github.com/tracklap/simharness/internal/frame"
	"github.com/tracklap/simharness/internal/state"
	"github.com/tracklap/simharness/internal/storage"
	"github.com/tracklap/simharness/internal/version"
)

var (
	configPath  = flag.String("config", "", "path to a simharness.json override; defaults to config.MustLoadDefault")
	stateAddr   = flag.String("state-addr", ":9090", "stateserver TCP address to dial")
	listen      = flag.String("listen", ":8092", "admin HTTP listen address (tailsql live debugging)")
	pollEvery   = flag.Duration("poll-every", 16*time.Millisecond, "arena poll interval")
	showVersion = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("dbwriter v%s (git SHA: %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := loadConfig()

	if err := storage.MigrateSessions(cfg.Postgres.DSN()); err != nil {
		log.Fatalf("dbwriter: migrate sessions table: %v", err)
	}

	tableName := cfg.Postgres.GetTableName()
	if tableName == "telemetry" {
		tableName = storage.NewSessionTableName(time.Now())
	}

	writer, err := storage.Open(cfg.Postgres.DSN(), tableName)
	if err != nil {
		log.Fatalf("dbwriter: open: %v", err)
	}
	defer writer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := state.Dial(ctx, *stateAddr)
	if err != nil {
		log.Fatalf("dbwriter: dial stateserver at %s: %v", *stateAddr, err)
	}
	defer client.Close()

	arena := capture.NewArena()
	aggregator := capture.NewCaptureAggregator(
		client,
		noFrameSource{},
		arena,
		capture.Options{Mode: capture.ModeDecoded, PollEvery: *pollEvery},
	)
	go aggregator.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	writer.AttachAdminRoutes(mux)
	httpServer := &http.Server{Addr: *listen, Handler: mux}
	go func() {
		log.Printf("dbwriter: admin HTTP on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("dbwriter: admin HTTP: %v", err)
		}
	}()

	log.Printf("dbwriter: writing session rows into table %q", tableName)
	drain(ctx, arena, writer, *pollEvery)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	log.Print("dbwriter: shutdown complete")
}

func drain(ctx context.Context, arena *capture.Arena, writer *storage.DatabaseWriter, pollEvery time.Duration) {
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			obs, ok := arena.Capture()
			if !ok || !obs.HasSnapshot {
				continue
			}
			if err := writer.WriteSnapshot(obs.Snapshot); err != nil {
				log.Printf("dbwriter: write row: %v", err)
			}
		}
	}
}

// noFrameSource satisfies capture.FrameSource for a binary that only
// cares about the telemetry half of an Observation.
type noFrameSource struct{}

func (noFrameSource) Capture() (frame.Frame, bool) { return frame.Frame{}, false }

func loadConfig() *config.Config {
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("dbwriter: load config: %v", err)
		}
		return cfg
	}
	return config.MustLoadDefault()
}
