// Command evaluator runs the configured lap-time trackers against a
// session's telemetry table and serves a live dashboard, the standalone
// half of the Evaluator. It also dials a running stateserver to watch
// live telemetry directly, advancing each tracker's current-lap binding
// as laps complete and saving a summary plot on shutdown.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/tracklap/simharness/internal/capture"
	"github.com/tracklap/simharness/internal/config"
	"github.com/tracklap/simharness/internal/evaluator"
	"github.com/tracklap/simharness/internal/frame"
	"github.com/tracklap/simharness/internal/monitoring"
	"github.com/tracklap/simharness/internal/security"
	"github.com/tracklap/simharness/internal/state"
	"github.com/tracklap/simharness/internal/units"
	"github.com/tracklap/simharness/internal/version"
)

var (
	configPath  = flag.String("config", "", "path to a simharness.json override; defaults to config.MustLoadDefault")
	stateAddr   = flag.String("state-addr", ":9090", "stateserver TCP address to dial")
	tableName   = flag.String("table", "", "telemetry table to evaluate; defaults to the configured postgres table_name")
	listen      = flag.String("listen", ":8093", "dashboard HTTP listen address")
	summaryPath = flag.String("summary-path", "evaluation-summary.png", "where to save the shutdown summary plot")
	speedUnits  = flag.String("speed-units", units.MPS, "units to log speed_kmh trackers in: mps, mph, kmph, or kph")
	showVersion = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("evaluator v%s (git SHA: %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if !units.IsValid(*speedUnits) {
		log.Fatalf("evaluator: invalid -speed-units %q. Valid options are: %s", *speedUnits, units.GetValidUnitsString())
	}
	if err := security.ValidateExportPath(*summaryPath); err != nil {
		log.Fatalf("evaluator: invalid -summary-path: %v", err)
	}

	cfg := loadConfig()

	table := *tableName
	if table == "" {
		table = cfg.Postgres.GetTableName()
	}

	trackers, err := evaluator.NewTrackers(table, monitorsFrom(cfg))
	if err != nil {
		log.Fatalf("evaluator: build trackers: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		log.Fatalf("evaluator: open database: %v", err)
	}
	defer db.Close()

	eval := evaluator.New(db, trackers, 500*time.Millisecond)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := state.Dial(ctx, *stateAddr)
	if err != nil {
		log.Fatalf("evaluator: dial stateserver at %s: %v", *stateAddr, err)
	}
	defer client.Close()

	arena := capture.NewArena()
	aggregator := capture.NewCaptureAggregator(
		client,
		noFrameSource{},
		arena,
		capture.Options{Mode: capture.ModeDecoded, PollEvery: 16 * time.Millisecond},
	)
	go aggregator.Run(ctx)
	go watchLaps(ctx, arena, eval)

	mux := http.NewServeMux()
	eval.AttachDashboard(mux)
	httpServer := &http.Server{Addr: *listen, Handler: mux}
	go func() {
		log.Printf("evaluator: dashboard on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("evaluator: dashboard HTTP: %v", err)
		}
	}()

	go eval.Run(ctx)
	go logSpeedTrackers(ctx, eval, speedTrackerNames(monitorsFrom(cfg)), *speedUnits)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)

	if err := eval.SaveSummaryPlot(*summaryPath); err != nil {
		log.Printf("evaluator: save summary plot: %v", err)
	}
	log.Print("evaluator: shutdown complete")
}

// watchLaps advances every tracker's current-lap binding as
// completed_laps ticks over in the live telemetry stream, the Go
// analogue of the original monitor loop's own lap-change hook.
func watchLaps(ctx context.Context, arena *capture.Arena, eval *evaluator.Evaluator) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	lastLap := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			obs, ok := arena.Capture()
			if !ok || !obs.HasSnapshot {
				continue
			}
			lap, ok := obs.Snapshot.Int("completed_laps")
			if !ok || int(lap) == lastLap {
				continue
			}
			lastLap = int(lap)
			eval.SetCurrentLap(lastLap)
		}
	}
}

func monitorsFrom(cfg *config.Config) []config.MonitorConfig {
	if cfg.Evaluation == nil {
		return nil
	}
	return cfg.Evaluation.Monitors
}

// speedTrackerNames returns the composite "{monitor.Name}-{interval}"
// tracker names for every monitor tracking the speed_kmh column, the
// set logSpeedTrackers reports in the operator's requested display unit.
func speedTrackerNames(monitors []config.MonitorConfig) []string {
	var names []string
	for _, m := range monitors {
		if m.Column != "speed_kmh" {
			continue
		}
		for interval := range m.Intervals {
			names = append(names, m.Name+"-"+interval)
		}
	}
	return names
}

// logSpeedTrackers periodically reports every speed_kmh tracker's
// latest value converted from the database's native km/h into the
// operator-requested display unit, the Go analogue of the original
// monitor.py's unit-converted speed logging.
func logSpeedTrackers(ctx context.Context, eval *evaluator.Evaluator, names []string, targetUnits string) {
	if len(names) == 0 {
		return
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results := eval.Results()
			for _, name := range names {
				kmph, ok := results[name]
				if !ok {
					continue
				}
				mps := kmph / 3.6
				monitoring.Logf("evaluator: %s = %.2f %s", name, units.ConvertSpeed(mps, targetUnits), targetUnits)
			}
		}
	}
}

type noFrameSource struct{}

func (noFrameSource) Capture() (frame.Frame, bool) { return frame.Frame{}, false }

func loadConfig() *config.Config {
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("evaluator: load config: %v", err)
		}
		return cfg
	}
	return config.MustLoadDefault()
}
