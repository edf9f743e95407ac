// Command stateserver polls the simulator's shared-memory telemetry
// region and fans out each advancing snapshot to any number of
// StateClients, the network-facing half of StateReader/StateServer.
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

	"github.com/tracklap/simharness/internal/state"
	"github.com/tracklap/simharness/internal/version"
)

var (
	listen      = flag.String("listen", ":8090", "HTTP admin listen address")
	tcpAddr     = flag.String("tcp-addr", ":9090", "StateClient listen address")
	pollEvery   = flag.Duration("poll-every", 16*time.Millisecond, "shared-memory poll interval")
	showVersion = flag.Bool("version", false, "print version information and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("stateserver v%s (git SHA: %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	reader, err := state.NewReader()
	if err != nil {
		log.Fatalf("stateserver: open shared memory: %v", err)
	}
	defer reader.Close()

	server := state.NewServer(reader)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Listen(ctx, *tcpAddr); err != nil {
			log.Printf("stateserver: listen: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(*pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := server.PollAndBroadcast(); err != nil {
					log.Printf("stateserver: poll: %v", err)
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		server.AttachAdminRoutes(mux)

		httpServer := &http.Server{Addr: *listen, Handler: mux}

		go func() {
			log.Printf("stateserver: admin HTTP on %s", *listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("stateserver: admin HTTP: %v", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			httpServer.Close()
		}
	}()

	wg.Wait()
	log.Print("stateserver: shutdown complete")
}
