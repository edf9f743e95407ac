package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tracklap/simharness/internal/generate"
	"github.com/tracklap/simharness/internal/raycast"
)

// progressLogInterval is how often Offline.Run logs completion counts.
const progressLogInterval = 200 * time.Millisecond

// SortRecordIDs sorts record stems ("0", "1", "10", ...) by their
// integer value, exact parity with generate_data.py's _sort_records —
// a plain lexicographic sort would place "10" before "2".
func SortRecordIDs(records []string) []string {
	sorted := make([]string, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		vi, _ := strconv.Atoi(sorted[i])
		vj, _ := strconv.Atoi(sorted[j])
		return vi < vj
	})
	return sorted
}

// Subsample slices an already-sorted record id list [start:end:step],
// exact parity with generate_data.py's _get_subsample. end<0 or
// end>len(sorted) means "through the end of the slice"; step<=0 is
// treated as 1.
func Subsample(sorted []string, start, end, step int) []string {
	if step <= 0 {
		step = 1
	}
	if start < 0 {
		start = 0
	}
	if end < 0 || end > len(sorted) {
		end = len(sorted)
	}
	if start >= end {
		return nil
	}
	out := make([]string, 0, (end-start+step-1)/step)
	for i := start; i < end; i += step {
		out = append(out, sorted[i])
	}
	return out
}

// PoseLoader resolves a record id to the camera pose it was captured
// at, typically by decoding the recorded telemetry .bin file alongside
// that record's frame.
type PoseLoader func(record string) (raycast.Pose, error)

// Offline coordinates a RayCaster worker pool and a DataGenerator
// worker pool over the channel-based MPMC queues in internal/generate,
// replacing the original MultiprocessOrchestrator's ad-hoc
// flag-per-worker-plus-counter coordination (spec.md §9) with a closed
// channel and a sync/atomic progress counter.
type Offline struct {
	NRayCastingWorkers int
	NGenerationWorkers int
}

// NewOffline returns an Offline coordinator with the given worker pool
// sizes, defaulting either to 1 if non-positive.
func NewOffline(nRayCastingWorkers, nGenerationWorkers int) *Offline {
	if nRayCastingWorkers <= 0 {
		nRayCastingWorkers = 1
	}
	if nGenerationWorkers <= 0 {
		nGenerationWorkers = 1
	}
	return &Offline{NRayCastingWorkers: nRayCastingWorkers, NGenerationWorkers: nGenerationWorkers}
}

// Run casts rays for every record and hands each resolved payload to a
// DataGenerator worker, fanning out across both worker pools. It
// returns the first error encountered, after every in-flight worker has
// finished (it does not abort the remaining records early).
func (o *Offline) Run(ctx context.Context, records []string, newRayWorker func() *raycast.Worker, loadPose PoseLoader, genWorker *generate.Worker) error {
	recordQueue := generate.NewRecordQueue(records)
	payloadQueue := generate.NewPayloadQueue[raycast.IntersectionPayload](o.NRayCastingWorkers * 2)
	progress := generate.NewProgress(len(records))
	errCh := make(chan error, o.NRayCastingWorkers+o.NGenerationWorkers)

	var rayWG sync.WaitGroup
	for i := 0; i < o.NRayCastingWorkers; i++ {
		rayWG.Add(1)
		worker := newRayWorker()
		go func() {
			defer rayWG.Done()
			for {
				record, ok := recordQueue.Next()
				if !ok {
					return
				}
				pose, err := loadPose(record)
				if err != nil {
					select {
					case errCh <- fmt.Errorf("orchestrator: loading pose for record %s: %w", record, err):
					default:
					}
					continue
				}
				payloadQueue.Send(worker.Cast(record, pose))
			}
		}()
	}
	go func() {
		rayWG.Wait()
		payloadQueue.Close()
	}()

	var genWG sync.WaitGroup
	for i := 0; i < o.NGenerationWorkers; i++ {
		genWG.Add(1)
		go func() {
			defer genWG.Done()
			for payload := range payloadQueue.Chan() {
				if err := genWorker.Process(payload); err != nil {
					select {
					case errCh <- fmt.Errorf("orchestrator: processing record %s: %w", payload.Record, err):
					default:
					}
					continue
				}
				progress.Increment()
			}
		}()
	}

	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressLogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-progressDone:
				return
			case <-ticker.C:
				opsf("orchestrator: %d/%d records processed", progress.Completed(), progress.Total())
			case <-ctx.Done():
				return
			}
		}
	}()

	genWG.Wait()
	close(progressDone)
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}
