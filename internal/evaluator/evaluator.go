package evaluator

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// Evaluator runs every compiled Tracker's query on a fixed cadence and
// keeps the most recent result for each tracker available to the
// dashboard, grounded on monitor.py's 500ms evaluation loop.
type Evaluator struct {
	db       *sql.DB
	trackers []*Tracker

	mu      sync.Mutex
	results map[string]float64
	history map[string][]historyPoint

	tickEvery time.Duration
}

// historyPoint is one observed tracker value at a given lap, recorded
// for the shutdown summary plot (tracker value vs. lap).
type historyPoint struct {
	lap   int
	value float64
}

// New constructs an Evaluator over db, running every tracker every
// tickEvery (500ms in the original implementation).
func New(db *sql.DB, trackers []*Tracker, tickEvery time.Duration) *Evaluator {
	if tickEvery <= 0 {
		tickEvery = 500 * time.Millisecond
	}
	return &Evaluator{
		db:        db,
		trackers:  trackers,
		results:   make(map[string]float64, len(trackers)),
		history:   make(map[string][]historyPoint, len(trackers)),
		tickEvery: tickEvery,
	}
}

// SetCurrentLap updates the lap number every tracker's query is bound
// to, called by the caller whenever completed_laps advances.
func (e *Evaluator) SetCurrentLap(lap int) {
	for _, t := range e.trackers {
		t.CurrentLap = lap
	}
}

// Results returns a copy of the most recently observed tracker values.
func (e *Evaluator) Results() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]float64, len(e.results))
	for k, v := range e.results {
		out[k] = v
	}
	return out
}

// Run executes every tracker's query once per tick until ctx is
// cancelled.
func (e *Evaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick runs every tracker's query inside one transaction, matching
// _maybe_query_database's pattern of binding and submitting every
// monitor's query against a single session before committing. A query
// error rolls back the whole transaction and is retried next tick,
// leaving prior results in place.
func (e *Evaluator) tick(ctx context.Context) {
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		opsf("evaluator: begin transaction: %v", err)
		return
	}

	updates := make(map[string]float64, len(e.trackers))
	for _, t := range e.trackers {
		sqlText, args := t.BoundQuery()
		var value sql.NullFloat64
		if err := tx.QueryRowContext(ctx, sqlText, args...).Scan(&value); err != nil {
			opsf("evaluator: query %q: %v", t.Name, err)
			_ = tx.Rollback()
			return
		}
		if value.Valid {
			updates[t.Name] = value.Float64
		}
	}

	if err := tx.Commit(); err != nil {
		opsf("evaluator: commit: %v", err)
		return
	}

	e.mu.Lock()
	for name, value := range updates {
		e.results[name] = value
	}
	for _, t := range e.trackers {
		if value, ok := updates[t.Name]; ok {
			e.history[t.Name] = append(e.history[t.Name], historyPoint{lap: t.CurrentLap, value: value})
		}
	}
	e.mu.Unlock()

	for name, value := range updates {
		tracef("evaluator: %s = %v", name, value)
	}
}
