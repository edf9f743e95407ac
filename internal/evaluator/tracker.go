// Package evaluator implements the windowed SQL trackers and the
// Evaluator loop that runs them against a recording's telemetry table
// on a fixed cadence, plus a live dashboard and a shutdown summary
// chart.
package evaluator

import (
	"fmt"

	"github.com/tracklap/simharness/internal/config"
	"github.com/tracklap/simharness/internal/storage"
)

// TrackerKind is a tracked column's aggregation over a lap-relative
// interval.
type TrackerKind string

const (
	KindMaximumInterval TrackerKind = "maximum_interval"
	KindMinimumInterval TrackerKind = "minimum_interval"
	KindAverageInterval TrackerKind = "average_interval"
)

// Tracker is one compiled SQL query plus the parameters it is bound
// with on every tick (the current lap number, updated externally).
// The query uses lib/pq's positional $1 placeholder for the lap
// number, the one value bound per tick rather than interpolated,
// since it changes on every lap completion.
type Tracker struct {
	Name       string
	SQL        string
	CurrentLap int
}

// BoundQuery returns the SQL and bind parameters for this tick.
func (t *Tracker) BoundQuery() (sql string, args []any) {
	return t.SQL, []any{t.CurrentLap}
}

// NewTrackers compiles one Tracker per (monitor, interval) pair in
// cfg, named "{monitor.Name}-{interval key}", matching
// monitor.py's __setup_trackers.
func NewTrackers(tableName string, cfg []config.MonitorConfig) ([]*Tracker, error) {
	var trackers []*Tracker
	for _, m := range cfg {
		for _, ident := range []string{tableName, m.IntervalColumn, m.Column} {
			if err := storage.ValidateIdentifier(ident); err != nil {
				return nil, fmt.Errorf("evaluator: monitor %q: %w", m.Name, err)
			}
		}
		for intervalName, bounds := range m.Intervals {
			sql, err := buildTrackerSQL(TrackerKind(m.Type), tableName, m.IntervalColumn, m.Column, bounds)
			if err != nil {
				return nil, fmt.Errorf("evaluator: monitor %q interval %q: %w", m.Name, intervalName, err)
			}
			trackers = append(trackers, &Tracker{
				Name: fmt.Sprintf("%s-%s", m.Name, intervalName),
				SQL:  sql,
			})
		}
	}
	return trackers, nil
}

func buildTrackerSQL(kind TrackerKind, tableName, intervalColumn, column string, bounds [2]float64) (string, error) {
	switch kind {
	case KindMaximumInterval:
		return intervalMaxSQL(tableName, intervalColumn, column, bounds), nil
	case KindMinimumInterval:
		return intervalMinSQL(tableName, intervalColumn, column, bounds), nil
	case KindAverageInterval:
		return timeWeightedAverageSQL(tableName, intervalColumn, column, bounds), nil
	default:
		return "", fmt.Errorf("unknown tracker kind %q", kind)
	}
}

// intervalMaxSQL and intervalMinSQL and timeWeightedAverageSQL are
// transcribed verbatim (modulo Go string formatting) from
// get_interval_max_sql/get_interval_min_sql/get_time_weighted_average_sql:
// NewTrackers checks table/column/interval names with
// storage.ValidateIdentifier, and they are then interpolated directly
// the same way the original f-strings do; the lap number is the only
// value bound as a query parameter.

func intervalMaxSQL(tableName, intervalColumn, column string, bounds [2]float64) string {
	return fmt.Sprintf(
		"SELECT MAX(%s) FROM %s WHERE completed_laps=$1 AND %s BETWEEN %g AND %g",
		column, tableName, intervalColumn, bounds[0], bounds[1])
}

func intervalMinSQL(tableName, intervalColumn, column string, bounds [2]float64) string {
	return fmt.Sprintf(
		"SELECT MIN(%s) FROM %s WHERE completed_laps=$1 AND %s BETWEEN %g AND %g",
		column, tableName, intervalColumn, bounds[0], bounds[1])
}

func timeWeightedAverageSQL(tableName, intervalColumn, column string, bounds [2]float64) string {
	return fmt.Sprintf(
		"WITH setup AS ("+
			"SELECT LAG(i_total_time) OVER (ORDER BY i_total_time) AS previous_timestamp, "+
			"LAG(%[1]s) OVER (ORDER BY i_total_time) AS previous_reading, "+
			"%[1]s, i_total_time "+
			"FROM %[2]s WHERE completed_laps=$1 AND %[3]s BETWEEN %[4]g AND %[5]g"+
			"), "+
			"nextstep AS ("+
			"SELECT CASE WHEN previous_reading IS NULL THEN NULL "+
			"ELSE (previous_reading + %[1]s) / 2 * (i_total_time - previous_timestamp) END AS weighted_sum, i_total_time "+
			"FROM setup"+
			") "+
			"SELECT SUM(weighted_sum) / (MAX(i_total_time) - MIN(i_total_time)) AS time_weighted_average FROM nextstep",
		column, tableName, intervalColumn, bounds[0], bounds[1])
}
