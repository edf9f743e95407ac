package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/tracklap/simharness/internal/telemetry"
)

// DatabaseWriter inserts one row per decoded telemetry snapshot into a
// Postgres table derived from the telemetry schema, maintaining a
// cumulative lap-time column across lap wraps the way the original
// state logger does.
type DatabaseWriter struct {
	db        *sql.DB
	tableName string
	insertSQL string
	columns   []string

	previousTimestamp    int64
	totalPreviousLapTime int64
}

// Open connects to Postgres at dsn and prepares tableName to receive
// telemetry rows, creating it if it doesn't already exist. A
// pre-existing table (DuplicateTable) is not an error: the writer just
// reuses it, matching the original implementation's behavior for
// resuming a session's table across restarts.
func Open(dsn, tableName string) (*DatabaseWriter, error) {
	if err := ValidateIdentifier(tableName); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	if err := createTable(db, tableName); err != nil {
		db.Close()
		return nil, err
	}

	insertSQL, columns := insertRowSQL(tableName)
	return &DatabaseWriter{
		db:        db,
		tableName: tableName,
		insertSQL: insertSQL,
		columns:   columns,
	}, nil
}

func createTable(db *sql.DB, tableName string) error {
	_, err := db.Exec(createTableSQL(tableName))
	if err == nil {
		opsf("storage: created table %q", tableName)
		return nil
	}
	if isDuplicateTable(err) {
		opsf("storage: table %q already exists, reusing it", tableName)
		return nil
	}
	return fmt.Errorf("storage: create table: %w", err)
}

// isDuplicateTable reports whether err is Postgres error code 42P07
// (duplicate_table), the lib/pq equivalent of psycopg's
// errors.DuplicateTable that the original logger treats as a warning.
func isDuplicateTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P07"
	}
	return false
}

// TableName returns the table this writer inserts into.
func (w *DatabaseWriter) TableName() string {
	return w.tableName
}

// WriteSnapshot inserts one row derived from snap, sanitizing values
// the same way the original DatabaseStateInterface does before handing
// them to the driver: NUL bytes stripped from text (already done by
// telemetry.Decode), and +/-Inf floats replaced with SQL NULL.
func (w *DatabaseWriter) WriteSnapshot(snap telemetry.Snapshot) error {
	w.updateCumulativeLapTime(snap)

	args := make([]interface{}, len(w.columns))
	for i, col := range w.columns {
		if col == "i_total_time" {
			args[i] = w.currentTotalTime(snap)
			continue
		}
		args[i] = sanitizeValue(snap.Values[col])
	}

	if _, err := w.db.Exec(w.insertSQL, args...); err != nil {
		return fmt.Errorf("storage: insert row: %w", err)
	}
	return nil
}

// updateCumulativeLapTime advances the running total lap time when a
// new lap has started (i_current_time resets below the previous
// reading), mirroring _update_timestamps/_add_cumulative_time exactly:
// the wrap is detected by the current-lap timer decreasing, at which
// point the just-finished lap's i_last_time is folded into the total.
func (w *DatabaseWriter) updateCumulativeLapTime(snap telemetry.Snapshot) {
	current, _ := snap.Int("i_current_time")
	if w.previousTimestamp > current {
		last, _ := snap.Int("i_last_time")
		w.totalPreviousLapTime += last
		w.previousTimestamp = 0
	}
	w.previousTimestamp = current
}

func (w *DatabaseWriter) currentTotalTime(snap telemetry.Snapshot) int64 {
	current, _ := snap.Int("i_current_time")
	return current + w.totalPreviousLapTime
}

// sanitizeValue replaces a NaN float (telemetry.Decode's own
// sanitization of +/-Inf) with nil so the driver writes SQL NULL,
// matching replace_infinity's None substitution.
func sanitizeValue(v interface{}) interface{} {
	if f, ok := v.(float64); ok {
		if math.IsNaN(f) {
			return nil
		}
	}
	if s, ok := v.(string); ok {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return v
}

// Close releases the underlying connection.
func (w *DatabaseWriter) Close() error {
	return w.db.Close()
}

// NewSessionTableName mirrors make_run_name: a table name stamped with
// the current time, used when no table_name is configured.
func NewSessionTableName(now time.Time) string {
	return "table" + now.Format("20060102150405")
}
