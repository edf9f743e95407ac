package storage

import (
	"math"
	"testing"

	"github.com/tracklap/simharness/internal/telemetry"
)

func snapWithTimes(current, last int64) telemetry.Snapshot {
	return telemetry.Snapshot{Values: map[string]any{
		"i_current_time": current,
		"i_last_time":    last,
	}}
}

func TestCumulativeLapTimeAccumulatesAcrossWraps(t *testing.T) {
	w := &DatabaseWriter{}

	w.updateCumulativeLapTime(snapWithTimes(1000, 0))
	if got := w.currentTotalTime(snapWithTimes(1000, 0)); got != 1000 {
		t.Errorf("currentTotalTime = %d, want 1000 (no wrap yet)", got)
	}

	w.updateCumulativeLapTime(snapWithTimes(5000, 0))
	if got := w.currentTotalTime(snapWithTimes(5000, 0)); got != 5000 {
		t.Errorf("currentTotalTime = %d, want 5000", got)
	}

	// Lap wraps: i_current_time drops below the previous reading, the
	// finished lap's i_last_time (5200) folds into the running total.
	w.updateCumulativeLapTime(snapWithTimes(100, 5200))
	if got := w.currentTotalTime(snapWithTimes(100, 5200)); got != 5300 {
		t.Errorf("currentTotalTime after wrap = %d, want 5300", got)
	}
}

func TestSanitizeValueReplacesNaNWithNil(t *testing.T) {
	if got := sanitizeValue(math.NaN()); got != nil {
		t.Errorf("sanitizeValue(NaN) = %v, want nil", got)
	}
	if got := sanitizeValue(3.5); got != 3.5 {
		t.Errorf("sanitizeValue(3.5) = %v, want 3.5", got)
	}
}

func TestSanitizeValueStripsNUL(t *testing.T) {
	got := sanitizeValue("ab\x00cd")
	if got != "abcd" {
		t.Errorf("sanitizeValue NUL strip = %q, want %q", got, "abcd")
	}
}

func TestIsDuplicateTableFalseForPlainError(t *testing.T) {
	if isDuplicateTable(errDummy{}) {
		t.Error("expected a non-pq error to not be classified as duplicate table")
	}
}

type errDummy struct{}

func (errDummy) Error() string { return "dummy" }
