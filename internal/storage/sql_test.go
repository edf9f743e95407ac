package storage

import (
	"strings"
	"testing"

	"github.com/tracklap/simharness/internal/telemetry"
)

func TestCreateTableSQLIncludesBookkeepingColumns(t *testing.T) {
	sql := createTableSQL("lap_1")
	for _, want := range []string{`"lap_1"`, "id SERIAL PRIMARY KEY", "i_total_time BIGINT", `"packet_id" int4`} {
		if !strings.Contains(sql, want) {
			t.Errorf("createTableSQL missing %q:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, `"current_time"`) {
		t.Error("createTableSQL should rename current_time to current_laptime")
	}
	if !strings.Contains(sql, `"current_laptime" text`) {
		t.Error("createTableSQL should include renamed current_laptime column")
	}
}

func TestInsertRowSQLCoversFullSchemaPlusBookkeeping(t *testing.T) {
	sql, columns := insertRowSQL("lap_1")
	if !strings.HasPrefix(sql, `INSERT INTO "lap_1"`) {
		t.Errorf("unexpected insert SQL prefix: %s", sql)
	}
	wantColumns := 1 + len(telemetry.Schema) // i_total_time + schema columns
	if len(columns) != wantColumns {
		t.Errorf("insertRowSQL columns = %d, want %d", len(columns), wantColumns)
	}
	if columns[0] != "i_total_time" {
		t.Errorf("first column = %q, want i_total_time", columns[0])
	}
	if !strings.Contains(sql, "$1") || !strings.Contains(sql, "VALUES") {
		t.Errorf("expected positional placeholders in insert SQL: %s", sql)
	}
}

func TestValidateIdentifierRejectsUnsafeNames(t *testing.T) {
	for _, name := range []string{"lap_1; DROP TABLE users", "Lap1", "", "1lap", "a b"} {
		if err := ValidateIdentifier(name); err == nil {
			t.Errorf("expected ValidateIdentifier(%q) to reject", name)
		}
	}
}

func TestValidateIdentifierAcceptsSafeNames(t *testing.T) {
	for _, name := range []string{"lap_1", "table20260101120000", "a"} {
		if err := ValidateIdentifier(name); err != nil {
			t.Errorf("ValidateIdentifier(%q) = %v, want nil", name, err)
		}
	}
}
