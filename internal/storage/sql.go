// Package storage implements DatabaseWriter: it derives a Postgres
// table from internal/telemetry's schema, inserts one row per
// decoded snapshot with cumulative lap-time bookkeeping, and exposes a
// live SQL debugging surface via tailsql.
package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tracklap/simharness/internal/telemetry"
)

// identPattern allowlists table names: telemetry column names are
// always drawn from the fixed schema, but table names come from
// config or a generated run name and are interpolated into SQL since
// Postgres has no placeholder syntax for identifiers, so they're
// validated the same way internal/security validates filesystem paths
// against an allowlist before use.
var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidateIdentifier reports whether name is safe to interpolate as a
// Postgres table identifier.
func ValidateIdentifier(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("storage: invalid identifier %q: must match %s", name, identPattern.String())
	}
	return nil
}

// sqlType maps a telemetry.FieldKind to its Postgres column type.
func sqlType(kind telemetry.FieldKind) string {
	switch kind {
	case telemetry.KindInt32:
		return "int4"
	case telemetry.KindFloat32:
		return "float4"
	case telemetry.KindText:
		return "text"
	default:
		return "text"
	}
}

// createTableSQL returns the CREATE UNLOGGED TABLE statement for
// tableName derived from the telemetry schema, with id/i_total_time
// bookkeeping columns prepended, matching the original schema's shape.
func createTableSQL(tableName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE UNLOGGED TABLE %s (\n", quoteIdent(tableName))
	b.WriteString("id SERIAL PRIMARY KEY,\n")
	b.WriteString("i_total_time BIGINT,\n")
	for _, f := range telemetry.Schema {
		name := telemetry.ColumnName(f.Name)
		fmt.Fprintf(&b, "%s %s,\n", quoteIdent(name), sqlType(f.Kind))
	}
	sql := b.String()
	sql = strings.TrimSuffix(sql, ",\n")
	sql += "\n)"
	return sql
}

// insertRowSQL returns a parameterized INSERT statement for tableName
// covering i_total_time plus every schema column, using Postgres
// positional placeholders in schema order.
func insertRowSQL(tableName string) (sql string, columns []string) {
	columns = append(columns, "i_total_time")
	for _, f := range telemetry.Schema {
		columns = append(columns, telemetry.ColumnName(f.Name))
	}

	var cols, placeholders []string
	for i, c := range columns {
		cols = append(cols, quoteIdent(c))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}

	sql = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(tableName), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return sql, columns
}

// quoteIdent double-quotes a Postgres identifier, doubling any embedded
// double quote; it does not validate the name: table/column names in
// this package are always derived from the fixed telemetry schema or a
// caller-supplied run name, never arbitrary user input, but quoting
// defensively keeps the generated SQL unambiguous regardless.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
