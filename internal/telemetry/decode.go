package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Snapshot is a decoded telemetry sample. Values are keyed by
// ColumnName, not wire name, so current_time already reads as
// current_laptime.
type Snapshot struct {
	Values map[string]any
}

// Int returns the value at name as an int64, or false if it is absent
// or not an integer field.
func (s Snapshot) Int(name string) (int64, bool) {
	v, ok := s.Values[name].(int64)
	return v, ok
}

// Float returns the value at name as a float64, or false if it is
// absent or not a float field. A NaN is returned if the field was
// sanitized from ±Inf.
func (s Snapshot) Float(name string) (float64, bool) {
	v, ok := s.Values[name].(float64)
	return v, ok
}

// Text returns the value at name as a string, or false if absent.
func (s Snapshot) Text(name string) (string, bool) {
	v, ok := s.Values[name].(string)
	return v, ok
}

// Decode parses a raw shared-memory byte blob against Schema. It renames
// current_time to current_laptime, strips embedded NUL bytes from text
// fields, and replaces ±Inf floats with NaN (the sanitization DatabaseWriter
// relies on before inserting a row).
func Decode(data []byte) (Snapshot, error) {
	want := Size()
	if len(data) < want {
		return Snapshot{}, fmt.Errorf("telemetry: short buffer: got %d bytes, want at least %d", len(data), want)
	}

	values := make(map[string]any, len(Schema))
	cursor := 0
	for _, f := range Schema {
		name := ColumnName(f.Name)
		switch f.Kind {
		case KindInt32:
			values[name] = int64(int32(binary.LittleEndian.Uint32(data[cursor : cursor+4])))
			cursor += 4
		case KindFloat32:
			bits := binary.LittleEndian.Uint32(data[cursor : cursor+4])
			v := float64(math.Float32frombits(bits))
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			values[name] = v
			cursor += 4
		case KindText:
			raw := data[cursor : cursor+f.Width]
			if nul := indexByte(raw, 0); nul >= 0 {
				raw = raw[:nul]
			}
			values[name] = strings.ReplaceAll(string(raw), "\x00", "")
			cursor += f.Width
		default:
			return Snapshot{}, fmt.Errorf("telemetry: unknown field kind for %q", f.Name)
		}
	}
	return Snapshot{Values: values}, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
