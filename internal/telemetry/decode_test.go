package telemetry

import (
	"encoding/binary"
	"math"
	"testing"
)

// encodeFixture builds a minimal-valid byte buffer for Schema with every
// field zeroed, then lets the caller poke specific fields by name.
func encodeFixture(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	buf := make([]byte, Size())
	cursor := 0
	for _, f := range Schema {
		if v, ok := overrides[f.Name]; ok {
			switch f.Kind {
			case KindInt32:
				binary.LittleEndian.PutUint32(buf[cursor:], uint32(int32(v.(int))))
			case KindFloat32:
				binary.LittleEndian.PutUint32(buf[cursor:], math.Float32bits(float32(v.(float64))))
			case KindText:
				copy(buf[cursor:cursor+f.Width], []byte(v.(string)))
			}
		}
		cursor += f.size()
	}
	return buf
}

func TestDecodeRenamesCurrentTime(t *testing.T) {
	buf := encodeFixture(t, map[string]any{"current_time": "01:23.456"})
	snap, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, present := snap.Values["current_time"]; present {
		t.Error("current_time should be renamed to current_laptime")
	}
	got, ok := snap.Text("current_laptime")
	if !ok || got != "01:23.456" {
		t.Errorf("current_laptime = %q, %v; want %q, true", got, ok, "01:23.456")
	}
}

func TestDecodeIntAndFloatFields(t *testing.T) {
	buf := encodeFixture(t, map[string]any{
		"completed_laps": 3,
		"speed_kmh":      123.5,
	})
	snap, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	laps, ok := snap.Int("completed_laps")
	if !ok || laps != 3 {
		t.Errorf("completed_laps = %v, %v; want 3, true", laps, ok)
	}
	speed, ok := snap.Float("speed_kmh")
	if !ok || math.Abs(speed-123.5) > 1e-3 {
		t.Errorf("speed_kmh = %v, %v; want ~123.5, true", speed, ok)
	}
}

func TestDecodeSanitizesInfinity(t *testing.T) {
	buf := make([]byte, Size())
	f, err := FieldByName("air_density")
	if err != nil {
		t.Fatalf("FieldByName: %v", err)
	}
	cursor := 0
	for _, spec := range Schema {
		if spec.Name == f.Name {
			break
		}
		cursor += spec.size()
	}
	binary.LittleEndian.PutUint32(buf[cursor:], math.Float32bits(float32(math.Inf(1))))

	snap, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	v, ok := snap.Float("air_density")
	if !ok || !math.IsNaN(v) {
		t.Errorf("air_density = %v, %v; want NaN, true", v, ok)
	}
}

func TestDecodeStripsEmbeddedNUL(t *testing.T) {
	buf := encodeFixture(t, map[string]any{"tyre_compound": "Soft\x00\x00garbage"})
	snap, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, ok := snap.Text("tyre_compound")
	if !ok || got != "Soft" {
		t.Errorf("tyre_compound = %q, %v; want %q, true", got, ok, "Soft")
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	if _, err := Decode(make([]byte, 4)); err == nil {
		t.Error("expected error for undersized buffer")
	}
}

func TestSchemaSizeMatchesFieldWidths(t *testing.T) {
	total := 0
	for _, f := range Schema {
		if f.Kind == KindText {
			total += f.Width
		} else {
			total += 4
		}
	}
	if total != Size() {
		t.Errorf("Size() = %d, want %d", Size(), total)
	}
}

func TestOffsetsAreMonotonic(t *testing.T) {
	offs := offsets()
	for i := 1; i < len(offs); i++ {
		if offs[i] <= offs[i-1] {
			t.Fatalf("offsets not strictly increasing at index %d: %v", i, offs)
		}
	}
}

func TestColumnName(t *testing.T) {
	if ColumnName("current_time") != "current_laptime" {
		t.Error("current_time must rename to current_laptime")
	}
	if ColumnName("speed_kmh") != "speed_kmh" {
		t.Error("non-reserved names must pass through unchanged")
	}
}
