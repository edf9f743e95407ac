// Package telemetry declares the wire layout of a simulator state
// snapshot and decodes raw shared-memory bytes into typed values.
//
// The layout is the graphics block followed by the physics block,
// concatenated in the order the simulator's own shared-memory regions
// are read in (see internal/state.Reader), matching the field order and
// types of Assetto Corsa's acpmf_graphics/acpmf_physics structures.
package telemetry

import "fmt"

// FieldKind is the wire type of one telemetry field.
type FieldKind int

const (
	// KindInt32 is a 4-byte little-endian signed integer (ctypes c_int).
	KindInt32 FieldKind = iota
	// KindFloat32 is a 4-byte little-endian IEEE-754 float (ctypes c_float).
	KindFloat32
	// KindText is a fixed-width, NUL-padded byte string.
	KindText
)

func (k FieldKind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindFloat32:
		return "float32"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// FieldSpec describes one named field in the wire layout.
type FieldSpec struct {
	Name  string
	Kind  FieldKind
	Width int // byte width; 4 for int32/float32, fixed size for text
}

func (f FieldSpec) size() int {
	if f.Kind == KindText {
		return f.Width
	}
	return 4
}

// Schema is the full graphics+physics field layout, in wire order.
var Schema = buildSchema()

func buildSchema() []FieldSpec {
	fields := make([]FieldSpec, 0, len(graphicsFields)+len(physicsFields))
	fields = append(fields, graphicsFields...)
	fields = append(fields, physicsFields...)
	return fields
}

// Size returns the total byte width of the schema.
func Size() int {
	total := 0
	for _, f := range Schema {
		total += f.size()
	}
	return total
}

// offsets returns the byte offset of each field, in schema order.
func offsets() []int {
	offs := make([]int, len(Schema))
	cursor := 0
	for i, f := range Schema {
		offs[i] = cursor
		cursor += f.size()
	}
	return offs
}

// graphicsFields is the status/session/lap-timing block. current_time is
// kept under its wire name here; Decode renames it to current_laptime,
// since current_time is a reserved phrase in the SQL the storage package
// generates from this schema.
var graphicsFields = []FieldSpec{
	{Name: "packet_id", Kind: KindInt32},
	{Name: "status", Kind: KindInt32},
	{Name: "session_type", Kind: KindInt32},
	{Name: "current_time", Kind: KindText, Width: 15},
	{Name: "last_time", Kind: KindText, Width: 15},
	{Name: "best_time", Kind: KindText, Width: 15},
	{Name: "split", Kind: KindText, Width: 15},
	{Name: "completed_laps", Kind: KindInt32},
	{Name: "position", Kind: KindInt32},
	{Name: "i_current_time", Kind: KindInt32},
	{Name: "i_last_time", Kind: KindInt32},
	{Name: "i_best_time", Kind: KindInt32},
	{Name: "session_time_left", Kind: KindFloat32},
	{Name: "distance_traveled", Kind: KindFloat32},
	{Name: "is_in_pit", Kind: KindInt32},
	{Name: "current_sector_index", Kind: KindInt32},
	{Name: "last_sector_time", Kind: KindInt32},
	{Name: "number_of_laps", Kind: KindInt32},
	{Name: "tyre_compound", Kind: KindText, Width: 33},
	{Name: "normalised_car_position", Kind: KindFloat32},
	{Name: "car_coordinates_x", Kind: KindFloat32},
	{Name: "car_coordinates_y", Kind: KindFloat32},
	{Name: "car_coordinates_z", Kind: KindFloat32},
	{Name: "penalty_time", Kind: KindFloat32},
	{Name: "flag", Kind: KindInt32},
	{Name: "ideal_line_on", Kind: KindInt32},
	{Name: "is_in_pit_lane", Kind: KindInt32},
	{Name: "surface_grip", Kind: KindFloat32},
	{Name: "mandatory_pit_done", Kind: KindInt32},
}

// physicsFields is the per-tick vehicle dynamics block, in the exact
// order Assetto Corsa's shared-memory physics page exposes them.
var physicsFields = []FieldSpec{
	{Name: "throttle", Kind: KindFloat32},
	{Name: "brake", Kind: KindFloat32},
	{Name: "fuel", Kind: KindFloat32},
	{Name: "gear", Kind: KindInt32},
	{Name: "rpm", Kind: KindInt32},
	{Name: "steering_angle", Kind: KindFloat32},
	{Name: "speed_kmh", Kind: KindFloat32},
	{Name: "velocity_x", Kind: KindFloat32},
	{Name: "velocity_y", Kind: KindFloat32},
	{Name: "velocity_z", Kind: KindFloat32},
	{Name: "acceleration_g_x", Kind: KindFloat32},
	{Name: "acceleration_g_y", Kind: KindFloat32},
	{Name: "acceleration_g_z", Kind: KindFloat32},
	{Name: "wheel_slip_front_left", Kind: KindFloat32},
	{Name: "wheel_slip_front_right", Kind: KindFloat32},
	{Name: "wheel_slip_rear_left", Kind: KindFloat32},
	{Name: "wheel_slip_rear_right", Kind: KindFloat32},
	{Name: "wheel_load_front_left", Kind: KindFloat32},
	{Name: "wheel_load_front_right", Kind: KindFloat32},
	{Name: "wheel_load_rear_left", Kind: KindFloat32},
	{Name: "wheel_load_rear_right", Kind: KindFloat32},
	{Name: "tyre_pressure_front_left", Kind: KindFloat32},
	{Name: "tyre_pressure_front_right", Kind: KindFloat32},
	{Name: "tyre_pressure_rear_left", Kind: KindFloat32},
	{Name: "tyre_pressure_rear_right", Kind: KindFloat32},
	{Name: "wheel_angular_speed_front_left", Kind: KindFloat32},
	{Name: "wheel_angular_speed_front_right", Kind: KindFloat32},
	{Name: "wheel_angular_speed_rear_left", Kind: KindFloat32},
	{Name: "wheel_angular_speed_rear_right", Kind: KindFloat32},
	{Name: "tyre_wear_front_left", Kind: KindFloat32},
	{Name: "tyre_wear_front_right", Kind: KindFloat32},
	{Name: "tyre_wear_rear_left", Kind: KindFloat32},
	{Name: "tyre_wear_rear_right", Kind: KindFloat32},
	{Name: "tyre_dirty_level_front_left", Kind: KindFloat32},
	{Name: "tyre_dirty_level_front_right", Kind: KindFloat32},
	{Name: "tyre_dirty_level_rear_left", Kind: KindFloat32},
	{Name: "tyre_dirty_level_rear_right", Kind: KindFloat32},
	{Name: "tyre_temperature_core_front_left", Kind: KindFloat32},
	{Name: "tyre_temperature_core_front_right", Kind: KindFloat32},
	{Name: "tyre_temperature_core_rear_left", Kind: KindFloat32},
	{Name: "tyre_temperature_core_rear_right", Kind: KindFloat32},
	{Name: "wheel_camber_radians_front_left", Kind: KindFloat32},
	{Name: "wheel_camber_radians_front_right", Kind: KindFloat32},
	{Name: "wheel_camber_radians_rear_left", Kind: KindFloat32},
	{Name: "wheel_camber_radians_rear_right", Kind: KindFloat32},
	{Name: "suspension_travel_front_left", Kind: KindFloat32},
	{Name: "suspension_travel_front_right", Kind: KindFloat32},
	{Name: "suspension_travel_rear_left", Kind: KindFloat32},
	{Name: "suspension_travel_rear_right", Kind: KindFloat32},
	{Name: "is_drag_reduction_system_active", Kind: KindFloat32},
	{Name: "traction_control_1", Kind: KindFloat32},
	{Name: "heading", Kind: KindFloat32},
	{Name: "pitch", Kind: KindFloat32},
	{Name: "roll", Kind: KindFloat32},
	{Name: "centre_of_gravity_height", Kind: KindFloat32},
	{Name: "car_damage_front", Kind: KindFloat32},
	{Name: "car_damage_rear", Kind: KindFloat32},
	{Name: "car_damage_left", Kind: KindFloat32},
	{Name: "car_damage_right", Kind: KindFloat32},
	{Name: "car_damage_centre", Kind: KindFloat32},
	{Name: "number_of_tyres_out", Kind: KindInt32},
	{Name: "is_pit_limiter_on", Kind: KindInt32},
	{Name: "anti_lock_braking_system_1", Kind: KindFloat32},
	{Name: "kinetic_energy_recovery_system_charge", Kind: KindFloat32},
	{Name: "kinetic_energy_recovery_system_input", Kind: KindFloat32},
	{Name: "is_automatic_transmission", Kind: KindInt32},
	{Name: "ride_height_front", Kind: KindFloat32},
	{Name: "ride_height_rear", Kind: KindFloat32},
	{Name: "turbo_boost", Kind: KindFloat32},
	{Name: "ballast", Kind: KindFloat32},
	{Name: "air_density", Kind: KindFloat32},
	{Name: "air_temperature", Kind: KindFloat32},
	{Name: "road_temperature", Kind: KindFloat32},
	{Name: "local_angular_velocity_x", Kind: KindFloat32},
	{Name: "local_angular_velocity_y", Kind: KindFloat32},
	{Name: "local_angular_velocity_z", Kind: KindFloat32},
	{Name: "final_force_feedback", Kind: KindFloat32},
	{Name: "performance_meter", Kind: KindFloat32},
	{Name: "is_engine_brake_on", Kind: KindInt32},
	{Name: "energy_recovery_system_recovery_level", Kind: KindInt32},
	{Name: "energy_recovery_system_power_level", Kind: KindInt32},
	{Name: "energy_recovery_system_heat_charging", Kind: KindInt32},
	{Name: "is_energy_recovery_system_charging", Kind: KindInt32},
	{Name: "kinetic_energy_recovery_system_current_kilojoules", Kind: KindFloat32},
	{Name: "is_drag_reduction_system_available", Kind: KindInt32},
	{Name: "is_drag_reduction_system_enabled", Kind: KindInt32},
	{Name: "brake_temperature_front_left", Kind: KindFloat32},
	{Name: "brake_temperature_front_right", Kind: KindFloat32},
	{Name: "brake_temperature_rear_left", Kind: KindFloat32},
	{Name: "brake_temperature_rear_right", Kind: KindFloat32},
	{Name: "clutch", Kind: KindFloat32},
	{Name: "tyre_temperature_i_front_left", Kind: KindFloat32},
	{Name: "tyre_temperature_i_front_right", Kind: KindFloat32},
	{Name: "tyre_temperature_i_rear_left", Kind: KindFloat32},
	{Name: "tyre_temperature_i_rear_right", Kind: KindFloat32},
	{Name: "tyre_temperature_m_front_left", Kind: KindFloat32},
	{Name: "tyre_temperature_m_front_right", Kind: KindFloat32},
	{Name: "tyre_temperature_m_rear_left", Kind: KindFloat32},
	{Name: "tyre_temperature_m_rear_right", Kind: KindFloat32},
	{Name: "tyre_temperature_o_front_left", Kind: KindFloat32},
	{Name: "tyre_temperature_o_front_right", Kind: KindFloat32},
	{Name: "tyre_temperature_o_rear_left", Kind: KindFloat32},
	{Name: "tyre_temperature_o_rear_right", Kind: KindFloat32},
	{Name: "is_ai_controlled", Kind: KindInt32},
	{Name: "tyre_contact_point_front_left_x", Kind: KindFloat32},
	{Name: "tyre_contact_point_front_left_y", Kind: KindFloat32},
	{Name: "tyre_contact_point_front_left_z", Kind: KindFloat32},
	{Name: "tyre_contact_point_front_right_x", Kind: KindFloat32},
	{Name: "tyre_contact_point_front_right_y", Kind: KindFloat32},
	{Name: "tyre_contact_point_front_right_z", Kind: KindFloat32},
	{Name: "tyre_contact_point_rear_left_x", Kind: KindFloat32},
	{Name: "tyre_contact_point_rear_left_y", Kind: KindFloat32},
	{Name: "tyre_contact_point_rear_left_z", Kind: KindFloat32},
	{Name: "tyre_contact_point_rear_right_x", Kind: KindFloat32},
	{Name: "tyre_contact_point_rear_right_y", Kind: KindFloat32},
	{Name: "tyre_contact_point_rear_right_z", Kind: KindFloat32},
	{Name: "tyre_contact_normal_front_left_x", Kind: KindFloat32},
	{Name: "tyre_contact_normal_front_left_y", Kind: KindFloat32},
	{Name: "tyre_contact_normal_front_left_z", Kind: KindFloat32},
	{Name: "tyre_contact_normal_front_right_x", Kind: KindFloat32},
	{Name: "tyre_contact_normal_front_right_y", Kind: KindFloat32},
	{Name: "tyre_contact_normal_front_right_z", Kind: KindFloat32},
	{Name: "tyre_contact_normal_rear_left_x", Kind: KindFloat32},
	{Name: "tyre_contact_normal_rear_left_y", Kind: KindFloat32},
	{Name: "tyre_contact_normal_rear_left_z", Kind: KindFloat32},
	{Name: "tyre_contact_normal_rear_right_x", Kind: KindFloat32},
	{Name: "tyre_contact_normal_rear_right_y", Kind: KindFloat32},
	{Name: "tyre_contact_normal_rear_right_z", Kind: KindFloat32},
	{Name: "tyre_contact_heading_front_left_x", Kind: KindFloat32},
	{Name: "tyre_contact_heading_front_left_y", Kind: KindFloat32},
	{Name: "tyre_contact_heading_front_left_z", Kind: KindFloat32},
	{Name: "tyre_contact_heading_front_right_x", Kind: KindFloat32},
	{Name: "tyre_contact_heading_front_right_y", Kind: KindFloat32},
	{Name: "tyre_contact_heading_front_right_z", Kind: KindFloat32},
	{Name: "tyre_contact_heading_rear_left_x", Kind: KindFloat32},
	{Name: "tyre_contact_heading_rear_left_y", Kind: KindFloat32},
	{Name: "tyre_contact_heading_rear_left_z", Kind: KindFloat32},
	{Name: "tyre_contact_heading_rear_right_x", Kind: KindFloat32},
	{Name: "tyre_contact_heading_rear_right_y", Kind: KindFloat32},
	{Name: "tyre_contact_heading_rear_right_z", Kind: KindFloat32},
	{Name: "brake_bias", Kind: KindFloat32},
	{Name: "local_velocity_x", Kind: KindFloat32},
	{Name: "local_velocity_y", Kind: KindFloat32},
	{Name: "local_velocity_z", Kind: KindFloat32},
}

// ColumnName returns the SQL-safe name for a field: current_time is
// renamed current_laptime since current_time is a reserved phrase.
func ColumnName(fieldName string) string {
	if fieldName == "current_time" {
		return "current_laptime"
	}
	return fieldName
}

// FieldByName returns the FieldSpec for a given wire name.
func FieldByName(name string) (FieldSpec, error) {
	for _, f := range Schema {
		if f.Name == name {
			return f, nil
		}
	}
	return FieldSpec{}, fmt.Errorf("telemetry: unknown field %q", name)
}
