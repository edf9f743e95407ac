package capture

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/tracklap/simharness/internal/telemetry"
)

// postProcessor turns one raw telemetry payload into an Observation's
// State/Snapshot fields. The three implementations mirror the
// teacher's identity/process_state/simulate_ins_readings transform
// chain selected by config.
type postProcessor interface {
	process(raw []byte, dt float64) (snapshot telemetry.Snapshot, hasSnapshot bool, err error)
}

type rawProcessor struct{}

func (rawProcessor) process(raw []byte, dt float64) (telemetry.Snapshot, bool, error) {
	return telemetry.Snapshot{}, false, nil
}

type decodeProcessor struct{}

func (decodeProcessor) process(raw []byte, dt float64) (telemetry.Snapshot, bool, error) {
	snap, err := telemetry.Decode(raw)
	if err != nil {
		return telemetry.Snapshot{}, false, err
	}
	return snap, true, nil
}

// insProcessor decodes the raw payload and augments it with a
// SimulatedINS reading, stored back into the snapshot under the "INS"
// namespace fields used by the original implementation.
type insProcessor struct {
	ins *SimulatedINS
}

func newINSProcessor(seed int64) *insProcessor {
	return &insProcessor{ins: NewSimulatedINS(seed)}
}

func (p *insProcessor) process(raw []byte, dt float64) (telemetry.Snapshot, bool, error) {
	snap, err := telemetry.Decode(raw)
	if err != nil {
		return telemetry.Snapshot{}, false, err
	}

	accelGX, _ := snap.Float("acceleration_g_x")
	accelGY, _ := snap.Float("acceleration_g_y")
	accelGZ, _ := snap.Float("acceleration_g_z")
	accelG := r3.Vec{X: accelGX, Y: accelGY, Z: accelGZ}

	headingV, _ := snap.Float("heading")
	pitchV, _ := snap.Float("pitch")
	rollV, _ := snap.Float("roll")
	hpr := r3.Vec{X: headingV, Y: pitchV, Z: rollV}

	velX, _ := snap.Float("velocity_x")
	velY, _ := snap.Float("velocity_y")
	velZ, _ := snap.Float("velocity_z")
	velocity := r3.Vec{X: velX, Y: velY, Z: velZ}

	posX, _ := snap.Float("car_coordinates_x")
	posY, _ := snap.Float("car_coordinates_y")
	posZ, _ := snap.Float("car_coordinates_z")
	position := r3.Vec{X: posX, Y: posY, Z: posZ}

	reading := p.ins.Apply(accelG, hpr, velocity, position, dt)

	snap.Values["ins_accelerometer_x"] = reading.AccelerometerXYZ.X
	snap.Values["ins_accelerometer_y"] = reading.AccelerometerXYZ.Y
	snap.Values["ins_accelerometer_z"] = reading.AccelerometerXYZ.Z
	snap.Values["ins_gyroscope_yaw"] = reading.GyroscopeYPR.X
	snap.Values["ins_gyroscope_pitch"] = reading.GyroscopeYPR.Y
	snap.Values["ins_gyroscope_roll"] = reading.GyroscopeYPR.Z
	snap.Values["ins_gps_position_x"] = reading.GPSPositionXYZ.X
	snap.Values["ins_gps_position_y"] = reading.GPSPositionXYZ.Y
	snap.Values["ins_gps_position_z"] = reading.GPSPositionXYZ.Z
	snap.Values["ins_gps_velocity_x"] = reading.GPSVelocityXYZ.X
	snap.Values["ins_gps_velocity_y"] = reading.GPSVelocityXYZ.Y
	snap.Values["ins_gps_velocity_z"] = reading.GPSVelocityXYZ.Z
	snap.Values["ins_odometer_velocity"] = reading.OdometerVelocity

	return snap, true, nil
}
