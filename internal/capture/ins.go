package capture

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// gravity is standard gravity in m/s^2, used to convert the
// acceleration_g_* telemetry fields (multiples of g) into m/s^2 before
// applying sensor error.
const gravity = 9.80665

// imuErrorModel holds the first-order Gauss-Markov error parameters for
// one sensor axis triple, matching a low-accuracy 6-axis IMU profile:
// constant bias, drift correlation time, drift magnitude and white
// noise density.
type imuErrorModel struct {
	bias           r3.Vec
	driftCorr      float64 // seconds
	driftMagnitude float64
	noiseDensity   float64 // per sqrt(Hz)
}

// gpsErrorModel holds GPS position/velocity noise standard deviations.
type gpsErrorModel struct {
	stdPosition float64 // meters
	stdVelocity float64 // m/s
}

// odometerErrorModel holds odometer scale-factor error and noise.
type odometerErrorModel struct {
	scale    float64
	stdNoise float64
}

// Default low-accuracy IMU error parameters, grounded on the published
// error tables for consumer-grade MEMS IMUs used by gnss-ins-sim's
// "low-accuracy" profile.
var (
	defaultAccelError = imuErrorModel{
		bias:           r3.Vec{X: 0.0098, Y: 0.0098, Z: 0.0098}, // 1 mg
		driftCorr:      100,
		driftMagnitude: 0.0005 * gravity,
		noiseDensity:   0.012 * gravity,
	}
	defaultGyroError = imuErrorModel{
		bias:           r3.Vec{X: 0.0035, Y: 0.0035, Z: 0.0035}, // rad/s
		driftCorr:      100,
		driftMagnitude: 0.00015,
		noiseDensity:   0.0025,
	}
	defaultGPSError = gpsErrorModel{stdPosition: 3.0, stdVelocity: 0.05}
	defaultOdoError = odometerErrorModel{scale: 0.999, stdNoise: 0.05}
)

// INSReading is the simulated inertial/GPS/odometer data attached to a
// decoded telemetry snapshot when ModeSimulatedINS is active.
type INSReading struct {
	AccelerometerXYZ r3.Vec
	GyroscopeYPR     r3.Vec
	GPSPositionXYZ   r3.Vec
	GPSVelocityXYZ   r3.Vec
	OdometerVelocity float64
}

// SimulatedINS produces synthetic accelerometer, gyroscope, GPS, and
// odometer readings derived from noiseless simulator telemetry, by
// injecting sensor bias, first-order Gauss-Markov bias drift, and white
// noise scaled to the elapsed time since the previous call. It carries
// state across calls (the drift terms), so one instance must be reused
// across an entire capture session rather than constructed per reading.
type SimulatedINS struct {
	rng *rand.Rand

	accelDrift r3.Vec
	gyroDrift  r3.Vec

	dt float64 // seconds since previous reading; set by caller before use
}

// NewSimulatedINS returns a SimulatedINS seeded from the given source.
func NewSimulatedINS(seed int64) *SimulatedINS {
	return &SimulatedINS{rng: rand.New(rand.NewSource(seed))}
}

// Apply computes one simulated INS reading from the given raw
// telemetry values and the elapsed time since the previous call.
func (s *SimulatedINS) Apply(
	accelG r3.Vec,
	headingPitchRoll r3.Vec,
	velocity r3.Vec,
	position r3.Vec,
	dt float64,
) INSReading {
	if dt <= 0 {
		dt = 1.0 / 60.0
	}
	s.dt = dt

	accel := r3.Scale(gravity, accelG)
	s.accelDrift = s.biasDrift(defaultAccelError, s.accelDrift)
	accelReading := r3.Add(accel, r3.Add(defaultAccelError.bias, s.accelDrift))
	accelReading = r3.Add(accelReading, s.whiteNoise(defaultAccelError.noiseDensity))

	s.gyroDrift = s.biasDrift(defaultGyroError, s.gyroDrift)
	gyroReading := r3.Add(headingPitchRoll, r3.Add(defaultGyroError.bias, s.gyroDrift))
	gyroReading = r3.Add(gyroReading, s.whiteNoise(defaultGyroError.noiseDensity))

	gpsVelocity := r3.Add(velocity, s.gaussianVec(defaultGPSError.stdVelocity))
	gpsPosition := r3.Add(position, s.gaussianVec(defaultGPSError.stdPosition))

	odoVelocity := defaultOdoError.scale*r3.Norm(velocity) + s.rng.NormFloat64()*defaultOdoError.stdNoise

	return INSReading{
		AccelerometerXYZ: accelReading,
		GyroscopeYPR:     gyroReading,
		GPSPositionXYZ:   gpsPosition,
		GPSVelocityXYZ:   gpsVelocity,
		OdometerVelocity: odoVelocity,
	}
}

// biasDrift advances a first-order Gauss-Markov bias-drift process by
// one sample interval, the same recurrence used by gnss-ins-sim:
// drift' = a*drift + b*noise, with a derived from the correlation time
// and b derived from the steady-state drift magnitude.
func (s *SimulatedINS) biasDrift(model imuErrorModel, previous r3.Vec) r3.Vec {
	sampleRate := 1.0 / s.dt
	a := 1 - 1/(sampleRate*model.driftCorr)
	b := model.driftMagnitude * math.Sqrt(1.0-math.Exp(-2/(sampleRate*model.driftCorr)))
	return r3.Add(r3.Scale(a, previous), s.gaussianVec(b))
}

func (s *SimulatedINS) whiteNoise(density float64) r3.Vec {
	scale := density / math.Sqrt(s.dt)
	return s.gaussianVec(scale)
}

func (s *SimulatedINS) gaussianVec(stddev float64) r3.Vec {
	return r3.Vec{
		X: s.rng.NormFloat64() * stddev,
		Y: s.rng.NormFloat64() * stddev,
		Z: s.rng.NormFloat64() * stddev,
	}
}
