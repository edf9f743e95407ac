// Package config defines the JSON configuration schema shared by every
// simharness binary: capture source selection, termination policy,
// recording output, the postgres sink, evaluation monitors, and offline
// ground-truth generation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the conventional location for a session's config
// file, searched relative to the current working directory.
const DefaultConfigPath = "config/simharness.json"

// Config is the root configuration for a capture/recording/evaluation
// session. Every field is optional so a partial override file can be
// layered over a binary's built-in defaults.
type Config struct {
	Capture    *CaptureConfig    `json:"capture,omitempty"`
	Termination *TerminationConfig `json:"termination,omitempty"`
	Recording  *RecordingConfig  `json:"recording,omitempty"`
	Postgres   *PostgresConfig   `json:"postgres,omitempty"`
	Evaluation *EvaluationConfig `json:"evaluation,omitempty"`
	Generate   *GenerateConfig   `json:"generate,omitempty"`

	VerticalFOV       *float64 `json:"vertical_fov,omitempty"`
	ImageWidth        *int     `json:"image_width,omitempty"`
	ImageHeight       *int     `json:"image_height,omitempty"`
	SampleEvery       *int     `json:"sample_every,omitempty"`
	StartAtSample     *int     `json:"start_at_sample,omitempty"`
	FinishAtSample    *int     `json:"finish_at_sample,omitempty"`
	NRayCastingWorkers *int    `json:"n_ray_casting_workers,omitempty"`
	NGenerationWorkers *int    `json:"n_generation_workers,omitempty"`
}

// CaptureConfig configures the three capture-side collaborators.
type CaptureConfig struct {
	Images *ImagesConfig `json:"images,omitempty"`
	State  *StateConfig  `json:"state,omitempty"`
	FFmpeg *FFmpegConfig `json:"ffmpeg,omitempty"`
}

// ImagesConfig configures frame capture sizing and polling behaviour.
type ImagesConfig struct {
	Resolution       *string `json:"resolution,omitempty"` // "WIDTHxHEIGHT"
	ImageFormat      *string `json:"image_format,omitempty"`
	WindowLocation   *string `json:"window_location,omitempty"`
	WaitForNewFrames *bool   `json:"wait_for_new_frames,omitempty"`
}

// StateConfig configures the telemetry decode path.
type StateConfig struct {
	UseDicts     *bool `json:"use_dicts,omitempty"`
	SimulateINS  *bool `json:"simulate_ins,omitempty"`
}

// FFmpegConfig configures the ffmpeg subprocess FrameStream shells out to.
type FFmpegConfig struct {
	Framerate *int    `json:"framerate,omitempty"`
	Codec     *string `json:"codec,omitempty"`
	Input     *string `json:"input,omitempty"`
	PixFmt    *string `json:"pix_fmt,omitempty"`
}

// TerminationConfig governs how an agent decides a session has stalled.
type TerminationConfig struct {
	CheckEveryN           *int `json:"check_every_n,omitempty"`
	MaxConsecutiveFailures *int `json:"max_consecutive_failures,omitempty"`
}

// RecordingConfig configures the Recorder's output directory.
type RecordingConfig struct {
	SavePath *string `json:"save_path,omitempty"`
}

// PostgresConfig configures the DatabaseWriter's connection and target table.
type PostgresConfig struct {
	Host      *string `json:"host,omitempty"`
	Port      *int    `json:"port,omitempty"`
	User      *string `json:"user,omitempty"`
	Password  *string `json:"password,omitempty"`
	DBName    *string `json:"dbname,omitempty"`
	TableName *string `json:"table_name,omitempty"`
	SSLMode   *string `json:"sslmode,omitempty"`
}

// EvaluationConfig lists the trackers the Evaluator runs each tick.
type EvaluationConfig struct {
	Monitors []MonitorConfig `json:"monitors,omitempty"`
}

// MonitorConfig names one tracked column, its aggregation kind, the
// lap-relative column the intervals below are measured against, and
// one or more named [low, high] windows. The Evaluator builds one SQL
// tracker per (monitor, interval) pair, named "{Name}-{interval key}".
type MonitorConfig struct {
	Name           string               `json:"name"`
	Type           string               `json:"type"` // "maximum_interval", "minimum_interval", or "average_interval"
	Column         string               `json:"column"`
	IntervalColumn string               `json:"interval_column"`
	Intervals      map[string][2]float64 `json:"intervals"`
}

// GenerateConfig selects which offline ground-truth rasters to produce.
type GenerateConfig struct {
	Depth        *bool `json:"depth,omitempty"`
	Normals      *bool `json:"normals,omitempty"`
	Segmentation *SegmentationConfig `json:"segmentation,omitempty"`
}

// SegmentationConfig toggles the two semantic raster variants.
type SegmentationConfig struct {
	Visuals *bool `json:"visuals,omitempty"`
	Data    *bool `json:"data,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with every field nil. Use Load to populate one
// from a file.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file is validated to have a
// .json extension and to be under a safety size ceiling before parsing.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefault loads DefaultConfigPath, searching parent directories.
// Panics if none is found; intended for test setup and simple binaries.
func MustLoadDefault() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath)
}

// Validate checks structural constraints on whatever fields are set.
func (c *Config) Validate() error {
	if c.VerticalFOV != nil && (*c.VerticalFOV <= 0 || *c.VerticalFOV >= 180) {
		return fmt.Errorf("vertical_fov must be in (0, 180) degrees, got %f", *c.VerticalFOV)
	}
	if c.SampleEvery != nil && *c.SampleEvery < 1 {
		return fmt.Errorf("sample_every must be >= 1, got %d", *c.SampleEvery)
	}
	if c.NRayCastingWorkers != nil && *c.NRayCastingWorkers < 1 {
		return fmt.Errorf("n_ray_casting_workers must be >= 1, got %d", *c.NRayCastingWorkers)
	}
	if c.NGenerationWorkers != nil && *c.NGenerationWorkers < 1 {
		return fmt.Errorf("n_generation_workers must be >= 1, got %d", *c.NGenerationWorkers)
	}
	if c.Evaluation != nil {
		for _, m := range c.Evaluation.Monitors {
			switch m.Type {
			case "maximum_interval", "minimum_interval", "average_interval":
			default:
				return fmt.Errorf("monitor %q has unknown type %q", m.Name, m.Type)
			}
			for key, interval := range m.Intervals {
				if interval[0] > interval[1] {
					return fmt.Errorf("monitor %q interval %q has low > high", m.Name, key)
				}
			}
		}
	}
	return nil
}

// GetVerticalFOV returns the configured vertical field of view in
// degrees, or the simulator's own camera default.
func (c *Config) GetVerticalFOV() float64 {
	if c.VerticalFOV == nil {
		return 60.0
	}
	return *c.VerticalFOV
}

// GetImageSize returns the configured raster dimensions, defaulting to a
// 1920x1080 frame for any dimension left unset.
func (c *Config) GetImageSize() (width, height int) {
	w, h := 1920, 1080
	if c.ImageWidth != nil {
		w = *c.ImageWidth
	}
	if c.ImageHeight != nil {
		h = *c.ImageHeight
	}
	return w, h
}

// GetSampleEvery returns the subsampling stride for offline generation.
func (c *Config) GetSampleEvery() int {
	if c.SampleEvery == nil {
		return 1
	}
	return *c.SampleEvery
}

// GetNRayCastingWorkers returns the ray-casting worker pool size.
func (c *Config) GetNRayCastingWorkers() int {
	if c.NRayCastingWorkers == nil {
		return 4
	}
	return *c.NRayCastingWorkers
}

// GetNGenerationWorkers returns the raster-generation worker pool size.
func (c *Config) GetNGenerationWorkers() int {
	if c.NGenerationWorkers == nil {
		return 4
	}
	return *c.NGenerationWorkers
}

// GetCheckEveryN returns the termination-check sampling interval.
func (c *Config) GetCheckEveryN() int {
	if c.Termination == nil || c.Termination.CheckEveryN == nil {
		return 100
	}
	return *c.Termination.CheckEveryN
}

// GetMaxConsecutiveFailures returns the termination-check failure budget.
func (c *Config) GetMaxConsecutiveFailures() int {
	if c.Termination == nil || c.Termination.MaxConsecutiveFailures == nil {
		return 3
	}
	return *c.Termination.MaxConsecutiveFailures
}

// GetSavePath returns the Recorder output directory.
func (c *Config) GetSavePath() string {
	if c.Recording == nil || c.Recording.SavePath == nil {
		return "./recordings"
	}
	return *c.Recording.SavePath
}

// GetFFmpegFramerate returns the configured capture framerate in fps.
func (c *Config) GetFFmpegFramerate() int {
	if c.Capture == nil || c.Capture.FFmpeg == nil || c.Capture.FFmpeg.Framerate == nil {
		return 30
	}
	return *c.Capture.FFmpeg.Framerate
}

// GetWaitForNewFrames returns the capture.images.wait_for_new_frames
// setting, true when unset. FrameStream does not read it: its Capture
// never blocks and always returns the latest frame read.
func (c *Config) GetWaitForNewFrames() bool {
	if c.Capture == nil || c.Capture.Images == nil || c.Capture.Images.WaitForNewFrames == nil {
		return true
	}
	return *c.Capture.Images.WaitForNewFrames
}

// GetSimulateINS reports whether the capture post-processor should
// synthesize inertial-measurement-unit readings.
func (c *Config) GetSimulateINS() bool {
	if c.Capture == nil || c.Capture.State == nil || c.Capture.State.SimulateINS == nil {
		return false
	}
	return *c.Capture.State.SimulateINS
}

// DSN builds a lib/pq connection string from the configured postgres
// fields, falling back to libpq's own environment-variable defaults for
// anything unset.
func (p *PostgresConfig) DSN() string {
	if p == nil {
		return ""
	}
	dsn := ""
	add := func(k string, v *string) {
		if v != nil && *v != "" {
			dsn += fmt.Sprintf("%s=%s ", k, *v)
		}
	}
	add("host", p.Host)
	if p.Port != nil {
		dsn += fmt.Sprintf("port=%d ", *p.Port)
	}
	add("user", p.User)
	add("password", p.Password)
	add("dbname", p.DBName)
	sslmode := "disable"
	if p.SSLMode != nil && *p.SSLMode != "" {
		sslmode = *p.SSLMode
	}
	dsn += fmt.Sprintf("sslmode=%s", sslmode)
	return dsn
}

// GetTableName returns the configured telemetry table name, or
// "telemetry" when none is set.
func (p *PostgresConfig) GetTableName() string {
	if p == nil || p.TableName == nil || *p.TableName == "" {
		return "telemetry"
	}
	return *p.TableName
}
