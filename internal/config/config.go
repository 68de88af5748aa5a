package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultGridSize        = 15
	DefaultCubeSize        = 50.0
	DefaultBPM             = 86.0
	DefaultSensitivity     = 0.3
	DefaultEnergyThreshold = 150.0
	DefaultCooldownMs      = 300
	DefaultBandLow         = 1.0
	DefaultBandHigh        = 240.0
	DefaultSmoothing       = 0.8
	DefaultBins            = 1024
	DefaultFPS             = 60
)

const (
	ModeTempo  = "tempo"
	ModePeak   = "peak"
	ModeManual = "manual"

	PointerStep   = "step"
	PointerToggle = "toggle"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Value   any
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s = %v", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Wrapped
}

type Config struct {
	GridSize int            `yaml:"grid_size"`
	CubeSize float64        `yaml:"cube_size"`
	Mode     string         `yaml:"mode"`
	Pointer  string         `yaml:"pointer"`
	Seed     int64          `yaml:"seed"`
	Camera   CameraConfig   `yaml:"camera"`
	Tempo    TempoConfig    `yaml:"tempo"`
	Peak     PeakConfig     `yaml:"peak"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Render   RenderConfig   `yaml:"render"`
}

type CameraConfig struct {
	Eye     [3]float64 `yaml:"eye"`
	Center  [3]float64 `yaml:"center"`
	Up      [3]float64 `yaml:"up"`
	Axis    string     `yaml:"axis"`
	Reentry string     `yaml:"reentry"`
}

type TempoConfig struct {
	BPM float64 `yaml:"bpm"`
}

type PeakConfig struct {
	Sensitivity     float64 `yaml:"sensitivity"`
	EnergyThreshold float64 `yaml:"energy_threshold"`
	CooldownMs      int     `yaml:"cooldown_ms"`
	BandLow         float64 `yaml:"band_low"`
	BandHigh        float64 `yaml:"band_high"`
}

type AnalysisConfig struct {
	Smoothing float64 `yaml:"smoothing"`
	Bins      int     `yaml:"bins"`
}

type RenderConfig struct {
	FPS   int    `yaml:"fps"`
	Theme string `yaml:"theme"`
}

func DefaultConfig() *Config {
	return &Config{
		GridSize: DefaultGridSize,
		CubeSize: DefaultCubeSize,
		Mode:     ModePeak,
		Camera: CameraConfig{
			Eye:     [3]float64{1728, 800, 1412},
			Center:  [3]float64{375, 25, 375},
			Up:      [3]float64{1, 0, 0.7},
			Axis:    "z",
			Reentry: "extend",
		},
		Tempo: TempoConfig{BPM: DefaultBPM},
		Peak: PeakConfig{
			Sensitivity:     DefaultSensitivity,
			EnergyThreshold: DefaultEnergyThreshold,
			CooldownMs:      DefaultCooldownMs,
			BandLow:         DefaultBandLow,
			BandHigh:        DefaultBandHigh,
		},
		Analysis: AnalysisConfig{
			Smoothing: DefaultSmoothing,
			Bins:      DefaultBins,
		},
		Render: RenderConfig{
			FPS:   DefaultFPS,
			Theme: "neon",
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base, so a file only needs the
// fields it changes.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// PointerAction resolves the pointer mapping, falling back to the mode default.
func (c *Config) PointerAction() string {
	if c.Pointer != "" {
		return c.Pointer
	}
	if c.Mode == ModePeak {
		return PointerToggle
	}
	return PointerStep
}

// Validate rejects configurations that would produce a degenerate session.
func (c *Config) Validate() error {
	invalid := func(field string, value any) error {
		return &ValidationError{Field: field, Value: value, Wrapped: ErrInvalidConfig}
	}

	if c.GridSize <= 0 {
		return invalid("grid_size", c.GridSize)
	}
	if c.CubeSize <= 0 || math.IsNaN(c.CubeSize) || math.IsInf(c.CubeSize, 0) {
		return invalid("cube_size", c.CubeSize)
	}
	switch c.Mode {
	case ModeTempo, ModePeak, ModeManual:
	default:
		return invalid("mode", c.Mode)
	}
	switch c.Pointer {
	case "", PointerStep, PointerToggle:
	default:
		return invalid("pointer", c.Pointer)
	}
	switch c.Camera.Axis {
	case "x", "y", "z":
	default:
		return invalid("camera.axis", c.Camera.Axis)
	}
	switch c.Camera.Reentry {
	case "extend", "restart", "ignore":
	default:
		return invalid("camera.reentry", c.Camera.Reentry)
	}
	if c.Tempo.BPM <= 0 || math.IsNaN(c.Tempo.BPM) || math.IsInf(c.Tempo.BPM, 0) {
		return invalid("tempo.bpm", c.Tempo.BPM)
	}
	if c.Peak.Sensitivity <= 0 || c.Peak.Sensitivity > 1 {
		return invalid("peak.sensitivity", c.Peak.Sensitivity)
	}
	if c.Peak.EnergyThreshold < 0 || c.Peak.EnergyThreshold > 255 {
		return invalid("peak.energy_threshold", c.Peak.EnergyThreshold)
	}
	if c.Peak.CooldownMs < 0 {
		return invalid("peak.cooldown_ms", c.Peak.CooldownMs)
	}
	if c.Peak.BandLow < 0 || c.Peak.BandHigh <= c.Peak.BandLow {
		return invalid("peak.band", [2]float64{c.Peak.BandLow, c.Peak.BandHigh})
	}
	if c.Analysis.Smoothing < 0 || c.Analysis.Smoothing >= 1 {
		return invalid("analysis.smoothing", c.Analysis.Smoothing)
	}
	if b := c.Analysis.Bins; b < 16 || b&(b-1) != 0 {
		return invalid("analysis.bins", b)
	}
	if c.Render.FPS <= 0 {
		return invalid("render.fps", c.Render.FPS)
	}
	return nil
}
