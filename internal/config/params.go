package config

import "fmt"

// GetParams exposes the numeric knobs that scenarios and sweeps may tune.
func (c *Config) GetParams() map[string]float64 {
	return map[string]float64{
		"bpm":              c.Tempo.BPM,
		"sensitivity":      c.Peak.Sensitivity,
		"energy_threshold": c.Peak.EnergyThreshold,
		"cooldown_ms":      float64(c.Peak.CooldownMs),
		"band_low":         c.Peak.BandLow,
		"band_high":        c.Peak.BandHigh,
		"smoothing":        c.Analysis.Smoothing,
		"grid_size":        float64(c.GridSize),
		"cube_size":        c.CubeSize,
	}
}

// SetParam sets one knob by name. The result is not validated.
func (c *Config) SetParam(name string, value float64) error {
	switch name {
	case "bpm":
		c.Tempo.BPM = value
	case "sensitivity":
		c.Peak.Sensitivity = value
	case "energy_threshold":
		c.Peak.EnergyThreshold = value
	case "cooldown_ms":
		c.Peak.CooldownMs = int(value)
	case "band_low":
		c.Peak.BandLow = value
	case "band_high":
		c.Peak.BandHigh = value
	case "smoothing":
		c.Analysis.Smoothing = value
	case "grid_size":
		c.GridSize = int(value)
	case "cube_size":
		c.CubeSize = value
	default:
		return fmt.Errorf("config: unknown param: %s", name)
	}
	return nil
}
