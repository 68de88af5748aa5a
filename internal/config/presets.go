package config

import "sort"

// Presets are partial overlays applied on top of DefaultConfig.
var Presets = map[string]func(*Config){
	"tempo": func(c *Config) {
		c.Mode = ModeTempo
		c.Tempo.BPM = DefaultBPM
	},
	"chord": func(c *Config) {
		c.Mode = ModePeak
		c.Peak.Sensitivity = DefaultSensitivity
		c.Peak.CooldownMs = DefaultCooldownMs
	},
	"pluck": func(c *Config) {
		c.Mode = ModePeak
		c.Peak.Sensitivity = 0.2
		c.Peak.EnergyThreshold = 180
		c.Peak.CooldownMs = 150
	},
	"strum": func(c *Config) {
		c.Mode = ModePeak
		c.Peak.Sensitivity = 0.45
		c.Peak.BandLow = 80
		c.Peak.BandHigh = 1200
		c.Peak.CooldownMs = 450
	},
	"fast": func(c *Config) {
		c.Mode = ModeTempo
		c.Tempo.BPM = 172
		c.GridSize = 9
	},
	"manual": func(c *Config) {
		c.Mode = ModeManual
		c.Pointer = PointerStep
	},
}

// GetPreset returns the default config with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
