package config

import "sort"

// Presets adjust the default configuration for a kind of scene.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"precise": func(c *Config) {
		c.Solver.Dt = 1.0 / 240.0
		c.Solver.Iterations = 30
		c.Solver.Slop = 0.005
		c.Solver.Baumgarte = 0.1
	},
	"fast": func(c *Config) {
		c.Solver.Dt = 1.0 / 30.0
		c.Solver.Iterations = 4
		c.Solver.SleepSteps = 15
	},
	"bouncy": func(c *Config) {
		c.Material.Restitution = 0.95
		c.Material.Friction = 0.1
		c.Solver.RestitutionThreshold = 0.2
		c.Solver.AllowSleep = false
	},
	"floaty": func(c *Config) {
		c.World.GravityScale = 0.2
		c.Solver.LinearDamping = 0.3
		c.Solver.AngularDamping = 0.3
	},
}

// GetPreset returns a fresh default config with the named preset applied,
// or nil for unknown names.
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
