package config

import "sort"

// Presets tweak DefaultConfig into a named starting world.
var Presets = map[string]func(*Config){
	"early": func(c *Config) {},
	"central": func(c *Config) {
		c.Scenario.Kind = "central"
		c.Scenario.GasMass = 1.5
		c.Scenario.Stars = 20
	},
	"galaxy": func(c *Config) {
		c.Scenario.Kind = "galaxy"
		c.Scenario.Stars = 150
		c.Scenario.StarMass = 0.5
		c.Scenario.CentralMass = 400
		c.Scenario.GasMass = 0.05
		c.Scenario.GasSpeed = 0
		c.Bodies.GasCoupling = false
		c.Physics.GravityRadius = 120
		c.Dt = 0.02
	},
	"collapse": func(c *Config) {
		c.Scenario.Kind = "collapse"
		c.Scenario.Stars = 0
		c.Scenario.GasMass = 2
		c.Scenario.GasSpeed = 2
		c.Scenario.MinTemp = 100
		c.Scenario.MaxTemp = 100
		c.Collapse.Threshold = 12
		c.Ticks = 1000
	},
	"dust": func(c *Config) {
		c.Scenario.Kind = "early"
		c.Scenario.Stars = 400
		c.Scenario.StarMass = 0.2
		c.Scenario.StarDensity = 1
		c.Scenario.GasMass = 0.2
		c.Bodies.MinIndexMass = 0.1
	},
	"inert": func(c *Config) {
		c.Gas.SelfGravity = false
		c.Gas.PressureGradient = false
		c.Gas.ParticleGravity = false
		c.Bodies.GasCoupling = false
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
