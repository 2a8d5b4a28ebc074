package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if !cfg.Gas.SelfGravity || !cfg.Gas.PressureGradient || !cfg.Gas.ParticleGravity || !cfg.Bodies.GasCoupling {
		t.Error("force terms should default on")
	}
	if cfg.Gas.ConserveMass {
		t.Error("mass correction should default off")
	}
}

func TestDomainIsCentered(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grid = GridConfig{Width: 10, Height: 20, CellSize: 2}

	d, err := cfg.Domain()
	if err != nil {
		t.Fatalf("domain: %v", err)
	}
	if d.Min.X != -10 || d.Min.Y != -20 || d.Size.X != 20 || d.Size.Y != 40 {
		t.Errorf("unexpected domain %+v", d)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative ticks", func(c *Config) { c.Ticks = -1 }},
		{"zero width", func(c *Config) { c.Grid.Width = 0 }},
		{"zero cell size", func(c *Config) { c.Grid.CellSize = 0 }},
		{"collision multiplier", func(c *Config) { c.Bodies.CollisionMultiplier = 0.5 }},
		{"min distance", func(c *Config) { c.Physics.MinDistanceSq = 0 }},
		{"gas constant", func(c *Config) { c.Physics.GasConstant = -1 }},
		{"collapse density", func(c *Config) { c.Collapse.Threshold = 1; c.Collapse.Density = 0 }},
		{"temperature range", func(c *Config) { c.Scenario.MinTemp = 50; c.Scenario.MaxTemp = 10 }},
		{"star density", func(c *Config) { c.Scenario.StarDensity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Grid.Width = 32
	cfg.Gas.ConserveMass = true
	cfg.Scenario.Kind = "galaxy"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	data := "dt: 0.2\ngas:\n  conserve_mass: true\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Dt != 0.2 {
		t.Errorf("expected dt 0.2, got %v", loaded.Dt)
	}
	if !loaded.Gas.ConserveMass || !loaded.Gas.SelfGravity {
		t.Errorf("expected file toggle plus default toggles, got %+v", loaded.Gas)
	}
	if loaded.Grid.Width != DefaultWidth {
		t.Errorf("expected default width, got %d", loaded.Grid.Width)
	}
}

func TestLoadOntoKeepsPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("seed: 9\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadOnto(path, GetPreset("galaxy"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Seed != 9 {
		t.Errorf("expected seed 9, got %d", loaded.Seed)
	}
	if loaded.Scenario.Kind != "galaxy" || loaded.Dt != 0.02 {
		t.Errorf("expected galaxy preset values to survive, got %q dt %v", loaded.Scenario.Kind, loaded.Dt)
	}
}

func TestLoadOnto_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dt: [1, 2"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOnto(path, DefaultConfig()); err == nil {
		t.Error("expected parse error")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("galaxy")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Scenario.Kind != "galaxy" {
		t.Errorf("expected galaxy scenario, got %s", cfg.Scenario.Kind)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("galaxy preset invalid: %v", err)
	}

	cfg.Dt = 99
	if GetPreset("galaxy").Dt == 99 {
		t.Error("presets must return fresh configs")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}
