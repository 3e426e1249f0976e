package sim

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"zero dt", func(c *Config) { c.Dt = 0 }, false},
		{"negative dt", func(c *Config) { c.Dt = -0.1 }, false},
		{"no iterations", func(c *Config) { c.Iterations = 0 }, false},
		{"baumgarte above one", func(c *Config) { c.Baumgarte = 1.5 }, false},
		{"negative slop", func(c *Config) { c.Slop = -0.01 }, false},
		{"negative damping", func(c *Config) { c.LinearDamping = -1 }, false},
		{"sleep without steps", func(c *Config) { c.SleepSteps = 0 }, false},
		{"no sleep without steps", func(c *Config) { c.AllowSleep = false; c.SleepSteps = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid config, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewStepperRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dt = 0
	if _, err := NewStepper(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
