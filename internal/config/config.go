package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
)

const (
	DefaultDataDir          = ".marbles"
	DefaultAutosaveName     = "autosave"
	DefaultAutosaveInterval = 30 * time.Second
	DefaultHistoryLimit     = 50
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Solver   SolverConfig   `yaml:"solver"`
	World    WorldConfig    `yaml:"world"`
	Material MaterialConfig `yaml:"material"`
	History  HistoryConfig  `yaml:"history"`
	Storage  StorageConfig  `yaml:"storage"`
	Autosave AutosaveConfig `yaml:"autosave"`
	Log      LogConfig      `yaml:"log"`
}

type SolverConfig struct {
	Dt                    float64 `yaml:"dt"`
	Iterations            int     `yaml:"iterations"`
	Baumgarte             float64 `yaml:"baumgarte"`
	Slop                  float64 `yaml:"slop"`
	CorrectionPercent     float64 `yaml:"correction_percent"`
	RestitutionThreshold  float64 `yaml:"restitution_threshold"`
	LinearDamping         float64 `yaml:"linear_damping"`
	AngularDamping        float64 `yaml:"angular_damping"`
	AllowSleep            bool    `yaml:"allow_sleep"`
	LinearSleepTolerance  float64 `yaml:"linear_sleep_tolerance"`
	AngularSleepTolerance float64 `yaml:"angular_sleep_tolerance"`
	SleepSteps            int     `yaml:"sleep_steps"`
}

type WorldConfig struct {
	GravityX     float64 `yaml:"gravity_x"`
	GravityY     float64 `yaml:"gravity_y"`
	GravityScale float64 `yaml:"gravity_scale"`
}

// MaterialConfig is the material given to bodies created by templates and
// scenarios that do not name their own.
type MaterialConfig struct {
	Density     float64 `yaml:"density"`
	Friction    float64 `yaml:"friction"`
	Restitution float64 `yaml:"restitution"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type AutosaveConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Name     string        `yaml:"name"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	s := sim.DefaultConfig()
	m := scene.DefaultMaterial()
	return &Config{
		Solver: SolverConfig{
			Dt:                    s.Dt,
			Iterations:            s.Iterations,
			Baumgarte:             s.Baumgarte,
			Slop:                  s.Slop,
			CorrectionPercent:     s.CorrectionPercent,
			RestitutionThreshold:  s.RestitutionThreshold,
			LinearDamping:         s.LinearDamping,
			AngularDamping:        s.AngularDamping,
			AllowSleep:            s.AllowSleep,
			LinearSleepTolerance:  s.LinearSleepTolerance,
			AngularSleepTolerance: s.AngularSleepTolerance,
			SleepSteps:            s.SleepSteps,
		},
		World: WorldConfig{
			GravityX:     scene.DefaultGravity.X,
			GravityY:     scene.DefaultGravity.Y,
			GravityScale: 1,
		},
		Material: MaterialConfig{
			Density:     m.Density,
			Friction:    m.Friction,
			Restitution: m.Restitution,
		},
		History:  HistoryConfig{Limit: DefaultHistoryLimit},
		Storage:  StorageConfig{DataDir: DefaultDataDir},
		Autosave: AutosaveConfig{Interval: DefaultAutosaveInterval, Name: DefaultAutosaveName},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.SolverConfig().Validate(); err != nil {
		return err
	}
	g := c.Gravity()
	if !g.IsFinite() || math.IsNaN(c.World.GravityScale) || math.IsInf(c.World.GravityScale, 0) {
		return fmt.Errorf("%w: gravity must be finite", ErrInvalid)
	}
	if err := c.DefaultMaterial().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("%w: history limit must be non-negative, got %d", ErrInvalid, c.History.Limit)
	}
	if c.Autosave.Enabled && c.Autosave.Interval <= 0 {
		return fmt.Errorf("%w: autosave interval must be positive, got %v", ErrInvalid, c.Autosave.Interval)
	}
	return nil
}

// SolverConfig converts the solver section into stepper parameters.
func (c *Config) SolverConfig() sim.Config {
	s := c.Solver
	return sim.Config{
		Dt:                    s.Dt,
		Iterations:            s.Iterations,
		Baumgarte:             s.Baumgarte,
		Slop:                  s.Slop,
		CorrectionPercent:     s.CorrectionPercent,
		RestitutionThreshold:  s.RestitutionThreshold,
		LinearDamping:         s.LinearDamping,
		AngularDamping:        s.AngularDamping,
		AllowSleep:            s.AllowSleep,
		LinearSleepTolerance:  s.LinearSleepTolerance,
		AngularSleepTolerance: s.AngularSleepTolerance,
		SleepSteps:            s.SleepSteps,
	}
}

func (c *Config) Gravity() geom.Vec2 {
	return geom.V(c.World.GravityX, c.World.GravityY)
}

func (c *Config) DefaultMaterial() scene.Material {
	return scene.Material{
		Density:     c.Material.Density,
		Friction:    c.Material.Friction,
		Restitution: c.Material.Restitution,
	}
}

// NewScene returns an empty scene with the configured gravity.
func (c *Config) NewScene() *scene.Scene {
	sc := scene.New()
	sc.Gravity = c.Gravity()
	sc.GravityScale = c.World.GravityScale
	return sc
}
