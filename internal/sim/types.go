package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/marbles/internal/scene"
)

// Config holds the fixed-step solver parameters.
type Config struct {
	Dt         float64
	Iterations int

	// Baumgarte is the fraction of hinge drift fed back per step.
	Baumgarte float64
	// Slop is the penetration left uncorrected to keep contacts stable.
	Slop              float64
	CorrectionPercent float64
	// RestitutionThreshold is the approach speed below which contacts
	// do not bounce.
	RestitutionThreshold float64

	LinearDamping  float64
	AngularDamping float64

	AllowSleep            bool
	LinearSleepTolerance  float64
	AngularSleepTolerance float64
	SleepSteps            int
}

func DefaultConfig() Config {
	return Config{
		Dt:                    1.0 / 60.0,
		Iterations:            10,
		Baumgarte:             0.2,
		Slop:                  0.01,
		CorrectionPercent:     0.8,
		RestitutionThreshold:  1.0,
		AllowSleep:            true,
		LinearSleepTolerance:  0.05,
		AngularSleepTolerance: 0.05,
		SleepSteps:            30,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.Dt > 0) || math.IsInf(c.Dt, 0):
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, c.Dt)
	case c.Iterations < 1:
		return fmt.Errorf("%w: iterations must be at least 1, got %d", ErrInvalidConfig, c.Iterations)
	case c.Baumgarte < 0 || c.Baumgarte > 1:
		return fmt.Errorf("%w: baumgarte must be in [0,1], got %f", ErrInvalidConfig, c.Baumgarte)
	case c.Slop < 0:
		return fmt.Errorf("%w: slop must be non-negative, got %f", ErrInvalidConfig, c.Slop)
	case c.CorrectionPercent < 0 || c.CorrectionPercent > 1:
		return fmt.Errorf("%w: correction percent must be in [0,1], got %f", ErrInvalidConfig, c.CorrectionPercent)
	case c.RestitutionThreshold < 0:
		return fmt.Errorf("%w: restitution threshold must be non-negative, got %f", ErrInvalidConfig, c.RestitutionThreshold)
	case c.LinearDamping < 0 || c.AngularDamping < 0:
		return fmt.Errorf("%w: damping must be non-negative", ErrInvalidConfig)
	case c.AllowSleep && c.SleepSteps < 1:
		return fmt.Errorf("%w: sleep steps must be at least 1, got %d", ErrInvalidConfig, c.SleepSteps)
	}
	return nil
}

// StepReport summarises one fixed step.
type StepReport struct {
	Step           int
	Time           float64
	Contacts       int
	MaxPenetration float64
	Awake          int
	Sleeping       int
	Unstable       []scene.ID
	Errors         []error
}

type Metric interface {
	Name() string
	Observe(sc *scene.Scene, rep StepReport)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(sc *scene.Scene, rep StepReport)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(sc *scene.Scene, rep StepReport)

func (f ObserverFunc) OnStep(sc *scene.Scene, rep StepReport) { f(sc, rep) }

type Result struct {
	StepsTaken    int
	Time          float64
	Contacts      []int
	Metrics       map[string]float64
	Errors        []error
	InitialEnergy float64
	FinalEnergy   float64
}

// KineticEnergy sums the kinetic energy of all dynamic bodies.
func KineticEnergy(sc *scene.Scene) float64 {
	var e float64
	for _, b := range sc.BodyList() {
		e += b.KineticEnergy()
	}
	return e
}

// Settled reports whether every dynamic body is asleep or moving slower
// than the given tolerances.
func Settled(sc *scene.Scene, linTol, angTol float64) bool {
	for _, b := range sc.BodyList() {
		if !b.Awake() {
			continue
		}
		if b.Velocity.Len() > linTol || math.Abs(b.AngularVelocity) > angTol {
			return false
		}
	}
	return true
}
