package metrics

import (
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
)

// Stability is the fraction of steps in which no body went unstable.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(sc *scene.Scene, rep sim.StepReport) {
	s.samples++
	if len(rep.Unstable) > 0 {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Unstable counts body restores after numeric blow-ups.
type Unstable struct {
	name  string
	count int
}

func NewUnstable() *Unstable {
	return &Unstable{name: "unstable"}
}

func (u *Unstable) Name() string { return u.name }

func (u *Unstable) Observe(sc *scene.Scene, rep sim.StepReport) {
	u.count += len(rep.Unstable)
}

func (u *Unstable) Value() float64 { return float64(u.count) }
func (u *Unstable) Reset()         { u.count = 0 }

// SleepRatio is the fraction of dynamic bodies asleep at the last step.
type SleepRatio struct {
	name  string
	ratio float64
}

func NewSleepRatio() *SleepRatio {
	return &SleepRatio{name: "sleep_ratio"}
}

func (s *SleepRatio) Name() string { return s.name }

func (s *SleepRatio) Observe(sc *scene.Scene, rep sim.StepReport) {
	total := rep.Awake + rep.Sleeping
	if total == 0 {
		s.ratio = 0
		return
	}
	s.ratio = float64(rep.Sleeping) / float64(total)
}

func (s *SleepRatio) Value() float64 { return s.ratio }
func (s *SleepRatio) Reset()         { s.ratio = 0 }

// Defaults returns a fresh set of the standard run metrics.
func Defaults() []sim.Metric {
	return []sim.Metric{
		NewKineticEnergy(),
		NewEnergyDrift(),
		NewMaxPenetration(),
		NewContacts(),
		NewStability(),
		NewUnstable(),
		NewSleepRatio(),
	}
}
