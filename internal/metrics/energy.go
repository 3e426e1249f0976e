package metrics

import (
	"math"

	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
)

// MechanicalEnergy is kinetic plus gravitational potential energy of the
// dynamic bodies, with potential measured from the world origin.
func MechanicalEnergy(sc *scene.Scene) float64 {
	g := sc.EffectiveGravity()
	var e float64
	for _, b := range sc.BodyList() {
		if b.Static {
			continue
		}
		e += b.KineticEnergy() - b.Mass*g.Dot(b.WorldCenter())
	}
	return e
}

// KineticEnergy reports the mean kinetic energy over the observed steps.
type KineticEnergy struct {
	name    string
	total   float64
	samples int
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(sc *scene.Scene, rep sim.StepReport) {
	k.total += sim.KineticEnergy(sc)
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.total = 0
	k.samples = 0
}

// EnergyDrift reports the largest relative change of mechanical energy
// against the first observed step.
type EnergyDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(sc *scene.Scene, rep sim.StepReport) {
	energy := MechanicalEnergy(sc)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
