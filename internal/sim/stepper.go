package sim

import (
	"math"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

type savedState struct {
	position geom.Vec2
	angle    float64
}

// Stepper advances a scene by fixed steps with a sequential-impulse
// solver. It keeps scratch buffers between steps and is not safe for
// concurrent use.
type Stepper struct {
	cfg  Config
	step int

	saved    []savedState
	proxies  []proxy
	pairs    []pair
	contacts []contact
	hinges   []hingeJoint
}

func NewStepper(cfg Config) (*Stepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Stepper{cfg: cfg}, nil
}

func (s *Stepper) Config() Config { return s.cfg }

func (s *Stepper) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// Steps returns the number of steps taken so far.
func (s *Stepper) Steps() int { return s.step }

func (s *Stepper) Time() float64 { return float64(s.step) * s.cfg.Dt }

// Reset zeroes the step counter, e.g. after a scene is replaced.
func (s *Stepper) Reset() { s.step = 0 }

// Step advances sc by one fixed time step:
//
//  1. wake bodies joined to awake bodies
//  2. apply gravity, damping and spring forces to velocities
//  3. find contacts (sort-and-sweep, then exact tests)
//  4. solve hinges and contacts for Iterations passes in id order
//  5. integrate positions, then push residual overlap apart
//  6. update sleep state
//
// A body that ends up with a non-finite state is put back where it was
// at the start of the step with zero velocity and reported in the
// returned StepReport. The rest of the scene still advances.
func (s *Stepper) Step(sc *scene.Scene) StepReport {
	s.step++
	dt := s.cfg.Dt
	rep := StepReport{Step: s.step, Time: s.Time()}

	bodies := sc.BodyList()
	constraints := sc.ConstraintList()

	propagateWake(sc, constraints)
	s.save(bodies)

	s.integrateVelocities(sc, bodies, dt)
	s.applySprings(sc, constraints, dt)

	pairs := s.broadPhase(bodies, filterPairs(constraints))
	s.narrowPhase(pairs)
	rep.Contacts = len(s.contacts)

	s.prepareContacts()
	s.prepareHinges(sc, constraints, dt)
	for i := 0; i < s.cfg.Iterations; i++ {
		s.solveHinges()
		s.solveContacts()
	}

	s.integratePositions(bodies, dt)
	s.restoreNonFinite(bodies, &rep)
	rep.MaxPenetration = s.correctPositions()
	s.updateSleep(bodies)

	for _, b := range bodies {
		switch {
		case b.Static:
		case b.Sleeping:
			rep.Sleeping++
		default:
			rep.Awake++
		}
	}
	return rep
}

func propagateWake(sc *scene.Scene, constraints []scene.Constraint) {
	for changed := true; changed; {
		changed = false
		for _, c := range constraints {
			ia, ib := c.Endpoints()
			a, b := sc.Lookup(ia), sc.Lookup(ib)
			if a == nil || b == nil {
				continue
			}
			if a.Awake() && b.Sleeping {
				b.Wake()
				changed = true
			}
			if b.Awake() && a.Sleeping {
				a.Wake()
				changed = true
			}
		}
	}
}

func (s *Stepper) save(bodies []*scene.Body) {
	s.saved = s.saved[:0]
	for _, b := range bodies {
		s.saved = append(s.saved, savedState{position: b.Position, angle: b.Angle})
	}
}

func (s *Stepper) integrateVelocities(sc *scene.Scene, bodies []*scene.Body, dt float64) {
	g := sc.EffectiveGravity()
	linDamp := 1 / (1 + dt*s.cfg.LinearDamping)
	angDamp := 1 / (1 + dt*s.cfg.AngularDamping)

	for _, b := range bodies {
		if !b.Awake() {
			continue
		}
		b.Velocity = b.Velocity.Add(g.Scale(dt)).Scale(linDamp)
		b.AngularVelocity *= angDamp
	}
}

// integratePositions moves each body's centre of mass by its velocity and
// rotates about that centre.
func (s *Stepper) integratePositions(bodies []*scene.Body, dt float64) {
	for _, b := range bodies {
		if !b.Awake() {
			continue
		}
		if b.Velocity.IsZero() && b.AngularVelocity == 0 {
			continue
		}
		center := b.WorldCenter().Add(b.Velocity.Scale(dt))
		b.Angle += b.AngularVelocity * dt
		b.Position = center.Sub(b.Centroid.Rotate(b.Angle))
	}
}

func (s *Stepper) restoreNonFinite(bodies []*scene.Body, rep *StepReport) {
	for i, b := range bodies {
		if b.Static || b.IsFinite() {
			continue
		}
		prev := s.saved[i]
		b.Position = prev.position
		b.Angle = prev.angle
		b.Velocity = geom.Vec2{}
		b.AngularVelocity = 0
		b.Unstable = true

		rep.Unstable = append(rep.Unstable, b.ID)
		rep.Errors = append(rep.Errors, &BodyError{Body: b.ID, Step: s.step, Wrapped: ErrNumericInstability})
	}
}

func (s *Stepper) updateSleep(bodies []*scene.Body) {
	linTol := s.cfg.LinearSleepTolerance
	angTol := s.cfg.AngularSleepTolerance

	for _, b := range bodies {
		if b.Static {
			continue
		}
		if !s.cfg.AllowSleep {
			b.Wake()
			continue
		}
		if b.Sleeping {
			continue
		}
		if b.Velocity.LenSq() > linTol*linTol || math.Abs(b.AngularVelocity) > angTol {
			b.SleepSteps = 0
			continue
		}
		b.SleepSteps++
		if b.SleepSteps >= s.cfg.SleepSteps {
			b.Sleeping = true
			b.Velocity = geom.Vec2{}
			b.AngularVelocity = 0
		}
	}
}
