package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/marbles/internal/scene"
)

// Simulator drives a Stepper over a scene and feeds metrics and observers.
type Simulator struct {
	stepper   *Stepper
	metrics   []Metric
	observers []Observer
}

func New(stepper *Stepper) *Simulator {
	return &Simulator{
		stepper:   stepper,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Stepper() *Stepper { return s.stepper }

// Run advances sc by the given number of steps. Cancellation is checked
// between steps; a step always runs to completion.
func (s *Simulator) Run(ctx context.Context, sc *scene.Scene, steps int) (*Result, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive, got %d", steps)
	}

	result := &Result{
		Contacts: make([]int, 0, steps),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result.InitialEnergy = KineticEnergy(sc)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(sc, result)
			return result, ctx.Err()
		default:
		}

		rep := s.stepper.Step(sc)
		s.observe(sc, rep)

		result.Errors = append(result.Errors, rep.Errors...)
		result.Contacts = append(result.Contacts, rep.Contacts)
		result.StepsTaken++
	}

	s.finish(sc, result)
	return result, nil
}

// RunUntil steps until callback returns false or maxSteps is reached.
func (s *Simulator) RunUntil(ctx context.Context, sc *scene.Scene, maxSteps int, callback func(StepReport) bool) error {
	for i := 0; i < maxSteps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rep := s.stepper.Step(sc)
		s.observe(sc, rep)
		if !callback(rep) {
			return nil
		}
	}
	return nil
}

// Step advances sc once and notifies metrics and observers.
func (s *Simulator) Step(sc *scene.Scene) StepReport {
	rep := s.stepper.Step(sc)
	s.observe(sc, rep)
	return rep
}

// Metrics returns the current value of every registered metric.
func (s *Simulator) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// ResetMetrics clears every registered metric.
func (s *Simulator) ResetMetrics() {
	for _, m := range s.metrics {
		m.Reset()
	}
}

func (s *Simulator) observe(sc *scene.Scene, rep StepReport) {
	for _, m := range s.metrics {
		m.Observe(sc, rep)
	}
	for _, obs := range s.observers {
		obs.OnStep(sc, rep)
	}
}

func (s *Simulator) finish(sc *scene.Scene, result *Result) {
	result.Time = s.stepper.Time()
	result.FinalEnergy = KineticEnergy(sc)
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}
