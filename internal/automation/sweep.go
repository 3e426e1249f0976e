package automation

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/marbles/internal/logging"
	"github.com/san-kum/marbles/internal/metrics"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
)

// solverParams maps sweepable parameter names onto the solver config.
var solverParams = map[string]func(*sim.Config, float64){
	"dt":                    func(c *sim.Config, v float64) { c.Dt = v },
	"iterations":            func(c *sim.Config, v float64) { c.Iterations = int(v) },
	"baumgarte":             func(c *sim.Config, v float64) { c.Baumgarte = v },
	"slop":                  func(c *sim.Config, v float64) { c.Slop = v },
	"correction_percent":    func(c *sim.Config, v float64) { c.CorrectionPercent = v },
	"restitution_threshold": func(c *sim.Config, v float64) { c.RestitutionThreshold = v },
	"linear_damping":        func(c *sim.Config, v float64) { c.LinearDamping = v },
	"angular_damping":       func(c *sim.Config, v float64) { c.AngularDamping = v },
}

// SweepParams lists the solver parameters a sweep can vary.
func SweepParams() []string {
	names := make([]string, 0, len(solverParams))
	for k := range solverParams {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ParameterSweep runs one scene under evenly spaced values of a solver
// parameter.
type ParameterSweep struct {
	Param  string
	Min    float64
	Max    float64
	Points int
	Steps  int
}

type SweepResult struct {
	ParamValue  float64
	Steps       int
	FinalEnergy float64
	Metrics     map[string]float64
}

// RunSweep runs every point of the sweep in parallel on clones of base.
func RunSweep(ctx context.Context, sweep *ParameterSweep, base *scene.Scene, cfg sim.Config, log *logging.Logger) ([]SweepResult, error) {
	set, ok := solverParams[sweep.Param]
	if !ok {
		return nil, fmt.Errorf("unknown sweep parameter %q (have %v)", sweep.Param, SweepParams())
	}
	if sweep.Points < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", sweep.Points)
	}
	if log == nil {
		log = logging.Discard()
	}

	variants := make([]sim.Variant, sweep.Points)
	values := make([]float64, sweep.Points)
	step := 0.0
	if sweep.Points > 1 {
		step = (sweep.Max - sweep.Min) / float64(sweep.Points-1)
	}
	for i := range variants {
		values[i] = sweep.Min + float64(i)*step
		c := cfg
		set(&c, values[i])
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, values[i], err)
		}
		variants[i] = sim.Variant{Name: fmt.Sprintf("%s=%g", sweep.Param, values[i]), Config: c}
	}

	log.Info("sweep started", "param", sweep.Param, "points", sweep.Points, "steps", sweep.Steps)
	runs, err := sim.NewEnsemble(base, variants, metrics.Defaults).Run(ctx, sweep.Steps)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, run := range runs {
		results[i] = SweepResult{
			ParamValue:  values[i],
			Steps:       run.Result.StepsTaken,
			FinalEnergy: run.Result.FinalEnergy,
			Metrics:     run.Result.Metrics,
		}
		log.Debug("sweep point done", "variant", run.Name, "stability", run.Result.Metrics["stability"])
	}
	return results, nil
}
