package sim

import (
	"context"
	"sync"

	"github.com/san-kum/marbles/internal/scene"
)

// Variant is one named solver configuration in an ensemble.
type Variant struct {
	Name   string
	Config Config
}

type EnsembleResult struct {
	Name   string
	Result *Result
	Final  *scene.Scene
}

// Ensemble runs the same scene under several solver configurations, each
// on its own clone, in parallel.
type Ensemble struct {
	base     *scene.Scene
	variants []Variant
	metrics  func() []Metric
}

// NewEnsemble clones base up front so the caller may keep editing it.
// newMetrics, when non-nil, builds a fresh metric set for every variant.
func NewEnsemble(base *scene.Scene, variants []Variant, newMetrics func() []Metric) *Ensemble {
	return &Ensemble{base: base.Clone(), variants: variants, metrics: newMetrics}
}

func (e *Ensemble) Run(ctx context.Context, steps int) ([]EnsembleResult, error) {
	results := make([]EnsembleResult, len(e.variants))
	errs := make([]error, len(e.variants))

	var wg sync.WaitGroup
	for i, v := range e.variants {
		wg.Add(1)
		go func(idx int, v Variant) {
			defer wg.Done()

			stepper, err := NewStepper(v.Config)
			if err != nil {
				errs[idx] = err
				return
			}
			sim := New(stepper)
			if e.metrics != nil {
				for _, m := range e.metrics() {
					sim.AddMetric(m)
				}
			}

			sc := e.base.Clone()
			res, err := sim.Run(ctx, sc, steps)
			results[idx] = EnsembleResult{Name: v.Name, Result: res, Final: sc}
			errs[idx] = err
		}(i, v)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
