package automation

import (
	"context"
	"math/rand"
	"time"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/logging"
	"github.com/san-kum/marbles/internal/metrics"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
)

// escapeDistance bounds how far a body may end up from the origin before a
// trial counts as unstable.
const escapeDistance = 1e6

// MonteCarloConfig perturbs the starting position of every dynamic body
// uniformly within Perturbation on each axis.
type MonteCarloConfig struct {
	Trials       int
	Perturbation float64
	Steps        int
	Seed         int64
}

type MonteCarloResult struct {
	Trial    int
	Offsets  map[scene.ID]geom.Vec2
	Unstable int
	Stable   bool
	Metrics  map[string]float64
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, base *scene.Scene, solver sim.Config, log *logging.Logger) ([]MonteCarloResult, error) {
	if log == nil {
		log = logging.Discard()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	results := make([]MonteCarloResult, 0, cfg.Trials)
	for trial := 0; trial < cfg.Trials; trial++ {
		sc := base.Clone()
		offsets := make(map[scene.ID]geom.Vec2)
		for _, b := range sc.BodyList() {
			if b.Static {
				continue
			}
			d := geom.V((rng.Float64()-0.5)*2*cfg.Perturbation, (rng.Float64()-0.5)*2*cfg.Perturbation)
			p := b.Position.Add(d)
			if _, err := sc.SetBody(b.ID, scene.BodyPatch{Position: &p}); err != nil {
				return results, err
			}
			offsets[b.ID] = d
		}

		stepper, err := sim.NewStepper(solver)
		if err != nil {
			return results, err
		}
		run := sim.New(stepper)
		for _, m := range metrics.Defaults() {
			run.AddMetric(m)
		}
		res, err := run.Run(ctx, sc, cfg.Steps)
		if err != nil {
			return results, err
		}

		unstable := int(res.Metrics["unstable"])
		results = append(results, MonteCarloResult{
			Trial:    trial,
			Offsets:  offsets,
			Unstable: unstable,
			Stable:   unstable == 0 && bounded(sc),
			Metrics:  res.Metrics,
		})

		if (trial+1)%10 == 0 {
			log.Info("monte carlo progress", "done", trial+1, "trials", cfg.Trials)
		}
	}
	return results, nil
}

func bounded(sc *scene.Scene) bool {
	for _, b := range sc.BodyList() {
		if !b.IsFinite() || b.Position.Len() > escapeDistance {
			return false
		}
	}
	return true
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stable int, unstable int) {
	for _, r := range results {
		if r.Stable {
			stable++
		} else {
			unstable++
		}
	}
	return
}
