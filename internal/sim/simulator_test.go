package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

type countingMetric struct {
	steps    int
	contacts int
}

func (m *countingMetric) Name() string { return "counting" }
func (m *countingMetric) Observe(sc *scene.Scene, rep StepReport) {
	m.steps++
	m.contacts += rep.Contacts
}
func (m *countingMetric) Value() float64 { return float64(m.steps) }
func (m *countingMetric) Reset()         { m.steps, m.contacts = 0, 0 }

func dropScene(t *testing.T) *scene.Scene {
	t.Helper()
	sc := scene.New()
	mustBody(t, sc, scene.BodyDef{Shape: mustBox(t, 20, 1), Static: true})
	mustBody(t, sc, scene.BodyDef{Shape: geom.Circle{Radius: 0.5}, Position: geom.V(0, 3)})
	return sc
}

func TestSimulatorRun(t *testing.T) {
	sc := dropScene(t)
	sim := New(newStepper(t))
	metric := &countingMetric{}
	sim.AddMetric(metric)

	var observed int
	sim.AddObserver(ObserverFunc(func(*scene.Scene, StepReport) { observed++ }))

	result, err := sim.Run(context.Background(), sc, 120)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 120 {
		t.Errorf("expected 120 steps, got %d", result.StepsTaken)
	}
	if len(result.Contacts) != 120 {
		t.Errorf("expected 120 contact counts, got %d", len(result.Contacts))
	}
	if observed != 120 {
		t.Errorf("expected observer called 120 times, got %d", observed)
	}
	if result.Metrics["counting"] != 120 {
		t.Errorf("expected metric value 120, got %f", result.Metrics["counting"])
	}
	if metric.contacts == 0 {
		t.Error("expected the ball to touch the floor")
	}
	if math.Abs(result.Time-2) > 1e-9 {
		t.Errorf("expected 2s simulated, got %f", result.Time)
	}
	if result.InitialEnergy != 0 {
		t.Errorf("expected zero initial kinetic energy, got %f", result.InitialEnergy)
	}
}

func TestSimulatorInvalidSteps(t *testing.T) {
	sim := New(newStepper(t))
	for _, steps := range []int{0, -5} {
		if _, err := sim.Run(context.Background(), scene.New(), steps); err == nil {
			t.Errorf("expected error for %d steps", steps)
		}
	}
}

func TestSimulatorCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(newStepper(t)).Run(ctx, dropScene(t), 100)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result == nil || result.StepsTaken != 0 {
		t.Errorf("expected a partial result with no steps, got %+v", result)
	}
}

func TestRunUntilStopsOnCallback(t *testing.T) {
	sc := dropScene(t)
	sim := New(newStepper(t))

	var steps int
	err := sim.RunUntil(context.Background(), sc, 1000, func(rep StepReport) bool {
		steps = rep.Step
		return rep.Contacts == 0
	})
	if err != nil {
		t.Fatal(err)
	}
	if steps == 0 || steps == 1000 {
		t.Errorf("expected to stop at first contact, stopped at %d", steps)
	}
}

func TestEnsembleRunsEachVariant(t *testing.T) {
	sc := dropScene(t)

	loose := DefaultConfig()
	loose.Iterations = 2
	precise := DefaultConfig()
	precise.Iterations = 30

	ens := NewEnsemble(sc, []Variant{{Name: "loose", Config: loose}, {Name: "precise", Config: precise}}, func() []Metric {
		return []Metric{&countingMetric{}}
	})
	results, err := ens.Run(context.Background(), 60)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Name != "loose" || results[1].Name != "precise" {
		t.Fatalf("unexpected results %+v", results)
	}
	for _, r := range results {
		if r.Result.Metrics["counting"] != 60 {
			t.Errorf("%s: expected 60 observed steps, got %f", r.Name, r.Result.Metrics["counting"])
		}
	}

	// the source scene is untouched
	if b := sc.BodyList()[1]; b.Position != geom.V(0, 3) {
		t.Errorf("ensemble mutated the source scene: %v", b.Position)
	}

	bad := DefaultConfig()
	bad.Dt = 0
	if _, err := NewEnsemble(sc, []Variant{{Name: "bad", Config: bad}}, nil).Run(context.Background(), 10); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
