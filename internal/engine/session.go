// Package engine owns a live scene together with its undo history and
// stepper. One goroutine owns a Session: either the caller, using the
// direct methods, or the loop started by Run, in which case other
// goroutines go through Do, Submit and the other queued methods.
package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/sony/gobreaker"

	"github.com/san-kum/marbles/internal/codec"
	"github.com/san-kum/marbles/internal/config"
	"github.com/san-kum/marbles/internal/history"
	"github.com/san-kum/marbles/internal/logging"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
	"github.com/san-kum/marbles/internal/storage"
	"github.com/san-kum/marbles/internal/templates"
)

type Options struct {
	// Name is used for log lines and as the default trace scene name.
	Name    string
	Config  *config.Config
	Store   *storage.Store
	Logger  *logging.Logger
	Metrics []sim.Metric
}

type Session struct {
	id      string
	name    string
	cfg     *config.Config
	scene   *scene.Scene
	history *history.Manager
	sim     *sim.Simulator
	store   *storage.Store
	log     *logging.Logger
	breaker *gobreaker.CircuitBreaker

	requests chan request
	loop     atomic.Pointer[loopState]
	paused   bool
	dirty    bool
	last     sim.StepReport
}

// New creates a session around sc. A nil scene starts empty with the
// configured gravity.
func New(sc *scene.Scene, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stepper, err := sim.NewStepper(cfg.SolverConfig())
	if err != nil {
		return nil, err
	}
	if sc == nil {
		sc = cfg.NewScene()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	s := &Session{
		id:       logging.NewSessionID(),
		name:     opts.Name,
		cfg:      cfg,
		scene:    sc,
		history:  history.NewManager(sc, cfg.History.Limit),
		sim:      sim.New(stepper),
		store:    opts.Store,
		requests: make(chan request),
	}
	s.log = log.With("session", s.id)
	if s.name == "" {
		s.name = "untitled"
	}
	for _, m := range opts.Metrics {
		s.sim.AddMetric(m)
	}
	s.breaker = newAutosaveBreaker(s.log)
	return s, nil
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) Name() string               { return s.name }
func (s *Session) Config() *config.Config     { return s.cfg }
func (s *Session) History() *history.Manager  { return s.history }
func (s *Session) Simulator() *sim.Simulator  { return s.sim }
func (s *Session) LastReport() sim.StepReport { return s.last }
func (s *Session) Store() *storage.Store      { return s.store }
func (s *Session) Paused() bool               { return s.paused }
func (s *Session) SetPaused(p bool)           { s.paused = p }

// Dirty reports whether the scene changed since it was loaded or saved.
func (s *Session) Dirty() bool { return s.dirty }

// Scene returns the live scene. Only the owner may touch it.
func (s *Session) Scene() *scene.Scene { return s.scene }

// Snapshot returns a deep copy of the scene for readers.
func (s *Session) Snapshot() *scene.Scene { return s.scene.Clone() }

func (s *Session) AddObserver(o sim.Observer) { s.sim.AddObserver(o) }

// Apply executes an edit through the history manager.
func (s *Session) Apply(cmd history.Command) error {
	if err := s.history.Execute(cmd); err != nil {
		s.log.Debug("command rejected", "command", cmd.Name(), "error", err)
		return err
	}
	s.dirty = true
	s.log.Debug("command applied", "command", cmd.Name(), "bodies", s.scene.BodyCount(), "constraints", s.scene.ConstraintCount())
	return nil
}

// Build adds a template to the scene as one undo step, using the
// configured default material.
func (s *Session) Build(reg *templates.Registry, name string) error {
	if err := reg.Build(name, s.history, s.cfg.DefaultMaterial()); err != nil {
		s.log.Debug("template rejected", "template", name, "error", err)
		return err
	}
	s.dirty = true
	s.log.Debug("template built", "template", name, "bodies", s.scene.BodyCount())
	return nil
}

func (s *Session) Undo() (history.Command, error) {
	cmd, err := s.history.Undo()
	if err != nil {
		return nil, err
	}
	s.dirty = true
	s.log.Debug("undo", "command", cmd.Name())
	return cmd, nil
}

func (s *Session) Redo() (history.Command, error) {
	cmd, err := s.history.Redo()
	if err != nil {
		return nil, err
	}
	s.dirty = true
	s.log.Debug("redo", "command", cmd.Name())
	return cmd, nil
}

// Tick advances the scene one fixed step.
func (s *Session) Tick() sim.StepReport {
	rep := s.sim.Step(s.scene)
	s.last = rep
	if len(rep.Unstable) > 0 {
		s.dirty = true
		for _, err := range rep.Errors {
			s.log.Warn("body restored after numeric instability", "step", rep.Step, "error", err)
		}
	}
	return rep
}

// Step advances n fixed steps and returns the last report.
func (s *Session) Step(n int) sim.StepReport {
	var rep sim.StepReport
	for i := 0; i < n; i++ {
		rep = s.Tick()
	}
	return rep
}

// Load replaces the scene with the decoded document and clears the undo
// history. On error the current scene is kept.
func (s *Session) Load(doc *codec.Document) error {
	sc, err := codec.Decode(doc)
	if err != nil {
		s.log.Warn("load rejected", "error", err)
		return err
	}
	s.scene = sc
	s.history.Reset(sc)
	s.sim.Stepper().Reset()
	s.sim.ResetMetrics()
	s.dirty = false
	s.log.Info("scene loaded", "bodies", sc.BodyCount(), "constraints", sc.ConstraintCount())
	return nil
}

// LoadNamed loads a scene from the session store.
func (s *Session) LoadNamed(name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	doc, err := s.store.LoadScene(name)
	if err != nil {
		return err
	}
	if err := s.Load(doc); err != nil {
		return err
	}
	s.name = name
	return nil
}

// Save writes the scene to the session store.
func (s *Session) Save(name string, format codec.Format) error {
	if s.store == nil {
		return ErrNoStore
	}
	if err := s.store.SaveScene(name, codec.Encode(s.scene), format); err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	s.dirty = false
	s.log.Info("scene saved", "name", name, "format", format)
	return nil
}
