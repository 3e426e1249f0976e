package engine

import (
	"context"
	"time"

	"github.com/san-kum/marbles/internal/history"
	"github.com/san-kum/marbles/internal/scene"
)

type request struct {
	fn    func(*Session) error
	reply chan error
}

type loopState struct {
	done chan struct{}
}

// Running reports whether a Run loop owns the session.
func (s *Session) Running() bool { return s.loop.Load() != nil }

// Do runs fn on the goroutine that owns the session, between two steps.
// It fails with ErrNotRunning when no loop is active.
func (s *Session) Do(ctx context.Context, fn func(*Session) error) error {
	loop := s.loop.Load()
	if loop == nil {
		return ErrNotRunning
	}
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-loop.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues an edit for the session loop and waits for its result.
func (s *Session) Submit(ctx context.Context, cmd history.Command) error {
	return s.Do(ctx, func(s *Session) error { return s.Apply(cmd) })
}

func (s *Session) SubmitUndo(ctx context.Context) error {
	return s.Do(ctx, func(s *Session) error {
		_, err := s.Undo()
		return err
	})
}

func (s *Session) SubmitRedo(ctx context.Context) error {
	return s.Do(ctx, func(s *Session) error {
		_, err := s.Redo()
		return err
	})
}

// SnapshotAsync copies the scene from the loop goroutine.
func (s *Session) SnapshotAsync(ctx context.Context) (*scene.Scene, error) {
	var snap *scene.Scene
	err := s.Do(ctx, func(s *Session) error {
		snap = s.Snapshot()
		return nil
	})
	return snap, err
}

// Run steps the scene at wall-clock rate until ctx is done, serving queued
// requests between steps. speed scales simulated time against wall time;
// values of zero or below mean real time. Cancellation is only observed
// between steps.
func (s *Session) Run(ctx context.Context, speed float64) error {
	loop := &loopState{done: make(chan struct{})}
	if !s.loop.CompareAndSwap(nil, loop) {
		return ErrAlreadyRunning
	}
	defer func() {
		s.loop.Store(nil)
		close(loop.done)
	}()

	if speed <= 0 {
		speed = 1
	}
	period := time.Duration(s.cfg.Solver.Dt / speed * float64(time.Second))
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var autosave <-chan time.Time
	if s.cfg.Autosave.Enabled && s.store != nil {
		t := time.NewTicker(s.cfg.Autosave.Interval)
		defer t.Stop()
		autosave = t.C
	}

	s.log.Info("session loop started", "dt", s.cfg.Solver.Dt, "speed", speed)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("session loop stopped", "steps", s.sim.Stepper().Steps())
			return ctx.Err()
		case req := <-s.requests:
			req.reply <- req.fn(s)
		case <-ticker.C:
			if !s.paused {
				s.Tick()
			}
		case <-autosave:
			_ = s.Autosave()
		}
	}
}
