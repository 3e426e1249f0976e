package engine

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/san-kum/marbles/internal/codec"
	"github.com/san-kum/marbles/internal/logging"
)

const (
	autosaveMaxFailures = 3
	autosaveCooldown    = 2 * time.Minute
)

// newAutosaveBreaker stops autosave attempts after repeated storage
// failures and retries once the cooldown has passed.
func newAutosaveBreaker(log *logging.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "autosave",
		MaxRequests: 1,
		Timeout:     autosaveCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= autosaveMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// Autosave writes the scene under the configured autosave name when it
// has unsaved changes. While the breaker is open it returns
// gobreaker.ErrOpenState without touching storage.
func (s *Session) Autosave() error {
	if s.store == nil {
		return ErrNoStore
	}
	if !s.dirty {
		return nil
	}
	doc := codec.Encode(s.scene)
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.SaveScene(s.cfg.Autosave.Name, doc, codec.JSON)
	})
	switch {
	case err == nil:
		s.dirty = false
		s.log.Debug("autosaved", "name", s.cfg.Autosave.Name)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		s.log.Debug("autosave skipped", "state", s.breaker.State().String())
	default:
		s.log.Err("autosave failed", err, "name", s.cfg.Autosave.Name)
	}
	return err
}

// AutosaveState reports the breaker state guarding autosave.
func (s *Session) AutosaveState() gobreaker.State {
	return s.breaker.State()
}
