package history

import (
	"errors"
	"fmt"
	"slices"

	"github.com/san-kum/marbles/internal/scene"
)

// DefaultLimit is the undo depth used when none is given.
const DefaultLimit = 50

var (
	// ErrEmptyHistory is returned by Undo and Redo when there is nothing to act on.
	ErrEmptyHistory = errors.New("history: nothing to undo or redo")

	// ErrNilCommand is returned when Execute is given a nil command.
	ErrNilCommand = errors.New("history: nil command")
)

// Manager applies commands to a scene and keeps undo and redo stacks.
// The undo stack holds at most Limit commands; the oldest is dropped.
type Manager struct {
	scene    *scene.Scene
	undo     []Command
	redo     []Command
	limit    int
	grouping bool
}

func NewManager(sc *scene.Scene, limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{scene: sc, limit: limit}
}

func (m *Manager) Scene() *scene.Scene { return m.scene }
func (m *Manager) Limit() int          { return m.limit }
func (m *Manager) CanUndo() bool       { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool       { return len(m.redo) > 0 }
func (m *Manager) Len() int            { return len(m.undo) }
func (m *Manager) RedoLen() int        { return len(m.redo) }

// Execute applies cmd, pushes it onto the undo stack and clears the redo
// stack. A failing command leaves both the scene and the stacks unchanged.
func (m *Manager) Execute(cmd Command) error {
	if cmd == nil {
		return ErrNilCommand
	}
	if err := cmd.apply(m.scene); err != nil {
		return err
	}
	m.undo = append(m.undo, cmd)
	m.trim()
	m.redo = m.redo[:0]
	return nil
}

// Group runs fn and folds every command it executes into one undo step
// named label. If fn fails, the commands it executed are reverted, the
// redo stack is put back and the error is returned. fn must only call
// Execute; nested groups flatten.
func (m *Manager) Group(label string, fn func() error) error {
	if m.grouping {
		return fn()
	}
	m.grouping = true
	start := len(m.undo)
	redo := slices.Clone(m.redo)
	err := fn()
	m.grouping = false

	cmds := slices.Clone(m.undo[start:])
	m.undo = m.undo[:start]
	if err != nil {
		rollback(m.scene, cmds)
		m.redo = redo
		return err
	}
	if len(cmds) > 0 {
		m.undo = append(m.undo, &Batch{Label: label, Commands: cmds})
		m.trim()
	}
	return nil
}

func (m *Manager) trim() {
	if m.grouping {
		return
	}
	if over := len(m.undo) - m.limit; over > 0 {
		m.undo = append(m.undo[:0], m.undo[over:]...)
	}
}

// Undo reverts the most recent command.
func (m *Manager) Undo() (Command, error) {
	if len(m.undo) == 0 {
		return nil, fmt.Errorf("%w: undo stack is empty", ErrEmptyHistory)
	}
	cmd := m.undo[len(m.undo)-1]
	if err := cmd.revert(m.scene); err != nil {
		return nil, fmt.Errorf("undo %s: %w", cmd.Name(), err)
	}
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, cmd)
	return cmd, nil
}

// Redo re-applies the most recently undone command.
func (m *Manager) Redo() (Command, error) {
	if len(m.redo) == 0 {
		return nil, fmt.Errorf("%w: redo stack is empty", ErrEmptyHistory)
	}
	cmd := m.redo[len(m.redo)-1]
	if err := cmd.apply(m.scene); err != nil {
		return nil, fmt.Errorf("redo %s: %w", cmd.Name(), err)
	}
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, cmd)
	return cmd, nil
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

// Reset points the manager at a new scene and clears history. Undo never
// crosses a scene replacement.
func (m *Manager) Reset(sc *scene.Scene) {
	m.scene = sc
	m.Clear()
}

// Names lists the undo stack from oldest to newest.
func (m *Manager) Names() []string {
	out := make([]string, len(m.undo))
	for i, c := range m.undo {
		out[i] = c.Name()
	}
	return out
}
