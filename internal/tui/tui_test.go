package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/marbles/internal/config"
	"github.com/san-kum/marbles/internal/engine"
	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
	"github.com/san-kum/marbles/internal/storage"
)

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func newModel(t *testing.T) Model {
	t.Helper()
	sess, err := engine.New(nil, engine.Options{Name: "sandbox", Store: storage.New(t.TempDir())})
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(sess, nil, "sandbox")
}

func TestCanvasProjection(t *testing.T) {
	c := NewCanvas(40, 20)
	c.center = geom.V(0, 0)
	c.scale = 2

	tests := []struct {
		p        geom.Vec2
		col, row int
	}{
		{geom.V(0, 0), 20, 10},
		{geom.V(5, 0), 30, 10},
		{geom.V(0, 4), 20, 6},
		{geom.V(-10, -10), 0, 20},
	}
	for _, tt := range tests {
		col, row := c.Cell(tt.p)
		if col != tt.col || row != tt.row {
			t.Errorf("Cell(%v) = %d,%d, want %d,%d", tt.p, col, row, tt.col, tt.row)
		}
		back := c.World(col, row)
		if bc, br := c.Cell(back); bc != col || br != row {
			t.Errorf("World(%d,%d) does not map back to its cell", col, row)
		}
	}
}

func TestCanvasDraw(t *testing.T) {
	sc := scene.New()
	floor, _ := geom.NewBox(16, 1)
	if _, err := sc.CreateBody(scene.BodyDef{Shape: floor, Static: true}); err != nil {
		t.Fatal(err)
	}
	a, _ := sc.CreateBody(scene.BodyDef{Shape: geom.Circle{Radius: 1}, Position: geom.V(-3, 4)})
	b, _ := sc.CreateBody(scene.BodyDef{Shape: geom.Circle{Radius: 1}, Position: geom.V(3, 4)})
	if _, err := sc.CreateSpring(scene.SpringDef{BodyA: a, BodyB: b, RestLength: 6, Stiffness: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := sc.CreateHinge(scene.HingeDef{BodyA: scene.WorldID, BodyB: a, AnchorA: geom.V(-3, 4)}); err != nil {
		t.Fatal(err)
	}

	c := NewCanvas(60, 20)
	c.Fit(sc)
	c.Draw(sc)
	out := c.String()
	for _, r := range []string{"=", "#", "~", "+"} {
		if !strings.Contains(out, r) {
			t.Errorf("expected %q in render:\n%s", r, out)
		}
	}
	if len(c.Rows()) != 20 {
		t.Errorf("expected 20 rows, got %d", len(c.Rows()))
	}
}

func TestModelEdits(t *testing.T) {
	m := newModel(t)
	sc := func() *scene.Scene { return m.sess.Scene() }

	m = press(t, m, "b")
	if sc().BodyCount() != 1 {
		t.Fatalf("expected a ball, got %d bodies", sc().BodyCount())
	}
	m = press(t, m, "u")
	if sc().BodyCount() != 0 {
		t.Errorf("undo should remove the ball")
	}
	m = press(t, m, "r")
	if sc().BodyCount() != 1 {
		t.Errorf("redo should restore the ball")
	}
	m = press(t, m, "x")
	if sc().BodyCount() != 0 {
		t.Errorf("x should delete the body under the cursor")
	}
	m = press(t, m, "x")
	if m.status != "nothing under the cursor" {
		t.Errorf("unexpected status %q", m.status)
	}

	m = press(t, m, "g")
	if !sc().Gravity.IsZero() {
		t.Errorf("g should zero gravity, got %v", sc().Gravity)
	}
	m = press(t, m, "g")
	if sc().Gravity != m.sess.Config().Gravity() {
		t.Errorf("second g should restore gravity, got %v", sc().Gravity)
	}

	m = press(t, m, "t")
	if sc().BodyCount() == 0 {
		t.Error("t should add a template")
	}
	m = press(t, m, "s")
	if m.failed || m.sess.Dirty() {
		t.Errorf("save failed: %q", m.status)
	}
}

func TestModelPauseAndStep(t *testing.T) {
	m := newModel(t)
	m = press(t, m, "b", " ")
	if !m.sess.Paused() {
		t.Fatal("space should pause")
	}
	if !strings.Contains(m.View(), "paused") {
		t.Error("view should show paused")
	}

	next, _ := m.Update(tickMsg{})
	m = next.(Model)
	if m.sess.Simulator().Stepper().Steps() != 0 {
		t.Error("paused model should not step on tick")
	}
	m = press(t, m, "n")
	if m.sess.Simulator().Stepper().Steps() != 1 {
		t.Error("n should single step while paused")
	}

	m = press(t, m, " ")
	next, cmd := m.Update(tickMsg{})
	m = next.(Model)
	if m.sess.Simulator().Stepper().Steps() != 2 || cmd == nil {
		t.Error("running model should step and schedule the next tick")
	}

	_, cmd = m.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestSparkline(t *testing.T) {
	if got := sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8); got != "▁▂▃▄▅▆▇█" {
		t.Errorf("unexpected sparkline %q", got)
	}
	if got := sparkline([]float64{2, 2}, 8); got != "▁▁" {
		t.Errorf("flat data: got %q", got)
	}
}

func TestLiveRenders(t *testing.T) {
	var buf bytes.Buffer
	l := NewLive(&buf, "drop", 1000)
	sc := scene.New()
	if _, err := sc.CreateBody(scene.BodyDef{Shape: geom.Circle{Radius: 1}}); err != nil {
		t.Fatal(err)
	}
	l.OnStep(sc, sim.StepReport{Step: 1, Time: 0.5, Awake: 1})
	out := buf.String()
	if !strings.Contains(out, "drop") || !strings.Contains(out, "awake=1") {
		t.Errorf("unexpected frame:\n%s", out)
	}
}

func autosaveModel(t *testing.T, st *storage.Store) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Autosave.Enabled = true
	cfg.Autosave.Interval = time.Second
	sess, err := engine.New(nil, engine.Options{Name: "sandbox", Config: cfg, Store: st})
	if err != nil {
		t.Fatal(err)
	}
	return NewModel(sess, nil, "sandbox")
}

func TestModelAutosave(t *testing.T) {
	if newModel(t).autosaveTick() != nil {
		t.Error("expected no autosave tick when autosave is off")
	}

	st := storage.New(t.TempDir())
	m := press(t, autosaveModel(t, st), "b")
	if m.autosaveTick() == nil {
		t.Fatal("expected an autosave tick")
	}

	next, cmd := m.Update(autosaveMsg(time.Now()))
	m = next.(Model)
	if cmd == nil {
		t.Error("expected the next autosave to be scheduled")
	}
	if m.failed || m.status != "autosaved autosave" {
		t.Errorf("unexpected status %q", m.status)
	}
	if m.sess.Dirty() {
		t.Error("expected the session to be clean after autosave")
	}
	doc, err := st.LoadScene("autosave")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Bodies) != 1 {
		t.Errorf("expected 1 autosaved body, got %d", len(doc.Bodies))
	}
}

func TestModelAutosaveFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	m := press(t, autosaveModel(t, storage.New(file)), "b")

	next, _ := m.Update(autosaveMsg(time.Now()))
	m = next.(Model)
	if !m.failed || !strings.HasPrefix(m.status, "autosave:") {
		t.Errorf("expected an autosave error in the status line, got %q", m.status)
	}
}
