// Package tui is the terminal front end: an interactive bubbletea sandbox
// and a plain live renderer for headless runs.
package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sony/gobreaker"

	"github.com/san-kum/marbles/internal/codec"
	"github.com/san-kum/marbles/internal/engine"
	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/history"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
	"github.com/san-kum/marbles/internal/templates"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

const (
	frameInterval = 16 * time.Millisecond
	energyHistory = 120
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type autosaveMsg time.Time

// autosaveTick schedules the next autosave, or nothing when autosave is
// off or the session has no store.
func (m Model) autosaveTick() tea.Cmd {
	cfg := m.sess.Config().Autosave
	if !cfg.Enabled || m.sess.Store() == nil {
		return nil
	}
	return tea.Tick(cfg.Interval, func(t time.Time) tea.Msg { return autosaveMsg(t) })
}

// Model is the interactive sandbox. Update runs on the bubbletea event
// goroutine, which owns the session for the lifetime of the program.
type Model struct {
	sess      *engine.Session
	templates []string
	registry  *templates.Registry
	next      int
	saveName  string

	canvas *Canvas
	cursor geom.Vec2
	speed  float64
	acc    float64
	energy []float64
	status string
	failed bool

	lastFrame time.Time
	fps       float64
	width     int
	height    int
}

func NewModel(sess *engine.Session, reg *templates.Registry, saveName string) Model {
	if reg == nil {
		reg = templates.NewRegistry()
	}
	names := make([]string, 0)
	for _, t := range reg.List() {
		if t.Name != "empty" {
			names = append(names, t.Name)
		}
	}
	m := Model{
		sess:      sess,
		registry:  reg,
		templates: names,
		saveName:  saveName,
		canvas:    NewCanvas(74, 18),
		speed:     1,
		energy:    make([]float64, 0, energyHistory),
		width:     80,
		height:    30,
	}
	m.canvas.Fit(sess.Scene())
	m.cursor = m.canvas.World(m.canvas.w/2, m.canvas.h/2)
	return m
}

func (m Model) Init() tea.Cmd { return tea.Batch(tick(), m.autosaveTick()) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.canvas.Resize(msg.Width-6, msg.Height-10)
		m.canvas.Fit(m.sess.Scene())
		return m, nil
	case tickMsg:
		now := time.Time(msg)
		if !m.lastFrame.IsZero() {
			if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
				m.fps = 1 / dt
			}
		}
		m.lastFrame = now
		if !m.sess.Paused() {
			m.acc += m.speed
			for m.acc >= 1 {
				m.advance()
				m.acc--
			}
		}
		return m, tick()
	case autosaveMsg:
		m.autosave()
		return m, m.autosaveTick()
	}
	return m, nil
}

// autosave reports storage failures in the status line. An open breaker
// is not reported again.
func (m *Model) autosave() {
	dirty := m.sess.Dirty()
	err := m.sess.Autosave()
	switch {
	case err == nil:
		if dirty {
			m.note("autosaved %s", m.sess.Config().Autosave.Name)
		}
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
	default:
		m.report(fmt.Errorf("autosave: %w", err))
	}
}

func (m *Model) advance() {
	rep := m.sess.Tick()
	if len(rep.Unstable) > 0 {
		m.report(fmt.Errorf("%d bodies restored after instability", len(rep.Unstable)))
	}
	m.energy = append(m.energy, sim.KineticEnergy(m.sess.Scene()))
	if len(m.energy) > energyHistory {
		m.energy = m.energy[1:]
	}
}

func (m *Model) report(err error) {
	if err != nil {
		m.status, m.failed = err.Error(), true
	}
}

func (m *Model) note(format string, args ...any) {
	m.status, m.failed = fmt.Sprintf(format, args...), false
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sess := m.sess
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "p":
		sess.SetPaused(!sess.Paused())
	case "n":
		if sess.Paused() {
			m.advance()
		}
	case "u":
		if cmd, err := sess.Undo(); err != nil {
			m.report(err)
		} else {
			m.note("undo %s", cmd.Name())
		}
	case "r":
		if cmd, err := sess.Redo(); err != nil {
			m.report(err)
		} else {
			m.note("redo %s", cmd.Name())
		}
	case "b":
		m.create(scene.BodyDef{Label: "ball", Shape: geom.Circle{Radius: 0.5}, Position: m.cursor})
	case "c":
		box, _ := geom.NewBox(1, 1)
		m.create(scene.BodyDef{Label: "crate", Shape: box, Position: m.cursor})
	case "x":
		id, ok := sess.Scene().BodyAt(m.cursor)
		if !ok {
			m.note("nothing under the cursor")
			break
		}
		if err := sess.Apply(&history.DeleteBody{ID: id}); err != nil {
			m.report(err)
		} else {
			m.note("deleted %v", id)
		}
	case "g":
		g := geom.Vec2{}
		if sess.Scene().Gravity.IsZero() {
			g = sess.Config().Gravity()
		}
		if err := sess.Apply(&history.SetGravity{Gravity: &g}); err != nil {
			m.report(err)
		} else {
			m.note("gravity %v", g)
		}
	case "t":
		if len(m.templates) == 0 {
			break
		}
		name := m.templates[m.next%len(m.templates)]
		m.next++
		if err := sess.Build(m.registry, name); err != nil {
			m.report(err)
		} else {
			m.note("added %s", name)
			m.canvas.Fit(sess.Scene())
		}
	case "s":
		if err := sess.Save(m.saveName, codec.JSON); err != nil {
			m.report(err)
		} else {
			m.note("saved %s", m.saveName)
		}
	case "f":
		m.canvas.Fit(sess.Scene())
	case "up", "k":
		m.moveCursor(0, -1)
	case "down", "j":
		m.moveCursor(0, 1)
	case "left", "h":
		m.moveCursor(-1, 0)
	case "right", "l":
		m.moveCursor(1, 0)
	case "+", "=":
		m.speed = math.Min(m.speed*2, 8)
	case "-", "_":
		m.speed = math.Max(m.speed/2, 0.125)
	case "0":
		m.speed = 1
	}
	return m, nil
}

func (m *Model) create(def scene.BodyDef) {
	def.Material = m.sess.Config().DefaultMaterial()
	cmd := &history.CreateBody{Def: def}
	if err := m.sess.Apply(cmd); err != nil {
		m.report(err)
		return
	}
	m.note("created %s %v", def.Label, cmd.ID())
}

func (m *Model) moveCursor(dx, dy int) {
	x, y := m.canvas.Cell(m.cursor)
	m.cursor = m.canvas.World(x+dx, y+dy)
}

func (m Model) View() string {
	sc := m.sess.Scene()
	m.canvas.Clear()
	m.canvas.Draw(sc)
	m.canvas.Plot(m.cursor, 'X')

	var b strings.Builder
	statusIcon, statusText := green.Render("●"), green.Render("running")
	if m.sess.Paused() {
		statusIcon, statusText = yellow.Render("○"), yellow.Render("paused")
	}
	fmt.Fprintf(&b, "\n   %s %s  %s  %s\n", statusIcon, cyan.Render(m.sess.Name()), statusText,
		dim.Render(fmt.Sprintf("t=%.2fs  x%.3g  %.0ffps", m.sess.Simulator().Stepper().Time(), m.speed, m.fps)))

	border := dimmer.Render("   " + strings.Repeat("─", m.canvas.w))
	b.WriteString(border + "\n")
	for _, row := range m.canvas.Rows() {
		b.WriteString("   " + row + "\n")
	}
	b.WriteString(border + "\n")

	rep := m.sess.LastReport()
	fmt.Fprintf(&b, "   %s %s  %s %s  %s %s  %s %s\n",
		dim.Render("bodies"), white.Render(fmt.Sprint(sc.BodyCount())),
		dim.Render("joints"), white.Render(fmt.Sprint(sc.ConstraintCount())),
		dim.Render("contacts"), white.Render(fmt.Sprint(rep.Contacts)),
		dim.Render("asleep"), white.Render(fmt.Sprint(rep.Sleeping)))

	if len(m.energy) > 1 {
		fmt.Fprintf(&b, "   %s %s\n", dim.Render("KE"), cyan.Render(sparkline(m.energy, 40)))
	}
	if m.status != "" {
		style := dim
		if m.failed {
			style = red
		}
		b.WriteString("   " + style.Render(m.status) + "\n")
	}
	b.WriteString("\n" + dim.Render("   space pause  n step  b ball  c crate  x delete  t template  g gravity  u undo  r redo  s save  ±speed  q quit") + "\n")
	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		idx = max(0, min(7, idx))
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// Run starts the interactive sandbox on the alternate screen.
func Run(sess *engine.Session, reg *templates.Registry, saveName string) error {
	p := tea.NewProgram(NewModel(sess, reg, saveName), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
