package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// Live is a sim.Observer that redraws the scene to w at most frameRate
// times per second of wall time.
type Live struct {
	w         io.Writer
	name      string
	frameRate int
	lastFrame time.Time
	canvas    *Canvas
	fitted    bool
}

func NewLive(w io.Writer, name string, frameRate int) *Live {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &Live{w: w, name: name, frameRate: frameRate, canvas: NewCanvas(70, 20)}
}

func (l *Live) OnStep(sc *scene.Scene, rep sim.StepReport) {
	if time.Since(l.lastFrame) < time.Second/time.Duration(l.frameRate) {
		return
	}
	l.lastFrame = time.Now()
	if !l.fitted {
		l.canvas.Fit(sc)
		l.fitted = true
	}
	l.canvas.Clear()
	l.canvas.Draw(sc)

	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "  %s  t=%.2fs  step %d\n", l.name, rep.Time, rep.Step)
	b.WriteString("  " + strings.Repeat("-", l.canvas.w) + "\n")
	for _, row := range l.canvas.Rows() {
		b.WriteString("  " + row + "\n")
	}
	b.WriteString("  " + strings.Repeat("-", l.canvas.w) + "\n")
	fmt.Fprintf(&b, "  awake=%d asleep=%d contacts=%d\n", rep.Awake, rep.Sleeping, rep.Contacts)
	fmt.Fprint(l.w, b.String())
}

func (l *Live) Start() { fmt.Fprint(l.w, hideCursor) }
func (l *Live) Stop()  { fmt.Fprint(l.w, showCursor) }
