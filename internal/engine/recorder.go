package engine

import (
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
	"github.com/san-kum/marbles/internal/storage"
)

// Recorder is a sim.Observer that samples body poses into a trace. It
// tracks the dynamic bodies present when it is created; a tracked body
// that is later deleted keeps its last recorded pose.
type Recorder struct {
	trace *storage.Trace
	every int
	seen  int
}

// NewRecorder samples every n-th step; n below 1 records every step.
// The initial poses are recorded at time zero.
func NewRecorder(name string, sc *scene.Scene, dt float64, every int) *Recorder {
	if every < 1 {
		every = 1
	}
	var ids []scene.ID
	var labels []string
	for _, b := range sc.BodyList() {
		if b.Static {
			continue
		}
		ids = append(ids, b.ID)
		labels = append(labels, b.Label)
	}
	r := &Recorder{trace: storage.NewTrace(name, dt*float64(every), ids, labels), every: every}
	r.sample(sc, 0)
	return r
}

func (r *Recorder) OnStep(sc *scene.Scene, rep sim.StepReport) {
	r.seen++
	if r.seen%r.every != 0 {
		return
	}
	r.sample(sc, rep.Time)
}

func (r *Recorder) sample(sc *scene.Scene, t float64) {
	frame := make([]float64, 0, len(r.trace.Meta.Bodies)*3)
	for i, id := range r.trace.Meta.Bodies {
		b := sc.Lookup(id)
		if b == nil {
			frame = append(frame, r.previous(i)...)
			continue
		}
		frame = append(frame, b.Position.X, b.Position.Y, b.Angle)
	}
	r.trace.Append(t, frame)
}

func (r *Recorder) previous(i int) []float64 {
	n := len(r.trace.Frames)
	if n == 0 {
		return []float64{0, 0, 0}
	}
	return r.trace.Frames[n-1][i*3 : i*3+3]
}

// Trace returns the recorded trace with the given metric values attached.
func (r *Recorder) Trace(metrics map[string]float64) *storage.Trace {
	for k, v := range metrics {
		r.trace.Meta.Metrics[k] = v
	}
	return r.trace
}
