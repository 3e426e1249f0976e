// Package automation runs scripted edits and batch experiments against
// scenes without a user at the keyboard.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/marbles/internal/codec"
	"github.com/san-kum/marbles/internal/engine"
	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/history"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/sim"
	"github.com/san-kum/marbles/internal/templates"
)

// Spring defaults used when a scenario leaves them out.
const (
	DefaultStiffness = 1000.0
	DefaultDamping   = 10.0
)

var ErrBadStep = errors.New("automation: malformed scenario step")

// Scenario is a scripted sequence of scene edits and simulation runs.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step holds exactly one action.
type Step struct {
	Template string       `yaml:"template,omitempty"`
	Body     *BodyStep    `yaml:"body,omitempty"`
	Hinge    *HingeStep   `yaml:"hinge,omitempty"`
	Spring   *SpringStep  `yaml:"spring,omitempty"`
	Delete   string       `yaml:"delete,omitempty"`
	Gravity  []float64    `yaml:"gravity,omitempty"`
	Run      int          `yaml:"step,omitempty"`
	Undo     int          `yaml:"undo,omitempty"`
	Redo     int          `yaml:"redo,omitempty"`
	Save     *SaveStep    `yaml:"save,omitempty"`
	Material *MaterialSet `yaml:"material,omitempty"`
}

type BodyStep struct {
	Label    string       `yaml:"label"`
	Shape    string       `yaml:"shape"`
	Radius   float64      `yaml:"radius"`
	Width    float64      `yaml:"width"`
	Height   float64      `yaml:"height"`
	Vertices [][2]float64 `yaml:"vertices"`
	Position [2]float64   `yaml:"position"`
	Angle    float64      `yaml:"angle"`
	Velocity [2]float64   `yaml:"velocity"`
	Mass     float64      `yaml:"mass"`
	Static   bool         `yaml:"static"`
	Material *MaterialSet `yaml:"material"`
}

type MaterialSet struct {
	Density     float64 `yaml:"density"`
	Friction    float64 `yaml:"friction"`
	Restitution float64 `yaml:"restitution"`
}

// HingeStep pins A and B at a world point. When Anchor is omitted the
// origin of B is used.
type HingeStep struct {
	A       string      `yaml:"a"`
	B       string      `yaml:"b"`
	Anchor  *[2]float64 `yaml:"anchor"`
	Collide bool        `yaml:"collide_connected"`
}

// SpringStep joins the origins of A and B. A zero rest length uses the
// current distance between them.
type SpringStep struct {
	Label      string   `yaml:"label"`
	A          string   `yaml:"a"`
	B          string   `yaml:"b"`
	RestLength float64  `yaml:"rest_length"`
	Stiffness  *float64 `yaml:"stiffness"`
	Damping    *float64 `yaml:"damping"`
}

type SaveStep struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"`
}

// StepResult summarises the scene after one scenario step.
type StepResult struct {
	Index       int
	Action      string
	Bodies      int
	Constraints int
	Time        float64
	Energy      float64
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	for i, st := range scenario.Steps {
		if _, err := st.action(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &scenario, nil
}

func (st Step) action() (string, error) {
	var set []string
	add := func(ok bool, name string) {
		if ok {
			set = append(set, name)
		}
	}
	add(st.Template != "", "template")
	add(st.Body != nil, "body")
	add(st.Hinge != nil, "hinge")
	add(st.Spring != nil, "spring")
	add(st.Delete != "", "delete")
	add(st.Gravity != nil, "gravity")
	add(st.Run > 0, "step")
	add(st.Undo > 0, "undo")
	add(st.Redo > 0, "redo")
	add(st.Save != nil, "save")
	add(st.Material != nil, "material")
	if len(set) != 1 {
		return "", fmt.Errorf("%w: want exactly one action, got %v", ErrBadStep, set)
	}
	return set[0], nil
}

// Runner executes scenarios against a session. Labels given to bodies and
// springs in earlier steps can be used to refer to them later.
type Runner struct {
	sess      *engine.Session
	templates *templates.Registry
	labels    map[string]scene.ID
	material  scene.Material
}

func NewRunner(sess *engine.Session, reg *templates.Registry) *Runner {
	if reg == nil {
		reg = templates.NewRegistry()
	}
	return &Runner{
		sess:      sess,
		templates: reg,
		labels:    make(map[string]scene.ID),
		material:  sess.Config().DefaultMaterial(),
	}
}

// RunScenario executes a scenario step by step and stops at the first
// failing step. Results for the completed steps are returned either way.
func RunScenario(ctx context.Context, scenario *Scenario, sess *engine.Session, reg *templates.Registry) ([]StepResult, error) {
	return NewRunner(sess, reg).Run(ctx, scenario)
}

func (r *Runner) Run(ctx context.Context, scenario *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	for i, st := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		action, err := st.action()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := r.exec(ctx, action, st); err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, action, err)
		}
		sc := r.sess.Scene()
		results = append(results, StepResult{
			Index:       i + 1,
			Action:      action,
			Bodies:      sc.BodyCount(),
			Constraints: sc.ConstraintCount(),
			Time:        r.sess.Simulator().Stepper().Time(),
			Energy:      sim.KineticEnergy(sc),
		})
	}
	return results, nil
}

func (r *Runner) exec(ctx context.Context, action string, st Step) error {
	switch action {
	case "template":
		return r.sess.Build(r.templates, st.Template)
	case "body":
		return r.body(st.Body)
	case "hinge":
		return r.hinge(st.Hinge)
	case "spring":
		return r.spring(st.Spring)
	case "delete":
		return r.delete(st.Delete)
	case "gravity":
		if len(st.Gravity) != 2 {
			return fmt.Errorf("%w: gravity needs two values", ErrBadStep)
		}
		g := geom.V(st.Gravity[0], st.Gravity[1])
		return r.sess.Apply(&history.SetGravity{Gravity: &g})
	case "step":
		for i := 0; i < st.Run; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.sess.Tick()
		}
		return nil
	case "undo":
		for i := 0; i < st.Undo; i++ {
			if _, err := r.sess.Undo(); err != nil {
				return err
			}
		}
		return nil
	case "redo":
		for i := 0; i < st.Redo; i++ {
			if _, err := r.sess.Redo(); err != nil {
				return err
			}
		}
		return nil
	case "save":
		f, err := codec.ParseFormat(st.Save.Format)
		if err != nil {
			return err
		}
		return r.sess.Save(st.Save.Name, f)
	case "material":
		m := st.Material.material()
		if err := m.Validate(); err != nil {
			return err
		}
		r.material = m
		return nil
	}
	return fmt.Errorf("%w: unknown action %q", ErrBadStep, action)
}

func (m *MaterialSet) material() scene.Material {
	return scene.Material{Density: m.Density, Friction: m.Friction, Restitution: m.Restitution}
}

func (r *Runner) body(bs *BodyStep) error {
	def := scene.BodyDef{
		Label:    bs.Label,
		Mass:     bs.Mass,
		Material: r.material,
		Position: geom.V(bs.Position[0], bs.Position[1]),
		Angle:    bs.Angle,
		Velocity: geom.V(bs.Velocity[0], bs.Velocity[1]),
		Static:   bs.Static,
	}
	if bs.Material != nil {
		def.Material = bs.Material.material()
	}
	var err error
	switch strings.ToLower(bs.Shape) {
	case "circle", "ball", "":
		def.Shape, err = geom.NewCircle(bs.Radius)
	case "box":
		def.Shape, err = geom.NewBox(bs.Width, bs.Height)
	case "polygon":
		verts := make([]geom.Vec2, len(bs.Vertices))
		for i, v := range bs.Vertices {
			verts[i] = geom.V(v[0], v[1])
		}
		def.Shape, err = geom.NewPolygon(verts)
	default:
		return fmt.Errorf("%w: unknown shape %q", ErrBadStep, bs.Shape)
	}
	if err != nil {
		return err
	}

	cmd := &history.CreateBody{Def: def}
	if err := r.sess.Apply(cmd); err != nil {
		return err
	}
	if bs.Label != "" {
		r.labels[bs.Label] = cmd.ID()
	}
	return nil
}

func (r *Runner) hinge(hs *HingeStep) error {
	a, err := r.resolve(hs.A)
	if err != nil {
		return err
	}
	b, err := r.resolve(hs.B)
	if err != nil {
		return err
	}
	sc := r.sess.Scene()
	var anchor geom.Vec2
	if hs.Anchor != nil {
		anchor = geom.V(hs.Anchor[0], hs.Anchor[1])
	} else if bb := sc.Lookup(b); bb != nil {
		anchor = bb.Position
	}
	return r.sess.Apply(&history.CreateHinge{Def: scene.HingeDef{
		BodyA:            a,
		BodyB:            b,
		AnchorA:          localPoint(sc, a, anchor),
		AnchorB:          localPoint(sc, b, anchor),
		CollideConnected: hs.Collide,
	}})
}

func (r *Runner) spring(ss *SpringStep) error {
	a, err := r.resolve(ss.A)
	if err != nil {
		return err
	}
	b, err := r.resolve(ss.B)
	if err != nil {
		return err
	}
	rest := ss.RestLength
	if rest == 0 {
		rest = origin(r.sess.Scene(), a).Dist(origin(r.sess.Scene(), b))
	}
	def := scene.SpringDef{BodyA: a, BodyB: b, RestLength: rest, Stiffness: DefaultStiffness, Damping: DefaultDamping}
	if ss.Stiffness != nil {
		def.Stiffness = *ss.Stiffness
	}
	if ss.Damping != nil {
		def.Damping = *ss.Damping
	}
	cmd := &history.CreateSpring{Def: def}
	if err := r.sess.Apply(cmd); err != nil {
		return err
	}
	if ss.Label != "" {
		r.labels[ss.Label] = cmd.ID()
	}
	return nil
}

func (r *Runner) delete(ref string) error {
	id, err := r.resolve(ref)
	if err != nil {
		return err
	}
	sc := r.sess.Scene()
	if sc.Lookup(id) != nil {
		return r.sess.Apply(&history.DeleteBody{ID: id})
	}
	if _, err := sc.Constraint(id); err == nil {
		return r.sess.Apply(&history.DeleteConstraint{ID: id})
	}
	return fmt.Errorf("%w: nothing to delete at %v", scene.ErrNotFound, id)
}

// resolve maps "world", a scenario label, a scene body label or a numeric
// id ("7" or "#7") to an id.
func (r *Runner) resolve(ref string) (scene.ID, error) {
	if ref == "" || ref == "world" {
		return scene.WorldID, nil
	}
	if id, ok := r.labels[ref]; ok {
		return id, nil
	}
	for _, b := range r.sess.Scene().BodyList() {
		if b.Label == ref {
			return b.ID, nil
		}
	}
	if n, err := strconv.ParseUint(strings.TrimPrefix(ref, "#"), 10, 64); err == nil {
		return scene.ID(n), nil
	}
	return 0, fmt.Errorf("%w: %q", scene.ErrNotFound, ref)
}

func localPoint(sc *scene.Scene, id scene.ID, world geom.Vec2) geom.Vec2 {
	if b := sc.Lookup(id); b != nil {
		return b.LocalPoint(world)
	}
	return world
}

func origin(sc *scene.Scene, id scene.ID) geom.Vec2 {
	if b := sc.Lookup(id); b != nil {
		return b.Position
	}
	return geom.Vec2{}
}
