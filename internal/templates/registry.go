package templates

import (
	"fmt"
	"sort"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/history"
	"github.com/san-kum/marbles/internal/scene"
)

// Template is a named scene builder.
type Template struct {
	Name        string
	Description string
	build       func(b *Builder)
}

type Registry struct {
	templates map[string]Template
}

func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]Template)}

	r.add("empty", "nothing but gravity", func(*Builder) {})
	r.add("spring-pair", "two balls joined by a spring in zero gravity", springPair)
	r.add("drop", "a ball and a box above a static floor", drop)
	r.add("pendulum", "a chain of four hinged links hanging from the world", pendulum)
	r.add("newtons-cradle", "five hinged balls, the first pulled aside", newtonsCradle)
	r.add("algothlon", "a marble rolling down a ramp course to the finish cup", algothlon)

	return r
}

func (r *Registry) add(name, desc string, build func(b *Builder)) {
	r.templates[name] = Template{Name: name, Description: desc, build: build}
}

func (r *Registry) Get(name string) (Template, error) {
	t, ok := r.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown template: %s", name)
	}
	return t, nil
}

func (r *Registry) List() []Template {
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Build adds the named template to the manager's scene as a single undo
// step. Bodies that do not set a material get mat.
func (r *Registry) Build(name string, mgr *history.Manager, mat scene.Material) error {
	t, err := r.Get(name)
	if err != nil {
		return err
	}
	return mgr.Group("template "+name, func() error {
		b := &Builder{mgr: mgr, mat: mat}
		t.build(b)
		if b.err != nil {
			return fmt.Errorf("template %s: %w", name, b.err)
		}
		return nil
	})
}

// Builder issues commands through a history manager and keeps the first
// error. After an error every call is a no-op returning the world id.
type Builder struct {
	mgr *history.Manager
	mat scene.Material
	err error
}

func (b *Builder) Err() error { return b.err }

func (b *Builder) Body(def scene.BodyDef) scene.ID {
	if b.err != nil {
		return scene.WorldID
	}
	if def.Material == (scene.Material{}) {
		def.Material = b.mat
	}
	cmd := &history.CreateBody{Def: def}
	if b.err = b.mgr.Execute(cmd); b.err != nil {
		return scene.WorldID
	}
	return cmd.ID()
}

func (b *Builder) Box(w, h float64, def scene.BodyDef) scene.ID {
	if b.err != nil {
		return scene.WorldID
	}
	def.Shape, b.err = geom.NewBox(w, h)
	if b.err != nil {
		return scene.WorldID
	}
	return b.Body(def)
}

func (b *Builder) Polygon(verts []geom.Vec2, def scene.BodyDef) scene.ID {
	if b.err != nil {
		return scene.WorldID
	}
	def.Shape, b.err = geom.NewPolygon(verts)
	if b.err != nil {
		return scene.WorldID
	}
	return b.Body(def)
}

func (b *Builder) Ball(radius float64, def scene.BodyDef) scene.ID {
	def.Shape = geom.Circle{Radius: radius}
	return b.Body(def)
}

func (b *Builder) Hinge(def scene.HingeDef) scene.ID {
	if b.err != nil {
		return scene.WorldID
	}
	cmd := &history.CreateHinge{Def: def}
	if b.err = b.mgr.Execute(cmd); b.err != nil {
		return scene.WorldID
	}
	return cmd.ID()
}

func (b *Builder) Spring(def scene.SpringDef) scene.ID {
	if b.err != nil {
		return scene.WorldID
	}
	cmd := &history.CreateSpring{Def: def}
	if b.err = b.mgr.Execute(cmd); b.err != nil {
		return scene.WorldID
	}
	return cmd.ID()
}

func (b *Builder) Gravity(g geom.Vec2) {
	if b.err != nil {
		return
	}
	b.err = b.mgr.Execute(&history.SetGravity{Gravity: &g})
}
