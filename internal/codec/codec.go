package codec

import (
	"fmt"
	"math"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

// Encode captures sc as a document of the current version.
func Encode(sc *scene.Scene) *Document {
	scale := sc.GravityScale
	doc := &Document{
		Version:      CurrentVersion,
		NextID:       uint64(sc.NextID()),
		Gravity:      vec(sc.Gravity),
		GravityScale: &scale,
		Bodies:       []BodyDoc{},
		Constraints:  []ConstraintDoc{},
	}
	for _, b := range sc.Bodies() {
		doc.Bodies = append(doc.Bodies, encodeBody(b))
	}
	for _, c := range sc.Constraints() {
		doc.Constraints = append(doc.Constraints, encodeConstraint(c))
	}
	return doc
}

// Decode rebuilds a scene from doc. Documents from a newer or unknown
// version fail with ErrSchemaMismatch; anything that does not form a
// consistent scene fails with ErrCorrupt.
func Decode(doc *Document) (*scene.Scene, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrCorrupt)
	}
	if doc.Version < MinVersion || doc.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: version %d, supported %d..%d", ErrSchemaMismatch, doc.Version, MinVersion, CurrentVersion)
	}

	bodies := make([]scene.Body, 0, len(doc.Bodies))
	for i, bd := range doc.Bodies {
		b, err := decodeBody(bd, doc.Version)
		if err != nil {
			return nil, fmt.Errorf("%w: body %d: %w", ErrCorrupt, i, err)
		}
		bodies = append(bodies, b)
	}

	constraints := make([]scene.Constraint, 0, len(doc.Constraints))
	for i, cd := range doc.Constraints {
		c, err := decodeConstraint(cd)
		if err != nil {
			return nil, fmt.Errorf("%w: constraint %d: %w", ErrCorrupt, i, err)
		}
		constraints = append(constraints, c)
	}

	scale := 1.0
	if doc.GravityScale != nil {
		scale = *doc.GravityScale
	}
	sc, err := scene.FromParts(bodies, constraints, scene.ID(doc.NextID), doc.Gravity.vec2(), scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return sc, nil
}

func encodeBody(b scene.Body) BodyDoc {
	collidable := b.Collidable
	return BodyDoc{
		ID:    uint64(b.ID),
		Label: b.Label,
		Shape: encodeShape(b.Shape),
		Mass:  b.Mass,
		Material: &MaterialDoc{
			Density:     b.Material.Density,
			Friction:    b.Material.Friction,
			Restitution: b.Material.Restitution,
		},
		Position:        vec(b.Position),
		Angle:           b.Angle,
		Velocity:        vec(b.Velocity),
		AngularVelocity: b.AngularVelocity,
		Static:          b.Static,
		Collidable:      &collidable,
		Color:           []int{int(b.Color.R), int(b.Color.G), int(b.Color.B), int(b.Color.A)},
		Sleeping:        b.Sleeping,
		SleepSteps:      b.SleepSteps,
	}
}

func decodeBody(bd BodyDoc, version int) (scene.Body, error) {
	shape, err := decodeShape(bd.Shape)
	if err != nil {
		return scene.Body{}, err
	}
	// zero mass is allowed and means derive from density
	if bd.Mass < 0 || math.IsNaN(bd.Mass) || math.IsInf(bd.Mass, 0) {
		return scene.Body{}, fmt.Errorf("invalid mass %v", bd.Mass)
	}
	b := scene.Body{
		ID:              scene.ID(bd.ID),
		Label:           bd.Label,
		Shape:           shape,
		Mass:            bd.Mass,
		Material:        scene.DefaultMaterial(),
		Position:        bd.Position.vec2(),
		Angle:           bd.Angle,
		Velocity:        bd.Velocity.vec2(),
		AngularVelocity: bd.AngularVelocity,
		Static:          bd.Static,
		Collidable:      true,
		Color:           scene.DefaultColor,
	}
	if version < 2 {
		return b, nil
	}

	if bd.Material != nil {
		b.Material = scene.Material{
			Density:     bd.Material.Density,
			Friction:    bd.Material.Friction,
			Restitution: bd.Material.Restitution,
		}
	}
	if bd.Collidable != nil {
		b.Collidable = *bd.Collidable
	}
	if bd.Color != nil {
		if len(bd.Color) != 4 {
			return scene.Body{}, fmt.Errorf("color needs 4 channels, got %d", len(bd.Color))
		}
		var ch [4]uint8
		for i, v := range bd.Color {
			if v < 0 || v > 255 {
				return scene.Body{}, fmt.Errorf("color channel %d out of range: %d", i, v)
			}
			ch[i] = uint8(v)
		}
		b.Color = scene.Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}
	}
	b.Sleeping = bd.Sleeping && !bd.Static
	b.SleepSteps = bd.SleepSteps
	return b, nil
}

func encodeShape(s geom.Shape) ShapeDoc {
	switch s := s.(type) {
	case geom.Circle:
		return ShapeDoc{Type: shapeCircle, Radius: s.Radius}
	case geom.Polygon:
		verts := s.Vertices()
		out := make([]Vec, len(verts))
		for i, v := range verts {
			out[i] = vec(v)
		}
		return ShapeDoc{Type: shapePolygon, Vertices: out}
	}
	return ShapeDoc{}
}

func decodeShape(sd ShapeDoc) (geom.Shape, error) {
	switch sd.Type {
	case shapeCircle:
		return geom.NewCircle(sd.Radius)
	case shapePolygon:
		verts := make([]geom.Vec2, len(sd.Vertices))
		for i, v := range sd.Vertices {
			verts[i] = v.vec2()
		}
		return geom.NewPolygon(verts)
	}
	return nil, fmt.Errorf("unknown shape type %q", sd.Type)
}

func encodeConstraint(c scene.Constraint) ConstraintDoc {
	switch c := c.(type) {
	case *scene.Hinge:
		return ConstraintDoc{
			Type:             typeHinge,
			ID:               uint64(c.ID),
			BodyA:            uint64(c.BodyA),
			BodyB:            uint64(c.BodyB),
			AnchorA:          vec(c.AnchorA),
			AnchorB:          vec(c.AnchorB),
			CollideConnected: c.CollideConnected,
		}
	case *scene.Spring:
		return ConstraintDoc{
			Type:       typeSpring,
			ID:         uint64(c.ID),
			BodyA:      uint64(c.BodyA),
			BodyB:      uint64(c.BodyB),
			AnchorA:    vec(c.AnchorA),
			AnchorB:    vec(c.AnchorB),
			RestLength: c.RestLength,
			Stiffness:  c.Stiffness,
			Damping:    c.Damping,
		}
	}
	return ConstraintDoc{}
}

func decodeConstraint(cd ConstraintDoc) (scene.Constraint, error) {
	switch cd.Type {
	case typeHinge:
		return &scene.Hinge{
			ID:               scene.ID(cd.ID),
			BodyA:            scene.ID(cd.BodyA),
			BodyB:            scene.ID(cd.BodyB),
			AnchorA:          cd.AnchorA.vec2(),
			AnchorB:          cd.AnchorB.vec2(),
			CollideConnected: cd.CollideConnected,
		}, nil
	case typeSpring:
		return &scene.Spring{
			ID:         scene.ID(cd.ID),
			BodyA:      scene.ID(cd.BodyA),
			BodyB:      scene.ID(cd.BodyB),
			AnchorA:    cd.AnchorA.vec2(),
			AnchorB:    cd.AnchorB.vec2(),
			RestLength: cd.RestLength,
			Stiffness:  cd.Stiffness,
			Damping:    cd.Damping,
		}, nil
	}
	return nil, fmt.Errorf("unknown constraint type %q", cd.Type)
}

func vec(v geom.Vec2) Vec     { return Vec{X: v.X, Y: v.Y} }
func (v Vec) vec2() geom.Vec2 { return geom.Vec2{X: v.X, Y: v.Y} }
