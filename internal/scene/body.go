package scene

import (
	"fmt"
	"math"

	"github.com/san-kum/marbles/internal/geom"
)

// ID identifies a body or constraint. Bodies and constraints share one
// counter, so an id is unique across both.
type ID uint64

// WorldID is the fixed world anchor. It never names a body.
const WorldID ID = 0

func (id ID) String() string {
	if id == WorldID {
		return "world"
	}
	return fmt.Sprintf("#%d", uint64(id))
}

// MinDensity is the floor applied to user supplied densities.
const MinDensity = 0.001

// Material holds surface and bulk properties of a body.
type Material struct {
	Density     float64 `json:"density" yaml:"density"`
	Friction    float64 `json:"friction" yaml:"friction"`
	Restitution float64 `json:"restitution" yaml:"restitution"`
}

func DefaultMaterial() Material {
	return Material{Density: 1.0, Friction: 0.5, Restitution: 0.8}
}

// Validate checks the ranges of each field.
func (m Material) Validate() error {
	switch {
	case !(m.Density > 0) || math.IsInf(m.Density, 0):
		return fmt.Errorf("%w: density must be positive, got %v", ErrInvalidParameter, m.Density)
	case !(m.Friction >= 0) || math.IsInf(m.Friction, 0):
		return fmt.Errorf("%w: friction must be non-negative, got %v", ErrInvalidParameter, m.Friction)
	case !(m.Restitution >= 0 && m.Restitution <= 1):
		return fmt.Errorf("%w: restitution must be in [0,1], got %v", ErrInvalidParameter, m.Restitution)
	}
	return nil
}

// Color is an RGBA tint carried for renderers.
type Color struct {
	R, G, B, A uint8
}

var DefaultColor = Color{R: 100, G: 150, B: 200, A: 200}

// Body is a rigid body. Position and Angle place the body origin; the
// centre of mass sits at Centroid in body-local coordinates and Velocity
// is the velocity of that centre.
type Body struct {
	ID    ID
	Label string
	Shape geom.Shape

	Material Material
	Mass     float64
	Inertia  float64
	Centroid geom.Vec2

	InvMass    float64
	InvInertia float64

	Position        geom.Vec2
	Angle           float64
	Velocity        geom.Vec2
	AngularVelocity float64

	Static     bool
	Collidable bool
	Color      Color

	Sleeping   bool
	SleepSteps int
	Unstable   bool
}

// BodyDef describes a body to create. A zero Material selects
// DefaultMaterial; a positive Mass overrides the density-derived mass.
type BodyDef struct {
	Label           string
	Shape           geom.Shape
	Mass            float64
	Material        Material
	Position        geom.Vec2
	Angle           float64
	Velocity        geom.Vec2
	AngularVelocity float64
	Static          bool
	NoCollide       bool
	Color           *Color
}

func (b *Body) Transform() geom.Transform {
	return geom.NewTransform(b.Position, b.Angle)
}

// WorldCenter returns the centre of mass in world coordinates.
func (b *Body) WorldCenter() geom.Vec2 {
	return b.Position.Add(b.Centroid.Rotate(b.Angle))
}

func (b *Body) WorldPoint(local geom.Vec2) geom.Vec2 {
	return b.Transform().Apply(local)
}

func (b *Body) LocalPoint(world geom.Vec2) geom.Vec2 {
	return b.Transform().ApplyInv(world)
}

// VelocityAt returns the velocity of a world point rigidly attached to b.
func (b *Body) VelocityAt(world geom.Vec2) geom.Vec2 {
	r := world.Sub(b.WorldCenter())
	return b.Velocity.Add(geom.CrossSV(b.AngularVelocity, r))
}

func (b *Body) AABB() geom.AABB {
	return b.Shape.AABB(b.Transform())
}

func (b *Body) IsDynamic() bool { return !b.Static }

// Awake reports whether the stepper should integrate b.
func (b *Body) Awake() bool { return !b.Static && !b.Sleeping }

func (b *Body) Wake() {
	b.Sleeping = false
	b.SleepSteps = 0
}

func (b *Body) KineticEnergy() float64 {
	if b.Static {
		return 0
	}
	return 0.5*b.Mass*b.Velocity.LenSq() + 0.5*b.Inertia*b.AngularVelocity*b.AngularVelocity
}

// ApplyImpulse changes the velocity of b by an impulse acting at world point p.
func (b *Body) ApplyImpulse(impulse, p geom.Vec2) {
	if b.Static {
		return
	}
	r := p.Sub(b.WorldCenter())
	b.Velocity = b.Velocity.Add(impulse.Scale(b.InvMass))
	b.AngularVelocity += b.InvInertia * r.Cross(impulse)
}

// IsFinite reports whether the kinematic state holds no NaN or Inf.
func (b *Body) IsFinite() bool {
	return b.Position.IsFinite() && b.Velocity.IsFinite() &&
		!math.IsNaN(b.Angle) && !math.IsInf(b.Angle, 0) &&
		!math.IsNaN(b.AngularVelocity) && !math.IsInf(b.AngularVelocity, 0)
}

// updateMass derives mass properties from the shape, the material density
// and an optional mass override. Inertia is always derived from the final
// mass so that restoring Mass restores Inertia exactly.
func (b *Body) updateMass(override float64) {
	unit := b.Shape.MassData(1)
	b.Centroid = unit.Center

	if override > 0 {
		b.Mass = override
		b.Material.Density = override / unit.Mass
	} else {
		b.Mass = b.Material.Density * unit.Mass
	}
	b.Inertia = b.Mass * (unit.Inertia / unit.Mass)
	b.updateInverse()
}

func (b *Body) updateInverse() {
	if b.Static {
		b.InvMass, b.InvInertia = 0, 0
		return
	}
	b.InvMass = 1 / b.Mass
	b.InvInertia = 0
	if b.Inertia > 0 {
		b.InvInertia = 1 / b.Inertia
	}
}

func (b *Body) validate() error {
	if b.Shape == nil {
		return fmt.Errorf("%w: body has no shape", ErrInvalidParameter)
	}
	if err := b.Material.Validate(); err != nil {
		return err
	}
	if !(b.Mass > 0) || math.IsInf(b.Mass, 0) {
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidParameter, b.Mass)
	}
	if !b.IsFinite() {
		return fmt.Errorf("%w: non-finite transform or velocity", ErrInvalidParameter)
	}
	return nil
}

func newBody(id ID, def BodyDef) (Body, error) {
	if def.Shape == nil {
		return Body{}, fmt.Errorf("%w: body has no shape", ErrInvalidParameter)
	}
	if def.Mass < 0 || math.IsNaN(def.Mass) {
		return Body{}, fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidParameter, def.Mass)
	}

	mat := def.Material
	if mat == (Material{}) {
		mat = DefaultMaterial()
	}
	if mat.Density > 0 && mat.Density < MinDensity {
		mat.Density = MinDensity
	}

	b := Body{
		ID:              id,
		Label:           def.Label,
		Shape:           def.Shape,
		Material:        mat,
		Position:        def.Position,
		Angle:           def.Angle,
		Velocity:        def.Velocity,
		AngularVelocity: def.AngularVelocity,
		Static:          def.Static,
		Collidable:      !def.NoCollide,
		Color:           DefaultColor,
	}
	if def.Color != nil {
		b.Color = *def.Color
	}
	if err := b.Material.Validate(); err != nil {
		return Body{}, err
	}
	b.updateMass(def.Mass)
	if b.Static {
		b.Velocity, b.AngularVelocity = geom.Vec2{}, 0
	}
	if err := b.validate(); err != nil {
		return Body{}, err
	}
	return b, nil
}

// BodyPatch lists body fields to change. Nil fields are left alone.
// Setting Shape or Material rederives the mass from the density unless
// Mass is set in the same patch.
type BodyPatch struct {
	Label           *string
	Shape           geom.Shape
	Mass            *float64
	Material        *Material
	Position        *geom.Vec2
	Angle           *float64
	Velocity        *geom.Vec2
	AngularVelocity *float64
	Static          *bool
	Collidable      *bool
	Color           *Color
}

func (p BodyPatch) IsEmpty() bool {
	return p.Label == nil && p.Shape == nil && p.Mass == nil && p.Material == nil &&
		p.Position == nil && p.Angle == nil && p.Velocity == nil && p.AngularVelocity == nil &&
		p.Static == nil && p.Collidable == nil && p.Color == nil
}

// changesSupport reports whether the patch can move, reshape or stop a
// body from touching its neighbours.
func (p BodyPatch) changesSupport() bool {
	return p.Shape != nil || p.Position != nil || p.Angle != nil || p.Static != nil || p.Collidable != nil
}

// apply returns a patched copy of b and the patch that restores b.
func (p BodyPatch) apply(b Body) (Body, BodyPatch) {
	var inv BodyPatch
	nb := b

	if p.Label != nil {
		inv.Label = ptr(b.Label)
		nb.Label = *p.Label
	}
	if p.Shape != nil || p.Material != nil || p.Mass != nil {
		inv.Shape = b.Shape
		inv.Material = ptr(b.Material)
		inv.Mass = ptr(b.Mass)

		if p.Shape != nil {
			nb.Shape = p.Shape
		}
		if p.Material != nil {
			nb.Material = *p.Material
			if nb.Material.Density > 0 && nb.Material.Density < MinDensity {
				nb.Material.Density = MinDensity
			}
		}
		switch {
		case p.Mass != nil && p.Material != nil:
			// both given: take them verbatim
			density := nb.Material.Density
			nb.updateMass(*p.Mass)
			nb.Material.Density = density
		case p.Mass != nil:
			nb.updateMass(*p.Mass)
		default:
			nb.updateMass(0)
		}
	}
	if p.Position != nil {
		inv.Position = ptr(b.Position)
		nb.Position = *p.Position
	}
	if p.Angle != nil {
		inv.Angle = ptr(b.Angle)
		nb.Angle = *p.Angle
	}
	if p.Velocity != nil || p.Static != nil {
		inv.Velocity = ptr(b.Velocity)
		if p.Velocity != nil {
			nb.Velocity = *p.Velocity
		}
	}
	if p.AngularVelocity != nil || p.Static != nil {
		inv.AngularVelocity = ptr(b.AngularVelocity)
		if p.AngularVelocity != nil {
			nb.AngularVelocity = *p.AngularVelocity
		}
	}
	if p.Static != nil {
		inv.Static = ptr(b.Static)
		nb.Static = *p.Static
		nb.updateInverse()
	}
	if nb.Static && !b.Static {
		nb.Velocity, nb.AngularVelocity = geom.Vec2{}, 0
	}
	if p.Collidable != nil {
		inv.Collidable = ptr(b.Collidable)
		nb.Collidable = *p.Collidable
	}
	if p.Color != nil {
		inv.Color = ptr(b.Color)
		nb.Color = *p.Color
	}
	return nb, inv
}

func ptr[T any](v T) *T { return &v }
