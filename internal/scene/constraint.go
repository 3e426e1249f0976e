package scene

import (
	"fmt"
	"math"

	"github.com/san-kum/marbles/internal/geom"
)

// Defaults used by editors when a spring is drawn between two points.
const (
	DefaultSpringStiffness = 1000.0
	DefaultSpringDamping   = 10.0
)

type ConstraintKind int

const (
	KindHinge ConstraintKind = iota
	KindSpring
)

func (k ConstraintKind) String() string {
	switch k {
	case KindHinge:
		return "hinge"
	case KindSpring:
		return "spring"
	}
	return fmt.Sprintf("ConstraintKind(%d)", int(k))
}

// Constraint is the closed set of joints between two bodies. Only *Hinge
// and *Spring implement it. An endpoint equal to WorldID is anchored to
// the world and its anchor is a world point; otherwise anchors are
// body-local.
type Constraint interface {
	ConstraintID() ID
	Endpoints() (a, b ID)
	Kind() ConstraintKind
	Clone() Constraint
	isConstraint()
}

// Hinge pins two anchors together while leaving rotation free.
type Hinge struct {
	ID               ID
	BodyA, BodyB     ID
	AnchorA, AnchorB geom.Vec2
	CollideConnected bool
}

type HingeDef struct {
	BodyA, BodyB     ID
	AnchorA, AnchorB geom.Vec2
	CollideConnected bool
}

func (h *Hinge) ConstraintID() ID     { return h.ID }
func (h *Hinge) Endpoints() (ID, ID)  { return h.BodyA, h.BodyB }
func (h *Hinge) Kind() ConstraintKind { return KindHinge }
func (h *Hinge) isConstraint()        {}

func (h *Hinge) Clone() Constraint {
	c := *h
	return &c
}

// Spring is a damped spring between two anchors.
type Spring struct {
	ID               ID
	BodyA, BodyB     ID
	AnchorA, AnchorB geom.Vec2
	RestLength       float64
	Stiffness        float64
	Damping          float64
}

type SpringDef struct {
	BodyA, BodyB     ID
	AnchorA, AnchorB geom.Vec2
	RestLength       float64
	Stiffness        float64
	Damping          float64
}

func (s *Spring) ConstraintID() ID     { return s.ID }
func (s *Spring) Endpoints() (ID, ID)  { return s.BodyA, s.BodyB }
func (s *Spring) Kind() ConstraintKind { return KindSpring }
func (s *Spring) isConstraint()        {}

func (s *Spring) Clone() Constraint {
	c := *s
	return &c
}

func validateSpring(rest, k, c float64) error {
	switch {
	case !(rest >= 0) || math.IsInf(rest, 0):
		return fmt.Errorf("%w: rest length must be non-negative, got %v", ErrInvalidParameter, rest)
	case !(k >= 0) || math.IsInf(k, 0):
		return fmt.Errorf("%w: stiffness must be non-negative, got %v", ErrInvalidParameter, k)
	case !(c >= 0) || math.IsInf(c, 0):
		return fmt.Errorf("%w: damping must be non-negative, got %v", ErrInvalidParameter, c)
	}
	return nil
}

// SpringPatch lists spring fields to change. Nil fields are left alone.
type SpringPatch struct {
	AnchorA, AnchorB *geom.Vec2
	RestLength       *float64
	Stiffness        *float64
	Damping          *float64
}

func (p SpringPatch) apply(s Spring) (Spring, SpringPatch) {
	var inv SpringPatch
	ns := s
	if p.AnchorA != nil {
		inv.AnchorA, ns.AnchorA = ptr(s.AnchorA), *p.AnchorA
	}
	if p.AnchorB != nil {
		inv.AnchorB, ns.AnchorB = ptr(s.AnchorB), *p.AnchorB
	}
	if p.RestLength != nil {
		inv.RestLength, ns.RestLength = ptr(s.RestLength), *p.RestLength
	}
	if p.Stiffness != nil {
		inv.Stiffness, ns.Stiffness = ptr(s.Stiffness), *p.Stiffness
	}
	if p.Damping != nil {
		inv.Damping, ns.Damping = ptr(s.Damping), *p.Damping
	}
	return ns, inv
}

// References reports whether c has id as one of its endpoints.
func References(c Constraint, id ID) bool {
	a, b := c.Endpoints()
	return a == id || b == id
}
