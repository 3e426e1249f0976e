package sim

import (
	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

// endpoint resolves a constraint end to its body (nil for the world or a
// missing body), the world anchor point and the lever arm from the centre
// of mass.
func endpoint(sc *scene.Scene, id scene.ID, anchor geom.Vec2) (*scene.Body, geom.Vec2, geom.Vec2) {
	if id == scene.WorldID {
		return nil, anchor, geom.Vec2{}
	}
	b := sc.Lookup(id)
	if b == nil {
		return nil, anchor, geom.Vec2{}
	}
	p := b.WorldPoint(anchor)
	return b, p, p.Sub(b.WorldCenter())
}

// applySprings adds the damped spring forces for one step as impulses.
func (s *Stepper) applySprings(sc *scene.Scene, constraints []scene.Constraint, dt float64) {
	for _, c := range constraints {
		sp, ok := c.(*scene.Spring)
		if !ok {
			continue
		}
		a, pa, ra := endpoint(sc, sp.BodyA, sp.AnchorA)
		b, pb, rb := endpoint(sc, sp.BodyB, sp.AnchorB)

		d := pb.Sub(pa)
		length := d.Len()
		n := d.Normalize()
		if n.IsZero() {
			continue
		}
		vrel := relativeVelocity(a, b, ra, rb).Dot(n)
		f := sp.Stiffness*(length-sp.RestLength) + sp.Damping*vrel

		// stretched springs pull A towards B
		applyPair(a, b, n.Scale(-f*dt), ra, rb)
	}
}

type hingeJoint struct {
	a, b   *scene.Body
	rA, rB geom.Vec2
	// inverse of the 2x2 effective mass matrix
	m11, m12, m22 float64
	bias          geom.Vec2
}

func (s *Stepper) prepareHinges(sc *scene.Scene, constraints []scene.Constraint, dt float64) {
	s.hinges = s.hinges[:0]
	for _, c := range constraints {
		h, ok := c.(*scene.Hinge)
		if !ok {
			continue
		}
		a, pa, ra := endpoint(sc, h.BodyA, h.AnchorA)
		b, pb, rb := endpoint(sc, h.BodyB, h.AnchorB)

		imA, iiA := inverseMass(a)
		imB, iiB := inverseMass(b)
		if imA+imB+iiA+iiB == 0 {
			continue
		}

		k11 := imA + imB + iiA*ra.Y*ra.Y + iiB*rb.Y*rb.Y
		k12 := -iiA*ra.X*ra.Y - iiB*rb.X*rb.Y
		k22 := imA + imB + iiA*ra.X*ra.X + iiB*rb.X*rb.X
		det := k11*k22 - k12*k12
		if det == 0 {
			continue
		}
		inv := 1 / det

		s.hinges = append(s.hinges, hingeJoint{
			a:    a,
			b:    b,
			rA:   ra,
			rB:   rb,
			m11:  inv * k22,
			m12:  -inv * k12,
			m22:  inv * k11,
			bias: pb.Sub(pa).Scale(-s.cfg.Baumgarte / dt),
		})
	}
}

func (s *Stepper) solveHinges() {
	for i := range s.hinges {
		h := &s.hinges[i]
		cdot := relativeVelocity(h.a, h.b, h.rA, h.rB)
		rhs := h.bias.Sub(cdot)
		p := geom.Vec2{
			X: h.m11*rhs.X + h.m12*rhs.Y,
			Y: h.m12*rhs.X + h.m22*rhs.Y,
		}
		applyPair(h.a, h.b, p, h.rA, h.rB)
	}
}
