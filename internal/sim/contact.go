package sim

import (
	"math"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

type contactPoint struct {
	rA, rB      geom.Vec2
	normalMass  float64
	tangentMass float64
	bias        float64
	pn, pt      float64
}

type contact struct {
	a, b        *scene.Body
	normal      geom.Vec2
	points      [2]contactPoint
	count       int
	depth       float64
	friction    float64
	restitution float64
}

// narrowPhase builds contacts for the candidate pairs. A sleeping body
// touched by an awake one is woken.
func (s *Stepper) narrowPhase(pairs []pair) []contact {
	s.contacts = s.contacts[:0]
	for _, p := range pairs {
		m, ok := geom.Collide(p.a.Shape, p.a.Transform(), p.b.Shape, p.b.Transform())
		if !ok || len(m.Points) == 0 {
			continue
		}
		wakeTouching(p.a, p.b)

		c := contact{
			a:           p.a,
			b:           p.b,
			normal:      m.Normal,
			depth:       m.Depth,
			friction:    p.a.Material.Friction * p.b.Material.Friction,
			restitution: p.a.Material.Restitution * p.b.Material.Restitution,
		}
		for _, pt := range m.Points {
			if c.count == len(c.points) {
				break
			}
			c.points[c.count] = contactPoint{
				rA: pt.Sub(p.a.WorldCenter()),
				rB: pt.Sub(p.b.WorldCenter()),
			}
			c.count++
		}
		s.contacts = append(s.contacts, c)
	}
	return s.contacts
}

func wakeTouching(a, b *scene.Body) {
	switch {
	case a.Awake() && b.Sleeping:
		b.Wake()
	case b.Awake() && a.Sleeping:
		a.Wake()
	}
}

func (s *Stepper) prepareContacts() {
	for i := range s.contacts {
		c := &s.contacts[i]
		imA, iiA := inverseMass(c.a)
		imB, iiB := inverseMass(c.b)
		t := geom.CrossVS(c.normal, 1)

		for j := 0; j < c.count; j++ {
			cp := &c.points[j]
			rnA, rnB := cp.rA.Cross(c.normal), cp.rB.Cross(c.normal)
			kn := imA + imB + iiA*rnA*rnA + iiB*rnB*rnB
			if kn > 0 {
				cp.normalMass = 1 / kn
			}
			rtA, rtB := cp.rA.Cross(t), cp.rB.Cross(t)
			kt := imA + imB + iiA*rtA*rtA + iiB*rtB*rtB
			if kt > 0 {
				cp.tangentMass = 1 / kt
			}

			vn := relativeVelocity(c.a, c.b, cp.rA, cp.rB).Dot(c.normal)
			if vn < -s.cfg.RestitutionThreshold {
				cp.bias = -c.restitution * vn
			}
		}
	}
}

func (s *Stepper) solveContacts() {
	for i := range s.contacts {
		c := &s.contacts[i]
		t := geom.CrossVS(c.normal, 1)

		for j := 0; j < c.count; j++ {
			cp := &c.points[j]

			vn := relativeVelocity(c.a, c.b, cp.rA, cp.rB).Dot(c.normal)
			lambda := cp.normalMass * (cp.bias - vn)
			total := math.Max(cp.pn+lambda, 0)
			lambda = total - cp.pn
			cp.pn = total
			applyPair(c.a, c.b, c.normal.Scale(lambda), cp.rA, cp.rB)

			vt := relativeVelocity(c.a, c.b, cp.rA, cp.rB).Dot(t)
			lambda = -cp.tangentMass * vt
			maxF := c.friction * cp.pn
			total = math.Max(-maxF, math.Min(cp.pt+lambda, maxF))
			lambda = total - cp.pt
			cp.pt = total
			applyPair(c.a, c.b, t.Scale(lambda), cp.rA, cp.rB)
		}
	}
}

// correctPositions pushes overlapping pairs apart after integration. The
// pairs are collided again at their new transforms. It returns the
// deepest penetration seen before correction.
func (s *Stepper) correctPositions() float64 {
	var deepest float64
	for i := range s.contacts {
		c := &s.contacts[i]
		m, ok := geom.Collide(c.a.Shape, c.a.Transform(), c.b.Shape, c.b.Transform())
		if !ok {
			continue
		}
		deepest = math.Max(deepest, m.Depth)

		imA, _ := inverseMass(c.a)
		imB, _ := inverseMass(c.b)
		if imA+imB == 0 {
			continue
		}
		mag := math.Max(m.Depth-s.cfg.Slop, 0) / (imA + imB) * s.cfg.CorrectionPercent
		corr := m.Normal.Scale(mag)
		if imA > 0 {
			c.a.Position = c.a.Position.Sub(corr.Scale(imA))
		}
		if imB > 0 {
			c.b.Position = c.b.Position.Add(corr.Scale(imB))
		}
	}
	return deepest
}

// inverseMass treats static, sleeping and world endpoints as immovable.
func inverseMass(b *scene.Body) (float64, float64) {
	if b == nil || !b.Awake() {
		return 0, 0
	}
	return b.InvMass, b.InvInertia
}

func velocityAt(b *scene.Body, r geom.Vec2) geom.Vec2 {
	if b == nil {
		return geom.Vec2{}
	}
	return b.Velocity.Add(geom.CrossSV(b.AngularVelocity, r))
}

func relativeVelocity(a, b *scene.Body, rA, rB geom.Vec2) geom.Vec2 {
	return velocityAt(b, rB).Sub(velocityAt(a, rA))
}

func applyImpulse(b *scene.Body, p, r geom.Vec2) {
	im, ii := inverseMass(b)
	if im == 0 && ii == 0 {
		return
	}
	b.Velocity = b.Velocity.Add(p.Scale(im))
	b.AngularVelocity += ii * r.Cross(p)
}

// applyPair applies p to b and -p to a.
func applyPair(a, b *scene.Body, p, rA, rB geom.Vec2) {
	applyImpulse(a, p.Neg(), rA)
	applyImpulse(b, p, rB)
}
