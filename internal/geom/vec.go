package geom

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used for degenerate-length checks.
const Epsilon = 1e-9

type Vec2 struct {
	X, Y float64
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2             { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2             { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2        { return Vec2{X: v.X * f, Y: v.Y * f} }
func (v Vec2) Neg() Vec2                   { return Vec2{X: -v.X, Y: -v.Y} }
func (v Vec2) Dot(o Vec2) float64          { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Cross(o Vec2) float64        { return v.X*o.Y - v.Y*o.X }
func (v Vec2) LenSq() float64              { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Len() float64                { return math.Sqrt(v.LenSq()) }
func (v Vec2) Dist(o Vec2) float64         { return v.Sub(o).Len() }
func (v Vec2) Perp() Vec2                  { return Vec2{X: -v.Y, Y: v.X} }
func (v Vec2) String() string              { return fmt.Sprintf("(%.4f, %.4f)", v.X, v.Y) }
func (v Vec2) IsZero() bool                { return v.X == 0 && v.Y == 0 }
func (v Vec2) Lerp(o Vec2, t float64) Vec2 { return v.Add(o.Sub(v).Scale(t)) }

// Normalize returns the unit vector in the direction of v, or the zero
// vector when v is (nearly) zero-length.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l < Epsilon {
		return Vec2{}
	}
	inv := 1.0 / l
	return Vec2{X: v.X * inv, Y: v.Y * inv}
}

// Rotate rotates v counter-clockwise by angle radians.
func (v Vec2) Rotate(angle float64) Vec2 {
	return NewRot(angle).Apply(v)
}

func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// CrossSV is the cross product of a scalar (z-axis) with a vector.
func CrossSV(s float64, v Vec2) Vec2 { return Vec2{X: -s * v.Y, Y: s * v.X} }

// CrossVS is the cross product of a vector with a scalar (z-axis).
func CrossVS(v Vec2, s float64) Vec2 { return Vec2{X: s * v.Y, Y: -s * v.X} }

// Rot stores a rotation as its cosine and sine.
type Rot struct {
	C, S float64
}

func NewRot(angle float64) Rot {
	s, c := math.Sincos(angle)
	return Rot{C: c, S: s}
}

func (r Rot) Apply(v Vec2) Vec2 {
	return Vec2{X: r.C*v.X - r.S*v.Y, Y: r.S*v.X + r.C*v.Y}
}

func (r Rot) ApplyInv(v Vec2) Vec2 {
	return Vec2{X: r.C*v.X + r.S*v.Y, Y: -r.S*v.X + r.C*v.Y}
}

func (r Rot) Angle() float64 { return math.Atan2(r.S, r.C) }

// Transform is a rigid transform: rotation Q followed by translation P.
type Transform struct {
	P Vec2
	Q Rot
}

func NewTransform(p Vec2, angle float64) Transform {
	return Transform{P: p, Q: NewRot(angle)}
}

func Identity() Transform { return Transform{Q: Rot{C: 1}} }

// Apply maps a local point into world space.
func (t Transform) Apply(v Vec2) Vec2 { return t.Q.Apply(v).Add(t.P) }

// ApplyInv maps a world point into local space.
func (t Transform) ApplyInv(v Vec2) Vec2 { return t.Q.ApplyInv(v.Sub(t.P)) }

type AABB struct {
	Min, Max Vec2
}

func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y
}

func (b AABB) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: Vec2{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y)},
		Max: Vec2{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y)},
	}
}

func (b AABB) Expand(margin float64) AABB {
	return AABB{
		Min: Vec2{X: b.Min.X - margin, Y: b.Min.Y - margin},
		Max: Vec2{X: b.Max.X + margin, Y: b.Max.Y + margin},
	}
}

func (b AABB) Center() Vec2 { return b.Min.Add(b.Max).Scale(0.5) }

// ClosestPointOnSegment returns the point on segment ab nearest to p.
func ClosestPointOnSegment(p, a, b Vec2) Vec2 {
	ab := b.Sub(a)
	l2 := ab.LenSq()
	if l2 < Epsilon*Epsilon {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return a.Add(ab.Scale(t))
}
