package geom

import (
	"errors"
	"fmt"
	"math"
)

// MaxPolygonVertices bounds the vertex count of a single convex polygon.
const MaxPolygonVertices = 16

// minEdgeLength rejects polygons with collapsed edges.
const minEdgeLength = 1e-4

var (
	// ErrDegenerateShape is returned when a shape has no usable area.
	ErrDegenerateShape = errors.New("geom: degenerate shape")
)

type ShapeKind int

const (
	KindCircle ShapeKind = iota
	KindPolygon
)

func (k ShapeKind) String() string {
	switch k {
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	}
	return fmt.Sprintf("ShapeKind(%d)", int(k))
}

// MassData holds mass properties. Inertia is taken about Center.
type MassData struct {
	Mass    float64
	Inertia float64
	Center  Vec2
}

// Shape is the closed set of collision shapes. Only [Circle] and
// [Polygon] implement it.
type Shape interface {
	Kind() ShapeKind
	Area() float64
	MassData(density float64) MassData
	AABB(xf Transform) AABB
	Contains(xf Transform, p Vec2) bool
	// BoundingRadius is the largest distance from the local origin to the outline.
	BoundingRadius() float64
	isShape()
}

type Circle struct {
	Radius float64
}

func NewCircle(radius float64) (Circle, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return Circle{}, fmt.Errorf("%w: circle radius must be positive, got %v", ErrDegenerateShape, radius)
	}
	return Circle{Radius: radius}, nil
}

func (Circle) Kind() ShapeKind { return KindCircle }
func (Circle) isShape()        {}

func (c Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

func (c Circle) MassData(density float64) MassData {
	m := density * c.Area()
	return MassData{Mass: m, Inertia: 0.5 * m * c.Radius * c.Radius}
}

func (c Circle) AABB(xf Transform) AABB {
	r := Vec2{X: c.Radius, Y: c.Radius}
	return AABB{Min: xf.P.Sub(r), Max: xf.P.Add(r)}
}

func (c Circle) Contains(xf Transform, p Vec2) bool {
	return p.Sub(xf.P).LenSq() <= c.Radius*c.Radius
}

func (c Circle) BoundingRadius() float64 { return c.Radius }

// Polygon is a convex polygon wound counter-clockwise. It is immutable once
// built; use [NewPolygon] or [NewBox].
type Polygon struct {
	verts   []Vec2
	normals []Vec2
}

// NewPolygon validates and builds a convex polygon. Clockwise input is
// reversed. Collinear vertices, collapsed edges, and concave outlines are
// rejected with [ErrDegenerateShape].
func NewPolygon(vertices []Vec2) (Polygon, error) {
	n := len(vertices)
	if n < 3 {
		return Polygon{}, fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrDegenerateShape, n)
	}
	if n > MaxPolygonVertices {
		return Polygon{}, fmt.Errorf("%w: polygon has %d vertices, max %d", ErrDegenerateShape, n, MaxPolygonVertices)
	}

	verts := make([]Vec2, n)
	copy(verts, vertices)
	for _, v := range verts {
		if !v.IsFinite() {
			return Polygon{}, fmt.Errorf("%w: non-finite vertex %v", ErrDegenerateShape, v)
		}
	}
	if signedArea(verts) < 0 {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			verts[i], verts[j] = verts[j], verts[i]
		}
	}

	normals := make([]Vec2, n)
	for i := 0; i < n; i++ {
		edge := verts[(i+1)%n].Sub(verts[i])
		if edge.Len() < minEdgeLength {
			return Polygon{}, fmt.Errorf("%w: edge %d is too short", ErrDegenerateShape, i)
		}
		next := verts[(i+2)%n].Sub(verts[(i+1)%n])
		if edge.Cross(next) <= Epsilon {
			return Polygon{}, fmt.Errorf("%w: polygon is not strictly convex at vertex %d", ErrDegenerateShape, (i+1)%n)
		}
		normals[i] = CrossVS(edge, 1).Normalize()
	}

	return Polygon{verts: verts, normals: normals}, nil
}

// NewBox builds a w by h rectangle centred on the local origin.
func NewBox(w, h float64) (Polygon, error) {
	if !(w > 0) || !(h > 0) {
		return Polygon{}, fmt.Errorf("%w: box size must be positive, got %vx%v", ErrDegenerateShape, w, h)
	}
	hx, hy := w/2, h/2
	return NewPolygon([]Vec2{{-hx, -hy}, {hx, -hy}, {hx, hy}, {-hx, hy}})
}

func (Polygon) Kind() ShapeKind { return KindPolygon }
func (Polygon) isShape()        {}

func (p Polygon) Count() int { return len(p.verts) }

func (p Polygon) Vertex(i int) Vec2 { return p.verts[i] }

func (p Polygon) Normal(i int) Vec2 { return p.normals[i] }

// Vertices returns a copy of the local vertex list.
func (p Polygon) Vertices() []Vec2 {
	out := make([]Vec2, len(p.verts))
	copy(out, p.verts)
	return out
}

// WorldVertices returns the vertices mapped through xf.
func (p Polygon) WorldVertices(xf Transform) []Vec2 {
	out := make([]Vec2, len(p.verts))
	for i, v := range p.verts {
		out[i] = xf.Apply(v)
	}
	return out
}

func (p Polygon) Area() float64 { return signedArea(p.verts) }

// MassData integrates over the triangle fan rooted at the first vertex.
func (p Polygon) MassData(density float64) MassData {
	const inv3 = 1.0 / 3.0
	s := p.verts[0]
	var area, inertia float64
	var center Vec2

	for i := range p.verts {
		e1 := p.verts[i].Sub(s)
		e2 := p.verts[(i+1)%len(p.verts)].Sub(s)
		d := e1.Cross(e2)

		tri := 0.5 * d
		area += tri
		center = center.Add(e1.Add(e2).Scale(tri * inv3))

		intx2 := e1.X*e1.X + e2.X*e1.X + e2.X*e2.X
		inty2 := e1.Y*e1.Y + e2.Y*e1.Y + e2.Y*e2.Y
		inertia += (0.25 * inv3 * d) * (intx2 + inty2)
	}

	center = center.Scale(1 / area)
	mass := density * area
	return MassData{
		Mass:    mass,
		Inertia: density*inertia - mass*center.LenSq(),
		Center:  center.Add(s),
	}
}

func (p Polygon) AABB(xf Transform) AABB {
	lo := xf.Apply(p.verts[0])
	hi := lo
	for _, v := range p.verts[1:] {
		w := xf.Apply(v)
		lo = Vec2{X: math.Min(lo.X, w.X), Y: math.Min(lo.Y, w.Y)}
		hi = Vec2{X: math.Max(hi.X, w.X), Y: math.Max(hi.Y, w.Y)}
	}
	return AABB{Min: lo, Max: hi}
}

func (p Polygon) Contains(xf Transform, pt Vec2) bool {
	local := xf.ApplyInv(pt)
	for i, n := range p.normals {
		if n.Dot(local.Sub(p.verts[i])) > 0 {
			return false
		}
	}
	return true
}

func (p Polygon) BoundingRadius() float64 {
	var r float64
	for _, v := range p.verts {
		r = math.Max(r, v.Len())
	}
	return r
}

// PointInPolygon reports whether p lies inside or on the boundary of the
// polygon given by verts. The outline may be convex or concave and in
// either winding order.
func PointInPolygon(p Vec2, verts []Vec2) bool {
	n := len(verts)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := verts[i], verts[j]
		if ClosestPointOnSegment(p, a, b).Dist(p) < Epsilon {
			return true
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

func signedArea(verts []Vec2) float64 {
	var a float64
	for i := range verts {
		a += verts[i].Cross(verts[(i+1)%len(verts)])
	}
	return 0.5 * a
}
