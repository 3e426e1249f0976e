package geom

import "math"

// Manifold describes an overlap between two shapes. Normal is a unit vector
// pointing from A towards B, Points are world-space contact points and Depth
// is the penetration along Normal.
type Manifold struct {
	Normal Vec2
	Points []Vec2
	Depth  float64
}

// Flip returns the manifold as seen from the other shape.
func (m Manifold) Flip() Manifold {
	return Manifold{Normal: m.Normal.Neg(), Points: m.Points, Depth: m.Depth}
}

// Collide dispatches on the shape pair. The second result is false when the
// shapes do not touch.
func Collide(a Shape, xa Transform, b Shape, xb Transform) (Manifold, bool) {
	switch sa := a.(type) {
	case Circle:
		switch sb := b.(type) {
		case Circle:
			return CollideCircles(sa, xa, sb, xb)
		case Polygon:
			return CollideCirclePolygon(sa, xa, sb, xb)
		}
	case Polygon:
		switch sb := b.(type) {
		case Circle:
			m, ok := CollideCirclePolygon(sb, xb, sa, xa)
			if !ok {
				return Manifold{}, false
			}
			return m.Flip(), true
		case Polygon:
			return CollidePolygons(sa, xa, sb, xb)
		}
	}
	return Manifold{}, false
}

func CollideCircles(a Circle, xa Transform, b Circle, xb Transform) (Manifold, bool) {
	d := xb.P.Sub(xa.P)
	r := a.Radius + b.Radius
	distSq := d.LenSq()
	if distSq > r*r {
		return Manifold{}, false
	}

	dist := math.Sqrt(distSq)
	normal := Vec2{Y: 1}
	if dist > Epsilon {
		normal = d.Scale(1 / dist)
	}
	depth := r - dist
	point := xa.P.Add(normal.Scale(a.Radius - 0.5*depth))
	return Manifold{Normal: normal, Points: []Vec2{point}, Depth: depth}, true
}

// CollideCirclePolygon tests circle a against polygon b. The normal points
// from the circle into the polygon.
func CollideCirclePolygon(a Circle, xa Transform, b Polygon, xb Transform) (Manifold, bool) {
	center := xb.ApplyInv(xa.P)

	best := 0
	sep := -math.MaxFloat64
	for i, n := range b.normals {
		s := n.Dot(center.Sub(b.verts[i]))
		if s > a.Radius {
			return Manifold{}, false
		}
		if s > sep {
			sep = s
			best = i
		}
	}

	v1 := b.verts[best]
	v2 := b.verts[(best+1)%len(b.verts)]

	// centre inside the polygon
	if sep < Epsilon {
		n := b.normals[best]
		return Manifold{
			Normal: xb.Q.Apply(n).Neg(),
			Points: []Vec2{xb.Apply(center.Sub(n.Scale(sep)))},
			Depth:  a.Radius - sep,
		}, true
	}

	u1 := center.Sub(v1).Dot(v2.Sub(v1))
	u2 := center.Sub(v2).Dot(v1.Sub(v2))

	var local, face Vec2
	var depth float64
	switch {
	case u1 <= 0:
		dist := center.Dist(v1)
		if dist > a.Radius {
			return Manifold{}, false
		}
		local, face, depth = center.Sub(v1).Normalize(), v1, a.Radius-dist
	case u2 <= 0:
		dist := center.Dist(v2)
		if dist > a.Radius {
			return Manifold{}, false
		}
		local, face, depth = center.Sub(v2).Normalize(), v2, a.Radius-dist
	default:
		n := b.normals[best]
		local, face, depth = n, center.Sub(n.Scale(sep)), a.Radius-sep
	}

	return Manifold{
		Normal: xb.Q.Apply(local).Neg(),
		Points: []Vec2{xb.Apply(face)},
		Depth:  depth,
	}, true
}

// CollidePolygons runs a separating-axis test and clips the incident edge
// against the reference face, yielding up to two contact points.
func CollidePolygons(a Polygon, xa Transform, b Polygon, xb Transform) (Manifold, bool) {
	edgeA, sepA := maxSeparation(a, xa, b, xb)
	if sepA > 0 {
		return Manifold{}, false
	}
	edgeB, sepB := maxSeparation(b, xb, a, xa)
	if sepB > 0 {
		return Manifold{}, false
	}

	ref, xr, inc, xi, edge, flip := a, xa, b, xb, edgeA, false
	if !biasGreaterThan(sepA, sepB) {
		ref, xr, inc, xi, edge, flip = b, xb, a, xa, edgeB, true
	}

	incident := incidentEdge(ref, xr, inc, xi, edge)

	v1 := xr.Apply(ref.verts[edge])
	v2 := xr.Apply(ref.verts[(edge+1)%len(ref.verts)])
	tangent := v2.Sub(v1).Normalize()
	normal := CrossVS(tangent, 1)

	var ok bool
	if incident, ok = clipSegment(incident, tangent.Neg(), -tangent.Dot(v1)); !ok {
		return Manifold{}, false
	}
	if incident, ok = clipSegment(incident, tangent, tangent.Dot(v2)); !ok {
		return Manifold{}, false
	}

	front := normal.Dot(v1)
	m := Manifold{Normal: normal}
	if flip {
		m.Normal = normal.Neg()
	}
	for _, p := range incident {
		sep := normal.Dot(p) - front
		if sep <= 0 {
			m.Points = append(m.Points, p)
			m.Depth = math.Max(m.Depth, -sep)
		}
	}
	if len(m.Points) == 0 {
		return Manifold{}, false
	}
	return m, true
}

// maxSeparation finds the face of a whose normal gives the largest
// separation from b.
func maxSeparation(a Polygon, xa Transform, b Polygon, xb Transform) (int, float64) {
	best := 0
	bestSep := -math.MaxFloat64
	for i, n := range a.normals {
		// face plane of a, expressed in b's frame
		nb := xb.Q.ApplyInv(xa.Q.Apply(n))
		vb := xb.ApplyInv(xa.Apply(a.verts[i]))

		s := math.MaxFloat64
		for _, w := range b.verts {
			s = math.Min(s, nb.Dot(w.Sub(vb)))
		}
		if s > bestSep {
			bestSep = s
			best = i
		}
	}
	return best, bestSep
}

// incidentEdge returns the world-space edge of inc most anti-parallel to
// the reference face normal.
func incidentEdge(ref Polygon, xr Transform, inc Polygon, xi Transform, edge int) [2]Vec2 {
	n := xi.Q.ApplyInv(xr.Q.Apply(ref.normals[edge]))
	idx := 0
	minDot := math.MaxFloat64
	for i, m := range inc.normals {
		if d := n.Dot(m); d < minDot {
			minDot = d
			idx = i
		}
	}
	return [2]Vec2{
		xi.Apply(inc.verts[idx]),
		xi.Apply(inc.verts[(idx+1)%len(inc.verts)]),
	}
}

// clipSegment keeps the part of seg behind the plane n·x = offset.
func clipSegment(seg [2]Vec2, n Vec2, offset float64) ([2]Vec2, bool) {
	var out [2]Vec2
	count := 0

	d0 := n.Dot(seg[0]) - offset
	d1 := n.Dot(seg[1]) - offset
	if d0 <= 0 {
		out[count] = seg[0]
		count++
	}
	if d1 <= 0 {
		out[count] = seg[1]
		count++
	}
	// an endpoint exactly on the plane still bounds the segment
	if (d0*d1 < 0 || (d0 == 0) != (d1 == 0)) && count < 2 {
		t := d0 / (d0 - d1)
		out[count] = seg[0].Lerp(seg[1], t)
		count++
	}
	return out, count == 2
}

// biasGreaterThan prefers a as the reference face unless b is clearly
// better, which keeps face selection stable between frames.
func biasGreaterThan(a, b float64) bool {
	const relative, absolute = 0.95, 0.01
	return a >= b*relative+a*absolute
}
