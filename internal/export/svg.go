// Package export renders scenes and recorded paths as SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

const background = "#0a0a0a"

// view maps world coordinates onto an SVG viewport with y flipped.
type view struct {
	min, max      geom.Vec2
	width, height float64
}

func newView(lo, hi geom.Vec2, width, height int) view {
	rx, ry := hi.X-lo.X, hi.Y-lo.Y
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	return view{
		min:    geom.V(lo.X-rx*0.1, lo.Y-ry*0.1),
		max:    geom.V(hi.X+rx*0.1, hi.Y+ry*0.1),
		width:  float64(width),
		height: float64(height),
	}
}

func (v view) scale() float64 {
	return math.Min(v.width/(v.max.X-v.min.X), v.height/(v.max.Y-v.min.Y))
}

func (v view) point(p geom.Vec2) (float64, float64) {
	s := v.scale()
	return (p.X - v.min.X) * s, v.height - (p.Y-v.min.Y)*s
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

func colour(c scene.Color) string {
	return fmt.Sprintf("rgba(%d,%d,%d,%.2f)", c.R, c.G, c.B, float64(c.A)/255)
}

// SceneToSVG draws every body in its colour, hinges as small rings and
// springs as dashed lines.
func SceneToSVG(sc *scene.Scene, width, height int) string {
	var sb strings.Builder
	header(&sb, width, height)

	bodies := sc.BodyList()
	if len(bodies) == 0 {
		sb.WriteString("</svg>")
		return sb.String()
	}
	box := bodies[0].AABB()
	for _, b := range bodies[1:] {
		bb := b.AABB()
		box.Min = geom.V(math.Min(box.Min.X, bb.Min.X), math.Min(box.Min.Y, bb.Min.Y))
		box.Max = geom.V(math.Max(box.Max.X, bb.Max.X), math.Max(box.Max.Y, bb.Max.Y))
	}
	v := newView(box.Min, box.Max, width, height)
	s := v.scale()

	for _, b := range bodies {
		fill := colour(b.Color)
		switch shape := b.Shape.(type) {
		case geom.Circle:
			cx, cy := v.point(b.Position)
			ex, ey := v.point(b.WorldPoint(geom.V(shape.Radius, 0)))
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#ffffff" stroke-width="1"/>
`, cx, cy, shape.Radius*s, fill, cx, cy, ex, ey)
		case geom.Polygon:
			pts := make([]string, 0, shape.Count())
			for _, p := range shape.WorldVertices(b.Transform()) {
				x, y := v.point(p)
				pts = append(pts, fmt.Sprintf("%.1f,%.1f", x, y))
			}
			fmt.Fprintf(&sb, `<polygon points="%s" fill="%s"/>
`, strings.Join(pts, " "), fill)
		}
	}

	for _, c := range sc.ConstraintList() {
		switch k := c.(type) {
		case *scene.Hinge:
			x, y := v.point(worldAnchor(sc, k.BodyA, k.AnchorA))
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="none" stroke="#ffd700" stroke-width="1.5"/>
`, x, y)
		case *scene.Spring:
			x1, y1 := v.point(worldAnchor(sc, k.BodyA, k.AnchorA))
			x2, y2 := v.point(worldAnchor(sc, k.BodyB, k.AnchorB))
			fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#00ff00" stroke-width="1.5" stroke-dasharray="4 2"/>
`, x1, y1, x2, y2)
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func worldAnchor(sc *scene.Scene, id scene.ID, local geom.Vec2) geom.Vec2 {
	if b := sc.Lookup(id); b != nil {
		return b.WorldPoint(local)
	}
	return local
}

// TrajectoryToSVG draws a path through the given points.
func TrajectoryToSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}

	lo, hi := geom.V(xs[0], ys[0]), geom.V(xs[0], ys[0])
	for i := 0; i < n; i++ {
		lo = geom.V(math.Min(lo.X, xs[i]), math.Min(lo.Y, ys[i]))
		hi = geom.V(math.Max(hi.X, xs[i]), math.Max(hi.Y, ys[i]))
	}
	v := newView(lo, hi, width, height)

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i := 0; i < n; i++ {
		x, y := v.point(geom.V(xs[i], ys[i]))
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
