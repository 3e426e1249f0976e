package tui

import (
	"math"
	"strings"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

// Terminal cells are roughly twice as tall as they are wide.
const cellAspect = 2.0

// Canvas rasterises a scene into a grid of runes. World y points up; row
// zero is the top of the view.
type Canvas struct {
	w, h   int
	cells  [][]rune
	center geom.Vec2
	scale  float64 // columns per metre
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{scale: 2}
	c.Resize(w, h)
	return c
}

func (c *Canvas) Resize(w, h int) {
	if w < 10 {
		w = 10
	}
	if h < 5 {
		h = 5
	}
	c.w, c.h = w, h
	c.cells = make([][]rune, h)
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.Clear()
}

func (c *Canvas) Size() (int, int) { return c.w, c.h }

func (c *Canvas) Clear() {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = ' '
		}
	}
}

// Fit centres the view on every body in sc with a small margin. An empty
// scene gets a 20 metre wide view around the origin.
func (c *Canvas) Fit(sc *scene.Scene) {
	bodies := sc.BodyList()
	if len(bodies) == 0 {
		c.center = geom.V(0, 5)
		c.scale = float64(c.w) / 20
		return
	}
	box := bodies[0].AABB()
	for _, b := range bodies[1:] {
		bb := b.AABB()
		box.Min = geom.V(math.Min(box.Min.X, bb.Min.X), math.Min(box.Min.Y, bb.Min.Y))
		box.Max = geom.V(math.Max(box.Max.X, bb.Max.X), math.Max(box.Max.Y, bb.Max.Y))
	}
	c.center = box.Min.Lerp(box.Max, 0.5)
	wx := (box.Max.X - box.Min.X) * 1.2
	wy := (box.Max.Y - box.Min.Y) * 1.2
	c.scale = math.Min(float64(c.w)/math.Max(wx, 1), cellAspect*float64(c.h)/math.Max(wy, 1))
}

// Cell maps a world point to a column and row.
func (c *Canvas) Cell(p geom.Vec2) (int, int) {
	x := float64(c.w)/2 + (p.X-c.center.X)*c.scale
	y := float64(c.h)/2 - (p.Y-c.center.Y)*c.scale/cellAspect
	return int(math.Floor(x)), int(math.Floor(y))
}

// World maps the centre of a cell back to a world point.
func (c *Canvas) World(col, row int) geom.Vec2 {
	x := (float64(col)+0.5-float64(c.w)/2)/c.scale + c.center.X
	y := -(float64(row)+0.5-float64(c.h)/2)*cellAspect/c.scale + c.center.Y
	return geom.V(x, y)
}

func (c *Canvas) Set(x, y int, r rune) {
	if x >= 0 && x < c.w && y >= 0 && y < c.h {
		c.cells[y][x] = r
	}
}

func (c *Canvas) Plot(p geom.Vec2, r rune) {
	x, y := c.Cell(p)
	c.Set(x, y, r)
}

// Line draws between two cells with Bresenham's algorithm.
func (c *Canvas) Line(x1, y1, x2, y2 int, r rune) {
	dx := intAbs(x2 - x1)
	dy := intAbs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x1, y1, r)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (c *Canvas) Segment(a, b geom.Vec2, r rune) {
	x1, y1 := c.Cell(a)
	x2, y2 := c.Cell(b)
	c.Line(x1, y1, x2, y2, r)
}

// Draw renders bodies, then constraints on top.
func (c *Canvas) Draw(sc *scene.Scene) {
	for _, b := range sc.BodyList() {
		c.drawBody(b)
	}
	for _, con := range sc.ConstraintList() {
		switch k := con.(type) {
		case *scene.Hinge:
			c.Plot(anchor(sc, k.BodyA, k.AnchorA), '+')
		case *scene.Spring:
			c.Segment(anchor(sc, k.BodyA, k.AnchorA), anchor(sc, k.BodyB, k.AnchorB), '~')
		}
	}
}

func (c *Canvas) drawBody(b *scene.Body) {
	r := '#'
	switch {
	case b.Static:
		r = '='
	case b.Sleeping:
		r = ':'
	}
	xf := b.Transform()
	switch s := b.Shape.(type) {
	case geom.Circle:
		steps := int(math.Max(8, 2*math.Pi*s.Radius*c.scale))
		prev := b.Position.Add(geom.V(s.Radius, 0))
		for i := 1; i <= steps; i++ {
			a := 2 * math.Pi * float64(i) / float64(steps)
			next := b.Position.Add(geom.V(s.Radius*math.Cos(a), s.Radius*math.Sin(a)))
			c.Segment(prev, next, r)
			prev = next
		}
		// spoke shows the rotation
		c.Segment(b.Position, b.WorldPoint(geom.V(s.Radius*0.7, 0)), '·')
	case geom.Polygon:
		verts := s.WorldVertices(xf)
		for i := range verts {
			c.Segment(verts[i], verts[(i+1)%len(verts)], r)
		}
	}
}

func anchor(sc *scene.Scene, id scene.ID, local geom.Vec2) geom.Vec2 {
	if b := sc.Lookup(id); b != nil {
		return b.WorldPoint(local)
	}
	return local
}

func (c *Canvas) String() string {
	var sb strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(string(row))
	}
	return sb.String()
}

// Rows returns the grid as strings without trailing newlines.
func (c *Canvas) Rows() []string {
	out := make([]string, len(c.cells))
	for i, row := range c.cells {
		out[i] = string(row)
	}
	return out
}

func intAbs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
