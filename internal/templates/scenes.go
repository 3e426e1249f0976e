package templates

import (
	"math"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

var (
	floorColor  = &scene.Color{R: 90, G: 90, B: 90, A: 255}
	marbleColor = &scene.Color{R: 220, G: 60, B: 60, A: 255}
)

// springPair leaves the balls 6 apart on a spring of rest length 5.
func springPair(b *Builder) {
	b.Gravity(geom.Vec2{})
	left := b.Ball(0.5, scene.BodyDef{Label: "left", Position: geom.V(-3, 5)})
	right := b.Ball(0.5, scene.BodyDef{Label: "right", Position: geom.V(3, 5)})
	b.Spring(scene.SpringDef{BodyA: left, BodyB: right, RestLength: 5, Stiffness: 20, Damping: 4})
}

func drop(b *Builder) {
	b.Box(20, 1, scene.BodyDef{Label: "floor", Static: true, Color: floorColor})
	b.Ball(0.5, scene.BodyDef{Label: "ball", Position: geom.V(0, 5)})
	b.Box(1, 1, scene.BodyDef{Label: "crate", Position: geom.V(1.5, 8), Angle: 0.3})
}

func pendulum(b *Builder) {
	const links = 4
	pivot := geom.V(0, 10)
	prev := scene.WorldID
	prevAnchor := pivot
	for i := 0; i < links; i++ {
		link := b.Box(1, 0.2, scene.BodyDef{
			Label:    "link",
			Position: geom.V(pivot.X+float64(i)+0.5, pivot.Y),
		})
		b.Hinge(scene.HingeDef{BodyA: prev, BodyB: link, AnchorA: prevAnchor, AnchorB: geom.V(-0.5, 0)})
		prev, prevAnchor = link, geom.V(0.5, 0)
	}
}

func newtonsCradle(b *Builder) {
	const (
		balls  = 5
		radius = 0.5
		rod    = 5.0
		pull   = -0.6
	)
	steel := scene.Material{Density: 7.8, Friction: 0, Restitution: 1}
	for i := 0; i < balls; i++ {
		pivot := geom.V(float64(i)*2*radius-2*radius*(balls-1)/2, 10)
		angle := 0.0
		if i == 0 {
			angle = pull
		}
		pos := pivot.Sub(geom.V(0, rod).Rotate(angle))
		ball := b.Ball(radius, scene.BodyDef{Position: pos, Angle: angle, Material: steel})
		b.Hinge(scene.HingeDef{BodyA: scene.WorldID, BodyB: ball, AnchorA: pivot, AnchorB: geom.V(0, rod)})
	}
}

// algothlon is a small obstacle course: a ramp, two bumps, a spring
// bumper and a cup at the far end.
func algothlon(b *Builder) {
	b.Box(30, 1, scene.BodyDef{Label: "floor", Static: true, Color: floorColor})
	b.Polygon([]geom.Vec2{{X: -14, Y: 0.5}, {X: -6, Y: 0.5}, {X: -14, Y: 6}}, scene.BodyDef{Label: "ramp", Static: true, Color: floorColor})
	b.Box(1, 0.4, scene.BodyDef{Label: "bump", Static: true, Position: geom.V(-2, 0.7), Color: floorColor})
	b.Box(1, 0.4, scene.BodyDef{Label: "bump", Static: true, Position: geom.V(3, 0.7), Color: floorColor})

	paddle := b.Box(0.3, 2, scene.BodyDef{Label: "paddle", Position: geom.V(7, 2)})
	b.Hinge(scene.HingeDef{BodyA: scene.WorldID, BodyB: paddle, AnchorA: geom.V(7, 3), AnchorB: geom.V(0, 1)})
	b.Spring(scene.SpringDef{BodyA: scene.WorldID, BodyB: paddle, AnchorA: geom.V(9, 1), AnchorB: geom.V(0, -1), RestLength: 2, Stiffness: 30, Damping: 2})

	b.Box(0.3, 2, scene.BodyDef{Label: "cup", Static: true, Position: geom.V(11, 1.5), Color: floorColor})
	b.Box(0.3, 2, scene.BodyDef{Label: "cup", Static: true, Position: geom.V(14, 1.5), Color: floorColor})

	b.Ball(0.4, scene.BodyDef{
		Label:    "marble",
		Position: geom.V(-13, 6.5+0.4*math.Sqrt2),
		Color:    marbleColor,
	})
}
