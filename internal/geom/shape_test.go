package geom

import (
	"errors"
	"math"
	"testing"
)

func TestNewPolygonValidation(t *testing.T) {
	tests := []struct {
		name  string
		verts []Vec2
	}{
		{"too few", []Vec2{{0, 0}, {1, 0}}},
		{"collinear", []Vec2{{0, 0}, {1, 0}, {2, 0}, {2, 2}}},
		{"concave", []Vec2{{0, 0}, {2, 0}, {1, 0.5}, {2, 2}, {0, 2}}},
		{"collapsed edge", []Vec2{{0, 0}, {1, 0}, {1, 0}, {0, 1}}},
		{"non-finite", []Vec2{{0, 0}, {math.NaN(), 0}, {0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolygon(tt.verts)
			if !errors.Is(err, ErrDegenerateShape) {
				t.Errorf("expected ErrDegenerateShape, got %v", err)
			}
		})
	}
}

func TestNewPolygonReordersClockwise(t *testing.T) {
	cw := []Vec2{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	p, err := NewPolygon(cw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Area() <= 0 {
		t.Errorf("expected positive area after reorder, got %f", p.Area())
	}
	for i := 0; i < p.Count(); i++ {
		e := p.Vertex((i + 1) % p.Count()).Sub(p.Vertex(i))
		if got := p.Normal(i).Dot(e); math.Abs(got) > tol {
			t.Errorf("normal %d not perpendicular to its edge: %f", i, got)
		}
	}
}

func TestBoxMassData(t *testing.T) {
	box, err := NewBox(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	md := box.MassData(1)

	if !near(md.Mass, 4, tol) {
		t.Errorf("expected mass 4, got %f", md.Mass)
	}
	want := 4.0 * (4 + 4) / 12
	if !near(md.Inertia, want, 1e-9) {
		t.Errorf("expected inertia %f, got %f", want, md.Inertia)
	}
	if !nearVec(md.Center, Vec2{}, tol) {
		t.Errorf("expected centroid at origin, got %v", md.Center)
	}
}

func TestTriangleCentroid(t *testing.T) {
	tri, err := NewPolygon([]Vec2{{0, 0}, {3, 0}, {0, 3}})
	if err != nil {
		t.Fatal(err)
	}
	md := tri.MassData(2)
	if !nearVec(md.Center, V(1, 1), 1e-9) {
		t.Errorf("expected centroid (1,1), got %v", md.Center)
	}
	if !near(md.Mass, 9, 1e-9) {
		t.Errorf("expected mass 9, got %f", md.Mass)
	}
}

func TestCircleMassData(t *testing.T) {
	c, err := NewCircle(2)
	if err != nil {
		t.Fatal(err)
	}
	md := c.MassData(1)
	if !near(md.Mass, 4*math.Pi, tol) {
		t.Errorf("expected mass 4pi, got %f", md.Mass)
	}
	if !near(md.Inertia, 0.5*md.Mass*4, tol) {
		t.Errorf("expected inertia %f, got %f", 0.5*md.Mass*4, md.Inertia)
	}

	if _, err := NewCircle(0); !errors.Is(err, ErrDegenerateShape) {
		t.Errorf("expected ErrDegenerateShape for zero radius, got %v", err)
	}
}

func TestRotatedBoxAABB(t *testing.T) {
	box, _ := NewBox(2, 2)
	bb := box.AABB(NewTransform(V(1, 1), math.Pi/4))

	h := math.Sqrt2
	if !nearVec(bb.Min, V(1-h, 1-h), 1e-9) || !nearVec(bb.Max, V(1+h, 1+h), 1e-9) {
		t.Errorf("unexpected aabb %v", bb)
	}
}

func TestPointInPolygon(t *testing.T) {
	lshape := []Vec2{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}}

	tests := []struct {
		name string
		p    Vec2
		want bool
	}{
		{"inside lower arm", V(1.5, 0.5), true},
		{"inside upper arm", V(0.5, 1.5), true},
		{"notch", V(1.5, 1.5), false},
		{"on edge", V(1, 0), true},
		{"far away", V(5, 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.p, lshape); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestShapeContains(t *testing.T) {
	box, _ := NewBox(2, 2)
	xf := NewTransform(V(5, 0), math.Pi/4)

	if !box.Contains(xf, V(5, 1.3)) {
		t.Error("expected point inside rotated box")
	}
	if box.Contains(xf, V(6, 1)) {
		t.Error("expected corner region outside rotated box")
	}

	c := Circle{Radius: 1}
	if !c.Contains(NewTransform(V(1, 1), 0), V(1.5, 1.5)) {
		t.Error("expected point inside circle")
	}
}
