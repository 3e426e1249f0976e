package geom

import (
	"math"
	"testing"
)

const tol = 1e-9

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func nearVec(a, b Vec2, eps float64) bool { return near(a.X, b.X, eps) && near(a.Y, b.Y, eps) }

func TestVecArithmetic(t *testing.T) {
	a := V(1, 2)
	b := V(3, -4)

	if got := a.Add(b); got != V(4, -2) {
		t.Errorf("expected (4,-2), got %v", got)
	}
	if got := a.Sub(b); got != V(-2, 6) {
		t.Errorf("expected (-2,6), got %v", got)
	}
	if got := a.Dot(b); got != -5 {
		t.Errorf("expected dot -5, got %f", got)
	}
	if got := a.Cross(b); got != -10 {
		t.Errorf("expected cross -10, got %f", got)
	}
	if got := b.Len(); got != 5 {
		t.Errorf("expected length 5, got %f", got)
	}
}

func TestNormalizeZeroSentinel(t *testing.T) {
	if got := (Vec2{}).Normalize(); got != (Vec2{}) {
		t.Errorf("expected zero vector, got %v", got)
	}
	if got := V(0, 1e-12).Normalize(); got != (Vec2{}) {
		t.Errorf("expected zero vector for tiny input, got %v", got)
	}
	if got := V(3, 4).Normalize(); !nearVec(got, V(0.6, 0.8), tol) {
		t.Errorf("expected (0.6,0.8), got %v", got)
	}
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name  string
		in    Vec2
		angle float64
		want  Vec2
	}{
		{"quarter turn", V(1, 0), math.Pi / 2, V(0, 1)},
		{"half turn", V(1, 2), math.Pi, V(-1, -2)},
		{"zero", V(5, -3), 0, V(5, -3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Rotate(tt.angle); !nearVec(got, tt.want, tol) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTransformInverse(t *testing.T) {
	xf := NewTransform(V(3, -2), 0.7)
	p := V(1.5, 4)

	if got := xf.ApplyInv(xf.Apply(p)); !nearVec(got, p, tol) {
		t.Errorf("expected round trip to %v, got %v", p, got)
	}
}

func TestScalarCross(t *testing.T) {
	v := V(2, 3)
	if got := CrossSV(1, v); got != v.Perp() {
		t.Errorf("expected perp %v, got %v", v.Perp(), got)
	}
	if got := CrossVS(v, 1); got != v.Perp().Neg() {
		t.Errorf("expected %v, got %v", v.Perp().Neg(), got)
	}
}

func TestClosestPointOnSegment(t *testing.T) {
	a, b := V(0, 0), V(10, 0)

	tests := []struct {
		name string
		p    Vec2
		want Vec2
	}{
		{"interior", V(4, 3), V(4, 0)},
		{"before start", V(-2, 1), a},
		{"past end", V(12, -1), b},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClosestPointOnSegment(tt.p, a, b); !nearVec(got, tt.want, tol) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if got := ClosestPointOnSegment(V(1, 1), a, a); got != a {
		t.Errorf("expected degenerate segment to return its start, got %v", got)
	}
}

func TestAABBOverlap(t *testing.T) {
	a := AABB{Min: V(0, 0), Max: V(2, 2)}
	b := AABB{Min: V(2, 1), Max: V(3, 3)}
	c := AABB{Min: V(2.1, 0), Max: V(3, 1)}

	if !a.Overlaps(b) {
		t.Error("expected touching boxes to overlap")
	}
	if a.Overlaps(c) {
		t.Error("expected separated boxes not to overlap")
	}
	if u := a.Union(c); u.Max != V(3, 2) || u.Min != V(0, 0) {
		t.Errorf("unexpected union %v", u)
	}
}
