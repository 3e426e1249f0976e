package sim

import (
	"cmp"
	"slices"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

type proxy struct {
	body *scene.Body
	box  geom.AABB
}

type pair struct {
	a, b *scene.Body
}

type pairKey [2]scene.ID

func keyOf(a, b scene.ID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// filterPairs collects body pairs that must not collide: bodies joined by
// a hinge that does not allow it.
func filterPairs(constraints []scene.Constraint) map[pairKey]struct{} {
	out := make(map[pairKey]struct{})
	for _, c := range constraints {
		h, ok := c.(*scene.Hinge)
		if !ok || h.CollideConnected {
			continue
		}
		out[keyOf(h.BodyA, h.BodyB)] = struct{}{}
	}
	return out
}

// broadPhase runs sort-and-sweep on the x axis and returns candidate pairs
// ordered by (lower id, higher id).
func (s *Stepper) broadPhase(bodies []*scene.Body, skip map[pairKey]struct{}) []pair {
	s.proxies = s.proxies[:0]
	for _, b := range bodies {
		if !b.Collidable {
			continue
		}
		s.proxies = append(s.proxies, proxy{body: b, box: b.AABB()})
	}
	slices.SortFunc(s.proxies, func(p, q proxy) int {
		if c := cmp.Compare(p.box.Min.X, q.box.Min.X); c != 0 {
			return c
		}
		return cmp.Compare(p.body.ID, q.body.ID)
	})

	s.pairs = s.pairs[:0]
	for i := range s.proxies {
		pi := s.proxies[i]
		for j := i + 1; j < len(s.proxies); j++ {
			pj := s.proxies[j]
			if pj.box.Min.X > pi.box.Max.X {
				break
			}
			if !pi.box.Overlaps(pj.box) {
				continue
			}
			// at least one side must be awake and dynamic
			if !pi.body.Awake() && !pj.body.Awake() {
				continue
			}
			if _, ok := skip[keyOf(pi.body.ID, pj.body.ID)]; ok {
				continue
			}
			a, b := pi.body, pj.body
			if a.ID > b.ID {
				a, b = b, a
			}
			s.pairs = append(s.pairs, pair{a: a, b: b})
		}
	}
	slices.SortFunc(s.pairs, func(p, q pair) int {
		if c := cmp.Compare(p.a.ID, q.a.ID); c != 0 {
			return c
		}
		return cmp.Compare(p.b.ID, q.b.ID)
	})
	return s.pairs
}
