package scene

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/marbles/internal/geom"
)

// DefaultGravity is standard gravity in metres per second squared.
var DefaultGravity = geom.Vec2{Y: -9.81}

// wakeMargin pads the bounds woken around an edited body so resting
// neighbours held apart by the solver slop are included.
const wakeMargin = 0.1

// Scene owns every body and constraint. It is not safe for concurrent
// use; one owner mutates it and hands out copies to readers.
type Scene struct {
	Gravity      geom.Vec2
	GravityScale float64

	bodies      map[ID]*Body
	bodyOrder   []ID
	constraints map[ID]Constraint
	consOrder   []ID
	nextID      ID
}

func New() *Scene {
	return &Scene{
		Gravity:      DefaultGravity,
		GravityScale: 1,
		bodies:       make(map[ID]*Body),
		constraints:  make(map[ID]Constraint),
		nextID:       1,
	}
}

// NextID returns the id the next created body or constraint will get.
func (s *Scene) NextID() ID { return s.nextID }

// EffectiveGravity is Gravity scaled by GravityScale.
func (s *Scene) EffectiveGravity() geom.Vec2 {
	return s.Gravity.Scale(s.GravityScale)
}

func (s *Scene) allocID() ID {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Scene) BodyCount() int       { return len(s.bodies) }
func (s *Scene) ConstraintCount() int { return len(s.constraints) }

// CreateBody validates def and adds a new body.
func (s *Scene) CreateBody(def BodyDef) (ID, error) {
	b, err := newBody(s.nextID, def)
	if err != nil {
		return 0, err
	}
	id := s.allocID()
	s.bodies[id] = &b
	s.bodyOrder = append(s.bodyOrder, id)
	return id, nil
}

// InsertBody restores a body under its original id. The id must be free
// and below the counter.
func (s *Scene) InsertBody(b Body) error {
	if b.ID == WorldID || b.ID >= s.nextID {
		return fmt.Errorf("%w: body id %v was never allocated", ErrInvalidParameter, b.ID)
	}
	if s.idTaken(b.ID) {
		return fmt.Errorf("%w: %v", ErrDuplicateID, b.ID)
	}
	if err := b.validate(); err != nil {
		return err
	}
	nb := b
	nb.updateInverse()
	s.bodies[b.ID] = &nb
	s.bodyOrder = insertSorted(s.bodyOrder, b.ID)
	s.wakeRegion(nb.AABB(), nb.ID)
	return nil
}

// DeleteBody removes a body together with every constraint attached to
// it. The removed constraint ids are returned in ascending order. Bodies
// joined to it or touching it are woken.
func (s *Scene) DeleteBody(id ID) ([]ID, error) {
	b, ok := s.bodies[id]
	if !ok {
		return nil, fmt.Errorf("%w: body %v", ErrNotFound, id)
	}
	var cascade []ID
	for _, cid := range s.consOrder {
		if References(s.constraints[cid], id) {
			cascade = append(cascade, cid)
		}
	}
	for _, cid := range cascade {
		ea, eb := s.constraints[cid].Endpoints()
		s.removeConstraint(cid)
		s.Wake(ea)
		s.Wake(eb)
	}
	box := b.AABB()
	delete(s.bodies, id)
	s.bodyOrder = removeSorted(s.bodyOrder, id)
	s.wakeRegion(box, id)
	return cascade, nil
}

// Body returns a copy of the body with the given id.
func (s *Scene) Body(id ID) (Body, error) {
	b, ok := s.bodies[id]
	if !ok {
		return Body{}, fmt.Errorf("%w: body %v", ErrNotFound, id)
	}
	return *b, nil
}

// Lookup returns the live body or nil. Only the stepper and the owning
// session should hold the pointer.
func (s *Scene) Lookup(id ID) *Body {
	return s.bodies[id]
}

// Bodies returns copies of all bodies in ascending id order.
func (s *Scene) Bodies() []Body {
	out := make([]Body, 0, len(s.bodyOrder))
	for _, id := range s.bodyOrder {
		out = append(out, *s.bodies[id])
	}
	return out
}

// BodyList returns the live bodies in ascending id order.
func (s *Scene) BodyList() []*Body {
	out := make([]*Body, 0, len(s.bodyOrder))
	for _, id := range s.bodyOrder {
		out = append(out, s.bodies[id])
	}
	return out
}

// SetBody applies patch to a body and returns the patch that undoes it.
// On error the body is unchanged.
func (s *Scene) SetBody(id ID, patch BodyPatch) (BodyPatch, error) {
	b, ok := s.bodies[id]
	if !ok {
		return BodyPatch{}, fmt.Errorf("%w: body %v", ErrNotFound, id)
	}
	if patch.Mass != nil && (!(*patch.Mass > 0) || math.IsInf(*patch.Mass, 0)) {
		return BodyPatch{}, fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidParameter, *patch.Mass)
	}
	nb, inv := patch.apply(*b)
	if err := nb.validate(); err != nil {
		return BodyPatch{}, err
	}
	old := b.AABB()
	nb.Wake()
	nb.Unstable = false
	*b = nb
	if patch.changesSupport() {
		s.wakeRegion(old, id)
		s.wakeRegion(b.AABB(), id)
	}
	return inv, nil
}

// BodyAt returns the topmost body whose shape contains the world point p.
// Later bodies are drawn over earlier ones, so the highest id wins.
func (s *Scene) BodyAt(p geom.Vec2) (ID, bool) {
	for i := len(s.bodyOrder) - 1; i >= 0; i-- {
		b := s.bodies[s.bodyOrder[i]]
		if b.Shape.Contains(b.Transform(), p) {
			return b.ID, true
		}
	}
	return 0, false
}

// Wake clears the sleep state of a body. Unknown ids and the world are ignored.
func (s *Scene) Wake(id ID) {
	if b, ok := s.bodies[id]; ok {
		b.Wake()
	}
}

// wakeRegion wakes every body other than skip whose bounds overlap box.
func (s *Scene) wakeRegion(box geom.AABB, skip ID) {
	box = box.Expand(wakeMargin)
	for _, b := range s.bodies {
		if b.ID != skip && b.AABB().Overlaps(box) {
			b.Wake()
		}
	}
}

// WakeAll wakes every body.
func (s *Scene) WakeAll() {
	for _, b := range s.bodies {
		b.Wake()
	}
}

// CreateHinge adds a hinge between two bodies or between a body and the world.
func (s *Scene) CreateHinge(def HingeDef) (ID, error) {
	if err := s.checkEndpoints(def.BodyA, def.BodyB); err != nil {
		return 0, err
	}
	if !def.AnchorA.IsFinite() || !def.AnchorB.IsFinite() {
		return 0, fmt.Errorf("%w: non-finite hinge anchor", ErrInvalidParameter)
	}
	id := s.allocID()
	s.addConstraint(&Hinge{
		ID:               id,
		BodyA:            def.BodyA,
		BodyB:            def.BodyB,
		AnchorA:          def.AnchorA,
		AnchorB:          def.AnchorB,
		CollideConnected: def.CollideConnected,
	})
	s.Wake(def.BodyA)
	s.Wake(def.BodyB)
	return id, nil
}

// CreateSpring adds a damped spring between two anchors.
func (s *Scene) CreateSpring(def SpringDef) (ID, error) {
	if err := s.checkEndpoints(def.BodyA, def.BodyB); err != nil {
		return 0, err
	}
	if !def.AnchorA.IsFinite() || !def.AnchorB.IsFinite() {
		return 0, fmt.Errorf("%w: non-finite spring anchor", ErrInvalidParameter)
	}
	if err := validateSpring(def.RestLength, def.Stiffness, def.Damping); err != nil {
		return 0, err
	}
	id := s.allocID()
	s.addConstraint(&Spring{
		ID:         id,
		BodyA:      def.BodyA,
		BodyB:      def.BodyB,
		AnchorA:    def.AnchorA,
		AnchorB:    def.AnchorB,
		RestLength: def.RestLength,
		Stiffness:  def.Stiffness,
		Damping:    def.Damping,
	})
	s.Wake(def.BodyA)
	s.Wake(def.BodyB)
	return id, nil
}

// InsertConstraint restores a constraint under its original id.
func (s *Scene) InsertConstraint(c Constraint) error {
	id := c.ConstraintID()
	if id == WorldID || id >= s.nextID {
		return fmt.Errorf("%w: constraint id %v was never allocated", ErrInvalidParameter, id)
	}
	if s.idTaken(id) {
		return fmt.Errorf("%w: %v", ErrDuplicateID, id)
	}
	a, b := c.Endpoints()
	if err := s.checkEndpoints(a, b); err != nil {
		return err
	}
	if sp, ok := c.(*Spring); ok {
		if err := validateSpring(sp.RestLength, sp.Stiffness, sp.Damping); err != nil {
			return err
		}
	}
	s.constraints[id] = c.Clone()
	s.consOrder = insertSorted(s.consOrder, id)
	s.Wake(a)
	s.Wake(b)
	return nil
}

// DeleteConstraint removes a constraint and returns a copy of it.
func (s *Scene) DeleteConstraint(id ID) (Constraint, error) {
	c, ok := s.constraints[id]
	if !ok {
		return nil, fmt.Errorf("%w: constraint %v", ErrNotFound, id)
	}
	s.removeConstraint(id)
	a, b := c.Endpoints()
	s.Wake(a)
	s.Wake(b)
	return c.Clone(), nil
}

// Constraint returns a copy of the constraint with the given id.
func (s *Scene) Constraint(id ID) (Constraint, error) {
	c, ok := s.constraints[id]
	if !ok {
		return nil, fmt.Errorf("%w: constraint %v", ErrNotFound, id)
	}
	return c.Clone(), nil
}

// Constraints returns copies of all constraints in ascending id order.
func (s *Scene) Constraints() []Constraint {
	out := make([]Constraint, 0, len(s.consOrder))
	for _, id := range s.consOrder {
		out = append(out, s.constraints[id].Clone())
	}
	return out
}

// ConstraintList returns the live constraints in ascending id order.
func (s *Scene) ConstraintList() []Constraint {
	out := make([]Constraint, 0, len(s.consOrder))
	for _, id := range s.consOrder {
		out = append(out, s.constraints[id])
	}
	return out
}

// ConstraintsOf returns copies of the constraints attached to a body.
func (s *Scene) ConstraintsOf(body ID) []Constraint {
	var out []Constraint
	for _, id := range s.consOrder {
		if c := s.constraints[id]; References(c, body) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// SetSpring applies patch to a spring and returns the patch that undoes it.
func (s *Scene) SetSpring(id ID, patch SpringPatch) (SpringPatch, error) {
	c, ok := s.constraints[id]
	if !ok {
		return SpringPatch{}, fmt.Errorf("%w: constraint %v", ErrNotFound, id)
	}
	sp, ok := c.(*Spring)
	if !ok {
		return SpringPatch{}, fmt.Errorf("%w: constraint %v is a %v, not a spring", ErrInvalidParameter, id, c.Kind())
	}
	ns, inv := patch.apply(*sp)
	if err := validateSpring(ns.RestLength, ns.Stiffness, ns.Damping); err != nil {
		return SpringPatch{}, err
	}
	if !ns.AnchorA.IsFinite() || !ns.AnchorB.IsFinite() {
		return SpringPatch{}, fmt.Errorf("%w: non-finite spring anchor", ErrInvalidParameter)
	}
	*sp = ns
	s.Wake(sp.BodyA)
	s.Wake(sp.BodyB)
	return inv, nil
}

// AnchorWorld maps an anchor of a constraint endpoint to world space.
func (s *Scene) AnchorWorld(body ID, anchor geom.Vec2) geom.Vec2 {
	if b := s.bodies[body]; b != nil {
		return b.WorldPoint(anchor)
	}
	return anchor
}

// LocalAnchor converts a world point to an anchor for the given endpoint.
func (s *Scene) LocalAnchor(body ID, world geom.Vec2) (geom.Vec2, error) {
	if body == WorldID {
		return world, nil
	}
	b, ok := s.bodies[body]
	if !ok {
		return geom.Vec2{}, fmt.Errorf("%w: body %v", ErrNotFound, body)
	}
	return b.LocalPoint(world), nil
}

// Clone returns a deep copy of the scene, including the id counter.
func (s *Scene) Clone() *Scene {
	c := &Scene{
		Gravity:      s.Gravity,
		GravityScale: s.GravityScale,
		bodies:       make(map[ID]*Body, len(s.bodies)),
		bodyOrder:    slices.Clone(s.bodyOrder),
		constraints:  make(map[ID]Constraint, len(s.constraints)),
		consOrder:    slices.Clone(s.consOrder),
		nextID:       s.nextID,
	}
	for id, b := range s.bodies {
		nb := *b
		c.bodies[id] = &nb
	}
	for id, k := range s.constraints {
		c.constraints[id] = k.Clone()
	}
	return c
}

// FromParts assembles a scene from stored records and checks referential
// integrity. Mass derived fields are recomputed from Mass and Shape.
func FromParts(bodies []Body, constraints []Constraint, nextID ID, gravity geom.Vec2, gravityScale float64) (*Scene, error) {
	s := New()
	s.Gravity = gravity
	s.GravityScale = gravityScale
	s.nextID = nextID
	if nextID == WorldID {
		return nil, fmt.Errorf("%w: id counter must start above %d", ErrInvalidParameter, WorldID)
	}
	if !gravity.IsFinite() || math.IsNaN(gravityScale) || math.IsInf(gravityScale, 0) {
		return nil, fmt.Errorf("%w: non-finite gravity", ErrInvalidParameter)
	}

	for _, b := range bodies {
		if b.Shape == nil {
			return nil, fmt.Errorf("%w: body %v has no shape", ErrInvalidParameter, b.ID)
		}
		density := b.Material.Density
		b.updateMass(b.Mass)
		b.Material.Density = density
		if err := s.InsertBody(b); err != nil {
			return nil, fmt.Errorf("body %v: %w", b.ID, err)
		}
	}
	for _, c := range constraints {
		if err := s.InsertConstraint(c); err != nil {
			return nil, fmt.Errorf("constraint %v: %w", c.ConstraintID(), err)
		}
	}

	// inserts wake their endpoints; restore the stored sleep state
	for _, b := range bodies {
		if nb := s.bodies[b.ID]; nb != nil {
			nb.Sleeping = b.Sleeping
			nb.SleepSteps = b.SleepSteps
		}
	}
	return s, nil
}

func (s *Scene) checkEndpoints(a, b ID) error {
	if a == b {
		return fmt.Errorf("%w: both endpoints are %v", ErrInvalidReference, a)
	}
	for _, id := range [2]ID{a, b} {
		if id == WorldID {
			continue
		}
		if _, ok := s.bodies[id]; !ok {
			return fmt.Errorf("%w: body %v does not exist", ErrInvalidReference, id)
		}
	}
	return nil
}

func (s *Scene) idTaken(id ID) bool {
	_, b := s.bodies[id]
	_, c := s.constraints[id]
	return b || c
}

func (s *Scene) addConstraint(c Constraint) {
	id := c.ConstraintID()
	s.constraints[id] = c
	s.consOrder = append(s.consOrder, id)
}

func (s *Scene) removeConstraint(id ID) {
	delete(s.constraints, id)
	s.consOrder = removeSorted(s.consOrder, id)
}

func insertSorted(ids []ID, id ID) []ID {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids
	}
	return slices.Insert(ids, i, id)
}

func removeSorted(ids []ID, id ID) []ID {
	i, found := slices.BinarySearch(ids, id)
	if !found {
		return ids
	}
	return slices.Delete(ids, i, i+1)
}
