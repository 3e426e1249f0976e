package history

import (
	"fmt"
	"math"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

// Command is a reversible scene edit. The set of commands is closed: every
// implementation lives in this package. A command records what it needs to
// revert itself when it is applied.
type Command interface {
	Name() string
	apply(sc *scene.Scene) error
	revert(sc *scene.Scene) error
}

// CreateBody adds a body. Redo restores the body under the same id.
type CreateBody struct {
	Def scene.BodyDef

	created scene.Body
}

func (c *CreateBody) Name() string { return "create body" }

// ID returns the id of the created body, or 0 before the first apply.
func (c *CreateBody) ID() scene.ID { return c.created.ID }

func (c *CreateBody) apply(sc *scene.Scene) error {
	if c.created.ID != scene.WorldID {
		return sc.InsertBody(c.created)
	}
	id, err := sc.CreateBody(c.Def)
	if err != nil {
		return err
	}
	c.created, err = sc.Body(id)
	return err
}

func (c *CreateBody) revert(sc *scene.Scene) error {
	_, err := sc.DeleteBody(c.created.ID)
	return err
}

// DeleteBody removes a body and the constraints attached to it.
type DeleteBody struct {
	ID scene.ID

	body        scene.Body
	constraints []scene.Constraint
}

func (c *DeleteBody) Name() string { return "delete body" }

func (c *DeleteBody) apply(sc *scene.Scene) error {
	b, err := sc.Body(c.ID)
	if err != nil {
		return err
	}
	attached := sc.ConstraintsOf(c.ID)
	if _, err := sc.DeleteBody(c.ID); err != nil {
		return err
	}
	c.body, c.constraints = b, attached
	return nil
}

func (c *DeleteBody) revert(sc *scene.Scene) error {
	if err := sc.InsertBody(c.body); err != nil {
		return err
	}
	for _, k := range c.constraints {
		if err := sc.InsertConstraint(k); err != nil {
			return fmt.Errorf("restore constraint %v: %w", k.ConstraintID(), err)
		}
	}
	return nil
}

// ModifyBody patches body fields.
type ModifyBody struct {
	ID    scene.ID
	Patch scene.BodyPatch

	inverse scene.BodyPatch
}

func (c *ModifyBody) Name() string { return "modify body" }

func (c *ModifyBody) apply(sc *scene.Scene) error {
	inv, err := sc.SetBody(c.ID, c.Patch)
	if err != nil {
		return err
	}
	c.inverse = inv
	return nil
}

func (c *ModifyBody) revert(sc *scene.Scene) error {
	_, err := sc.SetBody(c.ID, c.inverse)
	return err
}

// CreateHinge adds a hinge. Redo restores it under the same id.
type CreateHinge struct {
	Def scene.HingeDef

	created scene.Constraint
}

func (c *CreateHinge) Name() string { return "create hinge" }

func (c *CreateHinge) ID() scene.ID { return constraintID(c.created) }

func (c *CreateHinge) apply(sc *scene.Scene) error {
	if c.created != nil {
		return sc.InsertConstraint(c.created)
	}
	id, err := sc.CreateHinge(c.Def)
	if err != nil {
		return err
	}
	c.created, err = sc.Constraint(id)
	return err
}

func (c *CreateHinge) revert(sc *scene.Scene) error {
	_, err := sc.DeleteConstraint(c.ID())
	return err
}

// CreateSpring adds a spring. Redo restores it under the same id.
type CreateSpring struct {
	Def scene.SpringDef

	created scene.Constraint
}

func (c *CreateSpring) Name() string { return "create spring" }

func (c *CreateSpring) ID() scene.ID { return constraintID(c.created) }

func (c *CreateSpring) apply(sc *scene.Scene) error {
	if c.created != nil {
		return sc.InsertConstraint(c.created)
	}
	id, err := sc.CreateSpring(c.Def)
	if err != nil {
		return err
	}
	c.created, err = sc.Constraint(id)
	return err
}

func (c *CreateSpring) revert(sc *scene.Scene) error {
	_, err := sc.DeleteConstraint(c.ID())
	return err
}

// DeleteConstraint removes a hinge or spring.
type DeleteConstraint struct {
	ID scene.ID

	removed scene.Constraint
}

func (c *DeleteConstraint) Name() string { return "delete constraint" }

func (c *DeleteConstraint) apply(sc *scene.Scene) error {
	k, err := sc.DeleteConstraint(c.ID)
	if err != nil {
		return err
	}
	c.removed = k
	return nil
}

func (c *DeleteConstraint) revert(sc *scene.Scene) error {
	return sc.InsertConstraint(c.removed)
}

// ModifySpring patches spring parameters.
type ModifySpring struct {
	ID    scene.ID
	Patch scene.SpringPatch

	inverse scene.SpringPatch
}

func (c *ModifySpring) Name() string { return "modify spring" }

func (c *ModifySpring) apply(sc *scene.Scene) error {
	inv, err := sc.SetSpring(c.ID, c.Patch)
	if err != nil {
		return err
	}
	c.inverse = inv
	return nil
}

func (c *ModifySpring) revert(sc *scene.Scene) error {
	_, err := sc.SetSpring(c.ID, c.inverse)
	return err
}

// SetGravity changes the world gravity vector and/or its multiplier.
type SetGravity struct {
	Gravity *geom.Vec2
	Scale   *float64

	prevGravity geom.Vec2
	prevScale   float64
}

func (c *SetGravity) Name() string { return "set gravity" }

func (c *SetGravity) apply(sc *scene.Scene) error {
	if c.Gravity != nil && !c.Gravity.IsFinite() {
		return fmt.Errorf("%w: non-finite gravity %v", scene.ErrInvalidParameter, *c.Gravity)
	}
	if c.Scale != nil && (math.IsNaN(*c.Scale) || math.IsInf(*c.Scale, 0)) {
		return fmt.Errorf("%w: non-finite gravity scale", scene.ErrInvalidParameter)
	}
	c.prevGravity, c.prevScale = sc.Gravity, sc.GravityScale
	if c.Gravity != nil {
		sc.Gravity = *c.Gravity
	}
	if c.Scale != nil {
		sc.GravityScale = *c.Scale
	}
	sc.WakeAll()
	return nil
}

func (c *SetGravity) revert(sc *scene.Scene) error {
	sc.Gravity, sc.GravityScale = c.prevGravity, c.prevScale
	sc.WakeAll()
	return nil
}

// Batch applies several commands as one undo step. If any command fails
// the ones already applied are reverted.
type Batch struct {
	Label    string
	Commands []Command
}

func (c *Batch) Name() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("batch (%d)", len(c.Commands))
}

func (c *Batch) apply(sc *scene.Scene) error {
	for i, cmd := range c.Commands {
		if err := cmd.apply(sc); err != nil {
			rollback(sc, c.Commands[:i])
			return fmt.Errorf("%s: %w", cmd.Name(), err)
		}
	}
	return nil
}

func (c *Batch) revert(sc *scene.Scene) error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].revert(sc); err != nil {
			return fmt.Errorf("%s: %w", c.Commands[i].Name(), err)
		}
	}
	return nil
}

func rollback(sc *scene.Scene, applied []Command) {
	for i := len(applied) - 1; i >= 0; i-- {
		_ = applied[i].revert(sc)
	}
}

func constraintID(c scene.Constraint) scene.ID {
	if c == nil {
		return scene.WorldID
	}
	return c.ConstraintID()
}
