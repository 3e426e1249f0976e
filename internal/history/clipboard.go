package history

import (
	"fmt"
	"slices"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
)

// Clip is a detached copy of some bodies and the constraints among them.
type Clip struct {
	Bodies      []scene.Body
	Constraints []scene.Constraint
}

func (c Clip) Empty() bool { return len(c.Bodies) == 0 }

// Copy captures the given bodies together with every constraint whose
// body endpoints are all inside the selection. World anchored constraints
// are kept.
func Copy(sc *scene.Scene, ids []scene.ID) (Clip, error) {
	var clip Clip
	selected := make(map[scene.ID]bool, len(ids))
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	for _, id := range slices.Compact(sorted) {
		b, err := sc.Body(id)
		if err != nil {
			return Clip{}, err
		}
		clip.Bodies = append(clip.Bodies, b)
		selected[id] = true
	}

	inside := func(id scene.ID) bool { return id == scene.WorldID || selected[id] }
	for _, k := range sc.Constraints() {
		a, b := k.Endpoints()
		if inside(a) && inside(b) {
			clip.Constraints = append(clip.Constraints, k)
		}
	}
	return clip, nil
}

// Paste recreates a clip shifted by Offset. Bodies get fresh ids and
// constraints are rewired to them. World anchors move with the offset.
type Paste struct {
	Clip   Clip
	Offset geom.Vec2

	batch *Batch
}

func (c *Paste) Name() string { return "paste" }

// Created returns the ids of the pasted bodies in clip order.
func (c *Paste) Created() []scene.ID {
	if c.batch == nil {
		return nil
	}
	var out []scene.ID
	for _, cmd := range c.batch.Commands {
		if cb, ok := cmd.(*CreateBody); ok {
			out = append(out, cb.ID())
		}
	}
	return out
}

func (c *Paste) apply(sc *scene.Scene) error {
	if c.batch != nil {
		return c.batch.apply(sc)
	}

	batch := &Batch{Label: "paste"}
	remap := map[scene.ID]scene.ID{scene.WorldID: scene.WorldID}

	run := func(cmd Command) error {
		if err := cmd.apply(sc); err != nil {
			rollback(sc, batch.Commands)
			return fmt.Errorf("paste: %s: %w", cmd.Name(), err)
		}
		batch.Commands = append(batch.Commands, cmd)
		return nil
	}

	for _, b := range c.Clip.Bodies {
		cb := &CreateBody{Def: defFromBody(b, c.Offset)}
		if err := run(cb); err != nil {
			return err
		}
		remap[b.ID] = cb.ID()
	}

	shift := func(id scene.ID, anchor geom.Vec2) geom.Vec2 {
		if id == scene.WorldID {
			return anchor.Add(c.Offset)
		}
		return anchor
	}
	for _, k := range c.Clip.Constraints {
		var cmd Command
		switch k := k.(type) {
		case *scene.Hinge:
			cmd = &CreateHinge{Def: scene.HingeDef{
				BodyA:            remap[k.BodyA],
				BodyB:            remap[k.BodyB],
				AnchorA:          shift(k.BodyA, k.AnchorA),
				AnchorB:          shift(k.BodyB, k.AnchorB),
				CollideConnected: k.CollideConnected,
			}}
		case *scene.Spring:
			cmd = &CreateSpring{Def: scene.SpringDef{
				BodyA:      remap[k.BodyA],
				BodyB:      remap[k.BodyB],
				AnchorA:    shift(k.BodyA, k.AnchorA),
				AnchorB:    shift(k.BodyB, k.AnchorB),
				RestLength: k.RestLength,
				Stiffness:  k.Stiffness,
				Damping:    k.Damping,
			}}
		}
		if err := run(cmd); err != nil {
			return err
		}
	}

	c.batch = batch
	return nil
}

func (c *Paste) revert(sc *scene.Scene) error {
	if c.batch == nil {
		return nil
	}
	return c.batch.revert(sc)
}

func defFromBody(b scene.Body, offset geom.Vec2) scene.BodyDef {
	color := b.Color
	return scene.BodyDef{
		Label:           b.Label,
		Shape:           b.Shape,
		Mass:            b.Mass,
		Material:        b.Material,
		Position:        b.Position.Add(offset),
		Angle:           b.Angle,
		Velocity:        b.Velocity,
		AngularVelocity: b.AngularVelocity,
		Static:          b.Static,
		NoCollide:       !b.Collidable,
		Color:           &color,
	}
}
