package history_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/history"
	"github.com/san-kum/marbles/internal/scene"
)

type state struct {
	Gravity      geom.Vec2
	GravityScale float64
	Bodies       []scene.Body
	Constraints  []scene.Constraint
}

func capture(sc *scene.Scene) state {
	return state{
		Gravity:      sc.Gravity,
		GravityScale: sc.GravityScale,
		Bodies:       sc.Bodies(),
		Constraints:  sc.Constraints(),
	}
}

func ptr[T any](v T) *T { return &v }

// fixture builds a floor, two boxes, a hinge and a spring between them.
func fixture() (*scene.Scene, map[string]scene.ID) {
	sc := scene.New()
	ids := map[string]scene.ID{}
	box, err := geom.NewBox(1, 1)
	Expect(err).NotTo(HaveOccurred())
	floor, err := geom.NewBox(20, 1)
	Expect(err).NotTo(HaveOccurred())

	ids["floor"], err = sc.CreateBody(scene.BodyDef{Label: "floor", Shape: floor, Static: true})
	Expect(err).NotTo(HaveOccurred())
	ids["a"], err = sc.CreateBody(scene.BodyDef{Label: "a", Shape: box, Position: geom.V(-2, 3)})
	Expect(err).NotTo(HaveOccurred())
	ids["b"], err = sc.CreateBody(scene.BodyDef{Label: "b", Shape: geom.Circle{Radius: 0.5}, Position: geom.V(2, 3)})
	Expect(err).NotTo(HaveOccurred())
	ids["hinge"], err = sc.CreateHinge(scene.HingeDef{BodyA: scene.WorldID, BodyB: ids["a"], AnchorA: geom.V(-2, 5)})
	Expect(err).NotTo(HaveOccurred())
	ids["spring"], err = sc.CreateSpring(scene.SpringDef{BodyA: ids["a"], BodyB: ids["b"], RestLength: 4, Stiffness: 50, Damping: 2})
	Expect(err).NotTo(HaveOccurred())
	return sc, ids
}

var _ = Describe("Manager", func() {
	var (
		sc  *scene.Scene
		ids map[string]scene.ID
		m   *history.Manager
	)

	BeforeEach(func() {
		sc, ids = fixture()
		m = history.NewManager(sc, 0)
	})

	DescribeTable("undo restores the prior scene and redo the next one",
		func(build func(ids map[string]scene.ID) history.Command) {
			before := capture(sc)
			Expect(m.Execute(build(ids))).To(Succeed())
			after := capture(sc)
			Expect(after).NotTo(Equal(before))

			_, err := m.Undo()
			Expect(err).NotTo(HaveOccurred())
			Expect(capture(sc)).To(Equal(before))

			_, err = m.Redo()
			Expect(err).NotTo(HaveOccurred())
			Expect(capture(sc)).To(Equal(after))
		},
		Entry("create body", func(map[string]scene.ID) history.Command {
			return &history.CreateBody{Def: scene.BodyDef{Shape: geom.Circle{Radius: 1}, Position: geom.V(0, 8)}}
		}),
		Entry("delete body with attached constraints", func(ids map[string]scene.ID) history.Command {
			return &history.DeleteBody{ID: ids["a"]}
		}),
		Entry("modify body position", func(ids map[string]scene.ID) history.Command {
			return &history.ModifyBody{ID: ids["b"], Patch: scene.BodyPatch{Position: ptr(geom.V(4, 4))}}
		}),
		Entry("modify body material", func(ids map[string]scene.ID) history.Command {
			return &history.ModifyBody{ID: ids["a"], Patch: scene.BodyPatch{Material: &scene.Material{Density: 3, Friction: 0.1, Restitution: 0.3}}}
		}),
		Entry("modify body mass", func(ids map[string]scene.ID) history.Command {
			return &history.ModifyBody{ID: ids["a"], Patch: scene.BodyPatch{Mass: ptr(7.5)}}
		}),
		Entry("make body static", func(ids map[string]scene.ID) history.Command {
			return &history.ModifyBody{ID: ids["b"], Patch: scene.BodyPatch{Static: ptr(true), Velocity: ptr(geom.V(1, 0))}}
		}),
		Entry("create hinge", func(ids map[string]scene.ID) history.Command {
			return &history.CreateHinge{Def: scene.HingeDef{BodyA: ids["a"], BodyB: ids["b"]}}
		}),
		Entry("create spring", func(ids map[string]scene.ID) history.Command {
			return &history.CreateSpring{Def: scene.SpringDef{BodyA: scene.WorldID, BodyB: ids["b"], AnchorA: geom.V(2, 6), RestLength: 1, Stiffness: 10}}
		}),
		Entry("delete constraint", func(ids map[string]scene.ID) history.Command {
			return &history.DeleteConstraint{ID: ids["spring"]}
		}),
		Entry("modify spring", func(ids map[string]scene.ID) history.Command {
			return &history.ModifySpring{ID: ids["spring"], Patch: scene.SpringPatch{Stiffness: ptr(200.0), RestLength: ptr(2.0)}}
		}),
		Entry("set gravity", func(map[string]scene.ID) history.Command {
			return &history.SetGravity{Gravity: ptr(geom.V(1, -3)), Scale: ptr(0.5)}
		}),
		Entry("batch", func(ids map[string]scene.ID) history.Command {
			return &history.Batch{Label: "nudge", Commands: []history.Command{
				&history.ModifyBody{ID: ids["a"], Patch: scene.BodyPatch{Angle: ptr(0.3)}},
				&history.DeleteBody{ID: ids["b"]},
			}}
		}),
		Entry("paste", func(ids map[string]scene.ID) history.Command {
			clip, err := history.Copy(sc, []scene.ID{ids["a"], ids["b"]})
			Expect(err).NotTo(HaveOccurred())
			return &history.Paste{Clip: clip, Offset: geom.V(0, 6)}
		}),
	)

	It("redo keeps the ids of created bodies", func() {
		cmd := &history.CreateBody{Def: scene.BodyDef{Shape: geom.Circle{Radius: 1}}}
		Expect(m.Execute(cmd)).To(Succeed())
		id := cmd.ID()

		_, err := m.Undo()
		Expect(err).NotTo(HaveOccurred())
		_, err = sc.Body(id)
		Expect(err).To(MatchError(scene.ErrNotFound))

		_, err = m.Redo()
		Expect(err).NotTo(HaveOccurred())
		b, err := sc.Body(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(b.ID).To(Equal(id))
	})

	It("does not reuse ids after undo", func() {
		cmd := &history.CreateBody{Def: scene.BodyDef{Shape: geom.Circle{Radius: 1}}}
		Expect(m.Execute(cmd)).To(Succeed())
		_, err := m.Undo()
		Expect(err).NotTo(HaveOccurred())

		next := &history.CreateBody{Def: scene.BodyDef{Shape: geom.Circle{Radius: 1}}}
		Expect(m.Execute(next)).To(Succeed())
		Expect(next.ID()).To(BeNumerically(">", cmd.ID()))
	})

	It("clears redo on a new command", func() {
		Expect(m.Execute(&history.DeleteConstraint{ID: ids["hinge"]})).To(Succeed())
		_, err := m.Undo()
		Expect(err).NotTo(HaveOccurred())
		Expect(m.CanRedo()).To(BeTrue())

		Expect(m.Execute(&history.SetGravity{Scale: ptr(2.0)})).To(Succeed())
		Expect(m.CanRedo()).To(BeFalse())
		_, err = m.Redo()
		Expect(err).To(MatchError(history.ErrEmptyHistory))
	})

	It("leaves scene and stacks alone when a command fails", func() {
		before := capture(sc)
		err := m.Execute(&history.ModifyBody{ID: 999, Patch: scene.BodyPatch{Angle: ptr(1.0)}})
		Expect(err).To(MatchError(scene.ErrNotFound))
		Expect(capture(sc)).To(Equal(before))
		Expect(m.Len()).To(BeZero())

		err = m.Execute(&history.CreateHinge{Def: scene.HingeDef{BodyA: ids["a"], BodyB: ids["a"]}})
		Expect(err).To(MatchError(scene.ErrInvalidReference))
		Expect(m.Len()).To(BeZero())
	})

	It("rolls back a batch when a later command fails", func() {
		before := capture(sc)
		err := m.Execute(&history.Batch{Commands: []history.Command{
			&history.DeleteBody{ID: ids["b"]},
			&history.ModifySpring{ID: ids["spring"], Patch: scene.SpringPatch{Stiffness: ptr(1.0)}},
		}})
		Expect(err).To(MatchError(scene.ErrNotFound))
		Expect(capture(sc)).To(Equal(before))
		Expect(m.CanUndo()).To(BeFalse())
	})

	It("rejects invalid parameters", func() {
		Expect(m.Execute(&history.ModifySpring{ID: ids["spring"], Patch: scene.SpringPatch{Damping: ptr(-1.0)}})).
			To(MatchError(scene.ErrInvalidParameter))
		Expect(m.Execute(&history.ModifyBody{ID: ids["a"], Patch: scene.BodyPatch{Mass: ptr(0.0)}})).
			To(MatchError(scene.ErrInvalidParameter))
		Expect(m.Execute(nil)).To(MatchError(history.ErrNilCommand))
	})

	It("reports an empty undo stack", func() {
		_, err := m.Undo()
		Expect(err).To(MatchError(history.ErrEmptyHistory))
	})

	It("drops the oldest command past the limit", func() {
		m = history.NewManager(sc, 3)
		for i := 0; i < 5; i++ {
			Expect(m.Execute(&history.ModifyBody{ID: ids["a"], Patch: scene.BodyPatch{Angle: ptr(float64(i))}})).To(Succeed())
		}
		Expect(m.Len()).To(Equal(3))
		for i := 0; i < 3; i++ {
			_, err := m.Undo()
			Expect(err).NotTo(HaveOccurred())
		}
		b, err := sc.Body(ids["a"])
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Angle).To(Equal(1.0))
		Expect(m.CanUndo()).To(BeFalse())
	})

	It("lists command names oldest first", func() {
		Expect(m.Execute(&history.SetGravity{Scale: ptr(0.0)})).To(Succeed())
		Expect(m.Execute(&history.DeleteConstraint{ID: ids["hinge"]})).To(Succeed())
		Expect(m.Names()).To(Equal([]string{"set gravity", "delete constraint"}))
	})

	It("folds a group into one undo step", func() {
		before := capture(sc)
		err := m.Group("build", func() error {
			if err := m.Execute(&history.CreateBody{Def: scene.BodyDef{Shape: geom.Circle{Radius: 1}}}); err != nil {
				return err
			}
			return m.Execute(&history.SetGravity{Scale: ptr(3.0)})
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Names()).To(Equal([]string{"build"}))

		_, err = m.Undo()
		Expect(err).NotTo(HaveOccurred())
		Expect(capture(sc)).To(Equal(before))
	})

	It("reverts a failed group", func() {
		before := capture(sc)
		err := m.Group("broken", func() error {
			if err := m.Execute(&history.DeleteBody{ID: ids["a"]}); err != nil {
				return err
			}
			return m.Execute(&history.DeleteConstraint{ID: ids["spring"]})
		})
		Expect(err).To(MatchError(scene.ErrNotFound))
		Expect(capture(sc)).To(Equal(before))
		Expect(m.CanUndo()).To(BeFalse())
	})

	It("keeps the redo stack when a group fails", func() {
		Expect(m.Execute(&history.SetGravity{Scale: ptr(2.0)})).To(Succeed())
		_, err := m.Undo()
		Expect(err).NotTo(HaveOccurred())
		Expect(m.RedoLen()).To(Equal(1))

		err = m.Group("broken", func() error {
			if err := m.Execute(&history.CreateBody{Def: scene.BodyDef{Shape: geom.Circle{Radius: 1}}}); err != nil {
				return err
			}
			return m.Execute(&history.DeleteBody{ID: 999})
		})
		Expect(err).To(MatchError(scene.ErrNotFound))
		Expect(m.RedoLen()).To(Equal(1))

		_, err = m.Redo()
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.GravityScale).To(Equal(2.0))
	})

	It("forgets history on reset", func() {
		Expect(m.Execute(&history.SetGravity{Scale: ptr(0.0)})).To(Succeed())
		fresh := scene.New()
		m.Reset(fresh)
		Expect(m.Scene()).To(BeIdenticalTo(fresh))
		Expect(m.CanUndo()).To(BeFalse())
	})
})

var _ = Describe("Clipboard", func() {
	It("copies only constraints inside the selection", func() {
		sc, ids := fixture()
		clip, err := history.Copy(sc, []scene.ID{ids["a"]})
		Expect(err).NotTo(HaveOccurred())
		Expect(clip.Bodies).To(HaveLen(1))
		Expect(clip.Constraints).To(HaveLen(1))
		Expect(clip.Constraints[0].Kind()).To(Equal(scene.KindHinge))
	})

	It("fails on unknown bodies", func() {
		sc, _ := fixture()
		_, err := history.Copy(sc, []scene.ID{42})
		Expect(err).To(MatchError(scene.ErrNotFound))
	})

	It("pastes with fresh ids and shifted world anchors", func() {
		sc, ids := fixture()
		clip, err := history.Copy(sc, []scene.ID{ids["a"], ids["b"]})
		Expect(err).NotTo(HaveOccurred())

		paste := &history.Paste{Clip: clip, Offset: geom.V(10, 0)}
		m := history.NewManager(sc, 0)
		Expect(m.Execute(paste)).To(Succeed())

		created := paste.Created()
		Expect(created).To(HaveLen(2))
		Expect(created[0]).NotTo(Equal(ids["a"]))
		Expect(sc.BodyCount()).To(Equal(5))
		Expect(sc.ConstraintCount()).To(Equal(4))

		a, err := sc.Body(created[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Position).To(Equal(geom.V(8, 3)))
		Expect(a.Label).To(Equal("a"))

		var hinge *scene.Hinge
		for _, k := range sc.ConstraintsOf(created[0]) {
			if h, ok := k.(*scene.Hinge); ok {
				hinge = h
			}
		}
		Expect(hinge).NotTo(BeNil())
		Expect(hinge.AnchorA).To(Equal(geom.V(8, 5)))

		_, err = m.Undo()
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.BodyCount()).To(Equal(3))
		_, err = m.Redo()
		Expect(err).NotTo(HaveOccurred())
		Expect(paste.Created()).To(Equal(created))
	})
})
