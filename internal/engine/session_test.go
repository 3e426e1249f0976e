package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sony/gobreaker"

	"github.com/san-kum/marbles/internal/codec"
	"github.com/san-kum/marbles/internal/config"
	"github.com/san-kum/marbles/internal/engine"
	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/history"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/storage"
	"github.com/san-kum/marbles/internal/templates"
)

func ball(x, y float64) *history.CreateBody {
	return &history.CreateBody{Def: scene.BodyDef{Shape: geom.Circle{Radius: 0.5}, Position: geom.V(x, y)}}
}

var _ = Describe("Session", func() {
	var (
		sess  *engine.Session
		store *storage.Store
	)

	BeforeEach(func() {
		store = storage.New(GinkgoT().TempDir())
		var err error
		sess, err = engine.New(nil, engine.Options{Name: "test", Store: store})
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts with an empty scene using the configured gravity", func() {
		Expect(sess.Scene().BodyCount()).To(BeZero())
		Expect(sess.Scene().Gravity).To(Equal(config.DefaultConfig().Gravity()))
		Expect(sess.ID()).To(HaveLen(16))
		Expect(sess.Dirty()).To(BeFalse())
	})

	It("rejects an invalid configuration", func() {
		cfg := config.DefaultConfig()
		cfg.Solver.Dt = 0
		_, err := engine.New(nil, engine.Options{Config: cfg})
		Expect(err).To(HaveOccurred())
	})

	It("applies, undoes and redoes edits", func() {
		Expect(sess.Apply(ball(0, 5))).To(Succeed())
		Expect(sess.Scene().BodyCount()).To(Equal(1))
		Expect(sess.Dirty()).To(BeTrue())

		cmd, err := sess.Undo()
		Expect(err).NotTo(HaveOccurred())
		Expect(cmd.Name()).To(Equal("create body"))
		Expect(sess.Scene().BodyCount()).To(BeZero())

		_, err = sess.Redo()
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.Scene().BodyCount()).To(Equal(1))

		_, err = sess.Redo()
		Expect(err).To(MatchError(history.ErrEmptyHistory))
	})

	It("steps the scene under gravity", func() {
		create := ball(0, 5)
		Expect(sess.Apply(create)).To(Succeed())
		rep := sess.Step(10)
		Expect(rep.Step).To(Equal(10))
		Expect(sess.LastReport()).To(Equal(rep))
		Expect(sess.Scene().Lookup(create.ID()).Position.Y).To(BeNumerically("<", 5))
	})

	It("keeps the current scene when a load fails", func() {
		Expect(sess.Apply(ball(0, 5))).To(Succeed())
		before := sess.Scene()

		err := sess.Load(&codec.Document{Version: 99})
		Expect(err).To(MatchError(codec.ErrSchemaMismatch))
		Expect(sess.Scene()).To(BeIdenticalTo(before))
		Expect(sess.History().CanUndo()).To(BeTrue())
	})

	It("saves and loads named scenes", func() {
		Expect(sess.Apply(ball(1, 2))).To(Succeed())
		Expect(sess.Save("one", codec.YAML)).To(Succeed())
		Expect(sess.Dirty()).To(BeFalse())

		other, err := engine.New(nil, engine.Options{Store: store})
		Expect(err).NotTo(HaveOccurred())
		Expect(other.LoadNamed("one")).To(Succeed())
		Expect(other.Name()).To(Equal("one"))
		Expect(other.Scene().Bodies()).To(Equal(sess.Scene().Bodies()))
		Expect(other.History().CanUndo()).To(BeFalse())

		Expect(other.LoadNamed("missing")).To(MatchError(storage.ErrNotFound))
	})

	It("fails to save without a store", func() {
		bare, err := engine.New(nil, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(bare.Save("x", codec.JSON)).To(MatchError(engine.ErrNoStore))
		Expect(bare.Autosave()).To(MatchError(engine.ErrNoStore))
	})

	Describe("autosave", func() {
		It("skips clean scenes", func() {
			Expect(sess.Autosave()).To(Succeed())
			_, err := store.LoadScene(config.DefaultAutosaveName)
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("writes dirty scenes", func() {
			Expect(sess.Apply(ball(0, 1))).To(Succeed())
			Expect(sess.Autosave()).To(Succeed())
			Expect(sess.Dirty()).To(BeFalse())
			doc, err := store.LoadScene(config.DefaultAutosaveName)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Bodies).To(HaveLen(1))
		})

		It("opens the breaker after repeated failures", func() {
			blocker := filepath.Join(GinkgoT().TempDir(), "file")
			Expect(os.WriteFile(blocker, []byte("x"), 0644)).To(Succeed())
			broken, err := engine.New(nil, engine.Options{Store: storage.New(blocker)})
			Expect(err).NotTo(HaveOccurred())
			Expect(broken.Apply(ball(0, 1))).To(Succeed())

			for i := 0; i < 3; i++ {
				err := broken.Autosave()
				Expect(err).To(HaveOccurred())
				Expect(err).NotTo(MatchError(gobreaker.ErrOpenState))
			}
			Expect(broken.AutosaveState()).To(Equal(gobreaker.StateOpen))
			Expect(broken.Autosave()).To(MatchError(gobreaker.ErrOpenState))
			Expect(broken.Dirty()).To(BeTrue())
		})
	})

	Describe("loop", func() {
		It("refuses queued work when not running", func() {
			Expect(sess.Running()).To(BeFalse())
			Expect(sess.Submit(context.Background(), ball(0, 0))).To(MatchError(engine.ErrNotRunning))
			_, err := sess.SnapshotAsync(context.Background())
			Expect(err).To(MatchError(engine.ErrNotRunning))
		})

		It("serves requests between steps", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- sess.Run(ctx, 4) }()
			Eventually(sess.Running).Should(BeTrue())

			Expect(sess.Run(ctx, 1)).To(MatchError(engine.ErrAlreadyRunning))
			Expect(sess.Submit(ctx, ball(0, 5))).To(Succeed())
			Expect(sess.Submit(ctx, ball(3, 5))).To(Succeed())
			Expect(sess.SubmitUndo(ctx)).To(Succeed())

			snap, err := sess.SnapshotAsync(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.BodyCount()).To(Equal(1))

			Expect(sess.SubmitRedo(ctx)).To(Succeed())
			Eventually(func() int {
				var steps int
				_ = sess.Do(ctx, func(s *engine.Session) error {
					steps = s.Simulator().Stepper().Steps()
					return nil
				})
				return steps
			}).Should(BeNumerically(">", 0))

			cancel()
			Eventually(done).Should(Receive(MatchError(context.Canceled)))
			Expect(sess.Running()).To(BeFalse())
			Expect(sess.Scene().BodyCount()).To(Equal(2))
			Expect(sess.SubmitUndo(context.Background())).To(MatchError(engine.ErrNotRunning))
		})

		It("does not step while paused", func() {
			sess.SetPaused(true)
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			Expect(sess.Run(ctx, 1)).To(MatchError(context.DeadlineExceeded))
			Expect(sess.Simulator().Stepper().Steps()).To(BeZero())
		})
	})
})

var _ = Describe("Recorder", func() {
	It("samples dynamic bodies every n steps", func() {
		sess, err := engine.New(nil, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		floor, err := geom.NewBox(10, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.Apply(&history.CreateBody{Def: scene.BodyDef{Shape: floor, Static: true}})).To(Succeed())
		drop := ball(0, 5)
		drop.Def.Label = "ball"
		Expect(sess.Apply(drop)).To(Succeed())

		rec := engine.NewRecorder("drop", sess.Scene(), sess.Config().Solver.Dt, 5)
		sess.AddObserver(rec)
		sess.Step(20)

		tr := rec.Trace(map[string]float64{"energy": 1})
		Expect(tr.Meta.Bodies).To(Equal([]scene.ID{drop.ID()}))
		Expect(tr.Meta.Labels).To(Equal([]string{"ball"}))
		Expect(tr.Frames).To(HaveLen(5))
		Expect(tr.Meta.Metrics).To(HaveKeyWithValue("energy", 1.0))

		ys, err := tr.Series(drop.ID(), storage.CompY)
		Expect(err).NotTo(HaveOccurred())
		Expect(ys[0]).To(Equal(5.0))
		Expect(ys[4]).To(BeNumerically("<", ys[0]))
	})
})

var _ = Describe("Templates", func() {
	It("builds a template as a single undo step", func() {
		sess, err := engine.New(nil, engine.Options{})
		Expect(err).NotTo(HaveOccurred())
		reg := templates.NewRegistry()

		Expect(sess.Build(reg, "pendulum")).To(Succeed())
		Expect(sess.Scene().BodyCount()).To(Equal(4))
		Expect(sess.Dirty()).To(BeTrue())
		Expect(sess.History().Len()).To(Equal(1))

		_, err = sess.Undo()
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.Scene().BodyCount()).To(BeZero())

		Expect(sess.Build(reg, "nope")).To(HaveOccurred())
	})
})
