package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/marbles/internal/analysis"
	"github.com/san-kum/marbles/internal/automation"
	"github.com/san-kum/marbles/internal/codec"
	"github.com/san-kum/marbles/internal/engine"
	"github.com/san-kum/marbles/internal/export"
	"github.com/san-kum/marbles/internal/geom"
	"github.com/san-kum/marbles/internal/scene"
	"github.com/san-kum/marbles/internal/storage"
	"github.com/san-kum/marbles/internal/templates"
	"github.com/san-kum/marbles/internal/tui"
)

func watchScene(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, argOr(args, ""))
	if err != nil {
		return err
	}
	saveName := argOr(args, sess.Config().Autosave.Name)
	return tui.Run(sess, templates.NewRegistry(), saveName)
}

func newScene(cmd *cobra.Command, args []string) error {
	if template == "" {
		template = "empty"
	}
	f, err := codec.ParseFormat(format)
	if err != nil {
		return err
	}
	sess, err := openSession(cmd, "")
	if err != nil {
		return err
	}
	if err := sess.Save(args[0], f); err != nil {
		return err
	}
	sc := sess.Scene()
	fmt.Printf("created %s from %s: %d bodies, %d constraints\n", args[0], template, sc.BodyCount(), sc.ConstraintCount())
	return nil
}

func runScene(cmd *cobra.Command, args []string) error {
	name := argOr(args, "")
	if name == "" && template == "" {
		return errors.New("give a scene name or --template")
	}
	sess, err := openSession(cmd, name)
	if err != nil {
		return err
	}

	rec := engine.NewRecorder(sess.Name(), sess.Scene(), sess.Config().Solver.Dt, every)
	sess.AddObserver(rec)
	if live {
		l := tui.NewLive(os.Stdout, sess.Name(), frameRate)
		l.Start()
		defer l.Stop()
		sess.AddObserver(l)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s for %d steps...\n", sess.Name(), steps)
	start := time.Now()
	res, err := sess.Simulator().Run(ctx, sess.Scene(), steps)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	elapsed := time.Since(start)

	tr := rec.Trace(res.Metrics)
	tr.Meta.Preset = preset
	id, err := sess.Store().SaveTrace(traceName, tr)
	if err != nil {
		return err
	}
	if exportPath != "" {
		if err := storage.ExportJSONFile(exportPath, tr); err != nil {
			return err
		}
	}
	if saveBack && name != "" {
		if err := sess.Save(name, codec.JSON); err != nil {
			return err
		}
	}

	fmt.Printf("completed %d steps in %v\n", res.StepsTaken, elapsed)
	fmt.Printf("trace id: %s\n", id)
	fmt.Printf("kinetic energy: %.6f -> %.6f\n", res.InitialEnergy, res.FinalEnergy)
	if len(res.Errors) > 0 {
		fmt.Printf("instabilities: %d\n", len(res.Errors))
	}
	fmt.Println("\nmetrics:")
	for _, k := range sortedKeys(res.Metrics) {
		fmt.Printf("  %s: %.6f\n", k, res.Metrics[k])
	}
	return nil
}

func inspectScene(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	sc := sess.Scene()
	g := sc.EffectiveGravity()
	fmt.Printf("scene: %s\ngravity: (%.3f, %.3f)\nnext id: %v\n\n", sess.Name(), g.X, g.Y, sc.NextID())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tSHAPE\tPOSITION\tANGLE\tMASS\tSTATE")
	for _, b := range sc.BodyList() {
		state := "awake"
		switch {
		case b.Static:
			state = "static"
		case b.Sleeping:
			state = "asleep"
		}
		fmt.Fprintf(w, "%v\t%s\t%s\t(%.3f, %.3f)\t%.3f\t%.3f\t%s\n",
			b.ID, b.Label, shapeName(b.Shape), b.Position.X, b.Position.Y, b.Angle, b.Mass, state)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if sc.ConstraintCount() == 0 {
		return nil
	}
	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tA\tB\tDETAIL")
	for _, c := range sc.ConstraintList() {
		a, b := c.Endpoints()
		detail := ""
		if s, ok := c.(*scene.Spring); ok {
			detail = fmt.Sprintf("rest=%.3f k=%.1f c=%.2f", s.RestLength, s.Stiffness, s.Damping)
		}
		fmt.Fprintf(w, "%v\t%s\t%v\t%v\t%s\n", c.ConstraintID(), c.Kind(), a, b, detail)
	}
	return w.Flush()
}

func shapeName(s geom.Shape) string {
	switch v := s.(type) {
	case geom.Circle:
		return fmt.Sprintf("circle r=%.2f", v.Radius)
	case geom.Polygon:
		return fmt.Sprintf("polygon n=%d", v.Count())
	}
	return "?"
}

func listAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := storage.New(cfg.Storage.DataDir)

	scenes, err := st.ListScenes()
	if err != nil {
		return err
	}
	traces, err := st.ListTraces()
	if err != nil {
		return err
	}
	if len(scenes) == 0 && len(traces) == 0 {
		fmt.Println("no scenes or traces found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if len(scenes) > 0 {
		fmt.Fprintln(w, "SCENE\tFORMAT\tVERSION\tBODIES\tCONSTRAINTS\tMODIFIED")
		for _, s := range scenes {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				s.Name, s.Format, s.Version, s.Bodies, s.Constraints, s.Modified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(w)
	}
	if len(traces) > 0 {
		fmt.Fprintln(w, "TRACE\tSCENE\tTIME\tSAMPLES\tDT\tPRESET")
		for _, t := range traces {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%s\n",
				t.ID, t.Scene, t.Timestamp.Format("2006-01-02 15:04:05"), t.Steps, t.Dt, t.Preset)
		}
	}
	return w.Flush()
}

func removeScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return storage.New(cfg.Storage.DataDir).DeleteScene(args[0])
}

var components = map[string]int{"x": storage.CompX, "y": storage.CompY, "angle": storage.CompAngle, "a": storage.CompAngle}

func plotTrace(cmd *cobra.Command, args []string) error {
	comp, ok := components[component]
	if !ok {
		return fmt.Errorf("unknown component %q (x, y, angle)", component)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tr, err := storage.New(cfg.Storage.DataDir).LoadTrace(args[0])
	if err != nil {
		return err
	}
	if len(tr.Frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("trace: %s\n", tr.Meta.ID)
	fmt.Printf("scene: %s\n", tr.Meta.Scene)
	fmt.Printf("samples: %d\n\n", len(tr.Frames))

	ids := tr.Meta.Bodies
	if bodyID != 0 {
		ids = []scene.ID{scene.ID(bodyID)}
	}
	const maxPlots = 6
	for i, id := range ids {
		if i == maxPlots {
			fmt.Printf("%d more bodies not shown, use --body\n", len(ids)-maxPlots)
			break
		}
		data, err := tr.Series(id, comp)
		if err != nil {
			return err
		}
		caption := fmt.Sprintf("body %v %s vs time", id, component)
		if i < len(tr.Meta.Labels) && tr.Meta.Labels[i] != "" && bodyID == 0 {
			caption = fmt.Sprintf("%s (%v) %s vs time", tr.Meta.Labels[i], id, component)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportTrace(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	tr, err := storage.New(cfg.Storage.DataDir).LoadTrace(args[0])
	if err != nil {
		return err
	}
	if err := storage.ExportJSONFile(args[1], tr); err != nil {
		return err
	}
	fmt.Printf("exported %d samples to %s\n", len(tr.Frames), args[1])
	return nil
}

func loadTraceBody(cmd *cobra.Command, name string) (*storage.Trace, scene.ID, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, 0, err
	}
	tr, err := storage.New(cfg.Storage.DataDir).LoadTrace(name)
	if err != nil {
		return nil, 0, err
	}
	id := scene.ID(bodyID)
	if id == 0 {
		if len(tr.Meta.Bodies) == 0 {
			return nil, 0, fmt.Errorf("trace %s tracks no bodies", name)
		}
		id = tr.Meta.Bodies[0]
	}
	return tr, id, nil
}

func analyzeTrace(cmd *cobra.Command, args []string) error {
	comp, ok := components[component]
	if !ok {
		return fmt.Errorf("unknown component %q (x, y, angle)", component)
	}
	tr, id, err := loadTraceBody(cmd, args[0])
	if err != nil {
		return err
	}
	data, err := tr.Series(id, comp)
	if err != nil {
		return err
	}
	sp, err := analysis.Analyze(data, tr.Meta.Dt)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", tr.Meta.ID)
	fmt.Printf("body: %v %s\n\n", id, component)

	plotData := sp.Power[:max(len(sp.Power)/4, 1)]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", component)),
	)
	fmt.Println(graph)
	fmt.Println()

	freq := sp.Dominant()
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func pathTrace(cmd *cobra.Command, args []string) error {
	tr, id, err := loadTraceBody(cmd, args[0])
	if err != nil {
		return err
	}
	xs, err := tr.Series(id, storage.CompX)
	if err != nil {
		return err
	}
	ys, err := tr.Series(id, storage.CompY)
	if err != nil {
		return err
	}
	fmt.Printf("path of body %v in %s (o start, @ end)\n\n", id, tr.Meta.ID)
	fmt.Print(analysis.PathToASCII(xs, ys, 70, 24))
	if svgPath != "" {
		svg := export.TrajectoryToSVG(xs, ys, 800, 600, "#00ff00")
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("\nwrote %s\n", svgPath)
	}
	return nil
}

func sceneSVG(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	svg := export.SceneToSVG(sess.Scene(), 800, 600)
	if err := os.WriteFile(args[1], []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[1])
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	sess, err := openSession(cmd, "")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if scenario.Name != "" {
		fmt.Printf("scenario: %s\n", scenario.Name)
	}
	results, runErr := automation.RunScenario(ctx, scenario, sess, templates.NewRegistry())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tACTION\tBODIES\tCONSTRAINTS\tTIME\tKE")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.3fs\t%.4f\n", r.Index, r.Action, r.Bodies, r.Constraints, r.Time, r.Energy)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func benchScene(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, argOr(args, ""))
	if err != nil {
		return err
	}
	sweep := &automation.ParameterSweep{Param: sweepParam, Min: sweepMin, Max: sweepMax, Points: points, Steps: steps}

	fmt.Printf("sweeping %s over %s\n\n", sweepParam, sess.Name())
	start := time.Now()
	results, err := automation.RunSweep(context.Background(), sweep, sess.Scene(), sess.Config().SolverConfig(), nil)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tSTEPS\tFINAL KE\tSTABILITY\tMAX PEN\tSLEEP")
	for _, r := range results {
		fmt.Fprintf(w, "%g\t%d\t%.4f\t%.3f\t%.4f\t%.2f\n",
			r.ParamValue, r.Steps, r.FinalEnergy, r.Metrics["stability"], r.Metrics["max_penetration"], r.Metrics["sleep_ratio"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d runs in %v\n", len(results), elapsed)
	return nil
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	sess, err := openSession(cmd, argOr(args, ""))
	if err != nil {
		return err
	}
	mc := &automation.MonteCarloConfig{Trials: trials, Perturbation: perturb, Steps: steps, Seed: seed}
	results, err := automation.RunMonteCarlo(context.Background(), mc, sess.Scene(), sess.Config().SolverConfig(), nil)
	if err != nil {
		return err
	}
	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d\nstable: %d\nunstable: %d\n", len(results), stable, unstable)
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
