package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/marbles/internal/config"
	"github.com/san-kum/marbles/internal/engine"
	"github.com/san-kum/marbles/internal/logging"
	"github.com/san-kum/marbles/internal/metrics"
	"github.com/san-kum/marbles/internal/storage"
	"github.com/san-kum/marbles/internal/templates"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string
	autosave   bool

	template   string
	format     string
	steps      int
	every      int
	exportPath string
	traceName  string
	live       bool
	frameRate  int
	saveBack   bool

	bodyID    uint64
	component string
	svgPath   string

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	points     int
	trials     int
	perturb    float64
	seed       int64
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "marbles",
		Short:        "2d rigid body sandbox",
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE:         watchScene,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (text, json)")

	watchCmd := &cobra.Command{
		Use:   "watch [scene]",
		Short: "open a scene in the interactive sandbox",
		Args:  cobra.MaximumNArgs(1),
		RunE:  watchScene,
	}
	watchCmd.Flags().StringVar(&template, "template", "", "start from a template")
	rootCmd.Flags().StringVar(&template, "template", "", "start from a template")
	watchCmd.Flags().BoolVar(&autosave, "autosave", false, "autosave the scene at the configured interval")
	rootCmd.Flags().BoolVar(&autosave, "autosave", false, "autosave the scene at the configured interval")

	newCmd := &cobra.Command{
		Use:   "new [name]",
		Short: "create a scene from a template",
		Args:  cobra.ExactArgs(1),
		RunE:  newScene,
	}
	newCmd.Flags().StringVar(&template, "template", "empty", "template to build")
	newCmd.Flags().StringVar(&format, "format", "json", "file format (json, yaml)")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "step a saved scene headless and record a trace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	runCmd.Flags().StringVar(&template, "template", "", "run a template instead of a saved scene")
	runCmd.Flags().IntVar(&steps, "steps", 600, "number of fixed steps")
	runCmd.Flags().IntVar(&every, "every", 1, "record every n-th step")
	runCmd.Flags().StringVar(&exportPath, "export", "", "also export the trace as json to this path")
	runCmd.Flags().StringVar(&traceName, "trace", "", "trace name (default scene_unixtime)")
	runCmd.Flags().BoolVar(&live, "live", false, "draw the scene while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --live")
	runCmd.Flags().BoolVar(&saveBack, "save", false, "write the final scene back to the store")

	inspectCmd := &cobra.Command{
		Use:   "inspect [scene]",
		Short: "show the bodies and constraints of a scene",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectScene,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved scenes and traces",
		RunE:  listAll,
	}

	rmCmd := &cobra.Command{
		Use:   "rm [scene]",
		Short: "delete a saved scene",
		Args:  cobra.ExactArgs(1),
		RunE:  removeScene,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [trace]",
		Short: "plot a recorded trace",
		Args:  cobra.ExactArgs(1),
		RunE:  plotTrace,
	}
	plotCmd.Flags().Uint64Var(&bodyID, "body", 0, "body id (default every tracked body)")
	plotCmd.Flags().StringVar(&component, "comp", "y", "component to plot (x, y, angle)")

	exportCmd := &cobra.Command{
		Use:   "export [trace] [path]",
		Short: "export a trace as json",
		Args:  cobra.ExactArgs(2),
		RunE:  exportTrace,
	}

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "run a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "sweep a solver parameter over a scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	benchCmd.Flags().StringVar(&template, "template", "", "bench a template instead of a saved scene")
	benchCmd.Flags().StringVar(&sweepParam, "param", "iterations", "solver parameter to sweep")
	benchCmd.Flags().Float64Var(&sweepMin, "min", 2, "first value")
	benchCmd.Flags().Float64Var(&sweepMax, "max", 20, "last value")
	benchCmd.Flags().IntVar(&points, "points", 5, "number of values")
	benchCmd.Flags().IntVar(&steps, "steps", 600, "steps per run")

	mcCmd := &cobra.Command{
		Use:   "montecarlo [scene]",
		Short: "run perturbed copies of a scene and count unstable ones",
		Args:  cobra.MaximumNArgs(1),
		RunE:  monteCarlo,
	}
	mcCmd.Flags().StringVar(&template, "template", "", "use a template instead of a saved scene")
	mcCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	mcCmd.Flags().Float64Var(&perturb, "perturb", 0.1, "maximum position offset per axis")
	mcCmd.Flags().IntVar(&steps, "steps", 600, "steps per trial")
	mcCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Println(name)
			}
		},
	}

	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "list scene templates",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range templates.NewRegistry().List() {
				fmt.Printf("%-16s %s\n", t.Name, t.Description)
			}
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [trace]",
		Short: "frequency analysis of a recorded body component",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeTrace,
	}
	analyzeCmd.Flags().Uint64Var(&bodyID, "body", 0, "body id (default first tracked body)")
	analyzeCmd.Flags().StringVar(&component, "comp", "x", "component to analyze (x, y, angle)")

	pathCmd := &cobra.Command{
		Use:   "path [trace]",
		Short: "draw the path of a body in the plane",
		Args:  cobra.ExactArgs(1),
		RunE:  pathTrace,
	}
	pathCmd.Flags().Uint64Var(&bodyID, "body", 0, "body id (default first tracked body)")
	pathCmd.Flags().StringVar(&svgPath, "svg", "", "also write the path as svg to this file")

	svgCmd := &cobra.Command{
		Use:   "svg [scene] [file]",
		Short: "render a saved scene as svg",
		Args:  cobra.ExactArgs(2),
		RunE:  sceneSVG,
	}

	rootCmd.AddCommand(watchCmd, newCmd, runCmd, inspectCmd, listCmd, rmCmd, plotCmd,
		exportCmd, analyzeCmd, pathCmd, svgCmd, scriptCmd, benchCmd, mcCmd, presetsCmd, templatesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the preset, then the config file, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("data") || cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if autosave {
		cfg.Autosave.Enabled = true
	}
	return cfg, nil
}

// openSession loads the named scene, or builds template into an empty one
// when name is empty.
func openSession(cmd *cobra.Command, name string) (*engine.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logging.NewFromEnv(cfg.Log.Level, cfg.Log.Format)
	st := storage.New(cfg.Storage.DataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}

	sessName := name
	if sessName == "" {
		sessName = template
	}
	sess, err := engine.New(nil, engine.Options{
		Name:    sessName,
		Config:  cfg,
		Store:   st,
		Logger:  log,
		Metrics: metrics.Defaults(),
	})
	if err != nil {
		return nil, err
	}

	switch {
	case name != "":
		if err := sess.LoadNamed(name); err != nil {
			return nil, err
		}
	case template != "":
		if err := sess.Build(templates.NewRegistry(), template); err != nil {
			return nil, err
		}
		sess.History().Clear()
	}
	return sess, nil
}

func argOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}
