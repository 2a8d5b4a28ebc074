package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/scenario"
	"github.com/san-kum/popsim/internal/universe"
	"github.com/san-kum/popsim/internal/viz"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

var (
	dataDir  string
	logLevel string

	// shared by run, live and ensemble
	configFile string
	preset     string
	kind       string
	dt         float64
	ticks      int
	seed       int64
	workers    int
	stars      int

	runName      string
	snapshotPath string
	gifPath      string
	gifEvery     int
	layerName    string
	themeName    string
	impulse      float64
	transfer     float64

	numRuns   int
	seedStart int64
	saveRuns  bool

	series  []string
	outPath string
	svgPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "popsim",
		Short:         "bodies and gas on a toroidal universe",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// The TUI owns the terminal, so builds stay quiet.
			return viz.RunInteractive(func(cfg *config.Config) (*universe.Universe, error) {
				return scenario.Build(cfg, nil)
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".popsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and store its stats",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addWorldFlags(runCmd)
	runCmd.Flags().StringVar(&runName, "name", "", "run name (defaults to the scenario kind)")
	runCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "write the final world as JSON")
	runCmd.Flags().StringVar(&gifPath, "gif", "", "record the gas field as an animated GIF")
	runCmd.Flags().IntVar(&gifEvery, "gif-every", 5, "ticks between GIF frames")
	runCmd.Flags().StringVar(&layerName, "layer", "mass", "gas layer for the GIF")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a simulation in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addWorldFlags(liveCmd)
	liveCmd.Flags().StringVar(&layerName, "layer", "mass", "initial gas layer")
	liveCmd.Flags().StringVar(&themeName, "theme", "nebula", "color theme")
	liveCmd.Flags().StringVar(&gifPath, "gif", "", "GIF path for the g key")
	liveCmd.Flags().Float64Var(&impulse, "impulse", viz.DefaultControls().Impulse, "velocity change per push")
	liveCmd.Flags().Float64Var(&transfer, "transfer", viz.DefaultControls().Transfer, "mass moved per +/- press")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run the same world over many seeds",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addWorldFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of seeds")
	ensembleCmd.Flags().Int64Var(&seedStart, "seed-start", 1, "first seed")
	ensembleCmd.Flags().BoolVar(&saveRuns, "save", false, "store every run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run stats",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&series, "series", []string{"bodies", "max_speed"}, "stats columns to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "replay a run and export its final world as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (stdout if empty)")
	exportCmd.Flags().StringVar(&svgPath, "svg", "", "also draw the final world as SVG")
	exportCmd.Flags().StringVar(&layerName, "layer", "mass", "gas layer for the SVG")
	exportCmd.Flags().StringVar(&themeName, "theme", "nebula", "color theme for the SVG")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				cfg := config.GetPreset(p)
				fmt.Printf("  %-10s kind=%-9s stars=%d\n", p, cfg.Scenario.Kind, cfg.Scenario.Stars)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, ensembleCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func addWorldFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "start from a named preset")
	cmd.Flags().StringVar(&kind, "kind", def.Scenario.Kind, "scenario kind")
	cmd.Flags().Float64Var(&dt, "dt", def.Dt, "timestep")
	cmd.Flags().IntVar(&ticks, "ticks", def.Ticks, "number of ticks")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = GOMAXPROCS)")
	cmd.Flags().IntVar(&stars, "stars", def.Scenario.Stars, "number of stars")
}

// resolveConfig layers the preset, then the config file, then any flag the
// user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		var err error
		if cfg, err = config.LoadOnto(configFile, cfg); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("kind") {
		cfg.Scenario.Kind = kind
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("ticks") {
		cfg.Ticks = ticks
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("stars") {
		cfg.Scenario.Stars = stars
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
