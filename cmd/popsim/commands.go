package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/metrics"
	"github.com/san-kum/popsim/internal/scenario"
	"github.com/san-kum/popsim/internal/sim"
	"github.com/san-kum/popsim/internal/storage"
	"github.com/san-kum/popsim/internal/universe"
	"github.com/san-kum/popsim/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	u, err := scenario.Build(cfg, logger)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	name := runName
	if name == "" {
		name = cfg.Scenario.Kind
	}
	run, err := st.Create(name, cfg)
	if err != nil {
		return err
	}

	s := sim.New(u)
	s.SetLogger(logger)
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}
	s.AddObserver(run)

	var rec *viz.Recorder
	if gifPath != "" {
		layer, err := viz.ParseLayer(layerName)
		if err != nil {
			return err
		}
		rec = viz.NewRecorder(4, layer)
		every := max(gifEvery, 1)
		s.AddObserver(sim.ObserverFunc(func(ts universe.TickStats) {
			if ts.Tick%every == 0 {
				cells, w, h := u.Cells()
				rec.Capture(cells, w, h, u.Domain(), u.Masses())
			}
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting run", "id", run.ID, "kind", cfg.Scenario.Kind, "ticks", cfg.Ticks, "seed", cfg.Seed)
	start := time.Now()
	result, runErr := s.Run(ctx, sim.Config{Dt: cfg.Dt, Ticks: cfg.Ticks, Seed: cfg.Seed})
	elapsed := time.Since(start)

	// An interrupted or failed run still keeps what it produced.
	if err := run.Close(result); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run %s: %w", run.ID, runErr)
	}

	if rec != nil {
		if err := rec.Save(gifPath); err != nil {
			logger.Warn("gif not written", "path", gifPath, "err", err)
		} else {
			logger.Info("gif written", "path", gifPath, "frames", rec.Len())
		}
	}
	if snapshotPath != "" {
		if err := storage.ExportJSON(snapshotPath, storage.NewSnapshot(u)); err != nil {
			return err
		}
	}

	fmt.Println(summaryPanel(run.ID, cfg, result, elapsed))
	return nil
}

func summaryPanel(runID string, cfg *config.Config, result *sim.Result, elapsed time.Duration) string {
	var b strings.Builder
	status := viz.StatusRunning.Render("completed")
	if result.Interrupted {
		status = viz.StatusPaused.Render("interrupted")
	}
	fmt.Fprintf(&b, "%s  %s\n", viz.HeaderStyle.Render(runID), status)

	progress := 1.0
	if cfg.Ticks > 0 {
		progress = float64(result.TicksTaken) / float64(cfg.Ticks)
	}
	fmt.Fprintf(&b, "%s %d/%d in %v\n\n", viz.ProgressBar(progress, 30), result.TicksTaken, cfg.Ticks, elapsed.Round(time.Millisecond))

	row := func(label string, v float64) {
		fmt.Fprintf(&b, "%s %s\n", viz.Subtle.Render(fmt.Sprintf("%-18s", label)), viz.MetricValue.Render(fmt.Sprintf("%.6g", v)))
	}
	row("initial_mass", result.InitialMass)
	row("final_mass", result.FinalMass)

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, result.Metrics[name])
	}
	return viz.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	layer, err := viz.ParseLayer(layerName)
	if err != nil {
		return err
	}
	u, err := scenario.Build(cfg, nil)
	if err != nil {
		return err
	}

	name := cfg.Scenario.Kind
	if preset != "" {
		name = preset
	}
	m := viz.NewModel(u, cfg.Dt, name).
		WithControls(viz.Controls{Impulse: impulse, Transfer: transfer}).
		WithLayer(layer).
		WithTheme(viz.GetTheme(themeName))
	if gifPath != "" {
		m = m.WithRecording(gifPath)
	}
	return viz.RunLive(m)
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	factory := func(s int64) (sim.World, error) {
		c := *cfg
		c.Seed = s
		u, err := scenario.Build(&c, nil)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	ens := sim.NewEnsemble(factory, metrics.Default, numRuns, seedStart)
	if cfg.Workers > 0 {
		ens.SetWorkers(cfg.Workers)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d seeds of %s...\n", numRuns, cfg.Scenario.Kind)
	start := time.Now()
	results, err := ens.Run(ctx, sim.Config{Dt: cfg.Dt, Ticks: cfg.Ticks})
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))

	if saveRuns {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		for _, r := range results {
			c := *cfg
			c.Seed = r.Seed
			id, err := st.Save(fmt.Sprintf("%s-seed%d", cfg.Scenario.Kind, r.Seed), &c, r)
			if err != nil {
				return err
			}
			logger.Info("saved run", "id", id)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tMIN\tMAX")
	for _, s := range sim.Summarize(results) {
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\n", s.Name, s.Mean, s.Min, s.Max)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tTICKS\tDT\tSEED\tDRIFT")

	for _, run := range runs {
		ticksCol := fmt.Sprintf("%d", run.TicksTaken)
		if run.Interrupted {
			ticksCol = fmt.Sprintf("%d/%d", run.TicksTaken, run.Ticks)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%d\t%.2e\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			ticksCol,
			run.Dt,
			run.Seed,
			run.MassDrift,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadStats(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("kind: %s\n", meta.Scenario)
	fmt.Printf("ticks: %d\n\n", len(rows))

	body, _ := column(rows, "body_mass")
	gasMass, _ := column(rows, "gas_mass")
	fmt.Println(viz.PlotMass(body, gasMass, 80, 10))
	fmt.Println()

	for _, name := range series {
		data, err := column(rows, name)
		if err != nil {
			return err
		}
		fmt.Println(viz.Plot(data, name, 80, 10))
		fmt.Println()
	}
	return nil
}

var columns = map[string]func(storage.StatsRow) float64{
	"time":             func(r storage.StatsRow) float64 { return r.Time },
	"bodies":           func(r storage.StatsRow) float64 { return float64(r.Bodies) },
	"merges":           func(r storage.StatsRow) float64 { return float64(r.Merges) },
	"collision_passes": func(r storage.StatsRow) float64 { return float64(r.CollisionPasses) },
	"collapsed":        func(r storage.StatsRow) float64 { return float64(r.Collapsed) },
	"body_mass":        func(r storage.StatsRow) float64 { return r.BodyMass },
	"gas_mass":         func(r storage.StatsRow) float64 { return r.GasMass },
	"total_mass":       func(r storage.StatsRow) float64 { return r.TotalMass },
	"momentum_x":       func(r storage.StatsRow) float64 { return r.MomentumX },
	"momentum_y":       func(r storage.StatsRow) float64 { return r.MomentumY },
	"gas_min_mass":     func(r storage.StatsRow) float64 { return r.GasMinMass },
	"gas_max_mass":     func(r storage.StatsRow) float64 { return r.GasMaxMass },
	"gas_std_dev":      func(r storage.StatsRow) float64 { return r.GasStdDev },
	"mean_temperature": func(r storage.StatsRow) float64 { return r.MeanTemperature },
	"max_speed":        func(r storage.StatsRow) float64 { return r.MaxSpeed },
	"duration_ms":      func(r storage.StatsRow) float64 { return r.DurationMS },
}

// column extracts one stats.csv column by header name.
func column(rows []storage.StatsRow, name string) ([]float64, error) {
	f, ok := columns[name]
	if !ok {
		names := make([]string, 0, len(columns))
		for n := range columns {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown series %q (available: %s)", name, strings.Join(names, ", "))
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = f(r)
	}
	return out, nil
}

// exportRun rebuilds a stored run from its config and replays it.
func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	u, err := scenario.Build(cfg, logger)
	if err != nil {
		return err
	}

	s := sim.New(u)
	s.SetLogger(logger)
	if meta.TicksTaken > 0 {
		if _, err := s.Run(cmd.Context(), sim.Config{Dt: cfg.Dt, Ticks: meta.TicksTaken, Seed: cfg.Seed}); err != nil {
			return err
		}
	}

	if svgPath != "" {
		layer, err := viz.ParseLayer(layerName)
		if err != nil {
			return err
		}
		f, err := os.Create(svgPath)
		if err != nil {
			return err
		}
		cells, w, h := u.Cells()
		svg := viz.SVG{Layer: layer, Theme: viz.GetTheme(themeName)}
		if err := svg.Write(f, cells, w, h, u.Domain(), u.Masses()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	snap := storage.NewSnapshot(u)
	if outPath == "" {
		return storage.WriteSnapshot(os.Stdout, snap)
	}
	return storage.ExportJSON(outPath, snap)
}
