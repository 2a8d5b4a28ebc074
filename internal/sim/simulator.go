package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/san-kum/popsim/internal/universe"
)

type Simulator struct {
	world     World
	metrics   []Metric
	observers []Observer
	logger    *slog.Logger
}

func New(w World) *Simulator {
	return &Simulator{
		world:     w,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Run steps the world cfg.Ticks times. The context is checked between ticks
// only; a cancelled run returns the partial result together with ctx.Err().
// A failing tick stops the run and its error is returned as is.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Seed:    cfg.Seed,
		Stats:   make([]universe.TickStats, 0, cfg.Ticks),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result.InitialMass = s.world.TotalMass()
	defer s.finish(result)

	for i := 0; i < cfg.Ticks; i++ {
		select {
		case <-ctx.Done():
			result.Interrupted = true
			return result, ctx.Err()
		default:
		}

		stats, err := s.world.Step(cfg.Dt)
		if err != nil {
			s.logger.Error("tick failed", slog.Int("tick", i+1), slog.Any("err", err))
			return result, err
		}

		for _, m := range s.metrics {
			m.Observe(stats)
		}
		for _, obs := range s.observers {
			obs.OnTick(stats)
		}

		result.Stats = append(result.Stats, stats)
		result.TicksTaken++
	}

	s.logger.Info("run complete",
		slog.Int64("seed", cfg.Seed),
		slog.Int("ticks", result.TicksTaken))
	return result, nil
}

func (s *Simulator) finish(result *Result) {
	result.FinalMass = s.world.TotalMass()
	if result.InitialMass != 0 {
		result.MassDrift = math.Abs(result.FinalMass-result.InitialMass) / math.Abs(result.InitialMass)
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// RunWithCallback steps until the callback returns false, the context is
// cancelled or the tick limit is reached. ticks <= 0 means no limit.
func (s *Simulator) RunWithCallback(ctx context.Context, dt float64, ticks int, callback func(universe.TickStats) bool) error {
	if !(dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidRun, dt)
	}

	for i := 0; ticks <= 0 || i < ticks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stats, err := s.world.Step(dt)
		if err != nil {
			return err
		}
		for _, obs := range s.observers {
			obs.OnTick(stats)
		}
		if !callback(stats) {
			return nil
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidRun, cfg.Dt)
	}
	if cfg.Ticks < 0 {
		return fmt.Errorf("%w: ticks must not be negative, got %d", ErrInvalidRun, cfg.Ticks)
	}
	return nil
}
