// Package scenario generates seeded starting worlds from a config.
package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/config"
	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/geom"
	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/universe"
)

var ErrUnknownScenario = errors.New("scenario: unknown kind")

// Kinds lists the scenario kinds Generate understands.
var Kinds = []string{"early", "central", "galaxy", "collapse"}

// World is a generated initial state.
type World struct {
	Bodies *nbody.Set
	Grid   *gas.Grid
}

// Generate builds bodies and gas for cfg.Scenario using cfg.Seed.
func Generate(cfg *config.Config, opts ...gas.Option) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := cfg.Domain()
	if err != nil {
		return nil, err
	}
	grid, err := gas.NewGrid(d.Min, cfg.Grid.Width, cfg.Grid.Height, cfg.Grid.CellSize, cfg.GasParams(), opts...)
	if err != nil {
		return nil, err
	}

	g := generator{
		cfg:    cfg,
		s:      cfg.Scenario,
		domain: d,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		bodies: nbody.NewSet(),
		grid:   grid,
	}

	switch cfg.Scenario.Kind {
	case "early", "":
		err = g.early()
	case "central":
		err = g.central()
	case "galaxy":
		err = g.galaxy()
	case "collapse":
		err = g.collapse()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, cfg.Scenario.Kind)
	}
	if err != nil {
		return nil, err
	}
	return &World{Bodies: g.bodies, Grid: grid}, nil
}

// Build generates the world for cfg and wraps it in a Universe.
func Build(cfg *config.Config, logger *slog.Logger) (*universe.Universe, error) {
	opts := []gas.Option{}
	if logger != nil {
		opts = append(opts, gas.WithLogger(logger.With(slog.String("component", "gas"))))
	}
	w, err := Generate(cfg, opts...)
	if err != nil {
		return nil, err
	}
	d, err := cfg.Domain()
	if err != nil {
		return nil, err
	}

	uopts := []universe.Option{universe.WithWorkers(cfg.Workers)}
	if logger != nil {
		uopts = append(uopts, universe.WithLogger(logger))
	}
	return universe.NewWithDomain(cfg.UniverseConfig(), d, w.Bodies, w.Grid, uopts...)
}

type generator struct {
	cfg    *config.Config
	s      config.ScenarioConfig
	domain geom.Domain
	rng    *rand.Rand
	bodies *nbody.Set
	grid   *gas.Grid
}

func (g *generator) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// rect returns a vector with both components in [-1, 1).
func (g *generator) rect() r2.Vec {
	return r2.Vec{X: g.rng.Float64()*2 - 1, Y: g.rng.Float64()*2 - 1}
}

func (g *generator) temperature() float64 {
	return g.between(g.s.MinTemp, g.s.MaxTemp)
}

func (g *generator) scatterStars() error {
	for i := 0; i < g.s.Stars; i++ {
		pos := r2.Vec{
			X: g.domain.Min.X + g.rng.Float64()*g.domain.Size.X,
			Y: g.domain.Min.Y + g.rng.Float64()*g.domain.Size.Y,
		}
		_, err := g.bodies.Add(nbody.Mass{
			Position: pos,
			Velocity: r2.Scale(g.s.StarSpeed, g.rect()),
			Mass:     g.s.StarMass,
			Density:  g.s.StarDensity,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) early() error {
	err := g.grid.Fill(func(i, j int, _ r2.Vec) gas.Cell {
		return gas.Cell{
			Mass:        g.between(g.s.GasMass/2, g.s.GasMass),
			Temperature: g.temperature(),
			Velocity:    r2.Scale(g.s.GasSpeed, g.rect()),
		}
	})
	if err != nil {
		return err
	}
	return g.scatterStars()
}

// central concentrates gas inside a disk of a sixth of the domain width.
func (g *generator) central() error {
	radius := math.Min(g.domain.Size.X, g.domain.Size.Y) / 6
	center := g.domain.Center()
	drift := r2.Vec{X: g.s.GasSpeed, Y: g.s.GasSpeed}
	err := g.grid.Fill(func(i, j int, pos r2.Vec) gas.Cell {
		m := g.between(g.s.GasMass/20, g.s.GasMass/5)
		if r2.Norm(r2.Sub(pos, center)) < radius {
			m = g.between(g.s.GasMass/1.5, g.s.GasMass)
		}
		return gas.Cell{Mass: m, Temperature: g.temperature(), Velocity: drift}
	})
	if err != nil {
		return err
	}
	return g.scatterStars()
}

// galaxy puts a heavy body at the center with stars on circular orbits
// around it inside a thin uniform gas.
func (g *generator) galaxy() error {
	err := g.grid.Fill(func(int, int, r2.Vec) gas.Cell {
		return gas.Cell{Mass: g.s.GasMass, Temperature: g.temperature()}
	})
	if err != nil {
		return err
	}

	center := g.domain.Center()
	central := g.s.CentralMass
	if central > 0 {
		_, err := g.bodies.Add(nbody.Mass{Position: center, Mass: central, Density: g.s.StarDensity * 100})
		if err != nil {
			return err
		}
	}

	half := math.Min(g.domain.Size.X, g.domain.Size.Y) / 2
	inner, outer := 0.15*half, 0.9*half
	for i := 0; i < g.s.Stars; i++ {
		r := g.between(inner, outer)
		angle := g.rng.Float64() * 2 * math.Pi
		offset := r2.Vec{X: r * math.Cos(angle), Y: r * math.Sin(angle)}

		var vel r2.Vec
		if central > 0 {
			speed := math.Sqrt(g.cfg.Physics.G * central / r)
			vel = r2.Scale(speed, r2.Unit(r2.Vec{X: -offset.Y, Y: offset.X}))
		}
		_, err := g.bodies.Add(nbody.Mass{
			Position: r2.Add(center, offset),
			Velocity: vel,
			Mass:     g.s.StarMass,
			Density:  g.s.StarDensity,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// collapse fills the grid with lumpy gas drifting in random directions and
// relies on the collapse step to form bodies.
func (g *generator) collapse() error {
	err := g.grid.Fill(func(int, int, r2.Vec) gas.Cell {
		return gas.Cell{
			Mass:        2 * g.rng.Float64() * g.s.GasMass,
			Temperature: g.temperature(),
			Velocity:    r2.Scale(-g.s.GasSpeed, g.rect()),
		}
	})
	if err != nil {
		return err
	}
	return g.scatterStars()
}
