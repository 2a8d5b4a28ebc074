// Package universe couples the mass simulator and the gas grid into one
// toroidal world.
//
// A Universe owns both representations. Step advances them in a fixed
// order, and the interactive mutations (ApplyImpulse, TransferMass, AddMass)
// are serialised with Step so they always land between ticks.
package universe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/geom"
	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/parallel"
)

// Interaction bounds the player mass transfer.
type Interaction struct {
	// MaxTransfer caps the magnitude of a single transfer; zero means no cap.
	MaxTransfer float64
	// MinBodyMass is the smallest mass a body may be drained to.
	MinBodyMass float64
}

// Collapse turns overfull gas cells into new bodies after each gas update.
// A zero Threshold disables it.
type Collapse struct {
	Threshold      float64
	Density        float64
	VelocityFactor float64
}

type Config struct {
	Bodies      nbody.Params
	Interaction Interaction
	Collapse    Collapse
}

func (c Config) Validate() error {
	if err := c.Bodies.Validate(); err != nil {
		return err
	}
	if c.Interaction.MaxTransfer < 0 || c.Interaction.MinBodyMass < 0 {
		return fmt.Errorf("%w: interaction limits %+v", ErrInvalidConfig, c.Interaction)
	}
	if c.Collapse.Threshold < 0 {
		return fmt.Errorf("%w: collapse threshold %v", ErrInvalidConfig, c.Collapse.Threshold)
	}
	if c.Collapse.Threshold > 0 && !(c.Collapse.Density > 0) {
		return fmt.Errorf("%w: collapse density %v", ErrInvalidConfig, c.Collapse.Density)
	}
	return nil
}

type options struct {
	logger  *slog.Logger
	workers int
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithWorkers bounds the goroutines used by every parallel phase.
func WithWorkers(n int) Option { return func(o *options) { o.workers = n } }

type Universe struct {
	mu sync.Mutex

	cfg    Config
	domain geom.Domain
	bodies *nbody.Set
	grid   *gas.Grid
	sim    *nbody.Simulator
	logger *slog.Logger

	tick int
	time float64
}

// New takes ownership of bodies and grid. The grid's domain is the domain
// of the universe; every body is validated and wrapped into it.
func New(cfg Config, bodies *nbody.Set, grid *gas.Grid, opts ...Option) (*Universe, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidConfig)
	}
	if bodies == nil {
		bodies = nbody.NewSet()
	}

	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	pool := parallel.NewPool(o.workers)

	d := grid.Domain()
	sim, err := nbody.NewSimulator(d, cfg.Bodies,
		nbody.WithPool(pool),
		nbody.WithLogger(o.logger.With(slog.String("component", "nbody"))))
	if err != nil {
		return nil, err
	}
	grid.SetPool(pool)

	for i := range bodies.Masses {
		m := &bodies.Masses[i]
		if m.Merged {
			continue
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("body %d: %w", m.ID, err)
		}
		m.Position = d.Wrap(m.Position)
	}

	return &Universe{
		cfg:    cfg,
		domain: d,
		bodies: bodies,
		grid:   grid,
		sim:    sim,
		logger: o.logger,
	}, nil
}

// NewWithDomain is New with an explicit body domain that must match the grid.
func NewWithDomain(cfg Config, d geom.Domain, bodies *nbody.Set, grid *gas.Grid, opts ...Option) (*Universe, error) {
	if grid != nil && !sameDomain(d, grid.Domain()) {
		return nil, fmt.Errorf("%w: bodies %+v, grid %+v", ErrDomainMismatch, d, grid.Domain())
	}
	return New(cfg, bodies, grid, opts...)
}

func sameDomain(a, b geom.Domain) bool {
	tol := 1e-9 * math.Max(math.Max(a.Size.X, a.Size.Y), 1)
	return math.Abs(a.Min.X-b.Min.X) <= tol && math.Abs(a.Min.Y-b.Min.Y) <= tol &&
		math.Abs(a.Size.X-b.Size.X) <= tol && math.Abs(a.Size.Y-b.Size.Y) <= tol
}

// Step advances the universe by dt: compact tombstones, step the bodies
// (index, collisions, gravity with gas coupling, integration, wrap), update
// the gas with the same index, then collapse overfull cells.
func (u *Universe) Step(dt float64) (TickStats, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	start := time.Now()
	tick := u.tick + 1
	ctx := context.Background()

	compacted := u.bodies.Compact()

	bs, err := u.sim.Step(ctx, u.bodies, u.grid, dt)
	if err != nil {
		return TickStats{}, &TickError{Tick: tick, Phase: "bodies", Err: err}
	}

	if err := u.grid.Update(ctx, dt, u.sim.Index()); err != nil {
		return TickStats{}, &TickError{Tick: tick, Phase: "gas", Err: err}
	}

	collapsed, err := u.collapse()
	if err != nil {
		return TickStats{}, &TickError{Tick: tick, Phase: "collapse", Err: err}
	}

	u.tick = tick
	u.time += dt

	gs := u.grid.Stats()
	bodyMass := u.bodies.TotalMass()
	stats := TickStats{
		Tick:            tick,
		Time:            u.time,
		Bodies:          u.bodies.LiveCount(),
		Merges:          bs.Merges,
		CollisionPasses: bs.CollisionPasses,
		Compacted:       compacted,
		Collapsed:       collapsed,
		BodyMass:        bodyMass,
		GasMass:         gs.TotalMass,
		TotalMass:       bodyMass + gs.TotalMass,
		Momentum:        r2.Add(u.bodies.Momentum(), u.grid.Momentum()),
		Gas:             gs,
		Duration:        time.Since(start),
	}
	u.logger.Debug("tick", slog.Any("stats", stats))
	return stats, nil
}

func (u *Universe) collapse() (int, error) {
	c := u.cfg.Collapse
	if c.Threshold <= 0 {
		return 0, nil
	}
	cells, err := u.grid.Collapse(c.Threshold)
	if err != nil {
		return 0, err
	}
	for _, cell := range cells {
		_, err := u.bodies.Add(nbody.Mass{
			Position: cell.Center,
			Velocity: r2.Scale(c.VelocityFactor, cell.Cell.Velocity),
			Mass:     cell.Cell.Mass,
			Density:  c.Density,
		})
		if err != nil {
			return 0, fmt.Errorf("cell (%d,%d): %w", cell.I, cell.J, err)
		}
	}
	if len(cells) > 0 {
		u.logger.Debug("gas collapsed", slog.Int("bodies", len(cells)))
	}
	return len(cells), nil
}

func (u *Universe) Domain() geom.Domain { return u.domain }

func (u *Universe) Config() Config { return u.cfg }

// Tick returns the number of completed ticks.
func (u *Universe) Tick() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.tick
}

// Time returns the simulated time.
func (u *Universe) Time() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.time
}

// Masses returns copies of the live bodies.
func (u *Universe) Masses() []nbody.Mass {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bodies.Live()
}

// Cells returns a row-major copy of the gas cells with the grid dimensions.
func (u *Universe) Cells() (cells []gas.Cell, width, height int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.grid.Snapshot(), u.grid.Width(), u.grid.Height()
}

func (u *Universe) GridStats() gas.Stats {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.grid.Stats()
}

// TotalMass returns body mass plus gas mass.
func (u *Universe) TotalMass() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bodies.TotalMass() + u.grid.TotalMass()
}

// Momentum returns the combined linear momentum of bodies and gas.
func (u *Universe) Momentum() r2.Vec {
	u.mu.Lock()
	defer u.mu.Unlock()
	return r2.Add(u.bodies.Momentum(), u.grid.Momentum())
}
