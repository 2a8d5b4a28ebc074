// Package gas simulates a compressible gas on a fixed periodic grid.
//
// Each Update recomputes pressure, accelerates every cell by its pressure
// gradient, a precomputed self-gravity kernel and nearby point masses, then
// advects mass, temperature and pressure along the new velocities. The
// result is published by swapping a pointer, so a reader always sees the
// cells of one complete tick.
package gas

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/geom"
	"github.com/san-kum/popsim/internal/parallel"
)

// Params holds the gas constants and the independently toggleable force
// terms.
type Params struct {
	G             float64
	GasConstant   float64
	GravityRadius float64
	MinDistanceSq float64
	// ParticleQueryScale multiplies GravityRadius when gathering point
	// masses around a cell center.
	ParticleQueryScale float64
	// BlendMassThreshold is the accumulated target mass above which
	// advection averages temperature and pressure into a cell.
	BlendMassThreshold float64

	SelfGravity      bool
	PressureGradient bool
	ParticleGravity  bool
	ConserveMass     bool
	// ConservationRadius is the half-width, in cells, of the neighborhood
	// compared by the conservation pass.
	ConservationRadius int
}

func DefaultParams() Params {
	return Params{
		G:                  1.0,
		GasConstant:        1.0,
		GravityRadius:      50.0,
		MinDistanceSq:      1.0,
		ParticleQueryScale: 3.0,
		BlendMassThreshold: 0.3,
		SelfGravity:        true,
		PressureGradient:   true,
		ParticleGravity:    true,
		ConservationRadius: 1,
	}
}

func (p Params) Validate() error {
	switch {
	case !(p.G >= 0) || math.IsInf(p.G, 0):
		return fmt.Errorf("%w: G %v", ErrInvalidParams, p.G)
	case !(p.GasConstant >= 0) || math.IsInf(p.GasConstant, 0):
		return fmt.Errorf("%w: gas constant %v", ErrInvalidParams, p.GasConstant)
	case !(p.GravityRadius > 0):
		return fmt.Errorf("%w: gravity radius %v must be positive", ErrInvalidParams, p.GravityRadius)
	case !(p.MinDistanceSq > 0):
		return fmt.Errorf("%w: minimum distance squared %v must be positive", ErrInvalidParams, p.MinDistanceSq)
	case !(p.ParticleQueryScale > 0):
		return fmt.Errorf("%w: particle query scale %v must be positive", ErrInvalidParams, p.ParticleQueryScale)
	case p.BlendMassThreshold < 0:
		return fmt.Errorf("%w: blend threshold %v", ErrInvalidParams, p.BlendMassThreshold)
	case p.ConserveMass && p.ConservationRadius < 0:
		return fmt.Errorf("%w: conservation radius %d", ErrInvalidParams, p.ConservationRadius)
	}
	return nil
}

// Grid is a width x height periodic grid of square cells. Cells are stored
// row-major: cell (i, j) is column i, row j.
type Grid struct {
	domain   geom.Domain
	width    int
	height   int
	cellSize float64
	params   Params

	kernel  kernel
	centers []r2.Vec

	cells   atomic.Pointer[buffer]
	buffers *bufferPool
	pool    *parallel.Pool
	logger  *slog.Logger
}

type Option func(*Grid)

func WithPool(p *parallel.Pool) Option { return func(g *Grid) { g.pool = p } }

func WithLogger(l *slog.Logger) Option { return func(g *Grid) { g.logger = l } }

// NewGrid returns a grid whose lower corner is origin, filled with empty
// cells at DefaultTemperature.
func NewGrid(origin r2.Vec, width, height int, cellSize float64, p Params, opts ...Option) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGrid, width, height)
	}
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("%w: cell size %v", ErrInvalidGrid, cellSize)
	}
	d, err := geom.NewDomain(origin, r2.Vec{X: float64(width) * cellSize, Y: float64(height) * cellSize})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGrid, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	g := &Grid{
		domain:   d,
		width:    width,
		height:   height,
		cellSize: cellSize,
		params:   p,
		kernel:   newKernel(p.G, p.GravityRadius, cellSize, width, height),
		buffers:  newBufferPool(width * height),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.centers = make([]r2.Vec, width*height)
	initial := &buffer{cells: make([]Cell, width*height)}
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			k := j*width + i
			g.centers[k] = r2.Vec{
				X: origin.X + (float64(i)+0.5)*cellSize,
				Y: origin.Y + (float64(j)+0.5)*cellSize,
			}
			initial.cells[k].Temperature = DefaultTemperature
		}
	}
	g.cells.Store(initial)

	g.logger.Debug("gas grid created",
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Float64("cell_size", cellSize),
		slog.Int("kernel_radius", g.kernel.radius))
	return g, nil
}

// SetPool replaces the worker pool used by Update. It must not be called
// while an Update is running.
func (g *Grid) SetPool(p *parallel.Pool) { g.pool = p }

func (g *Grid) Width() int { return g.width }

func (g *Grid) Height() int { return g.height }

func (g *Grid) CellSize() float64 { return g.cellSize }

func (g *Grid) CellArea() float64 { return g.cellSize * g.cellSize }

func (g *Grid) Domain() geom.Domain { return g.domain }

func (g *Grid) Params() Params { return g.params }

func (g *Grid) KernelRadius() int { return g.kernel.radius }

// Len returns the number of cells.
func (g *Grid) Len() int { return g.width * g.height }

func (g *Grid) index(i, j int) int { return wrapIndex(j, g.height)*g.width + wrapIndex(i, g.width) }

func (g *Grid) current() []Cell { return g.cells.Load().cells }

// Cell returns cell (i, j) with periodic indexing.
func (g *Grid) Cell(i, j int) Cell { return g.current()[g.index(i, j)] }

// CellAt returns the cell containing pos.
func (g *Grid) CellAt(pos r2.Vec) Cell { return g.Cell(g.IndexOf(pos)) }

// IndexOf returns the column and row of the cell containing pos. Positions
// outside the domain are wrapped first.
func (g *Grid) IndexOf(pos r2.Vec) (i, j int) {
	p := g.domain.Wrap(pos)
	i = int(math.Floor((p.X - g.domain.Min.X) / g.cellSize))
	j = int(math.Floor((p.Y - g.domain.Min.Y) / g.cellSize))
	return wrapIndex(i, g.width), wrapIndex(j, g.height)
}

// CellCenter returns the world position of the middle of cell (i, j).
func (g *Grid) CellCenter(i, j int) r2.Vec { return g.centers[g.index(i, j)] }

// AccelerationAt returns the cached self-gravity acceleration of the cell
// containing pos.
func (g *Grid) AccelerationAt(pos r2.Vec) r2.Vec { return g.CellAt(pos).Gravity }

// Snapshot returns a copy of every cell in row-major order.
func (g *Grid) Snapshot() []Cell {
	src := g.current()
	out := make([]Cell, len(src))
	copy(out, src)
	return out
}

// TotalMass sums the mass of every cell.
func (g *Grid) TotalMass() float64 {
	total := 0.0
	for _, c := range g.current() {
		total += c.Mass
	}
	return total
}

// Momentum sums mass * velocity over every cell.
func (g *Grid) Momentum() r2.Vec {
	var p r2.Vec
	for _, c := range g.current() {
		p = r2.Add(p, c.Momentum())
	}
	return p
}

func wrapIndex(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
