package gas

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/parallel"
	"github.com/san-kum/popsim/internal/spatial"
)

func quietParams() Params {
	p := DefaultParams()
	p.SelfGravity = false
	p.PressureGradient = false
	p.ParticleGravity = false
	return p
}

func newTestGrid(t *testing.T, w, h int, cs float64, p Params) *Grid {
	t.Helper()
	origin := r2.Vec{X: -float64(w) * cs / 2, Y: -float64(h) * cs / 2}
	g, err := NewGrid(origin, w, h, cs, p, WithPool(&parallel.Pool{Workers: 4, MinChunk: 1}))
	require.NoError(t, err)
	return g
}

func TestNewGridRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		cs   float64
		p    func(*Params)
		want error
	}{
		{"zero width", 0, 4, 1, nil, ErrInvalidGrid},
		{"negative height", 4, -1, 1, nil, ErrInvalidGrid},
		{"zero cell size", 4, 4, 0, nil, ErrInvalidGrid},
		{"nan cell size", 4, 4, math.NaN(), nil, ErrInvalidGrid},
		{"negative gas constant", 4, 4, 1, func(p *Params) { p.GasConstant = -1 }, ErrInvalidParams},
		{"zero min distance", 4, 4, 1, func(p *Params) { p.MinDistanceSq = 0 }, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			if tt.p != nil {
				tt.p(&p)
			}
			_, err := NewGrid(r2.Vec{}, tt.w, tt.h, tt.cs, p)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPressureFormula(t *testing.T) {
	p := quietParams()
	p.GasConstant = 10
	g := newTestGrid(t, 2, 2, 1, p)

	cells := []Cell{{Density: 2, Temperature: 5}, {Density: 0, Temperature: 5}}
	require.NoError(t, g.updatePressure(context.Background(), cells))

	assert.Equal(t, 100.0, cells[0].Pressure)
	assert.Equal(t, 0.0, cells[1].Pressure)
}

func TestKernel(t *testing.T) {
	k := newKernel(1, 10, 2, 64, 64)
	require.Equal(t, 5, k.radius)

	assert.Equal(t, r2.Vec{}, k.at(0, 0))
	assert.InDelta(t, 0.25, k.at(1, 0).X, 1e-15)
	assert.InDelta(t, 0, k.at(1, 0).Y, 1e-15)

	for dj := -k.radius; dj <= k.radius; dj++ {
		for di := -k.radius; di <= k.radius; di++ {
			a, b := k.at(di, dj), k.at(-di, -dj)
			assert.InDelta(t, -a.X, b.X, 1e-15)
			assert.InDelta(t, -a.Y, b.Y, 1e-15)
		}
	}
}

func TestKernelRadiusClampedToGrid(t *testing.T) {
	k := newKernel(1, 100, 1, 5, 9)
	assert.Equal(t, 2, k.radius)
}

func TestAdvectionConservesMass(t *testing.T) {
	for _, conserve := range []bool{false, true} {
		p := DefaultParams()
		p.ConserveMass = conserve
		g := newTestGrid(t, 16, 12, 2, p)

		rng := rand.New(rand.NewSource(7))
		require.NoError(t, g.Fill(func(i, j int, _ r2.Vec) Cell {
			return Cell{
				Mass:        rng.Float64() * 5,
				Temperature: 10 + rng.Float64()*20,
				Velocity:    r2.Vec{X: rng.NormFloat64() * 3, Y: rng.NormFloat64() * 3},
			}
		}))

		before := g.TotalMass()
		for tick := 0; tick < 5; tick++ {
			require.NoError(t, g.Update(context.Background(), 0.1, nil))
		}
		after := g.TotalMass()

		assert.InEpsilon(t, before, after, 1e-4, "conserve=%v", conserve)
		for _, c := range g.Snapshot() {
			assert.GreaterOrEqual(t, c.Mass, 0.0)
			assert.GreaterOrEqual(t, c.Density, 0.0)
		}
	}
}

func TestAdvectionAtRestSpreadsToNeighbors(t *testing.T) {
	g := newTestGrid(t, 5, 5, 1, quietParams())
	require.NoError(t, g.SetCell(2, 2, Cell{Mass: 1, Temperature: 40}))

	require.NoError(t, g.Update(context.Background(), 1, nil))

	denom := 5*math.Sqrt2 - 4
	assert.InDelta(t, math.Sqrt2/denom, g.Cell(2, 2).Mass, 1e-12)
	edge := (math.Sqrt2 - 1) / denom
	for _, c := range []Cell{g.Cell(1, 2), g.Cell(3, 2), g.Cell(2, 1), g.Cell(2, 3)} {
		assert.InDelta(t, edge, c.Mass, 1e-12)
		assert.Equal(t, 40.0, c.Temperature)
	}
	assert.Zero(t, g.Cell(1, 1).Mass)
	assert.Equal(t, DefaultTemperature, g.Cell(0, 0).Temperature)
}

func TestUniformGridStaysUniform(t *testing.T) {
	g := newTestGrid(t, 9, 9, 1, DefaultParams())
	require.NoError(t, g.Fill(func(int, int, r2.Vec) Cell {
		return Cell{Mass: 2, Temperature: 20}
	}))

	require.NoError(t, g.Update(context.Background(), 0.1, nil))

	for _, c := range g.Snapshot() {
		assert.InDelta(t, 2, c.Mass, 1e-9)
		assert.InDelta(t, 0, c.Speed(), 1e-9)
	}
}

func TestDepositBlending(t *testing.T) {
	g := newTestGrid(t, 3, 3, 1, quietParams())
	src := &Cell{Temperature: 100, Pressure: 10}

	var target Cell
	g.deposit(&target, src, 0.1)
	assert.Equal(t, 100.0, target.Temperature, "first deposit adopts source")

	light := &Cell{Temperature: 0, Pressure: 0}
	g.deposit(&target, light, 0.1)
	assert.Equal(t, 100.0, target.Temperature, "below threshold keeps temperature")

	g.deposit(&target, light, 0.8)
	assert.InDelta(t, 20.0, target.Temperature, 1e-12)
	assert.InDelta(t, 1.0, target.Mass, 1e-12)
}

func TestParticleGravityOnCells(t *testing.T) {
	p := quietParams()
	p.ParticleGravity = true
	g := newTestGrid(t, 8, 8, 1, p)

	ix := spatial.New[nbody.Point](g.Domain(), 0)
	ix.Build([]nbody.Point{{Index: 0, ID: 1, Pos: g.CellCenter(4, 4), Mass: 8}})

	require.NoError(t, g.Update(context.Background(), 1, ix))

	assert.InDelta(t, 2, g.Cell(2, 4).Velocity.X, 1e-12)
	assert.InDelta(t, 8, g.Cell(3, 4).Velocity.X, 1e-12, "distance floor")
	assert.InDelta(t, -2, g.Cell(4, 6).Velocity.Y, 1e-12)
	assert.Equal(t, r2.Vec{}, g.Cell(4, 4).Velocity, "coincident particle skipped")
	assert.Equal(t, r2.Vec{}, g.Cell(2, 4).Gravity, "particle term is not cached")
}

func TestAccelerationAtReturnsKernelGravity(t *testing.T) {
	p := quietParams()
	p.SelfGravity = true
	g := newTestGrid(t, 5, 5, 1, p)
	require.NoError(t, g.SetCell(2, 2, Cell{Mass: 1, Temperature: 10}))

	require.NoError(t, g.Update(context.Background(), 0.1, nil))

	acc := g.AccelerationAt(g.CellCenter(1, 2))
	assert.InDelta(t, 1, acc.X, 1e-12)
	assert.InDelta(t, 0, acc.Y, 1e-12)
	assert.Equal(t, r2.Vec{}, g.AccelerationAt(g.CellCenter(2, 2)))
}

func TestUpdateLeavesPublishedCellsUntouched(t *testing.T) {
	g := newTestGrid(t, 6, 6, 1, DefaultParams())
	require.NoError(t, g.SetCell(1, 1, Cell{Mass: 3, Temperature: 50, Velocity: r2.Vec{X: 4}}))

	old := g.cells.Load()
	want := append([]Cell(nil), old.cells...)

	require.NoError(t, g.Update(context.Background(), 0.5, nil))

	assert.Equal(t, want, old.cells)
	assert.NotSame(t, old, g.cells.Load())
}

func TestIndexOfWraps(t *testing.T) {
	g := newTestGrid(t, 4, 4, 2, quietParams())

	tests := []struct {
		pos  r2.Vec
		i, j int
	}{
		{r2.Vec{X: -4, Y: -4}, 0, 0},
		{r2.Vec{X: 3.9, Y: 0.1}, 3, 2},
		{r2.Vec{X: 4.5, Y: -4.5}, 0, 3},
	}
	for _, tt := range tests {
		i, j := g.IndexOf(tt.pos)
		assert.Equal(t, [2]int{tt.i, tt.j}, [2]int{i, j}, "pos %v", tt.pos)
	}
}
