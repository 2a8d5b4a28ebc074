package gas

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Collapsed describes a cell emptied by Collapse.
type Collapsed struct {
	I, J   int
	Center r2.Vec
	Cell   Cell
}

// mutate applies fn to a private copy of the cells and publishes the copy
// only if fn succeeds. Mutations must not overlap with Update.
func (g *Grid) mutate(fn func(cells []Cell) error) error {
	next := g.buffers.getCopy(g.cells.Load())
	if err := fn(next.cells); err != nil {
		g.buffers.put(next)
		return err
	}
	g.cells.Store(next)
	return nil
}

// SetCell replaces cell (i, j). Density is derived from mass and pressure
// from the ideal gas law.
func (g *Grid) SetCell(i, j int, c Cell) error {
	if err := c.validate(); err != nil {
		return err
	}
	c.Density = c.Mass / g.CellArea()
	c.Pressure = c.Density * g.params.GasConstant * c.Temperature
	return g.mutate(func(cells []Cell) error {
		cells[g.index(i, j)] = c
		return nil
	})
}

// Fill sets every cell from fn in one publication.
func (g *Grid) Fill(fn func(i, j int, center r2.Vec) Cell) error {
	area := g.CellArea()
	return g.mutate(func(cells []Cell) error {
		for j := 0; j < g.height; j++ {
			for i := 0; i < g.width; i++ {
				k := j*g.width + i
				c := fn(i, j, g.centers[k])
				if err := c.validate(); err != nil {
					return fmt.Errorf("cell (%d,%d): %w", i, j, err)
				}
				c.Density = c.Mass / area
				c.Pressure = c.Density * g.params.GasConstant * c.Temperature
				cells[k] = c
			}
		}
		return nil
	})
}

// ApplyImpulse changes the momentum of cell (i, j) by impulse.
func (g *Grid) ApplyImpulse(i, j int, impulse r2.Vec) error {
	return g.mutate(func(cells []Cell) error {
		c := &cells[g.index(i, j)]
		if c.Mass <= 0 {
			return fmt.Errorf("%w: (%d,%d)", ErrEmptyCell, i, j)
		}
		c.Velocity = r2.Add(c.Velocity, r2.Scale(1/c.Mass, impulse))
		return nil
	})
}

// AddMass adds dm to cell (i, j). Added mass brings the momentum
// dm*velocity with it; removed mass leaves at the cell's own velocity.
// Removing more than the cell holds fails with ErrInsufficientMass.
func (g *Grid) AddMass(i, j int, dm float64, velocity r2.Vec) error {
	if math.IsNaN(dm) || math.IsInf(dm, 0) {
		return fmt.Errorf("%w: mass change %v", ErrInvalidCell, dm)
	}
	area := g.CellArea()
	return g.mutate(func(cells []Cell) error {
		c := &cells[g.index(i, j)]
		next := c.Mass + dm
		switch {
		case next < 0:
			return fmt.Errorf("%w: cell (%d,%d) holds %v, removing %v", ErrInsufficientMass, i, j, c.Mass, -dm)
		case dm > 0:
			c.Velocity = r2.Scale(1/next, r2.Add(c.Momentum(), r2.Scale(dm, velocity)))
		}
		c.Mass = next
		c.Density = next / area
		return nil
	})
}

// Collapse empties every cell holding more than threshold and returns what
// was removed, in row-major order.
func (g *Grid) Collapse(threshold float64) ([]Collapsed, error) {
	if !(threshold > 0) {
		return nil, nil
	}
	var out []Collapsed
	for k, c := range g.current() {
		if c.Mass > threshold {
			out = append(out, Collapsed{I: k % g.width, J: k / g.width, Center: g.centers[k], Cell: c})
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	err := g.mutate(func(cells []Cell) error {
		for _, col := range out {
			c := &cells[col.J*g.width+col.I]
			c.Mass = 0
			c.Density = 0
			c.Pressure = 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
