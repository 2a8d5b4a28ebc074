package nbody

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/geom"
)

// ID identifies a mass. IDs are unique and totally ordered; on merge the
// lower ID survives.
type ID uint64

// Mass is a point-like gravitating body modelled as a disk of uniform
// density.
type Mass struct {
	ID       ID
	Position r2.Vec
	Velocity r2.Vec
	Force    r2.Vec
	Mass     float64
	Density  float64
	// Merged marks a mass absorbed during the current tick. Tombstoned
	// masses stay in the arena until the next Compact.
	Merged bool
	// Handle is an opaque value owned by the presentation layer.
	Handle any
}

// Radius returns sqrt(area/π) with area = mass/density.
func (m *Mass) Radius() float64 {
	return math.Sqrt(m.Area() / math.Pi)
}

// Area returns mass/density.
func (m *Mass) Area() float64 { return m.Mass / m.Density }

// Momentum returns mass * velocity.
func (m *Mass) Momentum() r2.Vec { return r2.Scale(m.Mass, m.Velocity) }

// Live reports whether the mass has not been absorbed.
func (m *Mass) Live() bool { return !m.Merged }

// Validate rejects masses that would produce NaN or Inf in radius or
// integration.
func (m *Mass) Validate() error {
	if !(m.Mass > 0) || math.IsInf(m.Mass, 0) {
		return fmt.Errorf("%w: mass %v", ErrInvalidMass, m.Mass)
	}
	if !(m.Density > 0) || math.IsInf(m.Density, 0) {
		return fmt.Errorf("%w: density %v", ErrInvalidMass, m.Density)
	}
	if !finiteVec(m.Position) || !finiteVec(m.Velocity) {
		return fmt.Errorf("%w: non-finite position %v or velocity %v", ErrInvalidMass, m.Position, m.Velocity)
	}
	return nil
}

// Merge combines a and b into one body. Mass, linear momentum and area are
// conserved; the position is the mass-weighted average taken along the
// wrapped separation, so bodies straddling an edge merge between themselves.
// The result carries the lower ID and that body's handle.
func Merge(d geom.Domain, a, b Mass) Mass {
	if b.ID < a.ID {
		a, b = b, a
	}
	total := a.Mass + b.Mass
	wb := b.Mass / total

	offset := d.WrappedDelta(b.Position, a.Position)
	pos := d.Wrap(r2.Add(a.Position, r2.Scale(wb, offset)))

	vel := r2.Scale(1/total, r2.Add(r2.Scale(a.Mass, a.Velocity), r2.Scale(b.Mass, b.Velocity)))

	return Mass{
		ID:       a.ID,
		Position: pos,
		Velocity: vel,
		Mass:     total,
		Density:  total / (a.Area() + b.Area()),
		Handle:   a.Handle,
	}
}

func finiteVec(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
