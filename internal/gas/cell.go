package gas

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultTemperature = 300.0
	DefaultDensity     = 1.0
)

// Cell holds the gas state of one grid slot. Density is always
// Mass / cell area; Gravity caches the kernel-only acceleration of the last
// update.
type Cell struct {
	Mass        float64
	Density     float64
	Pressure    float64
	Temperature float64
	Velocity    r2.Vec
	Gravity     r2.Vec
}

// Speed returns the magnitude of the cell velocity.
func (c Cell) Speed() float64 { return r2.Norm(c.Velocity) }

// Momentum returns mass * velocity.
func (c Cell) Momentum() r2.Vec { return r2.Scale(c.Mass, c.Velocity) }

func (c Cell) validate() error {
	for _, v := range []float64{c.Mass, c.Temperature, c.Velocity.X, c.Velocity.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidCell, c)
		}
	}
	if c.Mass < 0 || c.Temperature < 0 {
		return fmt.Errorf("%w: negative mass %v or temperature %v", ErrInvalidCell, c.Mass, c.Temperature)
	}
	return nil
}
