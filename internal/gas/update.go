package gas

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/spatial"
)

// Update advances the grid by dt. particles is the index built by the mass
// simulator for this tick; it may be nil. The published cells are only
// replaced once every phase has succeeded.
func (g *Grid) Update(ctx context.Context, dt float64, particles *spatial.Index[nbody.Point]) error {
	work := g.buffers.getCopy(g.cells.Load())
	defer g.buffers.put(work)

	if err := g.updatePressure(ctx, work.cells); err != nil {
		return err
	}
	if err := g.updateVelocity(ctx, work.cells, particles, dt); err != nil {
		return err
	}

	next := g.buffers.get()
	g.advect(work.cells, next.cells, dt)

	if g.params.ConserveMass {
		if err := g.conserve(ctx, work.cells, next.cells); err != nil {
			g.buffers.put(next)
			return err
		}
	}

	// the previous buffer is left to the collector: readers may still hold it
	g.cells.Store(next)
	return nil
}

func (g *Grid) updatePressure(ctx context.Context, cells []Cell) error {
	r := g.params.GasConstant
	return g.pool.For(ctx, len(cells), func(start, end int) error {
		for k := start; k < end; k++ {
			c := &cells[k]
			c.Pressure = c.Density * r * c.Temperature
		}
		return nil
	})
}

// updateVelocity writes only Velocity and Gravity; neighbor reads touch only
// Mass, Density and Pressure, so rows can run in parallel.
func (g *Grid) updateVelocity(ctx context.Context, cells []Cell, particles *spatial.Index[nbody.Point], dt float64) error {
	p := g.params
	kr := g.kernel.radius
	reach := p.GravityRadius * p.ParticleQueryScale
	twoCs := 2 * g.cellSize
	d := g.domain

	return g.pool.For(ctx, g.height, func(start, end int) error {
		var buf []nbody.Point
		for j := start; j < end; j++ {
			up := wrapIndex(j-1, g.height) * g.width
			down := wrapIndex(j+1, g.height) * g.width
			row := j * g.width

			for i := 0; i < g.width; i++ {
				k := row + i
				c := &cells[k]

				var grav r2.Vec
				if p.SelfGravity {
					for dj := -kr; dj <= kr; dj++ {
						nrow := wrapIndex(j+dj, g.height) * g.width
						for di := -kr; di <= kr; di++ {
							if di == 0 && dj == 0 {
								continue
							}
							m := cells[nrow+wrapIndex(i+di, g.width)].Mass
							if m == 0 {
								continue
							}
							grav = r2.Add(grav, r2.Scale(m, g.kernel.at(di, dj)))
						}
					}
				}
				acc := grav

				if p.PressureGradient && c.Density > 0 {
					left := cells[row+wrapIndex(i-1, g.width)].Pressure
					right := cells[row+wrapIndex(i+1, g.width)].Pressure
					grad := r2.Vec{
						X: (right - left) / twoCs,
						Y: (cells[down+i].Pressure - cells[up+i].Pressure) / twoCs,
					}
					acc = r2.Sub(acc, r2.Scale(1/c.Density, grad))
				}

				if p.ParticleGravity && particles != nil {
					center := g.centers[k]
					buf = particles.QueryInto(buf[:0], center, reach)
					for _, pt := range buf {
						disp := d.WrappedDelta(pt.Pos, center)
						d2 := r2.Norm2(disp)
						if d2 == 0 {
							continue
						}
						dist := math.Sqrt(d2)
						if d2 < p.MinDistanceSq {
							d2 = p.MinDistanceSq
						}
						acc = r2.Add(acc, r2.Scale(p.G*pt.Mass/(d2*dist), disp))
					}
				}

				c.Gravity = grav
				c.Velocity = r2.Add(c.Velocity, r2.Scale(dt, acc))
			}
		}
		return nil
	})
}
