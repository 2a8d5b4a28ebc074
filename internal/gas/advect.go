package gas

import (
	"context"
	"math"
)

// advect scatters every source cell's mass over the 3x3 block of cells
// around the point its velocity carries it to. Targets overlap, so the
// scatter is sequential. dst must be zeroed.
func (g *Grid) advect(src, dst []Cell, dt float64) {
	w, h := float64(g.width), float64(g.height)
	scale := dt / g.cellSize

	var dist [9]float64
	for j := 0; j < g.height; j++ {
		for i := 0; i < g.width; i++ {
			k := j*g.width + i
			s := &src[k]
			dst[k].Velocity = s.Velocity
			dst[k].Gravity = s.Gravity
			if s.Mass <= 0 {
				continue
			}

			sx := wrapCoord(float64(i)+0.5+s.Velocity.X*scale, w)
			sy := wrapCoord(float64(j)+0.5+s.Velocity.Y*scale, h)
			if math.IsNaN(sx) || math.IsNaN(sy) {
				g.deposit(&dst[k], s, s.Mass)
				continue
			}
			bx, by := math.Floor(sx), math.Floor(sy)

			maxDist, sum := 0.0, 0.0
			n := 0
			for dy := -1.0; dy <= 1; dy++ {
				for dx := -1.0; dx <= 1; dx++ {
					dd := math.Hypot(sx-(bx+dx+0.5), sy-(by+dy+0.5))
					dist[n] = dd
					sum += dd
					maxDist = math.Max(maxDist, dd)
					n++
				}
			}
			denom := 9*maxDist - sum

			n = 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					weight := 0.0
					if denom > 0 {
						weight = (maxDist - dist[n]) / denom
					} else if dx == 0 && dy == 0 {
						weight = 1
					}
					n++
					if weight <= 0 {
						continue
					}
					t := g.index(int(bx)+dx, int(by)+dy)
					g.deposit(&dst[t], s, weight*s.Mass)
				}
			}
		}
	}

	area := g.CellArea()
	for k := range dst {
		c := &dst[k]
		if c.Mass <= 0 {
			c.Mass = 0
			c.Temperature = DefaultTemperature
			c.Pressure = 0
		}
		c.Density = c.Mass / area
	}
}

// deposit adds dm of s into t. The first deposit into an empty cell adopts
// the source temperature and pressure; later ones blend by mass once the
// target holds more than BlendMassThreshold.
func (g *Grid) deposit(t, s *Cell, dm float64) {
	if dm <= 0 {
		return
	}
	prev := t.Mass
	next := prev + dm
	switch {
	case prev <= 0:
		t.Temperature = s.Temperature
		t.Pressure = s.Pressure
	case next > g.params.BlendMassThreshold:
		t.Temperature = (t.Temperature*prev + s.Temperature*dm) / next
		t.Pressure = (t.Pressure*prev + s.Pressure*dm) / next
	}
	t.Mass = next
}

// conserve rescales each advected cell by the ratio of neighborhood mass
// before and after advection, then renormalizes to the pre-advection total.
// Ratios are computed from the unmodified buffers first and applied
// afterwards.
func (g *Grid) conserve(ctx context.Context, before, after []Cell) error {
	r := g.params.ConservationRadius
	if lim := (min(g.width, g.height) - 1) / 2; r > lim {
		r = lim
	}
	ratios := make([]float64, len(after))

	err := g.pool.For(ctx, g.height, func(start, end int) error {
		for j := start; j < end; j++ {
			for i := 0; i < g.width; i++ {
				var sb, sa float64
				for dj := -r; dj <= r; dj++ {
					row := wrapIndex(j+dj, g.height) * g.width
					for di := -r; di <= r; di++ {
						n := row + wrapIndex(i+di, g.width)
						sb += before[n].Mass
						sa += after[n].Mass
					}
				}
				ratio := 1.0
				if sa > 0 {
					ratio = sb / sa
				}
				ratios[j*g.width+i] = ratio
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var totalBefore, totalAfter float64
	for k := range after {
		totalBefore += before[k].Mass
		totalAfter += after[k].Mass * ratios[k]
	}
	// local ratios overlap, so renormalize to keep the grid total fixed
	global := 1.0
	if totalAfter > 0 {
		global = totalBefore / totalAfter
	}

	area := g.CellArea()
	return g.pool.For(ctx, len(after), func(start, end int) error {
		for k := start; k < end; k++ {
			c := &after[k]
			c.Mass *= ratios[k] * global
			c.Density = c.Mass / area
		}
		return nil
	})
}

func wrapCoord(x, n float64) float64 {
	if x >= 0 && x < n {
		return x
	}
	x = math.Mod(x, n)
	if x < 0 {
		x += n
	}
	return x
}
