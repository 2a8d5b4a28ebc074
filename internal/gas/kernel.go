package gas

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// kernel is the precomputed unit-mass gravity stencil. at(di, dj) is the
// acceleration a cell feels from a unit mass di columns and dj rows away.
type kernel struct {
	radius  int
	size    int
	weights []r2.Vec
}

// newKernel builds a square stencil of radius ceil(reach/cellSize), clamped
// so that a wrapped stencil never visits the same cell twice.
func newKernel(g, reach, cellSize float64, width, height int) kernel {
	r := int(math.Ceil(reach / cellSize))
	if lim := (min(width, height) - 1) / 2; r > lim {
		r = lim
	}
	if r < 0 {
		r = 0
	}

	k := kernel{radius: r, size: 2*r + 1}
	k.weights = make([]r2.Vec, k.size*k.size)
	for dj := -r; dj <= r; dj++ {
		for di := -r; di <= r; di++ {
			if di == 0 && dj == 0 {
				continue
			}
			disp := r2.Vec{X: float64(di) * cellSize, Y: float64(dj) * cellSize}
			d2 := r2.Norm2(disp)
			k.weights[k.offset(di, dj)] = r2.Scale(g/(d2*math.Sqrt(d2)), disp)
		}
	}
	return k
}

func (k kernel) offset(di, dj int) int {
	return (dj+k.radius)*k.size + di + k.radius
}

func (k kernel) at(di, dj int) r2.Vec {
	return k.weights[k.offset(di, dj)]
}
