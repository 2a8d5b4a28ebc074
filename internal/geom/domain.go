// Package geom provides toroidal geometry over a rectangular periodic domain.
//
// A [Domain] identifies its opposite edges, so every separation is measured
// along the shortest path that honors the wrap:
//
//	d, _ := geom.NewDomain(r2.Vec{X: -50, Y: -50}, r2.Vec{X: 100, Y: 100})
//	delta := d.WrappedDelta(p, q) // shortest signed p - q per axis
//	p = d.Wrap(p)                 // back into [Min, Min+Size)
package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrDegenerateDomain indicates a domain with a non-positive or non-finite extent.
var ErrDegenerateDomain = errors.New("geom: degenerate domain")

// Domain is an axis-aligned rectangle with periodic boundaries.
type Domain struct {
	Min  r2.Vec
	Size r2.Vec
}

// NewDomain validates and returns a domain anchored at min with the given extent.
func NewDomain(min, size r2.Vec) (Domain, error) {
	d := Domain{Min: min, Size: size}
	if err := d.Validate(); err != nil {
		return Domain{}, err
	}
	return d, nil
}

// Centered returns a domain of the given extent centered on the origin.
func Centered(size r2.Vec) (Domain, error) {
	return NewDomain(r2.Scale(-0.5, size), size)
}

func (d Domain) Validate() error {
	if !finite(d.Min.X) || !finite(d.Min.Y) {
		return fmt.Errorf("%w: origin %v is not finite", ErrDegenerateDomain, d.Min)
	}
	if !finite(d.Size.X) || !finite(d.Size.Y) || d.Size.X <= 0 || d.Size.Y <= 0 {
		return fmt.Errorf("%w: size %v", ErrDegenerateDomain, d.Size)
	}
	return nil
}

// Max returns the exclusive upper corner.
func (d Domain) Max() r2.Vec { return r2.Add(d.Min, d.Size) }

// Center returns the middle of the domain.
func (d Domain) Center() r2.Vec { return r2.Add(d.Min, r2.Scale(0.5, d.Size)) }

// Area returns the domain area.
func (d Domain) Area() float64 { return d.Size.X * d.Size.Y }

// Contains reports whether p lies in [Min, Min+Size) on both axes.
func (d Domain) Contains(p r2.Vec) bool {
	return p.X >= d.Min.X && p.X < d.Min.X+d.Size.X &&
		p.Y >= d.Min.Y && p.Y < d.Min.Y+d.Size.Y
}

// WrappedDelta returns p - q adjusted per axis so that each component is the
// shortest signed separation on a periodic line. Axes are handled
// independently.
func (d Domain) WrappedDelta(p, q r2.Vec) r2.Vec {
	return r2.Vec{
		X: wrapDiff(p.X-q.X, d.Size.X),
		Y: wrapDiff(p.Y-q.Y, d.Size.Y),
	}
}

// WrappedDistSq returns the squared length of WrappedDelta(p, q).
func (d Domain) WrappedDistSq(p, q r2.Vec) float64 {
	delta := d.WrappedDelta(p, q)
	return delta.X*delta.X + delta.Y*delta.Y
}

// Wrap maps p into [Min, Min+Size). Points already inside are returned
// unchanged, so Wrap(Wrap(p)) == Wrap(p). Non-finite components are
// returned as-is.
func (d Domain) Wrap(p r2.Vec) r2.Vec {
	return r2.Vec{
		X: wrapAxis(p.X, d.Min.X, d.Size.X),
		Y: wrapAxis(p.Y, d.Min.Y, d.Size.Y),
	}
}

func wrapDiff(dx, extent float64) float64 {
	if math.Abs(dx) > extent {
		dx = math.Mod(dx, extent)
	}
	half := extent / 2
	if dx > half {
		dx -= extent
	} else if dx < -half {
		dx += extent
	}
	return dx
}

// bounceLimit bounds the add/subtract loop before falling back to math.Mod.
const bounceLimit = 4

func wrapAxis(x, lo, extent float64) float64 {
	if !finite(x) {
		return x
	}
	hi := lo + extent
	if x >= lo && x < hi {
		return x
	}
	for i := 0; i < bounceLimit; i++ {
		if x < lo {
			x += extent
		} else if x >= hi {
			x -= extent
		} else {
			return x
		}
	}
	if x >= lo && x < hi {
		return x
	}
	r := math.Mod(x-lo, extent)
	if r < 0 {
		r += extent
	}
	x = lo + r
	// rounding in lo+r can land exactly on the upper edge
	if x >= hi || x < lo {
		x = lo
	}
	return x
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
