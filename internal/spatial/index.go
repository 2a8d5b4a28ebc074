// Package spatial provides a rebuildable quadtree index over point-located
// items with radius queries that honor periodic wrap.
//
// The index is disposable: it is rebuilt from scratch every tick and is
// read-only once built, so any number of goroutines may query it
// concurrently.
package spatial

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/geom"
)

// DefaultCapacity is the number of items a node holds before it subdivides.
const DefaultCapacity = 4

// Item is a point-located value. Two items are the same item when they
// compare equal, which is how mirrored query results are deduplicated.
type Item interface {
	comparable
	Coord2() r2.Vec
}

// Index is a region quadtree over a toroidal domain.
type Index[T Item] struct {
	domain   geom.Domain
	capacity int
	root     *node[T]
	size     int
}

// New returns an empty index over domain. capacity <= 0 selects DefaultCapacity.
func New[T Item](domain geom.Domain, capacity int) *Index[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	ix := &Index[T]{domain: domain, capacity: capacity}
	ix.reset()
	return ix
}

func (ix *Index[T]) reset() {
	ix.root = &node[T]{b: bounds{min: ix.domain.Min, max: ix.domain.Max()}}
	ix.size = 0
}

// Build discards the current tree and inserts items. Positions are wrapped
// into the domain before insertion.
func (ix *Index[T]) Build(items []T) {
	ix.reset()
	for _, it := range items {
		if ix.root.insert(it, ix.domain.Wrap(it.Coord2()), ix.capacity) {
			ix.size++
		}
	}
}

// Len returns the number of indexed items.
func (ix *Index[T]) Len() int { return ix.size }

// Domain returns the domain the index covers.
func (ix *Index[T]) Domain() geom.Domain { return ix.domain }

// Query returns every item whose distance to center, measured on the torus,
// is at most radius. The result has no duplicates.
func (ix *Index[T]) Query(center r2.Vec, radius float64) []T {
	return ix.QueryInto(nil, center, radius)
}

// QueryInto is Query appending into dst, so callers can reuse a scratch
// buffer across queries.
func (ix *Index[T]) QueryInto(dst []T, center r2.Vec, radius float64) []T {
	if radius < 0 || ix.size == 0 {
		return dst
	}
	base := len(dst)
	center = ix.domain.Wrap(center)
	dst = ix.root.query(center, radius, dst)

	lo, hi := ix.domain.Min, ix.domain.Max()
	w, h := ix.domain.Size.X, ix.domain.Size.Y
	left := center.X-radius < lo.X
	right := center.X+radius > hi.X
	below := center.Y-radius < lo.Y
	above := center.Y+radius > hi.Y
	if !left && !right && !below && !above {
		return dst
	}

	mirror := func(dx, dy float64) {
		dst = ix.root.query(r2.Vec{X: center.X + dx, Y: center.Y + dy}, radius, dst)
	}
	if left {
		mirror(w, 0)
	}
	if right {
		mirror(-w, 0)
	}
	if below {
		mirror(0, h)
	}
	if above {
		mirror(0, -h)
	}
	if left && below {
		mirror(w, h)
	}
	if right && below {
		mirror(-w, h)
	}
	if left && above {
		mirror(w, -h)
	}
	if right && above {
		mirror(-w, -h)
	}
	return dedupe(dst, base)
}

// dedupe removes repeated items from dst[base:] keeping first occurrences.
func dedupe[T Item](dst []T, base int) []T {
	tail := dst[base:]
	if len(tail) < 2 {
		return dst
	}
	seen := make(map[T]struct{}, len(tail))
	out := tail[:0]
	for _, it := range tail {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return dst[:base+len(out)]
}
