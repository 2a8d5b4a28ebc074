package spatial

import "gonum.org/v1/gonum/spatial/r2"

// maxDepth stops subdivision so that coincident points cannot recurse until
// the node bounds collapse to zero width.
const maxDepth = 32

type bounds struct {
	min, max r2.Vec
}

func (b bounds) contains(p r2.Vec) bool {
	return p.X >= b.min.X && p.X < b.max.X && p.Y >= b.min.Y && p.Y < b.max.Y
}

// intersectsCircle tests the circle against the box using the closest point
// of the box to the center.
func (b bounds) intersectsCircle(c r2.Vec, radius float64) bool {
	cx := clamp(c.X, b.min.X, b.max.X)
	cy := clamp(c.Y, b.min.Y, b.max.Y)
	dx, dy := c.X-cx, c.Y-cy
	return dx*dx+dy*dy <= radius*radius
}

type entry[T Item] struct {
	item T
	pos  r2.Vec
}

type node[T Item] struct {
	b        bounds
	depth    int
	entries  []entry[T]
	children *[4]node[T]
}

func (n *node[T]) insert(item T, pos r2.Vec, capacity int) bool {
	if !n.b.contains(pos) {
		return false
	}
	if len(n.entries) < capacity || n.depth >= maxDepth {
		n.entries = append(n.entries, entry[T]{item: item, pos: pos})
		return true
	}
	if n.children == nil {
		n.subdivide()
	}
	for i := range n.children {
		if n.children[i].insert(item, pos, capacity) {
			return true
		}
	}
	// unreachable for positions inside n.b; kept so nothing is silently lost
	n.entries = append(n.entries, entry[T]{item: item, pos: pos})
	return true
}

func (n *node[T]) subdivide() {
	mid := r2.Scale(0.5, r2.Add(n.b.min, n.b.max))
	lo, hi := n.b.min, n.b.max
	d := n.depth + 1
	n.children = &[4]node[T]{
		{b: bounds{min: lo, max: mid}, depth: d},
		{b: bounds{min: r2.Vec{X: mid.X, Y: lo.Y}, max: r2.Vec{X: hi.X, Y: mid.Y}}, depth: d},
		{b: bounds{min: r2.Vec{X: lo.X, Y: mid.Y}, max: r2.Vec{X: mid.X, Y: hi.Y}}, depth: d},
		{b: bounds{min: mid, max: hi}, depth: d},
	}
}

func (n *node[T]) query(c r2.Vec, radius float64, dst []T) []T {
	if !n.b.intersectsCircle(c, radius) {
		return dst
	}
	r2sq := radius * radius
	for _, e := range n.entries {
		dx, dy := e.pos.X-c.X, e.pos.Y-c.Y
		if dx*dx+dy*dy <= r2sq {
			dst = append(dst, e.item)
		}
	}
	if n.children != nil {
		for i := range n.children {
			dst = n.children[i].query(c, radius, dst)
		}
	}
	return dst
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
