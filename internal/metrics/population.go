package metrics

import "github.com/san-kum/popsim/internal/universe"

// Population reports the live body count after the last observed tick.
type Population struct {
	name  string
	count int
}

func NewPopulation() *Population {
	return &Population{name: "bodies"}
}

func (p *Population) Name() string                 { return p.name }
func (p *Population) Observe(s universe.TickStats) { p.count = s.Bodies }
func (p *Population) Value() float64               { return float64(p.count) }
func (p *Population) Reset()                       { p.count = 0 }

// Counter sums an integer field of every tick.
type Counter struct {
	name  string
	field func(universe.TickStats) int
	total int
}

func NewMergeCount() *Counter {
	return &Counter{name: "merges", field: func(s universe.TickStats) int { return s.Merges }}
}

func NewCollapseCount() *Counter {
	return &Counter{name: "collapsed", field: func(s universe.TickStats) int { return s.Collapsed }}
}

func (c *Counter) Name() string                 { return c.name }
func (c *Counter) Observe(s universe.TickStats) { c.total += c.field(s) }
func (c *Counter) Value() float64               { return float64(c.total) }
func (c *Counter) Reset()                       { c.total = 0 }

// CollisionLoad is the mean number of collision passes a tick needed.
type CollisionLoad struct {
	name    string
	passes  int
	samples int
}

func NewCollisionLoad() *CollisionLoad {
	return &CollisionLoad{name: "collision_passes"}
}

func (c *CollisionLoad) Name() string { return c.name }

func (c *CollisionLoad) Observe(s universe.TickStats) {
	c.passes += s.CollisionPasses
	c.samples++
}

func (c *CollisionLoad) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.passes) / float64(c.samples)
}

func (c *CollisionLoad) Reset() {
	c.passes = 0
	c.samples = 0
}
