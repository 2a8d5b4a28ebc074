package nbody

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/geom"
	"github.com/san-kum/popsim/internal/parallel"
	"github.com/san-kum/popsim/internal/spatial"
)

// Params holds the physical constants of the mass simulator.
type Params struct {
	G                   float64
	CollisionMultiplier float64
	MinDistanceSq       float64
	GravityRadius       float64
	// MinIndexMass excludes lighter masses from the spatial index. They still
	// move and feel gravity but are invisible to other masses.
	MinIndexMass float64
	// GasCoupling adds mass * field acceleration to every body.
	GasCoupling        bool
	MaxCollisionPasses int
	NodeCapacity       int
}

func DefaultParams() Params {
	return Params{
		G:                   1.0,
		CollisionMultiplier: 2.0,
		MinDistanceSq:       1.0,
		GravityRadius:       50.0,
		GasCoupling:         true,
		MaxCollisionPasses:  64,
		NodeCapacity:        spatial.DefaultCapacity,
	}
}

func (p Params) Validate() error {
	switch {
	case !(p.G >= 0) || math.IsInf(p.G, 0):
		return fmt.Errorf("%w: G %v", ErrInvalidParams, p.G)
	case !(p.CollisionMultiplier >= 1):
		return fmt.Errorf("%w: collision multiplier %v must be >= 1", ErrInvalidParams, p.CollisionMultiplier)
	case !(p.MinDistanceSq > 0):
		return fmt.Errorf("%w: minimum distance squared %v must be positive", ErrInvalidParams, p.MinDistanceSq)
	case !(p.GravityRadius > 0):
		return fmt.Errorf("%w: gravity radius %v must be positive", ErrInvalidParams, p.GravityRadius)
	case p.MinIndexMass < 0:
		return fmt.Errorf("%w: minimum index mass %v", ErrInvalidParams, p.MinIndexMass)
	case p.MaxCollisionPasses <= 0:
		return fmt.Errorf("%w: collision pass limit %d", ErrInvalidParams, p.MaxCollisionPasses)
	}
	return nil
}

// AccelerationField samples an external acceleration at a position.
type AccelerationField interface {
	AccelerationAt(pos r2.Vec) r2.Vec
}

// Point is the immutable per-tick view of a mass stored in the spatial index.
type Point struct {
	Index  int
	ID     ID
	Pos    r2.Vec
	Mass   float64
	Radius float64
}

func (p Point) Coord2() r2.Vec { return p.Pos }

// StepStats reports what happened during one Step.
type StepStats struct {
	Merges          int
	CollisionPasses int
	Indexed         int
}

// Simulator advances a Set by one tick: index build, collision resolution,
// gravity, semi-implicit Euler integration and wrap.
type Simulator struct {
	params    Params
	domain    geom.Domain
	pool      *parallel.Pool
	logger    *slog.Logger
	index     *spatial.Index[Point]
	points    []Point
	maxRadius float64
}

type Option func(*Simulator)

func WithPool(p *parallel.Pool) Option { return func(s *Simulator) { s.pool = p } }

func WithLogger(l *slog.Logger) Option { return func(s *Simulator) { s.logger = l } }

// NewSimulator validates params and returns a simulator over domain.
func NewSimulator(d geom.Domain, p Params, opts ...Option) (*Simulator, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		params: p,
		domain: d,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.index = spatial.New[Point](d, p.NodeCapacity)
	return s, nil
}

func (s *Simulator) Params() Params { return s.params }

func (s *Simulator) Domain() geom.Domain { return s.domain }

// Index returns the index built by the last BuildIndex or Step. It is
// read-only until the next rebuild.
func (s *Simulator) Index() *spatial.Index[Point] { return s.index }

// BuildIndex rebuilds the spatial index from the live masses of set.
func (s *Simulator) BuildIndex(set *Set) {
	s.points = s.points[:0]
	s.maxRadius = 0
	for i := range set.Masses {
		m := &set.Masses[i]
		if m.Merged || m.Mass < s.params.MinIndexMass {
			continue
		}
		r := m.Radius()
		if r > s.maxRadius {
			s.maxRadius = r
		}
		s.points = append(s.points, Point{Index: i, ID: m.ID, Pos: m.Position, Mass: m.Mass, Radius: r})
	}
	s.index.Build(s.points)
}

// Step runs the full per-tick pipeline on set. field may be nil.
func (s *Simulator) Step(ctx context.Context, set *Set, field AccelerationField, dt float64) (StepStats, error) {
	s.BuildIndex(set)

	stats, err := s.ResolveCollisions(ctx, set)
	if err != nil {
		return stats, err
	}
	stats.Indexed = s.index.Len()

	if err := s.integrate(ctx, set, field, dt); err != nil {
		return stats, err
	}
	return stats, nil
}

type mergeEvent struct {
	absorber, absorbed     int
	absorberID, absorbedID ID
}

// ResolveCollisions merges overlapping masses until a pass finds nothing.
// The index must be current; it is rebuilt after every pass that merged.
func (s *Simulator) ResolveCollisions(ctx context.Context, set *Set) (StepStats, error) {
	var stats StepStats
	for {
		if stats.CollisionPasses >= s.params.MaxCollisionPasses {
			return stats, fmt.Errorf("%w after %d passes", ErrNoFixedPoint, stats.CollisionPasses)
		}
		stats.CollisionPasses++

		events, err := s.detect(ctx, set)
		if err != nil {
			return stats, err
		}
		merged := s.apply(set, events)
		stats.Merges += merged
		if merged == 0 {
			return stats, nil
		}
		s.logger.Debug("collision pass merged masses",
			slog.Int("pass", stats.CollisionPasses),
			slog.Int("merges", merged))
		s.BuildIndex(set)
	}
}

// detect finds overlapping pairs. Only the higher-ranked mass of a pair
// records it, naming the lower-ranked mass as absorber.
func (s *Simulator) detect(ctx context.Context, set *Set) ([]mergeEvent, error) {
	var (
		mu     sync.Mutex
		events []mergeEvent
	)
	maxR := s.maxRadius
	mult := s.params.CollisionMultiplier

	err := s.pool.For(ctx, len(set.Masses), func(start, end int) error {
		var (
			buf   []Point
			local []mergeEvent
		)
		for i := start; i < end; i++ {
			m := &set.Masses[i]
			if m.Merged {
				continue
			}
			r := m.Radius()
			buf = s.index.QueryInto(buf[:0], m.Position, math.Max(r*mult, r+maxR))
			for _, c := range buf {
				if c.ID >= m.ID {
					continue
				}
				sum := r + c.Radius
				if s.domain.WrappedDistSq(m.Position, c.Pos) < sum*sum {
					local = append(local, mergeEvent{
						absorber: c.Index, absorbed: i,
						absorberID: c.ID, absorbedID: m.ID,
					})
				}
			}
		}
		if len(local) > 0 {
			mu.Lock()
			events = append(events, local...)
			mu.Unlock()
		}
		return nil
	})
	return events, err
}

// apply merges recorded pairs single-threaded in ID order so the outcome
// does not depend on detection order.
func (s *Simulator) apply(set *Set, events []mergeEvent) int {
	sort.Slice(events, func(i, j int) bool {
		if events[i].absorberID != events[j].absorberID {
			return events[i].absorberID < events[j].absorberID
		}
		return events[i].absorbedID < events[j].absorbedID
	})

	merged := 0
	for _, ev := range events {
		a := &set.Masses[ev.absorber]
		b := &set.Masses[ev.absorbed]
		if a.Merged || b.Merged {
			continue
		}
		*a = Merge(s.domain, *a, *b)
		b.Merged = true
		merged++
	}
	return merged
}

func (s *Simulator) integrate(ctx context.Context, set *Set, field AccelerationField, dt float64) error {
	p := s.params
	return s.pool.For(ctx, len(set.Masses), func(start, end int) error {
		var buf []Point
		for i := start; i < end; i++ {
			m := &set.Masses[i]
			if m.Merged {
				continue
			}

			var force r2.Vec
			buf = s.index.QueryInto(buf[:0], m.Position, p.GravityRadius)
			for _, n := range buf {
				if n.Index == i {
					continue
				}
				dir := s.domain.WrappedDelta(n.Pos, m.Position)
				d2 := r2.Norm2(dir)
				if d2 == 0 {
					continue
				}
				dist := math.Sqrt(d2)
				if d2 < p.MinDistanceSq {
					d2 = p.MinDistanceSq
				}
				mag := p.G * m.Mass * n.Mass / d2
				force = r2.Add(force, r2.Scale(mag/dist, dir))
			}
			if p.GasCoupling && field != nil {
				force = r2.Add(force, r2.Scale(m.Mass, field.AccelerationAt(m.Position)))
			}
			m.Force = force

			m.Velocity = r2.Add(m.Velocity, r2.Scale(dt/m.Mass, m.Force))
			m.Position = s.domain.Wrap(r2.Add(m.Position, r2.Scale(dt, m.Velocity)))
			m.Force = r2.Vec{}
		}
		return nil
	})
}
