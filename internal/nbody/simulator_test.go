package nbody

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/parallel"
)

type constantField r2.Vec

func (f constantField) AccelerationAt(r2.Vec) r2.Vec { return r2.Vec(f) }

func newSim(t *testing.T, p Params) *Simulator {
	t.Helper()
	s, err := NewSimulator(testDomain(t), p, WithPool(&parallel.Pool{Workers: 4, MinChunk: 1}))
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	return s
}

func mustAdd(t *testing.T, s *Set, m Mass) ID {
	t.Helper()
	id, err := s.Add(m)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return id
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"negative G", func(p *Params) { p.G = -1 }},
		{"multiplier below one", func(p *Params) { p.CollisionMultiplier = 0.5 }},
		{"zero min distance", func(p *Params) { p.MinDistanceSq = 0 }},
		{"zero gravity radius", func(p *Params) { p.GravityRadius = 0 }},
		{"negative index mass", func(p *Params) { p.MinIndexMass = -1 }},
		{"no collision passes", func(p *Params) { p.MaxCollisionPasses = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			if _, err := NewSimulator(testDomain(t), p); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("expected ErrInvalidParams, got %v", err)
			}
		})
	}
}

func TestStackedMassesLeaveOneSurvivor(t *testing.T) {
	const n = 10
	s := NewSet()
	for i := 0; i < n; i++ {
		mustAdd(t, s, Mass{Position: r2.Vec{X: 3, Y: -7}, Mass: 1, Density: 1})
	}

	sim := newSim(t, DefaultParams())
	stats, err := sim.Step(context.Background(), s, nil, 0)
	if err != nil {
		t.Fatalf("step: %v", err)
	}

	if stats.Merges != n-1 {
		t.Errorf("expected %d merges, got %d", n-1, stats.Merges)
	}
	if s.LiveCount() != 1 {
		t.Fatalf("expected 1 live mass, got %d", s.LiveCount())
	}
	live := s.Live()[0]
	if live.ID != 1 {
		t.Errorf("expected id 1 to survive, got %d", live.ID)
	}
	if math.Abs(live.Mass-n) > 1e-9 {
		t.Errorf("expected mass %d, got %f", n, live.Mass)
	}
}

func TestCollisionChainReachesFixedPoint(t *testing.T) {
	// a and b overlap; the merged body then reaches c
	density := 1 / math.Pi
	s := NewSet()
	mustAdd(t, s, Mass{Position: r2.Vec{}, Mass: 9, Density: density})
	mustAdd(t, s, Mass{Position: r2.Vec{X: 5.5}, Mass: 7, Density: density})
	mustAdd(t, s, Mass{Position: r2.Vec{Y: 4.2}, Mass: 1, Density: density})

	sim := newSim(t, DefaultParams())
	sim.BuildIndex(s)
	stats, err := sim.ResolveCollisions(context.Background(), s)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if stats.Merges != 2 || stats.CollisionPasses != 3 {
		t.Errorf("expected 2 merges in 3 passes, got %+v", stats)
	}
	if s.LiveCount() != 1 || math.Abs(s.TotalMass()-17) > 1e-9 {
		t.Errorf("expected a single body of mass 17, got %d bodies of %f", s.LiveCount(), s.TotalMass())
	}
}

func TestCollisionPassLimit(t *testing.T) {
	density := 1 / math.Pi
	s := NewSet()
	mustAdd(t, s, Mass{Position: r2.Vec{}, Mass: 9, Density: density})
	mustAdd(t, s, Mass{Position: r2.Vec{X: 5.5}, Mass: 7, Density: density})

	p := DefaultParams()
	p.MaxCollisionPasses = 1
	sim := newSim(t, p)

	_, err := sim.Step(context.Background(), s, nil, 0.1)
	if !errors.Is(err, ErrNoFixedPoint) {
		t.Errorf("expected ErrNoFixedPoint, got %v", err)
	}
}

func TestMergeAcrossWrapDuringStep(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Mass{Position: r2.Vec{X: 49.8}, Mass: 1, Density: 1})
	mustAdd(t, s, Mass{Position: r2.Vec{X: -49.8}, Mass: 1, Density: 1})

	sim := newSim(t, DefaultParams())
	if _, err := sim.Step(context.Background(), s, nil, 0); err != nil {
		t.Fatalf("step: %v", err)
	}

	if s.LiveCount() != 1 {
		t.Fatalf("expected bodies across the seam to merge, %d live", s.LiveCount())
	}
	m := s.Live()[0]
	if math.Abs(m.Density-1) > 1e-9 {
		t.Errorf("equal-density merge changed density to %f", m.Density)
	}
	if math.Abs(math.Abs(m.Position.X)-50) > 1e-9 {
		t.Errorf("expected merged body on the seam, got %v", m.Position)
	}
}

func TestGravityConservesMomentum(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Mass{Position: r2.Vec{X: -5}, Mass: 2, Density: 1})
	mustAdd(t, s, Mass{Position: r2.Vec{X: 5}, Mass: 3, Density: 1})

	sim := newSim(t, DefaultParams())
	if _, err := sim.Step(context.Background(), s, nil, 0.1); err != nil {
		t.Fatalf("step: %v", err)
	}

	a, b := s.Masses[0], s.Masses[1]
	if math.Abs(a.Velocity.X-0.003) > 1e-12 {
		t.Errorf("expected first body vx 0.003, got %g", a.Velocity.X)
	}
	if math.Abs(b.Velocity.X+0.002) > 1e-12 {
		t.Errorf("expected second body vx -0.002, got %g", b.Velocity.X)
	}
	p := s.Momentum()
	if math.Abs(p.X) > 1e-12 || math.Abs(p.Y) > 1e-12 {
		t.Errorf("expected zero net momentum, got %v", p)
	}
	if a.Force != (r2.Vec{}) {
		t.Errorf("force accumulator not reset: %v", a.Force)
	}
}

func TestGravityUsesWrappedDirection(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Mass{Position: r2.Vec{X: -48}, Mass: 2, Density: 1})
	mustAdd(t, s, Mass{Position: r2.Vec{X: 48}, Mass: 3, Density: 1})

	sim := newSim(t, DefaultParams())
	if _, err := sim.Step(context.Background(), s, nil, 1); err != nil {
		t.Fatalf("step: %v", err)
	}

	// separation across the seam is 4, so the left body is pulled further left
	want := -(1.0 * 3 / 16)
	if got := s.Masses[0].Velocity.X; math.Abs(got-want) > 1e-12 {
		t.Errorf("expected vx %g, got %g", want, got)
	}
}

func TestGravityDistanceFloor(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Mass{Position: r2.Vec{}, Mass: 1, Density: 1000})
	mustAdd(t, s, Mass{Position: r2.Vec{X: 0.5}, Mass: 1, Density: 1000})

	sim := newSim(t, DefaultParams())
	if _, err := sim.Step(context.Background(), s, nil, 0.1); err != nil {
		t.Fatalf("step: %v", err)
	}

	if got := s.Masses[0].Velocity.X; math.Abs(got-0.1) > 1e-12 {
		t.Errorf("expected floored force to give vx 0.1, got %g", got)
	}
}

func TestIntegrationWrapsPosition(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Mass{Position: r2.Vec{X: 49.9}, Velocity: r2.Vec{X: 1}, Mass: 1, Density: 1})

	sim := newSim(t, DefaultParams())
	if _, err := sim.Step(context.Background(), s, nil, 1); err != nil {
		t.Fatalf("step: %v", err)
	}

	if got := s.Masses[0].Position.X; math.Abs(got+49.1) > 1e-9 {
		t.Errorf("expected wrapped x -49.1, got %g", got)
	}
}

func TestGasCouplingToggle(t *testing.T) {
	for _, coupled := range []bool{true, false} {
		s := NewSet()
		mustAdd(t, s, Mass{Mass: 3, Density: 1})

		p := DefaultParams()
		p.GasCoupling = coupled
		sim := newSim(t, p)
		if _, err := sim.Step(context.Background(), s, constantField{Y: -2}, 0.5); err != nil {
			t.Fatalf("step: %v", err)
		}

		want := 0.0
		if coupled {
			want = -1
		}
		if got := s.Masses[0].Velocity.Y; math.Abs(got-want) > 1e-12 {
			t.Errorf("coupled=%v: expected vy %g, got %g", coupled, want, got)
		}
	}
}

func TestLightMassesAreNotIndexed(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Mass{Position: r2.Vec{X: -5}, Mass: 2, Density: 1})
	mustAdd(t, s, Mass{Position: r2.Vec{X: 5}, Mass: 0.5, Density: 1})

	p := DefaultParams()
	p.MinIndexMass = 1
	sim := newSim(t, p)
	stats, err := sim.Step(context.Background(), s, nil, 0.1)
	if err != nil {
		t.Fatalf("step: %v", err)
	}

	if stats.Indexed != 1 {
		t.Errorf("expected 1 indexed body, got %d", stats.Indexed)
	}
	if s.Masses[0].Velocity != (r2.Vec{}) {
		t.Errorf("heavy body felt an unindexed neighbor: %v", s.Masses[0].Velocity)
	}
	if s.Masses[1].Velocity.X >= 0 {
		t.Errorf("light body should fall toward the heavy one, got %v", s.Masses[1].Velocity)
	}
}
