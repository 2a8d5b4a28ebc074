package sim

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/nbody"
	"github.com/san-kum/popsim/internal/universe"
)

// testWorld loses a fixed fraction of its mass every tick.
type testWorld struct {
	tick   int
	time   float64
	mass   float64
	leak   float64
	failAt int
	steps  atomic.Int32
	onStep func(tick int)
}

var errBoom = errors.New("boom")

func (w *testWorld) Step(dt float64) (universe.TickStats, error) {
	w.steps.Add(1)
	if w.failAt > 0 && w.tick+1 == w.failAt {
		return universe.TickStats{}, &universe.TickError{Tick: w.tick + 1, Phase: "gas", Err: errBoom}
	}
	w.tick++
	w.time += dt
	w.mass *= 1 - w.leak
	if w.onStep != nil {
		w.onStep(w.tick)
	}
	return universe.TickStats{Tick: w.tick, Time: w.time, TotalMass: w.mass, Bodies: w.tick}, nil
}

func (w *testWorld) TotalMass() float64 { return w.mass }

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(s universe.TickStats) {
	t.count++
	t.sum += float64(s.Bodies)
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorRun(t *testing.T) {
	w := &testWorld{mass: 100, leak: 0.01}
	s := New(w)

	result, err := s.Run(context.Background(), Config{Dt: 0.1, Ticks: 10})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Stats) != 10 || result.TicksTaken != 10 {
		t.Errorf("expected 10 ticks, got %d stats and %d taken", len(result.Stats), result.TicksTaken)
	}
	last, ok := result.Last()
	if !ok || last.Tick != 10 {
		t.Errorf("expected last tick 10, got %+v", last)
	}
	if math.Abs(last.Time-1.0) > 1e-12 {
		t.Errorf("expected time 1.0, got %v", last.Time)
	}

	want := 1 - math.Pow(0.99, 10)
	if math.Abs(result.MassDrift-want) > 1e-12 {
		t.Errorf("expected drift %v, got %v", want, result.MassDrift)
	}
	if result.InitialMass != 100 {
		t.Errorf("expected initial mass 100, got %v", result.InitialMass)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Ticks: 10}},
		{"negative dt", Config{Dt: -0.1, Ticks: 10}},
		{"nan dt", Config{Dt: math.NaN(), Ticks: 10}},
		{"infinite dt", Config{Dt: math.Inf(1), Ticks: 10}},
		{"negative ticks", Config{Dt: 0.1, Ticks: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&testWorld{mass: 1})
			if _, err := s.Run(context.Background(), tt.cfg); !errors.Is(err, ErrInvalidRun) {
				t.Errorf("expected ErrInvalidRun, got %v", err)
			}
		})
	}
}

func TestSimulatorMetricsAndObservers(t *testing.T) {
	s := New(&testWorld{mass: 1})

	metric := &testMetric{}
	s.AddMetric(metric)

	var seen []int
	s.AddObserver(ObserverFunc(func(st universe.TickStats) { seen = append(seen, st.Tick) }))

	result, err := s.Run(context.Background(), Config{Dt: 0.1, Ticks: 4})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if metric.count != 4 {
		t.Errorf("expected 4 observations, got %d", metric.count)
	}
	if got := result.Metrics["test"]; got != 2.5 {
		t.Errorf("expected metric 2.5, got %v", got)
	}
	if len(seen) != 4 || seen[3] != 4 {
		t.Errorf("observer saw %v", seen)
	}
}

func TestSimulatorStopsOnTickError(t *testing.T) {
	w := &testWorld{mass: 1, failAt: 3}
	s := New(w)

	result, err := s.Run(context.Background(), Config{Dt: 0.1, Ticks: 10})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped tick error, got %v", err)
	}
	var tickErr *universe.TickError
	if !errors.As(err, &tickErr) || tickErr.Tick != 3 {
		t.Errorf("expected tick 3 error, got %v", err)
	}
	if result.TicksTaken != 2 {
		t.Errorf("expected 2 completed ticks, got %d", result.TicksTaken)
	}
}

func TestSimulatorCancelsBetweenTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &testWorld{mass: 1}
	w.onStep = func(tick int) {
		if tick == 5 {
			cancel()
		}
	}
	s := New(w)

	result, err := s.Run(ctx, Config{Dt: 0.1, Ticks: 100})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !result.Interrupted || result.TicksTaken != 5 {
		t.Errorf("expected interrupted after 5 ticks, got %d (interrupted=%v)", result.TicksTaken, result.Interrupted)
	}
	if w.steps.Load() != 5 {
		t.Errorf("tick started after cancellation: %d steps", w.steps.Load())
	}
}

func TestRunWithCallback(t *testing.T) {
	s := New(&testWorld{mass: 1})

	n := 0
	err := s.RunWithCallback(context.Background(), 0.1, 0, func(st universe.TickStats) bool {
		n++
		return st.Tick < 7
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if n != 7 {
		t.Errorf("expected callback 7 times, got %d", n)
	}

	if err := s.RunWithCallback(context.Background(), 0, 1, func(universe.TickStats) bool { return true }); !errors.Is(err, ErrInvalidRun) {
		t.Errorf("expected ErrInvalidRun, got %v", err)
	}
}

func TestSimulatorDrivesUniverse(t *testing.T) {
	g, err := gas.NewGrid(r2.Vec{X: -40, Y: -40}, 16, 16, 5, gas.DefaultParams())
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if err := g.Fill(func(i, j int, _ r2.Vec) gas.Cell {
		return gas.Cell{Mass: 1 + 0.1*float64((i+j)%3), Temperature: 20}
	}); err != nil {
		t.Fatalf("fill: %v", err)
	}
	set := nbody.NewSet()
	for i := 0; i < 5; i++ {
		if _, err := set.Add(nbody.Mass{Position: r2.Vec{X: float64(i*12 - 24), Y: 3}, Mass: 2, Density: 1}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	u, err := universe.New(universe.Config{Bodies: nbody.DefaultParams()}, set, g)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}

	result, err := New(u).Run(context.Background(), Config{Dt: 0.05, Ticks: 5})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if u.Tick() != 5 || result.TicksTaken != 5 {
		t.Errorf("expected 5 ticks, got universe %d result %d", u.Tick(), result.TicksTaken)
	}
	if result.MassDrift > 1e-6 {
		t.Errorf("mass drift too large: %v", result.MassDrift)
	}
}
