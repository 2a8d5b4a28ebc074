package sim

import (
	"errors"

	"github.com/san-kum/popsim/internal/universe"
)

var (
	ErrInvalidRun = errors.New("sim: invalid run configuration")
	ErrNoFactory  = errors.New("sim: ensemble has no world factory")
)

// World is the part of a universe the run loop drives.
type World interface {
	Step(dt float64) (universe.TickStats, error)
	TotalMass() float64
}

type Metric interface {
	Name() string
	Observe(s universe.TickStats)
	Value() float64
	Reset()
}

type Observer interface {
	OnTick(s universe.TickStats)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(s universe.TickStats)

func (f ObserverFunc) OnTick(s universe.TickStats) { f(s) }

type Config struct {
	Dt    float64
	Ticks int
	Seed  int64
}

type Result struct {
	Seed        int64
	Stats       []universe.TickStats
	Metrics     map[string]float64
	TicksTaken  int
	InitialMass float64
	FinalMass   float64
	MassDrift   float64
	Interrupted bool
}

// Last returns the stats of the final completed tick.
func (r *Result) Last() (universe.TickStats, bool) {
	if r == nil || len(r.Stats) == 0 {
		return universe.TickStats{}, false
	}
	return r.Stats[len(r.Stats)-1], true
}

// Series extracts one value per tick.
func (r *Result) Series(f func(universe.TickStats) float64) []float64 {
	out := make([]float64, len(r.Stats))
	for i, s := range r.Stats {
		out[i] = f(s)
	}
	return out
}
