package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/popsim/internal/sim"
	"github.com/san-kum/popsim/internal/universe"
)

// Stability is the fraction of ticks in which no gas cell moved faster than
// the threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(st universe.TickStats) {
	s.samples++
	if st.Gas.MaxSpeed > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Sampled records one float per tick and reports the mean.
type Sampled struct {
	name    string
	field   func(universe.TickStats) float64
	samples []float64
}

// NewClumping tracks how unevenly gas is spread over the cells.
func NewClumping() *Sampled {
	return &Sampled{name: "gas_clumping", field: func(s universe.TickStats) float64 { return s.Gas.MassStdDev }}
}

func NewTickTime() *Sampled {
	return &Sampled{name: "tick_ms", field: func(s universe.TickStats) float64 {
		return float64(s.Duration.Microseconds()) / 1000
	}}
}

func NewMeanTemperature() *Sampled {
	return &Sampled{name: "gas_temperature", field: func(s universe.TickStats) float64 { return s.Gas.MeanTemperature }}
}

func (s *Sampled) Name() string                  { return s.name }
func (s *Sampled) Observe(st universe.TickStats) { s.samples = append(s.samples, s.field(st)) }
func (s *Sampled) Reset()                        { s.samples = s.samples[:0] }

func (s *Sampled) Value() float64 {
	if len(s.samples) == 0 {
		return 0
	}
	return stat.Mean(s.samples, nil)
}

// Default returns a fresh instance of every metric.
func Default() []sim.Metric {
	return []sim.Metric{
		NewMassDrift(),
		NewMomentumDrift(),
		NewPopulation(),
		NewMergeCount(),
		NewCollapseCount(),
		NewCollisionLoad(),
		NewStability(DefaultSpeedLimit),
		NewClumping(),
		NewMeanTemperature(),
		NewTickTime(),
	}
}

// DefaultSpeedLimit is the gas speed Default's Stability tolerates.
const DefaultSpeedLimit = 50.0
