package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/universe"
)

// MassDrift is the largest relative change of total (body plus gas) mass
// seen against the first observed tick.
type MassDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift() *MassDrift {
	return &MassDrift{name: "mass_drift"}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(s universe.TickStats) {
	if m.samples == 0 {
		m.initial = s.TotalMass
	}
	m.samples++

	if m.initial != 0 {
		drift := math.Abs(s.TotalMass-m.initial) / math.Abs(m.initial)
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// MomentumDrift is the largest change in combined momentum magnitude,
// relative to total mass so it reads as a velocity.
type MomentumDrift struct {
	name     string
	initial  r2.Vec
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(s universe.TickStats) {
	if m.samples == 0 {
		m.initial = s.Momentum
	}
	m.samples++

	if s.TotalMass > 0 {
		drift := r2.Norm(r2.Sub(s.Momentum, m.initial)) / s.TotalMass
		m.maxDrift = math.Max(m.maxDrift, drift)
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = r2.Vec{}
	m.maxDrift = 0
	m.samples = 0
}
