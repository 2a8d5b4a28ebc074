package nbody

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Set is the arena holding every mass. Masses are addressed by slice index
// during a tick and by ID across ticks; tombstoned entries are only removed
// by Compact, which must not run mid-tick.
type Set struct {
	Masses []Mass
	nextID ID
}

// NewSet returns an empty arena whose first ID is 1.
func NewSet() *Set {
	return &Set{nextID: 1}
}

// Add validates m, assigns it a fresh ID and appends it. The assigned ID is
// returned; any ID already set on m is ignored.
func (s *Set) Add(m Mass) (ID, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if s.nextID == 0 {
		s.nextID = 1
	}
	m.ID = s.nextID
	m.Merged = false
	m.Force = r2.Vec{}
	s.nextID++
	s.Masses = append(s.Masses, m)
	return m.ID, nil
}

// Len returns the arena length including tombstones.
func (s *Set) Len() int { return len(s.Masses) }

// LiveCount returns the number of non-merged masses.
func (s *Set) LiveCount() int {
	n := 0
	for i := range s.Masses {
		if !s.Masses[i].Merged {
			n++
		}
	}
	return n
}

// Live returns copies of the non-merged masses in arena order.
func (s *Set) Live() []Mass {
	out := make([]Mass, 0, len(s.Masses))
	for i := range s.Masses {
		if !s.Masses[i].Merged {
			out = append(out, s.Masses[i])
		}
	}
	return out
}

// Find returns the arena index of a live mass with the given ID.
func (s *Set) Find(id ID) (int, error) {
	for i := range s.Masses {
		if s.Masses[i].ID == id {
			if s.Masses[i].Merged {
				return -1, fmt.Errorf("%w: %d was merged", ErrUnknownMass, id)
			}
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %d", ErrUnknownMass, id)
}

// Compact drops tombstoned masses, preserving the order of the survivors.
// It returns the number removed.
func (s *Set) Compact() int {
	kept := s.Masses[:0]
	for _, m := range s.Masses {
		if !m.Merged {
			kept = append(kept, m)
		}
	}
	removed := len(s.Masses) - len(kept)
	// clear the tail so dropped handles can be collected
	for i := len(kept); i < len(s.Masses); i++ {
		s.Masses[i] = Mass{}
	}
	s.Masses = kept
	return removed
}

// TotalMass sums the mass of live bodies.
func (s *Set) TotalMass() float64 {
	total := 0.0
	for i := range s.Masses {
		if !s.Masses[i].Merged {
			total += s.Masses[i].Mass
		}
	}
	return total
}

// Momentum sums the linear momentum of live bodies.
func (s *Set) Momentum() r2.Vec {
	var p r2.Vec
	for i := range s.Masses {
		if !s.Masses[i].Merged {
			p = r2.Add(p, s.Masses[i].Momentum())
		}
	}
	return p
}
