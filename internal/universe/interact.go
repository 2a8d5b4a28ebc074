package universe

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/popsim/internal/gas"
	"github.com/san-kum/popsim/internal/nbody"
)

// ApplyImpulse pushes body id by impulse and the gas cell under it by the
// opposite impulse, so total momentum is unchanged. Nothing is modified if
// the body is unknown or its cell is empty.
func (u *Universe) ApplyImpulse(id nbody.ID, impulse r2.Vec) error {
	if !finite(impulse.X) || !finite(impulse.Y) {
		return fmt.Errorf("%w: impulse %v", ErrInvalidInteraction, impulse)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	idx, err := u.bodies.Find(id)
	if err != nil {
		return err
	}
	m := &u.bodies.Masses[idx]
	i, j := u.grid.IndexOf(m.Position)
	if err := u.grid.ApplyImpulse(i, j, r2.Scale(-1, impulse)); err != nil {
		return err
	}
	m.Velocity = r2.Add(m.Velocity, r2.Scale(1/m.Mass, impulse))

	u.logger.Debug("impulse applied",
		slog.Uint64("body", uint64(id)),
		slog.Int("cell_i", i),
		slog.Int("cell_j", j))
	return nil
}

// TransferMass moves mass between body id and the gas cell under it.
// A positive amount absorbs gas into the body, a negative amount releases
// body mass into the cell. Momentum is conserved in both directions.
func (u *Universe) TransferMass(id nbody.ID, amount float64) error {
	if !finite(amount) {
		return fmt.Errorf("%w: amount %v", ErrInvalidInteraction, amount)
	}
	lim := u.cfg.Interaction
	if lim.MaxTransfer > 0 && math.Abs(amount) > lim.MaxTransfer {
		return fmt.Errorf("%w: |%v| exceeds %v", ErrTransferBounds, amount, lim.MaxTransfer)
	}
	if amount == 0 {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	idx, err := u.bodies.Find(id)
	if err != nil {
		return err
	}
	m := &u.bodies.Masses[idx]
	i, j := u.grid.IndexOf(m.Position)

	if amount > 0 {
		cell := u.grid.Cell(i, j)
		if cell.Mass < amount {
			return fmt.Errorf("%w: cell holds %v, asked %v: %w", ErrTransferBounds, cell.Mass, amount, gas.ErrInsufficientMass)
		}
		if err := u.grid.AddMass(i, j, -amount, r2.Vec{}); err != nil {
			return err
		}
		total := m.Mass + amount
		m.Velocity = r2.Scale(1/total, r2.Add(m.Momentum(), r2.Scale(amount, cell.Velocity)))
		m.Mass = total
		return nil
	}

	release := -amount
	if rest := m.Mass - release; rest <= 0 || rest < lim.MinBodyMass {
		return fmt.Errorf("%w: body %d would drop to %v", ErrTransferBounds, id, rest)
	}
	if err := u.grid.AddMass(i, j, release, m.Velocity); err != nil {
		return err
	}
	m.Mass -= release
	return nil
}

// AddMass inserts a new body and returns its ID.
func (u *Universe) AddMass(m nbody.Mass) (nbody.ID, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	m.Position = u.domain.Wrap(m.Position)
	return u.bodies.Add(m)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
