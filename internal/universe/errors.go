package universe

import (
	"errors"
	"fmt"
)

var (
	// ErrDomainMismatch indicates a gas grid that does not cover the body domain.
	ErrDomainMismatch = errors.New("universe: grid and body domains differ")

	// ErrInvalidConfig indicates interaction or collapse settings out of range.
	ErrInvalidConfig = errors.New("universe: invalid configuration")

	// ErrInvalidInteraction indicates a non-finite impulse or transfer amount.
	ErrInvalidInteraction = errors.New("universe: invalid interaction")

	// ErrTransferBounds indicates a mass transfer beyond the configured limits.
	ErrTransferBounds = errors.New("universe: transfer out of bounds")
)

// TickError carries the tick and phase in which a step failed. The universe
// state after a TickError is not meaningful and the run should stop.
type TickError struct {
	Tick  int
	Phase string
	Err   error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d: %s: %v", e.Tick, e.Phase, e.Err)
}

func (e *TickError) Unwrap() error {
	return e.Err
}
