package nbody

import "errors"

var (
	// ErrInvalidMass indicates a non-positive or non-finite mass or density.
	ErrInvalidMass = errors.New("nbody: invalid mass")

	// ErrInvalidParams indicates a simulator parameter outside its valid range.
	ErrInvalidParams = errors.New("nbody: invalid parameters")

	// ErrUnknownMass indicates an ID that is not present or already merged.
	ErrUnknownMass = errors.New("nbody: unknown mass")

	// ErrNoFixedPoint indicates collision resolution kept merging past the pass limit.
	ErrNoFixedPoint = errors.New("nbody: collision resolution did not converge")
)
