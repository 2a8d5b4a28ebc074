package gas

import "errors"

var (
	// ErrInvalidGrid indicates non-positive dimensions, cell size or a bad origin.
	ErrInvalidGrid = errors.New("gas: invalid grid")

	// ErrInvalidParams indicates a physical constant outside its valid range.
	ErrInvalidParams = errors.New("gas: invalid parameters")

	// ErrInvalidCell indicates a cell with negative or non-finite contents.
	ErrInvalidCell = errors.New("gas: invalid cell")

	// ErrEmptyCell indicates an operation that needs mass on an empty cell.
	ErrEmptyCell = errors.New("gas: cell has no mass")

	// ErrInsufficientMass indicates a removal larger than the cell holds.
	ErrInsufficientMass = errors.New("gas: insufficient cell mass")
)
