package resizer

import "github.com/pkg/errors"

// Configuration errors returned synchronously by the public entry points.
var (
	// ErrNoWireRC is returned when the per-length wire resistance and
	// capacitance have not been supplied.
	ErrNoWireRC = errors.New("wire RC per length not set")

	// ErrNoBufferCell is returned when a repair pass is requested without
	// a buffer cell.
	ErrNoBufferCell = errors.New("no buffer cell supplied")

	// ErrNoCorner is returned when no analysis corner is supplied.
	ErrNoCorner = errors.New("no analysis corner supplied")

	// ErrUnplaced is returned when a per-net operation is requested on a
	// net with unplaced pins or no routing tree.
	ErrUnplaced = errors.New("net has unplaced pins")
)
