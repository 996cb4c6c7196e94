package engine

import "errors"

// Predefined errors
var (
	// ErrUnsupportedEngine is returned when an unknown engine name is requested
	ErrUnsupportedEngine = errors.New("datalab engine: unsupported engine")

	// ErrClosed is returned when the engine handle has been closed
	ErrClosed = errors.New("datalab engine: engine is closed")

	// ErrTxDone is returned when a finished transaction is used again
	ErrTxDone = errors.New("datalab engine: transaction already committed or rolled back")
)
