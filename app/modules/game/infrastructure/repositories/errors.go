package gamedb

import "errors"

// Sentinel errors for the repository layer. The service decides whether they
// are domain failures.
var (
	// ErrNotFound indicates the requested game does not exist.
	ErrNotFound = errors.New("game not found")

	// ErrNoRowsAffected indicates an UPDATE matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")

	// ErrFrameConflict indicates a frame already exists at that position.
	ErrFrameConflict = errors.New("frame already recorded at this position")
)
