package gameservice

import "errors"

// Domain errors for the game service. Handlers treat them as normal outcomes
// (publish a failure event, ack the message) rather than retrying.
var (
	// ErrGameNotFound indicates the game does not exist.
	ErrGameNotFound = errors.New("game not found")

	// ErrGameComplete indicates all ten frames are already recorded.
	ErrGameComplete = errors.New("game already has ten frames")

	// ErrGameIncomplete indicates a finalize request arrived before the tenth frame.
	ErrGameIncomplete = errors.New("game is not complete")

	// ErrInvalidFrame wraps a frame validation failure.
	ErrInvalidFrame = errors.New("invalid frame")

	// ErrInvalidGame indicates the game details are unusable.
	ErrInvalidGame = errors.New("invalid game")

	// ErrInvalidSheet indicates an uploaded roll sheet could not be read.
	ErrInvalidSheet = errors.New("invalid roll sheet")
)
