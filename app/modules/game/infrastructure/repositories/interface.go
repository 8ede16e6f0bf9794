package gamedb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for game persistence.
type Repository interface {
	// CreateGame inserts a new game.
	CreateGame(ctx context.Context, db bun.IDB, game *Game) error

	// GetGame retrieves a game by UUID.
	GetGame(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*Game, error)

	// LockGame retrieves a game and holds a row lock until the transaction ends.
	LockGame(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*Game, error)

	// ListFrames returns a game's frames ordered by number.
	ListFrames(ctx context.Context, db bun.IDB, gameID uuid.UUID) ([]GameFrame, error)

	// InsertFrame stores one frame.
	InsertFrame(ctx context.Context, db bun.IDB, frame *GameFrame) error

	// MarkCompleted stores the final score and completion time.
	MarkCompleted(ctx context.Context, db bun.IDB, gameID uuid.UUID, finalScore int, completedAt time.Time) error
}
