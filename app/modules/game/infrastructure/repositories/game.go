package gamedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// Impl implements Repository with bun.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new game repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB falls back to the repository's connection when db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) CreateGame(ctx context.Context, db bun.IDB, game *Game) error {
	db = r.resolveDB(db)
	if game.UUID == uuid.Nil {
		game.UUID = uuid.New()
	}
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(game).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *Impl) GetGame(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*Game, error) {
	return r.getGame(ctx, r.resolveDB(db), gameID, false)
}

func (r *Impl) LockGame(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*Game, error) {
	return r.getGame(ctx, r.resolveDB(db), gameID, true)
}

func (r *Impl) getGame(ctx context.Context, db bun.IDB, gameID uuid.UUID, lock bool) (*Game, error) {
	game := new(Game)
	q := db.NewSelect().
		Model(game).
		Where("uuid = ?", gameID)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

func (r *Impl) ListFrames(ctx context.Context, db bun.IDB, gameID uuid.UUID) ([]GameFrame, error) {
	db = r.resolveDB(db)
	var frames []GameFrame
	err := db.NewSelect().
		Model(&frames).
		Where("game_uuid = ?", gameID).
		Order("number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	return frames, nil
}

func (r *Impl) InsertFrame(ctx context.Context, db bun.IDB, frame *GameFrame) error {
	db = r.resolveDB(db)
	if frame.CreatedAt.IsZero() {
		frame.CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(frame).Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
			return ErrFrameConflict
		}
		return fmt.Errorf("failed to insert frame: %w", err)
	}
	return nil
}

func (r *Impl) MarkCompleted(ctx context.Context, db bun.IDB, gameID uuid.UUID, finalScore int, completedAt time.Time) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Game)(nil)).
		Set("final_score = ?", finalScore).
		Set("completed_at = ?", completedAt).
		Where("uuid = ?", gameID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark game completed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
