package gamemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating games and game_frames tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS games (
					uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					bowler VARCHAR(100) NOT NULL,
					lane INTEGER,
					played_at TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					completed_at TIMESTAMPTZ,
					final_score INTEGER CHECK (final_score BETWEEN 0 AND 300)
				);
				CREATE INDEX IF NOT EXISTS idx_games_bowler ON games(bowler);
			`); err != nil {
				return fmt.Errorf("failed to create games table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS game_frames (
					id BIGSERIAL PRIMARY KEY,
					game_uuid UUID NOT NULL REFERENCES games(uuid) ON DELETE CASCADE,
					number SMALLINT NOT NULL CHECK (number BETWEEN 1 AND 10),
					roll1 SMALLINT NOT NULL CHECK (roll1 BETWEEN 0 AND 10),
					roll2 SMALLINT NOT NULL CHECK (roll2 BETWEEN 0 AND 10),
					roll3 SMALLINT CHECK (roll3 BETWEEN 0 AND 10),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT uq_game_frames_game_number UNIQUE (game_uuid, number)
				);
			`); err != nil {
				return fmt.Errorf("failed to create game_frames table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping games and game_frames tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS game_frames;`); err != nil {
				return fmt.Errorf("failed to drop game_frames table: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS games;`); err != nil {
				return fmt.Errorf("failed to drop games table: %w", err)
			}
			return nil
		})
	})
}
