package gameservice

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the game operations exposed to handlers, jobs and HTTP.
type Service interface {
	// CreateGame starts a new game for bowler.
	CreateGame(ctx context.Context, bowler string, lane *int, playedAt time.Time) (*GameInfo, error)

	// RecordFrame appends the next frame to a game and returns the updated card.
	RecordFrame(ctx context.Context, gameID uuid.UUID, rolls []*int) (*ScoreCardView, error)

	// RecordFrameNotation appends the next frame given in bowling notation.
	RecordFrameNotation(ctx context.Context, gameID uuid.UUID, notation string) (*ScoreCardView, error)

	// GetScoreCard renders the current scorecard.
	GetScoreCard(ctx context.Context, gameID uuid.UUID) (*ScoreCardView, error)

	// FinalizeGame stores the final score of a complete game. Idempotent.
	FinalizeGame(ctx context.Context, gameID uuid.UUID) (*GameCompletion, error)

	// ScoreCardChart renders the running score as a PNG.
	ScoreCardChart(ctx context.Context, gameID uuid.UUID) ([]byte, error)

	// ExportScoreCard renders the scorecard as an xlsx workbook.
	ExportScoreCard(ctx context.Context, gameID uuid.UUID) ([]byte, error)

	// ImportGame records every frame of an xlsx roll sheet onto a game.
	ImportGame(ctx context.Context, gameID uuid.UUID, data []byte) (*ScoreCardView, error)
}

// FinalizeScheduler defers finalization to a background job.
type FinalizeScheduler interface {
	ScheduleFinalize(ctx context.Context, gameID uuid.UUID) error
}
