package gamequeue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gameservice "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/application"
	gameevents "github.com/Black-And-White-Club/tenpin-bot/app/shared/events/game"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// Finalizer is the slice of the game service the worker needs.
type Finalizer interface {
	FinalizeGame(ctx context.Context, gameID uuid.UUID) (*gameservice.GameCompletion, error)
}

// FinalizeGameWorker stores the final score and announces the completed game.
type FinalizeGameWorker struct {
	river.WorkerDefaults[FinalizeGameArgs]
	logger    *slog.Logger
	finalizer Finalizer
	publisher message.Publisher
}

func NewFinalizeGameWorker(logger *slog.Logger, finalizer Finalizer, publisher message.Publisher) *FinalizeGameWorker {
	return &FinalizeGameWorker{
		logger:    logger,
		finalizer: finalizer,
		publisher: publisher,
	}
}

func (w *FinalizeGameWorker) Timeout(*river.Job[FinalizeGameArgs]) time.Duration {
	return 30 * time.Second
}

// Work finalizes the game. Jobs for unknown or unfinished games are cancelled
// rather than retried; anything else is retried by River.
func (w *FinalizeGameWorker) Work(ctx context.Context, job *river.Job[FinalizeGameArgs]) error {
	logger := w.logger.With(
		attr.String("job_kind", job.Kind),
		attr.Int("attempt", job.Attempt),
		attr.String("game_id", job.Args.GameID),
	)

	gameID, err := uuid.Parse(job.Args.GameID)
	if err != nil {
		logger.Error("Finalize job has an invalid game id", attr.Error(err))
		return river.JobCancel(fmt.Errorf("invalid game id %q: %w", job.Args.GameID, err))
	}

	completion, err := w.finalizer.FinalizeGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, gameservice.ErrGameNotFound) || errors.Is(err, gameservice.ErrGameIncomplete) {
			logger.Warn("Cancelling finalize job", attr.Error(err))
			return river.JobCancel(err)
		}
		logger.Error("Failed to finalize game", attr.Error(err))
		return err
	}

	msg, err := handlerwrapper.NewJSONMessage(ctx, gameevents.GameCompletedV1, &gameevents.GameCompletedPayloadV1{
		GameID:      completion.GameID,
		Bowler:      completion.Bowler,
		FinalScore:  completion.FinalScore,
		CompletedAt: completion.CompletedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to build game completed message: %w", err)
	}
	if err := w.publisher.Publish(gameevents.GameCompletedV1, msg); err != nil {
		logger.Error("Failed to publish game completed event", attr.Error(err))
		return fmt.Errorf("failed to publish game completed event: %w", err)
	}

	logger.Info("Game finalized", attr.Int("final_score", completion.FinalScore))
	return nil
}
