package gamehandlers

import (
	"context"

	gameevents "github.com/Black-And-White-Club/tenpin-bot/app/shared/events/game"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/handlerwrapper"
)

// Handlers defines the interface for game event handlers.
type Handlers interface {
	// HandleFrameRecordRequested appends a frame and publishes the updated card.
	HandleFrameRecordRequested(ctx context.Context, payload *gameevents.FrameRecordRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// HandleScoreCardRequested answers scorecard lookups.
	HandleScoreCardRequested(ctx context.Context, payload *gameevents.ScoreCardRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// HandleGameFinalizeRequested stores the final score of a complete game.
	HandleGameFinalizeRequested(ctx context.Context, payload *gameevents.GameFinalizeRequestedPayloadV1) ([]handlerwrapper.Result, error)
}
