package gamehandlers

import (
	"context"
	"errors"
	"log/slog"

	gameservice "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/application"
	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
	gamedb "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories"
	gameevents "github.com/Black-And-White-Club/tenpin-bot/app/shared/events/game"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/attr"
	"go.opentelemetry.io/otel/trace"
)

// Failure kinds reported for rejected frames that are not roll rule violations.
const (
	KindGameNotFound  = "game_not_found"
	KindGameComplete  = "game_complete"
	KindFrameConflict = "frame_conflict"
)

// GameHandlers implements the Handlers interface.
type GameHandlers struct {
	service gameservice.Service
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewGameHandlers creates a new GameHandlers instance.
func NewGameHandlers(
	service gameservice.Service,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &GameHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleFrameRecordRequested records the next frame. Rejected frames become a
// FrameRecordFailed event and the request is acked; infrastructure errors are
// returned so the router retries.
func (h *GameHandlers) HandleFrameRecordRequested(ctx context.Context, payload *gameevents.FrameRecordRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "GameHandlers.HandleFrameRecordRequested")
	defer span.End()

	view, err := h.service.RecordFrame(ctx, payload.GameID, payload.Rolls)
	if err != nil {
		kind, ok := failureKind(err)
		if !ok {
			return nil, err
		}
		h.logger.WarnContext(ctx, "Frame rejected",
			attr.ExtractCorrelationID(ctx),
			attr.GameID(payload.GameID),
			attr.String("kind", kind),
			attr.Error(err),
		)
		return []handlerwrapper.Result{{
			Topic: gameevents.FrameRecordFailedV1,
			Payload: &gameevents.FrameRecordFailedPayloadV1{
				GameID: payload.GameID,
				Reason: err.Error(),
				Kind:   kind,
			},
		}}, nil
	}

	out := []handlerwrapper.Result{{
		Topic: gameevents.FrameRecordedV1,
		Payload: &gameevents.FrameRecordedPayloadV1{
			GameID:      view.GameID,
			FrameNumber: len(view.Frames),
			Frames:      toFrameRows(view.Frames),
			Total:       view.Total,
			Complete:    view.Complete,
		},
	}}

	// Inline finalization: no queue is wired, so announce completion here.
	if view.CompletedAt != nil {
		out = append(out, handlerwrapper.Result{
			Topic: gameevents.GameCompletedV1,
			Payload: &gameevents.GameCompletedPayloadV1{
				GameID:      view.GameID,
				Bowler:      view.Bowler,
				FinalScore:  view.Total,
				CompletedAt: *view.CompletedAt,
			},
		})
	}
	return out, nil
}

// HandleScoreCardRequested replies with the current card. The reply goes to
// the request's reply_to when set.
func (h *GameHandlers) HandleScoreCardRequested(ctx context.Context, payload *gameevents.ScoreCardRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "GameHandlers.HandleScoreCardRequested")
	defer span.End()

	replyTopic := gameevents.ScoreCardRetrievedV1
	if rt, ok := ctx.Value(handlerwrapper.CtxKeyReplyTo).(string); ok && rt != "" {
		replyTopic = rt
	}

	view, err := h.service.GetScoreCard(ctx, payload.GameID)
	if err != nil {
		if errors.Is(err, gameservice.ErrGameNotFound) {
			h.logger.WarnContext(ctx, "Scorecard requested for unknown game",
				attr.ExtractCorrelationID(ctx),
				attr.GameID(payload.GameID),
			)
			// Answer with an empty card so request/reply callers do not time out.
			return []handlerwrapper.Result{{
				Topic: replyTopic,
				Payload: &gameevents.ScoreCardRetrievedPayloadV1{
					GameID: payload.GameID,
					Frames: []gameevents.FrameRowV1{},
				},
			}}, nil
		}
		return nil, err
	}

	return []handlerwrapper.Result{{
		Topic: replyTopic,
		Payload: &gameevents.ScoreCardRetrievedPayloadV1{
			GameID:   view.GameID,
			Bowler:   view.Bowler,
			Frames:   toFrameRows(view.Frames),
			Total:    view.Total,
			Complete: view.Complete,
		},
	}}, nil
}

// HandleGameFinalizeRequested finalizes a game on demand.
func (h *GameHandlers) HandleGameFinalizeRequested(ctx context.Context, payload *gameevents.GameFinalizeRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "GameHandlers.HandleGameFinalizeRequested")
	defer span.End()

	completion, err := h.service.FinalizeGame(ctx, payload.GameID)
	if err != nil {
		if errors.Is(err, gameservice.ErrGameNotFound) || errors.Is(err, gameservice.ErrGameIncomplete) {
			h.logger.WarnContext(ctx, "Finalize request ignored",
				attr.ExtractCorrelationID(ctx),
				attr.GameID(payload.GameID),
				attr.Error(err),
			)
			return nil, nil
		}
		return nil, err
	}

	return []handlerwrapper.Result{{
		Topic:   gameevents.GameCompletedV1,
		Payload: CompletedPayload(completion),
	}}, nil
}

// CompletedPayload maps a completion to its event payload.
func CompletedPayload(c *gameservice.GameCompletion) *gameevents.GameCompletedPayloadV1 {
	return &gameevents.GameCompletedPayloadV1{
		GameID:      c.GameID,
		Bowler:      c.Bowler,
		FinalScore:  c.FinalScore,
		CompletedAt: c.CompletedAt,
	}
}

// failureKind classifies domain failures. ok is false for errors that should
// be retried.
func failureKind(err error) (kind string, ok bool) {
	var verr *gamedomain.ValidationError
	switch {
	case errors.As(err, &verr):
		return string(verr.Kind), true
	case errors.Is(err, gameservice.ErrGameNotFound):
		return KindGameNotFound, true
	case errors.Is(err, gameservice.ErrGameComplete):
		return KindGameComplete, true
	case errors.Is(err, gamedb.ErrFrameConflict):
		return KindFrameConflict, true
	}
	return "", false
}

func toFrameRows(frames []gamedomain.FrameScore) []gameevents.FrameRowV1 {
	rows := make([]gameevents.FrameRowV1, len(frames))
	for i, f := range frames {
		rows[i] = gameevents.FrameRowV1{
			Number:     f.Number,
			Rolls:      f.Rolls,
			Type:       f.Type.String(),
			FrameScore: f.FrameScore,
		}
	}
	return rows
}
