package gameservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
	gamedb "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/attr"
	gamemetrics "github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/metrics/game"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "GameService"

// GameService implements the Service interface.
type GameService struct {
	repo      gamedb.Repository
	logger    *slog.Logger
	metrics   gamemetrics.GameMetrics
	tracer    trace.Tracer
	db        *bun.DB
	scheduler FinalizeScheduler
	now       func() time.Time
}

// NewGameService creates a new GameService. With a nil scheduler, games are
// finalized inline when the tenth frame is recorded.
func NewGameService(
	repo gamedb.Repository,
	logger *slog.Logger,
	metrics gamemetrics.GameMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	scheduler FinalizeScheduler,
) *GameService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = gamemetrics.NewNoop()
	}
	return &GameService{
		repo:      repo,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		db:        db,
		scheduler: scheduler,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetScheduler swaps the finalize scheduler. The queue is built after the
// service, so wiring happens in two steps.
func (s *GameService) SetScheduler(scheduler FinalizeScheduler) {
	s.scheduler = scheduler
}

// CreateGame starts a new game.
func (s *GameService) CreateGame(ctx context.Context, bowler string, lane *int, playedAt time.Time) (*GameInfo, error) {
	createTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*GameInfo, error], error) {
		return s.createGameLogic(ctx, db, bowler, lane, playedAt)
	}

	result, err := withTelemetry(s, ctx, "CreateGame", bowler, func(ctx context.Context) (results.OperationResult[*GameInfo, error], error) {
		return runInTx(s, ctx, createTx)
	})
	return unwrap(result, err)
}

func (s *GameService) createGameLogic(ctx context.Context, db bun.IDB, bowler string, lane *int, playedAt time.Time) (results.OperationResult[*GameInfo, error], error) {
	bowler = strings.TrimSpace(bowler)
	if bowler == "" {
		return results.FailureResult[*GameInfo, error](fmt.Errorf("%w: bowler is required", ErrInvalidGame)), nil
	}
	if lane != nil && *lane <= 0 {
		return results.FailureResult[*GameInfo, error](fmt.Errorf("%w: lane must be positive", ErrInvalidGame)), nil
	}
	if playedAt.IsZero() {
		playedAt = s.now()
	}

	game := &gamedb.Game{
		UUID:      uuid.New(),
		Bowler:    bowler,
		Lane:      lane,
		PlayedAt:  playedAt.UTC(),
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateGame(ctx, db, game); err != nil {
		return results.OperationResult[*GameInfo, error]{}, fmt.Errorf("failed to create game: %w", err)
	}

	return results.SuccessResult[*GameInfo, error](toGameInfo(game)), nil
}

// RecordFrame appends the next frame. Position 10 builds the final-frame
// variant; anything past it is rejected.
func (s *GameService) RecordFrame(ctx context.Context, gameID uuid.UUID, rolls []*int) (*ScoreCardView, error) {
	return s.recordFrame(ctx, "RecordFrame", gameID, func(int) ([]*int, error) {
		return rolls, nil
	})
}

// RecordFrameNotation appends the next frame written in bowling notation.
// The notation is read once the game is locked, so "X" on frame 10 is always
// parsed as the final frame.
func (s *GameService) RecordFrameNotation(ctx context.Context, gameID uuid.UUID, notation string) (*ScoreCardView, error) {
	return s.recordFrame(ctx, "RecordFrameNotation", gameID, func(position int) ([]*int, error) {
		return ParseFrameNotation(notation, position == gamedomain.FramesPerGame)
	})
}

// rollsAt resolves the rolls for the frame about to be stored at position.
type rollsAt func(position int) ([]*int, error)

func (s *GameService) recordFrame(ctx context.Context, operation string, gameID uuid.UUID, resolve rollsAt) (*ScoreCardView, error) {
	recordTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*ScoreCardView, error], error) {
		return s.recordFrameLogic(ctx, db, gameID, resolve)
	}

	result, err := withTelemetry(s, ctx, operation, gameID.String(), func(ctx context.Context) (results.OperationResult[*ScoreCardView, error], error) {
		return runInTx(s, ctx, recordTx)
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	// Scheduling happens after commit so the job never sees an uncommitted frame.
	if view.Complete && view.CompletedAt == nil && s.scheduler != nil {
		if err := s.scheduler.ScheduleFinalize(ctx, gameID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to schedule game finalization",
				attr.ExtractCorrelationID(ctx),
				attr.GameID(gameID),
				attr.Error(err),
			)
			return nil, fmt.Errorf("failed to schedule finalization: %w", err)
		}
	}
	return view, nil
}

func (s *GameService) recordFrameLogic(ctx context.Context, db bun.IDB, gameID uuid.UUID, resolve rollsAt) (results.OperationResult[*ScoreCardView, error], error) {
	game, err := s.repo.LockGame(ctx, db, gameID)
	if err != nil {
		if errors.Is(err, gamedb.ErrNotFound) {
			return results.FailureResult[*ScoreCardView, error](ErrGameNotFound), nil
		}
		return results.OperationResult[*ScoreCardView, error]{}, fmt.Errorf("failed to load game: %w", err)
	}

	stored, err := s.repo.ListFrames(ctx, db, gameID)
	if err != nil {
		return results.OperationResult[*ScoreCardView, error]{}, fmt.Errorf("failed to load frames: %w", err)
	}

	position := len(stored) + 1
	if game.IsCompleted() {
		return results.FailureResult[*ScoreCardView, error](ErrGameComplete), nil
	}
	if position > gamedomain.FramesPerGame {
		// A full card without a final score means scheduling failed after the
		// tenth frame committed. Queue the job again so a retry still finalizes.
		if s.scheduler != nil {
			if err := s.scheduler.ScheduleFinalize(ctx, gameID); err != nil {
				return results.OperationResult[*ScoreCardView, error]{}, fmt.Errorf("failed to schedule finalization: %w", err)
			}
			s.logger.WarnContext(ctx, "Rescheduled finalization for full scorecard",
				attr.ExtractCorrelationID(ctx),
				attr.GameID(gameID),
			)
		}
		return results.FailureResult[*ScoreCardView, error](ErrGameComplete), nil
	}

	rolls, err := resolve(position)
	if err != nil {
		return results.FailureResult[*ScoreCardView, error](err), nil
	}

	frame, err := gamedomain.NewFrameAt(position, rolls)
	if err != nil {
		return results.FailureResult[*ScoreCardView, error](fmt.Errorf("%w: %w", ErrInvalidFrame, err)), nil
	}

	row := toGameFrame(gameID, position, frame)
	if err := s.repo.InsertFrame(ctx, db, row); err != nil {
		if errors.Is(err, gamedb.ErrFrameConflict) {
			return results.FailureResult[*ScoreCardView, error](fmt.Errorf("%w: frame %d", err, position)), nil
		}
		return results.OperationResult[*ScoreCardView, error]{}, fmt.Errorf("failed to store frame: %w", err)
	}
	s.metrics.RecordFrameRecorded(ctx, frame.Type().String())

	card, err := buildScoreCard(stored)
	if err != nil {
		return results.OperationResult[*ScoreCardView, error]{}, err
	}
	card.AddFrame(frame)
	view := newScoreCardView(game, card)

	s.logger.InfoContext(ctx, "Frame recorded",
		attr.ExtractCorrelationID(ctx),
		attr.GameID(gameID),
		attr.FrameNumber(position),
		attr.String("frame_type", frame.Type().String()),
		attr.Int("running_total", view.Total),
	)

	if view.Complete && s.scheduler == nil {
		completion, err := s.markCompleted(ctx, db, game, view.Total)
		if err != nil {
			return results.OperationResult[*ScoreCardView, error]{}, err
		}
		view.CompletedAt = &completion.CompletedAt
	}

	return results.SuccessResult[*ScoreCardView, error](view), nil
}

// GetScoreCard renders the current scorecard.
func (s *GameService) GetScoreCard(ctx context.Context, gameID uuid.UUID) (*ScoreCardView, error) {
	getTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*ScoreCardView, error], error) {
		return s.getScoreCardLogic(ctx, db, gameID)
	}

	result, err := withTelemetry(s, ctx, "GetScoreCard", gameID.String(), func(ctx context.Context) (results.OperationResult[*ScoreCardView, error], error) {
		return runInTx(s, ctx, getTx)
	})
	return unwrap(result, err)
}

func (s *GameService) getScoreCardLogic(ctx context.Context, db bun.IDB, gameID uuid.UUID) (results.OperationResult[*ScoreCardView, error], error) {
	game, err := s.repo.GetGame(ctx, db, gameID)
	if err != nil {
		if errors.Is(err, gamedb.ErrNotFound) {
			return results.FailureResult[*ScoreCardView, error](ErrGameNotFound), nil
		}
		return results.OperationResult[*ScoreCardView, error]{}, fmt.Errorf("failed to load game: %w", err)
	}

	stored, err := s.repo.ListFrames(ctx, db, gameID)
	if err != nil {
		return results.OperationResult[*ScoreCardView, error]{}, fmt.Errorf("failed to load frames: %w", err)
	}

	card, err := buildScoreCard(stored)
	if err != nil {
		return results.OperationResult[*ScoreCardView, error]{}, err
	}

	return results.SuccessResult[*ScoreCardView, error](newScoreCardView(game, card)), nil
}

// FinalizeGame stores the final score. Calling it on a finalized game returns
// the stored result.
func (s *GameService) FinalizeGame(ctx context.Context, gameID uuid.UUID) (*GameCompletion, error) {
	finalizeTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*GameCompletion, error], error) {
		return s.finalizeGameLogic(ctx, db, gameID)
	}

	result, err := withTelemetry(s, ctx, "FinalizeGame", gameID.String(), func(ctx context.Context) (results.OperationResult[*GameCompletion, error], error) {
		return runInTx(s, ctx, finalizeTx)
	})
	return unwrap(result, err)
}

func (s *GameService) finalizeGameLogic(ctx context.Context, db bun.IDB, gameID uuid.UUID) (results.OperationResult[*GameCompletion, error], error) {
	game, err := s.repo.LockGame(ctx, db, gameID)
	if err != nil {
		if errors.Is(err, gamedb.ErrNotFound) {
			return results.FailureResult[*GameCompletion, error](ErrGameNotFound), nil
		}
		return results.OperationResult[*GameCompletion, error]{}, fmt.Errorf("failed to load game: %w", err)
	}

	if game.IsCompleted() && game.FinalScore != nil {
		return results.SuccessResult[*GameCompletion, error](&GameCompletion{
			GameID:      game.UUID,
			Bowler:      game.Bowler,
			FinalScore:  *game.FinalScore,
			CompletedAt: *game.CompletedAt,
		}), nil
	}

	stored, err := s.repo.ListFrames(ctx, db, gameID)
	if err != nil {
		return results.OperationResult[*GameCompletion, error]{}, fmt.Errorf("failed to load frames: %w", err)
	}
	card, err := buildScoreCard(stored)
	if err != nil {
		return results.OperationResult[*GameCompletion, error]{}, err
	}
	if !card.IsComplete() {
		return results.FailureResult[*GameCompletion, error](
			fmt.Errorf("%w: %d of %d frames recorded", ErrGameIncomplete, card.Len(), gamedomain.FramesPerGame),
		), nil
	}

	completion, err := s.markCompleted(ctx, db, game, card.GameTotal())
	if err != nil {
		return results.OperationResult[*GameCompletion, error]{}, err
	}
	return results.SuccessResult[*GameCompletion, error](completion), nil
}

func (s *GameService) markCompleted(ctx context.Context, db bun.IDB, game *gamedb.Game, total int) (*GameCompletion, error) {
	completedAt := s.now()
	if err := s.repo.MarkCompleted(ctx, db, game.UUID, total, completedAt); err != nil {
		return nil, fmt.Errorf("failed to mark game completed: %w", err)
	}
	s.metrics.RecordGameCompleted(ctx, total)

	s.logger.InfoContext(ctx, "Game completed",
		attr.ExtractCorrelationID(ctx),
		attr.GameID(game.UUID),
		attr.Int("final_score", total),
	)

	return &GameCompletion{
		GameID:      game.UUID,
		Bowler:      game.Bowler,
		FinalScore:  total,
		CompletedAt: completedAt,
	}, nil
}

// ImportGame records each frame of an xlsx roll sheet in order. It stops at
// the first rejected frame; frames before it stay recorded.
func (s *GameService) ImportGame(ctx context.Context, gameID uuid.UUID, data []byte) (*ScoreCardView, error) {
	frames, err := ImportFrames(data)
	if err != nil {
		return nil, err
	}

	var view *ScoreCardView
	for _, f := range frames {
		view, err = s.RecordFrame(ctx, gameID, f.Rolls)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", f.Number, err)
		}
	}
	return view, nil
}

// ScoreCardChart renders the running score of a game as a PNG.
func (s *GameService) ScoreCardChart(ctx context.Context, gameID uuid.UUID) ([]byte, error) {
	view, err := s.GetScoreCard(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return RenderScoreCardChart(view, DefaultChartPalette())
}

// ExportScoreCard renders a game's scorecard as an xlsx workbook.
func (s *GameService) ExportScoreCard(ctx context.Context, gameID uuid.UUID) ([]byte, error) {
	view, err := s.GetScoreCard(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return RenderScoreCardXLSX(view)
}

// -----------------------------------------------------------------------------
// Mapping helpers
// -----------------------------------------------------------------------------

// buildScoreCard rebuilds the domain card from stored rows. A stored row that
// fails validation means the table was written outside this service.
func buildScoreCard(stored []gamedb.GameFrame) (*gamedomain.ScoreCard, error) {
	card := gamedomain.NewScoreCard()
	for _, row := range stored {
		frame, err := gamedomain.NewFrameAt(row.Number, row.RollPointers())
		if err != nil {
			return nil, fmt.Errorf("stored frame %d is invalid: %w", row.Number, err)
		}
		card.AddFrame(frame)
	}
	return card, nil
}

func newScoreCardView(game *gamedb.Game, card *gamedomain.ScoreCard) *ScoreCardView {
	rows := card.ShowScoreCard()
	total := 0
	if len(rows) > 0 {
		total = rows[len(rows)-1].FrameScore
	}
	return &ScoreCardView{
		GameID:      game.UUID,
		Bowler:      game.Bowler,
		Frames:      rows,
		Total:       total,
		Complete:    card.IsComplete(),
		CompletedAt: game.CompletedAt,
	}
}

func toGameFrame(gameID uuid.UUID, position int, frame gamedomain.Scorable) *gamedb.GameFrame {
	rolls := frame.Rolls()
	row := &gamedb.GameFrame{
		GameUUID: gameID,
		Number:   position,
		Roll1:    rolls[0],
		Roll2:    rolls[1],
	}
	if len(rolls) > 2 {
		third := rolls[2]
		row.Roll3 = &third
	}
	return row
}

func toGameInfo(game *gamedb.Game) *GameInfo {
	return &GameInfo{
		GameID:      game.UUID,
		Bowler:      game.Bowler,
		Lane:        game.Lane,
		PlayedAt:    game.PlayedAt,
		CompletedAt: game.CompletedAt,
		FinalScore:  game.FinalScore,
	}
}

// unwrap turns a result into the (value, error) pair the Service exposes.
func unwrap[S any](result results.OperationResult[S, error], err error) (S, error) {
	var zero S
	if err != nil {
		return zero, err
	}
	if result.IsFailure() {
		return zero, *result.Failure
	}
	if !result.IsSuccess() {
		return zero, errors.New("operation returned an empty result")
	}
	return *result.Success, nil
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *GameService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.ExtractCorrelationID(ctx), attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.ExtractCorrelationID(ctx),
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *GameService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
