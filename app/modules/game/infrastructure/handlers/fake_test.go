package gamehandlers

import (
	"context"
	"time"

	gameservice "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/application"
	"github.com/google/uuid"
)

// ------------------------
// Fake Game Service
// ------------------------

type FakeGameService struct {
	trace []string

	CreateGameFunc      func(ctx context.Context, bowler string, lane *int, playedAt time.Time) (*gameservice.GameInfo, error)
	RecordFrameFunc     func(ctx context.Context, gameID uuid.UUID, rolls []*int) (*gameservice.ScoreCardView, error)
	RecordNotationFunc  func(ctx context.Context, gameID uuid.UUID, notation string) (*gameservice.ScoreCardView, error)
	GetScoreCardFunc    func(ctx context.Context, gameID uuid.UUID) (*gameservice.ScoreCardView, error)
	FinalizeGameFunc    func(ctx context.Context, gameID uuid.UUID) (*gameservice.GameCompletion, error)
	ScoreCardChartFunc  func(ctx context.Context, gameID uuid.UUID) ([]byte, error)
	ExportScoreCardFunc func(ctx context.Context, gameID uuid.UUID) ([]byte, error)
	ImportGameFunc      func(ctx context.Context, gameID uuid.UUID, data []byte) (*gameservice.ScoreCardView, error)
}

func NewFakeGameService() *FakeGameService {
	return &FakeGameService{
		trace: []string{},
	}
}

func (f *FakeGameService) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Service Interface Implementation ---

func (f *FakeGameService) CreateGame(ctx context.Context, bowler string, lane *int, playedAt time.Time) (*gameservice.GameInfo, error) {
	f.record("CreateGame")
	if f.CreateGameFunc != nil {
		return f.CreateGameFunc(ctx, bowler, lane, playedAt)
	}
	return nil, nil
}

func (f *FakeGameService) RecordFrame(ctx context.Context, gameID uuid.UUID, rolls []*int) (*gameservice.ScoreCardView, error) {
	f.record("RecordFrame")
	if f.RecordFrameFunc != nil {
		return f.RecordFrameFunc(ctx, gameID, rolls)
	}
	return &gameservice.ScoreCardView{GameID: gameID}, nil
}

func (f *FakeGameService) RecordFrameNotation(ctx context.Context, gameID uuid.UUID, notation string) (*gameservice.ScoreCardView, error) {
	f.record("RecordFrameNotation")
	if f.RecordNotationFunc != nil {
		return f.RecordNotationFunc(ctx, gameID, notation)
	}
	return &gameservice.ScoreCardView{GameID: gameID}, nil
}

func (f *FakeGameService) GetScoreCard(ctx context.Context, gameID uuid.UUID) (*gameservice.ScoreCardView, error) {
	f.record("GetScoreCard")
	if f.GetScoreCardFunc != nil {
		return f.GetScoreCardFunc(ctx, gameID)
	}
	return &gameservice.ScoreCardView{GameID: gameID}, nil
}

func (f *FakeGameService) FinalizeGame(ctx context.Context, gameID uuid.UUID) (*gameservice.GameCompletion, error) {
	f.record("FinalizeGame")
	if f.FinalizeGameFunc != nil {
		return f.FinalizeGameFunc(ctx, gameID)
	}
	return &gameservice.GameCompletion{GameID: gameID}, nil
}

func (f *FakeGameService) ScoreCardChart(ctx context.Context, gameID uuid.UUID) ([]byte, error) {
	f.record("ScoreCardChart")
	if f.ScoreCardChartFunc != nil {
		return f.ScoreCardChartFunc(ctx, gameID)
	}
	return nil, nil
}

func (f *FakeGameService) ExportScoreCard(ctx context.Context, gameID uuid.UUID) ([]byte, error) {
	f.record("ExportScoreCard")
	if f.ExportScoreCardFunc != nil {
		return f.ExportScoreCardFunc(ctx, gameID)
	}
	return nil, nil
}

func (f *FakeGameService) ImportGame(ctx context.Context, gameID uuid.UUID, data []byte) (*gameservice.ScoreCardView, error) {
	f.record("ImportGame")
	if f.ImportGameFunc != nil {
		return f.ImportGameFunc(ctx, gameID, data)
	}
	return nil, nil
}

// --- Accessors for assertions ---

func (f *FakeGameService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ gameservice.Service = (*FakeGameService)(nil)
