package gameservice

import (
	"context"
	"sort"
	"sync"
	"time"

	gamedb "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Game Repo
// ------------------------

// FakeGameRepo keeps games in memory. Any *Func override replaces the
// in-memory behavior for that method.
type FakeGameRepo struct {
	mu     sync.Mutex
	trace  []string
	games  map[uuid.UUID]*gamedb.Game
	frames map[uuid.UUID][]gamedb.GameFrame

	CreateGameFunc    func(ctx context.Context, db bun.IDB, game *gamedb.Game) error
	GetGameFunc       func(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*gamedb.Game, error)
	LockGameFunc      func(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*gamedb.Game, error)
	ListFramesFunc    func(ctx context.Context, db bun.IDB, gameID uuid.UUID) ([]gamedb.GameFrame, error)
	InsertFrameFunc   func(ctx context.Context, db bun.IDB, frame *gamedb.GameFrame) error
	MarkCompletedFunc func(ctx context.Context, db bun.IDB, gameID uuid.UUID, finalScore int, completedAt time.Time) error
}

func NewFakeGameRepo() *FakeGameRepo {
	return &FakeGameRepo{
		trace:  []string{},
		games:  map[uuid.UUID]*gamedb.Game{},
		frames: map[uuid.UUID][]gamedb.GameFrame{},
	}
}

func (f *FakeGameRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeGameRepo) CreateGame(ctx context.Context, db bun.IDB, game *gamedb.Game) error {
	f.record("CreateGame")
	if f.CreateGameFunc != nil {
		return f.CreateGameFunc(ctx, db, game)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *game
	f.games[game.UUID] = &cp
	return nil
}

func (f *FakeGameRepo) GetGame(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*gamedb.Game, error) {
	f.record("GetGame")
	if f.GetGameFunc != nil {
		return f.GetGameFunc(ctx, db, gameID)
	}
	return f.lookup(gameID)
}

func (f *FakeGameRepo) LockGame(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*gamedb.Game, error) {
	f.record("LockGame")
	if f.LockGameFunc != nil {
		return f.LockGameFunc(ctx, db, gameID)
	}
	return f.lookup(gameID)
}

func (f *FakeGameRepo) lookup(gameID uuid.UUID) (*gamedb.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[gameID]
	if !ok {
		return nil, gamedb.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *FakeGameRepo) ListFrames(ctx context.Context, db bun.IDB, gameID uuid.UUID) ([]gamedb.GameFrame, error) {
	f.record("ListFrames")
	if f.ListFramesFunc != nil {
		return f.ListFramesFunc(ctx, db, gameID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]gamedb.GameFrame(nil), f.frames[gameID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *FakeGameRepo) InsertFrame(ctx context.Context, db bun.IDB, frame *gamedb.GameFrame) error {
	f.record("InsertFrame")
	if f.InsertFrameFunc != nil {
		return f.InsertFrameFunc(ctx, db, frame)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.frames[frame.GameUUID] {
		if existing.Number == frame.Number {
			return gamedb.ErrFrameConflict
		}
	}
	f.frames[frame.GameUUID] = append(f.frames[frame.GameUUID], *frame)
	return nil
}

func (f *FakeGameRepo) MarkCompleted(ctx context.Context, db bun.IDB, gameID uuid.UUID, finalScore int, completedAt time.Time) error {
	f.record("MarkCompleted")
	if f.MarkCompletedFunc != nil {
		return f.MarkCompletedFunc(ctx, db, gameID, finalScore, completedAt)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[gameID]
	if !ok {
		return gamedb.ErrNoRowsAffected
	}
	g.FinalScore = &finalScore
	g.CompletedAt = &completedAt
	return nil
}

// --- Seeding and accessors for assertions ---

func (f *FakeGameRepo) seedGame(bowler string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.games[id] = &gamedb.Game{UUID: id, Bowler: bowler, PlayedAt: time.Now().UTC()}
	return id
}

func (f *FakeGameRepo) seedFrames(gameID uuid.UUID, rolls ...[]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rolls {
		row := gamedb.GameFrame{
			GameUUID: gameID,
			Number:   len(f.frames[gameID]) + 1,
			Roll1:    r[0],
			Roll2:    r[1],
		}
		if len(r) > 2 {
			third := r[2]
			row.Roll3 = &third
		}
		f.frames[gameID] = append(f.frames[gameID], row)
	}
}

func (f *FakeGameRepo) game(gameID uuid.UUID) *gamedb.Game {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.games[gameID]
}

func (f *FakeGameRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ gamedb.Repository = (*FakeGameRepo)(nil)

// ------------------------
// Fake Scheduler
// ------------------------

type FakeScheduler struct {
	mu        sync.Mutex
	scheduled []uuid.UUID
	Err       error
}

func (s *FakeScheduler) ScheduleFinalize(_ context.Context, gameID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.scheduled = append(s.scheduled, gameID)
	return nil
}

func (s *FakeScheduler) Scheduled() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.scheduled...)
}

var _ FinalizeScheduler = (*FakeScheduler)(nil)
