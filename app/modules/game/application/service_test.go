package gameservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
	gamedb "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories"
	gamemetrics "github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/metrics/game"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

var fixedNow = time.Date(2026, 10, 1, 19, 30, 0, 0, time.UTC)

func newTestService(repo gamedb.Repository, scheduler FinalizeScheduler) *GameService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewGameService(repo, logger, gamemetrics.NewNoop(), noop.NewTracerProvider().Tracer("test"), nil, scheduler)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func ip(v int) *int { return &v }

func rolls(vals ...int) []*int {
	out := make([]*int, len(vals))
	for i := range vals {
		out[i] = ip(vals[i])
	}
	return out
}

func TestGameService_CreateGame(t *testing.T) {
	tests := []struct {
		name     string
		bowler   string
		lane     *int
		playedAt time.Time
		wantErr  error
		verify   func(t *testing.T, info *GameInfo, repo *FakeGameRepo)
	}{
		{
			name:   "creates game with defaults",
			bowler: "  Dale  ",
			verify: func(t *testing.T, info *GameInfo, repo *FakeGameRepo) {
				assert.Equal(t, "Dale", info.Bowler)
				assert.Equal(t, fixedNow, info.PlayedAt)
				assert.Nil(t, info.Lane)
				assert.NotNil(t, repo.game(info.GameID))
			},
		},
		{
			name:     "keeps lane and played at",
			bowler:   "Walter",
			lane:     ip(12),
			playedAt: fixedNow.Add(-48 * time.Hour),
			verify: func(t *testing.T, info *GameInfo, repo *FakeGameRepo) {
				require.NotNil(t, info.Lane)
				assert.Equal(t, 12, *info.Lane)
				assert.Equal(t, fixedNow.Add(-48*time.Hour), info.PlayedAt)
			},
		},
		{
			name:    "blank bowler",
			bowler:  "   ",
			wantErr: ErrInvalidGame,
		},
		{
			name:    "non-positive lane",
			bowler:  "Donny",
			lane:    ip(0),
			wantErr: ErrInvalidGame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeGameRepo()
			svc := newTestService(repo, nil)

			info, err := svc.CreateGame(context.Background(), tt.bowler, tt.lane, tt.playedAt)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, info)
				assert.NotContains(t, repo.Trace(), "CreateGame")
				return
			}
			require.NoError(t, err)
			tt.verify(t, info, repo)
		})
	}
}

func TestGameService_CreateGame_RepoError(t *testing.T) {
	repo := NewFakeGameRepo()
	repo.CreateGameFunc = func(ctx context.Context, db bun.IDB, game *gamedb.Game) error {
		return errors.New("connection reset")
	}
	svc := newTestService(repo, nil)

	_, err := svc.CreateGame(context.Background(), "Dale", nil, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NotErrorIs(t, err, ErrInvalidGame)
}

func TestGameService_RecordFrame(t *testing.T) {
	tests := []struct {
		name      string
		seed      [][]int
		rolls     []*int
		wantErr   error
		wantTotal int
		wantLen   int
		complete  bool
	}{
		{
			name:      "first frame",
			rolls:     rolls(7, 2),
			wantTotal: 9,
			wantLen:   1,
		},
		{
			name:      "spare bonus resolves on next frame",
			seed:      [][]int{{7, 3}},
			rolls:     rolls(4, 2),
			wantTotal: 20,
			wantLen:   2,
		},
		{
			name:      "strike bonus pending",
			rolls:     rolls(10, 0),
			wantTotal: 10,
			wantLen:   1,
		},
		{
			name:    "roll sum over ten",
			rolls:   rolls(6, 6),
			wantErr: gamedomain.ErrRollSum,
		},
		{
			name:    "missing roll",
			rolls:   []*int{ip(4), nil},
			wantErr: gamedomain.ErrMissingRoll,
		},
		{
			name:      "tenth frame completes game",
			seed:      [][]int{{10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}},
			rolls:     rolls(10, 10, 10),
			wantTotal: 300,
			wantLen:   10,
			complete:  true,
		},
		{
			name:    "illegal tenth frame",
			seed:    [][]int{{0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}},
			rolls:   rolls(3, 4, 5),
			wantErr: gamedomain.ErrFinalFrameLegality,
		},
		{
			name:    "eleventh frame rejected",
			seed:    [][]int{{0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}},
			rolls:   rolls(1, 1),
			wantErr: ErrGameComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeGameRepo()
			id := repo.seedGame("Dale")
			repo.seedFrames(id, tt.seed...)
			svc := newTestService(repo, nil)

			view, err := svc.RecordFrame(context.Background(), id, tt.rolls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.NotContains(t, repo.Trace(), "InsertFrame")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, view.Total)
			assert.Len(t, view.Frames, tt.wantLen)
			assert.Equal(t, tt.complete, view.Complete)
		})
	}
}

func TestGameService_RecordFrame_ValidationWrapsInvalidFrame(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	svc := newTestService(repo, nil)

	_, err := svc.RecordFrame(context.Background(), id, rolls(11, 0))
	require.ErrorIs(t, err, ErrInvalidFrame)
	require.ErrorIs(t, err, gamedomain.ErrRollRange)

	var verr *gamedomain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, gamedomain.KindRollRange, verr.Kind)
}

func TestGameService_RecordFrame_NotFound(t *testing.T) {
	svc := newTestService(NewFakeGameRepo(), nil)

	_, err := svc.RecordFrame(context.Background(), uuid.New(), rolls(1, 1))
	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameService_RecordFrame_InlineFinalize(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}...)
	svc := newTestService(repo, nil)

	view, err := svc.RecordFrame(context.Background(), id, rolls(5, 5, 3))
	require.NoError(t, err)
	assert.True(t, view.Complete)
	assert.Equal(t, 31, view.Total)
	require.NotNil(t, view.CompletedAt)
	assert.Equal(t, fixedNow, *view.CompletedAt)

	stored := repo.game(id)
	require.NotNil(t, stored.FinalScore)
	assert.Equal(t, 31, *stored.FinalScore)
	assert.Contains(t, repo.Trace(), "MarkCompleted")
}

func TestGameService_RecordFrame_SchedulesFinalize(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}...)
	scheduler := &FakeScheduler{}
	svc := newTestService(repo, scheduler)

	view, err := svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.NoError(t, err)
	assert.True(t, view.Complete)
	assert.Nil(t, view.CompletedAt)
	assert.Equal(t, []uuid.UUID{id}, scheduler.Scheduled())
	assert.NotContains(t, repo.Trace(), "MarkCompleted")
}

func TestGameService_RecordFrame_SchedulerNotCalledMidGame(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	scheduler := &FakeScheduler{}
	svc := newTestService(repo, scheduler)

	_, err := svc.RecordFrame(context.Background(), id, rolls(3, 3))
	require.NoError(t, err)
	assert.Empty(t, scheduler.Scheduled())
}

func TestGameService_RecordFrame_SchedulerError(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}...)
	svc := newTestService(repo, &FakeScheduler{Err: errors.New("queue down")})

	_, err := svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue down")
}

func TestGameService_RecordFrame_RetryAfterSchedulerErrorReschedules(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}...)
	scheduler := &FakeScheduler{Err: errors.New("queue down")}
	svc := newTestService(repo, scheduler)

	_, err := svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.Error(t, err)
	assert.Empty(t, scheduler.Scheduled())

	scheduler.mu.Lock()
	scheduler.Err = nil
	scheduler.mu.Unlock()

	_, err = svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.ErrorIs(t, err, ErrGameComplete)
	assert.Equal(t, []uuid.UUID{id}, scheduler.Scheduled())

	frames, err := repo.ListFrames(context.Background(), nil, id)
	require.NoError(t, err)
	assert.Len(t, frames, 10)
}

func TestGameService_RecordFrame_RetryStillFailingScheduler(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}...)
	svc := newTestService(repo, &FakeScheduler{Err: errors.New("queue down")})

	_, err := svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrGameComplete)
	assert.Contains(t, err.Error(), "queue down")
}

func TestGameService_RecordFrame_FinalizedGameNotRescheduled(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}...)
	done := fixedNow
	repo.game(id).CompletedAt = &done
	scheduler := &FakeScheduler{}
	svc := newTestService(repo, scheduler)

	_, err := svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.ErrorIs(t, err, ErrGameComplete)
	assert.Empty(t, scheduler.Scheduled())
}

func TestGameService_RecordFrameNotation(t *testing.T) {
	nine := [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}

	tests := []struct {
		name      string
		existing  [][]int
		notation  string
		wantRolls []int
		wantErr   error
	}{
		{name: "strike mid game", notation: "X", wantRolls: []int{10, 0}},
		{name: "ten as strike", notation: "10", wantRolls: []int{10, 0}},
		{name: "spare", notation: "9/", wantRolls: []int{9, 1}},
		{name: "tenth frame turkey", existing: nine, notation: "XXX", wantRolls: []int{10, 10, 10}},
		{name: "tenth frame strike without fill", existing: nine, notation: "X", wantErr: gamedomain.ErrMissingRoll},
		{name: "three symbols mid game", notation: "XXX", wantErr: ErrInvalidFrame},
		{name: "unreadable", notation: "/5", wantErr: ErrInvalidFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeGameRepo()
			id := repo.seedGame("Dale")
			repo.seedFrames(id, tt.existing...)
			svc := newTestService(repo, &FakeScheduler{})

			view, err := svc.RecordFrameNotation(context.Background(), id, tt.notation)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.NotContains(t, repo.Trace(), "InsertFrame")
				return
			}
			require.NoError(t, err)
			last := view.Frames[len(view.Frames)-1]
			assert.Equal(t, len(tt.existing)+1, last.Number)
			assert.Equal(t, tt.wantRolls, last.Rolls)
		})
	}
}

func TestGameService_RecordFrameNotation_PositionReadUnderLock(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, [][]int{{1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}, {1, 1}}...)
	// Another writer commits frame 9 while this request waits on the row lock.
	repo.LockGameFunc = func(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*gamedb.Game, error) {
		repo.seedFrames(gameID, []int{1, 1})
		return repo.lookup(gameID)
	}
	scheduler := &FakeScheduler{}
	svc := newTestService(repo, scheduler)

	view, err := svc.RecordFrameNotation(context.Background(), id, "XXX")
	require.NoError(t, err)
	require.Len(t, view.Frames, 10)
	assert.Equal(t, []int{10, 10, 10}, view.Frames[9].Rolls)
	assert.True(t, view.Complete)
	assert.Equal(t, []uuid.UUID{id}, scheduler.Scheduled())
}

func TestGameService_RecordFrame_CompletedGameRejected(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	done := fixedNow
	repo.game(id).CompletedAt = &done
	svc := newTestService(repo, nil)

	_, err := svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.ErrorIs(t, err, ErrGameComplete)
}

func TestGameService_RecordFrame_Conflict(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.InsertFrameFunc = func(ctx context.Context, db bun.IDB, frame *gamedb.GameFrame) error {
		return gamedb.ErrFrameConflict
	}
	svc := newTestService(repo, nil)

	_, err := svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.ErrorIs(t, err, gamedb.ErrFrameConflict)
}

func TestGameService_RecordFrame_TraceOrder(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	svc := newTestService(repo, nil)

	_, err := svc.RecordFrame(context.Background(), id, rolls(1, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"LockGame", "ListFrames", "InsertFrame"}, repo.Trace())
}

func TestGameService_GetScoreCard(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, []int{10, 0}, []int{3, 4})
	svc := newTestService(repo, nil)

	view, err := svc.GetScoreCard(context.Background(), id)
	require.NoError(t, err)

	want := []gamedomain.FrameScore{
		{Number: 1, Rolls: []int{10, 0}, Type: gamedomain.FrameStrike, FrameScore: 17},
		{Number: 2, Rolls: []int{3, 4}, Type: gamedomain.FrameOpen, FrameScore: 24},
	}
	assert.Equal(t, want, view.Frames)
	assert.Equal(t, 24, view.Total)
	assert.False(t, view.Complete)
	assert.Equal(t, "Dale", view.Bowler)
}

func TestGameService_GetScoreCard_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc := newTestService(NewFakeGameRepo(), nil)
		_, err := svc.GetScoreCard(context.Background(), uuid.New())
		require.ErrorIs(t, err, ErrGameNotFound)
	})

	t.Run("corrupt stored frame", func(t *testing.T) {
		repo := NewFakeGameRepo()
		id := repo.seedGame("Dale")
		repo.seedFrames(id, []int{9, 9})
		svc := newTestService(repo, nil)

		_, err := svc.GetScoreCard(context.Background(), id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "stored frame 1 is invalid")
	})

	t.Run("list frames failure", func(t *testing.T) {
		repo := NewFakeGameRepo()
		id := repo.seedGame("Dale")
		repo.ListFramesFunc = func(ctx context.Context, db bun.IDB, gameID uuid.UUID) ([]gamedb.GameFrame, error) {
			return nil, errors.New("timeout")
		}
		svc := newTestService(repo, nil)

		_, err := svc.GetScoreCard(context.Background(), id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})
}

func TestGameService_FinalizeGame(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, [][]int{{10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 0}, {10, 10, 10}}...)
	svc := newTestService(repo, &FakeScheduler{})

	first, err := svc.FinalizeGame(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 300, first.FinalScore)
	assert.Equal(t, fixedNow, first.CompletedAt)
	assert.Equal(t, "Dale", first.Bowler)

	svc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	second, err := svc.FinalizeGame(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	marks := 0
	for _, step := range repo.Trace() {
		if step == "MarkCompleted" {
			marks++
		}
	}
	assert.Equal(t, 1, marks)
}

func TestGameService_FinalizeGame_Incomplete(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, []int{1, 1}, []int{2, 2})
	svc := newTestService(repo, nil)

	_, err := svc.FinalizeGame(context.Background(), id)
	require.ErrorIs(t, err, ErrGameIncomplete)
	assert.Contains(t, err.Error(), "2 of 10")
}

func TestGameService_FinalizeGame_NotFound(t *testing.T) {
	svc := newTestService(NewFakeGameRepo(), nil)
	_, err := svc.FinalizeGame(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameService_PanicRecovered(t *testing.T) {
	repo := NewFakeGameRepo()
	repo.GetGameFunc = func(ctx context.Context, db bun.IDB, gameID uuid.UUID) (*gamedb.Game, error) {
		panic("boom")
	}
	svc := newTestService(repo, nil)

	_, err := svc.GetScoreCard(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in GetScoreCard")
}

func TestGameService_ImportGame(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	svc := newTestService(repo, nil)

	source := &ScoreCardView{
		Bowler: "Dale",
		Frames: []gamedomain.FrameScore{
			{Number: 1, Rolls: []int{10, 0}, Type: gamedomain.FrameStrike},
			{Number: 2, Rolls: []int{7, 3}, Type: gamedomain.FrameSpare},
			{Number: 3, Rolls: []int{4, 2}, Type: gamedomain.FrameOpen},
		},
	}
	data, err := RenderScoreCardXLSX(source)
	require.NoError(t, err)

	view, err := svc.ImportGame(context.Background(), id, data)
	require.NoError(t, err)
	require.Len(t, view.Frames, 3)
	assert.Equal(t, 20, view.Frames[0].FrameScore)
	assert.Equal(t, 34, view.Frames[1].FrameScore)
	assert.Equal(t, 40, view.Total)
}

func TestGameService_ImportGame_StopsAtInvalidFrame(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	svc := newTestService(repo, nil)

	source := &ScoreCardView{
		Frames: []gamedomain.FrameScore{
			{Number: 1, Rolls: []int{3, 3}},
			{Number: 2, Rolls: []int{8, 8}},
		},
	}
	data, err := RenderScoreCardXLSX(source)
	require.NoError(t, err)

	_, err = svc.ImportGame(context.Background(), id, data)
	require.ErrorIs(t, err, gamedomain.ErrRollSum)
	assert.Contains(t, err.Error(), "frame 2")

	card, err := svc.GetScoreCard(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, card.Frames, 1)
}

func TestGameService_ImportGame_BadSheet(t *testing.T) {
	svc := newTestService(NewFakeGameRepo(), nil)
	_, err := svc.ImportGame(context.Background(), uuid.New(), []byte("not a workbook"))
	require.ErrorIs(t, err, ErrInvalidSheet)
}

func TestGameService_ChartAndExport(t *testing.T) {
	repo := NewFakeGameRepo()
	id := repo.seedGame("Dale")
	repo.seedFrames(id, []int{5, 5}, []int{5, 4})
	svc := newTestService(repo, nil)

	png, err := svc.ScoreCardChart(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, pngMagic, png[:len(pngMagic)])

	xlsx, err := svc.ExportScoreCard(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), xlsx[:2])

	_, err = svc.ExportScoreCard(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrGameNotFound)
}
