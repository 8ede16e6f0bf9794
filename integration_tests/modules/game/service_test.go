package game_test

import (
	"sync"
	"testing"
	"time"

	gameservice "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/application"
	gamedb "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/tenpin-bot/integration_tests/modules/game"
	"github.com/Black-And-White-Club/tenpin-bot/integration_tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGeneratedGames(t *testing.T) {
	svc := game.NewService(t, testEnv)
	gen := testutils.NewTestDataGenerator()
	t.Logf("generator seed %d", gen.Seed())

	for n := 0; n < 5; n++ {
		lane := gen.Lane()
		info, err := svc.CreateGame(testEnv.Ctx, gen.BowlerName(), &lane, time.Now().UTC())
		require.NoError(t, err)

		frames := gen.Game()
		var view *gameservice.ScoreCardView
		for i, rolls := range frames {
			view, err = svc.RecordFrame(testEnv.Ctx, info.GameID, game.Ints(rolls))
			require.NoError(t, err, "frame %d %v", i+1, rolls)
		}

		want := testutils.ExpectedScore(frames)
		assert.Equal(t, want, view.Total, "game %v", frames)
		assert.True(t, view.Complete)
		require.NotNil(t, view.CompletedAt, "inline finalization without a queue")

		stored, err := gamedb.NewRepository(testEnv.DB).GetGame(testEnv.Ctx, nil, info.GameID)
		require.NoError(t, err)
		require.NotNil(t, stored.FinalScore)
		assert.Equal(t, want, *stored.FinalScore)

		card, err := svc.GetScoreCard(testEnv.Ctx, info.GameID)
		require.NoError(t, err)
		assert.Equal(t, view.Frames, card.Frames)

		_, err = svc.RecordFrame(testEnv.Ctx, info.GameID, game.Ints([]int{1, 1}))
		assert.ErrorIs(t, err, gameservice.ErrGameComplete)
	}
}

func TestRecordFrame_ConcurrentWritersAreSerialized(t *testing.T) {
	svc := game.NewService(t, testEnv)
	info, err := svc.CreateGame(testEnv.Ctx, "Donny", nil, time.Now().UTC())
	require.NoError(t, err)

	const writers = 4
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordFrame(testEnv.Ctx, info.GameID, game.Ints([]int{3, 4}))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	card, err := svc.GetScoreCard(testEnv.Ctx, info.GameID)
	require.NoError(t, err)
	require.Len(t, card.Frames, writers)
	for i, row := range card.Frames {
		assert.Equal(t, i+1, row.Number)
	}
	assert.Equal(t, 28, card.Total)
}

func TestRecordFrame_RejectsIllegalRolls(t *testing.T) {
	svc := game.NewService(t, testEnv)
	info, err := svc.CreateGame(testEnv.Ctx, "Jesus", nil, time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.RecordFrame(testEnv.Ctx, info.GameID, game.Ints([]int{8, 5}))
	require.Error(t, err)

	card, err := svc.GetScoreCard(testEnv.Ctx, info.GameID)
	require.NoError(t, err)
	assert.Empty(t, card.Frames, "rejected frames are not stored")
}

func TestExportImportRoundTrip(t *testing.T) {
	svc := game.NewService(t, testEnv)
	gen := testutils.NewTestDataGenerator()

	source, err := svc.CreateGame(testEnv.Ctx, gen.BowlerName(), nil, time.Now().UTC())
	require.NoError(t, err)
	frames := gen.Game()
	for _, rolls := range frames {
		_, err := svc.RecordFrame(testEnv.Ctx, source.GameID, game.Ints(rolls))
		require.NoError(t, err)
	}

	data, err := svc.ExportScoreCard(testEnv.Ctx, source.GameID)
	require.NoError(t, err)

	target, err := svc.CreateGame(testEnv.Ctx, gen.BowlerName(), nil, time.Now().UTC())
	require.NoError(t, err)
	view, err := svc.ImportGame(testEnv.Ctx, target.GameID, data)
	require.NoError(t, err)
	assert.Equal(t, testutils.ExpectedScore(frames), view.Total)
	assert.True(t, view.Complete)

	chart, err := svc.ScoreCardChart(testEnv.Ctx, target.GameID)
	require.NoError(t, err)
	assert.NotEmpty(t, chart)
}
