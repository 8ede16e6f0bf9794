package game

import (
	"testing"

	gameservice "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/application"
	gamedb "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories"
	gamemetrics "github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/metrics/game"
	"github.com/Black-And-White-Club/tenpin-bot/integration_tests/testutils"
	"go.opentelemetry.io/otel/trace/noop"
)

// NewService builds a game service on the environment's database with a
// clean schema.
func NewService(t *testing.T, env *testutils.TestEnvironment) *gameservice.GameService {
	t.Helper()
	if err := env.ResetDatabase(env.Ctx); err != nil {
		t.Fatalf("reset database: %v", err)
	}
	return gameservice.NewGameService(
		gamedb.NewRepository(env.DB),
		env.Logger,
		gamemetrics.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		env.DB,
		nil,
	)
}

// Ints converts rolls to the optional form RecordFrame takes.
func Ints(rolls []int) []*int {
	out := make([]*int, len(rolls))
	for i := range rolls {
		v := rolls[i]
		out[i] = &v
	}
	return out
}
