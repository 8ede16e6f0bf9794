package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	gamemigrations "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/eventbus"
	gameevents "github.com/Black-And-White-Club/tenpin-bot/app/shared/events/game"
	"github.com/Black-And-White-Club/tenpin-bot/config"
	"github.com/Black-And-White-Club/tenpin-bot/integration_tests/containers"
)

// IntegrationEnvVar must be "1" for container-backed tests to run.
const IntegrationEnvVar = "INTEGRATION"

// Enabled reports whether container-backed tests should run.
func Enabled() bool {
	return os.Getenv(IntegrationEnvVar) == "1"
}

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Config        *config.Config
	Logger        *slog.Logger
}

// NewTestEnvironment starts Postgres and NATS, migrates the schema and
// provisions the bowling stream.
func NewTestEnvironment() (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	env.PgContainer = pgContainer

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		env.Cleanup()
		return nil, err
	}
	env.NatsContainer = natsContainer

	env.Config = &config.Config{
		Postgres: config.PostgresConfig{DSN: dsn},
		NATS:     config.NATSConfig{URL: natsURL},
		Queue:    config.QueueConfig{MaxWorkers: 2, MaxAttempts: 3},
		Router:   config.RouterConfig{MaxRetries: 1},
	}

	env.DB = bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), pgdialect.New())
	if err := runMigrations(ctx, env.DB); err != nil {
		env.Cleanup()
		return nil, err
	}

	bus, err := eventbus.NewEventBus(ctx, eventbus.Config{URL: natsURL, DurablePrefix: "tenpin-test"}, env.Logger)
	if err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to create EventBus: %w", err)
	}
	env.EventBus = bus
	if err := bus.CreateStream(ctx, gameevents.StreamName, gameevents.StreamSubjects...); err != nil {
		env.Cleanup()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return env, nil
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, gamemigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// ResetDatabase empties the game tables between tests.
func (env *TestEnvironment) ResetDatabase(ctx context.Context) error {
	if _, err := env.DB.ExecContext(ctx, "TRUNCATE TABLE game_frames, games CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate game tables: %w", err)
	}
	return nil
}

// Cleanup releases connections and terminates containers.
func (env *TestEnvironment) Cleanup() {
	if env.EventBus != nil {
		if err := env.EventBus.Close(); err != nil {
			log.Printf("Error closing EventBus: %v", err)
		}
	}
	if env.DB != nil {
		env.DB.Close()
	}
	if env.NatsContainer != nil {
		if err := env.NatsContainer.Terminate(context.Background()); err != nil {
			log.Printf("Failed to terminate NATS container: %v", err)
		}
	}
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(context.Background()); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}
	env.CancelContext()
}
