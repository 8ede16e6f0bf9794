package gamequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/attr"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
)

const (
	queueName     = "game"
	componentName = "river"
)

// Metrics is the subset of the game metrics the queue records.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// QueueService schedules background game jobs.
type QueueService interface {
	// ScheduleFinalize enqueues a finalize job for a game. Duplicate requests
	// for the same game collapse into one job.
	ScheduleFinalize(ctx context.Context, gameID uuid.UUID) error
	// GetScheduledJobs returns the jobs queued for a game (for debugging)
	GetScheduledJobs(ctx context.Context, gameID uuid.UUID) ([]JobInfo, error)
	// HealthCheck verifies the queue service is healthy
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Ensure Service implements QueueService
var _ QueueService = (*Service)(nil)

// Service runs game jobs on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics Metrics
}

// Config tunes the River client.
type Config struct {
	DSN         string
	MaxWorkers  int
	MaxAttempts int
}

// NewService creates the River queue, migrating River's tables first.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, cfg Config, metrics Metrics, finalizer Finalizer, publisher message.Publisher) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_game_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", componentName)

	fail := func(msg string, err error) (*Service, error) {
		ctxLogger.Error(msg, attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_service", componentName)
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	// River requires pgx, not database/sql
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return fail("failed to parse DSN", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fail("failed to create pgx pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fail("failed to ping database", err)
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		pool.Close()
		return fail("failed to create river migrator", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		pool.Close()
		return fail("failed to migrate river tables", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewFinalizeGameWorker(ctxLogger, finalizer, publisher))

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 1},
			queueName:          {MaxWorkers: maxWorkers},
		},
		MaxAttempts: maxAttempts,
		Workers:     workers,
	})
	if err != nil {
		pool.Close()
		return fail("failed to create River client", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", componentName)
	metrics.RecordOperationDuration(ctx, "initialize_service", componentName, time.Since(start))

	ctxLogger.Info("Game queue service initialized successfully")
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
	}, nil
}

// Start starts the River queue service
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", componentName)

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "start_service", componentName)
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", componentName)
	s.metrics.RecordOperationDuration(ctx, "start_service", componentName, time.Since(start))
	s.logger.Info("Game queue service started successfully")
	return nil
}

// Stop stops the River client and closes its pool.
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", componentName)
	defer s.pool.Close()

	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", componentName)
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", componentName)
	s.metrics.RecordOperationDuration(ctx, "stop_service", componentName, time.Since(start))
	s.logger.Info("Game queue service stopped successfully")
	return nil
}

// ScheduleFinalize enqueues a finalize job for the game.
func (s *Service) ScheduleFinalize(ctx context.Context, gameID uuid.UUID) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "schedule_finalize", componentName)

	ctxLogger := s.logger.With(
		attr.GameID(gameID),
		attr.String("operation", "schedule_finalize"),
	)

	jobResult, err := s.client.Insert(ctx, FinalizeGameArgs{GameID: gameID.String()}, &river.InsertOpts{
		Queue: queueName,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to schedule finalize job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "schedule_finalize", componentName)
		return fmt.Errorf("failed to schedule finalize job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "schedule_finalize", componentName)
	s.metrics.RecordOperationDuration(ctx, "schedule_finalize", componentName, time.Since(start))

	ctxLogger.Info("Finalize job scheduled",
		attr.Any("job_id", jobResult.Job.ID),
		attr.Bool("duplicate", jobResult.UniqueSkippedAsDuplicate),
	)
	return nil
}

// GetScheduledJobs returns the finalize jobs recorded for a game.
func (s *Service) GetScheduledJobs(ctx context.Context, gameID uuid.UUID) ([]JobInfo, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "get_scheduled_jobs", componentName)

	type RiverJobRow struct {
		ID          int64      `bun:"id"`
		Kind        string     `bun:"kind"`
		State       string     `bun:"state"`
		ScheduledAt *time.Time `bun:"scheduled_at"`
		CreatedAt   time.Time  `bun:"created_at"`
		Attempt     int16      `bun:"attempt"`
		MaxAttempts int16      `bun:"max_attempts"`
	}

	var jobs []RiverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "kind", "state", "scheduled_at", "created_at", "attempt", "max_attempts").
		Where("kind = ?", FinalizeGameArgs{}.Kind()).
		Where("args->>'game_id' = ?", gameID.String()).
		Order("scheduled_at ASC NULLS LAST", "created_at ASC").
		Scan(ctx, &jobs)
	if err != nil {
		s.logger.Error("Failed to query scheduled jobs", attr.GameID(gameID), attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "get_scheduled_jobs", componentName)
		return nil, fmt.Errorf("failed to query scheduled jobs: %w", err)
	}

	result := make([]JobInfo, len(jobs))
	for i, job := range jobs {
		result[i] = toJobInfo(gameID, job.ID, job.Kind, job.State, job.ScheduledAt, job.CreatedAt, int(job.Attempt), int(job.MaxAttempts))
	}

	s.metrics.RecordOperationSuccess(ctx, "get_scheduled_jobs", componentName)
	s.metrics.RecordOperationDuration(ctx, "get_scheduled_jobs", componentName, time.Since(start))
	return result, nil
}

func toJobInfo(gameID uuid.UUID, id int64, kind, state string, scheduledAt *time.Time, createdAt time.Time, attempt, maxAttempts int) JobInfo {
	scheduled := ""
	if scheduledAt != nil {
		scheduled = scheduledAt.Format(time.RFC3339)
	}
	return JobInfo{
		ID:          id,
		Kind:        kind,
		GameID:      gameID.String(),
		State:       state,
		ScheduledAt: scheduled,
		CreatedAt:   createdAt.Format(time.RFC3339),
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
	}
}

// HealthCheck verifies the queue service is healthy
func (s *Service) HealthCheck(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "health_check", componentName)

	if s.client == nil {
		s.metrics.RecordOperationFailure(ctx, "health_check", componentName)
		return fmt.Errorf("river client is nil")
	}

	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "health_check", componentName)
		return fmt.Errorf("queue service health check failed: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "health_check", componentName)
	s.logger.Debug("Queue service health check passed", attr.Int("total_jobs", count))
	return nil
}

// GetClient returns the underlying River client for advanced operations
func (s *Service) GetClient() *river.Client[pgx.Tx] {
	return s.client
}
