package game

import (
	"context"
	"fmt"
	"sync"

	gameservice "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/application"
	gamehandlers "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/handlers"
	gamehttp "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/http"
	gamequeue "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/queue"
	gamedb "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories"
	gamerouter "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/router"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/eventbus"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability"
	"github.com/Black-And-White-Club/tenpin-bot/config"
	"github.com/Black-And-White-Club/tenpin-bot/pkg/jwt"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// Module represents the game module.
type Module struct {
	GameService   *gameservice.GameService
	GameRouter    *gamerouter.GameRouter
	QueueService  *gamequeue.Service
	HTTPHandlers  *gamehttp.GameHTTPHandlers
	httpOptions   gamehttp.Options
	cancelFunc    context.CancelFunc
	observability observability.Observability
}

// NewGameModule creates and initializes a new game module.
func NewGameModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	eventBus eventbus.EventBus,
	router *message.Router,
	routerCtx context.Context,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer
	metrics := obs.Registry.GameMetrics

	logger.InfoContext(ctx, "game.NewGameModule initializing")

	// 1. Initialize Repository
	repo := gamedb.NewRepository(db)

	// 2. Initialize Service. Finalization runs inline until a queue is attached.
	service := gameservice.NewGameService(repo, logger, metrics, tracer, db, nil)

	// 3. Initialize the finalize queue
	var queue *gamequeue.Service
	if cfg.Queue.Enabled {
		q, err := gamequeue.NewService(ctx, db, logger, gamequeue.Config{
			DSN:         cfg.Postgres.DSN,
			MaxWorkers:  cfg.Queue.MaxWorkers,
			MaxAttempts: cfg.Queue.MaxAttempts,
		}, metrics, service, eventBus)
		if err != nil {
			return nil, fmt.Errorf("failed to create game queue: %w", err)
		}
		service.SetScheduler(q)
		queue = q
	}

	// 4. Initialize Handlers
	handlers := gamehandlers.NewGameHandlers(service, logger, tracer)

	// 5. Initialize Router
	gameRouter := gamerouter.NewGameRouter(
		logger,
		router,
		eventBus,
		eventBus,
		tracer,
		obs.Registry.Prometheus,
		cfg.Router.MaxRetries,
	)

	// 6. Configure the router with handlers
	if err := gameRouter.Configure(routerCtx, handlers); err != nil {
		return nil, fmt.Errorf("failed to configure game router: %w", err)
	}

	// 7. REST API
	opts := gamehttp.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      rate.Limit(cfg.HTTP.RateLimit),
		RateBurst:      cfg.HTTP.RateBurst,
	}
	if cfg.JWT.Secret != "" {
		opts.Tokens = jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer)
	} else {
		logger.WarnContext(ctx, "JWT secret not configured, game write routes are open")
	}

	return &Module{
		GameService:   service,
		GameRouter:    gameRouter,
		QueueService:  queue,
		HTTPHandlers:  gamehttp.NewGameHTTPHandlers(service, eventBus, logger),
		httpOptions:   opts,
		observability: obs,
	}, nil
}

// Routes returns the module's REST routes, meant to be mounted under /api.
func (m *Module) Routes() chi.Router {
	return m.HTTPHandlers.Routes(m.httpOptions)
}

// Run starts the game module.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting game module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.QueueService != nil {
		if err := m.QueueService.Start(context.WithoutCancel(ctx)); err != nil {
			logger.ErrorContext(ctx, "Failed to start game queue", "error", err)
		}
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Game module goroutine stopped")
}

// Close shuts down the game module.
func (m *Module) Close() error {
	logger := m.observability.Provider.Logger
	logger.Info("Stopping game module")

	// River stops hard when its start context is canceled, so drain it first.
	var errs []error
	if m.QueueService != nil {
		if err := m.QueueService.Stop(context.Background()); err != nil {
			logger.Error("Error stopping game queue", "error", err)
			errs = append(errs, fmt.Errorf("error stopping game queue: %w", err))
		}
	}

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.GameRouter != nil {
		if err := m.GameRouter.Close(); err != nil {
			logger.Error("Error closing GameRouter from module", "error", err)
			errs = append(errs, fmt.Errorf("error closing GameRouter: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}

	logger.Info("Game module stopped")
	return nil
}
