package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/tenpin-bot/app/modules/game"
	gamemigrations "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/eventbus"
	gameevents "github.com/Black-And-White-Club/tenpin-bot/app/shared/events/game"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/attr"
	"github.com/Black-And-White-Club/tenpin-bot/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const shutdownTimeout = 10 * time.Second

// App holds the running service: database, event bus, router and modules.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Router        *message.Router
	GameModule    *game.Module

	httpServer    *http.Server
	metricsServer *http.Server
	routerCtx     context.Context
	routerCancel  context.CancelFunc
	wg            sync.WaitGroup
}

// NewApp connects infrastructure and builds the modules. Nothing is served
// until Run is called.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs, err := observability.Init(ctx, config.ToObsConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	logger := obs.Provider.Logger

	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN))), pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	bus, err := eventbus.NewEventBus(ctx, eventbus.Config{URL: cfg.NATS.URL}, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	if err := bus.CreateStream(ctx, gameevents.StreamName, gameevents.StreamSubjects...); err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", gameevents.StreamName, err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 5 * time.Second}, watermill.NewSlogLogger(logger))
	if err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}

	routerCtx, routerCancel := context.WithCancel(context.Background())

	gameModule, err := game.NewGameModule(ctx, cfg, obs, bus, router, routerCtx, db)
	if err != nil {
		routerCancel()
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create game module: %w", err)
	}

	a := &App{
		Config:        cfg,
		Observability: obs,
		DB:            db,
		EventBus:      bus,
		Router:        router,
		GameModule:    gameModule,
		routerCtx:     routerCtx,
		routerCancel:  routerCancel,
	}
	a.httpServer = &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if obs.Registry.Prometheus != nil {
		a.metricsServer = &http.Server{
			Addr:              cfg.Observability.MetricsAddress,
			Handler:           promhttp.HandlerFor(obs.Registry.Prometheus, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return a, nil
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

// Handler is the root HTTP handler: health checks plus the game API under /api.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if q := a.GameModule.QueueService; q != nil {
			if err := q.HealthCheck(r.Context()); err != nil {
				http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Mount("/api", a.GameModule.Routes())
	return r
}

// Run starts the router, modules and HTTP servers, then blocks until ctx is
// canceled.
func (a *App) Run(ctx context.Context) error {
	logger := a.Observability.Provider.Logger

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.Router.Run(a.routerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Watermill router stopped", attr.Error(err))
		}
	}()
	<-a.Router.Running()

	a.wg.Add(1)
	go a.GameModule.Run(ctx, &a.wg)

	errCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		logger.Info("HTTP server listening", attr.String("server", name), attr.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go serve("api", a.httpServer)
	if a.metricsServer != nil {
		go serve("metrics", a.metricsServer)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops everything in reverse start order.
func (a *App) Close() error {
	logger := a.Observability.Provider.Logger
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if err := a.GameModule.Close(); err != nil {
		errs = append(errs, err)
	}
	a.routerCancel()
	a.wg.Wait()
	if err := a.EventBus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event bus close: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("Shutdown finished with errors", attr.Error(err))
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}
