package gamerouter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gamehandlers "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/infrastructure/handlers"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/eventbus"
	gameevents "github.com/Black-And-White-Club/tenpin-bot/app/shared/events/game"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/handlerwrapper"
	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

const (
	TestEnvironmentFlag  = "APP_ENV"
	TestEnvironmentValue = "test"
)

// GameRouter registers the game handlers on a Watermill router.
type GameRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     eventbus.EventBus
	publisher      eventbus.EventBus
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
	maxRetries     int
}

// NewGameRouter creates a new GameRouter. Router metrics are registered on
// prometheusRegistry unless it is nil or APP_ENV=test.
func NewGameRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber eventbus.EventBus,
	publisher eventbus.EventBus,
	tracer trace.Tracer,
	prometheusRegistry *prometheus.Registry,
	maxRetries int,
) *GameRouter {
	inTestEnv := os.Getenv(TestEnvironmentFlag) == TestEnvironmentValue
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil && !inTestEnv {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "tenpin", "router")
		metricsBuilder = &builder
	}

	return &GameRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		publisher:      publisher,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
		maxRetries:     maxRetries,
	}
}

// Configure adds middleware and registers the game handlers.
func (r *GameRouter) Configure(routerCtx context.Context, handlers gamehandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.logger.Info("Adding Prometheus router metrics middleware")
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	} else {
		r.logger.Info("Skipping Prometheus router metrics middleware - either in test environment or metrics not configured")
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{MaxRetries: r.maxRetries, Logger: watermill.NewSlogLogger(r.logger)}.Middleware,
	)

	if err := r.RegisterHandlers(routerCtx, handlers); err != nil {
		return fmt.Errorf("failed to register handlers: %w", err)
	}
	return nil
}

// RegisterHandlers subscribes each request topic to its handler.
func (r *GameRouter) RegisterHandlers(ctx context.Context, handlers gamehandlers.Handlers) error {
	eventsToHandlers := map[string]message.HandlerFunc{
		gameevents.FrameRecordRequestedV1: handlerwrapper.WrapTransformingTyped(
			"game."+gameevents.FrameRecordRequestedV1, r.logger, r.tracer, handlers.HandleFrameRecordRequested,
		),
		gameevents.ScoreCardRequestedV1: handlerwrapper.WrapTransformingTyped(
			"game."+gameevents.ScoreCardRequestedV1, r.logger, r.tracer, handlers.HandleScoreCardRequested,
		),
		gameevents.GameFinalizeRequestedV1: handlerwrapper.WrapTransformingTyped(
			"game."+gameevents.GameFinalizeRequestedV1, r.logger, r.tracer, handlers.HandleGameFinalizeRequested,
		),
	}

	for topic, handlerFunc := range eventsToHandlers {
		handlerName := "game." + topic
		r.Router.AddHandler(
			handlerName,
			topic,
			r.subscriber,
			"",
			nil,
			func(msg *message.Message) ([]*message.Message, error) {
				messages, err := handlerFunc(msg)
				if err != nil {
					r.logger.ErrorContext(ctx, "Error processing message", attr.String("message_id", msg.UUID), attr.Error(err))
					return nil, err
				}

				for _, m := range messages {
					publishTopic := m.Metadata.Get(handlerwrapper.MetadataTopic)
					if publishTopic == "" {
						r.logger.Error("router failed to resolve publish topic - MESSAGE DROPPED",
							attr.String("handler", handlerName),
							attr.String("msg_uuid", m.UUID),
							attr.CorrelationIDFromMsg(m),
						)
						continue
					}

					r.logger.InfoContext(ctx, "publishing message",
						attr.String("topic", publishTopic),
						attr.String("handler", handlerName),
						attr.CorrelationIDFromMsg(m),
					)
					if err := r.publisher.Publish(publishTopic, m); err != nil {
						return nil, fmt.Errorf("failed to publish to %s: %w", publishTopic, err)
					}
				}
				return nil, nil
			},
		)
	}
	return nil
}

// Close shuts down the router.
func (r *GameRouter) Close() error {
	return r.Router.Close()
}
