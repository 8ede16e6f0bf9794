// Package observability bundles the logger, tracer and metrics registry that
// every module receives at construction time.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"

	gamemetrics "github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/metrics/game"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "github.com/Black-And-White-Club/tenpin-bot"

// Config controls how observability is initialized.
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string
	// MetricsEnabled registers Prometheus collectors; otherwise metrics are no-ops.
	MetricsEnabled bool
}

// Provider owns the process-wide logging and tracing setup.
type Provider struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// Registry carries the handles modules pull from.
type Registry struct {
	Tracer      trace.Tracer
	Prometheus  *prometheus.Registry
	GameMetrics gamemetrics.GameMetrics
}

// Observability is passed to module constructors.
type Observability struct {
	Provider *Provider
	Registry *Registry
}

// Init builds an Observability bundle. The global otel tracer provider is used
// so an exporter configured by the environment is picked up automatically.
func Init(ctx context.Context, cfg Config) (Observability, error) {
	logger := newLogger(cfg)
	tp := otel.GetTracerProvider()

	reg := &Registry{
		Tracer:      tp.Tracer(tracerName),
		GameMetrics: gamemetrics.NewNoop(),
	}

	if cfg.MetricsEnabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := gamemetrics.NewPrometheus(promReg)
		if err != nil {
			return Observability{}, err
		}
		reg.Prometheus = promReg
		reg.GameMetrics = metrics
	}

	logger.InfoContext(ctx, "Observability initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled),
	)

	return Observability{
		Provider: &Provider{Logger: logger, TracerProvider: tp},
		Registry: reg,
	}, nil
}

// NewNoop returns a bundle that discards everything except logs, which go to logger.
func NewNoop(logger *slog.Logger) Observability {
	if logger == nil {
		logger = slog.Default()
	}
	tp := noop.NewTracerProvider()
	return Observability{
		Provider: &Provider{Logger: logger, TracerProvider: tp},
		Registry: &Registry{
			Tracer:      tp.Tracer(tracerName),
			GameMetrics: gamemetrics.NewNoop(),
		},
	}
}

func newLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.Environment == "development" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
