package gamemetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GameMetrics records service-level counters for the game module.
type GameMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, d time.Duration)
	RecordFrameRecorded(ctx context.Context, frameType string)
	RecordGameCompleted(ctx context.Context, finalScore int)
}

type prometheusMetrics struct {
	attempts   *prometheus.CounterVec
	successes  *prometheus.CounterVec
	failures   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	frames     *prometheus.CounterVec
	finalScore prometheus.Histogram
}

// NewPrometheus registers the game collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (GameMetrics, error) {
	m := &prometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenpin",
			Subsystem: "game",
			Name:      "operation_attempts_total",
			Help:      "Service operations started.",
		}, []string{"operation", "service"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenpin",
			Subsystem: "game",
			Name:      "operation_success_total",
			Help:      "Service operations that returned without an infrastructure error.",
		}, []string{"operation", "service"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenpin",
			Subsystem: "game",
			Name:      "operation_failures_total",
			Help:      "Service operations that failed with an infrastructure error or panic.",
		}, []string{"operation", "service"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tenpin",
			Subsystem: "game",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "service"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tenpin",
			Subsystem: "game",
			Name:      "frames_recorded_total",
			Help:      "Frames recorded, by frame type.",
		}, []string{"type"}),
		finalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tenpin",
			Subsystem: "game",
			Name:      "final_score",
			Help:      "Distribution of completed game scores.",
			Buckets:   prometheus.LinearBuckets(0, 30, 11),
		}),
	}

	for _, c := range []prometheus.Collector{m.attempts, m.successes, m.failures, m.durations, m.frames, m.finalScore} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register game metric: %w", err)
		}
	}
	return m, nil
}

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(operation, service).Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, d time.Duration) {
	m.durations.WithLabelValues(operation, service).Observe(d.Seconds())
}

func (m *prometheusMetrics) RecordFrameRecorded(_ context.Context, frameType string) {
	m.frames.WithLabelValues(frameType).Inc()
}

func (m *prometheusMetrics) RecordGameCompleted(_ context.Context, finalScore int) {
	m.finalScore.Observe(float64(finalScore))
}

type noop struct{}

// NewNoop returns metrics that record nothing.
func NewNoop() GameMetrics { return noop{} }

func (noop) RecordOperationAttempt(context.Context, string, string)                 {}
func (noop) RecordOperationSuccess(context.Context, string, string)                 {}
func (noop) RecordOperationFailure(context.Context, string, string)                 {}
func (noop) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (noop) RecordFrameRecorded(context.Context, string)                            {}
func (noop) RecordGameCompleted(context.Context, int)                               {}
