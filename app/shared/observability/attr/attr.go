// Package attr holds slog attribute helpers so log keys stay consistent
// across modules.
package attr

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
)

type ctxKey string

const correlationIDKey ctxKey = "correlation_id"

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Time(key string, value time.Time) slog.Attr { return slog.Time(key, value) }

// Error logs err under the "error" key. A nil error is logged as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

func StringUUID(key string, id uuid.UUID) slog.Attr { return slog.String(key, id.String()) }

// GameID logs a game identifier.
func GameID(id uuid.UUID) slog.Attr { return slog.String("game_id", id.String()) }

// FrameNumber logs a 1-based frame position.
func FrameNumber(n int) slog.Attr { return slog.Int("frame_number", n) }

// WithCorrelationID stores the correlation id on the context for later log calls.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ExtractCorrelationID reads the correlation id set by WithCorrelationID.
func ExtractCorrelationID(ctx context.Context) slog.Attr {
	if ctx != nil {
		if id, ok := ctx.Value(correlationIDKey).(string); ok {
			return slog.String("correlation_id", id)
		}
	}
	return slog.String("correlation_id", "")
}

// CorrelationIDFromMsg reads the correlation id watermill attached to msg.
func CorrelationIDFromMsg(msg *message.Message) slog.Attr {
	if msg == nil {
		return slog.String("correlation_id", "")
	}
	return slog.String("correlation_id", middleware.MessageCorrelationID(msg))
}
