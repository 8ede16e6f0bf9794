package handlerwrapper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/Black-And-White-Club/tenpin-bot/app/shared/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type ping struct {
	Value int `json:"value"`
}

type pong struct {
	Doubled int `json:"doubled"`
}

func newInbound(t *testing.T, body any) *message.Message {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	msg := message.NewMessage(watermill.NewUUID(), raw)
	middleware.SetCorrelationID("corr-1", msg)
	return msg
}

func TestWrapTransformingTyped(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name      string
		msg       func(t *testing.T) *message.Message
		handler   TypedHandler[ping]
		wantErr   bool
		wantCount int
		check     func(t *testing.T, out []*message.Message)
	}{
		{
			name: "encodes results with topic and correlation id",
			msg:  func(t *testing.T) *message.Message { return newInbound(t, ping{Value: 21}) },
			handler: func(ctx context.Context, p *ping) ([]Result, error) {
				assert.Equal(t, "corr-1", attr.ExtractCorrelationID(ctx).Value.String())
				return []Result{{Topic: "out.v1", Payload: pong{Doubled: p.Value * 2}, Metadata: map[string]string{"k": "v"}}}, nil
			},
			wantCount: 1,
			check: func(t *testing.T, out []*message.Message) {
				assert.Equal(t, "out.v1", out[0].Metadata.Get(MetadataTopic))
				assert.Equal(t, "v", out[0].Metadata.Get("k"))
				assert.Equal(t, "corr-1", middleware.MessageCorrelationID(out[0]))
				var got pong
				require.NoError(t, json.Unmarshal(out[0].Payload, &got))
				assert.Equal(t, 42, got.Doubled)
			},
		},
		{
			name: "undecodable payload is dropped",
			msg: func(t *testing.T) *message.Message {
				return message.NewMessage(watermill.NewUUID(), []byte("{not json"))
			},
			handler: func(context.Context, *ping) ([]Result, error) {
				t.Fatal("handler must not run")
				return nil, nil
			},
		},
		{
			name: "handler error propagates",
			msg:  func(t *testing.T) *message.Message { return newInbound(t, ping{}) },
			handler: func(context.Context, *ping) ([]Result, error) {
				return nil, errors.New("db down")
			},
			wantErr: true,
		},
		{
			name: "reply_to is exposed on context",
			msg: func(t *testing.T) *message.Message {
				m := newInbound(t, ping{})
				m.Metadata.Set("reply_to", "inbox.1")
				return m
			},
			handler: func(ctx context.Context, _ *ping) ([]Result, error) {
				assert.Equal(t, "inbox.1", ctx.Value(CtxKeyReplyTo))
				return nil, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := WrapTransformingTyped("test.handler", logger, tracer, tt.handler)
			out, err := h(tt.msg(t))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, out, tt.wantCount)
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}

func TestNewJSONMessage(t *testing.T) {
	ctx := attr.WithCorrelationID(context.Background(), "c-9")
	m, err := NewJSONMessage(ctx, "bowling.game.completed.v1", pong{Doubled: 1})
	require.NoError(t, err)
	assert.Equal(t, "bowling.game.completed.v1", m.Metadata.Get(MetadataTopic))
	assert.Equal(t, "c-9", middleware.MessageCorrelationID(m))

	_, err = NewJSONMessage(context.Background(), "x", make(chan int))
	assert.Error(t, err)
}
