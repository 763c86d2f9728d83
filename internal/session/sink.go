package session

import (
	"context"

	"github.com/rs/zerolog/log"
)

// EventSink receives usage events for external consumers (analytics,
// billing). Delivery is best-effort; implementations must not block command
// handling.
type EventSink interface {
	Publish(ctx context.Context, name string, props map[string]interface{})
}

// NopSink discards every event. The default when no consumer is configured.
type NopSink struct{}

func (NopSink) Publish(context.Context, string, map[string]interface{}) {}

// LogSink writes usage events to the structured log. Good enough until a
// real analytics pipeline exists.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, name string, props map[string]interface{}) {
	log.Info().Str("event", name).Fields(props).Msg("usage event")
}
