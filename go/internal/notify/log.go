package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LogPublisher writes notifications to the structured log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, n Notification) error {
	ev := log.Info().
		Str("kind", string(n.Kind)).
		Str("event_id", n.EventID.String())
	if n.PlayerID != uuid.Nil {
		ev = ev.Str("player_id", n.PlayerID.String())
	}
	if n.Status != "" {
		ev = ev.Str("status", n.Status)
	}
	ev.Msg("notification")
	return nil
}
