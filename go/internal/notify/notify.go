// Package notify fans state changes out to players and live listeners.
// Delivery is best effort: a failed or dropped notification never fails the
// operation that produced it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names what happened.
type Kind string

const (
	KindRSVPConfirmed     Kind = "rsvp.confirmed"
	KindRSVPWaitlisted    Kind = "rsvp.waitlisted"
	KindRSVPPromoted      Kind = "rsvp.promoted"
	KindRSVPCancelled     Kind = "rsvp.cancelled"
	KindRSVPDeclined      Kind = "rsvp.declined"
	KindEventStateChanged Kind = "event.state_changed"
	KindDrawGenerated     Kind = "draw.generated"
	KindResultRecorded    Kind = "draw.result_recorded"
)

// Notification is one fire-and-forget message about an event.
type Notification struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	EventID  uuid.UUID `json:"event_id"`
	PlayerID uuid.UUID `json:"player_id,omitempty"`
	RSVPID   uuid.UUID `json:"rsvp_id,omitempty"`
	// Status is the RSVP status or the event state, depending on Kind.
	Status   string    `json:"status,omitempty"`
	Position int64     `json:"position,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier accepts notifications. Implementations must not block the caller
// for long and must not report delivery failures.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Publisher delivers one notification to one destination.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }
