package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/store"
)

// TransitionOptions carries caller intent for guarded edges.
type TransitionOptions struct {
	// Confirm must be set for DRAFT->FROZEN and DRAWN->FROZEN.
	Confirm bool `json:"confirm"`
}

// CreateEventRequest represents a request to create a new event
type CreateEventRequest struct {
	Title        string    `json:"title"`
	VenueID      uuid.UUID `json:"venue_id"`
	Date         time.Time `json:"date"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Capacity     int       `json:"capacity"`
	Format       int       `json:"format"`
	RSVPOpensAt  time.Time `json:"rsvp_opens_at"`
	RSVPClosesAt time.Time `json:"rsvp_closes_at"`
	AutoOpen     bool      `json:"auto_open"`
}

// Observer is told about every committed event change.
type Observer interface {
	EventChanged(ctx context.Context, event *models.Event)
}

// RatingApplier settles player ratings for an event inside its transaction.
type RatingApplier interface {
	ApplyEventRatings(ctx context.Context, tx store.EventTx, event *models.Event) error
}
