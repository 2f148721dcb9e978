// Package store defines the persistence contract the game night core consumes.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/models"
)

// Store is durable storage for events, RSVPs, venues, players and draws.
// Reads outside WithEventTx see committed data only.
type Store interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListEventsByState(ctx context.Context, states ...models.EventState) ([]*models.Event, error)
	// ListPublishedEvents returns PUBLISHED events with StartsAt <= asOf,
	// most recent first, ties by event id.
	ListPublishedEvents(ctx context.Context, asOf time.Time, limit int) ([]*models.Event, error)

	GetRSVP(ctx context.Context, id uuid.UUID) (*models.RSVP, error)
	ListRSVPs(ctx context.Context, eventID uuid.UUID) ([]*models.RSVP, error)

	GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error)
	PutVenue(ctx context.Context, venue *models.Venue) error

	GetPlayer(ctx context.Context, id uuid.UUID) (*models.PlayerProfile, error)
	PutPlayer(ctx context.Context, player *models.PlayerProfile) error
	ListPlayers(ctx context.Context, ids []uuid.UUID) ([]*models.PlayerProfile, error)

	GetDraw(ctx context.Context, eventID uuid.UUID) (*models.Draw, error)
	ListResults(ctx context.Context, eventID uuid.UUID) ([]*models.MatchResult, error)

	// WithEventTx runs fn with exclusive access to one event and its children.
	// Writes made through the EventTx become visible together when fn returns nil,
	// and not at all otherwise.
	WithEventTx(ctx context.Context, eventID uuid.UUID, fn func(tx EventTx) error) error
}

// EventTx is the per-event transactional scope.
type EventTx interface {
	// Event returns the event row as loaded when the scope was entered, or as last saved.
	Event() *models.Event
	// SaveEvent writes the event if event.Version matches the stored version,
	// then bumps event.Version. A mismatch is ConcurrentModification.
	SaveEvent(ctx context.Context, event *models.Event) error
	// NextRSVPPosition increments and returns the per-event position sequence.
	NextRSVPPosition(ctx context.Context) (int64, error)

	GetRSVP(ctx context.Context, id uuid.UUID) (*models.RSVP, error)
	ListRSVPs(ctx context.Context) ([]*models.RSVP, error)
	// InsertRSVP fails with DuplicateRSVP if the player already holds an active RSVP.
	InsertRSVP(ctx context.Context, rsvp *models.RSVP) error
	UpdateRSVP(ctx context.Context, rsvp *models.RSVP) error

	GetDraw(ctx context.Context) (*models.Draw, error)
	SaveDraw(ctx context.Context, draw *models.Draw) error
	// DeleteDraw removes the draw and every result recorded against it.
	DeleteDraw(ctx context.Context) error
	SaveResult(ctx context.Context, result *models.MatchResult) error
	ListResults(ctx context.Context) ([]*models.MatchResult, error)

	ListPlayers(ctx context.Context, ids []uuid.UUID) ([]*models.PlayerProfile, error)
	UpdatePlayerRating(ctx context.Context, playerID uuid.UUID, rating float64) error
}
