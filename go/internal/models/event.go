package models

import (
	"time"

	"github.com/google/uuid"
)

// EventState defines where an event is in its lifecycle.
type EventState string

const (
	EventStateDraft     EventState = "DRAFT"
	EventStateOpen      EventState = "OPEN"
	EventStateFrozen    EventState = "FROZEN"
	EventStateDrawn     EventState = "DRAWN"
	EventStatePublished EventState = "PUBLISHED"
)

// Valid reports whether s is a known event state.
func (s EventState) Valid() bool {
	switch s {
	case EventStateDraft, EventStateOpen, EventStateFrozen, EventStateDrawn, EventStatePublished:
		return true
	default:
		return false
	}
}

// DefaultPlayersPerMatch is the doubles format.
const DefaultPlayersPerMatch = 4

// Event is a single game night.
type Event struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	VenueID      uuid.UUID  `json:"venue_id"`
	Date         time.Time  `json:"date"`
	StartsAt     time.Time  `json:"starts_at"`
	EndsAt       time.Time  `json:"ends_at"`
	Capacity     int        `json:"capacity"`
	Format       int        `json:"format"` // players per match
	RSVPOpensAt  time.Time  `json:"rsvp_opens_at"`
	RSVPClosesAt time.Time  `json:"rsvp_closes_at"`
	AutoOpen     bool       `json:"auto_open"`
	State        EventState `json:"state"`

	// RSVPSeq is the last position handed out for this event. Maintained by the store.
	RSVPSeq int64 `json:"-"`
	// Version is bumped on every committed write of the event row.
	Version int64 `json:"version"`

	// RosterSnapshot is the ordered roster captured at OPEN -> FROZEN.
	RosterSnapshot []SnapshotEntry `json:"roster_snapshot,omitempty"`

	StateChangedAt time.Time  `json:"state_changed_at"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	FrozenAt       *time.Time `json:"frozen_at,omitempty"`
	DrawnAt        *time.Time `json:"drawn_at,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`

	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlayersPerMatch returns the event format, falling back to doubles.
func (e Event) PlayersPerMatch() int {
	if e.Format <= 0 {
		return DefaultPlayersPerMatch
	}
	return e.Format
}

// RSVPWindowContains reports whether t falls inside [RSVPOpensAt, RSVPClosesAt).
func (e Event) RSVPWindowContains(t time.Time) bool {
	return !t.Before(e.RSVPOpensAt) && t.Before(e.RSVPClosesAt)
}

// SnapshotEntry is one row of a frozen roster.
type SnapshotEntry struct {
	RSVPID   uuid.UUID  `json:"rsvp_id"`
	PlayerID uuid.UUID  `json:"player_id"`
	Status   RSVPStatus `json:"status"`
	Position int64      `json:"position"`
}

// ConfirmedPlayers returns the player ids of the CONFIRMED snapshot rows, in roster order.
func ConfirmedPlayers(snapshot []SnapshotEntry) []SnapshotEntry {
	out := make([]SnapshotEntry, 0, len(snapshot))
	for _, e := range snapshot {
		if e.Status == RSVPStatusConfirmed {
			out = append(out, e)
		}
	}
	return out
}
