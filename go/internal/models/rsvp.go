package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVPStatus defines the status of a player's reply to an event.
type RSVPStatus string

const (
	RSVPStatusConfirmed  RSVPStatus = "CONFIRMED"
	RSVPStatusWaitlisted RSVPStatus = "WAITLISTED"
	RSVPStatusDeclined   RSVPStatus = "DECLINED"
	RSVPStatusCancelled  RSVPStatus = "CANCELLED"
)

// Active reports whether the status takes part in roster ordering.
func (s RSVPStatus) Active() bool {
	return s == RSVPStatusConfirmed || s == RSVPStatusWaitlisted
}

// RSVP is a player's reply to an event.
type RSVP struct {
	ID       uuid.UUID  `json:"id"`
	EventID  uuid.UUID  `json:"event_id"`
	PlayerID uuid.UUID  `json:"player_id"`
	Status   RSVPStatus `json:"status"`
	// Position is the per-event sequence number. Kept on tombstoned rows for audit only.
	Position    int64      `json:"position"`
	CancelledBy *uuid.UUID `json:"cancelled_by,omitempty"`
	PromotedAt  *time.Time `json:"promoted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RosterEntry is an RSVP together with its display rank inside its status class.
type RosterEntry struct {
	RSVP
	Rank int `json:"rank"`
}
