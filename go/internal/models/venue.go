package models

import (
	"time"

	"github.com/google/uuid"
)

// Venue is a club with a fixed, ordered set of courts.
type Venue struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	LogoURL   *string   `json:"logo_url,omitempty"`
	Courts    []Court   `json:"courts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Court is one playable slot at a venue. One court hosts one match per round.
type Court struct {
	ID        uuid.UUID `json:"id"`
	VenueID   uuid.UUID `json:"venue_id"`
	Label     string    `json:"label"`
	SortOrder int       `json:"sort_order"`
}
