package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStatus represents whether a player can take part in events.
type PlayerStatus string

const (
	PlayerStatusActive   PlayerStatus = "ACTIVE"
	PlayerStatusInactive PlayerStatus = "INACTIVE"
)

// PlayerProfile is the playing identity of a user.
type PlayerProfile struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Rating      float64      `json:"rating"`
	Status      PlayerStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
