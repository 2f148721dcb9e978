package models

import "github.com/google/uuid"

// Capability is a permission granted to an actor by the identity provider.
type Capability string

const (
	CapabilityViewer Capability = "VIEWER"
	CapabilityEditor Capability = "EDITOR"
	CapabilityAdmin  Capability = "ADMIN"
)

// Actor is the already-authenticated caller of an operation.
type Actor struct {
	ID           uuid.UUID    `json:"id"`
	Capabilities []Capability `json:"capabilities"`
}

// Has reports whether the actor holds c.
func (a Actor) Has(c Capability) bool {
	for _, got := range a.Capabilities {
		if got == c {
			return true
		}
	}
	return false
}

// CanEdit reports whether the actor may manage events.
func (a Actor) CanEdit() bool {
	return a.Has(CapabilityEditor) || a.Has(CapabilityAdmin)
}

// IsAdmin reports whether the actor holds ADMIN.
func (a Actor) IsAdmin() bool {
	return a.Has(CapabilityAdmin)
}

// SystemActor is used by the scheduler for timed transitions.
var SystemActor = Actor{
	ID:           uuid.MustParse("00000000-0000-0000-0000-00000000a11c"),
	Capabilities: []Capability{CapabilityAdmin},
}
