package lifecycle

import (
	"time"

	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
)

// edge describes one allowed state change.
type edge struct {
	to models.EventState
	// adminConfirm edges need ADMIN and an explicit confirmation flag.
	adminConfirm bool
	// internal edges are only taken by draw generation.
	internal bool
}

var allowedTransitions = map[models.EventState][]edge{
	models.EventStateDraft: {
		{to: models.EventStateOpen},
		{to: models.EventStateFrozen, adminConfirm: true},
	},
	models.EventStateOpen: {
		{to: models.EventStateFrozen},
	},
	models.EventStateFrozen: {
		{to: models.EventStateOpen},
		{to: models.EventStateDrawn, internal: true},
	},
	models.EventStateDrawn: {
		{to: models.EventStatePublished},
		{to: models.EventStateFrozen, adminConfirm: true},
	},
	models.EventStatePublished: {}, // terminal
}

func lookupEdge(from, to models.EventState) (edge, bool) {
	for _, e := range allowedTransitions[from] {
		if e.to == to {
			return e, true
		}
	}
	return edge{}, false
}

// CheckEdge validates from -> to against the transition table. internal
// reports whether the caller is draw generation.
func CheckEdge(op string, event *models.Event, to models.EventState, internal bool) error {
	e, ok := lookupEdge(event.State, to)
	if !ok || e.internal != internal {
		return invalidTransition(op, event, to)
	}
	return nil
}

func invalidTransition(op string, event *models.Event, to models.EventState) *apperr.Error {
	return apperr.New(apperr.KindInvalidTransition, op).
		With("event_id", event.ID.String()).
		With("from", string(event.State)).
		With("to", string(to))
}

// Apply moves event to state at now and stamps the matching timestamp.
// It does not validate the edge.
func Apply(event *models.Event, to models.EventState, now time.Time) {
	event.State = to
	event.StateChangedAt = now
	event.UpdatedAt = now

	switch to {
	case models.EventStateOpen:
		event.OpenedAt = &now
	case models.EventStateFrozen:
		event.FrozenAt = &now
	case models.EventStateDrawn:
		event.DrawnAt = &now
	case models.EventStatePublished:
		event.PublishedAt = &now
	}
}
