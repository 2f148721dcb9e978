package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/auth"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/rs/zerolog/log"
)

// EventGetter confirms that a watched event exists.
type EventGetter interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// Handler serves websocket upgrade requests
type Handler struct {
	hub      *Hub
	events   EventGetter
	resolver auth.Resolver
}

// NewHandler creates a new websocket handler
func NewHandler(hub *Hub, events EventGetter, resolver auth.Resolver) *Handler {
	return &Handler{hub: hub, events: events, resolver: resolver}
}

// HandleEventConnection upgrades a request for /ws/events?event_id=...
func (h *Handler) HandleEventConnection(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(r.URL.Query().Get("event_id"))
	if err != nil {
		http.Error(w, "invalid event_id", http.StatusBadRequest)
		return
	}

	actor, err := h.resolver.Resolve(r.Context(), r.Header)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := h.events.GetEvent(r.Context(), eventID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("event_id", eventID.String()).Msg("failed to load event for websocket")
		http.Error(w, "event lookup failed", http.StatusServiceUnavailable)
		return
	}

	// The upgrader writes its own error response.
	if err := h.hub.Upgrade(w, r, actor.ID, eventID); err != nil {
		log.Error().
			Err(err).
			Str("event_id", eventID.String()).
			Msg("failed to upgrade websocket connection")
	}
}

// HandleStats reports open connections per event.
func (h *Handler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	h.hub.mu.RLock()
	stats := struct {
		TotalConnections int            `json:"total_connections"`
		ActiveEvents     int            `json:"active_events"`
		Events           map[string]int `json:"events"`
	}{Events: make(map[string]int, len(h.hub.eventConnections))}
	for id, conns := range h.hub.eventConnections {
		stats.TotalConnections += len(conns)
		stats.Events[id.String()] = len(conns)
	}
	stats.ActiveEvents = len(h.hub.eventConnections)
	h.hub.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Debug().Err(err).Msg("failed to write websocket stats")
	}
}
