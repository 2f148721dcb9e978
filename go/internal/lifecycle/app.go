// Package lifecycle owns the event state machine.
package lifecycle

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/notify"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/padelhub/gamenight/go/internal/waitlist"
	"github.com/rs/zerolog/log"
)

// App handles event lifecycle business logic
type App struct {
	store    store.Store
	policy   store.Policy
	clock    clockwork.Clock
	notifier notify.Notifier
	ratings  RatingApplier

	observersMu sync.RWMutex
	observers   []Observer
}

// NewApp creates a new lifecycle App. ratings may be nil, in which case
// publishing leaves player ratings untouched.
func NewApp(st store.Store, policy store.Policy, clock clockwork.Clock, notifier notify.Notifier, ratings RatingApplier) *App {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &App{
		store:    st,
		policy:   policy,
		clock:    clock,
		notifier: notifier,
		ratings:  ratings,
	}
}

// Observe registers o for committed event changes.
func (a *App) Observe(o Observer) {
	a.observersMu.Lock()
	a.observers = append(a.observers, o)
	a.observersMu.Unlock()
}

// CreateEvent creates a DRAFT event after validating its schedule.
func (a *App) CreateEvent(ctx context.Context, req CreateEventRequest, actor models.Actor) (*models.Event, error) {
	const op = "lifecycle.CreateEvent"
	if !actor.CanEdit() {
		return nil, apperr.New(apperr.KindUnauthorized, op).With("actor_id", actor.ID.String())
	}
	if err := validateCreateEventRequest(op, req); err != nil {
		return nil, err
	}

	ctx, cancel := a.policy.WithTimeout(ctx)
	defer cancel()

	if _, err := a.store.GetVenue(ctx, req.VenueID); err != nil {
		return nil, store.Classify(ctx, op, err)
	}

	now := a.clock.Now()
	format := req.Format
	if format == 0 {
		format = models.DefaultPlayersPerMatch
	}
	event := &models.Event{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(req.Title),
		VenueID:        req.VenueID,
		Date:           req.Date,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Capacity:       req.Capacity,
		Format:         format,
		RSVPOpensAt:    req.RSVPOpensAt,
		RSVPClosesAt:   req.RSVPClosesAt,
		AutoOpen:       req.AutoOpen,
		State:          models.EventStateDraft,
		StateChangedAt: now,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if event.Date.IsZero() {
		event.Date = req.StartsAt.Truncate(24 * time.Hour)
	}
	if err := a.store.CreateEvent(ctx, event); err != nil {
		return nil, store.Classify(ctx, op, err)
	}

	log.Info().
		Str("event_id", event.ID.String()).
		Str("venue_id", event.VenueID.String()).
		Int("capacity", event.Capacity).
		Bool("auto_open", event.AutoOpen).
		Msg("created event")

	a.publish(ctx, "", event)
	return event, nil
}

// GetEvent retrieves an event by ID
func (a *App) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	ctx, cancel := a.policy.WithTimeout(ctx)
	defer cancel()

	event, err := a.store.GetEvent(ctx, id)
	if err != nil {
		return nil, store.Classify(ctx, "lifecycle.GetEvent", err)
	}
	return event, nil
}

// Transition moves an event along an allowed edge. FROZEN->DRAWN is not
// reachable here; it belongs to draw generation.
func (a *App) Transition(ctx context.Context, eventID uuid.UUID, target models.EventState, actor models.Actor, opts TransitionOptions) (*models.Event, error) {
	const op = "lifecycle.Transition"
	if !target.Valid() {
		return nil, apperr.New(apperr.KindInvalidArgument, op).With("to", string(target))
	}

	var updated *models.Event
	var from models.EventState
	err := a.policy.InEvent(ctx, a.store, eventID, func(tx store.EventTx) error {
		updated = nil
		event := tx.Event()
		from = event.State

		e, ok := lookupEdge(event.State, target)
		if !ok || e.internal {
			return invalidTransition(op, event, target)
		}
		if !actor.CanEdit() || (e.adminConfirm && !actor.IsAdmin()) {
			return apperr.New(apperr.KindUnauthorized, op).
				With("event_id", eventID.String()).
				With("actor_id", actor.ID.String()).
				With("to", string(target))
		}
		if e.adminConfirm && !opts.Confirm {
			return invalidTransition(op, event, target).With("confirm", "required")
		}

		if err := a.sideEffects(ctx, tx, op, event, target); err != nil {
			return err
		}

		Apply(event, target, a.clock.Now())
		if err := tx.SaveEvent(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("event_id", eventID.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Str("actor_id", actor.ID.String()).
		Msg("event transitioned")

	a.publish(ctx, from, updated)
	return updated, nil
}

// sideEffects performs the writes tied to an edge, inside the same transaction
// as the state write.
func (a *App) sideEffects(ctx context.Context, tx store.EventTx, op string, event *models.Event, target models.EventState) error {
	switch {
	case target == models.EventStateFrozen && event.State != models.EventStateDrawn:
		// Roster is fixed atomically with the freeze
		rsvps, err := tx.ListRSVPs(ctx)
		if err != nil {
			return err
		}
		event.RosterSnapshot = waitlist.Snapshot(waitlist.OrderRoster(rsvps))

	case event.State == models.EventStateDrawn && target == models.EventStateFrozen:
		if err := tx.DeleteDraw(ctx); err != nil {
			return err
		}

	case event.State == models.EventStateFrozen && target == models.EventStateOpen:
		if _, err := tx.GetDraw(ctx); err == nil {
			return invalidTransition(op, event, target).With("draw", "attached")
		} else if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		event.RosterSnapshot = nil

	case target == models.EventStatePublished:
		if a.ratings != nil {
			if err := a.ratings.ApplyEventRatings(ctx, tx, event); err != nil {
				return err
			}
		}
	}
	return nil
}

// AfterCommit announces a change committed outside Transition, such as
// draw generation.
func (a *App) AfterCommit(ctx context.Context, from models.EventState, event *models.Event) {
	a.publish(ctx, from, event)
}

func (a *App) publish(ctx context.Context, from models.EventState, event *models.Event) {
	if from != event.State {
		a.notifier.Notify(ctx, notify.Notification{
			Kind:    notify.KindEventStateChanged,
			EventID: event.ID,
			Status:  string(event.State),
			At:      event.StateChangedAt,
		})
	}

	a.observersMu.RLock()
	observers := append([]Observer(nil), a.observers...)
	a.observersMu.RUnlock()
	for _, o := range observers {
		o.EventChanged(ctx, event)
	}
}

// validateCreateEventRequest validates create event request
func validateCreateEventRequest(op string, req CreateEventRequest) error {
	invalid := func(field, value string) error {
		return apperr.New(apperr.KindInvalidArgument, op).With("field", field).With("value", value)
	}
	if strings.TrimSpace(req.Title) == "" {
		return invalid("title", "")
	}
	if req.VenueID == uuid.Nil {
		return invalid("venue_id", "")
	}
	if req.Capacity <= 0 {
		return invalid("capacity", strconv.Itoa(req.Capacity))
	}
	if req.Format != 0 && req.Format < 2 {
		return invalid("format", strconv.Itoa(req.Format))
	}
	// rsvp_opens_at < rsvp_closes_at <= starts_at < ends_at
	if !req.RSVPOpensAt.Before(req.RSVPClosesAt) {
		return invalid("rsvp_opens_at", req.RSVPOpensAt.String())
	}
	if req.RSVPClosesAt.After(req.StartsAt) {
		return invalid("rsvp_closes_at", req.RSVPClosesAt.String())
	}
	if !req.StartsAt.Before(req.EndsAt) {
		return invalid("ends_at", req.EndsAt.String())
	}
	return nil
}
