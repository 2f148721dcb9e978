// Package waitlist owns RSVP admission, ordering and promotion for an event.
package waitlist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/notify"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/rs/zerolog/log"
)

// CancelResult reports what a cancellation changed.
type CancelResult struct {
	Cancelled *models.RSVP `json:"cancelled"`
	// Promoted is the waitlisted RSVP moved up, if any.
	Promoted *models.RSVP `json:"promoted,omitempty"`
}

// App handles RSVP business logic
type App struct {
	store    store.Store
	policy   store.Policy
	clock    clockwork.Clock
	notifier notify.Notifier
}

// NewApp creates a new waitlist App
func NewApp(st store.Store, policy store.Policy, clock clockwork.Clock, notifier notify.Notifier) *App {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &App{
		store:    st,
		policy:   policy,
		clock:    clock,
		notifier: notifier,
	}
}

// Register admits playerID to the event, CONFIRMED while there is room and
// WAITLISTED after that.
func (a *App) Register(ctx context.Context, eventID, playerID uuid.UUID) (*models.RSVP, error) {
	const op = "waitlist.Register"
	ctx, cancel := a.policy.WithTimeout(ctx)
	defer cancel()

	if _, err := a.store.GetPlayer(ctx, playerID); err != nil {
		return nil, store.Classify(ctx, op, err)
	}

	var created *models.RSVP
	err := a.policy.InEvent(ctx, a.store, eventID, func(tx store.EventTx) error {
		created = nil
		now := a.clock.Now()
		event := tx.Event()
		if err := checkAcceptingRSVPs(op, event, now, true); err != nil {
			return err
		}

		rsvps, err := tx.ListRSVPs(ctx)
		if err != nil {
			return err
		}
		for _, r := range rsvps {
			if r.PlayerID == playerID && r.Status.Active() {
				return apperr.New(apperr.KindDuplicateRSVP, op).
					With("event_id", eventID.String()).
					With("player_id", playerID.String()).
					With("rsvp_id", r.ID.String())
			}
		}

		pos, err := tx.NextRSVPPosition(ctx)
		if err != nil {
			return err
		}
		status := models.RSVPStatusWaitlisted
		if countConfirmed(rsvps) < event.Capacity {
			status = models.RSVPStatusConfirmed
		}

		rsvp := &models.RSVP{
			ID:        uuid.New(),
			EventID:   eventID,
			PlayerID:  playerID,
			Status:    status,
			Position:  pos,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.InsertRSVP(ctx, rsvp); err != nil {
			return err
		}
		created = rsvp
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("event_id", eventID.String()).
		Str("player_id", playerID.String()).
		Str("status", string(created.Status)).
		Int64("position", created.Position).
		Msg("registered rsvp")

	kind := notify.KindRSVPConfirmed
	if created.Status == models.RSVPStatusWaitlisted {
		kind = notify.KindRSVPWaitlisted
	}
	a.notify(ctx, kind, created)
	return created, nil
}

// Cancel tombstones an RSVP. Only its owner or an editor may cancel it. When a
// CONFIRMED row is cancelled the oldest WAITLISTED row is promoted.
// Cancelling a row that is already inactive changes nothing.
func (a *App) Cancel(ctx context.Context, rsvpID uuid.UUID, actor models.Actor) (*CancelResult, error) {
	const op = "waitlist.Cancel"
	ctx, cancel := a.policy.WithTimeout(ctx)
	defer cancel()

	existing, err := a.store.GetRSVP(ctx, rsvpID)
	if err != nil {
		return nil, store.Classify(ctx, op, err)
	}
	if !actor.CanEdit() {
		owner, err := a.isOwner(ctx, existing.PlayerID, actor)
		if err != nil {
			return nil, store.Classify(ctx, op, err)
		}
		if !owner {
			return nil, apperr.New(apperr.KindUnauthorized, op).
				With("rsvp_id", rsvpID.String()).
				With("actor_id", actor.ID.String())
		}
	}

	var result *CancelResult
	var changed bool
	err = a.policy.InEvent(ctx, a.store, existing.EventID, func(tx store.EventTx) error {
		result, changed = nil, false
		now := a.clock.Now()
		event := tx.Event()
		if err := checkAcceptingRSVPs(op, event, now, false); err != nil {
			return err
		}

		rsvp, err := tx.GetRSVP(ctx, rsvpID)
		if err != nil {
			return err
		}
		if !rsvp.Status.Active() {
			result = &CancelResult{Cancelled: rsvp}
			return nil
		}

		wasConfirmed := rsvp.Status == models.RSVPStatusConfirmed
		rsvp.Status = models.RSVPStatusCancelled
		rsvp.CancelledBy = &actor.ID
		rsvp.UpdatedAt = now
		if err := tx.UpdateRSVP(ctx, rsvp); err != nil {
			return err
		}
		result, changed = &CancelResult{Cancelled: rsvp}, true
		if !wasConfirmed {
			return nil
		}

		rsvps, err := tx.ListRSVPs(ctx)
		if err != nil {
			return err
		}
		if countConfirmed(rsvps) >= event.Capacity {
			return nil
		}
		next := oldestWaitlisted(rsvps)
		if next == nil {
			return nil
		}
		next.Status = models.RSVPStatusConfirmed
		next.PromotedAt = &now
		next.UpdatedAt = now
		if err := tx.UpdateRSVP(ctx, next); err != nil {
			return err
		}
		result.Promoted = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		log.Debug().Str("rsvp_id", rsvpID.String()).Str("status", string(result.Cancelled.Status)).Msg("rsvp already inactive")
		return result, nil
	}

	log.Info().
		Str("rsvp_id", rsvpID.String()).
		Str("event_id", existing.EventID.String()).
		Str("actor_id", actor.ID.String()).
		Bool("promoted", result.Promoted != nil).
		Msg("cancelled rsvp")

	a.notify(ctx, notify.KindRSVPCancelled, result.Cancelled)
	if result.Promoted != nil {
		a.notify(ctx, notify.KindRSVPPromoted, result.Promoted)
	}
	return result, nil
}

// Decline records that a player will not attend. A player with an active RSVP
// must cancel it instead.
func (a *App) Decline(ctx context.Context, eventID, playerID uuid.UUID) (*models.RSVP, error) {
	const op = "waitlist.Decline"
	ctx, cancel := a.policy.WithTimeout(ctx)
	defer cancel()

	if _, err := a.store.GetPlayer(ctx, playerID); err != nil {
		return nil, store.Classify(ctx, op, err)
	}

	var declined *models.RSVP
	var created bool
	err := a.policy.InEvent(ctx, a.store, eventID, func(tx store.EventTx) error {
		declined, created = nil, false
		now := a.clock.Now()
		if err := checkAcceptingRSVPs(op, tx.Event(), now, true); err != nil {
			return err
		}
		rsvps, err := tx.ListRSVPs(ctx)
		if err != nil {
			return err
		}
		var previous *models.RSVP
		for _, r := range rsvps {
			if r.PlayerID != playerID {
				continue
			}
			if r.Status.Active() {
				return apperr.New(apperr.KindDuplicateRSVP, op).
					With("event_id", eventID.String()).
					With("player_id", playerID.String()).
					With("rsvp_id", r.ID.String())
			}
			if r.Status == models.RSVPStatusDeclined && previous == nil {
				previous = r
			}
		}
		if previous != nil {
			declined = previous
			return nil
		}

		rsvp := &models.RSVP{
			ID:        uuid.New(),
			EventID:   eventID,
			PlayerID:  playerID,
			Status:    models.RSVPStatusDeclined,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.InsertRSVP(ctx, rsvp); err != nil {
			return err
		}
		declined, created = rsvp, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.Info().Str("event_id", eventID.String()).Str("player_id", playerID.String()).Msg("declined event")
		a.notify(ctx, notify.KindRSVPDeclined, declined)
	}
	return declined, nil
}

// ListRoster returns the ordered roster of an event.
func (a *App) ListRoster(ctx context.Context, eventID uuid.UUID) ([]models.RosterEntry, error) {
	const op = "waitlist.ListRoster"
	ctx, cancel := a.policy.WithTimeout(ctx)
	defer cancel()

	if _, err := a.store.GetEvent(ctx, eventID); err != nil {
		return nil, store.Classify(ctx, op, err)
	}
	rsvps, err := a.store.ListRSVPs(ctx, eventID)
	if err != nil {
		return nil, store.Classify(ctx, op, err)
	}
	return OrderRoster(rsvps), nil
}

func (a *App) isOwner(ctx context.Context, playerID uuid.UUID, actor models.Actor) (bool, error) {
	player, err := a.store.GetPlayer(ctx, playerID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return false, nil
		}
		return false, err
	}
	return player.UserID == actor.ID, nil
}

func (a *App) notify(ctx context.Context, kind notify.Kind, rsvp *models.RSVP) {
	a.notifier.Notify(ctx, notify.Notification{
		Kind:     kind,
		EventID:  rsvp.EventID,
		PlayerID: rsvp.PlayerID,
		RSVPID:   rsvp.ID,
		Status:   string(rsvp.Status),
		Position: rsvp.Position,
		At:       rsvp.UpdatedAt,
	})
}

// checkAcceptingRSVPs fails with EventClosed unless the event is OPEN. When
// window is set, now must also fall inside the RSVP window.
func checkAcceptingRSVPs(op string, event *models.Event, now time.Time, window bool) error {
	if event.State == models.EventStateOpen && (!window || event.RSVPWindowContains(now)) {
		return nil
	}
	return apperr.New(apperr.KindEventClosed, op).
		With("event_id", event.ID.String()).
		With("state", string(event.State))
}
