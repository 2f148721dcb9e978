package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/padelhub/gamenight/go/internal/store/memstore"
)

var (
	now    = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	viewer = models.Actor{ID: uuid.New(), Capabilities: []models.Capability{models.CapabilityViewer}}
	editor = models.Actor{ID: uuid.New(), Capabilities: []models.Capability{models.CapabilityEditor}}
	admin  = models.Actor{ID: uuid.New(), Capabilities: []models.Capability{models.CapabilityAdmin}}
)

var allStates = []models.EventState{
	models.EventStateDraft,
	models.EventStateOpen,
	models.EventStateFrozen,
	models.EventStateDrawn,
	models.EventStatePublished,
}

type recordingObserver struct{ events []*models.Event }

func (r *recordingObserver) EventChanged(_ context.Context, e *models.Event) {
	r.events = append(r.events, e)
}

type countingRatings struct{ calls int }

func (c *countingRatings) ApplyEventRatings(context.Context, store.EventTx, *models.Event) error {
	c.calls++
	return nil
}

func newApp(t *testing.T) (*App, *memstore.Store, *countingRatings) {
	t.Helper()
	st := memstore.New()
	ratings := &countingRatings{}
	return NewApp(st, store.DefaultPolicy(), clockwork.NewFakeClockAt(now), nil, ratings), st, ratings
}

func seedEvent(t *testing.T, st *memstore.Store, state models.EventState) *models.Event {
	t.Helper()
	start := now.Add(48 * time.Hour)
	e := &models.Event{
		ID:           uuid.New(),
		Title:        "Ladder night",
		Capacity:     8,
		RSVPOpensAt:  now.Add(-time.Hour),
		RSVPClosesAt: start.Add(-time.Hour),
		StartsAt:     start,
		EndsAt:       start.Add(2 * time.Hour),
		State:        state,
	}
	if err := st.CreateEvent(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestTransitionTable(t *testing.T) {
	allowed := map[[2]models.EventState]bool{
		{models.EventStateDraft, models.EventStateOpen}:      true,
		{models.EventStateDraft, models.EventStateFrozen}:    true, // admin + confirm
		{models.EventStateOpen, models.EventStateFrozen}:     true,
		{models.EventStateFrozen, models.EventStateOpen}:     true,
		{models.EventStateDrawn, models.EventStatePublished}: true,
		{models.EventStateDrawn, models.EventStateFrozen}:    true, // admin + confirm
	}

	for _, from := range allStates {
		for _, to := range allStates {
			name := string(from) + "->" + string(to)
			t.Run(name, func(t *testing.T) {
				app, st, _ := newApp(t)
				e := seedEvent(t, st, from)

				got, err := app.Transition(context.Background(), e.ID, to, admin, TransitionOptions{Confirm: true})
				if allowed[[2]models.EventState{from, to}] {
					if err != nil {
						t.Fatalf("expected success, got %v", err)
					}
					if got.State != to || !got.StateChangedAt.Equal(now) {
						t.Fatalf("got state %s changed at %v", got.State, got.StateChangedAt)
					}
					return
				}
				if !errors.Is(err, apperr.ErrInvalidTransition) {
					t.Fatalf("expected InvalidTransition, got %v", err)
				}
				stored, _ := st.GetEvent(context.Background(), e.ID)
				if stored.State != from {
					t.Fatalf("state changed to %s after rejected transition", stored.State)
				}
			})
		}
	}
}

func TestPublishedIsTerminal(t *testing.T) {
	app, st, _ := newApp(t)
	e := seedEvent(t, st, models.EventStatePublished)
	for _, to := range allStates {
		for _, actor := range []models.Actor{editor, admin} {
			_, err := app.Transition(context.Background(), e.ID, to, actor, TransitionOptions{Confirm: true})
			if !errors.Is(err, apperr.ErrInvalidTransition) {
				t.Fatalf("PUBLISHED->%s: expected InvalidTransition, got %v", to, err)
			}
		}
	}
}

func TestTransitionAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		from    models.EventState
		to      models.EventState
		actor   models.Actor
		opts    TransitionOptions
		wantErr error
	}{
		{"viewer cannot open", models.EventStateDraft, models.EventStateOpen, viewer, TransitionOptions{}, apperr.ErrUnauthorized},
		{"editor opens", models.EventStateDraft, models.EventStateOpen, editor, TransitionOptions{}, nil},
		{"editor cannot skip open", models.EventStateDraft, models.EventStateFrozen, editor, TransitionOptions{Confirm: true}, apperr.ErrUnauthorized},
		{"admin must confirm skip", models.EventStateDraft, models.EventStateFrozen, admin, TransitionOptions{}, apperr.ErrInvalidTransition},
		{"editor cannot regenerate", models.EventStateDrawn, models.EventStateFrozen, editor, TransitionOptions{Confirm: true}, apperr.ErrUnauthorized},
		{"admin must confirm regenerate", models.EventStateDrawn, models.EventStateFrozen, admin, TransitionOptions{}, apperr.ErrInvalidTransition},
		{"nobody draws by hand", models.EventStateFrozen, models.EventStateDrawn, admin, TransitionOptions{Confirm: true}, apperr.ErrInvalidTransition},
		{"editor publishes", models.EventStateDrawn, models.EventStatePublished, editor, TransitionOptions{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, st, _ := newApp(t)
			e := seedEvent(t, st, tt.from)
			_, err := app.Transition(context.Background(), e.ID, tt.to, tt.actor, tt.opts)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFreezeSnapshotsOrderedRoster(t *testing.T) {
	ctx := context.Background()
	app, st, _ := newApp(t)
	e := seedEvent(t, st, models.EventStateOpen)

	rows := []*models.RSVP{
		{ID: uuid.New(), PlayerID: uuid.New(), Status: models.RSVPStatusWaitlisted, Position: 3},
		{ID: uuid.New(), PlayerID: uuid.New(), Status: models.RSVPStatusConfirmed, Position: 2},
		{ID: uuid.New(), PlayerID: uuid.New(), Status: models.RSVPStatusCancelled, Position: 1},
		{ID: uuid.New(), PlayerID: uuid.New(), Status: models.RSVPStatusConfirmed, Position: 4},
	}
	err := st.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		for _, r := range rows {
			r.EventID = e.ID
			if err := tx.InsertRSVP(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	frozen, err := app.Transition(ctx, e.ID, models.EventStateFrozen, editor, TransitionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []models.SnapshotEntry{
		{RSVPID: rows[1].ID, PlayerID: rows[1].PlayerID, Status: models.RSVPStatusConfirmed, Position: 2},
		{RSVPID: rows[3].ID, PlayerID: rows[3].PlayerID, Status: models.RSVPStatusConfirmed, Position: 4},
		{RSVPID: rows[0].ID, PlayerID: rows[0].PlayerID, Status: models.RSVPStatusWaitlisted, Position: 3},
	}
	if diff := cmp.Diff(want, frozen.RosterSnapshot); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	stored, _ := st.GetEvent(ctx, e.ID)
	if diff := cmp.Diff(want, stored.RosterSnapshot); diff != "" {
		t.Fatalf("stored snapshot mismatch (-want +got):\n%s", diff)
	}
	if stored.FrozenAt == nil || !stored.FrozenAt.Equal(now) {
		t.Fatalf("frozen_at = %v", stored.FrozenAt)
	}

	reopened, err := app.Transition(ctx, e.ID, models.EventStateOpen, editor, TransitionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if reopened.RosterSnapshot != nil {
		t.Fatal("reopen must clear the snapshot")
	}
}

func TestReopenRejectedWithDraw(t *testing.T) {
	ctx := context.Background()
	app, st, _ := newApp(t)
	e := seedEvent(t, st, models.EventStateFrozen)
	err := st.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		return tx.SaveDraw(ctx, &models.Draw{EventID: e.ID})
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = app.Transition(ctx, e.ID, models.EventStateOpen, editor, TransitionOptions{})
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected InvalidTransition, got %v", err)
	}
}

func TestRegenerateDiscardsDraw(t *testing.T) {
	ctx := context.Background()
	app, st, _ := newApp(t)
	e := seedEvent(t, st, models.EventStateDrawn)
	err := st.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		if err := tx.SaveDraw(ctx, &models.Draw{EventID: e.ID, Matches: []models.Match{{Number: 1}}}); err != nil {
			return err
		}
		return tx.SaveResult(ctx, &models.MatchResult{EventID: e.ID, MatchNumber: 1, SideAGames: 6})
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := app.Transition(ctx, e.ID, models.EventStateFrozen, admin, TransitionOptions{Confirm: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.GetDraw(ctx, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected draw to be discarded, got %v", err)
	}
	if res, _ := st.ListResults(ctx, e.ID); len(res) != 0 {
		t.Fatalf("expected results to be discarded, got %d", len(res))
	}
}

func TestPublishAppliesRatingsAndNotifiesObservers(t *testing.T) {
	ctx := context.Background()
	app, st, ratings := newApp(t)
	obs := &recordingObserver{}
	app.Observe(obs)
	e := seedEvent(t, st, models.EventStateDrawn)

	published, err := app.Transition(ctx, e.ID, models.EventStatePublished, editor, TransitionOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ratings.calls != 1 {
		t.Fatalf("ratings applied %d times, want 1", ratings.calls)
	}
	if published.PublishedAt == nil {
		t.Fatal("published_at not stamped")
	}
	if len(obs.events) != 1 || obs.events[0].State != models.EventStatePublished {
		t.Fatalf("observer saw %+v", obs.events)
	}
}

func TestTransitionUnknownEvent(t *testing.T) {
	app, _, _ := newApp(t)
	_, err := app.Transition(context.Background(), uuid.New(), models.EventStateOpen, editor, TransitionOptions{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	app, st, _ := newApp(t)
	venue := &models.Venue{ID: uuid.New(), Name: "Club Norte"}
	if err := st.PutVenue(ctx, venue); err != nil {
		t.Fatal(err)
	}
	start := now.Add(7 * 24 * time.Hour)
	valid := CreateEventRequest{
		Title:        "Wednesday mixer",
		VenueID:      venue.ID,
		StartsAt:     start,
		EndsAt:       start.Add(2 * time.Hour),
		Capacity:     12,
		RSVPOpensAt:  now,
		RSVPClosesAt: start,
	}

	e, err := app.CreateEvent(ctx, valid, editor)
	if err != nil {
		t.Fatal(err)
	}
	if e.State != models.EventStateDraft || e.Format != 4 || e.Version != 1 {
		t.Fatalf("created event = %+v", e)
	}

	tests := []struct {
		name    string
		mutate  func(r *CreateEventRequest)
		actor   models.Actor
		wantErr error
	}{
		{"viewer", func(r *CreateEventRequest) {}, viewer, apperr.ErrUnauthorized},
		{"empty title", func(r *CreateEventRequest) { r.Title = "  " }, editor, apperr.ErrInvalidArgument},
		{"zero capacity", func(r *CreateEventRequest) { r.Capacity = 0 }, editor, apperr.ErrInvalidArgument},
		{"window inverted", func(r *CreateEventRequest) { r.RSVPOpensAt = r.RSVPClosesAt }, editor, apperr.ErrInvalidArgument},
		{"closes after start", func(r *CreateEventRequest) { r.RSVPClosesAt = r.StartsAt.Add(time.Minute) }, editor, apperr.ErrInvalidArgument},
		{"ends before start", func(r *CreateEventRequest) { r.EndsAt = r.StartsAt }, editor, apperr.ErrInvalidArgument},
		{"single player format", func(r *CreateEventRequest) { r.Format = 1 }, editor, apperr.ErrInvalidArgument},
		{"unknown venue", func(r *CreateEventRequest) { r.VenueID = uuid.New() }, editor, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := app.CreateEvent(ctx, req, tt.actor)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
