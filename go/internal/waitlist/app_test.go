package waitlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/notify"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/padelhub/gamenight/go/internal/store/memstore"
)

var (
	now    = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	editor = models.Actor{ID: uuid.New(), Capabilities: []models.Capability{models.CapabilityEditor}}
)

type fixture struct {
	app   *App
	store *memstore.Store
	event *models.Event
	clock *clockwork.FakeClock

	mu   sync.Mutex
	sent []notify.Notification
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	f := &fixture{store: memstore.New(), clock: clockwork.NewFakeClockAt(now)}
	start := now.Add(72 * time.Hour)
	f.event = &models.Event{
		ID:           uuid.New(),
		Title:        "Friday americano",
		Capacity:     capacity,
		RSVPOpensAt:  now.Add(-24 * time.Hour),
		RSVPClosesAt: start.Add(-2 * time.Hour),
		StartsAt:     start,
		EndsAt:       start.Add(2 * time.Hour),
		State:        models.EventStateOpen,
	}
	if err := f.store.CreateEvent(context.Background(), f.event); err != nil {
		t.Fatal(err)
	}
	notifier := notify.NotifierFunc(func(_ context.Context, n notify.Notification) {
		f.mu.Lock()
		f.sent = append(f.sent, n)
		f.mu.Unlock()
	})
	f.app = NewApp(f.store, store.DefaultPolicy(), f.clock, notifier)
	return f
}

func (f *fixture) player(t *testing.T) *models.PlayerProfile {
	t.Helper()
	p := &models.PlayerProfile{ID: uuid.New(), UserID: uuid.New(), Rating: 1500, Status: models.PlayerStatusActive}
	if err := f.store.PutPlayer(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) register(t *testing.T, n int) []*models.RSVP {
	t.Helper()
	var out []*models.RSVP
	for i := 0; i < n; i++ {
		r, err := f.app.Register(context.Background(), f.event.ID, f.player(t).ID)
		if err != nil {
			t.Fatalf("Register #%d: %v", i+1, err)
		}
		out = append(out, r)
	}
	return out
}

func (f *fixture) kinds() []notify.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Kind
	for _, n := range f.sent {
		out = append(out, n.Kind)
	}
	return out
}

func TestNinthPlayerWaitlistedAndPromotedOnCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	rsvps := f.register(t, 9)

	for i, r := range rsvps[:8] {
		if r.Status != models.RSVPStatusConfirmed || r.Position != int64(i+1) {
			t.Fatalf("rsvp %d: status %s position %d", i+1, r.Status, r.Position)
		}
	}
	ninth := rsvps[8]
	if ninth.Status != models.RSVPStatusWaitlisted || ninth.Position != 9 {
		t.Fatalf("ninth: status %s position %d, want WAITLISTED 9", ninth.Status, ninth.Position)
	}

	res, err := f.app.Cancel(ctx, rsvps[2].ID, editor)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if res.Promoted == nil || res.Promoted.ID != ninth.ID {
		t.Fatalf("expected position 9 to be promoted, got %+v", res.Promoted)
	}
	if res.Cancelled.Position != 3 || res.Cancelled.Status != models.RSVPStatusCancelled {
		t.Fatalf("cancelled row = %+v", res.Cancelled)
	}

	roster, err := f.app.ListRoster(ctx, f.event.ID)
	if err != nil {
		t.Fatal(err)
	}
	var positions []int64
	var ranks []int
	for _, e := range roster {
		if e.Status != models.RSVPStatusConfirmed {
			t.Fatalf("unexpected %s row in roster", e.Status)
		}
		positions = append(positions, e.Position)
		ranks = append(ranks, e.Rank)
	}
	if diff := cmp.Diff([]int64{1, 2, 4, 5, 6, 7, 8, 9}, positions); diff != "" {
		t.Fatalf("roster positions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 4, 5, 6, 7, 8}, ranks); diff != "" {
		t.Fatalf("roster ranks (-want +got):\n%s", diff)
	}

	kinds := f.kinds()
	if got := kinds[len(kinds)-2:]; !cmp.Equal(got, []notify.Kind{notify.KindRSVPCancelled, notify.KindRSVPPromoted}) {
		t.Fatalf("last notifications = %v", got)
	}
}

func TestConcurrentRegistrationRespectsCapacity(t *testing.T) {
	const capacity = 8
	f := newFixture(t, capacity)

	players := make([]*models.PlayerProfile, capacity+5)
	for i := range players {
		players[i] = f.player(t)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(players))
	for _, p := range players {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			if _, err := f.app.Register(context.Background(), f.event.ID, id); err != nil {
				errs <- err
			}
		}(p.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Register: %v", err)
	}

	rsvps, err := f.store.ListRSVPs(context.Background(), f.event.ID)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int64]bool)
	counts := make(map[models.RSVPStatus]int)
	for _, r := range rsvps {
		if seen[r.Position] {
			t.Fatalf("duplicate position %d", r.Position)
		}
		seen[r.Position] = true
		counts[r.Status]++
	}
	if counts[models.RSVPStatusConfirmed] != capacity || counts[models.RSVPStatusWaitlisted] != 5 {
		t.Fatalf("counts = %v, want %d confirmed and 5 waitlisted", counts, capacity)
	}
	for pos := int64(1); pos <= capacity+5; pos++ {
		if !seen[pos] {
			t.Fatalf("missing position %d", pos)
		}
	}

	// Every waitlisted row comes after every confirmed row.
	roster := OrderRoster(rsvps)
	for i := 1; i < len(roster); i++ {
		if roster[i-1].Position > roster[i].Position {
			t.Fatalf("roster not in position order at %d", i)
		}
	}
}

func TestRegisterErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate", func(t *testing.T) {
		f := newFixture(t, 4)
		p := f.player(t)
		if _, err := f.app.Register(ctx, f.event.ID, p.ID); err != nil {
			t.Fatal(err)
		}
		_, err := f.app.Register(ctx, f.event.ID, p.ID)
		if !errors.Is(err, apperr.ErrDuplicateRSVP) {
			t.Fatalf("expected DuplicateRSVP, got %v", err)
		}
	})

	t.Run("re-register after cancel", func(t *testing.T) {
		f := newFixture(t, 4)
		p := f.player(t)
		r, err := f.app.Register(ctx, f.event.ID, p.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.app.Cancel(ctx, r.ID, editor); err != nil {
			t.Fatal(err)
		}
		again, err := f.app.Register(ctx, f.event.ID, p.ID)
		if err != nil {
			t.Fatalf("expected re-registration to succeed, got %v", err)
		}
		if again.Position != 2 {
			t.Fatalf("position = %d, want 2", again.Position)
		}
	})

	t.Run("not open", func(t *testing.T) {
		f := newFixture(t, 4)
		for _, state := range []models.EventState{models.EventStateDraft, models.EventStateFrozen, models.EventStateDrawn, models.EventStatePublished} {
			setState(t, f, state)
			_, err := f.app.Register(ctx, f.event.ID, f.player(t).ID)
			if !errors.Is(err, apperr.ErrEventClosed) {
				t.Fatalf("%s: expected EventClosed, got %v", state, err)
			}
		}
	})

	t.Run("outside window", func(t *testing.T) {
		f := newFixture(t, 4)
		f.clock.Advance(f.event.RSVPClosesAt.Sub(now))
		_, err := f.app.Register(ctx, f.event.ID, f.player(t).ID)
		if !errors.Is(err, apperr.ErrEventClosed) {
			t.Fatalf("expected EventClosed at close time, got %v", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newFixture(t, 4)
		_, err := f.app.Register(ctx, uuid.New(), f.player(t).ID)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})

	t.Run("unknown player", func(t *testing.T) {
		f := newFixture(t, 4)
		_, err := f.app.Register(ctx, f.event.ID, uuid.New())
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("expected NotFound, got %v", err)
		}
	})
}

func setState(t *testing.T, f *fixture, state models.EventState) {
	t.Helper()
	err := f.store.WithEventTx(context.Background(), f.event.ID, func(tx store.EventTx) error {
		e := tx.Event()
		e.State = state
		return tx.SaveEvent(context.Background(), e)
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCancelAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	owner := f.player(t)
	r, err := f.app.Register(ctx, f.event.ID, owner.ID)
	if err != nil {
		t.Fatal(err)
	}

	stranger := models.Actor{ID: uuid.New(), Capabilities: []models.Capability{models.CapabilityViewer}}
	if _, err := f.app.Cancel(ctx, r.ID, stranger); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}

	self := models.Actor{ID: owner.UserID, Capabilities: []models.Capability{models.CapabilityViewer}}
	res, err := f.app.Cancel(ctx, r.ID, self)
	if err != nil {
		t.Fatalf("owner cancel: %v", err)
	}
	if res.Cancelled.CancelledBy == nil || *res.Cancelled.CancelledBy != owner.UserID {
		t.Fatalf("cancelled_by = %v", res.Cancelled.CancelledBy)
	}

	if _, err := f.app.Cancel(ctx, uuid.New(), editor); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	rsvps := f.register(t, 3)

	first, err := f.app.Cancel(ctx, rsvps[0].ID, editor)
	if err != nil {
		t.Fatal(err)
	}
	if first.Promoted == nil || first.Promoted.ID != rsvps[1].ID {
		t.Fatalf("expected second rsvp promoted, got %+v", first.Promoted)
	}

	second, err := f.app.Cancel(ctx, rsvps[0].ID, editor)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if second.Promoted != nil {
		t.Fatal("repeated cancel must not promote again")
	}

	roster, _ := f.app.ListRoster(ctx, f.event.ID)
	if len(roster) != 2 || roster[0].ID != rsvps[1].ID || roster[1].ID != rsvps[2].ID {
		t.Fatalf("unexpected roster %+v", roster)
	}
	if roster[1].Status != models.RSVPStatusWaitlisted || roster[1].Rank != 1 {
		t.Fatalf("third rsvp should be first on the waitlist, got %+v", roster[1])
	}
}

func TestCancelWaitlistedDoesNotPromote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	rsvps := f.register(t, 3)

	res, err := f.app.Cancel(ctx, rsvps[1].ID, editor)
	if err != nil {
		t.Fatal(err)
	}
	if res.Promoted != nil {
		t.Fatalf("unexpected promotion %+v", res.Promoted)
	}
	roster, _ := f.app.ListRoster(ctx, f.event.ID)
	if roster[0].ID != rsvps[0].ID || roster[1].ID != rsvps[2].ID {
		t.Fatalf("unexpected roster order")
	}
}

func TestCancelRequiresOpenEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	rsvps := f.register(t, 1)
	setState(t, f, models.EventStateFrozen)

	if _, err := f.app.Cancel(ctx, rsvps[0].ID, editor); !errors.Is(err, apperr.ErrEventClosed) {
		t.Fatalf("expected EventClosed, got %v", err)
	}
}

func TestDecline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	p := f.player(t)

	d, err := f.app.Decline(ctx, f.event.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d.Status != models.RSVPStatusDeclined || d.Position != 0 {
		t.Fatalf("declined row = %+v", d)
	}
	again, err := f.app.Decline(ctx, f.event.ID, p.ID)
	if err != nil || again.ID != d.ID {
		t.Fatalf("repeat decline = %+v, %v", again, err)
	}

	// A player who declined can still register later.
	r, err := f.app.Register(ctx, f.event.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.Position != 1 {
		t.Fatalf("position = %d, want 1", r.Position)
	}
	if _, err := f.app.Decline(ctx, f.event.ID, p.ID); !errors.Is(err, apperr.ErrDuplicateRSVP) {
		t.Fatalf("expected DuplicateRSVP for active player, got %v", err)
	}

	roster, _ := f.app.ListRoster(ctx, f.event.ID)
	if len(roster) != 1 {
		t.Fatalf("declined rows must not appear in roster, got %d rows", len(roster))
	}
}

func TestRosterOrderingUnderChurn(t *testing.T) {
	ctx := context.Background()
	const capacity = 4
	f := newFixture(t, capacity)

	var active []*models.RSVP
	for step := 0; step < 40; step++ {
		if step%3 == 2 && len(active) > 0 {
			victim := active[(step*7)%len(active)]
			if _, err := f.app.Cancel(ctx, victim.ID, editor); err != nil {
				t.Fatalf("step %d cancel: %v", step, err)
			}
		} else {
			r, err := f.app.Register(ctx, f.event.ID, f.player(t).ID)
			if err != nil {
				t.Fatalf("step %d register: %v", step, err)
			}
			active = append(active, r)
		}

		rsvps, _ := f.store.ListRSVPs(ctx, f.event.ID)
		active = active[:0]
		var lastPos int64
		confirmed := 0
		for _, r := range rsvps {
			if r.Position <= lastPos && r.Status.Active() {
				t.Fatalf("step %d: positions not strictly increasing", step)
			}
			if r.Status.Active() {
				lastPos = r.Position
				active = append(active, r)
			}
			if r.Status == models.RSVPStatusConfirmed {
				confirmed++
			}
		}
		if confirmed > capacity {
			t.Fatalf("step %d: %d confirmed exceeds capacity %d", step, confirmed, capacity)
		}
		waiting := len(active) - confirmed
		if waiting > 0 && confirmed < capacity {
			t.Fatalf("step %d: %d waitlisted while %d slots free", step, waiting, capacity-confirmed)
		}
	}
}

func TestDeclineAfterRegisteringKeepsConfirmedSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 4)
	p := f.player(t)

	first, err := f.app.Decline(ctx, f.event.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	r, err := f.app.Register(ctx, f.event.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != models.RSVPStatusConfirmed {
		t.Fatalf("register status = %s", r.Status)
	}

	_, err = f.app.Decline(ctx, f.event.ID, p.ID)
	if !errors.Is(err, apperr.ErrDuplicateRSVP) {
		t.Fatalf("expected DuplicateRSVP while confirmed, got %v", err)
	}
	if got := apperr.FieldsOf(err)["rsvp_id"]; got != r.ID.String() {
		t.Errorf("rsvp_id field = %q, want %s", got, r.ID)
	}
	stored, err := f.store.GetRSVP(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.RSVPStatusConfirmed {
		t.Fatalf("stored status = %s, want CONFIRMED", stored.Status)
	}

	// Once the slot is released the earlier decline is reused.
	if _, err := f.app.Cancel(ctx, r.ID, editor); err != nil {
		t.Fatal(err)
	}
	again, err := f.app.Decline(ctx, f.event.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID || again.Status != models.RSVPStatusDeclined {
		t.Fatalf("decline after cancel = %+v, want row %s", again, first.ID)
	}
}
