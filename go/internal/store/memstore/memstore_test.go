package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/store"
)

func newEvent(t *testing.T, s *Store) *models.Event {
	t.Helper()
	start := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	e := &models.Event{
		ID:           uuid.New(),
		Title:        "Thursday padel",
		Capacity:     8,
		RSVPOpensAt:  start.Add(-72 * time.Hour),
		RSVPClosesAt: start.Add(-2 * time.Hour),
		StartsAt:     start,
		EndsAt:       start.Add(2 * time.Hour),
		State:        models.EventStateOpen,
	}
	if err := s.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return e
}

func TestWithEventTxCommitsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEvent(t, s)

	boom := errors.New("boom")
	err := s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		pos, err := tx.NextRSVPPosition(ctx)
		if err != nil {
			return err
		}
		if err := tx.InsertRSVP(ctx, &models.RSVP{ID: uuid.New(), EventID: e.ID, PlayerID: uuid.New(), Status: models.RSVPStatusConfirmed, Position: pos}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	rsvps, err := s.ListRSVPs(ctx, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rsvps) != 0 {
		t.Fatalf("expected no rsvps after rollback, got %d", len(rsvps))
	}
	got, _ := s.GetEvent(ctx, e.ID)
	if got.RSVPSeq != 0 {
		t.Fatalf("expected sequence to roll back, got %d", got.RSVPSeq)
	}
}

func TestWithEventTxSequenceSurvivesCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEvent(t, s)

	for want := int64(1); want <= 3; want++ {
		err := s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
			got, err := tx.NextRSVPPosition(ctx)
			if err != nil {
				return err
			}
			if got != want {
				t.Errorf("position = %d, want %d", got, want)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestSaveEventVersionCheck(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEvent(t, s)

	err := s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		ev := tx.Event()
		ev.Version--
		return tx.SaveEvent(ctx, ev)
	})
	if !errors.Is(err, apperr.ErrConcurrentModification) {
		t.Fatalf("expected ConcurrentModification, got %v", err)
	}

	err = s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		ev := tx.Event()
		ev.State = models.EventStateFrozen
		return tx.SaveEvent(ctx, ev)
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetEvent(ctx, e.ID)
	if got.State != models.EventStateFrozen || got.Version != e.Version+1 {
		t.Fatalf("got state %s version %d", got.State, got.Version)
	}
}

func TestInsertRSVPRejectsSecondActiveRow(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEvent(t, s)
	player := uuid.New()

	err := s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		if err := tx.InsertRSVP(ctx, &models.RSVP{ID: uuid.New(), EventID: e.ID, PlayerID: player, Status: models.RSVPStatusConfirmed, Position: 1}); err != nil {
			return err
		}
		return tx.InsertRSVP(ctx, &models.RSVP{ID: uuid.New(), EventID: e.ID, PlayerID: player, Status: models.RSVPStatusWaitlisted, Position: 2})
	})
	if !errors.Is(err, apperr.ErrDuplicateRSVP) {
		t.Fatalf("expected DuplicateRSVP, got %v", err)
	}
}

func TestWithEventTxUnknownEvent(t *testing.T) {
	err := New().WithEventTx(context.Background(), uuid.New(), func(store.EventTx) error { return nil })
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestLockHonorsContextAndLockWait(t *testing.T) {
	ctx := context.Background()
	s := New(WithLockWait(20 * time.Millisecond))
	e := newEvent(t, s)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithEventTx(ctx, e.ID, func(store.EventTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := s.WithEventTx(ctx, e.ID, func(store.EventTx) error { return nil })
	if !errors.Is(err, apperr.ErrConcurrentModification) {
		t.Fatalf("expected ConcurrentModification while locked, got %v", err)
	}

	unbounded := New()
	e2 := newEvent(t, unbounded)
	held2 := make(chan struct{})
	go func() {
		_ = unbounded.WithEventTx(ctx, e2.ID, func(store.EventTx) error {
			close(held2)
			<-release
			return nil
		})
	}()
	<-held2

	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err = unbounded.WithEventTx(tctx, e2.ID, func(store.EventTx) error { return nil })
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("expected StoreUnavailable on deadline, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestCancelledContextCommitsNothing(t *testing.T) {
	s := New()
	e := newEvent(t, s)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		ev := tx.Event()
		ev.State = models.EventStateFrozen
		if err := tx.SaveEvent(ctx, ev); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("expected StoreUnavailable, got %v", err)
	}
	got, _ := s.GetEvent(context.Background(), e.ID)
	if got.State != models.EventStateOpen {
		t.Fatalf("state = %s, want OPEN", got.State)
	}
}

func TestDeleteDrawDropsResults(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEvent(t, s)

	err := s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		if err := tx.SaveDraw(ctx, &models.Draw{EventID: e.ID, Matches: []models.Match{{Number: 1}}}); err != nil {
			return err
		}
		return tx.SaveResult(ctx, &models.MatchResult{EventID: e.ID, MatchNumber: 1, SideAGames: 6, SideBGames: 3})
	})
	if err != nil {
		t.Fatal(err)
	}
	if res, _ := s.ListResults(ctx, e.ID); len(res) != 1 {
		t.Fatalf("expected one result, got %d", len(res))
	}

	err = s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error { return tx.DeleteDraw(ctx) })
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetDraw(ctx, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected draw gone, got %v", err)
	}
	if res, _ := s.ListResults(ctx, e.ID); len(res) != 0 {
		t.Fatalf("expected results gone, got %d", len(res))
	}
}

func TestListPublishedEventsOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 19, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 7; i++ {
		e := &models.Event{ID: uuid.New(), StartsAt: base.AddDate(0, 0, 7*i), State: models.EventStatePublished}
		if i == 6 {
			e.State = models.EventStateDrawn
		}
		if err := s.CreateEvent(ctx, e); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e.ID)
	}

	got, err := s.ListPublishedEvents(ctx, base.AddDate(0, 0, 35), 5)
	if err != nil {
		t.Fatal(err)
	}
	var gotIDs []uuid.UUID
	for _, e := range got {
		gotIDs = append(gotIDs, e.ID)
	}
	want := []uuid.UUID{ids[5], ids[4], ids[3], ids[2], ids[1]}
	if diff := cmp.Diff(want, gotIDs); diff != "" {
		t.Fatalf("published window mismatch (-want +got):\n%s", diff)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEvent(t, s)

	got, _ := s.GetEvent(ctx, e.ID)
	got.Title = "mutated"
	again, _ := s.GetEvent(ctx, e.ID)
	if again.Title != "Thursday padel" {
		t.Fatal("store leaked internal pointer")
	}
}

func TestRatingUpdatesVisibleAfterCommit(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEvent(t, s)
	p := &models.PlayerProfile{ID: uuid.New(), Rating: 1500}
	if err := s.PutPlayer(ctx, p); err != nil {
		t.Fatal(err)
	}

	err := s.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		if err := tx.UpdatePlayerRating(ctx, p.ID, 1516); err != nil {
			return err
		}
		ps, err := tx.ListPlayers(ctx, []uuid.UUID{p.ID})
		if err != nil {
			return err
		}
		if ps[0].Rating != 1516 {
			t.Errorf("tx view rating = %v", ps[0].Rating)
		}
		outside, _ := s.GetPlayer(ctx, p.ID)
		if outside.Rating != 1500 {
			t.Errorf("uncommitted rating leaked: %v", outside.Rating)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetPlayer(ctx, p.ID)
	if got.Rating != 1516 {
		t.Fatalf("rating = %v, want 1516", got.Rating)
	}
}
