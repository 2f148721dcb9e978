package leaderboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/padelhub/gamenight/go/internal/store/memstore"
)

var base = time.Date(2026, 1, 8, 19, 0, 0, 0, time.UTC)

func pid(i int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", i))
}

func newEngine(st store.Store) *Engine {
	return NewEngine(st, store.DefaultPolicy(), clockwork.NewFakeClockAt(base.AddDate(0, 3, 0)), DefaultConfig())
}

// seedPublished stores a published event where side A (p1,p2) beats side B (p3,p4)
// by the given games, with deltas already settled.
func seedPublished(t *testing.T, st *memstore.Store, startsAt time.Time, aGames, bGames int, delta float64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	e := &models.Event{ID: uuid.New(), StartsAt: startsAt, State: models.EventStatePublished}
	if err := st.CreateEvent(ctx, e); err != nil {
		t.Fatal(err)
	}
	err := st.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		draw := &models.Draw{EventID: e.ID, Matches: []models.Match{{
			Number: 1, Round: 1,
			SideA: []uuid.UUID{pid(1), pid(2)},
			SideB: []uuid.UUID{pid(3), pid(4)},
		}}}
		if err := tx.SaveDraw(ctx, draw); err != nil {
			return err
		}
		return tx.SaveResult(ctx, &models.MatchResult{
			EventID: e.ID, MatchNumber: 1, SideAGames: aGames, SideBGames: bGames,
			RatingDeltas: map[uuid.UUID]float64{pid(1): delta, pid(2): delta, pid(3): -delta, pid(4): -delta},
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	return e.ID
}

func TestRankTieBreaksByPlayerID(t *testing.T) {
	stats := map[uuid.UUID]Stats{
		pid(3): {Played: 2, Wins: 1, Losses: 1},
		pid(1): {Played: 2, Wins: 1, Losses: 1},
		pid(2): {Played: 2, Wins: 2, RatingDelta: 10},
	}
	got := Rank([]uuid.UUID{pid(3), pid(1), pid(2), pid(4)}, stats, DefaultStrategy())

	var order []uuid.UUID
	for _, r := range got {
		order = append(order, r.PlayerID)
	}
	if diff := cmp.Diff([]uuid.UUID{pid(2), pid(1), pid(3), pid(4)}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if got[0].Score != 110 || got[0].Rank != 1 || got[3].Score != 0 || got[3].Rank != 4 {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	stats := map[uuid.UUID]Stats{}
	ids := make([]uuid.UUID, 0, 20)
	for i := 1; i <= 20; i++ {
		ids = append(ids, pid(i))
		stats[pid(i)] = Stats{Played: 4, Wins: i % 3, Draws: i % 2, RatingDelta: float64(i % 5)}
	}
	first := Rank(ids, stats, DefaultStrategy())
	reversed := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}
	second := Rank(reversed, stats, DefaultStrategy())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("input order changed the ranking:\n%s", diff)
	}
}

func TestComputeRankingsUsesFiveMostRecentEvents(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	// Oldest event is a loss for side A; it falls out of the window.
	seedPublished(t, st, base, 2, 6, -16)
	for i := 1; i <= 5; i++ {
		seedPublished(t, st, base.AddDate(0, 0, 7*i), 6, 3, 10)
	}
	// Starts after asOf, ignored.
	seedPublished(t, st, base.AddDate(0, 0, 70), 0, 6, -20)

	asOf := base.AddDate(0, 0, 36)
	got, err := newEngine(st).ComputeRankings(ctx, nil, asOf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d rows, want 4", len(got))
	}
	top := got[0]
	if top.PlayerID != pid(1) || top.Played != 5 || top.Wins != 5 || top.EventsCounted != 5 || top.RatingDelta != 50 {
		t.Fatalf("top row = %+v", top)
	}
	if top.Score != 150 {
		t.Fatalf("score = %v, want 150", top.Score)
	}
	bottom := got[3]
	if bottom.PlayerID != pid(4) || bottom.Losses != 5 || bottom.Score != -50 {
		t.Fatalf("bottom row = %+v", bottom)
	}
}

func TestComputeRankingsWithoutEvents(t *testing.T) {
	got, err := newEngine(memstore.New()).ComputeRankings(context.Background(), []uuid.UUID{pid(9), pid(2)}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	want := []models.PlayerRanking{
		{PlayerID: pid(2), Rank: 1},
		{PlayerID: pid(9), Rank: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEventRatings(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	for i := 1; i <= 3; i++ {
		if err := st.PutPlayer(ctx, &models.PlayerProfile{ID: pid(i), Rating: 1500}); err != nil {
			t.Fatal(err)
		}
	}
	// pid(4) has no profile and plays at the default rating.
	e := &models.Event{ID: uuid.New(), State: models.EventStateDrawn}
	if err := st.CreateEvent(ctx, e); err != nil {
		t.Fatal(err)
	}
	eng := newEngine(st)

	err := st.WithEventTx(ctx, e.ID, func(tx store.EventTx) error {
		draw := &models.Draw{EventID: e.ID, Matches: []models.Match{{
			Number: 1, SideA: []uuid.UUID{pid(1), pid(4)}, SideB: []uuid.UUID{pid(2), pid(3)},
		}}}
		if err := tx.SaveDraw(ctx, draw); err != nil {
			return err
		}
		if err := tx.SaveResult(ctx, &models.MatchResult{EventID: e.ID, MatchNumber: 1, SideAGames: 6, SideBGames: 4}); err != nil {
			return err
		}
		return eng.ApplyEventRatings(ctx, tx, e)
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[uuid.UUID]float64{pid(1): 1516, pid(2): 1484, pid(3): 1484}
	for id, rating := range want {
		p, _ := st.GetPlayer(ctx, id)
		if p.Rating != rating {
			t.Fatalf("player %s rating = %v, want %v", id, p.Rating, rating)
		}
	}
	results, _ := st.ListResults(ctx, e.ID)
	wantDeltas := map[uuid.UUID]float64{pid(1): 16, pid(4): 16, pid(2): -16, pid(3): -16}
	if diff := cmp.Diff(wantDeltas, results[0].RatingDeltas); diff != "" {
		t.Fatalf("deltas mismatch (-want +got):\n%s", diff)
	}
}

func TestSettleDrawAndUpset(t *testing.T) {
	ratings := map[uuid.UUID]float64{pid(1): 1700, pid(2): 1700, pid(3): 1300, pid(4): 1300}
	m := models.Match{SideA: []uuid.UUID{pid(1), pid(2)}, SideB: []uuid.UUID{pid(3), pid(4)}}

	tie := settle(m, models.MatchResult{SideAGames: 5, SideBGames: 5}, ratings, 32)
	if tie[pid(1)] >= 0 || tie[pid(3)] <= 0 {
		t.Fatalf("a tie should move the favourite down, got %v", tie)
	}
	if tie[pid(1)] != -tie[pid(3)] {
		t.Fatalf("deltas must be zero-sum, got %v", tie)
	}
}
