// Package memstore is an in-process implementation of store.Store.
package memstore

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/store"
)

// Option configures a Store.
type Option func(*Store)

// WithLockWait bounds how long WithEventTx waits for the per-event lock
// before reporting ConcurrentModification. Zero waits until ctx is done.
func WithLockWait(d time.Duration) Option {
	return func(s *Store) { s.lockWait = d }
}

// Store keeps every record in memory. Each event has its own lock; writes made
// inside WithEventTx are staged and applied in one step on success.
type Store struct {
	mu sync.RWMutex

	events  map[uuid.UUID]*models.Event
	rsvps   map[uuid.UUID]*models.RSVP
	byEvent map[uuid.UUID][]uuid.UUID
	venues  map[uuid.UUID]*models.Venue
	players map[uuid.UUID]*models.PlayerProfile
	draws   map[uuid.UUID]*models.Draw
	results map[uuid.UUID]map[int]*models.MatchResult

	locksMu sync.Mutex
	locks   map[uuid.UUID]chan struct{}

	lockWait time.Duration
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		events:  make(map[uuid.UUID]*models.Event),
		rsvps:   make(map[uuid.UUID]*models.RSVP),
		byEvent: make(map[uuid.UUID][]uuid.UUID),
		venues:  make(map[uuid.UUID]*models.Venue),
		players: make(map[uuid.UUID]*models.PlayerProfile),
		draws:   make(map[uuid.UUID]*models.Draw),
		results: make(map[uuid.UUID]map[int]*models.MatchResult),
		locks:   make(map[uuid.UUID]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.CreateEvent", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return apperr.New(apperr.KindInvalidArgument, "memstore.CreateEvent").With("event_id", event.ID.String())
	}
	if event.Version == 0 {
		event.Version = 1
	}
	s.events[event.ID] = cloneEvent(event)
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.GetEvent", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "memstore.GetEvent").With("event_id", id.String())
	}
	return cloneEvent(e), nil
}

func (s *Store) ListEventsByState(ctx context.Context, states ...models.EventState) ([]*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.ListEventsByState", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, e := range s.events {
		if slices.Contains(states, e.State) {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (s *Store) ListPublishedEvents(ctx context.Context, asOf time.Time, limit int) ([]*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.ListPublishedEvents", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Event
	for _, e := range s.events {
		if e.State == models.EventStatePublished && !e.StartsAt.After(asOf) {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.After(out[j].StartsAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetRSVP(ctx context.Context, id uuid.UUID) (*models.RSVP, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.GetRSVP", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rsvps[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "memstore.GetRSVP").With("rsvp_id", id.String())
	}
	return cloneRSVP(r), nil
}

func (s *Store) ListRSVPs(ctx context.Context, eventID uuid.UUID) ([]*models.RSVP, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.ListRSVPs", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventRSVPsLocked(eventID), nil
}

func (s *Store) eventRSVPsLocked(eventID uuid.UUID) []*models.RSVP {
	ids := s.byEvent[eventID]
	out := make([]*models.RSVP, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneRSVP(s.rsvps[id]))
	}
	return out
}

func (s *Store) GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.GetVenue", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "memstore.GetVenue").With("venue_id", id.String())
	}
	return cloneVenue(v), nil
}

func (s *Store) PutVenue(ctx context.Context, venue *models.Venue) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.PutVenue", err)
	}
	v := cloneVenue(venue)
	sort.SliceStable(v.Courts, func(i, j int) bool { return v.Courts[i].SortOrder < v.Courts[j].SortOrder })
	s.mu.Lock()
	s.venues[venue.ID] = v
	s.mu.Unlock()
	return nil
}

func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*models.PlayerProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.GetPlayer", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "memstore.GetPlayer").With("player_id", id.String())
	}
	return clonePlayer(p), nil
}

func (s *Store) PutPlayer(ctx context.Context, player *models.PlayerProfile) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.PutPlayer", err)
	}
	s.mu.Lock()
	s.players[player.ID] = clonePlayer(player)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListPlayers(ctx context.Context, ids []uuid.UUID) ([]*models.PlayerProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.ListPlayers", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playersLocked(ids), nil
}

func (s *Store) playersLocked(ids []uuid.UUID) []*models.PlayerProfile {
	out := make([]*models.PlayerProfile, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			out = append(out, clonePlayer(p))
		}
	}
	return out
}

func (s *Store) GetDraw(ctx context.Context, eventID uuid.UUID) (*models.Draw, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.GetDraw", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.draws[eventID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "memstore.GetDraw").With("event_id", eventID.String())
	}
	return cloneDraw(d), nil
}

func (s *Store) ListResults(ctx context.Context, eventID uuid.UUID) ([]*models.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.ListResults", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedResults(s.results[eventID]), nil
}

func sortedResults(m map[int]*models.MatchResult) []*models.MatchResult {
	out := make([]*models.MatchResult, 0, len(m))
	for _, r := range m {
		out = append(out, cloneResult(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out
}

// lock acquires the per-event lock, honoring ctx and the configured lock wait.
func (s *Store) lock(ctx context.Context, eventID uuid.UUID) (func(), error) {
	s.locksMu.Lock()
	l, ok := s.locks[eventID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[eventID] = l
	}
	s.locksMu.Unlock()

	var waitCh <-chan time.Time
	if s.lockWait > 0 {
		t := time.NewTimer(s.lockWait)
		defer t.Stop()
		waitCh = t.C
	}

	select {
	case l <- struct{}{}:
		return func() { <-l }, nil
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.WithEventTx", ctx.Err()).
			With("event_id", eventID.String())
	case <-waitCh:
		return nil, apperr.New(apperr.KindConcurrentModification, "memstore.WithEventTx").
			With("event_id", eventID.String())
	}
}

func (s *Store) WithEventTx(ctx context.Context, eventID uuid.UUID, fn func(tx store.EventTx) error) error {
	unlock, err := s.lock(ctx, eventID)
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := s.begin(eventID)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.WithEventTx", err).
			With("event_id", eventID.String())
	}
	s.commit(tx)
	return nil
}
