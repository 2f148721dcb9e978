package memstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/store"
)

// eventTx holds private copies of one event's rows. Nothing is shared with
// the Store until commit.
type eventTx struct {
	s       *Store
	eventID uuid.UUID

	event       *models.Event
	storedVer   int64
	rsvps       map[uuid.UUID]*models.RSVP
	order       []uuid.UUID
	draw        *models.Draw
	drawDeleted bool
	results     map[int]*models.MatchResult
	ratings     map[uuid.UUID]float64
}

var _ store.EventTx = (*eventTx)(nil)

func (s *Store) begin(eventID uuid.UUID) (*eventTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[eventID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "memstore.WithEventTx").With("event_id", eventID.String())
	}
	tx := &eventTx{
		s:         s,
		eventID:   eventID,
		event:     cloneEvent(e),
		storedVer: e.Version,
		rsvps:     make(map[uuid.UUID]*models.RSVP),
		draw:      cloneDraw(s.draws[eventID]),
		results:   make(map[int]*models.MatchResult),
		ratings:   make(map[uuid.UUID]float64),
	}
	for _, id := range s.byEvent[eventID] {
		tx.rsvps[id] = cloneRSVP(s.rsvps[id])
		tx.order = append(tx.order, id)
	}
	for n, r := range s.results[eventID] {
		tx.results[n] = cloneResult(r)
	}
	return tx, nil
}

func (s *Store) commit(tx *eventTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[tx.eventID] = tx.event
	for _, id := range tx.order {
		s.rsvps[id] = tx.rsvps[id]
	}
	s.byEvent[tx.eventID] = tx.order

	switch {
	case tx.draw != nil:
		s.draws[tx.eventID] = tx.draw
	case tx.drawDeleted:
		delete(s.draws, tx.eventID)
	}
	s.results[tx.eventID] = tx.results

	for id, rating := range tx.ratings {
		if p, ok := s.players[id]; ok {
			p.Rating = rating
		}
	}
}

func (tx *eventTx) Event() *models.Event {
	return cloneEvent(tx.event)
}

func (tx *eventTx) SaveEvent(ctx context.Context, event *models.Event) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.SaveEvent", err)
	}
	if event.ID != tx.eventID {
		return apperr.New(apperr.KindInvalidArgument, "memstore.SaveEvent").With("event_id", event.ID.String())
	}
	if event.Version != tx.storedVer {
		return apperr.New(apperr.KindConcurrentModification, "memstore.SaveEvent").With("event_id", event.ID.String())
	}
	event.Version++
	// the sequence is only ever advanced through NextRSVPPosition
	event.RSVPSeq = tx.event.RSVPSeq
	tx.storedVer = event.Version
	tx.event = cloneEvent(event)
	return nil
}

func (tx *eventTx) NextRSVPPosition(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.NextRSVPPosition", err)
	}
	tx.event.RSVPSeq++
	return tx.event.RSVPSeq, nil
}

func (tx *eventTx) GetRSVP(ctx context.Context, id uuid.UUID) (*models.RSVP, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.GetRSVP", err)
	}
	r, ok := tx.rsvps[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "memstore.GetRSVP").With("rsvp_id", id.String())
	}
	return cloneRSVP(r), nil
}

func (tx *eventTx) ListRSVPs(ctx context.Context) ([]*models.RSVP, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.ListRSVPs", err)
	}
	out := make([]*models.RSVP, 0, len(tx.order))
	for _, id := range tx.order {
		out = append(out, cloneRSVP(tx.rsvps[id]))
	}
	return out, nil
}

func (tx *eventTx) InsertRSVP(ctx context.Context, rsvp *models.RSVP) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.InsertRSVP", err)
	}
	if rsvp.EventID != tx.eventID {
		return apperr.New(apperr.KindInvalidArgument, "memstore.InsertRSVP").With("event_id", rsvp.EventID.String())
	}
	if _, ok := tx.rsvps[rsvp.ID]; ok {
		return apperr.New(apperr.KindInvalidArgument, "memstore.InsertRSVP").With("rsvp_id", rsvp.ID.String())
	}
	if err := tx.checkActiveUnique(rsvp); err != nil {
		return err
	}
	tx.rsvps[rsvp.ID] = cloneRSVP(rsvp)
	tx.order = append(tx.order, rsvp.ID)
	return nil
}

func (tx *eventTx) UpdateRSVP(ctx context.Context, rsvp *models.RSVP) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.UpdateRSVP", err)
	}
	if _, ok := tx.rsvps[rsvp.ID]; !ok {
		return apperr.New(apperr.KindNotFound, "memstore.UpdateRSVP").With("rsvp_id", rsvp.ID.String())
	}
	if err := tx.checkActiveUnique(rsvp); err != nil {
		return err
	}
	tx.rsvps[rsvp.ID] = cloneRSVP(rsvp)
	return nil
}

// checkActiveUnique enforces one active RSVP per (event, player).
func (tx *eventTx) checkActiveUnique(rsvp *models.RSVP) error {
	if !rsvp.Status.Active() {
		return nil
	}
	for id, r := range tx.rsvps {
		if id != rsvp.ID && r.PlayerID == rsvp.PlayerID && r.Status.Active() {
			return apperr.New(apperr.KindDuplicateRSVP, "memstore.InsertRSVP").
				With("event_id", tx.eventID.String()).
				With("player_id", rsvp.PlayerID.String())
		}
	}
	return nil
}

func (tx *eventTx) GetDraw(ctx context.Context) (*models.Draw, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.GetDraw", err)
	}
	if tx.draw == nil {
		return nil, apperr.New(apperr.KindNotFound, "memstore.GetDraw").With("event_id", tx.eventID.String())
	}
	return cloneDraw(tx.draw), nil
}

func (tx *eventTx) SaveDraw(ctx context.Context, draw *models.Draw) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.SaveDraw", err)
	}
	tx.draw = cloneDraw(draw)
	tx.drawDeleted = false
	return nil
}

func (tx *eventTx) DeleteDraw(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.DeleteDraw", err)
	}
	tx.draw = nil
	tx.drawDeleted = true
	tx.results = make(map[int]*models.MatchResult)
	return nil
}

func (tx *eventTx) SaveResult(ctx context.Context, result *models.MatchResult) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.SaveResult", err)
	}
	tx.results[result.MatchNumber] = cloneResult(result)
	return nil
}

func (tx *eventTx) ListResults(ctx context.Context) ([]*models.MatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.ListResults", err)
	}
	return sortedResults(tx.results), nil
}

func (tx *eventTx) ListPlayers(ctx context.Context, ids []uuid.UUID) ([]*models.PlayerProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, "memstore.ListPlayers", err)
	}
	tx.s.mu.RLock()
	out := tx.s.playersLocked(ids)
	tx.s.mu.RUnlock()
	for _, p := range out {
		if r, ok := tx.ratings[p.ID]; ok {
			p.Rating = r
		}
	}
	return out, nil
}

func (tx *eventTx) UpdatePlayerRating(ctx context.Context, playerID uuid.UUID, rating float64) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "memstore.UpdatePlayerRating", err)
	}
	tx.s.mu.RLock()
	_, ok := tx.s.players[playerID]
	tx.s.mu.RUnlock()
	if !ok {
		return apperr.New(apperr.KindNotFound, "memstore.UpdatePlayerRating").With("player_id", playerID.String())
	}
	tx.ratings[playerID] = rating
	return nil
}
