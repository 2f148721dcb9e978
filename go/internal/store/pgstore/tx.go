package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/sqlutil"
	"github.com/padelhub/gamenight/go/internal/store"
)

// eventTx runs every statement on the transaction that holds the event row lock.
type eventTx struct {
	tx      *sql.Tx
	eventID uuid.UUID
	event   *models.Event
}

var _ store.EventTx = (*eventTx)(nil)

func (t *eventTx) Event() *models.Event { return t.event }

func (t *eventTx) SaveEvent(ctx context.Context, event *models.Event) error {
	const op = "pgstore.SaveEvent"
	snapshot, err := nullJSON(event.RosterSnapshot, len(event.RosterSnapshot) > 0)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE events SET
			title = $3, state = $4, roster_snapshot = $5, state_changed_at = $6,
			opened_at = $7, frozen_at = $8, drawn_at = $9, published_at = $10,
			updated_at = $11, version = version + 1
		WHERE id = $1 AND version = $2`,
		t.eventID, event.Version,
		event.Title, event.State, snapshot, event.StateChangedAt,
		sqlutil.ToSqlTime(event.OpenedAt), sqlutil.ToSqlTime(event.FrozenAt),
		sqlutil.ToSqlTime(event.DrawnAt), sqlutil.ToSqlTime(event.PublishedAt),
		event.UpdatedAt,
	)
	if err != nil {
		return classify(op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return classify(op, err)
	} else if n == 0 {
		return apperr.New(apperr.KindConcurrentModification, op).
			With("event_id", t.eventID.String()).
			With("version", strconv.FormatInt(event.Version, 10))
	}
	event.Version++
	event.RSVPSeq = t.event.RSVPSeq
	t.event = event
	return nil
}

func (t *eventTx) NextRSVPPosition(ctx context.Context) (int64, error) {
	var seq int64
	err := t.tx.QueryRowContext(ctx,
		`UPDATE events SET rsvp_seq = rsvp_seq + 1 WHERE id = $1 RETURNING rsvp_seq`, t.eventID).Scan(&seq)
	if err != nil {
		return 0, classify("pgstore.NextRSVPPosition", err)
	}
	t.event.RSVPSeq = seq
	return seq, nil
}

func (t *eventTx) GetRSVP(ctx context.Context, id uuid.UUID) (*models.RSVP, error) {
	const op = "pgstore.GetRSVP"
	r, err := scanRSVP(t.tx.QueryRowContext(ctx,
		`SELECT `+rsvpColumns+` FROM rsvps WHERE id = $1 AND event_id = $2`, id, t.eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, "rsvp_id", id)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return r, nil
}

func (t *eventTx) ListRSVPs(ctx context.Context) ([]*models.RSVP, error) {
	rsvps, err := queryRSVPs(ctx, t.tx, t.eventID)
	return rsvps, classify("pgstore.ListRSVPs", err)
}

func (t *eventTx) InsertRSVP(ctx context.Context, rsvp *models.RSVP) error {
	const op = "pgstore.InsertRSVP"
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO rsvps (`+rsvpColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rsvp.ID, t.eventID, rsvp.PlayerID, rsvp.Status, rsvp.Position,
		sqlutil.ToNullUUID(rsvp.CancelledBy), sqlutil.ToSqlTime(rsvp.PromotedAt), rsvp.CreatedAt, rsvp.UpdatedAt)
	if err := classify(op, err); err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicateRSVP {
			var e *apperr.Error
			if errors.As(err, &e) {
				e.With("event_id", t.eventID.String()).With("player_id", rsvp.PlayerID.String())
			}
		}
		return err
	}
	return nil
}

func (t *eventTx) UpdateRSVP(ctx context.Context, rsvp *models.RSVP) error {
	const op = "pgstore.UpdateRSVP"
	res, err := t.tx.ExecContext(ctx, `
		UPDATE rsvps SET status = $3, position = $4, cancelled_by = $5, promoted_at = $6, updated_at = $7
		WHERE id = $1 AND event_id = $2`,
		rsvp.ID, t.eventID, rsvp.Status, rsvp.Position,
		sqlutil.ToNullUUID(rsvp.CancelledBy), sqlutil.ToSqlTime(rsvp.PromotedAt), rsvp.UpdatedAt)
	if err != nil {
		return classify(op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return classify(op, err)
	} else if n == 0 {
		return notFound(op, "rsvp_id", rsvp.ID)
	}
	return nil
}

func (t *eventTx) GetDraw(ctx context.Context) (*models.Draw, error) {
	const op = "pgstore.GetDraw"
	d, err := queryDraw(ctx, t.tx, t.eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, "event_id", t.eventID)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return d, nil
}

func (t *eventTx) SaveDraw(ctx context.Context, draw *models.Draw) error {
	const op = "pgstore.SaveDraw"
	payload, err := json.Marshal(draw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO draws (event_id, payload, generated_at) VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO UPDATE SET payload = EXCLUDED.payload, generated_at = EXCLUDED.generated_at`,
		t.eventID, payload, draw.GeneratedAt)
	return classify(op, err)
}

func (t *eventTx) DeleteDraw(ctx context.Context) error {
	const op = "pgstore.DeleteDraw"
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM match_results WHERE event_id = $1`, t.eventID); err != nil {
		return classify(op, err)
	}
	_, err := t.tx.ExecContext(ctx, `DELETE FROM draws WHERE event_id = $1`, t.eventID)
	return classify(op, err)
}

func (t *eventTx) SaveResult(ctx context.Context, result *models.MatchResult) error {
	const op = "pgstore.SaveResult"
	deltas, err := nullJSON(result.RatingDeltas, len(result.RatingDeltas) > 0)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO match_results (event_id, match_number, side_a_games, side_b_games, rating_deltas, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, match_number) DO UPDATE
		SET side_a_games = EXCLUDED.side_a_games, side_b_games = EXCLUDED.side_b_games,
		    rating_deltas = EXCLUDED.rating_deltas, recorded_by = EXCLUDED.recorded_by,
		    recorded_at = EXCLUDED.recorded_at`,
		t.eventID, result.MatchNumber, result.SideAGames, result.SideBGames, deltas,
		sqlutil.ToNullUUID(&result.RecordedBy), result.RecordedAt)
	return classify(op, err)
}

func (t *eventTx) ListResults(ctx context.Context) ([]*models.MatchResult, error) {
	results, err := queryResults(ctx, t.tx, t.eventID)
	return results, classify("pgstore.ListResults", err)
}

func (t *eventTx) ListPlayers(ctx context.Context, ids []uuid.UUID) ([]*models.PlayerProfile, error) {
	players, err := queryPlayers(ctx, t.tx, ids)
	return players, classify("pgstore.ListPlayers", err)
}

func (t *eventTx) UpdatePlayerRating(ctx context.Context, playerID uuid.UUID, rating float64) error {
	const op = "pgstore.UpdatePlayerRating"
	res, err := t.tx.ExecContext(ctx,
		`UPDATE players SET rating = $2, updated_at = now() WHERE id = $1`, playerID, rating)
	if err != nil {
		return classify(op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return classify(op, err)
	} else if n == 0 {
		return notFound(op, "player_id", playerID)
	}
	return nil
}
