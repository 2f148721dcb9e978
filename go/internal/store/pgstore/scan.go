package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const eventColumns = `id, title, venue_id, event_date, starts_at, ends_at, capacity, format,
	rsvp_opens_at, rsvp_closes_at, auto_open, state, rsvp_seq, version, roster_snapshot,
	state_changed_at, opened_at, frozen_at, drawn_at, published_at, created_by, created_at, updated_at`

func scanEvent(row scanner) (*models.Event, error) {
	var (
		e                                models.Event
		snapshot                         pqtype.NullRawMessage
		opened, frozen, drawn, published sql.NullTime
		createdBy                        uuid.NullUUID
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.VenueID, &e.Date, &e.StartsAt, &e.EndsAt, &e.Capacity, &e.Format,
		&e.RSVPOpensAt, &e.RSVPClosesAt, &e.AutoOpen, &e.State, &e.RSVPSeq, &e.Version, &snapshot,
		&e.StateChangedAt, &opened, &frozen, &drawn, &published, &createdBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if snapshot.Valid {
		if err := json.Unmarshal(snapshot.RawMessage, &e.RosterSnapshot); err != nil {
			return nil, fmt.Errorf("decode roster snapshot: %w", err)
		}
	}
	e.OpenedAt = sqlutil.FromSqlTime(opened)
	e.FrozenAt = sqlutil.FromSqlTime(frozen)
	e.DrawnAt = sqlutil.FromSqlTime(drawn)
	e.PublishedAt = sqlutil.FromSqlTime(published)
	if id := sqlutil.FromNullUUID(createdBy); id != nil {
		e.CreatedBy = *id
	}
	return &e, nil
}

func queryEvents(ctx context.Context, q querier, query string, args ...any) ([]*models.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// nullJSON encodes v for a nullable JSONB column, or NULL when present is false.
func nullJSON(v any, present bool) (pqtype.NullRawMessage, error) {
	if !present {
		return pqtype.NullRawMessage{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: b, Valid: true}, nil
}

const rsvpColumns = `id, event_id, player_id, status, position, cancelled_by, promoted_at, created_at, updated_at`

func scanRSVP(row scanner) (*models.RSVP, error) {
	var (
		r           models.RSVP
		cancelledBy uuid.NullUUID
		promotedAt  sql.NullTime
	)
	if err := row.Scan(&r.ID, &r.EventID, &r.PlayerID, &r.Status, &r.Position, &cancelledBy, &promotedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.CancelledBy = sqlutil.FromNullUUID(cancelledBy)
	r.PromotedAt = sqlutil.FromSqlTime(promotedAt)
	return &r, nil
}

func queryRSVPs(ctx context.Context, q querier, eventID uuid.UUID) ([]*models.RSVP, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+rsvpColumns+` FROM rsvps WHERE event_id = $1 ORDER BY created_at, position, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.RSVP
	for rows.Next() {
		r, err := scanRSVP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const playerColumns = `id, user_id, display_name, rating, status, created_at, updated_at`

func scanPlayer(row scanner) (*models.PlayerProfile, error) {
	var p models.PlayerProfile
	if err := row.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Rating, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func queryPlayers(ctx context.Context, q querier, ids []uuid.UUID) ([]*models.PlayerProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = ANY($1::uuid[]) ORDER BY id`, uuidArray(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PlayerProfile
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func queryDraw(ctx context.Context, q querier, eventID uuid.UUID) (*models.Draw, error) {
	var payload []byte
	if err := q.QueryRowContext(ctx, `SELECT payload FROM draws WHERE event_id = $1`, eventID).Scan(&payload); err != nil {
		return nil, err
	}
	var d models.Draw
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("decode draw: %w", err)
	}
	return &d, nil
}

func queryResults(ctx context.Context, q querier, eventID uuid.UUID) ([]*models.MatchResult, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT event_id, match_number, side_a_games, side_b_games, rating_deltas, recorded_by, recorded_at
		FROM match_results WHERE event_id = $1 ORDER BY match_number`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.MatchResult
	for rows.Next() {
		var (
			r          models.MatchResult
			deltas     pqtype.NullRawMessage
			recordedBy uuid.NullUUID
		)
		if err := rows.Scan(&r.EventID, &r.MatchNumber, &r.SideAGames, &r.SideBGames, &deltas, &recordedBy, &r.RecordedAt); err != nil {
			return nil, err
		}
		if deltas.Valid {
			if err := json.Unmarshal(deltas.RawMessage, &r.RatingDeltas); err != nil {
				return nil, fmt.Errorf("decode rating deltas: %w", err)
			}
		}
		if id := sqlutil.FromNullUUID(recordedBy); id != nil {
			r.RecordedBy = *id
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
