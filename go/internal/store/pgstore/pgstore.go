// Package pgstore implements store.Store on Postgres through database/sql and lib/pq.
package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/dbconfig"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/sqlutil"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

// Store is a Postgres-backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg dbconfig.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")
	return db, nil
}

// Migrate creates any missing tables and indexes.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func uuidArray(ids []uuid.UUID) any {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = id.String()
	}
	return pq.Array(s)
}

func notFound(op, key string, id uuid.UUID) error {
	return apperr.New(apperr.KindNotFound, op).With(key, id.String())
}

func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	const op = "pgstore.CreateEvent"
	if event.Version == 0 {
		event.Version = 1
	}
	snapshot, err := nullJSON(event.RosterSnapshot, len(event.RosterSnapshot) > 0)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23)`,
		event.ID, event.Title, event.VenueID, event.Date, event.StartsAt, event.EndsAt, event.Capacity, event.Format,
		event.RSVPOpensAt, event.RSVPClosesAt, event.AutoOpen, event.State, event.RSVPSeq, event.Version, snapshot,
		event.StateChangedAt, sqlutil.ToSqlTime(event.OpenedAt), sqlutil.ToSqlTime(event.FrozenAt),
		sqlutil.ToSqlTime(event.DrawnAt), sqlutil.ToSqlTime(event.PublishedAt), sqlutil.ToNullUUID(&event.CreatedBy),
		event.CreatedAt, event.UpdatedAt,
	)
	return classify(op, err)
}

func (s *Store) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const op = "pgstore.GetEvent"
	e, err := scanEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, "event_id", id)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return e, nil
}

func (s *Store) ListEventsByState(ctx context.Context, states ...models.EventState) ([]*models.Event, error) {
	names := make([]string, len(states))
	for i, st := range states {
		names[i] = string(st)
	}
	events, err := queryEvents(ctx, s.db,
		`SELECT `+eventColumns+` FROM events WHERE state = ANY($1) ORDER BY starts_at, id`, pq.Array(names))
	return events, classify("pgstore.ListEventsByState", err)
}

func (s *Store) ListPublishedEvents(ctx context.Context, asOf time.Time, limit int) ([]*models.Event, error) {
	events, err := queryEvents(ctx, s.db, `
		SELECT `+eventColumns+` FROM events
		WHERE state = $1 AND starts_at <= $2
		ORDER BY starts_at DESC, id
		LIMIT NULLIF($3::int, 0)`,
		models.EventStatePublished, asOf, max(limit, 0))
	return events, classify("pgstore.ListPublishedEvents", err)
}

func (s *Store) GetRSVP(ctx context.Context, id uuid.UUID) (*models.RSVP, error) {
	const op = "pgstore.GetRSVP"
	r, err := scanRSVP(s.db.QueryRowContext(ctx, `SELECT `+rsvpColumns+` FROM rsvps WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, "rsvp_id", id)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return r, nil
}

func (s *Store) ListRSVPs(ctx context.Context, eventID uuid.UUID) ([]*models.RSVP, error) {
	rsvps, err := queryRSVPs(ctx, s.db, eventID)
	return rsvps, classify("pgstore.ListRSVPs", err)
}

func (s *Store) GetVenue(ctx context.Context, id uuid.UUID) (*models.Venue, error) {
	const op = "pgstore.GetVenue"
	var (
		v       models.Venue
		address sql.NullString
		logo    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, address, logo_url, created_at, updated_at FROM venues WHERE id = $1`, id,
	).Scan(&v.ID, &v.Name, &address, &logo, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, "venue_id", id)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	v.Address = sqlutil.FromSqlStringPtr(address)
	v.LogoURL = sqlutil.FromSqlStringPtr(logo)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, venue_id, label, sort_order FROM courts WHERE venue_id = $1 ORDER BY sort_order, id`, id)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var c models.Court
		if err := rows.Scan(&c.ID, &c.VenueID, &c.Label, &c.SortOrder); err != nil {
			return nil, classify(op, err)
		}
		v.Courts = append(v.Courts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return &v, nil
}

// PutVenue upserts the venue and replaces its courts.
func (s *Store) PutVenue(ctx context.Context, venue *models.Venue) error {
	const op = "pgstore.PutVenue"
	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) *sql.Tx { return tx }, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO venues (id, name, address, logo_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, address = EXCLUDED.address, logo_url = EXCLUDED.logo_url, updated_at = now()`,
			venue.ID, venue.Name, sqlutil.ToSqlString(venue.Address), sqlutil.ToSqlString(venue.LogoURL))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM courts WHERE venue_id = $1`, venue.ID); err != nil {
			return err
		}
		for _, c := range venue.Courts {
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO courts (id, venue_id, label, sort_order) VALUES ($1, $2, $3, $4)`,
				c.ID, venue.ID, c.Label, c.SortOrder); err != nil {
				return err
			}
		}
		return nil
	})
	return classify(op, err)
}

func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*models.PlayerProfile, error) {
	const op = "pgstore.GetPlayer"
	p, err := scanPlayer(s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, "player_id", id)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return p, nil
}

// PutPlayer upserts a player profile.
func (s *Store) PutPlayer(ctx context.Context, player *models.PlayerProfile) error {
	status := player.Status
	if status == "" {
		status = models.PlayerStatusActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, user_id, display_name, rating, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id, display_name = EXCLUDED.display_name,
		    rating = EXCLUDED.rating, status = EXCLUDED.status, updated_at = now()`,
		player.ID, player.UserID, player.DisplayName, player.Rating, status)
	return classify("pgstore.PutPlayer", err)
}

func (s *Store) ListPlayers(ctx context.Context, ids []uuid.UUID) ([]*models.PlayerProfile, error) {
	players, err := queryPlayers(ctx, s.db, ids)
	return players, classify("pgstore.ListPlayers", err)
}

func (s *Store) GetDraw(ctx context.Context, eventID uuid.UUID) (*models.Draw, error) {
	const op = "pgstore.GetDraw"
	d, err := queryDraw(ctx, s.db, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op, "event_id", eventID)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return d, nil
}

func (s *Store) ListResults(ctx context.Context, eventID uuid.UUID) ([]*models.MatchResult, error) {
	results, err := queryResults(ctx, s.db, eventID)
	return results, classify("pgstore.ListResults", err)
}

// WithEventTx locks the event row with FOR UPDATE NOWAIT. A row already locked
// by another transaction fails fast with ConcurrentModification.
func (s *Store) WithEventTx(ctx context.Context, eventID uuid.UUID, fn func(tx store.EventTx) error) error {
	const op = "pgstore.WithEventTx"
	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) *eventTx {
		return &eventTx{tx: tx, eventID: eventID}
	}, func(etx *eventTx) error {
		e, err := scanEvent(etx.tx.QueryRowContext(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE NOWAIT`, eventID))
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(op, "event_id", eventID)
		}
		if err != nil {
			return classify(op, err)
		}
		etx.event = e
		return fn(etx)
	})
	if err != nil && ctx.Err() != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, op, ctx.Err()).With("event_id", eventID.String())
	}
	return classify(op, err)
}
