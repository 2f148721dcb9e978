// Package draw turns a frozen event into a drawn one and records match results.
package draw

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/drawengine"
	"github.com/padelhub/gamenight/go/internal/lifecycle"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/notify"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Config selects the engine behaviour for every draw.
type Config struct {
	Strategy      string                      `yaml:"strategy"`
	Sides         string                      `yaml:"sides"`
	Leftover      models.LeftoverPolicy       `yaml:"leftover"`
	Shortfall     models.CourtShortfallPolicy `yaml:"court_shortfall"`
	DefaultRating float64                     `yaml:"default_rating"`
}

// DefaultConfig returns the draw defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:      drawengine.Snake{}.Name(),
		Sides:         drawengine.Alternating{}.Name(),
		Leftover:      models.LeftoverBench,
		Shortfall:     models.ShortfallRounds,
		DefaultRating: 1500,
	}
}

// Announcer is told about state changes committed by this package.
type Announcer interface {
	AfterCommit(ctx context.Context, from models.EventState, event *models.Event)
}

// App handles draw generation and result recording
type App struct {
	store     store.Store
	policy    store.Policy
	clock     clockwork.Clock
	notifier  notify.Notifier
	announcer Announcer
	options   drawengine.Options
	config    Config
}

// NewApp creates a new draw App
func NewApp(st store.Store, policy store.Policy, clock clockwork.Clock, notifier notify.Notifier, announcer Announcer, cfg Config) (*App, error) {
	def := DefaultConfig()
	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}
	if cfg.Sides == "" {
		cfg.Sides = def.Sides
	}
	if cfg.DefaultRating <= 0 {
		cfg.DefaultRating = def.DefaultRating
	}
	strategy, ok := drawengine.StrategyByName(cfg.Strategy)
	if !ok {
		return nil, apperr.New(apperr.KindInvalidArgument, "draw.NewApp").With("strategy", cfg.Strategy)
	}
	sides, ok := drawengine.SideSplitByName(cfg.Sides)
	if !ok {
		return nil, apperr.New(apperr.KindInvalidArgument, "draw.NewApp").With("sides", cfg.Sides)
	}
	switch cfg.Leftover {
	case "", models.LeftoverBench, models.LeftoverShortMatch:
	default:
		return nil, apperr.New(apperr.KindInvalidArgument, "draw.NewApp").With("leftover", string(cfg.Leftover))
	}
	switch cfg.Shortfall {
	case "", models.ShortfallRounds, models.ShortfallFail:
	default:
		return nil, apperr.New(apperr.KindInvalidArgument, "draw.NewApp").With("court_shortfall", string(cfg.Shortfall))
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &App{
		store:     st,
		policy:    policy,
		clock:     clock,
		notifier:  notifier,
		announcer: announcer,
		options: drawengine.Options{
			Strategy:  strategy,
			Sides:     sides,
			Leftover:  cfg.Leftover,
			Shortfall: cfg.Shortfall,
		},
		config: cfg,
	}, nil
}

// GenerateDraw builds the draw for a FROZEN event and moves it to DRAWN.
// The draw and the state change commit together or not at all.
func (a *App) GenerateDraw(ctx context.Context, eventID uuid.UUID, actor models.Actor) (*models.Draw, error) {
	const op = "draw.GenerateDraw"
	if !actor.CanEdit() {
		return nil, apperr.New(apperr.KindUnauthorized, op).
			With("event_id", eventID.String()).
			With("actor_id", actor.ID.String())
	}

	var generated *models.Draw
	var drawn *models.Event
	err := a.policy.InEvent(ctx, a.store, eventID, func(tx store.EventTx) error {
		generated, drawn = nil, nil
		event := tx.Event()
		if err := lifecycle.CheckEdge(op, event, models.EventStateDrawn, true); err != nil {
			return err
		}

		roster, err := a.rosterWithRatings(ctx, tx, event)
		if err != nil {
			return err
		}
		venue, err := a.store.GetVenue(ctx, event.VenueID)
		if err != nil {
			return err
		}

		d, err := drawengine.Generate(roster, venue.Courts, event.PlayersPerMatch(), a.options)
		if err != nil {
			var e *apperr.Error
			if errors.As(err, &e) {
				e.With("event_id", eventID.String())
			}
			return err
		}
		now := a.clock.Now()
		d.EventID = eventID
		d.GeneratedAt = now
		if err := tx.SaveDraw(ctx, d); err != nil {
			return err
		}

		lifecycle.Apply(event, models.EventStateDrawn, now)
		if err := tx.SaveEvent(ctx, event); err != nil {
			return err
		}
		generated, drawn = d, event
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Str("event_id", eventID.String()).Msg("draw generation failed")
		return nil, err
	}

	log.Info().
		Str("event_id", eventID.String()).
		Str("strategy", generated.Strategy).
		Int("matches", len(generated.Matches)).
		Int("rounds", generated.Rounds).
		Int("bench", len(generated.Bench)).
		Msg("generated draw")

	if a.announcer != nil {
		a.announcer.AfterCommit(ctx, models.EventStateFrozen, drawn)
	}
	a.notifier.Notify(ctx, notify.Notification{
		Kind:    notify.KindDrawGenerated,
		EventID: eventID,
		Status:  string(models.EventStateDrawn),
		At:      generated.GeneratedAt,
	})
	return generated, nil
}

// rosterWithRatings reads the confirmed part of the frozen snapshot and pairs it
// with current ratings. Players without a profile get the default rating.
func (a *App) rosterWithRatings(ctx context.Context, tx store.EventTx, event *models.Event) ([]drawengine.Player, error) {
	confirmed := models.ConfirmedPlayers(event.RosterSnapshot)
	ids := make([]uuid.UUID, 0, len(confirmed))
	for _, e := range confirmed {
		ids = append(ids, e.PlayerID)
	}
	profiles, err := tx.ListPlayers(ctx, ids)
	if err != nil {
		return nil, err
	}
	ratings := make(map[uuid.UUID]float64, len(profiles))
	for _, p := range profiles {
		ratings[p.ID] = p.Rating
	}

	roster := make([]drawengine.Player, 0, len(confirmed))
	for _, e := range confirmed {
		rating, ok := ratings[e.PlayerID]
		if !ok {
			rating = a.config.DefaultRating
		}
		roster = append(roster, drawengine.Player{ID: e.PlayerID, Rating: rating, Position: e.Position})
	}
	return roster, nil
}

// GetDraw retrieves the draw attached to an event
func (a *App) GetDraw(ctx context.Context, eventID uuid.UUID) (*models.Draw, error) {
	ctx, cancel := a.policy.WithTimeout(ctx)
	defer cancel()

	d, err := a.store.GetDraw(ctx, eventID)
	if err != nil {
		return nil, store.Classify(ctx, "draw.GetDraw", err)
	}
	return d, nil
}

// ListResults returns recorded results in match order
func (a *App) ListResults(ctx context.Context, eventID uuid.UUID) ([]*models.MatchResult, error) {
	ctx, cancel := a.policy.WithTimeout(ctx)
	defer cancel()

	results, err := a.store.ListResults(ctx, eventID)
	if err != nil {
		return nil, store.Classify(ctx, "draw.ListResults", err)
	}
	return results, nil
}

// RecordResult stores the score of one match of a DRAWN event. Recording the
// same match again replaces the earlier score.
func (a *App) RecordResult(ctx context.Context, eventID uuid.UUID, matchNumber, sideAGames, sideBGames int, actor models.Actor) (*models.MatchResult, error) {
	const op = "draw.RecordResult"
	if !actor.CanEdit() {
		return nil, apperr.New(apperr.KindUnauthorized, op).
			With("event_id", eventID.String()).
			With("actor_id", actor.ID.String())
	}
	if sideAGames < 0 || sideBGames < 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, op).
			With("side_a_games", strconv.Itoa(sideAGames)).
			With("side_b_games", strconv.Itoa(sideBGames))
	}

	var recorded *models.MatchResult
	err := a.policy.InEvent(ctx, a.store, eventID, func(tx store.EventTx) error {
		recorded = nil
		event := tx.Event()
		if event.State != models.EventStateDrawn {
			return apperr.New(apperr.KindEventClosed, op).
				With("event_id", eventID.String()).
				With("state", string(event.State))
		}
		d, err := tx.GetDraw(ctx)
		if err != nil {
			return err
		}
		found := false
		for _, m := range d.Matches {
			if m.Number == matchNumber {
				found = true
				break
			}
		}
		if !found {
			return apperr.New(apperr.KindNotFound, op).
				With("event_id", eventID.String()).
				With("match_number", strconv.Itoa(matchNumber))
		}

		result := &models.MatchResult{
			EventID:     eventID,
			MatchNumber: matchNumber,
			SideAGames:  sideAGames,
			SideBGames:  sideBGames,
			RecordedBy:  actor.ID,
			RecordedAt:  a.clock.Now(),
		}
		if err := tx.SaveResult(ctx, result); err != nil {
			return err
		}
		recorded = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("event_id", eventID.String()).
		Int("match", matchNumber).
		Int("side_a_games", sideAGames).
		Int("side_b_games", sideBGames).
		Msg("recorded match result")

	a.notifier.Notify(ctx, notify.Notification{
		Kind:    notify.KindResultRecorded,
		EventID: eventID,
		At:      recorded.RecordedAt,
	})
	return recorded, nil
}
