// Package leaderboard ranks players over their most recent published events
// and settles rating changes when an event is published.
package leaderboard

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/padelhub/gamenight/go/internal/apperr"
	"github.com/padelhub/gamenight/go/internal/models"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/rs/zerolog/log"
)

// Config tunes the engine.
type Config struct {
	// WindowSize is how many recent published events count.
	WindowSize int `yaml:"window_size"`
	// K is the Elo K-factor.
	K float64 `yaml:"k_factor"`
	// DefaultRating is used for players without a profile.
	DefaultRating float64  `yaml:"default_rating"`
	Strategy      Strategy `yaml:"-"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		WindowSize:    5,
		K:             32,
		DefaultRating: 1500,
		Strategy:      DefaultStrategy(),
	}
}

// Engine computes rankings and applies ratings.
type Engine struct {
	store  store.Store
	policy store.Policy
	clock  clockwork.Clock
	config Config
}

// NewEngine creates a leaderboard engine
func NewEngine(st store.Store, policy store.Policy, clock clockwork.Clock, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.K <= 0 {
		cfg.K = def.K
	}
	if cfg.DefaultRating <= 0 {
		cfg.DefaultRating = def.DefaultRating
	}
	if cfg.Strategy == nil {
		cfg.Strategy = def.Strategy
	}
	return &Engine{store: st, policy: policy, clock: clock, config: cfg}
}

// DefaultRating is the rating assumed for a player without a profile.
func (e *Engine) DefaultRating() float64 { return e.config.DefaultRating }

// ComputeRankings ranks playerIDs over the most recent published events that
// started at or before asOf. An empty playerIDs ranks everyone who played in
// the window; a zero asOf means now.
func (e *Engine) ComputeRankings(ctx context.Context, playerIDs []uuid.UUID, asOf time.Time) ([]models.PlayerRanking, error) {
	const op = "leaderboard.ComputeRankings"
	ctx, cancel := e.policy.WithTimeout(ctx)
	defer cancel()

	if asOf.IsZero() {
		asOf = e.clock.Now()
	}
	events, err := e.store.ListPublishedEvents(ctx, asOf, e.config.WindowSize)
	if err != nil {
		return nil, store.Classify(ctx, op, err)
	}

	stats := make(map[uuid.UUID]Stats)
	for _, ev := range events {
		if err := e.accumulate(ctx, ev.ID, stats); err != nil {
			return nil, store.Classify(ctx, op, err)
		}
	}

	if len(playerIDs) == 0 {
		for id := range stats {
			playerIDs = append(playerIDs, id)
		}
	}

	log.Debug().
		Int("events", len(events)).
		Int("players", len(playerIDs)).
		Time("as_of", asOf).
		Msg("computed rankings")

	return Rank(playerIDs, stats, e.config.Strategy), nil
}

func (e *Engine) accumulate(ctx context.Context, eventID uuid.UUID, stats map[uuid.UUID]Stats) error {
	draw, err := e.store.GetDraw(ctx, eventID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil
		}
		return err
	}
	results, err := e.store.ListResults(ctx, eventID)
	if err != nil {
		return err
	}
	Accumulate(draw, results, stats)
	return nil
}

// Accumulate folds one event's results into stats.
func Accumulate(draw *models.Draw, results []*models.MatchResult, stats map[uuid.UUID]Stats) {
	matches := make(map[int]models.Match, len(draw.Matches))
	for _, m := range draw.Matches {
		matches[m.Number] = m
	}

	played := make(map[uuid.UUID]bool)
	for _, r := range results {
		m, ok := matches[r.MatchNumber]
		if !ok {
			continue
		}
		record := func(side []uuid.UUID, outcome int) {
			for _, id := range side {
				s := stats[id]
				s.Played++
				switch outcome {
				case 1:
					s.Wins++
				case -1:
					s.Losses++
				default:
					s.Draws++
				}
				s.RatingDelta += r.RatingDeltas[id]
				stats[id] = s
				played[id] = true
			}
		}
		record(m.SideA, r.Winner())
		record(m.SideB, -r.Winner())
	}

	for id := range played {
		s := stats[id]
		s.EventsCounted++
		stats[id] = s
	}
}

// ApplyEventRatings settles Elo for every recorded result of the event, in
// match order, storing deltas on the results and the new ratings on the
// player profiles. It runs inside the publishing transaction.
func (e *Engine) ApplyEventRatings(ctx context.Context, tx store.EventTx, event *models.Event) error {
	draw, err := tx.GetDraw(ctx)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil
		}
		return err
	}
	results, err := tx.ListResults(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	var ids []uuid.UUID
	for _, m := range draw.Matches {
		ids = append(ids, m.Players()...)
	}
	profiles, err := tx.ListPlayers(ctx, ids)
	if err != nil {
		return err
	}
	ratings := make(map[uuid.UUID]float64, len(ids))
	known := make(map[uuid.UUID]bool, len(profiles))
	for _, id := range ids {
		ratings[id] = e.config.DefaultRating
	}
	for _, p := range profiles {
		ratings[p.ID] = p.Rating
		known[p.ID] = true
	}

	matches := make(map[int]models.Match, len(draw.Matches))
	for _, m := range draw.Matches {
		matches[m.Number] = m
	}
	sort.Slice(results, func(i, j int) bool { return results[i].MatchNumber < results[j].MatchNumber })

	for _, r := range results {
		m, ok := matches[r.MatchNumber]
		if !ok {
			continue
		}
		r.RatingDeltas = settle(m, *r, ratings, e.config.K)
		if err := tx.SaveResult(ctx, r); err != nil {
			return err
		}
	}

	updated := 0
	for id, rating := range ratings {
		if !known[id] {
			continue
		}
		if err := tx.UpdatePlayerRating(ctx, id, rating); err != nil {
			return err
		}
		updated++
	}

	log.Info().
		Str("event_id", event.ID.String()).
		Int("results", len(results)).
		Int("players", updated).
		Msg("applied event ratings")
	return nil
}
