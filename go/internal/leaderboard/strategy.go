package leaderboard

import (
	"sort"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/models"
)

// Stats is what a player did inside the ranking window.
type Stats struct {
	PlayerID      uuid.UUID
	Played        int
	Wins          int
	Losses        int
	Draws         int
	RatingDelta   float64
	EventsCounted int
}

// WinRatio counts a draw as half a win.
func (s Stats) WinRatio() float64 {
	if s.Played == 0 {
		return 0
	}
	return (float64(s.Wins) + 0.5*float64(s.Draws)) / float64(s.Played)
}

// Strategy scores one player. It must be a pure function of its input.
type Strategy interface {
	Name() string
	Score(s Stats) float64
}

// Weighted scores winRatio*WinWeight + ratingDelta*DeltaWeight.
type Weighted struct {
	WinWeight   float64
	DeltaWeight float64
}

// DefaultStrategy weighs a perfect win ratio like a 100 point rating gain.
func DefaultStrategy() Weighted {
	return Weighted{WinWeight: 100, DeltaWeight: 1}
}

func (w Weighted) Name() string { return "weighted" }

func (w Weighted) Score(s Stats) float64 {
	return s.WinRatio()*w.WinWeight + s.RatingDelta*w.DeltaWeight
}

// Rank orders players by descending score, ties broken by player id.
// Players without stats score as if they had played nothing.
func Rank(playerIDs []uuid.UUID, stats map[uuid.UUID]Stats, strategy Strategy) []models.PlayerRanking {
	out := make([]models.PlayerRanking, 0, len(playerIDs))
	seen := make(map[uuid.UUID]bool, len(playerIDs))
	for _, id := range playerIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		s := stats[id]
		s.PlayerID = id
		out = append(out, models.PlayerRanking{
			PlayerID:      id,
			Score:         strategy.Score(s),
			Played:        s.Played,
			Wins:          s.Wins,
			Losses:        s.Losses,
			Draws:         s.Draws,
			WinRatio:      s.WinRatio(),
			RatingDelta:   s.RatingDelta,
			EventsCounted: s.EventsCounted,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayerID.String() < out[j].PlayerID.String()
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
