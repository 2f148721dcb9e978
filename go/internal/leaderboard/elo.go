package leaderboard

import (
	"math"

	"github.com/google/uuid"
	"github.com/padelhub/gamenight/go/internal/models"
)

// expected is the Elo win expectation of a side rated a against one rated b.
func expected(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

func sideAverage(side []uuid.UUID, ratings map[uuid.UUID]float64) float64 {
	if len(side) == 0 {
		return 0
	}
	var sum float64
	for _, id := range side {
		sum += ratings[id]
	}
	return sum / float64(len(side))
}

// settle applies Elo to one match on team average ratings. It updates ratings
// in place and returns the per-player delta.
func settle(match models.Match, result models.MatchResult, ratings map[uuid.UUID]float64, k float64) map[uuid.UUID]float64 {
	var scoreA float64
	switch result.Winner() {
	case 1:
		scoreA = 1
	case 0:
		scoreA = 0.5
	}
	ea := expected(sideAverage(match.SideA, ratings), sideAverage(match.SideB, ratings))
	delta := round2(k * (scoreA - ea))

	deltas := make(map[uuid.UUID]float64, len(match.SideA)+len(match.SideB))
	for _, id := range match.SideA {
		deltas[id] = delta
	}
	for _, id := range match.SideB {
		deltas[id] = -delta
	}
	for id, d := range deltas {
		ratings[id] = round2(ratings[id] + d)
	}
	return deltas
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
