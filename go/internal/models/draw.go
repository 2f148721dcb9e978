package models

import (
	"time"

	"github.com/google/uuid"
)

// LeftoverPolicy decides what happens to players that do not fill a full match.
type LeftoverPolicy string

const (
	// LeftoverBench holds the lowest ranked leftovers out of the round.
	LeftoverBench LeftoverPolicy = "BENCH"
	// LeftoverShortMatch puts two or more leftovers into one short match.
	LeftoverShortMatch LeftoverPolicy = "SHORT_MATCH"
)

// CourtShortfallPolicy decides what happens when there are more matches than courts.
type CourtShortfallPolicy string

const (
	// ShortfallRounds schedules ceil(matches/courts) rounds.
	ShortfallRounds CourtShortfallPolicy = "ROUNDS"
	// ShortfallFail rejects the draw with InsufficientCourts.
	ShortfallFail CourtShortfallPolicy = "FAIL"
)

// Draw is the court/match/round assignment of a frozen event.
type Draw struct {
	EventID     uuid.UUID             `json:"event_id"`
	Format      int                   `json:"format"`
	Strategy    string                `json:"strategy"`
	Rounds      int                   `json:"rounds"`
	Matches     []Match               `json:"matches"`
	Bench       []uuid.UUID           `json:"bench,omitempty"`
	Ratings     map[uuid.UUID]float64 `json:"ratings"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Match is one game on one court in one round.
type Match struct {
	Number      int         `json:"number"`
	Round       int         `json:"round"`
	CourtID     uuid.UUID   `json:"court_id"`
	CourtLabel  string      `json:"court_label"`
	SideA       []uuid.UUID `json:"side_a"`
	SideB       []uuid.UUID `json:"side_b"`
	RatingTotal float64     `json:"rating_total"`
}

// Players returns both sides of the match.
func (m Match) Players() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m.SideA)+len(m.SideB))
	out = append(out, m.SideA...)
	return append(out, m.SideB...)
}

// MatchResult is the score of one drawn match.
type MatchResult struct {
	EventID      uuid.UUID             `json:"event_id"`
	MatchNumber  int                   `json:"match_number"`
	SideAGames   int                   `json:"side_a_games"`
	SideBGames   int                   `json:"side_b_games"`
	RatingDeltas map[uuid.UUID]float64 `json:"rating_deltas,omitempty"`
	RecordedBy   uuid.UUID             `json:"recorded_by"`
	RecordedAt   time.Time             `json:"recorded_at"`
}

// Winner returns +1 if side A won, -1 if side B won and 0 on a tie.
func (r MatchResult) Winner() int {
	switch {
	case r.SideAGames > r.SideBGames:
		return 1
	case r.SideBGames > r.SideAGames:
		return -1
	default:
		return 0
	}
}
