package models

import "github.com/google/uuid"

// PlayerRanking is one row of the leaderboard.
type PlayerRanking struct {
	PlayerID      uuid.UUID `json:"player_id"`
	Rank          int       `json:"rank"`
	Score         float64   `json:"score"`
	Played        int       `json:"played"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Draws         int       `json:"draws"`
	WinRatio      float64   `json:"win_ratio"`
	RatingDelta   float64   `json:"rating_delta"`
	EventsCounted int       `json:"events_counted"`
}
